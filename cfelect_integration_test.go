//go:build integration
// +build integration

package cfelect

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tordrt/cfelect/internal/db"
	"github.com/tordrt/cfelect/internal/stream"
)

func TestLoadCatalogIntoSQLite(t *testing.T) {
	ctx := context.Background()

	snap, err := db.ParseDocument([]byte(catalogDoc("auto", viewMV1, viewMV2)))
	require.NoError(t, err)

	url := "sqlite://" + filepath.Join(t.TempDir(), "catalog.db")
	require.NoError(t, LoadCatalog(ctx, url, snap, nil))

	coord, err := Open(ctx, url, nil)
	require.NoError(t, err)
	defer coord.Close()

	version, err := coord.provider.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, snap.Generation(), version)

	elected, err := coord.ElectColumnFamilies(ctx, "ks", stream.Repair)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"t", "mv1"}, elected.Names())

	all, err := coord.ElectAll(ctx, nil, stream.Decommission)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"t", "mv1", "mv2"}, all["ks"].Names())
	assert.ElementsMatch(t, []string{"events"}, all["other"].Names())
}
