//go:build integration
// +build integration

package db

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tordrt/cfelect/internal/schema"
)

func TestSQLiteCatalog(t *testing.T) {
	ctx := context.Background()

	client, err := NewSQLiteClient(ctx, filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)

	catalog := NewSQLiteCatalog(client)
	defer catalog.Close()

	verifyCatalogRoundTrip(t, catalog, func(snap *schema.Snapshot) error {
		return WriteSQLCatalog(ctx, catalog.db, snap)
	})
}
