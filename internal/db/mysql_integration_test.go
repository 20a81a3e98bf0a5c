//go:build integration
// +build integration

package db

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tordrt/cfelect/internal/schema"
)

func TestMySQLCatalog(t *testing.T) {
	dsn := os.Getenv("CFELECT_TEST_MYSQL_DSN")
	if dsn == "" {
		t.Skip("CFELECT_TEST_MYSQL_DSN not set")
	}
	ctx := context.Background()

	client, err := NewMySQLClient(ctx, dsn)
	require.NoError(t, err)

	catalog := NewMySQLCatalog(client)
	defer catalog.Close()

	verifyCatalogRoundTrip(t, catalog, func(snap *schema.Snapshot) error {
		return WriteSQLCatalog(ctx, catalog.db, snap)
	})
}
