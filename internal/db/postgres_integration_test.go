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

func TestPostgresCatalog(t *testing.T) {
	connString := os.Getenv("CFELECT_TEST_POSTGRES_URL")
	if connString == "" {
		t.Skip("CFELECT_TEST_POSTGRES_URL not set")
	}
	ctx := context.Background()

	client, err := NewPostgresClient(ctx, connString)
	require.NoError(t, err)

	catalog := NewPostgresCatalog(client, "")
	defer catalog.Close()

	verifyCatalogRoundTrip(t, catalog, func(snap *schema.Snapshot) error {
		return WritePostgresCatalog(ctx, client, "", snap)
	})
}
