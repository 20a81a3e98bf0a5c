//go:build integration
// +build integration

package db

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tordrt/cfelect/internal/schema"
)

// fixtureSnapshot is keyspace ks holding t(k, c1, c2, val1) with primary key
// (k, c1), a congruent view mv1 and a view mv2 that adds val1 to its key
func fixtureSnapshot(t *testing.T, generation uuid.UUID, policy schema.FastStreamPolicy) *schema.Snapshot {
	t.Helper()

	tableID := uuid.New()
	columns := []schema.Column{
		{Name: "k", Type: "int", Kind: schema.KindPartitionKey},
		{Name: "c1", Type: "int", Kind: schema.KindClustering},
		{Name: "c2", Type: "int", Kind: schema.KindRegular},
		{Name: "val1", Type: "text", Kind: schema.KindRegular},
	}
	ks := schema.Keyspace{
		Name: "ks",
		Tables: []schema.Table{
			{
				ID:            tableID,
				Name:          "t",
				PartitionKey:  []string{"k"},
				ClusteringKey: []string{"c1"},
				Columns:       columns,
				FastStream:    policy,
				Views: []schema.View{
					{
						ID: uuid.New(), Name: "mv1", BaseTableID: tableID, BaseTableName: "t",
						PartitionKey: []string{"c1"}, ClusteringKey: []string{"k"},
					},
					{
						ID: uuid.New(), Name: "mv2", BaseTableID: tableID, BaseTableName: "t",
						PartitionKey: []string{"c1"}, ClusteringKey: []string{"k", "val1"},
					},
				},
			},
			{
				ID:           uuid.New(),
				Name:         "other",
				PartitionKey: []string{"id"},
				Columns:      []schema.Column{{Name: "id", Type: "uuid"}, {Name: "s", Type: "text", Kind: schema.KindStatic}},
			},
		},
	}

	snap, err := schema.NewSnapshot(generation, ks)
	require.NoError(t, err)
	return snap
}

// verifyCatalogRoundTrip checks that a written snapshot reads back intact and
// that rewriting it is visible as a new generation
func verifyCatalogRoundTrip(t *testing.T, provider Provider, write func(*schema.Snapshot) error) {
	t.Helper()
	ctx := context.Background()

	first := fixtureSnapshot(t, uuid.New(), schema.FastStreamAuto)
	require.NoError(t, write(first))

	version, err := provider.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.Generation(), version)

	snap, err := provider.KeyspaceSnapshot(ctx, "ks")
	require.NoError(t, err)
	assert.Equal(t, first.Generation(), snap.Generation())

	ks, ok := snap.Keyspace("ks")
	require.True(t, ok)
	require.Len(t, ks.Tables, 2)

	table, ok := ks.Table("t")
	require.True(t, ok)
	want, _ := first.Keyspace("ks")
	wantTable, _ := want.Table("t")
	assert.Equal(t, wantTable.ID, table.ID)
	assert.Equal(t, []string{"k", "c1"}, table.PrimaryKey())
	assert.Equal(t, schema.FastStreamAuto, table.FastStream)
	assert.Len(t, table.Columns, 4)

	mv2, ok := table.View("mv2")
	require.True(t, ok)
	assert.Equal(t, []string{"c1", "k", "val1"}, mv2.PrimaryKey())
	assert.Equal(t, table.ID, mv2.BaseTableID)

	other, ok := ks.Table("other")
	require.True(t, ok)
	assert.Equal(t, schema.FastStreamNever, other.FastStream)
	assert.Equal(t, schema.KindStatic, other.Columns[1].Kind)

	names, err := provider.Keyspaces(ctx)
	require.NoError(t, err)
	assert.Contains(t, names, "ks")

	policy, err := provider.FastStreamPolicy(ctx, "ks", "t")
	require.NoError(t, err)
	assert.Equal(t, schema.FastStreamAuto, policy)

	_, err = provider.FastStreamPolicy(ctx, "ks", "missing")
	assert.ErrorIs(t, err, ErrTableNotFound)

	missing, err := provider.KeyspaceSnapshot(ctx, "nope")
	require.NoError(t, err)
	_, ok = missing.Keyspace("nope")
	assert.False(t, ok)

	second := fixtureSnapshot(t, uuid.New(), schema.FastStreamAlways)
	require.NoError(t, write(second))

	snap, err = provider.KeyspaceSnapshot(ctx, "ks")
	require.NoError(t, err)
	assert.Equal(t, second.Generation(), snap.Generation())
	ks, _ = snap.Keyspace("ks")
	table, _ = ks.Table("t")
	assert.Equal(t, schema.FastStreamAlways, table.FastStream)
	assert.Len(t, table.Views, 2, "rewriting a keyspace replaces its rows")
}
