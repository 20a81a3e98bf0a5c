package schema

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFastStreamPolicy(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		want    FastStreamPolicy
		wantErr bool
	}{
		{name: "auto", text: "auto", want: FastStreamAuto},
		{name: "always", text: "always", want: FastStreamAlways},
		{name: "never", text: "never", want: FastStreamNever},
		{name: "mixed case", text: "AlWaYs", want: FastStreamAlways},
		{name: "padded", text: "  auto ", want: FastStreamAuto},
		{name: "unspecified defaults to never", text: "", want: FastStreamNever},
		{name: "unknown token", text: "sometimes", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFastStreamPolicy(tt.text)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFastStreamPolicyText(t *testing.T) {
	for _, p := range []FastStreamPolicy{FastStreamNever, FastStreamAuto, FastStreamAlways} {
		b, err := p.MarshalText()
		require.NoError(t, err)

		var back FastStreamPolicy
		require.NoError(t, back.UnmarshalText(b))
		assert.Equal(t, p, back)
	}

	_, err := FastStreamPolicy(7).MarshalText()
	assert.Error(t, err)
	assert.Equal(t, "FastStreamPolicy(7)", FastStreamPolicy(7).String())
}

func TestPrimaryKey(t *testing.T) {
	table := Table{PartitionKey: []string{"k"}, ClusteringKey: []string{"c1", "c2"}}
	assert.Equal(t, []string{"k", "c1", "c2"}, table.PrimaryKey())

	view := View{PartitionKey: []string{"c1"}, ClusteringKey: []string{"k"}}
	assert.Equal(t, []string{"c1", "k"}, view.PrimaryKey())
}

func TestNewSnapshotCopiesInput(t *testing.T) {
	ks := Keyspace{
		Name: "ks",
		Tables: []Table{{
			ID:           uuid.New(),
			Name:         "t",
			PartitionKey: []string{"k"},
			Views:        []View{{Name: "mv1", PartitionKey: []string{"k"}}},
		}},
	}

	snap, err := NewSnapshot(uuid.New(), ks)
	require.NoError(t, err)

	ks.Tables[0].PartitionKey[0] = "changed"
	ks.Tables[0].Views[0].Name = "changed"

	got, ok := snap.Keyspace("ks")
	require.True(t, ok)
	table, ok := got.Table("t")
	require.True(t, ok)
	assert.Equal(t, []string{"k"}, table.PartitionKey)
	assert.Equal(t, "ks", table.Keyspace)

	view, base, ok := got.FindView("mv1")
	require.True(t, ok)
	assert.Equal(t, "mv1", view.Name)
	assert.Equal(t, "t", base.Name)
}

func TestNewSnapshotRejectsMalformedInput(t *testing.T) {
	tests := []struct {
		name      string
		keyspaces []Keyspace
	}{
		{
			name:      "missing keyspace name",
			keyspaces: []Keyspace{{}},
		},
		{
			name:      "duplicate keyspace",
			keyspaces: []Keyspace{{Name: "ks"}, {Name: "ks"}},
		},
		{
			name:      "duplicate table",
			keyspaces: []Keyspace{{Name: "ks", Tables: []Table{{Name: "t"}, {Name: "t"}}}},
		},
		{
			name: "view named like a table",
			keyspaces: []Keyspace{{Name: "ks", Tables: []Table{
				{Name: "a", Views: []View{{Name: "b"}}},
				{Name: "b"},
			}}},
		},
		{
			name: "view named like a view of another table",
			keyspaces: []Keyspace{{Name: "ks", Tables: []Table{
				{Name: "a", Views: []View{{Name: "v"}}},
				{Name: "b", Views: []View{{Name: "v"}}},
			}}},
		},
		{
			name:      "view without name",
			keyspaces: []Keyspace{{Name: "ks", Tables: []Table{{Name: "a", Views: []View{{}}}}}},
		},
		{
			name:      "invalid policy",
			keyspaces: []Keyspace{{Name: "ks", Tables: []Table{{Name: "t", FastStream: FastStreamPolicy(9)}}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSnapshot(uuid.New(), tt.keyspaces...)
			assert.Error(t, err)
		})
	}
}

func TestKeyspaceNamesSorted(t *testing.T) {
	snap, err := NewSnapshot(uuid.Nil, Keyspace{Name: "zeta"}, Keyspace{Name: "alpha"})
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "zeta"}, snap.KeyspaceNames())

	_, ok := snap.Keyspace("missing")
	assert.False(t, ok)
}
