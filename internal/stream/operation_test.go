package stream

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLabelRoundTrip(t *testing.T) {
	for _, op := range Operations() {
		t.Run(op.Name(), func(t *testing.T) {
			inputs := []string{op.Label(), strings.ToUpper(op.Label()), strings.ToLower(op.Label()), mixCase(op.Label())}
			for _, in := range inputs {
				assert.Equal(t, op, ParseOrFallback(in), in)
				if op == Other {
					continue
				}
				got, err := ParseStrict(in)
				require.NoError(t, err, in)
				assert.Equal(t, op, got, in)
			}
		})
	}
}

func TestUnknownLabel(t *testing.T) {
	tests := []string{"", "repairs", "BULK_LOAD", "bulk  load", "Bootstrap ", "Other", "other"}

	for _, text := range tests {
		t.Run(text, func(t *testing.T) {
			assert.Equal(t, Other, ParseOrFallback(text))

			_, err := ParseStrict(text)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrUnparseableLabel)
		})
	}
}

func TestLabels(t *testing.T) {
	tests := []struct {
		op    Operation
		label string
		name  string
	}{
		{Other, "Other", "OTHER"},
		{TestTransfer, "StreamingTransferTest", "TEST_TRANSFER"},
		{TestLegacyStreaming, "LegacyStreamingTest", "TEST_LEGACY_STREAMING"},
		{RestoreReplicaCount, "Restore replica count", "RESTORE_REPLICA_COUNT"},
		{Decommission, "Unbootstrap", "DECOMMISSION"},
		{Relocation, "Relocation", "RELOCATION"},
		{Bootstrap, "Bootstrap", "BOOTSTRAP"},
		{Rebuild, "Rebuild", "REBUILD"},
		{BulkLoad, "Bulk Load", "BULK_LOAD"},
		{Repair, "Repair", "REPAIR"},
	}

	require.Len(t, Operations(), len(tests))
	for _, tt := range tests {
		assert.Equal(t, tt.label, tt.op.Label())
		assert.Equal(t, tt.label, tt.op.String())
		assert.Equal(t, tt.name, tt.op.Name())
	}
}

func TestIncludesViewsUnconditionally(t *testing.T) {
	honorsPolicy := map[Operation]bool{Repair: true, Rebuild: true, BulkLoad: true}

	for _, op := range Operations() {
		assert.Equal(t, !honorsPolicy[op], op.IncludesViewsUnconditionally(), op.Name())
	}

	assert.False(t, Operation(42).IncludesViewsUnconditionally())
	assert.False(t, Operation(-1).Valid())
}

func TestOperationJSON(t *testing.T) {
	type request struct {
		Operation Operation `json:"operation"`
	}

	b, err := json.Marshal(request{Operation: BulkLoad})
	require.NoError(t, err)
	assert.JSONEq(t, `{"operation":"Bulk Load"}`, string(b))

	var back request
	require.NoError(t, json.Unmarshal([]byte(`{"operation":"restore REPLICA count"}`), &back))
	assert.Equal(t, RestoreReplicaCount, back.Operation)

	b, err = json.Marshal(request{Operation: Other})
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, Other, back.Operation)

	err = json.Unmarshal([]byte(`{"operation":"nope"}`), &back)
	assert.ErrorIs(t, err, ErrUnparseableLabel)
}

func mixCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if i%2 == 0 {
			b.WriteString(strings.ToUpper(string(r)))
		} else {
			b.WriteString(strings.ToLower(string(r)))
		}
	}
	return b.String()
}
