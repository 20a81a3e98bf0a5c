package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tordrt/cfelect/internal/election"
	"github.com/tordrt/cfelect/internal/schema"
	"github.com/tordrt/cfelect/internal/stream"
)

// snapshotService answers from a fixed snapshot through a real engine
type snapshotService struct {
	snap   *schema.Snapshot
	engine *election.Engine
	err    error
}

func (s *snapshotService) Keyspaces(ctx context.Context) ([]string, error) {
	return s.snap.KeyspaceNames(), s.err
}

func (s *snapshotService) ElectColumnFamilies(ctx context.Context, keyspace string, op stream.Operation) (election.ColumnFamilySet, error) {
	if s.err != nil {
		return election.ColumnFamilySet{}, s.err
	}
	return s.engine.ElectColumnFamilies(s.snap, keyspace, op)
}

func (s *snapshotService) Explain(ctx context.Context, keyspace string, op stream.Operation) (*election.Explanation, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.engine.Explain(s.snap, keyspace, op)
}

func (s *snapshotService) Congruency(ctx context.Context, keyspace string) (*election.CongruencyReport, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.engine.Congruency(s.snap, keyspace)
}

func (s *snapshotService) IsViewCongruentToBase(ctx context.Context, keyspace, view string) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	return s.engine.IsViewCongruentToBase(s.snap, keyspace, view)
}

func newService(t *testing.T, policy schema.FastStreamPolicy) *snapshotService {
	t.Helper()

	id := uuid.New()
	ks := schema.Keyspace{
		Name: "ks",
		Tables: []schema.Table{{
			ID:            id,
			Name:          "t",
			PartitionKey:  []string{"k"},
			ClusteringKey: []string{"c1"},
			FastStream:    policy,
			Views: []schema.View{
				{ID: uuid.New(), Name: "mv1", BaseTableID: id, BaseTableName: "t", PartitionKey: []string{"c1"}, ClusteringKey: []string{"k"}},
				{ID: uuid.New(), Name: "mv2", BaseTableID: id, BaseTableName: "t", PartitionKey: []string{"c1"}, ClusteringKey: []string{"k", "val1"}},
			},
		}},
	}
	snap, err := schema.NewSnapshot(uuid.New(), ks)
	require.NoError(t, err)
	return &snapshotService{snap: snap, engine: election.NewEngine(zap.NewNop())}
}

func newTestServer(t *testing.T, svc Service) *httptest.Server {
	t.Helper()
	s, err := New(svc, Options{Registry: prometheus.NewRegistry()})
	require.NoError(t, err)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func get(t *testing.T, ts *httptest.Server, path string) (int, []byte) {
	t.Helper()
	resp, err := http.Get(ts.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, body
}

func TestElectEndpoint(t *testing.T) {
	ts := newTestServer(t, newService(t, schema.FastStreamAuto))

	tests := []struct {
		name      string
		operation string
		want      []string
	}{
		{name: "repair honors policy", operation: "Repair", want: []string{"mv1", "t"}},
		{name: "bulk load honors policy", operation: "bulk%20load", want: []string{"mv1", "t"}},
		{name: "bootstrap streams every view", operation: "Bootstrap", want: []string{"mv1", "mv2", "t"}},
		{name: "decommission label", operation: "Unbootstrap", want: []string{"mv1", "mv2", "t"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := get(t, ts, "/v1/keyspaces/ks/elect?operation="+tt.operation)
			require.Equal(t, http.StatusOK, status, string(body))

			var resp struct {
				Keyspace       string                     `json:"keyspace"`
				Operation      string                     `json:"operation"`
				ColumnFamilies []election.ColumnFamilyRef `json:"column_families"`
			}
			require.NoError(t, json.Unmarshal(body, &resp))
			assert.Equal(t, "ks", resp.Keyspace)

			var names []string
			for _, ref := range resp.ColumnFamilies {
				names = append(names, ref.Name)
			}
			assert.Equal(t, tt.want, names)
		})
	}
}

func TestErrorMapping(t *testing.T) {
	ts := newTestServer(t, newService(t, schema.FastStreamAuto))

	tests := []struct {
		path   string
		status int
		code   string
	}{
		{path: "/v1/keyspaces/ks/elect", status: http.StatusBadRequest, code: "missing_operation"},
		{path: "/v1/keyspaces/ks/elect?operation=Gossip", status: http.StatusBadRequest, code: "unknown_operation"},
		{path: "/v1/keyspaces/ks/elect?operation=other", status: http.StatusBadRequest, code: "unknown_operation"},
		{path: "/v1/keyspaces/nope/elect?operation=Repair", status: http.StatusNotFound, code: "unknown_keyspace"},
		{path: "/v1/keyspaces/ks/views/mv9/congruency", status: http.StatusNotFound, code: "unknown_view"},
		{path: "/v1/keyspaces/nope/congruency", status: http.StatusNotFound, code: "unknown_keyspace"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			status, body := get(t, ts, tt.path)
			assert.Equal(t, tt.status, status)

			var e apiError
			require.NoError(t, json.Unmarshal(body, &e))
			assert.Equal(t, tt.code, e.Error)
		})
	}
}

func TestSchemaMismatchIsServerError(t *testing.T) {
	svc := newService(t, schema.FastStreamAuto)
	svc.err = fmt.Errorf("view mv1: %w", election.ErrSchemaMismatch)
	ts := newTestServer(t, svc)

	status, body := get(t, ts, "/v1/keyspaces/ks/explain?operation=Repair")
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Contains(t, string(body), "schema_mismatch")
}

func TestCongruencyEndpoints(t *testing.T) {
	ts := newTestServer(t, newService(t, schema.FastStreamNever))

	status, body := get(t, ts, "/v1/keyspaces/ks/congruency")
	require.Equal(t, http.StatusOK, status)
	var report election.CongruencyReport
	require.NoError(t, json.Unmarshal(body, &report))
	assert.False(t, report.Congruent)
	assert.Len(t, report.Views, 2)

	status, body = get(t, ts, "/v1/keyspaces/ks/views/mv1/congruency")
	require.Equal(t, http.StatusOK, status)
	var view viewCongruencyResponse
	require.NoError(t, json.Unmarshal(body, &view))
	assert.True(t, view.Congruent)
}

func TestExplainEndpoint(t *testing.T) {
	ts := newTestServer(t, newService(t, schema.FastStreamAuto))

	status, body := get(t, ts, "/v1/keyspaces/ks/explain?operation=Rebuild")
	require.Equal(t, http.StatusOK, status)

	var exp struct {
		Operation string              `json:"operation"`
		Decisions []election.Decision `json:"decisions"`
	}
	require.NoError(t, json.Unmarshal(body, &exp))
	assert.Equal(t, "Rebuild", exp.Operation)
	require.Len(t, exp.Decisions, 2)
	assert.True(t, exp.Decisions[0].Included)
	assert.False(t, exp.Decisions[1].Included)
	assert.Equal(t, election.ReasonNotCongruent, exp.Decisions[1].Reason)
}

func TestCatalogEndpoints(t *testing.T) {
	ts := newTestServer(t, newService(t, schema.FastStreamAuto))

	status, body := get(t, ts, "/healthz")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))

	status, body = get(t, ts, "/v1/keyspaces")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"keyspaces":["ks"]}`, string(body))

	status, body = get(t, ts, "/v1/operations")
	require.Equal(t, http.StatusOK, status)
	var ops []operationInfo
	require.NoError(t, json.Unmarshal(body, &ops))
	assert.Len(t, ops, len(stream.Operations()))
	for _, op := range ops {
		if op.Label == "Repair" {
			assert.False(t, op.Unconditional)
		}
		if op.Label == "Bootstrap" {
			assert.True(t, op.Unconditional)
		}
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t, newService(t, schema.FastStreamAuto))

	status, _ := get(t, ts, "/v1/keyspaces/ks/elect?operation=Repair")
	require.Equal(t, http.StatusOK, status)

	status, body := get(t, ts, "/metrics")
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, strings.Contains(string(body), "cfelect_elections_total"))
}
