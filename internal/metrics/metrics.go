package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Election metrics. Operations are labelled by their identifier form
// (stream.Operation.Name), never by free text.
var (
	Elections = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cfelect_elections_total",
		Help: "Column family elections performed, by stream operation",
	}, []string{"operation"})

	ViewDecisions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cfelect_views_total",
		Help: "View election decisions, by stream operation and decision (included|excluded)",
	}, []string{"operation", "decision"})

	ElectionErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cfelect_election_errors_total",
		Help: "Election failures, by kind (unknown_keyspace|schema_mismatch|unknown_view|other)",
	}, []string{"kind"})

	SnapshotLoads = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cfelect_snapshot_loads_total",
		Help: "Schema snapshots read from a catalog, by source (postgres|mysql|sqlite|file|cache)",
	}, []string{"source"})
)

// Register registers the collectors on reg (the default registerer if nil).
// Registering twice is not an error.
func Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range []prometheus.Collector{Elections, ViewDecisions, ElectionErrors, SnapshotLoads} {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				return err
			}
		}
	}
	return nil
}
