package election

import "errors"

var (
	// ErrUnknownKeyspace means the requested keyspace is absent from the snapshot
	ErrUnknownKeyspace = errors.New("unknown keyspace")

	// ErrSchemaMismatch means a view was evaluated against a table that is not
	// its base table. The snapshot is internally inconsistent.
	ErrSchemaMismatch = errors.New("schema mismatch")

	// ErrUnknownView means the requested view is absent from the keyspace
	ErrUnknownView = errors.New("unknown view")

	// ErrInvalidOperation means an undefined stream.Operation value was passed
	ErrInvalidOperation = errors.New("invalid stream operation")
)

// errorKind maps an election error onto its metrics label
func errorKind(err error) string {
	switch {
	case errors.Is(err, ErrUnknownKeyspace):
		return "unknown_keyspace"
	case errors.Is(err, ErrSchemaMismatch):
		return "schema_mismatch"
	case errors.Is(err, ErrUnknownView):
		return "unknown_view"
	case errors.Is(err, ErrInvalidOperation):
		return "invalid_operation"
	default:
		return "other"
	}
}
