// Package stream defines the closed set of data-redistribution operations and
// the human readable labels they are logged and reported under.
//
// Two parse modes exist. ParseOrFallback is best-effort and maps unknown text to
// Other, which keeps deserialized values from ever being empty. ParseStrict
// reports ErrUnparseableLabel instead, for callers that must tell a real
// operation apart from a typo. Other is only ever a fallback, so ParseStrict
// rejects its label too.
package stream

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnparseableLabel is returned by ParseStrict when text matches no label
var ErrUnparseableLabel = errors.New("unparseable stream operation label")

// Operation is the kind of streaming task being performed
type Operation int

const (
	Other Operation = iota
	TestTransfer
	TestLegacyStreaming
	RestoreReplicaCount
	Decommission
	Relocation
	Bootstrap
	Rebuild
	BulkLoad
	Repair
)

type descriptor struct {
	name  string
	label string
	// unconditional operations stream every view regardless of mv_fast_stream
	unconditional bool
}

var catalog = [...]descriptor{
	Other:               {name: "OTHER", label: "Other", unconditional: true},
	TestTransfer:        {name: "TEST_TRANSFER", label: "StreamingTransferTest", unconditional: true},
	TestLegacyStreaming: {name: "TEST_LEGACY_STREAMING", label: "LegacyStreamingTest", unconditional: true},
	RestoreReplicaCount: {name: "RESTORE_REPLICA_COUNT", label: "Restore replica count", unconditional: true},
	Decommission:        {name: "DECOMMISSION", label: "Unbootstrap", unconditional: true},
	Relocation:          {name: "RELOCATION", label: "Relocation", unconditional: true},
	Bootstrap:           {name: "BOOTSTRAP", label: "Bootstrap", unconditional: true},
	Rebuild:             {name: "REBUILD", label: "Rebuild"},
	BulkLoad:            {name: "BULK_LOAD", label: "Bulk Load"},
	Repair:              {name: "REPAIR", label: "Repair"},
}

// Operations returns every defined operation in declaration order
func Operations() []Operation {
	ops := make([]Operation, len(catalog))
	for i := range catalog {
		ops[i] = Operation(i)
	}
	return ops
}

// Valid reports whether o is a defined operation
func (o Operation) Valid() bool {
	return o >= 0 && int(o) < len(catalog)
}

// Label returns the human readable description, e.g. "Bulk Load"
func (o Operation) Label() string {
	if !o.Valid() {
		return fmt.Sprintf("Operation(%d)", int(o))
	}
	return catalog[o].label
}

// Name returns the identifier form, e.g. "BULK_LOAD"
func (o Operation) Name() string {
	if !o.Valid() {
		return fmt.Sprintf("OPERATION_%d", int(o))
	}
	return catalog[o].name
}

func (o Operation) String() string {
	return o.Label()
}

// IncludesViewsUnconditionally reports whether o streams every view of every
// elected table, ignoring mv_fast_stream and key congruency. Operations that
// must leave a fully self-consistent replica behind (bootstrap, decommission,
// relocation, restore replica count) do. Undefined values do not.
func (o Operation) IncludesViewsUnconditionally() bool {
	return o.Valid() && catalog[o].unconditional
}

// ParseOrFallback matches text against the operation labels ignoring case and
// returns Other when nothing matches.
func ParseOrFallback(text string) Operation {
	if op, ok := lookup(text); ok {
		return op
	}
	return Other
}

// ParseStrict matches text against the operation labels ignoring case. The
// label of Other does not name a real operation and is rejected.
func ParseStrict(text string) (Operation, error) {
	if op, ok := lookup(text); ok && op != Other {
		return op, nil
	}
	return Other, fmt.Errorf("%w: %q", ErrUnparseableLabel, text)
}

func lookup(text string) (Operation, bool) {
	for i, d := range catalog {
		if strings.EqualFold(d.label, text) {
			return Operation(i), true
		}
	}
	return Other, false
}

// MarshalText implements encoding.TextMarshaler using the label
func (o Operation) MarshalText() ([]byte, error) {
	if !o.Valid() {
		return nil, fmt.Errorf("invalid stream operation %d", int(o))
	}
	return []byte(o.Label()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Unlike ParseStrict it
// accepts every label MarshalText produces, Other included.
func (o *Operation) UnmarshalText(text []byte) error {
	op, ok := lookup(string(text))
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnparseableLabel, text)
	}
	*o = op
	return nil
}
