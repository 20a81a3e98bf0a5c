// Package election decides which column families a streaming operation copies.
//
// Base tables are always elected. A view is elected when the operation
// includes views unconditionally (bootstrap and friends), or when its base
// table's mv_fast_stream policy allows it to be streamed directly:
//
//	always -> elected
//	never  -> rebuilt through the write path instead
//	auto   -> elected iff the view's primary key is congruent with the base's
//
// The Engine holds no schema state. Every call works on the one snapshot it is
// given, so concurrent calls need no locking and two calls over the same
// generation always agree.
package election

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/tordrt/cfelect/internal/logger"
	"github.com/tordrt/cfelect/internal/metrics"
	"github.com/tordrt/cfelect/internal/schema"
	"github.com/tordrt/cfelect/internal/stream"
)

// Reason explains a view decision
type Reason string

const (
	ReasonUnconditional Reason = "operation streams every view"
	ReasonAlways        Reason = "mv_fast_stream is always"
	ReasonNever         Reason = "mv_fast_stream is never"
	ReasonCongruent     Reason = "mv_fast_stream is auto and the primary key is congruent"
	ReasonNotCongruent  Reason = "mv_fast_stream is auto and the primary key is not congruent"
)

// Decision records how a single view was treated by an election
type Decision struct {
	Table  string                  `json:"table"`
	View   string                  `json:"view"`
	Policy schema.FastStreamPolicy `json:"policy"`
	// Evaluated is false when the operation skipped the congruency check
	Evaluated bool   `json:"evaluated"`
	Congruent bool   `json:"congruent"`
	Included  bool   `json:"included"`
	Reason    Reason `json:"reason"`
}

// Explanation is an election together with the per-view decisions behind it
type Explanation struct {
	Keyspace   string           `json:"keyspace"`
	Operation  stream.Operation `json:"operation"`
	Generation string           `json:"generation"`
	Elected    ColumnFamilySet  `json:"elected"`
	Decisions  []Decision       `json:"decisions"`
}

// Engine elects column families over schema snapshots
type Engine struct {
	log *zap.Logger
}

// NewEngine creates an engine logging to log, or to the process logger if nil
func NewEngine(log *zap.Logger) *Engine {
	if log == nil {
		log = logger.Named("election")
	}
	return &Engine{log: log}
}

// ElectColumnFamilies returns the tables and views of keyspace that op streams
func (e *Engine) ElectColumnFamilies(snap *schema.Snapshot, keyspace string, op stream.Operation) (ColumnFamilySet, error) {
	explanation, err := e.Explain(snap, keyspace, op)
	if err != nil {
		return ColumnFamilySet{}, err
	}
	return explanation.Elected, nil
}

// Explain elects the column families of keyspace for op and reports the
// decision taken for every view.
func (e *Engine) Explain(snap *schema.Snapshot, keyspace string, op stream.Operation) (*Explanation, error) {
	if !op.Valid() {
		return nil, e.fail(fmt.Errorf("%w: %d", ErrInvalidOperation, int(op)))
	}
	ks, err := e.keyspace(snap, keyspace)
	if err != nil {
		return nil, err
	}

	out := &Explanation{
		Keyspace:   keyspace,
		Operation:  op,
		Generation: snap.Generation().String(),
		Elected:    NewColumnFamilySet(),
	}

	for i := range ks.Tables {
		table := &ks.Tables[i]
		out.Elected.add(ColumnFamilyRef{Keyspace: keyspace, Name: table.Name, Kind: KindTable})

		for j := range table.Views {
			view := &table.Views[j]
			d, err := decide(op, table, view)
			if err != nil {
				return nil, e.fail(err)
			}
			out.Decisions = append(out.Decisions, d)
			if d.Included {
				out.Elected.add(ColumnFamilyRef{Keyspace: keyspace, Name: view.Name, Kind: KindView, BaseTable: table.Name})
			}
		}
	}

	// counted only once the whole keyspace has been decided
	for _, d := range out.Decisions {
		decision := "excluded"
		if d.Included {
			decision = "included"
		}
		metrics.ViewDecisions.WithLabelValues(op.Name(), decision).Inc()
		e.log.Debug("view decision",
			logger.Keyspace(keyspace), logger.Table(d.Table), logger.View(d.View),
			logger.Operation(op.Name()), zap.Bool("included", d.Included), zap.String("reason", string(d.Reason)))
	}
	metrics.Elections.WithLabelValues(op.Name()).Inc()
	e.log.Debug("elected column families",
		logger.Keyspace(keyspace), logger.Operation(op.Name()), logger.Generation(snap.Generation()),
		zap.Strings("column_families", out.Elected.Names()))

	return out, nil
}

// PrimaryKeysOfViewsAreCongruent reports whether every view of keyspace is
// congruent with its base table, whatever the tables' policies are.
func (e *Engine) PrimaryKeysOfViewsAreCongruent(snap *schema.Snapshot, keyspace string) (bool, error) {
	ks, err := e.keyspace(snap, keyspace)
	if err != nil {
		return false, err
	}

	all := true
	for i := range ks.Tables {
		table := &ks.Tables[i]
		for j := range table.Views {
			congruent, err := IsCongruent(&table.Views[j], table)
			if err != nil {
				return false, e.fail(err)
			}
			all = all && congruent
		}
	}
	return all, nil
}

// ViewCongruency is the congruency of one view with its base table
type ViewCongruency struct {
	Table     string `json:"table"`
	View      string `json:"view"`
	Congruent bool   `json:"congruent"`
}

// CongruencyReport is the keyspace aggregate together with every view's flag
type CongruencyReport struct {
	Keyspace   string           `json:"keyspace"`
	Generation string           `json:"generation"`
	Congruent  bool             `json:"congruent"`
	Views      []ViewCongruency `json:"views"`
}

// Congruency evaluates every view of keyspace. Congruent is the same
// aggregate PrimaryKeysOfViewsAreCongruent returns.
func (e *Engine) Congruency(snap *schema.Snapshot, keyspace string) (*CongruencyReport, error) {
	ks, err := e.keyspace(snap, keyspace)
	if err != nil {
		return nil, err
	}

	report := &CongruencyReport{
		Keyspace:   keyspace,
		Generation: snap.Generation().String(),
		Congruent:  true,
		Views:      []ViewCongruency{},
	}
	for i := range ks.Tables {
		table := &ks.Tables[i]
		for j := range table.Views {
			congruent, err := IsCongruent(&table.Views[j], table)
			if err != nil {
				return nil, e.fail(err)
			}
			report.Views = append(report.Views, ViewCongruency{Table: table.Name, View: table.Views[j].Name, Congruent: congruent})
			report.Congruent = report.Congruent && congruent
		}
	}
	return report, nil
}

// IsViewCongruentToBase reports whether the named view is congruent with its base table
func (e *Engine) IsViewCongruentToBase(snap *schema.Snapshot, keyspace, view string) (bool, error) {
	ks, err := e.keyspace(snap, keyspace)
	if err != nil {
		return false, err
	}

	v, base, ok := ks.FindView(view)
	if !ok {
		return false, e.fail(fmt.Errorf("%w: %s.%s", ErrUnknownView, keyspace, view))
	}

	congruent, err := IsCongruent(v, base)
	if err != nil {
		return false, e.fail(err)
	}
	return congruent, nil
}

func (e *Engine) keyspace(snap *schema.Snapshot, keyspace string) (*schema.Keyspace, error) {
	ks, ok := snap.Keyspace(keyspace)
	if !ok {
		return nil, e.fail(fmt.Errorf("%w: %s", ErrUnknownKeyspace, keyspace))
	}
	return ks, nil
}

func (e *Engine) fail(err error) error {
	metrics.ElectionErrors.WithLabelValues(errorKind(err)).Inc()
	return err
}

func decide(op stream.Operation, table *schema.Table, view *schema.View) (Decision, error) {
	d := Decision{Table: table.Name, View: view.Name, Policy: table.FastStream}

	if op.IncludesViewsUnconditionally() {
		d.Included = true
		d.Reason = ReasonUnconditional
		return d, nil
	}

	congruent, err := IsCongruent(view, table)
	if err != nil {
		return Decision{}, err
	}
	d.Evaluated = true
	d.Congruent = congruent
	d.Included = Resolve(table.FastStream, congruent)

	switch table.FastStream {
	case schema.FastStreamAlways:
		d.Reason = ReasonAlways
	case schema.FastStreamAuto:
		if congruent {
			d.Reason = ReasonCongruent
		} else {
			d.Reason = ReasonNotCongruent
		}
	default:
		d.Reason = ReasonNever
	}
	return d, nil
}
