package formatter

import (
	"fmt"
	"io"
	"sort"

	"github.com/tordrt/cfelect/internal/election"
	"github.com/tordrt/cfelect/internal/schema"
	"github.com/tordrt/cfelect/internal/stream"
)

// TextFormatter formats results as compact text
type TextFormatter struct {
	writer io.Writer
}

// NewTextFormatter creates a new text formatter
func NewTextFormatter(w io.Writer) *TextFormatter {
	return &TextFormatter{writer: w}
}

// FormatElection writes one column family per line, tables first
func (f *TextFormatter) FormatElection(keyspace string, op stream.Operation, set election.ColumnFamilySet) error {
	_, _ = fmt.Fprintf(f.writer, "KEYSPACE %s OPERATION %q\n", keyspace, op.Label())
	for _, ref := range orderedRefs(set) {
		if ref.Kind == election.KindView {
			_, _ = fmt.Fprintf(f.writer, "  VIEW  %s (base: %s)\n", ref.Name, ref.BaseTable)
		} else {
			_, _ = fmt.Fprintf(f.writer, "  TABLE %s\n", ref.Name)
		}
	}
	return nil
}

// FormatExplanation writes the election followed by every view decision
func (f *TextFormatter) FormatExplanation(exp *election.Explanation) error {
	if err := f.FormatElection(exp.Keyspace, exp.Operation, exp.Elected); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(f.writer, "  GENERATION %s\n", exp.Generation)

	if len(exp.Decisions) > 0 {
		_, _ = fmt.Fprintln(f.writer)
		_, _ = fmt.Fprintln(f.writer, "  DECISIONS:")
		for _, d := range exp.Decisions {
			verdict := "excluded"
			if d.Included {
				verdict = "included"
			}
			_, _ = fmt.Fprintf(f.writer, "    %s.%s %s: %s\n", d.Table, d.View, verdict, d.Reason)
		}
	}
	return nil
}

// FormatCongruency writes the keyspace aggregate and one line per view
func (f *TextFormatter) FormatCongruency(report *election.CongruencyReport) error {
	_, _ = fmt.Fprintf(f.writer, "KEYSPACE %s CONGRUENT %s\n", report.Keyspace, yesNo(report.Congruent))
	for _, v := range report.Views {
		_, _ = fmt.Fprintf(f.writer, "  %s.%s %s\n", v.Table, v.View, yesNo(v.Congruent))
	}
	return nil
}

// FormatOperations lists the operation catalog
func (f *TextFormatter) FormatOperations(ops []stream.Operation) error {
	for _, op := range ops {
		class := "policy"
		if op.IncludesViewsUnconditionally() {
			class = "all views"
		}
		_, _ = fmt.Fprintf(f.writer, "%-24s %-22q %s\n", op.Name(), op.Label(), class)
	}
	return nil
}

// FormatKeyspace writes every table with its key, policy and views
func (f *TextFormatter) FormatKeyspace(ks *schema.Keyspace) error {
	for i, table := range sortedTables(ks) {
		if i > 0 {
			_, _ = fmt.Fprintln(f.writer) // Blank line between tables
		}
		_, _ = fmt.Fprintf(f.writer, "TABLE %s (PK: %s) mv_fast_stream=%s\n",
			table.Name, primaryKey(table.PartitionKey, table.ClusteringKey), table.FastStream)
		for _, v := range table.Views {
			_, _ = fmt.Fprintf(f.writer, "  VIEW %s (PK: %s)\n", v.Name, primaryKey(v.PartitionKey, v.ClusteringKey))
		}
	}
	return nil
}

// orderedRefs puts base tables before views, each group by name
func orderedRefs(set election.ColumnFamilySet) []election.ColumnFamilyRef {
	refs := set.Refs()
	sort.SliceStable(refs, func(i, j int) bool {
		return refs[i].Kind == election.KindTable && refs[j].Kind != election.KindTable
	})
	return refs
}
