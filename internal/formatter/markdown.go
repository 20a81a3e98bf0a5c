package formatter

import (
	"fmt"
	"io"

	"github.com/tordrt/cfelect/internal/election"
	"github.com/tordrt/cfelect/internal/schema"
	"github.com/tordrt/cfelect/internal/stream"
)

// MarkdownFormatter formats results as markdown
type MarkdownFormatter struct {
	writer io.Writer
}

// NewMarkdownFormatter creates a new markdown formatter
func NewMarkdownFormatter(w io.Writer) *MarkdownFormatter {
	return &MarkdownFormatter{writer: w}
}

func (f *MarkdownFormatter) FormatElection(keyspace string, op stream.Operation, set election.ColumnFamilySet) error {
	_, _ = fmt.Fprintf(f.writer, "## %s: %s\n\n", keyspace, op.Label())
	f.formatElected(set)
	return nil
}

func (f *MarkdownFormatter) formatElected(set election.ColumnFamilySet) {
	_, _ = fmt.Fprintln(f.writer, "### Streamed")
	_, _ = fmt.Fprintln(f.writer)
	for _, ref := range orderedRefs(set) {
		if ref.Kind == election.KindView {
			_, _ = fmt.Fprintf(f.writer, "- **%s** (view of %s)\n", ref.Name, ref.BaseTable)
		} else {
			_, _ = fmt.Fprintf(f.writer, "- **%s**\n", ref.Name)
		}
	}
	_, _ = fmt.Fprintln(f.writer)
}

func (f *MarkdownFormatter) FormatExplanation(exp *election.Explanation) error {
	_, _ = fmt.Fprintf(f.writer, "## %s: %s\n\n", exp.Keyspace, exp.Operation.Label())
	_, _ = fmt.Fprintf(f.writer, "Schema generation `%s`.\n\n", exp.Generation)
	f.formatElected(exp.Elected)
	f.formatDecisions(exp.Decisions)
	return nil
}

func (f *MarkdownFormatter) formatDecisions(decisions []election.Decision) {
	if len(decisions) == 0 {
		return
	}
	_, _ = fmt.Fprintln(f.writer, "### View decisions")
	_, _ = fmt.Fprintln(f.writer)
	_, _ = fmt.Fprintln(f.writer, "| view | base | mv_fast_stream | congruent | streamed | reason |")
	_, _ = fmt.Fprintln(f.writer, "|---|---|---|---|---|---|")
	for _, d := range decisions {
		congruent := "-"
		if d.Evaluated {
			congruent = yesNo(d.Congruent)
		}
		_, _ = fmt.Fprintf(f.writer, "| %s | %s | %s | %s | %s | %s |\n",
			d.View, d.Table, d.Policy, congruent, yesNo(d.Included), d.Reason)
	}
	_, _ = fmt.Fprintln(f.writer)
}

func (f *MarkdownFormatter) FormatCongruency(report *election.CongruencyReport) error {
	_, _ = fmt.Fprintf(f.writer, "## %s congruency\n\n", report.Keyspace)
	if report.Congruent {
		_, _ = fmt.Fprintln(f.writer, "Every view's primary key is congruent with its base table.")
	} else {
		_, _ = fmt.Fprintln(f.writer, "At least one view's primary key differs from its base table.")
	}
	_, _ = fmt.Fprintln(f.writer)

	for _, v := range report.Views {
		_, _ = fmt.Fprintf(f.writer, "- **%s** on %s: %s\n", v.View, v.Table, yesNo(v.Congruent))
	}
	if len(report.Views) > 0 {
		_, _ = fmt.Fprintln(f.writer)
	}
	return nil
}

func (f *MarkdownFormatter) FormatOperations(ops []stream.Operation) error {
	_, _ = fmt.Fprintln(f.writer, "| operation | label | views |")
	_, _ = fmt.Fprintln(f.writer, "|---|---|---|")
	for _, op := range ops {
		views := "per mv_fast_stream"
		if op.IncludesViewsUnconditionally() {
			views = "all"
		}
		_, _ = fmt.Fprintf(f.writer, "| %s | %s | %s |\n", op.Name(), op.Label(), views)
	}
	return nil
}

// FormatKeyspace writes each table with its primary key, policy and views
func (f *MarkdownFormatter) FormatKeyspace(ks *schema.Keyspace) error {
	_, _ = fmt.Fprintln(f.writer, "### Tables")
	_, _ = fmt.Fprintln(f.writer)
	for _, table := range sortedTables(ks) {
		_, _ = fmt.Fprintf(f.writer, "- **%s:** PK %s, mv_fast_stream %s\n",
			table.Name, primaryKey(table.PartitionKey, table.ClusteringKey), table.FastStream)
		for _, v := range table.Views {
			_, _ = fmt.Fprintf(f.writer, "  - view **%s:** PK %s\n", v.Name, primaryKey(v.PartitionKey, v.ClusteringKey))
		}
	}
	_, _ = fmt.Fprintln(f.writer)
	return nil
}
