// Package formatter renders elections, explanations and congruency reports
// as text, markdown or JSON.
package formatter

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/tordrt/cfelect/internal/election"
	"github.com/tordrt/cfelect/internal/schema"
	"github.com/tordrt/cfelect/internal/stream"
)

const (
	formatMarkdown = "markdown"
	formatText     = "text"
	formatJSON     = "json"
)

// Formatter writes one result per call to its writer
type Formatter interface {
	FormatElection(keyspace string, op stream.Operation, set election.ColumnFamilySet) error
	FormatExplanation(exp *election.Explanation) error
	FormatCongruency(report *election.CongruencyReport) error
	FormatOperations(ops []stream.Operation) error
}

// New returns the formatter for format ("text", "markdown" or "json")
func New(format string, w io.Writer) (Formatter, error) {
	switch format {
	case formatText, "":
		return NewTextFormatter(w), nil
	case formatMarkdown, "md":
		return NewMarkdownFormatter(w), nil
	case formatJSON:
		return NewJSONFormatter(w), nil
	default:
		return nil, fmt.Errorf("unsupported format %q (want text, markdown or json)", format)
	}
}

// JSONFormatter writes each result as an indented JSON document
type JSONFormatter struct {
	enc *json.Encoder
}

func NewJSONFormatter(w io.Writer) *JSONFormatter {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return &JSONFormatter{enc: enc}
}

func (f *JSONFormatter) FormatElection(keyspace string, op stream.Operation, set election.ColumnFamilySet) error {
	return f.enc.Encode(struct {
		Keyspace       string                   `json:"keyspace"`
		Operation      stream.Operation         `json:"operation"`
		ColumnFamilies election.ColumnFamilySet `json:"column_families"`
	}{keyspace, op, set})
}

func (f *JSONFormatter) FormatExplanation(exp *election.Explanation) error {
	return f.enc.Encode(exp)
}

func (f *JSONFormatter) FormatCongruency(report *election.CongruencyReport) error {
	return f.enc.Encode(report)
}

func (f *JSONFormatter) FormatOperations(ops []stream.Operation) error {
	type op struct {
		Name          string `json:"name"`
		Label         string `json:"label"`
		Unconditional bool   `json:"includes_views_unconditionally"`
	}
	out := make([]op, 0, len(ops))
	for _, o := range ops {
		out = append(out, op{Name: o.Name(), Label: o.Label(), Unconditional: o.IncludesViewsUnconditionally()})
	}
	return f.enc.Encode(out)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// primaryKey renders a key as ((partition), clustering...)
func primaryKey(partition, clustering []string) string {
	key := "(" + strings.Join(partition, ", ") + ")"
	if len(clustering) > 0 {
		key += ", " + strings.Join(clustering, ", ")
	}
	return "(" + key + ")"
}

// sortedTables returns ks's tables ordered by name
func sortedTables(ks *schema.Keyspace) []schema.Table {
	tables := make([]schema.Table, len(ks.Tables))
	copy(tables, ks.Tables)
	sort.Slice(tables, func(i, j int) bool {
		return tables[i].Name < tables[j].Name
	})
	return tables
}
