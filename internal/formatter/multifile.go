package formatter

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/tordrt/cfelect/internal/election"
	"github.com/tordrt/cfelect/internal/schema"
)

// KeyspaceReport is everything the report knows about one keyspace
type KeyspaceReport struct {
	Keyspace    *schema.Keyspace
	Explanation *election.Explanation
	Congruency  *election.CongruencyReport
}

const overviewName = "_overview"

// keyspace names become file names, so only plain CQL identifiers are written
var fileSafeName = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// MultiFileFormatter writes a report to multiple files in a directory
type MultiFileFormatter struct {
	OutputDir    string
	OutputFormat string // "text" or "markdown"
}

// NewMultiFileFormatter creates a new multi-file formatter
func NewMultiFileFormatter(outputDir, format string) *MultiFileFormatter {
	return &MultiFileFormatter{
		OutputDir:    outputDir,
		OutputFormat: format,
	}
}

// Format writes _overview plus one file per keyspace
func (f *MultiFileFormatter) Format(reports []KeyspaceReport) error {
	if f.OutputFormat != formatMarkdown && f.OutputFormat != formatText {
		return fmt.Errorf("unsupported report format %q (want text or markdown)", f.OutputFormat)
	}

	for _, r := range reports {
		name := r.Explanation.Keyspace
		if !fileSafeName.MatchString(name) || name == overviewName {
			return fmt.Errorf("keyspace %q cannot be written as a report file", name)
		}
	}

	if err := os.MkdirAll(f.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	sorted := make([]KeyspaceReport, len(reports))
	copy(sorted, reports)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Explanation.Keyspace < sorted[j].Explanation.Keyspace
	})

	if err := f.writeOverview(sorted); err != nil {
		return fmt.Errorf("failed to write overview: %w", err)
	}

	for _, r := range sorted {
		if err := f.writeKeyspaceFile(r); err != nil {
			return fmt.Errorf("failed to write keyspace file for %s: %w", r.Explanation.Keyspace, err)
		}
	}

	return nil
}

func (f *MultiFileFormatter) writeOverview(reports []KeyspaceReport) error {
	filename := filepath.Join(f.OutputDir, overviewName+f.getFileExtension())

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	if f.OutputFormat == formatMarkdown {
		return f.writeMarkdownOverview(file, reports)
	}
	return f.writeTextOverview(file, reports)
}

func (f *MultiFileFormatter) writeMarkdownOverview(w io.Writer, reports []KeyspaceReport) error {
	_, _ = fmt.Fprintf(w, "# Streaming Overview\n\n")
	if len(reports) > 0 {
		_, _ = fmt.Fprintf(w, "Operation: %s\n\n", reports[0].Explanation.Operation.Label())
	}
	_, _ = fmt.Fprintf(w, "Each keyspace has a corresponding file: `<keyspace>%s`\n\n", f.getFileExtension())
	_, _ = fmt.Fprintf(w, "## Keyspaces\n\n")

	for _, r := range reports {
		views := r.Explanation.Elected.Views()
		_, _ = fmt.Fprintf(w, "- **%s**: %d column families streamed (%d views)", r.Explanation.Keyspace, r.Explanation.Elected.Len(), len(views))
		if r.Congruency != nil && !r.Congruency.Congruent {
			_, _ = fmt.Fprintf(w, ", views not congruent")
		}
		_, _ = fmt.Fprintf(w, "\n")
	}

	return nil
}

func (f *MultiFileFormatter) writeTextOverview(w io.Writer, reports []KeyspaceReport) error {
	_, _ = fmt.Fprintf(w, "STREAMING OVERVIEW\n")
	if len(reports) > 0 {
		_, _ = fmt.Fprintf(w, "Operation: %s\n", reports[0].Explanation.Operation.Label())
	}
	_, _ = fmt.Fprintf(w, "Each keyspace has a file: <keyspace>%s\n\n", f.getFileExtension())

	for _, r := range reports {
		_, _ = fmt.Fprintf(w, "%s %d", r.Explanation.Keyspace, r.Explanation.Elected.Len())
		if r.Congruency != nil && !r.Congruency.Congruent {
			_, _ = fmt.Fprintf(w, " (views not congruent)")
		}
		_, _ = fmt.Fprintf(w, "\n")
	}

	return nil
}

func (f *MultiFileFormatter) writeKeyspaceFile(r KeyspaceReport) error {
	filename := filepath.Join(f.OutputDir, r.Explanation.Keyspace+f.getFileExtension())

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	if f.OutputFormat == formatMarkdown {
		md := NewMarkdownFormatter(file)
		_, _ = fmt.Fprintf(file, "# %s\n\n", r.Explanation.Keyspace)
		if r.Keyspace != nil {
			_ = md.FormatKeyspace(r.Keyspace)
		}
		if err := md.FormatExplanation(r.Explanation); err != nil {
			return err
		}
		if r.Congruency != nil {
			return md.FormatCongruency(r.Congruency)
		}
		return nil
	}

	text := NewTextFormatter(file)
	if r.Keyspace != nil {
		_ = text.FormatKeyspace(r.Keyspace)
		_, _ = fmt.Fprintln(file)
	}
	if err := text.FormatExplanation(r.Explanation); err != nil {
		return err
	}
	if r.Congruency != nil {
		_, _ = fmt.Fprintln(file)
		return text.FormatCongruency(r.Congruency)
	}
	return nil
}

func (f *MultiFileFormatter) getFileExtension() string {
	if f.OutputFormat == formatMarkdown {
		return ".md"
	}
	return ".txt"
}
