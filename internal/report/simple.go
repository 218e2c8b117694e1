package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
)

// SimpleWriter outputs a plain text summary for terminal display.
type SimpleWriter struct {
	baseWriter

	// showEmpty controls whether sections without data are shown.
	showEmpty bool

	// verbose adds the per-year breakdown and the column schema.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to show empty sections.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the summary in human-readable format.
func (w *SimpleWriter) Write(summary *Summary) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, summary)
	w.writeColumns(&sb, summary)
	w.writeYears(&sb, summary)
	w.writePartners(&sb, "TOP EXPORTERS", summary.TopExporters)
	w.writePartners(&sb, "TOP IMPORTERS", summary.TopImporters)
	w.writeFooter(&sb)

	return w.output.Write([]byte(sb.String()))
}

func writeSection(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")
}

// writeHeader writes the dataset overview.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, s *Summary) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                    CITES TRADE DATABASE SUMMARY\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	if s.Path != "" {
		fmt.Fprintf(sb, "File:             %s\n", s.Path)
	}
	if s.Version != "" {
		fmt.Fprintf(sb, "Version:          %s\n", s.Version)
	}
	if s.Checksum != "" {
		fmt.Fprintf(sb, "Checksum:         %s (%s)\n", s.Checksum, s.Algorithm)
	}
	fmt.Fprintf(sb, "Rows:             %s\n", humanize.Comma(int64(s.Rows)))
	if s.Rows > 0 {
		fmt.Fprintf(sb, "Years:            %d - %d\n", s.FirstYear, s.LastYear)
	}
	fmt.Fprintf(sb, "Missing Quantity: %s\n", humanize.Comma(int64(s.MissingQuantity)))
	sb.WriteString("\n")
}

// writeColumns writes the column schema in verbose mode.
func (w *SimpleWriter) writeColumns(sb *strings.Builder, s *Summary) {
	if !w.verbose {
		return
	}
	writeSection(sb, "COLUMNS")
	for _, c := range s.Columns {
		fmt.Fprintf(sb, "  %-24s %s\n", c.Name, c.Type)
	}
	sb.WriteString("\n")
}

// writeYears writes the per-year row counts in verbose mode.
func (w *SimpleWriter) writeYears(sb *strings.Builder, s *Summary) {
	if !w.verbose || (len(s.RowsPerYear) == 0 && !w.showEmpty) {
		return
	}
	writeSection(sb, "ROWS PER YEAR")
	if len(s.RowsPerYear) == 0 {
		sb.WriteString("  No rows\n\n")
		return
	}
	for _, c := range s.RowsPerYear {
		fmt.Fprintf(sb, "  %s: %s\n", c.Label, humanize.Comma(int64(c.Rows)))
	}
	sb.WriteString("\n")
}

// writePartners writes a ranked list of trading partners.
func (w *SimpleWriter) writePartners(sb *strings.Builder, title string, counts []Count) {
	if len(counts) == 0 && !w.showEmpty {
		return
	}
	writeSection(sb, title)
	if len(counts) == 0 {
		sb.WriteString("  No records\n\n")
		return
	}
	for i, c := range counts {
		fmt.Fprintf(sb, "  %2d. %-4s %s\n", i+1, c.Label, humanize.Comma(int64(c.Rows)))
	}
	sb.WriteString("\n")
}

// writeFooter writes the report footer.
func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("Data: CITES Trade Database, https://trade.cites.org\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}
