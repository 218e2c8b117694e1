package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
)

// pieChartSlices caps the number of exporters drawn in the pie chart.
const pieChartSlices = 5

// MarkdownWriter outputs the summary as GitHub flavored Markdown.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the summary in Markdown format.
func (w *MarkdownWriter) Write(summary *Summary) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, summary)
	w.writeColumns(md, summary)
	w.writeYears(md, summary)
	w.writePartners(md, "Top Exporters", summary.TopExporters, true)
	w.writePartners(md, "Top Importers", summary.TopImporters, false)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the dataset overview table and an integrity note.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, s *Summary) {
	md.H1("CITES Trade Database Summary")
	md.PlainText("")

	rows := [][]string{}
	if s.Path != "" {
		rows = append(rows, []string{"File", "`" + s.Path + "`"})
	}
	if s.Version != "" {
		rows = append(rows, []string{"Version", s.Version})
	}
	rows = append(rows, []string{"Rows", humanize.Comma(int64(s.Rows))})
	if s.Rows > 0 {
		rows = append(rows, []string{"Years", strconv.Itoa(s.FirstYear) + " - " + strconv.Itoa(s.LastYear)})
	}
	rows = append(rows,
		[]string{"Missing Quantity", humanize.Comma(int64(s.MissingQuantity))},
		[]string{"Generated", s.GeneratedAt.Format("2006-01-02 15:04:05 MST")},
	)

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")

	switch {
	case s.Checksum != "":
		md.Tip(fmt.Sprintf("Verified %s checksum `%s`.", s.Algorithm, s.Checksum))
	case s.Rows == 0:
		md.Note("The dataset has no rows.")
	}
	md.PlainText("")
}

// writeColumns writes the column schema.
func (w *MarkdownWriter) writeColumns(md *markdown.Markdown, s *Summary) {
	md.H2("Columns")
	md.PlainText("")

	rows := make([][]string, len(s.Columns))
	for i, c := range s.Columns {
		rows[i] = []string{"`" + c.Name + "`", c.Type}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Column", "Type"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeYears writes the per-year row counts.
func (w *MarkdownWriter) writeYears(md *markdown.Markdown, s *Summary) {
	md.H2("Rows per Year")
	md.PlainText("")

	if len(s.RowsPerYear) == 0 {
		md.PlainText("No rows.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(s.RowsPerYear))
	for i, c := range s.RowsPerYear {
		rows[i] = []string{c.Label, humanize.Comma(int64(c.Rows))}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Year", "Rows"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writePartners writes a ranked partner table, optionally followed by a pie chart.
func (w *MarkdownWriter) writePartners(md *markdown.Markdown, title string, counts []Count, withChart bool) {
	md.H2(title)
	md.PlainText("")

	if len(counts) == 0 {
		md.Note("No partner codes recorded.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(counts))
	for i, c := range counts {
		rows[i] = []string{strconv.Itoa(i + 1), c.Label, humanize.Comma(int64(c.Rows))}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Rank", "Party", "Rows"},
		Rows:   rows,
	})
	md.PlainText("")

	if withChart {
		w.writePieChart(md, title, counts)
	}
}

// writePieChart writes a mermaid pie chart of the largest counts.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, title string, counts []Count) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle(title),
		piechart.WithShowData(true),
	)

	for i, c := range counts {
		if i == pieChartSlices {
			break
		}
		chart.LabelAndIntValue(c.Label, uint64(c.Rows)) //nolint:gosec // counts are never negative
	}

	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Data: [CITES Trade Database](https://trade.cites.org)*")
}
