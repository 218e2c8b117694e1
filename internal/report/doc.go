// Package report summarizes a combined dataset and writes the summary.
//
// Writers:
//   - SimpleWriter: plain text for terminal display
//   - MarkdownWriter: GitHub flavored Markdown with a mermaid pie chart
//   - JSONWriter: structured JSON for tool integration
//
// Writers implement the Writer interface and can be combined with
// MultiWriter.
package report
