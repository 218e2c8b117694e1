package report

import (
	"cmp"
	"maps"
	"slices"
	"strconv"
	"time"

	"github.com/nao1215/citestrade/internal/table"
)

// DefaultTopN is the number of trading partners listed per direction.
const DefaultTopN = 10

// ColumnInfo describes one column of the dataset.
type ColumnInfo struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Count is a labelled row count.
type Count struct {
	Label string `json:"label"`
	Rows  int    `json:"rows"`
}

// Summary is an overview of a combined dataset.
type Summary struct {
	// Path is the combined dataset file.
	Path string `json:"path,omitempty"`

	// Version is the dataset version, if known.
	Version string `json:"version,omitempty"`

	// Checksum is the verified digest of Path.
	Checksum string `json:"checksum,omitempty"`

	// Algorithm is the digest algorithm of Checksum.
	Algorithm string `json:"algorithm,omitempty"`

	// Rows is the number of records.
	Rows int `json:"rows"`

	// Columns lists the columns in file order.
	Columns []ColumnInfo `json:"columns"`

	// FirstYear and LastYear bound the Year column. Both are zero for an
	// empty dataset.
	FirstYear int `json:"first_year"`
	LastYear  int `json:"last_year"`

	// MissingQuantity counts rows without a numeric Quantity.
	MissingQuantity int `json:"missing_quantity"`

	// RowsPerYear is sorted by year.
	RowsPerYear []Count `json:"rows_per_year"`

	// TopExporters and TopImporters are sorted by row count, descending.
	TopExporters []Count `json:"top_exporters"`
	TopImporters []Count `json:"top_importers"`

	// GeneratedAt is when the summary was built.
	GeneratedAt time.Time `json:"generated_at"`
}

// SummaryOption configures NewSummary.
type SummaryOption func(*Summary, *summaryConfig)

type summaryConfig struct {
	topN int
}

// WithSource records where the dataset came from.
func WithSource(path, version, checksum, algorithm string) SummaryOption {
	return func(s *Summary, _ *summaryConfig) {
		s.Path = path
		s.Version = version
		s.Checksum = checksum
		s.Algorithm = algorithm
	}
}

// WithTopN sets how many exporters and importers are listed.
func WithTopN(n int) SummaryOption {
	return func(_ *Summary, c *summaryConfig) {
		if n > 0 {
			c.topN = n
		}
	}
}

// NewSummary builds a Summary of t.
func NewSummary(t *table.Table, opts ...SummaryOption) *Summary {
	s := &Summary{
		Rows:        t.Len(),
		GeneratedAt: time.Now(),
	}
	cfg := &summaryConfig{topN: DefaultTopN}
	for _, opt := range opts {
		opt(s, cfg)
	}

	for _, c := range t.Columns {
		s.Columns = append(s.Columns, ColumnInfo{Name: c, Type: string(table.TypeOf(c))})
	}

	years := make(map[int]int)
	exporters := make(map[string]int)
	importers := make(map[string]int)
	for i := range t.Rows {
		r := &t.Rows[i]
		years[r.Year]++
		if !r.HasQuantity {
			s.MissingQuantity++
		}
		if v := r.Fields["Exporter"]; v != "" {
			exporters[v]++
		}
		if v := r.Fields["Importer"]; v != "" {
			importers[v]++
		}
	}

	keys := slices.Sorted(maps.Keys(years))
	for _, y := range keys {
		s.RowsPerYear = append(s.RowsPerYear, Count{Label: strconv.Itoa(y), Rows: years[y]})
	}
	if len(keys) > 0 {
		s.FirstYear, s.LastYear = keys[0], keys[len(keys)-1]
	}

	s.TopExporters = topCounts(exporters, cfg.topN)
	s.TopImporters = topCounts(importers, cfg.topN)
	return s
}

// topCounts returns the n largest counts. Ties are broken by label.
func topCounts(m map[string]int, n int) []Count {
	counts := make([]Count, 0, len(m))
	for label, rows := range m {
		counts = append(counts, Count{Label: label, Rows: rows})
	}
	slices.SortFunc(counts, func(a, b Count) int {
		if c := cmp.Compare(b.Rows, a.Rows); c != 0 {
			return c
		}
		return cmp.Compare(a.Label, b.Label)
	})
	if len(counts) > n {
		counts = counts[:n]
	}
	return counts
}
