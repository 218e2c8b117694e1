package table

import (
	"math"
	"slices"
	"strconv"
	"strings"
)

// Record is a single trade record.
type Record struct {
	// Index is the row position after the last Reindex.
	Index int

	// Year is the year of the trade.
	Year int

	// Quantity is the traded quantity. It is meaningful only when
	// HasQuantity is true.
	Quantity float64

	// HasQuantity is false when the source value was missing or not numeric.
	HasQuantity bool

	// Fields holds every other column. A missing key or an empty value is
	// a missing value.
	Fields map[string]string
}

// Table is an ordered set of records with a column order.
type Table struct {
	Columns []string
	Rows    []Record
}

// New returns an empty table with the given columns.
func New(columns ...string) *Table {
	return &Table{Columns: slices.Clone(columns)}
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// HasColumn reports whether the table has the column.
func (t *Table) HasColumn(name string) bool {
	return slices.Contains(t.Columns, name)
}

// Value returns the string form of a column of row i, or "" if missing.
func (t *Table) Value(i int, column string) string {
	return t.Rows[i].Value(column)
}

// Value returns the string form of a column, or "" if missing.
func (r *Record) Value(column string) string {
	switch column {
	case ColumnYear:
		return strconv.Itoa(r.Year)
	case ColumnQuantity:
		if !r.HasQuantity {
			return ""
		}
		return FormatQuantity(r.Quantity)
	default:
		return r.Fields[column]
	}
}

// Append concatenates other onto t. Columns of other that t lacks are
// appended to t's column order; rows lacking a column read as missing.
func (t *Table) Append(other *Table) {
	for _, c := range other.Columns {
		if !t.HasColumn(c) {
			t.Columns = append(t.Columns, c)
		}
	}
	t.Rows = append(t.Rows, other.Rows...)
}

// SortStable sorts rows ascending by the given columns. Year compares
// numerically, Quantity numerically with missing last, and every other
// column by string with missing values last. Equal keys keep input order.
func (t *Table) SortStable(columns []string) {
	slices.SortStableFunc(t.Rows, func(a, b Record) int {
		for _, c := range columns {
			if n := compareColumn(&a, &b, c); n != 0 {
				return n
			}
		}
		return 0
	})
}

func compareColumn(a, b *Record, column string) int {
	switch column {
	case ColumnYear:
		return a.Year - b.Year
	case ColumnQuantity:
		return compareMissingLast(!a.HasQuantity, !b.HasQuantity, func() int {
			switch {
			case a.Quantity < b.Quantity:
				return -1
			case a.Quantity > b.Quantity:
				return 1
			}
			return 0
		})
	default:
		av, bv := a.Fields[column], b.Fields[column]
		return compareMissingLast(av == "", bv == "", func() int {
			return strings.Compare(av, bv)
		})
	}
}

func compareMissingLast(aMissing, bMissing bool, cmp func() int) int {
	switch {
	case aMissing && bMissing:
		return 0
	case aMissing:
		return 1
	case bMissing:
		return -1
	}
	return cmp()
}

// Reindex assigns dense zero-based indexes in the current row order.
func (t *Table) Reindex() {
	for i := range t.Rows {
		t.Rows[i].Index = i
	}
}

// FormatQuantity renders a quantity the way a float column is usually
// written to CSV: integral values keep a trailing ".0", very small and
// very large magnitudes use exponent notation.
func FormatQuantity(q float64) string {
	switch {
	case math.IsInf(q, 1):
		return "inf"
	case math.IsInf(q, -1):
		return "-inf"
	}
	abs := math.Abs(q)
	if abs != 0 && (abs < 1e-4 || abs >= 1e16) {
		return strconv.FormatFloat(q, 'e', -1, 64)
	}
	s := strconv.FormatFloat(q, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// ParseQuantity coerces a raw value to a quantity. Empty, NaN and
// non-numeric values report ok == false.
func ParseQuantity(raw string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

// ParseYear coerces a raw value to a year. Integral and decimal notations
// are accepted; decimals are truncated. Empty, non-numeric and non-finite
// values report ok == false.
func ParseYear(raw string) (int, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, true
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return int(math.Trunc(v)), true
}
