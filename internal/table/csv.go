package table

import (
	"compress/gzip"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var (
	// ErrEmptyFile is returned when a CSV file has no header row.
	ErrEmptyFile = errors.New("csv file has no header row")

	// ErrMissingColumn is returned when a required column is absent.
	ErrMissingColumn = errors.New("required column is missing")

	// ErrMalformedYear is returned when a stored dataset has a non-integer Year.
	ErrMalformedYear = errors.New("malformed Year value")

	// ErrInvalidEncoding is returned when a field is not valid UTF-8.
	ErrInvalidEncoding = errors.New("invalid UTF-8")
)

// Raw is an untyped CSV document: a header and string rows.
// Rows may be shorter than the header.
type Raw struct {
	Header []string
	Rows   [][]string
}

// ReadRaw parses a CSV document. The input must be UTF-8; a leading byte
// order mark is dropped and a UTF-16 byte order mark switches decoding to
// UTF-16. Invalid UTF-8 is an error, never replaced. Repeated header names
// are renamed Name.1, Name.2 and so on. Rows with fewer fields than the
// header are accepted; extra fields are an error.
func ReadRaw(r io.Reader) (*Raw, error) {
	decoded := transform.NewReader(r, unicode.BOMOverride(transform.Nop))
	cr := csv.NewReader(decoded)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyFile
	}
	if err != nil {
		return nil, err
	}
	if err := validateEncoding(cr, header); err != nil {
		return nil, err
	}

	raw := &Raw{Header: dedupeHeader(header)}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(rec) > len(header) {
			line, _ := cr.FieldPos(0)
			return nil, fmt.Errorf("line %d: %d fields, header has %d", line, len(rec), len(header))
		}
		if err := validateEncoding(cr, rec); err != nil {
			return nil, err
		}
		raw.Rows = append(raw.Rows, rec)
	}
	return raw, nil
}

// validateEncoding checks the record last returned by cr.
func validateEncoding(cr *csv.Reader, rec []string) error {
	for i, v := range rec {
		if !utf8.ValidString(v) {
			line, col := cr.FieldPos(i)
			return fmt.Errorf("%w at line %d, column %d", ErrInvalidEncoding, line, col)
		}
	}
	return nil
}

// dedupeHeader renames repeated column names so that no value is lost
// when rows are keyed by column.
func dedupeHeader(header []string) []string {
	out := make([]string, len(header))
	counts := make(map[string]int, len(header))
	for i, name := range header {
		candidate := name
		for n := counts[name]; counts[candidate] > 0; n++ {
			candidate = fmt.Sprintf("%s.%d", name, n)
		}
		if candidate != name {
			counts[name]++
		}
		counts[candidate]++
		out[i] = candidate
	}
	return out
}

// ReadRawFile parses the CSV file at path.
func ReadRawFile(path string) (*Raw, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from the pipeline
	if err != nil {
		return nil, err
	}
	defer f.Close()

	raw, err := ReadRaw(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return raw, nil
}

// Column returns the position of a header column, or -1.
func (r *Raw) Column(name string) int {
	for i, h := range r.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// Field returns column i of row, or "" when the row is short.
func Field(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

// NewRecord builds a record from a raw row, leaving Year and Quantity
// to the caller.
func NewRecord(header, row []string) Record {
	rec := Record{Fields: make(map[string]string, len(header))}
	for i, h := range header {
		if h == ColumnYear || h == ColumnQuantity {
			continue
		}
		if v := Field(row, i); v != "" {
			rec.Fields[h] = v
		}
	}
	return rec
}

// Decode converts a stored dataset into a Table. Year must be an integer
// in every row; Quantity may be empty.
func Decode(raw *Raw) (*Table, error) {
	yearCol := raw.Column(ColumnYear)
	if yearCol < 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, ColumnYear)
	}
	quantityCol := raw.Column(ColumnQuantity)

	t := New(raw.Header...)
	t.Rows = make([]Record, 0, len(raw.Rows))
	for i, row := range raw.Rows {
		rec := NewRecord(raw.Header, row)
		year, ok := ParseYear(Field(row, yearCol))
		if !ok {
			return nil, fmt.Errorf("%w in row %d: %q", ErrMalformedYear, i, Field(row, yearCol))
		}
		rec.Year = year
		rec.Quantity, rec.HasQuantity = ParseQuantity(Field(row, quantityCol))
		rec.Index = i
		t.Rows = append(t.Rows, rec)
	}
	return t, nil
}

// WriteCSV writes the table with a header row and without an index column.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return err
	}
	row := make([]string, len(t.Columns))
	for i := range t.Rows {
		for j, c := range t.Columns {
			row[j] = t.Rows[i].Value(c)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteGzipFile writes the table as a gzip compressed CSV. The gzip header
// carries no timestamp, so equal tables produce byte-identical files. The
// file is written next to path and renamed into place.
func (t *Table) WriteGzipFile(path string) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	gz := gzip.NewWriter(tmp)
	if err := t.WriteCSV(gz); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("failed to finish gzip stream: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close output file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move output file into place: %w", err)
	}
	return nil
}

// ReadGzipFile reads a table written by WriteGzipFile.
func ReadGzipFile(path string) (*Table, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from the caller
	if err != nil {
		return nil, err
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("failed to open gzip stream %s: %w", path, err)
	}
	defer gz.Close()

	raw, err := ReadRaw(gz)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return Decode(raw)
}
