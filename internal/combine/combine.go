package combine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/citestrade/internal/progress"
	"github.com/nao1215/citestrade/internal/table"
)

// Year bounds. Kept rows satisfy MinYear < Year < MaxYear.
const (
	MinYear = 1970
	MaxYear = 2020
)

var (
	// ErrNoCSVFiles is returned when the directory holds no CSV file.
	ErrNoCSVFiles = errors.New("no csv files found")

	// ErrSchemaMismatch is returned in strict mode when files disagree on
	// their column set.
	ErrSchemaMismatch = errors.New("csv files have different columns")
)

type options struct {
	concurrency  int
	strictSchema bool
	progressOut  io.Writer
	logger       *slog.Logger
}

// Option configures Dir.
type Option func(*options)

// WithConcurrency sets how many files are parsed at once.
// Values below 1 are ignored. Output order does not depend on it.
func WithConcurrency(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// WithStrictSchema rejects files whose column set differs from the first file.
func WithStrictSchema(strict bool) Option {
	return func(o *options) {
		o.strictSchema = strict
	}
}

// WithProgressOutput sets where per-file progress is drawn.
func WithProgressOutput(w io.Writer) Option {
	return func(o *options) {
		o.progressOut = w
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// Dir combines every *.csv file directly in dir. Files are processed in
// name order and their rows concatenated in that order, then stably
// sorted by table.SortKey and reindexed from zero. The returned slice
// lists the source files. When cleanup is set the source files are
// deleted after a successful combination.
func Dir(ctx context.Context, dir string, cleanup bool, opts ...Option) (*table.Table, []string, error) {
	o := &options{
		concurrency: 1,
		logger:      slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(o)
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.csv"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list csv files: %w", err)
	}
	if len(files) == 0 {
		return nil, nil, fmt.Errorf("%w in %s", ErrNoCSVFiles, dir)
	}
	slices.Sort(files)

	o.logger.Info("reading csv files", "dir", dir, "files", len(files), "concurrency", o.concurrency)
	startTime := time.Now()

	parts, err := readAll(ctx, files, o)
	if err != nil {
		return nil, files, err
	}

	if o.strictSchema {
		if err := checkSchema(files, parts); err != nil {
			return nil, files, err
		}
	}

	o.logger.Info("combining csv files")
	combined := table.New()
	for _, part := range parts {
		combined.Append(part)
	}

	o.logger.Info("sorting and re-indexing", "rows", combined.Len())
	combined.SortStable(table.SortKey)
	combined.Reindex()

	if cleanup {
		for _, f := range files {
			if err := os.Remove(f); err != nil {
				return nil, files, fmt.Errorf("failed to remove %s: %w", f, err)
			}
		}
		o.logger.Debug("removed source csv files", "count", len(files))
	}

	o.logger.Info("combined csv files",
		"rows", combined.Len(),
		"columns", len(combined.Columns),
		"duration", time.Since(startTime).Round(time.Millisecond),
	)
	return combined, files, nil
}

// readAll parses and cleans files with bounded parallelism. Results keep
// file order.
func readAll(ctx context.Context, files []string, o *options) ([]*table.Table, error) {
	reporter := progress.New(o.progressOut, progress.Options{
		Label: "reading csv files",
		Total: int64(len(files)),
		Unit:  progress.Files,
	})
	defer reporter.Finish()

	parts := make([]*table.Table, len(files))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(o.concurrency)
	for i, f := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			raw, err := table.ReadRawFile(f)
			if err != nil {
				return err
			}
			part, dropped, err := Clean(raw)
			if err != nil {
				return fmt.Errorf("%s: %w", f, err)
			}
			parts[i] = part
			reporter.Add(1)
			o.logger.Debug("read csv file", "file", f, "rows", part.Len(), "dropped", dropped)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return parts, nil
}

// Clean converts a raw CSV document into a table, coercing Year and
// Quantity and keeping only rows with a numeric Year inside the bounds.
// It returns the number of dropped rows.
func Clean(raw *table.Raw) (*table.Table, int, error) {
	yearCol := raw.Column(table.ColumnYear)
	if yearCol < 0 {
		return nil, 0, fmt.Errorf("%w: %s", table.ErrMissingColumn, table.ColumnYear)
	}
	quantityCol := raw.Column(table.ColumnQuantity)

	t := table.New(raw.Header...)
	t.Rows = make([]table.Record, 0, len(raw.Rows))
	dropped := 0
	for _, row := range raw.Rows {
		year, ok := table.ParseYear(table.Field(row, yearCol))
		if !ok || year <= MinYear || year >= MaxYear {
			dropped++
			continue
		}
		rec := table.NewRecord(raw.Header, row)
		rec.Year = year
		rec.Quantity, rec.HasQuantity = table.ParseQuantity(table.Field(row, quantityCol))
		t.Rows = append(t.Rows, rec)
	}
	return t, dropped, nil
}

// checkSchema compares every file's column set with the first file's.
func checkSchema(files []string, parts []*table.Table) error {
	want := columnSet(parts[0].Columns)
	for i := 1; i < len(parts); i++ {
		if !slices.Equal(want, columnSet(parts[i].Columns)) {
			return fmt.Errorf("%w: %s has %v, %s has %v",
				ErrSchemaMismatch, files[0], parts[0].Columns, files[i], parts[i].Columns)
		}
	}
	return nil
}

func columnSet(columns []string) []string {
	s := slices.Clone(columns)
	slices.Sort(s)
	return slices.Compact(s)
}
