package dataset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/nao1215/citestrade/internal/checksum"
	"github.com/nao1215/citestrade/internal/config"
	"github.com/nao1215/citestrade/internal/database"
	"github.com/nao1215/citestrade/internal/fetch"
	"github.com/nao1215/citestrade/internal/pipeline"
	"github.com/nao1215/citestrade/internal/registry"
	"github.com/nao1215/citestrade/internal/table"
)

// Dataset is a verified combined dataset.
type Dataset struct {
	// Table holds the records.
	Table *table.Table

	// Path is the combined gzip CSV the table was read from.
	Path string

	// Version is the registry version the file was verified against.
	Version string

	// Checksum is the verified digest of Path.
	Checksum string

	// Algorithm is the digest algorithm of Checksum.
	Algorithm string
}

type options struct {
	logger      *slog.Logger
	progressOut io.Writer
}

// Option configures Get and Load.
type Option func(*options)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithProgressOutput sets where progress bars are drawn. Nil disables them.
func WithProgressOutput(w io.Writer) Option {
	return func(o *options) {
		o.progressOut = w
	}
}

func newOptions(opts []Option) *options {
	o := &options{logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// lookup returns the registry entry of the configured dataset version.
func lookup(cfg *config.Config) (string, registry.Entry, error) {
	reg, err := registry.Open(cfg.RegistryFile)
	if err != nil {
		return "", registry.Entry{}, err
	}
	return reg.Lookup(cfg.DatasetVersion)
}

// Get downloads, verifies, extracts and combines the trade database and
// returns the path of the combined gzip CSV. The download is skipped when
// the archive is cached and cfg.ForceUpdate is false. With cfg.Cleanup the
// archive and the extracted CSV files are removed.
func Get(ctx context.Context, cfg *config.Config, opts ...Option) (string, error) {
	o := newOptions(opts)

	version, entry, err := lookup(cfg)
	if err != nil {
		return "", err
	}

	client, err := fetch.NewClient(
		fetch.WithTimeout(cfg.Timeout),
		fetch.WithProxy(cfg.ProxyAddress),
		fetch.WithUserAgent(cfg.UserAgent),
		fetch.WithBlockSize(cfg.BlockSize),
		fetch.WithDefaultFilename(cfg.DefaultFilename),
		fetch.WithProgressOutput(o.progressOut),
		fetch.WithLogger(o.logger),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create HTTP client: %w", err)
	}

	db, err := database.Open(cfg.DataDir, database.DefaultOptions())
	if err != nil {
		return "", fmt.Errorf("failed to open history database: %w", err)
	}
	defer db.Close()

	p := pipeline.DefaultPipeline(client, db, cfg.CacheDir, cfg.DataDir,
		[]pipeline.Option{pipeline.WithLogger(o.logger)},
		pipeline.WithPipelineForceUpdate(cfg.ForceUpdate),
		pipeline.WithPipelineCleanup(cfg.Cleanup),
		pipeline.WithPipelineChunkBlocks(cfg.ChunkBlocks),
		pipeline.WithPipelineReadConcurrency(cfg.ReadConcurrency),
		pipeline.WithPipelineStrictSchema(cfg.StrictSchema),
		pipeline.WithPipelineProgress(o.progressOut),
	)

	o.logger.Info("getting trade database", "url", cfg.URL, "version", version)
	state := pipeline.NewState(cfg.URL, version, entry)
	if err := p.Execute(ctx, state); err != nil {
		return "", err
	}
	return state.CombinedPath, nil
}

// Open returns the verified combined dataset. With update set, Get runs
// first. Without it the file named by the latest history snapshot of the
// dataset version is used, or the default file name in the data directory
// when there is no history.
func Open(ctx context.Context, cfg *config.Config, update bool, opts ...Option) (*Dataset, error) {
	o := newOptions(opts)

	var path string
	if update {
		p, err := Get(ctx, cfg, opts...)
		if err != nil {
			return nil, err
		}
		path = p
	}

	version, entry, err := lookup(cfg)
	if err != nil {
		return nil, err
	}

	db, err := openHistory(cfg.DataDir)
	if err != nil {
		return nil, err
	}
	if db != nil {
		defer db.Close()
	}

	if path == "" {
		path, err = combinedPath(ctx, cfg, db, version)
		if err != nil {
			return nil, err
		}
	}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w at %s: run `citestrade get` to download and combine it", ErrDataNotFound, path)
	} else if err != nil {
		return nil, fmt.Errorf("failed to check combined dataset: %w", err)
	}

	algorithm, expected, err := expectedChecksum(ctx, db, entry, path)
	if err != nil {
		return nil, err
	}

	sum, err := checksum.Verify(path, algorithm, expected, cfg.ChunkBlocks)
	if err != nil {
		return nil, err
	}
	o.logger.Info("combined dataset checksum verified", "path", path, "checksum", sum)

	tbl, err := table.ReadGzipFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read combined dataset %s: %w", path, err)
	}
	o.logger.Debug("loaded combined dataset", "rows", tbl.Len(), "columns", len(tbl.Columns))

	return &Dataset{
		Table:     tbl,
		Path:      path,
		Version:   version,
		Checksum:  sum,
		Algorithm: algorithm,
	}, nil
}

// Load is Open without the provenance.
func Load(ctx context.Context, cfg *config.Config, update bool, opts ...Option) (*table.Table, error) {
	ds, err := Open(ctx, cfg, update, opts...)
	if err != nil {
		return nil, err
	}
	return ds.Table, nil
}

// openHistory opens an existing history database. A missing database is
// not an error and yields nil.
func openHistory(dir string) (*database.HistoryDB, error) {
	opts := database.DefaultOptions()
	opts.CreateIfNotExists = false
	db, err := database.Open(dir, opts)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	return db, nil
}

// combinedPath picks the file to load when Get did not just run.
func combinedPath(ctx context.Context, cfg *config.Config, db *database.HistoryDB, version string) (string, error) {
	if db != nil {
		snap, err := db.LatestSnapshot(ctx, version)
		if err != nil {
			return "", err
		}
		if snap != nil {
			return snap.CombinedPath, nil
		}
	}
	return filepath.Join(cfg.DataDir, pipeline.CombinedFileName(cfg.DefaultFilename)), nil
}

// expectedChecksum returns the algorithm and digest path must match. The
// registry wins over the history database.
func expectedChecksum(ctx context.Context, db *database.HistoryDB, entry registry.Entry, path string) (string, string, error) {
	if entry.Combined != "" {
		return entry.Algorithm, entry.Combined, nil
	}
	if db != nil {
		snap, err := db.LatestSnapshotFor(ctx, path)
		if err != nil {
			return "", "", err
		}
		if snap != nil {
			return snap.Algorithm, snap.CombinedChecksum, nil
		}
	}
	return "", "", fmt.Errorf("%w: %s", ErrNoKnownChecksum, path)
}
