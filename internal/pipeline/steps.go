package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/nao1215/citestrade/internal/archive"
	"github.com/nao1215/citestrade/internal/checksum"
	"github.com/nao1215/citestrade/internal/combine"
	"github.com/nao1215/citestrade/internal/database"
	"github.com/nao1215/citestrade/internal/fetch"
)

// ErrMissingInput is returned when a step runs before the step that
// produces its input.
var ErrMissingInput = errors.New("step input is missing")

// stepBase carries settings shared by all steps.
type stepBase struct {
	logger      *slog.Logger
	progressOut io.Writer
}

// StepOption configures any step.
type StepOption func(*stepBase)

// WithStepLogger sets the logger of a step.
func WithStepLogger(logger *slog.Logger) StepOption {
	return func(b *stepBase) {
		b.logger = logger
	}
}

// WithStepProgress sets where a step draws progress. Nil disables it.
func WithStepProgress(w io.Writer) StepOption {
	return func(b *stepBase) {
		b.progressOut = w
	}
}

func newStepBase(opts []StepOption) stepBase {
	b := stepBase{logger: slog.Default()}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

// ResolveStep asks the endpoint for the archive name and places the
// archive in the cache directory.
type ResolveStep struct {
	stepBase
	client   *fetch.Client
	cacheDir string
}

// NewResolveStep creates a ResolveStep.
func NewResolveStep(client *fetch.Client, cacheDir string, opts ...StepOption) *ResolveStep {
	return &ResolveStep{stepBase: newStepBase(opts), client: client, cacheDir: cacheDir}
}

// Name returns the step name.
func (s *ResolveStep) Name() string {
	return "resolve_filename"
}

// Do executes the step.
func (s *ResolveStep) Do(ctx context.Context, state *State) error {
	name, err := s.client.ResolveFilename(ctx, state.URL)
	if err != nil {
		return fmt.Errorf("failed to resolve archive name: %w", err)
	}
	state.ArchivePath = filepath.Join(s.cacheDir, name)
	s.logger.Debug("archive path", "path", state.ArchivePath)
	return nil
}

// DownloadStep fetches the archive unless it is already present.
type DownloadStep struct {
	stepBase
	client *fetch.Client
	force  bool
}

// NewDownloadStep creates a DownloadStep. With force set the archive is
// downloaded even when it exists.
func NewDownloadStep(client *fetch.Client, force bool, opts ...StepOption) *DownloadStep {
	return &DownloadStep{stepBase: newStepBase(opts), client: client, force: force}
}

// Name returns the step name.
func (s *DownloadStep) Name() string {
	return "download"
}

// Do executes the step.
func (s *DownloadStep) Do(ctx context.Context, state *State) error {
	if state.ArchivePath == "" {
		return fmt.Errorf("%w: archive path", ErrMissingInput)
	}

	if !s.force {
		if _, err := os.Stat(state.ArchivePath); err == nil {
			s.logger.Info("archive already present, skipping download", "path", state.ArchivePath)
			return nil
		}
	}

	if _, err := s.client.Download(ctx, state.URL, state.ArchivePath); err != nil {
		return err
	}
	state.Downloaded = true
	return nil
}

// VerifyArchiveStep compares the archive digest with the registry.
type VerifyArchiveStep struct {
	stepBase
	chunkBlocks int
}

// NewVerifyArchiveStep creates a VerifyArchiveStep.
func NewVerifyArchiveStep(chunkBlocks int, opts ...StepOption) *VerifyArchiveStep {
	return &VerifyArchiveStep{stepBase: newStepBase(opts), chunkBlocks: chunkBlocks}
}

// Name returns the step name.
func (s *VerifyArchiveStep) Name() string {
	return "verify_archive"
}

// Do executes the step. A mismatch is returned as *checksum.MismatchError.
func (s *VerifyArchiveStep) Do(_ context.Context, state *State) error {
	if state.ArchivePath == "" {
		return fmt.Errorf("%w: archive path", ErrMissingInput)
	}

	sum, err := checksum.Verify(state.ArchivePath, state.Algorithm, state.Expected.Archive, s.chunkBlocks)
	if err != nil {
		return err
	}
	state.ArchiveChecksum = sum
	s.logger.Info("archive checksum verified", "algorithm", state.Algorithm, "checksum", sum)
	return nil
}

// ExtractStep extracts the archive next to itself.
type ExtractStep struct {
	stepBase
	cleanup bool
}

// NewExtractStep creates an ExtractStep. With cleanup set the archive is
// removed after extraction.
func NewExtractStep(cleanup bool, opts ...StepOption) *ExtractStep {
	return &ExtractStep{stepBase: newStepBase(opts), cleanup: cleanup}
}

// Name returns the step name.
func (s *ExtractStep) Name() string {
	return "extract"
}

// Do executes the step.
func (s *ExtractStep) Do(ctx context.Context, state *State) error {
	if state.ArchivePath == "" {
		return fmt.Errorf("%w: archive path", ErrMissingInput)
	}

	files, err := archive.Extract(ctx, state.ArchivePath, s.cleanup,
		archive.WithLogger(s.logger),
		archive.WithProgressOutput(s.progressOut),
	)
	if err != nil {
		return err
	}
	state.Extracted = files
	return nil
}

// CombineStep merges the extracted CSV files into one table.
type CombineStep struct {
	stepBase
	cleanup     bool
	combineOpts []combine.Option
}

// NewCombineStep creates a CombineStep. With cleanup set the CSV files
// are removed after combination. combineOpts are passed to combine.Dir.
func NewCombineStep(cleanup bool, combineOpts []combine.Option, opts ...StepOption) *CombineStep {
	return &CombineStep{stepBase: newStepBase(opts), cleanup: cleanup, combineOpts: combineOpts}
}

// Name returns the step name.
func (s *CombineStep) Name() string {
	return "combine"
}

// Do executes the step. The CSV files are read from the archive's directory.
func (s *CombineStep) Do(ctx context.Context, state *State) error {
	if state.ArchivePath == "" {
		return fmt.Errorf("%w: archive path", ErrMissingInput)
	}

	opts := append([]combine.Option{
		combine.WithLogger(s.logger),
		combine.WithProgressOutput(s.progressOut),
	}, s.combineOpts...)

	tbl, files, err := combine.Dir(ctx, filepath.Dir(state.ArchivePath), s.cleanup, opts...)
	if err != nil {
		return err
	}
	state.Table = tbl
	state.SourceFiles = files
	return nil
}

// PersistStep writes the combined table as a gzip CSV and records its digest.
type PersistStep struct {
	stepBase
	dataDir     string
	chunkBlocks int
}

// NewPersistStep creates a PersistStep writing into dataDir.
func NewPersistStep(dataDir string, chunkBlocks int, opts ...StepOption) *PersistStep {
	return &PersistStep{stepBase: newStepBase(opts), dataDir: dataDir, chunkBlocks: chunkBlocks}
}

// Name returns the step name.
func (s *PersistStep) Name() string {
	return "persist"
}

// Do executes the step. A registry digest for the combined file that does
// not match is logged; Load reports it as an error.
func (s *PersistStep) Do(_ context.Context, state *State) error {
	if state.Table == nil {
		return fmt.Errorf("%w: combined table", ErrMissingInput)
	}

	path := filepath.Join(s.dataDir, CombinedFileName(state.ArchivePath))
	s.logger.Info("saving combined dataset", "path", path, "rows", state.Table.Len())
	if err := state.Table.WriteGzipFile(path); err != nil {
		return fmt.Errorf("failed to save combined dataset: %w", err)
	}

	sum, err := checksum.File(path, state.Algorithm, s.chunkBlocks)
	if err != nil {
		return err
	}
	state.CombinedPath = path
	state.CombinedChecksum = sum

	if state.Expected.Combined != "" && !checksum.Equal(sum, state.Expected.Combined) {
		s.logger.Warn("combined dataset differs from registry checksum",
			"version", state.Version,
			"checksum", sum,
			"expected", state.Expected.Combined,
		)
	}
	return nil
}

// RecordStep saves a history snapshot of the run.
type RecordStep struct {
	stepBase
	db *database.HistoryDB
}

// NewRecordStep creates a RecordStep.
func NewRecordStep(db *database.HistoryDB, opts ...StepOption) *RecordStep {
	return &RecordStep{stepBase: newStepBase(opts), db: db}
}

// Name returns the step name.
func (s *RecordStep) Name() string {
	return "record"
}

// Do executes the step.
func (s *RecordStep) Do(ctx context.Context, state *State) error {
	if state.CombinedPath == "" {
		return fmt.Errorf("%w: combined dataset", ErrMissingInput)
	}

	sources := make([]string, len(state.SourceFiles))
	for i, f := range state.SourceFiles {
		sources[i] = filepath.Base(f)
	}

	snap := &database.Snapshot{
		Version:          state.Version,
		ArchivePath:      state.ArchivePath,
		ArchiveChecksum:  state.ArchiveChecksum,
		CombinedPath:     state.CombinedPath,
		CombinedChecksum: state.CombinedChecksum,
		Algorithm:        state.Algorithm,
		Rows:             state.Table.Len(),
		SourceFiles:      sources,
	}
	if err := s.db.SaveSnapshot(ctx, snap); err != nil {
		return err
	}
	state.Snapshot = snap
	s.logger.Debug("recorded snapshot", "id", snap.ID)
	return nil
}

// DefaultPipelineConfig holds configuration for the default pipeline.
type DefaultPipelineConfig struct {
	// CacheDir receives the archive and the extracted files.
	CacheDir string

	// DataDir receives the combined dataset.
	DataDir string

	// ForceUpdate downloads the archive even when it exists.
	ForceUpdate bool

	// Cleanup removes the archive and the extracted CSV files.
	Cleanup bool

	// ChunkBlocks is the number of hash blocks read per checksum chunk.
	ChunkBlocks int

	// ReadConcurrency is the number of CSV files parsed at once.
	ReadConcurrency int

	// StrictSchema rejects CSV files whose column sets differ.
	StrictSchema bool

	// ProgressOutput receives progress bars. Nil disables them.
	ProgressOutput io.Writer
}

// DefaultPipelineOption configures a DefaultPipelineConfig.
type DefaultPipelineOption func(*DefaultPipelineConfig)

// WithPipelineForceUpdate re-downloads an existing archive.
func WithPipelineForceUpdate(force bool) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.ForceUpdate = force
	}
}

// WithPipelineCleanup removes intermediate files after combination.
func WithPipelineCleanup(cleanup bool) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.Cleanup = cleanup
	}
}

// WithPipelineChunkBlocks sets the checksum chunk size in hash blocks.
func WithPipelineChunkBlocks(n int) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.ChunkBlocks = n
	}
}

// WithPipelineReadConcurrency sets how many CSV files are parsed at once.
func WithPipelineReadConcurrency(n int) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.ReadConcurrency = n
	}
}

// WithPipelineStrictSchema rejects CSV files with differing columns.
func WithPipelineStrictSchema(strict bool) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.StrictSchema = strict
	}
}

// WithPipelineProgress sets where progress bars are drawn.
func WithPipelineProgress(w io.Writer) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.ProgressOutput = w
	}
}

// DefaultPipeline creates the get pipeline: resolve, download, verify,
// extract, combine, persist and, when db is not nil, record.
//
// The first variadic parameter accepts pipeline options (WithLogger, etc).
// The second accepts pipeline config options (WithPipelineCleanup, etc).
func DefaultPipeline(client *fetch.Client, db *database.HistoryDB, cacheDir, dataDir string, pipelineOpts []Option, configOpts ...DefaultPipelineOption) *Pipeline {
	p := New(pipelineOpts...)

	cfg := &DefaultPipelineConfig{
		CacheDir:        cacheDir,
		DataDir:         dataDir,
		ChunkBlocks:     checksum.DefaultChunkBlocks,
		ReadConcurrency: 1,
	}
	for _, opt := range configOpts {
		opt(cfg)
	}

	stepOpts := []StepOption{
		WithStepLogger(p.logger),
		WithStepProgress(cfg.ProgressOutput),
	}
	combineOpts := []combine.Option{
		combine.WithConcurrency(cfg.ReadConcurrency),
		combine.WithStrictSchema(cfg.StrictSchema),
	}

	p.AddSteps(
		NewResolveStep(client, cfg.CacheDir, stepOpts...),
		NewDownloadStep(client, cfg.ForceUpdate, stepOpts...),
		NewVerifyArchiveStep(cfg.ChunkBlocks, stepOpts...),
		NewExtractStep(cfg.Cleanup, stepOpts...),
		NewCombineStep(cfg.Cleanup, combineOpts, stepOpts...),
		NewPersistStep(cfg.DataDir, cfg.ChunkBlocks, stepOpts...),
	)
	if db != nil {
		p.AddStep(NewRecordStep(db, stepOpts...))
	}

	return p
}
