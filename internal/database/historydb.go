package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver
)

// FileName is the name of the history database inside its directory.
const FileName = "citestrade.db"

// HistoryDB records every combined dataset that was produced, together
// with the checksums needed to verify it later.
type HistoryDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures HistoryDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates the history database in dbDir.
// If CreateIfNotExists is false and the database doesn't exist, an error
// wrapping os.ErrNotExist is returned.
func Open(dbDir string, opts Options) (*HistoryDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("database not found at %s: %w", dbPath, err)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else if err := os.MkdirAll(dbDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// mode=rw refuses to create a missing file, mode=rwc allows it.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	hdb := &HistoryDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := hdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return hdb, nil
}

// Path returns the database file path.
func (hdb *HistoryDB) Path() string {
	return hdb.dbPath
}

// Close closes the database connection.
func (hdb *HistoryDB) Close() error {
	return hdb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (hdb *HistoryDB) createTables() error {
	schema := `
	-- One row per combined dataset written to disk
	CREATE TABLE IF NOT EXISTS snapshots (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		version TEXT NOT NULL,
		archive_path TEXT NOT NULL,
		archive_checksum TEXT NOT NULL,
		combined_path TEXT NOT NULL,
		combined_checksum TEXT NOT NULL,
		algorithm TEXT NOT NULL,
		row_count INTEGER NOT NULL,
		source_files TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_snapshots_version ON snapshots(version);
	CREATE INDEX IF NOT EXISTS idx_snapshots_combined ON snapshots(combined_path);
	`

	_, err := hdb.db.ExecContext(context.Background(), schema)
	return err
}

// Snapshot describes one combined dataset.
type Snapshot struct {
	// ID is a random UUID assigned on save when empty.
	ID string `json:"id"`

	// Version is the dataset version from the checksum registry.
	Version string `json:"version"`

	// ArchivePath is the downloaded zip the dataset was built from.
	ArchivePath string `json:"archive_path"`

	// ArchiveChecksum is the verified digest of the archive.
	ArchiveChecksum string `json:"archive_checksum"`

	// CombinedPath is the gzip CSV file.
	CombinedPath string `json:"combined_path"`

	// CombinedChecksum is the digest of the gzip CSV file.
	CombinedChecksum string `json:"combined_checksum"`

	// Algorithm is the digest algorithm of both checksums.
	Algorithm string `json:"algorithm"`

	// Rows is the number of records in the combined dataset.
	Rows int `json:"rows"`

	// SourceFiles lists the extracted CSV files, by base name.
	SourceFiles []string `json:"source_files"`

	// CreatedAt is set on save when zero.
	CreatedAt time.Time `json:"created_at"`
}

// SaveSnapshot stores s. A missing ID or CreatedAt is filled in and
// written back to s.
func (hdb *HistoryDB) SaveSnapshot(ctx context.Context, s *Snapshot) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now()
	}

	sourcesJSON, err := json.Marshal(s.SourceFiles)
	if err != nil {
		return fmt.Errorf("failed to serialize source files: %w", err)
	}

	query := `
	INSERT INTO snapshots (id, version, archive_path, archive_checksum, combined_path,
		combined_checksum, algorithm, row_count, source_files, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = hdb.db.ExecContext(ctx, query,
		s.ID,
		s.Version,
		s.ArchivePath,
		s.ArchiveChecksum,
		s.CombinedPath,
		s.CombinedChecksum,
		s.Algorithm,
		s.Rows,
		string(sourcesJSON),
		s.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

const snapshotColumns = `id, version, archive_path, archive_checksum, combined_path,
	combined_checksum, algorithm, row_count, source_files, created_at`

// LatestSnapshot returns the most recently saved snapshot of version, or
// of any version when version is empty. It returns nil, nil when there is none.
func (hdb *HistoryDB) LatestSnapshot(ctx context.Context, version string) (*Snapshot, error) {
	query := `SELECT ` + snapshotColumns + ` FROM snapshots
	WHERE (? = '' OR version = ?)
	ORDER BY seq DESC
	LIMIT 1`

	s, err := scanSnapshot(hdb.db.QueryRowContext(ctx, query, version, version))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest snapshot: %w", err)
	}
	return s, nil
}

// LatestSnapshotFor returns the most recent snapshot written to
// combinedPath. It returns nil, nil when there is none.
func (hdb *HistoryDB) LatestSnapshotFor(ctx context.Context, combinedPath string) (*Snapshot, error) {
	query := `SELECT ` + snapshotColumns + ` FROM snapshots
	WHERE combined_path = ?
	ORDER BY seq DESC
	LIMIT 1`

	s, err := scanSnapshot(hdb.db.QueryRowContext(ctx, query, combinedPath))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot for %s: %w", combinedPath, err)
	}
	return s, nil
}

// GetSnapshot returns the snapshot with the given ID, or nil, nil.
func (hdb *HistoryDB) GetSnapshot(ctx context.Context, id string) (*Snapshot, error) {
	query := `SELECT ` + snapshotColumns + ` FROM snapshots WHERE id = ?`

	s, err := scanSnapshot(hdb.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}
	return s, nil
}

// ListSnapshots returns snapshots newest first. A limit of zero or less
// returns all of them.
func (hdb *HistoryDB) ListSnapshots(ctx context.Context, limit int) ([]Snapshot, error) {
	query := `SELECT ` + snapshotColumns + ` FROM snapshots ORDER BY seq DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := hdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer rows.Close()

	var results []Snapshot
	for rows.Next() {
		s, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		results = append(results, *s)
	}
	return results, rows.Err()
}

// rowScanner is implemented by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row rowScanner) (*Snapshot, error) {
	var (
		s           Snapshot
		sourcesJSON sql.NullString
		createdAt   string
	)
	err := row.Scan(
		&s.ID,
		&s.Version,
		&s.ArchivePath,
		&s.ArchiveChecksum,
		&s.CombinedPath,
		&s.CombinedChecksum,
		&s.Algorithm,
		&s.Rows,
		&sourcesJSON,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	if sourcesJSON.Valid && sourcesJSON.String != "" {
		if err := json.Unmarshal([]byte(sourcesJSON.String), &s.SourceFiles); err != nil {
			return nil, fmt.Errorf("failed to parse source files: %w", err)
		}
	}
	s.CreatedAt = parseTimestamp(createdAt)
	return &s, nil
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.999",
	"2006-01-02T15:04:05",
}

// parseTimestamp tries each known format and returns the zero time if
// none matches.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
