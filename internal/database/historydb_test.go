package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// setupTestDB creates a temporary database for testing.
func setupTestDB(t *testing.T) (*HistoryDB, func()) {
	t.Helper()

	db, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}

	cleanup := func() {
		_ = db.Close()
	}
	return db, cleanup
}

func testSnapshot(version, combined string) *Snapshot {
	return &Snapshot{
		Version:          version,
		ArchivePath:      "/cache/trade_database.zip",
		ArchiveChecksum:  "d64d99182bdfb3696f6ce91687ccdd81",
		CombinedPath:     combined,
		CombinedChecksum: "417b1cc7be04a7328e654fc74098d205",
		Algorithm:        "md5",
		Rows:             42,
		SourceFiles:      []string{"trade_db_1.csv", "trade_db_2.csv"},
	}
}

// TestOpen tests database opening and creation.
func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates database in new directory", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "newdir", "subdir")
		db, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		if _, err := os.Stat(filepath.Join(dbDir, FileName)); os.IsNotExist(err) {
			t.Error("database file was not created")
		}
		if db.Path() != filepath.Join(dbDir, FileName) {
			t.Errorf("unexpected path %s", db.Path())
		}
	})

	t.Run("CreateIfNotExists=false returns error when database does not exist", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "nonexistent-db")
		_, err := Open(dbDir, Options{CreateIfNotExists: false, EnableWAL: true})
		if !errors.Is(err, os.ErrNotExist) {
			t.Fatalf("expected os.ErrNotExist, got %v", err)
		}
		if !strings.Contains(err.Error(), "database not found") {
			t.Errorf("expected informative message, got %q", err.Error())
		}
		if _, statErr := os.Stat(dbDir); !os.IsNotExist(statErr) {
			t.Error("database directory should not have been created")
		}
	})

	t.Run("CreateIfNotExists=false opens existing database", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "existing-db")
		db1, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		ctx := context.Background()
		s := testSnapshot("2020.1", "/data/trade_database.csv.gz")
		if err := db1.SaveSnapshot(ctx, s); err != nil {
			t.Fatalf("failed to save snapshot: %v", err)
		}
		db1.Close()

		db2, err := Open(dbDir, Options{CreateIfNotExists: false, EnableWAL: true})
		if err != nil {
			t.Fatalf("failed to open existing database: %v", err)
		}
		defer db2.Close()

		got, err := db2.GetSnapshot(ctx, s.ID)
		if err != nil {
			t.Fatalf("failed to get snapshot: %v", err)
		}
		if got == nil {
			t.Error("expected snapshot to persist")
		}
	})
}

// TestDefaultOptions tests the default options values.
func TestDefaultOptions(t *testing.T) {
	t.Parallel()

	opts := DefaultOptions()
	if !opts.CreateIfNotExists {
		t.Error("expected CreateIfNotExists to be true by default")
	}
	if !opts.EnableWAL {
		t.Error("expected EnableWAL to be true by default")
	}
}

// TestSaveSnapshot tests storing and reading back snapshots.
func TestSaveSnapshot(t *testing.T) {
	t.Parallel()

	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	s := testSnapshot("2020.1", "/data/trade_database.csv.gz")
	if err := db.SaveSnapshot(ctx, s); err != nil {
		t.Fatalf("failed to save snapshot: %v", err)
	}
	if s.ID == "" {
		t.Fatal("expected ID to be assigned")
	}
	if s.CreatedAt.IsZero() {
		t.Fatal("expected CreatedAt to be assigned")
	}

	got, err := db.GetSnapshot(ctx, s.ID)
	if err != nil {
		t.Fatalf("failed to get snapshot: %v", err)
	}
	if got == nil {
		t.Fatal("expected snapshot")
	}
	if got.Version != s.Version || got.CombinedChecksum != s.CombinedChecksum || got.Rows != s.Rows {
		t.Errorf("round trip mismatch: got %+v", got)
	}
	if len(got.SourceFiles) != 2 || got.SourceFiles[1] != "trade_db_2.csv" {
		t.Errorf("unexpected source files %v", got.SourceFiles)
	}
	if !got.CreatedAt.Equal(s.CreatedAt) {
		t.Errorf("expected CreatedAt %v, got %v", s.CreatedAt, got.CreatedAt)
	}

	t.Run("duplicate ID is rejected", func(t *testing.T) {
		dup := testSnapshot("2020.1", "/data/other.csv.gz")
		dup.ID = s.ID
		if err := db.SaveSnapshot(ctx, dup); err == nil {
			t.Error("expected error for duplicate ID")
		}
	})

	t.Run("unknown ID", func(t *testing.T) {
		got, err := db.GetSnapshot(ctx, "missing")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != nil {
			t.Errorf("expected nil, got %+v", got)
		}
	})
}

// TestLatestSnapshot tests the latest snapshot lookups.
func TestLatestSnapshot(t *testing.T) {
	t.Parallel()

	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	got, err := db.LatestSnapshot(ctx, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for empty history, got %+v", got)
	}

	first := testSnapshot("2019.2", "/data/a.csv.gz")
	second := testSnapshot("2020.1", "/data/b.csv.gz")
	third := testSnapshot("2019.2", "/data/a.csv.gz")
	third.CombinedChecksum = "newer"
	// Same timestamp on purpose: insertion order decides.
	now := time.Now()
	for _, s := range []*Snapshot{first, second, third} {
		s.CreatedAt = now
		if err := db.SaveSnapshot(ctx, s); err != nil {
			t.Fatalf("failed to save snapshot: %v", err)
		}
	}

	tests := []struct {
		name    string
		version string
		wantID  string
	}{
		{name: "any version", version: "", wantID: third.ID},
		{name: "older version", version: "2019.2", wantID: third.ID},
		{name: "current version", version: "2020.1", wantID: second.ID},
	}
	for _, tt := range tests {
		got, err := db.LatestSnapshot(ctx, tt.version)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tt.name, err)
		}
		if got == nil || got.ID != tt.wantID {
			t.Errorf("%s: expected %s, got %+v", tt.name, tt.wantID, got)
		}
	}

	byPath, err := db.LatestSnapshotFor(ctx, "/data/a.csv.gz")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if byPath == nil || byPath.CombinedChecksum != "newer" {
		t.Errorf("expected newest snapshot for path, got %+v", byPath)
	}

	none, err := db.LatestSnapshotFor(ctx, "/data/unknown.csv.gz")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if none != nil {
		t.Errorf("expected nil, got %+v", none)
	}
}

// TestListSnapshots tests listing snapshots newest first.
func TestListSnapshots(t *testing.T) {
	t.Parallel()

	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	var ids []string
	for i := range 3 {
		s := testSnapshot("2020.1", "/data/trade_database.csv.gz")
		s.Rows = i
		if err := db.SaveSnapshot(ctx, s); err != nil {
			t.Fatalf("failed to save snapshot: %v", err)
		}
		ids = append(ids, s.ID)
	}

	all, err := db.ListSnapshots(ctx, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 snapshots, got %d", len(all))
	}
	if all[0].ID != ids[2] || all[2].ID != ids[0] {
		t.Error("expected newest first")
	}

	limited, err := db.ListSnapshots(ctx, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("expected 2 snapshots, got %d", len(limited))
	}
}

// TestParseTimestamp tests timestamp parsing with various formats.
func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    string
		wantZero bool
	}{
		{"2026-10-18 12:30:45", false},
		{"2026-10-18T12:30:45Z", false},
		{"2026-10-18T12:30:45.123456789Z", false},
		{"2026-10-18T12:30:45+09:00", false},
		{"2026-10-18T12:30:45", false},
		{"not a timestamp", true},
		{"", true},
	}
	for _, tt := range tests {
		if got := parseTimestamp(tt.input); got.IsZero() != tt.wantZero {
			t.Errorf("parseTimestamp(%q) zero = %v, want %v", tt.input, got.IsZero(), tt.wantZero)
		}
	}
}
