package dataset

import (
	"archive/zip"
	"bytes"
	"context"
	"crypto/md5" //nolint:gosec // matches the registry digest
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nao1215/citestrade/internal/checksum"
	"github.com/nao1215/citestrade/internal/config"
	"github.com/nao1215/citestrade/internal/table"
)

const tradeCSV = `Year,Appendix,Taxon,Importer,Exporter,Quantity,Unit
2019,II,Zamia furfuracea,JP,MX,5,
1999,II,Aloe vera,US,ZA,12,
1969,I,Panthera leo,FR,ZA,1,
2020,I,Panthera leo,FR,ZA,1,
1999,II,Aloe vera,DE,ZA,n/a,kg
,II,Boa constrictor,GB,CO,3,
2015,II,Boa constrictor,US,CO,2,
1999.0,II,Aloe vera,US,ZA,4,
`

// zipBody returns an archive holding the trade CSV.
func zipBody(t *testing.T) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("trade_db_1.csv")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte(tradeCSV)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// newTestConfig serves body and returns a config pointing at it with a
// registry that expects archiveSum, and combinedSum when not empty.
func newTestConfig(t *testing.T, body []byte, archiveSum, combinedSum string) *config.Config {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			w.Write(body) //nolint:errcheck,gosec
		}
	}))
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	registryPath := filepath.Join(dir, "registry.yaml")
	doc := fmt.Sprintf("current: test\nversions:\n  test:\n    archive: %s\n", archiveSum)
	if combinedSum != "" {
		doc += fmt.Sprintf("    combined: %s\n", combinedSum)
	}
	if err := os.WriteFile(registryPath, []byte(doc), 0600); err != nil {
		t.Fatal(err)
	}

	cfg := config.NewConfig()
	cfg.URL = srv.URL
	cfg.CacheDir = filepath.Join(dir, "cache")
	cfg.DataDir = filepath.Join(dir, "data")
	cfg.RegistryFile = registryPath
	return cfg
}

func md5Hex(data []byte) string {
	sum := md5.Sum(data) //nolint:gosec
	return hex.EncodeToString(sum[:])
}

// TestGetAndLoad tests the full acquisition round trip.
func TestGetAndLoad(t *testing.T) {
	t.Parallel()

	body := zipBody(t)
	cfg := newTestConfig(t, body, md5Hex(body), "")
	ctx := context.Background()

	path, err := Get(ctx, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path != filepath.Join(cfg.DataDir, "trade_database.csv.gz") {
		t.Errorf("unexpected output path %s", path)
	}

	ds, err := Open(ctx, cfg, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ds.Path != path || ds.Version != "test" || ds.Algorithm != "md5" {
		t.Errorf("unexpected provenance %+v", ds)
	}

	// 1969, 2020 and the empty year are dropped; 1999.0 is truncated.
	tbl := ds.Table
	wantYears := []int{1999, 1999, 1999, 2015, 2019}
	if tbl.Len() != len(wantYears) {
		t.Fatalf("expected %d rows, got %d", len(wantYears), tbl.Len())
	}
	for i, y := range wantYears {
		if tbl.Rows[i].Year != y {
			t.Errorf("row %d: expected %d, got %d", i, y, tbl.Rows[i].Year)
		}
		if tbl.Rows[i].Index != i {
			t.Errorf("row %d: expected index %d, got %d", i, i, tbl.Rows[i].Index)
		}
	}
	// Importer breaks the tie between the Aloe vera rows; the two US rows
	// keep their input order.
	if tbl.Value(0, "Importer") != "DE" || tbl.Rows[0].HasQuantity {
		t.Errorf("unexpected first row %+v", tbl.Rows[0])
	}
	if tbl.Rows[1].Quantity != 12 || tbl.Rows[2].Quantity != 4 {
		t.Errorf("expected stable order, got %v then %v", tbl.Rows[1].Quantity, tbl.Rows[2].Quantity)
	}

	t.Run("second get reuses the cached archive", func(t *testing.T) {
		archive := filepath.Join(cfg.CacheDir, "trade_database.zip")
		before, err := os.Stat(archive)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := Get(ctx, cfg); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		after, err := os.Stat(archive)
		if err != nil {
			t.Fatal(err)
		}
		if !after.ModTime().Equal(before.ModTime()) {
			t.Error("expected the archive not to be rewritten")
		}
	})

	t.Run("tampered file fails verification", func(t *testing.T) {
		other := table.New("Year", "Taxon")
		other.Rows = append(other.Rows, table.Record{Year: 2000, Fields: map[string]string{"Taxon": "Aloe"}})
		if err := other.WriteGzipFile(path); err != nil {
			t.Fatal(err)
		}

		_, err := Load(ctx, cfg, false)
		if !errors.Is(err, checksum.ErrMismatch) {
			t.Fatalf("expected ErrMismatch, got %v", err)
		}
	})
}

// TestLoad tests loading without a fresh download.
func TestLoad(t *testing.T) {
	t.Parallel()

	t.Run("missing data points at get", func(t *testing.T) {
		t.Parallel()

		body := zipBody(t)
		cfg := newTestConfig(t, body, md5Hex(body), "")

		_, err := Load(context.Background(), cfg, false)
		if !errors.Is(err, ErrDataNotFound) {
			t.Fatalf("expected ErrDataNotFound, got %v", err)
		}
		if !strings.Contains(err.Error(), "citestrade get") {
			t.Errorf("expected remediation hint, got %q", err.Error())
		}
	})

	t.Run("update runs get first", func(t *testing.T) {
		t.Parallel()

		body := zipBody(t)
		cfg := newTestConfig(t, body, md5Hex(body), "")
		cfg.Cleanup = true

		tbl, err := Load(context.Background(), cfg, true)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if tbl.Len() != 5 {
			t.Errorf("expected 5 rows, got %d", tbl.Len())
		}
		entries, err := os.ReadDir(cfg.CacheDir)
		if err != nil {
			t.Fatal(err)
		}
		if len(entries) != 0 {
			t.Errorf("expected empty cache after cleanup, got %d entries", len(entries))
		}
	})

	t.Run("archive mismatch leaves no dataset", func(t *testing.T) {
		t.Parallel()

		cfg := newTestConfig(t, zipBody(t), "d64d99182bdfb3696f6ce91687ccdd81", "")

		_, err := Load(context.Background(), cfg, true)
		if !errors.Is(err, checksum.ErrMismatch) {
			t.Fatalf("expected ErrMismatch, got %v", err)
		}
		_, err = Load(context.Background(), cfg, false)
		if !errors.Is(err, ErrDataNotFound) {
			t.Errorf("expected ErrDataNotFound, got %v", err)
		}
	})

	t.Run("registry digest without history", func(t *testing.T) {
		t.Parallel()

		body := zipBody(t)
		cfg := newTestConfig(t, body, md5Hex(body), "")

		tbl := table.New("Year", "Taxon")
		tbl.Rows = append(tbl.Rows, table.Record{Year: 2001, Fields: map[string]string{"Taxon": "Aloe"}})
		path := filepath.Join(cfg.DataDir, "trade_database.csv.gz")
		if err := tbl.WriteGzipFile(path); err != nil {
			t.Fatal(err)
		}

		if _, err := Load(context.Background(), cfg, false); !errors.Is(err, ErrNoKnownChecksum) {
			t.Fatalf("expected ErrNoKnownChecksum, got %v", err)
		}

		sum, err := checksum.File(path, "md5", 0)
		if err != nil {
			t.Fatal(err)
		}
		cfg = newTestConfig(t, body, md5Hex(body), sum)
		cfg.DataDir = filepath.Dir(path)

		got, err := Load(context.Background(), cfg, false)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.Len() != 1 || got.Rows[0].Year != 2001 {
			t.Errorf("unexpected table %+v", got.Rows)
		}
	})

	t.Run("unknown version", func(t *testing.T) {
		t.Parallel()

		body := zipBody(t)
		cfg := newTestConfig(t, body, md5Hex(body), "")
		cfg.DatasetVersion = "1999.1"

		if _, err := Load(context.Background(), cfg, false); err == nil {
			t.Fatal("expected error")
		}
	})
}
