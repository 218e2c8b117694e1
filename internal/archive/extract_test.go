package archive

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeZip creates a zip at path with the given members. Names ending in
// "/" become directories.
func writeZip(t *testing.T, path string, members []string, contents map[string]string) {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range members {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("failed to add %s: %v", name, err)
		}
		if strings.HasSuffix(name, "/") {
			continue
		}
		if _, err := w.Write([]byte(contents[name])); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("failed to close zip: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		t.Fatalf("failed to write zip: %v", err)
	}
}

// TestExtract tests archive extraction.
func TestExtract(t *testing.T) {
	t.Parallel()

	t.Run("extracts members next to the archive", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		zipPath := filepath.Join(dir, "db.zip")
		writeZip(t, zipPath, []string{"a.csv", "sub/", "sub/b.csv"}, map[string]string{
			"a.csv":     "Year\n2000\n",
			"sub/b.csv": "Year\n2001\n",
		})

		var progressOut bytes.Buffer
		files, err := Extract(context.Background(), zipPath, false, WithProgressOutput(&progressOut))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(files) != 2 {
			t.Fatalf("expected 2 files, got %v", files)
		}

		got, err := os.ReadFile(filepath.Join(dir, "sub", "b.csv"))
		if err != nil {
			t.Fatalf("expected nested file: %v", err)
		}
		if string(got) != "Year\n2001\n" {
			t.Errorf("unexpected content %q", got)
		}
		if _, err := os.Stat(zipPath); err != nil {
			t.Error("expected archive to be kept without cleanup")
		}
		if !strings.Contains(progressOut.String(), "3 files") {
			t.Errorf("expected per-file progress, got %q", progressOut.String())
		}
	})

	t.Run("cleanup removes the archive", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		zipPath := filepath.Join(dir, "db.zip")
		writeZip(t, zipPath, []string{"a.csv"}, map[string]string{"a.csv": "Year\n"})

		if _, err := Extract(context.Background(), zipPath, true); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := os.Stat(zipPath); !os.IsNotExist(err) {
			t.Error("expected archive to be removed")
		}
		if _, err := os.Stat(filepath.Join(dir, "a.csv")); err != nil {
			t.Error("expected extracted file to remain")
		}
	})

	t.Run("rejects path traversal", func(t *testing.T) {
		t.Parallel()

		dir := filepath.Join(t.TempDir(), "cache")
		if err := os.MkdirAll(dir, 0750); err != nil {
			t.Fatal(err)
		}
		zipPath := filepath.Join(dir, "evil.zip")
		writeZip(t, zipPath, []string{"../escape.csv"}, map[string]string{"../escape.csv": "x"})

		_, err := Extract(context.Background(), zipPath, true)
		if !errors.Is(err, ErrUnsafePath) {
			t.Fatalf("expected ErrUnsafePath, got %v", err)
		}
		if _, err := os.Stat(filepath.Join(filepath.Dir(dir), "escape.csv")); !os.IsNotExist(err) {
			t.Error("expected no file outside the destination")
		}
		if _, err := os.Stat(zipPath); err != nil {
			t.Error("expected archive to be kept on failure")
		}
	})

	t.Run("not a zip", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "db.zip")
		if err := os.WriteFile(path, []byte("plain text"), 0600); err != nil {
			t.Fatal(err)
		}
		if _, err := Extract(context.Background(), path, false); err == nil {
			t.Error("expected error for invalid archive")
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		zipPath := filepath.Join(dir, "db.zip")
		writeZip(t, zipPath, []string{"a.csv"}, map[string]string{"a.csv": "Year\n"})

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := Extract(ctx, zipPath, false); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}
