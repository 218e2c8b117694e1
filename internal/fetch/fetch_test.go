package fetch

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

// TestNewClient tests the Client constructor.
func TestNewClient(t *testing.T) {
	t.Parallel()

	t.Run("defaults", func(t *testing.T) {
		t.Parallel()

		c, err := NewClient()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if c.BlockSize() != DefaultBlockSize {
			t.Errorf("BlockSize() = %d, expected %d", c.BlockSize(), DefaultBlockSize)
		}
		if c.ProxyAddress() != "" {
			t.Errorf("expected no proxy, got %q", c.ProxyAddress())
		}
	})

	t.Run("valid proxy address creates client", func(t *testing.T) {
		t.Parallel()

		c, err := NewClient(WithProxy("127.0.0.1:1080"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if c.ProxyAddress() != "127.0.0.1:1080" {
			t.Errorf("ProxyAddress() = %q", c.ProxyAddress())
		}
	})

	t.Run("zero block size returns error", func(t *testing.T) {
		t.Parallel()

		if _, err := NewClient(WithBlockSize(0)); !errors.Is(err, ErrInvalidBlockSize) {
			t.Errorf("expected ErrInvalidBlockSize, got %v", err)
		}
	})

	invalid := []string{"127.0.0.1", ":1080", "127.0.0.1:", "host:0", "host:65536", "host:abc"}
	for _, addr := range invalid {
		t.Run("invalid proxy "+addr, func(t *testing.T) {
			t.Parallel()

			if _, err := NewClient(WithProxy(addr)); !errors.Is(err, ErrInvalidProxyAddress) {
				t.Errorf("expected ErrInvalidProxyAddress for %q, got %v", addr, err)
			}
		})
	}
}

// TestFilenameFromDisposition tests Content-Disposition parsing.
func TestFilenameFromDisposition(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		disposition string
		want        string
	}{
		{name: "quoted name", disposition: `attachment; filename="Trade_database_download_v2020.1.zip"`, want: "Trade_database_download_v2020.1.zip"},
		{name: "bare name", disposition: "attachment; filename=db.zip", want: "db.zip"},
		{name: "trailing semicolon", disposition: `attachment; filename="db.zip";`, want: "db.zip"},
		{name: "empty header", disposition: "", want: DefaultFilename},
		{name: "empty name", disposition: `attachment; filename=""`, want: DefaultFilename},
		{name: "path traversal", disposition: `attachment; filename="../../etc/db.zip"`, want: "db.zip"},
		{name: "windows path", disposition: `attachment; filename="C:\tmp\db.zip"`, want: "db.zip"},
		{name: "no filename parameter", disposition: "attachment", want: "attachment"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := FilenameFromDisposition(tt.disposition, DefaultFilename); got != tt.want {
				t.Errorf("FilenameFromDisposition(%q) = %q, want %q", tt.disposition, got, tt.want)
			}
		})
	}
}

// TestResolveFilename tests the HEAD request.
func TestResolveFilename(t *testing.T) {
	t.Parallel()

	t.Run("uses Content-Disposition", func(t *testing.T) {
		t.Parallel()

		var method, userAgent string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			method = r.Method
			userAgent = r.Header.Get("User-Agent")
			w.Header().Set("Content-Disposition", `attachment; filename="trade_v1.zip"`)
		}))
		defer srv.Close()

		c, err := NewClient(WithUserAgent("citestrade-test"))
		if err != nil {
			t.Fatal(err)
		}
		name, err := c.ResolveFilename(context.Background(), srv.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if name != "trade_v1.zip" {
			t.Errorf("expected trade_v1.zip, got %q", name)
		}
		if method != http.MethodHead {
			t.Errorf("expected HEAD, got %s", method)
		}
		if userAgent != "citestrade-test" {
			t.Errorf("expected custom User-Agent, got %q", userAgent)
		}
	})

	t.Run("falls back to default name", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		c, err := NewClient(WithDefaultFilename("fallback.zip"))
		if err != nil {
			t.Fatal(err)
		}
		name, err := c.ResolveFilename(context.Background(), srv.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if name != "fallback.zip" {
			t.Errorf("expected fallback.zip, got %q", name)
		}
	})

	t.Run("network failure is returned", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		c, err := NewClient()
		if err != nil {
			t.Fatal(err)
		}
		if _, err := c.ResolveFilename(context.Background(), url); err == nil {
			t.Error("expected error for closed server")
		}
	})
}

// TestDownload tests streaming the archive to disk.
func TestDownload(t *testing.T) {
	t.Parallel()

	payload := bytes.Repeat([]byte("cites"), 1000)

	t.Run("writes body and reports progress", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
			_, _ = w.Write(payload)
		}))
		defer srv.Close()

		var progressOut bytes.Buffer
		c, err := NewClient(WithBlockSize(64), WithProgressOutput(&progressOut))
		if err != nil {
			t.Fatal(err)
		}

		dest := filepath.Join(t.TempDir(), "nested", "cache", "db.zip")
		n, err := c.Download(context.Background(), srv.URL, dest)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n != int64(len(payload)) {
			t.Errorf("expected %d bytes, got %d", len(payload), n)
		}

		got, err := os.ReadFile(dest)
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(got, payload) {
			t.Error("downloaded content differs from served content")
		}
		if !strings.Contains(progressOut.String(), "100.0%") {
			t.Errorf("expected completed progress line, got %q", progressOut.String())
		}
	})

	t.Run("non-2xx status", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "gone", http.StatusGone)
		}))
		defer srv.Close()

		c, err := NewClient()
		if err != nil {
			t.Fatal(err)
		}
		dest := filepath.Join(t.TempDir(), "db.zip")
		if _, err := c.Download(context.Background(), srv.URL, dest); !errors.Is(err, ErrUnexpectedStatus) {
			t.Errorf("expected ErrUnexpectedStatus, got %v", err)
		}
		if _, err := os.Stat(dest); !os.IsNotExist(err) {
			t.Error("expected no file for a rejected download")
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write(payload)
		}))
		defer srv.Close()

		c, err := NewClient()
		if err != nil {
			t.Fatal(err)
		}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := c.Download(ctx, srv.URL, filepath.Join(t.TempDir(), "db.zip")); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}
