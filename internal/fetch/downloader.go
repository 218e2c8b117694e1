package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/nao1215/citestrade/internal/progress"
)

// Download streams url into dest, creating parent directories. The body
// is written in blocks of the configured size while a progress line sized
// by Content-Length is drawn. An existing dest is overwritten. A partially
// written file is left in place on failure.
func (c *Client) Download(ctx context.Context, url, dest string) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(dest), 0750); err != nil {
		return 0, fmt.Errorf("failed to create cache directory: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("download request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, fmt.Errorf("%w: %s", ErrUnexpectedStatus, resp.Status)
	}

	f, err := os.Create(dest) //nolint:gosec // dest is built from the cache dir and a base name
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", dest, err)
	}
	defer f.Close()

	c.logger.Info("downloading archive", "url", url, "dest", dest, "content_length", resp.ContentLength)

	reporter := progress.New(c.progressOut, progress.Options{
		Label: "downloading " + filepath.Base(dest),
		Total: resp.ContentLength,
		Unit:  progress.Bytes,
	})
	defer reporter.Finish()

	written, err := copyBlocks(f, resp.Body, c.blockSize, reporter)
	if err != nil {
		return written, fmt.Errorf("failed to download %s: %w", url, err)
	}
	if err := f.Close(); err != nil {
		return written, fmt.Errorf("failed to close %s: %w", dest, err)
	}

	c.logger.Info("download complete", "dest", dest, "bytes", written)
	return written, nil
}

// copyBlocks copies src to dst one block at a time, advancing reporter by
// the size of each block written.
func copyBlocks(dst io.Writer, src io.Reader, blockSize int, reporter *progress.Reporter) (int64, error) {
	buf := make([]byte, blockSize)
	var written int64
	for {
		n, readErr := src.Read(buf)
		if n > 0 {
			w, err := dst.Write(buf[:n])
			written += int64(w)
			reporter.Add(int64(w))
			if err != nil {
				return written, err
			}
			if w != n {
				return written, io.ErrShortWrite
			}
		}
		if errors.Is(readErr, io.EOF) {
			return written, nil
		}
		if readErr != nil {
			return written, readErr
		}
	}
}
