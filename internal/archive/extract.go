package archive

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/nao1215/citestrade/internal/progress"
)

// ErrUnsafePath is returned for a member whose path would be written
// outside the destination directory.
var ErrUnsafePath = errors.New("archive member escapes destination directory")

type options struct {
	progressOut io.Writer
	logger      *slog.Logger
}

// Option configures Extract.
type Option func(*options)

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

// Extract writes every member of the zip at archivePath into the
// directory containing it and returns the paths of the extracted files,
// in archive order. Existing files are overwritten. When cleanup is set
// the archive is removed after it has been closed.
func Extract(ctx context.Context, archivePath string, cleanup bool, opts ...Option) ([]string, error) {
	o := &options{logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(o)
	}

	dest := filepath.Dir(archivePath)
	o.logger.Info("extracting archive", "archive", archivePath, "dest", dest)

	files, err := extractAll(ctx, archivePath, dest, o)
	if err != nil {
		return files, err
	}

	if cleanup {
		if err := os.Remove(archivePath); err != nil {
			return files, fmt.Errorf("failed to remove archive: %w", err)
		}
		o.logger.Debug("removed archive", "archive", archivePath)
	}
	return files, nil
}

// extractAll does the extraction. The zip reader is closed on return,
// before Extract removes the archive.
func extractAll(ctx context.Context, archivePath, dest string, o *options) ([]string, error) {
	zr, err := zip.OpenReader(archivePath)
	if errors.Is(err, zip.ErrInsecurePath) {
		_ = zr.Close()
		return nil, fmt.Errorf("%w: %w", ErrUnsafePath, err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open archive %s: %w", archivePath, err)
	}
	defer zr.Close()

	reporter := progress.New(o.progressOut, progress.Options{
		Label: "extracting " + filepath.Base(archivePath),
		Total: int64(len(zr.File)),
		Unit:  progress.Files,
	})
	defer reporter.Finish()

	var files []string
	for _, zf := range zr.File {
		if err := ctx.Err(); err != nil {
			return files, err
		}

		target, err := memberPath(dest, zf.Name)
		if err != nil {
			return files, err
		}

		if zf.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0750); err != nil {
				return files, fmt.Errorf("failed to create directory %s: %w", target, err)
			}
			reporter.Add(1)
			continue
		}

		if err := extractFile(zf, target); err != nil {
			return files, err
		}
		files = append(files, target)
		reporter.Add(1)
		o.logger.Debug("extracted", "member", zf.Name, "path", target, "bytes", zf.UncompressedSize64)
	}
	return files, nil
}

// memberPath joins a member name onto dest and rejects names that leave it.
func memberPath(dest, name string) (string, error) {
	target := filepath.Join(dest, filepath.FromSlash(name))
	rel, err := filepath.Rel(dest, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(name) {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, name)
	}
	return target, nil
}

func extractFile(zf *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0750); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", target, err)
	}

	rc, err := zf.Open()
	if err != nil {
		return fmt.Errorf("failed to open member %s: %w", zf.Name, err)
	}
	defer rc.Close()

	mode := zf.Mode().Perm()
	if mode == 0 {
		mode = 0600
	}
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode|fs.FileMode(0600)) //nolint:gosec // target is checked by memberPath
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", target, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, rc); err != nil { //nolint:gosec // archive comes from a checksum-verified download
		return fmt.Errorf("failed to extract %s: %w", zf.Name, err)
	}
	return out.Close()
}
