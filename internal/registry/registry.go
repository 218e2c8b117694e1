package registry

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nao1215/citestrade/internal/checksum"
)

//go:embed registry.yaml
var defaultRegistry []byte

var (
	// ErrUnknownVersion is returned when a version is not in the registry.
	ErrUnknownVersion = errors.New("unknown dataset version")

	// ErrNoCurrentVersion is returned when no version is requested and the
	// registry does not name a current one.
	ErrNoCurrentVersion = errors.New("registry does not define a current version")

	// ErrMissingArchiveChecksum is returned when an entry has no archive digest.
	ErrMissingArchiveChecksum = errors.New("registry entry has no archive checksum")
)

// Entry holds the expected digests of one dataset version.
type Entry struct {
	// Algorithm is the digest algorithm. Empty means md5.
	Algorithm string `yaml:"algorithm,omitempty"`

	// Archive is the digest of the downloaded zip.
	Archive string `yaml:"archive"`

	// Combined is the digest of the combined gzip CSV, if known.
	Combined string `yaml:"combined,omitempty"`
}

// Registry is a set of known dataset versions.
type Registry struct {
	Current  string           `yaml:"current"`
	Versions map[string]Entry `yaml:"versions"`
}

// Default returns the embedded registry.
func Default() (*Registry, error) {
	return Parse(defaultRegistry)
}

// Load reads a registry from a YAML file. A leading "~" stands for the
// user's home directory.
func Load(path string) (*Registry, error) {
	if home, err := os.UserHomeDir(); err == nil {
		path = expandHome(path, home)
	}
	data, err := os.ReadFile(path) //nolint:gosec // User-provided registry path is intentional
	if err != nil {
		return nil, fmt.Errorf("failed to read registry %s: %w", path, err)
	}
	r, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse registry %s: %w", path, err)
	}
	return r, nil
}

// expandHome replaces a leading "~" or "~/" in path with home.
// "~user" forms are left alone.
func expandHome(path, home string) string {
	switch {
	case path == "~":
		return home
	case strings.HasPrefix(path, "~/"), strings.HasPrefix(path, "~"+string(filepath.Separator)):
		return filepath.Join(home, path[2:])
	}
	return path
}

// Open returns the registry at path, or the embedded one when path is empty.
func Open(path string) (*Registry, error) {
	if path == "" {
		return Default()
	}
	return Load(path)
}

// Parse decodes and validates a YAML registry document.
func Parse(data []byte) (*Registry, error) {
	var r Registry
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	if r.Versions == nil {
		r.Versions = make(map[string]Entry)
	}
	for version, e := range r.Versions {
		if e.Archive == "" {
			return nil, fmt.Errorf("%w: %s", ErrMissingArchiveChecksum, version)
		}
		if _, err := checksum.New(e.Algorithm); err != nil {
			return nil, fmt.Errorf("version %s: %w", version, err)
		}
	}
	if r.Current != "" {
		if _, ok := r.Versions[r.Current]; !ok {
			return nil, fmt.Errorf("%w: current version %s", ErrUnknownVersion, r.Current)
		}
	}
	return &r, nil
}

// Lookup returns the entry for version, or for the current version when
// version is empty. The resolved version name is returned alongside.
func (r *Registry) Lookup(version string) (string, Entry, error) {
	if version == "" {
		version = r.Current
	}
	if version == "" {
		return "", Entry{}, ErrNoCurrentVersion
	}
	e, ok := r.Versions[version]
	if !ok {
		return "", Entry{}, fmt.Errorf("%w: %s (known: %v)", ErrUnknownVersion, version, r.Names())
	}
	if e.Algorithm == "" {
		e.Algorithm = checksum.DefaultAlgorithm
	}
	return version, e, nil
}

// Names returns the known versions in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.Versions))
	for name := range r.Versions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
