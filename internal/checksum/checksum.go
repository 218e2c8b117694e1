package checksum

import (
	"crypto/md5"  //nolint:gosec // integrity gate, not a security boundary
	"crypto/sha1" //nolint:gosec // integrity gate, not a security boundary
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
	"sort"
	"strings"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/sha3"
)

// DefaultAlgorithm is the digest used when no algorithm is given.
const DefaultAlgorithm = "md5"

// DefaultChunkBlocks is the number of hash blocks read per chunk.
const DefaultChunkBlocks = 128

var (
	// ErrUnknownAlgorithm is returned for an algorithm name that is not supported.
	ErrUnknownAlgorithm = errors.New("unknown checksum algorithm")

	// ErrMismatch is returned when a digest differs from the expected value.
	ErrMismatch = errors.New("checksum mismatch")
)

// MismatchError describes a failed verification.
type MismatchError struct {
	Path      string
	Algorithm string
	Actual    string
	Expected  string
}

// Error implements error.
func (e *MismatchError) Error() string {
	return fmt.Sprintf("%s sum of %s (%s) does not match known value: %s",
		e.Algorithm, e.Path, e.Actual, e.Expected)
}

// Unwrap lets errors.Is(err, ErrMismatch) match.
func (e *MismatchError) Unwrap() error {
	return ErrMismatch
}

var factories = map[string]func() hash.Hash{
	"md5":    md5.New,
	"sha1":   sha1.New,
	"sha256": sha256.New,
	"sha3-256": func() hash.Hash {
		return sha3.New256()
	},
	"blake2b-256": func() hash.Hash {
		// A nil key never fails.
		h, _ := blake2b.New256(nil) //nolint:errcheck
		return h
	},
}

// New returns a fresh hash for the named algorithm.
// An empty name selects DefaultAlgorithm.
func New(algorithm string) (hash.Hash, error) {
	name := strings.ToLower(strings.TrimSpace(algorithm))
	if name == "" {
		name = DefaultAlgorithm
	}
	factory, ok := factories[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (supported: %s)",
			ErrUnknownAlgorithm, algorithm, strings.Join(Algorithms(), ", "))
	}
	return factory(), nil
}

// Algorithms returns the supported algorithm names in sorted order.
func Algorithms() []string {
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Reader hashes everything read from r in chunks of chunkNumBlocks hash
// blocks and returns the hex digest.
func Reader(r io.Reader, algorithm string, chunkNumBlocks int) (string, error) {
	h, err := New(algorithm)
	if err != nil {
		return "", err
	}
	if chunkNumBlocks <= 0 {
		chunkNumBlocks = DefaultChunkBlocks
	}

	buf := make([]byte, chunkNumBlocks*h.BlockSize())
	for {
		n, err := r.Read(buf)
		if n > 0 {
			h.Write(buf[:n]) //nolint:errcheck // hash.Hash.Write never returns an error
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// File returns the hex digest of the file at path.
func File(path, algorithm string, chunkNumBlocks int) (string, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from the pipeline
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	sum, err := Reader(f, algorithm, chunkNumBlocks)
	if err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", path, err)
	}
	return sum, nil
}

// Verify computes the digest of path and compares it, case-insensitively,
// with expected. It returns the actual digest together with a
// *MismatchError when they differ.
func Verify(path, algorithm, expected string, chunkNumBlocks int) (string, error) {
	actual, err := File(path, algorithm, chunkNumBlocks)
	if err != nil {
		return "", err
	}
	if !Equal(actual, expected) {
		name := algorithm
		if name == "" {
			name = DefaultAlgorithm
		}
		return actual, &MismatchError{
			Path:      path,
			Algorithm: name,
			Actual:    actual,
			Expected:  expected,
		}
	}
	return actual, nil
}

// Equal reports whether two hex digests are the same, ignoring case and
// surrounding whitespace.
func Equal(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
