package dataset

import "errors"

var (
	// ErrDataNotFound is returned by Load when the combined dataset has
	// not been produced yet.
	ErrDataNotFound = errors.New("combined dataset not found")

	// ErrNoKnownChecksum is returned by Load when neither the registry nor
	// the history database knows the checksum of the combined dataset.
	ErrNoKnownChecksum = errors.New("no known checksum for combined dataset")
)
