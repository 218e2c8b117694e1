package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and provide specific
// information about what is wrong with the configuration. Callers can use
// errors.Is() for programmatic handling.
var (
	// ErrEmptyURL is returned when no remote endpoint is configured.
	ErrEmptyURL = errors.New("invalid url: remote endpoint must not be empty")

	// ErrInvalidURL is returned when the endpoint is not an absolute http(s) URL.
	ErrInvalidURL = errors.New("invalid url: must be an absolute http or https URL")

	// ErrEmptyCacheDir is returned when the cache directory is empty.
	ErrEmptyCacheDir = errors.New("invalid cache directory: must not be empty")

	// ErrEmptyDataDir is returned when the data directory is empty.
	ErrEmptyDataDir = errors.New("invalid data directory: must not be empty")

	// ErrInvalidTimeout is returned when the timeout is negative.
	// Zero disables the client timeout.
	ErrInvalidTimeout = errors.New("invalid timeout: must be non-negative")

	// ErrInvalidBlockSize is returned when the download block size is not positive.
	ErrInvalidBlockSize = errors.New("invalid block size: must be positive")

	// ErrInvalidChunkBlocks is returned when the checksum chunk multiplier is not positive.
	ErrInvalidChunkBlocks = errors.New("invalid checksum chunk blocks: must be positive")

	// ErrInvalidConcurrency is returned when the CSV read concurrency is not positive.
	ErrInvalidConcurrency = errors.New("invalid read concurrency: must be positive")

	// ErrEmptyDefaultFilename is returned when the fallback archive name is empty.
	ErrEmptyDefaultFilename = errors.New("invalid default filename: must not be empty")
)
