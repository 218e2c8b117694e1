package fetch

import "errors"

var (
	// ErrInvalidProxyAddress is returned when the proxy address is not "host:port".
	ErrInvalidProxyAddress = errors.New("invalid proxy address format: expected host:port")

	// ErrUnexpectedStatus is returned when the endpoint answers a download
	// with a non-2xx status.
	ErrUnexpectedStatus = errors.New("unexpected HTTP status")

	// ErrInvalidBlockSize is returned when the streaming block size is not positive.
	ErrInvalidBlockSize = errors.New("block size must be positive")
)
