package util

import "errors"

// Sentinel errors for common failure modes
var (
	// ErrMalformedHandle indicates a file or query handle that cannot be decoded
	ErrMalformedHandle = errors.New("malformed handle")

	// ErrProviderUnavailable indicates the metadata provider could not be reached
	// or returned an unusable response
	ErrProviderUnavailable = errors.New("metadata provider unavailable")

	// ErrInvalidConfig indicates invalid configuration
	ErrInvalidConfig = errors.New("invalid configuration")
)
