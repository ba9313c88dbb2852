// Package apperr defines the sentinel errors the control-plane handlers translate
// into HTTP status codes.
package apperr

import "errors"

var (
	// ErrNotFound means the requested fund, scheme, or analytics row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict means a pipeline run was requested while one was already in flight.
	ErrConflict = errors.New("conflict")
	// ErrValidation means a request parameter was missing or malformed.
	ErrValidation = errors.New("validation failed")
	// ErrRateLimited means the upstream API returned 429, indicating limiter drift.
	// Per spec this is fatal, not retryable.
	ErrRateLimited = errors.New("upstream rate limit breach")
)
