package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrUpstreamUnavailable means the store could not be reached after all retries.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	// ErrInvalidAppID means the store has no such app, or the id is malformed.
	ErrInvalidAppID = errors.New("invalid app id")
	// ErrInvalidRequest is returned before any upstream call for bad inputs.
	ErrInvalidRequest = errors.New("invalid request")
)

// TransientError is a failure worth retrying (network, 429, 5xx).
type TransientError struct {
	Status     int // 0 for transport errors
	RetryAfter time.Duration
	Err        error
}

func (e *TransientError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("transient upstream error: status %d", e.Status)
	}
	return fmt.Sprintf("transient upstream error: %v", e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// IsTransient reports whether err should be retried.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// InvalidRequestf wraps ErrInvalidRequest with a caller-facing reason.
func InvalidRequestf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}
