package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an unknown source adapter type.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrInvalidSettings indicates configuration failed validation at load.
	ErrInvalidSettings = errors.New("invalid settings")

	// Input Errors. Rejected before any network call.

	// ErrEmptyQuery indicates the query is empty or too short after normalisation.
	ErrEmptyQuery = errors.New("empty query")

	// ErrQueryTooLong indicates the query exceeds the configured character limit.
	ErrQueryTooLong = errors.New("query too long")

	// ErrUnknownSource indicates a source filter names a source that is not enabled.
	ErrUnknownSource = errors.New("unknown source")

	// Source Errors. Absorbed into degraded-source metadata.

	// ErrSourceUnavailable indicates one source adapter was excluded from a pass.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrSourcePermanent marks an adapter failure that retrying cannot fix.
	ErrSourcePermanent = errors.New("permanent source failure")

	// ErrAllSourcesUnavailable indicates every dispatched source failed.
	ErrAllSourcesUnavailable = errors.New("all sources unavailable")

	// ErrRateLimited indicates an upstream rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")

	// ErrSourceClosed indicates a search on a closed source adapter.
	ErrSourceClosed = errors.New("source closed")

	// Cache Errors.

	// ErrCacheMiss indicates a tier does not hold the fingerprint.
	ErrCacheMiss = errors.New("cache miss")

	// ErrCacheUnavailable indicates no cache tier could be reached.
	ErrCacheUnavailable = errors.New("cache unavailable")

	// Reasoning Errors.

	// ErrStepFailed indicates one reasoning step failed.
	ErrStepFailed = errors.New("reasoning step failed")

	// ErrCompletionUnavailable indicates the completion service is not configured.
	ErrCompletionUnavailable = errors.New("completion service unavailable")
)

// InputError is returned for queries rejected before orchestration.
// It matches both its cause and ErrInvalidInput with errors.Is.
type InputError struct {
	Err    error
	Detail string
}

// NewInputError wraps a cause with detail.
func NewInputError(err error, format string, args ...any) *InputError {
	return &InputError{Err: err, Detail: fmt.Sprintf(format, args...)}
}

func (e *InputError) Error() string {
	if e.Detail == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %s", e.Err, e.Detail)
}

// Unwrap returns the cause.
func (e *InputError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrInvalidInput.
func (e *InputError) Is(target error) bool {
	return target == ErrInvalidInput
}

// IsInputError reports whether err is an InputError.
func IsInputError(err error) bool {
	var inputErr *InputError
	return errors.As(err, &inputErr)
}

// SourceError records why a source was excluded from a pass.
type SourceError struct {
	SourceID string
	Attempts int
	Err      error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("source %s failed after %d attempt(s): %v", e.SourceID, e.Attempts, e.Err)
}

// Unwrap returns the cause.
func (e *SourceError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrSourceUnavailable.
func (e *SourceError) Is(target error) bool {
	return target == ErrSourceUnavailable
}

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrSourcePermanent, err)
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrSourcePermanent)
}
