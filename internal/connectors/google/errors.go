package google

import (
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/api/googleapi"

	"github.com/custodia-labs/navo/internal/core/domain"
)

// Common Google API errors.
var (
	// ErrUnauthorized indicates invalid or expired credentials.
	ErrUnauthorized = errors.New("google: unauthorised (invalid credentials)")

	// ErrForbidden indicates insufficient permissions.
	ErrForbidden = errors.New("google: forbidden (insufficient permissions)")

	// ErrNotFound indicates the requested resource was not found.
	ErrNotFound = errors.New("google: resource not found")

	// ErrBadRequest indicates the API rejected the query.
	ErrBadRequest = errors.New("google: bad request")
)

// IsRateLimited returns true if the error indicates rate limiting.
func IsRateLimited(err error) bool {
	if errors.Is(err, domain.ErrRateLimited) {
		return true
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code == http.StatusTooManyRequests
	}
	return false
}

// WrapError converts a Google API error into the domain taxonomy.
// Credential, permission and query failures are permanent.
func WrapError(err error) error {
	if err == nil {
		return nil
	}

	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return err
	}

	switch gerr.Code {
	case http.StatusUnauthorized:
		return domain.Permanent(fmt.Errorf("%w: %s", ErrUnauthorized, gerr.Message))
	case http.StatusForbidden:
		return domain.Permanent(fmt.Errorf("%w: %s", ErrForbidden, gerr.Message))
	case http.StatusNotFound:
		return domain.Permanent(fmt.Errorf("%w: %s", ErrNotFound, gerr.Message))
	case http.StatusBadRequest:
		return domain.Permanent(fmt.Errorf("%w: %s", ErrBadRequest, gerr.Message))
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %w", domain.ErrRateLimited, err)
	default:
		return err
	}
}
