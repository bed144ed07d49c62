package classifier

import (
	"errors"
	"fmt"
)

// Sentinel errors for common conditions.
var (
	// ErrNoFrames is returned when Classify is called with an empty batch.
	ErrNoFrames = errors.New("classifier: at least one frame required")

	// ErrBadLabel is returned when the backend responds with an
	// unrecognized prediction label.
	ErrBadLabel = errors.New("classifier: unrecognized prediction label")
)

// APIError represents an error response from the classification backend.
type APIError struct {
	// StatusCode is the HTTP status code.
	StatusCode int

	// Detail is the error detail from the backend.
	Detail string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("classifier: API error %d: %s", e.StatusCode, e.Detail)
}

// IsRateLimited returns true if this is a rate limit error (HTTP 429).
func (e *APIError) IsRateLimited() bool {
	return e.StatusCode == 429
}

// IsServerError returns true if this is a server-side error (HTTP 5xx).
func (e *APIError) IsServerError() bool {
	return e.StatusCode >= 500 && e.StatusCode < 600
}

// IsRetryable returns true if the request should be retried.
func (e *APIError) IsRetryable() bool {
	return e.IsRateLimited() || e.IsServerError()
}
