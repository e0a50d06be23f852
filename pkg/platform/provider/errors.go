package provider

import (
	"fmt"
	"net/http"
	"time"
)

// StatusRateLimit is the HTTP status the provider uses to signal throttling.
const StatusRateLimit = http.StatusTooManyRequests

// RateLimitError indicates the provider throttled the request. Callers are
// expected to open a backoff window for the platform. RetryAfter is zero
// when the provider gave no hint.
type RateLimitError struct {
	RetryAfter time.Duration
	Message    string
}

func NewRateLimitError(retryAfter time.Duration, message string) *RateLimitError {
	if message == "" {
		message = "rate limit exceeded"
	}
	return &RateLimitError{RetryAfter: retryAfter, Message: message}
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("provider: %s (retry after %s)", e.Message, e.RetryAfter)
	}
	return fmt.Sprintf("provider: %s", e.Message)
}

// ThrottledFor returns the provider's retry hint, zero when it gave none.
func (e *RateLimitError) ThrottledFor() time.Duration {
	return e.RetryAfter
}

// APIError is a non-throttling error response from the provider.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("provider: API error %d: %s", e.StatusCode, e.Message)
}

// ConnectionError wraps transport-level failures reaching the provider.
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("provider: connection error: %v", e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}
