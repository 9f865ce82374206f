// Package platform provides the shared upstream adapter plumbing: the typed
// error taxonomy, HTTP status classification, and a bounded JSON fetcher.
package platform

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
)

// Code classifies an upstream failure.
type Code string

const (
	// CodeRateLimited is an upstream HTTP 429.
	CodeRateLimited Code = "RATE_LIMITED"

	// CodeNotFound is an upstream HTTP 404.
	CodeNotFound Code = "NOT_FOUND"

	// CodeUpstream covers upstream 5xx and network failures.
	CodeUpstream Code = "UPSTREAM_ERROR"

	// CodeConfig indicates missing credentials or configuration.
	CodeConfig Code = "CONFIG_ERROR"

	// CodeTimeout is an exceeded upstream deadline.
	CodeTimeout Code = "TIMEOUT"

	// CodeUnknown covers everything else.
	CodeUnknown Code = "UNKNOWN"
)

// Error is the typed failure every adapter raises. Status is the HTTP status
// surfaced to the dashboard client, not the upstream's own status.
type Error struct {
	Code       Code
	Status     int
	Message    string
	RetryAfter int // seconds, 0 when unknown
	Err        error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s (status %d): %s: %v", e.Code, e.Status, e.Message, e.Err)
	}
	return fmt.Sprintf("%s (status %d): %s", e.Code, e.Status, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a typed platform error.
func NewError(code Code, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// ConfigError reports missing credentials for an adapter.
func ConfigError(message string) *Error {
	return &Error{Code: CodeConfig, Status: http.StatusInternalServerError, Message: message}
}

// Classify maps an upstream response or transport error onto the taxonomy:
// 429 -> RATE_LIMITED with Retry-After propagated, 404 -> NOT_FOUND,
// 5xx and network failures -> UPSTREAM_ERROR surfaced as 502, exceeded
// deadlines -> TIMEOUT.
func Classify(name string, resp *http.Response, err error) *Error {
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return &Error{
				Code:    CodeTimeout,
				Status:  http.StatusGatewayTimeout,
				Message: fmt.Sprintf("%s request timed out", name),
				Err:     err,
			}
		}
		return &Error{
			Code:    CodeUpstream,
			Status:  http.StatusBadGateway,
			Message: fmt.Sprintf("%s request failed", name),
			Err:     err,
		}
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return &Error{
			Code:       CodeRateLimited,
			Status:     http.StatusTooManyRequests,
			Message:    fmt.Sprintf("%s rate limit exceeded", name),
			RetryAfter: parseRetryAfter(resp.Header),
		}
	case resp.StatusCode == http.StatusNotFound:
		return &Error{
			Code:    CodeNotFound,
			Status:  http.StatusNotFound,
			Message: fmt.Sprintf("%s resource not found", name),
		}
	case resp.StatusCode >= 500:
		return &Error{
			Code:    CodeUpstream,
			Status:  http.StatusBadGateway,
			Message: fmt.Sprintf("%s returned status %d", name, resp.StatusCode),
		}
	default:
		return &Error{
			Code:    CodeUnknown,
			Status:  http.StatusInternalServerError,
			Message: fmt.Sprintf("%s returned unexpected status %d", name, resp.StatusCode),
		}
	}
}

// AsError coerces any error into a typed platform Error.
func AsError(err error) *Error {
	var platformErr *Error
	if errors.As(err, &platformErr) {
		return platformErr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{
			Code:    CodeTimeout,
			Status:  http.StatusGatewayTimeout,
			Message: "upstream request timed out",
			Err:     err,
		}
	}
	return &Error{
		Code:    CodeUnknown,
		Status:  http.StatusInternalServerError,
		Message: "internal error",
		Err:     err,
	}
}

// IsRateLimited reports whether err carries the RATE_LIMITED code. Aggregate
// fetches use it to abort on throttling instead of degrading partially.
func IsRateLimited(err error) bool {
	var platformErr *Error
	return errors.As(err, &platformErr) && platformErr.Code == CodeRateLimited
}

// parseRetryAfter reads a whole-seconds Retry-After header, 0 when absent or
// unparseable.
func parseRetryAfter(headers http.Header) int {
	value := headers.Get("Retry-After")
	if value == "" {
		return 0
	}
	seconds, err := strconv.Atoi(value)
	if err != nil || seconds < 0 {
		return 0
	}
	return seconds
}
