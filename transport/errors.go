package transport

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cairocart/storefront-go/core"
)

// FallbackErrorMessage is surfaced when no message can be extracted from an
// error response body.
const FallbackErrorMessage = "Something went wrong. Please try again."

// APIError carries the HTTP status, the backend error code, and the best
// human-readable message that could be extracted from the response body.
// It wraps a sentinel from core so callers can classify with errors.Is.
type APIError struct {
	Status  int
	Code    string
	Message string
	Err     error

	// retryAfter holds the parsed Retry-After value from a 429 response
	retryAfter time.Duration
}

// Error returns the string representation of the error
func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// Unwrap returns the sentinel for use with errors.Is/As
func (e *APIError) Unwrap() error {
	return e.Err
}

// sentinelForStatus maps an HTTP status to the core sentinel it wraps
func sentinelForStatus(status int) error {
	switch {
	case status == http.StatusTooManyRequests:
		return core.ErrRateLimited
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return core.ErrUnauthorized
	case status == http.StatusNotFound:
		return core.ErrNotFound
	default:
		return core.ErrRequestFailed
	}
}

// errorBody is the union of error response shapes the backend is known to
// send. Some endpoints nest the error, some send it flat.
type errorBody struct {
	Success *bool  `json:"success"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Error   *struct {
		Message string   `json:"message"`
		Code    string   `json:"code"`
		Errors  []string `json:"errors"`
		Data    struct {
			Message string `json:"message"`
		} `json:"data"`
	} `json:"error"`
	Errors []string `json:"errors"`
}

// ExtractErrorMessage pulls the most specific human-readable message out of
// an error response body. Preference order: error.message, then
// error.data.message, then the first of error.errors[], then the top-level
// message, then a fixed fallback.
func ExtractErrorMessage(body []byte) string {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		return FallbackErrorMessage
	}

	if eb.Error != nil {
		if eb.Error.Message != "" {
			return eb.Error.Message
		}
		if eb.Error.Data.Message != "" {
			return eb.Error.Data.Message
		}
		if len(eb.Error.Errors) > 0 && eb.Error.Errors[0] != "" {
			return eb.Error.Errors[0]
		}
	}
	if len(eb.Errors) > 0 && eb.Errors[0] != "" {
		return eb.Errors[0]
	}
	if eb.Message != "" {
		return eb.Message
	}
	return FallbackErrorMessage
}

// extractErrorCode pulls the backend error code when present
func extractErrorCode(body []byte) string {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		return ""
	}
	if eb.Error != nil && eb.Error.Code != "" {
		return eb.Error.Code
	}
	return eb.Code
}

// newAPIError builds an APIError from a non-2xx response body
func newAPIError(status int, body []byte) *APIError {
	return &APIError{
		Status:  status,
		Code:    extractErrorCode(body),
		Message: ExtractErrorMessage(body),
		Err:     sentinelForStatus(status),
	}
}
