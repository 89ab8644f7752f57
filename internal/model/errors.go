package model

import (
	"errors"
	"fmt"
)

// Sentinel errors for common cases.
// Use errors.Is() to check against these.
var (
	ErrNotFound       = errors.New("not found")
	ErrInvalidRequest = errors.New("invalid request")
	ErrUpstreamError  = errors.New("upstream error")
	ErrRateLimited    = errors.New("rate limited")

	// Payload errors. Both fail closed: the popup never opens on a
	// payload the parser rejects.
	ErrPayloadMissing   = errors.New("payload missing")
	ErrPayloadMalformed = errors.New("payload malformed")

	// Session and popup state errors.
	ErrSessionNotFound = errors.New("session not found")
	ErrPopupClosed     = errors.New("popup closed")
	ErrUnknownOption   = errors.New("unknown option")

	// Add-to-cart pipeline errors. These never escape the submitter as
	// failures; they are translated into popup messages.
	ErrIncompleteSelection = errors.New("incomplete selection")
	ErrNoMatchingVariant   = errors.New("no matching variant")
	ErrSoldOut             = errors.New("sold out")
)

// APIError represents a structured error for API responses.
// Implements error interface and supports unwrapping.
type APIError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"` // HTTP status, not serialized
	Err        error  `json:"-"` // Wrapped error, not serialized
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// NewNotFoundError creates a 404 error for missing resources.
func NewNotFoundError(resource string) *APIError {
	return &APIError{
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		StatusCode: 404,
		Err:        ErrNotFound,
	}
}

// NewSessionError creates a 404 error for unknown or expired sessions.
func NewSessionError(id string) *APIError {
	return &APIError{
		Code:       "SESSION_NOT_FOUND",
		Message:    fmt.Sprintf("session %s not found or expired", id),
		StatusCode: 404,
		Err:        ErrSessionNotFound,
	}
}

// NewValidationError creates a 400 error for invalid input.
// The message carries the platform's own description when one exists, so
// the shopper sees the specific reason an add was rejected.
func NewValidationError(field, reason string) *APIError {
	return &APIError{
		Code:       "VALIDATION_ERROR",
		Message:    fmt.Sprintf("invalid %s: %s", field, reason),
		StatusCode: 400,
		Err:        ErrInvalidRequest,
	}
}

// NewCartRejectedError creates a 422 error for cart additions the
// platform refused. Description is the platform's human-readable reason.
func NewCartRejectedError(description string) *APIError {
	return &APIError{
		Code:       "CART_REJECTED",
		Message:    description,
		StatusCode: 422,
		Err:        ErrInvalidRequest,
	}
}

// NewPayloadError creates a 502 error for payloads that failed to parse.
func NewPayloadError(location string, err error) *APIError {
	return &APIError{
		Code:       "PAYLOAD_ERROR",
		Message:    fmt.Sprintf("payload at %s could not be parsed", location),
		StatusCode: 502,
		Err:        fmt.Errorf("%w: %v", ErrPayloadMalformed, err),
	}
}

// NewUpstreamError creates a 502 error for storefront failures.
func NewUpstreamError(service string, err error) *APIError {
	return &APIError{
		Code:       "UPSTREAM_ERROR",
		Message:    fmt.Sprintf("%s request failed", service),
		StatusCode: 502,
		Err:        fmt.Errorf("%w: %v", ErrUpstreamError, err),
	}
}

// NewInternalError creates a 500 error for unexpected failures.
func NewInternalError(err error) *APIError {
	return &APIError{
		Code:       "INTERNAL_ERROR",
		Message:    "an internal error occurred",
		StatusCode: 500,
		Err:        err,
	}
}

// NewRateLimitError creates a 429 error for rate limiting.
func NewRateLimitError(service string) *APIError {
	return &APIError{
		Code:       "RATE_LIMITED",
		Message:    fmt.Sprintf("%s rate limit exceeded, please retry later", service),
		StatusCode: 429,
		Err:        ErrRateLimited,
	}
}
