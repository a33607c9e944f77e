// Package errors provides the standardized error taxonomy for the
// notification fan-out pipeline.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Weather or push provider HTTP call failed or returned non-2xx.
	ErrCodeProviderUnavailable ErrorCode = "PROVIDER_UNAVAILABLE"
	// Provider responded 2xx but the expected fields were absent.
	ErrCodeProviderMalformedResponse ErrorCode = "PROVIDER_MALFORMED_RESPONSE"
	// Store scan/get/set/delete failed; the current run cannot proceed.
	ErrCodeStoreUnavailable ErrorCode = "STORE_UNAVAILABLE"
	// Recipient record is missing coordinates or token; skipped, never fatal.
	ErrCodeInvalidRecipient ErrorCode = "INVALID_RECIPIENT"
	// Fan-out trigger called without the scheduler authorization key.
	ErrCodeUnauthorizedTrigger ErrorCode = "UNAUTHORIZED_TRIGGER"
	// Geocoding lookup returned no results for the searched city.
	ErrCodeCityNotFound ErrorCode = "CITY_NOT_FOUND"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Retryable bool      `json:"retryable"`
	Timestamp time.Time `json:"timestamp"`
	cause     error
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

// NewProviderUnavailableError creates a retryable provider transport error.
func NewProviderUnavailableError(provider string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeProviderUnavailable,
		Message:   fmt.Sprintf("Provider '%s' call failed", provider),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewProviderMalformedResponseError creates an error for a 2xx response that
// is missing expected fields. Treated like an unavailable provider by callers.
func NewProviderMalformedResponseError(provider, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeProviderMalformedResponse,
		Message:   fmt.Sprintf("Provider '%s' returned a malformed response", provider),
		Details:   details,
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewStoreUnavailableError creates a run-aborting store error.
func NewStoreUnavailableError(operation string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeStoreUnavailable,
		Message:   "Token/location store operation failed",
		Details:   fmt.Sprintf("operation: %s, error: %s", operation, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewInvalidRecipientError marks a recipient record failing the eligibility
// invariant. Recipients with this error are skipped, not surfaced.
func NewInvalidRecipientError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidRecipient,
		Message:   "Recipient record is incomplete",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewUnauthorizedTriggerError creates a non-retryable trigger rejection.
func NewUnauthorizedTriggerError() *StandardError {
	return &StandardError{
		Code:      ErrCodeUnauthorizedTrigger,
		Message:   "Fan-out trigger rejected: missing or invalid scheduler key",
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewCityNotFoundError creates a non-retryable geocoding miss.
func NewCityNotFoundError(city string) *StandardError {
	return &StandardError{
		Code:      ErrCodeCityNotFound,
		Message:   "City not found",
		Details:   fmt.Sprintf("query: %s", city),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// HasCode reports whether err is (or wraps) a StandardError with the given code.
func HasCode(err error, code ErrorCode) bool {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr.Code == code
	}
	return false
}

// IsRetryable reports whether err carries a retryable StandardError.
func IsRetryable(err error) bool {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr.Retryable
	}
	return false
}
