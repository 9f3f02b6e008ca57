package errors

import (
	"errors"
	"fmt"
)

// Licensing and storage errors. Callers wrap these with fmt.Errorf("...: %w")
// and match with errors.Is.
var (
	ErrNetwork            = errors.New("license server unreachable")
	ErrServerRejected     = errors.New("license rejected by server")
	ErrMalformedResponse  = errors.New("malformed license server response")
	ErrRateLimited        = errors.New("rate limited")
	ErrStorageUnavailable = errors.New("secure storage unavailable")
	ErrUnknownProvider    = errors.New("unknown api key provider")
)

// ErrEmptyKey is returned when a license key is empty after trimming.
var ErrEmptyKey = &ValidationError{
	Field:   "license_key",
	Code:    "empty_key",
	Message: "license key is empty",
}

// ValidationError describes a rejected input field.
type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError creates a validation error for a single field
func NewValidationError(field, code, message string) *ValidationError {
	return &ValidationError{Field: field, Code: code, Message: message}
}

// Reason returns a short machine-readable label for err, suitable for
// metric attributes and log fields.
func Reason(err error) string {
	var verr *ValidationError
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrEmptyKey):
		return "empty_key"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrNetwork):
		return "network"
	case errors.Is(err, ErrMalformedResponse):
		return "malformed_response"
	case errors.Is(err, ErrServerRejected):
		return "rejected"
	case errors.Is(err, ErrStorageUnavailable):
		return "storage"
	case errors.Is(err, ErrUnknownProvider):
		return "unknown_provider"
	case errors.As(err, &verr):
		return verr.Code
	default:
		return "internal"
	}
}
