package schema

import (
	"errors"
	"fmt"
)

// Error codes for structured error reporting.
const (
	ErrCodeValidation     = "VALIDATION_ERROR"
	ErrCodeMalformedInput = "MALFORMED_INPUT"
	ErrCodePolicyDenied   = "POLICY_DENIED"
	ErrCodeEnvelope       = "ENVELOPE_ERROR"
	ErrCodeKeyFile        = "KEY_FILE_ERROR"
	ErrCodeResolve        = "RESOLVE_ERROR"
	ErrCodeTimeout        = "TIMEOUT_ERROR"
	ErrCodeStore          = "STORE_ERROR"
	ErrCodeNotFound       = "NOT_FOUND"
)

// CredgateError is the structured error type for all credgate operations.
type CredgateError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	Cause   error          `json:"-"`
}

func (e *CredgateError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *CredgateError) Unwrap() error {
	return e.Cause
}

// NewError creates a new CredgateError.
func NewError(code, message string) *CredgateError {
	return &CredgateError{Code: code, Message: message}
}

// NewErrorf creates a new CredgateError with a formatted message.
func NewErrorf(code, format string, args ...any) *CredgateError {
	return &CredgateError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithCause attaches an underlying cause.
func (e *CredgateError) WithCause(err error) *CredgateError {
	e.Cause = err
	return e
}

// WithDetails attaches key-value details.
func (e *CredgateError) WithDetails(details map[string]any) *CredgateError {
	e.Details = details
	return e
}

// IsCode reports whether err (or anything it wraps) is a CredgateError with
// the given code.
func IsCode(err error, code string) bool {
	var ce *CredgateError
	return errors.As(err, &ce) && ce.Code == code
}
