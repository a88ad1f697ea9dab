// Package errors provides standardized error handling for the partner intake flow.
package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Local validation, detected before any network call.
	ErrCodeInvalidPhone ErrorCode = "INVALID_PHONE"
	ErrCodeInvalidEmail ErrorCode = "INVALID_EMAIL"
	ErrCodeMissingField ErrorCode = "MISSING_FIELD"

	// Lead intake endpoint outcomes.
	ErrCodeServerError    ErrorCode = "SERVER_ERROR"
	ErrCodeTransportError ErrorCode = "TRANSPORT_ERROR"
	ErrCodeDecodeFailed   ErrorCode = "RESPONSE_DECODE_FAILED"

	// Authorization signal raised by the request client on 401.
	ErrCodeAuthExpired ErrorCode = "AUTH_EXPIRED"

	ErrCodeFormSubmitted ErrorCode = "FORM_SUBMITTED"
	ErrCodeConfigInvalid ErrorCode = "CONFIG_INVALID"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	cause     error
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause, if any.
func (e *StandardError) Unwrap() error {
	return e.cause
}

// Is matches another *StandardError by code so callers can use
// errors.Is(err, errors.ErrFormSubmitted).
func (e *StandardError) Is(target error) bool {
	t, ok := target.(*StandardError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// ErrFormSubmitted is returned by any form operation attempted after the
// terminal submitted state was reached.
var ErrFormSubmitted = &StandardError{
	Code:    ErrCodeFormSubmitted,
	Message: "Form already submitted",
}

// ==========================
// 2. Error Constructors
// ==========================

// NewInvalidPhoneError creates a validation error for a phone that is not 10 digits.
func NewInvalidPhoneError(digits int) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidPhone,
		Message:   "Phone number must be exactly 10 digits",
		Details:   fmt.Sprintf("got %d digits", digits),
		Retryable: false,
		Metadata:  map[string]interface{}{"digits": digits},
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidEmailError creates a validation error for a malformed email.
func NewInvalidEmailError(email string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidEmail,
		Message:   "Invalid email address",
		Details:   fmt.Sprintf("%q does not match local@domain.tld", email),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewMissingFieldError creates a validation error for a required or
// constrained field left blank or outside its allowed values.
func NewMissingFieldError(field, rule string) *StandardError {
	return &StandardError{
		Code:      ErrCodeMissingField,
		Message:   "Required field missing or invalid",
		Details:   fmt.Sprintf("%s failed %s", field, rule),
		Retryable: false,
		Metadata:  map[string]interface{}{"field": field, "rule": rule},
		Timestamp: time.Now().UTC(),
	}
}

// NewServerError creates an error for a non-2xx response. The server
// message is kept in Details for logging only.
func NewServerError(status int, serverMessage string) *StandardError {
	return &StandardError{
		Code:      ErrCodeServerError,
		Message:   fmt.Sprintf("Server responded with status %d", status),
		Details:   serverMessage,
		Retryable: false,
		Metadata:  map[string]interface{}{"status": status},
		Timestamp: time.Now().UTC(),
	}
}

// NewTransportError creates an error for a request that got no response.
func NewTransportError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeTransportError,
		Message:   "No response from lead intake endpoint",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewDecodeError creates an error for a 2xx body that could not be parsed.
func NewDecodeError(status int, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDecodeFailed,
		Message:   "Failed to decode response body",
		Details:   err.Error(),
		Retryable: false,
		Metadata:  map[string]interface{}{"status": status},
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewAuthExpiredError records that a 401 cleared the stored bearer token.
func NewAuthExpiredError(path string) *StandardError {
	return &StandardError{
		Code:      ErrCodeAuthExpired,
		Message:   "Bearer token rejected",
		Details:   path,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewConfigInvalidError wraps a configuration validation failure. The
// failure text is part of Message since it is only ever shown to operators.
func NewConfigInvalidError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeConfigInvalid,
		Message:   "Invalid configuration: " + err.Error(),
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// ==========================
// 3. Utility Functions
// ==========================

// AsStandardError extracts a *StandardError from err.
func AsStandardError(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// StatusFrom returns the HTTP status recorded on a SERVER_ERROR, or 0.
func StatusFrom(err error) int {
	stdErr, ok := AsStandardError(err)
	if !ok || stdErr.Metadata == nil {
		return 0
	}
	if status, ok := stdErr.Metadata["status"].(int); ok {
		return status
	}
	return 0
}

// IsValidationError reports whether err was raised before any network call.
func IsValidationError(err error) bool {
	stdErr, ok := AsStandardError(err)
	if !ok {
		return false
	}
	return GetErrorCategory(stdErr.Code) == "VALIDATION"
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.HasPrefix(codeStr, "INVALID") || strings.HasPrefix(codeStr, "MISSING"):
		return "VALIDATION"
	case codeStr == string(ErrCodeServerError) || codeStr == string(ErrCodeDecodeFailed):
		return "SERVER"
	case codeStr == string(ErrCodeTransportError):
		return "TRANSPORT"
	case strings.HasPrefix(codeStr, "AUTH"):
		return "AUTH"
	default:
		return "OTHER"
	}
}
