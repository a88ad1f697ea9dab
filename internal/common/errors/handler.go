// internal/common/errors/handler.go
package errors

import (
	"time"
)

// ErrorHandler normalizes and logs errors at the point where they are
// turned into user-facing notices.
type ErrorHandler struct {
	logger Logger
}

type Logger interface {
	Error(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
}

func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// Handle converts err into a StandardError and logs it. Validation and
// auth errors are logged at warn, everything else at error.
// Server-provided messages only ever reach the log, never the returned
// Message.
func (h *ErrorHandler) Handle(operation string, err error) *StandardError {
	if err == nil {
		return nil
	}
	stdErr := h.normalizeError(err)

	fields := map[string]interface{}{
		"operation":     operation,
		"errorCode":     string(stdErr.Code),
		"message":       stdErr.Message,
		"details":       stdErr.Details,
		"errorCategory": GetErrorCategory(stdErr.Code),
	}
	for k, v := range stdErr.Metadata {
		fields[k] = v
	}

	switch GetErrorCategory(stdErr.Code) {
	case "VALIDATION":
		h.logger.Warn("Validation failed", fields)
	case "AUTH":
		h.logger.Warn("Authorization rejected", fields)
	default:
		h.logger.Error("Operation failed", fields)
	}
	return stdErr
}

// normalizeError ensures we always have a StandardError
func (h *ErrorHandler) normalizeError(err error) *StandardError {
	if stdErr, ok := AsStandardError(err); ok {
		return stdErr
	}
	return &StandardError{
		Code:      "INTERNAL_ERROR",
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}
