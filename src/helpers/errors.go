package helpers

import (
	"fmt"

	"tick-stream/src/logger"
)

// -----------------------------------------------------------------------------
// Custom Error Types
// -----------------------------------------------------------------------------

type TickStreamError struct {
	Message string
	Cause   error
}

func (e *TickStreamError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *TickStreamError) Unwrap() error {
	return e.Cause
}

// Distinct error types for type assertions where callers care.
// Transport and protocol errors are both retryable; the split exists only
// for the journal detail field and log lines.
type ConfigurationError struct{ TickStreamError }
type TransportError struct{ TickStreamError }
type ProtocolError struct{ TickStreamError }
type StorageError struct{ TickStreamError }

// -----------------------------------------------------------------------------

func NewConfigurationError(msg string, cause error) *ConfigurationError {
	return &ConfigurationError{TickStreamError{Message: msg, Cause: cause}}
}

func NewTransportError(msg string, cause error) *TransportError {
	return &TransportError{TickStreamError{Message: msg, Cause: cause}}
}

func NewProtocolError(msg string, cause error) *ProtocolError {
	return &ProtocolError{TickStreamError{Message: msg, Cause: cause}}
}

func NewStorageError(msg string, cause error) *StorageError {
	return &StorageError{TickStreamError{Message: msg, Cause: cause}}
}

// -----------------------------------------------------------------------------
// Error Handler
// -----------------------------------------------------------------------------

type ErrorHandler struct {
	Logger *logger.Logger
}

func NewErrorHandler() *ErrorHandler {
	return &ErrorHandler{
		Logger: logger.NewLogger(nil, "ErrorHandler"),
	}
}

// -----------------------------------------------------------------------------

// Handle logs an error with its context. Journal and broadcast failures all
// funnel through here so the hot path stays a one-liner.
func (e *ErrorHandler) Handle(err error, context string) {
	if err != nil {
		e.Logger.Error("Error in %s: %v", context, err)
	}
}
