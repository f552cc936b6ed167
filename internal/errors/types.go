// Package errors defines the structured error type used by techviz. A
// VizError carries a category, a stable code and optional location context
// so callers can both branch on it and show it to a user.
package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents different categories of errors.
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeSecurity   ErrorType = "security"
	ErrorTypeIO         ErrorType = "io"
	ErrorTypeNetwork    ErrorType = "network"
	ErrorTypeConfig     ErrorType = "config"
	ErrorTypeInternal   ErrorType = "internal"
)

// VizError is a structured error type with context.
type VizError struct {
	Type        ErrorType
	Code        string
	Message     string
	Cause       error
	Context     map[string]interface{}
	Component   string
	FilePath    string
	Line        int
	Column      int
	Recoverable bool
}

// Error implements the error interface.
func (e *VizError) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}

	if e.Component != "" {
		parts = append(parts, "component:"+e.Component)
	}

	if e.FilePath != "" {
		location := e.FilePath
		if e.Line > 0 {
			location += fmt.Sprintf(":%d", e.Line)
			if e.Column > 0 {
				location += fmt.Sprintf(":%d", e.Column)
			}
		}
		parts = append(parts, location)
	}

	parts = append(parts, e.Message)

	result := strings.Join(parts, " ")

	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}

	return result
}

// Unwrap returns the underlying cause error.
func (e *VizError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a VizError with the same type and code.
func (e *VizError) Is(target error) bool {
	var t *VizError
	if errors.As(target, &t) {
		return e.Type == t.Type && e.Code == t.Code
	}

	return false
}

// WithContext adds context information to the error.
func (e *VizError) WithContext(key string, value interface{}) *VizError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value

	return e
}

// WithLocation adds file location information.
func (e *VizError) WithLocation(filePath string, line, column int) *VizError {
	e.FilePath = filePath
	e.Line = line
	e.Column = column

	return e
}

// WithComponent adds component context.
func (e *VizError) WithComponent(component string) *VizError {
	e.Component = component

	return e
}

// WithCause sets the underlying error.
func (e *VizError) WithCause(cause error) *VizError {
	e.Cause = cause

	return e
}

// NewValidationError creates a validation error.
func NewValidationError(code, message string) *VizError {
	return &VizError{
		Type:        ErrorTypeValidation,
		Code:        code,
		Message:     message,
		Recoverable: true,
	}
}

// NewSecurityError creates a security error.
func NewSecurityError(code, message string) *VizError {
	return &VizError{
		Type:    ErrorTypeSecurity,
		Code:    code,
		Message: message,
	}
}

// NewIOError creates an I/O error.
func NewIOError(code, message string, cause error) *VizError {
	return &VizError{
		Type:    ErrorTypeIO,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewNetworkError creates a network error. Network errors are recoverable:
// a client may reconnect.
func NewNetworkError(code, message string, cause error) *VizError {
	return &VizError{
		Type:        ErrorTypeNetwork,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: true,
	}
}

// NewConfigError creates a configuration error.
func NewConfigError(code, message string) *VizError {
	return &VizError{
		Type:    ErrorTypeConfig,
		Code:    code,
		Message: message,
	}
}

// NewInternalError creates an internal error.
func NewInternalError(code, message string, cause error) *VizError {
	return &VizError{
		Type:    ErrorTypeInternal,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// IsRecoverable checks if an error is recoverable.
func IsRecoverable(err error) bool {
	var ve *VizError
	if errors.As(err, &ve) {
		return ve.Recoverable
	}

	return false
}

// IsType reports whether err is a VizError of type t.
func IsType(err error, t ErrorType) bool {
	var ve *VizError
	if errors.As(err, &ve) {
		return ve.Type == t
	}

	return false
}

// IsValidationError checks if an error is a validation error.
func IsValidationError(err error) bool {
	return IsType(err, ErrorTypeValidation)
}

// IsSecurityError checks if an error is security-related.
func IsSecurityError(err error) bool {
	return IsType(err, ErrorTypeSecurity)
}

// Logger is the subset of the logging interface the handler needs.
type Logger interface {
	Error(ctx context.Context, err error, msg string, fields ...interface{})
	Warn(ctx context.Context, err error, msg string, fields ...interface{})
}

// ErrorHandler logs errors at a level chosen by their type.
type ErrorHandler struct {
	logger Logger
}

// NewErrorHandler creates a new error handler.
func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// Handle logs err. Validation and network errors are warnings, everything
// else is an error.
func (h *ErrorHandler) Handle(ctx context.Context, err error) {
	if err == nil || h.logger == nil {
		return
	}

	var ve *VizError
	if !errors.As(err, &ve) {
		h.logger.Error(ctx, err, "Unhandled error occurred")
		return
	}

	if IsRecoverable(err) {
		h.logger.Warn(ctx, err, "Recoverable error occurred",
			"type", ve.Type,
			"code", ve.Code,
			"component", ve.Component)
		return
	}
	h.logger.Error(ctx, err, "Error occurred",
		"type", ve.Type,
		"code", ve.Code,
		"component", ve.Component,
		"file", ve.FilePath)
}

// Common error codes.
const (
	ErrCodeInvalidOrigin   = "ERR_INVALID_ORIGIN"
	ErrCodeConfigInvalid   = "ERR_CONFIG_INVALID"
	ErrCodeInternalError   = "ERR_INTERNAL"
	ErrCodeInvalidMessage  = "ERR_INVALID_MESSAGE"
	ErrCodeMultipleErrors  = "ERR_MULTIPLE_ERRORS"
	ErrCodeInvalidGeometry = "ERR_INVALID_GEOMETRY"
	ErrCodeInvalidPath     = "ERR_INVALID_PATH"
)

// ErrInvalidOrigin creates an invalid origin security error.
func ErrInvalidOrigin(origin string) *VizError {
	return NewSecurityError(ErrCodeInvalidOrigin, "invalid origin: "+origin)
}
