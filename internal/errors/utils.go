package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Wrap wraps an error with additional context, creating a VizError if the
// input is not already one.
func Wrap(err error, errType ErrorType, code, message string) *VizError {
	if err == nil {
		return nil
	}

	var ve *VizError
	if errors.As(err, &ve) {
		return &VizError{
			Type:        errType,
			Code:        code,
			Message:     message,
			Cause:       ve,
			Context:     ve.Context,
			Component:   ve.Component,
			FilePath:    ve.FilePath,
			Line:        ve.Line,
			Column:      ve.Column,
			Recoverable: ve.Recoverable,
		}
	}

	return &VizError{
		Type:        errType,
		Code:        code,
		Message:     message,
		Cause:       err,
		Recoverable: errType == ErrorTypeValidation || errType == ErrorTypeNetwork,
	}
}

// WrapConfig wraps an error as a configuration error.
func WrapConfig(err error, code, message string) *VizError {
	ve := Wrap(err, ErrorTypeConfig, code, message)
	if ve != nil {
		ve.Recoverable = false
	}
	return ve
}

// WrapIO wraps an error as an I/O error.
func WrapIO(err error, code, message string) *VizError {
	ve := Wrap(err, ErrorTypeIO, code, message)
	if ve != nil {
		ve.Recoverable = false
	}
	return ve
}

// FormatError formats an error for a terminal. A combined error is listed
// one message per line under whatever prefix wrapped it.
func FormatError(err error) string {
	if err == nil {
		return ""
	}
	var ve *VizError
	if !errors.As(err, &ve) || ve.Code != ErrCodeMultipleErrors {
		return err.Error()
	}
	messages, ok := ve.Context["errors"].([]string)
	if !ok {
		return err.Error()
	}

	var b strings.Builder
	b.WriteString(strings.TrimSuffix(err.Error(), ve.Error()))
	b.WriteString(ve.Message)
	b.WriteString(":")
	for _, m := range messages {
		b.WriteString("\n  • ")
		b.WriteString(m)
	}
	return b.String()
}

// GetErrorContext extracts context information from a VizError.
func GetErrorContext(err error) map[string]interface{} {
	var ve *VizError
	if errors.As(err, &ve) {
		context := make(map[string]interface{}, len(ve.Context)+6)
		for k, v := range ve.Context {
			context[k] = v
		}
		if ve.Component != "" {
			context["component"] = ve.Component
		}
		if ve.FilePath != "" {
			context["file"] = ve.FilePath
			if ve.Line > 0 {
				context["line"] = ve.Line
				if ve.Column > 0 {
					context["column"] = ve.Column
				}
			}
		}
		context["type"] = string(ve.Type)
		context["code"] = ve.Code
		context["recoverable"] = ve.Recoverable
		return context
	}

	return map[string]interface{}{
		"message": err.Error(),
		"type":    "unknown",
	}
}

// CombineErrors combines multiple errors into one. Nil errors are skipped;
// a single error is returned as is.
func CombineErrors(errs ...error) error {
	var nonNil []error
	for _, err := range errs {
		if err != nil {
			nonNil = append(nonNil, err)
		}
	}
	switch len(nonNil) {
	case 0:
		return nil
	case 1:
		return nonNil[0]
	}

	messages := make([]string, len(nonNil))
	for i, err := range nonNil {
		messages[i] = err.Error()
	}

	return &VizError{
		Type:    ErrorTypeValidation,
		Code:    ErrCodeMultipleErrors,
		Message: fmt.Sprintf("%d errors occurred", len(nonNil)),
		Cause:   errors.Join(nonNil...),
		Context: map[string]interface{}{
			"error_count": len(nonNil),
			"errors":      messages,
		},
		Recoverable: true,
	}
}
