// Package errors defines the structured error carried from the job store and
// conversion service out to the HTTP layer.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCode classifies an AppError. The HTTP layer maps each code to a status.
type ErrorCode string

const (
	// ErrCodeNotFound is an unknown or evicted job id.
	ErrCodeNotFound ErrorCode = "not_found"
	// ErrCodeConflict is an operation the job's current state forbids, such as
	// rewriting a terminal job or downloading before completion.
	ErrCodeConflict ErrorCode = "conflict"
	// ErrCodeValidation is a malformed request.
	ErrCodeValidation ErrorCode = "validation"
	// ErrCodeUnavailable means no new work is accepted, e.g. during shutdown.
	ErrCodeUnavailable ErrorCode = "unavailable"
	// ErrCodeFetchFailed is a source document or stylesheet that could not be retrieved.
	ErrCodeFetchFailed ErrorCode = "fetch_failed"
	// ErrCodeRenderFailed is any other conversion failure.
	ErrCodeRenderFailed ErrorCode = "render_failed"
	// ErrCodeTimeout is an operation that ran out of time.
	ErrCodeTimeout ErrorCode = "timeout"
	// ErrCodeInternal is everything else.
	ErrCodeInternal ErrorCode = "internal"
)

// AppError pairs a code and a client-safe message with an optional cause.
// It unwraps to the cause, so errors.Is and errors.As see through it.
type AppError struct {
	Code    ErrorCode
	Message string
	Cause   error
	// Field names the offending request field for validation errors.
	Field string
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// NotFound returns a not_found error.
func NotFound(message string) *AppError { return &AppError{Code: ErrCodeNotFound, Message: message} }

// Conflict returns a conflict error.
func Conflict(message string) *AppError { return &AppError{Code: ErrCodeConflict, Message: message} }

// Validation returns a validation error.
func Validation(message string) *AppError { return &AppError{Code: ErrCodeValidation, Message: message} }

// ValidationField returns a validation error tied to a request field.
func ValidationField(field, message string) *AppError {
	return &AppError{Code: ErrCodeValidation, Message: message, Field: field}
}

// Unavailable returns an unavailable error.
func Unavailable(message string) *AppError { return &AppError{Code: ErrCodeUnavailable, Message: message} }

// Internal returns an internal error.
func Internal(message string) *AppError { return &AppError{Code: ErrCodeInternal, Message: message} }

// Wrap attaches code and message to err. A nil err stays nil.
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{Code: code, Message: message, Cause: err}
}

// GetCode returns the code of the outermost AppError in err's chain, or "".
func GetCode(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// GetField returns the Field of the outermost AppError in err's chain, or "".
func GetField(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Field
	}
	return ""
}

// IsNotFound reports whether err carries ErrCodeNotFound.
func IsNotFound(err error) bool { return GetCode(err) == ErrCodeNotFound }

// IsConflict reports whether err carries ErrCodeConflict.
func IsConflict(err error) bool { return GetCode(err) == ErrCodeConflict }

// IsValidation reports whether err carries ErrCodeValidation.
func IsValidation(err error) bool { return GetCode(err) == ErrCodeValidation }

// IsUnavailable reports whether err carries ErrCodeUnavailable.
func IsUnavailable(err error) bool { return GetCode(err) == ErrCodeUnavailable }

// IsConversionFailure reports whether err is a fetch or render failure.
func IsConversionFailure(err error) bool {
	switch GetCode(err) {
	case ErrCodeFetchFailed, ErrCodeRenderFailed:
		return true
	default:
		return false
	}
}

// Message returns the outermost AppError message without its cause, falling back to err.Error().
func Message(err error) string {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}
