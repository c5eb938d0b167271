// Package errors provides coded application errors, their HTTP status mapping
// and logging helpers.
package errors

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/guileen/finledger/logger"
)

// Error codes for different types of errors
const (
	ErrCodeUnknown      = "unknown_error"
	ErrCodeValidation   = "validation_error"
	ErrCodeNotFound     = "not_found"
	ErrCodeConflict     = "conflict"
	ErrCodeUnauthorized = "unauthorized"
	ErrCodeRateLimited  = "rate_limited"
	ErrCodeStorage      = "storage_error"
	ErrCodeFormat       = "format_error"
)

// AppError is an error carrying a machine-readable code, the operation that
// failed and an optional cause.
type AppError struct {
	Code    string
	Message string
	Op      string
	Err     error
}

// Error implements the error interface
func (e *AppError) Error() string {
	msg := e.Message
	if e.Op != "" {
		msg = fmt.Sprintf("%s: %s", e.Op, msg)
	}
	if e.Err != nil && e.Err.Error() != e.Message {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap implements the unwrap interface for error chaining
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches another *AppError by code.
func (e *AppError) Is(target error) bool {
	if t, ok := target.(*AppError); ok {
		return e.Code == t.Code
	}
	return false
}

// Log logs the error at the given level.
func (e *AppError) Log(ctx context.Context, level slog.Level) {
	fields := []any{
		"error_code", e.Code,
		"operation", e.Op,
		"message", e.Message,
	}
	if e.Err != nil {
		fields = append(fields, "cause", e.Err.Error())
	}

	switch level {
	case slog.LevelDebug:
		logger.DebugContext(ctx, "request failed", fields...)
	case slog.LevelInfo:
		logger.InfoContext(ctx, "request failed", fields...)
	case slog.LevelWarn:
		logger.WarnContext(ctx, "request failed", fields...)
	default:
		logger.ErrorContext(ctx, "request failed", fields...)
	}
}

// New creates a new AppError
func New(code, op, message string) *AppError {
	return &AppError{Code: code, Op: op, Message: message}
}

// Errorf creates a new AppError with formatted message
func Errorf(code, op, format string, args ...any) *AppError {
	return &AppError{Code: code, Op: op, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an existing error with a code and operation.
func Wrap(err error, code, op string) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{Code: code, Op: op, Message: err.Error(), Err: err}
}

// Wrapf wraps an existing error with formatted message
func Wrapf(err error, code, op, format string, args ...any) *AppError {
	return &AppError{Code: code, Op: op, Message: fmt.Sprintf(format, args...), Err: err}
}

func NewValidationError(op, msg string) *AppError {
	return New(ErrCodeValidation, op, msg)
}

func NewValidationErrorf(op, format string, args ...any) *AppError {
	return Errorf(ErrCodeValidation, op, format, args...)
}

func NewNotFoundError(op, msg string) *AppError {
	return New(ErrCodeNotFound, op, msg)
}

func NewConflictError(op, msg string) *AppError {
	return New(ErrCodeConflict, op, msg)
}

func NewUnauthorizedError(op, msg string) *AppError {
	return New(ErrCodeUnauthorized, op, msg)
}

func NewRateLimitedError(op, msg string) *AppError {
	return New(ErrCodeRateLimited, op, msg)
}

func NewStorageError(op string, err error) *AppError {
	return Wrap(err, ErrCodeStorage, op)
}

func NewFormatError(op, msg string) *AppError {
	return New(ErrCodeFormat, op, msg)
}

// CodeOf returns the code of the first AppError in err's chain.
func CodeOf(err error) string {
	var e *AppError
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrCodeUnknown
}

func IsValidationError(err error) bool { return CodeOf(err) == ErrCodeValidation }
func IsNotFound(err error) bool        { return CodeOf(err) == ErrCodeNotFound }
func IsConflict(err error) bool        { return CodeOf(err) == ErrCodeConflict }
func IsUnauthorized(err error) bool    { return CodeOf(err) == ErrCodeUnauthorized }
func IsRateLimited(err error) bool     { return CodeOf(err) == ErrCodeRateLimited }
func IsStorageError(err error) bool    { return CodeOf(err) == ErrCodeStorage }

// HTTPStatus maps an error to the status code the API answers with.
func HTTPStatus(err error) int {
	switch CodeOf(err) {
	case ErrCodeValidation:
		return http.StatusBadRequest
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeConflict:
		return http.StatusConflict
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeRateLimited:
		return http.StatusTooManyRequests
	case ErrCodeFormat:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage is the message safe to send to a client. Storage and unknown
// errors are reduced to a generic text.
func PublicMessage(err error) string {
	var e *AppError
	if !errors.As(err, &e) {
		return "internal server error"
	}
	switch e.Code {
	case ErrCodeStorage, ErrCodeUnknown:
		return "internal server error"
	}
	return e.Message
}

// LogError logs an error at error level
func LogError(ctx context.Context, err error) {
	var e *AppError
	if errors.As(err, &e) {
		e.Log(ctx, slog.LevelError)
		return
	}
	logger.ErrorContext(ctx, "unexpected error", "error", err.Error())
}

// LogWarning logs an error at warning level
func LogWarning(ctx context.Context, err error) {
	var e *AppError
	if errors.As(err, &e) {
		e.Log(ctx, slog.LevelWarn)
		return
	}
	logger.WarnContext(ctx, "unexpected error", "error", err.Error())
}

// Re-exports so callers need only one errors import.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	Join   = errors.Join
)
