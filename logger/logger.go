// Package logger wraps log/slog with an environment-configured global logger
// and helpers that pull request-scoped fields out of a context.
package logger

import (
	"context"
	"log/slog"
	"sync/atomic"
)

var current atomic.Pointer[slog.Logger]

func init() {
	current.Store(NewLogger(LoadConfig()))
}

// L returns the global logger.
func L() *slog.Logger {
	return current.Load()
}

// SetLogger replaces the global logger.
func SetLogger(l *slog.Logger) {
	if l != nil {
		current.Store(l)
	}
}

// Configure rebuilds the global logger from config.
func Configure(config Config) {
	SetLogger(NewLogger(config))
}

// Debug logs a debug message
func Debug(msg string, args ...any) {
	L().Debug(msg, args...)
}

// DebugContext logs a debug message with context
func DebugContext(ctx context.Context, msg string, args ...any) {
	L().Debug(msg, appendContextArgs(ctx, args...)...)
}

// Info logs an info message
func Info(msg string, args ...any) {
	L().Info(msg, args...)
}

// InfoContext logs an info message with context
func InfoContext(ctx context.Context, msg string, args ...any) {
	L().Info(msg, appendContextArgs(ctx, args...)...)
}

// Warn logs a warning message
func Warn(msg string, args ...any) {
	L().Warn(msg, args...)
}

// WarnContext logs a warning message with context
func WarnContext(ctx context.Context, msg string, args ...any) {
	L().Warn(msg, appendContextArgs(ctx, args...)...)
}

// Error logs an error message
func Error(msg string, args ...any) {
	L().Error(msg, args...)
}

// ErrorContext logs an error message with context
func ErrorContext(ctx context.Context, msg string, args ...any) {
	L().Error(msg, appendContextArgs(ctx, args...)...)
}

// With returns a new Logger that includes the given attributes in each output operation
func With(args ...any) *slog.Logger {
	return L().With(args...)
}

// WithContext returns a new Logger that includes context information
func WithContext(ctx context.Context) *slog.Logger {
	return L().With(ExtractContextValues(ctx)...)
}

func appendContextArgs(ctx context.Context, args ...any) []any {
	return append(args, ExtractContextValues(ctx)...)
}
