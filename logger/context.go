package logger

import (
	"context"
)

// ContextKey is used for context values
type ContextKey string

const (
	// UserIDKey is the context key for the authenticated user's e-mail
	UserIDKey ContextKey = "user_id"
	// RequestIDKey is the context key for request ID
	RequestIDKey ContextKey = "request_id"
	// RecordTypeKey is the context key for the record type a request works on
	RecordTypeKey ContextKey = "record_type"
)

// WithContextValue adds a value to the context for logging
func WithContextValue(ctx context.Context, key ContextKey, value string) context.Context {
	return context.WithValue(ctx, key, value)
}

// ExtractContextValues extracts logging-relevant values from context
func ExtractContextValues(ctx context.Context) []any {
	if ctx == nil {
		return nil
	}

	var args []any
	for _, key := range []ContextKey{RequestIDKey, UserIDKey, RecordTypeKey} {
		if v, ok := ctx.Value(key).(string); ok && v != "" {
			args = append(args, string(key), v)
		}
	}
	return args
}
