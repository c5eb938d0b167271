package logger

import (
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// Config holds the logger configuration
type Config struct {
	Level     slog.Level
	Format    string    // "json" or "text"
	AddSource bool      // Whether to add source code information
	Writer    io.Writer // Destination, stdout when nil
}

// DefaultConfig returns the default logger configuration
func DefaultConfig() Config {
	return Config{
		Level:     slog.LevelInfo,
		Format:    "json",
		AddSource: false,
		Writer:    os.Stdout,
	}
}

// LoadConfig loads the logger configuration from environment variables
func LoadConfig() Config {
	config := DefaultConfig()

	if levelStr := os.Getenv("LOG_LEVEL"); levelStr != "" {
		if level, ok := ParseLevel(levelStr); ok {
			config.Level = level
		}
	}

	if format := os.Getenv("LOG_FORMAT"); format == "text" || format == "json" {
		config.Format = format
	}

	if addSourceStr := os.Getenv("LOG_ADD_SOURCE"); addSourceStr != "" {
		if addSource, err := strconv.ParseBool(addSourceStr); err == nil {
			config.AddSource = addSource
		}
	}

	return config
}

// ParseLevel accepts DEBUG/INFO/WARN/ERROR in any case or a numeric slog level.
func ParseLevel(s string) (slog.Level, bool) {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug, true
	case "INFO":
		return slog.LevelInfo, true
	case "WARN", "WARNING":
		return slog.LevelWarn, true
	case "ERROR":
		return slog.LevelError, true
	}
	if n, err := strconv.Atoi(s); err == nil {
		return slog.Level(n), true
	}
	return slog.LevelInfo, false
}

// NewLogger creates a new logger with the given configuration
func NewLogger(config Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:     config.Level,
		AddSource: config.AddSource,
	}

	w := config.Writer
	if w == nil {
		w = os.Stdout
	}

	var handler slog.Handler
	switch config.Format {
	case "text":
		handler = slog.NewTextHandler(w, opts)
	default: // json
		handler = slog.NewJSONHandler(w, opts)
	}

	return slog.New(handler)
}
