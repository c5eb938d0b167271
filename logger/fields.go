package logger

import (
	"log/slog"
	"time"
)

var (
	String = slog.String
	Int    = slog.Int
	Bool   = slog.Bool
	Any    = slog.Any

	Duration = func(key string, d time.Duration) slog.Attr {
		return slog.String(key, d.String())
	}

	ErrorField = func(err error) slog.Attr {
		if err == nil {
			return slog.String("error", "<nil>")
		}
		return slog.String("error", err.Error())
	}

	Component = func(name string) slog.Attr {
		return slog.String("component", name)
	}

	Operation = func(name string) slog.Attr {
		return slog.String("operation", name)
	}
)
