package logger

import (
	"log/slog"
	"time"
)

// Helpers return an empty Attr for missing values, which slog handlers
// skip, so callers can pass them unconditionally.

// Error creates an attribute for err under the key "error".
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// Elapsed records the time since start.
func Elapsed(start time.Time) slog.Attr {
	return slog.Duration("elapsed", time.Since(start))
}

// Component creates an attribute for component names.
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// Path creates an attribute for a file path. Empty paths are omitted.
func Path(path string) slog.Attr {
	if path == "" {
		return slog.Attr{}
	}
	return slog.String("path", path)
}

// Bytes records a byte count under key.
func Bytes(key string, n int) slog.Attr {
	return slog.Int(key, n)
}
