// Package logger configures the application slog logger and provides
// request-scoped logging helpers for HTTP middleware and handlers.
package logger

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/lmittmann/tint"
)

type contextKey string

const (
	loggerKey   contextKey = "requestLogger"
	logAttrsKey contextKey = "requestLogAttrs"
)

// InitLogger creates the application logger and installs it as the slog default.
//
// dev/test environments get a colorized tint handler for readability,
// everything else gets JSON output for log aggregation.
func InitLogger(level slog.Level, environment string) *slog.Logger {
	var handler slog.Handler

	if environment == "dev" || environment == "test" {
		handler = tint.NewHandler(os.Stdout, &tint.Options{
			Level:      level,
			TimeFormat: time.TimeOnly,
		})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// ParseLogLevel converts a config string to a slog.Level, defaulting to info.
func ParseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ContextWithRequestLogger stores a request-scoped logger in the context.
// The logging middleware sets this up with the request id attached.
func ContextWithRequestLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// ContextRequestLogger returns the request-scoped logger from the context,
// falling back to the default logger when no middleware installed one
// (e.g. in tests or CLI code paths).
func ContextRequestLogger(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}

// logAttrs collects attributes accumulated during a request so the final
// request log line can include them. Safe for concurrent use.
type logAttrs struct {
	mu    sync.Mutex
	attrs []slog.Attr
}

// ContextWithLogAttrStore initializes the attribute store for a request.
func ContextWithLogAttrStore(ctx context.Context) context.Context {
	return context.WithValue(ctx, logAttrsKey, &logAttrs{})
}

// ContextWithLogAttrs appends attributes to the request's attribute store.
// No-op when the store is absent.
func ContextWithLogAttrs(ctx context.Context, attrs ...slog.Attr) {
	store, ok := ctx.Value(logAttrsKey).(*logAttrs)
	if !ok {
		return
	}
	store.mu.Lock()
	defer store.mu.Unlock()
	store.attrs = append(store.attrs, attrs...)
}

// ContextLogAttrs returns the attributes accumulated for the request.
func ContextLogAttrs(ctx context.Context) []slog.Attr {
	store, ok := ctx.Value(logAttrsKey).(*logAttrs)
	if !ok {
		return nil
	}
	store.mu.Lock()
	defer store.mu.Unlock()
	return append([]slog.Attr(nil), store.attrs...)
}
