// Package logger provides structured logging setup for the tutor trainer service.
package logger

import (
	"log/slog"
	"os"
	"strings"

	"github.com/caadev/tutortrainer/internal/config"
)

// New creates a *slog.Logger from the given Logging config. Output is JSON
// to stdout with a "service" attribute on every record and the request id
// pulled from the context where one is bound. When cfg.Async is set the
// handler buffers records off the hot path; the returned Closer flushes it
// on shutdown.
func New(cfg config.Logging) (*slog.Logger, Closer) {
	level := parseLevel(cfg.Level)

	var handler slog.Handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})

	closer := Closer(nopCloser{})
	if cfg.Async {
		async := newAsyncHandler(handler, 1024)
		handler = async
		closer = async
	}

	// Outermost so the request id is resolved before records leave the
	// caller's goroutine.
	handler = contextHandler{inner: handler}

	return slog.New(handler).With("service", cfg.Service), closer
}

// parseLevel converts a string log level to slog.Level.
func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
