// Package logging sets up the process-wide slog logger for bethyw and derives
// per-request loggers for the HTTP API.
//
// Logs always go to the writer given to Setup (stderr in the CLI): stdout is
// reserved for command output and, under `bethyw mcp`, for the protocol.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
)

// Setup installs a text or JSON handler on w at the given level as the slog
// default and returns it. An unknown level or format is an error and leaves
// the default logger untouched.
func Setup(w io.Writer, level, format string) (*slog.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: lvl}

	var handler slog.Handler
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "text":
		handler = slog.NewTextHandler(w, opts)
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		return nil, fmt.Errorf("unknown log format %q (want text or json)", format)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger, nil
}

// ParseLevel accepts the slog level names in any case ("debug", "INFO",
// "warn+2", ...) and "warning". The empty string is info.
func ParseLevel(level string) (slog.Level, error) {
	level = strings.TrimSpace(level)
	switch strings.ToLower(level) {
	case "":
		return slog.LevelInfo, nil
	case "warning":
		return slog.LevelWarn, nil
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return 0, fmt.Errorf("unknown log level %q (want debug, info, warn or error)", level)
	}
	return lvl, nil
}

// FromContext returns the default logger. Requests served behind chi's
// RequestID middleware get a request_id attribute.
func FromContext(ctx context.Context) *slog.Logger {
	logger := slog.Default()
	if reqID := middleware.GetReqID(ctx); reqID != "" {
		logger = logger.With("request_id", reqID)
	}
	return logger
}

// WithFields is FromContext plus attrs.
func WithFields(ctx context.Context, attrs ...any) *slog.Logger {
	return FromContext(ctx).With(attrs...)
}
