// Package logging builds the process logger and carries it through contexts.
package logging

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"github.com/go-logr/logr"
)

// New returns a text logger writing to w at the named level. Unknown level
// names fall back to info.
func New(w io.Writer, level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}

// Context returns a copy of ctx carrying logger
func Context(ctx context.Context, logger *slog.Logger) context.Context {
	return logr.NewContextWithSlogLogger(ctx, logger)
}

// FromContext returns the logger stored in ctx, or slog.Default
func FromContext(ctx context.Context) *slog.Logger {
	if logger := logr.FromContextAsSlogLogger(ctx); logger != nil {
		return logger
	}
	return slog.Default()
}
