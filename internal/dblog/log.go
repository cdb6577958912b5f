// Package dblog centralizes the engine's structured logging. Every
// component takes a *slog.Logger (or falls back to New's default) instead
// of reaching for the global logger, so tests can capture or silence
// output per engine instance.
package dblog

import (
	"io"
	"log/slog"
	"os"
)

// New builds the engine's default logger: text-handler, source-less,
// writing to stderr at Info level. Callers that want JSON output or a
// different level construct their own *slog.Logger and pass it in via
// the owning package's options instead of calling New.
func New() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

// Discard returns a logger that drops everything, for tests and
// embedding contexts that don't want engine chatter on stderr.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Component returns a child logger tagged with a "component" attribute,
// the pattern used throughout the engine to identify which subsystem
// emitted a given log line (storage, heap, btree, catalog, exec, txn).
func Component(base *slog.Logger, name string) *slog.Logger {
	if base == nil {
		base = New()
	}
	return base.With("component", name)
}
