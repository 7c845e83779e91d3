// Package logging sets up the process-wide slog logger for lgc, matching
// the level/quiet flag handling the teacher's CLI entry point uses.
package logging

import (
	"log/slog"
	"os"
	"strings"
)

// Setup installs a text-handler slog logger at the given level, writing to
// stderr so plan/apply output on stdout stays machine-parseable. quiet
// overrides level to effectively silence logging (spec.md out-of-scope
// logging setup, carried as ambient stack).
func Setup(level string, quiet bool) {
	parsed := ParseLevel(level)
	if quiet {
		parsed = slog.LevelError + 1
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parsed,
	}))
	slog.SetDefault(logger)
}

// ParseLevel converts a CLI-supplied level name to a slog.Level, defaulting
// to info for anything unrecognized.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
