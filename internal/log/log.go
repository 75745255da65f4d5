// Package log builds the slog loggers used across docchat. Loggers are
// injected through constructors rather than reached for globally; stdout is
// reserved for the MCP protocol, so all logging goes to stderr by default.
package log

import (
	"io"
	"log/slog"
	"os"
)

// Config defines logger construction options.
type Config struct {
	Level slog.Level
	JSON  bool
}

// New creates a logger writing to stderr with the given configuration.
func New(cfg Config) *slog.Logger {
	return NewWithWriter(os.Stderr, cfg)
}

// NewWithWriter creates a logger writing to w. Useful in tests to capture
// output.
func NewWithWriter(w io.Writer, cfg Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.Level}
	if cfg.JSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// NewNop returns a logger that discards everything. Tests only.
func NewNop() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
