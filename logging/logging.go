// Package logging builds the structured logger shared by the service.
// Everything logs through log/slog; the format and level come from configuration.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Options controls how New builds a logger.
type Options struct {
	// Debug lowers the level to slog.LevelDebug.
	Debug bool
	// Format is "json" or "text" (default).
	Format string
	// Output defaults to os.Stderr.
	Output io.Writer
}

// New returns a logger configured from opts.
//
//	log := logging.New(logging.Options{Debug: cfg.Debug, Format: cfg.LogFormat})
//	log.Info("starting server", "addr", addr)
func New(opts Options) *slog.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	level := slog.LevelInfo
	if opts.Debug {
		level = slog.LevelDebug
	}
	handlerOpts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	if strings.EqualFold(opts.Format, "json") {
		h = slog.NewJSONHandler(out, handlerOpts)
	} else {
		h = slog.NewTextHandler(out, handlerOpts)
	}
	return slog.New(h)
}

// Discard returns a logger that drops everything. Used by tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
