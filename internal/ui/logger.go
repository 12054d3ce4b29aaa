package ui

import (
	"io"
	"log/slog"
)

// NewLogger creates the diagnostic logger. Records at Info and above are
// written by default; verbose lowers the threshold to Debug.
func NewLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(orDiscard(w), &slog.HandlerOptions{Level: level}))
}

// DiscardLogger returns a logger that drops every record.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
