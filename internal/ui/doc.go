// Package ui holds everything devstack prints or asks: the slog logger used
// for diagnostics, the styled task output, and confirmation prompts.
//
// Task output goes to stdout and is styled with lipgloss when stdout is a
// terminal. Diagnostics go to stderr through log/slog.
package ui
