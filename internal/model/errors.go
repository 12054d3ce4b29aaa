package model

import (
	"errors"
	"fmt"
	"strings"
)

// ExitCode defines standard CLI exit codes. Process failures propagate
// the child's own exit code instead of one of these.
type ExitCode int

const (
	// ExitSuccess indicates the command completed successfully.
	ExitSuccess ExitCode = 0

	// ExitGeneralError indicates an unspecified error occurred.
	ExitGeneralError ExitCode = 1

	// ExitConfigurationError indicates malformed or missing static
	// parameters. Nothing has been spawned when this is returned.
	ExitConfigurationError ExitCode = 2

	// ExitPreconditionNotMet indicates a host prerequisite is missing
	// (e.g., the mkcert CA root). The user must act before retrying.
	ExitPreconditionNotMet ExitCode = 3

	// ExitDockerNotRunning indicates the Docker daemon is not accessible.
	ExitDockerNotRunning ExitCode = 4
)

// Sentinel errors for the error taxonomy. A CLIError matches the sentinel
// of its exit code through errors.Is.
var (
	// ErrConfiguration marks configuration errors.
	ErrConfiguration = errors.New("configuration error")

	// ErrPreconditionNotMet marks missing host prerequisites.
	ErrPreconditionNotMet = errors.New("precondition not met")
)

// CLIError is a custom error type that carries an exit code.
// This allows the CLI layer to translate domain errors into
// appropriate process exit codes.
type CLIError struct {
	// Code is the exit code to return to the OS.
	Code ExitCode

	// Message is the human-readable error description.
	Message string

	// Err is the underlying error, if any.
	Err error
}

// Error satisfies the error interface. It returns the human-readable
// error message, optionally including the underlying error.
func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *CLIError) Unwrap() error {
	return e.Err
}

// Is matches the taxonomy sentinels against the error's exit code.
func (e *CLIError) Is(target error) bool {
	switch target {
	case ErrConfiguration:
		return e.Code == ExitConfigurationError
	case ErrPreconditionNotMet:
		return e.Code == ExitPreconditionNotMet
	}
	return false
}

// NewCLIError creates a new CLIError with the given exit code and message.
func NewCLIError(code ExitCode, message string) *CLIError {
	return &CLIError{Code: code, Message: message}
}

// WrapCLIError creates a new CLIError that wraps an existing error.
func WrapCLIError(code ExitCode, message string, err error) *CLIError {
	return &CLIError{Code: code, Message: message, Err: err}
}

// NewConfigurationError reports malformed or missing static parameters.
func NewConfigurationError(message string, err error) *CLIError {
	return WrapCLIError(ExitConfigurationError, message, err)
}

// NewPreconditionError reports a missing host prerequisite. The message
// should tell the user what to do.
func NewPreconditionError(message string) *CLIError {
	return NewCLIError(ExitPreconditionNotMet, message)
}

// ProcessFailure is returned when a spawned process exits with a non-zero
// status (or cannot be started at all) and the invocation did not allow
// failure. It carries everything the user needs to diagnose the problem.
type ProcessFailure struct {
	// Command is the rendered command line.
	Command string

	// ExitCode is the child's exit status. 127 is used when the binary
	// could not be started, -1 when it was killed by the timeout.
	ExitCode int

	// Stdout and Stderr hold the captured output (empty in TTY mode).
	Stdout string
	Stderr string

	// Quiet is set when the captured output was not echoed to the user
	// while the process ran.
	Quiet bool

	// Err is the underlying exec error.
	Err error
}

// Error satisfies the error interface.
func (e *ProcessFailure) Error() string {
	msg := fmt.Sprintf("command %q failed with exit code %d", e.Command, e.ExitCode)
	if detail := strings.TrimSpace(e.Stderr); detail != "" {
		msg += ": " + lastLine(detail)
	} else if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Output returns the captured stdout followed by the captured stderr,
// trimmed. It is empty when nothing was captured.
func (e *ProcessFailure) Output() string {
	var parts []string
	for _, s := range []string{e.Stdout, e.Stderr} {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n")
}

// Unwrap returns the underlying exec error.
func (e *ProcessFailure) Unwrap() error {
	return e.Err
}

// lastLine returns the last non-empty line of s.
func lastLine(s string) string {
	lines := strings.Split(s, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if l := strings.TrimSpace(lines[i]); l != "" {
			return l
		}
	}
	return s
}
