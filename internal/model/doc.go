// Package model defines the domain types and value objects for the
// devstack CLI.
//
// This package contains pure data structures with no external dependencies.
// Static project parameters (Params), host probe results (ProbeResult) and
// composed external commands (ComposedCommand) are all plain values that
// flow downward from the probe to the process invoker.
//
// The package also defines exit codes (ExitCode), a custom error type
// (CLIError) that carries exit codes for proper OS process exit handling,
// and ProcessFailure, the error surfaced when a spawned process exits
// with a non-zero status.
package model
