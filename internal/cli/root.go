// Package cli implements the cobra commands of devstack.
//
// Each task is a subcommand named after its namespace (infra:build,
// app:install, ...) with a short alias (build, install, ...). This file
// defines the root command, the global flags and the error handling that
// turns task errors into exit codes.
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/devstack/internal/model"
)

// Global flag variables shared across all subcommands.
// These are bound to cobra persistent flags on the root command,
// which makes them available to every subcommand automatically.
var (
	// jsonOutput switches about and error output to JSON.
	jsonOutput bool

	// verbose enables debug logging on stderr.
	verbose bool

	// rootDir overrides repository root detection.
	rootDir string
)

// Build information, injected from main through ldflags.
var (
	// Version is the semantic version of the binary (e.g., "1.0.0").
	Version = "dev"

	// Commit is the Git commit hash the binary was built from.
	Commit = "none"

	// Date is the build timestamp.
	Date = "unknown"
)

// NewRootCommand creates and configures the root cobra command with every
// task registered.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "devstack",
		Short: "Docker compose development stack manager",
		Long: `devstack builds, starts and tears down the docker compose development
stack of a project, generates its local TLS certificates, manages its
worker containers and installs the application dependencies.

Run "devstack start" to get a working stack from scratch, then
"devstack about" to list the project URLs.`,

		// SilenceUsage prevents cobra from printing usage on every error.
		SilenceUsage: true,

		// Errors are printed by Execute (text or JSON based on --json).
		SilenceErrors: true,

		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date),
	}

	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVar(&rootDir, "root-dir", "", "Project root directory (default: detected from the working directory)")

	rootCmd.AddCommand(
		NewStartCommand(),
		NewAboutCommand(),
		NewBuildCommand(),
		NewUpCommand(),
		NewStopCommand(),
		NewLogsCommand(),
		NewPsCommand(),
		NewDestroyCommand(),
		NewGenerateCertificatesCommand(),
		NewWorkerStartCommand(),
		NewWorkerStopCommand(),
		NewBuilderCommand(),
		NewInstallCommand(),
		NewCacheClearCommand(),
		NewMigrateCommand(),
	)

	return rootCmd
}

// Execute runs the root command and exits with the code matching the
// returned error. This is the main entry point called from main.go.
func Execute(rootCmd *cobra.Command) {
	if err := rootCmd.Execute(); err != nil {
		printError(os.Stderr, err)
		os.Exit(ExitCodeFor(err))
	}
}

// ExitCodeFor maps an error to the process exit code. A failed external
// process passes its own status through; CLIError carries its code; any
// other error is a general failure.
func ExitCodeFor(err error) int {
	if err == nil {
		return int(model.ExitSuccess)
	}

	var pf *model.ProcessFailure
	if errors.As(err, &pf) {
		if pf.ExitCode > 0 && pf.ExitCode < 256 {
			return pf.ExitCode
		}
		return int(model.ExitGeneralError)
	}

	var cliErr *model.CLIError
	if errors.As(err, &cliErr) {
		return int(cliErr.Code)
	}

	return int(model.ExitGeneralError)
}

// errorReport is the JSON error document.
type errorReport struct {
	Message  string `json:"message"`
	Detail   string `json:"detail,omitempty"`
	ExitCode int    `json:"exitCode"`
}

// newErrorReport extracts the user-facing parts of err.
func newErrorReport(err error) errorReport {
	report := errorReport{Message: err.Error(), ExitCode: ExitCodeFor(err)}

	var pf *model.ProcessFailure
	var cliErr *model.CLIError
	switch {
	case errors.As(err, &pf):
		report.Detail = pf.Output()
	case errors.As(err, &cliErr):
		report.Message = cliErr.Message
		if cliErr.Err != nil {
			report.Detail = cliErr.Err.Error()
		}
	}
	return report
}

// printError outputs an error in the format selected by --json.
//
// In text mode the captured output of a failed process is printed in full
// when the step was quiet. Output that was streamed while the step ran is
// only repeated with --verbose.
func printError(w io.Writer, err error) {
	report := newErrorReport(err)

	if jsonOutput {
		data, _ := json.MarshalIndent(map[string]errorReport{"error": report}, "", "  ")
		fmt.Fprintln(w, string(data))
		return
	}

	var pf *model.ProcessFailure
	isProcess := errors.As(err, &pf)

	switch {
	case isProcess:
		fmt.Fprintf(w, "Error: %s\n", report.Message)
		if (pf.Quiet || verbose) && report.Detail != "" {
			fmt.Fprintf(w, "\n%s\n", report.Detail)
		}
	case report.Detail != "":
		fmt.Fprintf(w, "Error: %s: %s\n", report.Message, report.Detail)
	default:
		fmt.Fprintf(w, "Error: %s\n", report.Message)
	}
}

// VerboseLog prints a message to stderr only when verbose mode is enabled.
func VerboseLog(format string, args ...interface{}) {
	if verbose {
		fmt.Fprintf(os.Stderr, "[verbose] "+format+"\n", args...)
	}
}

// IsJSONOutput returns whether the --json flag is set.
func IsJSONOutput() bool {
	return jsonOutput
}
