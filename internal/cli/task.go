package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/devstack/internal/tasks"
)

// taskFunc is the body of a task command.
type taskFunc func(ctx context.Context, o *tasks.Orchestrator) error

// runTask opens a session and runs fn against its orchestrator.
func runTask(ctx context.Context, fn taskFunc) error {
	orch, release, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer release()

	return fn(ctx, orch)
}

// newTaskCommand creates a command without positional arguments that runs
// fn. Flags are added by the caller.
func newTaskCommand(use string, aliases []string, short, long string, fn taskFunc) *cobra.Command {
	return &cobra.Command{
		Use:     use,
		Aliases: aliases,
		Short:   short,
		Long:    long,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTask(cmd.Context(), fn)
		},
	}
}
