package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/devstack/internal/tasks"
)

// NewBuildCommand creates the "infra:build" command.
func NewBuildCommand() *cobra.Command {
	return newTaskCommand("infra:build", []string{"build"},
		"Builds the infrastructure",
		`Build every image of the stack, the builder image included.

The project name, the host user id and the PHP version are passed as
build arguments.`,
		func(ctx context.Context, o *tasks.Orchestrator) error { return o.Build(ctx) })
}

// NewUpCommand creates the "infra:up" command.
func NewUpCommand() *cobra.Command {
	return newTaskCommand("infra:up", []string{"up"},
		"Starts the infrastructure",
		"Start the stack in the background and remove orphan containers.",
		func(ctx context.Context, o *tasks.Orchestrator) error { return o.Up(ctx) })
}

// NewStopCommand creates the "infra:stop" command.
func NewStopCommand() *cobra.Command {
	return newTaskCommand("infra:stop", []string{"stop"},
		"Stops the infrastructure",
		"Stop the stack's containers without removing them.",
		func(ctx context.Context, o *tasks.Orchestrator) error { return o.Stop(ctx) })
}

// NewLogsCommand creates the "infra:logs" command.
func NewLogsCommand() *cobra.Command {
	return newTaskCommand("infra:logs", []string{"logs"},
		"Displays infrastructure logs",
		"Follow the logs of every container, starting with the last 150 lines.",
		func(ctx context.Context, o *tasks.Orchestrator) error { return o.Logs(ctx) })
}

// NewPsCommand creates the "infra:ps" command.
func NewPsCommand() *cobra.Command {
	return newTaskCommand("infra:ps", []string{"ps"},
		"Lists containers status",
		"List the stack's containers and their status.",
		func(ctx context.Context, o *tasks.Orchestrator) error { return o.Ps(ctx) })
}

// NewDestroyCommand creates the "infra:destroy" command.
func NewDestroyCommand() *cobra.Command {
	var force bool

	cmd := newTaskCommand("infra:destroy", []string{"destroy"},
		"Cleans the infrastructure (removes containers, volumes, networks)",
		`Remove every container, volume, network and locally built image of the
stack, then delete the generated certificates.

Unless --force is specified, the command prompts for confirmation.

Examples:
  devstack destroy
  devstack destroy --force`,
		func(ctx context.Context, o *tasks.Orchestrator) error { return o.Destroy(ctx, force) })

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Force the destruction without confirmation")
	return cmd
}

// NewGenerateCertificatesCommand creates the "infra:generate-certificates"
// command.
func NewGenerateCertificatesCommand() *cobra.Command {
	var force bool

	cmd := newTaskCommand("infra:generate-certificates", []string{"generate-certificates"},
		"Generates SSL certificates (with mkcert if available or self-signed if not)",
		`Generate the router certificate for the root domain, its wildcard and
every extra domain.

mkcert is used when it is installed, and its CA root must then be installed
with "mkcert -install". Otherwise a self-signed certificate is generated.
An existing certificate is kept unless --force is specified.`,
		func(ctx context.Context, o *tasks.Orchestrator) error { return o.GenerateCertificates(ctx, force) })

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Force the certificates re-generation")
	return cmd
}

// NewWorkerStartCommand creates the "infra:worker:start" command.
func NewWorkerStartCommand() *cobra.Command {
	return newTaskCommand("infra:worker:start", []string{"worker:start"},
		"Starts the workers",
		`Start the project's worker containers (labelled
docker-starter.worker.<project>) and make them restart with the daemon.`,
		func(ctx context.Context, o *tasks.Orchestrator) error { return o.WorkersStart(ctx) })
}

// NewWorkerStopCommand creates the "infra:worker:stop" command.
func NewWorkerStopCommand() *cobra.Command {
	return newTaskCommand("infra:worker:stop", []string{"worker:stop"},
		"Stops the workers",
		"Stop the project's worker containers and disable their restart policy.",
		func(ctx context.Context, o *tasks.Orchestrator) error { return o.WorkersStop(ctx) })
}
