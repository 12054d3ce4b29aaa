package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/devstack/internal/stack"
	"github.com/shinji-kodama/devstack/internal/tasks"
)

// NewStartCommand creates the "start" command.
func NewStartCommand() *cobra.Command {
	return newTaskCommand("start", nil,
		"Builds and starts the infrastructure, then installs the application",
		`Bring the whole stack up:

  1. Stop the workers
  2. Generate the certificates when missing
  3. Build the images and start the containers
  4. Clear the cache, install the dependencies and run the migrations
  5. Start the workers

then display the project URLs.`,
		func(ctx context.Context, o *tasks.Orchestrator) error { return o.Start(ctx) })
}

// NewAboutCommand creates the "about" command.
func NewAboutCommand() *cobra.Command {
	return newTaskCommand("about", nil,
		"Displays some help and available urls for the current project",
		`Display some help and the project URLs. Hosts routed to the project by
the running router are listed after the configured domains.

Examples:
  devstack about
  devstack about --json`,
		func(ctx context.Context, o *tasks.Orchestrator) error { return o.About(ctx) })
}

// NewBuilderCommand creates the "builder" command.
func NewBuilderCommand() *cobra.Command {
	var user string

	cmd := newTaskCommand("builder", nil,
		"Opens a shell (bash) into a builder container",
		`Open an interactive bash shell in a one-off builder container.

Examples:
  devstack builder
  devstack builder --user=root`,
		func(ctx context.Context, o *tasks.Orchestrator) error { return o.Builder(ctx, user) })

	cmd.Flags().StringVar(&user, "user", stack.DefaultRunUser, "Container user")
	return cmd
}

// NewInstallCommand creates the "app:install" command.
func NewInstallCommand() *cobra.Command {
	return newTaskCommand("app:install", []string{"install"},
		"Installs the application (composer, yarn, ...)",
		`Install the application dependencies inside the builder: composer when a
composer.json exists, yarn when a yarn.lock exists, npm otherwise when a
package.json exists.`,
		func(ctx context.Context, o *tasks.Orchestrator) error { return o.Install(ctx) })
}

// NewCacheClearCommand creates the "app:cache-clear" command.
func NewCacheClearCommand() *cobra.Command {
	return newTaskCommand("app:cache-clear", []string{"cache-clear"},
		"Clears the application cache",
		`Run the hooks.cache_clear commands of the project file inside the
builder. Does nothing when none is configured.`,
		func(ctx context.Context, o *tasks.Orchestrator) error { return o.CacheClear(ctx) })
}

// NewMigrateCommand creates the "app:db:migrate" command.
func NewMigrateCommand() *cobra.Command {
	return newTaskCommand("app:db:migrate", []string{"migrate"},
		"Migrates database schema",
		`Run the hooks.migrate commands of the project file inside the builder.
Does nothing when none is configured.`,
		func(ctx context.Context, o *tasks.Orchestrator) error { return o.Migrate(ctx) })
}
