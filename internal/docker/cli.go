package docker

import (
	"context"
	"strings"

	"github.com/shinji-kodama/devstack/internal/model"
	"github.com/shinji-kodama/devstack/internal/process"
)

// CLIWorkers implements Backend by running the docker CLI. It is used
// when the daemon socket cannot be reached through the SDK, e.g. with a
// remote context configured only for the CLI.
type CLIWorkers struct {
	Runner process.Runner
}

// NewCLIWorkers creates a CLI backend.
func NewCLIWorkers(runner process.Runner) *CLIWorkers {
	return &CLIWorkers{Runner: runner}
}

// quietPolicy captures output without echoing it. Listing and the start
// direction use it.
var quietPolicy = process.Policy{Quiet: true}

// streamedPolicy echoes output. The stop direction uses it so a failing
// `docker update` or `docker stop` shows the daemon's answer as it happens.
var streamedPolicy = process.Policy{}

// List runs `docker ps -a --filter label=<label> --quiet`.
func (c *CLIWorkers) List(ctx context.Context, projectName string) (WorkerSet, error) {
	res, err := c.Runner.Run(ctx, dockerCommand(
		"ps", "-a", "--filter", "label="+WorkerLabel(projectName), "--quiet",
	), quietPolicy)
	if err != nil {
		return nil, err
	}
	return parseIDs(res.Stdout), nil
}

// SetRestartPolicy runs `docker update --restart=<policy> <ids>`.
func (c *CLIWorkers) SetRestartPolicy(ctx context.Context, set WorkerSet, policy RestartPolicy) error {
	args := append([]string{"update", "--restart=" + string(policy)}, set...)
	run := quietPolicy
	if policy == RestartNo {
		run = streamedPolicy
	}
	_, err := c.Runner.Run(ctx, dockerCommand(args...), run)
	return err
}

// Start runs `docker start <ids>`.
func (c *CLIWorkers) Start(ctx context.Context, set WorkerSet) error {
	args := append([]string{"start"}, set...)
	_, err := c.Runner.Run(ctx, dockerCommand(args...), quietPolicy)
	return err
}

// Stop runs `docker stop <ids>`.
func (c *CLIWorkers) Stop(ctx context.Context, set WorkerSet) error {
	args := append([]string{"stop"}, set...)
	_, err := c.Runner.Run(ctx, dockerCommand(args...), streamedPolicy)
	return err
}

func dockerCommand(args ...string) model.ComposedCommand {
	return model.ComposedCommand{Name: "docker", Args: args}
}

// parseIDs reads one container id per line. A table header (some docker
// wrappers ignore --quiet and print "CONTAINER ID ... NAMES") is skipped,
// and so is anything that is not a bare id.
func parseIDs(out string) WorkerSet {
	var ids []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.Contains(line, "NAMES") || strings.ContainsAny(line, " \t") {
			continue
		}
		ids = append(ids, line)
	}
	return newWorkerSet(ids)
}
