package cli

import (
	"context"
	"io"
	"log/slog"
	"os"
	"runtime"
	"sync"

	"github.com/shinji-kodama/devstack/internal/certs"
	"github.com/shinji-kodama/devstack/internal/docker"
	"github.com/shinji-kodama/devstack/internal/probe"
	"github.com/shinji-kodama/devstack/internal/process"
	"github.com/shinji-kodama/devstack/internal/project"
	"github.com/shinji-kodama/devstack/internal/stack"
	"github.com/shinji-kodama/devstack/internal/tasks"
	"github.com/shinji-kodama/devstack/internal/ui"
)

// openSession builds the orchestrator for one invocation. The returned
// function releases what the session opened. Tests replace it.
var openSession = newSession

// newSession resolves the stack context and wires the orchestrator.
//
// Nothing is spawned before the configuration has been validated: a
// ConfigurationError returned here means no process ran, except the
// read-only probe queries.
func newSession(ctx context.Context) (*tasks.Orchestrator, func(), error) {
	logger := ui.NewLogger(os.Stderr, verbose)

	// Host queries (git, composer) run with the environment rules known
	// before probing.
	hostRunner := process.NewExec(probe.ModeFromEnv(os.Getenv), probe.ClassifyOS(runtime.GOOS).Value, logger)

	// Step 1: Locate the repository root.
	root, err := project.NewRootFinder(hostRunner).Find(ctx, rootDir)
	if err != nil {
		return nil, nil, err
	}
	VerboseLog("Project root: %s", root)

	// Step 2: Load and validate the project parameters.
	cfg, err := project.Load(root, os.Getenv)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Path != "" {
		VerboseLog("Loaded project file %s", cfg.Path)
	}

	// Step 3: Probe the host.
	host := probe.NewProbe(hostRunner, logger).Detect(ctx)

	// Step 4: Resolve the immutable stack context.
	sc, err := stack.NewResolver().Resolve(cfg.Params, host, root)
	if err != nil {
		return nil, nil, err
	}
	for _, w := range sc.Warnings() {
		logger.Warn(w)
	}

	// Step 5: Wire the orchestrator. With --json, stdout is reserved for
	// the JSON document; progress and process output go to stderr.
	progress := io.Writer(os.Stdout)
	if jsonOutput {
		progress = os.Stderr
	}
	runner := process.NewExec(sc.Mode(), sc.Platform(), logger)
	runner.Stdout = progress
	workers := &lazyWorkers{runner: runner, logger: logger}

	orch := tasks.New(tasks.Deps{
		Stack:               sc,
		Runner:              runner,
		Output:              ui.NewOutput(progress),
		Report:              ui.NewOutput(os.Stdout),
		Prompter:            ui.NewPrompter(os.Stdin, progress),
		Workers:             workers,
		Certs:               certs.NewGenerator(runner, logger),
		CertHelperAvailable: host.CertHelperAvailable,
		InstallTimeout:      cfg.InstallTimeout,
		JSON:                jsonOutput,
		Logger:              logger,
	})

	return orch, workers.close, nil
}

// lazyWorkers selects the worker backend on first use, so tasks that never
// touch workers do not contact the Docker daemon.
type lazyWorkers struct {
	runner process.Runner
	logger *slog.Logger

	once    sync.Once
	workers *docker.Workers
	closeFn func() error
}

func (l *lazyWorkers) get(ctx context.Context) *docker.Workers {
	l.once.Do(func() {
		backend, closeFn := docker.SelectBackend(ctx, l.runner, l.logger)
		l.workers = docker.NewWorkers(backend, l.logger)
		l.closeFn = closeFn
	})
	return l.workers
}

func (l *lazyWorkers) Start(ctx context.Context, projectName string) (int, error) {
	return l.get(ctx).Start(ctx, projectName)
}

func (l *lazyWorkers) Stop(ctx context.Context, projectName string) (int, error) {
	return l.get(ctx).Stop(ctx, projectName)
}

func (l *lazyWorkers) close() {
	if l.closeFn != nil {
		_ = l.closeFn()
	}
}
