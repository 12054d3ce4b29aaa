// Package tasks implements the devstack tasks on top of the resolved stack
// context.
//
// Every task is a method of Orchestrator. Composite tasks (Start) call the
// single-step ones in order and stop at the first error; each external
// process exits before the next one is spawned.
package tasks

import (
	"context"
	"log/slog"
	"time"

	"github.com/shinji-kodama/devstack/internal/certs"
	"github.com/shinji-kodama/devstack/internal/model"
	"github.com/shinji-kodama/devstack/internal/process"
	"github.com/shinji-kodama/devstack/internal/router"
	"github.com/shinji-kodama/devstack/internal/stack"
	"github.com/shinji-kodama/devstack/internal/ui"
)

// DefaultInstallTimeout bounds dependency installation.
const DefaultInstallTimeout = 15 * time.Minute

// WorkerController starts and stops the project's worker containers.
type WorkerController interface {
	Start(ctx context.Context, projectName string) (int, error)
	Stop(ctx context.Context, projectName string) (int, error)
}

// CertificateGenerator runs the certificate state machine.
type CertificateGenerator interface {
	CurrentState(t certs.Target) certs.State
	Generate(ctx context.Context, t certs.Target, force bool) (certs.Outcome, error)
}

// HostDiscoverer lists the hosts the router currently serves for a project.
type HostDiscoverer interface {
	Hosts(ctx context.Context, projectName string) ([]string, error)
}

// Deps are the collaborators of an Orchestrator.
type Deps struct {
	Stack    *stack.Context
	Runner   process.Runner
	Output   *ui.Output
	Prompter ui.Prompter

	// Report receives the JSON documents printed with --json. Nil uses
	// Output. The CLI points Output at stderr in that mode so stdout only
	// carries the document.
	Report *ui.Output

	Workers  WorkerController
	Certs    CertificateGenerator

	// Router is queried by About. Nil uses the router API on the root
	// domain.
	Router HostDiscoverer

	// CertHelperAvailable is the probe's mkcert detection, reported by About.
	CertHelperAvailable bool

	InstallTimeout time.Duration
	JSON           bool
	Logger         *slog.Logger
}

// Orchestrator runs tasks against one stack context.
type Orchestrator struct {
	stack    *stack.Context
	runner   process.Runner
	out      *ui.Output
	report   *ui.Output
	prompter ui.Prompter
	workers  WorkerController
	certs    CertificateGenerator
	router   HostDiscoverer

	certHelper     bool
	installTimeout time.Duration
	json           bool
	logger         *slog.Logger
}

// New creates an Orchestrator. Stack, Runner, Workers and Certs are required.
func New(d Deps) *Orchestrator {
	o := &Orchestrator{
		stack:          d.Stack,
		runner:         d.Runner,
		out:            d.Output,
		report:         d.Report,
		prompter:       d.Prompter,
		workers:        d.Workers,
		certs:          d.Certs,
		router:         d.Router,
		certHelper:     d.CertHelperAvailable,
		installTimeout: d.InstallTimeout,
		json:           d.JSON,
		logger:         d.Logger,
	}
	if o.out == nil {
		o.out = ui.NewOutput(nil)
	}
	if o.report == nil {
		o.report = o.out
	}
	if o.logger == nil {
		o.logger = ui.DiscardLogger()
	}
	if o.router == nil {
		o.router = router.NewClient(d.Stack.RootDomain())
	}
	if o.installTimeout <= 0 {
		o.installTimeout = DefaultInstallTimeout
	}
	return o
}

// Stack returns the context the orchestrator runs against.
func (o *Orchestrator) Stack() *stack.Context { return o.stack }

// composePolicy is used for every docker compose step that is not
// interactive: no timeout, output echoed, a pseudo-terminal when the
// invoker can provide one.
var composePolicy = process.Policy{PTY: true}

// compose runs a docker compose sub-command.
func (o *Orchestrator) compose(ctx context.Context, sub []string, withBuilder bool, policy process.Policy) error {
	cmd, err := o.stack.Compose(sub, stack.ComposeOptions{WithBuilder: withBuilder})
	if err != nil {
		return err
	}
	return o.run(ctx, cmd, policy)
}

// composeRun runs a shell command in a one-off builder container.
func (o *Orchestrator) composeRun(ctx context.Context, command string, policy process.Policy, opts ...stack.RunOption) error {
	if err := o.requireBuilder(); err != nil {
		return err
	}
	cmd, err := o.stack.ComposeRun(command, opts...)
	if err != nil {
		return err
	}
	return o.run(ctx, cmd, policy)
}

func (o *Orchestrator) run(ctx context.Context, cmd model.ComposedCommand, policy process.Policy) error {
	o.logger.Debug("running", "command", cmd.String())
	_, err := o.runner.Run(ctx, cmd, policy)
	return err
}
