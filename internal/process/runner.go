package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/shinji-kodama/devstack/internal/model"
)

// exitCodeNotStarted is reported when the binary could not be started
// (not found on PATH, not executable). It mirrors the shell convention.
const exitCodeNotStarted = 127

// exitCodeTimedOut is reported when the process was killed by the
// invocation timeout.
const exitCodeTimedOut = -1

// waitDelay bounds how long Wait keeps draining output after the child
// is killed, in case a grandchild still holds the pipes.
const waitDelay = 2 * time.Second

// Policy controls how a single invocation is executed.
type Policy struct {
	// Timeout bounds the run. Zero means no timeout.
	Timeout time.Duration

	// TTY attaches the child directly to the user's terminal (stdin,
	// stdout, stderr). Output is not captured. Used for interactive
	// sessions such as the builder shell and log following.
	TTY bool

	// PTY runs the child under a pseudo-terminal so tools keep their
	// terminal formatting. Output is still captured.
	PTY bool

	// Quiet captures output without echoing it to the user.
	Quiet bool

	// AllowFailure turns a non-zero exit into a Result instead of an error.
	AllowFailure bool
}

// Result is the outcome of a completed invocation.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// Succeeded reports whether the process exited with status zero.
func (r Result) Succeeded() bool {
	return r.ExitCode == 0
}

// Runner executes composed commands.
//
// Implementations must be safe for concurrent use.
type Runner interface {
	// Run executes cmd under policy and waits for it to finish.
	//
	// A non-zero exit returns a *model.ProcessFailure unless
	// policy.AllowFailure is set, in which case the Result carries the
	// exit code and the error is nil. Cancellation of ctx is always
	// returned as an error.
	Run(ctx context.Context, cmd model.ComposedCommand, policy Policy) (Result, error)
}

// Exec is the production Runner backed by os/exec.
type Exec struct {
	// Stdin, Stdout and Stderr are the user's terminal streams.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// Mode and Platform adjust the requested policy: CI never gets a
	// terminal, and Windows never gets a pseudo-terminal.
	Mode     model.EnvMode
	Platform model.Platform

	// Logger receives debug records for every invocation.
	Logger *slog.Logger

	// isTerminal and environ are injectable for tests.
	isTerminal func() bool
	environ    func() []string
}

// NewExec creates an Exec wired to the process's standard streams.
func NewExec(mode model.EnvMode, platform model.Platform, logger *slog.Logger) *Exec {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Exec{
		Stdin:    os.Stdin,
		Stdout:   os.Stdout,
		Stderr:   os.Stderr,
		Mode:     mode,
		Platform: platform,
		Logger:   logger,
		isTerminal: func() bool {
			return isatty.IsTerminal(os.Stdout.Fd())
		},
		environ: model.HostEnviron,
	}
}

// Effective returns the policy actually applied after environment rules.
func (e *Exec) Effective(p Policy) Policy {
	if e.Mode == model.ModeCI {
		p.TTY = false
		p.PTY = false
	}
	if e.Platform.IsWindows() {
		p.PTY = false
	}
	if p.PTY && (e.isTerminal == nil || !e.isTerminal()) {
		p.PTY = false
	}
	if p.TTY {
		// An attached child owns the terminal; there is nothing to wrap.
		p.PTY = false
	}
	return p
}

// Run executes cmd. See Runner.
func (e *Exec) Run(ctx context.Context, c model.ComposedCommand, policy Policy) (Result, error) {
	policy = e.Effective(policy)

	runCtx := ctx
	if policy.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, policy.Timeout)
		defer cancel()
	}

	environ := e.environ
	if environ == nil {
		environ = model.HostEnviron
	}

	cmd := exec.CommandContext(runCtx, c.Name, c.Args...)
	cmd.Env = c.Environ(environ())
	cmd.Dir = c.Dir
	cmd.WaitDelay = waitDelay

	e.Logger.Debug("running command",
		"command", c.String(),
		"dir", c.Dir,
		"tty", policy.TTY,
		"pty", policy.PTY,
		"timeout", policy.Timeout,
	)

	start := time.Now()
	var stdout, stderr bytes.Buffer
	var err error

	switch {
	case policy.TTY:
		err = e.runAttached(cmd)
	case policy.PTY:
		err = e.runPTY(cmd, &stdout, policy.Quiet)
	default:
		cmd.Stdin = nil
		cmd.Stdout = e.tee(&stdout, e.Stdout, policy.Quiet)
		cmd.Stderr = e.tee(&stderr, e.Stderr, policy.Quiet)
		err = cmd.Run()
	}

	result := Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	if err == nil {
		e.Logger.Debug("command finished", "command", c.String(), "duration", result.Duration)
		return result, nil
	}

	// Cancellation by the caller is never tolerated.
	if ctx.Err() != nil {
		return result, fmt.Errorf("%s: %w", c.String(), ctx.Err())
	}

	var exitErr *exec.ExitError
	switch {
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		result.ExitCode = exitCodeTimedOut
		err = fmt.Errorf("timed out after %s: %w", policy.Timeout, err)
	case errors.As(err, &exitErr):
		result.ExitCode = exitErr.ExitCode()
	default:
		result.ExitCode = exitCodeNotStarted
	}

	e.Logger.Debug("command failed",
		"command", c.String(),
		"exit_code", result.ExitCode,
		"duration", result.Duration,
		"error", err,
	)

	if policy.AllowFailure {
		return result, nil
	}
	return result, &model.ProcessFailure{
		Command:  c.String(),
		ExitCode: result.ExitCode,
		Stdout:   result.Stdout,
		Stderr:   result.Stderr,
		Quiet:    policy.Quiet && !policy.TTY,
		Err:      err,
	}
}

// runAttached connects the child to the user's terminal. While it runs,
// interrupts are left to the child: the terminal delivers SIGINT to the
// whole foreground process group, and the CLI must not exit underneath
// an interactive session.
func (e *Exec) runAttached(cmd *exec.Cmd) error {
	cmd.Stdin = e.Stdin
	cmd.Stdout = e.Stdout
	cmd.Stderr = e.Stderr

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt)
	defer signal.Stop(sigs)

	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			select {
			case <-sigs:
			case <-done:
				return
			}
		}
	}()

	return cmd.Run()
}

// tee returns the writer for one captured stream.
func (e *Exec) tee(buf *bytes.Buffer, user io.Writer, quiet bool) io.Writer {
	if quiet || user == nil {
		return buf
	}
	return io.MultiWriter(buf, user)
}
