package process

import (
	"context"
	"sync"

	"github.com/shinji-kodama/devstack/internal/model"
)

// Call is one invocation captured by Recorder.
type Call struct {
	Command model.ComposedCommand
	Policy  Policy
}

// Recorder is a Runner that records invocations instead of spawning
// processes. Handler scripts the outcome; when nil every call succeeds
// with empty output.
//
// A non-zero ExitCode returned by Handler is converted into a
// *model.ProcessFailure unless the policy allows failure, matching Exec.
type Recorder struct {
	Handler func(cmd model.ComposedCommand, policy Policy) (Result, error)

	mu    sync.Mutex
	calls []Call
}

// Run records the call and returns the scripted result.
func (r *Recorder) Run(ctx context.Context, cmd model.ComposedCommand, policy Policy) (Result, error) {
	r.mu.Lock()
	r.calls = append(r.calls, Call{Command: cmd, Policy: policy})
	handler := r.Handler
	r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if handler == nil {
		return Result{}, nil
	}

	result, err := handler(cmd, policy)
	if err != nil {
		return result, err
	}
	if result.ExitCode != 0 && !policy.AllowFailure {
		return result, &model.ProcessFailure{
			Command:  cmd.String(),
			ExitCode: result.ExitCode,
			Stdout:   result.Stdout,
			Stderr:   result.Stderr,
			Quiet:    policy.Quiet && !policy.TTY,
		}
	}
	return result, nil
}

// Calls returns a copy of the recorded invocations.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Call, len(r.calls))
	copy(out, r.calls)
	return out
}

// Commands returns the rendered command lines of every recorded call.
func (r *Recorder) Commands() []string {
	calls := r.Calls()
	out := make([]string, len(calls))
	for i, c := range calls {
		out[i] = c.Command.String()
	}
	return out
}

// Reset discards recorded calls.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}
