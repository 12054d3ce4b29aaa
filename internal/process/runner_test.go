package process

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinji-kodama/devstack/internal/model"
)

// newTestExec builds an Exec with captured user streams and a fixed
// host environment.
func newTestExec(t *testing.T, mode model.EnvMode, platform model.Platform) (*Exec, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	var out, errOut bytes.Buffer
	e := NewExec(mode, platform, nil)
	e.Stdin = nil
	e.Stdout = &out
	e.Stderr = &errOut
	e.isTerminal = func() bool { return false }
	e.environ = func() []string { return []string{"PATH=/usr/bin:/bin", "HOST_ONLY=1", "SHARED=host"} }
	return e, &out, &errOut
}

func sh(script string) model.ComposedCommand {
	return model.ComposedCommand{Name: "sh", Args: []string{"-c", script}}
}

// TestEffective covers the environment rules applied to policies.
func TestEffective(t *testing.T) {
	tests := []struct {
		name     string
		mode     model.EnvMode
		platform model.Platform
		terminal bool
		in       Policy
		expected Policy
	}{
		{
			name:     "dev keeps pty on a terminal",
			mode:     model.ModeDev,
			platform: model.PlatformOther,
			terminal: true,
			in:       Policy{PTY: true},
			expected: Policy{PTY: true},
		},
		{
			name:     "ci disables tty and pty",
			mode:     model.ModeCI,
			platform: model.PlatformOther,
			terminal: true,
			in:       Policy{TTY: true, PTY: true},
			expected: Policy{},
		},
		{
			name:     "windows disables pty",
			mode:     model.ModeDev,
			platform: model.PlatformWindows,
			terminal: true,
			in:       Policy{PTY: true},
			expected: Policy{},
		},
		{
			name:     "no terminal disables pty",
			mode:     model.ModeDev,
			platform: model.PlatformMacOS,
			terminal: false,
			in:       Policy{PTY: true, Quiet: true},
			expected: Policy{Quiet: true},
		},
		{
			name:     "tty supersedes pty",
			mode:     model.ModeDev,
			platform: model.PlatformOther,
			terminal: true,
			in:       Policy{TTY: true, PTY: true, Timeout: time.Second},
			expected: Policy{TTY: true, Timeout: time.Second},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewExec(tt.mode, tt.platform, nil)
			e.isTerminal = func() bool { return tt.terminal }
			assert.Equal(t, tt.expected, e.Effective(tt.in))
		})
	}
}

// TestExec_Run_CapturesOutput verifies both streams are captured and
// echoed to the user unless quiet.
func TestExec_Run_CapturesOutput(t *testing.T) {
	e, out, errOut := newTestExec(t, model.ModeDev, model.PlatformOther)

	res, err := e.Run(context.Background(), sh("echo hello; echo oops >&2"), Policy{})
	require.NoError(t, err)
	assert.True(t, res.Succeeded())
	assert.Equal(t, "hello\n", res.Stdout)
	assert.Equal(t, "oops\n", res.Stderr)
	assert.Equal(t, "hello\n", out.String())
	assert.Equal(t, "oops\n", errOut.String())
}

// TestExec_Run_Quiet verifies quiet runs capture without echoing.
func TestExec_Run_Quiet(t *testing.T) {
	e, out, _ := newTestExec(t, model.ModeDev, model.PlatformOther)

	res, err := e.Run(context.Background(), sh("echo /home/dev/.cache/composer"), Policy{Quiet: true})
	require.NoError(t, err)
	assert.Equal(t, "/home/dev/.cache/composer\n", res.Stdout)
	assert.Empty(t, out.String())
}

// TestExec_Run_Failure verifies non-zero exits surface as ProcessFailure
// unless failure is allowed.
func TestExec_Run_Failure(t *testing.T) {
	e, _, _ := newTestExec(t, model.ModeDev, model.PlatformOther)

	t.Run("failure is an error", func(t *testing.T) {
		_, err := e.Run(context.Background(), sh("echo broken >&2; exit 3"), Policy{Quiet: true})
		var pf *model.ProcessFailure
		require.True(t, errors.As(err, &pf))
		assert.Equal(t, 3, pf.ExitCode)
		assert.Equal(t, "broken\n", pf.Stderr)
		assert.Contains(t, pf.Command, "sh -c")
		assert.True(t, pf.Quiet)
	})

	t.Run("streamed failure is not quiet", func(t *testing.T) {
		_, err := e.Run(context.Background(), sh("echo broken >&2; exit 4"), Policy{})
		var pf *model.ProcessFailure
		require.True(t, errors.As(err, &pf))
		assert.False(t, pf.Quiet)
	})

	t.Run("allowed failure returns result", func(t *testing.T) {
		res, err := e.Run(context.Background(), sh("exit 5"), Policy{Quiet: true, AllowFailure: true})
		require.NoError(t, err)
		assert.Equal(t, 5, res.ExitCode)
		assert.False(t, res.Succeeded())
	})

	t.Run("missing binary", func(t *testing.T) {
		cmd := model.ComposedCommand{Name: "devstack-no-such-binary"}
		_, err := e.Run(context.Background(), cmd, Policy{Quiet: true})
		var pf *model.ProcessFailure
		require.True(t, errors.As(err, &pf))
		assert.Equal(t, exitCodeNotStarted, pf.ExitCode)

		res, err := e.Run(context.Background(), cmd, Policy{Quiet: true, AllowFailure: true})
		require.NoError(t, err)
		assert.Equal(t, exitCodeNotStarted, res.ExitCode)
	})
}

// TestExec_Run_Timeout verifies the invocation timeout kills the child.
func TestExec_Run_Timeout(t *testing.T) {
	e, _, _ := newTestExec(t, model.ModeDev, model.PlatformOther)

	_, err := e.Run(context.Background(), sh("exec sleep 5"), Policy{Quiet: true, Timeout: 100 * time.Millisecond})
	var pf *model.ProcessFailure
	require.True(t, errors.As(err, &pf))
	assert.Equal(t, exitCodeTimedOut, pf.ExitCode)
	assert.Contains(t, pf.Err.Error(), "timed out")
}

// TestExec_Run_Cancelled verifies caller cancellation is returned even
// when failure is allowed.
func TestExec_Run_Cancelled(t *testing.T) {
	e, _, _ := newTestExec(t, model.ModeDev, model.PlatformOther)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Run(ctx, sh("echo never"), Policy{AllowFailure: true})
	assert.ErrorIs(t, err, context.Canceled)
}

// TestExec_Run_Environment verifies injected variables and the
// inherit-without-override rule reach the child.
func TestExec_Run_Environment(t *testing.T) {
	e, _, _ := newTestExec(t, model.ModeDev, model.PlatformOther)

	cmd := sh(`echo "$HOST_ONLY $SHARED $INJECTED"`)
	cmd.Env = map[string]string{"SHARED": "injected", "INJECTED": "yes"}

	res, err := e.Run(context.Background(), cmd, Policy{Quiet: true})
	require.NoError(t, err)
	assert.Equal(t, "1 host yes\n", res.Stdout)

	cmd.OverrideEnv = true
	res, err = e.Run(context.Background(), cmd, Policy{Quiet: true})
	require.NoError(t, err)
	assert.Equal(t, "1 injected yes\n", res.Stdout)
}

// TestExec_Run_WorkingDirectory verifies Dir is honoured.
func TestExec_Run_WorkingDirectory(t *testing.T) {
	e, _, _ := newTestExec(t, model.ModeDev, model.PlatformOther)
	dir := t.TempDir()

	cmd := sh("pwd -P")
	cmd.Dir = dir
	res, err := e.Run(context.Background(), cmd, Policy{Quiet: true})
	require.NoError(t, err)
	assert.Contains(t, res.Stdout, filepath.Base(dir))
}

// TestRecorder verifies the test double records calls and applies the
// same failure semantics as Exec.
func TestRecorder(t *testing.T) {
	rec := &Recorder{
		Handler: func(cmd model.ComposedCommand, _ Policy) (Result, error) {
			if cmd.Name == "false" {
				return Result{ExitCode: 1}, nil
			}
			return Result{Stdout: "ok"}, nil
		},
	}

	res, err := rec.Run(context.Background(), model.ComposedCommand{Name: "true"}, Policy{})
	require.NoError(t, err)
	assert.Equal(t, "ok", res.Stdout)

	_, err = rec.Run(context.Background(), model.ComposedCommand{Name: "false"}, Policy{})
	var pf *model.ProcessFailure
	require.True(t, errors.As(err, &pf))

	_, err = rec.Run(context.Background(), model.ComposedCommand{Name: "false"}, Policy{AllowFailure: true})
	require.NoError(t, err)

	assert.Equal(t, []string{"true", "false", "false"}, rec.Commands())
	rec.Reset()
	assert.Empty(t, rec.Calls())
}
