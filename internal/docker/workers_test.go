package docker

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/docker/docker/api/types/container"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinji-kodama/devstack/internal/model"
	"github.com/shinji-kodama/devstack/internal/process"
)

// fakeAPI is an in-memory containerAPI recording every call.
type fakeAPI struct {
	mu         sync.Mutex
	containers []container.Summary
	listErr    error
	updateErr  error
	calls      []string
	lastFilter string
}

func (f *fakeAPI) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeAPI) ContainerList(_ context.Context, options container.ListOptions) ([]container.Summary, error) {
	f.record("list")
	if !options.All {
		return nil, errors.New("workers must be listed with All")
	}
	f.lastFilter = options.Filters.Get("label")[0]
	return f.containers, f.listErr
}

func (f *fakeAPI) ContainerUpdate(_ context.Context, id string, cfg container.UpdateConfig) (container.UpdateResponse, error) {
	f.record("update " + string(cfg.RestartPolicy.Name) + " " + id)
	return container.UpdateResponse{}, f.updateErr
}

func (f *fakeAPI) ContainerStart(_ context.Context, id string, _ container.StartOptions) error {
	f.record("start " + id)
	return nil
}

func (f *fakeAPI) ContainerStop(_ context.Context, id string, _ container.StopOptions) error {
	f.record("stop " + id)
	return nil
}

func summaries(ids ...string) []container.Summary {
	out := make([]container.Summary, len(ids))
	for i, id := range ids {
		out[i] = container.Summary{ID: id}
	}
	return out
}

// TestWorkerLabel verifies the discovery label and filter.
func TestWorkerLabel(t *testing.T) {
	assert.Equal(t, "docker-starter.worker.app", WorkerLabel("app"))
	assert.Equal(t, []string{"docker-starter.worker.shop"}, WorkerFilter("shop").Get("label"))
}

// TestWorkers_SDK verifies policy-then-action ordering for both directions.
func TestWorkers_SDK(t *testing.T) {
	t.Run("start", func(t *testing.T) {
		api := &fakeAPI{containers: summaries("bbb", "aaa")}
		w := NewWorkers(&SDKWorkers{api: api}, nil)

		n, err := w.Start(context.Background(), "app")
		require.NoError(t, err)
		assert.Equal(t, 2, n)
		assert.Equal(t, "docker-starter.worker.app", api.lastFilter)
		assert.Equal(t, []string{
			"list",
			"update unless-stopped aaa", "update unless-stopped bbb",
			"start aaa", "start bbb",
		}, api.calls)
	})

	t.Run("stop", func(t *testing.T) {
		api := &fakeAPI{containers: summaries("aaa")}
		w := NewWorkers(&SDKWorkers{api: api}, nil)

		n, err := w.Stop(context.Background(), "app")
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		assert.Equal(t, []string{"list", "update no aaa", "stop aaa"}, api.calls)
	})
}

// TestWorkers_EmptySet verifies that no container operation is issued
// when the project has no workers.
func TestWorkers_EmptySet(t *testing.T) {
	api := &fakeAPI{}
	w := NewWorkers(&SDKWorkers{api: api}, nil)

	n, err := w.Start(context.Background(), "app")
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = w.Stop(context.Background(), "app")
	require.NoError(t, err)
	assert.Zero(t, n)

	assert.Equal(t, []string{"list", "list"}, api.calls)
}

// TestWorkers_Errors verifies daemon failures surface as Docker errors
// and stop the sequence.
func TestWorkers_Errors(t *testing.T) {
	t.Run("list fails", func(t *testing.T) {
		api := &fakeAPI{listErr: errors.New("connection refused")}
		_, err := NewWorkers(&SDKWorkers{api: api}, nil).Start(context.Background(), "app")

		var cliErr *model.CLIError
		require.True(t, errors.As(err, &cliErr))
		assert.Equal(t, model.ExitDockerNotRunning, cliErr.Code)
	})

	t.Run("update fails", func(t *testing.T) {
		api := &fakeAPI{containers: summaries("0123456789abcdef"), updateErr: errors.New("no such container")}
		_, err := NewWorkers(&SDKWorkers{api: api}, nil).Stop(context.Background(), "app")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "0123456789ab")
		assert.NotContains(t, api.calls, "stop 0123456789abcdef")
	})
}

// TestWorkers_CLI verifies the docker CLI invocations.
func TestWorkers_CLI(t *testing.T) {
	rec := &process.Recorder{
		Handler: func(cmd model.ComposedCommand, _ process.Policy) (process.Result, error) {
			if cmd.Args[0] == "ps" {
				return process.Result{Stdout: "f00d\nbeef\n"}, nil
			}
			return process.Result{}, nil
		},
	}
	w := NewWorkers(NewCLIWorkers(rec), nil)

	n, err := w.Start(context.Background(), "app")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = w.Stop(context.Background(), "app")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	assert.Equal(t, []string{
		"docker ps -a --filter label=docker-starter.worker.app --quiet",
		"docker update --restart=unless-stopped beef f00d",
		"docker start beef f00d",
		"docker ps -a --filter label=docker-starter.worker.app --quiet",
		"docker update --restart=no beef f00d",
		"docker stop beef f00d",
	}, rec.Commands())

	quiet := make([]bool, 0, 6)
	for _, c := range rec.Calls() {
		quiet = append(quiet, c.Policy.Quiet)
	}
	assert.Equal(t, []bool{true, true, true, true, false, false}, quiet, "the stop direction streams its output")
}

// TestWorkers_CLIEmpty verifies the CLI backend issues nothing but the
// listing when no worker exists.
func TestWorkers_CLIEmpty(t *testing.T) {
	rec := &process.Recorder{}
	w := NewWorkers(NewCLIWorkers(rec), nil)

	n, err := w.Start(context.Background(), "app")
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Len(t, rec.Calls(), 1)
}

// TestParseIDs covers header lines and duplicates.
func TestParseIDs(t *testing.T) {
	tests := []struct {
		name     string
		out      string
		expected WorkerSet
	}{
		{"empty", "", WorkerSet{}},
		{"ids", "abc\ndef\n", WorkerSet{"abc", "def"}},
		{"header only", "NAMES\n", WorkerSet{}},
		{"table header", "CONTAINER ID   IMAGE   NAMES\nabc\n", WorkerSet{"abc"}},
		{"duplicates and blanks", "abc\n\n  abc  \n", WorkerSet{"abc"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseIDs(tt.out))
		})
	}
}
