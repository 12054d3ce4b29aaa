package docker

import (
	"context"
	"io"
	"log/slog"
	"sort"
)

// RestartPolicy is the restart policy applied to worker containers.
type RestartPolicy string

const (
	// RestartUnlessStopped keeps workers running across daemon restarts
	// until they are explicitly stopped.
	RestartUnlessStopped RestartPolicy = "unless-stopped"

	// RestartNo disables automatic restarts.
	RestartNo RestartPolicy = "no"
)

// WorkerSet is the set of worker container ids of a project. Order is
// not significant; it may be empty.
type WorkerSet []string

// IsEmpty reports whether the set has no containers.
func (s WorkerSet) IsEmpty() bool {
	return len(s) == 0
}

// newWorkerSet de-duplicates and sorts ids.
func newWorkerSet(ids []string) WorkerSet {
	seen := make(map[string]bool, len(ids))
	set := make(WorkerSet, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		set = append(set, id)
	}
	sort.Strings(set)
	return set
}

// Backend performs worker operations against the container runtime.
type Backend interface {
	// List returns every container (running or stopped) carrying the
	// project's worker label.
	List(ctx context.Context, projectName string) (WorkerSet, error)

	// SetRestartPolicy updates the restart policy of every container in set.
	SetRestartPolicy(ctx context.Context, set WorkerSet, policy RestartPolicy) error

	// Start starts every container in set. Running containers are left as is.
	Start(ctx context.Context, set WorkerSet) error

	// Stop stops every container in set. Stopped containers are left as is.
	Stop(ctx context.Context, set WorkerSet) error
}

// Workers starts and stops a project's worker containers.
type Workers struct {
	Backend Backend
	Logger  *slog.Logger
}

// NewWorkers creates a Workers service over backend.
func NewWorkers(backend Backend, logger *slog.Logger) *Workers {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Workers{Backend: backend, Logger: logger}
}

// Start sets the unless-stopped restart policy on every worker and then
// starts them. With no workers it does nothing. It returns the number of
// workers handled.
func (w *Workers) Start(ctx context.Context, projectName string) (int, error) {
	set, err := w.Backend.List(ctx, projectName)
	if err != nil {
		return 0, err
	}
	if set.IsEmpty() {
		w.Logger.Debug("no worker containers", "project", projectName)
		return 0, nil
	}

	w.Logger.Debug("starting workers", "project", projectName, "count", len(set))
	if err := w.Backend.SetRestartPolicy(ctx, set, RestartUnlessStopped); err != nil {
		return 0, err
	}
	if err := w.Backend.Start(ctx, set); err != nil {
		return 0, err
	}
	return len(set), nil
}

// Stop disables automatic restarts on every worker and then stops them.
// With no workers it does nothing. It returns the number of workers handled.
func (w *Workers) Stop(ctx context.Context, projectName string) (int, error) {
	set, err := w.Backend.List(ctx, projectName)
	if err != nil {
		return 0, err
	}
	if set.IsEmpty() {
		w.Logger.Debug("no worker containers", "project", projectName)
		return 0, nil
	}

	w.Logger.Debug("stopping workers", "project", projectName, "count", len(set))
	if err := w.Backend.SetRestartPolicy(ctx, set, RestartNo); err != nil {
		return 0, err
	}
	if err := w.Backend.Stop(ctx, set); err != nil {
		return 0, err
	}
	return len(set), nil
}
