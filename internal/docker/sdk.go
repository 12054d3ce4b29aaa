package docker

import (
	"context"
	"fmt"

	"github.com/docker/docker/api/types/container"

	"github.com/shinji-kodama/devstack/internal/model"
)

// containerAPI is the subset of the Docker SDK client used for workers.
// *client.Client satisfies it; tests substitute a fake.
type containerAPI interface {
	ContainerList(ctx context.Context, options container.ListOptions) ([]container.Summary, error)
	ContainerUpdate(ctx context.Context, containerID string, updateConfig container.UpdateConfig) (container.UpdateResponse, error)
	ContainerStart(ctx context.Context, containerID string, options container.StartOptions) error
	ContainerStop(ctx context.Context, containerID string, options container.StopOptions) error
}

// SDKWorkers implements Backend with the Docker Engine API.
type SDKWorkers struct {
	api containerAPI
}

// NewSDKWorkers creates a backend over a connected client.
func NewSDKWorkers(c *Client) *SDKWorkers {
	return &SDKWorkers{api: c.API()}
}

// List queries the daemon for the project's workers, including stopped
// ones. Filtering happens server-side.
func (s *SDKWorkers) List(ctx context.Context, projectName string) (WorkerSet, error) {
	containers, err := s.api.ContainerList(ctx, container.ListOptions{
		All:     true,
		Filters: WorkerFilter(projectName),
	})
	if err != nil {
		return nil, model.WrapCLIError(
			model.ExitDockerNotRunning,
			"failed to list worker containers",
			err,
		)
	}

	ids := make([]string, 0, len(containers))
	for _, c := range containers {
		ids = append(ids, c.ID)
	}
	return newWorkerSet(ids), nil
}

// SetRestartPolicy updates each container's restart policy.
func (s *SDKWorkers) SetRestartPolicy(ctx context.Context, set WorkerSet, policy RestartPolicy) error {
	mode := container.RestartPolicyDisabled
	if policy == RestartUnlessStopped {
		mode = container.RestartPolicyUnlessStopped
	}

	for _, id := range set {
		_, err := s.api.ContainerUpdate(ctx, id, container.UpdateConfig{
			RestartPolicy: container.RestartPolicy{Name: mode},
		})
		if err != nil {
			return model.WrapCLIError(
				model.ExitDockerNotRunning,
				fmt.Sprintf("failed to set restart policy %q on container %q", policy, shortID(id)),
				err,
			)
		}
	}
	return nil
}

// Start starts each container. Starting a running container is a no-op
// for the daemon.
func (s *SDKWorkers) Start(ctx context.Context, set WorkerSet) error {
	for _, id := range set {
		if err := s.api.ContainerStart(ctx, id, container.StartOptions{}); err != nil {
			return model.WrapCLIError(
				model.ExitDockerNotRunning,
				fmt.Sprintf("failed to start container %q", shortID(id)),
				err,
			)
		}
	}
	return nil
}

// Stop stops each container with the daemon's default grace period.
func (s *SDKWorkers) Stop(ctx context.Context, set WorkerSet) error {
	for _, id := range set {
		if err := s.api.ContainerStop(ctx, id, container.StopOptions{}); err != nil {
			return model.WrapCLIError(
				model.ExitDockerNotRunning,
				fmt.Sprintf("failed to stop container %q", shortID(id)),
				err,
			)
		}
	}
	return nil
}

// shortID truncates a container id to the 12 characters docker prints.
func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
