package docker

import (
	"github.com/docker/docker/api/types/filters"
)

// WorkerLabelPrefix is the prefix of the worker discovery label. The
// compose project name is appended, so workers of different projects on
// the same host never collide.
const WorkerLabelPrefix = "docker-starter.worker."

// Labels set by docker compose on every container it creates.
const (
	ComposeProjectLabel = "com.docker.compose.project"
	ComposeServiceLabel = "com.docker.compose.service"
)

// WorkerLabel returns the discovery label key for a project's workers.
func WorkerLabel(projectName string) string {
	return WorkerLabelPrefix + projectName
}

// WorkerFilter returns the Docker API filter matching a project's
// workers. The label is matched by key only; its value is irrelevant.
func WorkerFilter(projectName string) filters.Args {
	return filters.NewArgs(filters.Arg("label", WorkerLabel(projectName)))
}
