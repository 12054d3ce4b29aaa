// Package docker manages the worker containers of a devstack project.
//
// Worker containers run long-lived background consumers. They are
// created by docker compose from the worker compose file and carry the
// label "docker-starter.worker.<project>", which is the only way they
// are discovered.
//
// This package handles:
//   - Docker client initialization with automatic socket detection
//     (Linux, macOS, Windows)
//   - Worker discovery by label, including stopped containers
//   - Restart policy updates and start/stop of the worker set
//
// Two backends implement the same operations: SDKWorkers talks to the
// daemon through github.com/docker/docker/client, CLIWorkers shells out
// to the docker CLI. SelectBackend prefers the SDK and falls back to the
// CLI when the daemon socket cannot be reached.
package docker
