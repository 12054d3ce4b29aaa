package docker

import (
	"context"
	"log/slog"

	"github.com/shinji-kodama/devstack/internal/process"
)

// SelectBackend returns the worker backend to use: the Docker SDK when a
// daemon answers on one of the candidate addresses, otherwise the docker
// CLI through runner. The returned close function releases the SDK
// client and is always safe to call.
func SelectBackend(ctx context.Context, runner process.Runner, logger *slog.Logger) (Backend, func() error) {
	c, err := Connect(ctx, logger)
	if err != nil {
		logger.Debug("docker SDK unavailable, using docker CLI", "error", err)
		return NewCLIWorkers(runner), func() error { return nil }
	}

	logger.Debug("using docker SDK for worker containers", "host", c.Host())
	return NewSDKWorkers(c), c.Close
}
