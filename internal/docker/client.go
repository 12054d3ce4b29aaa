package docker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/docker/docker/client"

	"github.com/shinji-kodama/devstack/internal/model"
)

// pingTimeout bounds the daemon check of one candidate address. Docker
// Desktop can take a few seconds to answer right after waking up.
const pingTimeout = 5 * time.Second

// Client is a Docker Engine API connection to a daemon that answered a
// ping. The SDK worker backend is built on it.
type Client struct {
	api  *client.Client
	host string
}

// Host returns the daemon address the client is connected to.
func (c *Client) Host() string { return c.host }

// API returns the SDK client.
func (c *Client) API() *client.Client { return c.api }

// Close releases the connection. It is safe to call more than once.
func (c *Client) Close() error {
	if c.api == nil {
		return nil
	}
	return c.api.Close()
}

// Candidates lists the daemon addresses to try, in order. An explicit
// DOCKER_HOST is the only candidate when set. Otherwise the system socket
// comes first, followed by the per-user sockets of rootless Docker and
// Docker Desktop.
func Candidates(goos string, getenv func(string) string, home string) []string {
	if h := getenv("DOCKER_HOST"); h != "" {
		return []string{h}
	}

	switch goos {
	case "windows":
		return []string{
			"npipe:////./pipe/docker_engine",
			"npipe:////./pipe/dockerDesktopLinuxEngine",
		}
	case "darwin":
		hosts := []string{"unix:///var/run/docker.sock"}
		if home != "" {
			hosts = append(hosts, "unix://"+filepath.Join(home, ".docker", "run", "docker.sock"))
		}
		return hosts
	default:
		hosts := []string{"unix:///var/run/docker.sock"}
		if dir := getenv("XDG_RUNTIME_DIR"); dir != "" {
			hosts = append(hosts, "unix://"+filepath.Join(dir, "docker.sock"))
		}
		if home != "" {
			hosts = append(hosts, "unix://"+filepath.Join(home, ".docker", "desktop", "docker.sock"))
		}
		return hosts
	}
}

// Connect dials the first responsive daemon among the default candidates
// of this host.
func Connect(ctx context.Context, logger *slog.Logger) (*Client, error) {
	home, _ := os.UserHomeDir()
	return Dial(ctx, Candidates(runtime.GOOS, os.Getenv, home), logger)
}

// Dial tries hosts in order and returns a client for the first daemon
// that answers a ping. Unix sockets missing from the filesystem are
// skipped without dialing.
//
// When no daemon answers, the returned CLIError carries
// ExitDockerNotRunning and the reason each candidate was rejected.
func Dial(ctx context.Context, hosts []string, logger *slog.Logger) (*Client, error) {
	var errs []error
	for _, host := range hosts {
		c, err := dial(ctx, host)
		if err != nil {
			logger.Debug("docker host rejected", "host", host, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", host, err))
			continue
		}
		logger.Debug("docker host selected", "host", host)
		return c, nil
	}

	return nil, model.WrapCLIError(
		model.ExitDockerNotRunning,
		"Docker daemon is not reachable (is Docker running?)",
		errors.Join(errs...),
	)
}

func dial(ctx context.Context, host string) (*Client, error) {
	if path, ok := strings.CutPrefix(host, "unix://"); ok {
		if _, err := os.Stat(path); err != nil {
			return nil, err
		}
	}

	api, err := client.NewClientWithOpts(
		client.WithHost(host),
		client.WithAPIVersionNegotiation(),
	)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if _, err := api.Ping(pingCtx); err != nil {
		_ = api.Close()
		return nil, err
	}
	return &Client{api: api, host: host}, nil
}
