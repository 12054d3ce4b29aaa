package stack

import (
	"errors"
	"strconv"
	"strings"

	"github.com/shinji-kodama/devstack/internal/model"
)

// Defaults for ComposeRun.
const (
	DefaultRunService = "builder"
	DefaultRunUser    = "app"
)

// ErrEmptyCommand is returned when a composed invocation has nothing to run.
var ErrEmptyCommand = errors.New("empty command")

// ComposeOptions tunes Compose.
type ComposeOptions struct {
	// WithBuilder appends the builder overlay as the last -f file.
	WithBuilder bool
}

// Compose builds a `docker compose` invocation for the given
// sub-command, which is appended verbatim after the file flags.
//
// The same Context and arguments always produce the same command.
func (c *Context) Compose(sub []string, opts ComposeOptions) (model.ComposedCommand, error) {
	if len(sub) == 0 {
		return model.ComposedCommand{}, ErrEmptyCommand
	}

	files := c.composeFiles
	args := make([]string, 0, 3+2*(len(files)+1)+len(sub))
	args = append(args, "compose", "-p", c.params.ProjectName)
	for _, f := range files {
		args = append(args, "-f", c.ComposePath(f))
	}
	if opts.WithBuilder {
		args = append(args, "-f", c.ComposePath(BuilderComposeFile))
	}
	args = append(args, sub...)

	return model.ComposedCommand{
		Name:        "docker",
		Args:        args,
		Env:         c.ComposeEnv(),
		OverrideEnv: false,
		Dir:         c.rootDir,
	}, nil
}

// ComposeEnv returns the variables the compose files interpolate.
func (c *Context) ComposeEnv() map[string]string {
	return map[string]string{
		"PROJECT_NAME":        c.params.ProjectName,
		"PROJECT_DIRECTORY":   c.params.ProjectDirectory,
		"PROJECT_ROOT_DOMAIN": c.params.RootDomain,
		"PROJECT_DOMAINS":     RouterDomains(c.params.Domains()),
		"COMPOSER_CACHE_DIR":  c.cacheDir.Value,
		"PHP_VERSION":         c.params.PHPVersion,
	}
}

// RouterDomains renders domains as the router's Host rule argument list:
// "`a`, `b`".
func RouterDomains(domains []string) string {
	return "`" + strings.Join(domains, "`, `") + "`"
}

// BuildArgs returns the --build-arg flags passed to image builds.
func (c *Context) BuildArgs() []string {
	return []string{
		"--build-arg", "PROJECT_NAME=" + c.params.ProjectName,
		"--build-arg", "USER_ID=" + strconv.Itoa(c.userID),
		"--build-arg", "PHP_VERSION=" + c.params.PHPVersion,
	}
}

// runOptions collects ComposeRun settings.
type runOptions struct {
	service      string
	user         string
	noDeps       bool
	servicePorts bool
	workDir      string
	withBuilder  bool
}

// RunOption configures ComposeRun.
type RunOption func(*runOptions)

// WithService runs the command in another service.
func WithService(service string) RunOption {
	return func(o *runOptions) { o.service = service }
}

// WithUser runs the command as another container user.
func WithUser(user string) RunOption {
	return func(o *runOptions) { o.user = user }
}

// WithDeps starts the service's dependencies (omits --no-deps).
func WithDeps() RunOption {
	return func(o *runOptions) { o.noDeps = false }
}

// WithServicePorts publishes the service's ports.
func WithServicePorts() RunOption {
	return func(o *runOptions) { o.servicePorts = true }
}

// WithWorkDir sets the working directory inside the container.
func WithWorkDir(dir string) RunOption {
	return func(o *runOptions) { o.workDir = dir }
}

// WithoutBuilder omits the builder overlay.
func WithoutBuilder() RunOption {
	return func(o *runOptions) { o.withBuilder = false }
}

// ComposeRun builds a one-off `docker compose run` of a shell command.
//
// The command is handed to /bin/sh -c prefixed with exec, so the user
// command replaces the shell and receives signals directly. Defaults:
// service builder, user app, --no-deps, builder overlay included.
func (c *Context) ComposeRun(command string, opts ...RunOption) (model.ComposedCommand, error) {
	if strings.TrimSpace(command) == "" {
		return model.ComposedCommand{}, ErrEmptyCommand
	}

	o := runOptions{
		service:     DefaultRunService,
		user:        DefaultRunUser,
		noDeps:      true,
		withBuilder: true,
	}
	for _, opt := range opts {
		opt(&o)
	}

	sub := []string{"run", "--rm", "-u", o.user}
	if o.noDeps {
		sub = append(sub, "--no-deps")
	}
	if o.servicePorts {
		sub = append(sub, "--service-ports")
	}
	if o.workDir != "" {
		sub = append(sub, "-w", o.workDir)
	}
	sub = append(sub, o.service, "/bin/sh", "-c", "exec "+command)

	return c.Compose(sub, ComposeOptions{WithBuilder: o.withBuilder})
}
