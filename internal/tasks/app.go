package tasks

import (
	"context"
	"os"
	"path/filepath"

	"github.com/shinji-kodama/devstack/internal/process"
	"github.com/shinji-kodama/devstack/internal/stack"
)

// interactivePolicy attaches the child to the terminal.
var interactivePolicy = process.Policy{TTY: true}

// builderPolicy is used for the interactive builder shell: no timeout, the
// terminal handed over, and the shell's exit status not treated as a
// failure of devstack.
var builderPolicy = process.Policy{TTY: true, Quiet: true, AllowFailure: true}

// Dependency installers, run inside the builder in this order.
const (
	composerInstall = "composer install -n --prefer-dist --optimize-autoloader"
	yarnInstall     = "yarn"
	npmInstall      = "npm install"
)

// Builder opens a bash shell in a builder container as user.
func (o *Orchestrator) Builder(ctx context.Context, user string) error {
	if user == "" {
		user = stack.DefaultRunUser
	}
	return o.composeRun(ctx, "bash", builderPolicy, stack.WithUser(user))
}

// Install installs the application dependencies. Composer runs when the
// application has a composer.json; yarn runs when it has a yarn.lock,
// npm when it only has a package.json.
func (o *Orchestrator) Install(ctx context.Context) error {
	policy := process.Policy{Timeout: o.installTimeout, PTY: true}
	appDir := o.stack.ApplicationDir()

	var commands []string
	if isFile(filepath.Join(appDir, "composer.json")) {
		commands = append(commands, composerInstall)
	}
	switch {
	case isFile(filepath.Join(appDir, "yarn.lock")):
		commands = append(commands, yarnInstall)
	case isFile(filepath.Join(appDir, "package.json")):
		commands = append(commands, npmInstall)
	}

	if len(commands) == 0 {
		o.logger.Debug("nothing to install", "dir", appDir)
		return nil
	}
	for _, c := range commands {
		if err := o.composeRun(ctx, c, policy); err != nil {
			return err
		}
	}
	return nil
}

// CacheClear runs the project's cache_clear hooks.
func (o *Orchestrator) CacheClear(ctx context.Context) error {
	return o.runHooks(ctx, "cache_clear", o.stack.Hooks().CacheClear)
}

// Migrate runs the project's migrate hooks.
func (o *Orchestrator) Migrate(ctx context.Context) error {
	return o.runHooks(ctx, "migrate", o.stack.Hooks().Migrate)
}

func (o *Orchestrator) runHooks(ctx context.Context, name string, commands []string) error {
	if len(commands) == 0 {
		o.logger.Debug("no hook configured", "hook", name)
		return nil
	}
	for _, c := range commands {
		if err := o.composeRun(ctx, c, composePolicy); err != nil {
			return err
		}
	}
	return nil
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
