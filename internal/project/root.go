// root.go locates the repository root that every compose file, certificate
// and application path is resolved against.
package project

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shinji-kodama/devstack/internal/model"
	"github.com/shinji-kodama/devstack/internal/process"
)

// ComposeDir is the directory holding the compose files, relative to the
// repository root.
const ComposeDir = "infrastructure/docker"

// BaseComposeFile is the compose file every stack starts from.
const BaseComposeFile = "docker-compose.yml"

// gitQueryTimeout bounds the git top-level query.
const gitQueryTimeout = 5 * time.Second

// RootFinder resolves the repository root.
type RootFinder struct {
	// Getwd returns the starting directory (os.Getwd in production).
	Getwd func() (string, error)

	// GitTopLevel returns the git top-level directory containing dir.
	GitTopLevel func(ctx context.Context, dir string) (string, error)
}

// NewRootFinder creates a RootFinder backed by the process working
// directory and the git CLI run through runner.
func NewRootFinder(runner process.Runner) *RootFinder {
	return &RootFinder{
		Getwd: os.Getwd,
		GitTopLevel: func(ctx context.Context, dir string) (string, error) {
			return GitTopLevel(ctx, runner, dir)
		},
	}
}

// Find returns the absolute repository root.
//
// Resolution order:
//  1. the explicit override (the --root-dir flag), which must exist
//  2. the nearest ancestor of the working directory containing a project
//     file or the base compose file
//  3. the git top-level directory
//  4. the working directory itself
func (f *RootFinder) Find(ctx context.Context, override string) (string, error) {
	if override != "" {
		abs, err := filepath.Abs(override)
		if err != nil {
			return "", model.NewConfigurationError(fmt.Sprintf("invalid root directory %q", override), err)
		}
		info, err := os.Stat(abs)
		if err != nil || !info.IsDir() {
			return "", model.NewConfigurationError(fmt.Sprintf("root directory %s does not exist", abs), err)
		}
		return abs, nil
	}

	cwd, err := f.Getwd()
	if err != nil {
		return "", model.NewConfigurationError("cannot determine the working directory", err)
	}

	// Step 1: walk up looking for a marker.
	for dir := cwd; ; {
		if IsRoot(dir) {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	// Step 2: the enclosing git checkout, if any.
	if f.GitTopLevel != nil {
		if top, err := f.GitTopLevel(ctx, cwd); err == nil && top != "" {
			return top, nil
		}
	}

	return cwd, nil
}

// IsRoot reports whether dir holds a project file or the base compose file.
func IsRoot(dir string) bool {
	if _, ok := FindFile(dir); ok {
		return true
	}
	_, err := os.Stat(filepath.Join(dir, ComposeDir, BaseComposeFile))
	return err == nil
}

// GitTopLevel runs `git -C <dir> rev-parse --show-toplevel`. The
// directory is passed with -C so the process working directory is left
// untouched.
func GitTopLevel(ctx context.Context, runner process.Runner, dir string) (string, error) {
	res, err := runner.Run(ctx, model.ComposedCommand{
		Name: "git",
		Args: []string{"-C", dir, "rev-parse", "--show-toplevel"},
	}, process.Policy{Quiet: true, Timeout: gitQueryTimeout})
	if err != nil {
		return "", fmt.Errorf("git rev-parse failed: %w", err)
	}
	return filepath.FromSlash(strings.TrimSpace(res.Stdout)), nil
}
