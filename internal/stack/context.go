// Package stack assembles the per-invocation Context from the static
// project parameters and the host probe, and composes docker compose
// invocations from it.
//
// A Context is immutable: it is resolved once per CLI invocation and
// shared read-only by every task. Accessors return copies of slices.
package stack

import (
	"path/filepath"

	"github.com/shinji-kodama/devstack/internal/model"
	"github.com/shinji-kodama/devstack/internal/project"
)

// Compose files, relative to project.ComposeDir.
const (
	WorkerComposeFile   = "docker-compose.worker.yml"
	PlatformComposeFile = "docker-compose.docker-for-x.yml"
	OverrideComposeFile = "docker-compose.override.yml"
	BuilderComposeFile  = "docker-compose.builder.yml"
)

// CertDir is where the router reads its TLS certificate, relative to the
// repository root.
const CertDir = "infrastructure/docker/services/router/etc/ssl/certs"

// Context is the resolved, read-only state of one CLI invocation.
type Context struct {
	params       model.Params
	rootDir      string
	composeFiles []string
	platform     model.Platform
	userID       int
	mode         model.EnvMode
	cacheDir     model.Sourced[string]
	warnings     []string
}

// ProjectName returns the compose project name.
func (c *Context) ProjectName() string { return c.params.ProjectName }

// RootDomain returns the main local domain.
func (c *Context) RootDomain() string { return c.params.RootDomain }

// ExtraDomains returns the extra domains in declaration order.
func (c *Context) ExtraDomains() []string { return cloneStrings(c.params.ExtraDomains) }

// Domains returns the root domain followed by the extra domains.
func (c *Context) Domains() []string { return c.params.Domains() }

// PHPVersion returns the runtime version passed to image builds.
func (c *Context) PHPVersion() string { return c.params.PHPVersion }

// ProjectDirectory returns the application directory relative to the root.
func (c *Context) ProjectDirectory() string { return c.params.ProjectDirectory }

// Hooks returns the cache-clear and migrate extension points.
func (c *Context) Hooks() model.Hooks {
	return model.Hooks{
		CacheClear: cloneStrings(c.params.Hooks.CacheClear),
		Migrate:    cloneStrings(c.params.Hooks.Migrate),
	}
}

// RootDir returns the absolute repository root.
func (c *Context) RootDir() string { return c.rootDir }

// ComposeFiles returns the compose file names (relative to the compose
// directory) in merge order. The builder overlay is never included.
func (c *Context) ComposeFiles() []string { return cloneStrings(c.composeFiles) }

// Platform returns the host platform.
func (c *Context) Platform() model.Platform { return c.platform }

// UserID returns the remapped user id used inside containers.
func (c *Context) UserID() int { return c.userID }

// Mode returns ci or dev.
func (c *Context) Mode() model.EnvMode { return c.mode }

// DependencyCacheDir returns the package manager cache directory and
// whether it is a fallback.
func (c *Context) DependencyCacheDir() model.Sourced[string] { return c.cacheDir }

// Warnings returns advisory messages produced during resolution.
func (c *Context) Warnings() []string { return cloneStrings(c.warnings) }

// ComposePath returns the absolute path of a compose file.
func (c *Context) ComposePath(file string) string {
	return filepath.Join(c.rootDir, filepath.FromSlash(project.ComposeDir), file)
}

// CertDir returns the absolute certificate directory.
func (c *Context) CertDir() string {
	return filepath.Join(c.rootDir, filepath.FromSlash(CertDir))
}

// ApplicationDir returns the absolute application directory.
func (c *Context) ApplicationDir() string {
	return filepath.Join(c.rootDir, filepath.FromSlash(c.params.ProjectDirectory))
}

// Path returns an absolute path for a slash-separated path relative to
// the repository root.
func (c *Context) Path(rel string) string {
	return filepath.Join(c.rootDir, filepath.FromSlash(rel))
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}
