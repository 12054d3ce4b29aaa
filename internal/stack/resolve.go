package stack

import (
	"fmt"
	"os"

	"github.com/shinji-kodama/devstack/internal/model"
	"github.com/shinji-kodama/devstack/internal/project"
)

// User id policy. Ids above maxUserID (typical of directory-service
// accounts) do not fit container user namespaces; root inside the
// builder would own every generated file.
const (
	maxUserID      = 256000
	fakeUserID     = 1000
	rootUIDWarning = "Running as root? Fallback to fake user id."
)

// Resolver builds a Context. It reads nothing but file existence.
type Resolver struct {
	// FileExists reports whether a path exists (os.Stat in production).
	FileExists func(path string) bool
}

// NewResolver returns a Resolver backed by the real filesystem.
func NewResolver() *Resolver {
	return &Resolver{
		FileExists: func(path string) bool {
			_, err := os.Stat(path)
			return err == nil
		},
	}
}

// Resolve derives the Context from the static parameters, the probe
// snapshot and the repository root.
//
// Compose files are ordered base, worker, platform overlay (macOS and
// Windows only), then the local override when present so it wins over
// everything else. A missing base file is a configuration error.
func (r *Resolver) Resolve(params model.Params, probe model.ProbeResult, rootDir string) (*Context, error) {
	c := &Context{
		params:   cloneParams(params),
		rootDir:  rootDir,
		platform: probe.Platform.Value,
		mode:     probe.Mode,
		cacheDir: probe.DependencyCacheDir,
	}

	if !r.FileExists(c.ComposePath(project.BaseComposeFile)) {
		return nil, model.NewConfigurationError(
			fmt.Sprintf("base compose file not found: %s", c.ComposePath(project.BaseComposeFile)), nil)
	}

	files := []string{project.BaseComposeFile, WorkerComposeFile}
	if c.platform.NeedsOverlay() {
		files = append(files, PlatformComposeFile)
	}
	if r.FileExists(c.ComposePath(OverrideComposeFile)) {
		files = append(files, OverrideComposeFile)
	}
	c.composeFiles = files

	c.userID, c.warnings = remapUserID(probe.UserID)
	return c, nil
}

// remapUserID applies the container user id policy.
func remapUserID(uid int) (int, []string) {
	switch {
	case uid == 0:
		return fakeUserID, []string{rootUIDWarning}
	case uid > maxUserID:
		return fakeUserID, nil
	default:
		return uid, nil
	}
}

func cloneParams(p model.Params) model.Params {
	p.ExtraDomains = cloneStrings(p.ExtraDomains)
	p.Hooks = model.Hooks{
		CacheClear: cloneStrings(p.Hooks.CacheClear),
		Migrate:    cloneStrings(p.Hooks.Migrate),
	}
	return p
}
