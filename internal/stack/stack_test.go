package stack

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinji-kodama/devstack/internal/model"
	"github.com/shinji-kodama/devstack/internal/project"
)

const testRoot = "/repo"

// composeDir is the absolute compose directory under testRoot.
var composeDir = filepath.Join(testRoot, filepath.FromSlash(project.ComposeDir))

// existing returns a FileExists func that knows the given compose files.
func existing(files ...string) func(string) bool {
	set := map[string]bool{}
	for _, f := range files {
		set[filepath.Join(composeDir, f)] = true
	}
	return func(p string) bool { return set[p] }
}

func testParams() model.Params {
	return model.Params{
		ProjectName:      "app",
		RootDomain:       "app.test",
		ExtraDomains:     []string{"www.app.test", "api.app.test"},
		PHPVersion:       "8.2",
		ProjectDirectory: "application",
	}
}

func testProbe(platform model.Platform, uid int) model.ProbeResult {
	return model.ProbeResult{
		Platform:           model.Primary(platform),
		UserID:             uid,
		Mode:               model.ModeDev,
		DependencyCacheDir: model.Primary("/home/dev/.cache/composer"),
	}
}

// resolve is a fixture builder for a Context on Linux with only the base
// compose file present.
func resolve(t *testing.T, params model.Params, probe model.ProbeResult, files ...string) *Context {
	t.Helper()
	if len(files) == 0 {
		files = []string{project.BaseComposeFile}
	}
	r := &Resolver{FileExists: existing(files...)}
	c, err := r.Resolve(params, probe, testRoot)
	require.NoError(t, err)
	return c
}

// --- Resolve ---

// TestResolve_ComposeOrder verifies the compose file order per platform
// and override presence.
func TestResolve_ComposeOrder(t *testing.T) {
	tests := []struct {
		name     string
		platform model.Platform
		present  []string
		expected []string
	}{
		{
			name:     "linux without override",
			platform: model.PlatformOther,
			present:  []string{project.BaseComposeFile},
			expected: []string{project.BaseComposeFile, WorkerComposeFile},
		},
		{
			name:     "linux with override",
			platform: model.PlatformOther,
			present:  []string{project.BaseComposeFile, OverrideComposeFile},
			expected: []string{project.BaseComposeFile, WorkerComposeFile, OverrideComposeFile},
		},
		{
			name:     "macos with override",
			platform: model.PlatformMacOS,
			present:  []string{project.BaseComposeFile, OverrideComposeFile},
			expected: []string{project.BaseComposeFile, WorkerComposeFile, PlatformComposeFile, OverrideComposeFile},
		},
		{
			name:     "windows without override",
			platform: model.PlatformWindows,
			present:  []string{project.BaseComposeFile},
			expected: []string{project.BaseComposeFile, WorkerComposeFile, PlatformComposeFile},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := resolve(t, testParams(), testProbe(tt.platform, 1000), tt.present...)
			assert.Equal(t, tt.expected, c.ComposeFiles())
			assert.NotContains(t, c.ComposeFiles(), BuilderComposeFile)
		})
	}
}

// TestResolve_MissingBase verifies a missing base file is a configuration
// error.
func TestResolve_MissingBase(t *testing.T) {
	r := &Resolver{FileExists: existing()}
	_, err := r.Resolve(testParams(), testProbe(model.PlatformOther, 1000), testRoot)
	assert.ErrorIs(t, err, model.ErrConfiguration)
}

// TestResolve_UserID verifies the remapping policy and that only root
// produces a warning, exactly once.
func TestResolve_UserID(t *testing.T) {
	tests := []struct {
		uid      int
		expected int
		warnings int
	}{
		{0, 1000, 1},
		{1, 1, 0},
		{501, 501, 0},
		{256000, 256000, 0},
		{256001, 1000, 0},
		{1234567890, 1000, 0},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("uid %d", tt.uid), func(t *testing.T) {
			c := resolve(t, testParams(), testProbe(model.PlatformOther, tt.uid))
			assert.Equal(t, tt.expected, c.UserID())
			assert.Len(t, c.Warnings(), tt.warnings)
			assert.NotZero(t, c.UserID())
			assert.LessOrEqual(t, c.UserID(), maxUserID)
		})
	}
}

// TestResolve_Pure verifies that resolving twice yields equal contexts
// and that the inputs are not aliased.
func TestResolve_Pure(t *testing.T) {
	params := testParams()
	probe := testProbe(model.PlatformMacOS, 0)
	files := []string{project.BaseComposeFile, OverrideComposeFile}

	a := resolve(t, params, probe, files...)
	b := resolve(t, params, probe, files...)
	assert.Equal(t, a, b)

	params.ExtraDomains[0] = "mutated.test"
	assert.Equal(t, []string{"www.app.test", "api.app.test"}, a.ExtraDomains())

	got := a.ComposeFiles()
	got[0] = "mutated.yml"
	assert.Equal(t, project.BaseComposeFile, a.ComposeFiles()[0])
}

// TestContext_Paths verifies the derived absolute paths.
func TestContext_Paths(t *testing.T) {
	c := resolve(t, testParams(), testProbe(model.PlatformOther, 1000))

	assert.Equal(t, filepath.Join(composeDir, "docker-compose.yml"), c.ComposePath(project.BaseComposeFile))
	assert.Equal(t, filepath.Join(testRoot, "infrastructure", "docker", "services", "router", "etc", "ssl", "certs"), c.CertDir())
	assert.Equal(t, filepath.Join(testRoot, "application"), c.ApplicationDir())
	assert.Equal(t, []string{"app.test", "www.app.test", "api.app.test"}, c.Domains())
}

// --- Compose ---

// TestCompose_Layout verifies the argument layout and environment.
func TestCompose_Layout(t *testing.T) {
	c := resolve(t, testParams(), testProbe(model.PlatformMacOS, 1000), project.BaseComposeFile)

	cmd, err := c.Compose([]string{"up", "--remove-orphans", "--detach"}, ComposeOptions{})
	require.NoError(t, err)

	assert.Equal(t, "docker", cmd.Name)
	assert.Equal(t, []string{
		"compose", "-p", "app",
		"-f", filepath.Join(composeDir, "docker-compose.yml"),
		"-f", filepath.Join(composeDir, "docker-compose.worker.yml"),
		"-f", filepath.Join(composeDir, "docker-compose.docker-for-x.yml"),
		"up", "--remove-orphans", "--detach",
	}, cmd.Args)
	assert.False(t, cmd.OverrideEnv)
	assert.Equal(t, testRoot, cmd.Dir)
	assert.Equal(t, map[string]string{
		"PROJECT_NAME":        "app",
		"PROJECT_DIRECTORY":   "application",
		"PROJECT_ROOT_DOMAIN": "app.test",
		"PROJECT_DOMAINS":     "`app.test`, `www.app.test`, `api.app.test`",
		"COMPOSER_CACHE_DIR":  "/home/dev/.cache/composer",
		"PHP_VERSION":         "8.2",
	}, cmd.Env)
}

// TestCompose_BuilderLast verifies the builder overlay is appended after
// every other file, including the local override.
func TestCompose_BuilderLast(t *testing.T) {
	c := resolve(t, testParams(), testProbe(model.PlatformWindows, 1000), project.BaseComposeFile, OverrideComposeFile)

	cmd, err := c.Compose([]string{"build"}, ComposeOptions{WithBuilder: true})
	require.NoError(t, err)

	var files []string
	for i, a := range cmd.Args {
		if a == "-f" {
			files = append(files, filepath.Base(cmd.Args[i+1]))
		}
	}
	assert.Equal(t, []string{
		project.BaseComposeFile, WorkerComposeFile, PlatformComposeFile, OverrideComposeFile, BuilderComposeFile,
	}, files)
	assert.Equal(t, "build", cmd.Args[len(cmd.Args)-1])
}

// TestCompose_Idempotent verifies identical inputs give identical commands.
func TestCompose_Idempotent(t *testing.T) {
	c := resolve(t, testParams(), testProbe(model.PlatformOther, 1000))

	a, err := c.Compose([]string{"ps"}, ComposeOptions{WithBuilder: true})
	require.NoError(t, err)
	b, err := c.Compose([]string{"ps"}, ComposeOptions{WithBuilder: true})
	require.NoError(t, err)
	assert.Equal(t, a, b)

	a.Env["PHP_VERSION"] = "mutated"
	assert.Equal(t, "8.2", c.ComposeEnv()["PHP_VERSION"])
}

// TestCompose_Empty verifies an empty sub-command is rejected.
func TestCompose_Empty(t *testing.T) {
	c := resolve(t, testParams(), testProbe(model.PlatformOther, 1000))
	_, err := c.Compose(nil, ComposeOptions{})
	assert.ErrorIs(t, err, ErrEmptyCommand)
}

// TestComposeRun verifies the one-off run layout and its options.
func TestComposeRun(t *testing.T) {
	c := resolve(t, testParams(), testProbe(model.PlatformOther, 1000))

	tail := func(t *testing.T, cmd model.ComposedCommand) []string {
		t.Helper()
		for i, a := range cmd.Args {
			if a == "run" {
				return cmd.Args[i:]
			}
		}
		t.Fatalf("no run sub-command in %v", cmd.Args)
		return nil
	}

	t.Run("defaults", func(t *testing.T) {
		cmd, err := c.ComposeRun("composer install")
		require.NoError(t, err)
		assert.Equal(t, []string{
			"run", "--rm", "-u", "app", "--no-deps", "builder", "/bin/sh", "-c", "exec composer install",
		}, tail(t, cmd))
		assert.Contains(t, cmd.Args, filepath.Join(composeDir, BuilderComposeFile))
	})

	t.Run("all options", func(t *testing.T) {
		cmd, err := c.ComposeRun("bash",
			WithService("php"), WithUser("root"), WithDeps(), WithServicePorts(),
			WithWorkDir("/var/www/application"), WithoutBuilder())
		require.NoError(t, err)
		assert.Equal(t, []string{
			"run", "--rm", "-u", "root", "--service-ports", "-w", "/var/www/application",
			"php", "/bin/sh", "-c", "exec bash",
		}, tail(t, cmd))
		assert.NotContains(t, cmd.Args, filepath.Join(composeDir, BuilderComposeFile))
	})

	t.Run("empty command", func(t *testing.T) {
		_, err := c.ComposeRun("  ")
		assert.ErrorIs(t, err, ErrEmptyCommand)
	})
}

// TestBuildArgs verifies the image build arguments use the remapped uid.
func TestBuildArgs(t *testing.T) {
	c := resolve(t, testParams(), testProbe(model.PlatformOther, 0))
	assert.Equal(t, []string{
		"--build-arg", "PROJECT_NAME=app",
		"--build-arg", "USER_ID=1000",
		"--build-arg", "PHP_VERSION=8.2",
	}, c.BuildArgs())
}

// TestRouterDomains verifies the Host rule rendering.
func TestRouterDomains(t *testing.T) {
	assert.Equal(t, "`app.test`", RouterDomains([]string{"app.test"}))
	assert.Equal(t, "`a.test`, `b.test`", RouterDomains([]string{"a.test", "b.test"}))
}
