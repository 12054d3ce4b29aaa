// Package probe takes a one-shot snapshot of the host environment:
// operating system, effective user id, CI mode, the package manager
// cache directory and the availability of the certificate helper.
//
// Probing never fails. Any lookup that cannot be answered falls back to
// a documented default, and the result records which values are
// fallbacks so callers can report them in verbose output.
package probe

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/shinji-kodama/devstack/internal/model"
	"github.com/shinji-kodama/devstack/internal/process"
)

// CertHelperBinary is the certificate helper looked up on PATH.
const CertHelperBinary = "mkcert"

// cacheDirQueryTimeout bounds the package manager query. The probe must
// not hang the CLI when the package manager is slow to start.
const cacheDirQueryTimeout = 10 * time.Second

// fallbackUserID is reported when the platform has no notion of an
// effective uid (Windows).
const fallbackUserID = 1000

// Probe inspects the host. Fields are injectable for tests; NewProbe
// wires the real implementations.
type Probe struct {
	// Runner executes the package manager cache-dir query.
	Runner process.Runner

	// Logger receives debug records about fallbacks.
	Logger *slog.Logger

	goos     func() string
	geteuid  func() int
	getenv   func(string) string
	lookPath func(string) (string, error)
	tempDir  func() string
}

// NewProbe creates a Probe backed by the real host.
func NewProbe(runner process.Runner, logger *slog.Logger) *Probe {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Probe{
		Runner:   runner,
		Logger:   logger,
		goos:     func() string { return runtime.GOOS },
		geteuid:  os.Geteuid,
		getenv:   os.Getenv,
		lookPath: exec.LookPath,
		tempDir:  os.TempDir,
	}
}

// Detect takes the snapshot. It has no side effects beyond running the
// read-only cache-dir query.
func (p *Probe) Detect(ctx context.Context) model.ProbeResult {
	result := model.ProbeResult{
		Platform:            ClassifyOS(p.goos()),
		UserID:              p.userID(),
		Mode:                ModeFromEnv(p.getenv),
		DependencyCacheDir:  p.dependencyCacheDir(ctx),
		CertHelperAvailable: p.certHelperAvailable(),
	}

	p.Logger.Debug("host probed",
		"platform", result.Platform.Value,
		"platform_source", result.Platform.Source,
		"uid", result.UserID,
		"mode", result.Mode,
		"cache_dir", result.DependencyCacheDir.Value,
		"cache_dir_source", result.DependencyCacheDir.Source,
		"mkcert", result.CertHelperAvailable,
	)
	return result
}

// ClassifyOS maps a GOOS-style (or legacy "win32"/"win64") OS string to a
// Platform. Unrecognized strings are classified as other and tagged as a
// fallback.
func ClassifyOS(goos string) model.Sourced[model.Platform] {
	switch strings.ToLower(goos) {
	case "darwin":
		return model.Primary(model.PlatformMacOS)
	case "windows", "win32", "win64":
		return model.Primary(model.PlatformWindows)
	case "linux", "freebsd", "openbsd", "netbsd", "dragonfly", "solaris", "illumos", "aix":
		return model.Primary(model.PlatformOther)
	default:
		return model.Fallback(model.PlatformOther)
	}
}

// ModeFromEnv returns ci when the CI variable holds a truthy value.
func ModeFromEnv(getenv func(string) string) model.EnvMode {
	switch strings.ToLower(strings.TrimSpace(getenv("CI"))) {
	case "", "0", "false", "no":
		return model.ModeDev
	default:
		return model.ModeCI
	}
}

func (p *Probe) userID() int {
	uid := p.geteuid()
	if uid < 0 {
		return fallbackUserID
	}
	return uid
}

// dependencyCacheDir asks composer for its global cache directory,
// falling back to a directory under the system temp dir when composer is
// missing, fails, or prints nothing.
func (p *Probe) dependencyCacheDir(ctx context.Context) model.Sourced[string] {
	fallback := model.Fallback(filepath.Join(p.tempDir(), "devstack", "composer"))
	if p.Runner == nil {
		return fallback
	}

	cmd := model.ComposedCommand{
		Name: "composer",
		Args: []string{"global", "config", "cache-dir", "-q"},
	}
	res, err := p.Runner.Run(ctx, cmd, process.Policy{
		Timeout:      cacheDirQueryTimeout,
		Quiet:        true,
		AllowFailure: true,
	})
	if err != nil || !res.Succeeded() {
		p.Logger.Debug("composer cache dir unavailable, using fallback",
			"exit_code", res.ExitCode, "error", err)
		return fallback
	}

	dir := strings.TrimSpace(res.Stdout)
	if dir == "" {
		return fallback
	}
	return model.Primary(dir)
}

func (p *Probe) certHelperAvailable() bool {
	_, err := p.lookPath(CertHelperBinary)
	return err == nil
}
