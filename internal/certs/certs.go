// Package certs generates the TLS certificate served by the local router.
//
// A certificate is either present (cert.pem exists) or not. Generation
// moves it from absent to present; --force discards the current pair
// first. Two strategies exist: mkcert, which produces certificates
// trusted by the host, and the bundled self-signed script. The strategy
// is re-selected on every call.
package certs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/shinji-kodama/devstack/internal/model"
	"github.com/shinji-kodama/devstack/internal/process"
)

// File names inside the certificate directory.
const (
	CertFile = "cert.pem"
	KeyFile  = "key.pem"
)

// HelperBinary is the locally-trusted certificate helper.
const HelperBinary = "mkcert"

// SelfSignedScript is the bundled generator, relative to the repository root.
const SelfSignedScript = "infrastructure/docker/services/router/generate-ssl.sh"

// CARootMissingMessage tells the user how to install the mkcert CA.
const CARootMissingMessage = `You must have mkcert CA Root installed on your host with "mkcert -install" command.`

// Kind identifies a certificate strategy.
type Kind string

const (
	// KindHelperTool generates with mkcert.
	KindHelperTool Kind = "mkcert"

	// KindSelfSignedScript runs the bundled script.
	KindSelfSignedScript Kind = "self-signed"
)

// Select picks the strategy from helper availability.
func Select(helperOnPath bool) Kind {
	if helperOnPath {
		return KindHelperTool
	}
	return KindSelfSignedScript
}

// State is the certificate lifecycle state.
type State string

const (
	StateAbsent  State = "absent"
	StatePresent State = "present"
)

// Target describes where and for which hosts the certificate is made.
type Target struct {
	// RootDir is the repository root; the script runs from there.
	RootDir string

	// CertDir is the absolute certificate directory.
	CertDir string

	// RootDomain and ExtraDomains are the certificate subjects. The
	// wildcard "*.<root>" is added after the root domain.
	RootDomain   string
	ExtraDomains []string
}

// CertPath returns the absolute cert.pem path.
func (t Target) CertPath() string { return filepath.Join(t.CertDir, CertFile) }

// KeyPath returns the absolute key.pem path.
func (t Target) KeyPath() string { return filepath.Join(t.CertDir, KeyFile) }

// Subjects returns root, wildcard root, then extra domains in order.
func (t Target) Subjects() []string {
	s := make([]string, 0, len(t.ExtraDomains)+2)
	s = append(s, t.RootDomain, "*."+t.RootDomain)
	return append(s, t.ExtraDomains...)
}

// Outcome reports what Generate did.
type Outcome struct {
	// Generated is false when a certificate was already present.
	Generated bool

	// Strategy is the strategy used (empty when nothing was generated).
	Strategy Kind

	// RestartAdvised is set when a running router still serves the
	// previous certificate.
	RestartAdvised bool
}

// Generator runs the certificate state machine.
type Generator struct {
	Runner process.Runner
	Logger *slog.Logger

	lookPath func(string) (string, error)
	stat     func(string) (fs.FileInfo, error)
	remove   func(string) error
}

// NewGenerator creates a Generator backed by the real filesystem.
func NewGenerator(runner process.Runner, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Generator{
		Runner:   runner,
		Logger:   logger,
		lookPath: exec.LookPath,
		stat:     os.Stat,
		remove:   os.Remove,
	}
}

// CurrentState reports whether the target certificate exists.
func (g *Generator) CurrentState(t Target) State {
	if _, err := g.stat(t.CertPath()); err == nil {
		return StatePresent
	}
	return StateAbsent
}

// Generate makes sure a certificate exists. An existing certificate is
// kept unless force is set, in which case the pair is deleted and
// regenerated.
//
// The mkcert strategy fails with a precondition error when the mkcert CA
// root is not installed; nothing is generated in that case.
func (g *Generator) Generate(ctx context.Context, t Target, force bool) (Outcome, error) {
	if g.CurrentState(t) == StatePresent && !force {
		g.Logger.Debug("certificate already present", "path", t.CertPath())
		return Outcome{}, nil
	}

	if force {
		for _, p := range []string{t.CertPath(), t.KeyPath()} {
			if err := g.remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return Outcome{}, fmt.Errorf("failed to remove %s: %w", p, err)
			}
		}
	}

	_, lookErr := g.lookPath(HelperBinary)
	kind := Select(lookErr == nil)
	g.Logger.Debug("generating certificate", "strategy", kind, "force", force)

	var err error
	switch kind {
	case KindHelperTool:
		err = g.generateWithHelper(ctx, t)
	default:
		err = g.generateSelfSigned(ctx, t)
	}
	if err != nil {
		return Outcome{}, err
	}

	return Outcome{Generated: true, Strategy: kind, RestartAdvised: force}, nil
}

// generateWithHelper checks the mkcert CA root and issues the certificate.
func (g *Generator) generateWithHelper(ctx context.Context, t Target) error {
	res, err := g.Runner.Run(ctx, model.ComposedCommand{
		Name: HelperBinary,
		Args: []string{"-CAROOT"},
	}, process.Policy{Quiet: true})
	if err != nil {
		return err
	}

	caRoot := strings.TrimSpace(res.Stdout)
	info, statErr := g.stat(caRoot)
	if caRoot == "" || statErr != nil || !info.IsDir() {
		return model.NewPreconditionError(CARootMissingMessage)
	}

	args := []string{"-cert-file", t.CertPath(), "-key-file", t.KeyPath()}
	args = append(args, t.Subjects()...)
	_, err = g.Runner.Run(ctx, model.ComposedCommand{
		Name: HelperBinary,
		Args: args,
		Dir:  t.RootDir,
	}, process.Policy{})
	return err
}

// generateSelfSigned runs the bundled script from the repository root.
func (g *Generator) generateSelfSigned(ctx context.Context, t Target) error {
	_, err := g.Runner.Run(ctx, model.ComposedCommand{
		Name: filepath.Join(t.RootDir, filepath.FromSlash(SelfSignedScript)),
		Dir:  t.RootDir,
	}, process.Policy{Quiet: true})
	return err
}

// RemoveAll deletes every *.pem file in the certificate directory and
// returns how many were removed.
func RemoveAll(certDir string) (int, error) {
	matches, err := filepath.Glob(filepath.Join(certDir, "*.pem"))
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, m := range matches {
		if err := os.Remove(m); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return removed, fmt.Errorf("failed to remove %s: %w", m, err)
		}
		removed++
	}
	return removed, nil
}
