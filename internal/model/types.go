package model

import (
	"fmt"
	"os"
	"sort"
	"strings"
)

// Platform classifies the host operating system. Only macOS and Windows
// change how the stack is composed (they need the docker-for-x overlay),
// every other OS is treated like Linux.
type Platform string

const (
	// PlatformMacOS is a Darwin host running Docker Desktop.
	PlatformMacOS Platform = "macos"

	// PlatformWindows is a Windows host (PowerShell, no pty support).
	PlatformWindows Platform = "windows"

	// PlatformOther covers Linux and any unrecognized OS string.
	PlatformOther Platform = "other"
)

// String returns the string representation of Platform.
func (p Platform) String() string {
	return string(p)
}

// IsMacOS reports whether the platform is macOS.
func (p Platform) IsMacOS() bool {
	return p == PlatformMacOS
}

// IsWindows reports whether the platform is Windows.
func (p Platform) IsWindows() bool {
	return p == PlatformWindows
}

// NeedsOverlay reports whether the platform requires the docker-for-x
// compose overlay. Docker Desktop on macOS and Windows runs containers
// inside a VM, which changes volume and network behavior.
func (p Platform) NeedsOverlay() bool {
	return p == PlatformMacOS || p == PlatformWindows
}

// EnvMode selects between interactive development and CI execution.
// In CI no terminal is available, so TTY/pty allocation is always disabled.
type EnvMode string

const (
	// ModeDev is an interactive developer session.
	ModeDev EnvMode = "dev"

	// ModeCI is a non-interactive continuous integration run.
	ModeCI EnvMode = "ci"
)

// String returns the string representation of EnvMode.
func (m EnvMode) String() string {
	return string(m)
}

// Source records where a probed value came from. Silent fallbacks are
// modelled explicitly so tests (and --verbose output) can tell whether
// the primary lookup worked.
type Source string

const (
	// SourcePrimary means the value came from the preferred lookup.
	SourcePrimary Source = "primary"

	// SourceFallback means the preferred lookup failed and the documented
	// default was used instead.
	SourceFallback Source = "fallback"
)

// Sourced is a value tagged with the Source it was obtained from.
type Sourced[T any] struct {
	Value  T
	Source Source
}

// Primary wraps a value obtained from the preferred lookup.
func Primary[T any](v T) Sourced[T] {
	return Sourced[T]{Value: v, Source: SourcePrimary}
}

// Fallback wraps a documented default used after a failed lookup.
func Fallback[T any](v T) Sourced[T] {
	return Sourced[T]{Value: v, Source: SourceFallback}
}

// IsFallback reports whether the value is a fallback default.
func (s Sourced[T]) IsFallback() bool {
	return s.Source == SourceFallback
}

// Hooks lists project-specific commands run inside the builder container
// by the cache-clear and migrate tasks. Both are empty by default, which
// turns the corresponding task into a no-op.
type Hooks struct {
	CacheClear []string `json:"cache_clear,omitempty" yaml:"cache_clear,omitempty"`
	Migrate    []string `json:"migrate,omitempty" yaml:"migrate,omitempty"`
}

// Params holds the static project parameters: the identity of the stack
// and the knobs a project can set in its project file.
type Params struct {
	// ProjectName is the docker compose project name (-p). It is also used
	// to scope worker labels and router names.
	ProjectName string `json:"project_name" yaml:"project_name"`

	// RootDomain is the main local domain (e.g., "app.test").
	RootDomain string `json:"root_domain" yaml:"root_domain"`

	// ExtraDomains are additional domains served by the router. Order is
	// preserved in the certificate subject list and in URL listings.
	ExtraDomains []string `json:"extra_domains" yaml:"extra_domains"`

	// PHPVersion is the language runtime version passed to image builds.
	PHPVersion string `json:"php_version" yaml:"php_version"`

	// ProjectDirectory is the application payload directory, relative to
	// the repository root.
	ProjectDirectory string `json:"project_directory" yaml:"project_directory"`

	// Hooks are the cache-clear and migrate extension points.
	Hooks Hooks `json:"hooks" yaml:"hooks"`
}

// Domains returns the root domain followed by the extra domains, in order.
func (p Params) Domains() []string {
	domains := make([]string, 0, len(p.ExtraDomains)+1)
	domains = append(domains, p.RootDomain)
	return append(domains, p.ExtraDomains...)
}

// ProbeResult is the one-shot snapshot of host state taken at startup.
type ProbeResult struct {
	// Platform is the classified host OS.
	Platform Sourced[Platform]

	// UserID is the raw effective user id. The resolver applies the
	// remapping policy; the probe reports the host value unchanged.
	UserID int

	// Mode is ci when a CI flag is present in the environment, dev otherwise.
	Mode EnvMode

	// DependencyCacheDir is the package manager cache directory shared
	// with the builder container.
	DependencyCacheDir Sourced[string]

	// CertHelperAvailable reports whether mkcert was found on PATH at
	// probe time. Certificate generation re-checks on every call.
	CertHelperAvailable bool
}

// ComposedCommand is a fully assembled external command: the binary, its
// argument vector and the environment to inject. It is built by the
// composer and consumed by the process invoker.
type ComposedCommand struct {
	// Name is the binary to execute (resolved through PATH).
	Name string

	// Args is the ordered argument vector, one token per element.
	Args []string

	// Env holds variables to inject into the child environment.
	Env map[string]string

	// OverrideEnv controls precedence against the inherited environment.
	// When false, a variable already set on the host keeps its host value.
	OverrideEnv bool

	// Dir is the working directory for the process. Empty means the
	// current directory of the CLI.
	Dir string
}

// String renders the command for logs and error messages. It is not a
// shell-safe quoting and must never be passed to a shell.
func (c ComposedCommand) String() string {
	parts := make([]string, 0, len(c.Args)+1)
	parts = append(parts, c.Name)
	for _, a := range c.Args {
		if a == "" || strings.ContainsAny(a, " \t\"'") {
			parts = append(parts, fmt.Sprintf("%q", a))
			continue
		}
		parts = append(parts, a)
	}
	return strings.Join(parts, " ")
}

// Environ merges the command's variables into the given host environment
// (in os.Environ() "KEY=VALUE" form) and returns the child environment.
//
// Host entries keep their original order. Injected variables are applied
// in sorted key order so the result is deterministic.
func (c ComposedCommand) Environ(host []string) []string {
	result := make([]string, 0, len(host)+len(c.Env))
	index := make(map[string]int, len(host))
	for _, kv := range host {
		key, _, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			continue
		}
		if i, seen := index[key]; seen {
			result[i] = kv
			continue
		}
		index[key] = len(result)
		result = append(result, kv)
	}

	keys := make([]string, 0, len(c.Env))
	for k := range c.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		kv := k + "=" + c.Env[k]
		if i, exists := index[k]; exists {
			if c.OverrideEnv {
				result[i] = kv
			}
			continue
		}
		index[k] = len(result)
		result = append(result, kv)
	}
	return result
}

// HostEnviron returns the current process environment. It exists so that
// callers read the host environment in one place.
func HostEnviron() []string {
	return os.Environ()
}
