// Package project loads the static project parameters of a devstack
// repository.
//
// Parameters come from built-in defaults, an optional project file at the
// repository root and a small set of environment variables, in increasing
// order of precedence. The project file may be written as JSONC
// (.devstack.json / .devstack.jsonc, comments allowed, parsed with
// github.com/tidwall/jsonc) or YAML (.devstack.yaml / .devstack.yml).
//
// Key responsibilities:
//   - Locate the repository root
//   - Load and merge the project file over the defaults
//   - Validate the resulting parameters before anything is spawned
//   - Inspect compose files for declared services
package project

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/shinji-kodama/devstack/internal/model"
)

// Defaults for a project without a project file.
const (
	DefaultProjectName      = "app"
	DefaultTLD              = "test"
	DefaultPHPVersion       = "8.2"
	DefaultProjectDirectory = "application"
	DefaultInstallTimeout   = 15 * time.Minute
)

// PHPVersionEnv overrides the runtime version from the project file.
const PHPVersionEnv = "DS_PHP_VERSION"

// FileNames lists the accepted project file names in search order.
var FileNames = []string{
	".devstack.json",
	".devstack.jsonc",
	".devstack.yaml",
	".devstack.yml",
}

// File is the on-disk project file. Every field is optional; unset
// fields keep their default.
type File struct {
	// ProjectName is the compose project name.
	ProjectName string `json:"project_name,omitempty" yaml:"project_name,omitempty"`

	// TLD is the local top-level domain used to derive the root domain
	// when RootDomain is not set.
	TLD string `json:"tld,omitempty" yaml:"tld,omitempty"`

	// RootDomain overrides the derived "<project>.<tld>" domain.
	RootDomain string `json:"root_domain,omitempty" yaml:"root_domain,omitempty"`

	// ExtraDomains replaces the default "www.<root>" list. An explicit
	// empty list means no extra domains.
	ExtraDomains []string `json:"extra_domains,omitempty" yaml:"extra_domains,omitempty"`

	// PHPVersion is the runtime version passed to image builds.
	PHPVersion string `json:"php_version,omitempty" yaml:"php_version,omitempty"`

	// ProjectDirectory is the application directory relative to the root.
	ProjectDirectory string `json:"project_directory,omitempty" yaml:"project_directory,omitempty"`

	// InstallTimeout bounds the install task (Go duration, e.g. "20m").
	InstallTimeout string `json:"install_timeout,omitempty" yaml:"install_timeout,omitempty"`

	// Hooks are the cache-clear and migrate extension points.
	Hooks model.Hooks `json:"hooks,omitempty" yaml:"hooks,omitempty"`
}

// Config is the fully resolved project configuration.
type Config struct {
	// Params are the static parameters handed to the resolver.
	Params model.Params

	// InstallTimeout bounds the install task.
	InstallTimeout time.Duration

	// Path is the project file that was loaded, empty when none exists.
	Path string
}

// Defaults returns the parameters used when no project file exists.
func Defaults() model.Params {
	root := DefaultProjectName + "." + DefaultTLD
	return model.Params{
		ProjectName:      DefaultProjectName,
		RootDomain:       root,
		ExtraDomains:     []string{"www." + root},
		PHPVersion:       DefaultPHPVersion,
		ProjectDirectory: DefaultProjectDirectory,
	}
}

// FindFile returns the first project file present in root, in the order
// of FileNames.
func FindFile(root string) (string, bool) {
	for _, name := range FileNames {
		path := filepath.Join(root, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, true
		}
	}
	return "", false
}

// LoadFile reads and parses a project file. The format is chosen by
// extension.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, model.NewConfigurationError(
			fmt.Sprintf("failed to read project file %s", path), err)
	}

	var f File
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &f)
	default:
		// Strip // and /* */ comments and trailing commas first.
		err = json.Unmarshal(jsonc.ToJSON(data), &f)
	}
	if err != nil {
		return nil, model.NewConfigurationError(
			fmt.Sprintf("failed to parse project file %s", path), err)
	}
	return &f, nil
}

// Load builds the project configuration for root. getenv supplies the
// environment (os.Getenv in production).
//
// Precedence: environment > project file > defaults. The result is
// validated; any violation is returned as a configuration error.
func Load(root string, getenv func(string) string) (*Config, error) {
	cfg := &Config{
		Params:         Defaults(),
		InstallTimeout: DefaultInstallTimeout,
	}

	if path, ok := FindFile(root); ok {
		f, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		if err := cfg.apply(f); err != nil {
			return nil, err
		}
		cfg.Path = path
	}

	if v := strings.TrimSpace(getenv(PHPVersionEnv)); v != "" {
		cfg.Params.PHPVersion = v
	}

	if errs := Validate(cfg); len(errs) > 0 {
		return nil, model.NewConfigurationError("invalid project configuration", JoinValidationErrors(errs))
	}
	return cfg, nil
}

// apply merges the project file over the current configuration.
func (c *Config) apply(f *File) error {
	p := &c.Params

	if f.ProjectName != "" {
		p.ProjectName = f.ProjectName
	}

	tld := DefaultTLD
	if f.TLD != "" {
		tld = strings.TrimPrefix(f.TLD, ".")
	}

	switch {
	case f.RootDomain != "":
		p.RootDomain = f.RootDomain
	default:
		p.RootDomain = p.ProjectName + "." + tld
	}

	switch {
	case f.ExtraDomains != nil:
		p.ExtraDomains = append([]string(nil), f.ExtraDomains...)
	default:
		p.ExtraDomains = []string{"www." + p.RootDomain}
	}

	if f.PHPVersion != "" {
		p.PHPVersion = f.PHPVersion
	}
	if f.ProjectDirectory != "" {
		p.ProjectDirectory = f.ProjectDirectory
	}

	p.Hooks = model.Hooks{
		CacheClear: append([]string(nil), f.Hooks.CacheClear...),
		Migrate:    append([]string(nil), f.Hooks.Migrate...),
	}

	if f.InstallTimeout != "" {
		d, err := time.ParseDuration(f.InstallTimeout)
		if err != nil {
			return model.NewConfigurationError(
				fmt.Sprintf("install_timeout %q is not a duration", f.InstallTimeout), err)
		}
		c.InstallTimeout = d
	}
	return nil
}
