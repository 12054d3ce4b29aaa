// validate.go checks the resolved project parameters before any
// external process is spawned.
package project

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// projectNamePattern is the docker compose project name grammar.
var projectNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// hostnameLabel matches a single DNS label.
var hostnameLabel = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?$`)

// ValidationError represents a specific validation failure in the
// project configuration.
type ValidationError struct {
	// Field is the project file key that failed validation.
	Field string

	// Message describes what's wrong with the field value.
	Message string
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate returns every problem found in cfg (empty list = valid).
//
// Checks performed:
//   - project_name is a valid compose project name
//   - root_domain and extra_domains are hostnames
//   - php_version is set
//   - project_directory is relative and stays inside the root
//   - install_timeout is positive
//   - hook commands are not blank
func Validate(cfg *Config) []ValidationError {
	var errs []ValidationError
	p := cfg.Params

	if !projectNamePattern.MatchString(p.ProjectName) {
		errs = append(errs, ValidationError{
			Field:   "project_name",
			Message: fmt.Sprintf("%q must match %s", p.ProjectName, projectNamePattern),
		})
	}

	if !IsHostname(p.RootDomain) {
		errs = append(errs, ValidationError{
			Field:   "root_domain",
			Message: fmt.Sprintf("%q is not a valid hostname", p.RootDomain),
		})
	}

	for i, d := range p.ExtraDomains {
		if !IsHostname(d) {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("extra_domains[%d]", i),
				Message: fmt.Sprintf("%q is not a valid hostname", d),
			})
		}
	}

	if strings.TrimSpace(p.PHPVersion) == "" {
		errs = append(errs, ValidationError{
			Field:   "php_version",
			Message: "must not be empty",
		})
	}

	dir := p.ProjectDirectory
	switch {
	case dir == "":
		errs = append(errs, ValidationError{Field: "project_directory", Message: "must not be empty"})
	case filepath.IsAbs(dir) || strings.HasPrefix(dir, "/"):
		errs = append(errs, ValidationError{Field: "project_directory", Message: "must be relative to the repository root"})
	default:
		clean := filepath.ToSlash(filepath.Clean(dir))
		if clean == ".." || strings.HasPrefix(clean, "../") {
			errs = append(errs, ValidationError{Field: "project_directory", Message: "must not escape the repository root"})
		}
	}

	if cfg.InstallTimeout <= 0 {
		errs = append(errs, ValidationError{Field: "install_timeout", Message: "must be positive"})
	}

	for i, c := range p.Hooks.CacheClear {
		if strings.TrimSpace(c) == "" {
			errs = append(errs, ValidationError{Field: fmt.Sprintf("hooks.cache_clear[%d]", i), Message: "command must not be blank"})
		}
	}
	for i, c := range p.Hooks.Migrate {
		if strings.TrimSpace(c) == "" {
			errs = append(errs, ValidationError{Field: fmt.Sprintf("hooks.migrate[%d]", i), Message: "command must not be blank"})
		}
	}

	return errs
}

// IsHostname reports whether s is a syntactically valid hostname.
// A leading "*." wildcard is not accepted.
func IsHostname(s string) bool {
	if s == "" || len(s) > 253 {
		return false
	}
	for _, label := range strings.Split(s, ".") {
		if !hostnameLabel.MatchString(label) {
			return false
		}
	}
	return true
}

// JoinValidationErrors folds a validation result into a single error.
func JoinValidationErrors(errs []ValidationError) error {
	joined := make([]error, len(errs))
	for i := range errs {
		joined[i] = &errs[i]
	}
	return errors.Join(joined...)
}
