package project

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinji-kodama/devstack/internal/model"
)

func validConfig() *Config {
	return &Config{Params: Defaults(), InstallTimeout: DefaultInstallTimeout}
}

// TestValidate checks each rule in isolation.
func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		field  string
	}{
		{"valid defaults", func(*Config) {}, ""},
		{"uppercase project", func(c *Config) { c.Params.ProjectName = "App" }, "project_name"},
		{"leading dash project", func(c *Config) { c.Params.ProjectName = "-app" }, "project_name"},
		{"underscore project allowed", func(c *Config) { c.Params.ProjectName = "my_app" }, ""},
		{"empty root domain", func(c *Config) { c.Params.RootDomain = "" }, "root_domain"},
		{"wildcard root domain", func(c *Config) { c.Params.RootDomain = "*.app.test" }, "root_domain"},
		{"bad extra domain", func(c *Config) { c.Params.ExtraDomains = []string{"ok.test", "bad_domain.test"} }, "extra_domains[1]"},
		{"empty php version", func(c *Config) { c.Params.PHPVersion = " " }, "php_version"},
		{"absolute project dir", func(c *Config) { c.Params.ProjectDirectory = "/srv/app" }, "project_directory"},
		{"escaping project dir", func(c *Config) { c.Params.ProjectDirectory = "app/../../x" }, "project_directory"},
		{"nested project dir allowed", func(c *Config) { c.Params.ProjectDirectory = "apps/api" }, ""},
		{"zero install timeout", func(c *Config) { c.InstallTimeout = 0 }, "install_timeout"},
		{"blank migrate hook", func(c *Config) { c.Params.Hooks.Migrate = []string{""} }, "hooks.migrate[0]"},
		{"blank cache hook", func(c *Config) { c.Params.Hooks.CacheClear = []string{"ok", "  "} }, "hooks.cache_clear[1]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			errs := Validate(cfg)
			if tt.field == "" {
				assert.Empty(t, errs)
				return
			}
			require.Len(t, errs, 1)
			assert.Equal(t, tt.field, errs[0].Field)
		})
	}
}

// TestIsHostname covers hostname syntax.
func TestIsHostname(t *testing.T) {
	assert.True(t, IsHostname("app.test"))
	assert.True(t, IsHostname("www.app-1.test"))
	assert.True(t, IsHostname("localhost"))
	assert.False(t, IsHostname(""))
	assert.False(t, IsHostname("app..test"))
	assert.False(t, IsHostname("-app.test"))
	assert.False(t, IsHostname("app test"))
}

// TestJoinValidationErrors verifies every failure is reported.
func TestJoinValidationErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Params.ProjectName = "Bad Name"
	cfg.Params.PHPVersion = ""

	err := model.NewConfigurationError("invalid project configuration", JoinValidationErrors(Validate(cfg)))
	assert.Contains(t, err.Error(), "project_name")
	assert.Contains(t, err.Error(), "php_version")
	assert.ErrorIs(t, err, model.ErrConfiguration)
}
