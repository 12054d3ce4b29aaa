// compose.go inspects docker compose files. devstack never rewrites
// them; it only reads the declared service names so that a missing
// service is reported before docker compose is spawned.
package project

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/shinji-kodama/devstack/internal/model"
)

// composeFile is the subset of the compose schema devstack reads.
type composeFile struct {
	Services map[string]yaml.Node `yaml:"services"`
}

// ComposeServices returns the sorted service names declared in the
// compose file at path.
func ComposeServices(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, model.NewConfigurationError(
			fmt.Sprintf("failed to read compose file %s", path), err)
	}

	var cf composeFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, model.NewConfigurationError(
			fmt.Sprintf("failed to parse compose file %s", path), err)
	}

	names := make([]string, 0, len(cf.Services))
	for name := range cf.Services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// RequireService returns a configuration error unless the compose file
// at path declares service.
func RequireService(path, service string) error {
	services, err := ComposeServices(path)
	if err != nil {
		return err
	}
	i := sort.SearchStrings(services, service)
	if i < len(services) && services[i] == service {
		return nil
	}
	return model.NewConfigurationError(
		fmt.Sprintf("service %q is not declared in %s", service, path), nil)
}
