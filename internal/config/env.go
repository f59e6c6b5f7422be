package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// EnvPrefix marks a YAML scalar whose value should be read from the
// environment, e.g. "env::CCLOUD_API_KEY".
const EnvPrefix = "env::"

// expandEnv walks a parsed YAML tree and replaces every env:: scalar with the
// value of the named environment variable. A missing variable is a hard
// error: configuration is resolved fully before any reconciliation starts.
func expandEnv(node *yaml.Node) error {
	if node == nil {
		return nil
	}
	if node.Kind == yaml.ScalarNode && strings.HasPrefix(node.Value, EnvPrefix) {
		name := strings.TrimSpace(strings.TrimPrefix(node.Value, EnvPrefix))
		value, ok := os.LookupEnv(name)
		if !ok {
			return fmt.Errorf("cannot find environment variable %s", name)
		}
		node.Value = value
		// force plain scalar so numeric-looking values still decode as strings
		node.Tag = "!!str"
		return nil
	}
	for _, child := range node.Content {
		if err := expandEnv(child); err != nil {
			return err
		}
	}
	return nil
}
