package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type rawStoreConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Type      string              `yaml:"type"`
	Prefix    string              `yaml:"prefix"`
	Separator string              `yaml:"separator"`
	Configs   []map[string]string `yaml:"configs"`
}

type rawConfigFile struct {
	Configs struct {
		CCloud      CCloudConfig   `yaml:"ccloud_configs"`
		SecretStore rawStoreConfig `yaml:"secret_store"`
	} `yaml:"configs"`
}

// Load reads, env-expands and validates the runner configuration file.
func Load(path string) (*Config, error) {
	var raw rawConfigFile
	if err := loadYAML(path, &raw); err != nil {
		return nil, fmt.Errorf("loading configuration from %s: %w", path, err)
	}

	store := SecretStoreConfig{
		Enabled:   raw.Configs.SecretStore.Enabled,
		Type:      raw.Configs.SecretStore.Type,
		Prefix:    raw.Configs.SecretStore.Prefix,
		Separator: raw.Configs.SecretStore.Separator,
		Configs:   map[string]string{},
	}
	if store.Separator == "" {
		store.Separator = "/"
	}
	// the wire format is a list of single-key maps, flatten it
	for _, entry := range raw.Configs.SecretStore.Configs {
		for k, v := range entry {
			store.Configs[k] = v
		}
	}

	cfg := &Config{CCloud: raw.Configs.CCloud, SecretStore: store}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDefinitions reads, env-expands and validates the declared service
// account definitions.
func LoadDefinitions(path string, cfg *Config) (*Definitions, error) {
	var defs Definitions
	if err := loadYAML(path, &defs); err != nil {
		return nil, fmt.Errorf("loading definitions from %s: %w", path, err)
	}

	for i := range defs.ServiceAccounts {
		def := &defs.ServiceAccounts[i]
		if def.Name == "" {
			return nil, fmt.Errorf("definitions: service account at index %d has no name", i)
		}
		// a rest-proxy user always has rest-proxy access
		if def.IsRestProxyUser {
			def.RestProxyAccess = true
		}
		if (def.IsRestProxyUser || def.RestProxyAccess) && cfg.CCloud.RestProxySecretName == "" {
			return nil, fmt.Errorf(
				"rest_proxy_secret_name is required in the configuration when enable_rest_proxy_access or is_rest_proxy_user is set (service account %s)",
				def.Name)
		}
	}
	return &defs, nil
}

func loadYAML(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return fmt.Errorf("parsing yaml: %w", err)
	}
	if err := expandEnv(&root); err != nil {
		return err
	}
	return root.Decode(out)
}
