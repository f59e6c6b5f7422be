/*
Copyright 2024.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package config

import (
	"fmt"
)

// StoreAWSSecretsManager is the only secret store backend currently
// supported.
const StoreAWSSecretsManager = "aws-secretsmanager"

// Wildcard is the cluster-list entry meaning "every cluster currently known
// to the organisation". It is expanded at diff time, never stored expanded.
const Wildcard = "FORCE_ALL_CLUSTERS"

// CCloudConfig carries Confluent Cloud connectivity and the global
// reconciliation flags.
type CCloudConfig struct {
	APIKey              string   `yaml:"api_key"`
	APISecret           string   `yaml:"api_secret"`
	User                string   `yaml:"ccloud_user"`
	Password            string   `yaml:"ccloud_password"`
	RestProxySecretName string   `yaml:"rest_proxy_secret_name"`
	IgnoreServiceAccounts []string `yaml:"ignore_service_account_list"`

	// DetectInternalAccounts adds provider-managed accounts (managed
	// connectors, ksqlDB) to the ignore set during inventory reads.
	DetectInternalAccounts bool `yaml:"detect_ignore_ccloud_internal_accounts"`
	EnableSACleanup        bool `yaml:"enable_sa_cleanup"`
	EnableAPIKeyCleanup    bool `yaml:"enable_api_key_cleanup"`

	// OldAPIKeyDeletionWaitMins is the minimum age, in minutes, before an
	// API key that never made it into the secret store becomes eligible for
	// cleanup deletion.
	OldAPIKeyDeletionWaitMins int `yaml:"old_api_keys_deletion_wait_mins"`
}

// SecretStoreConfig selects and configures the secret store backend.
type SecretStoreConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Type      string `yaml:"type"`
	Prefix    string `yaml:"prefix"`
	Separator string `yaml:"separator"`

	// Configs holds backend specific settings (region, profile, ...) that
	// are decoded by the selected store adapter.
	Configs map[string]string `yaml:"-"`
}

// Config is the top-level runner configuration.
type Config struct {
	CCloud      CCloudConfig
	SecretStore SecretStoreConfig
}

// ServiceAccountDef is one declared service account. ClusterList holds
// explicit cluster ids or the Wildcard token.
type ServiceAccountDef struct {
	Name            string   `yaml:"name"`
	Description     string   `yaml:"description"`
	EmailAddress    string   `yaml:"team_email_address"`
	ClusterList     []string `yaml:"api_key_access"`
	IsRestProxyUser bool     `yaml:"is_rest_proxy_user"`
	RestProxyAccess bool     `yaml:"enable_rest_proxy_access"`
}

// WantsAllClusters reports whether the cluster list contains the wildcard
// token.
func (d ServiceAccountDef) WantsAllClusters() bool {
	for _, c := range d.ClusterList {
		if c == Wildcard {
			return true
		}
	}
	return false
}

// Definitions is the declared desired state, immutable during a run.
type Definitions struct {
	ServiceAccounts []ServiceAccountDef `yaml:"service_accounts"`
}

// Find returns the definition with the given name, or nil.
func (d *Definitions) Find(name string) *ServiceAccountDef {
	for i := range d.ServiceAccounts {
		if d.ServiceAccounts[i].Name == name {
			return &d.ServiceAccounts[i]
		}
	}
	return nil
}

// Validate fails fast on missing mandatory fields and on paired fields that
// must be present together, before any reconciliation begins.
func (c *Config) Validate() error {
	if err := checkPair("api_key", c.CCloud.APIKey, "api_secret", c.CCloud.APISecret); err != nil {
		return err
	}
	if err := checkPair("ccloud_user", c.CCloud.User, "ccloud_password", c.CCloud.Password); err != nil {
		return err
	}
	if c.SecretStore.Type != StoreAWSSecretsManager {
		return fmt.Errorf("secret store type %q is not supported, supported values are: %s",
			c.SecretStore.Type, StoreAWSSecretsManager)
	}
	return nil
}

func checkPair(name1, value1, name2, value2 string) error {
	if value1 == "" || value2 == "" {
		return fmt.Errorf("both %s and %s must be present in the configuration", name1, name2)
	}
	return nil
}
