package ccloud

import (
	"strings"
	"time"
)

// ServiceAccount is one observed Confluent Cloud service account.
type ServiceAccount struct {
	ResourceID  string
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time

	// IsIgnored marks accounts excluded from every deletion computation,
	// either by configuration or by internal-account detection.
	IsIgnored bool
}

// APIKey is one observed Confluent Cloud API key. Secret is only populated
// on the key returned by CreateAPIKey; the provider never returns it again.
type APIKey struct {
	ID          string
	Secret      string
	Description string
	OwnerID     string
	ClusterID   string
	CreatedAt   time.Time
}

// Cluster is one observed Kafka cluster.
type Cluster struct {
	EnvID        string
	ID           string
	Name         string
	Cloud        string
	Availability string
	Region       string
	BootstrapURL string
}

// Environment is one observed Confluent Cloud environment.
type Environment struct {
	ID          string
	DisplayName string
	CreatedAt   time.Time
}

// internalAccountPrefixes match the display names Confluent assigns to
// provider-managed accounts (managed connectors and ksqlDB).
var internalAccountPrefixes = []string{"Connect.lcc-", "KSQL.lksqlc-"}

// IsInternalAccount reports whether a service account name looks
// provider-managed. Such accounts are auto-ignored when
// detect_ignore_ccloud_internal_accounts is enabled.
func IsInternalAccount(name string) bool {
	for _, prefix := range internalAccountPrefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}
