// Package secretstore defines the secret store contract the reconciliation
// engine depends on, plus the backend-independent pieces: secret name
// derivation and the rest-proxy aggregate secret formats.
package secretstore

import (
	"context"
	"strings"

	"github.com/tiagoposse/ccloud-secretsync/internal/ccloud"
)

// Tag keys shared by every backend.
const (
	TagManager         = "secret_manager"
	TagManagerValue    = "confluent_cloud"
	TagEnvName         = "env_name"
	TagEnvID           = "env_id"
	TagClusterName     = "cluster_name"
	TagClusterID       = "cluster_id"
	TagSAName          = "sa_name"
	TagSAID            = "sa_id"
	TagAPIKey          = "api_key"
	TagRestProxyAccess = "rest_proxy_access"
	TagSyncNeeded      = "sync_needed_for_rp"
	TagIsRestProxyUser = "is_rest_proxy_user"
)

// Record is one stored secret, reconstructed from the backend's tags. Value
// is only populated after a Get or an Upsert in the current run.
type Record struct {
	Name                   string
	Value                  map[string]string
	EnvID                  string
	SAID                   string
	SAName                 string
	ClusterID              string
	APIKeyID               string
	RestProxyAccess        bool
	SyncNeededForRestProxy bool
}

// UpsertInput carries everything a backend needs to write one API-key
// secret.
type UpsertInput struct {
	Key             ccloud.APIKey
	Env             ccloud.Environment
	Cluster         ccloud.Cluster
	Account         ccloud.ServiceAccount
	RestProxyAccess bool
}

// RestProxyInput carries everything a backend needs to upsert the rest-proxy
// aggregate secret.
type RestProxyInput struct {
	SecretName string
	Account    ccloud.ServiceAccount
	Env        ccloud.Environment
	Cluster    ccloud.Cluster

	// NewKeys are keys created in this run, with secrets still in memory.
	NewKeys []ccloud.APIKey

	// SyncRecords are stored secrets flagged sync_needed_for_rp whose
	// values must be folded into the aggregate.
	SyncRecords []Record

	// IsNew selects create over put for the aggregate secret itself.
	IsNew bool
}

// Store is the secret store effector. All operations are blocking external
// calls; failures surface as task failures, never as a crash.
type Store interface {
	// List returns a complete snapshot of the managed secrets.
	List(ctx context.Context) ([]Record, error)

	// Upsert writes an API-key secret, creating or updating as needed, and
	// returns the resulting record.
	Upsert(ctx context.Context, in UpsertInput) (Record, error)

	// Tag overwrites the given tags on a stored secret.
	Tag(ctx context.Context, secretName string, tags map[string]string) error

	// UpsertRestProxy merges new and synced keys into the rest-proxy
	// aggregate secret and clears the sync flag on contributing secrets.
	UpsertRestProxy(ctx context.Context, in RestProxyInput) error
}

// SecretName derives the store path for one API-key secret:
//
//	[{sep}{prefix}]{sep}ccloud{sep}{sa_id}{sep}{env_id}{sep}{cluster_id}[{sep}{postfix}]
func SecretName(prefix, sep, saID, envID, clusterID, postfix string) string {
	var b strings.Builder
	if prefix != "" {
		b.WriteString(sep + prefix)
	}
	b.WriteString(sep + "ccloud" + sep + saID + sep + envID + sep + clusterID)
	if postfix != "" {
		b.WriteString(sep + postfix)
	}
	return b.String()
}
