package reconcile

import (
	"time"

	"github.com/tiagoposse/ccloud-secretsync/internal/ccloud"
	"github.com/tiagoposse/ccloud-secretsync/internal/config"
	"github.com/tiagoposse/ccloud-secretsync/internal/secretstore"
)

// Snapshot is the complete observed and declared state one reconciliation
// pass works on. Reconcilers treat it as read-only; only the orchestrator
// mutates it, after an effector call succeeds, so later phases observe the
// resources earlier phases created.
type Snapshot struct {
	Definitions  config.Definitions
	Accounts     []ccloud.ServiceAccount
	APIKeys      []ccloud.APIKey
	Clusters     []ccloud.Cluster
	Environments []ccloud.Environment
	Secrets      []secretstore.Record

	// Ignored holds service account resource ids protected from deletion
	// and cleanup, including detected internal accounts.
	Ignored Set

	// Now anchors API key age computation for the whole pass.
	Now time.Time
}

// AccountByName resolves a service account by display name.
func (s *Snapshot) AccountByName(name string) (ccloud.ServiceAccount, bool) {
	for _, sa := range s.Accounts {
		if sa.Name == name {
			return sa, true
		}
	}
	return ccloud.ServiceAccount{}, false
}

// AccountByID resolves a service account by resource id.
func (s *Snapshot) AccountByID(resourceID string) (ccloud.ServiceAccount, bool) {
	for _, sa := range s.Accounts {
		if sa.ResourceID == resourceID {
			return sa, true
		}
	}
	return ccloud.ServiceAccount{}, false
}

// ClusterByID resolves a cluster by id.
func (s *Snapshot) ClusterByID(clusterID string) (ccloud.Cluster, bool) {
	for _, c := range s.Clusters {
		if c.ID == clusterID {
			return c, true
		}
	}
	return ccloud.Cluster{}, false
}

// EnvironmentByID resolves an environment by id.
func (s *Snapshot) EnvironmentByID(envID string) (ccloud.Environment, bool) {
	for _, env := range s.Environments {
		if env.ID == envID {
			return env, true
		}
	}
	return ccloud.Environment{}, false
}

// KeysOwnedBy returns every API key owned by the given service account.
func (s *Snapshot) KeysOwnedBy(saID string) []ccloud.APIKey {
	var out []ccloud.APIKey
	for _, key := range s.APIKeys {
		if key.OwnerID == saID {
			out = append(out, key)
		}
	}
	return out
}

// KeysFor returns the API keys owned by the given account on one cluster.
func (s *Snapshot) KeysFor(saID, clusterID string) []ccloud.APIKey {
	var out []ccloud.APIKey
	for _, key := range s.APIKeys {
		if key.OwnerID == saID && key.ClusterID == clusterID {
			out = append(out, key)
		}
	}
	return out
}

// SecretByName resolves a stored secret record by name.
func (s *Snapshot) SecretByName(name string) (secretstore.Record, bool) {
	for _, rec := range s.Secrets {
		if rec.Name == name {
			return rec, true
		}
	}
	return secretstore.Record{}, false
}

// ClusterIDs returns the ids of every currently known cluster, the set the
// wildcard token expands to.
func (s *Snapshot) ClusterIDs() Set {
	out := Set{}
	for _, c := range s.Clusters {
		out.Add(c.ID)
	}
	return out
}

// IgnoredAccountNames maps the ignore list of resource ids onto the account
// names currently observed for them.
func (s *Snapshot) IgnoredAccountNames() Set {
	out := Set{}
	for _, sa := range s.Accounts {
		if s.Ignored.Has(sa.ResourceID) {
			out.Add(sa.Name)
		}
	}
	return out
}

// DeclaredCompositeKeys expands the declaration into composite keys,
// recomputing wildcard expansion against the current cluster inventory.
func (s *Snapshot) DeclaredCompositeKeys() Set {
	out := Set{}
	for _, def := range s.Definitions.ServiceAccounts {
		if def.WantsAllClusters() {
			for _, c := range s.Clusters {
				out.Add(CompositeKey(def.Name, c.ID))
			}
			continue
		}
		for _, clusterID := range def.ClusterList {
			out.Add(CompositeKey(def.Name, clusterID))
		}
	}
	return out
}

// ObservedCompositeKeys maps every observed API key owned by a declared
// account onto its composite key.
func (s *Snapshot) ObservedCompositeKeys() Set {
	out := Set{}
	for _, def := range s.Definitions.ServiceAccounts {
		sa, ok := s.AccountByName(def.Name)
		if !ok {
			continue
		}
		for _, key := range s.KeysOwnedBy(sa.ResourceID) {
			out.Add(CompositeKey(def.Name, key.ClusterID))
		}
	}
	return out
}

// StoredCompositeKeys maps every secret store entry onto its composite key.
func (s *Snapshot) StoredCompositeKeys() Set {
	out := Set{}
	for _, rec := range s.Secrets {
		if rec.SAName != "" && rec.ClusterID != "" {
			out.Add(CompositeKey(rec.SAName, rec.ClusterID))
		}
	}
	return out
}

// StoredKeyIDs returns the API key ids currently tracked by the secret store.
func (s *Snapshot) StoredKeyIDs() Set {
	out := Set{}
	for _, rec := range s.Secrets {
		if rec.APIKeyID != "" {
			out.Add(rec.APIKeyID)
		}
	}
	return out
}

// AddAccount folds a freshly created service account into the snapshot.
func (s *Snapshot) AddAccount(sa ccloud.ServiceAccount) {
	s.Accounts = append(s.Accounts, sa)
}

// RemoveAccount drops a deleted service account, and its keys, from the
// snapshot.
func (s *Snapshot) RemoveAccount(resourceID string) {
	accounts := s.Accounts[:0]
	for _, sa := range s.Accounts {
		if sa.ResourceID != resourceID {
			accounts = append(accounts, sa)
		}
	}
	s.Accounts = accounts

	keys := s.APIKeys[:0]
	for _, key := range s.APIKeys {
		if key.OwnerID != resourceID {
			keys = append(keys, key)
		}
	}
	s.APIKeys = keys
}

// AddAPIKey folds a freshly created API key, secret value included, into the
// snapshot so the secret phases can reach it.
func (s *Snapshot) AddAPIKey(key ccloud.APIKey) {
	s.APIKeys = append(s.APIKeys, key)
}

// RemoveAPIKey drops a deleted API key from the snapshot.
func (s *Snapshot) RemoveAPIKey(keyID string) {
	keys := s.APIKeys[:0]
	for _, key := range s.APIKeys {
		if key.ID != keyID {
			keys = append(keys, key)
		}
	}
	s.APIKeys = keys
}

// UpsertSecretRecord folds a secret store write back into the snapshot.
func (s *Snapshot) UpsertSecretRecord(rec secretstore.Record) {
	for i := range s.Secrets {
		if s.Secrets[i].Name == rec.Name {
			s.Secrets[i] = rec
			return
		}
	}
	s.Secrets = append(s.Secrets, rec)
}

// SetSecretFlags mutates the stored record's rest proxy flags after a tag
// write, keeping later phases consistent without a re-read.
func (s *Snapshot) SetSecretFlags(secretName string, restProxyAccess, syncNeeded bool) {
	for i := range s.Secrets {
		if s.Secrets[i].Name == secretName {
			s.Secrets[i].RestProxyAccess = restProxyAccess
			s.Secrets[i].SyncNeededForRestProxy = syncNeeded
			return
		}
	}
}
