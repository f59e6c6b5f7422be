package reconcile

import (
	"sort"

	"github.com/tiagoposse/ccloud-secretsync/internal/ccloud"
	"github.com/tiagoposse/ccloud-secretsync/internal/config"
	"github.com/tiagoposse/ccloud-secretsync/internal/ledger"
	"github.com/tiagoposse/ccloud-secretsync/internal/secretstore"
)

// SecretTasks turns the API key plan's secret work sets into create and
// update tasks, resolving each composite key's environment and rest proxy
// flags from the declaration.
func SecretTasks(snap *Snapshot, plan APIKeyPlan) []ledger.Task {
	var tasks []ledger.Task
	tasks = append(tasks, secretTasks(snap, plan.CreateSecrets, ledger.TaskCreate)...)
	tasks = append(tasks, secretTasks(snap, plan.UpdateSecrets, ledger.TaskUpdate)...)
	return tasks
}

func secretTasks(snap *Snapshot, keys Set, taskType ledger.TaskType) []ledger.Task {
	var tasks []ledger.Task
	for _, item := range keys.Sorted() {
		saName, clusterID, err := SplitKey(item)
		if err != nil {
			continue
		}
		cluster, ok := snap.ClusterByID(clusterID)
		if !ok {
			continue
		}
		def := snap.Definitions.Find(saName)
		if def == nil {
			continue
		}
		tasks = append(tasks, ledger.New(taskType, ledger.SecretPayload{
			SAName:              saName,
			ClusterID:           clusterID,
			EnvID:               cluster.EnvID,
			NeedRestProxyAccess: def.RestProxyAccess,
			IsRestProxyUser:     def.IsRestProxyUser,
		}))
	}
	return tasks
}

// SecretTagTasks emits one update task per stored secret whose declared rest
// proxy access flag differs from the stored tag. A changed flag also raises
// the sync marker so the rest proxy phase folds the key in.
func SecretTagTasks(snap *Snapshot) []ledger.Task {
	records := make([]secretstore.Record, len(snap.Secrets))
	copy(records, snap.Secrets)
	sort.Slice(records, func(i, j int) bool { return records[i].Name < records[j].Name })

	var tasks []ledger.Task
	for _, rec := range records {
		if rec.APIKeyID == "" {
			continue
		}
		def := snap.Definitions.Find(rec.SAName)
		if def == nil {
			continue
		}
		if rec.RestProxyAccess == def.RestProxyAccess {
			continue
		}
		tasks = append(tasks, ledger.New(ledger.TaskUpdate, ledger.SecretTagPayload{
			SecretName:      rec.Name,
			RestProxyAccess: def.RestProxyAccess,
		}))
	}
	return tasks
}

// RestProxyTasks plans the rest proxy aggregate secret upserts. One task is
// emitted per (rest proxy user, cluster) member, and only when this run
// created a key for that cluster or a stored secret is flagged for sync, so
// a converged state produces no redundant upserts.
func RestProxyTasks(snap *Snapshot, cfg config.Config) []ledger.Task {
	newKeys := newRestProxyKeys(snap)

	var syncNames []string
	for _, rec := range snap.Secrets {
		if rec.RestProxyAccess && rec.SyncNeededForRestProxy {
			syncNames = append(syncNames, rec.Name)
		}
	}
	sort.Strings(syncNames)

	var tasks []ledger.Task
	for _, item := range restProxyMembers(snap).Sorted() {
		saName, clusterID, err := SplitKey(item)
		if err != nil {
			continue
		}
		sa, ok := snap.AccountByName(saName)
		if !ok {
			continue
		}
		cluster, ok := snap.ClusterByID(clusterID)
		if !ok {
			continue
		}

		var keyIDs []string
		for _, key := range newKeys {
			if key.ClusterID == clusterID {
				keyIDs = append(keyIDs, key.ID)
			}
		}
		if len(keyIDs) == 0 && len(syncNames) == 0 {
			continue
		}

		secretName := secretstore.SecretName(
			cfg.SecretStore.Prefix, cfg.SecretStore.Separator,
			sa.ResourceID, cluster.EnvID, cluster.ID,
			cfg.CCloud.RestProxySecretName,
		)
		taskType := ledger.TaskCreate
		if _, exists := snap.SecretByName(secretName); exists {
			taskType = ledger.TaskUpdate
		}
		tasks = append(tasks, ledger.New(taskType, ledger.RestProxyPayload{
			SAName:          saName,
			SecretName:      secretName,
			ClusterID:       clusterID,
			EnvID:           cluster.EnvID,
			NewKeyIDs:       keyIDs,
			SyncSecretNames: syncNames,
		}))
	}
	return tasks
}

// restProxyMembers expands every rest proxy user definition's cluster list
// into composite keys, with the same wildcard rule as the API key plan.
func restProxyMembers(snap *Snapshot) Set {
	out := Set{}
	for _, def := range snap.Definitions.ServiceAccounts {
		if !def.IsRestProxyUser {
			continue
		}
		if def.WantsAllClusters() {
			for _, c := range snap.Clusters {
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

// newRestProxyKeys returns the keys created in this run, secret value still
// in memory, whose owner is declared with rest proxy access.
func newRestProxyKeys(snap *Snapshot) []ccloud.APIKey {
	var out []ccloud.APIKey
	for _, key := range snap.APIKeys {
		if key.Secret == "" {
			continue
		}
		sa, ok := snap.AccountByID(key.OwnerID)
		if !ok {
			continue
		}
		def := snap.Definitions.Find(sa.Name)
		if def == nil || !def.RestProxyAccess {
			continue
		}
		out = append(out, key)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
