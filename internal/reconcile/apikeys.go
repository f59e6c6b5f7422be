package reconcile

import (
	"sort"
	"time"

	"github.com/tiagoposse/ccloud-secretsync/internal/ccloud"
	"github.com/tiagoposse/ccloud-secretsync/internal/config"
	"github.com/tiagoposse/ccloud-secretsync/internal/ledger"
)

// APIKeyPlan is the composite-key work set one pass derives for API keys and
// their secrets. CreateSecrets and UpdateSecrets feed the secret reconciler.
type APIKeyPlan struct {
	Creates       Set
	CreateSecrets Set
	UpdateSecrets Set
}

// PlanAPIKeys diffs declared composite keys against the provider and the
// secret store.
//
// A key whose secret store entry is missing must be recreated even when the
// provider already has it: the secret value is retrievable only at creation
// time, so an existing key with no stored secret can never be synced.
func PlanAPIKeys(snap *Snapshot) APIKeyPlan {
	declared := snap.DeclaredCompositeKeys()
	observed := snap.ObservedCompositeKeys()
	stored := snap.StoredCompositeKeys()

	creates := declared.Diff(observed)
	createSecrets := declared.Diff(stored)

	updateSecrets := Set{}
	for key := range creates {
		if stored.Has(key) {
			updateSecrets.Add(key)
		}
	}

	forceRecreate := createSecrets.Diff(creates)
	return APIKeyPlan{
		Creates:       creates.Union(forceRecreate),
		CreateSecrets: createSecrets,
		UpdateSecrets: updateSecrets,
	}
}

// APIKeyCreateTasks emits one create task per planned composite key. Keys on
// clusters no longer known are skipped.
func APIKeyCreateTasks(snap *Snapshot, plan APIKeyPlan) []ledger.Task {
	var tasks []ledger.Task
	for _, item := range plan.Creates.Sorted() {
		saName, clusterID, err := SplitKey(item)
		if err != nil {
			continue
		}
		cluster, ok := snap.ClusterByID(clusterID)
		if !ok {
			continue
		}
		tasks = append(tasks, ledger.New(ledger.TaskCreate, ledger.APIKeyPayload{
			SAName:    saName,
			ClusterID: cluster.ID,
			EnvID:     cluster.EnvID,
		}))
	}
	return tasks
}

// APIKeyDeleteTasks emits delete tasks from two independent scans:
//
// Orphans: keys owned by declared accounts on clusters the declaration no
// longer grants, minus ignore-listed accounts.
//
// Aged cleanup: a provider-wide sweep of keys older than the configured
// threshold whose owner is not ignored and whose id the secret store does
// not track. This intentionally reaches beyond the declaration, to catch
// rotated or abandoned keys that no current definition accounts for.
func APIKeyDeleteTasks(snap *Snapshot, cfg config.CCloudConfig) []ledger.Task {
	if !cfg.EnableAPIKeyCleanup {
		return nil
	}

	var tasks []ledger.Task
	seen := Set{}

	ignoredNames := snap.IgnoredAccountNames()
	orphans := snap.ObservedCompositeKeys().Diff(snap.DeclaredCompositeKeys())
	for _, item := range orphans.Sorted() {
		saName, clusterID, err := SplitKey(item)
		if err != nil || ignoredNames.Has(saName) {
			continue
		}
		sa, ok := snap.AccountByName(saName)
		if !ok {
			continue
		}
		for _, key := range snap.KeysFor(sa.ResourceID, clusterID) {
			if seen.Has(key.ID) {
				continue
			}
			seen.Add(key.ID)
			tasks = append(tasks, ledger.New(ledger.TaskDelete, ledger.APIKeyPayload{
				SAName:    saName,
				SAID:      sa.ResourceID,
				ClusterID: clusterID,
				KeyID:     key.ID,
			}))
		}
	}

	for _, key := range agedKeys(snap, cfg) {
		if seen.Has(key.ID) {
			continue
		}
		seen.Add(key.ID)
		sa, ok := snap.AccountByID(key.OwnerID)
		if !ok {
			continue
		}
		tasks = append(tasks, ledger.New(ledger.TaskDelete, ledger.APIKeyPayload{
			SAName:    sa.Name,
			SAID:      sa.ResourceID,
			ClusterID: key.ClusterID,
			KeyID:     key.ID,
		}))
	}
	return tasks
}

// DeleteEligibleKeys lists every key active in Confluent Cloud but missing
// from the secret store, skipping ignored owners. This feeds the
// operator-facing report and, unlike the aged cleanup sweep, applies no age
// threshold.
func DeleteEligibleKeys(snap *Snapshot) []ccloud.APIKey {
	stored := snap.StoredKeyIDs()
	var out []ccloud.APIKey
	for _, key := range snap.APIKeys {
		if stored.Has(key.ID) || snap.Ignored.Has(key.OwnerID) {
			continue
		}
		out = append(out, key)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func agedKeys(snap *Snapshot, cfg config.CCloudConfig) []ccloud.APIKey {
	threshold := time.Duration(cfg.OldAPIKeyDeletionWaitMins) * time.Minute
	stored := snap.StoredKeyIDs()

	var out []ccloud.APIKey
	for _, key := range snap.APIKeys {
		if snap.Ignored.Has(key.OwnerID) || stored.Has(key.ID) {
			continue
		}
		if snap.Now.Sub(key.CreatedAt) > threshold {
			out = append(out, key)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
