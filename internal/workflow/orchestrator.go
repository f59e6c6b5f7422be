// Package workflow drives a reconciliation run end to end: snapshot load,
// task generation, phase-ordered execution, ledger bookkeeping.
package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"github.com/tiagoposse/ccloud-secretsync/internal/ccloud"
	"github.com/tiagoposse/ccloud-secretsync/internal/config"
	"github.com/tiagoposse/ccloud-secretsync/internal/ledger"
	"github.com/tiagoposse/ccloud-secretsync/internal/reconcile"
	"github.com/tiagoposse/ccloud-secretsync/internal/secretstore"
)

// Inventory reads complete snapshots of the Confluent Cloud resources a run
// reconciles.
type Inventory interface {
	ListEnvironments(ctx context.Context) ([]ccloud.Environment, error)
	ListClusters(ctx context.Context, envIDs []string) ([]ccloud.Cluster, error)
	ListServiceAccounts(ctx context.Context) ([]ccloud.ServiceAccount, error)
	ListAPIKeys(ctx context.Context) ([]ccloud.APIKey, error)
}

// Effector performs the Confluent Cloud mutations tasks call for.
type Effector interface {
	CreateServiceAccount(ctx context.Context, name, description string) (ccloud.ServiceAccount, error)
	DeleteServiceAccount(ctx context.Context, resourceID string) error
	CreateAPIKey(ctx context.Context, envID, clusterID, saID, description string) (ccloud.APIKey, error)
	DeleteAPIKey(ctx context.Context, keyID string) error
}

// Options are the per-run switches.
type Options struct {
	// DryRun computes and records every task without invoking effectors.
	DryRun bool

	// DisableAPIKeyCreation skips the API key, secret and rest proxy
	// phases entirely.
	DisableAPIKeyCreation bool
}

// Orchestrator executes the five reconciliation phases in their fixed
// dependency order: service accounts, API keys, secrets, secret tags, rest
// proxy secrets.
type Orchestrator struct {
	cfg   config.Config
	defs  config.Definitions
	inv   Inventory
	eff   Effector
	store secretstore.Store
	opts  Options
	log   logr.Logger

	ledger *ledger.Ledger
	runID  string
}

func New(cfg config.Config, defs config.Definitions, inv Inventory, eff Effector, store secretstore.Store, opts Options, log logr.Logger) *Orchestrator {
	runID := uuid.NewString()
	return &Orchestrator{
		cfg:    cfg,
		defs:   defs,
		inv:    inv,
		eff:    eff,
		store:  store,
		opts:   opts,
		log:    log.WithName("workflow").WithValues("run", runID),
		ledger: ledger.NewLedger(),
		runID:  runID,
	}
}

// LoadSnapshot reads the full observed state and resolves the effective
// ignore set, folding in detected internal accounts when configured.
func (o *Orchestrator) LoadSnapshot(ctx context.Context) (*reconcile.Snapshot, error) {
	envs, err := o.inv.ListEnvironments(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing environments: %w", err)
	}
	envIDs := make([]string, 0, len(envs))
	for _, env := range envs {
		envIDs = append(envIDs, env.ID)
	}
	clusters, err := o.inv.ListClusters(ctx, envIDs)
	if err != nil {
		return nil, fmt.Errorf("listing clusters: %w", err)
	}
	accounts, err := o.inv.ListServiceAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing service accounts: %w", err)
	}
	keys, err := o.inv.ListAPIKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing api keys: %w", err)
	}
	secrets, err := o.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing secrets: %w", err)
	}

	ignored := reconcile.NewSet(o.cfg.CCloud.IgnoreServiceAccounts...)
	if o.cfg.CCloud.DetectInternalAccounts {
		for _, sa := range accounts {
			if ccloud.IsInternalAccount(sa.Name) {
				ignored.Add(sa.ResourceID)
			}
		}
	}

	o.log.Info("loaded snapshot",
		"environments", len(envs), "clusters", len(clusters),
		"serviceAccounts", len(accounts), "apiKeys", len(keys),
		"secrets", len(secrets), "ignored", len(ignored))

	return &reconcile.Snapshot{
		Definitions:  o.defs,
		Accounts:     accounts,
		APIKeys:      keys,
		Clusters:     clusters,
		Environments: envs,
		Secrets:      secrets,
		Ignored:      ignored,
		Now:          time.Now(),
	}, nil
}

// Run executes one full reconciliation pass and returns the resulting
// ledger. Per-task failures are recorded and never abort a phase; only
// snapshot loading errors are fatal.
func (o *Orchestrator) Run(ctx context.Context) (*ledger.Ledger, error) {
	snap, err := o.LoadSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	if err := o.RunWithSnapshot(ctx, snap); err != nil {
		return nil, err
	}
	return o.ledger, nil
}

// RunWithSnapshot executes the phases against a pre-loaded snapshot. The
// orchestrator mutates the snapshot after each effector success so later
// phases resolve resources earlier phases created.
func (o *Orchestrator) RunWithSnapshot(ctx context.Context, snap *reconcile.Snapshot) error {
	o.runPhase("service-account-creation",
		reconcile.ServiceAccountCreateTasks(snap),
		func(seq int, task ledger.Task) { o.createServiceAccount(ctx, snap, seq, task) })

	o.runPhase("service-account-deletion",
		reconcile.ServiceAccountDeleteTasks(snap, o.cfg.CCloud),
		func(seq int, task ledger.Task) { o.deleteServiceAccount(ctx, snap, seq, task) })

	if o.opts.DisableAPIKeyCreation {
		o.log.Info("api key creation disabled, skipping key and secret phases")
		return nil
	}

	// The secret work sets are fixed here, before key creation mutates the
	// snapshot, so freshly created keys still count as needing a secret.
	plan := reconcile.PlanAPIKeys(snap)

	o.runPhase("api-key-creation",
		reconcile.APIKeyCreateTasks(snap, plan),
		func(seq int, task ledger.Task) { o.createAPIKey(ctx, snap, seq, task) })

	o.runPhase("api-key-deletion",
		reconcile.APIKeyDeleteTasks(snap, o.cfg.CCloud),
		func(seq int, task ledger.Task) { o.deleteAPIKey(ctx, snap, seq, task) })

	o.runPhase("secret-sync",
		reconcile.SecretTasks(snap, plan),
		func(seq int, task ledger.Task) { o.upsertSecret(ctx, snap, seq, task) })

	o.runPhase("secret-tag-sync",
		reconcile.SecretTagTasks(snap),
		func(seq int, task ledger.Task) { o.tagSecret(ctx, snap, seq, task) })

	o.runPhase("rest-proxy-sync",
		reconcile.RestProxyTasks(snap, o.cfg),
		func(seq int, task ledger.Task) { o.upsertRestProxy(ctx, snap, seq, task) })

	return nil
}

// Ledger returns the run's ledger for reporting.
func (o *Orchestrator) Ledger() *ledger.Ledger {
	return o.ledger
}

// runPhase appends the phase's tasks to the ledger and executes them in
// order. Under dry run tasks are recorded but left not-started.
func (o *Orchestrator) runPhase(name string, tasks []ledger.Task, exec func(seq int, task ledger.Task)) {
	o.log.Info("starting phase", "phase", name, "tasks", len(tasks), "dryRun", o.opts.DryRun)
	if len(tasks) == 0 {
		return
	}
	first := o.ledger.Add(tasks...)
	for i, task := range tasks {
		seq := first + i
		o.log.Info("task", "phase", name, "seq", seq, "type", task.Type, "object", task.Object, "payload", task.Payload)
		if o.opts.DryRun {
			continue
		}
		exec(seq, task)
	}
}

func (o *Orchestrator) fail(seq int, err error) {
	o.log.Error(err, "task failed", "seq", seq)
	if serr := o.ledger.SetStatus(seq, ledger.StatusFailed, err.Error(), nil); serr != nil {
		o.log.Error(serr, "recording task failure", "seq", seq)
	}
}

func (o *Orchestrator) succeed(seq int, message string, payload ledger.Payload) {
	if err := o.ledger.SetStatus(seq, ledger.StatusSuccess, message, payload); err != nil {
		o.log.Error(err, "recording task success", "seq", seq)
	}
}

// skip leaves a task not-started when its unit of work cannot be resolved,
// typically because a dependency failed earlier in the run.
func (o *Orchestrator) skip(seq int, reason string) {
	o.log.Info("skipping task", "seq", seq, "reason", reason)
}

func (o *Orchestrator) createServiceAccount(ctx context.Context, snap *reconcile.Snapshot, seq int, task ledger.Task) {
	payload := task.Payload.(ledger.ServiceAccountPayload)
	sa, err := o.eff.CreateServiceAccount(ctx, payload.Name, payload.Description)
	if err != nil {
		o.fail(seq, err)
		return
	}
	snap.AddAccount(sa)
	payload.ResourceID = sa.ResourceID
	o.succeed(seq, "service account created", payload)
}

func (o *Orchestrator) deleteServiceAccount(ctx context.Context, snap *reconcile.Snapshot, seq int, task ledger.Task) {
	payload := task.Payload.(ledger.ServiceAccountPayload)
	if err := o.eff.DeleteServiceAccount(ctx, payload.ResourceID); err != nil {
		o.fail(seq, err)
		return
	}
	snap.RemoveAccount(payload.ResourceID)
	o.succeed(seq, "service account deleted", payload)
}

func (o *Orchestrator) createAPIKey(ctx context.Context, snap *reconcile.Snapshot, seq int, task ledger.Task) {
	payload := task.Payload.(ledger.APIKeyPayload)
	sa, ok := snap.AccountByName(payload.SAName)
	if !ok {
		o.skip(seq, "service account "+payload.SAName+" not resolvable")
		return
	}
	description := fmt.Sprintf("API Key for sa %s created by the CI/CD workflow", sa.ResourceID)
	key, err := o.eff.CreateAPIKey(ctx, payload.EnvID, payload.ClusterID, sa.ResourceID, description)
	if err != nil {
		o.fail(seq, err)
		return
	}
	snap.AddAPIKey(key)
	payload.SAID = sa.ResourceID
	payload.KeyID = key.ID
	o.succeed(seq, "api key created", payload)
}

func (o *Orchestrator) deleteAPIKey(ctx context.Context, snap *reconcile.Snapshot, seq int, task ledger.Task) {
	payload := task.Payload.(ledger.APIKeyPayload)
	if err := o.eff.DeleteAPIKey(ctx, payload.KeyID); err != nil {
		o.fail(seq, err)
		return
	}
	snap.RemoveAPIKey(payload.KeyID)
	o.succeed(seq, "api key deleted", payload)
}

func (o *Orchestrator) upsertSecret(ctx context.Context, snap *reconcile.Snapshot, seq int, task ledger.Task) {
	payload := task.Payload.(ledger.SecretPayload)
	sa, ok := snap.AccountByName(payload.SAName)
	if !ok {
		o.skip(seq, "service account "+payload.SAName+" not resolvable")
		return
	}
	cluster, ok := snap.ClusterByID(payload.ClusterID)
	if !ok {
		o.skip(seq, "cluster "+payload.ClusterID+" not resolvable")
		return
	}
	env, _ := snap.EnvironmentByID(payload.EnvID)

	// Only a key created in this run still has its secret value in memory.
	var key *ccloud.APIKey
	for _, candidate := range snap.KeysFor(sa.ResourceID, payload.ClusterID) {
		if candidate.Secret != "" {
			k := candidate
			key = &k
			break
		}
	}
	if key == nil {
		o.skip(seq, "no api key with an in-memory secret for "+payload.SAName+" on "+payload.ClusterID)
		return
	}

	rec, err := o.store.Upsert(ctx, secretstore.UpsertInput{
		Key:             *key,
		Env:             env,
		Cluster:         cluster,
		Account:         sa,
		RestProxyAccess: payload.NeedRestProxyAccess,
	})
	if err != nil {
		o.fail(seq, err)
		return
	}
	snap.UpsertSecretRecord(rec)
	payload.SecretName = rec.Name
	payload.KeyID = rec.APIKeyID
	o.succeed(seq, "secret synced", payload)
}

func (o *Orchestrator) tagSecret(ctx context.Context, snap *reconcile.Snapshot, seq int, task ledger.Task) {
	payload := task.Payload.(ledger.SecretTagPayload)
	tags := map[string]string{
		secretstore.TagRestProxyAccess: fmt.Sprintf("%t", payload.RestProxyAccess),
		secretstore.TagSyncNeeded:      "true",
	}
	if err := o.store.Tag(ctx, payload.SecretName, tags); err != nil {
		o.fail(seq, err)
		return
	}
	snap.SetSecretFlags(payload.SecretName, payload.RestProxyAccess, true)
	o.succeed(seq, "secret tags updated", payload)
}

func (o *Orchestrator) upsertRestProxy(ctx context.Context, snap *reconcile.Snapshot, seq int, task ledger.Task) {
	payload := task.Payload.(ledger.RestProxyPayload)
	sa, ok := snap.AccountByName(payload.SAName)
	if !ok {
		o.skip(seq, "service account "+payload.SAName+" not resolvable")
		return
	}
	cluster, ok := snap.ClusterByID(payload.ClusterID)
	if !ok {
		o.skip(seq, "cluster "+payload.ClusterID+" not resolvable")
		return
	}
	env, _ := snap.EnvironmentByID(payload.EnvID)

	newKeys := make([]ccloud.APIKey, 0, len(payload.NewKeyIDs))
	for _, id := range payload.NewKeyIDs {
		for _, key := range snap.APIKeys {
			if key.ID == id && key.Secret != "" {
				newKeys = append(newKeys, key)
				break
			}
		}
	}
	var syncRecords []secretstore.Record
	for _, name := range payload.SyncSecretNames {
		if rec, ok := snap.SecretByName(name); ok {
			syncRecords = append(syncRecords, rec)
		}
	}

	err := o.store.UpsertRestProxy(ctx, secretstore.RestProxyInput{
		SecretName:  payload.SecretName,
		Account:     sa,
		Env:         env,
		Cluster:     cluster,
		NewKeys:     newKeys,
		SyncRecords: syncRecords,
		IsNew:       task.Type == ledger.TaskCreate,
	})
	if err != nil {
		o.fail(seq, err)
		return
	}

	for _, rec := range syncRecords {
		snap.SetSecretFlags(rec.Name, rec.RestProxyAccess, false)
	}
	snap.UpsertSecretRecord(secretstore.Record{
		Name:      payload.SecretName,
		EnvID:     payload.EnvID,
		SAID:      sa.ResourceID,
		SAName:    sa.Name,
		ClusterID: payload.ClusterID,
	})
	o.succeed(seq, "rest proxy secret synced", payload)
}
