package workflow_test

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/tiagoposse/ccloud-secretsync/internal/ccloud"
	"github.com/tiagoposse/ccloud-secretsync/internal/secretstore"
)

// fakeCloud implements workflow.Inventory and workflow.Effector against
// in-memory state, assigning ids the way Confluent Cloud would.
type fakeCloud struct {
	envs     []ccloud.Environment
	clusters []ccloud.Cluster
	accounts []ccloud.ServiceAccount
	keys     []ccloud.APIKey

	nextSA  int
	nextKey int

	failCreateSA  map[string]error
	failCreateKey map[string]error

	createdAccounts []string
	deletedAccounts []string
	createdKeys     []string
	deletedKeys     []string
}

func newFakeCloud() *fakeCloud {
	return &fakeCloud{
		failCreateSA:  map[string]error{},
		failCreateKey: map[string]error{},
	}
}

func (f *fakeCloud) ListEnvironments(ctx context.Context) ([]ccloud.Environment, error) {
	return append([]ccloud.Environment(nil), f.envs...), nil
}

func (f *fakeCloud) ListClusters(ctx context.Context, envIDs []string) ([]ccloud.Cluster, error) {
	return append([]ccloud.Cluster(nil), f.clusters...), nil
}

func (f *fakeCloud) ListServiceAccounts(ctx context.Context) ([]ccloud.ServiceAccount, error) {
	return append([]ccloud.ServiceAccount(nil), f.accounts...), nil
}

func (f *fakeCloud) ListAPIKeys(ctx context.Context) ([]ccloud.APIKey, error) {
	// live listings never include secret values
	out := make([]ccloud.APIKey, len(f.keys))
	copy(out, f.keys)
	for i := range out {
		out[i].Secret = ""
	}
	return out, nil
}

func (f *fakeCloud) CreateServiceAccount(ctx context.Context, name, description string) (ccloud.ServiceAccount, error) {
	if err := f.failCreateSA[name]; err != nil {
		return ccloud.ServiceAccount{}, err
	}
	f.nextSA++
	sa := ccloud.ServiceAccount{
		ResourceID:  fmt.Sprintf("sa-%06d", f.nextSA),
		Name:        name,
		Description: description,
		CreatedAt:   time.Now(),
	}
	f.accounts = append(f.accounts, sa)
	f.createdAccounts = append(f.createdAccounts, name)
	return sa, nil
}

func (f *fakeCloud) DeleteServiceAccount(ctx context.Context, resourceID string) error {
	accounts := f.accounts[:0]
	for _, sa := range f.accounts {
		if sa.ResourceID != resourceID {
			accounts = append(accounts, sa)
		}
	}
	f.accounts = accounts
	f.deletedAccounts = append(f.deletedAccounts, resourceID)
	return nil
}

func (f *fakeCloud) CreateAPIKey(ctx context.Context, envID, clusterID, saID, description string) (ccloud.APIKey, error) {
	if err := f.failCreateKey[clusterID]; err != nil {
		return ccloud.APIKey{}, err
	}
	f.nextKey++
	key := ccloud.APIKey{
		ID:          fmt.Sprintf("KEY%06d", f.nextKey),
		Secret:      fmt.Sprintf("secret-%06d", f.nextKey),
		Description: description,
		OwnerID:     saID,
		ClusterID:   clusterID,
		CreatedAt:   time.Now(),
	}
	f.keys = append(f.keys, key)
	f.createdKeys = append(f.createdKeys, key.ID)
	return key, nil
}

func (f *fakeCloud) DeleteAPIKey(ctx context.Context, keyID string) error {
	keys := f.keys[:0]
	for _, key := range f.keys {
		if key.ID != keyID {
			keys = append(keys, key)
		}
	}
	f.keys = keys
	f.deletedKeys = append(f.deletedKeys, keyID)
	return nil
}

// fakeStore implements secretstore.Store in memory, mirroring the AWS
// adapter's record bookkeeping.
type fakeStore struct {
	prefix    string
	separator string

	records map[string]secretstore.Record
	tags    map[string]map[string]string
	rpCalls []secretstore.RestProxyInput
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		separator: "/",
		records:   map[string]secretstore.Record{},
		tags:      map[string]map[string]string{},
	}
}

func (f *fakeStore) List(ctx context.Context) ([]secretstore.Record, error) {
	names := make([]string, 0, len(f.records))
	for name := range f.records {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]secretstore.Record, 0, len(names))
	for _, name := range names {
		out = append(out, f.records[name])
	}
	return out, nil
}

func (f *fakeStore) Upsert(ctx context.Context, in secretstore.UpsertInput) (secretstore.Record, error) {
	name := secretstore.SecretName(f.prefix, f.separator, in.Key.OwnerID, in.Env.ID, in.Cluster.ID, "")
	rec := secretstore.Record{
		Name:                   name,
		Value:                  map[string]string{"username": in.Key.ID, "password": in.Key.Secret},
		EnvID:                  in.Env.ID,
		SAID:                   in.Account.ResourceID,
		SAName:                 in.Account.Name,
		ClusterID:              in.Cluster.ID,
		APIKeyID:               in.Key.ID,
		RestProxyAccess:        in.RestProxyAccess,
		SyncNeededForRestProxy: in.RestProxyAccess,
	}
	f.records[name] = rec
	return rec, nil
}

func (f *fakeStore) Tag(ctx context.Context, secretName string, tags map[string]string) error {
	current, ok := f.tags[secretName]
	if !ok {
		current = map[string]string{}
		f.tags[secretName] = current
	}
	for k, v := range tags {
		current[k] = v
	}
	return nil
}

func (f *fakeStore) UpsertRestProxy(ctx context.Context, in secretstore.RestProxyInput) error {
	f.rpCalls = append(f.rpCalls, in)
	// contributing secrets get their sync flag cleared, like the AWS adapter
	for _, rec := range in.SyncRecords {
		if stored, ok := f.records[rec.Name]; ok {
			stored.SyncNeededForRestProxy = false
			f.records[rec.Name] = stored
		}
	}
	f.records[in.SecretName] = secretstore.Record{
		Name:      in.SecretName,
		EnvID:     in.Env.ID,
		SAID:      in.Account.ResourceID,
		SAName:    in.Account.Name,
		ClusterID: in.Cluster.ID,
	}
	return nil
}
