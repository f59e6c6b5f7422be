// Package aws implements the secret store contract on AWS Secrets Manager.
package aws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/go-logr/logr"
	"github.com/mitchellh/mapstructure"

	"github.com/tiagoposse/ccloud-secretsync/internal/config"
	"github.com/tiagoposse/ccloud-secretsync/internal/secretstore"
)

// StoreConfig holds the backend settings decoded from the secret_store
// configs block.
type StoreConfig struct {
	Region   string `mapstructure:"region"`
	Profile  string `mapstructure:"profile"`
	Endpoint string `mapstructure:"endpoint"`
}

// Store is the AWS Secrets Manager backend.
type Store struct {
	client    *secretsmanager.Client
	prefix    string
	separator string
	log       logr.Logger
}

// New builds a Store from the runner configuration.
func New(ctx context.Context, cfg config.SecretStoreConfig, log logr.Logger) (*Store, error) {
	storeConfig := &StoreConfig{}
	if err := mapstructure.Decode(cfg.Configs, storeConfig); err != nil {
		return nil, fmt.Errorf("decoding secret store config: %w", err)
	}

	var opts []func(*awsconfig.LoadOptions) error
	if storeConfig.Region != "" {
		opts = append(opts, awsconfig.WithRegion(storeConfig.Region))
	}
	if storeConfig.Profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(storeConfig.Profile))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config, %v", err)
	}

	client := secretsmanager.NewFromConfig(awsCfg, func(o *secretsmanager.Options) {
		if storeConfig.Endpoint != "" {
			o.BaseEndpoint = aws.String(storeConfig.Endpoint)
		}
	})

	return &Store{
		client:    client,
		prefix:    cfg.Prefix,
		separator: cfg.Separator,
		log:       log.WithName("secretstore"),
	}, nil
}

// List returns every managed secret, identified by the secret_manager tag.
func (s *Store) List(ctx context.Context) ([]secretstore.Record, error) {
	input := &secretsmanager.ListSecretsInput{
		Filters: []types.Filter{
			{Key: types.FilterNameStringTypeTagKey, Values: []string{secretstore.TagManager}},
			{Key: types.FilterNameStringTypeTagValue, Values: []string{secretstore.TagManagerValue}},
		},
	}

	var out []secretstore.Record
	paginator := secretsmanager.NewListSecretsPaginator(s.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing secrets: %w", err)
		}
		for _, entry := range page.SecretList {
			tags := flattenTags(entry.Tags)
			out = append(out, secretstore.Record{
				Name:                   aws.ToString(entry.Name),
				EnvID:                  tags[secretstore.TagEnvID],
				SAID:                   tags[secretstore.TagSAID],
				SAName:                 tags[secretstore.TagSAName],
				ClusterID:              tags[secretstore.TagClusterID],
				APIKeyID:               tags[secretstore.TagAPIKey],
				RestProxyAccess:        parseBoolTag(tags[secretstore.TagRestProxyAccess]),
				SyncNeededForRestProxy: parseBoolTag(tags[secretstore.TagSyncNeeded]),
			})
		}
	}
	s.log.Info("read secret store snapshot", "secrets", len(out))
	return out, nil
}

// Upsert writes one API-key secret. An unchanged value is not rewritten;
// tags are re-applied either way so flag drift heals.
func (s *Store) Upsert(ctx context.Context, in secretstore.UpsertInput) (secretstore.Record, error) {
	name := secretstore.SecretName(s.prefix, s.separator, in.Key.OwnerID, in.Env.ID, in.Cluster.ID, "")
	value := map[string]string{"username": in.Key.ID, "password": in.Key.Secret}
	encoded, err := json.Marshal(value)
	if err != nil {
		return secretstore.Record{}, fmt.Errorf("encoding secret value: %w", err)
	}

	tags := map[string]string{
		secretstore.TagManager:         secretstore.TagManagerValue,
		secretstore.TagEnvName:         in.Env.DisplayName,
		secretstore.TagEnvID:           in.Env.ID,
		secretstore.TagClusterName:     in.Cluster.Name,
		secretstore.TagClusterID:       in.Cluster.ID,
		secretstore.TagSAName:          in.Account.Name,
		secretstore.TagSAID:            in.Account.ResourceID,
		secretstore.TagAPIKey:          in.Key.ID,
		secretstore.TagRestProxyAccess: strconv.FormatBool(in.RestProxyAccess),
		secretstore.TagSyncNeeded:      strconv.FormatBool(in.RestProxyAccess),
	}

	current, err := s.getSecretString(ctx, name)
	if err != nil {
		return secretstore.Record{}, err
	}

	if current == "" {
		if _, err := s.client.CreateSecret(ctx, &secretsmanager.CreateSecretInput{
			Name:         aws.String(name),
			Description:  aws.String("API key and secret generated by the CI/CD process."),
			SecretString: aws.String(string(encoded)),
			Tags:         renderTags(tags),
		}); err != nil {
			return secretstore.Record{}, fmt.Errorf("creating secret %s: %w", name, err)
		}
		s.log.Info("created secret", "name", name, "apiKey", in.Key.ID)
	} else {
		if secretValueEqual(current, value) {
			s.log.Info("secret value unchanged, skipping put", "name", name)
		} else {
			if _, err := s.client.PutSecretValue(ctx, &secretsmanager.PutSecretValueInput{
				SecretId:     aws.String(name),
				SecretString: aws.String(string(encoded)),
			}); err != nil {
				return secretstore.Record{}, fmt.Errorf("updating secret %s: %w", name, err)
			}
			s.log.Info("updated secret", "name", name, "apiKey", in.Key.ID)
		}
		if err := s.Tag(ctx, name, tags); err != nil {
			return secretstore.Record{}, err
		}
	}

	return secretstore.Record{
		Name:                   name,
		Value:                  value,
		EnvID:                  in.Env.ID,
		SAID:                   in.Account.ResourceID,
		SAName:                 in.Account.Name,
		ClusterID:              in.Cluster.ID,
		APIKeyID:               in.Key.ID,
		RestProxyAccess:        in.RestProxyAccess,
		SyncNeededForRestProxy: in.RestProxyAccess,
	}, nil
}

// Tag overwrites tags on a stored secret.
func (s *Store) Tag(ctx context.Context, secretName string, tags map[string]string) error {
	if _, err := s.client.TagResource(ctx, &secretsmanager.TagResourceInput{
		SecretId: aws.String(secretName),
		Tags:     renderTags(tags),
	}); err != nil {
		return fmt.Errorf("tagging secret %s: %w", secretName, err)
	}
	return nil
}

// UpsertRestProxy merges new and flagged API keys into the rest-proxy
// aggregate secret, then clears the sync flag on contributing secrets.
func (s *Store) UpsertRestProxy(ctx context.Context, in secretstore.RestProxyInput) error {
	files := map[string]string{}
	if !in.IsNew {
		current, err := s.getSecretString(ctx, in.SecretName)
		if err != nil {
			return err
		}
		if current != "" {
			if err := json.Unmarshal([]byte(current), &files); err != nil {
				return fmt.Errorf("decoding rest proxy secret %s: %w", in.SecretName, err)
			}
		}
	}

	changed := false
	merge := func(key, secret string) {
		basicChanged, basic := secretstore.MergeBasicUser(files[secretstore.BasicFileKey], key, secret)
		files[secretstore.BasicFileKey] = basic
		jaasChanged, jaas := secretstore.MergeJAASUser(files[secretstore.JAASFileKey], key, secret)
		files[secretstore.JAASFileKey] = jaas
		changed = changed || basicChanged || jaasChanged
	}

	for _, key := range in.NewKeys {
		merge(key.ID, key.Secret)
	}

	var contributed []secretstore.Record
	for _, rec := range in.SyncRecords {
		value := rec.Value
		if len(value) == 0 {
			raw, err := s.getSecretString(ctx, rec.Name)
			if err != nil {
				return err
			}
			if raw == "" {
				s.log.Info("skipping sync-flagged secret with no value", "name", rec.Name)
				continue
			}
			if err := json.Unmarshal([]byte(raw), &value); err != nil {
				return fmt.Errorf("decoding secret %s: %w", rec.Name, err)
			}
		}
		merge(value["username"], value["password"])
		contributed = append(contributed, rec)
	}

	if changed {
		encoded, err := json.Marshal(files)
		if err != nil {
			return fmt.Errorf("encoding rest proxy secret: %w", err)
		}
		if in.IsNew {
			tags := map[string]string{
				secretstore.TagManager:         secretstore.TagManagerValue,
				secretstore.TagEnvName:         in.Env.DisplayName,
				secretstore.TagEnvID:           in.Env.ID,
				secretstore.TagClusterName:     in.Cluster.Name,
				secretstore.TagClusterID:       in.Cluster.ID,
				secretstore.TagSAName:          in.Account.Name,
				secretstore.TagSAID:            in.Account.ResourceID,
				secretstore.TagRestProxyAccess: "false",
				secretstore.TagIsRestProxyUser: "true",
			}
			if _, err := s.client.CreateSecret(ctx, &secretsmanager.CreateSecretInput{
				Name:         aws.String(in.SecretName),
				Description:  aws.String("REST proxy user bundle generated by the CI/CD process."),
				SecretString: aws.String(string(encoded)),
				Tags:         renderTags(tags),
			}); err != nil {
				return fmt.Errorf("creating rest proxy secret %s: %w", in.SecretName, err)
			}
			s.log.Info("created rest proxy secret", "name", in.SecretName)
		} else {
			if _, err := s.client.PutSecretValue(ctx, &secretsmanager.PutSecretValueInput{
				SecretId:     aws.String(in.SecretName),
				SecretString: aws.String(string(encoded)),
			}); err != nil {
				return fmt.Errorf("updating rest proxy secret %s: %w", in.SecretName, err)
			}
			s.log.Info("updated rest proxy secret", "name", in.SecretName)
		}
	}

	for _, rec := range contributed {
		if err := s.Tag(ctx, rec.Name, map[string]string{secretstore.TagSyncNeeded: "false"}); err != nil {
			return err
		}
	}
	return nil
}

// getSecretString fetches a secret value, returning "" when the secret does
// not exist.
func (s *Store) getSecretString(ctx context.Context, name string) (string, error) {
	resp, err := s.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(name),
	})
	if err != nil {
		var notFound *types.ResourceNotFoundException
		if errors.As(err, &notFound) {
			return "", nil
		}
		return "", fmt.Errorf("reading secret %s: %w", name, err)
	}
	return aws.ToString(resp.SecretString), nil
}

func secretValueEqual(currentJSON string, next map[string]string) bool {
	var current map[string]string
	if err := json.Unmarshal([]byte(currentJSON), &current); err != nil {
		return false
	}
	if len(current) != len(next) {
		return false
	}
	for k, v := range next {
		if current[k] != v {
			return false
		}
	}
	return true
}

func renderTags(tags map[string]string) []types.Tag {
	out := make([]types.Tag, 0, len(tags))
	for k, v := range tags {
		out = append(out, types.Tag{Key: aws.String(k), Value: aws.String(v)})
	}
	return out
}

func flattenTags(tags []types.Tag) map[string]string {
	out := make(map[string]string, len(tags))
	for _, tag := range tags {
		out[aws.ToString(tag.Key)] = aws.ToString(tag.Value)
	}
	return out
}

// parseBoolTag accepts both Go style "true" and the Python style "True" that
// earlier tooling wrote.
func parseBoolTag(value string) bool {
	return strings.EqualFold(value, "true")
}
