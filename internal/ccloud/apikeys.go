package ccloud

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

type apiKeyJSON struct {
	ID   string `json:"id"`
	Spec struct {
		Secret      string `json:"secret"`
		Description string `json:"description"`
		Owner       struct {
			ID string `json:"id"`
		} `json:"owner"`
		Resource struct {
			ID   string `json:"id"`
			Kind string `json:"kind"`
		} `json:"resource"`
	} `json:"spec"`
	Metadata struct {
		CreatedAt time.Time `json:"created_at"`
	} `json:"metadata"`
}

func (j apiKeyJSON) toAPIKey() APIKey {
	return APIKey{
		ID:          j.ID,
		Secret:      j.Spec.Secret,
		Description: j.Spec.Description,
		OwnerID:     j.Spec.Owner.ID,
		ClusterID:   j.Spec.Resource.ID,
		CreatedAt:   j.Metadata.CreatedAt,
	}
}

// ListAPIKeys returns every Kafka cluster API key in the organisation.
// Secrets are never part of list responses; only CreateAPIKey yields one.
func (c *Client) ListAPIKeys(ctx context.Context) ([]APIKey, error) {
	var out []APIKey
	err := c.list(ctx, apiKeysPath, nil, func(raw json.RawMessage) error {
		var item apiKeyJSON
		if err := json.Unmarshal(raw, &item); err != nil {
			return fmt.Errorf("decoding api key: %w", err)
		}
		if item.Spec.Resource.Kind != "Cluster" || item.Spec.Resource.ID == "" {
			c.log.V(1).Info("skipping non-kafka api key", "id", item.ID, "kind", item.Spec.Resource.Kind)
			return nil
		}
		out = append(out, item.toAPIKey())
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing api keys: %w", err)
	}
	return out, nil
}

type createAPIKeyRequest struct {
	Spec struct {
		Description string `json:"description"`
		Owner       struct {
			ID string `json:"id"`
		} `json:"owner"`
		Resource struct {
			ID          string `json:"id"`
			Environment string `json:"environment,omitempty"`
		} `json:"resource"`
	} `json:"spec"`
}

// CreateAPIKey creates a Kafka API key for the given service account and
// cluster. The returned key carries the secret; this is the only moment it
// is ever visible.
func (c *Client) CreateAPIKey(ctx context.Context, envID, clusterID, saID, description string) (APIKey, error) {
	var body createAPIKeyRequest
	body.Spec.Description = description
	body.Spec.Owner.ID = saID
	body.Spec.Resource.ID = clusterID
	body.Spec.Resource.Environment = envID

	var created apiKeyJSON
	if err := c.request(ctx, http.MethodPost, apiKeysPath, nil, body, &created); err != nil {
		return APIKey{}, fmt.Errorf("creating api key for %s on %s: %w", saID, clusterID, err)
	}
	c.log.Info("created api key", "id", created.ID, "owner", saID, "cluster", clusterID)

	key := created.toAPIKey()
	// some responses omit these from the echo, keep the request values
	key.OwnerID = saID
	key.ClusterID = clusterID
	if key.CreatedAt.IsZero() {
		key.CreatedAt = time.Now().UTC()
	}
	return key, nil
}

// DeleteAPIKey deletes an API key by id. Deleting an already absent key is a
// successful no-op.
func (c *Client) DeleteAPIKey(ctx context.Context, keyID string) error {
	err := c.request(ctx, http.MethodDelete, apiKeysPath+"/"+keyID, nil, nil, nil)
	if err != nil {
		if IsNotFound(err) {
			c.log.Info("api key already absent", "id", keyID)
			return nil
		}
		return fmt.Errorf("deleting api key %s: %w", keyID, err)
	}
	c.log.Info("deleted api key", "id", keyID)
	return nil
}
