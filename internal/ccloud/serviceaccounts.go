package ccloud

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

type serviceAccountJSON struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Description string `json:"description"`
	Metadata    struct {
		CreatedAt time.Time `json:"created_at"`
		UpdatedAt time.Time `json:"updated_at"`
	} `json:"metadata"`
}

func (j serviceAccountJSON) toServiceAccount() ServiceAccount {
	return ServiceAccount{
		ResourceID:  j.ID,
		Name:        j.DisplayName,
		Description: j.Description,
		CreatedAt:   j.Metadata.CreatedAt,
		UpdatedAt:   j.Metadata.UpdatedAt,
	}
}

// ListServiceAccounts returns every service account in the organisation.
// Ignore flags are resolved by the caller, which owns the ignore set.
func (c *Client) ListServiceAccounts(ctx context.Context) ([]ServiceAccount, error) {
	var out []ServiceAccount
	err := c.list(ctx, serviceAccountsPath, nil, func(raw json.RawMessage) error {
		var item serviceAccountJSON
		if err := json.Unmarshal(raw, &item); err != nil {
			return fmt.Errorf("decoding service account: %w", err)
		}
		c.log.V(1).Info("found service account", "id", item.ID, "name", item.DisplayName)
		out = append(out, item.toServiceAccount())
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing service accounts: %w", err)
	}
	return out, nil
}

// CreateServiceAccount creates a service account and returns it with the
// provider-assigned resource id.
func (c *Client) CreateServiceAccount(ctx context.Context, name, description string) (ServiceAccount, error) {
	if description == "" {
		description = "Account for " + name + " created by the CI/CD framework"
	}
	body := map[string]string{"display_name": name, "description": description}

	var created serviceAccountJSON
	if err := c.request(ctx, http.MethodPost, serviceAccountsPath, nil, body, &created); err != nil {
		return ServiceAccount{}, fmt.Errorf("creating service account %s: %w", name, err)
	}
	c.log.Info("created service account", "id", created.ID, "name", created.DisplayName)
	return created.toServiceAccount(), nil
}

// DeleteServiceAccount deletes a service account by resource id. Deleting an
// already absent account is a successful no-op.
func (c *Client) DeleteServiceAccount(ctx context.Context, resourceID string) error {
	err := c.request(ctx, http.MethodDelete, serviceAccountsPath+"/"+resourceID, nil, nil, nil)
	if err != nil {
		if IsNotFound(err) {
			c.log.Info("service account already absent", "id", resourceID)
			return nil
		}
		return fmt.Errorf("deleting service account %s: %w", resourceID, err)
	}
	c.log.Info("deleted service account", "id", resourceID)
	return nil
}
