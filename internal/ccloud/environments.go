package ccloud

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

type environmentJSON struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Metadata    struct {
		CreatedAt time.Time `json:"created_at"`
	} `json:"metadata"`
}

// ListEnvironments returns every environment in the organisation.
func (c *Client) ListEnvironments(ctx context.Context) ([]Environment, error) {
	var out []Environment
	err := c.list(ctx, environmentsPath, nil, func(raw json.RawMessage) error {
		var item environmentJSON
		if err := json.Unmarshal(raw, &item); err != nil {
			return fmt.Errorf("decoding environment: %w", err)
		}
		c.log.V(1).Info("found environment", "id", item.ID, "name", item.DisplayName)
		out = append(out, Environment{
			ID:          item.ID,
			DisplayName: item.DisplayName,
			CreatedAt:   item.Metadata.CreatedAt,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing environments: %w", err)
	}
	return out, nil
}
