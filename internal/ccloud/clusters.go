package ccloud

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
)

type clusterJSON struct {
	ID   string `json:"id"`
	Spec struct {
		DisplayName            string `json:"display_name"`
		Cloud                  string `json:"cloud"`
		Availability           string `json:"availability"`
		Region                 string `json:"region"`
		KafkaBootstrapEndpoint string `json:"kafka_bootstrap_endpoint"`
	} `json:"spec"`
}

// ListClusters returns every Kafka cluster provisioned in the given
// environments.
func (c *Client) ListClusters(ctx context.Context, envIDs []string) ([]Cluster, error) {
	var out []Cluster
	for _, envID := range envIDs {
		envID := envID
		params := url.Values{"environment": []string{envID}}
		err := c.list(ctx, clustersPath, params, func(raw json.RawMessage) error {
			var item clusterJSON
			if err := json.Unmarshal(raw, &item); err != nil {
				return fmt.Errorf("decoding cluster: %w", err)
			}
			c.log.V(1).Info("found cluster", "id", item.ID, "name", item.Spec.DisplayName, "environment", envID)
			out = append(out, Cluster{
				EnvID:        envID,
				ID:           item.ID,
				Name:         item.Spec.DisplayName,
				Cloud:        item.Spec.Cloud,
				Availability: item.Spec.Availability,
				Region:       item.Spec.Region,
				BootstrapURL: item.Spec.KafkaBootstrapEndpoint,
			})
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("listing clusters in environment %s: %w", envID, err)
		}
	}
	return out, nil
}
