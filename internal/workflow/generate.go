package workflow

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/tiagoposse/ccloud-secretsync/internal/ccloud"
	"github.com/tiagoposse/ccloud-secretsync/internal/config"
)

// GenerateDefinitions renders a starter definitions file from the service
// accounts currently observed in Confluent Cloud. Access lists and contact
// addresses are left for the operator to fill in.
func GenerateDefinitions(path string, accounts []ccloud.ServiceAccount) error {
	defs := config.Definitions{}
	for _, sa := range accounts {
		defs.ServiceAccounts = append(defs.ServiceAccounts, config.ServiceAccountDef{
			Name:         sa.Name,
			Description:  sa.Description,
			EmailAddress: "abc@abc.com",
			ClusterList:  []string{},
		})
	}

	out, err := yaml.Marshal(defs)
	if err != nil {
		return fmt.Errorf("rendering definitions: %w", err)
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("writing definitions file: %w", err)
	}
	return nil
}
