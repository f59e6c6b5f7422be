package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tiagoposse/ccloud-secretsync/internal/ccloud"
	"github.com/tiagoposse/ccloud-secretsync/internal/config"
	"github.com/tiagoposse/ccloud-secretsync/internal/workflow"
)

var generateOutput string

var generateCmd = &cobra.Command{
	Use:   "generate-definitions",
	Short: "Render a starter definitions file from the current Confluent Cloud state",
	RunE: func(cmd *cobra.Command, args []string) error {
		if configPath == "" {
			return fmt.Errorf("--config is required")
		}
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}

		client := ccloud.NewClient(cfg.CCloud, log)
		accounts, err := client.ListServiceAccounts(cmd.Context())
		if err != nil {
			return err
		}
		if err := workflow.GenerateDefinitions(generateOutput, accounts); err != nil {
			return err
		}
		log.Info("definitions file rendered", "path", generateOutput, "serviceAccounts", len(accounts))
		return nil
	},
}

func init() {
	generateCmd.Flags().StringVarP(&generateOutput, "output", "o", "definitions.yaml", "path of the definitions file to write")
	rootCmd.AddCommand(generateCmd)
}
