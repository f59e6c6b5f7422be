package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tiagoposse/ccloud-secretsync/internal/ccloud"
	"github.com/tiagoposse/ccloud-secretsync/internal/config"
	"github.com/tiagoposse/ccloud-secretsync/internal/reconcile"
	"github.com/tiagoposse/ccloud-secretsync/internal/report"
	"github.com/tiagoposse/ccloud-secretsync/internal/secretstore"
	awsstore "github.com/tiagoposse/ccloud-secretsync/internal/secretstore/aws"
	"github.com/tiagoposse/ccloud-secretsync/internal/workflow"
)

var (
	dryRun                    bool
	disableAPIKeyCreation     bool
	printDeleteEligibleAPIKey bool
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one reconciliation pass",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfg, defs, err := loadInputs()
		if err != nil {
			return err
		}

		client := ccloud.NewClient(cfg.CCloud, log)
		store, err := newStore(cmd, cfg)
		if err != nil {
			return err
		}

		orch := workflow.New(*cfg, *defs, client, client, store, workflow.Options{
			DryRun:                dryRun,
			DisableAPIKeyCreation: disableAPIKeyCreation,
		}, log)

		snap, err := orch.LoadSnapshot(ctx)
		if err != nil {
			return err
		}

		if printDeleteEligibleAPIKey {
			report.WriteDeleteEligible(os.Stdout, reconcile.DeleteEligibleKeys(snap), func(saID string) (string, bool) {
				sa, ok := snap.AccountByID(saID)
				return sa.Name, ok
			})
		}

		if err := orch.RunWithSnapshot(ctx, snap); err != nil {
			return err
		}

		ledger := orch.Ledger()
		report.WriteLedger(os.Stdout, ledger)
		if failed := ledger.Failed(); failed > 0 {
			return fmt.Errorf("%d task(s) failed, see the run report", failed)
		}
		return nil
	},
}

func init() {
	syncCmd.Flags().BoolVar(&dryRun, "dry-run", false, "compute and report tasks without executing them")
	syncCmd.Flags().BoolVar(&disableAPIKeyCreation, "disable-api-key-creation", false, "skip the API key, secret and rest proxy phases")
	syncCmd.Flags().BoolVar(&printDeleteEligibleAPIKey, "print-delete-eligible-api-keys", false, "report keys active in Confluent Cloud but missing from the secret store")
	rootCmd.AddCommand(syncCmd)
}

func loadInputs() (*config.Config, *config.Definitions, error) {
	if configPath == "" {
		return nil, nil, fmt.Errorf("--config is required")
	}
	if definitionsPath == "" {
		return nil, nil, fmt.Errorf("--definitions is required")
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	defs, err := config.LoadDefinitions(definitionsPath, cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, defs, nil
}

func newStore(cmd *cobra.Command, cfg *config.Config) (secretstore.Store, error) {
	switch cfg.SecretStore.Type {
	case config.StoreAWSSecretsManager:
		return awsstore.New(cmd.Context(), cfg.SecretStore, log)
	default:
		return nil, fmt.Errorf("secret store type %q is not supported", cfg.SecretStore.Type)
	}
}
