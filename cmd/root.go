// Package cmd holds the ccloud-secretsync command line interface.
package cmd

import (
	"fmt"
	"os"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configPath      string
	definitionsPath string
	debug           bool

	log logr.Logger
)

var rootCmd = &cobra.Command{
	Use:   "ccloud-secretsync",
	Short: "Synchronise Confluent Cloud service accounts and API keys to a secret store",
	Long: `ccloud-secretsync reconciles a declared set of Confluent Cloud service
accounts and API key grants against the live organisation and an AWS Secrets
Manager store, creating, rotating and deleting resources until both converge
on the declaration.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setupLogging()
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to the runner configuration file")
	rootCmd.PersistentFlags().StringVarP(&definitionsPath, "definitions", "d", "", "path to the service account definitions file")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

func setupLogging() error {
	zapCfg := zap.NewProductionConfig()
	if debug {
		zapCfg = zap.NewDevelopmentConfig()
	}
	zapLog, err := zapCfg.Build()
	if err != nil {
		return fmt.Errorf("initialising logger: %w", err)
	}
	log = zapr.NewLogger(zapLog)
	return nil
}
