package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pesio-ai/be-claims-evaluator/internal/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "claims-evaluator",
	Short: "Insurance claim evaluation service",
	Long: `claims-evaluator runs insurance claims through a fixed sequence of
evaluation stages (FNOL validation, policy verification, document extraction,
proof verification, coverage, fraud check, damage assessment and settlement)
and records a decision with its reasoning.

Configuration is read from an optional YAML file and CLAIMS_* environment
variables, e.g. CLAIMS_DATABASE_HOST or CLAIMS_EXTRACTION_API_KEY.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML)")
}

func loadConfig() (*config.Config, error) {
	return config.Load(viper.New(), cfgFile)
}
