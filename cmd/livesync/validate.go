package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/livesync/config"
)

// validateCmd validates a config file without connecting.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a config file",
	Long: `Validate a livesync configuration file without connecting.

This command parses the YAML, expands environment variables, and validates
all fields. It's useful for CI/CD pipelines or pre-deployment checks.

Exit codes:
  0 - Config is valid
  1 - Config is invalid (error details printed to stderr)

Example:
  livesync validate -c config.yaml
  livesync validate --config /etc/livesync/config.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = validateCmd.MarkFlagRequired("config")
}

func runValidate(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	sorted := 0
	for _, sc := range cfg.Stores {
		if sc.Sort != nil {
			sorted++
		}
	}

	fmt.Printf("Config is valid!\n")
	fmt.Printf("  URL:       %s\n", cfg.URL)
	fmt.Printf("  Heartbeat: %s\n", cfg.Heartbeat.Duration())
	fmt.Printf("  Stores:    %d (%d sorted)\n", len(cfg.Stores), sorted)
	fmt.Printf("  Topics:    %d\n", len(cfg.Topics))

	return nil
}
