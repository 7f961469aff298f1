package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"halcyon-ai/relay/pkg/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration file",
	Long: `Load and validate the configuration file without starting the server.

Environment variable overrides (RELAY_*) are applied before validation,
so the result matches what "relay run" would start with.

Examples:
  # Validate the default config file
  relay validate

  # Validate a specific file
  relay validate --config /etc/relay/relay.yaml`,
	RunE: validateConfig,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func validateConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		var verr config.ValidationError
		if errors.As(err, &verr) {
			fmt.Printf("✗ %s is invalid:\n", cfgFile)
			for _, fe := range verr.Errors {
				fmt.Printf("  - %s\n", fe.Error())
			}
			return fmt.Errorf("%d validation error(s)", len(verr.Errors))
		}
		return err
	}

	fmt.Printf("✓ %s is valid\n", cfgFile)
	fmt.Printf("  listen address: %s\n", cfg.Server.ListenAddress)
	fmt.Printf("  backends: %d\n", len(cfg.Backends.Endpoints))
	fmt.Printf("  model: %s\n", cfg.Model.Name)
	return nil
}
