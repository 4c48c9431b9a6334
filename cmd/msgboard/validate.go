package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/msgboard/config"
)

// validateCmd validates a config file without starting the server.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a config file",
	Long: `Validate a msgboard configuration file without starting the server.

This command parses the YAML, expands environment variables, and validates
all fields. No connection to the message service is attempted.

Exit codes:
  0 - Config is valid
  1 - Config is invalid (error details printed to stderr)

Example:
  msgboard validate -c config.yaml`,
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

	account := cfg.Account
	if account == "" {
		account = "(none)"
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Config is valid!\n")
	fmt.Fprintf(out, "  Port:         %d\n", cfg.Port)
	fmt.Fprintf(out, "  Service URL:  %s\n", cfg.ServiceURL)
	fmt.Fprintf(out, "  Method:       %s\n", cfg.Method)
	fmt.Fprintf(out, "  Account:      %s\n", account)
	fmt.Fprintf(out, "  Context:      %d params\n", len(cfg.Context))
	fmt.Fprintf(out, "  Dial timeout: %s\n", cfg.DialTimeout.Duration())

	return nil
}
