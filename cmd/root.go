// Package cmd provides CLI commands for the PowerDNS zone reconciler.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// apiKeyEnvVar is consulted when --api-key is not given.
const apiKeyEnvVar = "PDNS_AUTH_API_KEY"

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "powerdns-zone-reconciler",
	Short: "Converge declared zones against a PowerDNS server",
	Long: `A CLI tool that converges declaratively configured DNS state (zones,
DNSSEC/NSEC3 parameters, zone metadata and record sets) against a PowerDNS
Authoritative Server, issuing only the mutations needed.

Runs are idempotent: re-applying an unchanged configuration against a
converged server issues zero operations and reports UNCHANGED.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String(
		"api-url", "", "PowerDNS API base URL (e.g., http://localhost:8081/api/v1/servers/localhost)")
	rootCmd.PersistentFlags().String(
		"api-key", "", fmt.Sprintf("PowerDNS API key (falls back to the %s environment variable)", apiKeyEnvVar))
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose/debug output")

	if err := rootCmd.MarkPersistentFlagRequired("api-url"); err != nil {
		panic(fmt.Sprintf("failed to mark api-url as required: %v", err))
	}
}

// resolveAPIKey returns the API key from the flag or the environment.
func resolveAPIKey(cmd *cobra.Command) (string, error) {
	apiKey, err := cmd.Flags().GetString("api-key")
	if err != nil {
		return "", fmt.Errorf("failed to get api-key flag: %w", err)
	}
	if apiKey == "" {
		apiKey = os.Getenv(apiKeyEnvVar)
	}
	if apiKey == "" {
		return "", fmt.Errorf("no API key: set --api-key or the %s environment variable", apiKeyEnvVar)
	}
	return apiKey, nil
}
