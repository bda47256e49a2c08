package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kreigan/powerdns-zone-reconciler/internal/config"
	"github.com/kreigan/powerdns-zone-reconciler/internal/logger"
	"github.com/kreigan/powerdns-zone-reconciler/internal/pdns"
	"github.com/kreigan/powerdns-zone-reconciler/internal/reconciler"
)

var applyCmd = &cobra.Command{
	Use:   "apply [config-file]",
	Short: "Converge the declared DNS state from a YAML file",
	Long: `Converge zones, DNSSEC/NSEC3 state, metadata and record sets from a YAML
file against the PowerDNS server.

For every declared zone this command:
1. Creates the zone if absent, or updates mismatched zone attributes
2. Converges the DNSSEC state and NSEC3 parameters
3. Converges the zone metadata (reserved kinds excluded)
4. Replaces changed record sets and deletes undeclared ones in one patch

Afterwards, zones present on the server but absent from the configuration
are deleted when deleteUnknownZones is enabled.

The last line of output is the literal token CHANGED when at least one
mutation was issued, UNCHANGED otherwise.`,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE:         runApply,
}

var dryRun bool

func init() {
	rootCmd.AddCommand(applyCmd)
	applyCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show what would be changed without applying")
}

func runApply(cmd *cobra.Command, args []string) error {
	apiURL, err := cmd.Flags().GetString("api-url")
	if err != nil {
		return fmt.Errorf("failed to get api-url flag: %w", err)
	}

	apiKey, err := resolveAPIKey(cmd)
	if err != nil {
		return err
	}

	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		return fmt.Errorf("failed to get verbose flag: %w", err)
	}

	configFile := args[0]

	log := logger.New(verbose)
	log.SetDryRun(dryRun)

	log.Info("Loading configuration from %s", configFile)
	log.Debug("API URL: %s", apiURL)
	log.Debug("API Key: %s", logger.MaskSecret(apiKey))

	cfg, err := config.LoadFromFile(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	log.Info("Loaded %d zone(s) from configuration", len(cfg.Zones))

	client := pdns.NewClient(apiURL, apiKey, log)
	rec := reconciler.New(client, log)

	result, err := rec.Run(cmd.Context(), cfg, reconciler.Options{DryRun: dryRun})
	if err != nil {
		return fmt.Errorf("failed to apply configuration: %w", err)
	}

	printRunResult(result, dryRun)

	if len(result.Errors) > 0 {
		return fmt.Errorf("apply completed with %d error(s)", len(result.Errors))
	}
	return nil
}

func printRunResult(result *reconciler.Result, isDryRun bool) {
	prefix := ""
	if isDryRun {
		prefix = "[DRY RUN] "
	}

	fmt.Printf("\n%sResults:\n", prefix)
	fmt.Printf("  Zones created:    %d\n", result.ZonesCreated)
	fmt.Printf("  Zones updated:    %d\n", result.ZonesUpdated)
	fmt.Printf("  Zones deleted:    %d\n", result.ZonesDeleted)
	fmt.Printf("  DNSSEC changes:   %d\n", result.DnssecChanges)
	fmt.Printf("  Metadata changes: %d\n", result.MetadataChanges)
	fmt.Printf("  RRsets replaced:  %d\n", result.RRsetsReplaced)
	fmt.Printf("  RRsets deleted:   %d\n", result.RRsetsDeleted)

	if len(result.Errors) > 0 {
		fmt.Fprintf(os.Stderr, "\nErrors:\n")
		for _, err := range result.Errors {
			fmt.Fprintf(os.Stderr, "  - %v\n", err)
		}
	}

	// Machine-detectable marker for calling layers (e.g. an Ansible task).
	if result.Changed {
		fmt.Println("CHANGED")
	} else {
		fmt.Println("UNCHANGED")
	}
}
