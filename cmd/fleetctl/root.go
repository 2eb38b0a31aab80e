package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	serverURL string
	outputFmt string
	actor     string
)

var rootCmd = &cobra.Command{
	Use:   "fleetctl",
	Short: "CLI for the fleet registry server",
	Long: `fleetctl manages operators, fleets, vessels, sensors and their
configuration rules on a running fleet-server.

Every entity supports list, get, create, update and delete. Vessels also
report their sensor configuration status.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", envOr("FLEET_SERVER", "http://localhost:8080"), "Fleet server URL")
	rootCmd.PersistentFlags().StringVarP(&outputFmt, "output", "o", "table", "Output format: table, json, yaml")
	rootCmd.PersistentFlags().StringVar(&actor, "actor", os.Getenv("FLEET_ACTOR"), "Name recorded in the audit log for changes")

	for _, r := range resources {
		rootCmd.AddCommand(buildResourceCommand(r))
	}
	rootCmd.AddCommand(vesselStatusCmd, missingSensorsCmd, requirementsCmd, alertCmd, importsCmd, mapCmd, healthCmd)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
