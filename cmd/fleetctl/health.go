package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check server health and readiness",
	RunE:  runHealth,
}

func runHealth(cmd *cobra.Command, args []string) error {
	client := newClient()

	var healthResp map[string]any
	if err := client.getJSON("/healthz", &healthResp); err != nil {
		return fmt.Errorf("server unreachable: %w", err)
	}

	var readyResp map[string]any
	if err := client.getJSON("/readyz", &readyResp); err != nil {
		// The database may still be coming up.
		readyResp = map[string]any{"status": "unavailable", "error": err.Error()}
	}

	if structured() {
		return printOutput(map[string]any{
			"health":    healthResp,
			"readiness": readyResp,
		})
	}

	status, _ := healthResp["status"].(string)
	ready, _ := readyResp["status"].(string)
	printTable([]string{"Check", "Status"}, [][]string{
		{"Liveness", status},
		{"Readiness", ready},
	})
	return nil
}
