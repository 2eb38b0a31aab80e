package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var alertCmd = &cobra.Command{
	Use:   "alerts",
	Short: "Inspect and handle vessel alerts",
}

var alertColumns = []column{
	{"ID", "id"}, {"Type", "alertType"}, {"Severity", "severity"}, {"Message", "message"},
	{"Acked", "acknowledged"}, {"Resolved", "resolved"},
}

func init() {
	var unresolved bool
	listCmd := &cobra.Command{
		Use:   "list <vessel-id>",
		Short: "List a vessel's alerts, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := fmt.Sprintf("%s/vessels/%s/alerts", apiPrefix, args[0])
			if unresolved {
				path += "?unresolved=true"
			}
			return listAndPrint(path, "alerts", alertColumns)
		},
	}
	listCmd.Flags().BoolVar(&unresolved, "unresolved", false, "hide resolved alerts")

	var operatorID uint
	ackCmd := &cobra.Command{
		Use:   "ack <alert-id>",
		Short: "Acknowledge an alert on behalf of an operator",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var obj map[string]any
			err := newClient().postJSON(fmt.Sprintf("%s/alerts/%s/acknowledge", apiPrefix, args[0]),
				map[string]any{"operatorId": operatorID}, &obj)
			if err != nil {
				return err
			}
			return printObject(obj, alertColumns)
		},
	}
	ackCmd.Flags().UintVar(&operatorID, "operator", 0, "acknowledging operator id")
	_ = ackCmd.MarkFlagRequired("operator")

	var notes string
	resolveCmd := &cobra.Command{
		Use:   "resolve <alert-id>",
		Short: "Resolve an alert",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var obj map[string]any
			err := newClient().postJSON(fmt.Sprintf("%s/alerts/%s/resolve", apiPrefix, args[0]),
				map[string]any{"notes": notes}, &obj)
			if err != nil {
				return err
			}
			return printObject(obj, alertColumns)
		},
	}
	resolveCmd.Flags().StringVar(&notes, "notes", "", "resolution notes")

	alertCmd.AddCommand(listCmd, ackCmd, resolveCmd)
}
