package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var requirementsCmd = &cobra.Command{
	Use:   "requirements",
	Short: "Manage the sensor classes a vessel type requires or allows",
}

var (
	reqOptional bool
	reqQuantity int
	setOptional bool
	setQuantity int
)

func init() {
	addCmd := &cobra.Command{
		Use:   "add <vessel-type-id> <sensor-class-id>",
		Short: "List a sensor class for a vessel type",
		Args:  cobra.ExactArgs(2),
		RunE:  runRequirementAdd,
	}
	addCmd.Flags().BoolVar(&reqOptional, "optional", false, "allow the class without requiring it")
	addCmd.Flags().IntVar(&reqQuantity, "quantity", 1, "number of sensors required")

	setCmd := &cobra.Command{
		Use:   "set <vessel-type-id> <sensor-class-id>",
		Short: "Change the required flag or quantity of a listed class",
		Args:  cobra.ExactArgs(2),
		RunE:  runRequirementSet,
	}
	setCmd.Flags().BoolVar(&setOptional, "optional", false, "mark the class optional")
	setCmd.Flags().IntVar(&setQuantity, "quantity", 0, "number of sensors required")

	requirementsCmd.AddCommand(
		&cobra.Command{
			Use:   "list <vessel-type-id>",
			Short: "List the sensor classes of a vessel type",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return listAndPrint(requirementsPath(args[0]), "requirements", []column{
					{"Class ID", "sensorClassId"}, {"Class", "sensorClassName"},
					{"Required", "required"}, {"Quantity", "quantity"},
				})
			},
		},
		addCmd,
		setCmd,
		&cobra.Command{
			Use:   "remove <vessel-type-id> <sensor-class-id>",
			Short: "Remove a sensor class from a vessel type",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := newClient().delete(requirementsPath(args[0]) + "/" + args[1]); err != nil {
					return err
				}
				fmt.Fprintf(stdout, "Removed sensor class %s from vessel type %s\n", args[1], args[0])
				return nil
			},
		},
	)
}

func requirementsPath(vesselTypeID string) string {
	return fmt.Sprintf("%s/vessel-types/%s/requirements", apiPrefix, vesselTypeID)
}

func runRequirementAdd(cmd *cobra.Command, args []string) error {
	var classID uint
	if _, err := fmt.Sscanf(args[1], "%d", &classID); err != nil {
		return fmt.Errorf("invalid sensor class id %q", args[1])
	}
	body := map[string]any{
		"sensorClassId": classID,
		"required":      !reqOptional,
		"quantity":      reqQuantity,
	}
	var row map[string]any
	if err := newClient().postJSON(requirementsPath(args[0]), body, &row); err != nil {
		return err
	}
	return printObject(row, nil)
}

func runRequirementSet(cmd *cobra.Command, args []string) error {
	body := map[string]any{}
	if cmd.Flags().Changed("optional") {
		body["required"] = !setOptional
	}
	if cmd.Flags().Changed("quantity") {
		body["quantity"] = setQuantity
	}
	if len(body) == 0 {
		return fmt.Errorf("nothing to change: pass --optional or --quantity")
	}
	var row map[string]any
	if err := newClient().patchJSON(requirementsPath(args[0])+"/"+args[1], body, &row); err != nil {
		return err
	}
	return printObject(row, nil)
}
