package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

type classStatus struct {
	SensorClassName   string `json:"sensorClassName"`
	Required          bool   `json:"required"`
	DefinedQuantity   int    `json:"definedQuantity"`
	InstalledQuantity int    `json:"installedQuantity"`
	IsRequirementMet  *bool  `json:"isRequirementMet"`
}

type configurationStatus struct {
	VesselID           uint          `json:"vesselId"`
	AllRequirementsMet bool          `json:"allRequirementsMet"`
	Classes            []classStatus `json:"classes"`
}

var vesselStatusCmd = &cobra.Command{
	Use:   "status <vessel-id>",
	Short: "Show whether a vessel carries every required sensor class",
	Args:  cobra.ExactArgs(1),
	RunE:  runVesselStatus,
}

var missingSensorsCmd = &cobra.Command{
	Use:   "missing <vessel-id>",
	Short: "List the required sensor classes a vessel is short of",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return listAndPrint(fmt.Sprintf("%s/vessels/%s/missing-sensors", apiPrefix, args[0]), "missing sensors", []column{
			{"Class", "sensorClassName"}, {"Required", "required"}, {"Installed", "installed"}, {"Missing", "missing"},
		})
	},
}

func runVesselStatus(cmd *cobra.Command, args []string) error {
	var status configurationStatus
	if err := newClient().getJSON(fmt.Sprintf("%s/vessels/%s/sensor-status", apiPrefix, args[0]), &status); err != nil {
		return err
	}
	if structured() {
		return printOutput(status)
	}

	verdict := "INCOMPLETE"
	if status.AllRequirementsMet {
		verdict = "COMPLETE"
	}
	fmt.Fprintf(stdout, "Vessel %d sensor configuration: %s\n\n", status.VesselID, verdict)
	if len(status.Classes) == 0 {
		fmt.Fprintln(stdout, "No sensor classes defined for this vessel type.")
		return nil
	}
	rows := make([][]string, 0, len(status.Classes))
	for _, c := range status.Classes {
		met := "-"
		if c.IsRequirementMet != nil {
			met = strconv.FormatBool(*c.IsRequirementMet)
		}
		rows = append(rows, []string{
			c.SensorClassName,
			strconv.FormatBool(c.Required),
			strconv.Itoa(c.DefinedQuantity),
			strconv.Itoa(c.InstalledQuantity),
			met,
		})
	}
	printTable([]string{"Class", "Required", "Defined", "Installed", "Met"}, rows)
	return nil
}

var mapCmd = &cobra.Command{
	Use:   "map",
	Short: "Show active vessels with their latest position",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return listAndPrint(apiPrefix+"/public/map", "active vessels", []column{
			{"ID", "vesselId"}, {"Name", "name"}, {"Position", "latestPosition"},
			{"Heading", "latestHeading"}, {"Seen", "latestTimestamp"},
		})
	},
}
