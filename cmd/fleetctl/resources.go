package main

import (
	"fmt"
	"net/url"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type column struct {
	Header string
	Path   string
}

// resource describes one registry collection.
type resource struct {
	Name    string
	Short   string
	Path    string
	Columns []column
	// Params are list query parameters exposed as flags, flag name to
	// query key.
	Params map[string]string
}

var resources = []resource{
	{
		Name:  "operators",
		Short: "Manage vessel operators",
		Path:  "/operators",
		Columns: []column{
			{"ID", "id"}, {"Name", "name"}, {"Contact", "contactPerson"}, {"Email", "email"},
		},
	},
	{
		Name:  "fleets",
		Short: "Manage fleets",
		Path:  "/fleets",
		Columns: []column{
			{"ID", "id"}, {"Name", "name"}, {"Operator", "operatorId"}, {"Vessels", "vesselCount"},
		},
		Params: map[string]string{"operator": "operatorId"},
	},
	{
		Name:  "manufacturers",
		Short: "Manage manufacturers",
		Path:  "/manufacturers",
		Columns: []column{
			{"ID", "id"}, {"Name", "name"}, {"Country", "country"}, {"Website", "website"},
		},
	},
	{
		Name:  "vessel-types",
		Short: "Manage vessel types",
		Path:  "/vessel-types",
		Columns: []column{
			{"ID", "id"}, {"Name", "name"}, {"Manufacturer", "manufacturerId"}, {"Length", "lengthMeters"},
		},
	},
	{
		Name:  "sensor-classes",
		Short: "Manage sensor classes",
		Path:  "/sensor-classes",
		Columns: []column{
			{"ID", "id"}, {"Name", "name"}, {"Description", "description"},
		},
	},
	{
		Name:  "sensor-types",
		Short: "Manage sensor types",
		Path:  "/sensor-types",
		Columns: []column{
			{"ID", "id"}, {"Name", "name"}, {"Class", "sensorClassId"}, {"Manufacturer", "manufacturerId"},
		},
		Params: map[string]string{"class": "sensorClassId"},
	},
	{
		Name:  "vessels",
		Short: "Manage vessels",
		Path:  "/vessels",
		Columns: []column{
			{"ID", "id"}, {"Name", "name"}, {"Type", "vesselTypeId"}, {"Fleet", "fleetId"},
			{"Operator", "operatorId"}, {"Status", "status"},
		},
		Params: map[string]string{"fleet": "fleetId", "operator": "operatorId", "filter": "filter"},
	},
	{
		Name:  "sensors",
		Short: "Manage installed sensors",
		Path:  "/sensors",
		Columns: []column{
			{"ID", "id"}, {"Name", "name"}, {"Type", "sensorTypeId"}, {"Vessel", "vesselId"}, {"Serial", "serialNumber"},
		},
		Params: map[string]string{"vessel": "vesselId", "filter": "filter"},
	},
}

func buildResourceCommand(r resource) *cobra.Command {
	cmd := &cobra.Command{
		Use:   r.Name,
		Short: r.Short,
	}
	cmd.AddCommand(
		buildListCommand(r),
		buildGetCommand(r),
		buildCreateCommand(r),
		buildUpdateCommand(r),
		buildDeleteCommand(r),
	)
	return cmd
}

func buildListCommand(r resource) *cobra.Command {
	values := map[string]*string{}
	cmd := &cobra.Command{
		Use:   "list",
		Short: fmt.Sprintf("List %s", r.Name),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			for flag, key := range r.Params {
				if v := *values[flag]; v != "" {
					q.Set(key, v)
				}
			}
			path := apiPrefix + r.Path
			if len(q) > 0 {
				path += "?" + q.Encode()
			}
			return listAndPrint(path, r.Name, r.Columns)
		},
	}
	for flag, key := range r.Params {
		values[flag] = cmd.Flags().String(flag, "", fmt.Sprintf("restrict by %s", key))
	}
	return cmd
}

func listAndPrint(path, noun string, columns []column) error {
	result, err := newClient().getRaw(path)
	if err != nil {
		return fmt.Errorf("failed to list %s: %w", noun, err)
	}
	if structured() {
		return printOutput(result)
	}
	items := extractItems(result)
	if len(items) == 0 {
		fmt.Fprintf(stdout, "No %s found.\n", noun)
		return nil
	}
	printItems(items, columns)
	return nil
}

func buildGetCommand(r resource) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: fmt.Sprintf("Show one of the %s", r.Name),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var obj map[string]any
			if err := newClient().getJSON(itemPath(r, args[0]), &obj); err != nil {
				return err
			}
			return printObject(obj, r.Columns)
		},
	}
}

func buildCreateCommand(r resource) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "create",
		Short: fmt.Sprintf("Create one of the %s from a JSON or YAML file", r.Name),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := readPayload(file)
			if err != nil {
				return err
			}
			var obj map[string]any
			if err := newClient().postJSON(apiPrefix+r.Path, body, &obj); err != nil {
				return err
			}
			return printObject(obj, r.Columns)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "payload file (JSON or YAML)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func buildUpdateCommand(r resource) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: fmt.Sprintf("Patch one of the %s with fields from a file", r.Name),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := readPayload(file)
			if err != nil {
				return err
			}
			var obj map[string]any
			if err := newClient().patchJSON(itemPath(r, args[0]), body, &obj); err != nil {
				return err
			}
			return printObject(obj, r.Columns)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "patch file (JSON or YAML)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func buildDeleteCommand(r resource) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: fmt.Sprintf("Delete one of the %s", r.Name),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := newClient().delete(itemPath(r, args[0]))
			if apiErr, ok := err.(*apiError); ok && len(apiErr.Blockers) > 0 {
				fmt.Fprintln(stdout, "Delete blocked by:")
				rows := make([][]string, 0, len(apiErr.Blockers))
				for kind, n := range apiErr.Blockers {
					rows = append(rows, []string{kind, fmt.Sprintf("%d", n)})
				}
				printTable([]string{"Kind", "Count"}, rows)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(stdout, "Deleted %s %s\n", r.Name, args[0])
			return nil
		},
	}
}

func itemPath(r resource, id string) string {
	return apiPrefix + r.Path + "/" + url.PathEscape(id)
}

func printObject(obj map[string]any, columns []column) error {
	if structured() {
		return printOutput(obj)
	}
	printItems([]map[string]any{obj}, columns)
	return nil
}

// readPayload reads a JSON or YAML document. YAML is a superset of JSON, so
// one decoder handles both.
func readPayload(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read payload: %w", err)
	}
	var body map[string]any
	if err := yaml.Unmarshal(data, &body); err != nil {
		return nil, fmt.Errorf("parse payload: %w", err)
	}
	if body == nil {
		return nil, fmt.Errorf("payload %s is empty", path)
	}
	return body, nil
}
