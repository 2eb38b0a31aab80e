package main

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var importsCmd = &cobra.Command{
	Use:   "imports",
	Short: "Queue and track bulk imports of reference data",
	Long: `imports submits a seed document, the YAML format fleet-server seed reads,
to the server's import queue. A worker applies it through the registry
rules; entries before the first rejected one are kept.`,
}

var importColumns = []column{
	{"ID", "id"}, {"State", "state"}, {"Requested By", "requestedBy"},
	{"Attempts", "attemptCount"}, {"Created", "entitiesCreated"}, {"Message", "message"},
}

func importPath(id string) string {
	return fmt.Sprintf("%s/imports/%s", apiPrefix, url.PathEscape(id))
}

func isTerminalImport(state string) bool {
	switch state {
	case "succeeded", "failed", "canceled":
		return true
	}
	return false
}

// waitForImport polls the job until it reaches a terminal state or timeout
// passes.
func waitForImport(c *fleetClient, id string, interval, timeout time.Duration) (map[string]any, error) {
	deadline := time.Now().Add(timeout)
	for {
		var obj map[string]any
		if err := c.getJSON(importPath(id), &obj); err != nil {
			return nil, err
		}
		state, _ := obj["state"].(string)
		if isTerminalImport(state) {
			return obj, nil
		}
		if time.Now().After(deadline) {
			return obj, fmt.Errorf("import %s still %s after %s", id, state, timeout)
		}
		time.Sleep(interval)
	}
}

func init() {
	var file, key string
	var wait time.Duration
	submitCmd := &cobra.Command{
		Use:   "submit -f <file>",
		Short: "Queue a seed document for import",
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("read document: %w", err)
			}
			c := newClient()
			var obj map[string]any
			body := map[string]any{"document": string(doc)}
			if key != "" {
				body["idempotencyKey"] = key
			}
			if err := c.postJSON(apiPrefix+"/imports", body, &obj); err != nil {
				return err
			}
			if wait > 0 {
				id, _ := obj["id"].(string)
				if obj, err = waitForImport(c, id, time.Second, wait); err != nil {
					return err
				}
				if obj["state"] != "succeeded" {
					_ = printObject(obj, importColumns)
					return fmt.Errorf("import %s %s", id, obj["state"])
				}
			}
			return printObject(obj, importColumns)
		},
	}
	submitCmd.Flags().StringVarP(&file, "file", "f", "", "seed document (YAML)")
	submitCmd.Flags().StringVar(&key, "key", "", "idempotency key; resubmitting it while queued returns the same job")
	submitCmd.Flags().DurationVar(&wait, "wait", 0, "wait up to this long for the import to finish")
	_ = submitCmd.MarkFlagRequired("file")

	var state, requestedBy string
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List import jobs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			if state != "" {
				q.Set("state", state)
			}
			if requestedBy != "" {
				q.Set("requestedBy", requestedBy)
			}
			path := apiPrefix + "/imports"
			if len(q) > 0 {
				path += "?" + q.Encode()
			}
			result, err := newClient().getRaw(path)
			if err != nil {
				return fmt.Errorf("failed to list imports: %w", err)
			}
			if structured() {
				return printOutput(result)
			}
			items := extractArray(result, "imports")
			if len(items) == 0 {
				fmt.Fprintln(stdout, "No imports found.")
				return nil
			}
			printItems(items, importColumns)
			return nil
		},
	}
	listCmd.Flags().StringVar(&state, "state", "", "queued, running, succeeded, failed or canceled")
	listCmd.Flags().StringVar(&requestedBy, "requested-by", "", "only jobs submitted by this actor")

	getCmd := &cobra.Command{
		Use:   "get <import-id>",
		Short: "Show an import job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var obj map[string]any
			if err := newClient().getJSON(importPath(args[0]), &obj); err != nil {
				return err
			}
			return printObject(obj, importColumns)
		},
	}

	cancelCmd := &cobra.Command{
		Use:   "cancel <import-id>",
		Short: "Cancel a queued import",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := newClient().postJSON(importPath(args[0])+"/cancel", map[string]any{}, nil); err != nil {
				return err
			}
			fmt.Fprintf(stdout, "Import %s canceled.\n", args[0])
			return nil
		},
	}

	importsCmd.AddCommand(submitCmd, listCmd, getCmd, cancelCmd)
}
