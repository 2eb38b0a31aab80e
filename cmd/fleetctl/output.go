package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"
)

var stdout io.Writer = os.Stdout

func printOutput(v any) error {
	switch outputFmt {
	case "json":
		return printJSON(v)
	case "yaml":
		return printYAML(v)
	default:
		return fmt.Errorf("unsupported output format for structured data: %s (use json or yaml)", outputFmt)
	}
}

func structured() bool {
	return outputFmt == "json" || outputFmt == "yaml"
}

func printJSON(v any) error {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printYAML(v any) error {
	// Round-trip through JSON so keys follow the json tags.
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var m any
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	enc := yaml.NewEncoder(stdout)
	enc.SetIndent(2)
	return enc.Encode(m)
}

func printTable(headers []string, rows [][]string) {
	w := tabwriter.NewWriter(stdout, 0, 8, 2, ' ', 0)

	upper := make([]string, len(headers))
	for i, h := range headers {
		upper[i] = strings.ToUpper(h)
	}
	fmt.Fprintln(w, strings.Join(upper, "\t"))
	for _, row := range rows {
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	w.Flush()
}

// printItems renders objects as a table using columns, falling back to the
// sorted keys of the first item.
func printItems(items []map[string]any, columns []column) {
	if len(columns) == 0 && len(items) > 0 {
		columns = inferColumns(items[0])
	}
	headers := make([]string, len(columns))
	for i, c := range columns {
		headers[i] = c.Header
	}
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		row := make([]string, len(columns))
		for i, c := range columns {
			row[i] = truncate(extractValue(item, c.Path), 40)
		}
		rows = append(rows, row)
	}
	printTable(headers, rows)
}

func inferColumns(item map[string]any) []column {
	keys := make([]string, 0, len(item))
	for k, v := range item {
		if _, nested := v.(map[string]any); !nested {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	if len(keys) > 6 {
		keys = keys[:6]
	}
	cols := make([]column, len(keys))
	for i, k := range keys {
		cols[i] = column{Header: k, Path: k}
	}
	return cols
}

// extractItems returns the "items" array of a list response.
func extractItems(result map[string]any) []map[string]any {
	return extractArray(result, "items")
}

// extractArray returns the objects of the array stored under key.
func extractArray(result map[string]any, key string) []map[string]any {
	raw, _ := result[key].([]any)
	items := make([]map[string]any, 0, len(raw))
	for _, r := range raw {
		if m, ok := r.(map[string]any); ok {
			items = append(items, m)
		}
	}
	return items
}

// extractValue resolves a dotted path in a decoded JSON object.
func extractValue(data map[string]any, path string) string {
	current := any(data)
	for _, part := range strings.Split(path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return ""
		}
		current = m[part]
	}

	switch v := current.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%.2f", v)
	case bool:
		if v {
			return "true"
		}
		return "false"
	case []any:
		strs := make([]string, 0, len(v))
		for _, item := range v {
			strs = append(strs, fmt.Sprintf("%v", item))
		}
		return strings.Join(strs, ", ")
	default:
		return fmt.Sprintf("%v", v)
	}
}

// truncate shortens s to max characters, ending with "..." when cut.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
