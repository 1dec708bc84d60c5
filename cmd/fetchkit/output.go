package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"
)

const (
	outputTable = "table"
	outputJSON  = "json"
	outputYAML  = "yaml"

	dateFormat = "2006-01-02 15:04:05"
)

func renderJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding data to JSON: %w", err)
	}
	return nil
}

func renderYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding data to YAML: %w", err)
	}
	return enc.Close()
}

// render writes v in the selected format, calling table for table output.
func (c *cli) render(v any, table func(w io.Writer) error) error {
	switch c.output {
	case outputJSON:
		return renderJSON(c.out, v)
	case outputYAML:
		return renderYAML(c.out, v)
	default:
		return table(c.out)
	}
}

// propertyTable renders key/value pairs.
func propertyTable(w io.Writer, pairs ...[2]string) error {
	table := tablewriter.NewWriter(w)
	table.Header("Property", "Value")
	for _, p := range pairs {
		_ = table.Append(p[0], p[1])
	}
	return table.Render()
}
