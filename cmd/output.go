package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Accepted values of --output.
const (
	outputNone = "none"
	outputJSON = "json"
	outputYAML = "yaml"
)

// writeResponse prints the report creation response in the requested format.
func writeResponse(w io.Writer, format string, response map[string]interface{}) error {
	switch format {
	case outputNone, "":
		return nil
	case outputJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return fmt.Errorf("failed to write json: %w", err)
		}
	case outputYAML:
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		if err := encoder.Encode(response); err != nil {
			return fmt.Errorf("failed to write yaml: %w", err)
		}
		if err := encoder.Close(); err != nil {
			return fmt.Errorf("failed to write yaml: %w", err)
		}
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
	return nil
}
