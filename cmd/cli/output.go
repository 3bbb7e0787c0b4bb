package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const (
	outputYAML = "yaml"
	outputJSON = "json"
)

func printOutput(cmd *cobra.Command, data any, format string) error {
	var (
		out []byte
		err error
	)

	switch format {
	case outputJSON:
		out, err = json.MarshalIndent(data, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		out = append(out, '\n')
	case outputYAML:
		out, err = yaml.Marshal(data)
		if err != nil {
			return fmt.Errorf("failed to marshal YAML: %w", err)
		}
	default:
		return fmt.Errorf("unknown output format %q, use %s or %s", format, outputYAML, outputJSON)
	}

	_, err = cmd.OutOrStdout().Write(out)
	return err
}
