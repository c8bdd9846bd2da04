package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/refacekit/leadops/pkg/config"
)

// ConfigCmd groups configuration diagnostics.
func ConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration diagnostics",
	}
	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration with secrets redacted",
		RunE:  runConfigShow,
	}
	show.Flags().StringP("format", "f", "yaml", "Output format (yaml, json)")
	cmd.AddCommand(show)
	return cmd
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	values, err := config.FromContext(cmd.Context()).AsMap()
	if err != nil {
		return err
	}
	var out []byte
	switch format {
	case "yaml":
		out, err = yaml.Marshal(values)
	case "json":
		out, err = json.MarshalIndent(values, "", "  ")
		out = append(out, '\n')
	default:
		return fmt.Errorf("unsupported format %q: must be one of [yaml json]", format)
	}
	if err != nil {
		return fmt.Errorf("failed to render configuration: %w", err)
	}
	_, err = cmd.OutOrStdout().Write(out)
	return err
}
