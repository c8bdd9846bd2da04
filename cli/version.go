package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/refacekit/leadops/pkg/version"
)

// VersionCmd prints build information. It skips configuration loading so it
// works without a valid environment.
func VersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:               "version",
		Short:             "Print build information",
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := version.Get()
			asJSON, err := cmd.Flags().GetBool("json")
			if err != nil {
				return fmt.Errorf("failed to get json flag: %w", err)
			}
			if asJSON {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(info)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "leadops %s (commit %s, built %s, %s)\n",
				info.Version, info.CommitHash, info.BuildDate, info.GoVersion)
			return err
		},
	}
	cmd.Flags().Bool("json", false, "Print build information as JSON")
	return cmd
}
