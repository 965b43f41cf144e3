package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/uamcli/uamcli/internal/config"
)

func newAssetSearchCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search",
		Short: "List the project's assets",
		Long: `List every asset in the configured project as a JSON array,
sorted by name.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newAPIClient(cfg)
			if err != nil {
				return err
			}
			assets, err := client.SearchAssets(context.Background())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), assets)
		},
	}
	return cmd
}
