package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/uamcli/uamcli/internal/config"
)

func newAssetGetCommand(cfg *config.Config) *cobra.Command {
	var (
		id      string
		version string
	)

	cmd := &cobra.Command{
		Use:   "get",
		Short: "Show one asset version",
		Long: `Fetch an asset version and print the full record as JSON.

Examples:
  uamcli asset get --id 65a7d8646e7591cfd372ee51
  uamcli asset get --id 65a7d8646e7591cfd372ee51 --version 2`,
		RunE: func(cmd *cobra.Command, args []string) error {
			identity, err := identityFromFlags(id, version)
			if err != nil {
				return err
			}

			client, err := newAPIClient(cfg)
			if err != nil {
				return err
			}
			a, err := client.GetAsset(context.Background(), identity)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), a)
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "Asset ID (required)")
	cmd.Flags().StringVar(&version, "version", "1", "Asset version")
	_ = cmd.MarkFlagRequired("id")

	return cmd
}
