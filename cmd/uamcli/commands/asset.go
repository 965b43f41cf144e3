package commands

import (
	"github.com/spf13/cobra"

	"github.com/uamcli/uamcli/internal/config"
)

// NewAssetCommand groups the asset subcommands.
func NewAssetCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "asset",
		Short: "Create, inspect, and manage assets",
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Manage the asset review workflow",
	}
	status.AddCommand(newAssetStatusSetCommand(cfg))

	metadata := &cobra.Command{
		Use:   "metadata",
		Short: "Manage asset metadata",
	}
	metadata.AddCommand(
		newAssetMetadataUploadCommand(cfg),
		newAssetMetadataDownloadCommand(cfg),
		newAssetMetadataDeleteCommand(cfg),
	)

	cmd.AddCommand(
		newAssetCreateCommand(cfg),
		newAssetGetCommand(cfg),
		newAssetSearchCommand(cfg),
		newAssetDownloadCommand(cfg),
		status,
		metadata,
	)
	return cmd
}
