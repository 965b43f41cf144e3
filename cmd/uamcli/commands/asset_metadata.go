package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/uamcli/uamcli/internal/config"
	uamerrors "github.com/uamcli/uamcli/internal/errors"
	"github.com/uamcli/uamcli/internal/metadata"
)

func newAssetMetadataUploadCommand(cfg *config.Config) *cobra.Command {
	var (
		id             string
		version        string
		file           string
		registerFields bool
	)

	cmd := &cobra.Command{
		Use:   "upload",
		Short: "Apply CSV metadata to an asset",
		Long: `Apply metadata from a CSV file to an asset version in one update.

The CSV must start with a Name,Value header; each following row is one
field. Fields already on the asset but absent from the CSV are kept.
With --register-fields, fields the organization has no definition for
are registered as text fields first.

Examples:
  uamcli asset metadata upload --id 65a7d8646e7591cfd372ee51 --file meta.csv
  uamcli asset metadata upload --id 65a7d8646e7591cfd372ee51 --file meta.csv --register-fields`,
		RunE: func(cmd *cobra.Command, args []string) error {
			identity, err := identityFromFlags(id, version)
			if err != nil {
				return err
			}
			input, err := os.Open(file)
			if err != nil {
				return uamerrors.UserError{
					Message:    "Cannot read metadata file " + file,
					Details:    err.Error(),
					Suggestion: "Check the path and file permissions",
					Err:        err,
				}
			}
			defer input.Close()

			client, err := newAPIClient(cfg)
			if err != nil {
				return err
			}
			mapper := metadata.NewMapper(client, cfg.Logger)
			return mapper.Upload(context.Background(), identity, input, registerFields)
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "Asset ID (required)")
	cmd.Flags().StringVar(&version, "version", "1", "Asset version")
	cmd.Flags().StringVar(&file, "file", "", "CSV metadata file (required)")
	cmd.Flags().BoolVar(&registerFields, "register-fields", false, "Register missing field definitions first")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func newAssetMetadataDownloadCommand(cfg *config.Config) *cobra.Command {
	var (
		id      string
		version string
	)

	cmd := &cobra.Command{
		Use:   "download",
		Short: "Print an asset's metadata as CSV",
		Long: `Print an asset version's metadata to stdout in the same CSV shape
'metadata upload' accepts, sorted by field name.

Examples:
  uamcli asset metadata download --id 65a7d8646e7591cfd372ee51 > meta.csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			identity, err := identityFromFlags(id, version)
			if err != nil {
				return err
			}

			client, err := newAPIClient(cfg)
			if err != nil {
				return err
			}
			mapper := metadata.NewMapper(client, cfg.Logger)
			out, err := mapper.Download(cmd.Context(), identity)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), out)
			return nil
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "Asset ID (required)")
	cmd.Flags().StringVar(&version, "version", "1", "Asset version")
	_ = cmd.MarkFlagRequired("id")

	return cmd
}

func newAssetMetadataDeleteCommand(cfg *config.Config) *cobra.Command {
	var (
		id      string
		version string
		names   []string
	)

	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Remove metadata fields from an asset",
		Long: `Remove the named metadata fields from an asset version.

Examples:
  uamcli asset metadata delete --id 65a7d8646e7591cfd372ee51 --name Material --name Vendor`,
		RunE: func(cmd *cobra.Command, args []string) error {
			identity, err := identityFromFlags(id, version)
			if err != nil {
				return err
			}

			client, err := newAPIClient(cfg)
			if err != nil {
				return err
			}
			mapper := metadata.NewMapper(client, cfg.Logger)
			return mapper.Delete(context.Background(), identity, names)
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "Asset ID (required)")
	cmd.Flags().StringVar(&version, "version", "1", "Asset version")
	cmd.Flags().StringArrayVar(&names, "name", nil, "Metadata field to remove (repeatable, required)")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}
