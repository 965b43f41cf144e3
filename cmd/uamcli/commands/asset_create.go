package commands

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/uamcli/uamcli/internal/config"
	uamerrors "github.com/uamcli/uamcli/internal/errors"
	"github.com/uamcli/uamcli/internal/status"
	"github.com/uamcli/uamcli/internal/upload"
)

func newAssetCreateCommand(cfg *config.Config) *cobra.Command {
	var (
		name        string
		description string
		files       []string
		publish     bool
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an asset from local files",
		Long: `Create one asset containing the given files and print its identity.

All files land in the asset's Source dataset; the asset's primary type
is inferred from the first file's extension. With --publish the asset is
walked through the review workflow to Published after the upload.

Examples:
  # A draft asset from one model file
  uamcli asset create --name bracket --file bracket.fbx

  # Multiple files, published immediately
  uamcli asset create --name bracket --file bracket.fbx --file preview.png --publish`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if name == "" {
				return uamerrors.UserError{
					Message:    "Asset name is required",
					Suggestion: "Use --name <asset-name> to name the asset",
				}
			}

			client, err := newAPIClient(cfg)
			if err != nil {
				return err
			}
			engine := status.NewEngine(client, cfg.Logger)
			pipeline := upload.NewPipeline(client, engine, cfg.Logger)

			id, err := pipeline.Run(context.Background(), upload.Request{
				Name:        name,
				Description: description,
				Paths:       files,
				Publish:     publish,
			})
			if err != nil {
				// A partial failure still created the asset; print its
				// identity so the user can retry against it.
				var partial *upload.PartialFailureError
				var incomplete *upload.PublishIncompleteError
				if errors.As(err, &partial) || errors.As(err, &incomplete) {
					_ = printJSON(cmd.OutOrStdout(), id)
				}
				return err
			}
			return printJSON(cmd.OutOrStdout(), id)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Asset name (required)")
	cmd.Flags().StringVar(&description, "description", "", "Asset description")
	cmd.Flags().StringArrayVar(&files, "file", nil, "File to upload (repeatable, required)")
	cmd.Flags().BoolVar(&publish, "publish", false, "Publish the asset after upload")

	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}
