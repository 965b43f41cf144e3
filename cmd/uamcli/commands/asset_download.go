package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/uamcli/uamcli/internal/api"
	"github.com/uamcli/uamcli/internal/config"
	uamerrors "github.com/uamcli/uamcli/internal/errors"
)

func newAssetDownloadCommand(cfg *config.Config) *cobra.Command {
	var (
		id      string
		version string
		output  string
	)

	cmd := &cobra.Command{
		Use:   "download",
		Short: "Download an asset's files",
		Long: `Download every file of an asset version into a directory.

The default target is a directory named after the asset ID under the
current working directory.

Examples:
  uamcli asset download --id 65a7d8646e7591cfd372ee51
  uamcli asset download --id 65a7d8646e7591cfd372ee51 --output ./bracket-files`,
		RunE: func(cmd *cobra.Command, args []string) error {
			identity, err := identityFromFlags(id, version)
			if err != nil {
				return err
			}
			if output == "" {
				output = identity.ID
			}

			client, err := newAPIClient(cfg)
			if err != nil {
				return err
			}
			files, err := client.DownloadURLs(context.Background(), identity)
			if err != nil {
				return err
			}
			if len(files) == 0 {
				return uamerrors.UserError{
					Message:    "Asset " + identity.ID + " has no files",
					Suggestion: "Check the asset version with 'uamcli asset get'",
				}
			}

			if err := os.MkdirAll(output, 0o755); err != nil {
				return uamerrors.UserError{
					Message:    "Cannot create output directory " + output,
					Details:    err.Error(),
					Suggestion: "Check permissions or pass a different --output",
					Err:        err,
				}
			}

			for _, f := range files {
				if err := downloadOne(cmd.Context(), client, f, output); err != nil {
					return err
				}
				cfg.Logger.Info("downloaded %s", f.Path)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "Asset ID (required)")
	cmd.Flags().StringVar(&version, "version", "1", "Asset version")
	cmd.Flags().StringVar(&output, "output", "", "Output directory (default: ./<asset-id>)")
	_ = cmd.MarkFlagRequired("id")

	return cmd
}

func downloadOne(ctx context.Context, client *api.Client, f api.FileDownload, dir string) error {
	// Remote paths are flattened to their base name; signed URL listings
	// can carry path separators the local filesystem should not trust.
	target := filepath.Join(dir, filepath.Base(filepath.FromSlash(f.Path)))

	content, err := client.DownloadFileContent(ctx, f.URL)
	if err != nil {
		return fmt.Errorf("failed to download %s: %w", f.Path, err)
	}
	defer content.Close()

	out, err := os.Create(target)
	if err != nil {
		return uamerrors.UserError{
			Message:    "Cannot write " + target,
			Details:    err.Error(),
			Suggestion: "Check permissions on the output directory",
			Err:        err,
		}
	}
	defer out.Close()

	if _, err := io.Copy(out, content); err != nil {
		return fmt.Errorf("failed to write %s: %w", f.Path, err)
	}
	return nil
}

