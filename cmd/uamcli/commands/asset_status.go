package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/uamcli/uamcli/internal/asset"
	"github.com/uamcli/uamcli/internal/config"
	uamerrors "github.com/uamcli/uamcli/internal/errors"
	"github.com/uamcli/uamcli/internal/status"
)

func newAssetStatusSetCommand(cfg *config.Config) *cobra.Command {
	var (
		id      string
		version string
	)

	cmd := &cobra.Command{
		Use:   "set <status>",
		Short: "Move an asset to a workflow status",
		Long: `Move an asset version to the target status, issuing every
intermediate transition the workflow requires.

Statuses: draft, inreview, approved, published, rejected, withdrawn.
Forward moves may span several stages (draft straight to published);
rejected and withdrawn are only reachable from inreview or approved.

Examples:
  uamcli asset status set inreview --id 65a7d8646e7591cfd372ee51
  uamcli asset status set published --id 65a7d8646e7591cfd372ee51`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := asset.ParseStatus(args[0])
			if err != nil {
				return uamerrors.UserError{
					Message:    "Unknown status " + args[0],
					Suggestion: "Use one of: draft, inreview, approved, published, rejected, withdrawn",
					Err:        err,
				}
			}
			identity, err := identityFromFlags(id, version)
			if err != nil {
				return err
			}

			client, err := newAPIClient(cfg)
			if err != nil {
				return err
			}
			engine := status.NewEngine(client, cfg.Logger)
			if err := engine.SetStatus(context.Background(), identity, target); err != nil {
				return err
			}
			cfg.Logger.Info("asset %s is now %s", identity.ID, target)
			return nil
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "Asset ID (required)")
	cmd.Flags().StringVar(&version, "version", "1", "Asset version")
	_ = cmd.MarkFlagRequired("id")

	return cmd
}
