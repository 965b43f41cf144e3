package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/uamcli/uamcli/internal/config"
	uamerrors "github.com/uamcli/uamcli/internal/errors"
)

// NewConfigCommand groups the configuration subcommands.
func NewConfigCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage client configuration and credentials",
	}

	client := &cobra.Command{
		Use:   "client",
		Short: "Manage the service account credential",
	}
	client.AddCommand(newConfigClientSetCommand(cfg), newConfigClientGetCommand(cfg))

	path := &cobra.Command{
		Use:   "path",
		Short: "Show configuration file locations",
	}
	path.AddCommand(newConfigPathGetCommand(cfg))

	cmd.AddCommand(
		client,
		path,
		newConfigExportCommand(cfg),
		newConfigDeleteCommand(cfg),
	)
	return cmd
}

func newConfigClientSetCommand(cfg *config.Config) *cobra.Command {
	var (
		organizationID string
		projectID      string
		environmentID  string
		clientID       string
		clientSecret   string
	)

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Store the service account credential",
		Long: `Store the service account identifiers in the configuration file and
the client secret in the OS vault.

The client secret never touches the configuration file. Pass it with
--client-secret, or omit the flag to keep a previously stored secret.

Examples:
  # Full credential
  uamcli config client set --organization-id 123 --project-id abc \
    --environment-id def --client-id svc-1 --client-secret "$SECRET"

  # Rotate only the identifiers, keeping the stored secret
  uamcli config client set --organization-id 123 --project-id abc \
    --environment-id def --client-id svc-1`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cred := config.Credential{
				OrganizationID: organizationID,
				ProjectID:      projectID,
				EnvironmentID:  environmentID,
				ClientID:       clientID,
			}
			if err := cfg.Save(cred, clientSecret); err != nil {
				return err
			}
			cfg.Logger.Info("credential stored for project %s", projectID)
			return nil
		},
	}

	cmd.Flags().StringVar(&organizationID, "organization-id", "", "Organization ID (required)")
	cmd.Flags().StringVar(&projectID, "project-id", "", "Project ID (required)")
	cmd.Flags().StringVar(&environmentID, "environment-id", "", "Environment ID (required)")
	cmd.Flags().StringVar(&clientID, "client-id", "", "Service account client ID (required)")
	cmd.Flags().StringVar(&clientSecret, "client-secret", "", "Service account client secret (stored in the OS vault)")

	_ = cmd.MarkFlagRequired("organization-id")
	_ = cmd.MarkFlagRequired("project-id")
	_ = cmd.MarkFlagRequired("environment-id")
	_ = cmd.MarkFlagRequired("client-id")

	return cmd
}

func newConfigClientGetCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "get",
		Short: "Show the stored credential identifiers",
		Long: `Print the stored credential identifiers as JSON.

The client secret is never printed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Load(); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), cfg.Credential)
		},
	}
}

func newConfigPathGetCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "get",
		Short: "Print the configuration file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := cfg.FilePath()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
}

func newConfigExportCommand(cfg *config.Config) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the credential identifiers to a file",
		Long: `Write the credential identifiers to a YAML file.

The client secret stays in the OS vault and is never exported.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if output == "" {
				return uamerrors.UserError{
					Message:    "Output path is required",
					Suggestion: "Use --output <path> to name the export file",
				}
			}
			if err := cfg.Load(); err != nil {
				return err
			}
			if err := cfg.Export(output); err != nil {
				return err
			}
			cfg.Logger.Info("configuration exported to %s", output)
			return nil
		},
	}

	cmd.Flags().StringVar(&output, "output", "", "Export file path (required)")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}

func newConfigDeleteCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "delete",
		Short: "Remove the configuration and the stored secret",
		Long: `Delete the configuration file and the client secret in the OS vault.

Deleting an already-clean configuration succeeds without error.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Best effort load so the vault key can be derived; a missing
			// file is exactly what delete is for.
			if err := cfg.Load(); err != nil && cfg.Credential == (config.Credential{}) {
				path, pathErr := cfg.FilePath()
				if pathErr != nil {
					return pathErr
				}
				if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
					return nil
				}
				return err
			}
			if err := cfg.Delete(); err != nil {
				return err
			}
			cfg.Logger.Info("configuration removed")
			return nil
		},
	}
}
