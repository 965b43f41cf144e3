package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/uamcli/uamcli/cmd/uamcli/commands"
	"github.com/uamcli/uamcli/internal/api"
	"github.com/uamcli/uamcli/internal/auth"
	"github.com/uamcli/uamcli/internal/config"
	uamerrors "github.com/uamcli/uamcli/internal/errors"
	"github.com/uamcli/uamcli/internal/logging"
	"github.com/uamcli/uamcli/internal/metadata"
	"github.com/uamcli/uamcli/internal/secrets"
	"github.com/uamcli/uamcli/internal/status"
	"github.com/uamcli/uamcli/internal/upload"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Exit codes. Scripts branch on these, so the mapping is part of the
// CLI contract.
const (
	exitOK         = 0
	exitOther      = 1
	exitValidation = 2
	exitAuth       = 3
	exitRemote     = 4
	exitTransport  = 5
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

func run() error {
	// Global flags
	var (
		configFile string
		noColor    bool
		debug      bool
	)

	// Create config placeholder
	cfg := &config.Config{}

	rootCmd := &cobra.Command{
		Use:   "uamcli",
		Short: "Unity Asset Manager client - Upload and manage digital assets",
		Long: `uamcli uploads files as managed assets, drives them through the
review workflow, and maintains their metadata.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Initialize logger with parsed flags
			logger := logging.New(debug, noColor)

			cfg.Path = configFile
			cfg.Logger = logger
			cfg.Secrets = secrets.NewKeyringStore()
		},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file path (default: OS config dir)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	// Add commands
	rootCmd.AddCommand(
		commands.NewConfigCommand(cfg),
		commands.NewAssetCommand(cfg),
		commands.NewCompletionCommand(cfg),
	)

	return rootCmd.Execute()
}

// exitCode maps an error to the documented exit code family.
func exitCode(err error) int {
	var (
		invalidInput      *upload.InvalidInputError
		invalidTransition *status.InvalidTransitionError
		parseErr          *metadata.ParseError
		duplicateField    *metadata.DuplicateFieldError
		conflict          *status.ConflictError
		unknownField      *metadata.UnknownFieldError
		partial           *upload.PartialFailureError
		publishIncomplete *upload.PublishIncompleteError
		configErr         uamerrors.ConfigError
	)
	switch {
	case errors.As(err, &invalidInput),
		errors.As(err, &invalidTransition),
		errors.As(err, &parseErr),
		errors.As(err, &duplicateField),
		errors.As(err, &configErr):
		return exitValidation
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, api.ErrUnauthorized),
		errors.Is(err, secrets.ErrNotFound),
		errors.Is(err, secrets.ErrAccessDenied),
		errors.Is(err, secrets.ErrUnavailable):
		return exitAuth
	case errors.As(err, &conflict),
		errors.As(err, &unknownField),
		errors.As(err, &partial),
		errors.As(err, &publishIncomplete),
		errors.Is(err, api.ErrNotFound),
		errors.Is(err, api.ErrConflict),
		errors.Is(err, api.ErrServer):
		return exitRemote
	case errors.Is(err, api.ErrTransport),
		errors.Is(err, auth.ErrUnreachable):
		return exitTransport
	}
	return exitOther
}
