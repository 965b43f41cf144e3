package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/uamcli/uamcli/internal/api"
	"github.com/uamcli/uamcli/internal/asset"
	"github.com/uamcli/uamcli/internal/auth"
	"github.com/uamcli/uamcli/internal/config"
	uamerrors "github.com/uamcli/uamcli/internal/errors"
)

// defaultServiceURL is the production asset service endpoint. The
// UAMCLI_SERVICE_URL override exists for staging and test environments.
const (
	defaultServiceURL = "https://services.api.unity.com"
	envServiceURL     = "UAMCLI_SERVICE_URL"
)

func serviceURL() string {
	if v := os.Getenv(envServiceURL); v != "" {
		return v
	}
	return defaultServiceURL
}

// newAPIClient loads the configuration and wires the token manager and
// API client behind it.
func newAPIClient(cfg *config.Config) (*api.Client, error) {
	if err := cfg.Load(); err != nil {
		return nil, err
	}

	tokens := auth.NewManager(auth.ManagerConfig{
		BaseURL:       serviceURL(),
		ProjectID:     cfg.Credential.ProjectID,
		EnvironmentID: cfg.Credential.EnvironmentID,
		ClientID:      cfg.Credential.ClientID,
		Secrets:       cfg,
		Logger:        cfg.Logger,
	})

	return api.NewClient(api.Config{
		BaseURL:        serviceURL(),
		OrganizationID: cfg.Credential.OrganizationID,
		ProjectID:      cfg.Credential.ProjectID,
		Tokens:         tokens,
		Logger:         cfg.Logger,
	})
}

// printJSON renders a command result to stdout. Results go to stdout,
// diagnostics to stderr, so output stays pipeable.
func printJSON(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// identityFromFlags validates the asset identity flags shared by the
// asset subcommands.
func identityFromFlags(id, version string) (asset.Identity, error) {
	if id == "" {
		return asset.Identity{}, uamerrors.UserError{
			Message:    "Asset ID is required",
			Suggestion: "Use --id <asset-id> to name the asset",
		}
	}
	if version == "" {
		version = "1"
	}
	return asset.Identity{ID: id, Version: version}, nil
}
