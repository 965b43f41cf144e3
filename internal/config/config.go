// Package config manages the uamcli client configuration: the plaintext
// credential identifiers in a YAML file under the OS config directory,
// and the client secret delegated to the OS vault. The secret is never
// written to the config file and never read back into command output.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	uamerrors "github.com/uamcli/uamcli/internal/errors"
	"github.com/uamcli/uamcli/internal/logging"
	"github.com/uamcli/uamcli/internal/secrets"
)

const (
	appDirName = "uamcli"
	fileName   = "config.yml"

	envOrganizationID = "UAMCLI_ORGANIZATION_ID"
	envProjectID      = "UAMCLI_PROJECT_ID"
	envEnvironmentID  = "UAMCLI_ENVIRONMENT_ID"
	envClientID       = "UAMCLI_CLIENT_ID"
	envClientSecret   = "UAMCLI_CLIENT_SECRET"
)

// credentialSchema validates the config file shape before use. Catching a
// malformed file here yields a field-level message instead of a failed
// request later.
const credentialSchema = `{
  "type": "object",
  "required": ["organization_id", "project_id", "environment_id", "client_id"],
  "properties": {
    "organization_id": {"type": "string", "minLength": 1},
    "project_id": {"type": "string", "minLength": 1},
    "environment_id": {"type": "string", "minLength": 1},
    "client_id": {"type": "string", "minLength": 1}
  },
  "additionalProperties": false
}`

// Credential identifies the service account. The client secret is not
// part of this struct; it lives in the OS vault only.
type Credential struct {
	OrganizationID string `yaml:"organization_id" json:"organization_id"`
	ProjectID      string `yaml:"project_id" json:"project_id"`
	EnvironmentID  string `yaml:"environment_id" json:"environment_id"`
	ClientID       string `yaml:"client_id" json:"client_id"`
}

// SecretKey returns the vault key for this credential's client secret.
func (c Credential) SecretKey() string {
	return secrets.CompositeKey(c.OrganizationID, c.ProjectID, c.EnvironmentID, c.ClientID)
}

// Config holds the runtime configuration shared by all commands.
type Config struct {
	Path       string // config file path; empty means the OS default
	Logger     *logging.Logger
	Secrets    secrets.Store
	Credential Credential
}

// DefaultPath returns the OS-dependent default config file location.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", uamerrors.UserError{
			Message:    "Failed to resolve the user configuration directory",
			Details:    err.Error(),
			Suggestion: "Set HOME (or XDG_CONFIG_HOME) and try again",
			Err:        err,
		}
	}
	return filepath.Join(dir, appDirName, fileName), nil
}

// FilePath returns the effective config file path.
func (c *Config) FilePath() (string, error) {
	if c.Path != "" {
		return c.Path, nil
	}
	return DefaultPath()
}

// Load reads the config file, applies UAMCLI_* environment overrides, and
// validates the result. A .env file in the working directory is honored
// for the overrides.
func (c *Config) Load() error {
	_ = godotenv.Load()

	path, err := c.FilePath()
	if err != nil {
		return err
	}

	data, readErr := os.ReadFile(path)
	switch {
	case readErr == nil:
		if err := validateSchema(data); err != nil {
			return err
		}
		if err := yaml.Unmarshal(data, &c.Credential); err != nil {
			return uamerrors.ConfigError{
				Field:      "file",
				Value:      path,
				Message:    "invalid YAML: " + err.Error(),
				Suggestion: "Check for indentation errors, or run 'uamcli config client set' to rewrite it",
			}
		}
	case os.IsNotExist(readErr):
		// Acceptable as long as the environment supplies everything.
	default:
		return uamerrors.UserError{
			Message:    "Failed to read configuration file",
			Details:    readErr.Error(),
			Suggestion: "Check file permissions on " + path,
			Err:        readErr,
		}
	}

	applyEnvOverrides(&c.Credential)

	if c.Credential == (Credential{}) && os.IsNotExist(readErr) {
		return uamerrors.ConfigError{
			Field:      "path",
			Value:      path,
			Message:    "configuration file not found",
			Suggestion: "Run 'uamcli config client set' to configure the client",
		}
	}

	if err := c.Credential.validate(); err != nil {
		return err
	}

	if c.Logger != nil {
		c.Logger.Debug("loaded configuration for project %s (client %s)",
			c.Credential.ProjectID, c.Credential.ClientID)
	}
	return nil
}

// Save writes the credential identifiers to the config file and the
// client secret to the vault. Pass an empty secret to leave the stored
// one untouched.
func (c *Config) Save(cred Credential, clientSecret string) error {
	if err := cred.validate(); err != nil {
		return err
	}

	path, err := c.FilePath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return uamerrors.UserError{
			Message:    "Failed to create configuration directory",
			Details:    err.Error(),
			Suggestion: "Check permissions on " + filepath.Dir(path),
			Err:        err,
		}
	}

	data, err := yaml.Marshal(cred)
	if err != nil {
		return fmt.Errorf("failed to encode configuration: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return uamerrors.UserError{
			Message:    "Failed to write configuration file",
			Details:    err.Error(),
			Suggestion: "Check permissions on " + path,
			Err:        err,
		}
	}

	if clientSecret != "" {
		if err := c.Secrets.Store(cred.SecretKey(), clientSecret); err != nil {
			return translateVaultError(err)
		}
	}

	c.Credential = cred
	return nil
}

// Export writes the credential identifiers (never the secret) to an
// arbitrary file path.
func (c *Config) Export(path string) error {
	data, err := yaml.Marshal(c.Credential)
	if err != nil {
		return fmt.Errorf("failed to encode configuration: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return uamerrors.UserError{
			Message:    "Failed to export configuration",
			Details:    err.Error(),
			Suggestion: "Check permissions on " + path,
			Err:        err,
		}
	}
	return nil
}

// Delete removes the config file and the stored client secret.
func (c *Config) Delete() error {
	path, err := c.FilePath()
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return uamerrors.UserError{
			Message:    "Failed to remove configuration file",
			Details:    err.Error(),
			Suggestion: "Check permissions on " + path,
			Err:        err,
		}
	}
	if err := c.Secrets.Delete(c.Credential.SecretKey()); err != nil {
		if errors.Is(err, secrets.ErrNotFound) {
			return nil
		}
		return translateVaultError(err)
	}
	return nil
}

// ClientSecret resolves the client secret: the UAMCLI_CLIENT_SECRET
// environment override wins, otherwise the OS vault is consulted. The
// returned value must not be logged; wrap it in logging.Secret if it has
// to appear in a formatted message.
func (c *Config) ClientSecret() (string, error) {
	if v := os.Getenv(envClientSecret); v != "" {
		return v, nil
	}
	secret, err := c.Secrets.Retrieve(c.Credential.SecretKey())
	if err != nil {
		return "", translateVaultError(err)
	}
	return secret, nil
}

func (c Credential) validate() error {
	missing := ""
	switch {
	case c.OrganizationID == "":
		missing = "organization_id"
	case c.ProjectID == "":
		missing = "project_id"
	case c.EnvironmentID == "":
		missing = "environment_id"
	case c.ClientID == "":
		missing = "client_id"
	}
	if missing != "" {
		return uamerrors.ConfigError{
			Field:      missing,
			Message:    "required value is missing",
			Suggestion: "Run 'uamcli config client set' with all identifiers",
		}
	}
	return nil
}

func validateSchema(data []byte) error {
	var doc map[string]interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return uamerrors.ConfigError{
			Field:      "file",
			Message:    "invalid YAML: " + err.Error(),
			Suggestion: "Check for indentation errors and missing quotes",
		}
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(credentialSchema),
		gojsonschema.NewGoLoader(doc),
	)
	if err != nil {
		return fmt.Errorf("failed to validate configuration: %w", err)
	}
	if !result.Valid() {
		first := result.Errors()[0]
		return uamerrors.ConfigError{
			Field:      first.Field(),
			Message:    first.Description(),
			Suggestion: "Run 'uamcli config client set' to rewrite the configuration",
		}
	}
	return nil
}

func applyEnvOverrides(cred *Credential) {
	if v := os.Getenv(envOrganizationID); v != "" {
		cred.OrganizationID = v
	}
	if v := os.Getenv(envProjectID); v != "" {
		cred.ProjectID = v
	}
	if v := os.Getenv(envEnvironmentID); v != "" {
		cred.EnvironmentID = v
	}
	if v := os.Getenv(envClientID); v != "" {
		cred.ClientID = v
	}
}

func translateVaultError(err error) error {
	switch {
	case errors.Is(err, secrets.ErrNotFound):
		return uamerrors.UserError{
			Message:    "No client secret is stored for this credential",
			Suggestion: "Run 'uamcli config client set' with --client-secret to store one",
			Err:        err,
		}
	case errors.Is(err, secrets.ErrAccessDenied):
		return uamerrors.UserError{
			Message:    "The OS vault refused access to the client secret",
			Suggestion: "Unlock your keyring and approve the access prompt, then retry",
			Err:        err,
		}
	case errors.Is(err, secrets.ErrUnavailable):
		return uamerrors.UserError{
			Message:    "No OS vault backend is available on this host",
			Suggestion: "Install a Secret Service implementation (e.g. gnome-keyring) or set UAMCLI_CLIENT_SECRET",
			Err:        err,
		}
	}
	return err
}
