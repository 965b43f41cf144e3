package secrets

import (
	"errors"
	"strings"

	"github.com/zalando/go-keyring"
)

// KeyringStore stores secrets in the OS-native vault (macOS Keychain,
// Linux Secret Service, Windows Credential Manager) via go-keyring.
type KeyringStore struct {
	service string
}

// NewKeyringStore creates a vault-backed store under the default service name.
func NewKeyringStore() *KeyringStore {
	return &KeyringStore{service: ServiceName}
}

// Store writes the secret under key, overwriting any previous value.
func (s *KeyringStore) Store(key, secret string) error {
	if err := keyring.Set(s.service, key, secret); err != nil {
		return &StoreError{Op: "store", Key: key, Err: classifyKeyringError(err)}
	}
	return nil
}

// Retrieve returns the secret stored under key.
func (s *KeyringStore) Retrieve(key string) (string, error) {
	secret, err := keyring.Get(s.service, key)
	if err != nil {
		return "", &StoreError{Op: "retrieve", Key: key, Err: classifyKeyringError(err)}
	}
	return secret, nil
}

// Delete removes the secret stored under key.
func (s *KeyringStore) Delete(key string) error {
	if err := keyring.Delete(s.service, key); err != nil {
		return &StoreError{Op: "delete", Key: key, Err: classifyKeyringError(err)}
	}
	return nil
}

// classifyKeyringError maps go-keyring failures onto the package sentinels
// so callers can branch with errors.Is without knowing the backend.
func classifyKeyringError(err error) error {
	if errors.Is(err, keyring.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, keyring.ErrUnsupportedPlatform) {
		return ErrUnavailable
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "access denied"), strings.Contains(msg, "dismissed"),
		strings.Contains(msg, "prompt"):
		return ErrAccessDenied
	case strings.Contains(msg, "no such interface"), strings.Contains(msg, "not provided by any .service"),
		strings.Contains(msg, "cannot autolaunch"):
		// D-Bus answers like these mean no Secret Service implementation
		// is running on the host.
		return ErrUnavailable
	}
	return err
}

var _ Store = (*KeyringStore)(nil)
