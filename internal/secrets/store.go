// Package secrets wraps the OS-native credential vault used to hold the
// service account client secret. The secret is stored under a composite
// account key and is never written to the config file or any log output.
package secrets

import (
	"errors"
	"fmt"
	"strings"
)

// ServiceName is the vault service entry all uamcli secrets live under.
const ServiceName = "uamcli"

// Sentinel errors surfaced by every Store implementation.
var (
	// ErrNotFound indicates no secret is stored under the requested key.
	ErrNotFound = errors.New("secret not found")
	// ErrAccessDenied indicates the OS vault refused the operation, for
	// example because the user declined an unlock prompt.
	ErrAccessDenied = errors.New("vault access denied")
	// ErrUnavailable indicates no vault backend exists on this host.
	ErrUnavailable = errors.New("no vault backend available")
)

// StoreError wraps vault failures with the operation and key context.
// The secret value itself is never part of the error.
type StoreError struct {
	Op  string // "store", "retrieve", "delete"
	Key string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("secret store %s error for key %q: %v", e.Op, e.Key, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// Store is the secret vault contract. Implementations must never log or
// echo stored values.
type Store interface {
	// Store writes the secret under key, overwriting any previous value.
	Store(key, secret string) error
	// Retrieve returns the secret stored under key.
	Retrieve(key string) (string, error)
	// Delete removes the secret stored under key.
	Delete(key string) error
}

// CompositeKey derives the vault account key from the credential's
// plaintext identifiers. The secret is scoped to the full tuple so that
// switching projects or service accounts never reads a stale secret.
func CompositeKey(organizationID, projectID, environmentID, clientID string) string {
	return strings.Join([]string{organizationID, projectID, environmentID, clientID}, ":")
}
