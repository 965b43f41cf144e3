// Package auth exchanges the service account credential for short-lived
// bearer tokens and caches them for the life of the process. The client
// secret is fetched from the vault on demand, held only in protected
// memory for the duration of the exchange, and never cached here.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/uamcli/uamcli/internal/logging"
	"github.com/uamcli/uamcli/internal/secure"
)

const (
	tokenExchangePath = "/auth/v1/token-exchange"

	// defaultLifetime applies when the response carries no expiresIn.
	defaultLifetime = time.Hour
	// safetyMargin refreshes tokens slightly before their reported
	// expiry to absorb clock skew and request latency.
	safetyMargin = 30 * time.Second

	maxAttempts    = 3
	initialBackoff = 500 * time.Millisecond
)

// Sentinel errors for credential exchange failures.
var (
	// ErrInvalidCredentials indicates the service rejected the client
	// id/secret pair. Retrying with the same credentials is pointless.
	ErrInvalidCredentials = errors.New("invalid client credentials")
	// ErrUnreachable indicates the token endpoint could not be reached
	// after bounded retries.
	ErrUnreachable = errors.New("token endpoint unreachable")
)

// SecretSource supplies the client secret on demand. Implemented by the
// config layer backed by the OS vault.
type SecretSource interface {
	ClientSecret() (string, error)
}

// Token is a bearer token with its computed expiry.
type Token struct {
	Value     string
	ExpiresAt time.Time
}

// Valid reports whether the token can still be used at time now, keeping
// the safety margin.
func (t Token) Valid(now time.Time) bool {
	return t.Value != "" && now.Before(t.ExpiresAt.Add(-safetyMargin))
}

// ManagerConfig carries the collaborators and identifiers for a Manager.
type ManagerConfig struct {
	BaseURL       string
	ProjectID     string
	EnvironmentID string
	ClientID      string
	Secrets       SecretSource
	HTTPClient    *http.Client
	Logger        *logging.Logger
}

// Manager caches one token per process and refreshes it on expiry or
// explicit invalidation. Concurrent callers share a single in-flight
// refresh instead of racing the token endpoint.
type Manager struct {
	cfg   ManagerConfig
	mu    sync.RWMutex
	token Token
	group singleflight.Group
	now   func() time.Time
}

// NewManager creates a token manager. The HTTP client defaults to one
// with a 30 second timeout.
func NewManager(cfg ManagerConfig) *Manager {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.New(false, true)
	}
	return &Manager{cfg: cfg, now: time.Now}
}

// GetValidToken returns a cached token when one is still valid, otherwise
// performs the client-credentials exchange and caches the result.
func (m *Manager) GetValidToken(ctx context.Context) (Token, error) {
	m.mu.RLock()
	cached := m.token
	m.mu.RUnlock()
	if cached.Valid(m.now()) {
		return cached, nil
	}

	result, err, _ := m.group.Do("refresh", func() (interface{}, error) {
		// A waiter may arrive after another caller already refreshed.
		m.mu.RLock()
		current := m.token
		m.mu.RUnlock()
		if current.Valid(m.now()) {
			return current, nil
		}

		token, err := m.exchange(ctx)
		if err != nil {
			return Token{}, err
		}

		m.mu.Lock()
		m.token = token
		m.mu.Unlock()
		return token, nil
	})
	if err != nil {
		return Token{}, err
	}
	return result.(Token), nil
}

// Invalidate drops the cached token. The API client calls this when a
// request comes back 401 despite a locally unexpired token.
func (m *Manager) Invalidate() {
	m.mu.Lock()
	m.token = Token{}
	m.mu.Unlock()
}

// exchange performs the client-credentials token exchange with bounded
// retries for transient failures. 401/403 fail immediately.
func (m *Manager) exchange(ctx context.Context) (Token, error) {
	secret, err := m.cfg.Secrets.ClientSecret()
	if err != nil {
		return Token{}, fmt.Errorf("failed to obtain client secret: %w", err)
	}
	if secret == "" {
		return Token{}, fmt.Errorf("%w: stored client secret is empty", ErrInvalidCredentials)
	}
	buf := secure.NewBufferFromString(secret)
	defer buf.Destroy()

	endpoint, err := m.exchangeURL()
	if err != nil {
		return Token{}, err
	}

	var lastErr error
	backoff := initialBackoff
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		token, retryable, err := m.attemptExchange(ctx, endpoint, buf)
		if err == nil {
			return token, nil
		}
		if !retryable {
			return Token{}, err
		}
		lastErr = err

		m.cfg.Logger.Debug("token exchange attempt %d/%d failed: %v", attempt, maxAttempts, err)
		if attempt < maxAttempts {
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return Token{}, ctx.Err()
			}
			backoff *= 2
		}
	}
	return Token{}, fmt.Errorf("%w: %v", ErrUnreachable, lastErr)
}

func (m *Manager) attemptExchange(ctx context.Context, endpoint string, buf *secure.Buffer) (Token, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return Token{}, false, fmt.Errorf("failed to build token request: %w", err)
	}

	locked, err := buf.Open()
	if err != nil {
		return Token{}, false, fmt.Errorf("failed to open secret buffer: %w", err)
	}
	req.SetBasicAuth(m.cfg.ClientID, locked.String())
	locked.Destroy()

	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Content-Length", "0")

	m.cfg.Logger.Debug("POST %s", endpoint)

	resp, err := m.cfg.HTTPClient.Do(req)
	if err != nil {
		return Token{}, true, fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return Token{}, false, fmt.Errorf("%w (status %d)", ErrInvalidCredentials, resp.StatusCode)
	case resp.StatusCode >= 500:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return Token{}, true, fmt.Errorf("token endpoint returned %d: %s", resp.StatusCode, body)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return Token{}, false, fmt.Errorf("unexpected token response %d: %s", resp.StatusCode, body)
	}

	var payload struct {
		AccessToken string `json:"accessToken"`
		ExpiresIn   int    `json:"expiresIn"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Token{}, false, fmt.Errorf("failed to decode token response: %w", err)
	}
	if payload.AccessToken == "" {
		return Token{}, false, fmt.Errorf("token response carried no access token")
	}

	lifetime := defaultLifetime
	if payload.ExpiresIn > 0 {
		lifetime = time.Duration(payload.ExpiresIn) * time.Second
	}

	return Token{Value: payload.AccessToken, ExpiresAt: m.now().Add(lifetime)}, false, nil
}

func (m *Manager) exchangeURL() (string, error) {
	u, err := url.Parse(m.cfg.BaseURL)
	if err != nil {
		return "", fmt.Errorf("invalid service base URL %q: %w", m.cfg.BaseURL, err)
	}
	u.Path = tokenExchangePath
	q := u.Query()
	q.Set("projectId", m.cfg.ProjectID)
	q.Set("environmentId", m.cfg.EnvironmentID)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
