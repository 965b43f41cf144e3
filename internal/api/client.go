// Package api is the authenticated HTTP facade over the asset service.
// It owns request building, JSON codec work, error classification, and
// the retry policy; higher layers (upload pipeline, status engine,
// metadata mapper) never touch net/http directly.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/uamcli/uamcli/internal/auth"
	"github.com/uamcli/uamcli/internal/logging"
)

const (
	defaultTimeout = 30 * time.Second
	uploadTimeout  = 120 * time.Second

	readAttempts   = 3
	initialBackoff = 500 * time.Millisecond

	maxErrorBody = 4096
)

// TokenProvider supplies bearer tokens. Implemented by the auth package.
type TokenProvider interface {
	GetValidToken(ctx context.Context) (auth.Token, error)
	Invalidate()
}

// Config carries the collaborators and identifiers for a Client.
type Config struct {
	BaseURL        string
	OrganizationID string
	ProjectID      string
	Tokens         TokenProvider
	HTTPClient     *http.Client
	Logger         *logging.Logger
}

// Client is the authenticated JSON client for the asset service.
type Client struct {
	base    *url.URL
	orgID   string
	project string
	tokens  TokenProvider
	http    *http.Client
	logger  *logging.Logger
}

// NewClient validates the configuration and returns a client.
func NewClient(cfg Config) (*Client, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid service base URL %q: %w", cfg.BaseURL, err)
	}
	if cfg.Tokens == nil {
		return nil, fmt.Errorf("token provider is required")
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: defaultTimeout}
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.New(false, true)
	}
	return &Client{
		base:    base,
		orgID:   cfg.OrganizationID,
		project: cfg.ProjectID,
		tokens:  cfg.Tokens,
		http:    cfg.HTTPClient,
		logger:  cfg.Logger,
	}, nil
}

// do performs one API call. body (when non-nil) is JSON-encoded; target
// (when non-nil) receives the JSON-decoded response.
//
// Retry policy: GETs retry transient failures (network, 5xx) up to the
// read budget with exponential backoff. Writes retry only dial-level
// failures, where no request bytes reached the service, so a duplicate
// side effect is impossible. A 401 triggers exactly one token refresh
// before the call fails.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, target interface{}) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode %s %s request: %w", method, path, err)
		}
	}

	u := *c.base
	u.Path = path
	if query != nil {
		u.RawQuery = query.Encode()
	}

	idempotent := method == http.MethodGet
	attempts := 1
	if idempotent {
		attempts = readAttempts
	}

	refreshed := false
	backoff := initialBackoff
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		done, err := c.attempt(ctx, method, path, u.String(), payload, target, &refreshed)
		if done {
			return err
		}
		lastErr = err

		// Writes only come back here for pre-dispatch failures, which
		// share the read budget.
		if attempt == 1 && !idempotent {
			attempts = readAttempts
		}
		if attempt < attempts {
			c.logger.Debug("%s %s attempt %d/%d failed: %v", method, path, attempt, attempts, err)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return &Error{Method: method, Path: path, Err: fmt.Errorf("%w: %v", ErrTransport, ctx.Err())}
			}
			backoff *= 2
		}
	}

	var apiErr *Error
	if errors.As(lastErr, &apiErr) {
		return lastErr
	}
	return &Error{Method: method, Path: path, Err: fmt.Errorf("%w: %v", ErrTransport, lastErr)}
}

// attempt performs one HTTP exchange. done=false means the caller may
// retry; done=true means err (possibly nil) is final.
func (c *Client) attempt(ctx context.Context, method, path, fullURL string, payload []byte, target interface{}, refreshed *bool) (bool, error) {
	token, err := c.tokens.GetValidToken(ctx)
	if err != nil {
		return true, fmt.Errorf("failed to obtain session token: %w", err)
	}

	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, fullURL, reqBody)
	if err != nil {
		return true, fmt.Errorf("failed to build %s %s: %w", method, path, err)
	}
	req.Header.Set("Authorization", "Bearer "+token.Value)
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug("%s %s", method, fullURL)

	resp, err := c.http.Do(req)
	if err != nil {
		transportErr := &Error{Method: method, Path: path, Err: fmt.Errorf("%w: %v", ErrTransport, err)}
		if method == http.MethodGet || isPreDispatchError(err) {
			return false, transportErr
		}
		return true, transportErr
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		if !*refreshed {
			// Clock skew can expire a token the cache still considers
			// valid. Refresh once, never loop.
			*refreshed = true
			c.tokens.Invalidate()
			return c.attempt(ctx, method, path, fullURL, payload, target, refreshed)
		}
		return true, c.responseError(method, path, resp)
	case resp.StatusCode >= 500:
		// The request was dispatched; only idempotent reads may retry.
		return method != http.MethodGet, c.responseError(method, path, resp)
	case resp.StatusCode >= 400:
		return true, c.responseError(method, path, resp)
	}

	if target != nil {
		if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
			return true, &Error{
				Method:     method,
				Path:       path,
				StatusCode: resp.StatusCode,
				Err:        fmt.Errorf("%w: %v", ErrMalformed, err),
			}
		}
	}
	return true, nil
}

func (c *Client) responseError(method, path string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &Error{
		Method:     method,
		Path:       path,
		StatusCode: resp.StatusCode,
		Body:       string(body),
		Err:        classifyStatus(resp.StatusCode),
	}
}

// isPreDispatchError reports whether the failure happened before any
// request bytes were sent, making a write safe to retry. Dial failures
// (connection refused, no route, DNS) qualify; anything after the
// connection was established does not.
func isPreDispatchError(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return opErr.Op == "dial"
	}
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}
