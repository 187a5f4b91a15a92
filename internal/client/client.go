package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/wolfeidau/holeportal/internal/models"
)

const maxResponseBody = 1 << 20

// Config holds common client configuration
type Config struct {
	ServerURL string
	Timeout   time.Duration
	// CacheDir enables the on-disk HTTP cache; empty keeps the cache in memory.
	CacheDir string
}

// DefaultConfig returns a default client configuration
func DefaultConfig() Config {
	return Config{
		ServerURL: "http://localhost:8080",
		Timeout:   30 * time.Second,
	}
}

// NewHTTPClient builds the HTTP client used for portal API calls. authorize
// wraps the caching base transport, typically with the session's transport
// so every request carries the current authorization header.
func NewHTTPClient(cfg Config, authorize func(http.RoundTripper) http.RoundTripper) *http.Client {
	var transport http.RoundTripper = NewCachingTransport(cfg.CacheDir)
	if authorize != nil {
		transport = authorize(transport)
	}

	return &http.Client{
		Transport: transport,
		Timeout:   cfg.Timeout,
	}
}

// StatusError is returned for non-2xx API responses.
type StatusError struct {
	StatusCode int
	Detail     string
}

func (e *StatusError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("request failed with status %d", e.StatusCode)
	}
	return fmt.Sprintf("request failed with status %d: %s", e.StatusCode, e.Detail)
}

// IsUnauthorized reports whether err is a 401 response.
func IsUnauthorized(err error) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusUnauthorized
}

// Me is the caller identity reported by the server.
type Me struct {
	Sub   string `json:"sub"`
	Email string `json:"email"`
}

// API calls the portal's protected JSON endpoints.
type API struct {
	baseURL string
	client  *http.Client
}

// NewAPI creates an API client for serverURL using httpClient.
func NewAPI(serverURL string, httpClient *http.Client) (*API, error) {
	u, err := url.Parse(serverURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid server url %q", serverURL)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &API{baseURL: strings.TrimRight(serverURL, "/"), client: httpClient}, nil
}

// Library returns the hole library.
func (a *API) Library(ctx context.Context) ([]*models.Hole, error) {
	var resp struct {
		Holes []*models.Hole `json:"holes"`
	}
	if err := a.get(ctx, "/api/v1/library", &resp); err != nil {
		return nil, err
	}
	return resp.Holes, nil
}

// Orders returns the caller's orders, newest first.
func (a *API) Orders(ctx context.Context) ([]*models.Order, error) {
	var resp struct {
		Orders []*models.Order `json:"orders"`
	}
	if err := a.get(ctx, "/api/v1/orders", &resp); err != nil {
		return nil, err
	}
	return resp.Orders, nil
}

// Me returns the identity the server associates with the current token.
func (a *API) Me(ctx context.Context) (*Me, error) {
	var me Me
	if err := a.get(ctx, "/api/v1/auth/me", &me); err != nil {
		return nil, err
	}
	return &me, nil
}

func (a *API) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		statusErr := &StatusError{StatusCode: resp.StatusCode}
		var detail struct {
			Detail string `json:"detail"`
		}
		if json.Unmarshal(body, &detail) == nil {
			statusErr.Detail = detail.Detail
		}
		return statusErr
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
