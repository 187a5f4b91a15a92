// Package session holds the client side authentication state: the bearer
// token, the user profile and the Authorization header applied to outgoing
// requests. The token is written through to a Storage on every change.
package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// LoginPath is the path of the authentication endpoint on the portal server.
const LoginPath = "/api/v1/auth/login"

// maxResponseBytes bounds how much of a login response is read.
const maxResponseBytes = 1 << 20

// User is the opaque profile returned by the server on login.
type User map[string]any

// Store is the single authority for who is logged in.
type Store struct {
	storage  Storage
	client   *http.Client
	endpoint string

	mu     sync.RWMutex
	token  string
	user   User
	header http.Header
}

// Option configures a Store.
type Option func(*Store)

// WithHTTPClient sets the client used for the login request.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Store) {
		s.client = c
	}
}

// WithEndpoint sets the absolute URL of the login endpoint.
func WithEndpoint(endpoint string) Option {
	return func(s *Store) {
		s.endpoint = endpoint
	}
}

// LoginEndpoint joins serverURL and LoginPath.
func LoginEndpoint(serverURL string) string {
	return strings.TrimRight(serverURL, "/") + LoginPath
}

// New creates a Store and restores any token held by storage. This is the
// only place the store reads from storage.
func New(storage Storage, opts ...Option) (*Store, error) {
	if storage == nil {
		return nil, errors.New("session storage is required")
	}

	s := &Store{
		storage:  storage,
		client:   http.DefaultClient,
		endpoint: LoginPath,
		header:   make(http.Header),
	}
	for _, opt := range opts {
		opt(s)
	}

	token, err := storage.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load session token: %w", err)
	}
	s.token = token

	log.Debug().Bool("restored", token != "").Msg("session store initialized")

	return s, nil
}

// Init installs the Authorization header when a token is present. It makes
// no network call and is safe to call repeatedly.
func (s *Store) Init() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token == "" {
		return
	}
	s.installHeader(s.token)
}

// IsAuthenticated reports whether a token is held.
func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token != ""
}

// Token returns the current token, empty when logged out.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// User returns the profile received on login. It is nil after a restore
// from storage until the next login.
func (s *Store) User() User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := make(User, len(s.user))
	for k, v := range s.user {
		u[k] = v
	}
	return u
}

// Header returns a copy of the default headers applied to outgoing requests.
func (s *Store) Header() http.Header {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.header.Clone()
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Session *struct {
		AccessToken string `json:"access_token"`
		User        User   `json:"user"`
	} `json:"session"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

// Login sends one request to the login endpoint. It never returns an error,
// all outcomes are reported through the Result and state is only changed
// on success.
func (s *Store) Login(ctx context.Context, identifier, secret string) Result {
	body, err := json.Marshal(loginRequest{Email: identifier, Password: secret})
	if err != nil {
		return failure(ErrLoginRejected, detailLoginError, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return failure(ErrTransportFailure, detailLoginError, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		log.Debug().Err(err).Str("endpoint", s.endpoint).Msg("login request failed")
		return failure(ErrTransportFailure, detailLoginError, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return failure(ErrTransportFailure, detailLoginError, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail := detailLoginError
		var errResp errorResponse
		if json.Unmarshal(data, &errResp) == nil && errResp.Detail != "" {
			detail = errResp.Detail
		}
		log.Debug().Int("status", resp.StatusCode).Str("detail", detail).Msg("login rejected")
		return failure(ErrLoginRejected, detail, fmt.Errorf("server returned HTTP %d", resp.StatusCode))
	}

	var payload loginResponse
	if err := json.Unmarshal(data, &payload); err != nil || payload.Session == nil || payload.Session.AccessToken == "" {
		log.Debug().Msg("login response carried no session")
		return failure(ErrLoginRejected, detailUnexpectedResponse, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.storage.Save(payload.Session.AccessToken); err != nil {
		log.Error().Err(err).Msg("failed to persist session token")
		return failure(ErrLoginRejected, detailLoginError, err)
	}

	s.token = payload.Session.AccessToken
	s.user = payload.Session.User
	s.installHeader(s.token)

	log.Info().Msg("logged in")

	return Result{Success: true}
}

// Logout clears the session, its stored token and the Authorization header.
func (s *Store) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = ""
	s.user = nil
	s.header.Del("Authorization")

	if err := s.storage.Clear(); err != nil {
		log.Error().Err(err).Msg("failed to clear stored session token")
	}

	log.Info().Msg("logged out")
}

// installHeader must be called with mu held.
func (s *Store) installHeader(token string) {
	bearer(token).SetAuthHeader(&http.Request{Header: s.header})
}

// installedToken returns the token only once its header is installed, so
// a restored token is not sent before Init.
func (s *Store) installedToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.header.Get("Authorization") == "" {
		return ""
	}
	return s.token
}

func bearer(token string) *oauth2.Token {
	return &oauth2.Token{AccessToken: token, TokenType: "Bearer"}
}
