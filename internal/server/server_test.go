package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/holeportal/internal/auth"
	"github.com/wolfeidau/holeportal/internal/models"
	"github.com/wolfeidau/holeportal/internal/routes"
	memorystore "github.com/wolfeidau/holeportal/internal/store/memory"
)

const (
	testEmail    = "maker@example.com"
	testPassword = "correct horse"
)

var testSecret = []byte("test-secret-key-min-32-bytes-long")

func textView(name string) routes.Loader {
	return func(ctx context.Context) (routes.View, error) {
		return routes.ViewFunc(func(ctx context.Context, w io.Writer) error {
			body := "page:" + name
			if p := auth.PrincipalFromContext(ctx); p != nil {
				body += " user:" + p.Email
			}
			_, err := io.WriteString(w, body)
			return err
		}), nil
	}
}

func newTestServer(t *testing.T, opts ...func(*Config)) (*httptest.Server, *auth.Issuer) {
	t.Helper()
	ctx := context.Background()

	stores := memorystore.NewStores()
	require.NoError(t, Seed(ctx, stores, testEmail, testPassword))

	issuer, err := auth.NewIssuer(testSecret, time.Hour)
	require.NoError(t, err)
	verifier, err := auth.NewVerifier(testSecret)
	require.NoError(t, err)

	pages, err := routes.Default(routes.Loaders{
		Home:    textView("home"),
		About:   textView("about"),
		Library: textView("library"),
		Orders:  textView("orders"),
		Login:   textView("login"),
	})
	require.NoError(t, err)

	cfg := Config{Stores: stores, Issuer: issuer, Verifier: verifier, Pages: pages}
	for _, opt := range opts {
		opt(&cfg)
	}
	srv, err := NewServer(cfg)
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler(zerolog.Nop()))
	t.Cleanup(ts.Close)

	return ts, issuer
}

func noRedirectClient() *http.Client {
	return &http.Client{CheckRedirect: func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	}}
}

func login(t *testing.T, baseURL, email, password string) *http.Response {
	t.Helper()
	body, err := json.Marshal(map[string]string{"email": email, "password": password})
	require.NoError(t, err)

	resp, err := http.Post(baseURL+"/api/v1/auth/login", "application/json", strings.NewReader(string(body)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, r io.Reader) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(r).Decode(&v))
	return v
}

func getWithToken(t *testing.T, client *http.Client, url, token string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := client.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestLogin(t *testing.T) {
	ts, _ := newTestServer(t)

	t.Run("valid credentials", func(t *testing.T) {
		resp := login(t, ts.URL, testEmail, testPassword)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		body := decode[loginResponse](t, resp.Body)
		require.NotNil(t, body.Session)
		assert.NotEmpty(t, body.Session.AccessToken)
		assert.Equal(t, "bearer", body.Session.TokenType)
		assert.Equal(t, int64(3600), body.Session.ExpiresIn)
		assert.Equal(t, testEmail, body.Session.User.Email)
	})

	t.Run("email is case insensitive", func(t *testing.T) {
		resp := login(t, ts.URL, "MAKER@example.com", testPassword)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("wrong password", func(t *testing.T) {
		resp := login(t, ts.URL, testEmail, "nope")
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

		body := decode[map[string]string](t, resp.Body)
		assert.Equal(t, "bad credentials", body["detail"])
	})

	t.Run("unknown user", func(t *testing.T) {
		resp := login(t, ts.URL, "ghost@example.com", testPassword)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

		body := decode[map[string]string](t, resp.Body)
		assert.Equal(t, "bad credentials", body["detail"])
	})

	t.Run("missing fields", func(t *testing.T) {
		resp := login(t, ts.URL, testEmail, "")
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("malformed json", func(t *testing.T) {
		resp, err := http.Post(ts.URL+"/api/v1/auth/login", "application/json", strings.NewReader("{"))
		require.NoError(t, err)
		defer resp.Body.Close()

		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		body := decode[map[string]string](t, resp.Body)
		assert.Equal(t, "malformed request body", body["detail"])
	})
}

func TestProtectedAPI(t *testing.T) {
	ts, _ := newTestServer(t)

	resp := login(t, ts.URL, testEmail, testPassword)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	token := decode[loginResponse](t, resp.Body).Session.AccessToken

	t.Run("library requires token", func(t *testing.T) {
		resp := getWithToken(t, http.DefaultClient, ts.URL+"/api/v1/library", "")
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("library", func(t *testing.T) {
		resp := getWithToken(t, http.DefaultClient, ts.URL+"/api/v1/library", token)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		body := decode[libraryResponse](t, resp.Body)
		require.Len(t, body.Holes, len(seedHoles))
		assert.Equal(t, "D05", body.Holes[0].Code)

		assert.Equal(t, "private, max-age=60", resp.Header.Get("Cache-Control"))
		assert.Equal(t, []string{"Authorization", "Cookie"}, resp.Header.Values("Vary"))
	})

	t.Run("orders belong to caller", func(t *testing.T) {
		resp := getWithToken(t, http.DefaultClient, ts.URL+"/api/v1/orders", token)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		body := decode[ordersResponse](t, resp.Body)
		require.Len(t, body.Orders, 3)
		assert.Equal(t, "ORD-0001", body.Orders[0].Code)
		assert.Equal(t, "no-store", resp.Header.Get("Cache-Control"))
	})

	t.Run("me", func(t *testing.T) {
		resp := getWithToken(t, http.DefaultClient, ts.URL+"/api/v1/auth/me", token)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		body := decode[meResponse](t, resp.Body)
		assert.Equal(t, testEmail, body.Email)
		assert.NotEmpty(t, body.Sub)
		assert.Equal(t, []string{models.RoleAdmin}, body.Roles)
	})

	t.Run("health is public", func(t *testing.T) {
		resp := getWithToken(t, http.DefaultClient, ts.URL+"/api/v1/health", "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
	})
}

func TestPages(t *testing.T) {
	ts, issuer := newTestServer(t)
	client := noRedirectClient()

	readBody := func(t *testing.T, resp *http.Response) string {
		t.Helper()
		b, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		return string(b)
	}

	t.Run("public page", func(t *testing.T) {
		resp := getWithToken(t, client, ts.URL+"/about", "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "page:about", readBody(t, resp))
	})

	t.Run("protected page redirects to login", func(t *testing.T) {
		for _, path := range []string{"/library", "/orders", "/orders/"} {
			resp := getWithToken(t, client, ts.URL+path, "")
			require.Equal(t, http.StatusFound, resp.StatusCode, path)
			assert.Equal(t, "/login", resp.Header.Get("Location"))
		}
	})

	t.Run("protected page with token cookie", func(t *testing.T) {
		token, err := issuer.Issue(mustUserID(t, ts.URL), testEmail)
		require.NoError(t, err)

		req, err := http.NewRequest(http.MethodGet, ts.URL+"/orders", nil)
		require.NoError(t, err)
		req.AddCookie(&http.Cookie{Name: auth.TokenCookie, Value: token})

		resp, err := client.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "page:orders user:"+testEmail, readBody(t, resp))
	})

	t.Run("invalid token is treated as anonymous", func(t *testing.T) {
		resp := getWithToken(t, client, ts.URL+"/library", "garbage")
		require.Equal(t, http.StatusFound, resp.StatusCode)
	})

	t.Run("unknown page", func(t *testing.T) {
		resp := getWithToken(t, client, ts.URL+"/nope", "")
		require.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func mustUserID(t *testing.T, baseURL string) uuid.UUID {
	t.Helper()
	resp := login(t, baseURL, testEmail, testPassword)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return decode[loginResponse](t, resp.Body).Session.User.ID
}

func postJSON(t *testing.T, url, token, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestAdminAPI(t *testing.T) {
	ts, issuer := newTestServer(t)

	resp := login(t, ts.URL, testEmail, testPassword)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	admin := decode[loginResponse](t, resp.Body).Session.AccessToken

	viewer, err := issuer.Issue(uuid.New(), "viewer@example.com")
	require.NoError(t, err)

	t.Run("users requires admin role", func(t *testing.T) {
		resp := getWithToken(t, http.DefaultClient, ts.URL+"/api/v1/users", viewer)
		require.Equal(t, http.StatusForbidden, resp.StatusCode)
		assert.Equal(t, "role not authorized", decode[map[string]string](t, resp.Body)["detail"])

		resp = getWithToken(t, http.DefaultClient, ts.URL+"/api/v1/users", "")
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("users", func(t *testing.T) {
		resp := getWithToken(t, http.DefaultClient, ts.URL+"/api/v1/users", admin)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		body := decode[usersResponse](t, resp.Body)
		require.Len(t, body.Users, 1)
		assert.Equal(t, testEmail, body.Users[0].Email)
		assert.Equal(t, []string{models.RoleAdmin}, body.Users[0].Roles)
	})

	t.Run("add hole", func(t *testing.T) {
		resp := postJSON(t, ts.URL+"/api/v1/library", viewer, `{"code":"C10","name":"Cam 10mm"}`)
		require.Equal(t, http.StatusForbidden, resp.StatusCode)

		resp = postJSON(t, ts.URL+"/api/v1/library", admin, `{"code":"C10","name":"Cam 10mm","diameter_mm":10}`)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		hole := decode[models.Hole](t, resp.Body)
		assert.Equal(t, "C10", hole.Code)
		require.NotNil(t, hole.DiameterMM)
		assert.Equal(t, 10.0, *hole.DiameterMM)

		resp = getWithToken(t, http.DefaultClient, ts.URL+"/api/v1/library", viewer)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Len(t, decode[libraryResponse](t, resp.Body).Holes, len(seedHoles)+1)
	})

	t.Run("add hole rejects bad input", func(t *testing.T) {
		tests := []struct {
			body   string
			status int
		}{
			{body: `{"code":"C10","name":"again"}`, status: http.StatusConflict},
			{body: `{"code":" ","name":"blank"}`, status: http.StatusBadRequest},
			{body: `{"code":"N1","name":"neg","depth_mm":-1}`, status: http.StatusBadRequest},
			{body: `{`, status: http.StatusBadRequest},
		}
		for _, tt := range tests {
			resp := postJSON(t, ts.URL+"/api/v1/library", admin, tt.body)
			assert.Equal(t, tt.status, resp.StatusCode, tt.body)
		}
	})
}

func TestRateLimit(t *testing.T) {
	ts, _ := newTestServer(t, func(cfg *Config) { cfg.RateLimit = 2 })

	for range 2 {
		resp := login(t, ts.URL, testEmail, "nope")
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}

	resp := login(t, ts.URL, testEmail, testPassword)
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))
	assert.Equal(t, "rate limit exceeded", decode[map[string]string](t, resp.Body)["detail"])

	// health has its own budget
	for range 2 {
		resp := getWithToken(t, http.DefaultClient, ts.URL+"/api/v1/health", "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}
	resp = getWithToken(t, http.DefaultClient, ts.URL+"/api/v1/health", "")
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)

	// protected routes are not throttled
	resp = getWithToken(t, http.DefaultClient, ts.URL+"/api/v1/library", "")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
