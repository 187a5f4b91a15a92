package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/holeportal/internal/auth"
	httpmiddleware "github.com/wolfeidau/holeportal/internal/http"
	"github.com/wolfeidau/holeportal/internal/models"
	"github.com/wolfeidau/holeportal/internal/store"
	"github.com/wolfeidau/holeportal/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const maxRequestBody = 1 << 20

// libraryCacheControl lets the portal client reuse the hole library for a
// minute. The library is only cached privately and per token.
const libraryCacheControl = "private, max-age=60"

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Session *Session `json:"session"`
}

type libraryResponse struct {
	Holes []*models.Hole `json:"holes"`
}

type ordersResponse struct {
	Orders []*models.Order `json:"orders"`
}

type usersResponse struct {
	Users []models.Profile `json:"users"`
}

type createHoleRequest struct {
	Code       string   `json:"code"`
	Name       string   `json:"name"`
	DiameterMM *float64 `json:"diameter_mm,omitempty"`
	DepthMM    *float64 `json:"depth_mm,omitempty"`
}

type meResponse struct {
	Sub   string   `json:"sub"`
	Email string   `json:"email"`
	Roles []string `json:"roles,omitempty"`
}

func (s *Server) registerAPI(mux *http.ServeMux) {
	requireAuth := s.verifier.Middleware()
	requireAdmin := func(h http.Handler) http.Handler {
		return requireAuth(auth.RequireRoles(models.RoleAdmin)(h))
	}
	clientIP := httpmiddleware.ClientIPMiddleware()

	mux.Handle("POST /api/v1/auth/login", clientIP(s.throttle(http.HandlerFunc(s.handleLogin))))
	mux.Handle("GET /api/v1/auth/me", requireAuth(http.HandlerFunc(s.handleMe)))
	mux.Handle("GET /api/v1/library", requireAuth(http.HandlerFunc(s.handleLibrary)))
	mux.Handle("POST /api/v1/library", requireAdmin(http.HandlerFunc(s.handleCreateHole)))
	mux.Handle("GET /api/v1/orders", requireAuth(http.HandlerFunc(s.handleOrders)))
	mux.Handle("GET /api/v1/users", requireAdmin(http.HandlerFunc(s.handleUsers)))
}

// throttle limits h per client IP when a rate limit is configured. Each
// route gets its own buckets.
func (s *Server) throttle(h http.Handler) http.Handler {
	if s.rateLimit <= 0 {
		return h
	}
	return httpmiddleware.NewRateLimiter(s.rateLimit, time.Minute).Middleware()(h)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	metrics := telemetry.GetMetrics()
	ctx := r.Context()

	metrics.LoginAttemptsTotal.Add(ctx, 1)
	defer func() {
		metrics.LoginDuration.Record(ctx, float64(time.Since(started).Milliseconds()))
	}()

	fail := func(status int, reason, detail string) {
		metrics.LoginFailuresTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
		auth.WriteDetail(w, status, detail)
	}

	var req loginRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err := dec.Decode(&req); err != nil {
		fail(http.StatusBadRequest, "malformed", "malformed request body")
		return
	}

	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		fail(http.StatusBadRequest, "missing_fields", "email and password are required")
		return
	}

	session, err := s.auth.Login(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			log.Info().
				Str("client_ip", httpmiddleware.ClientIPFromContext(ctx)).
				Msg("Rejected login")
			fail(http.StatusUnauthorized, "bad_credentials", ErrInvalidCredentials.Error())
			return
		}
		log.Error().Err(err).Msg("Login failed")
		fail(http.StatusInternalServerError, "internal", "login error")
		return
	}

	httpmiddleware.WriteJSON(w, http.StatusOK, loginResponse{Session: session})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	principal := auth.PrincipalFromContext(r.Context())
	httpmiddleware.WriteJSON(w, http.StatusOK, meResponse{
		Sub:   principal.UserID.String(),
		Email: principal.Email,
		Roles: principal.Roles,
	})
}

func (s *Server) handleLibrary(w http.ResponseWriter, r *http.Request) {
	holes, err := s.stores.Holes.ListHoles(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to list holes")
		auth.WriteDetail(w, http.StatusInternalServerError, "failed to load hole library")
		return
	}

	w.Header().Set("Cache-Control", libraryCacheControl)
	w.Header().Add("Vary", "Authorization")
	w.Header().Add("Vary", "Cookie")
	httpmiddleware.WriteJSON(w, http.StatusOK, libraryResponse{Holes: holes})
}

func (s *Server) handleCreateHole(w http.ResponseWriter, r *http.Request) {
	var req createHoleRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
		auth.WriteDetail(w, http.StatusBadRequest, "malformed request body")
		return
	}

	req.Code = strings.TrimSpace(req.Code)
	req.Name = strings.TrimSpace(req.Name)
	if req.Code == "" || req.Name == "" {
		auth.WriteDetail(w, http.StatusBadRequest, "code and name are required")
		return
	}
	if negative(req.DiameterMM) || negative(req.DepthMM) {
		auth.WriteDetail(w, http.StatusBadRequest, "dimensions must not be negative")
		return
	}

	hole := &models.Hole{
		ID:         uuid.New(),
		Code:       req.Code,
		Name:       req.Name,
		DiameterMM: req.DiameterMM,
		DepthMM:    req.DepthMM,
	}
	if err := s.stores.Holes.CreateHole(r.Context(), hole); err != nil {
		if errors.Is(err, store.ErrHoleAlreadyExists) {
			auth.WriteDetail(w, http.StatusConflict, "hole code already exists")
			return
		}
		log.Error().Err(err).Str("code", hole.Code).Msg("Failed to create hole")
		auth.WriteDetail(w, http.StatusInternalServerError, "failed to create hole")
		return
	}

	log.Info().
		Str("code", hole.Code).
		Str("user_id", auth.PrincipalFromContext(r.Context()).UserID.String()).
		Msg("Added hole to library")

	httpmiddleware.WriteJSON(w, http.StatusCreated, hole)
}

func negative(v *float64) bool {
	return v != nil && *v < 0
}

func (s *Server) handleUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.stores.Users.List(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to list users")
		auth.WriteDetail(w, http.StatusInternalServerError, "failed to load users")
		return
	}

	profiles := make([]models.Profile, 0, len(users))
	for _, u := range users {
		profiles = append(profiles, u.Profile())
	}

	httpmiddleware.WriteJSON(w, http.StatusOK, usersResponse{Users: profiles})
}

func (s *Server) handleOrders(w http.ResponseWriter, r *http.Request) {
	principal := auth.PrincipalFromContext(r.Context())

	orders, err := s.stores.Orders.ListOrdersByUser(r.Context(), principal.UserID)
	if err != nil {
		log.Error().Err(err).Str("user_id", principal.UserID.String()).Msg("Failed to list orders")
		auth.WriteDetail(w, http.StatusInternalServerError, "failed to load orders")
		return
	}

	httpmiddleware.WriteJSON(w, http.StatusOK, ordersResponse{Orders: orders})
}
