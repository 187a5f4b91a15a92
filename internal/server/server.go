package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/wolfeidau/holeportal/internal/assets"
	"github.com/wolfeidau/holeportal/internal/auth"
	"github.com/wolfeidau/holeportal/internal/logger"
	"github.com/wolfeidau/holeportal/internal/routes"
	"github.com/wolfeidau/holeportal/internal/store"
)

// Config wires the server's dependencies.
type Config struct {
	Stores   store.Stores
	Issuer   *auth.Issuer
	Verifier *auth.Verifier

	// Pipeline serves the page bundles; optional when Pages is set.
	Pipeline *assets.Pipeline
	// Pages overrides the page table built from Pipeline.
	Pages *routes.Table

	// RateLimit is the number of login and health requests allowed per
	// minute per client IP; zero disables the limit.
	RateLimit int
}

// Server wraps the portal API and page handlers
type Server struct {
	auth     *AuthService
	stores   store.Stores
	verifier *auth.Verifier
	pipeline *assets.Pipeline
	pages    *routes.Table

	rateLimit int
}

// NewServer creates a new server from cfg.
func NewServer(cfg Config) (*Server, error) {
	if err := cfg.Stores.Validate(); err != nil {
		return nil, err
	}
	if cfg.Issuer == nil || cfg.Verifier == nil {
		return nil, errors.New("token issuer and verifier are required")
	}

	pages := cfg.Pages
	if pages == nil {
		if cfg.Pipeline == nil {
			return nil, errors.New("either an asset pipeline or a page table is required")
		}
		var err error
		pages, err = routes.Default(PageLoaders(cfg.Pipeline))
		if err != nil {
			return nil, err
		}
	}

	return &Server{
		auth:     NewAuthService(cfg.Stores.Users, cfg.Issuer),
		stores:   cfg.Stores,
		verifier: cfg.Verifier,
		pipeline: cfg.Pipeline,
		pages:    pages,

		rateLimit: cfg.RateLimit,
	}, nil
}

// Handler returns the HTTP handler for the server
func (s *Server) Handler(log zerolog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.Handle("GET /api/v1/health", s.throttle(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})))

	s.registerAPI(mux)

	if s.pipeline != nil {
		mux.Handle("GET /public/", http.StripPrefix("/public/", http.FileServer(http.Dir(s.pipeline.OutputDir()))))
	}

	mux.Handle("/", s.pageHandler())

	return logger.Requests(log)(mux)
}

// PageLoaders returns the loaders of the portal pages, each one a lazily
// built esbuild entry point.
func PageLoaders(p *assets.Pipeline) routes.Loaders {
	return routes.Loaders{
		Home:    p.Page("home", "Home", "ui/pages/home.js", pageContext),
		About:   p.Page("about", "About", "ui/pages/about.js", nil),
		Library: p.Page("library", "Hole library", "ui/pages/library.js", pageContext),
		Orders:  p.Page("orders", "Orders", "ui/pages/orders.js", pageContext),
		Login:   p.Page("login", "Login", "ui/pages/login.js", nil),
	}
}

func pageContext(ctx context.Context) any {
	principal := auth.PrincipalFromContext(ctx)
	if principal == nil {
		return nil
	}
	return map[string]string{"sub": principal.UserID.String(), "email": principal.Email}
}
