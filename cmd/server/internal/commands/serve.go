package commands

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"filippo.io/csrf"
	"github.com/klauspost/compress/gzhttp"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/holeportal/internal/assets"
	"github.com/wolfeidau/holeportal/internal/auth"
	httpmiddleware "github.com/wolfeidau/holeportal/internal/http"
	"github.com/wolfeidau/holeportal/internal/logger"
	"github.com/wolfeidau/holeportal/internal/server"
	"github.com/wolfeidau/holeportal/internal/store"
	memorystore "github.com/wolfeidau/holeportal/internal/store/memory"
	postgresstore "github.com/wolfeidau/holeportal/internal/store/postgres"
	"github.com/wolfeidau/holeportal/internal/telemetry"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type ServeCmd struct {
	// Server configuration
	Listen          string        `help:"HTTP server listen address" default:"localhost:8080" env:"HOLEPORTAL_LISTEN"`
	Cert            string        `help:"path to TLS cert file, serves plain HTTP when unset" default:"" env:"HOLEPORTAL_TLS_CERT"`
	Key             string        `help:"path to TLS key file" default:"" env:"HOLEPORTAL_TLS_KEY"`
	ShutdownTimeout time.Duration `help:"time allowed for in-flight requests on shutdown" default:"10s"`

	// CORS configuration
	CORSOrigins []string `help:"allowed CORS origins for API requests" default:"http://localhost:8080" env:"HOLEPORTAL_CORS_ORIGINS"`

	// Login and health requests per minute per client IP, 0 disables
	RateLimit int `help:"login and health requests allowed per minute per client IP, 0 disables" default:"10" env:"HOLEPORTAL_RATE_LIMIT"`

	// Token configuration
	JWTSecret string        `help:"HMAC secret for session tokens, at least 32 bytes" env:"HOLEPORTAL_JWT_SECRET"`
	TokenTTL  time.Duration `help:"session token lifetime" default:"24h" env:"HOLEPORTAL_TOKEN_TTL"`

	// Assets
	AssetsDir string `help:"directory holding ui/ and the public/ output" default:"." env:"HOLEPORTAL_ASSETS_DIR"`

	// Development and operational modes
	SeedEmail    string  `help:"seed a user, the hole library and sample orders" env:"HOLEPORTAL_SEED_EMAIL"`
	SeedPassword string  `help:"password of the seeded user" env:"HOLEPORTAL_SEED_PASSWORD"`
	Tracing      bool    `help:"enable tracing" default:"false" env:"HOLEPORTAL_TRACING"`
	SampleRatio  float64 `help:"trace sample ratio" default:"1" env:"HOLEPORTAL_TRACE_SAMPLE_RATIO"`

	// Store configuration
	StoreType     string             `help:"store type (memory or postgres)" default:"memory" env:"HOLEPORTAL_STORE_TYPE" enum:"memory,postgres"`
	PostgresStore PostgresStoreFlags `embed:"" prefix:"postgres-"`
}

func (c *ServeCmd) Run(ctx context.Context, globals *Globals) error {
	log.Info().Str("version", globals.Version).Bool("debug", globals.Debug).Msg("Starting server")

	// Setup telemetry if enabled
	if c.Tracing {
		log.Info().Msg("Tracing is enabled")
		shutdown, err := telemetry.InitTelemetry(ctx, telemetry.Options{
			ServiceName: "holeportal-server",
			Version:     globals.Version,
			SampleRatio: c.SampleRatio,
		})
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize telemetry, continuing without metrics")
			shutdown = func(ctx context.Context) error { return nil }
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("Failed to shutdown telemetry")
			}
		}()
	}

	secret, err := c.jwtSecret(globals.Debug)
	if err != nil {
		return err
	}
	issuer, err := auth.NewIssuer(secret, c.TokenTTL)
	if err != nil {
		return err
	}
	verifier, err := auth.NewVerifier(secret)
	if err != nil {
		return err
	}

	stores, closeStores, err := c.openStores(ctx)
	if err != nil {
		return err
	}
	defer closeStores()

	if c.SeedEmail != "" {
		if c.SeedPassword == "" {
			return errors.New("seed password is required with --seed-email (--seed-password or HOLEPORTAL_SEED_PASSWORD)")
		}
		if err := server.Seed(ctx, stores, c.SeedEmail, c.SeedPassword); err != nil {
			return err
		}
	}

	// Page bundles are built on the first page load
	assetsCfg := assets.DefaultConfig()
	assetsCfg.BaseDir = c.AssetsDir
	assetsCfg.Minify = !globals.Debug
	pipeline, err := assets.New(assetsCfg)
	if err != nil {
		return fmt.Errorf("failed to load assets pipeline: %w", err)
	}

	srv, err := server.NewServer(server.Config{
		Stores:   stores,
		Issuer:   issuer,
		Verifier: verifier,
		Pipeline: pipeline,

		RateLimit: c.RateLimit,
	})
	if err != nil {
		return err
	}

	handler, err := c.handler(srv.Handler(log.Logger))
	if err != nil {
		return err
	}
	if c.Tracing {
		handler = otelhttp.NewHandler(handler, "holeportal-server")
	}

	return c.listenAndServe(ctx, configureHTTPServer(c.Listen, handler))
}

// jwtSecret returns the configured secret. Debug mode without one gets a
// random secret, so tokens do not survive a restart.
func (c *ServeCmd) jwtSecret(debug bool) ([]byte, error) {
	if c.JWTSecret != "" {
		if len(c.JWTSecret) < 32 {
			return nil, auth.ErrSecretTooShort
		}
		return []byte(c.JWTSecret), nil
	}
	if !debug {
		return nil, errors.New("token signing secret is required (--jwt-secret or HOLEPORTAL_JWT_SECRET)")
	}

	log.Warn().Msg("No JWT secret configured, generating a random one (debug only)")
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("failed to generate JWT secret: %w", err)
	}
	return secret, nil
}

func (c *ServeCmd) openStores(ctx context.Context) (store.Stores, func(), error) {
	switch c.StoreType {
	case "postgres":
		pool, err := c.PostgresStore.openPool(ctx)
		if err != nil {
			return store.Stores{}, nil, err
		}
		log.Info().Bool("auto_migrate", c.PostgresStore.AutoMigrate).Msg("Using PostgreSQL stores with shared connection pool")
		return postgresstore.NewStores(pool), pool.Close, nil

	default:
		log.Info().Msg("Using in-memory stores")
		return memorystore.NewStores(), func() {}, nil
	}
}

// handler applies CORS to API routes, cross-origin protection to pages and
// security headers and response compression to everything.
func (c *ServeCmd) handler(app http.Handler) (http.Handler, error) {
	// CSRF protection for HTML pages (not applied to API routes)
	protection := csrf.New()

	api := withCORS(c.CORSOrigins, app)
	pages := protection.Handler(app)

	routed := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isAPIRoute(r.URL.Path) {
			api.ServeHTTP(w, r)
			return
		}
		pages.ServeHTTP(w, r)
	})

	compress, err := gzhttp.NewWrapper(gzhttp.MinSize(1024))
	if err != nil {
		return nil, fmt.Errorf("failed to create compression wrapper: %w", err)
	}

	return compress(httpmiddleware.SecurityHeadersMiddleware()(routed)), nil
}

func (c *ServeCmd) listenAndServe(ctx context.Context, httpServer *http.Server) error {
	errCh := make(chan error, 1)

	go func() {
		if c.Cert != "" || c.Key != "" {
			log.Info().Str("addr", c.Listen).Msg("Starting HTTPS server")
			errCh <- httpServer.ListenAndServeTLS(c.Cert, c.Key)
			return
		}
		log.Info().Str("addr", c.Listen).Msg("Starting HTTP server")
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), c.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// isAPIRoute returns true if the path is an API route that needs CORS instead of CSRF
func isAPIRoute(path string) bool {
	return strings.HasPrefix(path, "/api/")
}

// withCORS adds CORS support to the JSON API.
func withCORS(allowedOrigins []string, h http.Handler) http.Handler {
	middleware := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "Accept", logger.RequestIDHeader},
		ExposedHeaders:   []string{logger.RequestIDHeader},
		AllowCredentials: true, // Required for cookie-based authentication
		MaxAge:           600,
	})
	return middleware.Handler(h)
}
