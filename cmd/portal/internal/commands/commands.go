package commands

import (
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/holeportal/cmd/portal/internal/tokenfile"
	"github.com/wolfeidau/holeportal/internal/client"
	"github.com/wolfeidau/holeportal/internal/routes"
	"github.com/wolfeidau/holeportal/internal/session"
	"github.com/wolfeidau/holeportal/internal/views"
)

type Globals struct {
	Debug     bool          `help:"Enable debug mode."`
	Server    string        `help:"Portal server URL (default from config.yaml, then http://localhost:8080)" env:"PORTAL_SERVER_URL"`
	Timeout   time.Duration `help:"HTTP timeout (default from config.yaml, then 30s)" env:"PORTAL_TIMEOUT"`
	ConfigDir string        `help:"Directory holding config.yaml and the session file (default: ~/.holeportal)" env:"PORTAL_CONFIG_DIR"`
	CacheDir  string        `help:"Directory for the HTTP response cache, kept in memory when unset" env:"PORTAL_CACHE_DIR"`
	Version   string        `kong:"-"`
}

// portal is the wired client side: the session store backed by the token
// file, the API client authorized by the session, and the route table.
type portal struct {
	config  client.Config
	tokens  *tokenfile.Store
	session *session.Store
	api     *client.API
	table   *routes.Table
}

// clientConfig resolves flags, then config.yaml, then defaults.
func (g *Globals) clientConfig() (client.Config, string, error) {
	dir := g.ConfigDir
	if dir == "" {
		d, err := tokenfile.DefaultDir()
		if err != nil {
			return client.Config{}, "", err
		}
		dir = d
	}

	fileCfg, err := LoadFileConfig(dir)
	if err != nil {
		return client.Config{}, "", err
	}

	cfg := client.DefaultConfig()
	if fileCfg.ServerURL != "" {
		cfg.ServerURL = fileCfg.ServerURL
	}
	if fileCfg.Timeout > 0 {
		cfg.Timeout = time.Duration(fileCfg.Timeout)
	}
	if g.Server != "" {
		cfg.ServerURL = g.Server
	}
	if g.Timeout > 0 {
		cfg.Timeout = g.Timeout
	}
	cfg.CacheDir = g.CacheDir

	return cfg, dir, nil
}

func (g *Globals) open() (*portal, error) {
	cfg, dir, err := g.clientConfig()
	if err != nil {
		return nil, err
	}

	tokens, err := tokenfile.New(dir)
	if err != nil {
		return nil, err
	}

	// login is a POST and never cached
	sess, err := session.New(tokens,
		session.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
		session.WithEndpoint(session.LoginEndpoint(cfg.ServerURL)),
	)
	if err != nil {
		return nil, err
	}
	sess.Init()

	api, err := client.NewAPI(cfg.ServerURL, client.NewHTTPClient(cfg, sess.Transport))
	if err != nil {
		return nil, err
	}

	table, err := routes.Default(views.Loaders(api))
	if err != nil {
		return nil, fmt.Errorf("failed to build route table: %w", err)
	}

	log.Debug().
		Str("server", cfg.ServerURL).
		Dur("timeout", cfg.Timeout).
		Str("cache_dir", cfg.CacheDir).
		Bool("authenticated", sess.IsAuthenticated()).
		Msg("Portal client ready")

	return &portal{config: cfg, tokens: tokens, session: sess, api: api, table: table}, nil
}
