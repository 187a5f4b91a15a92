package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/holeportal/internal/client"
	"github.com/wolfeidau/holeportal/internal/routes"
)

// OpenCmd navigates to a portal page and renders it to the terminal.
type OpenCmd struct {
	Path string `arg:"" help:"Page path, e.g. /library" default:"/"`

	out io.Writer
}

func (c *OpenCmd) Run(ctx context.Context, globals *Globals) error {
	p, err := globals.open()
	if err != nil {
		return err
	}
	w := writer(c.out)

	nav := routes.Navigator{Table: p.table, Authenticated: p.session.IsAuthenticated}

	result, err := nav.Navigate(ctx, c.Path)
	if err != nil {
		return err
	}

	if result.Redirected {
		log.Debug().Str("requested", result.Requested).Str("route", result.Route.Name).Msg("Navigation redirected")
		_, _ = fmt.Fprintf(w, "%s requires login, showing %s\n\n", result.Requested, result.Route.Path)
	}

	if err := result.View.Render(ctx, w); err != nil {
		if client.IsUnauthorized(err) {
			return fmt.Errorf("session rejected by server, run portal login: %w", err)
		}
		return fmt.Errorf("failed to render %s: %w", result.Route.Name, err)
	}

	return nil
}
