// Package views provides the terminal rendition of the portal pages.
package views

import (
	"context"
	"embed"
	"fmt"
	"io"
	"text/template"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/holeportal/internal/client"
	"github.com/wolfeidau/holeportal/internal/routes"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

var funcs = template.FuncMap{
	"mm": func(v *float64) string {
		if v == nil {
			return "-"
		}
		return fmt.Sprintf("%.1f mm", *v)
	},
	"date": func(t time.Time) string {
		return t.Local().Format("2006-01-02 15:04")
	},
}

// dataFunc fetches the data a view renders, on every render.
type dataFunc func(ctx context.Context) (any, error)

// Loaders returns a loader per portal route. Protected views fetch their
// data through api on each render.
func Loaders(api *client.API) routes.Loaders {
	return routes.Loaders{
		Home:  loader("home", nil),
		About: loader("about", nil),
		Library: loader("library", func(ctx context.Context) (any, error) {
			return api.Library(ctx)
		}),
		Orders: loader("orders", func(ctx context.Context) (any, error) {
			return api.Orders(ctx)
		}),
		Login: loader("login", nil),
	}
}

// loader parses the named template when the route is first visited.
func loader(name string, data dataFunc) routes.Loader {
	return func(ctx context.Context) (routes.View, error) {
		file := name + ".tmpl"
		tmpl, err := template.New(file).Funcs(funcs).ParseFS(templatesFS, "templates/"+file)
		if err != nil {
			return nil, fmt.Errorf("failed to parse view %s: %w", name, err)
		}

		log.Debug().Str("view", name).Msg("Loaded view")

		return routes.ViewFunc(func(ctx context.Context, w io.Writer) error {
			var v any
			if data != nil {
				fetched, err := data(ctx)
				if err != nil {
					return err
				}
				v = fetched
			}
			return tmpl.Execute(w, v)
		}), nil
	}
}
