package routes

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"
)

type contextKey int

const routeContextKey contextKey = iota

// RouteFromContext returns the route matched by Middleware.
func RouteFromContext(ctx context.Context) (*Route, bool) {
	r, ok := ctx.Value(routeContextKey).(*Route)
	return r, ok
}

// Middleware applies the guard to HTTP navigations. Requests for paths that
// are not in the table pass through untouched. Protected routes redirect to
// the login page when authenticated reports false, otherwise the matched
// route is stored in the request context for the next handler.
func Middleware(table *Table, authenticated func(*http.Request) bool, onRedirect ...func(*http.Request, *Route)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			route, ok := table.Lookup(r.URL.Path)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			decision := Guard(route, authenticated != nil && authenticated(r))
			if !decision.Proceed {
				log.Debug().Str("path", r.URL.Path).Str("route", route.Name).Msg("Unauthenticated navigation, redirecting to login")
				for _, fn := range onRedirect {
					fn(r, route)
				}
				http.Redirect(w, r, decision.Redirect, http.StatusFound)
				return
			}

			ctx := context.WithValue(r.Context(), routeContextKey, route)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
