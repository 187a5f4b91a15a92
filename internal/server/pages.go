package server

import (
	"bytes"
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/holeportal/internal/auth"
	"github.com/wolfeidau/holeportal/internal/routes"
	"github.com/wolfeidau/holeportal/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// pageHandler serves the portal pages. The principal is attached when the
// request carries a valid token (header or cookie) and the route guard
// redirects protected pages to the login page otherwise.
func (s *Server) pageHandler() http.Handler {
	// OptionalMiddleware runs first, so a principal means a verified token
	authenticated := func(r *http.Request) bool {
		return auth.PrincipalFromContext(r.Context()) != nil
	}

	onRedirect := func(r *http.Request, route *routes.Route) {
		telemetry.GetMetrics().GuardRedirectsTotal.Add(
			r.Context(), 1,
			metric.WithAttributes(attribute.String("route", route.Name)),
		)
	}

	guard := routes.Middleware(s.pages, authenticated, onRedirect)

	return s.verifier.OptionalMiddleware()(guard(http.HandlerFunc(s.renderPage)))
}

func (s *Server) renderPage(w http.ResponseWriter, r *http.Request) {
	route, ok := routes.RouteFromContext(r.Context())
	if !ok {
		http.NotFound(w, r)
		return
	}

	metrics := telemetry.GetMetrics()
	attrs := metric.WithAttributes(attribute.String("route", route.Name))

	view, err := route.Load(r.Context())
	if err != nil {
		metrics.ViewLoadErrorsTotal.Add(r.Context(), 1, attrs)
		log.Error().Err(err).Str("route", route.Name).Msg("Failed to load page view")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := view.Render(r.Context(), &buf); err != nil {
		log.Error().Err(err).Str("route", route.Name).Msg("Failed to render page")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	metrics.PageViewsTotal.Add(r.Context(), 1, attrs)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = buf.WriteTo(w)
}
