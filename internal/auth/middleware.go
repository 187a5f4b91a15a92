package auth

import (
	"net/http"

	"github.com/rs/zerolog/log"
	httpmiddleware "github.com/wolfeidau/holeportal/internal/http"
	"github.com/wolfeidau/holeportal/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Middleware returns an HTTP middleware that requires a valid token.
// Unauthenticated requests get 401 with a JSON detail body.
func (v *Verifier) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, err := v.Authenticate(r)
			if err != nil {
				log.Debug().Err(err).Str("path", r.URL.Path).Msg("Rejected unauthenticated request")
				telemetry.GetMetrics().UnauthorizedTotal.Add(r.Context(), 1,
					metric.WithAttributes(attribute.String("path", r.URL.Path)))
				w.Header().Set("WWW-Authenticate", `Bearer realm="holeportal"`)
				WriteDetail(w, http.StatusUnauthorized, "not authenticated")
				return
			}

			log.Debug().
				Str("user_id", principal.UserID.String()).
				Msg("Authenticated request")

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
		})
	}
}

// RequireRoles returns a middleware that admits principals holding at least
// one of roles. It must run after Middleware; a missing principal is a 401
// and a principal without a matching role is a 403.
func RequireRoles(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := PrincipalFromContext(r.Context())
			if principal == nil {
				WriteDetail(w, http.StatusUnauthorized, "not authenticated")
				return
			}
			if !principal.HasAnyRole(roles...) {
				log.Info().
					Str("user_id", principal.UserID.String()).
					Strs("required", roles).
					Str("path", r.URL.Path).
					Msg("Rejected request without required role")
				WriteDetail(w, http.StatusForbidden, "role not authorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// OptionalMiddleware attaches the principal when the request carries a valid
// token and passes every request through.
func (v *Verifier) OptionalMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if principal, err := v.Authenticate(r); err == nil {
				r = r.WithContext(WithPrincipal(r.Context(), principal))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WriteDetail writes {"detail": detail} with the given status.
func WriteDetail(w http.ResponseWriter, status int, detail string) {
	httpmiddleware.WriteJSON(w, status, map[string]string{"detail": detail})
}
