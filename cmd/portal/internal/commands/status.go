package commands

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/holeportal/cmd/portal/internal/tokenfile"
	"github.com/wolfeidau/holeportal/internal/client"
)

// StatusCmd prints the current session without revealing the token.
type StatusCmd struct {
	Verify bool `help:"Ask the server whether the token is still accepted" default:"false"`

	out io.Writer
}

func (c *StatusCmd) Run(ctx context.Context, globals *Globals) error {
	p, err := globals.open()
	if err != nil {
		return err
	}
	w := writer(c.out)

	_, _ = fmt.Fprintf(w, "Server:       %s\n", p.config.ServerURL)
	_, _ = fmt.Fprintf(w, "Session file: %s\n", p.tokens.Path())

	if !p.session.IsAuthenticated() {
		_, _ = fmt.Fprintln(w, "Status:       not logged in")
		return nil
	}

	token := p.session.Token()
	_, _ = fmt.Fprintln(w, "Status:       logged in")
	_, _ = fmt.Fprintf(w, "Fingerprint:  %s\n", tokenfile.Fingerprint(token))

	if expires, ok := tokenExpiry(token); ok {
		state := "valid"
		if time.Now().After(expires) {
			state = "expired"
		}
		_, _ = fmt.Fprintf(w, "Expires:      %s (%s)\n", expires.Local().Format(time.RFC3339), state)
	}

	if c.Verify {
		me, err := p.api.Me(ctx)
		switch {
		case err == nil:
			_, _ = fmt.Fprintf(w, "Account:      %s\n", me.Email)
		case client.IsUnauthorized(err):
			_, _ = fmt.Fprintln(w, "Account:      token rejected by server, run portal login")
		default:
			return fmt.Errorf("failed to verify session: %w", err)
		}
	}

	return nil
}

// tokenExpiry reads the exp claim without verifying the signature; the
// client has no key and only reports what the token claims.
func tokenExpiry(token string) (time.Time, bool) {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		log.Debug().Err(err).Msg("Session token is not a JWT")
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
