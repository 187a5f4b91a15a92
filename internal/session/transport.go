package session

import (
	"net/http"

	"golang.org/x/oauth2"
)

// Transport returns a RoundTripper that authorizes requests sent through
// base with the session token. A request that already carries an
// Authorization header is sent unchanged.
func (s *Store) Transport(base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return &transport{store: s, base: base}
}

type transport struct {
	store *Store
	base  http.RoundTripper
}

func (t *transport) RoundTrip(req *http.Request) (*http.Response, error) {
	token := t.store.installedToken()
	if token == "" || req.Header.Get("Authorization") != "" {
		return t.base.RoundTrip(req)
	}

	// oauth2.Transport clones req before setting the header
	rt := &oauth2.Transport{
		Source: oauth2.StaticTokenSource(bearer(token)),
		Base:   t.base,
	}
	return rt.RoundTrip(req)
}
