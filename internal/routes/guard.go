package routes

import (
	"context"
	"fmt"
)

// Decision is the outcome of evaluating the guard for a navigation.
type Decision struct {
	Proceed  bool
	Redirect string
}

// Guard decides whether a navigation to route may proceed. Protected routes
// redirect to LoginPath when the caller is not authenticated, every other
// navigation proceeds unmodified.
func Guard(route *Route, authenticated bool) Decision {
	if route != nil && route.RequiresAuth && !authenticated {
		return Decision{Redirect: LoginPath}
	}
	return Decision{Proceed: true}
}

// Navigation describes a committed navigation.
type Navigation struct {
	Requested  string
	Route      *Route
	Redirected bool
	View       View
}

// Navigator resolves paths against a table and applies the guard on every
// navigation. Authenticated is consulted fresh each time.
type Navigator struct {
	Table         *Table
	Authenticated func() bool
}

// Navigate resolves path, evaluates the guard and loads the view of the
// route the navigation ends on. The view of a protected route is never
// loaded while the guard redirects.
func (n *Navigator) Navigate(ctx context.Context, path string) (*Navigation, error) {
	route, ok := n.Table.Lookup(path)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRouteNotFound, path)
	}

	nav := &Navigation{Requested: path, Route: route}

	decision := Guard(route, n.authenticated())
	if !decision.Proceed {
		target, ok := n.Table.Lookup(decision.Redirect)
		if !ok {
			return nil, fmt.Errorf("%w: redirect target %s", ErrRouteNotFound, decision.Redirect)
		}
		nav.Route = target
		nav.Redirected = true
	}

	view, err := nav.Route.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load view %s: %w", nav.Route.Name, err)
	}
	nav.View = view

	return nav, nil
}

func (n *Navigator) authenticated() bool {
	if n.Authenticated == nil {
		return false
	}
	return n.Authenticated()
}
