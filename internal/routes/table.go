package routes

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidRoute is returned when a route is missing its path, name or loader.
	ErrInvalidRoute = errors.New("invalid route")

	// ErrDuplicateRoute is returned when two routes share a path or a name.
	ErrDuplicateRoute = errors.New("duplicate route")

	// ErrRouteNotFound is returned when no route matches a path or name.
	ErrRouteNotFound = errors.New("route not found")
)

// Table is an ordered, immutable set of routes keyed by path and by name.
type Table struct {
	routes []*Route
	paths  map[string]*Route
	names  map[string]*Route
}

// New validates the entries and builds a route table preserving their order.
func New(entries ...Route) (*Table, error) {
	t := &Table{
		routes: make([]*Route, 0, len(entries)),
		paths:  make(map[string]*Route, len(entries)),
		names:  make(map[string]*Route, len(entries)),
	}

	for _, e := range entries {
		if e.Path == "" || !strings.HasPrefix(e.Path, "/") {
			return nil, fmt.Errorf("%w: path %q must start with /", ErrInvalidRoute, e.Path)
		}
		if e.Name == "" {
			return nil, fmt.Errorf("%w: route %s has no name", ErrInvalidRoute, e.Path)
		}
		if e.Loader == nil {
			return nil, fmt.Errorf("%w: route %s has no loader", ErrInvalidRoute, e.Name)
		}

		path := normalize(e.Path)
		if _, ok := t.paths[path]; ok {
			return nil, fmt.Errorf("%w: path %s", ErrDuplicateRoute, path)
		}
		if _, ok := t.names[e.Name]; ok {
			return nil, fmt.Errorf("%w: name %s", ErrDuplicateRoute, e.Name)
		}

		r := &Route{
			Path:         path,
			Name:         e.Name,
			Loader:       e.Loader,
			RequiresAuth: e.RequiresAuth,
			lazy:         &lazyView{},
		}

		t.routes = append(t.routes, r)
		t.paths[path] = r
		t.names[r.Name] = r
	}

	return t, nil
}

// Lookup resolves a requested path to exactly one route using an exact match.
// Query strings, fragments and a trailing slash are ignored.
func (t *Table) Lookup(path string) (*Route, bool) {
	r, ok := t.paths[normalize(path)]
	return r, ok
}

// ByName returns the route registered under name.
func (t *Table) ByName(name string) (*Route, bool) {
	r, ok := t.names[name]
	return r, ok
}

// Routes returns the routes in declaration order.
func (t *Table) Routes() []*Route {
	out := make([]*Route, len(t.routes))
	copy(out, t.routes)
	return out
}

func normalize(path string) string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	if path == "" {
		return "/"
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
		if path == "" {
			return "/"
		}
	}
	return path
}
