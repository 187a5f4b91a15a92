package routes

import (
	"context"
	"io"
	"sync"
)

// View is a materialized view unit that can be rendered for a navigation.
type View interface {
	Render(ctx context.Context, w io.Writer) error
}

// ViewFunc adapts a function to the View interface.
type ViewFunc func(ctx context.Context, w io.Writer) error

// Render calls f(ctx, w).
func (f ViewFunc) Render(ctx context.Context, w io.Writer) error {
	return f(ctx, w)
}

// Loader produces the view unit for a route. It is only invoked when the
// route is first visited.
type Loader func(ctx context.Context) (View, error)

// Route binds a path and a name to a lazily loaded view.
type Route struct {
	Path         string
	Name         string
	Loader       Loader
	RequiresAuth bool

	// state shared by copies held in the table
	lazy *lazyView
}

type lazyView struct {
	mu   sync.Mutex
	view View
}

// Load returns the route's view, running the loader on first use.
// A failed load is not cached, the next navigation will try again.
func (r *Route) Load(ctx context.Context) (View, error) {
	if r.lazy == nil {
		// route built outside a Table, nothing to memoize into
		return r.Loader(ctx)
	}

	r.lazy.mu.Lock()
	defer r.lazy.mu.Unlock()

	if r.lazy.view != nil {
		return r.lazy.view, nil
	}

	view, err := r.Loader(ctx)
	if err != nil {
		return nil, err
	}

	r.lazy.view = view
	return view, nil
}

// Loaded reports whether the view has already been materialized.
func (r *Route) Loaded() bool {
	if r.lazy == nil {
		return false
	}
	r.lazy.mu.Lock()
	defer r.lazy.mu.Unlock()
	return r.lazy.view != nil
}
