package routes

// Paths of the portal navigation surface.
const (
	HomePath    = "/"
	AboutPath   = "/about"
	LibraryPath = "/library"
	OrdersPath  = "/orders"
	LoginPath   = "/login"
)

// Loaders supplies the view loader for each named portal route.
type Loaders struct {
	Home    Loader
	About   Loader
	Library Loader
	Orders  Loader
	Login   Loader
}

// Default builds the portal route table: home, about, library, orders and
// login, where only library and orders require authentication.
func Default(l Loaders) (*Table, error) {
	return New(
		Route{Path: HomePath, Name: "home", Loader: l.Home},
		Route{Path: AboutPath, Name: "about", Loader: l.About},
		Route{Path: LibraryPath, Name: "library", Loader: l.Library, RequiresAuth: true},
		Route{Path: OrdersPath, Name: "orders", Loader: l.Orders, RequiresAuth: true},
		Route{Path: LoginPath, Name: "login", Loader: l.Login},
	)
}
