package domain

import "strings"

// RouteMeta is the static access declaration attached to a navigable route.
// It is fixed when the route table is built and never changes at runtime.
type RouteMeta struct {
	RequiresAuth bool
	// Role, when set, is the only role allowed on the route.
	Role Role
}

// Route is one entry of the route table as seen by the navigation guard.
type Route struct {
	Path string
	Name string
	Meta RouteMeta
}

// Child returns a route nested under r. The child requires authentication
// whenever its parent does; the required role is the child's own.
func (r Route) Child(path, name string, meta RouteMeta) Route {
	return Route{
		Path: joinPath(r.Path, path),
		Name: name,
		Meta: RouteMeta{
			RequiresAuth: r.Meta.RequiresAuth || meta.RequiresAuth,
			Role:         meta.Role,
		},
	}
}

func joinPath(parent, child string) string {
	parent = strings.Trim(parent, "/")
	child = strings.Trim(child, "/")
	switch {
	case parent == "":
		return "/" + child
	case child == "":
		return "/" + parent
	default:
		return "/" + parent + "/" + child
	}
}

// GuardPaths names the two well-known destinations of the navigation guard.
type GuardPaths struct {
	Login   string
	Landing string
}

// DefaultGuardPaths are the login entry point and the default landing route.
var DefaultGuardPaths = GuardPaths{Login: "/login", Landing: "/home"}

// NavigationDecision is the outcome of evaluating the guard for one transition.
type NavigationDecision struct {
	Allow    bool
	Redirect string
	// Reason is a short machine label, e.g. "unauthenticated" or "role_mismatch".
	Reason string
}
