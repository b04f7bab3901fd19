package service

import "github.com/medtrack/careportal/internal/core/domain"

// Redirect reasons reported by EvaluateNavigation.
const (
	ReasonUnauthenticated      = "unauthenticated"
	ReasonAlreadyAuthenticated = "already_authenticated"
	ReasonRoleMismatch         = "role_mismatch"
)

// EvaluateNavigation decides a route transition from the current session and
// the target's declared metadata. Rules are checked in order and the first
// match wins:
//
//  1. target requires auth and the session is not authenticated → login
//  2. target is the login page and the session is authenticated → landing
//  3. target declares a role other than the user's → landing
//  4. otherwise allow
//
// The current route is accepted for symmetry with router hooks but does not
// influence the outcome.
func EvaluateNavigation(target, _ domain.Route, session domain.Session, paths domain.GuardPaths) domain.NavigationDecision {
	authenticated := session.Authenticated()

	switch {
	case target.Meta.RequiresAuth && !authenticated:
		return domain.NavigationDecision{Redirect: paths.Login, Reason: ReasonUnauthenticated}
	case target.Path == paths.Login && authenticated:
		return domain.NavigationDecision{Redirect: paths.Landing, Reason: ReasonAlreadyAuthenticated}
	case target.Meta.Role != "" && target.Meta.Role != session.Role():
		return domain.NavigationDecision{Redirect: paths.Landing, Reason: ReasonRoleMismatch}
	default:
		return domain.NavigationDecision{Allow: true}
	}
}
