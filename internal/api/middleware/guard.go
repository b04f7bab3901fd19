package middleware

import (
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"

	"github.com/medtrack/careportal/internal/core/domain"
	"github.com/medtrack/careportal/internal/core/ports"
	"github.com/medtrack/careportal/internal/core/service"
	"github.com/medtrack/careportal/internal/pkg/metrics"
)

// SessionKey is the echo context key under which Guard stores the session
// snapshot it evaluated.
const SessionKey = "session"

// Guard runs the navigation guard for target before the route handler.
// Denied navigations are redirected; allowed ones see the evaluated session
// snapshot under SessionKey.
func Guard(sessions ports.SessionReader, target domain.Route, paths domain.GuardPaths) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			snap := sessions.Snapshot()
			decision := service.EvaluateNavigation(target, currentRoute(c), snap, paths)
			if !decision.Allow {
				metrics.GuardRedirectsTotal.WithLabelValues(decision.Reason).Inc()
				return redirect(c, decision.Redirect)
			}

			c.Set(SessionKey, snap)
			return next(c)
		}
	}
}

// currentRoute is the page the browser navigates from, taken from the
// Referer header when it points at this host.
func currentRoute(c echo.Context) domain.Route {
	ref := c.Request().Referer()
	if ref == "" {
		return domain.Route{}
	}
	u, err := url.Parse(ref)
	if err != nil || (u.Host != "" && u.Host != c.Request().Host) {
		return domain.Route{}
	}
	return domain.Route{Path: u.Path}
}

// redirect uses 302 for page loads and 303 for form posts so the browser
// follows up with a GET.
func redirect(c echo.Context, to string) error {
	code := http.StatusFound
	if c.Request().Method != http.MethodGet && c.Request().Method != http.MethodHead {
		code = http.StatusSeeOther
	}
	return c.Redirect(code, to)
}
