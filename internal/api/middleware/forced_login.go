package middleware

import (
	"sync/atomic"

	"github.com/labstack/echo/v4"

	"github.com/medtrack/careportal/internal/core/domain"
	"github.com/medtrack/careportal/internal/pkg/metrics"
)

// LoginRedirector is the portal's ports.Navigator. The backend client raises
// it when a 401 invalidates the session; the next page navigation consumes it
// and lands on the login page.
type LoginRedirector struct {
	pending atomic.Bool
}

func NewLoginRedirector() *LoginRedirector {
	return &LoginRedirector{}
}

// ToLogin requests a redirect to the login page. Repeated requests before the
// next navigation collapse into one.
func (r *LoginRedirector) ToLogin() {
	r.pending.Store(true)
}

// Pending reports whether a forced redirect is waiting.
func (r *LoginRedirector) Pending() bool {
	return r.pending.Load()
}

func (r *LoginRedirector) take() bool {
	return r.pending.CompareAndSwap(true, false)
}

// ForcedLogin consumes a pending forced redirect. Navigations to the login
// page itself clear the flag and proceed.
func ForcedLogin(r *LoginRedirector, paths domain.GuardPaths) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !r.take() {
				return next(c)
			}
			if c.Request().URL.Path == paths.Login {
				return next(c)
			}
			metrics.GuardRedirectsTotal.WithLabelValues("forced_login").Inc()
			return redirect(c, paths.Login)
		}
	}
}
