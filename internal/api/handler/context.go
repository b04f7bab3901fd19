package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/medtrack/careportal/internal/api/middleware"
	"github.com/medtrack/careportal/internal/core/domain"
)

// ctxSession returns the session snapshot the navigation guard evaluated for
// this request. A route registered without the guard has none and is refused.
func ctxSession(c echo.Context) (domain.Session, error) {
	snap, ok := c.Get(middleware.SessionKey).(domain.Session)
	if !ok {
		return domain.Session{}, domain.ErrNotAuthenticated
	}
	return snap, nil
}
