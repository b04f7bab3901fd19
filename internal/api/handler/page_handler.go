package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/medtrack/careportal/internal/core/domain"
)

// BackendChecker is the backend status call behind the API data page.
type BackendChecker interface {
	Check(ctx context.Context) (json.RawMessage, error)
}

// PageHandler renders the signed-in portal pages.
type PageHandler struct {
	backend BackendChecker
}

func NewPageHandler(backend BackendChecker) *PageHandler {
	return &PageHandler{backend: backend}
}

var dashboardTitles = map[domain.Role]string{
	domain.RolePatient:      "Patient dashboard",
	domain.RoleMantelzorger: "Mantelzorger dashboard",
	domain.RoleZorgverlener: "Zorgverlener dashboard",
}

// Home is the landing page every signed-in role can see.
//
// @Summary      Home page
// @Tags         pages
// @Produce      json
// @Success      200  {object}  pageView
// @Success      302
// @Router       /home [get]
func (h *PageHandler) Home(c echo.Context) error {
	snap, err := ctxSession(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pageView{
		Page:  "home",
		Title: "Home",
		User:  snap.User,
		Data:  map[string]string{"dashboard": dashboardPath(snap.Role())},
	})
}

// Dashboard returns the handler for role's dashboard. The guard has already
// checked that the user holds role.
//
// @Summary      Role dashboard
// @Tags         pages
// @Produce      json
// @Success      200  {object}  pageView
// @Success      302
// @Router       /patient/dashboard [get]
// @Router       /mantelzorger/dashboard [get]
// @Router       /zorgverlener/dashboard [get]
func (h *PageHandler) Dashboard(role domain.Role) echo.HandlerFunc {
	title := dashboardTitles[role]
	return func(c echo.Context) error {
		snap, err := ctxSession(c)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, pageView{
			Page:  string(role) + "_dashboard",
			Title: title,
			User:  snap.User,
		})
	}
}

// APIData shows the backend status fetched with the user's token. A 401 from
// the backend has already invalidated the session by the time the error
// reaches the error handler.
//
// @Summary      Backend data page
// @Tags         pages
// @Produce      json
// @Success      200  {object}  pageView
// @Failure      401  {object}  errorResponse
// @Failure      503  {object}  errorResponse
// @Router       /api-data [get]
func (h *PageHandler) APIData(c echo.Context) error {
	snap, err := ctxSession(c)
	if err != nil {
		return err
	}
	data, err := h.backend.Check(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pageView{Page: "api_data", Title: "API data", User: snap.User, Data: data})
}

// NotFound renders the catch-all page.
func (h *PageHandler) NotFound(c echo.Context) error {
	return c.JSON(http.StatusNotFound, pageView{Page: "not_found", Title: "Page not found"})
}

// Root sends the bare app path to the landing page.
func (h *PageHandler) Root(landing string) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.Redirect(http.StatusFound, landing)
	}
}

func dashboardPath(role domain.Role) string {
	if _, ok := dashboardTitles[role]; !ok {
		return ""
	}
	return "/" + string(role) + "/dashboard"
}
