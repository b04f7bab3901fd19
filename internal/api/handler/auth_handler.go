package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/medtrack/careportal/internal/core/domain"
	"github.com/medtrack/careportal/internal/core/ports"
)

// AuthHandler serves the login form, the second-factor form and logout.
type AuthHandler struct {
	sessions ports.SessionService
	paths    domain.GuardPaths
}

func NewAuthHandler(sessions ports.SessionService, paths domain.GuardPaths) *AuthHandler {
	return &AuthHandler{sessions: sessions, paths: paths}
}

type loginRequest struct {
	Username string `json:"username" form:"username" validate:"required,max=150"`
	Password string `json:"password" form:"password" validate:"required"`
}

type twoFactorRequest struct {
	Code     string `json:"code" form:"code" validate:"required,numeric,len=6"`
	Token2FA string `json:"token_2fa,omitempty" form:"token_2fa"`
}

type loginResponse struct {
	Success           bool   `json:"success"`
	Message           string `json:"message,omitempty"`
	RequiresTwoFactor bool   `json:"requires_2fa,omitempty"`
	Username          string `json:"username,omitempty"`
	Redirect          string `json:"redirect,omitempty"`
}

type loginPageView struct {
	Page             string `json:"page"`
	TwoFactorPending bool   `json:"two_factor_pending"`
	Username         string `json:"username,omitempty"`
}

// LoginPage describes the login page.
//
// @Summary      Login page
// @Tags         auth
// @Produce      json
// @Success      200  {object}  loginPageView
// @Success      302
// @Router       /login [get]
func (h *AuthHandler) LoginPage(c echo.Context) error {
	view := loginPageView{Page: "login"}
	if ticket, ok := h.sessions.PendingTicket(); ok {
		view.TwoFactorPending = true
		view.Username = ticket.Username
	}
	return c.JSON(http.StatusOK, view)
}

// Login submits the login form.
//
// @Summary      Log in
// @Tags         auth
// @Accept       x-www-form-urlencoded
// @Produce      json
// @Param        username  formData  string  true  "Username"
// @Param        password  formData  string  true  "Password"
// @Success      200  {object}  loginResponse
// @Success      202  {object}  loginResponse  "second factor required"
// @Failure      401  {object}  loginResponse
// @Failure      422  {object}  loginResponse
// @Failure      502  {object}  loginResponse
// @Failure      503  {object}  loginResponse
// @Router       /login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, loginResponse{Message: "invalid payload"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, loginResponse{Message: err.Error()})
	}

	result := h.sessions.Login(c.Request().Context(), req.Username, req.Password)
	return h.respond(c, result)
}

// VerifyTwoFactor submits the one-time code for a pending login.
//
// @Summary      Complete two-factor login
// @Tags         auth
// @Accept       x-www-form-urlencoded
// @Produce      json
// @Param        code       formData  string  true   "Six digit code"
// @Param        token_2fa  formData  string  false  "Temporary ticket, defaults to the pending one"
// @Success      200  {object}  loginResponse
// @Failure      401  {object}  loginResponse
// @Failure      422  {object}  loginResponse
// @Router       /login/2fa [post]
func (h *AuthHandler) VerifyTwoFactor(c echo.Context) error {
	var req twoFactorRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, loginResponse{Message: "invalid payload"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, loginResponse{Message: err.Error()})
	}

	ticket := domain.TwoFactorTicket{TempToken: req.Token2FA}
	result := h.sessions.CompleteTwoFactor(c.Request().Context(), ticket, req.Code)
	return h.respond(c, result)
}

// Logout ends the session and returns to the login page.
//
// @Summary      Log out
// @Tags         auth
// @Success      303
// @Router       /logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	h.sessions.Logout(c.Request().Context())
	return c.Redirect(http.StatusSeeOther, h.paths.Login)
}

// Me refetches the signed-in user. A failure signs the user out.
//
// @Summary      Current user
// @Tags         auth
// @Produce      json
// @Success      200  {object}  domain.UserRecord
// @Failure      401  {object}  errorResponse
// @Failure      502  {object}  errorResponse
// @Failure      503  {object}  errorResponse
// @Router       /api/me [get]
func (h *AuthHandler) Me(c echo.Context) error {
	user, err := h.sessions.RefreshCurrentUser(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

func (h *AuthHandler) respond(c echo.Context, result domain.LoginResult) error {
	switch {
	case result.Success:
		return c.JSON(http.StatusOK, loginResponse{Success: true, Redirect: h.paths.Landing})
	case result.RequiresTwoFactor():
		return c.JSON(http.StatusAccepted, loginResponse{
			Message:           result.Message,
			RequiresTwoFactor: true,
			Username:          result.TwoFactor.Username,
		})
	default:
		return c.JSON(statusForKind(result.Kind), loginResponse{Message: result.Message})
	}
}

func statusForKind(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindNetwork:
		return http.StatusServiceUnavailable
	case domain.KindServer:
		return http.StatusBadGateway
	default:
		return http.StatusUnauthorized
	}
}
