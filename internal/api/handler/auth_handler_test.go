package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/medtrack/careportal/internal/core/domain"
)

type stubSessionService struct {
	snapshot  domain.Session
	loginFn   func(ctx context.Context, username, password string) domain.LoginResult
	verifyFn  func(ctx context.Context, ticket domain.TwoFactorTicket, code string) domain.LoginResult
	refreshFn func(ctx context.Context) (domain.UserRecord, error)
	pending   *domain.TwoFactorTicket
	loggedOut bool
}

func (s *stubSessionService) Snapshot() domain.Session { return s.snapshot }

func (s *stubSessionService) Login(ctx context.Context, username, password string) domain.LoginResult {
	return s.loginFn(ctx, username, password)
}

func (s *stubSessionService) CompleteTwoFactor(ctx context.Context, ticket domain.TwoFactorTicket, code string) domain.LoginResult {
	return s.verifyFn(ctx, ticket, code)
}

func (s *stubSessionService) ResumeTwoFactor(domain.TwoFactorTicket) error { return nil }

func (s *stubSessionService) Logout(context.Context) { s.loggedOut = true }

func (s *stubSessionService) Rehydrate(context.Context) error { return nil }

func (s *stubSessionService) RefreshCurrentUser(ctx context.Context) (domain.UserRecord, error) {
	return s.refreshFn(ctx)
}

func (s *stubSessionService) Invalidate(context.Context, string, string) {}

func (s *stubSessionService) PendingTicket() (domain.TwoFactorTicket, bool) {
	if s.pending == nil {
		return domain.TwoFactorTicket{}, false
	}
	return *s.pending, true
}

func newFormContext(target string, form url.Values) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = NewValidator()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func decodeLogin(t *testing.T, rec *httptest.ResponseRecorder) loginResponse {
	t.Helper()
	var resp loginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	return resp
}

func TestAuthHandler_Login_Success(t *testing.T) {
	stub := &stubSessionService{
		loginFn: func(_ context.Context, username, password string) domain.LoginResult {
			if username != "alice" || password != "secret" {
				t.Fatalf("unexpected args: %s %s", username, password)
			}
			return domain.LoginResult{Success: true}
		},
	}
	h := NewAuthHandler(stub, domain.DefaultGuardPaths)

	c, rec := newFormContext("/login", url.Values{"username": {"alice"}, "password": {"secret"}})
	if err := h.Login(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if resp := decodeLogin(t, rec); !resp.Success || resp.Redirect != "/home" {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestAuthHandler_Login_Failure(t *testing.T) {
	cases := []struct {
		kind domain.ErrorKind
		want int
	}{
		{domain.KindUnauthorized, http.StatusUnauthorized},
		{domain.KindValidation, http.StatusUnauthorized},
		{domain.KindServer, http.StatusBadGateway},
		{domain.KindNetwork, http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		stub := &stubSessionService{
			loginFn: func(context.Context, string, string) domain.LoginResult {
				return domain.Failed(tc.kind, "")
			},
		}
		h := NewAuthHandler(stub, domain.DefaultGuardPaths)

		c, rec := newFormContext("/login", url.Values{"username": {"alice"}, "password": {"wrong"}})
		_ = h.Login(c)

		if rec.Code != tc.want {
			t.Fatalf("%s: expected %d, got %d", tc.kind, tc.want, rec.Code)
		}
		if resp := decodeLogin(t, rec); resp.Success || resp.Message != "Login failed" {
			t.Fatalf("%s: unexpected response %+v", tc.kind, resp)
		}
	}
}

func TestAuthHandler_Login_TwoFactor(t *testing.T) {
	stub := &stubSessionService{
		loginFn: func(context.Context, string, string) domain.LoginResult {
			return domain.LoginResult{
				Message:   "Two-factor code required",
				TwoFactor: &domain.TwoFactorTicket{TempToken: "tmp", Username: "alice"},
			}
		},
	}
	h := NewAuthHandler(stub, domain.DefaultGuardPaths)

	c, rec := newFormContext("/login", url.Values{"username": {"alice"}, "password": {"secret"}})
	_ = h.Login(c)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
	resp := decodeLogin(t, rec)
	if !resp.RequiresTwoFactor || resp.Username != "alice" {
		t.Fatalf("unexpected response %+v", resp)
	}
	if strings.Contains(rec.Body.String(), "tmp") {
		t.Fatalf("temporary token must not leak to the page")
	}
}

func TestAuthHandler_Login_Validation(t *testing.T) {
	stub := &stubSessionService{
		loginFn: func(context.Context, string, string) domain.LoginResult {
			t.Fatalf("should not be called")
			return domain.LoginResult{}
		},
	}
	h := NewAuthHandler(stub, domain.DefaultGuardPaths)

	c, rec := newFormContext("/login", url.Values{"username": {"alice"}})
	_ = h.Login(c)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
	if resp := decodeLogin(t, rec); resp.Message != "password is required" {
		t.Fatalf("unexpected message %q", resp.Message)
	}
}

func TestAuthHandler_VerifyTwoFactor(t *testing.T) {
	stub := &stubSessionService{
		verifyFn: func(_ context.Context, ticket domain.TwoFactorTicket, code string) domain.LoginResult {
			if ticket.TempToken != "" || code != "123456" {
				t.Fatalf("unexpected args: %+v %s", ticket, code)
			}
			return domain.LoginResult{Success: true}
		},
	}
	h := NewAuthHandler(stub, domain.DefaultGuardPaths)

	c, rec := newFormContext("/login/2fa", url.Values{"code": {"123456"}})
	_ = h.VerifyTwoFactor(c)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestAuthHandler_VerifyTwoFactor_BadCode(t *testing.T) {
	stub := &stubSessionService{
		verifyFn: func(context.Context, domain.TwoFactorTicket, string) domain.LoginResult {
			t.Fatalf("should not be called")
			return domain.LoginResult{}
		},
	}
	h := NewAuthHandler(stub, domain.DefaultGuardPaths)

	c, rec := newFormContext("/login/2fa", url.Values{"code": {"12ab"}})
	_ = h.VerifyTwoFactor(c)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
}

func TestAuthHandler_LoginPage_Pending(t *testing.T) {
	stub := &stubSessionService{pending: &domain.TwoFactorTicket{TempToken: "tmp", Username: "alice"}}
	h := NewAuthHandler(stub, domain.DefaultGuardPaths)

	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/login", nil), rec)
	if err := h.LoginPage(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var view loginPageView
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if !view.TwoFactorPending || view.Username != "alice" {
		t.Fatalf("unexpected view %+v", view)
	}
}

func TestAuthHandler_Logout(t *testing.T) {
	stub := &stubSessionService{}
	h := NewAuthHandler(stub, domain.DefaultGuardPaths)

	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/logout", nil), rec)
	if err := h.Logout(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	if !stub.loggedOut {
		t.Fatalf("expected Logout to be called")
	}
	if rec.Code != http.StatusSeeOther || rec.Header().Get(echo.HeaderLocation) != "/login" {
		t.Fatalf("expected 303 to /login, got %d", rec.Code)
	}
}

func TestAuthHandler_Me_Error(t *testing.T) {
	stub := &stubSessionService{
		refreshFn: func(context.Context) (domain.UserRecord, error) {
			return domain.UserRecord{}, &domain.APIError{Kind: domain.KindUnauthorized, Status: 401}
		},
	}
	h := NewAuthHandler(stub, domain.DefaultGuardPaths)

	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/me", nil), httptest.NewRecorder())
	if err := h.Me(c); err == nil {
		t.Fatalf("expected the refresh error to reach the error handler")
	}
}
