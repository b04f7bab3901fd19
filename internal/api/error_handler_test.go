package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/medtrack/careportal/internal/core/domain"
)

func TestHTTPErrorHandler(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
		msg  string
	}{
		{"unauthorized", fmt.Errorf("check: %w", &domain.APIError{Kind: domain.KindUnauthorized, Status: 401}), http.StatusUnauthorized, "session expired"},
		{"not authenticated", domain.ErrNotAuthenticated, http.StatusUnauthorized, "session expired"},
		{"network", &domain.APIError{Kind: domain.KindNetwork, Err: errors.New("refused")}, http.StatusServiceUnavailable, "backend unavailable"},
		{"server", &domain.APIError{Kind: domain.KindServer, Status: 500}, http.StatusBadGateway, "backend error"},
		{"validation detail", &domain.APIError{Kind: domain.KindValidation, Status: 400, Detail: "Inactive user"}, http.StatusUnprocessableEntity, "Inactive user"},
		{"echo error", echo.NewHTTPError(http.StatusServiceUnavailable, "notification queue full"), http.StatusServiceUnavailable, "notification queue full"},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, "internal server error"},
	}

	handle := NewHTTPErrorHandler(zerolog.Nop())
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := echo.New()
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api-data", nil), rec)

			handle(tc.err, c)

			if rec.Code != tc.code {
				t.Fatalf("expected %d, got %d", tc.code, rec.Code)
			}
			var resp errorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("invalid json: %v", err)
			}
			if resp.Error != tc.msg {
				t.Fatalf("expected %q, got %q", tc.msg, resp.Error)
			}
		})
	}
}
