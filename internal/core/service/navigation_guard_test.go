package service

import (
	"testing"

	"github.com/medtrack/careportal/internal/core/domain"
)

func TestEvaluateNavigation(t *testing.T) {
	app := domain.Route{Path: "/", Name: "app", Meta: domain.RouteMeta{RequiresAuth: true}}
	login := domain.Route{Path: "/login", Name: "login"}
	home := app.Child("home", "home", domain.RouteMeta{})
	patientDash := app.Child("patient/dashboard", "patient-dashboard", domain.RouteMeta{Role: domain.RolePatient})
	public := domain.Route{Path: "/about", Name: "about"}

	anonymous := domain.Session{State: domain.StateAnonymous}
	pending := domain.Session{State: domain.StatePendingTwoFactor, Ticket: &domain.TwoFactorTicket{TempToken: "tmp"}}
	patient := domain.Session{State: domain.StateAuthenticated, Token: "T1", User: &domain.UserRecord{Username: "alice", Role: domain.RolePatient}}
	carer := domain.Session{State: domain.StateAuthenticated, Token: "T2", User: &domain.UserRecord{Username: "bob", Role: domain.RoleMantelzorger}}

	tests := []struct {
		name     string
		target   domain.Route
		session  domain.Session
		allow    bool
		redirect string
		reason   string
	}{
		{"anonymous to home", home, anonymous, false, "/login", ReasonUnauthenticated},
		{"pending to home", home, pending, false, "/login", ReasonUnauthenticated},
		{"anonymous to login", login, anonymous, true, "", ""},
		{"authenticated to login", login, patient, false, "/home", ReasonAlreadyAuthenticated},
		{"authenticated to home", home, patient, true, "", ""},
		{"matching role", patientDash, patient, true, "", ""},
		{"wrong role", patientDash, carer, false, "/home", ReasonRoleMismatch},
		{"anonymous to role route", patientDash, anonymous, false, "/login", ReasonUnauthenticated},
		{"anonymous to public", public, anonymous, true, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EvaluateNavigation(tt.target, domain.Route{}, tt.session, domain.DefaultGuardPaths)
			if got.Allow != tt.allow || got.Redirect != tt.redirect || got.Reason != tt.reason {
				t.Fatalf("unexpected decision: %+v", got)
			}
		})
	}
}

func TestEvaluateNavigation_IgnoresCurrentRoute(t *testing.T) {
	home := domain.Route{Path: "/home", Meta: domain.RouteMeta{RequiresAuth: true}}
	anonymous := domain.Session{State: domain.StateAnonymous}

	a := EvaluateNavigation(home, domain.Route{}, anonymous, domain.DefaultGuardPaths)
	b := EvaluateNavigation(home, domain.Route{Path: "/login"}, anonymous, domain.DefaultGuardPaths)
	if a != b {
		t.Fatalf("decision depends on the current route: %+v vs %+v", a, b)
	}
}

func TestEvaluateNavigation_HalfFilledSessionIsNotAuthenticated(t *testing.T) {
	home := domain.Route{Path: "/home", Meta: domain.RouteMeta{RequiresAuth: true}}
	noUser := domain.Session{State: domain.StateAuthenticated, Token: "T1"}

	got := EvaluateNavigation(home, domain.Route{}, noUser, domain.DefaultGuardPaths)
	if got.Allow || got.Redirect != "/login" {
		t.Fatalf("expected redirect to login, got %+v", got)
	}
}
