package api

import "github.com/medtrack/careportal/internal/core/domain"

// The portal route table. Metadata is fixed here and never changes at runtime.
var (
	LoginRoute = domain.Route{Path: "/login", Name: "login"}

	// AppRoute is the authenticated root; its children inherit RequiresAuth.
	AppRoute = domain.Route{Path: "/", Name: "app", Meta: domain.RouteMeta{RequiresAuth: true}}

	HomeRoute       = AppRoute.Child("home", "home", domain.RouteMeta{})
	APIDataRoute    = AppRoute.Child("api-data", "api-data", domain.RouteMeta{})
	DeviceRoute     = AppRoute.Child("capacitor", "capacitor", domain.RouteMeta{})
	DeviceWakeRoute = AppRoute.Child("capacitor/wake", "capacitor-wake", domain.RouteMeta{})
	MeRoute         = AppRoute.Child("api/me", "me", domain.RouteMeta{})

	MantelzorgerDashboardRoute = AppRoute.Child("mantelzorger/dashboard", "mantelzorger-dashboard",
		domain.RouteMeta{RequiresAuth: true, Role: domain.RoleMantelzorger})
	PatientDashboardRoute = AppRoute.Child("patient/dashboard", "patient-dashboard",
		domain.RouteMeta{RequiresAuth: true, Role: domain.RolePatient})
	ZorgverlenerDashboardRoute = AppRoute.Child("zorgverlener/dashboard", "zorgverlener-dashboard",
		domain.RouteMeta{RequiresAuth: true, Role: domain.RoleZorgverlener})

	NotFoundRoute = domain.Route{Path: "/*", Name: "not-found"}
)

