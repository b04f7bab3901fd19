package api

import (
	echoprometheus "github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/medtrack/careportal/internal/api/handler"
	"github.com/medtrack/careportal/internal/api/middleware"
	"github.com/medtrack/careportal/internal/core/domain"
	"github.com/medtrack/careportal/internal/core/ports"

	_ "github.com/medtrack/careportal/docs"
)

// Deps are the collaborators the portal shell is built from.
type Deps struct {
	Sessions      ports.SessionService
	Redirector    *middleware.LoginRedirector
	Backend       handler.BackendChecker
	Wake          handler.WakeEnqueuer
	Notifications handler.NotificationLister
	// Health lists the dependencies checked by the readiness probe.
	Health map[string]handler.Pinger
	Paths  domain.GuardPaths
	// Registry receives the HTTP request metrics. Nil disables them.
	Registry *prometheus.Registry
	Log      zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	if d.Paths == (domain.GuardPaths{}) {
		d.Paths = domain.DefaultGuardPaths
	}
	if d.Redirector == nil {
		d.Redirector = middleware.NewLoginRedirector()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(d.Log))
	if d.Registry != nil {
		e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
			Subsystem:  "portal",
			Registerer: d.Registry,
		}))
		e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{
			Gatherer: prometheus.Gatherers{prometheus.DefaultGatherer, d.Registry},
		}))
	}

	// --- Health probes and docs (no guard) ---
	healthHandler := handler.NewHealthHandler()
	healthDepsHandler := handler.NewHealthDependenciesHandler(d.Health)
	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", healthDepsHandler.Readiness)
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	// --- Guarded navigation ---
	authHandler := handler.NewAuthHandler(d.Sessions, d.Paths)
	pageHandler := handler.NewPageHandler(d.Backend)
	deviceHandler := handler.NewDeviceHandler(d.Wake, d.Notifications)

	page := func(method string, route domain.Route, h echo.HandlerFunc) {
		e.Add(method, route.Path, h,
			middleware.ForcedLogin(d.Redirector, d.Paths),
			middleware.Guard(d.Sessions, route, d.Paths),
		)
	}

	page("GET", LoginRoute, authHandler.LoginPage)
	page("POST", LoginRoute, authHandler.Login)
	page("POST", LoginRoute.Child("2fa", "login-2fa", domain.RouteMeta{}), authHandler.VerifyTwoFactor)
	e.POST("/logout", authHandler.Logout)

	page("GET", AppRoute, pageHandler.Root(d.Paths.Landing))
	page("GET", HomeRoute, pageHandler.Home)
	page("GET", APIDataRoute, pageHandler.APIData)
	page("GET", MeRoute, authHandler.Me)
	page("GET", DeviceRoute, deviceHandler.Page)
	page("POST", DeviceWakeRoute, deviceHandler.Wake)
	page("GET", MantelzorgerDashboardRoute, pageHandler.Dashboard(domain.RoleMantelzorger))
	page("GET", PatientDashboardRoute, pageHandler.Dashboard(domain.RolePatient))
	page("GET", ZorgverlenerDashboardRoute, pageHandler.Dashboard(domain.RoleZorgverlener))
	page("GET", NotFoundRoute, pageHandler.NotFound)

	return e
}

// requestLogger logs one line per request through zerolog.
func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(_ echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Error != nil {
				ev = log.Warn().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}
