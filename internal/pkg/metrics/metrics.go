// Package metrics defines and registers all custom Prometheus metrics for the
// care portal client. It is the single source of truth for metric names,
// labels, and help strings.
//
// Metrics are registered with the default Prometheus registry on import via
// promauto and exposed by the portal shell at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "careportal"

// ── Session metrics ───────────────────────────────────────────────────────────

// LoginAttemptsTotal counts login and second-factor attempts.
// Labels:
//   - step: "password" or "two_factor"
//   - outcome: "success", "two_factor_required", "failure" or "cancelled"
var LoginAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "login_attempts_total",
		Help:      "Total number of login attempts, by step and outcome.",
	},
	[]string{"step", "outcome"},
)

// SessionTransitionsTotal counts committed session state transitions.
// Labels:
//   - to: the state entered (e.g. "authenticated", "anonymous")
//   - reason: what caused it (e.g. "login", "logout", "rehydrate", "unauthorized")
var SessionTransitionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "session_transitions_total",
		Help:      "Total number of session state transitions.",
	},
	[]string{"to", "reason"},
)

// RehydrateTotal counts boot-time session restores.
// Label:
//   - result: "empty", "verified", "rejected", "kept_unverified" or "store_error"
var RehydrateTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rehydrate_total",
		Help:      "Total number of session rehydrations, by verification result.",
	},
	[]string{"result"},
)

// ── Transport metrics ─────────────────────────────────────────────────────────

// BackendRequestsTotal counts calls to the medication backend.
// Label:
//   - result: "ok", or the failure kind ("unauthorized", "network_error", ...)
var BackendRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "backend_requests_total",
		Help:      "Total number of backend requests, by result.",
	},
	[]string{"result"},
)

// UnauthorizedInvalidationsTotal counts global session invalidations fired by
// a 401 response. Duplicate 401s for an already cleared token are not counted.
var UnauthorizedInvalidationsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "unauthorized_invalidations_total",
		Help:      "Total number of sessions invalidated by a 401 from the backend.",
	},
)

// BackendRequestDuration measures round-trip time to the backend.
var BackendRequestDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "backend_request_duration_seconds",
		Help:      "Duration of backend HTTP round trips.",
		Buckets:   prometheus.DefBuckets,
	},
)

// ── Navigation metrics ────────────────────────────────────────────────────────

// GuardRedirectsTotal counts navigations redirected by the guard.
// Label:
//   - reason: "unauthenticated", "already_authenticated", "role_mismatch" or "forced_login"
var GuardRedirectsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "guard_redirects_total",
		Help:      "Total number of route transitions redirected by the navigation guard.",
	},
	[]string{"reason"},
)

// ── Notification metrics ──────────────────────────────────────────────────────

// NotificationsTotal counts handled wake signals.
// Label:
//   - result: "scheduled" or "failed"
var NotificationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_total",
		Help:      "Total number of background wake signals handled, by result.",
	},
	[]string{"result"},
)

// NotificationQueueDepth tracks wake signals waiting for a worker.
var NotificationQueueDepth = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "notification_queue_depth",
		Help:      "Current number of wake signals pending in the dispatcher.",
	},
)
