// Package metrics defines and registers all custom Prometheus metrics for the
// consultation web tier. It is the single source of truth for metric names,
// labels, and help strings.
//
// Collectors are registered with the default Prometheus registry on package
// initialisation via promauto.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace prefixes every collector of this service.
const Namespace = "cbs_web"

// ── Backend client metrics ────────────────────────────────────────────────────

// BackendRequestsTotal counts calls to the booking backend.
// Labels:
//   - method: HTTP method
//   - outcome: "ok" or the failure classification (e.g. "unauthorized", "unreachable")
var BackendRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "backend_requests_total",
		Help:      "Total number of backend API calls, by method and outcome.",
	},
	[]string{"method", "outcome"},
)

// BackendRequestDuration measures backend call latency including timeouts.
var BackendRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: Namespace,
		Name:      "backend_request_duration_seconds",
		Help:      "Duration of backend API calls.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"method"},
)

// ObserveBackendCall records one finished backend call.
func ObserveBackendCall(method, outcome string, elapsed time.Duration) {
	BackendRequestsTotal.WithLabelValues(method, outcome).Inc()
	BackendRequestDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}

// ── Session metrics ───────────────────────────────────────────────────────────

// AuthTransitionsTotal counts session state transitions.
// Labels:
//   - action: login, register, logout, invalidated
//   - to: resulting state
var AuthTransitionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "auth_transitions_total",
		Help:      "Total number of session state transitions.",
	},
	[]string{"action", "to"},
)

// GuardDecisionsTotal counts route guard outcomes.
// Labels:
//   - point: "edge" or "render"
//   - decision: allow, redirect_login, redirect_default, fallback, loading
var GuardDecisionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "guard_decisions_total",
		Help:      "Total number of route guard decisions, by enforcement point.",
	},
	[]string{"point", "decision"},
)

// ── Payment metrics ───────────────────────────────────────────────────────────

// PaymentVerificationsTotal counts server-side payment verifications.
// Label:
//   - result: "paid", "unpaid" or "error"
var PaymentVerificationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "payment_verifications_total",
		Help:      "Total number of payment verifications, by result.",
	},
	[]string{"result"},
)

// ── Audit queue metrics ───────────────────────────────────────────────────────

// AuditQueueDepth tracks the number of audit events waiting in each worker channel.
var AuditQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "audit_queue_depth",
		Help:      "Current number of audit events pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)

// AuditEventsTotal counts audit events by result.
// Label:
//   - result: "stored", "failed" or "dropped"
var AuditEventsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "audit_events_total",
		Help:      "Total number of audit events, by result.",
	},
	[]string{"result"},
)
