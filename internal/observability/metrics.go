package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for the service. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
	errors        *prometheus.CounterVec
	policies      *prometheus.CounterVec
	deactivations prometheus.Counter
	claims        *prometheus.CounterVec
	notifications *prometheus.CounterVec
	numberRetries prometheus.Counter
}

// NewMetrics registers every collector on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "policy_http_requests_total",
			Help: "HTTP requests by route, method and status",
		}, []string{"route", "method", "status"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "policy_http_request_duration_seconds",
			Help:    "HTTP request latency by route and method",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
		errors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "policy_http_errors_total",
			Help: "Error responses by route, method and error code",
		}, []string{"route", "method", "code"}),
		policies: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "policy_policies_created_total",
			Help: "Policies created by initial status",
		}, []string{"status"}),
		deactivations: factory.NewCounter(prometheus.CounterOpts{
			Name: "policy_policies_deactivated_total",
			Help: "Policies moved to deactivated",
		}),
		claims: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "policy_claims_total",
			Help: "Claims by outcome (submitted, approved, rejected)",
		}, []string{"outcome"}),
		notifications: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "policy_notifications_total",
			Help: "Notification intents by result (queued, dropped, sent, failed)",
		}, []string{"result"}),
		numberRetries: factory.NewCounter(prometheus.CounterOpts{
			Name: "policy_number_collisions_total",
			Help: "Policy number unique violations that triggered a retry",
		}),
	}
}

// Registry exposes the registry for the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RecordRequest observes one completed HTTP request.
func (m *Metrics) RecordRequest(route, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(route, method).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(route, method, code string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(route, method, code).Inc()
}

func (m *Metrics) PolicyCreated(status string) {
	if m == nil {
		return
	}
	m.policies.WithLabelValues(status).Inc()
}

func (m *Metrics) PolicyDeactivated() {
	if m == nil {
		return
	}
	m.deactivations.Inc()
}

func (m *Metrics) PolicyNumberCollision() {
	if m == nil {
		return
	}
	m.numberRetries.Inc()
}

// ClaimRecorded counts claim outcomes: submitted, approved or rejected.
func (m *Metrics) ClaimRecorded(outcome string) {
	if m == nil {
		return
	}
	m.claims.WithLabelValues(outcome).Inc()
}

// NotificationResult counts queued, dropped, sent and failed notifications.
func (m *Metrics) NotificationResult(result string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(result).Inc()
}
