package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/AbubakarMugha1/Authentication-and-Access-Control-for-a-Web-Application/internal/domain"
)

// Metrics holds the service's prometheus collectors. A nil *Metrics records nothing.
type Metrics struct {
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	errors          *prometheus.CounterVec
	decisions       *prometheus.CounterVec
	exchanges       *prometheus.CounterVec
	rejections      *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_errors_total",
			Help: "Error responses by route and error code.",
		}, []string{"method", "route", "code"}),
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authz_decisions_total",
			Help: "Access policy decisions.",
		}, []string{"result", "reason"}),
		exchanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "token_exchanges_total",
			Help: "Authorization grant exchanges by outcome.",
		}, []string{"outcome"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sessions_rejected_total",
			Help: "Session tokens that failed validation.",
		}, []string{"reason"}),
	}
	if reg != nil {
		reg.MustRegister(m.requests, m.requestDuration, m.errors, m.decisions, m.exchanges, m.rejections)
	}
	return m
}

// RecordRequest counts a finished HTTP request.
func (m *Metrics) RecordRequest(route, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordError counts an error response.
func (m *Metrics) RecordError(route, method, code string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(method, route, code).Inc()
}

// RecordDecision counts an access policy decision.
func (m *Metrics) RecordDecision(decision domain.AuthzDecision) {
	if m == nil {
		return
	}
	result := "deny"
	if decision.Allow {
		result = "allow"
	}
	m.decisions.WithLabelValues(result, string(decision.Reason)).Inc()
}

// RecordExchange counts a grant exchange; outcome is "success", "failed", "timeout" or "rejected".
func (m *Metrics) RecordExchange(outcome string) {
	if m == nil {
		return
	}
	m.exchanges.WithLabelValues(outcome).Inc()
}

// RecordSessionRejected counts a session token that failed validation.
func (m *Metrics) RecordSessionRejected(reason string) {
	if m == nil {
		return
	}
	m.rejections.WithLabelValues(reason).Inc()
}
