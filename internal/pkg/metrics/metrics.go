package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Gateway call outcomes
const (
	OutcomeOK        = "ok"
	OutcomeRejected  = "rejected"
	OutcomeNetwork   = "network_error"
	OutcomeMalformed = "malformed"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	GatewayRequests    *prometheus.CounterVec
	Submissions        *prometheus.CounterVec
	ValidationFailures prometheus.Counter
	StaleResponses     prometheus.Counter
	ActiveSessions     prometheus.Gauge
	ExpiredSessions    prometheus.Counter
}

// New creates and registers all Prometheus metrics on reg
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		GatewayRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "point_journaliere_gateway_requests_total",
			Help: "Backend calls by action and outcome",
		}, []string{"action", "outcome"}),
		Submissions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "point_journaliere_submissions_total",
			Help: "Submit attempts by result",
		}, []string{"result"}),
		ValidationFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "point_journaliere_validation_failures_total",
			Help: "Submissions blocked by local field validation",
		}),
		StaleResponses: factory.NewCounter(prometheus.CounterOpts{
			Name: "point_journaliere_stale_context_responses_total",
			Help: "Context responses discarded because a newer request was issued",
		}),
		ActiveSessions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "point_journaliere_active_sessions",
			Help: "Form sessions currently held in memory",
		}),
		ExpiredSessions: factory.NewCounter(prometheus.CounterOpts{
			Name: "point_journaliere_expired_sessions_total",
			Help: "Form sessions evicted after being idle",
		}),
	}
}

// NewNop returns metrics registered on a private registry, for tests and tools
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}

// ObserveGateway counts one backend call
func (m *Metrics) ObserveGateway(action, outcome string) {
	if m == nil {
		return
	}
	m.GatewayRequests.WithLabelValues(action, outcome).Inc()
}

// ObserveSubmit counts one submit attempt
func (m *Metrics) ObserveSubmit(result string) {
	if m == nil {
		return
	}
	m.Submissions.WithLabelValues(result).Inc()
}

// IncrementValidationFailures counts a submission blocked locally
func (m *Metrics) IncrementValidationFailures() {
	if m == nil {
		return
	}
	m.ValidationFailures.Inc()
}

// IncrementStaleResponses counts a discarded context response
func (m *Metrics) IncrementStaleResponses() {
	if m == nil {
		return
	}
	m.StaleResponses.Inc()
}

// SetActiveSessions records the number of live sessions
func (m *Metrics) SetActiveSessions(n int) {
	if m == nil {
		return
	}
	m.ActiveSessions.Set(float64(n))
}

// AddExpiredSessions counts evicted sessions
func (m *Metrics) AddExpiredSessions(n int) {
	if m == nil {
		return
	}
	m.ExpiredSessions.Add(float64(n))
}
