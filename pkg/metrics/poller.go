package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PollerMetrics records verify-polling activity per carrier.
type PollerMetrics struct {
	attempts *prometheus.CounterVec
	outcomes *prometheus.CounterVec
	duration *prometheus.HistogramVec
	active   prometheus.Gauge
}

// NewPollerMetrics registers the polling metrics on the provided registerer.
func NewPollerMetrics(reg prometheus.Registerer) *PollerMetrics {
	if reg == nil {
		return &PollerMetrics{}
	}
	attempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "poll_attempts_total",
		Help: "Verify attempts issued by polling sessions.",
	}, []string{"method"})
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "poll_outcomes_total",
		Help: "Final outcomes of polling sessions.",
	}, []string{"method", "outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "poll_session_seconds",
		Help:    "Wall-clock duration of polling sessions.",
		Buckets: []float64{1, 5, 15, 30, 60, 90, 120, 180},
	}, []string{"method"})
	active := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "poll_sessions_active",
		Help: "Polling sessions currently running.",
	})
	reg.MustRegister(attempts, outcomes, duration, active)
	return &PollerMetrics{
		attempts: attempts,
		outcomes: outcomes,
		duration: duration,
		active:   active,
	}
}

// IncAttempt counts one verify attempt for the method.
func (p *PollerMetrics) IncAttempt(method string) {
	if p == nil || p.attempts == nil {
		return
	}
	p.attempts.WithLabelValues(normalizeLabel(method)).Inc()
}

// ObserveOutcome records the final state of a session and its duration.
func (p *PollerMetrics) ObserveOutcome(method, outcome string, elapsed time.Duration) {
	if p == nil || p.outcomes == nil {
		return
	}
	p.outcomes.WithLabelValues(normalizeLabel(method), normalizeLabel(outcome)).Inc()
	p.duration.WithLabelValues(normalizeLabel(method)).Observe(elapsed.Seconds())
}

// SessionStarted bumps the active session gauge.
func (p *PollerMetrics) SessionStarted() {
	if p == nil || p.active == nil {
		return
	}
	p.active.Inc()
}

// SessionFinished drops the active session gauge.
func (p *PollerMetrics) SessionFinished() {
	if p == nil || p.active == nil {
		return
	}
	p.active.Dec()
}
