package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/notfound/pkg/config"
)

// DecisionMetrics tracks interceptor outcomes.
//
// Metrics:
//   - notfound_handler_decisions_total: decisions by outcome
//   - notfound_handler_decision_duration_seconds: time spent deciding and dispatching
type DecisionMetrics struct {
	decisionsTotal   *prometheus.CounterVec
	decisionDuration *prometheus.HistogramVec
}

// NewDecisionMetrics creates and registers decision metrics.
func NewDecisionMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *DecisionMetrics {
	dm := &DecisionMetrics{
		decisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "decisions_total",
				Help:      "Total number of not-found decisions by outcome",
			},
			[]string{"outcome"},
		),

		decisionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "decision_duration_seconds",
				Help:      "Duration of not-found decisions in seconds",
				Buckets:   cfg.DecisionDurationBuckets,
			},
			[]string{"outcome"},
		),
	}

	registry.MustRegister(dm.decisionsTotal, dm.decisionDuration)
	return dm
}

// Record counts an outcome and observes its latency.
func (dm *DecisionMetrics) Record(outcome string, seconds float64) {
	dm.decisionsTotal.WithLabelValues(outcome).Inc()
	dm.decisionDuration.WithLabelValues(outcome).Observe(seconds)
}
