package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/notfound/pkg/config"
)

// MissLogMetrics tracks the asynchronous miss log.
//
// Metrics:
//   - notfound_handler_misses_written_total: misses persisted
//   - notfound_handler_misses_dropped_total: misses dropped by reason
type MissLogMetrics struct {
	writtenTotal prometheus.Counter
	droppedTotal *prometheus.CounterVec
}

// NewMissLogMetrics creates and registers miss log metrics.
func NewMissLogMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *MissLogMetrics {
	mm := &MissLogMetrics{
		writtenTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "misses_written_total",
				Help:      "Total number of misses written to the miss log",
			},
		),

		droppedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "misses_dropped_total",
				Help:      "Total number of misses dropped by reason",
			},
			[]string{"reason"},
		),
	}

	registry.MustRegister(mm.writtenTotal, mm.droppedTotal)
	return mm
}

// RecordWritten adds persisted misses.
func (mm *MissLogMetrics) RecordWritten(count int) {
	mm.writtenTotal.Add(float64(count))
}

// RecordDropped adds dropped misses.
func (mm *MissLogMetrics) RecordDropped(reason string, count int) {
	mm.droppedTotal.WithLabelValues(reason).Add(float64(count))
}
