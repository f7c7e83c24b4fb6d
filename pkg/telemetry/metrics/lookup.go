package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/notfound/pkg/config"
)

// LookupMetrics tracks redirect store activity.
//
// Metrics:
//   - notfound_handler_redirect_lookups_total: lookups by source and result
//   - notfound_handler_redirects_loaded: redirects currently held by a source
type LookupMetrics struct {
	lookupsTotal *prometheus.CounterVec
	loaded       *prometheus.GaugeVec
}

// NewLookupMetrics creates and registers lookup metrics.
func NewLookupMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *LookupMetrics {
	lm := &LookupMetrics{
		lookupsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "redirect_lookups_total",
				Help:      "Total number of redirect lookups by source and result",
			},
			[]string{"source", "result"},
		),

		loaded: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "redirects_loaded",
				Help:      "Number of redirects currently loaded by source",
			},
			[]string{"source"},
		),
	}

	registry.MustRegister(lm.lookupsTotal, lm.loaded)
	return lm
}

// RecordLookup counts one lookup.
func (lm *LookupMetrics) RecordLookup(source, result string) {
	lm.lookupsTotal.WithLabelValues(source, result).Inc()
}

// UpdateLoaded sets the loaded redirect count for a source.
func (lm *LookupMetrics) UpdateLoaded(source string, count int) {
	lm.loaded.WithLabelValues(source).Set(float64(count))
}
