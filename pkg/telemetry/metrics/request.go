package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/notfound/pkg/config"
)

// RequestMetrics tracks HTTP requests served by the site.
//
// Metrics:
//   - notfound_handler_http_requests_total: requests by method and status code
//   - notfound_handler_http_request_duration_seconds: request duration histogram
type RequestMetrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// NewRequestMetrics creates and registers request metrics.
func NewRequestMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *RequestMetrics {
	rm := &RequestMetrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests by method and status code",
			},
			[]string{"method", "code"},
		),

		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "http_request_duration_seconds",
				Help:      "Duration of HTTP requests in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method"},
		),
	}

	registry.MustRegister(rm.requestsTotal, rm.requestDuration)
	return rm
}

// Record counts a request and observes its duration.
func (rm *RequestMetrics) Record(method string, status int, duration time.Duration) {
	rm.requestsTotal.WithLabelValues(method, strconv.Itoa(status)).Inc()
	rm.requestDuration.WithLabelValues(method).Observe(duration.Seconds())
}
