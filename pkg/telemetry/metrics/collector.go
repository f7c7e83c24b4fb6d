package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/notfound/pkg/config"
)

// Collector owns the Prometheus registry and all metric families. It
// implements interceptor.Observer, redirects.LookupObserver and
// misslog.Observer so each component can report to it directly.
type Collector struct {
	config   config.MetricsConfig
	registry *prometheus.Registry

	decisionMetrics *DecisionMetrics
	lookupMetrics   *LookupMetrics
	missLogMetrics  *MissLogMetrics
	requestMetrics  *RequestMetrics
}

// NewCollector creates a collector. If registry is nil a fresh registry is
// created. A nil cfg yields a disabled collector whose methods are no-ops.
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	var c config.MetricsConfig
	if cfg != nil {
		c = *cfg
	}
	if c.Namespace == "" {
		c.Namespace = config.DefaultMetricsNamespace
	}
	if c.Subsystem == "" {
		c.Subsystem = config.DefaultMetricsSubsystem
	}
	if len(c.DecisionDurationBuckets) == 0 {
		c.DecisionDurationBuckets = []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1}
	}

	return &Collector{
		config:          c,
		registry:        registry,
		decisionMetrics: NewDecisionMetrics(&c, registry),
		lookupMetrics:   NewLookupMetrics(&c, registry),
		missLogMetrics:  NewMissLogMetrics(&c, registry),
		requestMetrics:  NewRequestMetrics(&c, registry),
	}
}

// Enabled reports whether metrics are recorded.
func (c *Collector) Enabled() bool {
	return c != nil && c.config.Enabled
}

// ObserveDecision records one interceptor outcome and how long the decision
// took.
func (c *Collector) ObserveDecision(outcome string, seconds float64) {
	if !c.Enabled() {
		return
	}
	c.decisionMetrics.Record(outcome, seconds)
}

// ObserveRedirectLookup records a redirect store lookup.
// source is "static" or "provider"; result is "hit", "miss" or "error".
func (c *Collector) ObserveRedirectLookup(source, result string) {
	if !c.Enabled() {
		return
	}
	c.lookupMetrics.RecordLookup(source, result)
}

// UpdateRedirectsLoaded sets the number of redirects held by a source.
func (c *Collector) UpdateRedirectsLoaded(source string, count int) {
	if !c.Enabled() {
		return
	}
	c.lookupMetrics.UpdateLoaded(source, count)
}

// ObserveMissesWritten records misses persisted by the miss log.
func (c *Collector) ObserveMissesWritten(count int) {
	if !c.Enabled() {
		return
	}
	c.missLogMetrics.RecordWritten(count)
}

// ObserveMissDropped records misses the miss log could not keep.
func (c *Collector) ObserveMissDropped(reason string, count int) {
	if !c.Enabled() {
		return
	}
	c.missLogMetrics.RecordDropped(reason, count)
}

// RecordHTTPRequest records a served HTTP request.
func (c *Collector) RecordHTTPRequest(method string, status int, duration time.Duration) {
	if !c.Enabled() {
		return
	}
	c.requestMetrics.Record(method, status, duration)
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
