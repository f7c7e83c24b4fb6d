package config

import "time"

// ConfigBuilder provides a fluent API for building Config instances in tests.
// It starts with default values and allows selective overrides.
type ConfigBuilder struct {
	cfg Config
}

// NewTestConfig creates a new ConfigBuilder with sensible defaults for testing.
// The resulting configuration is valid and can be used immediately.
func NewTestConfig() *ConfigBuilder {
	cfg := Config{}
	cfg.MissLog.Backend = "memory"
	ApplyDefaults(&cfg)
	return &ConfigBuilder{cfg: cfg}
}

// Build returns the built Config instance.
func (b *ConfigBuilder) Build() *Config {
	return &b.cfg
}

// WithListenAddress sets the server listen address.
func (b *ConfigBuilder) WithListenAddress(addr string) *ConfigBuilder {
	b.cfg.Server.ListenAddress = addr
	return b
}

// WithReadTimeout sets the server read timeout.
func (b *ConfigBuilder) WithReadTimeout(d time.Duration) *ConfigBuilder {
	b.cfg.Server.ReadTimeout = d
	return b
}

// WithUpstream switches the site backend to a reverse proxy.
func (b *ConfigBuilder) WithUpstream(upstream string) *ConfigBuilder {
	b.cfg.Server.Upstream = upstream
	b.cfg.Server.ContentDir = ""
	return b
}

// WithHandlerMode sets the raw handler mode.
func (b *ConfigBuilder) WithHandlerMode(mode string) *ConfigBuilder {
	b.cfg.Handler.Mode = mode
	return b
}

// WithMissLogBackend sets the miss log backend.
func (b *ConfigBuilder) WithMissLogBackend(backend string) *ConfigBuilder {
	b.cfg.MissLog.Backend = backend
	return b
}

// WithPruneSchedule sets the retention cron expression.
func (b *ConfigBuilder) WithPruneSchedule(schedule string) *ConfigBuilder {
	b.cfg.MissLog.Retention.PruneSchedule = schedule
	return b
}

// WithTracing enables tracing towards the given endpoint.
func (b *ConfigBuilder) WithTracing(endpoint string) *ConfigBuilder {
	b.cfg.Telemetry.Tracing.Enabled = true
	b.cfg.Telemetry.Tracing.Endpoint = endpoint
	return b
}
