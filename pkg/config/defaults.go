package config

import (
	"time"

	sectls "mercator-hq/notfound/pkg/security/tls"
)

// Default values for configuration fields.
const (
	// Server defaults
	DefaultListenAddress   = "127.0.0.1:8080"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMaxHeaderBytes  = 1048576 // 1MB
	DefaultContentDir      = "./public"
	DefaultTLSMinVersion   = "1.2"
	DefaultSecretsPrefix   = "NOTFOUND_SECRET_"

	// Redirect store defaults
	DefaultRedirectsFile         = "./redirects.yaml"
	DefaultRedirectsWatch        = false
	DefaultProviderPath          = "data/redirects.db"
	DefaultProviderCacheSize     = 1024
	DefaultProviderCacheTTL      = 5 * time.Minute
	DefaultMissLogBackend        = "sqlite"
	DefaultMissLogFlushInterval  = 5 * time.Second
	DefaultMissLogWriteTimeout   = 5 * time.Second
	DefaultSQLitePath            = "data/misses.db"
	DefaultSQLiteMaxOpenConns    = 10
	DefaultSQLiteMaxIdleConns    = 5
	DefaultSQLiteWALMode         = true
	DefaultSQLiteBusyTimeout     = 5 * time.Second
	DefaultRedisAddress          = "127.0.0.1:6379"
	DefaultRedisKeyPrefix        = "notfound:"
	DefaultRetentionDays         = 30
	DefaultRetentionMaxRecords   = int64(0)
	DefaultRetentionSchedule     = "0 3 * * *"

	// Telemetry defaults
	DefaultLoggingLevel      = "info"
	DefaultLoggingFormat     = "json"
	DefaultLogMaxSizeMB      = 100
	DefaultLogMaxBackups     = 5
	DefaultLogMaxAgeDays     = 28
	DefaultMetricsEnabled    = true
	DefaultPrometheusPath    = "/metrics"
	DefaultMetricsNamespace  = "notfound"
	DefaultMetricsSubsystem  = "handler"
	DefaultTracingEnabled    = false
	DefaultTracingSampler    = "ratio"
	DefaultTracingSampleRate = 0.1
	DefaultTracingService    = "notfound"
)

// ApplyDefaults applies default values to a Config struct.
// It sets defaults for any fields that have zero values.
// This function is idempotent and safe to call multiple times.
//
// The handler section is left untouched: its defaults belong to the
// settings resolver.
func ApplyDefaults(cfg *Config) {
	// Server defaults
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Server.MaxHeaderBytes == 0 {
		cfg.Server.MaxHeaderBytes = DefaultMaxHeaderBytes
	}
	if cfg.Server.ContentDir == "" && cfg.Server.Upstream == "" {
		cfg.Server.ContentDir = DefaultContentDir
	}
	if cfg.Server.TLS.MinVersion == "" {
		cfg.Server.TLS.MinVersion = DefaultTLSMinVersion
	}
	if cfg.Server.TLS.ReloadInterval == 0 {
		cfg.Server.TLS.ReloadInterval = sectls.DefaultReloadInterval
	}
	if cfg.Secrets.EnvPrefix == "" {
		cfg.Secrets.EnvPrefix = DefaultSecretsPrefix
	}

	// Redirect defaults
	if cfg.Redirects.File == "" {
		cfg.Redirects.File = DefaultRedirectsFile
	}
	if cfg.Redirects.Provider.Path == "" {
		cfg.Redirects.Provider.Path = DefaultProviderPath
	}
	if cfg.Redirects.Provider.CacheSize == 0 {
		cfg.Redirects.Provider.CacheSize = DefaultProviderCacheSize
	}
	if cfg.Redirects.Provider.CacheTTL == 0 {
		cfg.Redirects.Provider.CacheTTL = DefaultProviderCacheTTL
	}

	// Miss log defaults
	if cfg.MissLog.Backend == "" {
		cfg.MissLog.Backend = DefaultMissLogBackend
	}
	if cfg.MissLog.FlushInterval == 0 {
		cfg.MissLog.FlushInterval = DefaultMissLogFlushInterval
	}
	if cfg.MissLog.WriteTimeout == 0 {
		cfg.MissLog.WriteTimeout = DefaultMissLogWriteTimeout
	}
	if cfg.MissLog.SQLite.Path == "" {
		cfg.MissLog.SQLite.Path = DefaultSQLitePath
		// WAL is only defaulted together with the path; an explicit
		// path without wal_mode keeps the user's choice.
		cfg.MissLog.SQLite.WALMode = DefaultSQLiteWALMode
	}
	if cfg.MissLog.SQLite.MaxOpenConns == 0 {
		cfg.MissLog.SQLite.MaxOpenConns = DefaultSQLiteMaxOpenConns
	}
	if cfg.MissLog.SQLite.MaxIdleConns == 0 {
		cfg.MissLog.SQLite.MaxIdleConns = DefaultSQLiteMaxIdleConns
	}
	if cfg.MissLog.SQLite.BusyTimeout == 0 {
		cfg.MissLog.SQLite.BusyTimeout = DefaultSQLiteBusyTimeout
	}
	if cfg.MissLog.Redis.Address == "" {
		cfg.MissLog.Redis.Address = DefaultRedisAddress
	}
	if cfg.MissLog.Redis.KeyPrefix == "" {
		cfg.MissLog.Redis.KeyPrefix = DefaultRedisKeyPrefix
	}
	if cfg.MissLog.Retention.Days == 0 {
		cfg.MissLog.Retention.Days = DefaultRetentionDays
	}
	if cfg.MissLog.Retention.PruneSchedule == "" {
		cfg.MissLog.Retention.PruneSchedule = DefaultRetentionSchedule
	}

	applyTelemetryDefaults(&cfg.Telemetry)
}

// applyTelemetryDefaults applies defaults to the telemetry section.
func applyTelemetryDefaults(t *TelemetryConfig) {
	if t.Logging.Level == "" {
		t.Logging.Level = DefaultLoggingLevel
	}
	if t.Logging.Format == "" {
		t.Logging.Format = DefaultLoggingFormat
	}
	if t.Logging.MaxSizeMB == 0 {
		t.Logging.MaxSizeMB = DefaultLogMaxSizeMB
	}
	if t.Logging.MaxBackups == 0 {
		t.Logging.MaxBackups = DefaultLogMaxBackups
	}
	if t.Logging.MaxAgeDays == 0 {
		t.Logging.MaxAgeDays = DefaultLogMaxAgeDays
	}

	if t.Metrics.Path == "" {
		// An empty path means the section was omitted entirely.
		t.Metrics.Path = DefaultPrometheusPath
		t.Metrics.Enabled = DefaultMetricsEnabled
	}
	if t.Metrics.Namespace == "" {
		t.Metrics.Namespace = DefaultMetricsNamespace
	}
	if t.Metrics.Subsystem == "" {
		t.Metrics.Subsystem = DefaultMetricsSubsystem
	}
	if len(t.Metrics.DecisionDurationBuckets) == 0 {
		t.Metrics.DecisionDurationBuckets = []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1}
	}

	if t.Tracing.Sampler == "" {
		t.Tracing.Sampler = DefaultTracingSampler
	}
	if t.Tracing.SampleRatio == 0 {
		t.Tracing.SampleRatio = DefaultTracingSampleRate
	}
	if t.Tracing.ServiceName == "" {
		t.Tracing.ServiceName = DefaultTracingService
	}
}
