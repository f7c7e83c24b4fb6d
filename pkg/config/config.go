package config

import (
	"time"

	sectls "mercator-hq/notfound/pkg/security/tls"
)

// Config is the root configuration structure for the notfound service.
// It contains all configuration sections for the HTTP server, the not-found
// handler, redirect stores, the miss log and telemetry.
type Config struct {
	// Server contains HTTP server configuration including listen address,
	// timeouts and the site backend that produces the original responses.
	Server ServerConfig `yaml:"server"`

	// Handler contains the operating settings of the not-found handler.
	// Values are kept as raw strings and parsed by the settings resolver,
	// which degrades unparsable values to defaults instead of failing.
	Handler HandlerConfig `yaml:"handler"`

	// Redirects contains configuration for the static redirect list and the
	// pluggable redirect provider.
	Redirects RedirectsConfig `yaml:"redirects"`

	// MissLog contains configuration for recording not-found requests that had
	// no redirect, including backend selection and retention.
	MissLog MissLogConfig `yaml:"misslog"`

	// Telemetry contains configuration for logging, metrics and tracing.
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Secrets configures where ${secret:name} references in other values
	// are resolved from.
	Secrets SecretsConfig `yaml:"secrets"`
}

// ServerConfig contains configuration for the HTTP server.
type ServerConfig struct {
	// ListenAddress is the address and port for the server to listen on.
	// Format: "host:port" (e.g., "127.0.0.1:8080", "0.0.0.0:8080").
	// Default: "127.0.0.1:8080"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading the entire request.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes of the
	// response.
	// Default: 30s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the maximum amount of time to wait for the next request
	// when keep-alives are enabled.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxHeaderBytes limits the size of request headers.
	// Default: 1048576 (1MB)
	MaxHeaderBytes int `yaml:"max_header_bytes"`

	// ContentDir is the directory served as the site when Upstream is empty.
	// Default: "./public"
	ContentDir string `yaml:"content_dir"`

	// Upstream is an optional origin URL. When set, site requests are reverse
	// proxied to it and its 404 responses are intercepted.
	// Example: "http://127.0.0.1:9000"
	Upstream string `yaml:"upstream"`

	// SiteURL is the public scheme and host of the site, used to shorten
	// same-site referrers. When empty it is derived from each request.
	// Example: "https://www.example.com"
	SiteURL string `yaml:"site_url"`

	// TLS serves HTTPS with certificates reloaded from disk.
	TLS sectls.Config `yaml:"tls"`
}

// HandlerConfig contains the raw operating settings of the not-found handler.
// Every field is a string so that the settings resolver can apply the
// documented defaults when a value is missing or cannot be parsed.
type HandlerConfig struct {
	// Mode enables the handler.
	// Options: "On", "Off", "RemoteOnly" (case-insensitive)
	// Default: "On"
	Mode string `yaml:"mode"`

	// Logging enables recording of misses. Read on every request, so it can be
	// toggled by reloading the configuration file.
	// Options: "On", "Off"
	// Default: "On"
	Logging string `yaml:"logging"`

	// FileNotFoundPage is the virtual path of the fallback page. A leading "~"
	// marks the site root.
	// Default: "~/errors/notfound.html"
	FileNotFoundPage string `yaml:"file_not_found_page"`

	// IgnoredResourceExtensions is a comma separated list of file extensions
	// whose misses are never intercepted.
	// Default: "jpg,gif,png,css,js,ico,swf,woff"
	IgnoredResourceExtensions string `yaml:"ignored_resource_extensions"`

	// CaseSensitiveExtensions compares extensions exactly instead of
	// case-insensitively.
	// Default: "false"
	CaseSensitiveExtensions string `yaml:"case_sensitive_extensions"`

	// BufferSize is the number of misses held in memory before entries are
	// dropped. "-1" selects the default.
	// Default: "30"
	BufferSize string `yaml:"buffer_size"`

	// Threshold is the number of accumulated misses that triggers a flush.
	// "-1" selects the default.
	// Default: "5"
	Threshold string `yaml:"threshold"`

	// FallbackToHostErrorHandler hands captured errors that are not a
	// not-found condition to the server's recovery handler instead of writing a
	// plain 500 response.
	// Default: "false"
	FallbackToHostErrorHandler string `yaml:"fallback_to_host_error_handler"`
}

// RedirectsConfig contains configuration for the redirect stores.
type RedirectsConfig struct {
	// File is the path to the static redirect list (YAML).
	// Default: "./redirects.yaml"
	File string `yaml:"file"`

	// Watch reloads the static list when the file changes.
	// Default: false
	Watch bool `yaml:"watch"`

	// Provider configures the pluggable redirect provider consulted when the
	// static list has no record.
	Provider RedirectProviderConfig `yaml:"provider"`
}

// RedirectProviderConfig configures the SQL backed redirect provider.
type RedirectProviderConfig struct {
	// Enabled turns on the provider lookup.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Path is the SQLite database file holding the redirects table.
	// Default: "data/redirects.db"
	Path string `yaml:"path"`

	// CacheSize is the number of lookups kept in the LRU cache (0 disables).
	// Default: 1024
	CacheSize int `yaml:"cache_size"`

	// CacheTTL is how long a cached lookup stays valid.
	// Default: 5m
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

// MissLogConfig contains configuration for the miss log.
type MissLogConfig struct {
	// Backend selects the storage backend.
	// Options: "sqlite", "memory", "redis"
	// Default: "sqlite"
	Backend string `yaml:"backend"`

	// FlushInterval forces a flush of buffered misses even when the threshold
	// was not reached.
	// Default: 5s
	FlushInterval time.Duration `yaml:"flush_interval"`

	// WriteTimeout bounds a single batch write.
	// Default: 5s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// SQLite contains SQLite backend settings.
	SQLite SQLiteConfig `yaml:"sqlite"`

	// Redis contains Redis backend settings.
	Redis RedisConfig `yaml:"redis"`

	// Retention contains miss log retention settings.
	Retention RetentionConfig `yaml:"retention"`
}

// SQLiteConfig contains SQLite backend settings.
type SQLiteConfig struct {
	// Path is the database file path.
	// Default: "data/misses.db"
	Path string `yaml:"path"`

	// MaxOpenConns is the maximum number of open connections.
	// Default: 10
	MaxOpenConns int `yaml:"max_open_conns"`

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int `yaml:"max_idle_conns"`

	// WALMode enables write-ahead logging.
	// Default: true
	WALMode bool `yaml:"wal_mode"`

	// BusyTimeout is how long to wait on a locked database.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// RedisConfig contains Redis backend settings.
type RedisConfig struct {
	// Address is the Redis server address.
	// Default: "127.0.0.1:6379"
	Address string `yaml:"address"`

	// Password is the optional Redis password.
	Password string `yaml:"password"`

	// DB is the Redis database number.
	DB int `yaml:"db"`

	// KeyPrefix namespaces all keys written by the miss log.
	// Default: "notfound:"
	KeyPrefix string `yaml:"key_prefix"`
}

// RetentionConfig contains miss log retention settings.
type RetentionConfig struct {
	// Days is the number of days misses are kept. 0 keeps them forever.
	// Default: 30
	Days int `yaml:"days"`

	// MaxRecords caps the number of stored misses. 0 means unlimited.
	// Default: 0
	MaxRecords int64 `yaml:"max_records"`

	// PruneSchedule is a standard cron expression. Empty disables scheduling.
	// Default: "0 3 * * *"
	PruneSchedule string `yaml:"prune_schedule"`
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains metrics collection configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing contains distributed tracing configuration.
	Tracing TracingConfig `yaml:"tracing"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text", "console"
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`

	// File writes logs to a rotated file instead of stdout when set.
	File string `yaml:"file"`

	// MaxSizeMB is the size at which the log file is rotated.
	// Default: 100
	MaxSizeMB int `yaml:"max_size_mb"`

	// MaxBackups is the number of rotated files to keep.
	// Default: 5
	MaxBackups int `yaml:"max_backups"`

	// MaxAgeDays is the number of days rotated files are kept.
	// Default: 28
	MaxAgeDays int `yaml:"max_age_days"`

	// Compress gzips rotated files.
	// Default: false
	Compress bool `yaml:"compress"`
}

// MetricsConfig contains metrics collection configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics collection is active.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the HTTP path for the Prometheus metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the metric name prefix.
	// Default: "notfound"
	Namespace string `yaml:"namespace"`

	// Subsystem is the metric subsystem name.
	// Default: "handler"
	Subsystem string `yaml:"subsystem"`

	// DecisionDurationBuckets defines histogram buckets for decision
	// latency in seconds.
	// Default: [0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1]
	DecisionDurationBuckets []float64 `yaml:"decision_duration_buckets"`
}

// TracingConfig contains distributed tracing configuration.
type TracingConfig struct {
	// Enabled controls whether distributed tracing is active.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Sampler determines the sampling strategy.
	// Options: "always", "never", "ratio"
	// Default: "ratio"
	Sampler string `yaml:"sampler"`

	// SampleRatio is the fraction of traces to sample (0.0 to 1.0).
	// Default: 0.1
	SampleRatio float64 `yaml:"sample_ratio"`

	// Endpoint is the OTLP gRPC collector endpoint.
	// Example: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// Insecure disables TLS towards the collector.
	// Default: false
	Insecure bool `yaml:"insecure"`

	// ServiceName is the service name in traces.
	// Default: "notfound"
	ServiceName string `yaml:"service_name"`
}

// SecretsConfig configures secret reference resolution. References are
// resolved in misslog.redis.password, server.upstream and
// telemetry.tracing.endpoint.
type SecretsConfig struct {
	// EnvPrefix is prepended to the upper-cased secret name to form the
	// environment variable that holds it.
	// Default: "NOTFOUND_SECRET_"
	EnvPrefix string `yaml:"env_prefix"`

	// Dir is an optional directory with one file per secret, consulted when
	// the environment has no value.
	Dir string `yaml:"dir"`
}
