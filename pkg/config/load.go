package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"mercator-hq/notfound/pkg/security/secrets"
)

// envPrefix is the prefix for all environment variable overrides.
const envPrefix = "NOTFOUND_"

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns any errors.
// Environment variables are not consulted; use LoadConfigWithEnvOverrides
// for that.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	return parseConfig(path, data)
}

// parseConfig decodes, defaults and validates raw YAML.
func parseConfig(path string, data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(&cfg)

	if err := resolveSecrets(&cfg); err != nil {
		return nil, fmt.Errorf("failed to resolve secrets in %q: %w", path, err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention NOTFOUND_SECTION_FIELD (e.g., NOTFOUND_SERVER_LISTEN_ADDRESS).
// Environment variables always take precedence over file-based configuration.
//
// The loading sequence is:
// 1. Load YAML from file
// 2. Apply default values
// 3. Apply environment variable overrides
// 4. Resolve ${secret:name} references
// 5. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := resolveSecrets(cfg); err != nil {
		return nil, fmt.Errorf("failed to resolve secrets from environment overrides: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) {
	// Server overrides
	envString("SERVER_LISTEN_ADDRESS", &cfg.Server.ListenAddress)
	envDuration("SERVER_READ_TIMEOUT", &cfg.Server.ReadTimeout)
	envDuration("SERVER_WRITE_TIMEOUT", &cfg.Server.WriteTimeout)
	envDuration("SERVER_IDLE_TIMEOUT", &cfg.Server.IdleTimeout)
	envDuration("SERVER_SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)
	envInt("SERVER_MAX_HEADER_BYTES", &cfg.Server.MaxHeaderBytes)
	envString("SERVER_CONTENT_DIR", &cfg.Server.ContentDir)
	envString("SERVER_UPSTREAM", &cfg.Server.Upstream)
	envString("SERVER_SITE_URL", &cfg.Server.SiteURL)
	envBool("SERVER_TLS_ENABLED", &cfg.Server.TLS.Enabled)
	envString("SERVER_TLS_CERT_FILE", &cfg.Server.TLS.CertFile)
	envString("SERVER_TLS_KEY_FILE", &cfg.Server.TLS.KeyFile)
	envString("SERVER_TLS_MIN_VERSION", &cfg.Server.TLS.MinVersion)
	envDuration("SERVER_TLS_RELOAD_INTERVAL", &cfg.Server.TLS.ReloadInterval)

	// Handler overrides are raw strings; the settings resolver parses them.
	envString("HANDLER_MODE", &cfg.Handler.Mode)
	envString("HANDLER_LOGGING", &cfg.Handler.Logging)
	envString("HANDLER_FILE_NOT_FOUND_PAGE", &cfg.Handler.FileNotFoundPage)
	envString("HANDLER_IGNORED_RESOURCE_EXTENSIONS", &cfg.Handler.IgnoredResourceExtensions)
	envString("HANDLER_CASE_SENSITIVE_EXTENSIONS", &cfg.Handler.CaseSensitiveExtensions)
	envString("HANDLER_BUFFER_SIZE", &cfg.Handler.BufferSize)
	envString("HANDLER_THRESHOLD", &cfg.Handler.Threshold)
	envString("HANDLER_FALLBACK_TO_HOST_ERROR_HANDLER", &cfg.Handler.FallbackToHostErrorHandler)

	// Redirect overrides
	envString("REDIRECTS_FILE", &cfg.Redirects.File)
	envBool("REDIRECTS_WATCH", &cfg.Redirects.Watch)
	envBool("REDIRECTS_PROVIDER_ENABLED", &cfg.Redirects.Provider.Enabled)
	envString("REDIRECTS_PROVIDER_PATH", &cfg.Redirects.Provider.Path)
	envInt("REDIRECTS_PROVIDER_CACHE_SIZE", &cfg.Redirects.Provider.CacheSize)
	envDuration("REDIRECTS_PROVIDER_CACHE_TTL", &cfg.Redirects.Provider.CacheTTL)

	// Miss log overrides
	envString("MISSLOG_BACKEND", &cfg.MissLog.Backend)
	envDuration("MISSLOG_FLUSH_INTERVAL", &cfg.MissLog.FlushInterval)
	envDuration("MISSLOG_WRITE_TIMEOUT", &cfg.MissLog.WriteTimeout)
	envString("MISSLOG_SQLITE_PATH", &cfg.MissLog.SQLite.Path)
	envString("MISSLOG_REDIS_ADDRESS", &cfg.MissLog.Redis.Address)
	envString("MISSLOG_REDIS_PASSWORD", &cfg.MissLog.Redis.Password)
	envInt("MISSLOG_REDIS_DB", &cfg.MissLog.Redis.DB)
	envString("MISSLOG_REDIS_KEY_PREFIX", &cfg.MissLog.Redis.KeyPrefix)
	envInt("MISSLOG_RETENTION_DAYS", &cfg.MissLog.Retention.Days)
	if val := os.Getenv(envPrefix + "MISSLOG_RETENTION_MAX_RECORDS"); val != "" {
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			cfg.MissLog.Retention.MaxRecords = i
		}
	}
	envString("MISSLOG_RETENTION_PRUNE_SCHEDULE", &cfg.MissLog.Retention.PruneSchedule)

	// Telemetry overrides
	envString("TELEMETRY_LOGGING_LEVEL", &cfg.Telemetry.Logging.Level)
	envString("TELEMETRY_LOGGING_FORMAT", &cfg.Telemetry.Logging.Format)
	envString("TELEMETRY_LOGGING_FILE", &cfg.Telemetry.Logging.File)
	envBool("TELEMETRY_METRICS_ENABLED", &cfg.Telemetry.Metrics.Enabled)
	envString("TELEMETRY_METRICS_PATH", &cfg.Telemetry.Metrics.Path)
	envBool("TELEMETRY_TRACING_ENABLED", &cfg.Telemetry.Tracing.Enabled)
	envString("TELEMETRY_TRACING_ENDPOINT", &cfg.Telemetry.Tracing.Endpoint)
	if val := os.Getenv(envPrefix + "TELEMETRY_TRACING_SAMPLE_RATIO"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Telemetry.Tracing.SampleRatio = f
		}
	}

	// Secret sources
	envString("SECRETS_ENV_PREFIX", &cfg.Secrets.EnvPrefix)
	envString("SECRETS_DIR", &cfg.Secrets.Dir)
}

// resolveSecrets replaces ${secret:name} references in the fields that may
// carry credentials. Fields without references are left alone, so no secret
// source is touched for a configuration that uses none.
func resolveSecrets(cfg *Config) error {
	fields := []struct {
		name string
		dst  *string
	}{
		{"misslog.redis.password", &cfg.MissLog.Redis.Password},
		{"server.upstream", &cfg.Server.Upstream},
		{"telemetry.tracing.endpoint", &cfg.Telemetry.Tracing.Endpoint},
	}

	var manager *secrets.Manager
	var errs []FieldError
	for _, f := range fields {
		if !secrets.HasReferences(*f.dst) {
			continue
		}
		if manager == nil {
			providers := []secrets.Provider{secrets.NewEnvProvider(cfg.Secrets.EnvPrefix)}
			if cfg.Secrets.Dir != "" {
				fp, err := secrets.NewFileProvider(cfg.Secrets.Dir)
				if err != nil {
					return ValidationError{Errors: []FieldError{{Field: "secrets.dir", Message: err.Error()}}}
				}
				providers = append(providers, fp)
			}
			manager = secrets.NewManager(nil, providers...)
		}

		value, err := manager.Resolve(context.Background(), *f.dst)
		if err != nil {
			errs = append(errs, FieldError{Field: f.name, Message: strings.ReplaceAll(err.Error(), "\n", "; ")})
			continue
		}
		*f.dst = value
	}

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

func envString(name string, dst *string) {
	if val := os.Getenv(envPrefix + name); val != "" {
		*dst = val
	}
}

func envBool(name string, dst *bool) {
	if val := os.Getenv(envPrefix + name); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			*dst = b
		}
	}
}

func envInt(name string, dst *int) {
	if val := os.Getenv(envPrefix + name); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			*dst = i
		}
	}
}

func envDuration(name string, dst *time.Duration) {
	if val := os.Getenv(envPrefix + name); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			*dst = d
		}
	}
}
