package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "server.listen_address").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. All validation errors are collected and
// returned together.
//
// The handler section is not validated here. Its values degrade to defaults
// in the settings resolver, so a bad value never prevents startup.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateRedirects(&cfg.Redirects)...)
	errs = append(errs, validateMissLog(&cfg.MissLog)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}

	return nil
}

// validateServer validates server configuration.
func validateServer(cfg *ServerConfig) []FieldError {
	var errs []FieldError

	if cfg.ListenAddress == "" {
		errs = append(errs, FieldError{
			Field:   "server.listen_address",
			Message: "listen address is required",
		})
	}

	if cfg.ReadTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.read_timeout",
			Message: "read timeout must be positive",
		})
	}
	if cfg.WriteTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.write_timeout",
			Message: "write timeout must be positive",
		})
	}
	if cfg.IdleTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.idle_timeout",
			Message: "idle timeout must be positive",
		})
	}
	if cfg.ShutdownTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.shutdown_timeout",
			Message: "shutdown timeout must be positive",
		})
	}

	if cfg.MaxHeaderBytes < 0 {
		errs = append(errs, FieldError{
			Field:   "server.max_header_bytes",
			Message: "max header bytes must be non-negative",
		})
	}
	if cfg.MaxHeaderBytes > 10*1024*1024 { // 10MB is excessive
		errs = append(errs, FieldError{
			Field:   "server.max_header_bytes",
			Message: "max header bytes exceeds reasonable limit (10MB)",
		})
	}

	if cfg.ContentDir == "" && cfg.Upstream == "" {
		errs = append(errs, FieldError{
			Field:   "server.content_dir",
			Message: "either content_dir or upstream is required",
		})
	}
	if cfg.Upstream != "" {
		errs = append(errs, validateAbsoluteURL("server.upstream", cfg.Upstream)...)
	}
	if cfg.SiteURL != "" {
		errs = append(errs, validateAbsoluteURL("server.site_url", cfg.SiteURL)...)
	}
	if err := cfg.TLS.Validate(); err != nil {
		errs = append(errs, FieldError{
			Field:   "server.tls",
			Message: strings.ReplaceAll(err.Error(), "\n", "; "),
		})
	}

	return errs
}

func validateAbsoluteURL(field, raw string) []FieldError {
	u, err := url.Parse(raw)
	if err != nil {
		return []FieldError{{Field: field, Message: fmt.Sprintf("invalid URL format: %v", err)}}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return []FieldError{{Field: field, Message: "scheme must be http or https"}}
	}
	if u.Host == "" {
		return []FieldError{{Field: field, Message: "host is required"}}
	}
	return nil
}

// validateRedirects validates redirect store configuration.
func validateRedirects(cfg *RedirectsConfig) []FieldError {
	var errs []FieldError

	if cfg.File == "" {
		errs = append(errs, FieldError{
			Field:   "redirects.file",
			Message: "redirects file is required",
		})
	}

	if cfg.Provider.Enabled && cfg.Provider.Path == "" {
		errs = append(errs, FieldError{
			Field:   "redirects.provider.path",
			Message: "provider path is required when the provider is enabled",
		})
	}
	if cfg.Provider.CacheSize < 0 {
		errs = append(errs, FieldError{
			Field:   "redirects.provider.cache_size",
			Message: "cache size must be non-negative",
		})
	}
	if cfg.Provider.CacheTTL < 0 {
		errs = append(errs, FieldError{
			Field:   "redirects.provider.cache_ttl",
			Message: "cache ttl must be positive",
		})
	}

	return errs
}

// validateMissLog validates miss log configuration.
func validateMissLog(cfg *MissLogConfig) []FieldError {
	var errs []FieldError

	validBackends := map[string]bool{"sqlite": true, "memory": true, "redis": true}
	if !validBackends[cfg.Backend] {
		errs = append(errs, FieldError{
			Field:   "misslog.backend",
			Message: fmt.Sprintf("invalid backend %q, must be one of: sqlite, memory, redis", cfg.Backend),
		})
	}

	if cfg.FlushInterval < 0 {
		errs = append(errs, FieldError{
			Field:   "misslog.flush_interval",
			Message: "flush interval must be positive",
		})
	}
	if cfg.WriteTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "misslog.write_timeout",
			Message: "write timeout must be positive",
		})
	}

	switch cfg.Backend {
	case "sqlite":
		if cfg.SQLite.Path == "" {
			errs = append(errs, FieldError{
				Field:   "misslog.sqlite.path",
				Message: "sqlite path is required when backend is sqlite",
			})
		}
		if cfg.SQLite.MaxOpenConns < 0 {
			errs = append(errs, FieldError{
				Field:   "misslog.sqlite.max_open_conns",
				Message: "max open connections must be non-negative",
			})
		}
		if cfg.SQLite.MaxIdleConns > cfg.SQLite.MaxOpenConns && cfg.SQLite.MaxOpenConns > 0 {
			errs = append(errs, FieldError{
				Field:   "misslog.sqlite.max_idle_conns",
				Message: "max idle connections cannot exceed max open connections",
			})
		}
	case "redis":
		if cfg.Redis.Address == "" {
			errs = append(errs, FieldError{
				Field:   "misslog.redis.address",
				Message: "redis address is required when backend is redis",
			})
		}
		if cfg.Redis.DB < 0 {
			errs = append(errs, FieldError{
				Field:   "misslog.redis.db",
				Message: "redis db must be non-negative",
			})
		}
	}

	if cfg.Retention.Days < 0 {
		errs = append(errs, FieldError{
			Field:   "misslog.retention.days",
			Message: "retention days must be non-negative",
		})
	}
	if cfg.Retention.MaxRecords < 0 {
		errs = append(errs, FieldError{
			Field:   "misslog.retention.max_records",
			Message: "max records must be non-negative",
		})
	}
	if cfg.Retention.PruneSchedule != "" {
		if _, err := cron.ParseStandard(cfg.Retention.PruneSchedule); err != nil {
			errs = append(errs, FieldError{
				Field:   "misslog.retention.prune_schedule",
				Message: fmt.Sprintf("invalid cron expression: %v", err),
			})
		}
	}

	return errs
}

// validateTelemetry validates telemetry configuration.
func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(cfg.Logging.Level)] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid log level %q, must be one of: debug, info, warn, error", cfg.Logging.Level),
		})
	}

	validFormats := map[string]bool{"json": true, "text": true, "console": true}
	if !validFormats[strings.ToLower(cfg.Logging.Format)] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid log format %q, must be one of: json, text, console", cfg.Logging.Format),
		})
	}
	if cfg.Logging.MaxSizeMB < 0 || cfg.Logging.MaxBackups < 0 || cfg.Logging.MaxAgeDays < 0 {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging",
			Message: "rotation limits must be non-negative",
		})
	}

	if cfg.Metrics.Enabled {
		if cfg.Metrics.Path == "" || !strings.HasPrefix(cfg.Metrics.Path, "/") {
			errs = append(errs, FieldError{
				Field:   "telemetry.metrics.path",
				Message: "metrics path must start with /",
			})
		}
		for i := 1; i < len(cfg.Metrics.DecisionDurationBuckets); i++ {
			if cfg.Metrics.DecisionDurationBuckets[i] <= cfg.Metrics.DecisionDurationBuckets[i-1] {
				errs = append(errs, FieldError{
					Field:   "telemetry.metrics.decision_duration_buckets",
					Message: "buckets must be in strictly increasing order",
				})
				break
			}
		}
	}

	if cfg.Tracing.Enabled {
		validSamplers := map[string]bool{"always": true, "never": true, "ratio": true}
		if !validSamplers[cfg.Tracing.Sampler] {
			errs = append(errs, FieldError{
				Field:   "telemetry.tracing.sampler",
				Message: fmt.Sprintf("invalid sampler %q, must be one of: always, never, ratio", cfg.Tracing.Sampler),
			})
		}
		if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1 {
			errs = append(errs, FieldError{
				Field:   "telemetry.tracing.sample_ratio",
				Message: "sample ratio must be between 0.0 and 1.0",
			})
		}
		if cfg.Tracing.Endpoint == "" {
			errs = append(errs, FieldError{
				Field:   "telemetry.tracing.endpoint",
				Message: "endpoint is required when tracing is enabled",
			})
		}
	}

	return errs
}
