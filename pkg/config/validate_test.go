package config

import (
	"errors"
	"strings"
	"testing"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		modify    func(*Config)
		wantField string
	}{
		{
			name:      "empty listen address",
			modify:    func(c *Config) { c.Server.ListenAddress = "" },
			wantField: "server.listen_address",
		},
		{
			name:      "negative read timeout",
			modify:    func(c *Config) { c.Server.ReadTimeout = -1 },
			wantField: "server.read_timeout",
		},
		{
			name: "no site backend",
			modify: func(c *Config) {
				c.Server.ContentDir = ""
				c.Server.Upstream = ""
			},
			wantField: "server.content_dir",
		},
		{
			name:      "relative upstream",
			modify:    func(c *Config) { c.Server.Upstream = "/origin" },
			wantField: "server.upstream",
		},
		{
			name:      "site url without host",
			modify:    func(c *Config) { c.Server.SiteURL = "https://" },
			wantField: "server.site_url",
		},
		{
			name: "provider without path",
			modify: func(c *Config) {
				c.Redirects.Provider.Enabled = true
				c.Redirects.Provider.Path = ""
			},
			wantField: "redirects.provider.path",
		},
		{
			name: "redis without address",
			modify: func(c *Config) {
				c.MissLog.Backend = "redis"
				c.MissLog.Redis.Address = ""
			},
			wantField: "misslog.redis.address",
		},
		{
			name:      "bad cron",
			modify:    func(c *Config) { c.MissLog.Retention.PruneSchedule = "61 * * * *" },
			wantField: "misslog.retention.prune_schedule",
		},
		{
			name:      "bad log level",
			modify:    func(c *Config) { c.Telemetry.Logging.Level = "verbose" },
			wantField: "telemetry.logging.level",
		},
		{
			name: "unordered buckets",
			modify: func(c *Config) {
				c.Telemetry.Metrics.DecisionDurationBuckets = []float64{0.1, 0.01}
			},
			wantField: "telemetry.metrics.decision_duration_buckets",
		},
		{
			name: "tracing without endpoint",
			modify: func(c *Config) {
				c.Telemetry.Tracing.Enabled = true
				c.Telemetry.Tracing.Endpoint = ""
			},
			wantField: "telemetry.tracing.endpoint",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewTestConfig().Build()
			tt.modify(cfg)

			err := Validate(cfg)
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}

			var verr ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %T", err)
			}

			found := false
			for _, fe := range verr.Errors {
				if fe.Field == tt.wantField {
					found = true
				}
			}
			if !found {
				t.Errorf("expected error on field %q, got %v", tt.wantField, verr.Errors)
			}
		})
	}
}

func TestValidate_HandlerSectionIgnored(t *testing.T) {
	cfg := NewTestConfig().
		WithHandlerMode("sometimes").
		Build()
	cfg.Handler.Threshold = "-42"

	if err := Validate(cfg); err != nil {
		t.Errorf("expected handler values to be left for the resolver, got %v", err)
	}
}

func TestValidationError_Multiple(t *testing.T) {
	err := ValidationError{Errors: []FieldError{
		{Field: "a", Message: "first"},
		{Field: "b", Message: "second"},
	}}

	msg := err.Error()
	if !strings.Contains(msg, "2 errors") {
		t.Errorf("expected error count in message, got %q", msg)
	}
	if !strings.Contains(msg, "a: first") || !strings.Contains(msg, "b: second") {
		t.Errorf("expected both field errors in message, got %q", msg)
	}
}
