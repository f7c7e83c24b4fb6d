// Package config provides configuration management for the notfound service.
//
// Configuration is read from a YAML file, completed with defaults, overridden
// from the environment and validated before use.
//
//	cfg, err := config.LoadConfigWithEnvOverrides("notfound.yaml")
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention NOTFOUND_SECTION_FIELD:
//
//   - NOTFOUND_SERVER_LISTEN_ADDRESS overrides server.listen_address
//   - NOTFOUND_HANDLER_MODE overrides handler.mode
//   - NOTFOUND_MISSLOG_BACKEND overrides misslog.backend
//   - NOTFOUND_SERVER_TLS_ENABLED overrides server.tls.enabled
//
// # Secret References
//
// misslog.redis.password, server.upstream and telemetry.tracing.endpoint may
// contain ${secret:name} references. They are resolved after the environment
// overrides, first from NOTFOUND_SECRET_<NAME> and then from a file named
// after the secret in secrets.dir.
//
// # Handler Section
//
// The handler section is kept as raw strings. It is not validated: the
// settings resolver parses each value and falls back to its default when a
// value is missing or malformed, so an operator typo never stops the service.
//
// # Singleton
//
//	if err := config.Initialize("notfound.yaml"); err != nil {
//	    log.Fatal(err)
//	}
//	cfg := config.GetConfig()
//
// ReloadConfig replaces the singleton atomically. Readers that look the
// configuration up on every use, like the logging toggle, observe the new
// values immediately.
package config
