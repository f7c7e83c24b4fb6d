package settings

import (
	"strings"

	"mercator-hq/notfound/pkg/config"
)

// Setting keys understood by the resolver.
const (
	KeyHandlerMode                = "handlerMode"
	KeyLogging                    = "logging"
	KeyFileNotFoundPage           = "fileNotFoundPage"
	KeyRedirectsFile              = "redirectsFile"
	KeyBufferSize                 = "bufferSize"
	KeyThreshold                  = "threshold"
	KeyIgnoredResourceExtensions  = "ignoredResourceExtensions"
	KeyCaseSensitiveExtensions    = "caseSensitiveExtensions"
	KeyFallbackToHostErrorHandler = "fallbackToHostErrorHandler"
)

// Source is a key/value configuration source. Lookup reports false when the
// key is absent; an empty value is treated the same as an absent one.
type Source interface {
	Lookup(key string) (string, bool)
}

// MapSource is a Source backed by a plain map.
type MapSource map[string]string

// Lookup implements Source.
func (m MapSource) Lookup(key string) (string, bool) {
	v, ok := m[key]
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return v, true
}

// ConfigSource reads settings from a *config.Config. The config is fetched
// on every lookup, so a source built on config.GetConfig follows reloads.
type ConfigSource struct {
	get func() *config.Config
}

// NewConfigSource returns a source over the global configuration singleton.
func NewConfigSource() *ConfigSource {
	return &ConfigSource{get: config.GetConfig}
}

// NewStaticConfigSource returns a source over a fixed configuration value.
func NewStaticConfigSource(cfg *config.Config) *ConfigSource {
	return &ConfigSource{get: func() *config.Config { return cfg }}
}

// Lookup implements Source.
func (s *ConfigSource) Lookup(key string) (string, bool) {
	cfg := s.get()
	if cfg == nil {
		return "", false
	}

	var v string
	switch key {
	case KeyHandlerMode:
		v = cfg.Handler.Mode
	case KeyLogging:
		v = cfg.Handler.Logging
	case KeyFileNotFoundPage:
		v = cfg.Handler.FileNotFoundPage
	case KeyRedirectsFile:
		v = cfg.Redirects.File
	case KeyBufferSize:
		v = cfg.Handler.BufferSize
	case KeyThreshold:
		v = cfg.Handler.Threshold
	case KeyIgnoredResourceExtensions:
		v = cfg.Handler.IgnoredResourceExtensions
	case KeyCaseSensitiveExtensions:
		v = cfg.Handler.CaseSensitiveExtensions
	case KeyFallbackToHostErrorHandler:
		v = cfg.Handler.FallbackToHostErrorHandler
	}

	if strings.TrimSpace(v) == "" {
		return "", false
	}
	return v, true
}
