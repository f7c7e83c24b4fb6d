package config

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// loaded pairs a configuration with the file it came from so both are
// swapped together.
type loaded struct {
	cfg  *Config
	path string
}

var (
	current  atomic.Pointer[loaded]
	initOnce sync.Once
)

// Initialize loads configuration from path with environment overrides and
// makes it the process configuration. Only the first call has an effect.
func Initialize(path string) error {
	var initErr error
	initOnce.Do(func() {
		cfg, err := LoadConfigWithEnvOverrides(path)
		if err != nil {
			initErr = err
			return
		}
		current.Store(&loaded{cfg: cfg, path: path})
	})
	return initErr
}

// GetConfig returns the process configuration, nil before Initialize or
// SetConfig. The value is read-only; ReloadConfig swaps in a new instance
// instead of mutating this one.
func GetConfig() *Config {
	if l := current.Load(); l != nil {
		return l.cfg
	}
	return nil
}

// Path returns the file the process configuration was loaded from.
func Path() string {
	if l := current.Load(); l != nil {
		return l.path
	}
	return ""
}

// SetConfig installs cfg. The recorded path is left as it was.
func SetConfig(cfg *Config) {
	current.Store(&loaded{cfg: cfg, path: Path()})
}

// ReloadConfig loads path and installs the result. On any error the current
// configuration stays in place.
func ReloadConfig(path string) error {
	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		return fmt.Errorf("failed to reload configuration: %w", err)
	}
	current.Store(&loaded{cfg: cfg, path: path})
	return nil
}
