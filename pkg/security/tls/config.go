package tls

import (
	"crypto/tls"
	"errors"
	"fmt"
	"time"
)

// DefaultReloadInterval is used when Config.ReloadInterval is zero.
const DefaultReloadInterval = 5 * time.Minute

// Config is the TLS configuration of the HTTP server.
type Config struct {
	// Enabled serves HTTPS instead of plain HTTP.
	Enabled bool `yaml:"enabled"`

	// CertFile is the path to the PEM-encoded certificate chain.
	CertFile string `yaml:"cert_file"`

	// KeyFile is the path to the PEM-encoded private key.
	KeyFile string `yaml:"key_file"`

	// MinVersion is the minimum TLS version to accept.
	// Options: "1.2", "1.3"
	// Default: "1.2"
	MinVersion string `yaml:"min_version"`

	// CipherSuites restricts the TLS 1.2 cipher suites. Empty keeps Go's
	// defaults. TLS 1.3 suites are not configurable.
	CipherSuites []string `yaml:"cipher_suites"`

	// ReloadInterval is how often the certificate files are checked for
	// changes.
	// Default: 5m
	ReloadInterval time.Duration `yaml:"reload_interval"`
}

// Validate checks the fields that matter when TLS is enabled.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}

	var errs []error
	if c.CertFile == "" {
		errs = append(errs, errors.New("cert_file is required when TLS is enabled"))
	}
	if c.KeyFile == "" {
		errs = append(errs, errors.New("key_file is required when TLS is enabled"))
	}
	if _, err := parseTLSVersion(c.MinVersion); err != nil {
		errs = append(errs, err)
	}
	if _, err := parseCipherSuites(c.CipherSuites); err != nil {
		errs = append(errs, err)
	}
	if c.ReloadInterval < 0 {
		errs = append(errs, errors.New("reload_interval must be positive"))
	}
	return errors.Join(errs...)
}

// ToTLSConfig builds a server configuration whose certificate is served by
// r, so rotated certificates are picked up without a restart.
func (c *Config) ToTLSConfig(r *CertificateReloader) (*tls.Config, error) {
	if r == nil {
		return nil, errors.New("certificate reloader is required")
	}
	version, err := parseTLSVersion(c.MinVersion)
	if err != nil {
		return nil, err
	}
	suites, err := parseCipherSuites(c.CipherSuites)
	if err != nil {
		return nil, err
	}

	// #nosec G402 - MinVersion is never below TLS 1.2
	return &tls.Config{
		MinVersion:     version,
		CipherSuites:   suites,
		GetCertificate: r.GetCertificateFunc(),
		NextProtos:     []string{"h2", "http/1.1"},
	}, nil
}

// Interval returns ReloadInterval or its default.
func (c *Config) Interval() time.Duration {
	if c.ReloadInterval <= 0 {
		return DefaultReloadInterval
	}
	return c.ReloadInterval
}

// parseTLSVersion accepts "1.2" and "1.3". TLS 1.0 and 1.1 are refused.
func parseTLSVersion(v string) (uint16, error) {
	switch v {
	case "1.2", "":
		return tls.VersionTLS12, nil
	case "1.3":
		return tls.VersionTLS13, nil
	default:
		return 0, fmt.Errorf("unsupported min_version %q (use 1.2 or 1.3)", v)
	}
}

func parseCipherSuites(names []string) ([]uint16, error) {
	if len(names) == 0 {
		return nil, nil
	}
	suites := make([]uint16, 0, len(names))
	for _, name := range names {
		id, ok := cipherSuiteMap[name]
		if !ok {
			return nil, fmt.Errorf("unknown cipher suite %q", name)
		}
		suites = append(suites, id)
	}
	return suites, nil
}

// cipherSuiteMap lists the TLS 1.2 suites that may be selected.
var cipherSuiteMap = map[string]uint16{
	"TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256":   tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
	"TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384":   tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
	"TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256": tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
	"TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384": tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
	"TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305":    tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305_SHA256,
	"TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305":  tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305_SHA256,
}
