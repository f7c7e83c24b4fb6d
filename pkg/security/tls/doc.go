/*
Package tls serves the HTTP front over TLS with certificates that are
reloaded from disk when they are renewed.

	reloader := tls.NewCertificateReloader(cfg.CertFile, cfg.KeyFile, cfg.Interval(), logger)
	if err := reloader.Load(); err != nil {
		return err
	}
	tlsConfig, err := cfg.ToTLSConfig(reloader)
	if err != nil {
		return err
	}
	go reloader.Watch(ctx)

Only TLS 1.2 and 1.3 are accepted. Certificates that are expired or not yet
valid are refused at load time; a certificate with less than
ExpiryWarningDays left is logged as a warning.
*/
package tls
