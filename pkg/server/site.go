package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"

	"mercator-hq/notfound/pkg/config"
	"mercator-hq/notfound/pkg/telemetry/tracing"
)

// NewSite returns the handler producing the site's own responses: a reverse
// proxy when an upstream is configured, otherwise a file server over the
// content directory.
func NewSite(cfg *config.ServerConfig, logger *slog.Logger) (http.Handler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "site")

	if cfg.Upstream != "" {
		return newUpstreamSite(cfg.Upstream, logger)
	}

	info, err := os.Stat(cfg.ContentDir)
	if err != nil {
		return nil, fmt.Errorf("content directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("content directory %s is not a directory", cfg.ContentDir)
	}
	logger.Info("serving content directory", "dir", cfg.ContentDir)
	return http.FileServer(http.Dir(cfg.ContentDir)), nil
}

func newUpstreamSite(raw string, logger *slog.Logger) (http.Handler, error) {
	upstream, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid upstream %q: %w", raw, err)
	}
	if upstream.Scheme != "http" && upstream.Scheme != "https" || upstream.Host == "" {
		return nil, fmt.Errorf("invalid upstream %q: must be an absolute http(s) URL", raw)
	}

	logger.Info("proxying to upstream", "upstream", upstream.String())
	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(upstream)
			pr.SetXForwarded()
			tracing.Inject(pr.In.Context(), pr.Out.Header)
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			logger.WarnContext(r.Context(), "upstream request failed",
				"path", r.URL.RequestURI(),
				"error", err,
			)
			http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
		},
		ErrorLog: slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
	}, nil
}
