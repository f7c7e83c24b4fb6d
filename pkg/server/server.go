package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"mercator-hq/notfound/pkg/config"
	"mercator-hq/notfound/pkg/proxy/middleware"
	"mercator-hq/notfound/pkg/telemetry/health"
	"mercator-hq/notfound/pkg/telemetry/metrics"
	"mercator-hq/notfound/pkg/telemetry/tracing"
)

// Options holds the collaborators of a Server. Dispatcher and Site are
// required.
type Options struct {
	// Dispatcher decides what happens to not-found requests.
	Dispatcher middleware.Dispatcher

	// Site produces the original responses.
	Site http.Handler

	// FallbackToHostErrorHandler is passed to the not-found middleware.
	FallbackToHostErrorHandler bool

	// Health serves /health and /ready. A nil checker reports ready.
	Health *health.Checker

	// Metrics records requests and serves MetricsPath when enabled.
	Metrics     *metrics.Collector
	MetricsPath string

	// Tracer adds a server span per request when set.
	Tracer *tracing.Tracer

	// TLSConfig serves HTTPS when set. It must provide a certificate,
	// usually through GetCertificate.
	TLSConfig *tls.Config

	// Version, Commit and BuildTime are served on /version.
	Version   string
	Commit    string
	BuildTime string

	Logger *slog.Logger
}

// Server is the HTTP server of the not-found service.
type Server struct {
	config       config.ServerConfig
	opts         Options
	handler      http.Handler
	httpServer   *http.Server
	logger       *slog.Logger
	shutdownOnce sync.Once
	mu           sync.RWMutex
	isRunning    bool
	addr         net.Addr
}

// New creates a server. The handler chain is built once here.
func New(cfg *config.ServerConfig, opts Options) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("server config is nil")
	}
	if opts.Dispatcher == nil {
		return nil, errors.New("dispatcher is required")
	}
	if opts.Site == nil {
		return nil, errors.New("site handler is required")
	}
	if opts.Health == nil {
		opts.Health = health.New(0)
	}
	if opts.MetricsPath == "" {
		opts.MetricsPath = config.DefaultPrometheusPath
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	opts.Logger = logger

	s := &Server{
		config: *cfg,
		opts:   opts,
		logger: logger.With("component", "server"),
	}
	s.handler = s.setupRoutes()
	return s, nil
}

// Start listens on the configured address and serves until ctx is canceled
// or Shutdown is called. It returns after the server has shut down.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}

	ln, err := net.Listen("tcp", s.config.ListenAddress)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to listen on %s: %w", s.config.ListenAddress, err)
	}

	if s.opts.TLSConfig != nil {
		ln = tls.NewListener(ln, s.opts.TLSConfig.Clone())
	}

	s.httpServer = &http.Server{
		Handler:           s.handler,
		ReadTimeout:       s.config.ReadTimeout,
		ReadHeaderTimeout: s.config.ReadTimeout,
		WriteTimeout:      s.config.WriteTimeout,
		IdleTimeout:       s.config.IdleTimeout,
		MaxHeaderBytes:    s.config.MaxHeaderBytes,
		ErrorLog:          slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn),
	}
	s.addr = ln.Addr()
	s.isRunning = true
	s.mu.Unlock()

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", "address", ln.Addr().String(), "tls", s.opts.TLSConfig != nil)
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
		close(errChan)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case err, ok := <-errChan:
		if ok {
			return err
		}
		return nil
	}
}

// Shutdown gracefully stops the server within the configured timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.RLock()
		running := s.isRunning
		s.mu.RUnlock()
		if !running {
			return
		}

		timeout := s.config.ShutdownTimeout
		if timeout <= 0 {
			timeout = config.DefaultShutdownTimeout
		}
		s.logger.Info("initiating graceful shutdown", "timeout", timeout.String())

		shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("error during server shutdown", "error", err)
			shutdownErr = fmt.Errorf("server shutdown error: %w", err)
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		s.logger.Info("server stopped")
	})

	return shutdownErr
}

// Handler returns the full handler chain.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Addr returns the bound listen address once Start has been called.
func (s *Server) Addr() net.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.addr
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// setupRoutes registers the probe endpoints ahead of the site and wraps
// everything in the middleware chain. The probe paths shadow site content at
// the same paths.
func (s *Server) setupRoutes() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("/health", s.opts.Health.LivenessHandler())
	mux.Handle("/ready", s.opts.Health.ReadinessHandler())
	mux.Handle("/version", health.VersionHandler(s.opts.Version, s.opts.Commit, s.opts.BuildTime))
	if s.opts.Metrics.Enabled() {
		mux.Handle(s.opts.MetricsPath, s.opts.Metrics.Handler())
	}

	site := middleware.NotFoundMiddleware(s.opts.Dispatcher, middleware.NotFoundOptions{
		FallbackToHostErrorHandler: s.opts.FallbackToHostErrorHandler,
		Logger:                     s.opts.Logger,
	})(s.opts.Site)
	mux.Handle("/", site)

	var handler http.Handler = mux
	if s.opts.Metrics.Enabled() {
		handler = middleware.MetricsMiddleware(s.opts.Metrics)(handler)
	}
	handler = middleware.LoggingMiddleware(s.opts.Logger)(handler)
	handler = middleware.RequestIDMiddleware(handler)
	if s.opts.Tracer != nil {
		handler = s.opts.Tracer.Middleware(handler)
	}
	handler = middleware.RecoveryMiddleware(s.opts.Logger)(handler)

	return handler
}

