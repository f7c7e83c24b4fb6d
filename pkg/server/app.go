package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"

	"mercator-hq/notfound/pkg/config"
	"mercator-hq/notfound/pkg/interceptor"
	"mercator-hq/notfound/pkg/misslog"
	"mercator-hq/notfound/pkg/misslog/retention"
	"mercator-hq/notfound/pkg/misslog/storage"
	"mercator-hq/notfound/pkg/redirects"
	sectls "mercator-hq/notfound/pkg/security/tls"
	"mercator-hq/notfound/pkg/settings"
	"mercator-hq/notfound/pkg/telemetry/health"
	"mercator-hq/notfound/pkg/telemetry/metrics"
	"mercator-hq/notfound/pkg/telemetry/tracing"
)

// AppOptions configures NewApp.
type AppOptions struct {
	// ConfigPath is the file cfg was loaded from. When set, settings are read
	// through the global configuration so that reloads reach the logging
	// mode.
	ConfigPath string

	// WatchConfig reloads ConfigPath when it changes.
	WatchConfig bool

	// Site overrides the site built from the server configuration.
	Site http.Handler

	Version   string
	Commit    string
	BuildTime string

	Logger *slog.Logger
}

// App owns every component of a running service and the order in which
// they start and stop.
type App struct {
	cfg    *config.Config
	opts   AppOptions
	logger *slog.Logger

	Settings  *settings.Resolver
	Static    *redirects.FileStore
	Redirects *redirects.Store
	Storage   misslog.Storage
	Misses    *misslog.Logger
	Pruner    *retention.Pruner
	Metrics   *metrics.Collector
	Tracer    *tracing.Tracer
	Engine    *interceptor.Engine
	Health    *health.Checker
	Server    *Server

	provider *redirects.SQLProvider
	certs    *sectls.CertificateReloader
	watchers []*redirects.FileWatcher
	closers  []func() error
	wg       sync.WaitGroup
}

// NewApp builds the service from cfg. On error every component opened so far
// is closed again.
func NewApp(cfg *config.Config, opts AppOptions) (app *App, err error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	a := &App{cfg: cfg, opts: opts, logger: logger.With("component", "app")}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	var source settings.Source = settings.NewStaticConfigSource(cfg)
	if opts.ConfigPath != "" {
		if config.GetConfig() == nil {
			config.SetConfig(cfg)
		}
		source = settings.NewConfigSource()
	}
	a.Settings = settings.NewResolver(source, logger)
	s := a.Settings.Snapshot()

	a.Metrics = metrics.NewCollector(&cfg.Telemetry.Metrics, nil)

	a.Tracer, err = tracing.New(&cfg.Telemetry.Tracing, opts.Version)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	a.closers = append(a.closers, func() error { return a.Tracer.Shutdown(context.Background()) })

	if err := a.openRedirects(s.RedirectsFile); err != nil {
		return nil, err
	}

	a.Storage, err = storage.New(cfg.MissLog)
	if err != nil {
		return nil, fmt.Errorf("failed to open miss log: %w", err)
	}
	a.closers = append(a.closers, a.Storage.Close)

	a.Misses = misslog.NewLogger(a.Storage, misslog.LoggerConfig{
		BufferSize:    s.BufferSize,
		Threshold:     s.Threshold,
		FlushInterval: cfg.MissLog.FlushInterval,
		WriteTimeout:  cfg.MissLog.WriteTimeout,
	}, a.Metrics, logger)
	// Pending misses must be written before the storage closes.
	a.closers = append(a.closers, a.Misses.Close)

	a.Pruner = retention.NewPruner(a.Storage, &retention.Config{
		RetentionDays: cfg.MissLog.Retention.Days,
		MaxRecords:    cfg.MissLog.Retention.MaxRecords,
		PruneSchedule: cfg.MissLog.Retention.PruneSchedule,
	}, logger)

	var siteURL *url.URL
	if cfg.Server.SiteURL != "" {
		siteURL, err = url.Parse(cfg.Server.SiteURL)
		if err != nil {
			return nil, fmt.Errorf("invalid site_url: %w", err)
		}
	}

	a.Engine = interceptor.NewEngine(s, a.Settings.LoggingMode, a.Redirects, a.Misses, interceptor.Options{
		SiteURL:  siteURL,
		Observer: a.Metrics,
		Tracer:   a.Tracer.Tracer(),
		Logger:   logger,
	})

	a.Health = health.New(0)
	a.Health.Register("misslog", func(ctx context.Context) error {
		_, err := a.Storage.Count(ctx, &misslog.Query{Limit: 1})
		return err
	})
	if a.provider != nil {
		a.Health.Register("redirect_provider", func(ctx context.Context) error {
			_, err := a.provider.Count(ctx)
			return err
		})
	}

	site := opts.Site
	if site == nil {
		site, err = NewSite(&cfg.Server, logger)
		if err != nil {
			return nil, err
		}
	}

	tlsConfig, err := a.openTLS()
	if err != nil {
		return nil, err
	}

	a.Server, err = New(&cfg.Server, Options{
		Dispatcher:                 a.Engine,
		Site:                       site,
		FallbackToHostErrorHandler: s.FallbackToHostErrorHandler,
		Health:                     a.Health,
		Metrics:                    a.Metrics,
		MetricsPath:                cfg.Telemetry.Metrics.Path,
		Tracer:                     a.Tracer,
		TLSConfig:                  tlsConfig,
		Version:                    opts.Version,
		Commit:                     opts.Commit,
		BuildTime:                  opts.BuildTime,
		Logger:                     logger,
	})
	if err != nil {
		return nil, err
	}

	a.logger.Info("service initialized",
		"handler_mode", s.HandlerMode.String(),
		"logging", a.Settings.LoggingMode().String(),
		"file_not_found_page", s.FileNotFoundPage,
		"redirects", a.Static.Len(),
		"provider", a.provider != nil,
		"misslog_backend", cfg.MissLog.Backend,
	)
	return a, nil
}

// openRedirects loads the static list and opens the optional provider.
// A missing or invalid static file is logged and leaves the list empty.
func (a *App) openRedirects(file string) error {
	a.Static = redirects.NewFileStore(file, a.opts.Logger)
	if err := a.Static.Load(); err != nil {
		a.logger.Warn("static redirects not loaded", "file", file, "error", err)
	}
	a.Metrics.UpdateRedirectsLoaded("static", a.Static.Len())

	var provider redirects.Provider
	pc := a.cfg.Redirects.Provider
	if pc.Enabled {
		p, err := redirects.OpenSQLProvider(redirects.SQLProviderConfig{Path: pc.Path})
		if err != nil {
			return fmt.Errorf("failed to open redirect provider: %w", err)
		}
		a.provider = p
		a.closers = append(a.closers, p.Close)
		provider = p
		if pc.CacheSize > 0 {
			provider = redirects.NewCachedProvider(p, pc.CacheSize, pc.CacheTTL)
		}
		if n, err := p.Count(context.Background()); err == nil {
			a.Metrics.UpdateRedirectsLoaded("provider", int(n))
		}
	}

	a.Redirects = redirects.NewStore(a.Static, provider, a.Metrics, a.opts.Logger)
	return nil
}

// openTLS loads the server certificate when TLS is enabled. The returned
// configuration is nil for plain HTTP.
func (a *App) openTLS() (*tls.Config, error) {
	tc := &a.cfg.Server.TLS
	if !tc.Enabled {
		return nil, nil
	}
	a.certs = sectls.NewCertificateReloader(tc.CertFile, tc.KeyFile, tc.Interval(), a.opts.Logger)
	if err := a.certs.Load(); err != nil {
		return nil, fmt.Errorf("failed to load TLS certificate: %w", err)
	}
	return tc.ToTLSConfig(a.certs)
}

// ReloadRedirects re-reads the static list and clears the provider cache.
func (a *App) ReloadRedirects() error {
	if err := a.Redirects.Reload(); err != nil {
		return err
	}
	a.Metrics.UpdateRedirectsLoaded("static", a.Static.Len())
	a.logger.Info("redirects reloaded", "count", a.Static.Len())
	return nil
}

// ReloadConfig re-reads the configuration file. Only the logging mode takes
// effect without a restart.
func (a *App) ReloadConfig() error {
	if a.opts.ConfigPath == "" {
		return errors.New("no configuration file to reload")
	}
	if err := config.ReloadConfig(a.opts.ConfigPath); err != nil {
		return err
	}
	a.logger.Info("configuration reloaded",
		"path", a.opts.ConfigPath,
		"logging", a.Settings.LoggingMode().String(),
	)
	return nil
}

// Run starts the background jobs and the server, and blocks until ctx is
// canceled or the server fails. Components are closed before it returns.
func (a *App) Run(ctx context.Context) error {
	defer a.Close()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := a.Pruner.Start(ctx); err != nil {
		return fmt.Errorf("failed to start retention: %w", err)
	}
	a.closers = append(a.closers, func() error { a.Pruner.Stop(); return nil })

	if a.cfg.Redirects.Watch {
		if err := a.watch(ctx, a.Static.Path(), a.ReloadRedirects); err != nil {
			return err
		}
	}
	if a.opts.WatchConfig && a.opts.ConfigPath != "" {
		if err := a.watch(ctx, a.opts.ConfigPath, a.ReloadConfig); err != nil {
			return err
		}
	}
	if a.certs != nil {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			a.certs.Watch(ctx)
		}()
	}

	return a.Server.Start(ctx)
}

func (a *App) watch(ctx context.Context, path string, onChange func() error) error {
	fw, err := redirects.NewFileWatcher(redirects.DefaultFileWatcherConfig(path), a.opts.Logger)
	if err != nil {
		return fmt.Errorf("failed to watch %s: %w", path, err)
	}
	a.watchers = append(a.watchers, fw)

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := fw.Watch(ctx, onChange); err != nil {
			a.logger.Error("file watcher failed", "path", path, "error", err)
		}
	}()
	return nil
}

// Close stops watchers, flushes the miss log and releases every backend, in
// reverse order of creation. It is safe to call more than once.
func (a *App) Close() error {
	for _, fw := range a.watchers {
		_ = fw.Stop()
	}
	a.watchers = nil
	a.wg.Wait()

	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
