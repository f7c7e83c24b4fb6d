package interceptor

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"mercator-hq/notfound/pkg/settings"
	"mercator-hq/notfound/pkg/telemetry/tracing"
)

// Options holds the optional collaborators of an Engine.
type Options struct {
	// Inspector classifies captured errors. Defaults to InspectError.
	Inspector Inspector

	// IsLocal decides whether a client is local for RemoteOnly mode.
	// Defaults to IsLocalAddress.
	IsLocal func(remoteAddr string) bool

	// SiteURL is the site's own scheme and host, used to shorten same-site
	// referrers. When nil the scheme and host of each request are used.
	SiteURL *url.URL

	// Observer receives one observation per decision.
	Observer Observer

	// Tracer creates decision spans. Defaults to a noop tracer.
	Tracer trace.Tracer

	// Logger defaults to slog.Default.
	Logger *slog.Logger
}

// Engine decides what to do with a not-found request and carries the
// decision out through a Host. It holds no per-request state.
type Engine struct {
	settings    settings.OperatingSettings
	loggingMode func() settings.LoggerMode
	filter      *ResourceFilter
	classifier  *Classifier
	resolver    *Resolver
	misses      MissLogger
	isLocal     func(string) bool
	siteURL     *url.URL
	observer    Observer
	tracer      trace.Tracer
	logger      *slog.Logger
}

// NewEngine creates an Engine. s is fixed for the engine's lifetime while
// loggingMode is consulted on every fallback. A nil loggingMode keeps logging
// on; a nil misses discards misses.
func NewEngine(s settings.OperatingSettings, loggingMode func() settings.LoggerMode, store RedirectStore, misses MissLogger, opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "interceptor")

	if loggingMode == nil {
		loggingMode = func() settings.LoggerMode { return settings.LoggerOn }
	}
	isLocal := opts.IsLocal
	if isLocal == nil {
		isLocal = IsLocalAddress
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("notfound")
	}

	return &Engine{
		settings:    s,
		loggingMode: loggingMode,
		filter:      NewResourceFilter(s.IgnoredExtensions, s.CaseSensitiveExtensions),
		classifier:  NewClassifier(opts.Inspector, logger),
		resolver:    NewResolver(store),
		misses:      misses,
		isLocal:     isLocal,
		siteURL:     opts.SiteURL,
		observer:    opts.Observer,
		tracer:      tracer,
		logger:      logger,
	}
}

// Settings returns the settings the engine was built with.
func (e *Engine) Settings() settings.OperatingSettings {
	return e.settings
}

// Decide runs the guards in order and returns the decision for rc without
// touching the host or the miss log.
func (e *Engine) Decide(ctx context.Context, rc RequestContext) Decision {
	switch e.settings.HandlerMode {
	case settings.ModeOff:
		return noAction(OutcomeDisabled)
	case settings.ModeRemoteOnly:
		if e.isLocal(rc.RemoteAddr) {
			e.logger.Debug("local request in remote-only mode, not handling", "remote_addr", rc.RemoteAddr)
			return noAction(OutcomeDisabled)
		}
	}

	if rc.URL == nil {
		return noAction(OutcomeNotApplicable)
	}

	if e.filter.IsIgnorableResource(rc.URL.Path) {
		e.logger.Debug("ignoring known resource extension", "url", rc.URL.String())
		return noAction(OutcomeIgnored)
	}

	if e.classifier.Classify(rc) != GenuineNotFound {
		return noAction(OutcomeNotApplicable)
	}

	if HasReentryMarker(rc.RawQuery) {
		return noAction(OutcomeLoopDetected)
	}
	if isFallbackRequest(rc, e.settings.FileNotFoundPage) {
		e.logger.Info("fallback page itself not found, not handling", "url", rc.URL.String())
		return noAction(OutcomeLoopDetected)
	}

	if target, ok := e.resolver.Resolve(ctx, rc.URL); ok {
		return Decision{
			ShouldAct: true,
			Action:    ActionRedirect,
			Target:    target,
			Outcome:   OutcomeRedirectPerformed,
		}
	}

	return Decision{
		ShouldAct: true,
		Action:    ActionFallback,
		Target:    FallbackURL(e.settings.FileNotFoundPage, rc.PathAndQuery()),
		Outcome:   OutcomeFallbackShown,
	}
}

// Dispatch decides and performs exactly one terminal action on host: a
// permanent redirect, or a logged miss followed by a transfer to the
// fallback page with status 404. It never fails.
func (e *Engine) Dispatch(ctx context.Context, rc RequestContext, host Host) Decision {
	start := time.Now()
	ctx, span := e.tracer.Start(ctx, "notfound.dispatch",
		trace.WithSpanKind(trace.SpanKindInternal),
	)
	defer span.End()

	d := e.Decide(ctx, rc)

	switch d.Action {
	case ActionRedirect:
		e.logger.Debug("redirecting", "url", urlString(rc), "target", d.Target)
		host.RedirectPermanent(d.Target)
	case ActionFallback:
		if e.misses != nil && e.loggingMode() == settings.LoggerOn {
			e.misses.LogMiss(ctx, rc.PathAndQuery(), NormalizeReferrer(rc.Referrer, e.site(rc)))
		}
		host.SetStatusCode(http.StatusNotFound)
		host.Transfer(d.Target)
	}

	target := ""
	if d.Action == ActionRedirect {
		target = d.Target
	}
	tracing.SetDecision(span, d.Outcome.String(), d.Action.String(), target)
	tracing.SetError(span, rc.Err)
	if e.observer != nil {
		e.observer.ObserveDecision(d.Outcome.String(), time.Since(start).Seconds())
	}
	return d
}

// site returns the configured site URL or the origin of the request.
func (e *Engine) site(rc RequestContext) *url.URL {
	if e.siteURL != nil {
		return e.siteURL
	}
	if rc.URL == nil {
		return nil
	}
	return &url.URL{Scheme: rc.URL.Scheme, Host: rc.URL.Host}
}
