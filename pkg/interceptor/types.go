package interceptor

import (
	"context"
	"net/url"

	"mercator-hq/notfound/pkg/redirects"
)

// RequestContext is the host-supplied view of a failed request. The engine
// treats it as immutable.
type RequestContext struct {
	// URL is the absolute URL of the failed request.
	URL *url.URL

	// Referrer is the raw Referer header, possibly empty.
	Referrer string

	// StatusCode is the status the host produced for the request.
	StatusCode int

	// Err is the error captured by the host, if any.
	Err error

	// RawQuery is the undecoded query string as received.
	RawQuery string

	// RemoteAddr is the client address, "host:port" or bare host.
	RemoteAddr string
}

// PathAndQuery returns the request path with its query string.
func (rc RequestContext) PathAndQuery() string {
	if rc.URL == nil {
		return ""
	}
	return rc.URL.RequestURI()
}

// Action is the terminal action chosen for a request.
type Action int

const (
	// ActionIgnore leaves the response to the host.
	ActionIgnore Action = iota
	// ActionRedirect issues a permanent redirect.
	ActionRedirect
	// ActionFallback transfers to the fallback page with status 404.
	ActionFallback
)

func (a Action) String() string {
	switch a {
	case ActionRedirect:
		return "redirect"
	case ActionFallback:
		return "fallback"
	default:
		return "ignore"
	}
}

// Outcome names the terminal state reached by the engine.
type Outcome int

const (
	OutcomeDisabled Outcome = iota
	OutcomeIgnored
	OutcomeNotApplicable
	OutcomeLoopDetected
	OutcomeRedirectPerformed
	OutcomeFallbackShown
)

func (o Outcome) String() string {
	switch o {
	case OutcomeDisabled:
		return "disabled"
	case OutcomeIgnored:
		return "ignored"
	case OutcomeNotApplicable:
		return "not_applicable"
	case OutcomeLoopDetected:
		return "loop_detected"
	case OutcomeRedirectPerformed:
		return "redirect"
	case OutcomeFallbackShown:
		return "fallback"
	default:
		return "unknown"
	}
}

// Decision is the per-request result of the engine. It is never persisted.
type Decision struct {
	ShouldAct bool
	Action    Action
	// Target is the redirect URL or the fallback virtual path.
	Target  string
	Outcome Outcome
}

func noAction(o Outcome) Decision {
	return Decision{Action: ActionIgnore, Outcome: o}
}

// Host is the pipeline the engine drives to carry out a decision.
type Host interface {
	// RedirectPermanent issues a permanent redirect to target.
	RedirectPermanent(target string)
	// SetStatusCode overrides the outgoing status code.
	SetStatusCode(code int)
	// Transfer re-executes the request at virtualPath, suppressing the
	// host's own error page. A leading "~" denotes the site root.
	Transfer(virtualPath string)
}

// RedirectStore looks up redirect records. Implementations must be safe for
// concurrent use and must return nil rather than fail.
type RedirectStore interface {
	FindStatic(ctx context.Context, u *url.URL) *redirects.Record
	FindProvider(ctx context.Context, absoluteURL string) *redirects.Record
}

// MissLogger records requests that ended on the fallback page. LogMiss must
// not block on storage.
type MissLogger interface {
	LogMiss(ctx context.Context, path, referrer string)
}

// Observer receives decision telemetry.
type Observer interface {
	ObserveDecision(outcome string, seconds float64)
}
