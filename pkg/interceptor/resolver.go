package interceptor

import (
	"context"
	"net/url"
	"strings"

	"mercator-hq/notfound/pkg/redirects"
)

// Resolver turns a failed URL into a redirect target using a RedirectStore.
type Resolver struct {
	store RedirectStore
}

// NewResolver returns a Resolver over store. A nil store never matches.
func NewResolver(store RedirectStore) *Resolver {
	return &Resolver{store: store}
}

// Lookup returns the first record for failed: the static list wins, and the
// provider is only asked, with the absolute URL, when the static list has
// nothing.
func (r *Resolver) Lookup(ctx context.Context, failed *url.URL) *redirects.Record {
	if r.store == nil || failed == nil {
		return nil
	}
	if rec := r.store.FindStatic(ctx, failed); rec != nil {
		return rec
	}
	return r.store.FindProvider(ctx, failed.String())
}

// Resolve returns the redirect target for failed. Only saved records are
// actionable, and a record pointing back at the failed path and query is
// treated as no match.
func (r *Resolver) Resolve(ctx context.Context, failed *url.URL) (string, bool) {
	rec := r.Lookup(ctx, failed)
	if rec == nil || rec.State != redirects.StateSaved {
		return "", false
	}
	if IsSelfRedirect(rec.NewURL, failed.RequestURI()) {
		return "", false
	}
	return rec.NewURL, true
}

// IsSelfRedirect reports whether target equals pathAndQuery, ignoring case.
func IsSelfRedirect(target, pathAndQuery string) bool {
	return strings.EqualFold(target, pathAndQuery)
}
