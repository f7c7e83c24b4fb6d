package interceptor

import (
	"net/url"
	"strings"
)

// NotFoundParam is the query marker carried by requests transferred to the
// fallback page.
const NotFoundParam = "404;notfound"

// reentryPrefix identifies a transferred request.
const reentryPrefix = "404;"

// HasReentryMarker reports whether rawQuery belongs to a request that was
// already transferred to the fallback page.
func HasReentryMarker(rawQuery string) bool {
	return strings.HasPrefix(rawQuery, reentryPrefix)
}

// FallbackPath strips the virtual root marker and any query from the
// configured fallback page.
func FallbackPath(fallbackPage string) string {
	p := strings.TrimPrefix(fallbackPage, "~")
	if i := strings.IndexByte(p, '?'); i >= 0 {
		p = p[:i]
	}
	return p
}

// IsRecursive reports whether handling rc would re-enter the handler: either
// the request is itself a transfer, or it targets the fallback page.
func IsRecursive(rc RequestContext, fallbackPage string) bool {
	if HasReentryMarker(rc.RawQuery) {
		return true
	}
	return isFallbackRequest(rc, fallbackPage)
}

func isFallbackRequest(rc RequestContext, fallbackPage string) bool {
	if rc.URL == nil {
		return false
	}
	target := FallbackPath(fallbackPage)
	if target == "" {
		return false
	}
	return strings.EqualFold(rc.URL.Path, target) || strings.EqualFold(rc.URL.EscapedPath(), target)
}

// FallbackURL builds the virtual path the request is transferred to. The
// marker always leads the query so that re-entry is recognised.
func FallbackURL(fallbackPage, pathAndQuery string) string {
	base := fallbackPage
	extra := ""
	if i := strings.IndexByte(base, '?'); i >= 0 {
		base, extra = base[:i], base[i+1:]
	}

	target := base + "?" + NotFoundParam + "=" + url.QueryEscape(pathAndQuery)
	if extra != "" {
		target += "&" + extra
	}
	return target
}
