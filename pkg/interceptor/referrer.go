package interceptor

import (
	"net/url"
	"strings"
)

// NormalizeReferrer shortens a referrer for the miss log. A referrer on the
// same scheme and host as site becomes its site-relative path, without query
// or fragment. An empty referrer stays empty. Anything else, including an
// unparsable value, is kept as given.
func NormalizeReferrer(referrer string, site *url.URL) string {
	referrer = strings.TrimSpace(referrer)
	if referrer == "" {
		return ""
	}

	ref, err := url.Parse(referrer)
	if err != nil || !ref.IsAbs() {
		return referrer
	}
	if site == nil || !sameOrigin(ref, site) {
		return referrer
	}

	if rel := ref.EscapedPath(); rel != "" {
		return rel
	}
	return "/"
}

func sameOrigin(a, b *url.URL) bool {
	return strings.EqualFold(a.Scheme, b.Scheme) && strings.EqualFold(a.Host, b.Host)
}
