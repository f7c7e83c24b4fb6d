package logging

import (
	"log/slog"
	"net/url"
	"strings"
)

// urlKeys are attribute keys whose values are URLs or path+query strings.
var urlKeys = map[string]bool{
	"path":     true,
	"url":      true,
	"referrer": true,
	"target":   true,
	"location": true,
}

// sensitiveFragments mask any query parameter whose name contains them;
// sensitiveNames must match the whole name.
var (
	sensitiveFragments = []string{"password", "passwd", "secret", "token", "api_key", "apikey", "signature", "session"}
	sensitiveNames     = map[string]bool{"pwd": true, "auth": true, "key": true, "sig": true}
)

// RedactAttr is a slog ReplaceAttr hook masking sensitive query parameters
// in URL-valued attributes.
func RedactAttr(_ []string, a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindString && urlKeys[a.Key] {
		return slog.String(a.Key, RedactURL(a.Value.String()))
	}
	return a
}

// RedactURL replaces the values of sensitive query parameters with "***".
// Strings without a query are returned unchanged.
func RedactURL(raw string) string {
	i := strings.IndexByte(raw, '?')
	if i < 0 {
		return raw
	}

	query := raw[i+1:]
	fragment := ""
	if j := strings.IndexByte(query, '#'); j >= 0 {
		query, fragment = query[:j], query[j:]
	}

	parts := strings.Split(query, "&")
	changed := false
	for k, part := range parts {
		name, _, hasValue := strings.Cut(part, "=")
		if !hasValue {
			continue
		}
		decoded, err := url.QueryUnescape(name)
		if err != nil {
			decoded = name
		}
		if isSensitiveParam(decoded) {
			parts[k] = name + "=***"
			changed = true
		}
	}
	if !changed {
		return raw
	}
	return raw[:i+1] + strings.Join(parts, "&") + fragment
}

func isSensitiveParam(name string) bool {
	lower := strings.ToLower(name)
	if sensitiveNames[lower] {
		return true
	}
	for _, s := range sensitiveFragments {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}
