package interceptor

import (
	"path"
	"strings"
)

// ResourceFilter recognises static asset requests by file extension.
type ResourceFilter struct {
	exts          map[string]struct{}
	caseSensitive bool
}

// NewResourceFilter builds a filter over extensions given without a dot.
func NewResourceFilter(extensions []string, caseSensitive bool) *ResourceFilter {
	f := &ResourceFilter{
		exts:          make(map[string]struct{}, len(extensions)),
		caseSensitive: caseSensitive,
	}
	for _, ext := range extensions {
		ext = strings.TrimPrefix(strings.TrimSpace(ext), ".")
		if ext == "" {
			continue
		}
		if !caseSensitive {
			ext = strings.ToLower(ext)
		}
		f.exts[ext] = struct{}{}
	}
	return f
}

// IsIgnorableResource reports whether the last segment of urlPath carries an
// ignored extension. A segment with no dot, or only a trailing dot, has no
// extension.
func (f *ResourceFilter) IsIgnorableResource(urlPath string) bool {
	if f == nil || len(f.exts) == 0 {
		return false
	}
	if i := strings.IndexAny(urlPath, "?#"); i >= 0 {
		urlPath = urlPath[:i]
	}
	if urlPath == "" || strings.HasSuffix(urlPath, "/") {
		return false
	}

	ext := path.Ext(path.Base(urlPath))
	if len(ext) <= 1 {
		return false
	}
	ext = ext[1:]
	if !f.caseSensitive {
		ext = strings.ToLower(ext)
	}
	_, ok := f.exts[ext]
	return ok
}
