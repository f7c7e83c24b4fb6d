// Package settings resolves the operating parameters of the not-found
// handler from a key/value Source.
//
// Every setting is resolved lazily on first use and cached for the life of
// the Resolver. The logging mode is the exception: it is re-read from the
// source on each call so it can be toggled at runtime. A missing or
// malformed value never produces an error; the documented default is used
// instead.
package settings

import (
	"log/slog"
	"strconv"
	"strings"
	"sync"
)

// Defaults used when a setting is missing or cannot be parsed.
const (
	DefaultHandlerMode                = ModeOn
	DefaultLoggingMode                = LoggerOn
	DefaultFileNotFoundPage           = "~/errors/notfound.html"
	DefaultRedirectsFile              = "./redirects.yaml"
	DefaultBufferSize                 = 30
	DefaultThreshold                  = 5
	DefaultIgnoredResourceExtensions  = "jpg,gif,png,css,js,ico,swf,woff"
	DefaultCaseSensitiveExtensions    = false
	DefaultFallbackToHostErrorHandler = false
)

// OperatingSettings is a snapshot of the cached settings. The logging mode is
// deliberately absent; read it through Resolver.LoggingMode.
type OperatingSettings struct {
	HandlerMode                HandlerMode
	FileNotFoundPage           string
	RedirectsFile              string
	BufferSize                 int
	Threshold                  int
	IgnoredExtensions          []string
	CaseSensitiveExtensions    bool
	FallbackToHostErrorHandler bool
}

// Resolver resolves settings from a Source. It is safe for concurrent use.
type Resolver struct {
	source Source
	logger *slog.Logger

	handlerMode         func() HandlerMode
	fileNotFoundPage    func() string
	redirectsFile       func() string
	bufferSize          func() int
	threshold           func() int
	ignoredExtensions   func() []string
	caseSensitive       func() bool
	fallbackToHostError func() bool
}

// NewResolver creates a Resolver over source. A nil logger uses slog.Default.
func NewResolver(source Source, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Resolver{
		source: source,
		logger: logger.With("component", "settings"),
	}

	r.handlerMode = sync.OnceValue(func() HandlerMode {
		raw, ok := r.source.Lookup(KeyHandlerMode)
		if !ok {
			return DefaultHandlerMode
		}
		mode, ok := ParseHandlerMode(raw)
		if !ok {
			r.invalid(KeyHandlerMode, raw, DefaultHandlerMode.String())
		}
		return mode
	})
	r.fileNotFoundPage = sync.OnceValue(func() string {
		return r.stringValue(KeyFileNotFoundPage, DefaultFileNotFoundPage)
	})
	r.redirectsFile = sync.OnceValue(func() string {
		return r.stringValue(KeyRedirectsFile, DefaultRedirectsFile)
	})
	r.bufferSize = sync.OnceValue(func() int {
		return r.positiveInt(KeyBufferSize, DefaultBufferSize)
	})
	r.threshold = sync.OnceValue(func() int {
		return r.positiveInt(KeyThreshold, DefaultThreshold)
	})
	r.ignoredExtensions = sync.OnceValue(func() []string {
		raw := r.stringValue(KeyIgnoredResourceExtensions, DefaultIgnoredResourceExtensions)
		return splitExtensions(raw)
	})
	r.caseSensitive = sync.OnceValue(func() bool {
		return r.boolValue(KeyCaseSensitiveExtensions, DefaultCaseSensitiveExtensions)
	})
	r.fallbackToHostError = sync.OnceValue(func() bool {
		return r.boolValue(KeyFallbackToHostErrorHandler, DefaultFallbackToHostErrorHandler)
	})

	return r
}

// HandlerMode returns the cached handler mode.
func (r *Resolver) HandlerMode() HandlerMode { return r.handlerMode() }

// LoggingMode reads the logging mode from the source on every call.
func (r *Resolver) LoggingMode() LoggerMode {
	raw, ok := r.source.Lookup(KeyLogging)
	if !ok {
		return DefaultLoggingMode
	}
	mode, ok := ParseLoggerMode(raw)
	if !ok {
		// Not cached, so keep this quiet.
		r.logger.Debug("invalid logging mode, using default", "value", raw)
	}
	return mode
}

// FileNotFoundPage returns the virtual path of the fallback page.
func (r *Resolver) FileNotFoundPage() string { return r.fileNotFoundPage() }

// RedirectsFile returns the locator of the static redirect list.
func (r *Resolver) RedirectsFile() string { return r.redirectsFile() }

// BufferSize returns the miss log queue capacity.
func (r *Resolver) BufferSize() int { return r.bufferSize() }

// Threshold returns the miss log flush threshold.
func (r *Resolver) Threshold() int { return r.threshold() }

// IgnoredExtensions returns a copy of the ignored resource extensions, without
// leading dots.
func (r *Resolver) IgnoredExtensions() []string {
	exts := r.ignoredExtensions()
	out := make([]string, len(exts))
	copy(out, exts)
	return out
}

// CaseSensitiveExtensions reports whether extensions are compared exactly.
func (r *Resolver) CaseSensitiveExtensions() bool { return r.caseSensitive() }

// FallbackToHostErrorHandler reports whether unrelated errors are handed back
// to the host's own error handling.
func (r *Resolver) FallbackToHostErrorHandler() bool { return r.fallbackToHostError() }

// Get returns the resolved value of a setting in its canonical string form.
// It reports false only for unknown names.
func (r *Resolver) Get(name string) (string, bool) {
	switch name {
	case KeyHandlerMode:
		return r.HandlerMode().String(), true
	case KeyLogging:
		return r.LoggingMode().String(), true
	case KeyFileNotFoundPage:
		return r.FileNotFoundPage(), true
	case KeyRedirectsFile:
		return r.RedirectsFile(), true
	case KeyBufferSize:
		return strconv.Itoa(r.BufferSize()), true
	case KeyThreshold:
		return strconv.Itoa(r.Threshold()), true
	case KeyIgnoredResourceExtensions:
		return strings.Join(r.ignoredExtensions(), ","), true
	case KeyCaseSensitiveExtensions:
		return strconv.FormatBool(r.CaseSensitiveExtensions()), true
	case KeyFallbackToHostErrorHandler:
		return strconv.FormatBool(r.FallbackToHostErrorHandler()), true
	}
	return "", false
}

// Snapshot returns the cached settings as a value.
func (r *Resolver) Snapshot() OperatingSettings {
	return OperatingSettings{
		HandlerMode:                r.HandlerMode(),
		FileNotFoundPage:           r.FileNotFoundPage(),
		RedirectsFile:              r.RedirectsFile(),
		BufferSize:                 r.BufferSize(),
		Threshold:                  r.Threshold(),
		IgnoredExtensions:          r.IgnoredExtensions(),
		CaseSensitiveExtensions:    r.CaseSensitiveExtensions(),
		FallbackToHostErrorHandler: r.FallbackToHostErrorHandler(),
	}
}

func (r *Resolver) stringValue(key, def string) string {
	raw, ok := r.source.Lookup(key)
	if !ok {
		return def
	}
	return strings.TrimSpace(raw)
}

// positiveInt parses an integer setting. Missing, unparsable, -1 and other
// non-positive values all select the default.
func (r *Resolver) positiveInt(key string, def int) int {
	raw, ok := r.source.Lookup(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n <= 0 {
		if n != -1 {
			r.invalid(key, raw, strconv.Itoa(def))
		}
		return def
	}
	return n
}

func (r *Resolver) boolValue(key string, def bool) bool {
	raw, ok := r.source.Lookup(key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		r.invalid(key, raw, strconv.FormatBool(def))
		return def
	}
	return b
}

func (r *Resolver) invalid(key, raw, def string) {
	r.logger.Warn("invalid setting, using default",
		"setting", key,
		"value", raw,
		"default", def,
	)
}

// splitExtensions splits a comma separated list, trimming blanks and a
// leading dot from each entry.
func splitExtensions(raw string) []string {
	parts := strings.Split(raw, ",")
	exts := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimPrefix(strings.TrimSpace(p), ".")
		if p != "" {
			exts = append(exts, p)
		}
	}
	return exts
}
