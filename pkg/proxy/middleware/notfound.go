package middleware

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"mercator-hq/notfound/pkg/interceptor"
)

// maxBufferedBody bounds the 404 body held back while a decision is made.
// Larger bodies are streamed through and the request is left to the site.
const maxBufferedBody = 1 << 20

// Dispatcher decides and performs the not-found action for a request.
type Dispatcher interface {
	Dispatch(ctx context.Context, rc interceptor.RequestContext, host interceptor.Host) interceptor.Decision
}

// NotFoundOptions configures NotFoundMiddleware.
type NotFoundOptions struct {
	// FallbackToHostErrorHandler re-raises captured errors the dispatcher
	// leaves alone as panics, so RecoveryMiddleware answers them. When false
	// the middleware answers them with a plain 500.
	FallbackToHostErrorHandler bool

	// Logger defaults to slog.Default.
	Logger *slog.Logger
}

// errorSlot carries an error reported by a handler down the chain.
type errorSlot struct {
	err error
}

// ReportError records err as the failure of the current request so the
// not-found middleware can classify it. It reports whether the request runs
// under the middleware. Only the first error is kept.
func ReportError(ctx context.Context, err error) bool {
	slot, ok := ctx.Value(errorSlotKey).(*errorSlot)
	if !ok {
		return false
	}
	if slot.err == nil {
		slot.err = err
	}
	return true
}

// NotFoundMiddleware intercepts 404 responses and failed requests from the
// site handler and hands them to d. A 404 response is held back until the
// dispatcher has decided; when it takes no action the original response is
// replayed unchanged. Errors reach the middleware through ReportError or as
// panics.
//
// The fallback page is rendered by re-entering this middleware with the
// fallback URL, so a missing fallback page is caught by the loop guard.
//
// Example usage:
//
//	handler = NotFoundMiddleware(engine, NotFoundOptions{Logger: logger})(site)
func NotFoundMiddleware(d Dispatcher, opts NotFoundOptions) func(http.Handler) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "notfound")

	return func(next http.Handler) http.Handler {
		var self http.Handler
		self = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			slot := &errorSlot{}
			ctx := context.WithValue(r.Context(), errorSlotKey, slot)
			r = r.WithContext(ctx)

			bw := newBufferedWriter(w)
			panicked, recovered := serveCapturing(next, bw, r)

			err := slot.err
			if panicked {
				err = panicError(recovered)
			}

			if !bw.held() && (err == nil || bw.committed) {
				if !bw.committed {
					// Nothing was written; net/http sends the implicit 200
					// with whatever headers the site set.
					bw.copyHeaders()
				}
				if err != nil {
					logger.ErrorContext(ctx, "error after response was committed",
						"path", r.URL.RequestURI(),
						"error", err,
					)
				}
				return
			}

			status := http.StatusInternalServerError
			if bw.held() {
				status = bw.status
			}
			rc := interceptor.RequestContext{
				URL:        absoluteURL(r),
				Referrer:   r.Referer(),
				StatusCode: status,
				Err:        err,
				RawQuery:   r.URL.RawQuery,
				RemoteAddr: r.RemoteAddr,
			}

			host := &httpHost{w: w, r: r, reenter: self, logger: logger}
			decision := d.Dispatch(ctx, rc, host)
			setOutcome(ctx, decision.Outcome.String())
			if decision.ShouldAct {
				return
			}

			if bw.held() {
				bw.replay()
				return
			}

			if opts.FallbackToHostErrorHandler {
				if panicked {
					panic(recovered)
				}
				panic(err)
			}
			logger.ErrorContext(ctx, "request failed",
				"path", r.URL.RequestURI(),
				"error", err,
			)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		})
		return self
	}
}

// serveCapturing runs next and converts a panic into a return value.
// http.ErrAbortHandler is re-raised.
func serveCapturing(next http.Handler, w http.ResponseWriter, r *http.Request) (panicked bool, recovered any) {
	defer func() {
		if rec := recover(); rec != nil {
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			panicked, recovered = true, rec
		}
	}()
	next.ServeHTTP(w, r)
	return false, nil
}

func panicError(rec any) error {
	if err, ok := rec.(error); ok {
		return err
	}
	return fmt.Errorf("panic: %v", rec)
}

// absoluteURL rebuilds the absolute URL of a server request.
func absoluteURL(r *http.Request) *url.URL {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto == "http" || proto == "https" {
		scheme = proto
	}
	return &url.URL{
		Scheme:   scheme,
		Host:     r.Host,
		Path:     r.URL.Path,
		RawPath:  r.URL.RawPath,
		RawQuery: r.URL.RawQuery,
	}
}

// httpHost carries a decision out on a net/http response.
type httpHost struct {
	w       http.ResponseWriter
	r       *http.Request
	reenter http.Handler
	status  int
	logger  *slog.Logger
}

func (h *httpHost) RedirectPermanent(target string) {
	http.Redirect(h.w, h.r, target, http.StatusMovedPermanently)
}

func (h *httpHost) SetStatusCode(code int) {
	h.status = code
}

// Transfer serves virtualPath through the middleware chain with the status
// set by SetStatusCode. The method becomes GET, except for HEAD, and
// conditional headers are dropped so the page is always rendered in full.
func (h *httpHost) Transfer(virtualPath string) {
	target, err := url.Parse(strings.TrimPrefix(virtualPath, "~"))
	if err != nil {
		h.logger.Error("invalid fallback path", "target", virtualPath, "error", err)
		http.Error(h.w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		return
	}

	r := h.r.Clone(h.r.Context())
	if r.Method != http.MethodHead {
		r.Method = http.MethodGet
	}
	r.Body = http.NoBody
	r.ContentLength = 0
	r.URL.Path = target.Path
	r.URL.RawPath = ""
	r.URL.RawQuery = target.RawQuery
	r.RequestURI = r.URL.RequestURI()
	for _, name := range []string{"If-Modified-Since", "If-None-Match", "If-Range", "Range"} {
		r.Header.Del(name)
	}

	code := h.status
	if code == 0 {
		code = http.StatusNotFound
	}
	sw := &statusWriter{ResponseWriter: h.w, code: code}
	h.reenter.ServeHTTP(sw, r)
	if !sw.wrote {
		sw.WriteHeader(code)
	}
}

// statusWriter forces a fixed status onto whatever the wrapped handler writes.
type statusWriter struct {
	http.ResponseWriter
	code  int
	wrote bool
}

func (s *statusWriter) WriteHeader(int) {
	if !s.wrote {
		s.wrote = true
		s.ResponseWriter.WriteHeader(s.code)
	}
}

func (s *statusWriter) Write(b []byte) (int, error) {
	if !s.wrote {
		s.WriteHeader(s.code)
	}
	return s.ResponseWriter.Write(b)
}

func (s *statusWriter) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}

// bufferedWriter passes responses through untouched except 404s, which are
// held until the middleware decides what to do with them. Headers are kept
// apart from the real writer until the response is committed.
type bufferedWriter struct {
	w         http.ResponseWriter
	header    http.Header
	status    int
	body      bytes.Buffer
	holding   bool
	committed bool
}

func newBufferedWriter(w http.ResponseWriter) *bufferedWriter {
	return &bufferedWriter{w: w, header: make(http.Header)}
}

func (b *bufferedWriter) Header() http.Header {
	if b.committed {
		return b.w.Header()
	}
	return b.header
}

func (b *bufferedWriter) WriteHeader(code int) {
	if b.committed || b.holding {
		return
	}
	if code >= 100 && code < 200 {
		b.copyHeaders()
		b.w.WriteHeader(code)
		return
	}
	b.status = code
	if code == http.StatusNotFound {
		b.holding = true
		return
	}
	b.commit()
}

func (b *bufferedWriter) Write(p []byte) (int, error) {
	if !b.committed && !b.holding {
		b.WriteHeader(http.StatusOK)
	}
	if b.committed {
		return b.w.Write(p)
	}
	if b.body.Len()+len(p) > maxBufferedBody {
		b.commit()
		return b.w.Write(p)
	}
	return b.body.Write(p)
}

// Flush forwards to the real writer only once the response is committed.
func (b *bufferedWriter) Flush() {
	if b.committed {
		if f, ok := b.w.(http.Flusher); ok {
			f.Flush()
		}
	}
}

func (b *bufferedWriter) Unwrap() http.ResponseWriter {
	return b.w
}

// held reports whether a 404 response is waiting for a decision.
func (b *bufferedWriter) held() bool {
	return b.holding && !b.committed
}

// commit writes the status and any held body to the real writer.
func (b *bufferedWriter) commit() {
	b.copyHeaders()
	b.w.WriteHeader(b.status)
	b.committed = true
	b.holding = false
	if b.body.Len() > 0 {
		_, _ = b.w.Write(b.body.Bytes())
		b.body.Reset()
	}
}

// replay sends the held 404 response unchanged.
func (b *bufferedWriter) replay() {
	if b.held() {
		b.commit()
	}
}

func (b *bufferedWriter) copyHeaders() {
	dst := b.w.Header()
	for k, v := range b.header {
		dst[k] = v
	}
}

