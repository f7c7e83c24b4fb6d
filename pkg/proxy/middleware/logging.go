package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"mercator-hq/notfound/pkg/interceptor"
)

// recordingWriter remembers the status of the response written through it.
type recordingWriter struct {
	http.ResponseWriter
	status int
	wrote  bool
}

func record(w http.ResponseWriter) *recordingWriter {
	return &recordingWriter{ResponseWriter: w, status: http.StatusOK}
}

func (rw *recordingWriter) WriteHeader(code int) {
	if rw.wrote {
		return
	}
	if code >= 200 {
		rw.status, rw.wrote = code, true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *recordingWriter) Write(b []byte) (int, error) {
	if !rw.wrote {
		rw.WriteHeader(http.StatusOK)
	}
	return rw.ResponseWriter.Write(b)
}

func (rw *recordingWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// LoggingMiddleware writes one record per completed request at the "http"
// component. Requests the not-found handler decided on carry its outcome.
// Server errors log at error level, other 4xx and 5xx answers at warn, and
// 404s that ended in a redirect or the fallback page at info.
func LoggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "http")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			st := &requestState{start: time.Now()}
			ctx := context.WithValue(r.Context(), stateKey, st)
			rw := record(w)

			next.ServeHTTP(rw, r.WithContext(ctx))

			attrs := []any{
				"method", r.Method,
				"path", r.URL.RequestURI(),
				"status", rw.status,
				"latency_ms", time.Since(st.start).Milliseconds(),
				"remote_addr", r.RemoteAddr,
				"user_agent", r.UserAgent(),
			}
			if st.outcome != "" {
				attrs = append(attrs, "notfound_outcome", st.outcome)
			}
			logger.Log(ctx, requestLevel(rw.status, st.outcome), "request completed", attrs...)
		})
	}
}

func requestLevel(status int, outcome string) slog.Level {
	switch {
	case status >= 500:
		return slog.LevelError
	case outcome == interceptor.OutcomeRedirectPerformed.String(),
		outcome == interceptor.OutcomeFallbackShown.String():
		return slog.LevelInfo
	case status >= 400:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// RequestRecorder receives one observation per completed request.
type RequestRecorder interface {
	RecordHTTPRequest(method string, status int, duration time.Duration)
}

// MetricsMiddleware reports the method, final status and duration of every
// request to rec.
func MetricsMiddleware(rec RequestRecorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := record(w)
			next.ServeHTTP(rw, r)
			rec.RecordHTTPRequest(r.Method, rw.status, time.Since(start))
		})
	}
}
