package middleware

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"mercator-hq/notfound/pkg/interceptor"
	"mercator-hq/notfound/pkg/redirects"
	"mercator-hq/notfound/pkg/settings"
)

type loggedMiss struct {
	path, referrer string
}

type recordingMisses struct {
	mu     sync.Mutex
	misses []loggedMiss
}

func (r *recordingMisses) LogMiss(_ context.Context, path, referrer string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.misses = append(r.misses, loggedMiss{path, referrer})
}

func (r *recordingMisses) all() []loggedMiss {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]loggedMiss(nil), r.misses...)
}

func siteHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/errors/notfound.html", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("fallback page " + r.URL.RawQuery))
	})
	mux.HandleFunc("/ok", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Site", "ok")
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/gone", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Site", "gone")
		http.Error(w, "gone", http.StatusGone)
	})
	mux.HandleFunc("/route-error", func(w http.ResponseWriter, r *http.Request) {
		ReportError(r.Context(), interceptor.ErrRouteNotFound)
	})
	mux.HandleFunc("/panic-file", func(w http.ResponseWriter, r *http.Request) {
		panic(&fs.PathError{Op: "open", Path: "/srv/page.html", Err: fs.ErrNotExist})
	})
	mux.HandleFunc("/panic-other", func(w http.ResponseWriter, r *http.Request) {
		panic("template exploded")
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Site", "missing")
		http.NotFound(w, r)
	})
	return mux
}

func newTestChain(t *testing.T, fallbackPage string, fallbackToHost bool) (http.Handler, *recordingMisses) {
	t.Helper()

	file := filepath.Join(t.TempDir(), "redirects.yaml")
	content := "redirects:\n  - old_url: /old/page\n    new_url: /new/page\n"
	if err := os.WriteFile(file, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	static := redirects.NewFileStore(file, nil)
	if err := static.Load(); err != nil {
		t.Fatal(err)
	}

	misses := &recordingMisses{}
	engine := interceptor.NewEngine(settings.OperatingSettings{
		HandlerMode:       settings.ModeOn,
		FileNotFoundPage:  fallbackPage,
		IgnoredExtensions: []string{"png", "css"},
	}, nil, redirects.NewStore(static, nil, nil, nil), misses, interceptor.Options{})

	handler := NotFoundMiddleware(engine, NotFoundOptions{FallbackToHostErrorHandler: fallbackToHost})(siteHandler())
	return handler, misses
}

func TestNotFoundMiddleware(t *testing.T) {
	tests := []struct {
		name         string
		method       string
		target       string
		referer      string
		wantCode     int
		wantBody     string
		wantLocation string
		wantMisses   []loggedMiss
	}{
		{
			name:         "redirect",
			target:       "/old/page",
			wantCode:     http.StatusMovedPermanently,
			wantLocation: "/new/page",
		},
		{
			name:       "fallback with same-site referrer",
			target:     "/missing?x=1",
			referer:    "http://example.com/blog",
			wantCode:   http.StatusNotFound,
			wantBody:   "fallback page 404;notfound=%2Fmissing%3Fx%3D1",
			wantMisses: []loggedMiss{{"/missing?x=1", "/blog"}},
		},
		{
			name:       "fallback with foreign referrer",
			target:     "/nothing",
			referer:    "https://other.example/links",
			wantCode:   http.StatusNotFound,
			wantBody:   "fallback page 404;notfound=%2Fnothing",
			wantMisses: []loggedMiss{{"/nothing", "https://other.example/links"}},
		},
		{
			name:     "ignored resource keeps original response",
			target:   "/images/logo.png",
			wantCode: http.StatusNotFound,
			wantBody: "404 page not found\n",
		},
		{
			name:     "success passes through",
			target:   "/ok",
			wantCode: http.StatusOK,
			wantBody: "ok",
		},
		{
			name:     "other status passes through",
			target:   "/gone",
			wantCode: http.StatusGone,
			wantBody: "gone\n",
		},
		{
			name:       "reported route error",
			target:     "/route-error",
			wantCode:   http.StatusNotFound,
			wantBody:   "fallback page 404;notfound=%2Froute-error",
			wantMisses: []loggedMiss{{"/route-error", ""}},
		},
		{
			name:       "file not found panic",
			target:     "/panic-file",
			wantCode:   http.StatusNotFound,
			wantBody:   "fallback page 404;notfound=%2Fpanic-file",
			wantMisses: []loggedMiss{{"/panic-file", ""}},
		},
		{
			name:     "other panic answers 500",
			target:   "/panic-other",
			wantCode: http.StatusInternalServerError,
			wantBody: "Internal Server Error\n",
		},
		{
			name:     "marker request is not intercepted",
			target:   "/missing?404;notfound=%2Fx",
			wantCode: http.StatusNotFound,
			wantBody: "404 page not found\n",
		},
		{
			name:       "head transfer",
			method:     http.MethodHead,
			target:     "/missing",
			wantCode:   http.StatusNotFound,
			wantMisses: []loggedMiss{{"/missing", ""}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, misses := newTestChain(t, "~/errors/notfound.html", false)

			method := tt.method
			if method == "" {
				method = http.MethodGet
			}
			req := httptest.NewRequest(method, tt.target, nil)
			if tt.referer != "" {
				req.Header.Set("Referer", tt.referer)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Errorf("expected status %d, got %d", tt.wantCode, rec.Code)
			}
			if tt.wantBody != "" && rec.Body.String() != tt.wantBody {
				t.Errorf("expected body %q, got %q", tt.wantBody, rec.Body.String())
			}
			if got := rec.Header().Get("Location"); got != tt.wantLocation {
				t.Errorf("expected Location %q, got %q", tt.wantLocation, got)
			}

			got := misses.all()
			if len(got) != len(tt.wantMisses) {
				t.Fatalf("expected misses %v, got %v", tt.wantMisses, got)
			}
			for i := range got {
				if got[i] != tt.wantMisses[i] {
					t.Errorf("miss %d = %+v, want %+v", i, got[i], tt.wantMisses[i])
				}
			}
		})
	}
}

func TestNotFoundMiddleware_HeldHeadersDoNotLeak(t *testing.T) {
	handler, _ := newTestChain(t, "~/errors/notfound.html", false)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/old/page", nil))
	if rec.Header().Get("X-Site") != "" {
		t.Error("headers of the held 404 leaked into the redirect")
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/images/a.css", nil))
	if rec.Header().Get("X-Site") != "missing" {
		t.Error("expected headers of a replayed 404 to be kept")
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ok", nil))
	if rec.Header().Get("X-Site") != "ok" {
		t.Error("expected headers of a passed-through response to be kept")
	}
}

func TestNotFoundMiddleware_MissingFallbackPage(t *testing.T) {
	handler, misses := newTestChain(t, "~/errors/absent.html", false)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
	if rec.Body.String() != "404 page not found\n" {
		t.Errorf("expected the site's own 404 body, got %q", rec.Body.String())
	}
	if got := misses.all(); len(got) != 1 {
		t.Errorf("expected exactly one miss, got %v", got)
	}
}

func TestNotFoundMiddleware_FallbackToHostErrorHandler(t *testing.T) {
	handler, _ := newTestChain(t, "~/errors/notfound.html", true)

	t.Run("panic is re-raised", func(t *testing.T) {
		defer func() {
			rec := recover()
			if rec != "template exploded" {
				t.Errorf("expected original panic value, got %v", rec)
			}
		}()
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/panic-other", nil))
	})

	t.Run("recovery answers", func(t *testing.T) {
		wrapped := RecoveryMiddleware(nil)(handler)
		rec := httptest.NewRecorder()
		wrapped.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/panic-other", nil))
		if rec.Code != http.StatusInternalServerError {
			t.Errorf("expected 500, got %d", rec.Code)
		}
	})

	t.Run("not-found errors are still handled", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/panic-file", nil))
		if rec.Code != http.StatusNotFound || !strings.HasPrefix(rec.Body.String(), "fallback page") {
			t.Errorf("expected fallback page, got %d %q", rec.Code, rec.Body.String())
		}
	})
}

func TestReportError_OutsideMiddleware(t *testing.T) {
	if ReportError(context.Background(), errors.New("x")) {
		t.Error("expected ReportError to report no slot")
	}
}

func TestNotFoundMiddleware_LargeBodyStreams(t *testing.T) {
	misses := &recordingMisses{}
	engine := interceptor.NewEngine(settings.OperatingSettings{
		HandlerMode:      settings.ModeOn,
		FileNotFoundPage: "~/errors/notfound.html",
	}, nil, nil, misses, interceptor.Options{})

	big := strings.Repeat("x", maxBufferedBody+1)
	handler := NotFoundMiddleware(engine, NotFoundOptions{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(big))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/huge", nil))
	if rec.Code != http.StatusNotFound || rec.Body.Len() != len(big) {
		t.Errorf("expected streamed 404 body, got %d with %d bytes", rec.Code, rec.Body.Len())
	}
	if len(misses.all()) != 0 {
		t.Error("expected no interception once the response was streamed")
	}
}

func TestNotFoundMiddleware_HeadersWithoutBody(t *testing.T) {
	handler := NotFoundMiddleware(noopDispatcher{}, NotFoundOptions{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, HEAD")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/preflight", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("expected implicit 200, got %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("expected Access-Control-Allow-Origin to pass through, got %q", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Methods"); got != "GET, HEAD" {
		t.Errorf("expected Access-Control-Allow-Methods to pass through, got %q", got)
	}
}

// noopDispatcher never acts.
type noopDispatcher struct{}

func (noopDispatcher) Dispatch(context.Context, interceptor.RequestContext, interceptor.Host) interceptor.Decision {
	return interceptor.Decision{}
}
