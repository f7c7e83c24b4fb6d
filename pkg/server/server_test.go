package server

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"mercator-hq/notfound/pkg/config"
	"mercator-hq/notfound/pkg/misslog"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()

	content := filepath.Join(dir, "public")
	writeFile(t, filepath.Join(content, "index.html"), "home")
	writeFile(t, filepath.Join(content, "errors", "notfound.html"), "sorry, not here")

	redirectsFile := filepath.Join(dir, "redirects.yaml")
	writeFile(t, redirectsFile, "redirects:\n  - old_url: /old/page\n    new_url: /new/page\n")

	cfg := &config.Config{}
	cfg.Server.ListenAddress = "127.0.0.1:0"
	cfg.Server.ContentDir = content
	cfg.Server.ShutdownTimeout = 2 * time.Second
	cfg.Redirects.File = redirectsFile
	cfg.MissLog.Backend = "memory"
	cfg.MissLog.FlushInterval = 10 * time.Millisecond
	cfg.MissLog.Retention.PruneSchedule = "0 3 * * *"
	config.ApplyDefaults(cfg)
	return cfg
}

func noRedirectClient() *http.Client {
	return &http.Client{
		CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
	}
}

func get(t *testing.T, client *http.Client, url string) (int, http.Header, string) {
	t.Helper()
	resp, err := client.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, resp.Header, string(body)
}

func TestApp_HandlesNotFound(t *testing.T) {
	app, err := NewApp(testConfig(t), AppOptions{Version: "test", Logger: quietLogger()})
	if err != nil {
		t.Fatalf("NewApp() error = %v", err)
	}
	defer app.Close()

	ts := httptest.NewServer(app.Server.Handler())
	defer ts.Close()
	client := noRedirectClient()

	code, header, _ := get(t, client, ts.URL+"/old/page")
	if code != http.StatusMovedPermanently || header.Get("Location") != "/new/page" {
		t.Errorf("expected redirect to /new/page, got %d %q", code, header.Get("Location"))
	}

	code, _, body := get(t, client, ts.URL+"/missing/page?a=1")
	if code != http.StatusNotFound || body != "sorry, not here" {
		t.Errorf("expected fallback page with 404, got %d %q", code, body)
	}

	code, _, body = get(t, client, ts.URL+"/")
	if code != http.StatusOK || body != "home" {
		t.Errorf("expected home page, got %d %q", code, body)
	}

	code, _, body = get(t, client, ts.URL+"/favicon.ico")
	if code != http.StatusNotFound || body == "sorry, not here" {
		t.Errorf("expected plain 404 for ignored resource, got %d %q", code, body)
	}

	if err := app.Misses.Close(); err != nil {
		t.Fatal(err)
	}
	misses, err := app.Storage.Query(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(misses) != 1 || misses[0].Path != "/missing/page?a=1" {
		t.Errorf("expected one miss for /missing/page?a=1, got %+v", misses)
	}
}

func TestApp_Endpoints(t *testing.T) {
	app, err := NewApp(testConfig(t), AppOptions{Version: "1.2.3", Logger: quietLogger()})
	if err != nil {
		t.Fatal(err)
	}
	defer app.Close()

	ts := httptest.NewServer(app.Server.Handler())
	defer ts.Close()
	client := noRedirectClient()

	// One intercepted request so the decision counter has a sample.
	get(t, client, ts.URL+"/nowhere")

	tests := []struct {
		path     string
		wantCode int
		contains string
	}{
		{"/health", http.StatusOK, `"status":"ok"`},
		{"/ready", http.StatusOK, `"misslog"`},
		{"/version", http.StatusOK, `"version":"1.2.3"`},
		{"/metrics", http.StatusOK, "notfound_handler_decisions_total"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			code, header, body := get(t, client, ts.URL+tt.path)
			if code != tt.wantCode {
				t.Errorf("expected %d, got %d", tt.wantCode, code)
			}
			if !strings.Contains(body, tt.contains) {
				t.Errorf("expected %q in body, got %q", tt.contains, body)
			}
			if header.Get("X-Request-ID") == "" {
				t.Error("expected request id header")
			}
		})
	}
}

func TestApp_LoggingOff(t *testing.T) {
	cfg := testConfig(t)
	cfg.Handler.Logging = "Off"

	app, err := NewApp(cfg, AppOptions{Logger: quietLogger()})
	if err != nil {
		t.Fatal(err)
	}
	defer app.Close()

	ts := httptest.NewServer(app.Server.Handler())
	defer ts.Close()

	code, _, _ := get(t, noRedirectClient(), ts.URL+"/missing")
	if code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", code)
	}
	_ = app.Misses.Close()
	n, err := app.Storage.Count(context.Background(), &misslog.Query{})
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("expected no misses with logging off, got %d", n)
	}
}

func TestApp_Run(t *testing.T) {
	app, err := NewApp(testConfig(t), AppOptions{Logger: quietLogger()})
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for app.Server.Addr() == nil {
		if time.Now().After(deadline) {
			t.Fatal("server did not start")
		}
		time.Sleep(5 * time.Millisecond)
	}

	code, _, _ := get(t, http.DefaultClient, "http://"+app.Server.Addr().String()+"/health")
	if code != http.StatusOK {
		t.Errorf("expected 200 from /health, got %d", code)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if app.Server.IsRunning() {
		t.Error("expected server to be stopped")
	}
}

func TestApp_WatchRedirects(t *testing.T) {
	cfg := testConfig(t)
	cfg.Redirects.Watch = true

	app, err := NewApp(cfg, AppOptions{Logger: quietLogger()})
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = app.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for app.Server.Addr() == nil {
		if time.Now().After(deadline) {
			t.Fatal("server did not start")
		}
		time.Sleep(5 * time.Millisecond)
	}
	// Give the watcher a moment to register before changing the file.
	time.Sleep(50 * time.Millisecond)

	writeFile(t, cfg.Redirects.File, "redirects:\n  - old_url: /a\n    new_url: /b\n  - old_url: /c\n    new_url: /d\n")

	deadline = time.Now().Add(3 * time.Second)
	for app.Static.Len() != 2 {
		if time.Now().After(deadline) {
			t.Fatalf("expected reload to pick up 2 redirects, have %d", app.Static.Len())
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestNewSite(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Forwarded-Host") == "" {
			t.Error("expected X-Forwarded-Host on proxied request")
		}
		if r.URL.Path == "/errors/notfound.html" {
			_, _ = w.Write([]byte("upstream fallback"))
			return
		}
		http.NotFound(w, r)
	}))
	defer upstream.Close()

	cfg := testConfig(t)
	cfg.Server.Upstream = upstream.URL

	app, err := NewApp(cfg, AppOptions{Logger: quietLogger()})
	if err != nil {
		t.Fatal(err)
	}
	defer app.Close()

	ts := httptest.NewServer(app.Server.Handler())
	defer ts.Close()

	code, _, body := get(t, noRedirectClient(), ts.URL+"/gone")
	if code != http.StatusNotFound || body != "upstream fallback" {
		t.Errorf("expected upstream fallback page, got %d %q", code, body)
	}

	tests := []struct {
		name string
		cfg  config.ServerConfig
	}{
		{"relative upstream", config.ServerConfig{Upstream: "/just/a/path"}},
		{"bad scheme", config.ServerConfig{Upstream: "ftp://host"}},
		{"missing dir", config.ServerConfig{ContentDir: filepath.Join(t.TempDir(), "absent")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewSite(&tt.cfg, quietLogger()); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(nil, Options{}); err == nil {
		t.Error("expected error for nil config")
	}
	if _, err := New(&config.ServerConfig{}, Options{}); err == nil {
		t.Error("expected error without dispatcher")
	}
}
