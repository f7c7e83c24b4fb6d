package redirects

import (
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"testing"
)

const sampleRedirects = `
redirects:
  - old_url: /old/page
    new_url: /new/page
  - old_url: /Products/Legacy/
    new_url: /products
    state: saved
  - old_url: /search?q=shoes
    new_url: /shoes
  - old_url: https://site.example/absolute
    new_url: /from-absolute
  - old_url: /absolute
    new_url: /from-path
  - old_url: /draft
    new_url: /published
    state: new
  - old_url: /old/page
    new_url: /duplicate
`

func writeRedirects(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "redirects.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write redirects file: %v", err)
	}
	return path
}

func mustParse(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("failed to parse %q: %v", raw, err)
	}
	return u
}

func TestFileStore_Find(t *testing.T) {
	store := NewFileStore(writeRedirects(t, sampleRedirects), nil)
	if err := store.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	tests := []struct {
		name      string
		url       string
		wantNew   string
		wantState State
	}{
		{"path match", "https://site.example/old/page", "/new/page", StateSaved},
		{"case and trailing slash", "https://site.example/products/legacy", "/products", StateSaved},
		{"request with slash", "https://site.example/PRODUCTS/LEGACY/", "/products", StateSaved},
		{"path and query", "https://site.example/search?q=shoes", "/shoes", StateSaved},
		{"path fallback ignores query", "https://site.example/old/page?utm=x", "/new/page", StateSaved},
		{"absolute wins over path", "https://site.example/absolute", "/from-absolute", StateSaved},
		{"other host falls back to path", "https://other.example/absolute", "/from-path", StateSaved},
		{"non-saved returned as is", "https://site.example/draft", "/published", StateNew},
		{"no match", "https://site.example/missing", "", StateSaved},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := store.Find(mustParse(t, tt.url))
			if tt.wantNew == "" {
				if rec != nil {
					t.Fatalf("expected no record, got %+v", rec)
				}
				return
			}
			if rec == nil {
				t.Fatal("expected record, got nil")
			}
			if rec.NewURL != tt.wantNew {
				t.Errorf("expected new url %q, got %q", tt.wantNew, rec.NewURL)
			}
			if rec.State != tt.wantState {
				t.Errorf("expected state %v, got %v", tt.wantState, rec.State)
			}
			if rec.Origin != OriginStatic {
				t.Errorf("expected static origin, got %v", rec.Origin)
			}
		})
	}

	if store.Len() != 7 {
		t.Errorf("expected 7 records, got %d", store.Len())
	}
}

func TestFileStore_FindReturnsCopy(t *testing.T) {
	store := NewFileStore(writeRedirects(t, sampleRedirects), nil)
	if err := store.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	rec := store.Find(mustParse(t, "/old/page"))
	rec.NewURL = "/mutated"

	if got := store.Find(mustParse(t, "/old/page")).NewURL; got != "/new/page" {
		t.Errorf("expected stored record to be unchanged, got %q", got)
	}
}

func TestFileStore_MissingFile(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "absent.yaml"), nil)
	if err := store.Load(); err != nil {
		t.Fatalf("expected missing file to load as empty, got %v", err)
	}
	if store.Len() != 0 {
		t.Errorf("expected empty store, got %d", store.Len())
	}
}

func TestFileStore_InvalidKeepsCurrent(t *testing.T) {
	path := writeRedirects(t, sampleRedirects)
	store := NewFileStore(path, nil)
	if err := store.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	tests := []string{
		"redirects: [",
		"redirects:\n  - old_url: /a\n",
		"redirects:\n  - old_url: /a\n    new_url: /b\n    state: archived\n",
	}
	for _, content := range tests {
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
		err := store.Load()
		var loadErr *LoadError
		if !errors.As(err, &loadErr) {
			t.Fatalf("expected LoadError for %q, got %v", content, err)
		}
		if store.Len() != 7 {
			t.Errorf("expected previous list to be kept, got %d records", store.Len())
		}
	}
}

func TestNormalizeKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"/", "/"},
		{"/Old/", "/old"},
		{"/old//", "/old"},
		{"HTTPS://Site.Example/", "https://site.example"},
		{" /spaced ", "/spaced"},
	}
	for _, tt := range tests {
		if got := NormalizeKey(tt.in); got != tt.want {
			t.Errorf("NormalizeKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseState(t *testing.T) {
	for _, s := range []string{"", "saved", "SAVED"} {
		if st, err := ParseState(s); err != nil || st != StateSaved {
			t.Errorf("ParseState(%q) = %v, %v", s, st, err)
		}
	}
	if st, _ := ParseState("deleted"); st != StateDeleted {
		t.Errorf("expected deleted, got %v", st)
	}
	if _, err := ParseState("archived"); err == nil {
		t.Error("expected error for unknown state")
	}
}
