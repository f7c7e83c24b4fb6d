package redirects

import (
	"context"
	"errors"
	"net/url"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func newTestSQLProvider(t *testing.T) *SQLProvider {
	t.Helper()
	p, err := OpenSQLProvider(SQLProviderConfig{Path: filepath.Join(t.TempDir(), "redirects.db")})
	if err != nil {
		t.Fatalf("OpenSQLProvider() error = %v", err)
	}
	t.Cleanup(func() { p.Close() })
	return p
}

func TestSQLProvider_Find(t *testing.T) {
	ctx := context.Background()
	p := newTestSQLProvider(t)

	records := []Record{
		{OldURL: "/Catalog/Item-1/", NewURL: "/items/1", State: StateSaved},
		{OldURL: "https://site.example/promo", NewURL: "/offers", State: StateSaved},
		{OldURL: "/retired", NewURL: "/gone", State: StateDeleted},
	}
	for _, rec := range records {
		if err := p.Upsert(ctx, rec); err != nil {
			t.Fatalf("Upsert() error = %v", err)
		}
	}

	tests := []struct {
		url       string
		wantNew   string
		wantState State
	}{
		{"https://site.example/catalog/item-1", "/items/1", StateSaved},
		{"https://site.example/promo", "/offers", StateSaved},
		{"https://site.example/retired?x=1", "/gone", StateDeleted},
		{"https://site.example/nothing", "", StateSaved},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			rec, err := p.Find(ctx, tt.url)
			if err != nil {
				t.Fatalf("Find() error = %v", err)
			}
			if tt.wantNew == "" {
				if rec != nil {
					t.Fatalf("expected nil, got %+v", rec)
				}
				return
			}
			if rec == nil {
				t.Fatal("expected record, got nil")
			}
			if rec.NewURL != tt.wantNew || rec.State != tt.wantState {
				t.Errorf("expected %q/%v, got %q/%v", tt.wantNew, tt.wantState, rec.NewURL, rec.State)
			}
			if rec.Origin != OriginProvider {
				t.Errorf("expected provider origin, got %v", rec.Origin)
			}
		})
	}

	n, err := p.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if n != 3 {
		t.Errorf("expected 3 records, got %d", n)
	}
}

func TestSQLProvider_UpsertReplaces(t *testing.T) {
	ctx := context.Background()
	p := newTestSQLProvider(t)

	if err := p.Upsert(ctx, Record{OldURL: "/a", NewURL: "/b"}); err != nil {
		t.Fatal(err)
	}
	if err := p.Upsert(ctx, Record{OldURL: "/A/", NewURL: "/c"}); err != nil {
		t.Fatal(err)
	}

	rec, err := p.Find(ctx, "https://site.example/a")
	if err != nil || rec == nil {
		t.Fatalf("Find() = %v, %v", rec, err)
	}
	if rec.NewURL != "/c" {
		t.Errorf("expected replaced target /c, got %q", rec.NewURL)
	}
}

// fakeProvider counts calls and can be told to fail.
type fakeProvider struct {
	mu      sync.Mutex
	records map[string]*Record
	err     error
	calls   int
}

func (f *fakeProvider) Find(_ context.Context, absoluteURL string) (*Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return copyRecord(f.records[absoluteURL]), nil
}

func TestCachedProvider(t *testing.T) {
	ctx := context.Background()
	next := &fakeProvider{records: map[string]*Record{
		"https://site.example/a": {OldURL: "/a", NewURL: "/b"},
	}}
	c := NewCachedProvider(next, 16, time.Minute)

	for i := 0; i < 3; i++ {
		rec, err := c.Find(ctx, "https://site.example/a")
		if err != nil || rec == nil || rec.NewURL != "/b" {
			t.Fatalf("Find() = %+v, %v", rec, err)
		}
	}
	for i := 0; i < 3; i++ {
		if rec, _ := c.Find(ctx, "https://site.example/missing"); rec != nil {
			t.Fatalf("expected miss, got %+v", rec)
		}
	}

	if next.calls != 2 {
		t.Errorf("expected 2 underlying calls (one hit, one negative), got %d", next.calls)
	}
	if c.Len() != 2 {
		t.Errorf("expected 2 cached entries, got %d", c.Len())
	}

	c.Purge()
	if _, err := c.Find(ctx, "https://site.example/a"); err != nil {
		t.Fatal(err)
	}
	if next.calls != 3 {
		t.Errorf("expected purge to force a new lookup, got %d calls", next.calls)
	}
}

func TestCachedProvider_ErrorsNotCached(t *testing.T) {
	ctx := context.Background()
	next := &fakeProvider{err: errors.New("db down")}
	c := NewCachedProvider(next, 16, time.Minute)

	if _, err := c.Find(ctx, "https://site.example/a"); err == nil {
		t.Fatal("expected error")
	}
	if _, err := c.Find(ctx, "https://site.example/a"); err == nil {
		t.Fatal("expected error")
	}
	if next.calls != 2 {
		t.Errorf("expected errors to bypass the cache, got %d calls", next.calls)
	}
}

type recordingObserver struct {
	mu   sync.Mutex
	seen []string
}

func (o *recordingObserver) ObserveRedirectLookup(source, result string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.seen = append(o.seen, source+":"+result)
}

func TestStore_FailSafe(t *testing.T) {
	ctx := context.Background()
	static := NewFileStore(writeRedirects(t, sampleRedirects), nil)
	if err := static.Load(); err != nil {
		t.Fatal(err)
	}
	obs := &recordingObserver{}
	store := NewStore(static, &fakeProvider{err: errors.New("db down")}, obs, nil)

	u, _ := url.Parse("https://site.example/old/page")
	if rec := store.FindStatic(ctx, u); rec == nil || rec.NewURL != "/new/page" {
		t.Fatalf("FindStatic() = %+v", rec)
	}
	if rec := store.FindProvider(ctx, "https://site.example/x"); rec != nil {
		t.Fatalf("expected provider error to become nil, got %+v", rec)
	}

	want := []string{"static:hit", "provider:error"}
	if len(obs.seen) != len(want) {
		t.Fatalf("expected observations %v, got %v", want, obs.seen)
	}
	for i := range want {
		if obs.seen[i] != want[i] {
			t.Errorf("observation %d: expected %q, got %q", i, want[i], obs.seen[i])
		}
	}
}

func TestStore_NilCollaborators(t *testing.T) {
	store := NewStore(nil, nil, nil, nil)
	u, _ := url.Parse("https://site.example/a")
	if store.FindStatic(context.Background(), u) != nil {
		t.Error("expected nil without a static list")
	}
	if store.FindProvider(context.Background(), u.String()) != nil {
		t.Error("expected nil without a provider")
	}
	if err := store.Reload(); err != nil {
		t.Errorf("Reload() error = %v", err)
	}
}

func TestStore_ProviderOriginIsSet(t *testing.T) {
	next := &fakeProvider{records: map[string]*Record{
		"https://site.example/p": {OldURL: "/p", NewURL: "/q", Origin: OriginStatic},
	}}
	store := NewStore(nil, next, nil, nil)

	rec := store.FindProvider(context.Background(), "https://site.example/p")
	if rec == nil || rec.Origin != OriginProvider {
		t.Fatalf("expected provider origin, got %+v", rec)
	}
}
