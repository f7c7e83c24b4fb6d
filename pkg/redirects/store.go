package redirects

import (
	"context"
	"log/slog"
	"net/url"
)

// LookupObserver receives one observation per store lookup. source is
// "static" or "provider"; result is "hit", "miss" or "error".
type LookupObserver interface {
	ObserveRedirectLookup(source, result string)
}

// Store combines the static list with an optional provider. It never
// returns errors: a failing provider is logged and treated as no match.
type Store struct {
	static   *FileStore
	provider Provider
	observer LookupObserver
	logger   *slog.Logger
}

// NewStore creates a Store. static and provider may each be nil.
func NewStore(static *FileStore, provider Provider, observer LookupObserver, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		static:   static,
		provider: provider,
		observer: observer,
		logger:   logger.With("component", "redirects"),
	}
}

// FindStatic looks u up in the static list.
func (s *Store) FindStatic(_ context.Context, u *url.URL) *Record {
	if s.static == nil {
		return nil
	}
	rec := s.static.Find(u)
	s.observe("static", rec, nil)
	return rec
}

// FindProvider asks the provider about absoluteURL.
func (s *Store) FindProvider(ctx context.Context, absoluteURL string) *Record {
	if s.provider == nil {
		return nil
	}
	rec, err := s.provider.Find(ctx, absoluteURL)
	s.observe("provider", rec, err)
	if err != nil {
		s.logger.Warn("redirect provider lookup failed",
			"url", absoluteURL,
			"error", err,
		)
		return nil
	}
	if rec != nil {
		rec.Origin = OriginProvider
	}
	return rec
}

// Reload re-reads the static list and clears any provider cache.
func (s *Store) Reload() error {
	if c, ok := s.provider.(*CachedProvider); ok {
		c.Purge()
	}
	if s.static == nil {
		return nil
	}
	return s.static.Load()
}

func (s *Store) observe(source string, rec *Record, err error) {
	if s.observer == nil {
		return
	}
	switch {
	case err != nil:
		s.observer.ObserveRedirectLookup(source, "error")
	case rec != nil:
		s.observer.ObserveRedirectLookup(source, "hit")
	default:
		s.observer.ObserveRedirectLookup(source, "miss")
	}
}
