package redirects

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// cachedLookup is a provider answer; rec is nil for a negative result.
type cachedLookup struct {
	rec *Record
}

// CachedProvider memoizes provider lookups, including misses, for a fixed
// TTL. Errors are not cached.
type CachedProvider struct {
	next  Provider
	cache *expirable.LRU[string, cachedLookup]
}

// NewCachedProvider wraps next with an LRU of size entries.
func NewCachedProvider(next Provider, size int, ttl time.Duration) *CachedProvider {
	return &CachedProvider{
		next:  next,
		cache: expirable.NewLRU[string, cachedLookup](size, nil, ttl),
	}
}

// Find implements Provider.
func (c *CachedProvider) Find(ctx context.Context, absoluteURL string) (*Record, error) {
	key := NormalizeKey(absoluteURL)
	if hit, ok := c.cache.Get(key); ok {
		return copyRecord(hit.rec), nil
	}

	rec, err := c.next.Find(ctx, absoluteURL)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, cachedLookup{rec: copyRecord(rec)})
	return rec, nil
}

// Purge drops all cached lookups.
func (c *CachedProvider) Purge() {
	c.cache.Purge()
}

// Len returns the number of cached lookups.
func (c *CachedProvider) Len() int {
	return c.cache.Len()
}

func copyRecord(rec *Record) *Record {
	if rec == nil {
		return nil
	}
	out := *rec
	return &out
}
