package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"mercator-hq/notfound/pkg/misslog"
)

// MemoryStorage keeps misses in process memory. Contents are lost on restart.
type MemoryStorage struct {
	misses []*misslog.Miss
	mu     sync.RWMutex
}

// NewMemoryStorage creates a new in-memory storage backend.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

// StoreBatch appends copies of the misses.
func (s *MemoryStorage) StoreBatch(ctx context.Context, misses []*misslog.Miss) error {
	if err := ctx.Err(); err != nil {
		return misslog.NewStorageError("memory", "store", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range misses {
		cp := *m
		s.misses = append(s.misses, &cp)
	}
	return nil
}

// Query returns matching misses, newest first.
func (s *MemoryStorage) Query(ctx context.Context, query *misslog.Query) ([]*misslog.Miss, error) {
	results := s.filter(query)
	misslog.SortNewestFirst(results)
	return misslog.Paginate(results, query), nil
}

// Summarize groups matching misses by path.
func (s *MemoryStorage) Summarize(ctx context.Context, query *misslog.Query) ([]*misslog.Summary, error) {
	return misslog.Paginate(misslog.Summarize(s.filter(query)), query), nil
}

// Count returns the number of matching misses.
func (s *MemoryStorage) Count(ctx context.Context, query *misslog.Query) (int64, error) {
	return int64(len(s.filter(query))), nil
}

// DeleteOlderThan removes misses observed before cutoff.
func (s *MemoryStorage) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.misses[:0]
	var deleted int64
	for _, m := range s.misses {
		if m.RequestedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, m)
	}
	s.misses = kept
	return deleted, nil
}

// DeleteOldest removes the n oldest misses.
func (s *MemoryStorage) DeleteOldest(ctx context.Context, n int64) (int64, error) {
	if n <= 0 {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sort.SliceStable(s.misses, func(i, j int) bool {
		return s.misses[i].RequestedAt.Before(s.misses[j].RequestedAt)
	})
	if n > int64(len(s.misses)) {
		n = int64(len(s.misses))
	}
	s.misses = append([]*misslog.Miss(nil), s.misses[n:]...)
	return n, nil
}

// Close is a no-op.
func (s *MemoryStorage) Close() error {
	return nil
}

func (s *MemoryStorage) filter(query *misslog.Query) []*misslog.Miss {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := []*misslog.Miss{}
	for _, m := range s.misses {
		if query.Matches(m) {
			cp := *m
			results = append(results, &cp)
		}
	}
	return results
}
