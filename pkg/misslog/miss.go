package misslog

import (
	"context"
	"sort"
	"strings"
	"time"
)

// Miss is a single recorded not-found request.
type Miss struct {
	ID          string    `json:"id"`           // UUID v4
	Path        string    `json:"path"`         // Requested path and query
	Referrer    string    `json:"referrer"`     // Normalized referrer, empty when absent
	RequestedAt time.Time `json:"requested_at"` // When the miss was observed
}

// Summary aggregates misses for one path.
type Summary struct {
	Path     string    `json:"path"`
	Count    int64     `json:"count"`
	LastSeen time.Time `json:"last_seen"`
}

// Query filters misses. Zero values mean "no filter".
type Query struct {
	// PathPrefix keeps misses whose path starts with the prefix.
	PathPrefix string

	// Since keeps misses observed at or after the time.
	Since *time.Time

	// Until keeps misses observed at or before the time.
	Until *time.Time

	// Limit caps the number of results. 0 selects DefaultQueryLimit;
	// a negative value returns everything.
	Limit int

	// Offset skips results for pagination.
	Offset int
}

// DefaultQueryLimit is used when Query.Limit is zero.
const DefaultQueryLimit = 100

// EffectiveLimit resolves the zero and negative conventions of Limit.
// It returns -1 for "no limit".
func (q *Query) EffectiveLimit() int {
	if q == nil || q.Limit == 0 {
		return DefaultQueryLimit
	}
	if q.Limit < 0 {
		return -1
	}
	return q.Limit
}

// Matches reports whether m passes the filters of q.
func (q *Query) Matches(m *Miss) bool {
	if q == nil {
		return true
	}
	if q.PathPrefix != "" && !strings.HasPrefix(m.Path, q.PathPrefix) {
		return false
	}
	if q.Since != nil && m.RequestedAt.Before(*q.Since) {
		return false
	}
	if q.Until != nil && m.RequestedAt.After(*q.Until) {
		return false
	}
	return true
}

// Storage persists misses. Implementations must be safe for concurrent use.
type Storage interface {
	// StoreBatch persists all misses in one write.
	StoreBatch(ctx context.Context, misses []*Miss) error

	// Query returns matching misses, newest first.
	Query(ctx context.Context, query *Query) ([]*Miss, error)

	// Summarize groups matching misses by path, most frequent first.
	Summarize(ctx context.Context, query *Query) ([]*Summary, error)

	// Count returns the number of matching misses.
	Count(ctx context.Context, query *Query) (int64, error)

	// DeleteOlderThan removes misses observed before cutoff.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)

	// DeleteOldest removes the n oldest misses.
	DeleteOldest(ctx context.Context, n int64) (int64, error)

	// Close releases backend resources.
	Close() error
}

// SortNewestFirst orders misses by RequestedAt descending, breaking ties by ID.
func SortNewestFirst(misses []*Miss) {
	sort.SliceStable(misses, func(i, j int) bool {
		if misses[i].RequestedAt.Equal(misses[j].RequestedAt) {
			return misses[i].ID > misses[j].ID
		}
		return misses[i].RequestedAt.After(misses[j].RequestedAt)
	})
}

// Paginate applies the offset and limit of q to an already ordered slice.
func Paginate[T any](items []T, q *Query) []T {
	offset := 0
	if q != nil && q.Offset > 0 {
		offset = q.Offset
	}
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit := q.EffectiveLimit(); limit >= 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

// Summarize aggregates misses by path for backends without native grouping.
// Results are ordered by count descending, then path ascending.
func Summarize(misses []*Miss) []*Summary {
	byPath := make(map[string]*Summary)
	for _, m := range misses {
		s, ok := byPath[m.Path]
		if !ok {
			s = &Summary{Path: m.Path}
			byPath[m.Path] = s
		}
		s.Count++
		if m.RequestedAt.After(s.LastSeen) {
			s.LastSeen = m.RequestedAt
		}
	}

	out := make([]*Summary, 0, len(byPath))
	for _, s := range byPath {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Path < out[j].Path
	})
	return out
}
