package retention

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"mercator-hq/notfound/pkg/misslog"
	"mercator-hq/notfound/pkg/misslog/storage"
)

var now = time.Date(2026, 3, 31, 12, 0, 0, 0, time.UTC)

func seedDays(t *testing.T, s misslog.Storage, ages ...int) {
	t.Helper()
	misses := make([]*misslog.Miss, 0, len(ages))
	for i, days := range ages {
		misses = append(misses, &misslog.Miss{
			ID:          fmt.Sprintf("m%d", i),
			Path:        "/p",
			RequestedAt: now.AddDate(0, 0, -days),
		})
	}
	if err := s.StoreBatch(context.Background(), misses); err != nil {
		t.Fatal(err)
	}
}

func newTestPruner(s misslog.Storage, cfg *Config) *Pruner {
	p := NewPruner(s, cfg, nil)
	p.now = func() time.Time { return now }
	return p
}

func TestPruner_Prune(t *testing.T) {
	tests := []struct {
		name        string
		config      *Config
		ages        []int
		wantDeleted int64
		wantLeft    int64
	}{
		{
			name:        "age only",
			config:      &Config{RetentionDays: 30},
			ages:        []int{1, 10, 29, 31, 90},
			wantDeleted: 2,
			wantLeft:    3,
		},
		{
			name:        "count only",
			config:      &Config{MaxRecords: 2},
			ages:        []int{1, 2, 3, 4},
			wantDeleted: 2,
			wantLeft:    2,
		},
		{
			name:        "age then count",
			config:      &Config{RetentionDays: 30, MaxRecords: 1},
			ages:        []int{1, 2, 40},
			wantDeleted: 2,
			wantLeft:    1,
		},
		{
			name:        "keep forever",
			config:      &Config{},
			ages:        []int{1, 400},
			wantDeleted: 0,
			wantLeft:    2,
		},
		{
			name:        "under limit",
			config:      &Config{MaxRecords: 10},
			ages:        []int{1, 2},
			wantDeleted: 0,
			wantLeft:    2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := storage.NewMemoryStorage()
			seedDays(t, s, tt.ages...)

			deleted, err := newTestPruner(s, tt.config).Prune(context.Background())
			if err != nil {
				t.Fatalf("Prune() error = %v", err)
			}
			if deleted != tt.wantDeleted {
				t.Errorf("expected %d deleted, got %d", tt.wantDeleted, deleted)
			}
			if left, _ := s.Count(context.Background(), nil); left != tt.wantLeft {
				t.Errorf("expected %d left, got %d", tt.wantLeft, left)
			}
		})
	}
}

func TestPruner_CountKeepsNewest(t *testing.T) {
	s := storage.NewMemoryStorage()
	seedDays(t, s, 5, 1, 3)

	if _, err := newTestPruner(s, &Config{MaxRecords: 1}).Prune(context.Background()); err != nil {
		t.Fatal(err)
	}
	left, _ := s.Query(context.Background(), nil)
	if len(left) != 1 || left[0].ID != "m1" {
		t.Errorf("expected newest miss m1 to remain, got %+v", left)
	}
}

type failingStorage struct {
	*storage.MemoryStorage
}

func (failingStorage) DeleteOlderThan(context.Context, time.Time) (int64, error) {
	return 0, errors.New("locked")
}

func TestPruner_StorageError(t *testing.T) {
	p := newTestPruner(failingStorage{storage.NewMemoryStorage()}, &Config{RetentionDays: 1})

	_, err := p.Prune(context.Background())
	var retErr *misslog.RetentionError
	if !errors.As(err, &retErr) || retErr.RetentionDays != 1 {
		t.Errorf("expected RetentionError, got %v", err)
	}
}
