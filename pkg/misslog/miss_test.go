package misslog

import (
	"testing"
	"time"
)

func TestQuery_Matches(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	before := at.Add(-time.Minute)
	after := at.Add(time.Minute)
	m := &Miss{Path: "/old/page?x=1", RequestedAt: at}

	tests := []struct {
		name  string
		query *Query
		want  bool
	}{
		{"nil", nil, true},
		{"empty", &Query{}, true},
		{"prefix", &Query{PathPrefix: "/old/"}, true},
		{"other prefix", &Query{PathPrefix: "/new/"}, false},
		{"inclusive since", &Query{Since: &at}, true},
		{"inclusive until", &Query{Until: &at}, true},
		{"since after", &Query{Since: &after}, false},
		{"until before", &Query{Until: &before}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.query.Matches(m); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	tests := []struct {
		name  string
		query *Query
		want  int
		first int
	}{
		{"nil uses default", nil, 5, 1},
		{"limit", &Query{Limit: 2}, 2, 1},
		{"offset", &Query{Limit: 2, Offset: 3}, 2, 4},
		{"unlimited", &Query{Limit: -1, Offset: 1}, 4, 2},
		{"past end", &Query{Offset: 9}, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Paginate(items, tt.query)
			if len(got) != tt.want {
				t.Fatalf("expected %d items, got %v", tt.want, got)
			}
			if tt.want > 0 && got[0] != tt.first {
				t.Errorf("expected first item %d, got %d", tt.first, got[0])
			}
		})
	}
}

func TestSummarize(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	misses := []*Miss{
		{Path: "/b", RequestedAt: t0},
		{Path: "/a", RequestedAt: t0.Add(time.Hour)},
		{Path: "/b", RequestedAt: t0.Add(2 * time.Hour)},
		{Path: "/c", RequestedAt: t0},
	}

	got := Summarize(misses)
	if len(got) != 3 {
		t.Fatalf("expected 3 summaries, got %d", len(got))
	}
	if got[0].Path != "/b" || got[0].Count != 2 || !got[0].LastSeen.Equal(t0.Add(2*time.Hour)) {
		t.Errorf("unexpected first summary %+v", got[0])
	}
	if got[1].Path != "/a" || got[2].Path != "/c" {
		t.Errorf("expected ties sorted by path, got %s, %s", got[1].Path, got[2].Path)
	}
}
