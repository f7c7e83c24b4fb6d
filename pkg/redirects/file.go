package redirects

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"sync/atomic"

	"gopkg.in/yaml.v3"
)

// fileFormat is the on-disk layout of the static redirect list.
type fileFormat struct {
	Redirects []fileEntry `yaml:"redirects"`
}

type fileEntry struct {
	OldURL string `yaml:"old_url"`
	NewURL string `yaml:"new_url"`
	State  string `yaml:"state"`
}

// FileStore is the static redirect list. Reads are lock free; Load swaps
// in a freshly built index.
type FileStore struct {
	path   string
	logger *slog.Logger
	index  atomic.Pointer[fileIndex]
}

type fileIndex struct {
	byKey   map[string]*Record
	records []Record
}

// NewFileStore creates an empty store for path. Call Load to read it.
func NewFileStore(path string, logger *slog.Logger) *FileStore {
	if logger == nil {
		logger = slog.Default()
	}
	s := &FileStore{
		path:   path,
		logger: logger.With("component", "redirects.file"),
	}
	s.index.Store(&fileIndex{byKey: map[string]*Record{}})
	return s
}

// Path returns the file the store reads from.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the file and replaces the current list. A missing file yields
// an empty list. On any other error the current list is kept.
func (s *FileStore) Load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("redirects file not found, using empty list", "path", s.path)
			s.index.Store(&fileIndex{byKey: map[string]*Record{}})
			return nil
		}
		return &LoadError{Path: s.path, Cause: err}
	}

	idx, err := s.parse(data)
	if err != nil {
		return &LoadError{Path: s.path, Cause: err}
	}

	s.index.Store(idx)
	s.logger.Info("redirects loaded", "path", s.path, "count", len(idx.records))
	return nil
}

func (s *FileStore) parse(data []byte) (*fileIndex, error) {
	var doc fileFormat
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid yaml: %w", err)
	}

	idx := &fileIndex{
		byKey:   make(map[string]*Record, len(doc.Redirects)),
		records: make([]Record, 0, len(doc.Redirects)),
	}
	for i, e := range doc.Redirects {
		if e.OldURL == "" || e.NewURL == "" {
			return nil, fmt.Errorf("entry %d: old_url and new_url are required", i)
		}
		state, err := ParseState(e.State)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		idx.records = append(idx.records, Record{
			OldURL: e.OldURL,
			NewURL: e.NewURL,
			State:  state,
			Origin: OriginStatic,
		})
	}

	for i := range idx.records {
		rec := &idx.records[i]
		key := NormalizeKey(rec.OldURL)
		if _, dup := idx.byKey[key]; dup {
			s.logger.Warn("duplicate redirect ignored", "old_url", rec.OldURL)
			continue
		}
		idx.byKey[key] = rec
	}
	return idx, nil
}

// Find returns the record for u, or nil. The absolute URL is tried first,
// then the path with query, then the path alone.
func (s *FileStore) Find(u *url.URL) *Record {
	if u == nil {
		return nil
	}
	idx := s.index.Load()
	for _, key := range lookupKeys(u) {
		if rec, ok := idx.byKey[key]; ok {
			out := *rec
			return &out
		}
	}
	return nil
}

// Len returns the number of records.
func (s *FileStore) Len() int {
	return len(s.index.Load().records)
}

// Records returns a copy of all records in file order.
func (s *FileStore) Records() []Record {
	idx := s.index.Load()
	out := make([]Record, len(idx.records))
	copy(out, idx.records)
	return out
}
