package redirects

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// Provider is a pluggable redirect source consulted after the static list.
// It receives the absolute URL of the failed request.
type Provider interface {
	Find(ctx context.Context, absoluteURL string) (*Record, error)
}

// SQLProviderConfig configures the SQL provider.
type SQLProviderConfig struct {
	// Path is the SQLite database file.
	Path string

	// BusyTimeout is how long to wait for locks before failing.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// SQLProvider looks redirects up in a SQLite table. Keys are stored
// normalized, so lookups are exact string matches.
type SQLProvider struct {
	db       *sql.DB
	findStmt *sql.Stmt
}

const providerSchema = `
CREATE TABLE IF NOT EXISTS redirects (
	old_url TEXT PRIMARY KEY,
	new_url TEXT NOT NULL,
	state TEXT NOT NULL DEFAULT 'saved',
	updated_at INTEGER NOT NULL
);
`

// OpenSQLProvider opens (creating if needed) the provider database.
func OpenSQLProvider(cfg SQLProviderConfig) (*SQLProvider, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("db path cannot be empty")
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}
	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)&_pragma=synchronous(NORMAL)",
		cfg.Path, cfg.BusyTimeout.Milliseconds())

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)

	if _, err := db.Exec(providerSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	stmt, err := db.Prepare(`SELECT old_url, new_url, state FROM redirects WHERE old_url = ?`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}

	return &SQLProvider{db: db, findStmt: stmt}, nil
}

// Find returns the record for absoluteURL, trying the absolute URL, the
// path with query and the path in that order. It returns nil, nil when
// nothing matches.
func (p *SQLProvider) Find(ctx context.Context, absoluteURL string) (*Record, error) {
	for _, key := range lookupKeysFromString(absoluteURL) {
		var rec Record
		var state string
		err := p.findStmt.QueryRowContext(ctx, key).Scan(&rec.OldURL, &rec.NewURL, &state)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, &ProviderError{Backend: "sqlite", Operation: "find", Cause: err}
		}
		rec.State, err = ParseState(state)
		if err != nil {
			return nil, &ProviderError{Backend: "sqlite", Operation: "find", Cause: err}
		}
		rec.Origin = OriginProvider
		return &rec, nil
	}
	return nil, nil
}

// Upsert stores rec under its normalized old URL.
func (p *SQLProvider) Upsert(ctx context.Context, rec Record) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO redirects (old_url, new_url, state, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(old_url) DO UPDATE SET
			new_url = excluded.new_url,
			state = excluded.state,
			updated_at = excluded.updated_at`,
		NormalizeKey(rec.OldURL), rec.NewURL, rec.State.String(), time.Now().Unix(),
	)
	if err != nil {
		return &ProviderError{Backend: "sqlite", Operation: "upsert", Cause: err}
	}
	return nil
}

// Count returns the number of stored records.
func (p *SQLProvider) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := p.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM redirects`).Scan(&n); err != nil {
		return 0, &ProviderError{Backend: "sqlite", Operation: "count", Cause: err}
	}
	return n, nil
}

// Close releases the database.
func (p *SQLProvider) Close() error {
	if p.findStmt != nil {
		p.findStmt.Close()
	}
	return p.db.Close()
}
