package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"mercator-hq/notfound/pkg/misslog"
)

// SQLiteConfig contains configuration for the SQLite storage backend.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// MaxOpenConns is the maximum number of open connections to the database.
	// Default: 10
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int

	// WALMode enables Write-Ahead Logging mode for better concurrency.
	// Default: true
	WALMode bool

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:         "data/misses.db",
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}
}

// SQLiteStorage implements misslog.Storage using SQLite.
type SQLiteStorage struct {
	db     *sql.DB
	config *SQLiteConfig
	logger *slog.Logger
}

// NewSQLiteStorage opens the database, creating its directory and schema.
func NewSQLiteStorage(config *SQLiteConfig) (*SQLiteStorage, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}

	logger := slog.Default().With("component", "misslog.storage.sqlite")

	if dir := filepath.Dir(config.Path); dir != "." && !strings.HasPrefix(config.Path, ":memory:") {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, misslog.NewStorageError("sqlite", "mkdir", err)
		}
	}

	db, err := sql.Open("sqlite3", config.Path)
	if err != nil {
		return nil, misslog.NewStorageError("sqlite", "open", err)
	}

	if config.MaxOpenConns > 0 {
		db.SetMaxOpenConns(config.MaxOpenConns)
	}
	if config.MaxIdleConns > 0 {
		db.SetMaxIdleConns(config.MaxIdleConns)
	}

	s := &SQLiteStorage{
		db:     db,
		config: config,
		logger: logger,
	}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("SQLite storage initialized",
		"path", config.Path,
		"wal_mode", config.WALMode,
		"max_open_conns", config.MaxOpenConns,
	)

	return s, nil
}

func (s *SQLiteStorage) initialize() error {
	if s.config.WALMode {
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return misslog.NewStorageError("sqlite", "enable_wal", err)
		}
	}

	if s.config.BusyTimeout > 0 {
		if _, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", s.config.BusyTimeout.Milliseconds())); err != nil {
			return misslog.NewStorageError("sqlite", "set_busy_timeout", err)
		}
	}

	if _, err := s.db.Exec(Schema); err != nil {
		return misslog.NewStorageError("sqlite", "create_schema", err)
	}
	if _, err := s.db.Exec(InsertSchemaVersion, SchemaVersion); err != nil {
		return misslog.NewStorageError("sqlite", "insert_schema_version", err)
	}

	var version int
	err := s.db.QueryRow(GetSchemaVersion).Scan(&version)
	if err != nil && err != sql.ErrNoRows {
		return misslog.NewStorageError("sqlite", "get_schema_version", err)
	}
	if version != SchemaVersion {
		return misslog.NewStorageError("sqlite", "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}

	s.logger.Debug("schema version verified", "version", version)
	return nil
}

// StoreBatch inserts all misses in a single transaction.
func (s *SQLiteStorage) StoreBatch(ctx context.Context, misses []*misslog.Miss) error {
	if len(misses) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return misslog.NewStorageError("sqlite", "begin", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO misses (id, path, referrer, requested_at) VALUES (?, ?, ?, ?)")
	if err != nil {
		return misslog.NewStorageError("sqlite", "prepare", err)
	}
	defer stmt.Close()

	for _, m := range misses {
		if _, err := stmt.ExecContext(ctx, m.ID, m.Path, m.Referrer, m.RequestedAt.UnixNano()); err != nil {
			return misslog.NewStorageError("sqlite", "store", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return misslog.NewStorageError("sqlite", "commit", err)
	}
	return nil
}

// Query returns matching misses, newest first.
func (s *SQLiteStorage) Query(ctx context.Context, query *misslog.Query) ([]*misslog.Miss, error) {
	whereClause, args := buildWhereClause(query)

	sqlQuery := "SELECT id, path, referrer, requested_at FROM misses"
	if whereClause != "" {
		sqlQuery += " WHERE " + whereClause
	}
	sqlQuery += " ORDER BY requested_at DESC, id DESC"
	sqlQuery += paginationClause(query)

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, misslog.NewStorageError("sqlite", "query", err)
	}
	defer rows.Close()

	misses := []*misslog.Miss{}
	for rows.Next() {
		var m misslog.Miss
		var nanos int64
		if err := rows.Scan(&m.ID, &m.Path, &m.Referrer, &nanos); err != nil {
			return nil, misslog.NewStorageError("sqlite", "scan", err)
		}
		m.RequestedAt = time.Unix(0, nanos).UTC()
		misses = append(misses, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, misslog.NewStorageError("sqlite", "query", err)
	}

	return misses, nil
}

// Summarize groups matching misses by path, most frequent first.
func (s *SQLiteStorage) Summarize(ctx context.Context, query *misslog.Query) ([]*misslog.Summary, error) {
	whereClause, args := buildWhereClause(query)

	sqlQuery := "SELECT path, COUNT(*), MAX(requested_at) FROM misses"
	if whereClause != "" {
		sqlQuery += " WHERE " + whereClause
	}
	sqlQuery += " GROUP BY path ORDER BY COUNT(*) DESC, path ASC"
	sqlQuery += paginationClause(query)

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, misslog.NewStorageError("sqlite", "summarize", err)
	}
	defer rows.Close()

	summaries := []*misslog.Summary{}
	for rows.Next() {
		var sum misslog.Summary
		var nanos int64
		if err := rows.Scan(&sum.Path, &sum.Count, &nanos); err != nil {
			return nil, misslog.NewStorageError("sqlite", "scan", err)
		}
		sum.LastSeen = time.Unix(0, nanos).UTC()
		summaries = append(summaries, &sum)
	}
	if err := rows.Err(); err != nil {
		return nil, misslog.NewStorageError("sqlite", "summarize", err)
	}

	return summaries, nil
}

// Count returns the number of matching misses.
func (s *SQLiteStorage) Count(ctx context.Context, query *misslog.Query) (int64, error) {
	whereClause, args := buildWhereClause(query)

	sqlQuery := "SELECT COUNT(*) FROM misses"
	if whereClause != "" {
		sqlQuery += " WHERE " + whereClause
	}

	var count int64
	if err := s.db.QueryRowContext(ctx, sqlQuery, args...).Scan(&count); err != nil {
		return 0, misslog.NewStorageError("sqlite", "count", err)
	}
	return count, nil
}

// DeleteOlderThan removes misses observed before cutoff.
func (s *SQLiteStorage) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM misses WHERE requested_at < ?", cutoff.UnixNano())
	if err != nil {
		return 0, misslog.NewStorageError("sqlite", "delete", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, misslog.NewStorageError("sqlite", "delete", err)
	}
	return count, nil
}

// DeleteOldest removes the n oldest misses.
func (s *SQLiteStorage) DeleteOldest(ctx context.Context, n int64) (int64, error) {
	if n <= 0 {
		return 0, nil
	}

	result, err := s.db.ExecContext(ctx, `
		DELETE FROM misses WHERE id IN (
			SELECT id FROM misses ORDER BY requested_at ASC, id ASC LIMIT ?
		)`, n)
	if err != nil {
		return 0, misslog.NewStorageError("sqlite", "delete_oldest", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, misslog.NewStorageError("sqlite", "delete_oldest", err)
	}
	return count, nil
}

// Close releases the database connection.
func (s *SQLiteStorage) Close() error {
	if err := s.db.Close(); err != nil {
		return misslog.NewStorageError("sqlite", "close", err)
	}
	s.logger.Info("SQLite storage closed")
	return nil
}

// buildWhereClause builds a WHERE clause (without the keyword) and its arguments.
func buildWhereClause(query *misslog.Query) (string, []interface{}) {
	if query == nil {
		return "", nil
	}

	var conditions []string
	var args []interface{}

	if query.PathPrefix != "" {
		conditions = append(conditions, "instr(path, ?) = 1")
		args = append(args, query.PathPrefix)
	}
	if query.Since != nil {
		conditions = append(conditions, "requested_at >= ?")
		args = append(args, query.Since.UnixNano())
	}
	if query.Until != nil {
		conditions = append(conditions, "requested_at <= ?")
		args = append(args, query.Until.UnixNano())
	}

	return strings.Join(conditions, " AND "), args
}

func paginationClause(query *misslog.Query) string {
	clause := ""
	limit := query.EffectiveLimit()
	if limit >= 0 {
		clause = fmt.Sprintf(" LIMIT %d", limit)
	}
	if query != nil && query.Offset > 0 {
		if limit < 0 {
			clause = " LIMIT -1"
		}
		clause += fmt.Sprintf(" OFFSET %d", query.Offset)
	}
	return clause
}
