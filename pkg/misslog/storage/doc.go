// Package storage provides storage backends for the miss log.
//
// # Storage Backends
//
//   - SQLite: embedded database for single-node deployments (default)
//   - Redis: shared sorted set for several instances behind one site
//   - Memory: in-process storage for tests and throwaway runs
//
// # SQLite Backend
//
// The SQLite backend stores one row per miss with WAL mode, a busy timeout
// and indexes on the observation time and path. Batches are written in a
// single transaction.
//
//	s, err := storage.NewSQLiteStorage(&storage.SQLiteConfig{
//	    Path:    "data/misses.db",
//	    WALMode: true,
//	})
package storage
