package storage

import (
	"fmt"

	"mercator-hq/notfound/pkg/config"
	"mercator-hq/notfound/pkg/misslog"
)

// New opens the backend selected by cfg.Backend.
func New(cfg config.MissLogConfig) (misslog.Storage, error) {
	switch cfg.Backend {
	case "sqlite", "":
		s, err := NewSQLiteStorage(&SQLiteConfig{
			Path:         cfg.SQLite.Path,
			MaxOpenConns: cfg.SQLite.MaxOpenConns,
			MaxIdleConns: cfg.SQLite.MaxIdleConns,
			WALMode:      cfg.SQLite.WALMode,
			BusyTimeout:  cfg.SQLite.BusyTimeout,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	case "redis":
		s, err := NewRedisStorage(&RedisConfig{
			Address:   cfg.Redis.Address,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			KeyPrefix: cfg.Redis.KeyPrefix,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	case "memory":
		return NewMemoryStorage(), nil
	default:
		return nil, fmt.Errorf("unknown miss log backend %q", cfg.Backend)
	}
}
