package storage

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"mercator-hq/notfound/pkg/misslog"
)

// RedisConfig contains configuration for the Redis storage backend.
type RedisConfig struct {
	// Address is the Redis server address.
	Address string

	// Password is the optional Redis password.
	Password string

	// DB is the Redis database number.
	DB int

	// KeyPrefix namespaces the keys written by the miss log.
	// Default: "notfound:"
	KeyPrefix string

	// DialTimeout bounds the initial connection check.
	// Default: 5 seconds
	DialTimeout time.Duration
}

// RedisStorage keeps misses in a Redis sorted set scored by observation time
// (microseconds), so several instances can share one miss log.
type RedisStorage struct {
	client *redis.Client
	key    string
	logger *slog.Logger
}

// NewRedisStorage connects to Redis and verifies the connection.
func NewRedisStorage(config *RedisConfig) (*RedisStorage, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     config.Address,
		Password: config.Password,
		DB:       config.DB,
	})

	timeout := config.DialTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, misslog.NewStorageError("redis", "connect", err)
	}

	s := NewRedisStorageWithClient(client, config.KeyPrefix)
	s.logger.Info("Redis storage connected", "address", config.Address, "key", s.key)
	return s, nil
}

// NewRedisStorageWithClient wraps an existing client.
func NewRedisStorageWithClient(client *redis.Client, keyPrefix string) *RedisStorage {
	if keyPrefix == "" {
		keyPrefix = "notfound:"
	}
	return &RedisStorage{
		client: client,
		key:    keyPrefix + "misses",
		logger: slog.Default().With("component", "misslog.storage.redis"),
	}
}

// StoreBatch adds all misses in one pipeline.
func (s *RedisStorage) StoreBatch(ctx context.Context, misses []*misslog.Miss) error {
	if len(misses) == 0 {
		return nil
	}

	pipe := s.client.Pipeline()
	for _, m := range misses {
		data, err := json.Marshal(m)
		if err != nil {
			return misslog.NewStorageError("redis", "marshal", err)
		}
		pipe.ZAdd(ctx, s.key, redis.Z{
			Score:  float64(m.RequestedAt.UnixMicro()),
			Member: data,
		})
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return misslog.NewStorageError("redis", "store", err)
	}
	return nil
}

// Query returns matching misses, newest first.
func (s *RedisStorage) Query(ctx context.Context, query *misslog.Query) ([]*misslog.Miss, error) {
	misses, err := s.load(ctx, query)
	if err != nil {
		return nil, err
	}
	misslog.SortNewestFirst(misses)
	return misslog.Paginate(misses, query), nil
}

// Summarize groups matching misses by path.
func (s *RedisStorage) Summarize(ctx context.Context, query *misslog.Query) ([]*misslog.Summary, error) {
	misses, err := s.load(ctx, query)
	if err != nil {
		return nil, err
	}
	return misslog.Paginate(misslog.Summarize(misses), query), nil
}

// Count returns the number of matching misses.
func (s *RedisStorage) Count(ctx context.Context, query *misslog.Query) (int64, error) {
	if query == nil || query.PathPrefix == "" {
		lo, hi := scoreRange(query)
		n, err := s.client.ZCount(ctx, s.key, lo, hi).Result()
		if err != nil {
			return 0, misslog.NewStorageError("redis", "count", err)
		}
		return n, nil
	}

	misses, err := s.load(ctx, query)
	if err != nil {
		return 0, err
	}
	return int64(len(misses)), nil
}

// DeleteOlderThan removes misses observed before cutoff.
func (s *RedisStorage) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	n, err := s.client.ZRemRangeByScore(ctx, s.key, "-inf", "("+strconv.FormatInt(cutoff.UnixMicro(), 10)).Result()
	if err != nil {
		return 0, misslog.NewStorageError("redis", "delete", err)
	}
	return n, nil
}

// DeleteOldest removes the n oldest misses.
func (s *RedisStorage) DeleteOldest(ctx context.Context, n int64) (int64, error) {
	if n <= 0 {
		return 0, nil
	}
	removed, err := s.client.ZRemRangeByRank(ctx, s.key, 0, n-1).Result()
	if err != nil {
		return 0, misslog.NewStorageError("redis", "delete_oldest", err)
	}
	return removed, nil
}

// Close closes the Redis client.
func (s *RedisStorage) Close() error {
	if err := s.client.Close(); err != nil {
		return misslog.NewStorageError("redis", "close", err)
	}
	return nil
}

// load fetches the misses in the query's time range and applies the
// remaining filters client side.
func (s *RedisStorage) load(ctx context.Context, query *misslog.Query) ([]*misslog.Miss, error) {
	lo, hi := scoreRange(query)
	members, err := s.client.ZRangeByScore(ctx, s.key, &redis.ZRangeBy{Min: lo, Max: hi}).Result()
	if err != nil {
		return nil, misslog.NewStorageError("redis", "query", err)
	}

	misses := make([]*misslog.Miss, 0, len(members))
	for _, member := range members {
		var m misslog.Miss
		if err := json.Unmarshal([]byte(member), &m); err != nil {
			s.logger.Warn("skipping undecodable miss", "error", err)
			continue
		}
		if query.Matches(&m) {
			misses = append(misses, &m)
		}
	}
	return misses, nil
}

func scoreRange(query *misslog.Query) (string, string) {
	lo, hi := "-inf", "+inf"
	if query == nil {
		return lo, hi
	}
	if query.Since != nil {
		lo = strconv.FormatInt(query.Since.UnixMicro(), 10)
	}
	if query.Until != nil {
		hi = strconv.FormatInt(query.Until.UnixMicro(), 10)
	}
	return lo, hi
}
