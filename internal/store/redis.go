package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"zantgate/internal/models"
)

// Key prefixes keep the three state kinds apart in a shared database.
const (
	windowPrefix  = "zg:win:"
	counterPrefix = "zg:cnt:"
	banPrefix     = "zg:ban:"
)

// RedisStore implements Store on a shared Redis instance, letting multiple
// gateway processes in front of the same hosting application share rate
// windows and bans. Windows are sorted sets scored by unix-nano timestamps;
// counters and bans use plain keys with TTLs.
type RedisStore struct {
	client *redis.Client
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore connects to Redis and verifies reachability.
func NewRedisStore(cfg models.RedisConfig) (*RedisStore, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis address is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &RedisStore{client: client}, nil
}

func (s *RedisStore) WindowCount(ctx context.Context, key string, cutoff time.Time) (int, error) {
	k := windowPrefix + key
	pipe := s.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, k, "0", strconv.FormatInt(cutoff.UnixNano(), 10))
	card := pipe.ZCard(ctx, k)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("window count: %w", err)
	}
	return int(card.Val()), nil
}

func (s *RedisStore) WindowAdd(ctx context.Context, key string, at time.Time, ttl time.Duration) error {
	k := windowPrefix + key
	pipe := s.client.TxPipeline()
	pipe.ZAdd(ctx, k, redis.Z{
		Score:  float64(at.UnixNano()),
		Member: strconv.FormatInt(at.UnixNano(), 10),
	})
	pipe.Expire(ctx, k, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("window add: %w", err)
	}
	return nil
}

func (s *RedisStore) CounterIncr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	k := counterPrefix + key
	pipe := s.client.TxPipeline()
	counter := pipe.Incr(ctx, k)
	pipe.Expire(ctx, k, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("counter incr: %w", err)
	}
	return counter.Val(), nil
}

func (s *RedisStore) CounterReset(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, counterPrefix+key).Err(); err != nil {
		return fmt.Errorf("counter reset: %w", err)
	}
	return nil
}

func (s *RedisStore) BanGet(ctx context.Context, key string) (*BanRecord, error) {
	data, err := s.client.Get(ctx, banPrefix+key).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ban get: %w", err)
	}

	var rec BanRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("ban decode: %w", err)
	}
	// The key TTL normally expires the record; guard against clock drift.
	if rec.Expired(time.Now()) {
		_ = s.client.Del(ctx, banPrefix+key).Err()
		return nil, ErrNotFound
	}
	return &rec, nil
}

func (s *RedisStore) BanSet(ctx context.Context, key string, rec BanRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("ban encode: %w", err)
	}

	ttl := time.Until(rec.Until)
	if ttl <= 0 {
		return s.BanDelete(ctx, key)
	}
	if err := s.client.Set(ctx, banPrefix+key, data, ttl).Err(); err != nil {
		return fmt.Errorf("ban set: %w", err)
	}
	return nil
}

func (s *RedisStore) BanDelete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, banPrefix+key).Err(); err != nil {
		return fmt.Errorf("ban delete: %w", err)
	}
	return nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
