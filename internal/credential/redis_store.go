package credential

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	DefaultRedisKey = "session:token"
	// Sama dengan umur cookie sesi: 7 hari.
	DefaultRedisTTL = 7 * 24 * time.Hour
)

type redisStore struct {
	rdb *redis.Client
	key string
	ttl time.Duration
}

// NewRedisStore menyimpan token di Redis. key/ttl kosong memakai default.
func NewRedisStore(rdb *redis.Client, key string, ttl time.Duration) Provider {
	if key == "" {
		key = DefaultRedisKey
	}
	if ttl <= 0 {
		ttl = DefaultRedisTTL
	}
	return &redisStore{rdb: rdb, key: key, ttl: ttl}
}

func (s *redisStore) Get(ctx context.Context) (string, error) {
	val, err := s.rdb.Get(ctx, s.key).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("gagal membaca token dari redis: %w", err)
	}
	return val, nil
}

func (s *redisStore) Set(ctx context.Context, token string) error {
	if err := s.rdb.Set(ctx, s.key, token, s.ttl).Err(); err != nil {
		return fmt.Errorf("gagal menyimpan token ke redis: %w", err)
	}
	return nil
}

func (s *redisStore) Clear(ctx context.Context) error {
	return s.rdb.Del(ctx, s.key).Err()
}
