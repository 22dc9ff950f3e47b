package flagstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Redis stores flags as keys under a prefix, so several clients can share a
// server while keeping separate flags. Keys never expire.
type Redis struct {
	rdb    *redis.Client
	prefix string
}

func NewRedis(rdb *redis.Client, prefix string) *Redis {
	return &Redis{rdb: rdb, prefix: prefix}
}

// DialRedis parses a redis:// URL and returns a store bound to it.
func DialRedis(redisURL, prefix string) (*Redis, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return NewRedis(redis.NewClient(opt), prefix), nil
}

func (s *Redis) key(key string) string {
	return s.prefix + key
}

func (s *Redis) Get(ctx context.Context, key string) (bool, error) {
	val, err := s.rdb.Get(ctx, s.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return val == "true", nil
}

func (s *Redis) Set(ctx context.Context, key string) error {
	if err := s.rdb.Set(ctx, s.key(key), "true", 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (s *Redis) Close() error {
	return s.rdb.Close()
}
