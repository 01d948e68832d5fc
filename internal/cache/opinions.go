// Package cache holds redis-backed caches shared across scans.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/garindean/edgescout/internal/judge"
)

// OpinionCache stores judge opinions keyed by candidate content hash so
// repeated scans of a quiet market skip the LLM call. Nil-safe: a nil cache
// behaves as a permanent miss.
type OpinionCache interface {
	Get(ctx context.Context, key string) (judge.Opinion, bool, error)
	Set(ctx context.Context, key string, opinion judge.Opinion) error
	Close() error
}

type redisOpinionCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedisOpinionCache builds a cache keyed by candidate content hash.
func NewRedisOpinionCache(addr, password string, db int, ttl time.Duration, prefix string) (OpinionCache, error) {
	if addr == "" {
		return nil, fmt.Errorf("redis addr is required")
	}
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	if prefix == "" {
		prefix = "judge_opinion"
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &redisOpinionCache{client: client, ttl: ttl, prefix: prefix}, nil
}

func (c *redisOpinionCache) key(k string) string {
	return fmt.Sprintf("%s:%s", c.prefix, k)
}

func (c *redisOpinionCache) Get(ctx context.Context, key string) (judge.Opinion, bool, error) {
	if c == nil || c.client == nil {
		return judge.Opinion{}, false, nil
	}
	raw, err := c.client.Get(ctx, c.key(key)).Bytes()
	if err == redis.Nil {
		return judge.Opinion{}, false, nil
	}
	if err != nil {
		return judge.Opinion{}, false, err
	}
	var op judge.Opinion
	if err := json.Unmarshal(raw, &op); err != nil {
		return judge.Opinion{}, false, err
	}
	return op, true, nil
}

func (c *redisOpinionCache) Set(ctx context.Context, key string, opinion judge.Opinion) error {
	if c == nil || c.client == nil {
		return nil
	}
	raw, err := json.Marshal(opinion)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(key), raw, c.ttl).Err()
}

func (c *redisOpinionCache) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}
