package redisad

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"review_pulse/internal/adapters/observability"
)

type Cache struct{ c *redis.Client }

func New(addr, pass string, db int) *Cache {
	return &Cache{c: redis.NewClient(&redis.Options{Addr: addr, Password: pass, DB: db})}
}

// Ping checks connectivity once at startup.
func (r *Cache) Ping(ctx context.Context) error {
	return r.c.Ping(ctx).Err()
}

func (r *Cache) Close() error { return r.c.Close() }

func (r *Cache) Get(ctx context.Context, key string, dst any) (bool, error) {
	v, err := r.c.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		observability.ObserveCache("redis", "miss")
		return false, nil
	}
	if err != nil {
		observability.ObserveCache("redis", "error")
		return false, err
	}
	if err := json.Unmarshal(v, dst); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	observability.ObserveCache("redis", "hit")
	return true, nil
}

func (r *Cache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	observability.ObserveCache("redis", "set")
	return r.c.Set(ctx, key, b, time.Duration(ttlSec)*time.Second).Err()
}

// DelPrefix sweeps prefix* with SCAN and deletes matches in pages, so a large
// keyspace never blocks the server the way KEYS would.
func (r *Cache) DelPrefix(ctx context.Context, prefix string) error {
	var cursor uint64
	for {
		keys, next, err := r.c.Scan(ctx, cursor, prefix+"*", 200).Result()
		if err != nil {
			observability.ObserveCache("redis", "error")
			return fmt.Errorf("scan %s*: %w", prefix, err)
		}
		if len(keys) > 0 {
			if err := r.c.Del(ctx, keys...).Err(); err != nil {
				observability.ObserveCache("redis", "error")
				return fmt.Errorf("del %s*: %w", prefix, err)
			}
			observability.ObserveCache("redis", "del")
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

// Nop is used when no REDIS_ADDR is configured: every Get misses.
type Nop struct{}

func (Nop) Get(context.Context, string, any) (bool, error) {
	observability.ObserveCache("nop", "miss")
	return false, nil
}
func (Nop) Set(context.Context, string, any, int) error { return nil }
func (Nop) DelPrefix(context.Context, string) error { return nil }
