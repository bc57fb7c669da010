// Package querycache caches read results in Redis, keyed the way the
// dashboard keys its queries ("orders:<restaurant id>", "restaurant:<user id>").
package querycache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const keyPrefix = "query:"

type Cache struct {
	rdb   *redis.Client
	ttl   time.Duration
	log   *slog.Logger
	group singleflight.Group
	gen   atomic.Uint64 // bumped by every invalidation
}

func New(rdb *redis.Client, ttl time.Duration, log *slog.Logger) *Cache {
	return &Cache{rdb: rdb, ttl: ttl, log: log}
}

// Fetch returns the cached value under key or runs load, caches and returns its result.
// Concurrent fetches of one key share a single load. A load that raced an
// invalidation is returned to its callers but not written back.
func Fetch[T any](ctx context.Context, c *Cache, key string, load func(context.Context) (T, error)) (T, error) {
	var zero T
	full := keyPrefix + key

	raw, err := c.rdb.Get(ctx, full).Bytes()
	switch {
	case err == nil:
		var v T
		if jsonErr := json.Unmarshal(raw, &v); jsonErr == nil {
			return v, nil
		}
		c.log.Warn("discarding undecodable cache entry", "key", key)
	case err != redis.Nil:
		c.log.Warn("query cache read failed", "key", key, "error", err)
	}

	gen := c.gen.Load()
	v, err, _ := c.group.Do(full+"#"+strconv.FormatUint(gen, 10), func() (any, error) {
		loaded, err := load(ctx)
		if err != nil {
			return nil, err
		}
		if c.gen.Load() == gen {
			c.store(ctx, full, loaded)
		}
		return loaded, nil
	})
	if err != nil {
		return zero, err
	}
	return v.(T), nil
}

func (c *Cache) store(ctx context.Context, key string, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		c.log.Warn("query result not cacheable", "key", key, "error", err)
		return
	}
	if err := c.rdb.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		c.log.Warn("query cache write failed", "key", key, "error", err)
	}
}

// Invalidate drops every cached entry whose key starts with one of prefixes
func (c *Cache) Invalidate(ctx context.Context, prefixes ...string) error {
	c.gen.Add(1)
	for _, prefix := range prefixes {
		var keys []string
		iter := c.rdb.Scan(ctx, 0, keyPrefix+prefix+"*", 100).Iterator()
		for iter.Next(ctx) {
			keys = append(keys, iter.Val())
		}
		if err := iter.Err(); err != nil {
			return fmt.Errorf("scan %q: %w", prefix, err)
		}
		if len(keys) == 0 {
			continue
		}
		if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
			return fmt.Errorf("invalidate %q: %w", prefix, err)
		}
	}
	return nil
}

// Key joins parts with ':' to build a query key
func Key(parts ...string) string {
	return strings.Join(parts, ":")
}
