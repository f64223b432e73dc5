// Package cache wraps Redis behind a handle that is allowed to be absent.
// Every method degrades to a miss or a no-op when Redis is unconfigured or
// unreachable; callers never fail a request because of the cache.
package cache

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// TTLs per key kind.
const (
	ProductTTL = time.Hour
	SearchTTL  = 30 * time.Minute
	SessionTTL = 24 * time.Hour
)

// Cache is a nil-safe Redis wrapper. The zero handle (rdb == nil) is the
// explicit "unavailable" state.
type Cache struct {
	rdb *redis.Client
	log *zap.Logger
}

// New connects to Redis at redisURL. An empty URL, a bad URL, or an
// unreachable server all yield a disabled cache, logged once.
func New(redisURL string, log *zap.Logger) *Cache {
	c := &Cache{log: log}
	if redisURL == "" {
		log.Warn("REDIS_URL not set, cache disabled")
		return c
	}
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Warn("invalid REDIS_URL, cache disabled", zap.Error(err))
		return c
	}
	rdb := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn("redis unreachable, cache disabled", zap.Error(err))
		_ = rdb.Close()
		return c
	}
	c.rdb = rdb
	log.Info("redis connected")
	return c
}

// NewDisabled returns a cache permanently in the unavailable state.
func NewDisabled(log *zap.Logger) *Cache { return &Cache{log: log} }

// Available reports whether Redis is connected.
func (c *Cache) Available() bool { return c != nil && c.rdb != nil }

// Close releases the connection if one exists.
func (c *Cache) Close() error {
	if !c.Available() {
		return nil
	}
	return c.rdb.Close()
}

// Get returns the raw value for key, or ok=false on miss, error, or when
// the cache is unavailable.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool) {
	if !c.Available() {
		return nil, false
	}
	b, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	return b, true
}

// Set stores value under key with the given TTL; failures are logged only.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if !c.Available() {
		return
	}
	if err := c.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		c.log.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
}

// Delete removes keys; failures are logged only.
func (c *Cache) Delete(ctx context.Context, keys ...string) {
	if !c.Available() || len(keys) == 0 {
		return
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		c.log.Warn("cache delete failed", zap.Strings("keys", keys), zap.Error(err))
	}
}

// DeletePattern removes every key matching the glob pattern.
func (c *Cache) DeletePattern(ctx context.Context, pattern string) {
	if !c.Available() {
		return
	}
	iter := c.rdb.Scan(ctx, 0, pattern, 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		c.log.Warn("cache scan failed", zap.String("pattern", pattern), zap.Error(err))
		return
	}
	c.Delete(ctx, keys...)
}

// Key helpers; the namespace mirrors what other services already depend on.

func ProductKey(productID string) string { return "product:" + productID }

func SessionKey(sessionID string) string { return "session:" + sessionID }

func UserPattern(userID string) string { return "user:" + userID + ":*" }

// SearchKey normalizes query parameters into a deterministic cache key so
// that the same search always hits the same entry regardless of parameter
// order.
func SearchKey(params url.Values) string {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)
	var b strings.Builder
	b.WriteString("search:")
	for i, name := range names {
		vals := append([]string(nil), params[name]...)
		sort.Strings(vals)
		if i > 0 {
			b.WriteByte('&')
		}
		fmt.Fprintf(&b, "%s=%s", name, strings.Join(vals, ","))
	}
	return b.String()
}
