// Package cache is the shared Redis read-through cache for request
// collections and homepage content.
//
// Each collection carries a generation counter; entries are keyed by the
// current generation, so invalidating a collection is a single INCR and
// entries of older generations are never read again; they age out.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"barangay-portal/internal/common/config"
	"barangay-portal/internal/common/logger"
	"barangay-portal/internal/common/metrics"

	"github.com/redis/go-redis/v9"
)

var ErrCacheFailed = errors.New("CACHE_FAILED")

type Cache struct {
	rdb     redis.Cmdable
	prefix  string
	ttl     time.Duration
	enabled bool
	logger  logger.Logger
}

func New(rdb redis.Cmdable, cfg config.CacheConfig, log logger.Logger) *Cache {
	ttl := time.Duration(cfg.TTL) * time.Second
	if ttl <= 0 {
		ttl = time.Minute
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "portal"
	}
	return &Cache{
		rdb:     rdb,
		prefix:  prefix,
		ttl:     ttl,
		enabled: cfg.Enabled && rdb != nil,
		logger:  log.WithFields(map[string]interface{}{"component": "cache"}),
	}
}

func (c *Cache) Enabled() bool { return c.enabled }

func (c *Cache) genKey(collection string) string {
	return fmt.Sprintf("%s:gen:%s", c.prefix, collection)
}

func (c *Cache) entryKey(ctx context.Context, collection, variant string) (string, error) {
	gen, err := c.rdb.Get(ctx, c.genKey(collection)).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", fmt.Errorf("%w: read generation: %v", ErrCacheFailed, err)
	}
	return fmt.Sprintf("%s:%s:%d:%s", c.prefix, collection, gen, variant), nil
}

// Get decodes a cached entry into dest and reports whether it was a hit.
func (c *Cache) Get(ctx context.Context, collection, variant string, dest interface{}) (bool, error) {
	if !c.enabled {
		return false, nil
	}
	key, err := c.entryKey(ctx, collection, variant)
	if err != nil {
		return false, err
	}
	return c.get(ctx, key, dest)
}

func (c *Cache) get(ctx context.Context, key string, dest interface{}) (bool, error) {
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.CacheLookups.WithLabelValues("miss").Inc()
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: get %s: %v", ErrCacheFailed, key, err)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		metrics.CacheLookups.WithLabelValues("corrupt").Inc()
		return false, nil
	}
	metrics.CacheLookups.WithLabelValues("hit").Inc()
	return true, nil
}

func (c *Cache) Set(ctx context.Context, collection, variant string, value interface{}) error {
	if !c.enabled {
		return nil
	}
	key, err := c.entryKey(ctx, collection, variant)
	if err != nil {
		return err
	}
	return c.set(ctx, key, value)
}

func (c *Cache) set(ctx context.Context, key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%w: encode %s: %v", ErrCacheFailed, key, err)
	}
	if err := c.rdb.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("%w: set %s: %v", ErrCacheFailed, key, err)
	}
	return nil
}

// Invalidate bumps the generation of every named collection.
func (c *Cache) Invalidate(ctx context.Context, collections ...string) error {
	if !c.enabled {
		return nil
	}
	for _, col := range collections {
		if err := c.rdb.Incr(ctx, c.genKey(col)).Err(); err != nil {
			return fmt.Errorf("%w: invalidate %s: %v", ErrCacheFailed, col, err)
		}
	}
	return nil
}

// Load is a read-through helper: cache errors are logged and the loader
// result is served. The generation is read once, so a value loaded before
// an Invalidate is written under the old generation and never served
// after it.
func Load[T any](ctx context.Context, c *Cache, collection, variant string, load func(context.Context) (T, error)) (T, error) {
	if !c.enabled {
		return load(ctx)
	}
	key, err := c.entryKey(ctx, collection, variant)
	if err != nil {
		c.logger.Warn("cache read failed", map[string]interface{}{"collection": collection, "error": err})
		return load(ctx)
	}

	var cached T
	hit, err := c.get(ctx, key, &cached)
	if err != nil {
		c.logger.Warn("cache read failed", map[string]interface{}{"collection": collection, "error": err})
	}
	if hit {
		return cached, nil
	}

	v, err := load(ctx)
	if err != nil {
		return v, err
	}
	if err := c.set(ctx, key, v); err != nil {
		c.logger.Warn("cache write failed", map[string]interface{}{"collection": collection, "error": err})
	}
	return v, nil
}
