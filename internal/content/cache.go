package content

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const keyPrefix = "bookmaker:content:"

// LookupTimeout bounds a shared source call once it no longer belongs to any
// single caller
const LookupTimeout = 2 * time.Minute

// Cache stores generated chapter text
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// MemoryCache is an in-process Cache
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	value   string
	expires time.Time
}

// NewMemoryCache creates an empty in-process cache
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]memoryEntry), now: time.Now}
}

// Get returns a live entry. Expired entries are dropped on read.
func (m *MemoryCache) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return "", false, nil
	}
	if !e.expires.IsZero() && !m.now().Before(e.expires) {
		delete(m.entries, key)
		return "", false, nil
	}
	return e.value, true, nil
}

// Set stores value. A zero ttl never expires.
func (m *MemoryCache) Set(_ context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := memoryEntry{value: value}
	if ttl > 0 {
		e.expires = m.now().Add(ttl)
	}
	m.entries[key] = e
	return nil
}

// RedisCache stores entries in redis
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache connects to redis at addr and checks the connection
func NewRedisCache(ctx context.Context, addr string) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return &RedisCache{client: client}, nil
}

// Get returns the cached value, ok is false on a miss
func (r *RedisCache) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

// Set stores value with an expiration
func (r *RedisCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

// Close closes the redis connection
func (r *RedisCache) Close() error {
	return r.client.Close()
}

// CachedSource serves repeated topics from a Cache. Concurrent lookups of the
// same topic share one call to the wrapped source.
type CachedSource struct {
	src       Source
	cache     Cache
	ttl       time.Duration
	namespace string
	logger    *zap.Logger
	group     singleflight.Group
}

// NewCachedSource wraps src. namespace separates entries of different models.
func NewCachedSource(src Source, cache Cache, ttl time.Duration, namespace string, logger *zap.Logger) *CachedSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedSource{src: src, cache: cache, ttl: ttl, namespace: namespace, logger: logger}
}

// Key returns the cache key for a topic
func (c *CachedSource) Key(topic string) string {
	sum := sha256.Sum256([]byte(c.namespace + "|" + topic))
	return keyPrefix + hex.EncodeToString(sum[:])
}

// Generate returns cached text or asks the wrapped source. Cache failures are
// logged and otherwise ignored; source errors are never cached.
func (c *CachedSource) Generate(ctx context.Context, topic string) (string, error) {
	key := c.Key(topic)

	if val, ok, err := c.cache.Get(ctx, key); err != nil {
		c.logger.Warn("content cache read failed", zap.String("topic", topic), zap.Error(err))
	} else if ok {
		c.logger.Debug("content cache hit", zap.String("topic", topic))
		return val, nil
	}

	// The shared call outlives the caller that started it.
	ch := c.group.DoChan(key, func() (interface{}, error) {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), LookupTimeout)
		defer cancel()

		text, err := c.src.Generate(sctx, topic)
		if err != nil {
			return "", err
		}
		if err := c.cache.Set(sctx, key, text, c.ttl); err != nil {
			c.logger.Warn("content cache write failed", zap.String("topic", topic), zap.Error(err))
		}
		return text, nil
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}
