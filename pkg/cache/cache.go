package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	// defaultOperationTimeout is the timeout for individual Redis operations
	defaultOperationTimeout = 5 * time.Second
)

var (
	ErrCacheDisabled = errors.New("cache disabled")
	ErrCacheMiss     = errors.New("key not found")
)

// Cache stores JSON values in Redis, or in process memory when Redis is off.
// A disabled cache accepts writes and misses every read.
type Cache struct {
	client  *redis.Client
	memory  *memoryStore
	enabled bool
}

func NewCache(addr string, enable bool) (*Cache, error) {
	if !enable {
		return &Cache{enabled: false}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Cache{
		client:  client,
		enabled: true,
	}, nil
}

// NewMemoryCache returns an enabled cache backed by a process-local map.
func NewMemoryCache() *Cache {
	return &Cache{memory: newMemoryStore(), enabled: true}
}

// Client exposes the Redis connection so other stores can share it. It is
// nil for memory and disabled caches.
func (c *Cache) Client() *redis.Client {
	return c.client
}

func (c *Cache) Enabled() bool {
	return c.enabled
}

// operationContext creates a context with timeout for Redis operations
func (c *Cache) operationContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), defaultOperationTimeout)
}

func (c *Cache) Set(key string, value interface{}, expiration time.Duration) error {
	if !c.enabled {
		return nil
	}

	jsonData, err := json.Marshal(value)
	if err != nil {
		return err
	}

	if c.memory != nil {
		c.memory.set(key, jsonData, expiration)
		return nil
	}

	ctx, cancel := c.operationContext()
	defer cancel()

	return c.client.Set(ctx, key, jsonData, expiration).Err()
}

func (c *Cache) Get(key string, dest interface{}) error {
	if !c.enabled {
		return ErrCacheDisabled
	}

	var data []byte
	if c.memory != nil {
		var ok bool
		if data, ok = c.memory.get(key); !ok {
			return ErrCacheMiss
		}
	} else {
		ctx, cancel := c.operationContext()
		defer cancel()

		val, err := c.client.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrCacheMiss
		} else if err != nil {
			return err
		}
		data = val
	}

	return json.Unmarshal(data, dest)
}

func (c *Cache) Delete(key string) error {
	if !c.enabled {
		return nil
	}

	if c.memory != nil {
		c.memory.delete(key)
		return nil
	}

	ctx, cancel := c.operationContext()
	defer cancel()

	return c.client.Del(ctx, key).Err()
}

func (c *Cache) DeletePattern(pattern string) error {
	if !c.enabled {
		return nil
	}

	if c.memory != nil {
		return c.memory.deletePattern(pattern)
	}

	ctx, cancel := c.operationContext()
	defer cancel()

	iter := c.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

func (c *Cache) Close() error {
	if !c.enabled || c.client == nil {
		return nil
	}
	return c.client.Close()
}

func pageKey(slug string) string {
	return "page:" + slug
}

// CachePage stores the unboxed sections of a public page.
func (c *Cache) CachePage(slug string, sections interface{}, ttl time.Duration) error {
	return c.Set(pageKey(slug), sections, ttl)
}

func (c *Cache) GetCachedPage(slug string, dest interface{}) error {
	return c.Get(pageKey(slug), dest)
}

func (c *Cache) InvalidatePage(slug string) error {
	return c.Delete(pageKey(slug))
}

func (c *Cache) InvalidatePagesCache() error {
	return c.DeletePattern("page:*")
}

func (c *Cache) CachePosts(cacheKey string, posts interface{}, ttl time.Duration) error {
	return c.Set("posts:"+cacheKey, posts, ttl)
}

func (c *Cache) GetCachedPosts(cacheKey string, dest interface{}) error {
	return c.Get("posts:"+cacheKey, dest)
}
