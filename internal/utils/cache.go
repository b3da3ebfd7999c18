package utils

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Cache stores encoded values with a TTL. Misses and expired entries both
// report ok == false.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// CacheItem 包装缓存数据和过期时间
type CacheItem struct {
	Data      []byte
	ExpiresAt time.Time
}

// LocalCache is an in-process LRU with per-entry expiry.
type LocalCache struct {
	lruCache *lru.Cache[string, CacheItem]
}

func NewLocalCache(size int) (*LocalCache, error) {
	l, err := lru.New[string, CacheItem](size)
	if err != nil {
		return nil, err
	}
	return &LocalCache{lruCache: l}, nil
}

func (c *LocalCache) Set(_ context.Context, key string, data []byte, ttl time.Duration) error {
	c.lruCache.Add(key, CacheItem{
		Data:      data,
		ExpiresAt: time.Now().Add(ttl),
	})
	return nil
}

func (c *LocalCache) Get(_ context.Context, key string) ([]byte, bool) {
	val, ok := c.lruCache.Get(key)
	if !ok {
		return nil, false
	}

	// 检查过期
	if time.Now().After(val.ExpiresAt) {
		c.lruCache.Remove(key)
		return nil, false
	}

	return val.Data, true
}

func (c *LocalCache) Delete(_ context.Context, key string) error {
	c.lruCache.Remove(key)
	return nil
}
