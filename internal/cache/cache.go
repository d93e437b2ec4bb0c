package cache

import (
	"context"
	"sync"
	"time"

	"github.com/breathesafe/air-quality-service/internal/models"
)

// Cache defines the interface for dashboard reading-series caching.
// Get returns cached data if present and not expired, Set stores data with TTL.
// Both are best-effort from the caller's perspective: errors degrade to a
// cache miss, never a failed request.
type Cache interface {
	Get(ctx context.Context, key string) (models.ReadingsInfo, bool, error)
	Set(ctx context.Context, key string, value models.ReadingsInfo, ttl time.Duration) error
}

// InMemoryCache implements Cache using an in-memory map with TTL-based
// expiration. Expired entries are removed on access.
type InMemoryCache struct {
	mu   sync.Mutex
	data map[string]cacheEntry
}

type cacheEntry struct {
	value     models.ReadingsInfo
	expiresAt time.Time
}

// NewInMemoryCache creates a new in-memory cache instance.
func NewInMemoryCache() *InMemoryCache {
	return &InMemoryCache{
		data: make(map[string]cacheEntry),
	}
}

// Get retrieves the cached series for the key if present and not expired.
// Returns (data, true, nil) on hit, (zero, false, nil) on miss or expiry.
func (c *InMemoryCache) Get(ctx context.Context, key string) (models.ReadingsInfo, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.data[key]
	if !ok {
		return models.ReadingsInfo{}, false, nil
	}
	if time.Now().After(entry.expiresAt) {
		delete(c.data, key)
		return models.ReadingsInfo{}, false, nil
	}
	return entry.value, true, nil
}

// Set stores the series with the specified TTL. The entry expires after TTL
// elapses and is removed on next Get access.
func (c *InMemoryCache) Set(ctx context.Context, key string, value models.ReadingsInfo, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = cacheEntry{
		value:     value,
		expiresAt: time.Now().Add(ttl),
	}
	return nil
}
