package cache

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	value     []byte
	storedAt  time.Time
	expiresAt time.Time
}

// MemoryCache is a concurrency-safe in-memory Cache with TTL expiry and an
// optional cap on the number of entries.
type MemoryCache struct {
	mu sync.RWMutex

	// key: request key, value: cached body
	data map[string]entry

	// retention configuration
	maxEntries int // 0 = unlimited

	now func() time.Time
}

// NewMemoryCache creates a MemoryCache. If maxEntries is <= 0, it is treated
// as unlimited.
func NewMemoryCache(maxEntries int) *MemoryCache {
	return &MemoryCache{
		data:       make(map[string]entry),
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// Get returns the cached value for key if it has not expired.
func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.data[key]
	if !ok || !c.now().Before(e.expiresAt) {
		return nil, false, nil
	}
	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, true, nil
}

// Set stores value under key for ttl and enforces the entry cap.
func (c *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}

	stored := make([]byte, len(value))
	copy(stored, value)

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.data[key] = entry{value: stored, storedAt: now, expiresAt: now.Add(ttl)}

	// Enforce retention by count: drop expired entries first, then the oldest.
	if c.maxEntries > 0 && len(c.data) > c.maxEntries {
		c.purgeLocked(now)
		for len(c.data) > c.maxEntries {
			var oldestKey string
			var oldest time.Time
			for k, e := range c.data {
				if oldestKey == "" || e.storedAt.Before(oldest) {
					oldestKey, oldest = k, e.storedAt
				}
			}
			delete(c.data, oldestKey)
		}
	}
	return nil
}

// Purge removes expired entries and returns how many were dropped.
func (c *MemoryCache) Purge() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.purgeLocked(c.now())
}

func (c *MemoryCache) purgeLocked(now time.Time) int {
	removed := 0
	for k, e := range c.data {
		if !now.Before(e.expiresAt) {
			delete(c.data, k)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored entries, expired ones included.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}
