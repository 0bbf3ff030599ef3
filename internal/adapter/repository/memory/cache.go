// Package memory provides an in-process usecase.Cache for deployments
// without Redis.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/iho/tradeledger/internal/usecase"
)

type entry struct {
	value     []byte
	expiresAt time.Time
}

// Cache stores values in-memory with per-entry TTLs. A non-positive TTL
// never expires.
type Cache struct {
	mu    sync.RWMutex
	items map[string]entry
	now   func() time.Time
}

// NewCache constructs an empty Cache.
func NewCache() *Cache {
	return &Cache{items: make(map[string]entry), now: time.Now}
}

// Get returns ErrCacheMiss for absent or expired keys.
func (c *Cache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.RLock()
	e, ok := c.items[key]
	c.mu.RUnlock()
	if !ok {
		return nil, usecase.ErrCacheMiss
	}
	if !e.expiresAt.IsZero() && c.now().After(e.expiresAt) {
		c.mu.Lock()
		if cur, ok := c.items[key]; ok && cur.expiresAt.Equal(e.expiresAt) {
			delete(c.items, key)
		}
		c.mu.Unlock()
		return nil, usecase.ErrCacheMiss
	}
	return append([]byte(nil), e.value...), nil
}

func (c *Cache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = c.now().Add(ttl)
	}
	c.mu.Lock()
	c.items[key] = entry{value: append([]byte(nil), value...), expiresAt: expiresAt}
	c.mu.Unlock()
	return nil
}

func (c *Cache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
	return nil
}

// Len reports the number of stored entries, expired ones included.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
