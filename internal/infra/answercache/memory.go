package answercache

import (
	"context"
	"sync"
	"time"

	"github.com/yanqian/answered-once/internal/domain/answer"
)

type cachedAnswer struct {
	text      string
	expiresAt time.Time
}

// MemoryCache is an in-memory answer.Cache for tests and single-node dev.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]cachedAnswer
}

// NewMemoryCache constructs an empty cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]cachedAnswer)}
}

// Get implements answer.Cache.
func (c *MemoryCache) Get(_ context.Context, key string) (string, bool, error) {
	if key == "" {
		return "", false, nil
	}
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return "", false, nil
	}
	if !entry.expiresAt.IsZero() && entry.expiresAt.Before(time.Now()) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return "", false, nil
	}
	return entry.text, true, nil
}

// Set implements answer.Cache.
func (c *MemoryCache) Set(_ context.Context, key, text string, ttl time.Duration) error {
	if key == "" || text == "" {
		return nil
	}
	expiry := time.Time{}
	if ttl > 0 {
		expiry = time.Now().Add(ttl)
	}
	c.mu.Lock()
	c.entries[key] = cachedAnswer{text: text, expiresAt: expiry}
	c.mu.Unlock()
	return nil
}

var _ answer.Cache = (*MemoryCache)(nil)
