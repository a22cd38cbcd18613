package enrichment

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Cache stores successful provider results keyed by provider and request.
type Cache interface {
	Get(ctx context.Context, key string) (*Result, bool)
	Set(ctx context.Context, key string, result *Result)
	Stats() CacheStats
	Close() error
}

// CacheStats reports cache effectiveness
type CacheStats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Size   int   `json:"size"`
}

func cacheKey(provider string, req Request) string {
	return provider + ":" + req.CacheKey()
}

type cacheEntry struct {
	result   *Result
	storedAt time.Time
}

// MemoryCache is an in-process TTL cache. A background goroutine evicts
// expired entries until Close is called.
type MemoryCache struct {
	ttl    time.Duration
	mu     sync.RWMutex
	data   map[string]cacheEntry
	hits   atomic.Int64
	misses atomic.Int64
	now    func() time.Time

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewMemoryCache starts the cleanup loop when cleanupInterval > 0.
func NewMemoryCache(ttl, cleanupInterval time.Duration) *MemoryCache {
	c := &MemoryCache{
		ttl:  ttl,
		data: make(map[string]cacheEntry),
		now:  time.Now,
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	if cleanupInterval > 0 {
		go c.cleanupLoop(cleanupInterval)
	} else {
		close(c.done)
	}
	return c
}

func (c *MemoryCache) expired(e cacheEntry) bool {
	return c.ttl > 0 && c.now().Sub(e.storedAt) > c.ttl
}

func (c *MemoryCache) Get(_ context.Context, key string) (*Result, bool) {
	c.mu.RLock()
	e, ok := c.data[key]
	c.mu.RUnlock()

	if !ok || c.expired(e) {
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return e.result, true
}

func (c *MemoryCache) Set(_ context.Context, key string, result *Result) {
	c.mu.Lock()
	c.data[key] = cacheEntry{result: result, storedAt: c.now()}
	c.mu.Unlock()
}

func (c *MemoryCache) Stats() CacheStats {
	c.mu.RLock()
	size := len(c.data)
	c.mu.RUnlock()
	return CacheStats{Hits: c.hits.Load(), Misses: c.misses.Load(), Size: size}
}

// Cleanup drops expired entries and returns how many were removed.
func (c *MemoryCache) Cleanup() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for k, e := range c.data {
		if c.expired(e) {
			delete(c.data, k)
			removed++
		}
	}
	return removed
}

func (c *MemoryCache) cleanupLoop(interval time.Duration) {
	defer close(c.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.Cleanup()
		case <-c.stop:
			return
		}
	}
}

// Close stops the cleanup goroutine and waits for it to exit.
func (c *MemoryCache) Close() error {
	c.closeOnce.Do(func() { close(c.stop) })
	<-c.done
	return nil
}
