// Package cache stores finished summaries so repeated feed items do not cost
// another completion call.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/deusflow/newsbrief/internal/translate"
)

// Key identifies a summary by target language and source text.
func Key(lang translate.Language, title, body string) string {
	h := sha256.New()
	h.Write([]byte(string(lang) + "|" + title + "|" + body))
	return hex.EncodeToString(h.Sum(nil))
}

type entry struct {
	result    translate.Result
	expiresAt time.Time
}

// MemoryCache is an in-process TTL cache. Expired entries are dropped on read
// and by Cleanup.
type MemoryCache struct {
	mu    sync.RWMutex
	items map[string]entry
	ttl   time.Duration
	now   func() time.Time
}

func NewMemory(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		items: make(map[string]entry),
		ttl:   ttl,
		now:   time.Now,
	}
}

func (c *MemoryCache) Get(_ context.Context, key string) (translate.Result, bool, error) {
	c.mu.RLock()
	item, ok := c.items[key]
	c.mu.RUnlock()
	if !ok {
		return translate.Result{}, false, nil
	}

	if c.now().After(item.expiresAt) {
		c.mu.Lock()
		// Another writer may have refreshed the entry meanwhile.
		if cur, ok := c.items[key]; ok && c.now().After(cur.expiresAt) {
			delete(c.items, key)
		}
		c.mu.Unlock()
		return translate.Result{}, false, nil
	}
	return item.result, true, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, result translate.Result) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = entry{result: result, expiresAt: c.now().Add(c.ttl)}
	return nil
}

// Cleanup removes expired entries and returns how many were removed.
func (c *MemoryCache) Cleanup() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for key, item := range c.items {
		if now.After(item.expiresAt) {
			delete(c.items, key)
			removed++
		}
	}
	return removed
}

func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Run calls Cleanup every interval until ctx is done.
func (c *MemoryCache) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Cleanup()
		}
	}
}
