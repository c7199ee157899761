package llm

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"
	"time"
)

// cacheEntry is a cached completion with its insertion time.
type cacheEntry struct {
	text    string
	created time.Time
}

// responseCache is a bounded in-memory TTL cache for completions.
type responseCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	ttl     time.Duration
	maxSize int
}

func newResponseCache(ttl time.Duration, maxSize int) *responseCache {
	return &responseCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		maxSize: maxSize,
	}
}

// key derives a stable cache key from the prompt and sampling temperature.
func (c *responseCache) key(prompt string, temperature float64) string {
	sum := md5.Sum([]byte(fmt.Sprintf("%s|%.3f", prompt, temperature)))
	return hex.EncodeToString(sum[:])
}

// get returns the cached text for key if present and not expired.
func (c *responseCache) get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return "", false
	}
	if time.Since(entry.created) > c.ttl {
		delete(c.entries, key)
		return "", false
	}
	return entry.text, true
}

// put stores text under key, evicting the oldest tenth of entries when full.
func (c *responseCache) put(key, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = cacheEntry{text: text, created: time.Now()}

	if len(c.entries) <= c.maxSize {
		return
	}

	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return c.entries[keys[i]].created.Before(c.entries[keys[j]].created)
	})

	evict := c.maxSize / 10
	if evict < 1 {
		evict = 1
	}
	for _, k := range keys[:evict] {
		delete(c.entries, k)
	}
}

// size returns the number of cached entries.
func (c *responseCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
