package cache

import (
	"net/url"
	"strings"
	"sync"
	"time"
)

// Entry is a single cached query result.
type Entry struct {
	Key      string
	Value    any
	StoredAt time.Time
}

// Cache is the process-wide key/value store used by the query client.
// A zero TTL disables expiry on read; staleness is then handled by whoever
// calls Clear or InvalidatePrefix.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]Entry
	ttl     time.Duration
	now     func() time.Time
}

func New(ttl time.Duration) *Cache {
	return &Cache{
		entries: make(map[string]Entry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Key builds the cache key for an endpoint and its parameters. Encode sorts by
// parameter name, so identical logical queries always collide.
func Key(endpoint string, params url.Values) string {
	if len(params) == 0 {
		return endpoint
	}
	return endpoint + "?" + params.Encode()
}

func (c *Cache) Get(key string) (any, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if c.ttl > 0 && c.now().Sub(e.StoredAt) >= c.ttl {
		c.mu.Lock()
		// re-check: a concurrent Set may have refreshed the entry
		if cur, still := c.entries[key]; still && cur.StoredAt.Equal(e.StoredAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, false
	}
	return e.Value, true
}

func (c *Cache) Set(key string, value any) {
	c.mu.Lock()
	c.entries[key] = Entry{Key: key, Value: value, StoredAt: c.now()}
	c.mu.Unlock()
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]Entry)
	c.mu.Unlock()
}

// InvalidatePrefix drops the entries whose key starts with prefix and returns
// how many were removed.
func (c *Cache) InvalidatePrefix(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
			n++
		}
	}
	return n
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Snapshot returns a copy of the current entries, mainly for diagnostics.
func (c *Cache) Snapshot() []Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Entry, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, e)
	}
	return out
}
