package lookup

import (
	"sync"
	"time"

	"github.com/kr1s57/vigilancex-lookup/internal/entity"
)

// Cache provides in-memory TTL caching of envelopes.
// Expiry is only checked on read: an expired entry is reported absent but stays
// in the map until the same key is written again or the cache is cleared.
type Cache struct {
	data   map[string]*cacheEntry
	ttl    time.Duration
	now    func() time.Time
	mu     sync.RWMutex
	hits   int64
	misses int64
}

type cacheEntry struct {
	envelope *entity.Envelope
	storedAt time.Time
}

// NewCache creates a cache with a fixed TTL
func NewCache(ttl time.Duration, now func() time.Time) *Cache {
	if now == nil {
		now = time.Now
	}
	return &Cache{
		data: make(map[string]*cacheEntry),
		ttl:  ttl,
		now:  now,
	}
}

// Get returns the envelope stored for key if it is younger than the TTL
func (c *Cache) Get(key string) (*entity.Envelope, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.data[key]
	if !exists || c.now().Sub(entry.storedAt) >= c.ttl {
		c.misses++
		return nil, false
	}

	c.hits++
	return entry.envelope, true
}

// peek is Get without touching the hit/miss counters
func (c *Cache) peek(key string) (*entity.Envelope, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.data[key]
	if !exists || c.now().Sub(entry.storedAt) >= c.ttl {
		return nil, false
	}
	return entry.envelope, true
}

// Put stores an envelope, replacing any previous entry for key
func (c *Cache) Put(key string, envelope *entity.Envelope) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.data[key] = &cacheEntry{
		envelope: envelope,
		storedAt: c.now(),
	}
}

// Clear removes all entries and resets counters
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.data = make(map[string]*cacheEntry)
	c.hits = 0
	c.misses = 0
}

// Len returns the number of stored entries, expired ones included
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}

// Counters returns hit and miss counts
func (c *Cache) Counters() (hits, misses int64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses
}

// TTL returns the configured time-to-live
func (c *Cache) TTL() time.Duration {
	return c.ttl
}
