package lookup

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kr1s57/vigilancex-lookup/internal/entity"
)

func TestCacheExpiry(t *testing.T) {
	clock := newFakeClock()
	cache := NewCache(time.Hour, clock.Now)
	env := &entity.Envelope{ID: "e1"}

	cache.Put("k", env)

	got, found := cache.Get("k")
	require.True(t, found)
	assert.Same(t, env, got)

	clock.Advance(59 * time.Minute)
	_, found = cache.Get("k")
	assert.True(t, found)

	// Exactly TTL old counts as expired
	clock.Advance(time.Minute)
	_, found = cache.Get("k")
	assert.False(t, found)

	// Expired entries are not evicted on read
	assert.Equal(t, 1, cache.Len())

	hits, misses := cache.Counters()
	assert.Equal(t, int64(2), hits)
	assert.Equal(t, int64(1), misses)
}

func TestCachePutReplacesAndRestartsTTL(t *testing.T) {
	clock := newFakeClock()
	cache := NewCache(time.Hour, clock.Now)

	cache.Put("k", &entity.Envelope{ID: "old"})
	clock.Advance(50 * time.Minute)
	cache.Put("k", &entity.Envelope{ID: "new"})
	clock.Advance(50 * time.Minute)

	got, found := cache.Get("k")
	require.True(t, found)
	assert.Equal(t, "new", got.ID)
}

func TestCacheClear(t *testing.T) {
	cache := NewCache(time.Hour, nil)
	cache.Put("a", &entity.Envelope{})
	cache.Put("b", &entity.Envelope{})
	cache.Get("a")
	cache.Get("missing")

	cache.Clear()

	assert.Equal(t, 0, cache.Len())
	hits, misses := cache.Counters()
	assert.Zero(t, hits)
	assert.Zero(t, misses)
	_, found := cache.Get("a")
	assert.False(t, found)
}

func TestCachePeekDoesNotCount(t *testing.T) {
	cache := NewCache(time.Hour, nil)
	cache.Put("k", &entity.Envelope{})

	_, found := cache.peek("k")
	assert.True(t, found)
	_, found = cache.peek("other")
	assert.False(t, found)

	hits, misses := cache.Counters()
	assert.Zero(t, hits)
	assert.Zero(t, misses)
}
