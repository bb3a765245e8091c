package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGetMissReturnsFalse(t *testing.T) {
	c := NewMemoryCache(10)
	_, ok := c.Get("missing")
	require.False(t, ok)
}

func TestSetThenGetRoundTrips(t *testing.T) {
	c := NewMemoryCache(10)
	entry := Entry{Payload: []byte("hello"), ETag: `W/"abc"`, CachedAt: time.Now()}
	c.Set("key", entry, time.Minute)

	got, ok := c.Get("key")
	require.True(t, ok)
	require.Equal(t, entry.Payload, got.Payload)
	require.Equal(t, entry.ETag, got.ETag)
}

func TestEntryExpiresAfterTTL(t *testing.T) {
	now := time.Now()
	c := NewMemoryCache(10)
	c.now = func() time.Time { return now }

	c.Set("key", Entry{Payload: []byte("x"), CachedAt: now}, time.Second)
	now = now.Add(2 * time.Second)

	_, ok := c.Get("key")
	require.False(t, ok)
}

func TestSetEvictsOldestWhenAtCapacity(t *testing.T) {
	now := time.Now()
	c := NewMemoryCache(2)
	c.now = func() time.Time { return now }

	c.Set("a", Entry{Payload: []byte("a"), CachedAt: now}, time.Minute)
	now = now.Add(time.Millisecond)
	c.Set("b", Entry{Payload: []byte("b"), CachedAt: now}, time.Minute)
	now = now.Add(time.Millisecond)
	c.Set("c", Entry{Payload: []byte("c"), CachedAt: now}, time.Minute)

	require.Equal(t, 2, c.Len())
	_, ok := c.Get("a")
	require.False(t, ok, "oldest entry should have been evicted")
	_, ok = c.Get("c")
	require.True(t, ok)
}

func TestDeleteRemovesEntry(t *testing.T) {
	c := NewMemoryCache(10)
	c.Set("key", Entry{Payload: []byte("x"), CachedAt: time.Now()}, time.Minute)
	c.Delete("key")

	_, ok := c.Get("key")
	require.False(t, ok)
}
