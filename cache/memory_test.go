package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a controllable time source shared by the backend tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestRecord_Fresh(t *testing.T) {
	fetched := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	record := Record{FetchedAt: fetched, TTL: time.Minute}

	assert.True(t, record.Fresh(fetched))
	assert.True(t, record.Fresh(fetched.Add(59*time.Second)))
	assert.False(t, record.Fresh(fetched.Add(time.Minute)), "window end is exclusive")
	assert.False(t, record.Fresh(fetched.Add(time.Hour)))
}

func TestMemory_Miss(t *testing.T) {
	c := NewMemory(time.Minute)

	_, ok := c.Get(context.Background(), "http://example.com/feed")
	assert.False(t, ok)
}

func TestMemory_PutThenGet(t *testing.T) {
	c := NewMemory(time.Minute)
	ctx := context.Background()

	c.Put(ctx, "http://example.com/feed", Response{Body: []byte("<rss/>"), ContentType: "application/rss+xml"})

	resp, ok := c.Get(ctx, "http://example.com/feed")
	require.True(t, ok)
	assert.Equal(t, []byte("<rss/>"), resp.Body)
	assert.Equal(t, "application/rss+xml", resp.ContentType)
}

// TestMemory_Expiry verifies records become misses once the window elapses
func TestMemory_Expiry(t *testing.T) {
	clock := newFakeClock()
	c := NewMemory(10*time.Minute, WithClock(clock.Now))
	ctx := context.Background()

	c.Put(ctx, "http://example.com/feed", Response{Body: []byte("body")})

	clock.Advance(9 * time.Minute)
	_, ok := c.Get(ctx, "http://example.com/feed")
	assert.True(t, ok, "should still be fresh inside the window")

	clock.Advance(time.Minute)
	_, ok = c.Get(ctx, "http://example.com/feed")
	assert.False(t, ok, "should expire at the window end")
	assert.Equal(t, 0, c.Len(), "expired record should be dropped on read")
}

// TestMemory_PutRefreshesStamp verifies a later put restarts the window
func TestMemory_PutRefreshesStamp(t *testing.T) {
	clock := newFakeClock()
	c := NewMemory(10*time.Minute, WithClock(clock.Now))
	ctx := context.Background()

	c.Put(ctx, "u", Response{Body: []byte("old")})
	clock.Advance(8 * time.Minute)
	c.Put(ctx, "u", Response{Body: []byte("new")})
	clock.Advance(8 * time.Minute)

	resp, ok := c.Get(ctx, "u")
	require.True(t, ok)
	assert.Equal(t, []byte("new"), resp.Body)
}

// TestMemory_ExactKey verifies no URL normalization takes place
func TestMemory_ExactKey(t *testing.T) {
	c := NewMemory(time.Minute)
	ctx := context.Background()

	c.Put(ctx, "http://example.com/feed", Response{Body: []byte("body")})

	_, ok := c.Get(ctx, "http://example.com/feed/")
	assert.False(t, ok)
	_, ok = c.Get(ctx, "HTTP://example.com/feed")
	assert.False(t, ok)
}

func TestMemory_DefaultTTL(t *testing.T) {
	c := NewMemory(0)

	assert.Equal(t, DefaultTTL, c.ttl)
}

func TestMemory_Purge(t *testing.T) {
	clock := newFakeClock()
	c := NewMemory(time.Minute, WithClock(clock.Now))
	ctx := context.Background()

	c.Put(ctx, "old", Response{})
	clock.Advance(2 * time.Minute)
	c.Put(ctx, "new", Response{})

	assert.Equal(t, 1, c.Purge())
	assert.Equal(t, 1, c.Len())
}

// TestMemory_ConcurrentAccess exercises parallel readers and writers
func TestMemory_ConcurrentAccess(t *testing.T) {
	c := NewMemory(time.Minute)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		key := fmt.Sprintf("http://example.com/%d", i%5)
		go func() {
			defer wg.Done()
			c.Put(ctx, key, Response{Body: []byte(key)})
		}()
		go func() {
			defer wg.Done()
			if resp, ok := c.Get(ctx, key); ok {
				assert.Equal(t, key, string(resp.Body))
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, c.Len())
}
