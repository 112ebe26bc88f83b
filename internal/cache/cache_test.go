package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"saldo/internal/log"
)

func newClockedCache(size int, ttl time.Duration) (*LRUCache[int], *time.Time) {
	c := NewLRUCache[int](size, ttl)
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return clock }
	return c, &clock
}

func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	c, _ := newClockedCache(2, 0)
	c.Set("a", 1)
	c.Set("b", 2)
	_, _ = c.Get("a")
	c.Set("c", 3)

	_, ok := c.Get("b")
	assert.False(t, ok)
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)
	assert.Equal(t, 2, c.Size())
}

func TestLRUExpiry(t *testing.T) {
	c, clock := newClockedCache(10, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)

	*clock = clock.Add(30 * time.Second)
	c.Set("b", 3)
	*clock = clock.Add(45 * time.Second)

	_, ok := c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 0, c.CleanExpired(), "a was already dropped by Get")

	*clock = clock.Add(time.Minute)
	assert.Equal(t, 1, c.CleanExpired())
	assert.Equal(t, 0, c.Size())
}

func TestDelete(t *testing.T) {
	c, _ := newClockedCache(2, 0)
	c.Set("a", 1)
	c.Delete("a")
	c.Delete("missing")
	assert.Equal(t, 0, c.Size())
}

func TestManagerCleanNow(t *testing.T) {
	c, clock := newClockedCache(10, time.Second)
	c.Set("a", 1)
	*clock = clock.Add(2 * time.Second)

	m := NewManager(log.Discard())
	m.Register(c)
	m.StartCleanup(time.Hour)
	defer m.Stop()

	assert.Equal(t, 1, m.CleanNow())
	assert.Equal(t, 0, c.Size())
}

func TestManagerStopWithoutStart(t *testing.T) {
	m := NewManager(nil)
	assert.NotPanics(t, m.Stop)
}
