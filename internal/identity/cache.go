package identity

import (
	"sync"
	"time"
)

// now is a small indirection so tests can move the clock.
var now = time.Now

type cacheEntry[V any] struct {
	value     V
	expiresAt time.Time
}

// ttlCache is a map guarded by a RWMutex with per-entry expiry. Expired
// entries are treated as misses and dropped on the next write to the key.
type ttlCache[K comparable, V any] struct {
	mu    sync.RWMutex
	items map[K]cacheEntry[V]
}

func newTTLCache[K comparable, V any]() *ttlCache[K, V] {
	return &ttlCache[K, V]{items: make(map[K]cacheEntry[V])}
}

func (c *ttlCache[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var zero V
	e, ok := c.items[key]
	if !ok || now().After(e.expiresAt) {
		return zero, false
	}
	return e.value, true
}

func (c *ttlCache[K, V]) Set(key K, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = cacheEntry[V]{value: value, expiresAt: now().Add(ttl)}
}

func (c *ttlCache[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

// Purge drops every expired entry and returns how many remain.
func (c *ttlCache[K, V]) Purge() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	ts := now()
	for k, e := range c.items {
		if ts.After(e.expiresAt) {
			delete(c.items, k)
		}
	}
	return len(c.items)
}
