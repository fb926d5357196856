// Package cache provides a small, explicitly owned LRU cache with a bounded
// size and an explicit Clear. It exists so components that memoize parsed
// values (e.g. cron expressions) hold the cache by reference instead of
// relying on a process-wide global.
package cache

import (
	"container/list"
	"sync"
)

type lruEntry[K comparable, V any] struct {
	key   K
	value V
}

// LRU is a thread-safe bounded cache. When it reaches capacity the least
// recently used item is evicted.
type LRU[K comparable, V any] struct {
	capacity int
	items    map[K]*list.Element
	eviction *list.List
	mu       sync.Mutex
}

// NewLRU creates an LRU with the given capacity.
// The capacity must be positive, otherwise it panics.
func NewLRU[K comparable, V any](capacity int) *LRU[K, V] {
	if capacity <= 0 {
		panic("cache: LRU capacity must be positive")
	}
	return &LRU[K, V]{
		capacity: capacity,
		items:    make(map[K]*list.Element),
		eviction: list.New(),
	}
}

// Get retrieves a value and marks it as recently used.
func (c *LRU[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.eviction.MoveToFront(elem)
		return elem.Value.(*lruEntry[K, V]).value, true
	}

	var zero V
	return zero, false
}

// Put adds or updates a value. If the cache is at capacity the least
// recently used item is evicted.
func (c *LRU[K, V]) Put(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.eviction.MoveToFront(elem)
		elem.Value.(*lruEntry[K, V]).value = value
		return
	}

	elem := c.eviction.PushFront(&lruEntry[K, V]{key: key, value: value})
	c.items[key] = elem

	if c.eviction.Len() > c.capacity {
		oldest := c.eviction.Back()
		if oldest != nil {
			c.eviction.Remove(oldest)
			delete(c.items, oldest.Value.(*lruEntry[K, V]).key)
		}
	}
}

// Len returns the number of cached items.
func (c *LRU[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.eviction.Len()
}

// Clear removes all items.
func (c *LRU[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[K]*list.Element)
	c.eviction.Init()
}
