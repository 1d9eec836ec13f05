// Package cache backs the builder's Cache directive: a bounded LRU whose
// entries each carry their own expiry.
package cache

import (
	"container/list"
	"sync"
	"time"
)

type Cache[V any] interface {
	Get(key string) (V, bool)
	Set(key string, value V, ttl time.Duration)
	Remove(key string)
	Clear()
	Len() int
}

type lruEntry[V any] struct {
	key       string
	value     V
	expiresAt time.Time
}

func (e lruEntry[V]) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// LRU evicts the least recently used entry once size is exceeded and
// drops expired entries lazily on access. Safe for concurrent use: one
// cache is shared by every query an engine runs.
type LRU[V any] struct {
	mu    sync.Mutex
	items map[string]*list.Element
	order *list.List
	size  int
	now   func() time.Time
}

func NewLRU[V any](size int) *LRU[V] {
	return &LRU[V]{
		items: make(map[string]*list.Element, size),
		order: list.New(),
		size:  size,
		now:   time.Now,
	}
}

// Set stores value under key. A non-positive ttl means the entry only
// ever leaves by eviction or removal.
func (c *LRU[V]) Set(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = c.now().Add(ttl)
	}
	entry := lruEntry[V]{key: key, value: value, expiresAt: expiresAt}

	if elem, ok := c.items[key]; ok {
		elem.Value = entry
		c.order.MoveToBack(elem)
		return
	}
	elem := c.order.PushBack(entry)
	c.items[key] = elem
	if len(c.items) > c.size {
		front := c.order.Front()
		c.order.Remove(front)
		delete(c.items, front.Value.(lruEntry[V]).key)
	}
}

func (c *LRU[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	elem, ok := c.items[key]
	if !ok {
		return zero, false
	}
	entry := elem.Value.(lruEntry[V])
	if entry.expired(c.now()) {
		delete(c.items, key)
		c.order.Remove(elem)
		return zero, false
	}
	c.order.MoveToBack(elem)
	return entry.value, true
}

func (c *LRU[V]) Remove(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		return
	}
	delete(c.items, key)
	c.order.Remove(elem)
}

func (c *LRU[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*list.Element, c.size)
	c.order.Init()
}

func (c *LRU[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.items)
}
