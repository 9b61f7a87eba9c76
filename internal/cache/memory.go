package cache

import (
	"container/list"
	"sync"
	"time"
)

// memoryEntry is one cached value in the memory tier.
type memoryEntry struct {
	key          string
	value        string
	ttl          time.Duration
	lastAccessed time.Time
}

// memoryCache is the bounded in-memory LRU tier.
//
// The recency list and the index are mutated together, so every operation
// runs under one mutex; the read-modify-write of the LRU ordering is not
// safely decomposable into finer locks.
type memoryCache struct {
	mu       sync.Mutex
	capacity int
	entries  map[string]*list.Element
	// order holds *memoryEntry values, least recently used at the front.
	order *list.List
}

func newMemoryCache(capacity int) *memoryCache {
	if capacity <= 0 {
		capacity = 1
	}
	return &memoryCache{
		capacity: capacity,
		entries:  make(map[string]*list.Element),
		order:    list.New(),
	}
}

// get returns the value for key and refreshes its recency. An expired entry
// is removed lazily and reported as a miss.
func (c *memoryCache) get(key string, now time.Time) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		return "", false
	}

	entry := elem.Value.(*memoryEntry)
	if entry.ttl > 0 && now.Sub(entry.lastAccessed) > entry.ttl {
		c.order.Remove(elem)
		delete(c.entries, key)
		return "", false
	}

	entry.lastAccessed = now
	c.order.MoveToBack(elem)
	return entry.value, true
}

// put inserts or replaces the value for key. Inserting beyond capacity
// evicts exactly the single least-recently-used entry.
func (c *memoryCache) put(key, value string, ttl time.Duration, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[key]; ok {
		entry := elem.Value.(*memoryEntry)
		entry.value = value
		entry.ttl = ttl
		entry.lastAccessed = now
		c.order.MoveToBack(elem)
		return
	}

	c.entries[key] = c.order.PushBack(&memoryEntry{
		key:          key,
		value:        value,
		ttl:          ttl,
		lastAccessed: now,
	})

	if c.order.Len() > c.capacity {
		oldest := c.order.Front()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*memoryEntry).key)
	}
}

// removeExpired drops every entry whose TTL has elapsed and reports how many
// were removed.
func (c *memoryCache) removeExpired(now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for elem := c.order.Front(); elem != nil; {
		next := elem.Next()
		entry := elem.Value.(*memoryEntry)
		if entry.ttl > 0 && now.Sub(entry.lastAccessed) > entry.ttl {
			c.order.Remove(elem)
			delete(c.entries, entry.key)
			removed++
		}
		elem = next
	}
	return removed
}

// purge drops every entry.
func (c *memoryCache) purge() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*list.Element)
	c.order.Init()
}

// len reports the number of live entries.
func (c *memoryCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
