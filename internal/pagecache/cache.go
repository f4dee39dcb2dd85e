// Package pagecache holds rendered page bytes in a bounded, in-memory LRU
// so repeat requests for the same path skip the object store.
package pagecache

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCapacity matches the teacher-domain's page cache sizing: enough
// entries to keep a small site entirely warm without unbounded growth.
const DefaultCapacity = 256

// Entry is a cached page: its bytes and the content type they were served
// with.
type Entry struct {
	Bytes       []byte
	ContentType string
}

// Cache is a bounded LRU of path -> Entry, plus predicate-based
// invalidation. hashicorp/golang-lru does not offer predicate invalidation
// natively, so Cache adds it by walking Keys() under its own lock.
type Cache struct {
	mu    sync.Mutex
	inner *lru.Cache[string, Entry]
}

// New builds a Cache holding at most capacity entries.
func New(capacity int) (*Cache, error) {
	inner, err := lru.New[string, Entry](capacity)
	if err != nil {
		return nil, err
	}
	return &Cache{inner: inner}, nil
}

// Get returns the cached entry for path, if present.
func (c *Cache) Get(path string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inner.Get(path)
}

// Put stores entry under path, evicting the least recently used entry if
// the cache is full.
func (c *Cache) Put(path string, entry Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inner.Add(path, entry)
}

// Remove evicts a single path, if present.
func (c *Cache) Remove(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inner.Remove(path)
}

// InvalidateIf removes every entry whose path satisfies predicate. It
// snapshots the key set first so the predicate can't observe a cache
// that's being mutated mid-walk.
func (c *Cache) InvalidateIf(predicate func(path string) bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for _, key := range c.inner.Keys() {
		if predicate(key) {
			c.inner.Remove(key)
			removed++
		}
	}
	return removed
}

// Len reports the current number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inner.Len()
}

// Purge empties the cache entirely.
func (c *Cache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inner.Purge()
}
