// Package imagecache provides the process-wide URL to platform image key cache.
// Entries live for the lifetime of the process; there is no eviction.
package imagecache

import (
	"strings"
	"sync"
)

// Cache maps source image URLs to the platform reference key returned by a
// successful upload. Writes are last-wins: two tasks racing on the same URL
// may both upload and both write, which costs a duplicate platform-side
// upload but never corrupts state.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]string
}

// New creates an empty cache.
func New() *Cache {
	return &Cache{entries: make(map[string]string)}
}

// Get returns the cached reference key for url, if present.
func (c *Cache) Get(url string) (string, bool) {
	url = strings.TrimSpace(url)
	if url == "" {
		return "", false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	key, ok := c.entries[url]
	return key, ok
}

// Put records the reference key for url. Empty values are ignored.
func (c *Cache) Put(url, key string) {
	url = strings.TrimSpace(url)
	key = strings.TrimSpace(key)
	if url == "" || key == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[url] = key
}

// Len returns the number of cached URLs.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
