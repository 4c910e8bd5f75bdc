// Package cache provides a bounded in-memory TTL store.
//
// Entries expire lazily: every Get/Has checks the entry's age and deletes it
// when stale, so a periodic Cleanup only reclaims memory and is never needed
// for correctness. When the store is full the oldest-inserted entry is
// evicted; reads never change eviction order (this is not an LRU).
package cache

import (
	"context"
	"log"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"
)

// DefaultMaxSize is used when New receives a non-positive size.
const DefaultMaxSize = 1000

type entry[V any] struct {
	value     V
	createdAt time.Time
	ttl       time.Duration
}

func (e entry[V]) expired(now time.Time) bool {
	return now.Sub(e.createdAt) > e.ttl
}

// Cache is safe for concurrent use. Values are stored and returned as-is;
// callers that cache pointers must treat them as immutable.
type Cache[V any] struct {
	mu        sync.Mutex
	items     *simplelru.LRU[string, entry[V]]
	maxSize   int
	evictions int64
	now       func() time.Time
}

// New creates a cache holding at most maxSize entries.
func New[V any](maxSize int) *Cache[V] {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	c := &Cache[V]{maxSize: maxSize, now: time.Now}
	// The list is only ever read with Peek, so its order stays insertion order.
	items, err := simplelru.NewLRU[string, entry[V]](maxSize, nil)
	if err != nil {
		panic(err)
	}
	c.items = items
	return c
}

// Set stores value under key for ttl. Re-setting an existing key replaces
// the entry and counts as a fresh insertion.
func (c *Cache[V]) Set(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := entry[V]{value: value, createdAt: c.now(), ttl: ttl}
	if c.items.Contains(key) {
		// Remove first so the key moves to the newest insertion slot.
		c.items.Remove(key)
	} else if c.items.Len() >= c.maxSize {
		c.items.RemoveOldest()
		c.evictions++
	}
	c.items.Add(key, e)
}

// Get returns the live value for key. An expired entry is deleted.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	e, ok := c.items.Peek(key)
	if !ok {
		return zero, false
	}
	if e.expired(c.now()) {
		c.items.Remove(key)
		return zero, false
	}
	return e.value, true
}

// Has reports whether key holds a live value. An expired entry is deleted.
func (c *Cache[V]) Has(key string) bool {
	_, ok := c.Get(key)
	return ok
}

// Delete removes key and reports whether it was present.
func (c *Cache[V]) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.items.Remove(key)
}

// Clear drops every entry.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items.Purge()
}

// Cleanup deletes every expired entry and returns how many were removed.
func (c *Cache[V]) Cleanup() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for _, key := range c.items.Keys() {
		if e, ok := c.items.Peek(key); ok && e.expired(now) {
			c.items.Remove(key)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored entries, expired or not.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.items.Len()
}

// Stats is a point-in-time view of a cache.
type Stats struct {
	Size      int      `json:"size"`
	MaxSize   int      `json:"maxSize"`
	Evictions int64    `json:"evictions"`
	Keys      []string `json:"keys"`
}

// Stats returns the current size and keys, oldest first.
func (c *Cache[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Size:      c.items.Len(),
		MaxSize:   c.maxSize,
		Evictions: c.evictions,
		Keys:      c.items.Keys(),
	}
}

// Sweeper is anything with a Cleanup pass.
type Sweeper interface {
	Cleanup() int
}

// StartCleanup runs Cleanup on every named cache at the given interval until
// ctx is cancelled.
func StartCleanup(ctx context.Context, interval time.Duration, caches map[string]Sweeper) {
	if interval <= 0 {
		interval = 30 * time.Minute
	}
	names := make([]string, 0, len(caches))
	for name := range caches {
		names = append(names, name)
	}
	sort.Strings(names)

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				parts := make([]string, 0, len(names))
				for _, name := range names {
					parts = append(parts, name+"="+strconv.Itoa(caches[name].Cleanup()))
				}
				log.Printf("[cache] cleanup done: %s", strings.Join(parts, ", "))
			}
		}
	}()
}
