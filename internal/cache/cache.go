package cache

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

type entry struct {
	value     any
	expiresAt time.Time
}

// Cache is a process-local key/value store with per-entry TTL.
//
// Entries expire lazily: nothing sweeps in the background, an expired
// entry is dropped by the first read that finds it. Writes overwrite
// unconditionally, last write wins.
type Cache struct {
	name       string
	maxEntries int

	entries sync.Map // string -> *entry
	size    atomic.Int64
}

type Option func(*Cache)

// WithMaxEntries bounds the cache. When a write pushes it over the
// limit, expired entries are purged first and then live entries
// closest to expiry are evicted until the cache fits again. Zero
// leaves the cache unbounded.
func WithMaxEntries(n int) Option {
	return func(c *Cache) {
		c.maxEntries = n
	}
}

func New(name string, opts ...Option) *Cache {
	c := &Cache{
		name: name,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

func (c *Cache) Name() string {
	return c.name
}

func (c *Cache) Set(key string, value any, ttl time.Duration) {
	e := &entry{
		value:     value,
		expiresAt: time.Now().Add(ttl),
	}

	if _, replaced := c.entries.Swap(key, e); replaced {
		return
	}

	if n := c.size.Add(1); c.maxEntries > 0 && n > int64(c.maxEntries) {
		c.evict()
	}
}

// Get returns the stored value while it is still fresh. An expired
// entry is removed on the way out.
func (c *Cache) Get(key string) (any, bool) {
	raw, ok := c.entries.Load(key)
	if !ok {
		return nil, false
	}

	e := raw.(*entry)

	if time.Now().After(e.expiresAt) {
		// Drop only the exact entry we saw so a concurrent Set is
		// never clobbered.
		if c.entries.CompareAndDelete(key, raw) {
			c.size.Add(-1)
		}

		return nil, false
	}

	return e.value, true
}

func (c *Cache) Delete(key string) {
	if _, ok := c.entries.LoadAndDelete(key); ok {
		c.size.Add(-1)
	}
}

// Len counts stored entries, including expired ones no read has
// dropped yet.
func (c *Cache) Len() int {
	return int(c.size.Load())
}

func (c *Cache) evict() {
	now := time.Now()

	type candidate struct {
		key       string
		raw       any
		expiresAt time.Time
	}

	var live []candidate

	c.entries.Range(func(key, raw any) bool {
		e := raw.(*entry)

		if now.After(e.expiresAt) {
			if c.entries.CompareAndDelete(key, raw) {
				c.size.Add(-1)
			}
			return true
		}

		live = append(live, candidate{key.(string), raw, e.expiresAt})
		return true
	})

	over := int(c.size.Load()) - c.maxEntries
	if over <= 0 {
		return
	}

	sort.Slice(live, func(i, j int) bool {
		return live[i].expiresAt.Before(live[j].expiresAt)
	})

	for _, cand := range live {
		if over <= 0 {
			break
		}

		if c.entries.CompareAndDelete(cand.key, cand.raw) {
			c.size.Add(-1)
			over--
		}
	}
}
