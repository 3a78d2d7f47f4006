// Package cache provides the in-process memoization used across requests.
//
// TTL is a generic key/value store with an absolute per-entry expiry.
// Expired entries are removed lazily on Get; there is no background
// sweeper and no size bound. Entries that are never read again stay
// resident until Purge is called or the process exits.
package cache

import (
	"sync"
	"time"
)

// Clock returns the current time. Tests inject a controllable one.
type Clock func() time.Time

// TTL is a thread-safe string-keyed cache whose entries expire ttl after
// they were last Set.
type TTL[V any] struct {
	ttl   time.Duration
	now   Clock
	mu    sync.Mutex
	items map[string]entry[V]
}

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// Option configures a TTL cache
type Option func(*options)

type options struct {
	clock Clock
}

// WithClock overrides time.Now as the cache's time source
func WithClock(clock Clock) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// NewTTL creates a cache whose entries live for ttl
func NewTTL[V any](ttl time.Duration, opts ...Option) *TTL[V] {
	o := options{clock: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	return &TTL[V]{
		ttl:   ttl,
		now:   o.clock,
		items: make(map[string]entry[V]),
	}
}

// Get returns the value stored under key. An entry whose expiresAt is not
// after now is deleted and reported as a miss.
func (c *TTL[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, exists := c.items[key]
	if !exists {
		var zero V
		return zero, false
	}

	if !c.now().Before(item.expiresAt) {
		delete(c.items, key)
		var zero V
		return zero, false
	}

	return item.value, true
}

// Set stores value under key, replacing any existing entry and its expiry
func (c *TTL[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = entry[V]{
		value:     value,
		expiresAt: c.now().Add(c.ttl),
	}
}

// Delete removes key from the cache
func (c *TTL[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.items, key)
}

// Len reports the number of resident entries, expired or not
func (c *TTL[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.items)
}

// Purge removes every expired entry and returns how many were dropped.
// Nothing calls it on a schedule.
func (c *TTL[V]) Purge() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for key, item := range c.items {
		if !now.Before(item.expiresAt) {
			delete(c.items, key)
			removed++
		}
	}
	return removed
}
