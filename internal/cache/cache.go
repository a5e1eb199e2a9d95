// SPDX-FileCopyrightText: Copyright 2025 Carabiner Systems, Inc
// SPDX-License-Identifier: Apache-2.0

// Package cache implements the expiring key-value cache used to hold
// resolved application contexts and the certificate materialization flag.
package cache

import (
	"sync"
	"time"

	"github.com/carabiner-dev/raptor/internal/metrics"
)

// DefaultTTL is used when a cache is created with a non-positive TTL.
const DefaultTTL = 300 * time.Second

// Entry is a value stored in the cache along with its deadline.
type Entry struct {
	Value     any
	ExpiresAt time.Time
}

// Cache is an in-memory map of entries that expire lazily: an expired entry
// stays in the map until a Get finds it past its deadline. There is no
// background sweep, so a cache fed an unbounded set of keys with a long TTL
// grows without bound.
//
// All operations go through a single mutex shared by every key. Two callers
// can still both miss on the same key and both compute and Set a value, the
// last Set wins. Callers treat the cache as eventually consistent per key.
type Cache struct {
	name    string
	ttl     time.Duration
	now     func() time.Time
	entries map[string]*Entry
	mu      sync.Mutex
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock replaces the time source, used by tests to move time forward.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// WithName sets the label used for the cache metrics.
func WithName(name string) Option {
	return func(c *Cache) {
		c.name = name
	}
}

// New creates a cache where entries live for ttl unless an explicit
// expiration is passed to SetWithExpiry.
func New(ttl time.Duration, opts ...Option) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &Cache{
		name:    "default",
		ttl:     ttl,
		now:     time.Now,
		entries: map[string]*Entry{},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// TTL returns the lifetime assigned to entries stored with Set.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// Set stores value under key, expiring after the cache TTL.
func (c *Cache) Set(key string, value any) {
	c.SetWithExpiry(key, value, c.now().Add(c.ttl))
}

// SetWithExpiry stores value under key until expiresAt, replacing any
// existing entry.
func (c *Cache) SetWithExpiry(key string, value any, expiresAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = &Entry{
		Value:     value,
		ExpiresAt: expiresAt,
	}
}

// Get returns the value stored under key. The boolean is false when the key
// is unknown or its entry has expired, in which case the entry is removed.
// A nil value stored on purpose is returned as (nil, true).
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		metrics.CacheMisses.WithLabelValues(c.name).Inc()
		return nil, false
	}

	if c.now().After(entry.ExpiresAt) {
		delete(c.entries, key)
		metrics.CacheExpirations.WithLabelValues(c.name).Inc()
		return nil, false
	}

	metrics.CacheHits.WithLabelValues(c.name).Inc()
	return entry.Value, true
}

// Delete removes key from the cache.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, key)
}

// Clear removes every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	clear(c.entries)
}

// Len returns the number of entries held, expired or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}
