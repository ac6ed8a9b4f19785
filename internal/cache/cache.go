// Package cache implements version-checked, TTL-bounded read-through caches.
//
// A Cache is bound to a set of ledger tags. On every read the current ledger
// stamp for those tags is compared with the stamp the cache was filled under;
// any difference drops every entry before the lookup. Entries that survive
// the stamp check still expire individually after the cache TTL, measured on
// the cache clock.
package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"example.com/abonos/internal/clock"
	"example.com/abonos/internal/ledger"
)

// Versioner is the part of the ledger a cache reads.
type Versioner interface {
	Version(tags ...ledger.Tag) ledger.Stamp
}

type entry[V any] struct {
	value    V
	storedAt time.Time
}

type Cache[K comparable, V any] struct {
	name  string
	ver   Versioner
	clock clock.Clock
	tags  []ledger.Tag
	ttl   time.Duration

	mu    sync.Mutex
	stamp ledger.Stamp
	items *ttlcache.Cache[K, entry[V]]

	hits   atomic.Uint64
	misses atomic.Uint64
	resets atomic.Uint64
}

type Stats struct {
	Name   string        `json:"name"`
	TTL    time.Duration `json:"ttl"`
	Size   int           `json:"size"`
	Hits   uint64        `json:"hits"`
	Misses uint64        `json:"misses"`
	Resets uint64        `json:"resets"`
}

// New builds a cache whose entries live for ttl on clk and which is
// invalidated by any bump of tags. A nil clk means the system clock; the
// background sweeper always runs on wall time.
func New[K comparable, V any](name string, ver Versioner, clk clock.Clock, ttl time.Duration, tags ...ledger.Tag) *Cache[K, V] {
	if clk == nil {
		clk = clock.NewSystem()
	}
	items := ttlcache.New(
		ttlcache.WithTTL[K, entry[V]](ttl),
		ttlcache.WithDisableTouchOnHit[K, entry[V]](),
	)
	return &Cache[K, V]{
		name:  name,
		ver:   ver,
		clock: clk,
		tags:  tags,
		ttl:   ttl,
		stamp: ver.Version(tags...),
		items: items,
	}
}

// Get returns the cached value for key, calling load on a miss. A value
// loaded while the stamp moved is returned but not stored.
func (c *Cache[K, V]) Get(ctx context.Context, key K, load func(ctx context.Context) (V, error)) (V, error) {
	cur := c.sync()

	if it := c.items.Get(key); it != nil {
		e := it.Value()
		if c.clock.Now().Sub(e.storedAt) < c.ttl {
			c.hits.Add(1)
			return e.value, nil
		}
		c.items.Delete(key)
	}
	c.misses.Add(1)

	v, err := load(ctx)
	if err != nil {
		var zero V
		return zero, err
	}

	c.mu.Lock()
	if c.stamp.Equal(cur) && c.ver.Version(c.tags...).Equal(cur) {
		c.items.Set(key, entry[V]{value: v, storedAt: c.clock.Now()}, ttlcache.DefaultTTL)
	}
	c.mu.Unlock()
	return v, nil
}

// sync adopts the current ledger stamp, dropping all entries when it moved.
func (c *Cache[K, V]) sync() ledger.Stamp {
	cur := c.ver.Version(c.tags...)
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.stamp.Equal(cur) {
		c.items.DeleteAll()
		c.stamp = cur
		c.resets.Add(1)
	}
	return cur
}

func (c *Cache[K, V]) Stats() Stats {
	return Stats{
		Name:   c.name,
		TTL:    c.ttl,
		Size:   c.items.Len(),
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
		Resets: c.resets.Load(),
	}
}

// Start runs the background expiry sweeper until Stop is called.
func (c *Cache[K, V]) Start() { c.items.Start() }

func (c *Cache[K, V]) Stop() { c.items.Stop() }
