package querycache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Stale times used by the transcription views
const (
	ListStaleTime   = 2 * time.Minute
	DetailStaleTime = 5 * time.Minute
	HealthStaleTime = time.Minute
)

// Entry is one cached value with its freshness bookkeeping
type Entry struct {
	Data        any
	UpdatedAt   time.Time
	StaleTime   time.Duration
	Invalidated bool
}

// IsStale reports whether the entry should be refetched before use
func (e Entry) IsStale(now time.Time) bool {
	return e.Invalidated || now.Sub(e.UpdatedAt) >= e.StaleTime
}

type record struct {
	key     Key
	entry   Entry
	written uint64
}

// removal remembers a Remove or RemoveMatching while fetches are in flight
type removal struct {
	prefix Key
	seq    uint64
}

// Stats counts cache traffic
type Stats struct {
	Hits    int64
	Misses  int64
	Fetches int64
}

// Cache holds query results keyed by their canonical Key string.
// It is safe for concurrent use.
type Cache struct {
	mu      sync.RWMutex
	records map[string]*record
	// seq orders writes so a fetch that started before a Set, Invalidate
	// or Remove cannot clobber what happened after it began.
	seq           uint64
	invalidatedAt uint64
	stats         Stats
	inflight      int
	removals      []removal

	group            singleflight.Group
	now              func() time.Time
	defaultStaleTime time.Duration
}

// Option configures a Cache
type Option func(*Cache)

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithDefaultStaleTime sets the stale time for Set calls that pass zero
func WithDefaultStaleTime(d time.Duration) Option {
	return func(c *Cache) { c.defaultStaleTime = d }
}

// New creates an empty cache
func New(opts ...Option) *Cache {
	c := &Cache{
		records:          make(map[string]*record),
		now:              time.Now,
		defaultStaleTime: DetailStaleTime,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Peek returns the entry for key without touching stats
func (c *Cache) Peek(key Key) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rec, ok := c.records[key.String()]
	if !ok {
		return Entry{}, false
	}
	return rec.entry, true
}

// Get returns cached data if present, stale or not
func (c *Cache) Get(key Key) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.records[key.String()]
	if !ok {
		c.stats.Misses++
		return nil, false
	}
	c.stats.Hits++
	return rec.entry.Data, true
}

// Set stores data as fresh
func (c *Cache) Set(key Key, data any, staleTime time.Duration) {
	if staleTime <= 0 {
		staleTime = c.defaultStaleTime
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.putLocked(key, Entry{Data: data, UpdatedAt: c.now(), StaleTime: staleTime})
}

func (c *Cache) putLocked(key Key, e Entry) {
	c.seq++
	c.records[key.String()] = &record{key: key, entry: e, written: c.seq}
}

// restore puts a snapshot back exactly as it was taken
func (c *Cache) restore(key Key, e Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.putLocked(key, e)
}

// Remove drops one entry. A fetch of key already in flight does not
// write it back.
func (c *Cache) Remove(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	c.invalidatedAt = c.seq
	c.tombstoneLocked(key)
	delete(c.records, key.String())
}

func (c *Cache) tombstoneLocked(prefix Key) {
	if c.inflight > 0 {
		c.removals = append(c.removals, removal{prefix: prefix, seq: c.seq})
	}
}

// removedSince reports whether key was removed after seq started
func (c *Cache) removedSince(key Key, started uint64) bool {
	for _, r := range c.removals {
		if r.seq > started && key.HasPrefix(r.prefix) {
			return true
		}
	}
	return false
}

// Invalidate marks every entry under prefix stale and keeps its data.
// It returns the number of entries marked.
func (c *Cache) Invalidate(prefix Key) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	c.invalidatedAt = c.seq
	n := 0
	for _, rec := range c.records {
		if rec.key.HasPrefix(prefix) {
			rec.entry.Invalidated = true
			n++
		}
	}
	return n
}

// RemoveMatching drops every entry under prefix
func (c *Cache) RemoveMatching(prefix Key) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	c.invalidatedAt = c.seq
	c.tombstoneLocked(prefix)
	n := 0
	for s, rec := range c.records {
		if rec.key.HasPrefix(prefix) {
			delete(c.records, s)
			n++
		}
	}
	return n
}

// Keys lists the cached keys under prefix
func (c *Cache) Keys(prefix Key) []Key {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var keys []Key
	for _, rec := range c.records {
		if rec.key.HasPrefix(prefix) {
			keys = append(keys, rec.key)
		}
	}
	return keys
}

// Stats returns a copy of the counters
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stats
}

// Fetch returns fresh cached data for key or runs fetch to refresh it.
// Concurrent fetches of the same key share one call. A failed fetch leaves
// the cached entry untouched.
func (c *Cache) Fetch(ctx context.Context, key Key, staleTime time.Duration, fetch func(context.Context) (any, error)) (any, error) {
	id := key.String()

	c.mu.Lock()
	if rec, ok := c.records[id]; ok && !rec.entry.IsStale(c.now()) {
		c.stats.Hits++
		c.mu.Unlock()
		return rec.entry.Data, nil
	}
	c.stats.Misses++
	c.mu.Unlock()

	ch := c.group.DoChan(id, func() (any, error) {
		c.mu.Lock()
		c.stats.Fetches++
		c.inflight++
		started := c.seq
		c.mu.Unlock()

		// Detached so one caller giving up does not fail the others
		data, err := fetch(context.WithoutCancel(ctx))

		c.mu.Lock()
		defer c.mu.Unlock()
		c.inflight--
		removed := c.removedSince(key, started)
		if c.inflight == 0 {
			c.removals = nil
		}
		if err != nil {
			return nil, err
		}

		if staleTime <= 0 {
			staleTime = c.defaultStaleTime
		}
		if removed {
			return data, nil
		}
		if rec, ok := c.records[id]; ok && rec.written > started {
			return data, nil
		}
		c.putLocked(key, Entry{
			Data:        data,
			UpdatedAt:   c.now(),
			StaleTime:   staleTime,
			Invalidated: c.invalidatedAt > started,
		})
		return data, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, fmt.Errorf("fetch %s: %w", id, res.Err)
		}
		return res.Val, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// FetchAs is Fetch with a typed result
func FetchAs[T any](ctx context.Context, c *Cache, key Key, staleTime time.Duration, fetch func(context.Context) (T, error)) (T, error) {
	var zero T
	v, err := c.Fetch(ctx, key, staleTime, func(ctx context.Context) (any, error) {
		return fetch(ctx)
	})
	if err != nil {
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("cached value for %s has type %T", key, v)
	}
	return typed, nil
}
