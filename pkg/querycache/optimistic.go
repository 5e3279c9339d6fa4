package querycache

import (
	"errors"
	"fmt"
)

// ErrSettled is returned when Commit or Revert runs twice
var ErrSettled = errors.New("optimistic update already settled")

// OptimisticUpdate rewrites a cached value ahead of the server and keeps
// the prior entry so it can be put back. T should be a value type: apply
// receives a copy and must not mutate memory shared with the snapshot.
type OptimisticUpdate[T any] struct {
	cache    *Cache
	key      Key
	snapshot Entry
	had      bool
	applied  bool
	settled  bool
}

// BeginOptimistic snapshots key and, when it holds a T, stores apply(old).
// Nothing is written when the key is empty.
func BeginOptimistic[T any](c *Cache, key Key, apply func(T) T) *OptimisticUpdate[T] {
	u := &OptimisticUpdate[T]{cache: c, key: key}

	c.mu.Lock()
	defer c.mu.Unlock()

	rec, ok := c.records[key.String()]
	if !ok {
		return u
	}
	u.snapshot = rec.entry
	u.had = true

	old, ok := rec.entry.Data.(T)
	if !ok {
		return u
	}
	next := rec.entry
	next.Data = apply(old)
	next.UpdatedAt = c.now()
	c.putLocked(key, next)
	u.applied = true
	return u
}

// Applied reports whether a speculative value was written
func (u *OptimisticUpdate[T]) Applied() bool {
	return u.applied
}

// Snapshot returns the entry as it was before the update
func (u *OptimisticUpdate[T]) Snapshot() (Entry, bool) {
	return u.snapshot, u.had
}

// Commit stores the server's value as fresh and invalidates the given prefixes
func (u *OptimisticUpdate[T]) Commit(server T, invalidate ...Key) error {
	if u.settled {
		return fmt.Errorf("commit %s: %w", u.key, ErrSettled)
	}
	u.settled = true

	staleTime := u.snapshot.StaleTime
	u.cache.Set(u.key, server, staleTime)
	for _, prefix := range invalidate {
		u.cache.Invalidate(prefix)
	}
	return nil
}

// Revert restores the snapshot verbatim, or removes the key if it was empty
func (u *OptimisticUpdate[T]) Revert() error {
	if u.settled {
		return fmt.Errorf("revert %s: %w", u.key, ErrSettled)
	}
	u.settled = true

	if u.had {
		u.cache.restore(u.key, u.snapshot)
		return nil
	}
	u.cache.Remove(u.key)
	return nil
}
