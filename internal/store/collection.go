// Package store implements the local-first entity stores: an in-memory,
// snapshot-persisted collection per entity with optimistic local mutation
// and best-effort remote propagation. Create carries a compensating
// rollback; update and delete keep the optimistic local state on remote
// failure and rely on the next sync to reconcile.
package store

import (
	"sort"
	"sync"
	"time"

	"app/internal/snapshot"
)

// collection is the in-memory table behind each entity store, keyed by
// record ID and mirrored to a snapshot slot after every mutation. Local
// mutations take the lock and are atomic with respect to reads; remote
// propagation always happens outside the lock.
type collection[T any] struct {
	mu      sync.RWMutex
	items   map[string]T
	keyOf   func(T) string
	lessFn  func(a, b T) bool
	snapKey string
	snap    *snapshot.Store

	lastSyncedAt time.Time
}

func newCollection[T any](snap *snapshot.Store, snapKey string, keyOf func(T) string, lessFn func(a, b T) bool) *collection[T] {
	c := &collection[T]{
		items:   make(map[string]T),
		keyOf:   keyOf,
		lessFn:  lessFn,
		snapKey: snapKey,
		snap:    snap,
	}
	c.restore()
	return c
}

// restore loads the persisted snapshot, treating a missing or corrupt slot
// as empty initial state.
func (c *collection[T]) restore() {
	if c.snap == nil {
		return
	}
	var items []T
	if !c.snap.LoadJSON(c.snapKey, &items) {
		return
	}
	for _, item := range items {
		c.items[c.keyOf(item)] = item
	}
}

// persistLocked writes the full collection to its snapshot slot.
// Callers must hold the lock.
func (c *collection[T]) persistLocked() {
	if c.snap == nil {
		return
	}
	items := make([]T, 0, len(c.items))
	for _, item := range c.items {
		items = append(items, item)
	}
	if c.lessFn != nil {
		sort.Slice(items, func(i, j int) bool { return c.lessFn(items[i], items[j]) })
	}
	c.snap.SaveJSON(c.snapKey, items)
}

func (c *collection[T]) put(item T) {
	c.mu.Lock()
	c.items[c.keyOf(item)] = item
	c.persistLocked()
	c.mu.Unlock()
}

// remove deletes by id and reports whether the record existed, returning
// the removed value for use as a compensation target.
func (c *collection[T]) remove(id string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	item, ok := c.items[id]
	if ok {
		delete(c.items, id)
		c.persistLocked()
	}
	return item, ok
}

func (c *collection[T]) get(id string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	item, ok := c.items[id]
	return item, ok
}

// find returns the first record matching the predicate.
func (c *collection[T]) find(match func(T) bool) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, item := range c.items {
		if match(item) {
			return item, true
		}
	}
	var zero T
	return zero, false
}

// all returns a sorted copy of the collection.
func (c *collection[T]) all() []T {
	c.mu.RLock()
	items := make([]T, 0, len(c.items))
	for _, item := range c.items {
		items = append(items, item)
	}
	c.mu.RUnlock()
	if c.lessFn != nil {
		sort.Slice(items, func(i, j int) bool { return c.lessFn(items[i], items[j]) })
	}
	return items
}

func (c *collection[T]) size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// replace swaps the whole collection for the remote truth and records the
// sync timestamp. Local divergence is overwritten (last sync wins).
func (c *collection[T]) replace(items []T, syncedAt time.Time) {
	c.mu.Lock()
	c.items = make(map[string]T, len(items))
	for _, item := range items {
		c.items[c.keyOf(item)] = item
	}
	c.lastSyncedAt = syncedAt
	c.persistLocked()
	c.mu.Unlock()
}

// mutate applies fn to the record under the lock and persists. It reports
// whether the record existed and returns the mutated copy.
func (c *collection[T]) mutate(id string, fn func(*T)) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	item, ok := c.items[id]
	if !ok {
		var zero T
		return zero, false
	}
	fn(&item)
	c.items[id] = item
	c.persistLocked()
	return item, true
}

func (c *collection[T]) syncedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastSyncedAt
}
