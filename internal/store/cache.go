package store

import (
	"slices"
	"sync"

	"github.com/mmcdole/wardrobe/internal/domain"
)

// Predicate selects cache keys
type Predicate[K comparable] func(K) bool

// All matches every key
func All[K comparable]() Predicate[K] {
	return func(K) bool { return true }
}

// Exact matches a single key
func Exact[K comparable](key K) Predicate[K] {
	return func(k K) bool { return k == key }
}

// InNamespace matches every page under ns regardless of filter, page or size
func InNamespace(ns string) Predicate[domain.PageKey] {
	return func(k domain.PageKey) bool { return k.Namespace == ns }
}

// WithFilter matches every page under ns fetched with filter
func WithFilter(ns string, filter domain.ItemFilter) Predicate[domain.PageKey] {
	encoded := filter.Encode()
	return func(k domain.PageKey) bool { return k.Namespace == ns && k.Filter == encoded }
}

// Entry is one snapshotted (key, value) pair
type Entry[K comparable, V any] struct {
	Key   K
	Value V
	Stale bool
}

// Snapshot is the ordered prior contents of a set of keys, used for rollback
type Snapshot[K comparable, V any] struct {
	Entries []Entry[K, V]
}

// Keys lists the snapshotted keys in order
func (s Snapshot[K, V]) Keys() []K {
	keys := make([]K, len(s.Entries))
	for i, e := range s.Entries {
		keys[i] = e.Key
	}
	return keys
}

type entry[V any] struct {
	value V
	stale bool
}

// Cache is a keyed local mirror of remote state.
//
// Values are deep-copied on every read and write with the clone function, so
// callers can never alias cached state. Every write that is not an
// authoritative fill bumps a per-key generation; Fill compares against the
// generation observed when the fetch started and drops results that raced
// with an optimistic write.
type Cache[K comparable, V any] struct {
	mu      sync.RWMutex
	clone   func(V) V
	entries map[K]*entry[V]
	order   []K
	gens    map[K]uint64
	nextGen uint64

	listeners []func([]K)
}

// New creates an empty cache. clone must return a deep copy of its argument.
func New[K comparable, V any](clone func(V) V) *Cache[K, V] {
	if clone == nil {
		clone = func(v V) V { return v }
	}
	return &Cache[K, V]{
		clone:   clone,
		entries: make(map[K]*entry[V]),
		gens:    make(map[K]uint64),
	}
}

// OnInvalidate registers fn to be called with the keys of every invalidation.
// fn runs outside the cache lock.
func (c *Cache[K, V]) OnInvalidate(fn func([]K)) {
	c.mu.Lock()
	c.listeners = append(c.listeners, fn)
	c.mu.Unlock()
}

// Get returns a copy of the value stored under k
func (c *Cache[K, V]) Get(k K) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[k]
	if !ok {
		var zero V
		return zero, false
	}
	return c.clone(e.value), true
}

// Stale reports whether k is absent or has been invalidated since its last fill
func (c *Cache[K, V]) Stale(k K) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[k]
	return !ok || e.stale
}

// Len returns the number of cached entries
func (c *Cache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Keys returns the keys matching pred in insertion order
func (c *Cache[K, V]) Keys(pred Predicate[K]) []K {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.matchLocked(pred)
}

// Generation returns the current write generation of k.
// Record it before starting an authoritative fetch and pass it to Fill.
func (c *Cache[K, V]) Generation(k K) uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gens[k]
}

// Set stores a non-authoritative value under k
func (c *Cache[K, V]) Set(k K, v V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.putLocked(k, c.clone(v), false)
	c.bumpLocked(k)
}

// Fill stores an authoritative value fetched when k was at generation gen.
// It returns false, leaving the cache untouched, if any write or
// invalidation touched k after gen was observed. An accepted fill is itself
// a write, so a second fetch that observed the same gen is rejected.
func (c *Cache[K, V]) Fill(k K, v V, gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.gens[k] != gen {
		return false
	}
	c.putLocked(k, c.clone(v), false)
	c.bumpLocked(k)
	return true
}

// Update applies transform to a copy of every value matching pred.
// Results are committed only once every transform has returned without
// error; on error the cache is left exactly as it was.
func (c *Cache[K, V]) Update(pred Predicate[K], transform func(K, V) (V, error)) ([]K, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := c.matchLocked(pred)
	next := make([]V, len(keys))
	for i, k := range keys {
		v, err := transform(k, c.clone(c.entries[k].value))
		if err != nil {
			return nil, err
		}
		next[i] = v
	}

	for i, k := range keys {
		c.entries[k].value = next[i]
		c.bumpLocked(k)
	}
	return keys, nil
}

// Snapshot captures copies of every entry matching pred
func (c *Cache[K, V]) Snapshot(pred Predicate[K]) Snapshot[K, V] {
	c.mu.RLock()
	defer c.mu.RUnlock()

	keys := c.matchLocked(pred)
	snap := Snapshot[K, V]{Entries: make([]Entry[K, V], len(keys))}
	for i, k := range keys {
		e := c.entries[k]
		snap.Entries[i] = Entry[K, V]{Key: k, Value: c.clone(e.value), Stale: e.stale}
	}
	return snap
}

// Restore overwrites every snapshotted key with its captured value,
// re-creating keys that were evicted since. Keys absent from the snapshot
// are not touched.
func (c *Cache[K, V]) Restore(snap Snapshot[K, V]) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, e := range snap.Entries {
		c.putLocked(e.Key, c.clone(e.Value), e.Stale)
		c.bumpLocked(e.Key)
	}
}

// Invalidate marks every entry matching pred stale and notifies listeners.
// Values stay readable until refetched.
func (c *Cache[K, V]) Invalidate(pred Predicate[K]) []K {
	c.mu.Lock()
	keys := c.matchLocked(pred)
	for _, k := range keys {
		c.entries[k].stale = true
		c.bumpLocked(k)
	}
	listeners := slices.Clone(c.listeners)
	c.mu.Unlock()

	if len(keys) > 0 {
		for _, fn := range listeners {
			fn(keys)
		}
	}
	return keys
}

// Delete evicts every entry matching pred
func (c *Cache[K, V]) Delete(pred Predicate[K]) []K {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := c.matchLocked(pred)
	for _, k := range keys {
		delete(c.entries, k)
		c.bumpLocked(k)
	}
	c.order = slices.DeleteFunc(c.order, func(k K) bool {
		_, ok := c.entries[k]
		return !ok
	})
	return keys
}

func (c *Cache[K, V]) matchLocked(pred Predicate[K]) []K {
	var keys []K
	for _, k := range c.order {
		if pred == nil || pred(k) {
			keys = append(keys, k)
		}
	}
	return keys
}

func (c *Cache[K, V]) putLocked(k K, v V, stale bool) {
	if e, ok := c.entries[k]; ok {
		e.value = v
		e.stale = stale
		return
	}
	c.entries[k] = &entry[V]{value: v, stale: stale}
	c.order = append(c.order, k)
}

func (c *Cache[K, V]) bumpLocked(k K) {
	c.nextGen++
	c.gens[k] = c.nextGen
}
