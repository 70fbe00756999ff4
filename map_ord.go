package idmap

import (
	"cmp"
	"fmt"
	"iter"
	"log/slog"
)

// OrdMap is a single-key ordered map whose key is derived from the stored
// item via Item.ItemKey. Iteration visits items in ascending key order.
// T is typically a pointer type.
type OrdMap[K comparable, T Item[K]] struct {
	items    itemSet[T]
	index    ordIndex[K]
	debugLog bool
}

// NewOrdMap creates an empty OrdMap using the natural order of K.
func NewOrdMap[K cmp.Ordered, T Item[K]]() *OrdMap[K, T] {
	return NewOrdMapFunc[K, T](cmp.Compare[K])
}

// NewOrdMapFunc creates an empty OrdMap ordered by the given comparison
// function, which must define a total order over keys.
func NewOrdMapFunc[K comparable, T Item[K]](compare func(a, b K) int) *OrdMap[K, T] {
	m := &OrdMap[K, T]{}
	m.index = makeOrdIndex(compare, func(slot uint32) K {
		return m.items.get(slot).ItemKey()
	})
	return m
}

// NewOrdMapWithCapacity creates an empty OrdMap with item storage pre-sized
// for the given number of items.
func NewOrdMapWithCapacity[K cmp.Ordered, T Item[K]](capacity int) *OrdMap[K, T] {
	m := NewOrdMap[K, T]()
	m.items = makeItemSet[T](capacity)
	return m
}

// MustOrdMapOf builds an OrdMap from literal items, panicking on duplicate
// keys. Meant for compile-time-known data, not untrusted input.
func MustOrdMapOf[K cmp.Ordered, T Item[K]](items ...T) *OrdMap[K, T] {
	m := NewOrdMapWithCapacity[K, T](len(items))
	ensure(m.Extend(items...))
	return m
}

// CollectOrdMap builds an OrdMap from a sequence, overwriting earlier items
// on duplicate keys.
func CollectOrdMap[K cmp.Ordered, T Item[K]](seq iter.Seq[T]) *OrdMap[K, T] {
	m := NewOrdMap[K, T]()
	for item := range seq {
		m.InsertOverwrite(item)
	}
	return m
}

// SetDebugLog enables slog tracing of mutations.
func (m *OrdMap[K, T]) SetDebugLog(on bool) {
	m.debugLog = on
}

func (m *OrdMap[K, T]) Len() int {
	return m.items.len()
}

func (m *OrdMap[K, T]) IsEmpty() bool {
	return m.items.len() == 0
}

// Cap returns the number of items the map can hold without reallocating
// item storage.
func (m *OrdMap[K, T]) Cap() int {
	return m.items.capacity()
}

func (m *OrdMap[K, T]) Contains(key K) bool {
	_, ok := m.index.find(key)
	return ok
}

func (m *OrdMap[K, T]) Get(key K) (T, bool) {
	if slot, ok := m.index.find(key); ok {
		return m.items.get(slot), true
	}
	var zero T
	return zero, false
}

// InsertUnique adds an item, returning a *DuplicateError[T] carrying the
// rejected item if its key is already present. The map is not modified on
// failure.
func (m *OrdMap[K, T]) InsertUnique(item T) error {
	key := item.ItemKey()
	if slot, ok := m.index.find(key); ok {
		return &DuplicateError[T]{
			New:        item,
			Duplicates: []T{m.items.get(slot)},
			Slots:      []KeySlot{KeySlot1},
		}
	}
	slot := m.items.alloc(item)
	m.index.insert(key, slot)
	if m.debugLog {
		slog.Debug("idmap: insert", "key", key, "slot", slot)
	}
	return nil
}

// InsertOverwrite adds an item, evicting and returning the item previously
// stored under the same key, if any.
func (m *OrdMap[K, T]) InsertOverwrite(item T) (old T, replaced bool) {
	old, replaced = m.Remove(item.ItemKey())
	if err := m.InsertUnique(item); err != nil {
		panic(fmt.Errorf("idmap: insert failed after evicting duplicates: %w", err))
	}
	return old, replaced
}

// GetOrInsert returns the item stored under the key projected from item,
// inserting item first if the key is absent. Reports whether the insertion
// happened.
func (m *OrdMap[K, T]) GetOrInsert(item T) (T, bool) {
	key := item.ItemKey()
	if slot, ok := m.index.find(key); ok {
		return m.items.get(slot), false
	}
	slot := m.items.alloc(item)
	m.index.insert(key, slot)
	if m.debugLog {
		slog.Debug("idmap: insert", "key", key, "slot", slot)
	}
	return item, true
}

// GetOrInsertWith returns the item stored under key, constructing and
// inserting one via fn if the key is absent. The constructed item must
// project a key equal to the given one under the map's comparator; anything
// else is a contract violation and panics.
func (m *OrdMap[K, T]) GetOrInsertWith(key K, fn func() T) T {
	if slot, ok := m.index.find(key); ok {
		return m.items.get(slot)
	}
	item := fn()
	if got := item.ItemKey(); m.index.compare(got, key) != 0 {
		panic(fmt.Errorf("idmap: constructed item projects key %v, wanted %v", got, key))
	}
	slot := m.items.alloc(item)
	m.index.insert(item.ItemKey(), slot)
	if m.debugLog {
		slog.Debug("idmap: insert", "key", key, "slot", slot)
	}
	return item
}

// Remove deletes and returns the item stored under key.
func (m *OrdMap[K, T]) Remove(key K) (T, bool) {
	slot, ok := m.index.delete(key)
	if !ok {
		var zero T
		return zero, false
	}
	if m.debugLog {
		slog.Debug("idmap: remove", "key", key, "slot", slot)
	}
	return m.items.dealloc(slot), true
}

// First returns the item with the smallest key.
func (m *OrdMap[K, T]) First() (T, bool) {
	if slot, ok := m.index.min(); ok {
		return m.items.get(slot), true
	}
	var zero T
	return zero, false
}

// Last returns the item with the largest key.
func (m *OrdMap[K, T]) Last() (T, bool) {
	if slot, ok := m.index.max(); ok {
		return m.items.get(slot), true
	}
	var zero T
	return zero, false
}

// PopFirst removes and returns the item with the smallest key.
func (m *OrdMap[K, T]) PopFirst() (T, bool) {
	if slot, ok := m.index.popMin(); ok {
		return m.items.dealloc(slot), true
	}
	var zero T
	return zero, false
}

// PopLast removes and returns the item with the largest key.
func (m *OrdMap[K, T]) PopLast() (T, bool) {
	if slot, ok := m.index.popMax(); ok {
		return m.items.dealloc(slot), true
	}
	var zero T
	return zero, false
}

// GetMut returns a guarded mutable handle to the item stored under key.
// The caller must call Release after mutating; see OrdRef.
func (m *OrdMap[K, T]) GetMut(key K) (*OrdRef[K, T], bool) {
	slot, ok := m.index.find(key)
	if !ok {
		return nil, false
	}
	return &OrdRef[K, T]{m: m, slot: slot, key: key}, true
}

// Mutate runs fn against the item stored under key inside a guarded handle,
// releasing it afterwards. Reports whether the item was found.
func (m *OrdMap[K, T]) Mutate(key K, fn func(item T)) bool {
	ref, ok := m.GetMut(key)
	if !ok {
		return false
	}
	defer ref.Release()
	fn(ref.Item())
	return true
}

// Retain drops every item failing the predicate, in a single scan.
func (m *OrdMap[K, T]) Retain(pred func(item T) bool) {
	m.items.all(func(slot uint32, item T) bool {
		if !pred(item) {
			m.index.delete(item.ItemKey())
			m.items.dealloc(slot)
		}
		return true
	})
}

func (m *OrdMap[K, T]) Clear() {
	m.items.clear()
	m.index.clear()
}

// All iterates over the items in ascending key order. The sequence is lazy
// and single-pass.
func (m *OrdMap[K, T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		m.index.ascend(func(slot uint32) bool {
			return yield(m.items.get(slot))
		})
	}
}

// Keys iterates over the projected keys in ascending order.
func (m *OrdMap[K, T]) Keys() iter.Seq[K] {
	return func(yield func(K) bool) {
		m.index.ascend(func(slot uint32) bool {
			return yield(m.items.get(slot).ItemKey())
		})
	}
}

// Extend inserts the items using the unique policy. Returns the first
// *DuplicateError[T] encountered; earlier items stay.
func (m *OrdMap[K, T]) Extend(items ...T) error {
	m.items.reserve(len(items))
	for _, item := range items {
		if err := m.InsertUnique(item); err != nil {
			return err
		}
	}
	return nil
}

// Reserve guarantees item storage for n more inserts without reallocation.
// The order index does not expose capacity control, so only the item
// storage is pre-sized.
func (m *OrdMap[K, T]) Reserve(n int) {
	m.items.reserve(n)
}

// TryReserve is the fallible reservation path, returning a *CapacityError
// instead of aborting when the slot space cannot accommodate n more items.
func (m *OrdMap[K, T]) TryReserve(n int) error {
	return m.items.tryReserve(n)
}

// ShrinkToFit releases unused item storage.
func (m *OrdMap[K, T]) ShrinkToFit() {
	m.ShrinkTo(0)
}

// ShrinkTo releases item storage beyond n items (or the current length,
// whichever is larger).
func (m *OrdMap[K, T]) ShrinkTo(n int) {
	m.items.shrinkTo(n)
}

// Validate checks the index-storage invariants. The operations above always
// uphold them, but an explicit check is useful in tests.
func (m *OrdMap[K, T]) Validate() error {
	if m.index.len() != m.items.len() {
		return fmt.Errorf("index has %d entries, storage has %d items", m.index.len(), m.items.len())
	}
	var err error
	m.items.all(func(slot uint32, item T) bool {
		found, ok := m.index.find(item.ItemKey())
		if !ok {
			err = fmt.Errorf("item in slot %d is missing from the index", slot)
			return false
		}
		if found != slot {
			err = fmt.Errorf("key of slot %d resolves to slot %d", slot, found)
			return false
		}
		return true
	})
	return err
}

// OrdRef is a guarded mutable handle into an OrdMap item. It captures the
// projected key at acquisition; Release re-projects it and, if it changed,
// re-indexes the item under the new key. A new key colliding with another
// live item is a contract violation and panics.
type OrdRef[K comparable, T Item[K]] struct {
	m    *OrdMap[K, T]
	slot uint32
	key  K
}

// Item returns the referenced item.
func (r *OrdRef[K, T]) Item() T {
	if r.m == nil {
		panic("idmap: use of released OrdRef")
	}
	return r.m.items.get(r.slot)
}

// Release re-validates the item's key and invalidates the handle.
func (r *OrdRef[K, T]) Release() {
	m := r.m
	if m == nil {
		panic("idmap: OrdRef released twice")
	}
	r.m = nil
	newKey := m.items.get(r.slot).ItemKey()
	if m.index.compare(newKey, r.key) == 0 {
		return
	}
	// The tree's position for this slot still reflects the old key, but the
	// item already projects the new one. Pin the old key for the duration of
	// the collision check and removal so navigation stays consistent.
	m.index.pin(r.slot, r.key)
	if other, ok := m.index.find(newKey); ok {
		m.index.unpin()
		panic(fmt.Errorf("idmap: key changed from %v to %v, which collides with the item in slot %d", r.key, newKey, other))
	}
	if _, ok := m.index.delete(r.key); !ok {
		m.index.unpin()
		panic(fmt.Errorf("idmap: item with key %v vanished from the order index", r.key))
	}
	m.index.unpin()
	m.index.insert(newKey, r.slot)
	if m.debugLog {
		slog.Debug("idmap: reindex", "oldKey", r.key, "newKey", newKey, "slot", r.slot)
	}
}
