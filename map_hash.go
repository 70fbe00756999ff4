package idmap

import (
	"fmt"
	"iter"
	"log/slog"
)

// HashMap is a single-key hash map whose key is derived from the stored
// item via Item.ItemKey. T is typically a pointer type.
type HashMap[K comparable, T Item[K]] struct {
	items    itemSet[T]
	table    hashTable
	hasher   Hasher[K]
	debugLog bool
}

// NewHashMap creates an empty HashMap with the default seeded hasher.
func NewHashMap[K comparable, T Item[K]]() *HashMap[K, T] {
	return NewHashMapWithHasher[K, T](NewSeededHasher[K]())
}

// NewHashMapWithHasher creates an empty HashMap using the given hasher.
func NewHashMapWithHasher[K comparable, T Item[K]](h Hasher[K]) *HashMap[K, T] {
	return &HashMap[K, T]{table: makeHashTable(0), hasher: h}
}

// NewHashMapWithCapacity creates an empty HashMap pre-sized for the given
// number of items.
func NewHashMapWithCapacity[K comparable, T Item[K]](capacity int) *HashMap[K, T] {
	return &HashMap[K, T]{
		items:  makeItemSet[T](capacity),
		table:  makeHashTable(capacity),
		hasher: NewSeededHasher[K](),
	}
}

// MustHashMapOf builds a HashMap from literal items, panicking on duplicate
// keys. Meant for compile-time-known data, not untrusted input.
func MustHashMapOf[K comparable, T Item[K]](items ...T) *HashMap[K, T] {
	m := NewHashMapWithCapacity[K, T](len(items))
	ensure(m.Extend(items...))
	return m
}

// CollectHashMap builds a HashMap from a sequence, overwriting earlier
// items on duplicate keys.
func CollectHashMap[K comparable, T Item[K]](seq iter.Seq[T]) *HashMap[K, T] {
	m := NewHashMap[K, T]()
	for item := range seq {
		m.InsertOverwrite(item)
	}
	return m
}

// SetDebugLog enables slog tracing of mutations.
func (m *HashMap[K, T]) SetDebugLog(on bool) {
	m.debugLog = on
}

func (m *HashMap[K, T]) Len() int {
	return m.items.len()
}

func (m *HashMap[K, T]) IsEmpty() bool {
	return m.items.len() == 0
}

// Cap returns the number of items the map can hold without reallocating.
func (m *HashMap[K, T]) Cap() int {
	return m.items.capacity()
}

func (m *HashMap[K, T]) lookup(key K) (uint32, bool) {
	return m.table.find(m.hasher.HashKey(key), func(slot uint32) bool {
		return m.items.get(slot).ItemKey() == key
	})
}

func (m *HashMap[K, T]) Contains(key K) bool {
	_, ok := m.lookup(key)
	return ok
}

func (m *HashMap[K, T]) Get(key K) (T, bool) {
	if slot, ok := m.lookup(key); ok {
		return m.items.get(slot), true
	}
	var zero T
	return zero, false
}

// InsertUnique adds an item, returning a *DuplicateError[T] carrying the
// rejected item if its key is already present. The map is not modified on
// failure.
func (m *HashMap[K, T]) InsertUnique(item T) error {
	key := item.ItemKey()
	if slot, ok := m.lookup(key); ok {
		return &DuplicateError[T]{
			New:        item,
			Duplicates: []T{m.items.get(slot)},
			Slots:      []KeySlot{KeySlot1},
		}
	}
	slot := m.items.alloc(item)
	m.table.insert(m.hasher.HashKey(key), slot)
	if m.debugLog {
		slog.Debug("idmap: insert", "key", key, "slot", slot)
	}
	return nil
}

// InsertOverwrite adds an item, evicting and returning the item previously
// stored under the same key, if any.
func (m *HashMap[K, T]) InsertOverwrite(item T) (old T, replaced bool) {
	old, replaced = m.Remove(item.ItemKey())
	if err := m.InsertUnique(item); err != nil {
		panic(fmt.Errorf("idmap: insert failed after evicting duplicates: %w", err))
	}
	return old, replaced
}

// GetOrInsert returns the item stored under the key projected from item,
// inserting item first if the key is absent. Reports whether the insertion
// happened. Costs a single lookup either way.
func (m *HashMap[K, T]) GetOrInsert(item T) (T, bool) {
	key := item.ItemKey()
	if slot, ok := m.lookup(key); ok {
		return m.items.get(slot), false
	}
	slot := m.items.alloc(item)
	m.table.insert(m.hasher.HashKey(key), slot)
	if m.debugLog {
		slog.Debug("idmap: insert", "key", key, "slot", slot)
	}
	return item, true
}

// GetOrInsertWith returns the item stored under key, constructing and
// inserting one via fn if the key is absent. The constructed item must
// project the given key; anything else is a contract violation and panics.
func (m *HashMap[K, T]) GetOrInsertWith(key K, fn func() T) T {
	if slot, ok := m.lookup(key); ok {
		return m.items.get(slot)
	}
	item := fn()
	if got := item.ItemKey(); got != key {
		panic(fmt.Errorf("idmap: constructed item projects key %v, wanted %v", got, key))
	}
	slot := m.items.alloc(item)
	m.table.insert(m.hasher.HashKey(key), slot)
	if m.debugLog {
		slog.Debug("idmap: insert", "key", key, "slot", slot)
	}
	return item
}

// Remove deletes and returns the item stored under key.
func (m *HashMap[K, T]) Remove(key K) (T, bool) {
	slot, ok := m.lookup(key)
	if !ok {
		var zero T
		return zero, false
	}
	m.table.remove(m.hasher.HashKey(key), slot)
	if m.debugLog {
		slog.Debug("idmap: remove", "key", key, "slot", slot)
	}
	return m.items.dealloc(slot), true
}

// GetMut returns a guarded mutable handle to the item stored under key.
// The caller must call Release after mutating; see Ref.
func (m *HashMap[K, T]) GetMut(key K) (*Ref[K, T], bool) {
	slot, ok := m.lookup(key)
	if !ok {
		return nil, false
	}
	return &Ref[K, T]{m: m, slot: slot, key: key}, true
}

// Mutate runs fn against the item stored under key inside a guarded handle,
// releasing it afterwards. Reports whether the item was found.
func (m *HashMap[K, T]) Mutate(key K, fn func(item T)) bool {
	ref, ok := m.GetMut(key)
	if !ok {
		return false
	}
	defer ref.Release()
	fn(ref.Item())
	return true
}

// Retain drops every item failing the predicate, in a single scan.
func (m *HashMap[K, T]) Retain(pred func(item T) bool) {
	m.items.all(func(slot uint32, item T) bool {
		if !pred(item) {
			m.table.remove(m.hasher.HashKey(item.ItemKey()), slot)
			m.items.dealloc(slot)
		}
		return true
	})
}

func (m *HashMap[K, T]) Clear() {
	m.items.clear()
	m.table.clear()
}

// All iterates over the items. The order is unspecified but stable while
// the map is not mutated. The sequence is lazy and single-pass.
func (m *HashMap[K, T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		m.items.all(func(_ uint32, item T) bool {
			return yield(item)
		})
	}
}

// Keys iterates over the projected keys, in the same order as All.
func (m *HashMap[K, T]) Keys() iter.Seq[K] {
	return func(yield func(K) bool) {
		m.items.all(func(_ uint32, item T) bool {
			return yield(item.ItemKey())
		})
	}
}

// Extend inserts the items using the unique policy, pre-sizing the map.
// Returns the first *DuplicateError[T] encountered; earlier items stay.
func (m *HashMap[K, T]) Extend(items ...T) error {
	m.Reserve(len(items))
	for _, item := range items {
		if err := m.InsertUnique(item); err != nil {
			return err
		}
	}
	return nil
}

// Reserve guarantees capacity for n more inserts without reallocation.
func (m *HashMap[K, T]) Reserve(n int) {
	m.items.reserve(n)
	m.table.reserve(n)
}

// TryReserve is the fallible reservation path, returning a *CapacityError
// instead of aborting when the slot space cannot accommodate n more items.
func (m *HashMap[K, T]) TryReserve(n int) error {
	if err := m.items.tryReserve(n); err != nil {
		return err
	}
	return m.table.tryReserve(n)
}

// ShrinkToFit releases unused capacity.
func (m *HashMap[K, T]) ShrinkToFit() {
	m.ShrinkTo(0)
}

// ShrinkTo releases capacity beyond n items (or the current length,
// whichever is larger).
func (m *HashMap[K, T]) ShrinkTo(n int) {
	m.items.shrinkTo(n)
	m.table.shrinkTo(n)
}

// Validate checks the index-storage invariants. The operations above always
// uphold them, but an explicit check is useful in tests.
func (m *HashMap[K, T]) Validate() error {
	if m.table.len() != m.items.len() {
		return fmt.Errorf("index has %d entries, storage has %d items", m.table.len(), m.items.len())
	}
	var err error
	m.items.all(func(slot uint32, item T) bool {
		found, ok := m.lookup(item.ItemKey())
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

// Ref is a guarded mutable handle into a HashMap item. It captures the
// projected key at acquisition; Release re-projects it and, if it changed,
// re-indexes the item under the new key. A new key colliding with another
// live item is a contract violation and panics — the map is never left
// silently inconsistent.
type Ref[K comparable, T Item[K]] struct {
	m    *HashMap[K, T]
	slot uint32
	key  K
}

// Item returns the referenced item.
func (r *Ref[K, T]) Item() T {
	if r.m == nil {
		panic("idmap: use of released Ref")
	}
	return r.m.items.get(r.slot)
}

// Release re-validates the item's key and invalidates the handle.
func (r *Ref[K, T]) Release() {
	m := r.m
	if m == nil {
		panic("idmap: Ref released twice")
	}
	r.m = nil
	newKey := m.items.get(r.slot).ItemKey()
	if newKey == r.key {
		return
	}
	if other, ok := m.table.find(m.hasher.HashKey(newKey), func(slot uint32) bool {
		return slot != r.slot && m.items.get(slot).ItemKey() == newKey
	}); ok {
		panic(fmt.Errorf("idmap: key changed from %v to %v, which collides with the item in slot %d", r.key, newKey, other))
	}
	m.table.remove(m.hasher.HashKey(r.key), r.slot)
	m.table.insert(m.hasher.HashKey(newKey), r.slot)
	if m.debugLog {
		slog.Debug("idmap: reindex", "oldKey", r.key, "newKey", newKey, "slot", r.slot)
	}
}
