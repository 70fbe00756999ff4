package idmap

import (
	"fmt"
	"iter"
	"log/slog"
	"slices"
)

// BiMap is a two-key hash map whose keys are derived from the stored item
// via BiItem. Both keys are individually unique across all items, so the
// map maintains a bijective (1:1) correspondence between the two key
// spaces. T is typically a pointer type.
type BiMap[K1, K2 comparable, T BiItem[K1, K2]] struct {
	items    itemSet[T]
	table1   hashTable
	table2   hashTable
	hasher1  Hasher[K1]
	hasher2  Hasher[K2]
	debugLog bool
}

// NewBiMap creates an empty BiMap with the default seeded hashers.
func NewBiMap[K1, K2 comparable, T BiItem[K1, K2]]() *BiMap[K1, K2, T] {
	return NewBiMapWithHashers[K1, K2, T](NewSeededHasher[K1](), NewSeededHasher[K2]())
}

// NewBiMapWithHashers creates an empty BiMap using the given hashers.
func NewBiMapWithHashers[K1, K2 comparable, T BiItem[K1, K2]](h1 Hasher[K1], h2 Hasher[K2]) *BiMap[K1, K2, T] {
	return &BiMap[K1, K2, T]{
		table1:  makeHashTable(0),
		table2:  makeHashTable(0),
		hasher1: h1,
		hasher2: h2,
	}
}

// NewBiMapWithCapacity creates an empty BiMap pre-sized for the given
// number of items.
func NewBiMapWithCapacity[K1, K2 comparable, T BiItem[K1, K2]](capacity int) *BiMap[K1, K2, T] {
	return &BiMap[K1, K2, T]{
		items:   makeItemSet[T](capacity),
		table1:  makeHashTable(capacity),
		table2:  makeHashTable(capacity),
		hasher1: NewSeededHasher[K1](),
		hasher2: NewSeededHasher[K2](),
	}
}

// MustBiMapOf builds a BiMap from literal items, panicking on duplicate
// keys. Meant for compile-time-known data, not untrusted input.
func MustBiMapOf[K1, K2 comparable, T BiItem[K1, K2]](items ...T) *BiMap[K1, K2, T] {
	m := NewBiMapWithCapacity[K1, K2, T](len(items))
	ensure(m.Extend(items...))
	return m
}

// CollectBiMap builds a BiMap from a sequence, overwriting earlier items on
// duplicate keys.
func CollectBiMap[K1, K2 comparable, T BiItem[K1, K2]](seq iter.Seq[T]) *BiMap[K1, K2, T] {
	m := NewBiMap[K1, K2, T]()
	for item := range seq {
		m.InsertOverwrite(item)
	}
	return m
}

// SetDebugLog enables slog tracing of mutations.
func (m *BiMap[K1, K2, T]) SetDebugLog(on bool) {
	m.debugLog = on
}

func (m *BiMap[K1, K2, T]) Len() int {
	return m.items.len()
}

func (m *BiMap[K1, K2, T]) IsEmpty() bool {
	return m.items.len() == 0
}

// Cap returns the number of items the map can hold without reallocating.
func (m *BiMap[K1, K2, T]) Cap() int {
	return m.items.capacity()
}

func (m *BiMap[K1, K2, T]) lookup1(key K1) (uint32, bool) {
	return m.table1.find(m.hasher1.HashKey(key), func(slot uint32) bool {
		return m.items.get(slot).Key1() == key
	})
}

func (m *BiMap[K1, K2, T]) lookup2(key K2) (uint32, bool) {
	return m.table2.find(m.hasher2.HashKey(key), func(slot uint32) bool {
		return m.items.get(slot).Key2() == key
	})
}

func (m *BiMap[K1, K2, T]) Contains1(key K1) bool {
	_, ok := m.lookup1(key)
	return ok
}

func (m *BiMap[K1, K2, T]) Contains2(key K2) bool {
	_, ok := m.lookup2(key)
	return ok
}

func (m *BiMap[K1, K2, T]) Get1(key K1) (T, bool) {
	if slot, ok := m.lookup1(key); ok {
		return m.items.get(slot), true
	}
	var zero T
	return zero, false
}

func (m *BiMap[K1, K2, T]) Get2(key K2) (T, bool) {
	if slot, ok := m.lookup2(key); ok {
		return m.items.get(slot), true
	}
	var zero T
	return zero, false
}

// InsertUnique adds an item, returning a *DuplicateError[T] if either key
// is already present. All keys are validated before any index is touched,
// so the map is not modified on failure.
func (m *BiMap[K1, K2, T]) InsertUnique(item T) error {
	key1, key2 := item.Key1(), item.Key2()
	var dupSlots []uint32
	var slots []KeySlot
	if s, ok := m.lookup1(key1); ok {
		dupSlots = append(dupSlots, s)
		slots = append(slots, KeySlot1)
	}
	if s, ok := m.lookup2(key2); ok {
		if !slices.Contains(dupSlots, s) {
			dupSlots = append(dupSlots, s)
		}
		slots = append(slots, KeySlot2)
	}
	if len(slots) > 0 {
		dups := make([]T, len(dupSlots))
		for i, s := range dupSlots {
			dups[i] = m.items.get(s)
		}
		return &DuplicateError[T]{New: item, Duplicates: dups, Slots: slots}
	}
	slot := m.items.alloc(item)
	m.table1.insert(m.hasher1.HashKey(key1), slot)
	m.table2.insert(m.hasher2.HashKey(key2), slot)
	if m.debugLog {
		slog.Debug("idmap: insert", "key1", key1, "key2", key2, "slot", slot)
	}
	return nil
}

// InsertOverwrite adds an item, evicting and returning every item occupying
// either of its keys. If the keys straddle two previously independent
// items, both are evicted.
func (m *BiMap[K1, K2, T]) InsertOverwrite(item T) []T {
	var displaced []T
	if old, ok := m.Remove1(item.Key1()); ok {
		displaced = append(displaced, old)
	}
	if old, ok := m.Remove2(item.Key2()); ok {
		displaced = append(displaced, old)
	}
	if err := m.InsertUnique(item); err != nil {
		panic(fmt.Errorf("idmap: insert failed after evicting duplicates: %w", err))
	}
	return displaced
}

func (m *BiMap[K1, K2, T]) removeSlot(slot uint32) T {
	item := m.items.get(slot)
	m.table1.remove(m.hasher1.HashKey(item.Key1()), slot)
	m.table2.remove(m.hasher2.HashKey(item.Key2()), slot)
	if m.debugLog {
		slog.Debug("idmap: remove", "key1", item.Key1(), "key2", item.Key2(), "slot", slot)
	}
	return m.items.dealloc(slot)
}

// Remove1 deletes and returns the item stored under key1.
func (m *BiMap[K1, K2, T]) Remove1(key K1) (T, bool) {
	slot, ok := m.lookup1(key)
	if !ok {
		var zero T
		return zero, false
	}
	return m.removeSlot(slot), true
}

// Remove2 deletes and returns the item stored under key2.
func (m *BiMap[K1, K2, T]) Remove2(key K2) (T, bool) {
	slot, ok := m.lookup2(key)
	if !ok {
		var zero T
		return zero, false
	}
	return m.removeSlot(slot), true
}

// RemoveUnique deletes the item only if a single item owns both given keys,
// asserting full identity before deleting.
func (m *BiMap[K1, K2, T]) RemoveUnique(key1 K1, key2 K2) (T, bool) {
	s1, ok1 := m.lookup1(key1)
	s2, ok2 := m.lookup2(key2)
	if !ok1 || !ok2 || s1 != s2 {
		var zero T
		return zero, false
	}
	return m.removeSlot(s1), true
}

// GetMut1 returns a guarded mutable handle to the item stored under key1.
// The caller must call Release after mutating; see BiRef.
func (m *BiMap[K1, K2, T]) GetMut1(key K1) (*BiRef[K1, K2, T], bool) {
	slot, ok := m.lookup1(key)
	if !ok {
		return nil, false
	}
	return m.refAt(slot), true
}

// GetMut2 returns a guarded mutable handle to the item stored under key2.
func (m *BiMap[K1, K2, T]) GetMut2(key K2) (*BiRef[K1, K2, T], bool) {
	slot, ok := m.lookup2(key)
	if !ok {
		return nil, false
	}
	return m.refAt(slot), true
}

func (m *BiMap[K1, K2, T]) refAt(slot uint32) *BiRef[K1, K2, T] {
	item := m.items.get(slot)
	return &BiRef[K1, K2, T]{m: m, slot: slot, key1: item.Key1(), key2: item.Key2()}
}

// Mutate1 runs fn against the item stored under key1 inside a guarded
// handle, releasing it afterwards. Reports whether the item was found.
func (m *BiMap[K1, K2, T]) Mutate1(key K1, fn func(item T)) bool {
	ref, ok := m.GetMut1(key)
	if !ok {
		return false
	}
	defer ref.Release()
	fn(ref.Item())
	return true
}

// Mutate2 runs fn against the item stored under key2 inside a guarded
// handle, releasing it afterwards. Reports whether the item was found.
func (m *BiMap[K1, K2, T]) Mutate2(key K2, fn func(item T)) bool {
	ref, ok := m.GetMut2(key)
	if !ok {
		return false
	}
	defer ref.Release()
	fn(ref.Item())
	return true
}

// Retain drops every item failing the predicate, in a single scan.
func (m *BiMap[K1, K2, T]) Retain(pred func(item T) bool) {
	m.items.all(func(slot uint32, item T) bool {
		if !pred(item) {
			m.removeSlot(slot)
		}
		return true
	})
}

func (m *BiMap[K1, K2, T]) Clear() {
	m.items.clear()
	m.table1.clear()
	m.table2.clear()
}

// All iterates over the items. The order is unspecified but stable while
// the map is not mutated. The sequence is lazy and single-pass.
func (m *BiMap[K1, K2, T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		m.items.all(func(_ uint32, item T) bool {
			return yield(item)
		})
	}
}

// Keys1 iterates over the projected first keys, in the same order as All.
func (m *BiMap[K1, K2, T]) Keys1() iter.Seq[K1] {
	return func(yield func(K1) bool) {
		m.items.all(func(_ uint32, item T) bool {
			return yield(item.Key1())
		})
	}
}

// Keys2 iterates over the projected second keys, in the same order as All.
func (m *BiMap[K1, K2, T]) Keys2() iter.Seq[K2] {
	return func(yield func(K2) bool) {
		m.items.all(func(_ uint32, item T) bool {
			return yield(item.Key2())
		})
	}
}

// Extend inserts the items using the unique policy, pre-sizing the map.
// Returns the first *DuplicateError[T] encountered; earlier items stay.
func (m *BiMap[K1, K2, T]) Extend(items ...T) error {
	m.Reserve(len(items))
	for _, item := range items {
		if err := m.InsertUnique(item); err != nil {
			return err
		}
	}
	return nil
}

// Reserve guarantees capacity for n more inserts without reallocation.
func (m *BiMap[K1, K2, T]) Reserve(n int) {
	m.items.reserve(n)
	m.table1.reserve(n)
	m.table2.reserve(n)
}

// TryReserve is the fallible reservation path, returning a *CapacityError
// instead of aborting when the slot space cannot accommodate n more items.
func (m *BiMap[K1, K2, T]) TryReserve(n int) error {
	if err := m.items.tryReserve(n); err != nil {
		return err
	}
	if err := m.table1.tryReserve(n); err != nil {
		return err
	}
	return m.table2.tryReserve(n)
}

// ShrinkToFit releases unused capacity.
func (m *BiMap[K1, K2, T]) ShrinkToFit() {
	m.ShrinkTo(0)
}

// ShrinkTo releases capacity beyond n items (or the current length,
// whichever is larger).
func (m *BiMap[K1, K2, T]) ShrinkTo(n int) {
	m.items.shrinkTo(n)
	m.table1.shrinkTo(n)
	m.table2.shrinkTo(n)
}

// Validate checks the index-storage invariants across both indexes. The
// operations above always uphold them, but an explicit check is useful in
// tests.
func (m *BiMap[K1, K2, T]) Validate() error {
	if m.table1.len() != m.items.len() {
		return fmt.Errorf("key1 index has %d entries, storage has %d items", m.table1.len(), m.items.len())
	}
	if m.table2.len() != m.items.len() {
		return fmt.Errorf("key2 index has %d entries, storage has %d items", m.table2.len(), m.items.len())
	}
	var err error
	m.items.all(func(slot uint32, item T) bool {
		s1, ok1 := m.lookup1(item.Key1())
		s2, ok2 := m.lookup2(item.Key2())
		if !ok1 || !ok2 {
			err = fmt.Errorf("item in slot %d is missing from an index", slot)
			return false
		}
		if s1 != slot || s2 != slot {
			err = fmt.Errorf("keys of slot %d resolve to slots %d/%d", slot, s1, s2)
			return false
		}
		return true
	})
	return err
}

// BiRef is a guarded mutable handle into a BiMap item. It captures both
// projected keys at acquisition; Release re-projects them and re-indexes
// any that changed. A new key colliding with another live item is a
// contract violation and panics.
type BiRef[K1, K2 comparable, T BiItem[K1, K2]] struct {
	m    *BiMap[K1, K2, T]
	slot uint32
	key1 K1
	key2 K2
}

// Item returns the referenced item.
func (r *BiRef[K1, K2, T]) Item() T {
	if r.m == nil {
		panic("idmap: use of released BiRef")
	}
	return r.m.items.get(r.slot)
}

// Release re-validates the item's keys and invalidates the handle.
func (r *BiRef[K1, K2, T]) Release() {
	m := r.m
	if m == nil {
		panic("idmap: BiRef released twice")
	}
	r.m = nil
	item := m.items.get(r.slot)
	if newKey := item.Key1(); newKey != r.key1 {
		if other, ok := m.table1.find(m.hasher1.HashKey(newKey), func(slot uint32) bool {
			return slot != r.slot && m.items.get(slot).Key1() == newKey
		}); ok {
			panic(fmt.Errorf("idmap: key1 changed from %v to %v, which collides with the item in slot %d", r.key1, newKey, other))
		}
		m.table1.remove(m.hasher1.HashKey(r.key1), r.slot)
		m.table1.insert(m.hasher1.HashKey(newKey), r.slot)
	}
	if newKey := item.Key2(); newKey != r.key2 {
		if other, ok := m.table2.find(m.hasher2.HashKey(newKey), func(slot uint32) bool {
			return slot != r.slot && m.items.get(slot).Key2() == newKey
		}); ok {
			panic(fmt.Errorf("idmap: key2 changed from %v to %v, which collides with the item in slot %d", r.key2, newKey, other))
		}
		m.table2.remove(m.hasher2.HashKey(r.key2), r.slot)
		m.table2.insert(m.hasher2.HashKey(newKey), r.slot)
	}
}
