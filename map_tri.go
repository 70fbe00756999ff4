package idmap

import (
	"fmt"
	"iter"
	"log/slog"
	"slices"
)

// TriMap is a three-key hash map whose keys are derived from the stored
// item via TriItem. All three keys are individually unique across all
// items, so the map maintains a trijective (1:1:1) correspondence between
// the three key spaces. T is typically a pointer type.
type TriMap[K1, K2, K3 comparable, T TriItem[K1, K2, K3]] struct {
	items    itemSet[T]
	table1   hashTable
	table2   hashTable
	table3   hashTable
	hasher1  Hasher[K1]
	hasher2  Hasher[K2]
	hasher3  Hasher[K3]
	debugLog bool
}

// NewTriMap creates an empty TriMap with the default seeded hashers.
func NewTriMap[K1, K2, K3 comparable, T TriItem[K1, K2, K3]]() *TriMap[K1, K2, K3, T] {
	return NewTriMapWithHashers[K1, K2, K3, T](
		NewSeededHasher[K1](), NewSeededHasher[K2](), NewSeededHasher[K3]())
}

// NewTriMapWithHashers creates an empty TriMap using the given hashers.
func NewTriMapWithHashers[K1, K2, K3 comparable, T TriItem[K1, K2, K3]](h1 Hasher[K1], h2 Hasher[K2], h3 Hasher[K3]) *TriMap[K1, K2, K3, T] {
	return &TriMap[K1, K2, K3, T]{
		table1:  makeHashTable(0),
		table2:  makeHashTable(0),
		table3:  makeHashTable(0),
		hasher1: h1,
		hasher2: h2,
		hasher3: h3,
	}
}

// NewTriMapWithCapacity creates an empty TriMap pre-sized for the given
// number of items.
func NewTriMapWithCapacity[K1, K2, K3 comparable, T TriItem[K1, K2, K3]](capacity int) *TriMap[K1, K2, K3, T] {
	return &TriMap[K1, K2, K3, T]{
		items:   makeItemSet[T](capacity),
		table1:  makeHashTable(capacity),
		table2:  makeHashTable(capacity),
		table3:  makeHashTable(capacity),
		hasher1: NewSeededHasher[K1](),
		hasher2: NewSeededHasher[K2](),
		hasher3: NewSeededHasher[K3](),
	}
}

// MustTriMapOf builds a TriMap from literal items, panicking on duplicate
// keys. Meant for compile-time-known data, not untrusted input.
func MustTriMapOf[K1, K2, K3 comparable, T TriItem[K1, K2, K3]](items ...T) *TriMap[K1, K2, K3, T] {
	m := NewTriMapWithCapacity[K1, K2, K3, T](len(items))
	ensure(m.Extend(items...))
	return m
}

// CollectTriMap builds a TriMap from a sequence, overwriting earlier items
// on duplicate keys.
func CollectTriMap[K1, K2, K3 comparable, T TriItem[K1, K2, K3]](seq iter.Seq[T]) *TriMap[K1, K2, K3, T] {
	m := NewTriMap[K1, K2, K3, T]()
	for item := range seq {
		m.InsertOverwrite(item)
	}
	return m
}

// SetDebugLog enables slog tracing of mutations.
func (m *TriMap[K1, K2, K3, T]) SetDebugLog(on bool) {
	m.debugLog = on
}

func (m *TriMap[K1, K2, K3, T]) Len() int {
	return m.items.len()
}

func (m *TriMap[K1, K2, K3, T]) IsEmpty() bool {
	return m.items.len() == 0
}

// Cap returns the number of items the map can hold without reallocating.
func (m *TriMap[K1, K2, K3, T]) Cap() int {
	return m.items.capacity()
}

func (m *TriMap[K1, K2, K3, T]) lookup1(key K1) (uint32, bool) {
	return m.table1.find(m.hasher1.HashKey(key), func(slot uint32) bool {
		return m.items.get(slot).Key1() == key
	})
}

func (m *TriMap[K1, K2, K3, T]) lookup2(key K2) (uint32, bool) {
	return m.table2.find(m.hasher2.HashKey(key), func(slot uint32) bool {
		return m.items.get(slot).Key2() == key
	})
}

func (m *TriMap[K1, K2, K3, T]) lookup3(key K3) (uint32, bool) {
	return m.table3.find(m.hasher3.HashKey(key), func(slot uint32) bool {
		return m.items.get(slot).Key3() == key
	})
}

func (m *TriMap[K1, K2, K3, T]) Contains1(key K1) bool {
	_, ok := m.lookup1(key)
	return ok
}

func (m *TriMap[K1, K2, K3, T]) Contains2(key K2) bool {
	_, ok := m.lookup2(key)
	return ok
}

func (m *TriMap[K1, K2, K3, T]) Contains3(key K3) bool {
	_, ok := m.lookup3(key)
	return ok
}

func (m *TriMap[K1, K2, K3, T]) Get1(key K1) (T, bool) {
	if slot, ok := m.lookup1(key); ok {
		return m.items.get(slot), true
	}
	var zero T
	return zero, false
}

func (m *TriMap[K1, K2, K3, T]) Get2(key K2) (T, bool) {
	if slot, ok := m.lookup2(key); ok {
		return m.items.get(slot), true
	}
	var zero T
	return zero, false
}

func (m *TriMap[K1, K2, K3, T]) Get3(key K3) (T, bool) {
	if slot, ok := m.lookup3(key); ok {
		return m.items.get(slot), true
	}
	var zero T
	return zero, false
}

// InsertUnique adds an item, returning a *DuplicateError[T] if any of the
// three keys is already present. All keys are validated before any index is
// touched, so the map is not modified on failure.
func (m *TriMap[K1, K2, K3, T]) InsertUnique(item T) error {
	key1, key2, key3 := item.Key1(), item.Key2(), item.Key3()
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
	if s, ok := m.lookup3(key3); ok {
		if !slices.Contains(dupSlots, s) {
			dupSlots = append(dupSlots, s)
		}
		slots = append(slots, KeySlot3)
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
	m.table3.insert(m.hasher3.HashKey(key3), slot)
	if m.debugLog {
		slog.Debug("idmap: insert", "key1", key1, "key2", key2, "key3", key3, "slot", slot)
	}
	return nil
}

// InsertOverwrite adds an item, evicting and returning every item occupying
// any of its three keys. If the keys straddle previously independent items,
// up to three distinct items are evicted.
func (m *TriMap[K1, K2, K3, T]) InsertOverwrite(item T) []T {
	var displaced []T
	if old, ok := m.Remove1(item.Key1()); ok {
		displaced = append(displaced, old)
	}
	if old, ok := m.Remove2(item.Key2()); ok {
		displaced = append(displaced, old)
	}
	if old, ok := m.Remove3(item.Key3()); ok {
		displaced = append(displaced, old)
	}
	if err := m.InsertUnique(item); err != nil {
		panic(fmt.Errorf("idmap: insert failed after evicting duplicates: %w", err))
	}
	return displaced
}

func (m *TriMap[K1, K2, K3, T]) removeSlot(slot uint32) T {
	item := m.items.get(slot)
	m.table1.remove(m.hasher1.HashKey(item.Key1()), slot)
	m.table2.remove(m.hasher2.HashKey(item.Key2()), slot)
	m.table3.remove(m.hasher3.HashKey(item.Key3()), slot)
	if m.debugLog {
		slog.Debug("idmap: remove", "key1", item.Key1(), "key2", item.Key2(), "key3", item.Key3(), "slot", slot)
	}
	return m.items.dealloc(slot)
}

// Remove1 deletes and returns the item stored under key1.
func (m *TriMap[K1, K2, K3, T]) Remove1(key K1) (T, bool) {
	slot, ok := m.lookup1(key)
	if !ok {
		var zero T
		return zero, false
	}
	return m.removeSlot(slot), true
}

// Remove2 deletes and returns the item stored under key2.
func (m *TriMap[K1, K2, K3, T]) Remove2(key K2) (T, bool) {
	slot, ok := m.lookup2(key)
	if !ok {
		var zero T
		return zero, false
	}
	return m.removeSlot(slot), true
}

// Remove3 deletes and returns the item stored under key3.
func (m *TriMap[K1, K2, K3, T]) Remove3(key K3) (T, bool) {
	slot, ok := m.lookup3(key)
	if !ok {
		var zero T
		return zero, false
	}
	return m.removeSlot(slot), true
}

// RemoveUnique deletes the item only if a single item owns all three given
// keys, asserting full identity before deleting.
func (m *TriMap[K1, K2, K3, T]) RemoveUnique(key1 K1, key2 K2, key3 K3) (T, bool) {
	s1, ok1 := m.lookup1(key1)
	s2, ok2 := m.lookup2(key2)
	s3, ok3 := m.lookup3(key3)
	if !ok1 || !ok2 || !ok3 || s1 != s2 || s1 != s3 {
		var zero T
		return zero, false
	}
	return m.removeSlot(s1), true
}

// GetMut1 returns a guarded mutable handle to the item stored under key1.
// The caller must call Release after mutating; see TriRef.
func (m *TriMap[K1, K2, K3, T]) GetMut1(key K1) (*TriRef[K1, K2, K3, T], bool) {
	slot, ok := m.lookup1(key)
	if !ok {
		return nil, false
	}
	return m.refAt(slot), true
}

// GetMut2 returns a guarded mutable handle to the item stored under key2.
func (m *TriMap[K1, K2, K3, T]) GetMut2(key K2) (*TriRef[K1, K2, K3, T], bool) {
	slot, ok := m.lookup2(key)
	if !ok {
		return nil, false
	}
	return m.refAt(slot), true
}

// GetMut3 returns a guarded mutable handle to the item stored under key3.
func (m *TriMap[K1, K2, K3, T]) GetMut3(key K3) (*TriRef[K1, K2, K3, T], bool) {
	slot, ok := m.lookup3(key)
	if !ok {
		return nil, false
	}
	return m.refAt(slot), true
}

func (m *TriMap[K1, K2, K3, T]) refAt(slot uint32) *TriRef[K1, K2, K3, T] {
	item := m.items.get(slot)
	return &TriRef[K1, K2, K3, T]{
		m:    m,
		slot: slot,
		key1: item.Key1(),
		key2: item.Key2(),
		key3: item.Key3(),
	}
}

// Mutate1 runs fn against the item stored under key1 inside a guarded
// handle, releasing it afterwards. Reports whether the item was found.
func (m *TriMap[K1, K2, K3, T]) Mutate1(key K1, fn func(item T)) bool {
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
func (m *TriMap[K1, K2, K3, T]) Mutate2(key K2, fn func(item T)) bool {
	ref, ok := m.GetMut2(key)
	if !ok {
		return false
	}
	defer ref.Release()
	fn(ref.Item())
	return true
}

// Mutate3 runs fn against the item stored under key3 inside a guarded
// handle, releasing it afterwards. Reports whether the item was found.
func (m *TriMap[K1, K2, K3, T]) Mutate3(key K3, fn func(item T)) bool {
	ref, ok := m.GetMut3(key)
	if !ok {
		return false
	}
	defer ref.Release()
	fn(ref.Item())
	return true
}

// Retain drops every item failing the predicate, in a single scan.
func (m *TriMap[K1, K2, K3, T]) Retain(pred func(item T) bool) {
	m.items.all(func(slot uint32, item T) bool {
		if !pred(item) {
			m.removeSlot(slot)
		}
		return true
	})
}

func (m *TriMap[K1, K2, K3, T]) Clear() {
	m.items.clear()
	m.table1.clear()
	m.table2.clear()
	m.table3.clear()
}

// All iterates over the items. The order is unspecified but stable while
// the map is not mutated. The sequence is lazy and single-pass.
func (m *TriMap[K1, K2, K3, T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		m.items.all(func(_ uint32, item T) bool {
			return yield(item)
		})
	}
}

// Keys1 iterates over the projected first keys, in the same order as All.
func (m *TriMap[K1, K2, K3, T]) Keys1() iter.Seq[K1] {
	return func(yield func(K1) bool) {
		m.items.all(func(_ uint32, item T) bool {
			return yield(item.Key1())
		})
	}
}

// Keys2 iterates over the projected second keys, in the same order as All.
func (m *TriMap[K1, K2, K3, T]) Keys2() iter.Seq[K2] {
	return func(yield func(K2) bool) {
		m.items.all(func(_ uint32, item T) bool {
			return yield(item.Key2())
		})
	}
}

// Keys3 iterates over the projected third keys, in the same order as All.
func (m *TriMap[K1, K2, K3, T]) Keys3() iter.Seq[K3] {
	return func(yield func(K3) bool) {
		m.items.all(func(_ uint32, item T) bool {
			return yield(item.Key3())
		})
	}
}

// Extend inserts the items using the unique policy, pre-sizing the map.
// Returns the first *DuplicateError[T] encountered; earlier items stay.
func (m *TriMap[K1, K2, K3, T]) Extend(items ...T) error {
	m.Reserve(len(items))
	for _, item := range items {
		if err := m.InsertUnique(item); err != nil {
			return err
		}
	}
	return nil
}

// Reserve guarantees capacity for n more inserts without reallocation.
func (m *TriMap[K1, K2, K3, T]) Reserve(n int) {
	m.items.reserve(n)
	m.table1.reserve(n)
	m.table2.reserve(n)
	m.table3.reserve(n)
}

// TryReserve is the fallible reservation path, returning a *CapacityError
// instead of aborting when the slot space cannot accommodate n more items.
func (m *TriMap[K1, K2, K3, T]) TryReserve(n int) error {
	if err := m.items.tryReserve(n); err != nil {
		return err
	}
	if err := m.table1.tryReserve(n); err != nil {
		return err
	}
	if err := m.table2.tryReserve(n); err != nil {
		return err
	}
	return m.table3.tryReserve(n)
}

// ShrinkToFit releases unused capacity.
func (m *TriMap[K1, K2, K3, T]) ShrinkToFit() {
	m.ShrinkTo(0)
}

// ShrinkTo releases capacity beyond n items (or the current length,
// whichever is larger).
func (m *TriMap[K1, K2, K3, T]) ShrinkTo(n int) {
	m.items.shrinkTo(n)
	m.table1.shrinkTo(n)
	m.table2.shrinkTo(n)
	m.table3.shrinkTo(n)
}

// Validate checks the index-storage invariants across all three indexes.
// The operations above always uphold them, but an explicit check is useful
// in tests.
func (m *TriMap[K1, K2, K3, T]) Validate() error {
	for i, n := range []int{m.table1.len(), m.table2.len(), m.table3.len()} {
		if n != m.items.len() {
			return fmt.Errorf("%v index has %d entries, storage has %d items", KeySlot(i+1), n, m.items.len())
		}
	}
	var err error
	m.items.all(func(slot uint32, item T) bool {
		s1, ok1 := m.lookup1(item.Key1())
		s2, ok2 := m.lookup2(item.Key2())
		s3, ok3 := m.lookup3(item.Key3())
		if !ok1 || !ok2 || !ok3 {
			err = fmt.Errorf("item in slot %d is missing from an index", slot)
			return false
		}
		if s1 != slot || s2 != slot || s3 != slot {
			err = fmt.Errorf("keys of slot %d resolve to slots %d/%d/%d", slot, s1, s2, s3)
			return false
		}
		return true
	})
	return err
}

// TriRef is a guarded mutable handle into a TriMap item. It captures all
// three projected keys at acquisition; Release re-projects them and
// re-indexes any that changed. A new key colliding with another live item
// is a contract violation and panics.
type TriRef[K1, K2, K3 comparable, T TriItem[K1, K2, K3]] struct {
	m    *TriMap[K1, K2, K3, T]
	slot uint32
	key1 K1
	key2 K2
	key3 K3
}

// Item returns the referenced item.
func (r *TriRef[K1, K2, K3, T]) Item() T {
	if r.m == nil {
		panic("idmap: use of released TriRef")
	}
	return r.m.items.get(r.slot)
}

// Release re-validates the item's keys and invalidates the handle.
func (r *TriRef[K1, K2, K3, T]) Release() {
	m := r.m
	if m == nil {
		panic("idmap: TriRef released twice")
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
	if newKey := item.Key3(); newKey != r.key3 {
		if other, ok := m.table3.find(m.hasher3.HashKey(newKey), func(slot uint32) bool {
			return slot != r.slot && m.items.get(slot).Key3() == newKey
		}); ok {
			panic(fmt.Errorf("idmap: key3 changed from %v to %v, which collides with the item in slot %d", r.key3, newKey, other))
		}
		m.table3.remove(m.hasher3.HashKey(r.key3), r.slot)
		m.table3.insert(m.hasher3.HashKey(newKey), r.slot)
	}
}
