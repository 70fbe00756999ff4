package idmap

import (
	"fmt"
	"math"
	"slices"
)

// maxSlots bounds the slot space; slot references are 32-bit so that index
// entries stay compact.
const maxSlots = math.MaxUint32 - 1

// itemSet is the backing store of a map's items. Every item occupies a
// slot; the slot index stays valid for the item's entire lifetime in the
// map, independent of other insertions and removals. A freed slot is only
// recycled after every index entry referring to it is gone, which the map
// engines guarantee by removing index entries before deallocating.
type itemSet[T any] struct {
	slots []itemSlot[T]
	free  []uint32
	count int
}

type itemSlot[T any] struct {
	item T
	live bool
}

func makeItemSet[T any](capacity int) itemSet[T] {
	var s itemSet[T]
	if capacity > 0 {
		s.slots = make([]itemSlot[T], 0, capacity)
	}
	return s
}

func (s *itemSet[T]) len() int {
	return s.count
}

func (s *itemSet[T]) capacity() int {
	return cap(s.slots)
}

func (s *itemSet[T]) spare() int {
	return cap(s.slots) - len(s.slots) + len(s.free)
}

func (s *itemSet[T]) alloc(item T) uint32 {
	if n := len(s.free); n > 0 {
		slot := s.free[n-1]
		s.free = s.free[:n-1]
		s.slots[slot] = itemSlot[T]{item: item, live: true}
		s.count++
		return slot
	}
	if len(s.slots) >= maxSlots {
		panic(fmt.Errorf("idmap: slot space exhausted (%d slots)", len(s.slots)))
	}
	s.slots = append(s.slots, itemSlot[T]{item: item, live: true})
	s.count++
	return uint32(len(s.slots) - 1)
}

func (s *itemSet[T]) dealloc(slot uint32) T {
	sl := &s.slots[slot]
	if !sl.live {
		panic(fmt.Errorf("idmap: dealloc of free slot %d", slot))
	}
	item := sl.item
	*sl = itemSlot[T]{}
	s.count--
	s.free = append(s.free, slot)
	return item
}

func (s *itemSet[T]) get(slot uint32) T {
	sl := &s.slots[slot]
	if !sl.live {
		panic(fmt.Errorf("idmap: access to free slot %d", slot))
	}
	return sl.item
}

func (s *itemSet[T]) clear() {
	clear(s.slots)
	s.slots = s.slots[:0]
	s.free = s.free[:0]
	s.count = 0
}

// reserve guarantees capacity for n more items without reallocation.
func (s *itemSet[T]) reserve(n int) {
	if grow := n - s.spare(); grow > 0 {
		s.slots = slices.Grow(s.slots, grow)
	}
}

// tryReserve is the fallible reservation path: it reports slot space
// exhaustion as an error instead of panicking later.
func (s *itemSet[T]) tryReserve(n int) error {
	if n < 0 || len(s.slots)-len(s.free)+n > maxSlots {
		return &CapacityError{Requested: n}
	}
	s.reserve(n)
	return nil
}

// shrinkTo releases spare capacity beyond n items.
func (s *itemSet[T]) shrinkTo(n int) {
	target := max(n, len(s.slots))
	if cap(s.slots) <= target {
		return
	}
	ns := make([]itemSlot[T], len(s.slots), target)
	copy(ns, s.slots)
	s.slots = ns
}

func (s *itemSet[T]) all(yield func(slot uint32, item T) bool) {
	for i := range s.slots {
		if s.slots[i].live {
			if !yield(uint32(i), s.slots[i].item) {
				return
			}
		}
	}
}
