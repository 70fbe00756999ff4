package idmap

import (
	"errors"
	"slices"
	"testing"
)

func TestBiMapBasics(t *testing.T) {
	m := NewBiMap[int, string, *account]()
	isnil(t, m.InsertUnique(&account{ID: 1, Email: "a@x.com", Plan: "free"}))
	isnil(t, m.InsertUnique(&account{ID: 2, Email: "b@x.com", Plan: "pro"}))
	eq(t, m.Len(), 2)

	a, ok := m.Get1(1)
	eq(t, ok, true)
	eq(t, a.Email, "a@x.com")
	b, ok := m.Get2("b@x.com")
	eq(t, ok, true)
	eq(t, b.ID, 2)

	eq(t, m.Contains1(3), false)
	eq(t, m.Contains2("c@x.com"), false)
	isnil(t, m.Validate())
}

func TestBiMapDuplicateSlots(t *testing.T) {
	m := MustBiMapOf[int, string](
		&account{ID: 1, Email: "a@x.com"},
		&account{ID: 2, Email: "b@x.com"},
	)

	// Only key1 collides.
	err := m.InsertUnique(&account{ID: 1, Email: "c@x.com"})
	isnonnil(t, err)
	var dup *DuplicateError[*account]
	if !errors.As(err, &dup) {
		t.Fatalf("** got %T, wanted *DuplicateError", err)
	}
	deepEqual(t, dup.Slots, []KeySlot{KeySlot1})
	eq(t, len(dup.Duplicates), 1)
	eq(t, dup.Duplicates[0].ID, 1)

	// Both keys collide, against two distinct items.
	err = m.InsertUnique(&account{ID: 1, Email: "b@x.com"})
	isnonnil(t, err)
	errors.As(err, &dup)
	deepEqual(t, dup.Slots, []KeySlot{KeySlot1, KeySlot2})
	eq(t, len(dup.Duplicates), 2)

	// Both keys collide against the same item: it is reported once.
	err = m.InsertUnique(&account{ID: 1, Email: "a@x.com"})
	isnonnil(t, err)
	errors.As(err, &dup)
	deepEqual(t, dup.Slots, []KeySlot{KeySlot1, KeySlot2})
	eq(t, len(dup.Duplicates), 1)

	eq(t, m.Len(), 2) // no failed insert modified the map
	isnil(t, m.Validate())
}

func TestBiMapInsertOverwriteEvictsBoth(t *testing.T) {
	m := MustBiMapOf[int, string](
		&account{ID: 1, Email: "a@x.com"},
		&account{ID: 2, Email: "b@x.com"},
	)

	// The new item's keys straddle both existing items, so both go.
	displaced := m.InsertOverwrite(&account{ID: 1, Email: "b@x.com"})
	eq(t, len(displaced), 2)
	eq(t, m.Len(), 1)
	a, ok := m.Get1(1)
	eq(t, ok, true)
	eq(t, a.Email, "b@x.com")
	eq(t, m.Contains2("a@x.com"), false)
	isnil(t, m.Validate())
}

func TestBiMapRemove(t *testing.T) {
	m := MustBiMapOf[int, string](
		&account{ID: 1, Email: "a@x.com"},
		&account{ID: 2, Email: "b@x.com"},
	)
	a, ok := m.Remove1(1)
	eq(t, ok, true)
	eq(t, a.Email, "a@x.com")
	eq(t, m.Contains2("a@x.com"), false)

	b, ok := m.Remove2("b@x.com")
	eq(t, ok, true)
	eq(t, b.ID, 2)
	eq(t, m.IsEmpty(), true)
	isnil(t, m.Validate())
}

func TestBiMapRemoveUnique(t *testing.T) {
	m := MustBiMapOf[int, string](
		&account{ID: 1, Email: "a@x.com"},
		&account{ID: 2, Email: "b@x.com"},
	)

	// Keys owned by different items do not identify anything.
	_, ok := m.RemoveUnique(1, "b@x.com")
	eq(t, ok, false)
	eq(t, m.Len(), 2)

	a, ok := m.RemoveUnique(1, "a@x.com")
	eq(t, ok, true)
	eq(t, a.ID, 1)
	eq(t, m.Len(), 1)
	isnil(t, m.Validate())
}

func TestBiMapMutateReindexes(t *testing.T) {
	m := MustBiMapOf[int, string](
		&account{ID: 1, Email: "a@x.com"},
		&account{ID: 2, Email: "b@x.com"},
	)

	// Mutating through one key can change the other.
	eq(t, m.Mutate1(1, func(a *account) { a.Email = "new@x.com" }), true)
	a, ok := m.Get2("new@x.com")
	eq(t, ok, true)
	eq(t, a.ID, 1)
	eq(t, m.Contains2("a@x.com"), false)

	// Or both at once.
	eq(t, m.Mutate2("new@x.com", func(a *account) { a.ID = 10; a.Email = "ten@x.com" }), true)
	a, ok = m.Get1(10)
	eq(t, ok, true)
	eq(t, a.Email, "ten@x.com")
	eq(t, m.Contains1(1), false)
	eq(t, m.Len(), 2)
	isnil(t, m.Validate())
}

func TestBiMapRefCollisionPanics(t *testing.T) {
	m := MustBiMapOf[int, string](
		&account{ID: 1, Email: "a@x.com"},
		&account{ID: 2, Email: "b@x.com"},
	)
	ref, _ := m.GetMut1(1)
	ref.Item().Email = "b@x.com"
	mustPanic(t, ref.Release)
}

func TestBiMapRetain(t *testing.T) {
	m := NewBiMap[int, string, *account]()
	for i := 1; i <= 6; i++ {
		isnil(t, m.InsertUnique(&account{ID: i, Email: string(rune('a'+i)) + "@x.com"}))
	}
	m.Retain(func(a *account) bool { return a.ID%2 == 0 })
	eq(t, m.Len(), 3)
	keys := collect(m.Keys1())
	slices.Sort(keys)
	deepEqual(t, keys, []int{2, 4, 6})
	isnil(t, m.Validate())
}

func TestBiMapIteration(t *testing.T) {
	m := MustBiMapOf[int, string](
		&account{ID: 1, Email: "a@x.com"},
		&account{ID: 2, Email: "b@x.com"},
	)
	eq(t, len(collect(m.All())), 2)
	keys1 := collect(m.Keys1())
	slices.Sort(keys1)
	deepEqual(t, keys1, []int{1, 2})
	keys2 := collect(m.Keys2())
	slices.Sort(keys2)
	deepEqual(t, keys2, []string{"a@x.com", "b@x.com"})
}

func TestBiMapCollect(t *testing.T) {
	m := CollectBiMap(slices.Values([]*account{
		{ID: 1, Email: "a@x.com"},
		{ID: 2, Email: "b@x.com"},
		{ID: 1, Email: "c@x.com"},
	}))
	eq(t, m.Len(), 2)
	a, _ := m.Get1(1)
	eq(t, a.Email, "c@x.com")
	isnil(t, m.Validate())
}

func TestBiMapCapacity(t *testing.T) {
	m := NewBiMapWithCapacity[int, string, *account](50)
	if got := m.Cap(); got < 50 {
		t.Errorf("** capacity %d after requesting 50", got)
	}
	isnil(t, m.InsertUnique(&account{ID: 1, Email: "a@x.com"}))
	m.ShrinkToFit()
	eq(t, m.Cap(), 1)
	isnil(t, m.TryReserve(10))
	isnonnil(t, m.TryReserve(-1))
	isnil(t, m.Validate())
}
