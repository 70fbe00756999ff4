package idmap

import (
	"errors"
	"fmt"
	"math/rand"
	"slices"
	"testing"
)

func TestHashMapBasics(t *testing.T) {
	m := NewHashMap[int, *user]()
	eq(t, m.IsEmpty(), true)

	isnil(t, m.InsertUnique(&user{ID: 1, Name: "a"}))
	isnil(t, m.InsertUnique(&user{ID: 2, Name: "b"}))
	eq(t, m.Len(), 2)
	eq(t, m.IsEmpty(), false)

	u, ok := m.Get(1)
	eq(t, ok, true)
	eq(t, u.Name, "a")
	eq(t, m.Contains(2), true)
	eq(t, m.Contains(3), false)

	err := m.InsertUnique(&user{ID: 1, Name: "c"})
	isnonnil(t, err)
	var dup *DuplicateError[*user]
	if !errors.As(err, &dup) {
		t.Fatalf("** got %T, wanted *DuplicateError", err)
	}
	eq(t, dup.New.Name, "c")
	eq(t, len(dup.Duplicates), 1)
	eq(t, dup.Duplicates[0].Name, "a")
	deepEqual(t, dup.Slots, []KeySlot{KeySlot1})
	eq(t, m.Len(), 2)
	u, _ = m.Get(1)
	eq(t, u.Name, "a") // rejected insert leaves the map untouched

	isnil(t, m.Validate())
}

func TestHashMapInsertOverwrite(t *testing.T) {
	m := NewHashMap[int, *user]()
	_, replaced := m.InsertOverwrite(&user{ID: 1, Name: "a"})
	eq(t, replaced, false)
	old, replaced := m.InsertOverwrite(&user{ID: 1, Name: "b"})
	eq(t, replaced, true)
	eq(t, old.Name, "a")
	eq(t, m.Len(), 1)
	u, _ := m.Get(1)
	eq(t, u.Name, "b")
	isnil(t, m.Validate())
}

func TestHashMapGetOrInsert(t *testing.T) {
	m := NewHashMap[int, *user]()

	u, inserted := m.GetOrInsert(&user{ID: 1, Name: "a"})
	eq(t, inserted, true)
	eq(t, u.Name, "a")

	u, inserted = m.GetOrInsert(&user{ID: 1, Name: "b"})
	eq(t, inserted, false)
	eq(t, u.Name, "a") // existing item wins
	eq(t, m.Len(), 1)

	u = m.GetOrInsertWith(2, func() *user { return &user{ID: 2, Name: "c"} })
	eq(t, u.Name, "c")
	u = m.GetOrInsertWith(2, func() *user {
		t.Fatal("** constructor called for a present key")
		return nil
	})
	eq(t, u.Name, "c")
	eq(t, m.Len(), 2)
	isnil(t, m.Validate())

	mustPanic(t, func() {
		m.GetOrInsertWith(3, func() *user { return &user{ID: 99} })
	})
}

func TestHashMapRemove(t *testing.T) {
	m := MustHashMapOf[int, *user](
		&user{ID: 1, Name: "a"},
		&user{ID: 2, Name: "b"},
	)
	u, ok := m.Remove(1)
	eq(t, ok, true)
	eq(t, u.Name, "a")
	_, ok = m.Remove(1)
	eq(t, ok, false)
	eq(t, m.Len(), 1)
	isnil(t, m.Validate())
}

func TestHashMapMutateReindexes(t *testing.T) {
	m := MustHashMapOf[int, *user](
		&user{ID: 1, Name: "a"},
		&user{ID: 2, Name: "b"},
	)

	// Non-key mutation.
	eq(t, m.Mutate(1, func(u *user) { u.Name = "a2" }), true)
	u, _ := m.Get(1)
	eq(t, u.Name, "a2")

	// Key mutation reindexes the item in place.
	ref, ok := m.GetMut(1)
	eq(t, ok, true)
	ref.Item().ID = 3
	ref.Release()
	eq(t, m.Contains(1), false)
	u, ok = m.Get(3)
	eq(t, ok, true)
	eq(t, u.Name, "a2")
	eq(t, m.Len(), 2)
	isnil(t, m.Validate())

	eq(t, m.Mutate(99, func(u *user) {}), false)
}

func TestHashMapRefCollisionPanics(t *testing.T) {
	m := MustHashMapOf[int, *user](
		&user{ID: 1, Name: "a"},
		&user{ID: 2, Name: "b"},
	)
	ref, _ := m.GetMut(1)
	ref.Item().ID = 2
	mustPanic(t, ref.Release)
}

func TestHashMapRefDoubleReleasePanics(t *testing.T) {
	m := MustHashMapOf[int, *user](&user{ID: 1})
	ref, _ := m.GetMut(1)
	ref.Release()
	mustPanic(t, ref.Release)
	mustPanic(t, func() { ref.Item() })
}

func TestHashMapRetain(t *testing.T) {
	m := NewHashMap[int, *user]()
	for i := 1; i <= 10; i++ {
		isnil(t, m.InsertUnique(&user{ID: i}))
	}
	m.Retain(func(u *user) bool { return u.ID%2 == 0 })
	eq(t, m.Len(), 5)
	for i := 1; i <= 10; i++ {
		eq(t, m.Contains(i), i%2 == 0)
	}
	isnil(t, m.Validate())
}

func TestHashMapExtend(t *testing.T) {
	m := NewHashMap[int, *user]()
	err := m.Extend(
		&user{ID: 1},
		&user{ID: 2},
		&user{ID: 1, Name: "dup"},
		&user{ID: 3},
	)
	isnonnil(t, err)
	eq(t, m.Len(), 2) // items before the duplicate stay
	isnil(t, m.Validate())
}

func TestHashMapCollect(t *testing.T) {
	m := CollectHashMap(slices.Values([]*user{
		{ID: 1, Name: "a"},
		{ID: 2, Name: "b"},
		{ID: 1, Name: "c"},
	}))
	eq(t, m.Len(), 2)
	u, _ := m.Get(1)
	eq(t, u.Name, "c") // later items win
}

func TestHashMapIteration(t *testing.T) {
	m := MustHashMapOf[int, *user](
		&user{ID: 3},
		&user{ID: 1},
		&user{ID: 2},
	)
	keys := collect(m.Keys())
	slices.Sort(keys)
	deepEqual(t, keys, []int{1, 2, 3})

	ids := make([]int, 0, 3)
	for u := range m.All() {
		ids = append(ids, u.ID)
	}
	slices.Sort(ids)
	deepEqual(t, ids, []int{1, 2, 3})
}

func TestHashMapClear(t *testing.T) {
	m := MustHashMapOf[int, *user](&user{ID: 1}, &user{ID: 2})
	m.Clear()
	eq(t, m.Len(), 0)
	eq(t, m.Contains(1), false)
	isnil(t, m.InsertUnique(&user{ID: 1}))
	eq(t, m.Len(), 1)
	isnil(t, m.Validate())
}

func TestHashMapCapacity(t *testing.T) {
	m := NewHashMapWithCapacity[int, *user](100)
	if got := m.Cap(); got < 100 {
		t.Errorf("** capacity %d after requesting 100", got)
	}
	for i := 0; i < 3; i++ {
		isnil(t, m.InsertUnique(&user{ID: i}))
	}
	m.ShrinkToFit()
	eq(t, m.Cap(), 3)

	m.Reserve(50)
	if got := m.Cap(); got < 53 {
		t.Errorf("** capacity %d after reserving 50 more", got)
	}

	isnil(t, m.TryReserve(10))
	err := m.TryReserve(-1)
	isnonnil(t, err)
	var capErr *CapacityError
	if !errors.As(err, &capErr) {
		t.Errorf("** got %T, wanted *CapacityError", err)
	}
	isnil(t, m.Validate())
}

func TestHashMapStringKeysWithXXHasher(t *testing.T) {
	m := NewHashMapWithHasher[string, *session](XXHasher[string]{})
	isnil(t, m.InsertUnique(&session{Token: "abc", UserID: 1}))
	isnil(t, m.InsertUnique(&session{Token: "def", UserID: 2}))
	s, ok := m.Get("abc")
	eq(t, ok, true)
	eq(t, s.UserID, 1)
	_, ok = m.Get("xyz")
	eq(t, ok, false)
	isnil(t, m.Validate())
}

func TestHashMapCompositeKeysWithEncHasher(t *testing.T) {
	m := NewHashMapWithHasher[linkKey, *link](EncHasher[linkKey]{})
	isnil(t, m.InsertUnique(&link{From: 1, To: 2, Weight: 10}))
	isnil(t, m.InsertUnique(&link{From: 2, To: 1, Weight: 20}))
	l, ok := m.Get(linkKey{1, 2})
	eq(t, ok, true)
	eq(t, l.Weight, 10)
	isnonnil(t, m.InsertUnique(&link{From: 1, To: 2, Weight: 30}))
	isnil(t, m.Validate())
}

func TestHashMapStress(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	m := NewHashMap[int, *user]()
	ref := make(map[int]string)
	for i := 0; i < 5000; i++ {
		id := rng.Intn(500)
		switch rng.Intn(3) {
		case 0:
			name := fmt.Sprintf("u%d", i)
			m.InsertOverwrite(&user{ID: id, Name: name})
			ref[id] = name
		case 1:
			_, ok := m.Remove(id)
			_, want := ref[id]
			eq(t, ok, want)
			delete(ref, id)
		case 2:
			u, ok := m.Get(id)
			name, want := ref[id]
			eq(t, ok, want)
			if ok {
				eq(t, u.Name, name)
			}
		}
	}
	eq(t, m.Len(), len(ref))
	isnil(t, m.Validate())
}
