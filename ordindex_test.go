package idmap

import (
	"cmp"
	"math/rand"
	"slices"
	"testing"
)

func newIntOrdIndex(keys []int) *ordIndex[int] {
	x := makeOrdIndex(cmp.Compare[int], func(slot uint32) int { return keys[slot] })
	return &x
}

func ascendKeys(x *ordIndex[int], keys []int) []int {
	var out []int
	x.ascend(func(slot uint32) bool {
		out = append(out, keys[slot])
		return true
	})
	return out
}

func TestOrdIndexBasic(t *testing.T) {
	keys := []int{30, 10, 20}
	x := newIntOrdIndex(keys)
	for slot, key := range keys {
		x.insert(key, uint32(slot))
	}
	eq(t, x.len(), 3)

	slot, ok := x.find(20)
	eq(t, ok, true)
	eq(t, slot, uint32(2))
	_, ok = x.find(25)
	eq(t, ok, false)

	deepEqual(t, ascendKeys(x, keys), []int{10, 20, 30})

	slot, ok = x.min()
	eq(t, ok, true)
	eq(t, keys[slot], 10)
	slot, ok = x.max()
	eq(t, ok, true)
	eq(t, keys[slot], 30)

	slot, ok = x.delete(20)
	eq(t, ok, true)
	eq(t, slot, uint32(2))
	_, ok = x.delete(20)
	eq(t, ok, false)
	eq(t, x.len(), 2)
	deepEqual(t, ascendKeys(x, keys), []int{10, 30})
}

func TestOrdIndexDuplicateInsertPanics(t *testing.T) {
	keys := []int{10, 10}
	x := newIntOrdIndex(keys)
	x.insert(10, 0)
	mustPanic(t, func() { x.insert(10, 1) })
}

func TestOrdIndexEmpty(t *testing.T) {
	x := newIntOrdIndex(nil)
	eq(t, x.len(), 0)
	_, ok := x.find(1)
	eq(t, ok, false)
	_, ok = x.delete(1)
	eq(t, ok, false)
	_, ok = x.min()
	eq(t, ok, false)
	_, ok = x.max()
	eq(t, ok, false)
	_, ok = x.popMin()
	eq(t, ok, false)
	_, ok = x.popMax()
	eq(t, ok, false)
}

func TestOrdIndexRandom(t *testing.T) {
	const n = 2000
	rng := rand.New(rand.NewSource(1))
	keys := rng.Perm(n * 10)[:n]
	x := newIntOrdIndex(keys)
	for slot, key := range keys {
		x.insert(key, uint32(slot))
	}
	eq(t, x.len(), n)

	sorted := slices.Clone(keys)
	slices.Sort(sorted)
	deepEqual(t, ascendKeys(x, keys), sorted)

	for slot, key := range keys {
		got, ok := x.find(key)
		eq(t, ok, true)
		eq(t, got, uint32(slot))
	}

	// Delete a random half and verify the remainder stays ordered and
	// navigable.
	perm := rng.Perm(n)
	deleted := make(map[int]bool)
	for _, i := range perm[:n/2] {
		slot, ok := x.delete(keys[i])
		eq(t, ok, true)
		eq(t, slot, uint32(i))
		deleted[keys[i]] = true
	}
	eq(t, x.len(), n-n/2)

	var want []int
	for _, key := range sorted {
		if !deleted[key] {
			want = append(want, key)
		}
	}
	deepEqual(t, ascendKeys(x, keys), want)
	for slot, key := range keys {
		got, ok := x.find(key)
		eq(t, ok, !deleted[key])
		if ok {
			eq(t, got, uint32(slot))
		}
	}
}

func TestOrdIndexPopDrain(t *testing.T) {
	const n = 500
	rng := rand.New(rand.NewSource(2))
	keys := rng.Perm(n)
	x := newIntOrdIndex(keys)
	for slot, key := range keys {
		x.insert(key, uint32(slot))
	}

	// Alternate popping from both ends until empty.
	lo, hi := 0, n-1
	for x.len() > 0 {
		slot, ok := x.popMin()
		eq(t, ok, true)
		eq(t, keys[slot], lo)
		lo++
		if x.len() == 0 {
			break
		}
		slot, ok = x.popMax()
		eq(t, ok, true)
		eq(t, keys[slot], hi)
		hi--
	}
	eq(t, lo, hi+1)
}

func TestOrdIndexPin(t *testing.T) {
	keys := []int{10, 20, 30}
	x := newIntOrdIndex(keys)
	for slot, key := range keys {
		x.insert(key, uint32(slot))
	}

	// Mutate slot 1's key out from under the tree, then navigate by the
	// pinned old key to relocate it.
	keys[1] = 25
	x.pin(1, 20)
	slot, ok := x.find(20)
	eq(t, ok, true)
	eq(t, slot, uint32(1))
	_, ok = x.find(25)
	eq(t, ok, false)
	slot, ok = x.delete(20)
	eq(t, ok, true)
	eq(t, slot, uint32(1))
	x.unpin()
	x.insert(25, 1)

	deepEqual(t, ascendKeys(x, keys), []int{10, 25, 30})
}

func TestOrdIndexClear(t *testing.T) {
	keys := []int{1, 2, 3}
	x := newIntOrdIndex(keys)
	for slot, key := range keys {
		x.insert(key, uint32(slot))
	}
	x.clear()
	eq(t, x.len(), 0)
	_, ok := x.find(1)
	eq(t, ok, false)
	x.insert(1, 0)
	eq(t, x.len(), 1)
}
