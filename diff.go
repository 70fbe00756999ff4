package idmap

import (
	"iter"
	"reflect"
)

// Edit describes one item present in both maps whose contents changed:
// Before is the first map's item, After the second map's.
type Edit[T any] struct {
	Before T
	After  T
}

// Diff describes how two maps of the same variant differ, keyed by one of
// the declared key slots. It is produced by the Diff* functions, which are
// pure: neither input map is mutated or retained.
type Diff[T any] struct {
	Added   []T
	Removed []T
	Changed []Edit[T]
}

func (d Diff[T]) IsEmpty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Changed) == 0
}

// diffByKey compares two item sequences keyed by keyOf. eq may be nil, in
// which case reflect.DeepEqual is used.
func diffByKey[K comparable, T any](
	beforeAll, afterAll iter.Seq[T],
	keyOf func(T) K,
	beforeGet func(K) (T, bool),
	afterContains func(K) bool,
	eq func(a, b T) bool,
) Diff[T] {
	if eq == nil {
		eq = func(a, b T) bool { return reflect.DeepEqual(a, b) }
	}
	var d Diff[T]
	for item := range afterAll {
		if before, ok := beforeGet(keyOf(item)); ok {
			if !eq(before, item) {
				d.Changed = append(d.Changed, Edit[T]{Before: before, After: item})
			}
		} else {
			d.Added = append(d.Added, item)
		}
	}
	for item := range beforeAll {
		if !afterContains(keyOf(item)) {
			d.Removed = append(d.Removed, item)
		}
	}
	return d
}

// DiffHashMaps describes the changes from before to after, keyed by the
// item key. eq compares items and may be nil for reflect.DeepEqual.
func DiffHashMaps[K comparable, T Item[K]](before, after *HashMap[K, T], eq func(a, b T) bool) Diff[T] {
	return diffByKey(before.All(), after.All(),
		func(item T) K { return item.ItemKey() },
		before.Get, after.Contains, eq)
}

// DiffOrdMaps describes the changes from before to after, keyed by the item
// key. eq compares items and may be nil for reflect.DeepEqual.
func DiffOrdMaps[K comparable, T Item[K]](before, after *OrdMap[K, T], eq func(a, b T) bool) Diff[T] {
	return diffByKey(before.All(), after.All(),
		func(item T) K { return item.ItemKey() },
		before.Get, after.Contains, eq)
}

// DiffBiMaps1 describes the changes from before to after, keyed by key1.
func DiffBiMaps1[K1, K2 comparable, T BiItem[K1, K2]](before, after *BiMap[K1, K2, T], eq func(a, b T) bool) Diff[T] {
	return diffByKey(before.All(), after.All(),
		func(item T) K1 { return item.Key1() },
		before.Get1, after.Contains1, eq)
}

// DiffBiMaps2 describes the changes from before to after, keyed by key2.
func DiffBiMaps2[K1, K2 comparable, T BiItem[K1, K2]](before, after *BiMap[K1, K2, T], eq func(a, b T) bool) Diff[T] {
	return diffByKey(before.All(), after.All(),
		func(item T) K2 { return item.Key2() },
		before.Get2, after.Contains2, eq)
}

// DiffTriMaps1 describes the changes from before to after, keyed by key1.
func DiffTriMaps1[K1, K2, K3 comparable, T TriItem[K1, K2, K3]](before, after *TriMap[K1, K2, K3, T], eq func(a, b T) bool) Diff[T] {
	return diffByKey(before.All(), after.All(),
		func(item T) K1 { return item.Key1() },
		before.Get1, after.Contains1, eq)
}

// DiffTriMaps2 describes the changes from before to after, keyed by key2.
func DiffTriMaps2[K1, K2, K3 comparable, T TriItem[K1, K2, K3]](before, after *TriMap[K1, K2, K3, T], eq func(a, b T) bool) Diff[T] {
	return diffByKey(before.All(), after.All(),
		func(item T) K2 { return item.Key2() },
		before.Get2, after.Contains2, eq)
}

// DiffTriMaps3 describes the changes from before to after, keyed by key3.
func DiffTriMaps3[K1, K2, K3 comparable, T TriItem[K1, K2, K3]](before, after *TriMap[K1, K2, K3, T], eq func(a, b T) bool) Diff[T] {
	return diffByKey(before.All(), after.All(),
		func(item T) K3 { return item.Key3() },
		before.Get3, after.Contains3, eq)
}
