package idmap

import (
	"math"
	"slices"
)

// hashTable is a chained bucket table mapping key hashes to item slots.
// Keys are never stored: every comparison re-projects the key from the
// owning item through a callback supplied by the map engine, so the table
// only needs the 64-bit hash and the slot reference.
//
// The bucket count is a power of two and is kept at or above the entry
// count. Removal matches on (hash, slot) and never projects keys, which
// lets the engines unindex an item whose key has already been mutated.
type hashTable struct {
	buckets []int32 // heads of entry chains, noEntry when empty
	entries []htEntry
	free    int32 // head of the entry free list, noEntry when empty
	count   int
}

type htEntry struct {
	hash uint64
	slot uint32
	next int32
}

const (
	noEntry      = int32(-1)
	minBuckets   = 8
	maxTableFill = math.MaxInt32 - 1
)

func makeHashTable(capacity int) hashTable {
	t := hashTable{free: noEntry}
	if capacity > 0 {
		t.rehash(bucketCountFor(capacity))
	}
	return t
}

func bucketCountFor(n int) int {
	p := minBuckets
	for p < n {
		p <<= 1
	}
	return p
}

func (t *hashTable) mask() uint64 {
	return uint64(len(t.buckets) - 1)
}

func (t *hashTable) len() int {
	return t.count
}

func (t *hashTable) capacity() int {
	return len(t.buckets)
}

// find returns the slot of the entry with the given hash accepted by match.
func (t *hashTable) find(hash uint64, match func(slot uint32) bool) (uint32, bool) {
	if len(t.buckets) == 0 {
		return 0, false
	}
	for e := t.buckets[hash&t.mask()]; e != noEntry; e = t.entries[e].next {
		ent := &t.entries[e]
		if ent.hash == hash && match(ent.slot) {
			return ent.slot, true
		}
	}
	return 0, false
}

// insert links a new entry. The caller has already verified uniqueness.
func (t *hashTable) insert(hash uint64, slot uint32) {
	if t.count >= len(t.buckets) {
		t.rehash(bucketCountFor(max(t.count+1, 2*len(t.buckets))))
	}
	var e int32
	if t.free != noEntry {
		e = t.free
		t.free = t.entries[e].next
		t.entries[e] = htEntry{hash: hash, slot: slot}
	} else {
		t.entries = append(t.entries, htEntry{hash: hash, slot: slot})
		e = int32(len(t.entries) - 1)
	}
	b := &t.buckets[hash&t.mask()]
	t.entries[e].next = *b
	*b = e
	t.count++
}

// remove unlinks the entry for (hash, slot). It does not compare keys.
func (t *hashTable) remove(hash uint64, slot uint32) bool {
	if len(t.buckets) == 0 {
		return false
	}
	p := &t.buckets[hash&t.mask()]
	for e := *p; e != noEntry; e = *p {
		ent := &t.entries[e]
		if ent.hash == hash && ent.slot == slot {
			*p = ent.next
			*ent = htEntry{next: t.free}
			t.free = e
			t.count--
			return true
		}
		p = &ent.next
	}
	return false
}

func (t *hashTable) clear() {
	for i := range t.buckets {
		t.buckets[i] = noEntry
	}
	t.entries = t.entries[:0]
	t.free = noEntry
	t.count = 0
}

// all walks the entries in bucket order. The order is arbitrary but stable
// between mutations.
func (t *hashTable) all(yield func(slot uint32) bool) {
	for _, e := range t.buckets {
		for ; e != noEntry; e = t.entries[e].next {
			if !yield(t.entries[e].slot) {
				return
			}
		}
	}
}

func (t *hashTable) reserve(n int) {
	needed := t.count + n
	if needed > len(t.buckets) {
		t.rehash(bucketCountFor(needed))
	} else if grow := needed - cap(t.entries); grow > 0 {
		t.entries = slices.Grow(t.entries, grow)
	}
}

func (t *hashTable) tryReserve(n int) error {
	if n < 0 || t.count+n > maxTableFill {
		return &CapacityError{Requested: n}
	}
	t.reserve(n)
	return nil
}

func (t *hashTable) shrinkTo(n int) {
	target := bucketCountFor(max(n, t.count))
	if target < len(t.buckets) {
		t.rehash(target)
	}
}

// rehash rebuilds the table with the given bucket count, compacting the
// entries in the process.
func (t *hashTable) rehash(bucketCount int) {
	oldBuckets := t.buckets
	oldEntries := t.entries
	t.buckets = make([]int32, bucketCount)
	for i := range t.buckets {
		t.buckets[i] = noEntry
	}
	t.entries = make([]htEntry, 0, bucketCount)
	t.free = noEntry
	for _, e := range oldBuckets {
		for ; e != noEntry; e = oldEntries[e].next {
			ent := oldEntries[e]
			b := &t.buckets[ent.hash&t.mask()]
			t.entries = append(t.entries, htEntry{hash: ent.hash, slot: ent.slot, next: *b})
			*b = int32(len(t.entries) - 1)
		}
	}
}
