package idmap

import (
	"fmt"
	"slices"
)

// ordDegree is the maximum number of children per B-tree node.
const (
	ordDegree   = 16
	ordMaxItems = ordDegree - 1
	ordMinItems = ordDegree/2 - 1
)

// ordIndex is a B-tree over item slots ordered by projected keys. Like the
// hash table, it never stores keys: every comparison re-projects the key
// from the owning item at the time of the comparison, through the keyAt
// closure supplied by the map engine.
//
// When an item's key has already been mutated through a Ref, the tree's
// stored position still reflects the old key. pin temporarily overrides the
// projection for that one slot so the removal navigates by the old key;
// the override is scoped to the one operation and cleared by unpin.
type ordIndex[K any] struct {
	root    *ordNode
	compare func(a, b K) int
	keyAt   func(slot uint32) K
	count   int

	pinSlot uint32
	pinKey  K
	pinned  bool
}

type ordNode struct {
	slots    []uint32
	children []*ordNode // empty for leaves
}

func makeOrdIndex[K any](compare func(a, b K) int, keyAt func(slot uint32) K) ordIndex[K] {
	return ordIndex[K]{compare: compare, keyAt: keyAt}
}

func (x *ordIndex[K]) len() int {
	return x.count
}

func (x *ordIndex[K]) clear() {
	x.root = nil
	x.count = 0
}

func (x *ordIndex[K]) pin(slot uint32, key K) {
	x.pinSlot, x.pinKey, x.pinned = slot, key, true
}

func (x *ordIndex[K]) unpin() {
	var zero K
	x.pinSlot, x.pinKey, x.pinned = 0, zero, false
}

func (x *ordIndex[K]) keyOf(slot uint32) K {
	if x.pinned && slot == x.pinSlot {
		return x.pinKey
	}
	return x.keyAt(slot)
}

// searchNode returns the position of key in n, or the child position to
// descend into.
func (x *ordIndex[K]) searchNode(n *ordNode, key K) (int, bool) {
	lo, hi := 0, len(n.slots)
	for lo < hi {
		mid := (lo + hi) / 2
		c := x.compare(key, x.keyOf(n.slots[mid]))
		if c == 0 {
			return mid, true
		} else if c < 0 {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	return lo, false
}

func (x *ordIndex[K]) find(key K) (uint32, bool) {
	n := x.root
	for n != nil {
		i, ok := x.searchNode(n, key)
		if ok {
			return n.slots[i], true
		}
		if len(n.children) == 0 {
			return 0, false
		}
		n = n.children[i]
	}
	return 0, false
}

// insert adds a slot under the given key. The caller has already verified
// that the key is not present.
func (x *ordIndex[K]) insert(key K, slot uint32) {
	if x.root == nil {
		x.root = &ordNode{slots: []uint32{slot}}
		x.count++
		return
	}
	if len(x.root.slots) >= ordMaxItems {
		mid, right := x.root.split(ordMaxItems / 2)
		x.root = &ordNode{
			slots:    []uint32{mid},
			children: []*ordNode{x.root, right},
		}
	}
	n := x.root
	for {
		i, ok := x.searchNode(n, key)
		if ok {
			panic(fmt.Errorf("idmap: duplicate key in order index at slot %d", n.slots[i]))
		}
		if len(n.children) == 0 {
			n.slots = slices.Insert(n.slots, i, slot)
			x.count++
			return
		}
		if child := n.children[i]; len(child.slots) >= ordMaxItems {
			midSlot, right := child.split(ordMaxItems / 2)
			n.slots = slices.Insert(n.slots, i, midSlot)
			n.children = slices.Insert(n.children, i+1, right)
			if x.compare(key, x.keyOf(midSlot)) > 0 {
				i++
			}
		}
		n = n.children[i]
	}
}

// split divides a full node at position i, returning the middle slot and
// the new right sibling.
func (n *ordNode) split(i int) (uint32, *ordNode) {
	mid := n.slots[i]
	right := &ordNode{}
	right.slots = append(right.slots, n.slots[i+1:]...)
	n.slots = n.slots[:i]
	if len(n.children) > 0 {
		right.children = append(right.children, n.children[i+1:]...)
		n.children = n.children[:i+1]
	}
	return mid, right
}

type ordRemoveMode int

const (
	ordRemoveKey ordRemoveMode = iota
	ordRemoveMin
	ordRemoveMax
)

func (x *ordIndex[K]) delete(key K) (uint32, bool) {
	return x.deleteMode(key, ordRemoveKey)
}

func (x *ordIndex[K]) popMin() (uint32, bool) {
	var zero K
	return x.deleteMode(zero, ordRemoveMin)
}

func (x *ordIndex[K]) popMax() (uint32, bool) {
	var zero K
	return x.deleteMode(zero, ordRemoveMax)
}

func (x *ordIndex[K]) deleteMode(key K, mode ordRemoveMode) (uint32, bool) {
	if x.root == nil || len(x.root.slots) == 0 {
		return 0, false
	}
	slot, ok := x.removeFrom(x.root, key, mode)
	if len(x.root.slots) == 0 {
		if len(x.root.children) > 0 {
			x.root = x.root.children[0]
		} else {
			x.root = nil
		}
	}
	if ok {
		x.count--
	}
	return slot, ok
}

func (x *ordIndex[K]) removeFrom(n *ordNode, key K, mode ordRemoveMode) (uint32, bool) {
	var i int
	var found bool
	switch mode {
	case ordRemoveMin:
		if len(n.children) == 0 {
			s := n.slots[0]
			n.slots = slices.Delete(n.slots, 0, 1)
			return s, true
		}
		i = 0
	case ordRemoveMax:
		if len(n.children) == 0 {
			s := n.slots[len(n.slots)-1]
			n.slots = n.slots[:len(n.slots)-1]
			return s, true
		}
		i = len(n.slots)
	case ordRemoveKey:
		i, found = x.searchNode(n, key)
		if len(n.children) == 0 {
			if !found {
				return 0, false
			}
			s := n.slots[i]
			n.slots = slices.Delete(n.slots, i, i+1)
			return s, true
		}
	}
	if len(n.children[i].slots) <= ordMinItems {
		return x.growChildAndRemove(n, i, key, mode)
	}
	if found {
		// Replace the removed separator with its in-order predecessor.
		out := n.slots[i]
		var zero K
		pred, ok := x.removeFrom(n.children[i], zero, ordRemoveMax)
		if !ok {
			panic("idmap: order index child unexpectedly empty")
		}
		n.slots[i] = pred
		return out, true
	}
	return x.removeFrom(n.children[i], key, mode)
}

// growChildAndRemove brings children[i] above the minimum fill before
// descending, stealing from a sibling or merging with one.
func (x *ordIndex[K]) growChildAndRemove(n *ordNode, i int, key K, mode ordRemoveMode) (uint32, bool) {
	if i > 0 && len(n.children[i-1].slots) > ordMinItems {
		child, left := n.children[i], n.children[i-1]
		stolen := left.slots[len(left.slots)-1]
		left.slots = left.slots[:len(left.slots)-1]
		child.slots = slices.Insert(child.slots, 0, n.slots[i-1])
		n.slots[i-1] = stolen
		if len(left.children) > 0 {
			c := left.children[len(left.children)-1]
			left.children = left.children[:len(left.children)-1]
			child.children = slices.Insert(child.children, 0, c)
		}
	} else if i < len(n.slots) && len(n.children[i+1].slots) > ordMinItems {
		child, right := n.children[i], n.children[i+1]
		stolen := right.slots[0]
		right.slots = slices.Delete(right.slots, 0, 1)
		child.slots = append(child.slots, n.slots[i])
		n.slots[i] = stolen
		if len(right.children) > 0 {
			c := right.children[0]
			right.children = slices.Delete(right.children, 0, 1)
			child.children = append(child.children, c)
		}
	} else {
		if i >= len(n.slots) {
			i--
		}
		child, right := n.children[i], n.children[i+1]
		child.slots = append(child.slots, n.slots[i])
		child.slots = append(child.slots, right.slots...)
		child.children = append(child.children, right.children...)
		n.slots = slices.Delete(n.slots, i, i+1)
		n.children = slices.Delete(n.children, i+1, i+2)
	}
	return x.removeFrom(n, key, mode)
}

func (x *ordIndex[K]) min() (uint32, bool) {
	n := x.root
	if n == nil || len(n.slots) == 0 {
		return 0, false
	}
	for len(n.children) > 0 {
		n = n.children[0]
	}
	return n.slots[0], true
}

func (x *ordIndex[K]) max() (uint32, bool) {
	n := x.root
	if n == nil || len(n.slots) == 0 {
		return 0, false
	}
	for len(n.children) > 0 {
		n = n.children[len(n.children)-1]
	}
	return n.slots[len(n.slots)-1], true
}

// ascend walks the slots in ascending key order.
func (x *ordIndex[K]) ascend(yield func(slot uint32) bool) {
	if x.root != nil {
		x.root.ascend(yield)
	}
}

func (n *ordNode) ascend(yield func(slot uint32) bool) bool {
	for i, s := range n.slots {
		if len(n.children) > 0 && !n.children[i].ascend(yield) {
			return false
		}
		if !yield(s) {
			return false
		}
	}
	if len(n.children) > 0 {
		return n.children[len(n.children)-1].ascend(yield)
	}
	return true
}
