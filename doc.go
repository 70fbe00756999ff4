/*
Package idmap implements in-memory maps whose keys are derived from the
stored items instead of being stored alongside them. Each item knows how to
produce its own key(s), so a map key can never drift out of sync with a
duplicate key field inside the value.

We implement:

1. HashMap, a single-key hash map over items implementing Item.

2. OrdMap, a single-key ordered map (B-tree index) over items implementing
Item, iterating in ascending key order.

3. BiMap, a two-key hash map over items implementing BiItem, enforcing a
bijective (1:1) correspondence between both key spaces: no two items may
share either key.

4. TriMap, a three-key hash map over items implementing TriItem, enforcing a
trijective (1:1:1) correspondence.

# Technical Details

**Slots.**
Items are owned by a slot arena. A slot index stays valid for the item's
entire lifetime in the map, no matter what is inserted or removed around it.
Indexes store slot references only; keys are re-projected from the items on
demand, never copied out.

**Indexes.**
Hashed variants use a chained bucket table with a pluggable Hasher injected
at construction. Key comparisons run through a projection callback, so an
index never holds an owned copy of a key. The ordered variant uses a B-tree
whose comparisons likewise re-project keys from live items.

**Insertion.**
InsertUnique validates all key slots before touching any index, so a
duplicate never leaves partial state behind; the rejected item is handed
back inside the error. InsertOverwrite first evicts every item occupying any
of the new item's keys (up to one per key slot) and returns the evicted
items.

**Mutation.**
Items are typically pointers. Mutating a field that a key is projected from
while the item is indexed corrupts the map; the sanctioned path is GetMut,
whose Ref re-validates the keys on Release, re-indexing the item if a key
changed and panicking if the new key collides with another item.

**Serialization.**
Maps serialize as an ordered sequence of their items, both as JSON and as
msgpack. Decoding also accepts a key-keyed document for compatibility, and
rejects duplicate keys instead of silently overwriting.

A map instance is not internally synchronized; it expects a single logical
owner, same as the built-in map type.
*/
package idmap
