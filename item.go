package idmap

import "fmt"

// Item is implemented by values stored in a HashMap or an OrdMap. The map
// never stores the key separately: it calls ItemKey whenever it needs it.
//
// The projected key must not change while the item is in a map, except
// through a Ref obtained from GetMut.
type Item[K comparable] interface {
	ItemKey() K
}

// BiItem is implemented by values stored in a BiMap. Both keys are
// projected from the item and both are unique across the map.
type BiItem[K1, K2 comparable] interface {
	Key1() K1
	Key2() K2
}

// TriItem is implemented by values stored in a TriMap. All three keys are
// projected from the item and all three are unique across the map.
type TriItem[K1, K2, K3 comparable] interface {
	Key1() K1
	Key2() K2
	Key3() K3
}

// KeySlot identifies one of the key slots of a map, for error reporting.
// HashMap and OrdMap only have KeySlot1.
type KeySlot int

const (
	KeySlot1 KeySlot = 1
	KeySlot2 KeySlot = 2
	KeySlot3 KeySlot = 3
)

func (s KeySlot) String() string {
	switch s {
	case KeySlot1:
		return "key1"
	case KeySlot2:
		return "key2"
	case KeySlot3:
		return "key3"
	default:
		return fmt.Sprintf("invalid key slot %d", int(s))
	}
}
