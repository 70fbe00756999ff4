package idmap

import (
	"fmt"
	"strings"
)

// DuplicateError is returned by the unique insertion paths when the new
// item's keys collide with items already in the map. The rejected item is
// handed back in New, not lost; Duplicates holds the present items it
// collided with (at most one per key slot, deduplicated), and Slots names
// the colliding key slots.
type DuplicateError[T any] struct {
	New        T
	Duplicates []T
	Slots      []KeySlot
}

func (e *DuplicateError[T]) Error() string {
	var buf strings.Builder
	buf.WriteString("new item ")
	fmt.Fprintf(&buf, "%v", e.New)
	buf.WriteString(" conflicts with existing ")
	for i, dup := range e.Duplicates {
		if i > 0 {
			buf.WriteString(", ")
		}
		fmt.Fprintf(&buf, "%v", dup)
	}
	buf.WriteString(" on ")
	for i, slot := range e.Slots {
		if i > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString(slot.String())
	}
	return buf.String()
}

// CapacityError is returned by the TryReserve paths when the requested
// capacity cannot be provided. Go has no fallible allocation, so this guards
// the slot space limit rather than allocator failure; the infallible Reserve
// paths abort the process on allocator failure like any other Go code.
type CapacityError struct {
	Requested int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("cannot reserve capacity for %d more items", e.Requested)
}

// ConflictError is returned when decoding a serialized map that contains
// duplicate keys. Duplicates are never resolved by overwriting.
type ConflictError struct {
	Form string // "array" or "map"
	Key  string // textual key for the map form, if known
	Err  error
}

func (e *ConflictError) Unwrap() error {
	return e.Err
}

func (e *ConflictError) Error() string {
	var buf strings.Builder
	buf.WriteString("duplicate key in serialized map (")
	buf.WriteString(e.Form)
	buf.WriteString(" form)")
	if e.Key != "" {
		buf.WriteString(": ")
		buf.WriteString(e.Key)
	}
	if e.Err != nil {
		buf.WriteString(": ")
		buf.WriteString(e.Err.Error())
	}
	return buf.String()
}
