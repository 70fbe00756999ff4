package idmap

import (
	"io"

	"github.com/davecgh/go-spew/spew"
)

var debugSpew = &spew.ConfigState{Indent: "  ", SortKeys: true, DisablePointerAddresses: true}

func dumpItems[T any](w io.Writer, items []T) {
	debugSpew.Fdump(w, items)
}

// Dump writes a detailed dump of the map's items to w, for debugging.
func (m *HashMap[K, T]) Dump(w io.Writer) {
	items := make([]T, 0, m.Len())
	for item := range m.All() {
		items = append(items, item)
	}
	dumpItems(w, items)
}

// Dump writes a detailed dump of the map's items to w in ascending key
// order, for debugging.
func (m *OrdMap[K, T]) Dump(w io.Writer) {
	items := make([]T, 0, m.Len())
	for item := range m.All() {
		items = append(items, item)
	}
	dumpItems(w, items)
}

// Dump writes a detailed dump of the map's items to w, for debugging.
func (m *BiMap[K1, K2, T]) Dump(w io.Writer) {
	items := make([]T, 0, m.Len())
	for item := range m.All() {
		items = append(items, item)
	}
	dumpItems(w, items)
}

// Dump writes a detailed dump of the map's items to w, for debugging.
func (m *TriMap[K1, K2, K3, T]) Dump(w io.Writer) {
	items := make([]T, 0, m.Len())
	for item := range m.All() {
		items = append(items, item)
	}
	dumpItems(w, items)
}
