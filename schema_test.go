package idmap

import (
	"testing"
)

func TestSchema(t *testing.T) {
	itemSchema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"ID": map[string]any{"type": "integer"},
		},
	}

	for name, schema := range map[string]map[string]any{
		"HashMap": NewHashMap[int, *user]().Schema(itemSchema),
		"OrdMap":  NewOrdMap[int, *user]().Schema(itemSchema),
		"BiMap":   NewBiMap[int, string, *account]().Schema(itemSchema),
		"TriMap":  NewTriMap[int, string, string, *device]().Schema(itemSchema),
	} {
		eq(t, schema["type"], any("array"))
		eq(t, schema["uniqueItems"], any(true))
		deepEqual(t, schema["items"], any(itemSchema))

		ext, ok := schema["x-go-type"].(map[string]any)
		if !ok {
			t.Fatalf("** %s: x-go-type missing", name)
		}
		eq(t, ext["import"], any(modulePath))
		eq(t, ext["type"], any(name))
	}
}
