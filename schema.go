package idmap

// JSON Schema generation for the array serialization form. The schemas mark
// uniqueItems because every item projects a unique primary key, so no two
// serialized items can be equal.

const modulePath = "github.com/andreyvit/idmap"

func arraySchema(typeName string, itemSchema map[string]any) map[string]any {
	return map[string]any{
		"type":        "array",
		"uniqueItems": true,
		"items":       itemSchema,
		"x-go-type": map[string]any{
			"import": modulePath,
			"type":   typeName,
		},
	}
}

// Schema returns a JSON Schema fragment for the map's serialized array form,
// given a schema for a single item.
func (m *HashMap[K, T]) Schema(itemSchema map[string]any) map[string]any {
	return arraySchema("HashMap", itemSchema)
}

// Schema returns a JSON Schema fragment for the map's serialized array form,
// given a schema for a single item.
func (m *OrdMap[K, T]) Schema(itemSchema map[string]any) map[string]any {
	return arraySchema("OrdMap", itemSchema)
}

// Schema returns a JSON Schema fragment for the map's serialized array form,
// given a schema for a single item.
func (m *BiMap[K1, K2, T]) Schema(itemSchema map[string]any) map[string]any {
	return arraySchema("BiMap", itemSchema)
}

// Schema returns a JSON Schema fragment for the map's serialized array form,
// given a schema for a single item.
func (m *TriMap[K1, K2, K3, T]) Schema(itemSchema map[string]any) map[string]any {
	return arraySchema("TriMap", itemSchema)
}
