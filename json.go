package idmap

import (
	"bytes"
	"encoding/json"
	"fmt"
	"iter"
	"strconv"
)

// All map variants marshal to JSON as an array of their items. Unmarshaling
// accepts either the array form or a key-keyed object form; a duplicate key
// in either form fails with a *ConflictError instead of overwriting. The
// AsMap adapters marshal as a key-keyed object instead.

func marshalItemArray[T any](n int, all iter.Seq[T]) ([]byte, error) {
	items := make([]T, 0, n)
	for item := range all {
		items = append(items, item)
	}
	return json.Marshal(items)
}

// unmarshalItems decodes either an array of items or an object whose values
// are items. insert is the unique insertion path of the target map, whose
// duplicate errors are wrapped in *ConflictError.
func unmarshalItems[T any](data []byte, insert func(item T) error) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	delim, ok := tok.(json.Delim)
	if !ok {
		return fmt.Errorf("idmap: expected a JSON array or object, got %v", tok)
	}
	switch delim {
	case '[':
		for dec.More() {
			var item T
			if err := dec.Decode(&item); err != nil {
				return err
			}
			if err := insert(item); err != nil {
				return &ConflictError{Form: "array", Err: err}
			}
		}
		_, err = dec.Token()
		return err
	case '{':
		seen := make(map[string]bool)
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return err
			}
			key := keyTok.(string)
			if seen[key] {
				return &ConflictError{Form: "map", Key: key}
			}
			seen[key] = true
			var item T
			if err := dec.Decode(&item); err != nil {
				return err
			}
			if err := insert(item); err != nil {
				return &ConflictError{Form: "map", Key: key, Err: err}
			}
		}
		_, err = dec.Token()
		return err
	default:
		return fmt.Errorf("idmap: expected a JSON array or object, got %v", delim)
	}
}

// jsonObjectKey renders a projected key as a JSON object key. String keys
// keep their JSON encoding; anything else is quoted.
func jsonObjectKey(key any) ([]byte, error) {
	raw, err := json.Marshal(key)
	if err != nil {
		return nil, err
	}
	if len(raw) > 0 && raw[0] == '"' {
		return raw, nil
	}
	return strconv.AppendQuote(nil, string(raw)), nil
}

func marshalItemObject[K, T any](all iter.Seq[T], keyOf func(T) K) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	for item := range all {
		if !first {
			buf.WriteByte(',')
		}
		first = false
		key, err := jsonObjectKey(keyOf(item))
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		raw, err := json.Marshal(item)
		if err != nil {
			return nil, err
		}
		buf.Write(raw)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (m *HashMap[K, T]) MarshalJSON() ([]byte, error) {
	return marshalItemArray(m.Len(), m.All())
}

func (m *HashMap[K, T]) UnmarshalJSON(data []byte) error {
	m.Clear()
	return unmarshalItems(data, func(item T) error { return m.InsertUnique(item) })
}

func (m *OrdMap[K, T]) MarshalJSON() ([]byte, error) {
	return marshalItemArray(m.Len(), m.All())
}

func (m *OrdMap[K, T]) UnmarshalJSON(data []byte) error {
	m.Clear()
	return unmarshalItems(data, func(item T) error { return m.InsertUnique(item) })
}

func (m *BiMap[K1, K2, T]) MarshalJSON() ([]byte, error) {
	return marshalItemArray(m.Len(), m.All())
}

func (m *BiMap[K1, K2, T]) UnmarshalJSON(data []byte) error {
	m.Clear()
	return unmarshalItems(data, func(item T) error { return m.InsertUnique(item) })
}

func (m *TriMap[K1, K2, K3, T]) MarshalJSON() ([]byte, error) {
	return marshalItemArray(m.Len(), m.All())
}

func (m *TriMap[K1, K2, K3, T]) UnmarshalJSON(data []byte) error {
	m.Clear()
	return unmarshalItems(data, func(item T) error { return m.InsertUnique(item) })
}

// HashMapAsMap serializes the wrapped HashMap as a key-keyed document
// instead of the default array of items.
type HashMapAsMap[K comparable, T Item[K]] struct {
	M *HashMap[K, T]
}

// AsMap returns an adapter that serializes the map as a key-keyed document.
func (m *HashMap[K, T]) AsMap() HashMapAsMap[K, T] {
	return HashMapAsMap[K, T]{M: m}
}

func (w HashMapAsMap[K, T]) MarshalJSON() ([]byte, error) {
	return marshalItemObject(w.M.All(), func(item T) K { return item.ItemKey() })
}

func (w HashMapAsMap[K, T]) UnmarshalJSON(data []byte) error {
	return w.M.UnmarshalJSON(data)
}

// OrdMapAsMap serializes the wrapped OrdMap as a key-keyed document in
// ascending key order.
type OrdMapAsMap[K comparable, T Item[K]] struct {
	M *OrdMap[K, T]
}

// AsMap returns an adapter that serializes the map as a key-keyed document.
func (m *OrdMap[K, T]) AsMap() OrdMapAsMap[K, T] {
	return OrdMapAsMap[K, T]{M: m}
}

func (w OrdMapAsMap[K, T]) MarshalJSON() ([]byte, error) {
	return marshalItemObject(w.M.All(), func(item T) K { return item.ItemKey() })
}

func (w OrdMapAsMap[K, T]) UnmarshalJSON(data []byte) error {
	return w.M.UnmarshalJSON(data)
}

// BiMapAsMap serializes the wrapped BiMap as a document keyed by key1.
type BiMapAsMap[K1, K2 comparable, T BiItem[K1, K2]] struct {
	M *BiMap[K1, K2, T]
}

// AsMap returns an adapter that serializes the map as a document keyed by
// key1.
func (m *BiMap[K1, K2, T]) AsMap() BiMapAsMap[K1, K2, T] {
	return BiMapAsMap[K1, K2, T]{M: m}
}

func (w BiMapAsMap[K1, K2, T]) MarshalJSON() ([]byte, error) {
	return marshalItemObject(w.M.All(), func(item T) K1 { return item.Key1() })
}

func (w BiMapAsMap[K1, K2, T]) UnmarshalJSON(data []byte) error {
	return w.M.UnmarshalJSON(data)
}

// TriMapAsMap serializes the wrapped TriMap as a document keyed by key1.
type TriMapAsMap[K1, K2, K3 comparable, T TriItem[K1, K2, K3]] struct {
	M *TriMap[K1, K2, K3, T]
}

// AsMap returns an adapter that serializes the map as a document keyed by
// key1.
func (m *TriMap[K1, K2, K3, T]) AsMap() TriMapAsMap[K1, K2, K3, T] {
	return TriMapAsMap[K1, K2, K3, T]{M: m}
}

func (w TriMapAsMap[K1, K2, K3, T]) MarshalJSON() ([]byte, error) {
	return marshalItemObject(w.M.All(), func(item T) K1 { return item.Key1() })
}

func (w TriMapAsMap[K1, K2, K3, T]) UnmarshalJSON(data []byte) error {
	return w.M.UnmarshalJSON(data)
}
