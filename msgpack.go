package idmap

import (
	"fmt"
	"iter"

	"github.com/vmihailenco/msgpack/v5"
	"github.com/vmihailenco/msgpack/v5/msgpcode"
)

// All map variants encode to msgpack as an array of their items, matching
// the JSON form. Decoding accepts either the array form or a map form whose
// values are items (the keys are redundant and skipped); duplicate keys
// fail with a *ConflictError. The AsMap adapters encode the map form.

func encodeMsgpackItems[T any](enc *msgpack.Encoder, n int, all iter.Seq[T]) error {
	if err := enc.EncodeArrayLen(n); err != nil {
		return err
	}
	for item := range all {
		if err := enc.Encode(item); err != nil {
			return err
		}
	}
	return nil
}

func encodeMsgpackItemMap[K, T any](enc *msgpack.Encoder, n int, all iter.Seq[T], keyOf func(T) K) error {
	if err := enc.EncodeMapLen(n); err != nil {
		return err
	}
	for item := range all {
		if err := enc.Encode(keyOf(item)); err != nil {
			return err
		}
		if err := enc.Encode(item); err != nil {
			return err
		}
	}
	return nil
}

func decodeMsgpackItems[T any](dec *msgpack.Decoder, reserve func(n int), insert func(item T) error) error {
	c, err := dec.PeekCode()
	if err != nil {
		return err
	}
	switch {
	case c == msgpcode.Nil:
		return dec.DecodeNil()
	case msgpcode.IsFixedArray(c) || c == msgpcode.Array16 || c == msgpcode.Array32:
		n, err := dec.DecodeArrayLen()
		if err != nil {
			return err
		}
		reserve(n)
		for i := 0; i < n; i++ {
			var item T
			if err := dec.Decode(&item); err != nil {
				return err
			}
			if err := insert(item); err != nil {
				return &ConflictError{Form: "array", Err: err}
			}
		}
		return nil
	case msgpcode.IsFixedMap(c) || c == msgpcode.Map16 || c == msgpcode.Map32:
		n, err := dec.DecodeMapLen()
		if err != nil {
			return err
		}
		reserve(n)
		// The items carry their own keys, but the document keys are still
		// decoded to reject textual duplicates the same way the JSON path
		// does.
		seen := make(map[string]bool, n)
		for i := 0; i < n; i++ {
			keyVal, err := dec.DecodeInterfaceLoose()
			if err != nil {
				return err
			}
			key := fmt.Sprint(keyVal)
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
		return nil
	default:
		return fmt.Errorf("idmap: msgpack: expected array or map, got code %x", c)
	}
}

func (m *HashMap[K, T]) EncodeMsgpack(enc *msgpack.Encoder) error {
	return encodeMsgpackItems(enc, m.Len(), m.All())
}

func (m *HashMap[K, T]) DecodeMsgpack(dec *msgpack.Decoder) error {
	m.Clear()
	return decodeMsgpackItems(dec, m.Reserve, func(item T) error { return m.InsertUnique(item) })
}

func (m *OrdMap[K, T]) EncodeMsgpack(enc *msgpack.Encoder) error {
	return encodeMsgpackItems(enc, m.Len(), m.All())
}

func (m *OrdMap[K, T]) DecodeMsgpack(dec *msgpack.Decoder) error {
	m.Clear()
	return decodeMsgpackItems(dec, m.Reserve, func(item T) error { return m.InsertUnique(item) })
}

func (m *BiMap[K1, K2, T]) EncodeMsgpack(enc *msgpack.Encoder) error {
	return encodeMsgpackItems(enc, m.Len(), m.All())
}

func (m *BiMap[K1, K2, T]) DecodeMsgpack(dec *msgpack.Decoder) error {
	m.Clear()
	return decodeMsgpackItems(dec, m.Reserve, func(item T) error { return m.InsertUnique(item) })
}

func (m *TriMap[K1, K2, K3, T]) EncodeMsgpack(enc *msgpack.Encoder) error {
	return encodeMsgpackItems(enc, m.Len(), m.All())
}

func (m *TriMap[K1, K2, K3, T]) DecodeMsgpack(dec *msgpack.Decoder) error {
	m.Clear()
	return decodeMsgpackItems(dec, m.Reserve, func(item T) error { return m.InsertUnique(item) })
}

func (w HashMapAsMap[K, T]) EncodeMsgpack(enc *msgpack.Encoder) error {
	return encodeMsgpackItemMap(enc, w.M.Len(), w.M.All(), func(item T) K { return item.ItemKey() })
}

func (w HashMapAsMap[K, T]) DecodeMsgpack(dec *msgpack.Decoder) error {
	return w.M.DecodeMsgpack(dec)
}

func (w OrdMapAsMap[K, T]) EncodeMsgpack(enc *msgpack.Encoder) error {
	return encodeMsgpackItemMap(enc, w.M.Len(), w.M.All(), func(item T) K { return item.ItemKey() })
}

func (w OrdMapAsMap[K, T]) DecodeMsgpack(dec *msgpack.Decoder) error {
	return w.M.DecodeMsgpack(dec)
}

func (w BiMapAsMap[K1, K2, T]) EncodeMsgpack(enc *msgpack.Encoder) error {
	return encodeMsgpackItemMap(enc, w.M.Len(), w.M.All(), func(item T) K1 { return item.Key1() })
}

func (w BiMapAsMap[K1, K2, T]) DecodeMsgpack(dec *msgpack.Decoder) error {
	return w.M.DecodeMsgpack(dec)
}

func (w TriMapAsMap[K1, K2, K3, T]) EncodeMsgpack(enc *msgpack.Encoder) error {
	return encodeMsgpackItemMap(enc, w.M.Len(), w.M.All(), func(item T) K1 { return item.Key1() })
}

func (w TriMapAsMap[K1, K2, K3, T]) DecodeMsgpack(dec *msgpack.Decoder) error {
	return w.M.DecodeMsgpack(dec)
}
