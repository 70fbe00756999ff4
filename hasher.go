package idmap

import (
	"bytes"
	"fmt"
	"hash/maphash"

	"github.com/cespare/xxhash/v2"
	"github.com/vmihailenco/msgpack/v5"
)

// Hasher computes hash values of projected keys for the hashed map
// variants. A hasher is injected at construction time and must be
// deterministic and side-effect-free for the lifetime of the map.
type Hasher[K any] interface {
	HashKey(key K) uint64
}

// SeededHasher hashes any comparable key using the runtime's hash functions
// with a per-hasher random seed. This is the default hasher of all hashed
// variants. Hash values differ between map instances and process runs.
type SeededHasher[K comparable] struct {
	seed maphash.Seed
}

func NewSeededHasher[K comparable]() SeededHasher[K] {
	return SeededHasher[K]{seed: maphash.MakeSeed()}
}

func (h SeededHasher[K]) HashKey(key K) uint64 {
	return maphash.Comparable(h.seed, key)
}

// XXHasher hashes string keys with xxHash. Unlike SeededHasher, hash values
// are stable across map instances and process runs.
type XXHasher[K ~string] struct{}

func (XXHasher[K]) HashKey(key K) uint64 {
	return xxhash.Sum64String(string(key))
}

// EncHasher hashes a key of any msgpack-encodable type by encoding it and
// hashing the resulting bytes with xxHash. Meant for composite struct keys
// that need a stable hash. Keys that fail to encode are a programmer error.
type EncHasher[K any] struct{}

func (EncHasher[K]) HashKey(key K) uint64 {
	var buf bytes.Buffer
	enc := msgpack.GetEncoder()
	enc.ResetDict(&buf, nil)
	enc.SetSortMapKeys(true)
	err := enc.Encode(key)
	msgpack.PutEncoder(enc)
	if err != nil {
		panic(fmt.Errorf("idmap: failed to encode %T key for hashing: %w", key, err))
	}
	return xxhash.Sum64(buf.Bytes())
}
