package pregel

import (
	"bytes"
	"encoding/gob"
)

// vertexStore is the solution-set storage abstraction one partition worker
// holds its shard in. Two implementations back
// Builder.SetSolutionSetUnmanagedMemory: an in-memory map, or a
// gob-serialized form that round-trips every value through encoding on
// write and decoding on read, giving the caller a value the UDF host
// cannot alias into later mutation.
type vertexStore[K Key, V any] interface {
	get(k K) (V, bool)
	set(k K, v V)
	all() map[K]V
}

// unmanagedStore is a plain in-memory map: no copying, no serialization
// overhead, the same value shared across reads.
type unmanagedStore[K Key, V any] struct {
	m map[K]V
}

func newUnmanagedStore[K Key, V any]() *unmanagedStore[K, V] {
	return &unmanagedStore[K, V]{m: make(map[K]V)}
}

func (s *unmanagedStore[K, V]) get(k K) (V, bool) {
	v, ok := s.m[k]
	return v, ok
}

func (s *unmanagedStore[K, V]) set(k K, v V) { s.m[k] = v }

func (s *unmanagedStore[K, V]) all() map[K]V { return s.m }

// managedStore is the default: every write gob-encodes V into a byte
// slice; every read decodes a fresh copy. This matches the managed/
// serialized solution-set default, at the cost of requiring V's fields to
// be exported (gob does not see unexported fields).
type managedStore[K Key, V any] struct {
	encoded map[K][]byte
}

func newManagedStore[K Key, V any]() *managedStore[K, V] {
	return &managedStore[K, V]{encoded: make(map[K][]byte)}
}

func (s *managedStore[K, V]) get(k K) (V, bool) {
	var v V
	raw, ok := s.encoded[k]
	if !ok {
		return v, false
	}
	_ = gob.NewDecoder(bytes.NewReader(raw)).Decode(&v)
	return v, true
}

func (s *managedStore[K, V]) set(k K, v V) {
	buf := &bytes.Buffer{}
	_ = gob.NewEncoder(buf).Encode(v)
	s.encoded[k] = buf.Bytes()
}

func (s *managedStore[K, V]) all() map[K]V {
	out := make(map[K]V, len(s.encoded))
	for k := range s.encoded {
		v, _ := s.get(k)
		out[k] = v
	}
	return out
}

func newVertexStore[K Key, V any](managed bool) vertexStore[K, V] {
	if managed {
		return newManagedStore[K, V]()
	}
	return newUnmanagedStore[K, V]()
}
