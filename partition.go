package pregel

import (
	"fmt"
	"hash/fnv"
)

// Partitioner assigns a vertex key to one of P partitions. It is the single
// source of truth for "which worker owns this key" — both the edge indexer
// (index.go) and the messaging packing algorithm (messaging.go) must use
// the same function, never an independent re-hash.
type Partitioner[K Key] interface {
	Channel(key K, parallelism int) PartitionIndex
}

// hashPartitioner is the default Partitioner. It formats the key and hashes
// the bytes with FNV-1a: a cheap, dependency-free, deterministic hash
// well suited to bucket assignment.
type hashPartitioner[K Key] struct{}

// NewHashPartitioner returns the engine's default Partitioner.
func NewHashPartitioner[K Key]() Partitioner[K] {
	return &hashPartitioner[K]{}
}

func (h *hashPartitioner[K]) Channel(key K, parallelism int) PartitionIndex {
	if parallelism <= 1 {
		return 0
	}

	hasher := fnv.New32a()
	_, _ = hasher.Write([]byte(fmt.Sprintf("%v", key)))

	return PartitionIndex(hasher.Sum32() % uint32(parallelism))
}
