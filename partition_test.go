package pregel

import "testing"

func TestHashPartitionerDeterministic(t *testing.T) {
	p := NewHashPartitioner[string]()

	first := p.Channel("vertex-42", 8)
	for i := 0; i < 10; i++ {
		if got := p.Channel("vertex-42", 8); got != first {
			t.Fatalf("Channel returned %d on call %d, want %d (deterministic)", got, i, first)
		}
	}
}

func TestHashPartitionerSingleParallelism(t *testing.T) {
	p := NewHashPartitioner[string]()

	for _, key := range []string{"a", "b", "c", "zzz"} {
		if got := p.Channel(key, 1); got != 0 {
			t.Fatalf("Channel(%q, 1) = %d, want 0", key, got)
		}
	}
}

func TestHashPartitionerInRange(t *testing.T) {
	p := NewHashPartitioner[int]()
	parallelism := 4

	for key := 0; key < 100; key++ {
		ch := p.Channel(key, parallelism)
		if ch < 0 || int(ch) >= parallelism {
			t.Fatalf("Channel(%d, %d) = %d, out of range", key, parallelism, ch)
		}
	}
}
