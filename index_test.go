package pregel

import "testing"

func TestBuildEdgeIndexRepresentativesAreMinimumDestination(t *testing.T) {
	edges := []Edge[string, float64]{
		{Source: "A", Target: "B", Value: 1},
		{Source: "A", Target: "C", Value: 4},
		{Source: "B", Target: "C", Value: 2},
		{Source: "B", Target: "D", Value: 5},
		{Source: "C", Target: "D", Value: 1},
	}
	p := NewHashPartitioner[string]()
	idx := buildEdgeIndex(edges, p, 4)

	for ch, repr := range idx.representatives {
		for _, e := range idx.byDestPartition[ch] {
			if e.Target < repr {
				t.Fatalf("partition %d representative %v is not the minimum: found smaller target %v", ch, repr, e.Target)
			}
		}
	}
}

func TestBuildEdgeIndexEmptyEdgeSet(t *testing.T) {
	idx := buildEdgeIndex[string, float64](nil, NewHashPartitioner[string](), 4)

	if len(idx.representatives) != 0 {
		t.Fatalf("representatives = %v, want empty for an empty edge set", idx.representatives)
	}
	if len(idx.bySourcePartition) != 0 || len(idx.byDestPartition) != 0 {
		t.Fatalf("index tables not empty for an empty edge set")
	}
}

func TestBuildEdgeIndexSourceAndDestGroupingsAreIndependent(t *testing.T) {
	edges := []Edge[int, int]{
		{Source: 1, Target: 2},
		{Source: 2, Target: 3},
	}
	p := NewHashPartitioner[int]()
	parallelism := 2
	idx := buildEdgeIndex(edges, p, parallelism)

	total := 0
	for _, es := range idx.bySourcePartition {
		total += len(es)
	}
	if total != len(edges) {
		t.Fatalf("bySourcePartition holds %d edges total, want %d", total, len(edges))
	}

	total = 0
	for _, es := range idx.byDestPartition {
		total += len(es)
	}
	if total != len(edges) {
		t.Fatalf("byDestPartition holds %d edges total, want %d", total, len(edges))
	}
}
