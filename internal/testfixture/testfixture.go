// Package testfixture holds the small, deterministic scenario graphs
// (SSSP, connected components, PageRank): data, no behavior, kept out of
// the public API surface by internal/ visibility. No other package in this
// repository imports it.
package testfixture

import "math"

// SSSPGraph returns the single-source-shortest-path scenario graph:
// V={A,B,C,D}, edges A->B(1), A->C(4), B->C(2), B->D(5), C->D(1), source A.
func SSSPGraph() (edges []Edge, initial map[string]float64) {
	edges = []Edge{
		{"A", "B", 1},
		{"A", "C", 4},
		{"B", "C", 2},
		{"B", "D", 5},
		{"C", "D", 1},
	}
	initial = map[string]float64{
		"A": 0,
		"B": math.Inf(1),
		"C": math.Inf(1),
		"D": math.Inf(1),
	}
	return edges, initial
}

// ConnectedComponentsGraph returns the connected-components scenario graph:
// V={1..6}, edges 1-2, 2-3, 4-5 (undirected, modeled as edges both ways),
// initial label = own id.
func ConnectedComponentsGraph() (edges []Edge, initial map[string]float64) {
	undirected := [][2]string{{"1", "2"}, {"2", "3"}, {"4", "5"}}
	for _, p := range undirected {
		edges = append(edges, Edge{p[0], p[1], 0}, Edge{p[1], p[0], 0})
	}
	initial = map[string]float64{"1": 1, "2": 2, "3": 3, "4": 4, "5": 5, "6": 6}
	return edges, initial
}

// PageRankGraph returns the 4-node directed cycle A->B->C->D->A, initial
// rank 0.25 each.
func PageRankGraph() (edges []Edge, initial map[string]float64) {
	edges = []Edge{
		{"A", "B", 0},
		{"B", "C", 0},
		{"C", "D", 0},
		{"D", "A", 0},
	}
	initial = map[string]float64{"A": 0.25, "B": 0.25, "C": 0.25, "D": 0.25}
	return edges, initial
}

// Edge is a plain (source, target, value) triple, independent of the
// engine's generic Edge type so this package stays free of a pregel import.
type Edge struct {
	Source string
	Target string
	Value  float64
}
