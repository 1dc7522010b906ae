package pregel

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"
)

// multicastSender sends a single payload to a fixed recipient list via one
// SendMessageToMultipleRecipients call, spanning however many partitions
// those recipients land in.
type multicastSender struct {
	BaseMessagingFunction[string, float64, float64, float64]
	from       string
	recipients []string
}

func (m *multicastSender) SendMessages(ctx *MessagingContext[string, float64, float64, float64], vertex string, value float64) error {
	if vertex != m.from {
		return nil
	}
	return ctx.SendMessageToMultipleRecipients(m.recipients, 1)
}

// countingUpdate sums incoming messages into the vertex value and reports
// every vertex it is called for as updated, so that vertex is active in
// the next superstep.
type countingUpdate struct {
	BaseUpdateFunction[string, float64, float64]
}

func (countingUpdate) UpdateVertex(ctx *UpdateContext[string, float64, float64], vertex string, current float64, messages []float64) (float64, bool) {
	sum := current
	for _, m := range messages {
		sum += m
	}
	return sum, true
}

func TestMulticastReachesRecipientsAcrossPartitions(t *testing.T) {
	recipients := []string{"v3", "v7", "v9"}
	initial := map[string]float64{"v0": 0, "v3": 0, "v7": 0, "v9": 0}

	result, err := NewBuilder[string, float64, float64, float64]().
		SetParallelism(4).
		WithPlainEdges(nil, countingUpdate{}, &multicastSender{from: "v0", recipients: recipients}, 1).
		SetInput(initial).
		CreateResult(context.Background())
	if err != nil {
		t.Fatalf("CreateResult() = %v, want no error", err)
	}

	for _, r := range recipients {
		if result[r] != 1 {
			t.Fatalf("result[%q] = %v, want 1 (message delivered exactly once)", r, result[r])
		}
	}
}

// broadcastSender sends an identical payload to every out-neighbour via the
// dedup-optimized broadcast API.
type broadcastSender struct {
	BaseMessagingFunction[string, float64, float64, float64]
	from string
}

func (b *broadcastSender) SendMessages(ctx *MessagingContext[string, float64, float64, float64], vertex string, value float64) error {
	if vertex != b.from {
		return nil
	}
	return ctx.SendMessageToAllNeighbours(1)
}

func TestBroadcastDedupDeliversToEveryOutNeighbour(t *testing.T) {
	edges := []Edge[string, float64]{
		{Source: "v0", Target: "n1"},
		{Source: "v0", Target: "n2"},
		{Source: "v0", Target: "n3"},
	}
	initial := map[string]float64{"v0": 0, "n1": 0, "n2": 0, "n3": 0}

	result, err := NewBuilder[string, float64, float64, float64]().
		SetParallelism(4).
		WithPlainEdges(edges, countingUpdate{}, &broadcastSender{from: "v0"}, 1).
		SetInput(initial).
		CreateResult(context.Background())
	if err != nil {
		t.Fatalf("CreateResult() = %v, want no error", err)
	}

	for _, n := range []string{"n1", "n2", "n3"} {
		if result[n] != 1 {
			t.Fatalf("result[%q] = %v, want 1", n, result[n])
		}
	}
}

// sendToAbsent always targets a recipient that was never part of the
// initial vertex set, producing a non-deliverable message.
type sendToAbsent struct {
	BaseMessagingFunction[string, float64, float64, float64]
}

func (sendToAbsent) SendMessages(ctx *MessagingContext[string, float64, float64, float64], vertex string, value float64) error {
	return ctx.SendMessageTo("ghost", 1)
}

func TestNonDeliverableMessageFailsTheJobNamingTheVertex(t *testing.T) {
	_, err := NewBuilder[string, float64, float64, float64]().
		WithPlainEdges(nil, countingUpdate{}, sendToAbsent{}, 1).
		SetInput(map[string]float64{"a": 0}).
		CreateResult(context.Background())

	var jobErr *JobError
	if !errors.As(err, &jobErr) {
		t.Fatalf("CreateResult() = %v, want a JobError", err)
	}
	if jobErr.Kind != ErrKindRuntime {
		t.Fatalf("JobError.Kind = %v, want %v", jobErr.Kind, ErrKindRuntime)
	}
	if jobErr.VertexID != "ghost" {
		t.Fatalf("JobError.VertexID = %v, want %q", jobErr.VertexID, "ghost")
	}
	if !strings.Contains(err.Error(), "ghost") {
		t.Fatalf("error message %q does not name the absent vertex", err.Error())
	}
}

func TestJobWithSingleParallelismRunsOnOnePartition(t *testing.T) {
	edges := []Edge[string, float64]{{Source: "a", Target: "b"}}
	initial := map[string]float64{"a": 0, "b": 0}

	result, err := NewBuilder[string, float64, float64, float64]().
		SetParallelism(1).
		WithPlainEdges(edges, countingUpdate{}, &broadcastSender{from: "a"}, 1).
		SetInput(initial).
		CreateResult(context.Background())
	if err != nil {
		t.Fatalf("CreateResult() = %v, want no error", err)
	}
	if result["b"] != 1 {
		t.Fatalf("result[b] = %v, want 1", result["b"])
	}
}

func TestIdenticalRunsProduceIdenticalResults(t *testing.T) {
	edges := []Edge[string, float64]{
		{Source: "v0", Target: "n1"},
		{Source: "v0", Target: "n2"},
	}
	initial := map[string]float64{"v0": 0, "n1": 0, "n2": 0}

	build := func() (map[string]float64, error) {
		return NewBuilder[string, float64, float64, float64]().
			SetParallelism(4).
			WithPlainEdges(edges, countingUpdate{}, &broadcastSender{from: "v0"}, 3).
			SetInput(initial).
			CreateResult(context.Background())
	}

	first, err := build()
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	second, err := build()
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	keys := make([]string, 0, len(first))
	for k := range first {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if first[k] != second[k] {
			t.Fatalf("non-deterministic result for %q: first run = %v, second run = %v", k, first[k], second[k])
		}
	}
}

func TestSelfLoopDoesNotDoubleCountAMessage(t *testing.T) {
	edges := []Edge[string, float64]{{Source: "a", Target: "a"}}
	initial := map[string]float64{"a": 0}

	result, err := NewBuilder[string, float64, float64, float64]().
		SetParallelism(2).
		WithPlainEdges(edges, countingUpdate{}, &broadcastSender{from: "a"}, 1).
		SetInput(initial).
		CreateResult(context.Background())
	if err != nil {
		t.Fatalf("CreateResult() = %v, want no error", err)
	}
	if result["a"] != 1 {
		t.Fatalf("result[a] = %v, want 1 for a single self-loop message", result["a"])
	}
}
