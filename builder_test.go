package pregel

import (
	"context"
	"errors"
	"testing"
)

type noopMessaging struct {
	BaseMessagingFunction[string, float64, float64, float64]
}

func (noopMessaging) SendMessages(ctx *MessagingContext[string, float64, float64, float64], vertex string, value float64) error {
	return nil
}

type noopUpdate struct {
	BaseUpdateFunction[string, float64, float64]
}

func (noopUpdate) UpdateVertex(ctx *UpdateContext[string, float64, float64], vertex string, current float64, messages []float64) (float64, bool) {
	return current, false
}

func TestBuilderCreateResultWithoutFunctionsIsConfigError(t *testing.T) {
	_, err := NewBuilder[string, float64, float64, float64]().CreateResult(context.Background())

	var jobErr *JobError
	if !errors.As(err, &jobErr) || jobErr.Kind != ErrKindConfig {
		t.Fatalf("CreateResult() without UDFs = %v, want a configuration JobError", err)
	}
}

func TestBuilderInvalidParallelismIsConfigError(t *testing.T) {
	b := NewBuilder[string, float64, float64, float64]().SetParallelism(0)

	_, err := b.WithPlainEdges(nil, noopUpdate{}, noopMessaging{}, 1).CreateResult(context.Background())

	var jobErr *JobError
	if !errors.As(err, &jobErr) || jobErr.Kind != ErrKindConfig {
		t.Fatalf("CreateResult() with parallelism=0 = %v, want a configuration JobError", err)
	}
}

func TestBuilderDuplicateAggregatorNameIsConfigError(t *testing.T) {
	b := NewBuilder[string, float64, float64, float64]().
		RegisterAggregator("total", NewSumAggregator).
		RegisterAggregator("total", NewSumAggregator)

	_, err := b.WithPlainEdges(nil, noopUpdate{}, noopMessaging{}, 1).CreateResult(context.Background())

	var jobErr *JobError
	if !errors.As(err, &jobErr) || jobErr.Kind != ErrKindConfig {
		t.Fatalf("CreateResult() with a duplicate aggregator name = %v, want a configuration JobError", err)
	}
}

func TestBuilderReservedBroadcastSetNameIsConfigError(t *testing.T) {
	b := NewBuilder[string, float64, float64, float64]().
		AddBroadcastSetForMessagingFunction(HashKeysBroadcastSet, 1)

	_, err := b.WithPlainEdges(nil, noopUpdate{}, noopMessaging{}, 1).CreateResult(context.Background())

	var jobErr *JobError
	if !errors.As(err, &jobErr) || jobErr.Kind != ErrKindConfig {
		t.Fatalf("CreateResult() reusing the reserved broadcast set name = %v, want a configuration JobError", err)
	}
}

func TestBuilderEmptyEdgeSetTerminatesAfterOneSuperstep(t *testing.T) {
	result, err := NewBuilder[string, float64, float64, float64]().
		WithPlainEdges(nil, noopUpdate{}, noopMessaging{}, 5).
		SetInput(map[string]float64{"a": 1, "b": 2}).
		CreateResult(context.Background())
	if err != nil {
		t.Fatalf("CreateResult() with an empty edge set: %v", err)
	}
	if result["a"] != 1 || result["b"] != 2 {
		t.Fatalf("result = %v, want the input unchanged", result)
	}
}
