package pregel

import (
	"fmt"

	"github.com/google/uuid"
)

// errorKind tags a JobError with the engine's error taxonomy.
type errorKind string

const (
	// ErrKindConfig is a configuration error: reported at builder time,
	// before the job is ever submitted.
	ErrKindConfig errorKind = "configuration"
	// ErrKindRuntime is a runtime assertion failure: a non-deliverable
	// message or illegal use of a mutually-exclusive messaging API. It
	// aborts the current superstep and fails the job.
	ErrKindRuntime errorKind = "runtime_assertion"
	// ErrKindUser wraps a panic/error raised from inside a user-supplied
	// UDF. Nothing is retried at this layer.
	ErrKindUser errorKind = "user_exception"
)

// JobError is the error type surfaced for every failure this engine can
// itself detect. It carries enough identifying context (superstep,
// partition, vertex) that a caller can locate the offending vertex without
// re-deriving it.
type JobError struct {
	Kind          errorKind
	Superstep     int
	Partition     PartitionIndex
	VertexID      any
	Err           error
	CorrelationID string
}

func (e *JobError) Error() string {
	if e.VertexID != nil {
		return fmt.Sprintf("pregel[%s]: %s error at superstep %d, partition %d, vertex %v: %v",
			e.CorrelationID, e.Kind, e.Superstep, e.Partition, e.VertexID, e.Err)
	}
	return fmt.Sprintf("pregel[%s]: %s error at superstep %d: %v", e.CorrelationID, e.Kind, e.Superstep, e.Err)
}

func (e *JobError) Unwrap() error { return e.Err }

func configError(format string, args ...any) error {
	return &JobError{Kind: ErrKindConfig, Err: fmt.Errorf(format, args...), CorrelationID: uuid.NewString()}
}

func runtimeError(superstep int, partition PartitionIndex, vertexID any, err error) error {
	return &JobError{Kind: ErrKindRuntime, Superstep: superstep, Partition: partition, VertexID: vertexID, Err: err, CorrelationID: uuid.NewString()}
}

func userError(superstep int, partition PartitionIndex, vertexID any, err error) error {
	return &JobError{Kind: ErrKindUser, Superstep: superstep, Partition: partition, VertexID: vertexID, Err: err, CorrelationID: uuid.NewString()}
}

// ErrNonDeliverable is wrapped by runtimeError when the update host
// co-groups messages against a recipient absent from the solution set.
var ErrNonDeliverable = fmt.Errorf("message addressed to a vertex absent from the solution set")

// ErrExclusiveAPI is wrapped by runtimeError when a messaging invocation
// calls both GetOutgoingEdges and SendMessageToAllNeighbours, or iterates
// GetOutgoingEdges more than once.
var ErrExclusiveAPI = fmt.Errorf("illegal use of mutually exclusive messaging API")

// ErrMissingUDF is returned by the builder when CreateResult is called
// without both a messaging function and an update function configured.
var ErrMissingUDF = fmt.Errorf("builder missing update or messaging function")
