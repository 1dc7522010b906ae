package pregel

// VertexUpdateFunction is the user-supplied UDF host contract for folding
// incoming messages into a vertex's next-superstep state.
//
// UpdateVertex is invoked once per vertex that received at least one
// message this superstep, co-grouped against the solution set entry for
// the same key. Returning ok=false leaves the vertex's state unchanged in
// the delta (no update is emitted); returning ok=true replaces it.
type VertexUpdateFunction[K Key, V, M any] interface {
	UpdateVertex(ctx *UpdateContext[K, V, M], vertex K, current V, messages []M) (updated V, ok bool)
	PreSuperstep(ctx *SuperstepContext)
	PostSuperstep(ctx *SuperstepContext)
}

// BaseUpdateFunction may be embedded by a VertexUpdateFunction
// implementation that only needs UpdateVertex, leaving the lifecycle hooks
// as no-ops.
type BaseUpdateFunction[K Key, V, M any] struct{}

func (BaseUpdateFunction[K, V, M]) PreSuperstep(*SuperstepContext)  {}
func (BaseUpdateFunction[K, V, M]) PostSuperstep(*SuperstepContext) {}

// UpdateContext is the per-invocation accessor handed to UpdateVertex: the
// current superstep number, aggregators, and broadcast sets the update UDF
// was granted by the builder.
type UpdateContext[K Key, V, M any] struct {
	superstep *SuperstepContext
}

func newUpdateContext[K Key, V, M any](superstep *SuperstepContext) *UpdateContext[K, V, M] {
	return &UpdateContext[K, V, M]{superstep: superstep}
}

// Superstep returns the current superstep number.
func (uc *UpdateContext[K, V, M]) Superstep() int { return uc.superstep.Superstep() }

// Aggregate folds a value into the named aggregator for this superstep.
func (uc *UpdateContext[K, V, M]) Aggregate(name string, value any) {
	uc.superstep.Aggregate(name, value)
}

// PreviousAggregate returns the combined value an aggregator produced in
// the prior superstep.
func (uc *UpdateContext[K, V, M]) PreviousAggregate(name string) (any, bool) {
	return uc.superstep.PreviousAggregate(name)
}

// BroadcastSet returns a named broadcast dataset for the update UDF.
func (uc *UpdateContext[K, V, M]) BroadcastSet(name string) (any, bool) {
	return uc.superstep.BroadcastSet(name)
}

// groupMessagesByRecipient folds unpacked messages down to
// {recipient -> payloads}, the co-group key the update host joins against
// the solution set.
func groupMessagesByRecipient[K Key, M any](messages []UnpackedMessage[K, M]) map[K][]M {
	grouped := make(map[K][]M)
	for _, m := range messages {
		grouped[m.Recipient] = append(grouped[m.Recipient], m.Payload)
	}
	return grouped
}

// runUpdates co-groups grouped messages with the solution set shard held by
// one partition worker, invoking fn.UpdateVertex for every recipient that
// has an entry in solutionSet. A recipient present in grouped but absent
// from solutionSet is a non-deliverable message and aborts the superstep.
//
// delta receives every vertex whose UpdateVertex call returned ok=true;
// the caller applies it to the solution set and uses it to determine which
// vertices are active (eligible to send messages) next superstep.
func runUpdates[K Key, V, M any](
	fn VertexUpdateFunction[K, V, M],
	ctx *UpdateContext[K, V, M],
	solutionSet vertexStore[K, V],
	grouped map[K][]M,
	partition PartitionIndex,
) (delta map[K]V, err error) {
	delta = make(map[K]V)

	for recipient, payloads := range grouped {
		current, known := solutionSet.get(recipient)
		if !known {
			return nil, runtimeError(ctx.Superstep(), partition, recipient, ErrNonDeliverable)
		}

		updated, ok, callErr := updateVertexRecovered(fn, ctx, recipient, current, payloads, partition)
		if callErr != nil {
			return nil, callErr
		}
		if ok {
			delta[recipient] = updated
		}
	}

	return delta, nil
}

// updateVertexRecovered invokes a VertexUpdateFunction's UpdateVertex with
// panic recovery, so a user exception fails the superstep the same way a
// non-deliverable message does rather than crashing the worker goroutine.
func updateVertexRecovered[K Key, V, M any](
	fn VertexUpdateFunction[K, V, M], ctx *UpdateContext[K, V, M],
	vertex K, current V, payloads []M, partition PartitionIndex,
) (updated V, ok bool, err error) {
	defer recoverUserPanic(ctx.Superstep(), partition, vertex, &err)
	updated, ok = fn.UpdateVertex(ctx, vertex, current, payloads)
	return updated, ok, nil
}
