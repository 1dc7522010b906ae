package pregel

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/arborworks/pregel/monitor"
	"github.com/arborworks/pregel/telemetry"
)

// recoverUserPanic converts a panic raised from inside a MessagingFunction
// or VertexUpdateFunction call into a user-exception JobError, wrapping
// whatever the handler panicked with.
func recoverUserPanic(superstep int, partition PartitionIndex, vertexID any, dst *error) {
	if r := recover(); r != nil {
		err, ok := r.(error)
		if !ok {
			err = fmt.Errorf("%v", r)
		}
		*dst = userError(superstep, partition, vertexID, err)
	}
}

// sendMessagesRecovered invokes a MessagingFunction's SendMessages with
// panic recovery, so a user exception fails the superstep the same way a
// returned error does rather than crashing the worker goroutine.
func sendMessagesRecovered[K Key, V, M, E any](
	fn MessagingFunction[K, V, M, E], mc *MessagingContext[K, V, M, E], vertex K, value V,
	superstep int, partition PartitionIndex,
) (err error) {
	defer recoverUserPanic(superstep, partition, vertex, &err)
	return fn.SendMessages(mc, vertex, value)
}

// runtimeConfig is the resolved, validated configuration produced by
// Builder.CreateResult: everything the iteration driver needs to execute
// one job run.
type runtimeConfig[K Key, V, M, E any] struct {
	name          string
	parallelism   int
	maxSupersteps int
	partitioner   Partitioner[K]
	edges         []Edge[K, E]

	messagingFn MessagingFunction[K, V, M, E]
	updateFn    VertexUpdateFunction[K, V, M]

	aggregators   *aggregatorRegistry
	messagingSets map[string]any
	updateSets    map[string]any

	reporter *monitor.Monitor
}

// resolvedParallelism turns the builder's parallelism setting (a positive
// count, or -1 for "let the engine decide") into a concrete partition
// count.
func resolvedParallelism(configured int) int {
	if configured == -1 {
		if n := runtime.GOMAXPROCS(0); n > 0 {
			return n
		}
		return 1
	}
	return configured
}

// partitionWorker owns one partition's solution-set shard, its local edge
// index shards, and its broadcast adjacency map for the life of a job run.
// Workers never read or write another worker's solution-set shard or
// adjacency map; the representative table and named broadcast sets are the
// only state shared read-only across workers.
type partitionWorker[K Key, V, M, E any] struct {
	id PartitionIndex

	solutionSet   vertexStore[K, V]
	outEdgesBySrc map[K][]Edge[K, E]

	localDestEdges []Edge[K, E]
	adjacency      *broadcastAdjacency[K]
}

func newPartitionWorker[K Key, V, M, E any](id PartitionIndex, managed bool) *partitionWorker[K, V, M, E] {
	return &partitionWorker[K, V, M, E]{
		id:            id,
		solutionSet:   newVertexStore[K, V](managed),
		outEdgesBySrc: make(map[K][]Edge[K, E]),
	}
}

// routedEnvelopes is the fan-out of one superstep's messaging phase,
// bucketed by destination partition and envelope subtype.
type routedEnvelopes[K Key, M any] struct {
	explicit  map[PartitionIndex][]*Envelope[K, M]
	broadcast map[PartitionIndex][]*Envelope[K, M]
}

func newRoutedEnvelopes[K Key, M any]() *routedEnvelopes[K, M] {
	return &routedEnvelopes[K, M]{
		explicit:  make(map[PartitionIndex][]*Envelope[K, M]),
		broadcast: make(map[PartitionIndex][]*Envelope[K, M]),
	}
}

func (r *routedEnvelopes[K, M]) add(envelopes []*Envelope[K, M]) {
	for _, env := range envelopes {
		if env.IsBroadcast() {
			r.broadcast[env.Channel] = append(r.broadcast[env.Channel], env)
		} else {
			r.explicit[env.Channel] = append(r.explicit[env.Channel], env)
		}
	}
}

// execute runs a job to completion: it terminates when the work set is
// empty or maxSupersteps is reached, whichever comes first, and returns the
// final solution set across all partitions. managed selects the
// solution-set storage mode (see store.go).
func execute[K Key, V, M, E any](ctx context.Context, cfg *runtimeConfig[K, V, M, E], initial map[K]V, managed bool) (map[K]V, error) {
	idx := buildEdgeIndex(cfg.edges, cfg.partitioner, cfg.parallelism)

	cfg.messagingSets[HashKeysBroadcastSet] = idx.representatives
	cfg.updateSets[HashKeysBroadcastSet] = idx.representatives

	workers := make([]*partitionWorker[K, V, M, E], cfg.parallelism)
	for p := 0; p < cfg.parallelism; p++ {
		w := newPartitionWorker[K, V, M, E](PartitionIndex(p), managed)
		for _, e := range idx.bySourcePartition[PartitionIndex(p)] {
			w.outEdgesBySrc[e.Source] = append(w.outEdgesBySrc[e.Source], e)
		}
		w.localDestEdges = idx.byDestPartition[PartitionIndex(p)]
		workers[p] = w
	}

	workSet := make(map[PartitionIndex][]K)
	for key, value := range initial {
		p := cfg.partitioner.Channel(key, cfg.parallelism)
		workers[p].solutionSet.set(key, value)
		workSet[p] = append(workSet[p], key)
	}

	for superstep := 1; superstep <= cfg.maxSupersteps; superstep++ {
		if workSetEmpty(workSet) {
			break
		}

		sctx := telemetry.StartSuperstepSpan(ctx, cfg.name, superstep)
		telemetry.RecordSuperstepCounter(sctx, "pregel.superstep.active_vertices", activeVertexCount(workSet))

		mctx := telemetry.StartPhaseSpan(sctx, "messaging")
		envelopes, err := runMessagingPhase(mctx, cfg, workers, workSet, idx.representatives, superstep)
		if err != nil {
			telemetry.EndPhaseSpan(mctx, "messaging", "error")
			telemetry.EndSuperstepSpan(sctx, "error")
			return nil, err
		}
		telemetry.EndPhaseSpan(mctx, "messaging", "ok")
		telemetry.RecordSuperstepCounter(sctx, "pregel.superstep.envelopes", int64(len(envelopes)))

		routed := newRoutedEnvelopes[K, M]()
		routed.add(envelopes)

		uctx := telemetry.StartPhaseSpan(sctx, "update")
		nextWorkSet, err := runUpdatePhase(uctx, cfg, workers, routed, superstep, superstep == 1)
		if err != nil {
			telemetry.EndPhaseSpan(uctx, "update", "error")
			telemetry.EndSuperstepSpan(sctx, "error")
			return nil, err
		}
		telemetry.EndPhaseSpan(uctx, "update", "ok")

		cfg.aggregators.barrier()
		telemetry.EndSuperstepSpan(sctx, "ok")

		if cfg.reporter != nil {
			cfg.reporter.Publish(monitor.NewProgressEvent(cfg.name, superstep, activeVertexCount(workSet), int64(len(envelopes)), time.Now()))
		}

		workSet = nextWorkSet
	}

	final := make(map[K]V)
	for _, w := range workers {
		for k, v := range w.solutionSet.all() {
			final[k] = v
		}
	}
	return final, nil
}

func workSetEmpty[K Key](workSet map[PartitionIndex][]K) bool {
	for _, keys := range workSet {
		if len(keys) > 0 {
			return false
		}
	}
	return true
}

func activeVertexCount[K Key](workSet map[PartitionIndex][]K) int64 {
	var n int64
	for _, keys := range workSet {
		n += int64(len(keys))
	}
	return n
}

// runMessagingPhase runs MessagingFunction.SendMessages for every active
// vertex, one partition worker per goroutine, and returns every envelope
// produced across all workers. An error returned or a panic raised by any
// SendMessages call (such as illegal exclusive-API use) aborts the whole
// phase.
func runMessagingPhase[K Key, V, M, E any](
	ctx context.Context,
	cfg *runtimeConfig[K, V, M, E],
	workers []*partitionWorker[K, V, M, E],
	workSet map[PartitionIndex][]K,
	representatives RepresentativeTable[K],
	superstep int,
) ([]*Envelope[K, M], error) {
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		all      []*Envelope[K, M]
		firstErr error
	)

	for _, w := range workers {
		active := workSet[w.id]
		if len(active) == 0 {
			continue
		}

		wg.Add(1)
		go func(w *partitionWorker[K, V, M, E], active []K) {
			defer wg.Done()

			supCtx := &SuperstepContext{
				superstep:     superstep,
				partial:       cfg.aggregators.forPartition(),
				aggregators:   cfg.aggregators,
				broadcastSets: cfg.messagingSets,
			}

			cfg.messagingFn.PreSuperstep(supCtx)

			var produced []*Envelope[K, M]
			for _, key := range active {
				select {
				case <-ctx.Done():
					mu.Lock()
					if firstErr == nil {
						firstErr = ctx.Err()
					}
					mu.Unlock()
					return
				default:
				}

				value, _ := w.solutionSet.get(key)
				mc := newMessagingContext[K, V, M, E](
					supCtx, key, cfg.parallelism, cfg.partitioner, representatives, w.outEdgesBySrc[key],
				)
				if err := sendMessagesRecovered(cfg.messagingFn, mc, key, value, superstep, w.id); err != nil {
					mu.Lock()
					if firstErr == nil {
						firstErr = err
					}
					mu.Unlock()
					return
				}
				produced = append(produced, mc.envelopesProduced()...)
			}

			cfg.messagingFn.PostSuperstep(supCtx)
			cfg.aggregators.combine(supCtx.partial)

			mu.Lock()
			all = append(all, produced...)
			mu.Unlock()
		}(w, active)
	}

	wg.Wait()
	if firstErr != nil {
		return nil, firstErr
	}
	return all, nil
}

// runUpdatePhase runs the unpack + co-group + VertexUpdateFunction.
// UpdateVertex sequence for every partition that received at least one
// envelope, one partition worker per goroutine, and returns the next
// superstep's work set (the keys each worker's update call emitted a
// replacement state for).
func runUpdatePhase[K Key, V, M, E any](
	ctx context.Context,
	cfg *runtimeConfig[K, V, M, E],
	workers []*partitionWorker[K, V, M, E],
	routed *routedEnvelopes[K, M],
	superstep int,
	firstSuperstep bool,
) (map[PartitionIndex][]K, error) {
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		nextWork = make(map[PartitionIndex][]K)
		firstErr error
	)

	if firstSuperstep {
		for _, w := range workers {
			w.adjacency = buildBroadcastAdjacency(w.localDestEdges)
		}
	}

	for _, w := range workers {
		explicit := routed.explicit[w.id]
		broadcast := routed.broadcast[w.id]
		if len(explicit) == 0 && len(broadcast) == 0 {
			continue
		}

		wg.Add(1)
		go func(w *partitionWorker[K, V, M, E], explicit, broadcast []*Envelope[K, M]) {
			defer wg.Done()

			select {
			case <-ctx.Done():
				mu.Lock()
				if firstErr == nil {
					firstErr = ctx.Err()
				}
				mu.Unlock()
				return
			default:
			}

			messages := unpackExplicitList(explicit)
			messages = append(messages, unpackBroadcast(w.adjacency, broadcast)...)
			grouped := groupMessagesByRecipient(messages)
			if len(grouped) == 0 {
				return
			}

			supCtx := &SuperstepContext{
				superstep:     superstep,
				partial:       cfg.aggregators.forPartition(),
				aggregators:   cfg.aggregators,
				broadcastSets: cfg.updateSets,
			}
			updateCtx := newUpdateContext[K, V, M](supCtx)

			cfg.updateFn.PreSuperstep(supCtx)

			delta, err := runUpdates(cfg.updateFn, updateCtx, w.solutionSet, grouped, w.id)
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				return
			}

			for k, v := range delta {
				w.solutionSet.set(k, v)
			}

			cfg.updateFn.PostSuperstep(supCtx)
			cfg.aggregators.combine(supCtx.partial)

			if len(delta) > 0 {
				keys := make([]K, 0, len(delta))
				for k := range delta {
					keys = append(keys, k)
				}
				mu.Lock()
				nextWork[w.id] = keys
				mu.Unlock()
			}
		}(w, explicit, broadcast)
	}

	wg.Wait()
	if firstErr != nil {
		return nil, firstErr
	}
	return nextWork, nil
}
