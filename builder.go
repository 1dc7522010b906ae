package pregel

import (
	"context"

	"github.com/arborworks/pregel/monitor"
)

// Builder assembles one job's configuration: edges, the two UDF hosts,
// aggregators, broadcast sets, and run parameters. Each With/Set/Register
// method returns the same *Builder so calls chain.
type Builder[K Key, V, M, E any] struct {
	name          string
	parallelism   int
	maxSupersteps int
	unmanaged     bool
	partitioner   Partitioner[K]

	edges []Edge[K, E]

	messagingFn MessagingFunction[K, V, M, E]
	updateFn    VertexUpdateFunction[K, V, M]

	aggregatorFactories map[string]func() Aggregator
	messagingSets       map[string]any
	updateSets          map[string]any

	initial map[K]V

	reporter *monitor.Monitor

	err error
}

// NewBuilder returns a Builder with the default partitioner and
// parallelism (-1, meaning "let the engine decide").
func NewBuilder[K Key, V, M, E any]() *Builder[K, V, M, E] {
	return &Builder[K, V, M, E]{
		parallelism:         -1,
		maxSupersteps:       1,
		partitioner:         NewHashPartitioner[K](),
		aggregatorFactories: make(map[string]func() Aggregator),
		messagingSets:       make(map[string]any),
		updateSets:          make(map[string]any),
	}
}

// WithPlainEdges configures the job with unvalued edges and both UDF hosts.
func (b *Builder[K, V, M, E]) WithPlainEdges(edges []Edge[K, E], updateFn VertexUpdateFunction[K, V, M], messagingFn MessagingFunction[K, V, M, E], maxSupersteps int) *Builder[K, V, M, E] {
	b.edges = edges
	b.updateFn = updateFn
	b.messagingFn = messagingFn
	b.maxSupersteps = maxSupersteps
	return b
}

// WithValuedEdges configures the job with edges carrying an edge value E,
// and both UDF hosts.
func (b *Builder[K, V, M, E]) WithValuedEdges(edges []Edge[K, E], updateFn VertexUpdateFunction[K, V, M], messagingFn MessagingFunction[K, V, M, E], maxSupersteps int) *Builder[K, V, M, E] {
	return b.WithPlainEdges(edges, updateFn, messagingFn, maxSupersteps)
}

// RegisterAggregator registers a named aggregator factory. Calling this
// twice with the same name is a configuration error surfaced at
// CreateResult time.
func (b *Builder[K, V, M, E]) RegisterAggregator(name string, factory func() Aggregator) *Builder[K, V, M, E] {
	if b.err != nil {
		return b
	}
	if name == HashKeysBroadcastSet {
		b.err = configError("aggregator name %q is reserved by the engine", name)
		return b
	}
	if _, exists := b.aggregatorFactories[name]; exists {
		b.err = configError("duplicate aggregator name %q", name)
		return b
	}
	b.aggregatorFactories[name] = factory
	return b
}

// AddBroadcastSetForMessagingFunction makes a named, read-only dataset
// visible to the messaging UDF via SuperstepContext.BroadcastSet.
func (b *Builder[K, V, M, E]) AddBroadcastSetForMessagingFunction(name string, dataset any) *Builder[K, V, M, E] {
	if b.err != nil {
		return b
	}
	if name == HashKeysBroadcastSet {
		b.err = configError("broadcast set name %q is reserved by the engine", name)
		return b
	}
	b.messagingSets[name] = dataset
	return b
}

// AddBroadcastSetForUpdateFunction makes a named, read-only dataset visible
// to the update UDF via SuperstepContext.BroadcastSet.
func (b *Builder[K, V, M, E]) AddBroadcastSetForUpdateFunction(name string, dataset any) *Builder[K, V, M, E] {
	if b.err != nil {
		return b
	}
	if name == HashKeysBroadcastSet {
		b.err = configError("broadcast set name %q is reserved by the engine", name)
		return b
	}
	b.updateSets[name] = dataset
	return b
}

// SetName names the job, surfaced in telemetry spans and log lines.
func (b *Builder[K, V, M, E]) SetName(name string) *Builder[K, V, M, E] {
	b.name = name
	return b
}

// SetParallelism sets the partition count, or -1 to let the engine pick one
// based on available CPUs. Values <= 0 other than -1 are a configuration
// error.
func (b *Builder[K, V, M, E]) SetParallelism(p int) *Builder[K, V, M, E] {
	if b.err != nil {
		return b
	}
	if p != -1 && p <= 0 {
		b.err = configError("parallelism must be positive or -1, got %d", p)
		return b
	}
	b.parallelism = p
	return b
}

// SetPartitioner overrides the default hash partitioner. Not part of the
// external interface surface named by callers of WithPlainEdges directly,
// but exposed for callers that need deterministic partitioning in tests.
func (b *Builder[K, V, M, E]) SetPartitioner(p Partitioner[K]) *Builder[K, V, M, E] {
	b.partitioner = p
	return b
}

// SetSolutionSetUnmanagedMemory switches the solution set from its default
// managed (serialized) storage mode to a plain in-memory map. See
// pregel/DESIGN.md for why this engine's in-process runtime always stores
// the solution set in memory and what "managed" mode adds on top.
func (b *Builder[K, V, M, E]) SetSolutionSetUnmanagedMemory(unmanaged bool) *Builder[K, V, M, E] {
	b.unmanaged = unmanaged
	return b
}

// SetInput supplies the initial vertex set the iteration starts from.
func (b *Builder[K, V, M, E]) SetInput(initial map[K]V) *Builder[K, V, M, E] {
	b.initial = initial
	return b
}

// SetMonitor attaches a monitor.Monitor that receives one ProgressEvent per
// superstep, visible to any client connected to its /progress websocket.
// Optional: a nil monitor (the default) disables progress publishing.
func (b *Builder[K, V, M, E]) SetMonitor(m *monitor.Monitor) *Builder[K, V, M, E] {
	b.reporter = m
	return b
}

// CreateResult validates the configuration, then runs the job to
// completion and returns the final vertex dataset.
func (b *Builder[K, V, M, E]) CreateResult(ctx context.Context) (map[K]V, error) {
	cfg, err := b.build()
	if err != nil {
		return nil, err
	}

	initial := b.initial
	if initial == nil {
		initial = make(map[K]V)
	}

	return execute(ctx, cfg, initial, !b.unmanaged)
}

// build validates accumulated configuration errors and the builder's
// required fields, producing the resolved runtimeConfig consumed by the
// iteration driver.
func (b *Builder[K, V, M, E]) build() (*runtimeConfig[K, V, M, E], error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.messagingFn == nil || b.updateFn == nil {
		return nil, configError("%w", ErrMissingUDF)
	}
	if b.maxSupersteps <= 0 {
		return nil, configError("maxSupersteps must be positive, got %d", b.maxSupersteps)
	}

	parallelism := resolvedParallelism(b.parallelism)

	return &runtimeConfig[K, V, M, E]{
		name:          b.name,
		parallelism:   parallelism,
		maxSupersteps: b.maxSupersteps,
		partitioner:   b.partitioner,
		edges:         b.edges,
		messagingFn:   b.messagingFn,
		updateFn:      b.updateFn,
		aggregators:   newAggregatorRegistry(b.aggregatorFactories),
		messagingSets: copyBroadcastSets(b.messagingSets),
		updateSets:    copyBroadcastSets(b.updateSets),
		reporter:      b.reporter,
	}, nil
}

// copyBroadcastSets returns a shallow copy of sets, leaving room for
// execute to inject the reserved HASH_KEYS_BROADCAST_SET entry once the
// edge index (and therefore the representative table) exists, without
// mutating the builder's own map.
func copyBroadcastSets(sets map[string]any) map[string]any {
	out := make(map[string]any, len(sets)+1)
	for k, v := range sets {
		out[k] = v
	}
	return out
}
