package pregel

// MessagingFunction is the user-supplied UDF host contract for message
// sending. SendMessages is invoked once per changed vertex per superstep;
// PreSuperstep/PostSuperstep are lifecycle hooks run once per superstep on
// every partition worker, before/after all of that superstep's
// SendMessages calls on that worker.
type MessagingFunction[K Key, V, M, E any] interface {
	SendMessages(ctx *MessagingContext[K, V, M, E], vertex K, value V) error
	PreSuperstep(ctx *SuperstepContext)
	PostSuperstep(ctx *SuperstepContext)
}

// BaseMessagingFunction may be embedded by a MessagingFunction
// implementation that only needs SendMessages, leaving the lifecycle hooks
// as no-ops.
type BaseMessagingFunction[K Key, V, M, E any] struct{}

func (BaseMessagingFunction[K, V, M, E]) PreSuperstep(*SuperstepContext)  {}
func (BaseMessagingFunction[K, V, M, E]) PostSuperstep(*SuperstepContext) {}

// SuperstepContext is the lifecycle/aggregator/broadcast-set accessor
// shared by both UDF hosts (messaging and update). It is a plain,
// non-cyclic handle the iteration driver hands to UDF lifecycle methods,
// rather than a mutually-referential operator/UDF ownership graph.
type SuperstepContext struct {
	superstep     int
	partial       map[string]Aggregator
	aggregators   *aggregatorRegistry
	broadcastSets map[string]any
}

// Superstep returns the current superstep number, starting at 1.
func (s *SuperstepContext) Superstep() int { return s.superstep }

// Aggregate folds a value into the named aggregator for this superstep, on
// this partition worker's partial instance. It is a no-op if name was never
// registered on the builder.
func (s *SuperstepContext) Aggregate(name string, value any) {
	if agg, ok := s.partial[name]; ok {
		agg.Aggregate(value)
	}
}

// PreviousAggregate returns the combined value an aggregator produced in
// the prior superstep.
func (s *SuperstepContext) PreviousAggregate(name string) (any, bool) {
	return s.aggregators.Previous(name)
}

// BroadcastSet returns the named broadcast dataset configured on the
// builder via AddBroadcastSetForMessagingFunction/
// AddBroadcastSetForUpdateFunction. The reserved name
// HASH_KEYS_BROADCAST_SET carries the engine's own representative table
// and must not be reused by caller code.
func (s *SuperstepContext) BroadcastSet(name string) (any, bool) {
	v, ok := s.broadcastSets[name]
	return v, ok
}

// HashKeysBroadcastSet is the reserved broadcast-set name carrying the
// RepresentativeTable computed by the edge indexer.
const HashKeysBroadcastSet = "HASH_KEYS_BROADCAST_SET"

// edgeCursor is the one-shot, single-pass iterator backing
// MessagingContext.GetOutgoingEdges: a restricted cursor that fails on
// second traversal.
type edgeCursor[K Key, E any] struct {
	edges     []Edge[K, E]
	idx       int
	exhausted bool
}

// Next returns the next outgoing edge, or ok=false once the cursor is
// exhausted. A cursor may not be restarted.
func (c *edgeCursor[K, E]) Next() (edge Edge[K, E], ok bool) {
	if c.idx >= len(c.edges) {
		c.exhausted = true
		return edge, false
	}
	edge = c.edges[c.idx]
	c.idx++
	if c.idx >= len(c.edges) {
		c.exhausted = true
	}
	return edge, true
}

// MessagingContext is the per-invocation packing host for a single
// SendMessages call: it implements the explicit-multicast and broadcast
// packing algorithm and enforces the GetOutgoingEdges /
// SendMessageToAllNeighbours mutual exclusion.
type MessagingContext[K Key, V, M, E any] struct {
	superstep       *SuperstepContext
	sender          K
	senderPartition PartitionIndex
	parallelism     int
	partitioner     Partitioner[K]
	representatives RepresentativeTable[K]
	outEdges        []Edge[K, E]

	cursor            *edgeCursor[K, E]
	cursorRequested   bool
	allNeighboursUsed bool

	channelsSeen map[PartitionIndex]bool
	envelopes    []*Envelope[K, M]
}

func newMessagingContext[K Key, V, M, E any](
	superstep *SuperstepContext,
	sender K,
	parallelism int,
	partitioner Partitioner[K],
	representatives RepresentativeTable[K],
	outEdges []Edge[K, E],
) *MessagingContext[K, V, M, E] {
	return &MessagingContext[K, V, M, E]{
		superstep:       superstep,
		sender:          sender,
		senderPartition: partitioner.Channel(sender, parallelism),
		parallelism:     parallelism,
		partitioner:     partitioner,
		representatives: representatives,
		outEdges:        outEdges,
		channelsSeen:    make(map[PartitionIndex]bool),
	}
}

// Superstep returns the current superstep number.
func (mc *MessagingContext[K, V, M, E]) Superstep() int { return mc.superstep.Superstep() }

// PreviousAggregate returns the combined value an aggregator produced in
// the prior superstep.
func (mc *MessagingContext[K, V, M, E]) PreviousAggregate(name string) (any, bool) {
	return mc.superstep.PreviousAggregate(name)
}

// BroadcastSet returns a named broadcast dataset for the messaging UDF.
func (mc *MessagingContext[K, V, M, E]) BroadcastSet(name string) (any, bool) {
	return mc.superstep.BroadcastSet(name)
}

// GetOutgoingEdges returns a lazy, single-pass cursor over the current
// vertex's outgoing edges. It is mutually exclusive, within one
// SendMessages invocation, with SendMessageToAllNeighbours, and may itself
// be requested at most once.
func (mc *MessagingContext[K, V, M, E]) GetOutgoingEdges() (*edgeCursor[K, E], error) {
	if mc.allNeighboursUsed {
		return nil, runtimeError(mc.Superstep(), mc.senderPartition, mc.sender, ErrExclusiveAPI)
	}
	if mc.cursorRequested {
		return nil, runtimeError(mc.Superstep(), mc.senderPartition, mc.sender, ErrExclusiveAPI)
	}
	mc.cursorRequested = true
	mc.cursor = &edgeCursor[K, E]{edges: mc.outEdges}
	return mc.cursor, nil
}

// SendMessageTo sends payload to exactly one logical recipient.
func (mc *MessagingContext[K, V, M, E]) SendMessageTo(target K, payload M) error {
	return mc.SendMessageToMultipleRecipients([]K{target}, payload)
}

// SendMessageToMultipleRecipients packs payload for an arbitrary recipient
// set: recipients are grouped by destination channel and one explicit-list
// envelope is emitted per group.
func (mc *MessagingContext[K, V, M, E]) SendMessageToMultipleRecipients(recipients []K, payload M) error {
	if len(recipients) == 0 {
		return nil
	}

	byChannel := make(map[PartitionIndex][]K)
	order := make([]PartitionIndex, 0, len(recipients))
	for _, t := range recipients {
		ch := mc.partitioner.Channel(t, mc.parallelism)
		if _, ok := byChannel[ch]; !ok {
			order = append(order, ch)
		}
		byChannel[ch] = append(byChannel[ch], t)
	}

	for _, ch := range order {
		group := byChannel[ch]
		mc.envelopes = append(mc.envelopes, &Envelope[K, M]{
			Payload:        payload,
			Sender:         mc.sender,
			SomeRecipients: group,
			Channel:        ch,
			// An explicit-list envelope carries any element of the group
			// (here, group[0]) as its outer key; every member of group
			// already shares channel ch by construction, and the driver
			// routes the envelope on ch.
			ReprVertexOfPartition: group[0],
		})
	}

	return nil
}

// SendMessageToAllNeighbours is shorthand for "send payload to every
// out-neighbour". It suppresses all but the first envelope per destination
// channel (the multicast-dedup optimization): the receiving worker
// reconstructs the remaining recipients from its own partition-local
// out-neighbour index. Mutually exclusive with GetOutgoingEdges within the
// same invocation.
func (mc *MessagingContext[K, V, M, E]) SendMessageToAllNeighbours(payload M) error {
	if mc.cursorRequested {
		return runtimeError(mc.Superstep(), mc.senderPartition, mc.sender, ErrExclusiveAPI)
	}
	mc.allNeighboursUsed = true

	for _, e := range mc.outEdges {
		ch := mc.partitioner.Channel(e.Target, mc.parallelism)
		if mc.channelsSeen[ch] {
			continue
		}
		mc.channelsSeen[ch] = true

		repr, ok := mc.representatives[ch]
		if !ok {
			// No edge destination has ever been observed to hash to this
			// channel, so it cannot be a broadcast destination; no
			// envelope is produced for it.
			continue
		}

		mc.envelopes = append(mc.envelopes, &Envelope[K, M]{
			Payload:               payload,
			Sender:                mc.sender,
			SomeRecipients:        nil,
			Channel:               ch,
			ReprVertexOfPartition: repr,
		})
	}

	return nil
}

// envelopesProduced returns the envelopes packed during this invocation.
func (mc *MessagingContext[K, V, M, E]) envelopesProduced() []*Envelope[K, M] {
	return mc.envelopes
}
