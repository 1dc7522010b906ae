package pregel

// unpackExplicitList is the explicit-list unpacker: a stateless,
// order-independent flat-map over envelopes carrying a non-empty
// recipient list.
func unpackExplicitList[K Key, M any](envelopes []*Envelope[K, M]) []UnpackedMessage[K, M] {
	out := make([]UnpackedMessage[K, M], 0, len(envelopes))
	for _, env := range envelopes {
		for _, r := range env.SomeRecipients {
			out = append(out, UnpackedMessage[K, M]{Recipient: r, Payload: env.Payload})
		}
	}
	return out
}

// broadcastAdjacency is the partition-local out-neighbour index consumed
// by the broadcast unpacker: {source -> [targets in this partition]}. It
// is materialized once, on the first superstep, from the edges this
// partition owns as a destination (index.go), and held read-only for the
// life of the job.
type broadcastAdjacency[K Key] struct {
	bySource map[K][]K
	built    bool
}

// buildBroadcastAdjacency materializes {source -> [targets in this
// partition]} from the edges this worker owns as destinations. Each call
// builds a fresh map; the driver calls it once per worker, on the first
// superstep, and never changes the result afterwards.
func buildBroadcastAdjacency[K Key, E any](localEdges []Edge[K, E]) *broadcastAdjacency[K] {
	m := make(map[K][]K, len(localEdges))
	for _, e := range localEdges {
		m[e.Source] = append(m[e.Source], e.Target)
	}
	return &broadcastAdjacency[K]{bySource: m, built: true}
}

// unpackBroadcast expands every broadcast envelope (SomeRecipients empty)
// against the partition-local adjacency map, producing one UnpackedMessage
// per local out-neighbour of the envelope's sender. If the sender has no
// out-neighbours in this partition nothing is emitted for that envelope —
// but no such envelope would ever have been generated, since the
// messaging host only emits a broadcast envelope for a channel it
// observed via at least one out-edge hashing to it.
func unpackBroadcast[K Key, M any](adj *broadcastAdjacency[K], envelopes []*Envelope[K, M]) []UnpackedMessage[K, M] {
	out := make([]UnpackedMessage[K, M], 0, len(envelopes))
	for _, env := range envelopes {
		for _, t := range adj.bySource[env.Sender] {
			out = append(out, UnpackedMessage[K, M]{Recipient: t, Payload: env.Payload})
		}
	}
	return out
}
