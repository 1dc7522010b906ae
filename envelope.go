package pregel

// Envelope is the wire datum exchanged between supersteps: a payload plus
// a header describing its sender, its destination partition, and how the
// receiving partition should resolve the recipient set.
//
// SomeRecipients acts as the sole discriminator between the two envelope
// subtypes: empty means broadcast-to-partition (the receiver reconstructs
// recipients from its own out-neighbour index); non-empty means an
// explicit recipient list, all of whose members belong to Channel.
type Envelope[K Key, M any] struct {
	Payload M

	Sender K

	// SomeRecipients is non-empty iff this is an explicit-list envelope.
	SomeRecipients []K

	// Channel is the destination partition this envelope must be routed to.
	Channel PartitionIndex

	// ReprVertexOfPartition is the representative vertex of Channel on
	// broadcast envelopes; on explicit-list envelopes it holds the first
	// recipient. The driver routes both subtypes on Channel.
	ReprVertexOfPartition K
}

// IsBroadcast reports whether this envelope is a broadcast-to-partition
// envelope. A given (sender, destination partition) pair produces at most
// one broadcast envelope or one explicit-list envelope, never both, for
// messages arising from a single SendMessageToAllNeighbours call.
func (e *Envelope[K, M]) IsBroadcast() bool {
	return len(e.SomeRecipients) == 0
}

// UnpackedMessage is the result of expanding an Envelope against either the
// explicit recipient list or the partition-local out-neighbour index: a
// single logical "deliver Payload to Recipient" instruction.
type UnpackedMessage[K Key, M any] struct {
	Recipient K
	Payload   M
}
