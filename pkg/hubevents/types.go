// Package hubevents implements the store event handler: a monotonic ID
// generator, an event log over an embedded KV store, a per-account usage
// cache, a typed subscriber bus, and a prunability oracle, all folded
// together behind a single Commit Coordinator.
package hubevents

// EventKind enumerates the mutation kinds the core will stamp into an
// event and dispatch to subscribers.
type EventKind uint8

const (
	EventKindUnknown EventKind = iota
	EventKindMergeMessage
	EventKindPruneMessage
	EventKindRevokeMessage
	EventKindMergeUsernameProof
	EventKindMergeOnChainEvent
)

// String renders the kind for logs.
func (k EventKind) String() string {
	switch k {
	case EventKindMergeMessage:
		return "merge_message"
	case EventKindPruneMessage:
		return "prune_message"
	case EventKindRevokeMessage:
		return "revoke_message"
	case EventKindMergeUsernameProof:
		return "merge_username_proof"
	case EventKindMergeOnChainEvent:
		return "merge_on_chain_event"
	default:
		return "unknown"
	}
}

// ParseEventKind maps the wire name used by external submitters back to
// an EventKind, reporting false for anything unrecognized.
func ParseEventKind(s string) (EventKind, bool) {
	switch s {
	case "merge_message":
		return EventKindMergeMessage, true
	case "prune_message":
		return EventKindPruneMessage, true
	case "revoke_message":
		return EventKindRevokeMessage, true
	case "merge_username_proof":
		return EventKindMergeUsernameProof, true
	case "merge_on_chain_event":
		return EventKindMergeOnChainEvent, true
	default:
		return EventKindUnknown, false
	}
}

// SetTag enumerates the fixed store kinds that partition an account's
// messages into cache dimensions.
type SetTag uint8

const (
	SetUnknown SetTag = iota
	SetCasts
	SetLinks
	SetReactions
	SetUserData
	SetVerifications
	SetUsernameProofs
)

// String renders the tag for logs.
func (s SetTag) String() string {
	switch s {
	case SetCasts:
		return "casts"
	case SetLinks:
		return "links"
	case SetReactions:
		return "reactions"
	case SetUserData:
		return "user_data"
	case SetVerifications:
		return "verifications"
	case SetUsernameProofs:
		return "username_proofs"
	default:
		return "unknown"
	}
}

// EventArgs is the caller-supplied description of a mutation, stamped
// with an ID by the coordinator and turned into an Event. Payload is
// opaque to the core; Account/Set/TsHash are needed by the storage
// cache's process_event step and are therefore broken out rather than
// buried in Payload.
type EventArgs struct {
	Kind    EventKind
	Account uint64
	Set     SetTag
	// TsHash is the tsHash of the message this event concerns, if any.
	// Required for MergeMessage/PruneMessage/RevokeMessage/
	// MergeUsernameProof; ignored for MergeOnChainEvent.
	TsHash []byte
	// StorageUnits carries the new unit count for MergeOnChainEvent;
	// ignored otherwise.
	StorageUnits uint32
	// Payload is the opaque, externally-defined encoding of the event
	// body (message bytes, proof bytes, on-chain log bytes, ...).
	Payload []byte
}

// Event is a committed, ID-stamped record. It is immutable once created.
type Event struct {
	ID   uint64
	Args EventArgs
}

// Message is the minimal shape the Prunability Oracle needs: enough to
// compute a tsHash and compare it against a cached floor.
type Message struct {
	Account   uint64
	Timestamp uint32 // Farcaster-epoch seconds
	Hash      []byte
}

// Usage is the read view returned by get_usage.
type Usage struct {
	Used             uint32
	EarliestTimestamp uint32
	EarliestHash      []byte
}
