package raft

// Consistency selects how a Peer answers QueryRequests (§4.4.10).
type Consistency int

const (
	// Eventual consistency drains any outstanding ApplyCommitted work
	// before answering a query inline.
	Eventual Consistency = iota
	// Strong consistency requires a read-barrier confirming leadership
	// before answering. The covered core leaves this path as an open
	// question (§9 O-6); see Peer.receiveQueryRequest.
	Strong
)

func (c Consistency) String() string {
	switch c {
	case Eventual:
		return "Eventual"
	case Strong:
		return "Strong"
	default:
		return "Unknown"
	}
}
