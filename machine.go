package raft

// Machine is the application-defined state machine a Peer replicates
// commands against. Implementations must be safe to call from a single
// goroutine at a time (the core never calls Apply/Query concurrently with
// itself, but provides no locking of its own).
type Machine[C any, CR any, Q any, QR any] interface {
	// Apply applies a committed command, returning its result.
	Apply(command C) CR
	// Query answers a read-only query against the current machine state.
	Query(query Q) QR
}
