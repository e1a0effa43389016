package raft

// Storage is the durable-state contract the core consumes (§4.1). Every
// write is fallible; on failure the implementation must leave its
// previously-successful state unchanged, including whatever in-memory view
// it exposes through CurrentTerm/VotedFor/Log/Snapshot, so that Peer can roll
// back without a partial-visibility window.
//
// C is the application command type; M is the application machine
// (snapshotted state) type.
type Storage[C any, M any] interface {
	// CurrentTerm returns the last successfully persisted term.
	CurrentTerm() Term
	// VotedFor returns the candidate voted for in the current term, if any.
	VotedFor() (PeerId, bool)
	// SetCurrentTerm persists a new term, atomically.
	SetCurrentTerm(Term) error
	// SetVotedFor persists a new vote, atomically. ok=false persists "no
	// vote cast this term".
	SetVotedFor(id PeerId, ok bool) error
	// SetCurrentTermAndVotedFor persists both fields as a single atomic
	// operation, used whenever the core advances to a new term and either
	// resets or records a vote in the same step.
	SetCurrentTermAndVotedFor(term Term, id PeerId, ok bool) error

	// Log returns the in-memory log. Implementations own the returned
	// value; the one caller that mutates it directly is the direct-control
	// setter Peer.SetLog, which replaces its entries in memory only.
	Log() *Log[C]
	// AppendLogEntry durably appends entry, atomically.
	AppendLogEntry(entry LogEntry[C]) error
	// TruncateLog durably removes every entry with index >= downTo,
	// atomically.
	TruncateLog(downTo LogIndex) error

	// Snapshot returns the last installed snapshot.
	Snapshot() Snapshot[M]
	// InstallSnapshot durably replaces the snapshot, atomically.
	InstallSnapshot(Snapshot[M]) error
}
