// Package memory provides a purely in-memory Storage implementation used by
// the simulator's and cmd/kvdb's tests and by cmd/raftctl, for live peers and
// the replay oracle alike, where no file I/O is wanted; the root package's
// own tests use an in-package storage instead (§4.1: "Implementations may be purely in-memory (test) or
// durable").
package memory

import (
	"github.com/sdesai/raft"
)

// Storage is an in-memory raft.Storage[C, M]. Writes never fail; it exists
// purely to exercise the core's state-transition logic without disk I/O.
type Storage[C any, M any] struct {
	currentTerm raft.Term
	votedFor    raft.PeerId
	hasVoted    bool
	log         *raft.Log[C]
	snapshot    raft.Snapshot[M]
}

// New returns an empty Storage with the zero-value snapshot.
func New[C any, M any]() *Storage[C, M] {
	return &Storage[C, M]{log: raft.NewLog[C]()}
}

// NewWithSnapshot returns a Storage pre-seeded with snap.
func NewWithSnapshot[C any, M any](snap raft.Snapshot[M]) *Storage[C, M] {
	return &Storage[C, M]{log: raft.NewLog[C](), snapshot: snap}
}

func (s *Storage[C, M]) CurrentTerm() raft.Term { return s.currentTerm }

func (s *Storage[C, M]) VotedFor() (raft.PeerId, bool) { return s.votedFor, s.hasVoted }

func (s *Storage[C, M]) SetCurrentTerm(term raft.Term) error {
	s.currentTerm = term
	return nil
}

func (s *Storage[C, M]) SetVotedFor(id raft.PeerId, ok bool) error {
	s.votedFor = id
	s.hasVoted = ok
	return nil
}

func (s *Storage[C, M]) SetCurrentTermAndVotedFor(term raft.Term, id raft.PeerId, ok bool) error {
	s.currentTerm = term
	s.votedFor = id
	s.hasVoted = ok
	return nil
}

func (s *Storage[C, M]) Log() *raft.Log[C] { return s.log }

func (s *Storage[C, M]) AppendLogEntry(entry raft.LogEntry[C]) error {
	s.log.Append(entry)
	return nil
}

func (s *Storage[C, M]) TruncateLog(downTo raft.LogIndex) error {
	s.log.TruncateFrom(downTo)
	return nil
}

func (s *Storage[C, M]) Snapshot() raft.Snapshot[M] { return s.snapshot }

func (s *Storage[C, M]) InstallSnapshot(snap raft.Snapshot[M]) error {
	s.snapshot = snap
	return nil
}
