package raft

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestPeer(t *testing.T, id PeerId, cluster Cluster, opts ...Option) *Peer[string, string, string, string, stringMachine] {
	t.Helper()
	storage := newInMemoryStorage[string, stringMachine]()
	peer, err := NewPeer[string, string, string, string, stringMachine](id, cluster, storage, "noop", opts...)
	require.NoError(t, err)
	return peer
}

// inMemoryStorage is a tiny in-package Storage used only by this file's
// tests, kept separate from storage/memory to avoid an import cycle (raft
// is the storage/memory package's own dependency).
type inMemoryStorage[C any, M any] struct {
	currentTerm Term
	votedFor    PeerId
	hasVoted    bool
	log         *Log[C]
	snapshot    Snapshot[M]
}

func newInMemoryStorage[C any, M any]() *inMemoryStorage[C, M] {
	return &inMemoryStorage[C, M]{log: NewLog[C]()}
}

func (s *inMemoryStorage[C, M]) CurrentTerm() Term            { return s.currentTerm }
func (s *inMemoryStorage[C, M]) VotedFor() (PeerId, bool)     { return s.votedFor, s.hasVoted }
func (s *inMemoryStorage[C, M]) SetCurrentTerm(term Term) error {
	s.currentTerm = term
	return nil
}
func (s *inMemoryStorage[C, M]) SetVotedFor(id PeerId, ok bool) error {
	s.votedFor, s.hasVoted = id, ok
	return nil
}
func (s *inMemoryStorage[C, M]) SetCurrentTermAndVotedFor(term Term, id PeerId, ok bool) error {
	s.currentTerm = term
	s.votedFor, s.hasVoted = id, ok
	return nil
}
func (s *inMemoryStorage[C, M]) Log() *Log[C] { return s.log }
func (s *inMemoryStorage[C, M]) AppendLogEntry(entry LogEntry[C]) error {
	s.log.Append(entry)
	return nil
}
func (s *inMemoryStorage[C, M]) TruncateLog(downTo LogIndex) error {
	s.log.TruncateFrom(downTo)
	return nil
}
func (s *inMemoryStorage[C, M]) Snapshot() Snapshot[M] { return s.snapshot }
func (s *inMemoryStorage[C, M]) InstallSnapshot(snap Snapshot[M]) error {
	s.snapshot = snap
	return nil
}

func TestReceiveRequestVoteGrantsOnFreshPeer(t *testing.T) {
	cluster := NewCluster(1, 2, 3)
	peer := newTestPeer(t, 1, cluster)

	reply := peer.receiveRequestVoteRequest(2, RequestVoteRequest{Term: 1, CandidateId: 2, LastLogIndex: 0, LastLogTerm: 0})

	require.Equal(t, VoteGranted, reply.Vote)
	votedFor, ok := peer.VotedFor()
	require.True(t, ok)
	require.Equal(t, PeerId(2), votedFor)
}

// TestReceiveRequestVoteDoesNotStepDown is O-1: a candidate or leader that
// observes a higher-term RequestVote does not transition its role to
// Follower in this call, even though its term and vote are updated.
func TestReceiveRequestVoteDoesNotStepDown(t *testing.T) {
	cluster := NewCluster(1, 2, 3)
	peer := newTestPeer(t, 1, cluster)
	peer.TriggerElectionTimeout()
	require.Equal(t, RoleCandidate, peer.RoleState().Kind)

	reply := peer.receiveRequestVoteRequest(2, RequestVoteRequest{Term: 5, CandidateId: 2, LastLogIndex: 0, LastLogTerm: 0})

	require.Equal(t, VoteGranted, reply.Vote)
	require.Equal(t, Term(5), peer.CurrentTerm())
	require.Equal(t, RoleCandidate, peer.RoleState().Kind, "O-1: role must not step down inside receiveRequestVoteRequest")
}

func TestReceiveRequestVoteRejectsLowerTerm(t *testing.T) {
	cluster := NewCluster(1, 2, 3)
	peer := newTestPeer(t, 1, cluster)
	peer.SetCurrentTerm(5)

	reply := peer.receiveRequestVoteRequest(2, RequestVoteRequest{Term: 1, CandidateId: 2, LastLogIndex: 0, LastLogTerm: 0})

	require.Equal(t, VoteNotGrantedDueToBeingInHigherTerm, reply.Vote)
}

func TestReceiveRequestVoteRejectsStaleLog(t *testing.T) {
	cluster := NewCluster(1, 2, 3)
	peer := newTestPeer(t, 1, cluster)
	peer.SetLog([]LogEntry[string]{{Index: 1, Term: 3, Command: "x"}})

	reply := peer.receiveRequestVoteRequest(2, RequestVoteRequest{Term: 3, CandidateId: 2, LastLogIndex: 0, LastLogTerm: 0})

	require.Equal(t, VoteNotGrantedDueToBeingLessUpToDate, reply.Vote)
}

// TestAppendEntriesConflictTruncatesWithoutProcessingEntries is O-2: a
// conflicting prev_log_term truncates from prev_log_index and reports
// failure without touching msg.entries this round.
func TestAppendEntriesConflictTruncatesWithoutProcessingEntries(t *testing.T) {
	cluster := NewCluster(1, 2, 3)
	peer := newTestPeer(t, 1, cluster)
	peer.SetCurrentTerm(2)
	peer.SetLog([]LogEntry[string]{
		{Index: 1, Term: 1, Command: "a"},
		{Index: 2, Term: 1, Command: "b"},
	})

	reply := peer.receiveAppendEntriesRequest(2, AppendEntriesRequest[string]{
		Term:         2,
		LeaderId:     2,
		PrevLogIndex: 2,
		PrevLogTerm:  2, // conflicts with the follower's term-1 entry at index 2
		Entries:      []LogEntry[string]{{Index: 3, Term: 2, Command: "c"}},
		LeaderCommit: 0,
	})

	require.False(t, reply.Success)
	require.Equal(t, 1, peer.LogSnapshot().Len(), "O-2: the conflicting entry at prev_log_index is truncated")
	_, ok := peer.LogSnapshot().Entry(3)
	require.False(t, ok, "O-2: msg.entries must not be applied in the same round as the conflict")
}

func TestAppendEntriesZeroPrevLogIndexBypassesConsistencyCheck(t *testing.T) {
	cluster := NewCluster(1, 2, 3)
	peer := newTestPeer(t, 1, cluster)

	reply := peer.receiveAppendEntriesRequest(2, AppendEntriesRequest[string]{
		Term:         1,
		LeaderId:     2,
		PrevLogIndex: 0,
		PrevLogTerm:  0,
		Entries:      []LogEntry[string]{{Index: 1, Term: 1, Command: "a"}},
		LeaderCommit: 0,
	})

	require.True(t, reply.Success)
	entry, ok := peer.LogSnapshot().Entry(1)
	require.True(t, ok)
	require.Equal(t, "a", entry.Command)
}

// TestRecomputeCommitIndexSkipsTermCheck is O-3: commit advancement does
// not require log[commit_index].term == current_term.
func TestRecomputeCommitIndexSkipsTermCheck(t *testing.T) {
	cluster := NewCluster(1, 2, 3)
	peer := newTestPeer(t, 1, cluster, WithConsistency(Eventual))
	peer.SetCurrentTerm(3)
	peer.SetLog([]LogEntry[string]{{Index: 1, Term: 1, Command: "a"}})
	peer.SetRole(NewLeaderRole[string](
		map[PeerId]LogIndex{2: 2, 3: 2},
		map[PeerId]LogIndex{1: 1, 2: 1, 3: 1},
		map[RequestId]AppendEntriesRequest[string]{},
	))

	peer.recomputeCommitIndex(3)

	require.Equal(t, LogIndex(1), peer.CommitIndex(), "a majority at index 1 commits even though entry 1's term (1) != current_term (3)")
}

// TestReceiveAppendEntriesReplyPanicsBelowSnapshotBoundary is O-4.
func TestReceiveAppendEntriesReplyPanicsBelowSnapshotBoundary(t *testing.T) {
	cluster := NewCluster(1, 2, 3)
	peer := newTestPeer(t, 1, cluster)
	peer.SetCurrentTerm(1)
	peer.SetSnapshot(NewSnapshot[stringMachine](5, 1, stringMachine{}))
	peer.SetRole(NewLeaderRole[string](
		map[PeerId]LogIndex{2: 6},
		map[PeerId]LogIndex{1: 5, 2: 0},
		map[RequestId]AppendEntriesRequest[string]{7: {Term: 1, LeaderId: 1, PrevLogIndex: 5, PrevLogTerm: 1}},
	))

	require.Panics(t, func() {
		peer.receiveAppendEntriesReply(2, 7, AppendEntriesReply{Term: 1, Success: false})
	})
}

// TestReceiveCommandRequestSuccessEnqueuesNoReply is O-5.
func TestReceiveCommandRequestSuccessEnqueuesNoReply(t *testing.T) {
	cluster := NewCluster(1, 2, 3)
	peer := newTestPeer(t, 1, cluster)
	peer.TriggerElectionTimeout() // single-peer would become leader; use 3-peer then force leadership
	peer.BecomeLeader()

	peer.receiveCommandRequest(ClientId(1), 0, CommandRequest[string]{Command: "set x"})

	require.Empty(t, peer.BufferedClientTransmits(), "O-5: no CommandReply is enqueued on the success path")
}

// TestReceiveQueryRequestStrongLeaderProducesNoReply is O-6.
func TestReceiveQueryRequestStrongLeaderProducesNoReply(t *testing.T) {
	cluster := NewCluster(1, 2, 3)
	peer := newTestPeer(t, 1, cluster, WithConsistency(Strong))
	peer.BecomeLeader()

	peer.receiveQueryRequest(ClientId(1), 0, QueryRequest[string]{Query: "len"})

	require.Empty(t, peer.BufferedClientTransmits(), "O-6: strong-consistency queries on the leader get no read-barrier, so no reply")
}

func TestReceiveQueryRequestEventualLeaderReplies(t *testing.T) {
	cluster := NewCluster(1, 2, 3)
	peer := newTestPeer(t, 1, cluster, WithConsistency(Eventual))
	peer.BecomeLeader()

	peer.receiveQueryRequest(ClientId(1), 9, QueryRequest[string]{Query: "len"})

	transmits := peer.BufferedClientTransmits()
	require.Len(t, transmits, 1)
	require.Equal(t, RequestId(9), transmits[0].RequestId)
}

func TestApplyCommittedAdvancesLastApplied(t *testing.T) {
	cluster := NewCluster(1)
	peer := newTestPeer(t, 1, cluster)
	peer.SetLog([]LogEntry[string]{{Index: 1, Term: 1, Command: "a"}, {Index: 2, Term: 1, Command: "b"}})
	peer.SetCommitIndex(2)

	peer.ApplyCommitted()

	require.Equal(t, LogIndex(2), peer.LastApplied())
}
