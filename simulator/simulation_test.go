package simulator_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sdesai/raft"
	"github.com/sdesai/raft/examples/kvapp"
	"github.com/sdesai/raft/simulator"
	"github.com/sdesai/raft/storage/memory"
)

type kvSim = simulator.Simulator[kvapp.Command, kvapp.CommandResult, kvapp.Query, kvapp.QueryResult, *kvapp.Store]

func newFiveNodeSimulation(t *testing.T) *kvSim {
	t.Helper()
	cluster := raft.NewCluster(1, 2, 3, 4, 5)
	sim, err := simulator.New[kvapp.Command, kvapp.CommandResult, kvapp.Query, kvapp.QueryResult, *kvapp.Store](
		cluster,
		kvapp.NoOp(),
		raft.Strong,
		func(id raft.PeerId) raft.Storage[kvapp.Command, *kvapp.Store] {
			return memory.NewWithSnapshot[kvapp.Command](raft.NewSnapshot(raft.LogIndex(0), raft.Term(0), kvapp.NewStore()))
		},
	)
	require.NoError(t, err)
	require.NoError(t, sim.EnableChecks(func(id raft.PeerId) raft.Storage[kvapp.Command, *kvapp.Store] {
		return memory.NewWithSnapshot[kvapp.Command](raft.NewSnapshot(raft.LogIndex(0), raft.Term(0), kvapp.NewStore()))
	}))
	return sim
}

// TestSeedScenario walks the nine-step end-to-end scenario named in
// SPEC_FULL.md §8 literally, asserting the same transitions at each step.
func TestSeedScenario(t *testing.T) {
	sim := newFiveNodeSimulation(t)

	// Step 1: peer 2 times out and becomes a Candidate.
	require.NoError(t, sim.Perform(simulator.TimeoutElection[kvapp.Command, kvapp.Query, *kvapp.Store](2)))
	peer2, ok := sim.Peer(2)
	require.True(t, ok)
	require.Equal(t, raft.Term(1), peer2.CurrentTerm())
	votedFor, has := peer2.VotedFor()
	require.True(t, has)
	require.Equal(t, raft.PeerId(2), votedFor)
	require.Equal(t, raft.RoleCandidate, peer2.RoleState().Kind)
	require.Len(t, peer2.BufferedPeerTransmits(), 4)

	update2 := simulator.NewUpdate[kvapp.Command, *kvapp.Store](2).
		SetTerm(1).
		SetVotedFor(2, true).
		SetRole(raft.NewCandidateRole[kvapp.Command](map[raft.RequestId]struct{}{0: {}, 1: {}, 2: {}, 3: {}})).
		SetBufferedPeerTransmits(peer2.BufferedPeerTransmits())
	require.NoError(t, sim.Perform(simulator.Check[kvapp.Command, kvapp.Query, *kvapp.Store](update2)))

	// Step 2: every other peer receives the RequestVote and grants it.
	require.NoError(t, sim.Perform(simulator.TransmitPeerRequests[kvapp.Command, kvapp.Query, *kvapp.Store](2, 0, 1, 2, 3)))
	for _, id := range []raft.PeerId{1, 3, 4, 5} {
		p, ok := sim.Peer(id)
		require.True(t, ok)
		require.Equal(t, raft.Term(1), p.CurrentTerm())
		votedFor, has := p.VotedFor()
		require.True(t, has)
		require.Equal(t, raft.PeerId(2), votedFor)
		require.Len(t, p.BufferedPeerTransmits(), 1)
	}

	// Step 3: the first reply arrives; not yet a majority.
	require.NoError(t, sim.Perform(simulator.TransmitPeerReply[kvapp.Command, kvapp.Query, *kvapp.Store](1, 2, 0)))
	peer2, _ = sim.Peer(2)
	require.Equal(t, raft.RoleCandidate, peer2.RoleState().Kind)
	require.Equal(t, 2, peer2.RoleState().Candidate.VotesGranted)

	// Step 4: the second reply crosses the majority threshold (3/5); peer 2 becomes Leader.
	require.NoError(t, sim.Perform(simulator.TransmitPeerReply[kvapp.Command, kvapp.Query, *kvapp.Store](3, 2, 1)))
	peer2, _ = sim.Peer(2)
	require.Equal(t, raft.RoleLeader, peer2.RoleState().Kind)
	lastEntry, ok := peer2.LogSnapshot().Last()
	require.True(t, ok)
	require.Equal(t, raft.LogIndex(1), lastEntry.Index)
	require.Equal(t, raft.Term(1), lastEntry.Term)
	require.Equal(t, kvapp.NoOp(), lastEntry.Command)
	require.Len(t, peer2.BufferedPeerTransmits(), 4)
	for _, id := range []raft.PeerId{1, 3, 4, 5} {
		require.Equal(t, raft.LogIndex(2), peer2.RoleState().Leader.NextIndex[id])
		require.Equal(t, raft.LogIndex(0), peer2.RoleState().Leader.MatchIndex[id])
	}
	require.Equal(t, raft.LogIndex(1), peer2.RoleState().Leader.MatchIndex[2])

	// Step 5: followers accept the no-op entry and step down to Follower{leader=2}.
	require.NoError(t, sim.Perform(simulator.TransmitPeerRequests[kvapp.Command, kvapp.Query, *kvapp.Store](2, 4, 5, 6, 7)))
	for _, id := range []raft.PeerId{1, 3, 4, 5} {
		p, ok := sim.Peer(id)
		require.True(t, ok)
		require.Equal(t, raft.RoleFollower, p.RoleState().Kind)
		require.NotNil(t, p.RoleState().Follower.LeaderId)
		require.Equal(t, raft.PeerId(2), *p.RoleState().Follower.LeaderId)
		entry, ok := p.LogSnapshot().Entry(1)
		require.True(t, ok)
		require.Equal(t, kvapp.NoOp(), entry.Command)
	}

	// Step 6: the second matching reply advances peer 2's commit index to 1.
	require.NoError(t, sim.Perform(simulator.TransmitPeerReply[kvapp.Command, kvapp.Query, *kvapp.Store](1, 2, 4)))
	require.NoError(t, sim.Perform(simulator.TransmitPeerReply[kvapp.Command, kvapp.Query, *kvapp.Store](3, 2, 5)))
	peer2, _ = sim.Peer(2)
	require.Equal(t, raft.LogIndex(1), peer2.CommitIndex())

	// Step 7: applying committed entries only advances peer 2 so far.
	require.NoError(t, sim.Perform(simulator.ApplyCommitted[kvapp.Command, kvapp.Query, *kvapp.Store](nil)))
	peer2, _ = sim.Peer(2)
	require.Equal(t, raft.LogIndex(1), peer2.LastApplied())
	peer1, _ := sim.Peer(1)
	require.Equal(t, raft.LogIndex(0), peer1.LastApplied())

	// Step 8: a heartbeat carries leader_commit=1 to the followers.
	require.NoError(t, sim.Perform(simulator.TimeoutHeartbeat[kvapp.Command, kvapp.Query, *kvapp.Store](2)))
	peer2, _ = sim.Peer(2)
	require.Len(t, peer2.BufferedPeerTransmits(), 4)

	// Step 9: delivering the heartbeats and re-applying brings every peer to last_applied=1.
	heartbeatRequestIDs := make([]raft.RequestId, 0, 4)
	for _, t := range peer2.BufferedPeerTransmits() {
		heartbeatRequestIDs = append(heartbeatRequestIDs, t.RequestId)
	}
	require.NoError(t, sim.Perform(simulator.TransmitPeerRequests[kvapp.Command, kvapp.Query, *kvapp.Store](2, heartbeatRequestIDs...)))
	require.NoError(t, sim.Perform(simulator.ApplyCommitted[kvapp.Command, kvapp.Query, *kvapp.Store](nil)))
	for _, id := range []raft.PeerId{1, 2, 3, 4, 5} {
		p, ok := sim.Peer(id)
		require.True(t, ok)
		require.Equal(t, raft.LogIndex(1), p.LastApplied())
	}
}

// TestSinglePeerClusterBecomesLeaderImmediately covers the boundary behavior
// named in SPEC_FULL.md §8: a single-peer cluster skips the vote round
// entirely.
func TestSinglePeerClusterBecomesLeaderImmediately(t *testing.T) {
	cluster := raft.NewCluster(1)
	sim, err := simulator.New[kvapp.Command, kvapp.CommandResult, kvapp.Query, kvapp.QueryResult, *kvapp.Store](
		cluster,
		kvapp.NoOp(),
		raft.Eventual,
		func(id raft.PeerId) raft.Storage[kvapp.Command, *kvapp.Store] {
			return memory.NewWithSnapshot[kvapp.Command](raft.NewSnapshot(raft.LogIndex(0), raft.Term(0), kvapp.NewStore()))
		},
	)
	require.NoError(t, err)

	require.NoError(t, sim.Perform(simulator.TimeoutElection[kvapp.Command, kvapp.Query, *kvapp.Store](1)))
	peer, ok := sim.Peer(1)
	require.True(t, ok)
	require.Equal(t, raft.RoleLeader, peer.RoleState().Kind)
	require.Empty(t, peer.BufferedPeerTransmits())
}

// TestTransmitMissingRequestIsNoOpAndErrors covers the idempotence law: a
// plural transmit naming a missing request-id leaves the queue untouched
// and reports a descriptive error.
func TestTransmitMissingRequestIsNoOpAndErrors(t *testing.T) {
	sim := newFiveNodeSimulation(t)
	require.NoError(t, sim.Perform(simulator.TimeoutElection[kvapp.Command, kvapp.Query, *kvapp.Store](2)))

	peer2, _ := sim.Peer(2)
	before := peer2.BufferedPeerTransmits()

	err := sim.Perform(simulator.TransmitPeerRequests[kvapp.Command, kvapp.Query, *kvapp.Store](2, 0, 99))
	require.Error(t, err)

	after := peer2.BufferedPeerTransmits()
	require.Equal(t, before, after)
}
