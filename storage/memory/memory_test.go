package memory_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sdesai/raft"
	"github.com/sdesai/raft/storage/memory"
)

func TestNewIsEmpty(t *testing.T) {
	s := memory.New[string, string]()
	require.Equal(t, raft.Term(0), s.CurrentTerm())
	_, ok := s.VotedFor()
	require.False(t, ok)
	require.Equal(t, 0, s.Log().Len())
}

func TestSetCurrentTermAndVotedForPersistsBoth(t *testing.T) {
	s := memory.New[string, string]()
	require.NoError(t, s.SetCurrentTermAndVotedFor(3, raft.PeerId(2), true))
	require.Equal(t, raft.Term(3), s.CurrentTerm())
	votedFor, ok := s.VotedFor()
	require.True(t, ok)
	require.Equal(t, raft.PeerId(2), votedFor)
}

func TestAppendAndTruncateLog(t *testing.T) {
	s := memory.New[string, string]()
	require.NoError(t, s.AppendLogEntry(raft.LogEntry[string]{Index: 1, Term: 1, Command: "a"}))
	require.NoError(t, s.AppendLogEntry(raft.LogEntry[string]{Index: 2, Term: 1, Command: "b"}))
	require.Equal(t, 2, s.Log().Len())

	require.NoError(t, s.TruncateLog(2))
	require.Equal(t, 1, s.Log().Len())
}

func TestNewWithSnapshotSeedsSnapshot(t *testing.T) {
	snap := raft.NewSnapshot(raft.LogIndex(5), raft.Term(2), "seeded")
	s := memory.NewWithSnapshot[string](snap)
	require.Equal(t, snap, s.Snapshot())
}

func TestInstallSnapshotReplaces(t *testing.T) {
	s := memory.New[string, string]()
	snap := raft.NewSnapshot(raft.LogIndex(9), raft.Term(4), "machine-state")
	require.NoError(t, s.InstallSnapshot(snap))
	require.Equal(t, snap, s.Snapshot())
}
