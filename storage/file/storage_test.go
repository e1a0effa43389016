package file_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sdesai/raft"
	"github.com/sdesai/raft/storage/file"
)

func TestOpenCreatesEmptyStorage(t *testing.T) {
	dir := t.TempDir()
	s, err := file.Open[string, string](dir)
	require.NoError(t, err)
	defer s.Close()

	require.Equal(t, raft.Term(0), s.CurrentTerm())
	_, ok := s.VotedFor()
	require.False(t, ok)
	require.Equal(t, 0, s.Log().Len())
}

func TestStatePersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	s, err := file.Open[string, string](dir)
	require.NoError(t, err)
	require.NoError(t, s.SetCurrentTermAndVotedFor(4, raft.PeerId(7), true))
	require.NoError(t, s.Close())

	reopened, err := file.Open[string, string](dir)
	require.NoError(t, err)
	defer reopened.Close()

	require.Equal(t, raft.Term(4), reopened.CurrentTerm())
	votedFor, ok := reopened.VotedFor()
	require.True(t, ok)
	require.Equal(t, raft.PeerId(7), votedFor)
}

func TestLogAppendPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	s, err := file.Open[string, string](dir)
	require.NoError(t, err)
	require.NoError(t, s.AppendLogEntry(raft.LogEntry[string]{Index: 1, Term: 1, Command: "a"}))
	require.NoError(t, s.AppendLogEntry(raft.LogEntry[string]{Index: 2, Term: 1, Command: "b"}))
	require.NoError(t, s.Close())

	reopened, err := file.Open[string, string](dir)
	require.NoError(t, err)
	defer reopened.Close()

	require.Equal(t, 2, reopened.Log().Len())
	entry, ok := reopened.Log().Entry(2)
	require.True(t, ok)
	require.Equal(t, "b", entry.Command)
}

func TestTruncateLogRewritesFileAndSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	s, err := file.Open[string, string](dir)
	require.NoError(t, err)
	require.NoError(t, s.AppendLogEntry(raft.LogEntry[string]{Index: 1, Term: 1, Command: "a"}))
	require.NoError(t, s.AppendLogEntry(raft.LogEntry[string]{Index: 2, Term: 1, Command: "b"}))
	require.NoError(t, s.AppendLogEntry(raft.LogEntry[string]{Index: 3, Term: 2, Command: "c"}))

	require.NoError(t, s.TruncateLog(2))
	require.Equal(t, 1, s.Log().Len())
	require.NoError(t, s.Close())

	reopened, err := file.Open[string, string](dir)
	require.NoError(t, err)
	defer reopened.Close()
	require.Equal(t, 1, reopened.Log().Len())
	_, ok := reopened.Log().Entry(2)
	require.False(t, ok)
}

func TestSnapshotPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	s, err := file.Open[string, string](dir)
	require.NoError(t, err)
	snap := raft.NewSnapshot(raft.LogIndex(3), raft.Term(2), "machine-state")
	require.NoError(t, s.InstallSnapshot(snap))
	require.NoError(t, s.Close())

	reopened, err := file.Open[string, string](dir)
	require.NoError(t, err)
	defer reopened.Close()
	require.Equal(t, snap, reopened.Snapshot())
}

func TestLoadLogRejectsMalformedLine(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "log"), []byte("not json\n"), 0o644))

	_, err := file.Open[string, string](dir)
	require.Error(t, err)

	var parseErr *raft.ParsingLogEntryError
	require.ErrorAs(t, err, &parseErr)
	require.Equal(t, 1, parseErr.LineNumber)
}
