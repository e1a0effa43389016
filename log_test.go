package raft

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLogAppendAndEntry(t *testing.T) {
	log := NewLog[string]()
	log.Append(LogEntry[string]{Index: 1, Term: 1, Command: "a"})
	log.Append(LogEntry[string]{Index: 2, Term: 1, Command: "b"})

	entry, ok := log.Entry(2)
	require.True(t, ok)
	require.Equal(t, "b", entry.Command)

	_, ok = log.Entry(3)
	require.False(t, ok)
}

func TestLogLastOnEmpty(t *testing.T) {
	log := NewLog[string]()
	_, ok := log.Last()
	require.False(t, ok)
}

func TestLogTruncateFromIsInclusive(t *testing.T) {
	log := NewLog[string]()
	log.Append(LogEntry[string]{Index: 1, Term: 1, Command: "a"})
	log.Append(LogEntry[string]{Index: 2, Term: 1, Command: "b"})
	log.Append(LogEntry[string]{Index: 3, Term: 2, Command: "c"})

	log.TruncateFrom(2)

	require.Equal(t, 1, log.Len())
	last, ok := log.Last()
	require.True(t, ok)
	require.Equal(t, LogIndex(1), last.Index)
}

func TestLogCloneIsIndependent(t *testing.T) {
	log := NewLog[string]()
	log.Append(LogEntry[string]{Index: 1, Term: 1, Command: "a"})

	clone := log.Clone()
	clone.Append(LogEntry[string]{Index: 2, Term: 1, Command: "b"})

	require.Equal(t, 1, log.Len())
	require.Equal(t, 2, clone.Len())
}

func TestLogSetEntriesReplacesContents(t *testing.T) {
	log := NewLog[string]()
	log.Append(LogEntry[string]{Index: 1, Term: 1, Command: "a"})

	log.SetEntries([]LogEntry[string]{{Index: 5, Term: 3, Command: "z"}})

	require.Equal(t, 1, log.Len())
	entry, ok := log.Entry(5)
	require.True(t, ok)
	require.Equal(t, "z", entry.Command)
}
