package raft

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTermAndLogIndexArithmetic(t *testing.T) {
	var term Term
	require.Equal(t, Term(1), term.Next())
	require.Equal(t, Term(0), term)

	index := LogIndex(5)
	require.Equal(t, LogIndex(6), index.Next())
	require.Equal(t, LogIndex(4), index.Previous())
}

func TestNewClusterDeduplicatesMembers(t *testing.T) {
	cluster := NewCluster(PeerId(1), PeerId(2), PeerId(1), PeerId(3))
	require.Equal(t, 3, cluster.Len())
	require.ElementsMatch(t, []PeerId{1, 2, 3}, cluster.Members())
}

func TestClusterMajority(t *testing.T) {
	require.Equal(t, 1, NewCluster(PeerId(1)).Majority())
	require.Equal(t, 2, NewCluster(PeerId(1), PeerId(2), PeerId(3)).Majority())
	require.Equal(t, 3, NewCluster(PeerId(1), PeerId(2), PeerId(3), PeerId(4), PeerId(5)).Majority())
}

func TestClusterOthersExcludesSelf(t *testing.T) {
	cluster := NewCluster(PeerId(1), PeerId(2), PeerId(3))
	require.ElementsMatch(t, []PeerId{2, 3}, cluster.Others(PeerId(1)))
}

func TestRequestCounterAllocatesMonotonically(t *testing.T) {
	var counter requestCounter
	first := counter.allocate()
	second := counter.allocate()
	require.Equal(t, RequestId(0), first)
	require.Equal(t, RequestId(1), second)
}
