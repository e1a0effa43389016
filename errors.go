package raft

import (
	"fmt"

	raerrors "github.com/sdesai/raft/internal/errors"
)

// ErrEmptyCluster is returned by Client.Command and Client.Query when no
// override is given, no leader is cached, and the cluster is empty.
// NewClient itself accepts an empty cluster.
var ErrEmptyCluster = raerrors.New("raft: cluster is empty")

// ErrLeaderUnknown is returned when the contacted peer cannot identify a
// leader.
var ErrLeaderUnknown = raerrors.New("raft: leader unknown")

// LeaderChangedError is returned when the contacted peer knows of a
// different leader than the one the caller targeted.
type LeaderChangedError struct {
	NewLeaderId PeerId
}

func (e *LeaderChangedError) Error() string {
	return fmt.Sprintf("raft: leader changed to peer %d", e.NewLeaderId)
}

// StorageError wraps a failure the peer encountered while trying to
// durably record a client-visible change.
type StorageError struct {
	Underlying error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("raft: storage error: %v", e.Underlying)
}

func (e *StorageError) Unwrap() error { return e.Underlying }

// ParsingLogEntryError reports a malformed line in a line-delimited log
// file (§6), used by the file-backed reference storage.
type ParsingLogEntryError struct {
	LineNumber int
	Message    string
}

func (e *ParsingLogEntryError) Error() string {
	return fmt.Sprintf("raft: parsing log entry at line %d: %s", e.LineNumber, e.Message)
}
