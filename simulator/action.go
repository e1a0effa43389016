// Package simulator implements the deterministic driver described in
// SPEC_FULL.md §4.8/§4.9: a Simulator owns a fixed set of peers and clients,
// applies one Action at a time, and (optionally) cross-checks live state
// against a parallel "replay" cluster driven by scripted Updates.
package simulator

import "github.com/sdesai/raft"

// ActionKind tags which driver action to perform (§4.8.1).
type ActionKind int

const (
	ActionTimeoutElection ActionKind = iota
	ActionTimeoutElections
	ActionTimeoutHeartbeat
	ActionTransmitPeerRequest
	ActionTransmitPeerRequests
	ActionDropPeerRequest
	ActionDropPeerRequests
	ActionTransmitPeerReply
	ActionTransmitPeerReplies
	ActionDropPeerReply
	ActionDropPeerReplies
	ActionApplyCommitted
	ActionSendCommand
	ActionSendQuery
	ActionTransmitClientRequest
	ActionTransmitClientReply
	ActionDropClientReply
	ActionCheck
)

// PeerRequestPair names a (replied-to peer, request id) pair used by the
// plural reply-delivery actions, preserving the caller's listed order
// (§4.8.2).
type PeerRequestPair struct {
	Peer      raft.PeerId
	RequestId raft.RequestId
}

// ClientRequestPair names a (replied-to client, request id) pair; reserved
// for a plural client-reply action should one be needed by a host, mirroring
// PeerRequestPair.
type ClientRequestPair struct {
	Client    raft.ClientId
	RequestId raft.RequestId
}

// Action is a single driver step. Exactly the fields relevant to Kind are
// populated; callers should prefer the constructor functions below over
// building an Action literal directly.
type Action[C any, Q any, M any] struct {
	Kind ActionKind

	Peer  raft.PeerId
	Peers []raft.PeerId

	RequestId  raft.RequestId
	RequestIds []raft.RequestId

	RepliedPeer raft.PeerId
	ReplyPairs  []PeerRequestPair

	ApplyCommittedPeer *raft.PeerId

	Client       raft.ClientId
	TargetPeer   *raft.PeerId
	Command      C
	Query        Q
	RepliedClient raft.ClientId

	Updates []Update[C, M]
}

func TimeoutElection[C any, Q any, M any](peer raft.PeerId) Action[C, Q, M] {
	return Action[C, Q, M]{Kind: ActionTimeoutElection, Peer: peer}
}

func TimeoutElections[C any, Q any, M any](peers ...raft.PeerId) Action[C, Q, M] {
	return Action[C, Q, M]{Kind: ActionTimeoutElections, Peers: peers}
}

func TimeoutHeartbeat[C any, Q any, M any](peer raft.PeerId) Action[C, Q, M] {
	return Action[C, Q, M]{Kind: ActionTimeoutHeartbeat, Peer: peer}
}

func TransmitPeerRequest[C any, Q any, M any](peer raft.PeerId, requestId raft.RequestId) Action[C, Q, M] {
	return Action[C, Q, M]{Kind: ActionTransmitPeerRequest, Peer: peer, RequestId: requestId}
}

func TransmitPeerRequests[C any, Q any, M any](peer raft.PeerId, requestIds ...raft.RequestId) Action[C, Q, M] {
	return Action[C, Q, M]{Kind: ActionTransmitPeerRequests, Peer: peer, RequestIds: requestIds}
}

func DropPeerRequest[C any, Q any, M any](peer raft.PeerId, requestId raft.RequestId) Action[C, Q, M] {
	return Action[C, Q, M]{Kind: ActionDropPeerRequest, Peer: peer, RequestId: requestId}
}

func DropPeerRequests[C any, Q any, M any](peer raft.PeerId, requestIds ...raft.RequestId) Action[C, Q, M] {
	return Action[C, Q, M]{Kind: ActionDropPeerRequests, Peer: peer, RequestIds: requestIds}
}

func TransmitPeerReply[C any, Q any, M any](peer, repliedPeer raft.PeerId, requestId raft.RequestId) Action[C, Q, M] {
	return Action[C, Q, M]{Kind: ActionTransmitPeerReply, Peer: peer, RepliedPeer: repliedPeer, RequestId: requestId}
}

func TransmitPeerReplies[C any, Q any, M any](peer raft.PeerId, pairs ...PeerRequestPair) Action[C, Q, M] {
	return Action[C, Q, M]{Kind: ActionTransmitPeerReplies, Peer: peer, ReplyPairs: pairs}
}

func DropPeerReply[C any, Q any, M any](peer, repliedPeer raft.PeerId, requestId raft.RequestId) Action[C, Q, M] {
	return Action[C, Q, M]{Kind: ActionDropPeerReply, Peer: peer, RepliedPeer: repliedPeer, RequestId: requestId}
}

func DropPeerReplies[C any, Q any, M any](peer raft.PeerId, pairs ...PeerRequestPair) Action[C, Q, M] {
	return Action[C, Q, M]{Kind: ActionDropPeerReplies, Peer: peer, ReplyPairs: pairs}
}

// ApplyCommitted drives Peer.ApplyCommitted on the named peer, or on every
// peer if peer is nil.
func ApplyCommitted[C any, Q any, M any](peer *raft.PeerId) Action[C, Q, M] {
	return Action[C, Q, M]{Kind: ActionApplyCommitted, ApplyCommittedPeer: peer}
}

func SendCommand[C any, Q any, M any](client raft.ClientId, peerOverride *raft.PeerId, command C) Action[C, Q, M] {
	return Action[C, Q, M]{Kind: ActionSendCommand, Client: client, TargetPeer: peerOverride, Command: command}
}

func SendQuery[C any, Q any, M any](client raft.ClientId, peerOverride *raft.PeerId, query Q) Action[C, Q, M] {
	return Action[C, Q, M]{Kind: ActionSendQuery, Client: client, TargetPeer: peerOverride, Query: query}
}

func TransmitClientRequest[C any, Q any, M any](client raft.ClientId, requestId raft.RequestId) Action[C, Q, M] {
	return Action[C, Q, M]{Kind: ActionTransmitClientRequest, Client: client, RequestId: requestId}
}

func TransmitClientReply[C any, Q any, M any](peer raft.PeerId, repliedClient raft.ClientId, requestId raft.RequestId) Action[C, Q, M] {
	return Action[C, Q, M]{Kind: ActionTransmitClientReply, Peer: peer, RepliedClient: repliedClient, RequestId: requestId}
}

func DropClientReply[C any, Q any, M any](peer raft.PeerId, repliedClient raft.ClientId, requestId raft.RequestId) Action[C, Q, M] {
	return Action[C, Q, M]{Kind: ActionDropClientReply, Peer: peer, RepliedClient: repliedClient, RequestId: requestId}
}

func Check[C any, Q any, M any](updates ...Update[C, M]) Action[C, Q, M] {
	return Action[C, Q, M]{Kind: ActionCheck, Updates: updates}
}
