package raft

// PeerTransmit is an enqueued outbound peer-to-peer message (§4.6): its
// target, the request-id it was sent or replied under, and the message
// payload itself.
type PeerTransmit[C any] struct {
	PeerId    PeerId
	RequestId RequestId
	Message   PeerMessage
}

// ClientTransmit is an enqueued outbound peer-to-client message.
type ClientTransmit struct {
	ClientId  ClientId
	RequestId RequestId
	Message   ClientMessage
}

// ClientBoundTransmit is an enqueued outbound client-to-peer message, owned
// by a Client rather than a Peer.
type ClientBoundTransmit struct {
	PeerId    PeerId
	RequestId RequestId
	Message   ClientMessage
}
