// Package grpcraft is the reference transport named in SPEC_FULL.md §1/§6B:
// it sits outside the deterministic core and turns a gRPC bidirectional
// stream into calls against a raft.Peer or raft.Client. Nothing in the core
// imports this package; it exists so the retrieved pack's gRPC-shaped
// dependency surface has a genuine home.
package grpcraft

import (
	"encoding/json"
	"io"

	"google.golang.org/grpc"

	"github.com/sdesai/raft"
	raerrors "github.com/sdesai/raft/internal/errors"
	"github.com/sdesai/raft/transport/grpcraft/wire"
)

// Server adapts one raft.Peer onto a gRPC stream: every inbound Envelope
// becomes a ReceivePeerMessage or ReceiveClientMessage call, and every
// transmit the Peer buffers as a result is drained and streamed back
// immediately, in FIFO order, before the next Envelope is read.
type Server[C any, CR any, Q any, QR any, M raft.Machine[C, CR, Q, QR]] struct {
	peer   *raft.Peer[C, CR, Q, QR, M]
	logger raft.Logger
}

// NewServer wraps peer for serving over gRPC.
func NewServer[C any, CR any, Q any, QR any, M raft.Machine[C, CR, Q, QR]](
	peer *raft.Peer[C, CR, Q, QR, M],
	opts ...Option,
) (*Server[C, CR, Q, QR, M], error) {
	o := defaultOptions()
	for _, opt := range opts {
		if err := opt(&o); err != nil {
			return nil, err
		}
	}
	return &Server[C, CR, Q, QR, M]{peer: peer, logger: o.logger}, nil
}

// Stream implements RaftStreamServer: it loops receiving Envelopes until
// the client closes the stream or an unrecoverable stream error occurs.
func (s *Server[C, CR, Q, QR, M]) Stream(stream grpc.ServerStream) error {
	for {
		var env wire.Envelope
		if err := stream.RecvMsg(&env); err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		if err := s.handle(env); err != nil {
			s.logger.Errorf("grpcraft server: %v", err)
			continue
		}
		for _, out := range s.drain() {
			if err := stream.SendMsg(&out); err != nil {
				return err
			}
		}
	}
}

func (s *Server[C, CR, Q, QR, M]) handle(env wire.Envelope) error {
	sender := raft.PeerId(env.Sender)
	requestID := raft.RequestId(env.RequestID)

	switch env.Kind {
	case wire.KindRequestVoteRequest:
		var req raft.RequestVoteRequest
		if err := json.Unmarshal(env.Payload, &req); err != nil {
			return raerrors.WrapError(err, "grpcraft: decoding RequestVoteRequest")
		}
		s.peer.ReceivePeerMessage(sender, requestID, req)
	case wire.KindRequestVoteReply:
		var reply raft.RequestVoteReply
		if err := json.Unmarshal(env.Payload, &reply); err != nil {
			return raerrors.WrapError(err, "grpcraft: decoding RequestVoteReply")
		}
		s.peer.ReceivePeerMessage(sender, requestID, reply)
	case wire.KindAppendEntriesRequest:
		var req raft.AppendEntriesRequest[C]
		if err := json.Unmarshal(env.Payload, &req); err != nil {
			return raerrors.WrapError(err, "grpcraft: decoding AppendEntriesRequest")
		}
		s.peer.ReceivePeerMessage(sender, requestID, req)
	case wire.KindAppendEntriesReply:
		var reply raft.AppendEntriesReply
		if err := json.Unmarshal(env.Payload, &reply); err != nil {
			return raerrors.WrapError(err, "grpcraft: decoding AppendEntriesReply")
		}
		s.peer.ReceivePeerMessage(sender, requestID, reply)
	case wire.KindCommandRequest:
		var req raft.CommandRequest[C]
		if err := json.Unmarshal(env.Payload, &req); err != nil {
			return raerrors.WrapError(err, "grpcraft: decoding CommandRequest")
		}
		s.peer.ReceiveClientMessage(raft.ClientId(env.Sender), requestID, req)
	case wire.KindQueryRequest:
		var req raft.QueryRequest[Q]
		if err := json.Unmarshal(env.Payload, &req); err != nil {
			return raerrors.WrapError(err, "grpcraft: decoding QueryRequest")
		}
		s.peer.ReceiveClientMessage(raft.ClientId(env.Sender), requestID, req)
	default:
		return raerrors.Errorf("grpcraft: server cannot handle envelope kind %q", env.Kind)
	}
	return nil
}

func (s *Server[C, CR, Q, QR, M]) drain() []wire.Envelope {
	var out []wire.Envelope
	for {
		t, ok := s.peer.TakeBufferedPeerTransmit(func(raft.PeerTransmit[C]) bool { return true })
		if !ok {
			break
		}
		if env, err := encodePeerTransmit(s.peer.Id(), t); err != nil {
			s.logger.Errorf("grpcraft server: encoding peer transmit: %v", err)
		} else {
			out = append(out, env)
		}
	}
	for {
		t, ok := s.peer.TakeBufferedClientTransmit(func(raft.ClientTransmit) bool { return true })
		if !ok {
			break
		}
		if env, err := encodeClientTransmit[CR, QR](s.peer.Id(), t); err != nil {
			s.logger.Errorf("grpcraft server: encoding client transmit: %v", err)
		} else {
			out = append(out, env)
		}
	}
	return out
}

func encodePeerTransmit[C any](sender raft.PeerId, t raft.PeerTransmit[C]) (wire.Envelope, error) {
	env := wire.Envelope{Sender: uint64(sender), RequestID: uint64(t.RequestId)}
	var err error
	switch msg := t.Message.(type) {
	case raft.RequestVoteRequest:
		env.Kind = wire.KindRequestVoteRequest
		env.Payload, err = json.Marshal(msg)
	case raft.RequestVoteReply:
		env.Kind = wire.KindRequestVoteReply
		env.Payload, err = json.Marshal(msg)
	case raft.AppendEntriesRequest[C]:
		env.Kind = wire.KindAppendEntriesRequest
		env.Payload, err = json.Marshal(msg)
	case raft.AppendEntriesReply:
		env.Kind = wire.KindAppendEntriesReply
		env.Payload, err = json.Marshal(msg)
	default:
		return env, raerrors.Errorf("grpcraft: no wire encoding for peer message %T", msg)
	}
	return env, err
}

func encodeClientTransmit[CR any, QR any](sender raft.PeerId, t raft.ClientTransmit) (wire.Envelope, error) {
	env := wire.Envelope{Sender: uint64(sender), RequestID: uint64(t.RequestId)}
	var err error
	switch msg := t.Message.(type) {
	case raft.CommandReply[CR]:
		env.Kind = wire.KindCommandReply
		env.Payload, err = json.Marshal(msg)
	case raft.QueryReply[QR]:
		env.Kind = wire.KindQueryReply
		env.Payload, err = json.Marshal(msg)
	default:
		return env, raerrors.Errorf("grpcraft: no wire encoding for client message %T", msg)
	}
	return env, err
}
