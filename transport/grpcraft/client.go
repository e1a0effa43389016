package grpcraft

import (
	"context"
	"encoding/json"
	"io"

	"github.com/google/uuid"
	"google.golang.org/grpc"

	"github.com/sdesai/raft"
	raerrors "github.com/sdesai/raft/internal/errors"
	"github.com/sdesai/raft/transport/grpcraft/wire"
)

// Client dials a remote Server and drives a raft.Client over the resulting
// stream: every ClientBoundTransmit the raft.Client buffers is encoded and
// sent, and every inbound Envelope is fed back into the client's
// ReceivePeerMessage.
type Client[C any, CR any, Q any, QR any] struct {
	client    *raft.Client[C, CR, Q, QR]
	conn      *grpc.ClientConn
	stream    grpc.ClientStream
	sessionID string
	logger    raft.Logger
}

// Dial connects to target and wraps client for driving over the stream.
// Each Dial gets its own session id (via google/uuid), carried in every
// Envelope the Client sends; Server does not read it.
func Dial[C any, CR any, Q any, QR any](
	ctx context.Context,
	target string,
	client *raft.Client[C, CR, Q, QR],
	opts ...Option,
) (*Client[C, CR, Q, QR], error) {
	o := defaultOptions()
	for _, opt := range opts {
		if err := opt(&o); err != nil {
			return nil, err
		}
	}

	dialCtx, cancel := context.WithTimeout(ctx, o.dialTimeout)
	defer cancel()

	conn, err := grpc.DialContext(dialCtx, target,
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(wire.Name)),
		grpc.WithBlock(),
		grpc.WithInsecure(), //nolint:staticcheck // reference transport; TLS wiring is a deployment concern outside this package's scope.
	)
	if err != nil {
		return nil, raerrors.WrapErrorf(err, "grpcraft: dialing %s", target)
	}

	stream, err := conn.NewStream(ctx, &ServiceDesc.Streams[0], "/raftgrpc.Raft/Stream")
	if err != nil {
		conn.Close()
		return nil, raerrors.WrapError(err, "grpcraft: opening stream")
	}

	return &Client[C, CR, Q, QR]{
		client:    client,
		conn:      conn,
		stream:    stream,
		sessionID: uuid.NewString(),
		logger:    o.logger,
	}, nil
}

// Close tears down the underlying gRPC connection.
func (c *Client[C, CR, Q, QR]) Close() error {
	if err := c.stream.CloseSend(); err != nil {
		c.logger.Warnf("grpcraft client: closing send side: %v", err)
	}
	return c.conn.Close()
}

// Flush sends every currently-buffered outbound request on the client.
func (c *Client[C, CR, Q, QR]) Flush() error {
	for {
		t, ok := c.client.TakeBufferedTransmit(func(t raft.ClientBoundTransmit) bool { return t.Message.IsRequest() })
		if !ok {
			return nil
		}
		env, err := c.encode(t)
		if err != nil {
			return err
		}
		if err := c.stream.SendMsg(&env); err != nil {
			return raerrors.WrapError(err, "grpcraft client: sending envelope")
		}
	}
}

// Recv blocks for the next inbound Envelope and applies it to the wrapped
// raft.Client, returning io.EOF once the server closes the stream.
func (c *Client[C, CR, Q, QR]) Recv() error {
	var env wire.Envelope
	if err := c.stream.RecvMsg(&env); err != nil {
		if err == io.EOF {
			return io.EOF
		}
		return raerrors.WrapError(err, "grpcraft client: receiving envelope")
	}
	return c.handle(env)
}

func (c *Client[C, CR, Q, QR]) encode(t raft.ClientBoundTransmit) (wire.Envelope, error) {
	env := wire.Envelope{
		SessionID: c.sessionID,
		Sender:    uint64(c.client.Id()),
		RequestID: uint64(t.RequestId),
	}
	var err error
	switch msg := t.Message.(type) {
	case raft.CommandRequest[C]:
		env.Kind = wire.KindCommandRequest
		env.Payload, err = json.Marshal(msg)
	case raft.QueryRequest[Q]:
		env.Kind = wire.KindQueryRequest
		env.Payload, err = json.Marshal(msg)
	default:
		return env, raerrors.Errorf("grpcraft client: no wire encoding for %T", msg)
	}
	return env, err
}

func (c *Client[C, CR, Q, QR]) handle(env wire.Envelope) error {
	peerID := raft.PeerId(env.Sender)
	requestID := raft.RequestId(env.RequestID)
	switch env.Kind {
	case wire.KindCommandReply:
		var reply raft.CommandReply[CR]
		if err := json.Unmarshal(env.Payload, &reply); err != nil {
			return raerrors.WrapError(err, "grpcraft client: decoding CommandReply")
		}
		c.client.ReceivePeerMessage(peerID, requestID, reply)
	case wire.KindQueryReply:
		var reply raft.QueryReply[QR]
		if err := json.Unmarshal(env.Payload, &reply); err != nil {
			return raerrors.WrapError(err, "grpcraft client: decoding QueryReply")
		}
		c.client.ReceivePeerMessage(peerID, requestID, reply)
	default:
		return raerrors.Errorf("grpcraft client: cannot handle envelope kind %q", env.Kind)
	}
	return nil
}
