package raft

import (
	"math/rand"
)

// pendingCommand/pendingQuery track a request this client is still waiting
// on a reply for, so that receiveReply can re-target it after a
// LeaderChanged redirect (§4.5).
type pendingCommand[C any] struct {
	command C
	target  PeerId
}

type pendingQuery[Q any] struct {
	query  Q
	target PeerId
}

// Client issues CommandRequests/QueryRequests against a cluster, caches the
// last known leader, and follows LeaderChanged redirects (§4.5).
type Client[C any, CR any, Q any, QR any] struct {
	id      ClientId
	cluster Cluster
	leader  *PeerId
	counter requestCounter
	rng     *rand.Rand

	pendingCommands map[RequestId]pendingCommand[C]
	commandResults  map[RequestId]CR
	pendingQueries  map[RequestId]pendingQuery[Q]
	queryResults    map[RequestId]QR

	outbound []ClientBoundTransmit

	logger Logger
}

// NewClient constructs a Client targeting cluster. rngSeed seeds the random
// peer selection used when no leader is cached and no explicit target is
// given, keeping peer choice reproducible under the simulator.
func NewClient[C any, CR any, Q any, QR any](id ClientId, cluster Cluster, rngSeed int64, opts ...Option) (*Client[C, CR, Q, QR], error) {
	o := defaultOptions()
	for _, opt := range opts {
		if err := opt(&o); err != nil {
			return nil, err
		}
	}
	return &Client[C, CR, Q, QR]{
		id:              id,
		cluster:         cluster,
		rng:             rand.New(rand.NewSource(rngSeed)),
		pendingCommands: make(map[RequestId]pendingCommand[C]),
		commandResults:  make(map[RequestId]CR),
		pendingQueries:  make(map[RequestId]pendingQuery[Q]),
		queryResults:    make(map[RequestId]QR),
		logger:          o.logger,
	}, nil
}

// Id returns this client's identifier.
func (c *Client[C, CR, Q, QR]) Id() ClientId { return c.id }

// Leader returns the client's cached leader, if any.
func (c *Client[C, CR, Q, QR]) Leader() (PeerId, bool) {
	if c.leader == nil {
		return PeerId(0), false
	}
	return *c.leader, true
}

// BufferedTransmits returns a copy of the outbound client-to-peer queue.
func (c *Client[C, CR, Q, QR]) BufferedTransmits() []ClientBoundTransmit {
	out := make([]ClientBoundTransmit, len(c.outbound))
	copy(out, c.outbound)
	return out
}

// TakeBufferedTransmit removes and returns the first queued transmit
// satisfying match.
func (c *Client[C, CR, Q, QR]) TakeBufferedTransmit(match func(ClientBoundTransmit) bool) (ClientBoundTransmit, bool) {
	for i, t := range c.outbound {
		if match(t) {
			c.outbound = append(c.outbound[:i], c.outbound[i+1:]...)
			return t, true
		}
	}
	return ClientBoundTransmit{}, false
}

func (c *Client[C, CR, Q, QR]) pickTarget(override *PeerId) (PeerId, error) {
	if override != nil {
		return *override, nil
	}
	if c.leader != nil {
		return *c.leader, nil
	}
	members := c.cluster.Members()
	if len(members) == 0 {
		return PeerId(0), ErrEmptyCluster
	}
	return members[c.rng.Intn(len(members))], nil
}

// Command submits command to peerOverride if given, else the cached leader,
// else a uniformly random cluster member. Returns the RequestId the caller
// can later look up in CommandResult.
func (c *Client[C, CR, Q, QR]) Command(command C, peerOverride *PeerId) (RequestId, error) {
	target, err := c.pickTarget(peerOverride)
	if err != nil {
		return 0, err
	}
	reqId := c.counter.allocate()
	c.pendingCommands[reqId] = pendingCommand[C]{command: command, target: target}
	c.outbound = append(c.outbound, ClientBoundTransmit{
		PeerId:    target,
		RequestId: reqId,
		Message:   CommandRequest[C]{Command: command},
	})
	return reqId, nil
}

// Query submits query to peerOverride if given, else the cached leader, else
// a uniformly random cluster member.
func (c *Client[C, CR, Q, QR]) Query(query Q, peerOverride *PeerId) (RequestId, error) {
	target, err := c.pickTarget(peerOverride)
	if err != nil {
		return 0, err
	}
	reqId := c.counter.allocate()
	c.pendingQueries[reqId] = pendingQuery[Q]{query: query, target: target}
	c.outbound = append(c.outbound, ClientBoundTransmit{
		PeerId:    target,
		RequestId: reqId,
		Message:   QueryRequest[Q]{Query: query},
	})
	return reqId, nil
}

// CommandResult returns the result of a previously-submitted command, if it
// has arrived.
func (c *Client[C, CR, Q, QR]) CommandResult(reqId RequestId) (CR, bool) {
	r, ok := c.commandResults[reqId]
	return r, ok
}

// QueryResult returns the result of a previously-submitted query, if it has
// arrived.
func (c *Client[C, CR, Q, QR]) QueryResult(reqId RequestId) (QR, bool) {
	r, ok := c.queryResults[reqId]
	return r, ok
}

// ReceivePeerMessage handles a reply arriving from peerId for requestId
// (§4.5). Incoming request-shaped messages are a protocol violation.
func (c *Client[C, CR, Q, QR]) ReceivePeerMessage(peerId PeerId, requestId RequestId, msg ClientMessage) {
	switch m := msg.(type) {
	case CommandReply[CR]:
		c.receiveCommandReply(peerId, requestId, m)
	case QueryReply[QR]:
		c.receiveQueryReply(peerId, requestId, m)
	default:
		c.logger.Warnf("client %d: received a request-shaped message %T from peer %d; protocol violation, dropping", c.id, msg, peerId)
	}
}

func (c *Client[C, CR, Q, QR]) receiveCommandReply(peerId PeerId, requestId RequestId, reply CommandReply[CR]) {
	pending, known := c.pendingCommands[requestId]
	if reply.Err == nil {
		delete(c.pendingCommands, requestId)
		c.commandResults[requestId] = reply.Result
		return
	}
	if lc, ok := reply.Err.(*LeaderChangedError); ok {
		c.leader = &lc.NewLeaderId
		if known {
			c.outbound = append(c.outbound, ClientBoundTransmit{
				PeerId:    lc.NewLeaderId,
				RequestId: requestId,
				Message:   CommandRequest[C]{Command: pending.command},
			})
		}
		return
	}
	// LeaderUnknown or StorageError: leave pending; the driver retries.
}

func (c *Client[C, CR, Q, QR]) receiveQueryReply(peerId PeerId, requestId RequestId, reply QueryReply[QR]) {
	pending, known := c.pendingQueries[requestId]
	if reply.Err == nil {
		delete(c.pendingQueries, requestId)
		c.queryResults[requestId] = reply.Result
		return
	}
	if lc, ok := reply.Err.(*LeaderChangedError); ok {
		c.leader = &lc.NewLeaderId
		if known {
			c.outbound = append(c.outbound, ClientBoundTransmit{
				PeerId:    lc.NewLeaderId,
				RequestId: requestId,
				Message:   QueryRequest[Q]{Query: pending.query},
			})
		}
		return
	}
	// LeaderUnknown or StorageError: leave pending; the driver retries.
}
