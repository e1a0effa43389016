package simulator

import (
	"reflect"

	"github.com/sdesai/raft"
	raerrors "github.com/sdesai/raft/internal/errors"
	intlogger "github.com/sdesai/raft/internal/logger"
)

// StorageFactory builds a fresh Storage for the named peer. Each call must
// return an independent instance; the Simulator uses it once per live peer
// and, if checks are enabled, once more per replay peer.
type StorageFactory[C any, M any] func(raft.PeerId) raft.Storage[C, M]

// Simulator is the deterministic driver described in §4.8: it owns every
// peer and client in the scenario and applies one Action at a time. No
// goroutine, lock, or timer appears anywhere in this type; Perform is the
// only way state advances.
type Simulator[C any, CR any, Q any, QR any, M raft.Machine[C, CR, Q, QR]] struct {
	cluster     raft.Cluster
	consistency raft.Consistency
	noOp        C

	peers   map[raft.PeerId]*raft.Peer[C, CR, Q, QR, M]
	clients map[raft.ClientId]*raft.Client[C, CR, Q, QR]

	replayPeers         map[raft.PeerId]*raft.Peer[C, CR, Q, QR, M]
	replayStorageFactory StorageFactory[C, M]

	logger raft.Logger
}

// New constructs a Simulator with one live peer per cluster member, each
// backed by storageFactory(id).
func New[C any, CR any, Q any, QR any, M raft.Machine[C, CR, Q, QR]](
	cluster raft.Cluster,
	noOp C,
	consistency raft.Consistency,
	storageFactory StorageFactory[C, M],
	opts ...raft.Option,
) (*Simulator[C, CR, Q, QR, M], error) {
	sim := &Simulator[C, CR, Q, QR, M]{
		cluster:     cluster,
		consistency: consistency,
		noOp:        noOp,
		peers:       make(map[raft.PeerId]*raft.Peer[C, CR, Q, QR, M]),
		clients:     make(map[raft.ClientId]*raft.Client[C, CR, Q, QR]),
		logger:      intlogger.NewNop(),
	}
	for _, id := range cluster.Members() {
		peerOpts := append(append([]raft.Option{}, opts...), raft.WithConsistency(consistency))
		p, err := raft.NewPeer[C, CR, Q, QR, M](id, cluster, storageFactory(id), noOp, peerOpts...)
		if err != nil {
			return nil, err
		}
		sim.peers[id] = p
	}
	return sim, nil
}

// WithSimulatorLogger sets the Simulator's own logger (distinct from each
// peer's, which is configured via the Option slice passed to New).
func (s *Simulator[C, CR, Q, QR, M]) WithSimulatorLogger(logger raft.Logger) {
	s.logger = logger
}

// AddClient registers a new client driven by this simulator.
func (s *Simulator[C, CR, Q, QR, M]) AddClient(id raft.ClientId, rngSeed int64, opts ...raft.Option) error {
	c, err := raft.NewClient[C, CR, Q, QR](id, s.cluster, rngSeed, opts...)
	if err != nil {
		return err
	}
	s.clients[id] = c
	return nil
}

// Peer returns the live peer with the given id.
func (s *Simulator[C, CR, Q, QR, M]) Peer(id raft.PeerId) (*raft.Peer[C, CR, Q, QR, M], bool) {
	p, ok := s.peers[id]
	return p, ok
}

// Client returns the client with the given id.
func (s *Simulator[C, CR, Q, QR, M]) Client(id raft.ClientId) (*raft.Client[C, CR, Q, QR], bool) {
	c, ok := s.clients[id]
	return c, ok
}

// EnableChecks constructs a parallel cluster of replay peers, each with a
// fresh storage built from replayStorageFactory, used by the Check action
// (§4.8.3).
func (s *Simulator[C, CR, Q, QR, M]) EnableChecks(replayStorageFactory StorageFactory[C, M]) error {
	s.replayStorageFactory = replayStorageFactory
	s.replayPeers = make(map[raft.PeerId]*raft.Peer[C, CR, Q, QR, M])
	for _, id := range s.cluster.Members() {
		p, err := raft.NewPeer[C, CR, Q, QR, M](id, s.cluster, replayStorageFactory(id), s.noOp, raft.WithConsistency(s.consistency))
		if err != nil {
			return err
		}
		s.replayPeers[id] = p
	}
	return nil
}

// Perform executes a single Action (§4.8.1).
func (s *Simulator[C, CR, Q, QR, M]) Perform(action Action[C, Q, M]) error {
	switch action.Kind {
	case ActionTimeoutElection:
		return s.timeoutElection(action.Peer)
	case ActionTimeoutElections:
		for _, p := range action.Peers {
			if err := s.timeoutElection(p); err != nil {
				return err
			}
		}
		return nil
	case ActionTimeoutHeartbeat:
		peer, err := s.mustPeer(action.Peer)
		if err != nil {
			return err
		}
		peer.TriggerHeartbeatTimeout()
		return nil
	case ActionTransmitPeerRequest:
		return s.deliverPeerRequests(action.Peer, []raft.RequestId{action.RequestId}, true)
	case ActionTransmitPeerRequests:
		return s.deliverPeerRequests(action.Peer, action.RequestIds, true)
	case ActionDropPeerRequest:
		return s.deliverPeerRequests(action.Peer, []raft.RequestId{action.RequestId}, false)
	case ActionDropPeerRequests:
		return s.deliverPeerRequests(action.Peer, action.RequestIds, false)
	case ActionTransmitPeerReply:
		return s.deliverPeerReplies(action.Peer, []PeerRequestPair{{Peer: action.RepliedPeer, RequestId: action.RequestId}}, true)
	case ActionTransmitPeerReplies:
		return s.deliverPeerReplies(action.Peer, action.ReplyPairs, true)
	case ActionDropPeerReply:
		return s.deliverPeerReplies(action.Peer, []PeerRequestPair{{Peer: action.RepliedPeer, RequestId: action.RequestId}}, false)
	case ActionDropPeerReplies:
		return s.deliverPeerReplies(action.Peer, action.ReplyPairs, false)
	case ActionApplyCommitted:
		if action.ApplyCommittedPeer != nil {
			peer, err := s.mustPeer(*action.ApplyCommittedPeer)
			if err != nil {
				return err
			}
			peer.ApplyCommitted()
			return nil
		}
		for _, p := range s.peers {
			p.ApplyCommitted()
		}
		return nil
	case ActionSendCommand:
		client, err := s.mustClient(action.Client)
		if err != nil {
			return err
		}
		_, err = client.Command(action.Command, action.TargetPeer)
		return err
	case ActionSendQuery:
		client, err := s.mustClient(action.Client)
		if err != nil {
			return err
		}
		_, err = client.Query(action.Query, action.TargetPeer)
		return err
	case ActionTransmitClientRequest:
		return s.deliverClientRequest(action.Client, action.RequestId)
	case ActionTransmitClientReply:
		return s.deliverClientReply(action.Peer, action.RepliedClient, action.RequestId, true)
	case ActionDropClientReply:
		return s.deliverClientReply(action.Peer, action.RepliedClient, action.RequestId, false)
	case ActionCheck:
		return s.check(action.Updates)
	default:
		return raerrors.Errorf("simulator: unrecognized action kind %v", action.Kind)
	}
}

func (s *Simulator[C, CR, Q, QR, M]) mustPeer(id raft.PeerId) (*raft.Peer[C, CR, Q, QR, M], error) {
	p, ok := s.peers[id]
	if !ok {
		return nil, raerrors.Errorf("simulator: no such peer %d", id)
	}
	return p, nil
}

func (s *Simulator[C, CR, Q, QR, M]) mustClient(id raft.ClientId) (*raft.Client[C, CR, Q, QR], error) {
	c, ok := s.clients[id]
	if !ok {
		return nil, raerrors.Errorf("simulator: no such client %d", id)
	}
	return c, nil
}

func (s *Simulator[C, CR, Q, QR, M]) timeoutElection(id raft.PeerId) error {
	peer, err := s.mustPeer(id)
	if err != nil {
		return err
	}
	peer.TriggerElectionTimeout()
	return nil
}

// deliverPeerRequests locates, in the order requestIds were listed, every
// queued request transmit in owner's outbound queue. If any is missing, it
// returns a descriptive error and leaves the queue untouched; otherwise it
// removes and (if deliver) delivers all of them in listed order.
func (s *Simulator[C, CR, Q, QR, M]) deliverPeerRequests(owner raft.PeerId, requestIds []raft.RequestId, deliver bool) error {
	ownerPeer, err := s.mustPeer(owner)
	if err != nil {
		return err
	}
	found := make([]raft.PeerTransmit[C], 0, len(requestIds))
	queue := ownerPeer.BufferedPeerTransmits()
	consumed := make([]bool, len(queue))
	for _, reqId := range requestIds {
		matched := false
		for i, t := range queue {
			if consumed[i] {
				continue
			}
			if t.Message.IsRequest() && t.RequestId == reqId {
				consumed[i] = true
				found = append(found, t)
				matched = true
				break
			}
		}
		if !matched {
			return raerrors.Errorf("simulator: peer %d has no queued request with request-id %d", owner, reqId)
		}
	}
	for _, t := range found {
		ownerPeer.TakeBufferedPeerTransmit(func(candidate raft.PeerTransmit[C]) bool {
			return candidate.Message.IsRequest() && candidate.RequestId == t.RequestId && candidate.PeerId == t.PeerId
		})
		if !deliver {
			continue
		}
		target, err := s.mustPeer(t.PeerId)
		if err != nil {
			return err
		}
		target.ReceivePeerMessage(owner, t.RequestId, t.Message)
	}
	return nil
}

// deliverPeerReplies mirrors deliverPeerRequests for reply transmits,
// matching on (repliedPeer, request_id) pairs (§4.8.2).
func (s *Simulator[C, CR, Q, QR, M]) deliverPeerReplies(owner raft.PeerId, pairs []PeerRequestPair, deliver bool) error {
	ownerPeer, err := s.mustPeer(owner)
	if err != nil {
		return err
	}
	found := make([]raft.PeerTransmit[C], 0, len(pairs))
	queue := ownerPeer.BufferedPeerTransmits()
	consumed := make([]bool, len(queue))
	for _, pair := range pairs {
		matched := false
		for i, t := range queue {
			if consumed[i] {
				continue
			}
			if t.Message.IsReply() && t.RequestId == pair.RequestId && t.PeerId == pair.Peer {
				consumed[i] = true
				found = append(found, t)
				matched = true
				break
			}
		}
		if !matched {
			return raerrors.Errorf("simulator: peer %d has no queued reply to peer %d with request-id %d", owner, pair.Peer, pair.RequestId)
		}
	}
	for _, t := range found {
		ownerPeer.TakeBufferedPeerTransmit(func(candidate raft.PeerTransmit[C]) bool {
			return candidate.Message.IsReply() && candidate.RequestId == t.RequestId && candidate.PeerId == t.PeerId
		})
		if !deliver {
			continue
		}
		target, err := s.mustPeer(t.PeerId)
		if err != nil {
			return err
		}
		target.ReceivePeerMessage(owner, t.RequestId, t.Message)
	}
	return nil
}

func (s *Simulator[C, CR, Q, QR, M]) deliverClientRequest(clientId raft.ClientId, requestId raft.RequestId) error {
	client, err := s.mustClient(clientId)
	if err != nil {
		return err
	}
	t, ok := client.TakeBufferedTransmit(func(t raft.ClientBoundTransmit) bool {
		return t.RequestId == requestId && t.Message.IsRequest()
	})
	if !ok {
		return raerrors.Errorf("simulator: client %d has no queued request with request-id %d", clientId, requestId)
	}
	peer, err := s.mustPeer(t.PeerId)
	if err != nil {
		return err
	}
	peer.ReceiveClientMessage(clientId, requestId, t.Message)
	return nil
}

func (s *Simulator[C, CR, Q, QR, M]) deliverClientReply(owner raft.PeerId, client raft.ClientId, requestId raft.RequestId, deliver bool) error {
	ownerPeer, err := s.mustPeer(owner)
	if err != nil {
		return err
	}
	t, ok := ownerPeer.TakeBufferedClientTransmit(func(t raft.ClientTransmit) bool {
		return t.ClientId == client && t.RequestId == requestId && t.Message.IsReply()
	})
	if !ok {
		return raerrors.Errorf("simulator: peer %d has no queued reply to client %d with request-id %d", owner, client, requestId)
	}
	if !deliver {
		return nil
	}
	c, err := s.mustClient(client)
	if err != nil {
		return err
	}
	c.ReceivePeerMessage(owner, requestId, t.Message)
	return nil
}

// check applies each Update to its replay peer and compares the full
// observable state vector between live and replay peers (§4.8.3). Buffered
// client transmits are deliberately excluded (§9 O-7).
func (s *Simulator[C, CR, Q, QR, M]) check(updates []Update[C, M]) error {
	if s.replayPeers == nil {
		return raerrors.New("simulator: checks are not enabled; call EnableChecks first")
	}
	for _, u := range updates {
		replay, ok := s.replayPeers[u.Peer()]
		if !ok {
			return raerrors.Errorf("simulator: check update targets unknown peer %d", u.Peer())
		}
		u.Apply(replay)
	}

	for _, id := range s.cluster.Members() {
		live := s.peers[id]
		replay := s.replayPeers[id]

		if live.CurrentTerm() != replay.CurrentTerm() {
			return raerrors.Errorf("check: peer %d current_term mismatch: live=%v replay=%v", id, live.CurrentTerm(), replay.CurrentTerm())
		}
		liveVoted, liveHas := live.VotedFor()
		replayVoted, replayHas := replay.VotedFor()
		if liveHas != replayHas || (liveHas && liveVoted != replayVoted) {
			return raerrors.Errorf("check: peer %d voted_for mismatch: live=(%v,%v) replay=(%v,%v)", id, liveVoted, liveHas, replayVoted, replayHas)
		}
		if !reflect.DeepEqual(live.LogSnapshot().Entries(), replay.LogSnapshot().Entries()) {
			return raerrors.Errorf("check: peer %d log mismatch: live=%v replay=%v", id, live.LogSnapshot().Entries(), replay.LogSnapshot().Entries())
		}
		if !reflect.DeepEqual(live.SnapshotState(), replay.SnapshotState()) {
			return raerrors.Errorf("check: peer %d snapshot mismatch: live=%+v replay=%+v", id, live.SnapshotState(), replay.SnapshotState())
		}
		if live.CommitIndex() != replay.CommitIndex() {
			return raerrors.Errorf("check: peer %d commit_index mismatch: live=%v replay=%v", id, live.CommitIndex(), replay.CommitIndex())
		}
		if live.LastApplied() != replay.LastApplied() {
			return raerrors.Errorf("check: peer %d last_applied mismatch: live=%v replay=%v", id, live.LastApplied(), replay.LastApplied())
		}
		if !reflect.DeepEqual(live.RoleState(), replay.RoleState()) {
			return raerrors.Errorf("check: peer %d role mismatch: live=%+v replay=%+v", id, live.RoleState(), replay.RoleState())
		}
		if !reflect.DeepEqual(live.Machine(), replay.Machine()) {
			return raerrors.Errorf("check: peer %d machine mismatch: live=%+v replay=%+v", id, live.Machine(), replay.Machine())
		}
		if !reflect.DeepEqual(live.BufferedPeerTransmits(), replay.BufferedPeerTransmits()) {
			return raerrors.Errorf("check: peer %d buffered_peer_transmits mismatch: live=%v replay=%v", id, live.BufferedPeerTransmits(), replay.BufferedPeerTransmits())
		}
	}
	return nil
}
