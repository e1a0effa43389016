package raft

import (
	raerrors "github.com/sdesai/raft/internal/errors"
	"github.com/sdesai/raft/internal/xslices"
)

// Peer is the Raft state machine (§4.4). Every exported method is a
// synchronous, single-threaded state transition: it mutates the peer's own
// fields and storage, and appends to its own outbound queues. Nothing here
// blocks, spawns a goroutine, or takes a lock — the caller (normally a
// Simulator) is assumed to hold exclusive access to this Peer for the
// duration of the call.
//
// Type parameters: C command, CR command result, Q query, QR query result,
// M the application machine type.
type Peer[C any, CR any, Q any, QR any, M Machine[C, CR, Q, QR]] struct {
	id      PeerId
	cluster Cluster
	storage Storage[C, M]

	role        Role[C]
	commitIndex LogIndex
	lastApplied LogIndex
	machine     M

	noOp    C
	counter requestCounter

	bufferedPeerTransmits   []PeerTransmit[C]
	bufferedClientTransmits []ClientTransmit

	logger      Logger
	consistency Consistency
}

// NewPeer constructs a Peer from its initial Storage. Role starts as
// Follower{leader_id=None}; machine, commit_index, and last_applied are
// loaded from the storage's snapshot (§3 Lifecycles). noOp is the
// distinguished no-op command this peer's application supplies, appended on
// every election win (§4.4.6).
func NewPeer[C any, CR any, Q any, QR any, M Machine[C, CR, Q, QR]](
	id PeerId,
	cluster Cluster,
	storage Storage[C, M],
	noOp C,
	opts ...Option,
) (*Peer[C, CR, Q, QR, M], error) {
	o := defaultOptions()
	for _, opt := range opts {
		if err := opt(&o); err != nil {
			return nil, err
		}
	}

	snap := storage.Snapshot()
	return &Peer[C, CR, Q, QR, M]{
		id:          id,
		cluster:     cluster,
		storage:     storage,
		role:        NewFollowerRole[C](nil),
		commitIndex: snap.LastIncludedIndex,
		lastApplied: snap.LastIncludedIndex,
		machine:     snap.Machine,
		noOp:        noOp,
		logger:      o.logger,
		consistency: o.consistency,
	}, nil
}

// Id returns this peer's identifier.
func (p *Peer[C, CR, Q, QR, M]) Id() PeerId { return p.id }

// Cluster returns the cluster this peer belongs to.
func (p *Peer[C, CR, Q, QR, M]) Cluster() Cluster { return p.cluster }

// CurrentTerm returns the peer's current term, as reflected by storage.
func (p *Peer[C, CR, Q, QR, M]) CurrentTerm() Term { return p.storage.CurrentTerm() }

// VotedFor returns who this peer voted for in the current term, if anyone.
func (p *Peer[C, CR, Q, QR, M]) VotedFor() (PeerId, bool) { return p.storage.VotedFor() }

// RoleState returns a copy of the peer's current role and its payload.
func (p *Peer[C, CR, Q, QR, M]) RoleState() Role[C] { return p.role }

// CommitIndex returns the highest log index known to be replicated on a
// majority.
func (p *Peer[C, CR, Q, QR, M]) CommitIndex() LogIndex { return p.commitIndex }

// LastApplied returns the highest log index whose command has been applied.
func (p *Peer[C, CR, Q, QR, M]) LastApplied() LogIndex { return p.lastApplied }

// Machine returns the peer's current machine value.
func (p *Peer[C, CR, Q, QR, M]) Machine() M { return p.machine }

// LogSnapshot returns the peer's in-memory log.
func (p *Peer[C, CR, Q, QR, M]) LogSnapshot() *Log[C] { return p.storage.Log() }

// SnapshotState returns the peer's last installed snapshot.
func (p *Peer[C, CR, Q, QR, M]) SnapshotState() Snapshot[M] { return p.storage.Snapshot() }

// BufferedPeerTransmits returns a copy of the outbound peer-transmit queue.
func (p *Peer[C, CR, Q, QR, M]) BufferedPeerTransmits() []PeerTransmit[C] {
	out := make([]PeerTransmit[C], len(p.bufferedPeerTransmits))
	copy(out, p.bufferedPeerTransmits)
	return out
}

// BufferedClientTransmits returns a copy of the outbound client-transmit
// queue.
func (p *Peer[C, CR, Q, QR, M]) BufferedClientTransmits() []ClientTransmit {
	out := make([]ClientTransmit, len(p.bufferedClientTransmits))
	copy(out, p.bufferedClientTransmits)
	return out
}

// TakeBufferedPeerTransmit removes and returns the first queued peer
// transmit satisfying match, preserving FIFO order among the rest.
func (p *Peer[C, CR, Q, QR, M]) TakeBufferedPeerTransmit(match func(PeerTransmit[C]) bool) (PeerTransmit[C], bool) {
	for i, t := range p.bufferedPeerTransmits {
		if match(t) {
			p.bufferedPeerTransmits = append(p.bufferedPeerTransmits[:i], p.bufferedPeerTransmits[i+1:]...)
			return t, true
		}
	}
	return PeerTransmit[C]{}, false
}

// TakeBufferedClientTransmit removes and returns the first queued client
// transmit satisfying match.
func (p *Peer[C, CR, Q, QR, M]) TakeBufferedClientTransmit(match func(ClientTransmit) bool) (ClientTransmit, bool) {
	for i, t := range p.bufferedClientTransmits {
		if match(t) {
			p.bufferedClientTransmits = append(p.bufferedClientTransmits[:i], p.bufferedClientTransmits[i+1:]...)
			return t, true
		}
	}
	return ClientTransmit{}, false
}

// dropAllOutstandingVoteRequests removes every queued RequestVote transmit,
// used when a Candidate learns of a higher term (§4.4.3).
func (p *Peer[C, CR, Q, QR, M]) dropAllOutstandingVoteRequests() {
	filtered := p.bufferedPeerTransmits[:0]
	for _, t := range p.bufferedPeerTransmits {
		if _, ok := t.Message.(RequestVoteRequest); ok {
			continue
		}
		filtered = append(filtered, t)
	}
	p.bufferedPeerTransmits = filtered
}

func (p *Peer[C, CR, Q, QR, M]) enqueuePeer(target PeerId, requestId RequestId, msg PeerMessage) {
	p.bufferedPeerTransmits = append(p.bufferedPeerTransmits, PeerTransmit[C]{
		PeerId:    target,
		RequestId: requestId,
		Message:   msg,
	})
}

func (p *Peer[C, CR, Q, QR, M]) enqueueClient(target ClientId, requestId RequestId, msg ClientMessage) {
	p.bufferedClientTransmits = append(p.bufferedClientTransmits, ClientTransmit{
		ClientId:  target,
		RequestId: requestId,
		Message:   msg,
	})
}

// lastLogIndexAndTerm returns (index, term) of the last log entry, or of the
// snapshot boundary if the log is empty.
func (p *Peer[C, CR, Q, QR, M]) lastLogIndexAndTerm() (LogIndex, Term) {
	log := p.storage.Log()
	if last, ok := log.Last(); ok {
		return last.Index, last.Term
	}
	snap := p.storage.Snapshot()
	return snap.LastIncludedIndex, snap.LastIncludedTerm
}

// ---------------------------------------------------------------------
// §4.4.1 Election timeout
// ---------------------------------------------------------------------

// TriggerElectionTimeout begins a new election.
func (p *Peer[C, CR, Q, QR, M]) TriggerElectionTimeout() {
	newTerm := p.storage.CurrentTerm().Next()
	if err := p.storage.SetCurrentTermAndVotedFor(newTerm, p.id, true); err != nil {
		p.logger.Warnf("peer %d: election timeout storage error, remaining follower: %v", p.id, err)
		return
	}

	if p.cluster.Len() == 1 {
		p.becomeLeader()
		return
	}

	others := p.cluster.Others(p.id)
	voteRequestIds := make(map[RequestId]struct{}, len(others))
	lastIndex, lastTerm := p.lastLogIndexAndTerm()
	for _, other := range others {
		reqId := p.counter.allocate()
		voteRequestIds[reqId] = struct{}{}
		p.enqueuePeer(other, reqId, RequestVoteRequest{
			Term:         newTerm,
			CandidateId:  p.id,
			LastLogIndex: lastIndex,
			LastLogTerm:  lastTerm,
		})
	}
	p.role = NewCandidateRole[C](voteRequestIds)
}

// ---------------------------------------------------------------------
// §4.4.2 / §4.4.3 RequestVote
// ---------------------------------------------------------------------

func (p *Peer[C, CR, Q, QR, M]) receiveRequestVoteRequest(sender PeerId, req RequestVoteRequest) RequestVoteReply {
	currentTerm := p.storage.CurrentTerm()
	reply := RequestVoteReply{Term: currentTerm, Vote: VoteGranted}

	if req.Term < currentTerm {
		reply.Vote = VoteNotGrantedDueToBeingInHigherTerm
		return reply
	}

	votedFor, hasVoted := p.storage.VotedFor()
	if req.Term == currentTerm && hasVoted && votedFor != sender {
		reply.Vote = VoteNotGrantedDueToBeingGrantedToAnotherPeer
		return reply
	}

	// O-1: role is deliberately NOT transitioned to Follower here, even
	// though a higher term is observed; step-down happens only in reply
	// handling (§4.4.3, §4.4.5).
	if req.Term > currentTerm {
		if err := p.storage.SetCurrentTermAndVotedFor(req.Term, PeerId(0), false); err != nil {
			reply.Vote = VoteNotGrantedDueToStorageError
			return reply
		}
		currentTerm = req.Term
		reply.Term = currentTerm
		votedFor, hasVoted = p.storage.VotedFor()
	}

	if hasVoted && votedFor != sender {
		reply.Vote = VoteNotGrantedDueToBeingGrantedToAnotherPeer
		return reply
	}

	lastIndex, lastTerm := p.lastLogIndexAndTerm()
	upToDate := req.LastLogTerm > lastTerm || (req.LastLogTerm == lastTerm && req.LastLogIndex >= lastIndex)
	if !upToDate {
		reply.Vote = VoteNotGrantedDueToBeingLessUpToDate
		return reply
	}

	if err := p.storage.SetVotedFor(sender, true); err != nil {
		reply.Vote = VoteNotGrantedDueToStorageError
		return reply
	}
	reply.Vote = VoteGranted
	return reply
}

func (p *Peer[C, CR, Q, QR, M]) receiveRequestVoteReply(sender PeerId, requestId RequestId, reply RequestVoteReply) {
	currentTerm := p.storage.CurrentTerm()

	if reply.Term > currentTerm {
		_ = p.storage.SetCurrentTermAndVotedFor(reply.Term, PeerId(0), false)
		p.role = NewFollowerRole[C](nil)
		p.dropAllOutstandingVoteRequests()
		return
	}

	if p.role.Kind != RoleCandidate {
		return
	}
	if _, outstanding := p.role.Candidate.VoteRequestIds[requestId]; !outstanding {
		return
	}

	switch reply.Vote {
	case VoteGranted:
		delete(p.role.Candidate.VoteRequestIds, requestId)
		p.role.Candidate.VotesGranted++
		if p.role.Candidate.VotesGranted >= p.cluster.Majority() {
			p.becomeLeader()
		}
	case VoteNotGrantedDueToStorageError:
		lastIndex, lastTerm := p.lastLogIndexAndTerm()
		p.enqueuePeer(sender, requestId, RequestVoteRequest{
			Term:         currentTerm,
			CandidateId:  p.id,
			LastLogIndex: lastIndex,
			LastLogTerm:  lastTerm,
		})
	default:
		// no state change
	}
}

// ---------------------------------------------------------------------
// §4.4.4 / §4.4.5 AppendEntries
// ---------------------------------------------------------------------

func (p *Peer[C, CR, Q, QR, M]) receiveAppendEntriesRequest(sender PeerId, req AppendEntriesRequest[C]) AppendEntriesReply {
	currentTerm := p.storage.CurrentTerm()

	if req.Term < currentTerm {
		return AppendEntriesReply{Term: currentTerm, Success: false}
	}

	if req.PrevLogIndex != 0 {
		entry, ok := p.storage.Log().Entry(req.PrevLogIndex)
		if !ok {
			return AppendEntriesReply{Term: currentTerm, Success: false}
		}
		if entry.Term != req.PrevLogTerm {
			// O-2: truncate and return false without processing entries
			// this round.
			if err := p.storage.TruncateLog(req.PrevLogIndex); err != nil {
				panic(raerrors.WrapErrorf(err, "peer %d: truncate log at %d", p.id, req.PrevLogIndex))
			}
			return AppendEntriesReply{Term: currentTerm, Success: false}
		}
	}

	// currentTerm is deliberately NOT rebound to req.Term below: the
	// original (append_entries_request.rs) captures current_term once at
	// the top and replies with that pre-bump value even after persisting
	// the higher term, so a term-bumped follower's success reply is seen
	// by the leader as belonging to the old term. Preserved verbatim
	// rather than "corrected" to req.Term.
	if req.Term > currentTerm {
		if err := p.storage.SetCurrentTerm(req.Term); err != nil {
			panic(raerrors.WrapErrorf(err, "peer %d: persist term %d", p.id, req.Term))
		}
		leader := sender
		p.role = NewFollowerRole[C](&leader)
	}

	sid := sender
	switch p.role.Kind {
	case RoleFollower:
		p.role.Follower.LeaderId = &sid
	case RoleCandidate:
		p.role = NewFollowerRole[C](&sid)
	case RoleLeader:
		panic(raerrors.Errorf("peer %d: received AppendEntries while Leader in term %d; leader uniqueness violated", p.id, currentTerm))
	}

	for _, entry := range req.Entries {
		// O-8: follower-side appends are panic-on-failure in the covered
		// core.
		if err := p.storage.AppendLogEntry(entry); err != nil {
			panic(raerrors.WrapErrorf(err, "peer %d: append log entry %d", p.id, entry.Index))
		}
	}

	p.commitIndex = req.LeaderCommit
	return AppendEntriesReply{Term: currentTerm, Success: true}
}

func (p *Peer[C, CR, Q, QR, M]) receiveAppendEntriesReply(sender PeerId, requestId RequestId, reply AppendEntriesReply) {
	currentTerm := p.storage.CurrentTerm()

	if reply.Term > currentTerm {
		_ = p.storage.SetCurrentTermAndVotedFor(reply.Term, PeerId(0), false)
		if p.role.Kind == RoleLeader {
			p.role = NewFollowerRole[C](nil)
		}
		return
	}
	if reply.Term < currentTerm {
		return
	}
	if p.role.Kind != RoleLeader {
		return
	}

	original, had := p.role.Leader.AppendEntriesRequests[requestId]
	if !had {
		return
	}
	delete(p.role.Leader.AppendEntriesRequests, requestId)

	if reply.Success {
		replicated := original.PrevLogIndex
		if n := len(original.Entries); n > 0 {
			replicated = original.Entries[n-1].Index
		}
		p.role.Leader.MatchIndex[sender] = replicated
		p.role.Leader.NextIndex[sender] = replicated.Next()
		p.recomputeCommitIndex(currentTerm)
		return
	}

	snap := p.storage.Snapshot()
	floor := snap.LastIncludedIndex.Next()
	next := p.role.Leader.NextIndex[sender]
	if next <= floor {
		// O-4: snapshot transfer required; left unimplemented, matching
		// the source's unimplemented!().
		panic(raerrors.Errorf("peer %d: next_index for peer %d would drop to or below snapshot boundary %d; snapshot transfer is not implemented", p.id, sender, floor))
	}
	next--
	p.role.Leader.NextIndex[sender] = next

	// The re-send's prev_log_index is the decremented next_index itself
	// (not next_index-1): matching append_entries_reply.rs's
	// `.prev_log_index(*next_index)` with `entries(log[position..])`, so
	// prev_log_index == entries[0].index whenever entries is non-empty.
	// §4.4.5 leaves this window unspecified; this is the original's
	// convention, not the usual prev=entry.index-1 invariant.
	var prevTerm Term
	if next == 0 {
		prevTerm = Term(0)
	} else if e, ok := p.storage.Log().Entry(next); ok {
		prevTerm = e.Term
	} else {
		prevTerm = snap.LastIncludedTerm
	}

	entries := make([]LogEntry[C], 0)
	for _, e := range p.storage.Log().Entries() {
		if e.Index >= next {
			entries = append(entries, e)
		}
	}

	reqId := p.counter.allocate()
	newReq := AppendEntriesRequest[C]{
		Term:         currentTerm,
		LeaderId:     p.id,
		PrevLogIndex: next,
		PrevLogTerm:  prevTerm,
		Entries:      entries,
		LeaderCommit: p.commitIndex,
	}
	p.role.Leader.AppendEntriesRequests[reqId] = newReq
	p.enqueuePeer(sender, reqId, newReq)
}

// recomputeCommitIndex implements §4.4.5's majority-based commit
// advancement. O-3: deliberately does not check log[commit_index].term ==
// current_term, matching the source.
func (p *Peer[C, CR, Q, QR, M]) recomputeCommitIndex(_ Term) {
	matchIndex := p.role.Leader.MatchIndex
	for _, v := range xslices.DescendingValues(matchIndex) {
		if v <= p.commitIndex {
			continue
		}
		count := 0
		for _, mi := range matchIndex {
			if mi >= v {
				count++
			}
		}
		if count >= p.cluster.Majority() {
			p.commitIndex = v
			return
		}
	}
}

// ---------------------------------------------------------------------
// §4.4.6 Become leader
// ---------------------------------------------------------------------

func (p *Peer[C, CR, Q, QR, M]) becomeLeader() {
	prevIndex, prevTerm := p.lastLogIndexAndTerm()
	currentTerm := p.storage.CurrentTerm()

	noOpEntry := LogEntry[C]{Index: prevIndex.Next(), Term: currentTerm, Command: p.noOp}
	if err := p.storage.AppendLogEntry(noOpEntry); err != nil {
		panic(raerrors.WrapErrorf(err, "peer %d: append no-op entry on becoming leader", p.id))
	}

	snap := p.storage.Snapshot()
	nextIndex := make(map[PeerId]LogIndex)
	matchIndex := make(map[PeerId]LogIndex)
	requests := make(map[RequestId]AppendEntriesRequest[C])
	matchIndex[p.id] = noOpEntry.Index

	others := p.cluster.Others(p.id)
	for _, other := range others {
		nextIndex[other] = noOpEntry.Index.Next()
		matchIndex[other] = snap.LastIncludedIndex

		reqId := p.counter.allocate()
		req := AppendEntriesRequest[C]{
			Term:         currentTerm,
			LeaderId:     p.id,
			PrevLogIndex: prevIndex,
			PrevLogTerm:  prevTerm,
			Entries:      []LogEntry[C]{noOpEntry},
			LeaderCommit: p.commitIndex,
		}
		requests[reqId] = req
		p.enqueuePeer(other, reqId, req)
	}

	p.role = NewLeaderRole(nextIndex, matchIndex, requests)
}

// BecomeLeader is exposed for the replay/direct-control oracle and for
// single-peer-cluster boundary tests; ordinary callers reach it through
// TriggerElectionTimeout / receiveRequestVoteReply.
func (p *Peer[C, CR, Q, QR, M]) BecomeLeader() { p.becomeLeader() }

// ---------------------------------------------------------------------
// §4.4.7 Heartbeat timeout
// ---------------------------------------------------------------------

// TriggerHeartbeatTimeout sends an empty AppendEntries to every other peer.
// Valid only while Leader; a no-op otherwise.
func (p *Peer[C, CR, Q, QR, M]) TriggerHeartbeatTimeout() {
	if p.role.Kind != RoleLeader {
		return
	}
	prevIndex, prevTerm := p.lastLogIndexAndTerm()
	currentTerm := p.storage.CurrentTerm()

	for _, other := range p.cluster.Others(p.id) {
		reqId := p.counter.allocate()
		req := AppendEntriesRequest[C]{
			Term:         currentTerm,
			LeaderId:     p.id,
			PrevLogIndex: prevIndex,
			PrevLogTerm:  prevTerm,
			Entries:      nil,
			LeaderCommit: p.commitIndex,
		}
		p.role.Leader.AppendEntriesRequests[reqId] = req
		p.enqueuePeer(other, reqId, req)
	}
}

// ---------------------------------------------------------------------
// §4.4.8 Applying committed entries
// ---------------------------------------------------------------------

// ApplyCommitted advances last_applied one step at a time up to
// commit_index, applying each entry's command to the machine.
func (p *Peer[C, CR, Q, QR, M]) ApplyCommitted() {
	for p.lastApplied < p.commitIndex {
		next := p.lastApplied.Next()
		entry, ok := p.storage.Log().Entry(next)
		if !ok {
			panic(raerrors.Errorf("peer %d: missing log entry at index %d while applying committed entries", p.id, next))
		}
		_ = p.machine.Apply(entry.Command)
		p.lastApplied = next
	}
}

// ---------------------------------------------------------------------
// §4.4.9 / §4.4.10 Client-facing requests
// ---------------------------------------------------------------------

func (p *Peer[C, CR, Q, QR, M]) receiveCommandRequest(clientId ClientId, requestId RequestId, req CommandRequest[C]) {
	switch p.role.Kind {
	case RoleCandidate:
		p.enqueueClient(clientId, requestId, CommandReply[CR]{Err: ErrLeaderUnknown})
		return
	case RoleFollower:
		if p.role.Follower.LeaderId != nil {
			p.enqueueClient(clientId, requestId, CommandReply[CR]{Err: &LeaderChangedError{NewLeaderId: *p.role.Follower.LeaderId}})
		} else {
			p.enqueueClient(clientId, requestId, CommandReply[CR]{Err: ErrLeaderUnknown})
		}
		return
	}

	prevIndex, prevTerm := p.lastLogIndexAndTerm()
	currentTerm := p.storage.CurrentTerm()
	entry := LogEntry[C]{Index: prevIndex.Next(), Term: currentTerm, Command: req.Command}

	if err := p.storage.AppendLogEntry(entry); err != nil {
		p.enqueueClient(clientId, requestId, CommandReply[CR]{Err: &StorageError{Underlying: err}})
		return
	}

	for _, other := range p.cluster.Others(p.id) {
		reqId := p.counter.allocate()
		areq := AppendEntriesRequest[C]{
			Term:         currentTerm,
			LeaderId:     p.id,
			PrevLogIndex: prevIndex,
			PrevLogTerm:  prevTerm,
			Entries:      []LogEntry[C]{entry},
			LeaderCommit: p.commitIndex,
		}
		p.role.Leader.AppendEntriesRequests[reqId] = areq
		p.enqueuePeer(other, reqId, areq)
	}

	// O-5: no CommandReply is ever enqueued on this success path; see
	// SPEC_FULL.md §9.
}

func (p *Peer[C, CR, Q, QR, M]) receiveQueryRequest(clientId ClientId, requestId RequestId, req QueryRequest[Q]) {
	if p.consistency == Strong && p.role.Kind != RoleLeader {
		switch p.role.Kind {
		case RoleCandidate:
			p.enqueueClient(clientId, requestId, QueryReply[QR]{Err: ErrLeaderUnknown})
		case RoleFollower:
			if p.role.Follower.LeaderId != nil {
				p.enqueueClient(clientId, requestId, QueryReply[QR]{Err: &LeaderChangedError{NewLeaderId: *p.role.Follower.LeaderId}})
			} else {
				p.enqueueClient(clientId, requestId, QueryReply[QR]{Err: ErrLeaderUnknown})
			}
		}
		return
	}

	switch p.consistency {
	case Eventual:
		if p.lastApplied < p.commitIndex {
			p.ApplyCommitted()
		}
		result := p.machine.Query(req.Query)
		p.enqueueClient(clientId, requestId, QueryReply[QR]{Result: result})
	case Strong:
		// TODO: implement the read-barrier (confirm leadership via a
		// successful heartbeat majority) before replying. O-6: the
		// covered core leaves this unimplemented; no reply is produced.
	}
}

// ---------------------------------------------------------------------
// Dispatch entry points
// ---------------------------------------------------------------------

// ReceivePeerMessage delivers a peer-to-peer message from sender, carrying
// requestId, to this peer. Replies are enqueued onto the outbound peer
// queue; this method never returns a value because all effects are
// side-effecting queue pushes (§4.6).
func (p *Peer[C, CR, Q, QR, M]) ReceivePeerMessage(sender PeerId, requestId RequestId, msg PeerMessage) {
	switch m := msg.(type) {
	case RequestVoteRequest:
		reply := p.receiveRequestVoteRequest(sender, m)
		p.enqueuePeer(sender, requestId, reply)
	case RequestVoteReply:
		p.receiveRequestVoteReply(sender, requestId, m)
	case AppendEntriesRequest[C]:
		reply := p.receiveAppendEntriesRequest(sender, m)
		p.enqueuePeer(sender, requestId, reply)
	case AppendEntriesReply:
		p.receiveAppendEntriesReply(sender, requestId, m)
	default:
		p.logger.Warnf("peer %d: received unrecognized peer message type %T", p.id, msg)
	}
}

// ReceiveClientMessage delivers a client-to-peer message from clientId,
// carrying requestId, to this peer.
func (p *Peer[C, CR, Q, QR, M]) ReceiveClientMessage(clientId ClientId, requestId RequestId, msg ClientMessage) {
	switch m := msg.(type) {
	case CommandRequest[C]:
		p.receiveCommandRequest(clientId, requestId, m)
	case QueryRequest[Q]:
		p.receiveQueryRequest(clientId, requestId, m)
	default:
		p.logger.Warnf("peer %d: received a reply-shaped message %T from client %d; protocol violation, dropping", p.id, msg, clientId)
	}
}

// ---------------------------------------------------------------------
// Direct-control setters for the replay/Update oracle (simulator package).
// These bypass the normal protocol-driven paths entirely and exist only so
// a shadow "replay" peer can be steered into an expected state for
// comparison; see simulator.Update.
// ---------------------------------------------------------------------

func (p *Peer[C, CR, Q, QR, M]) SetCurrentTerm(term Term) {
	if err := p.storage.SetCurrentTerm(term); err != nil {
		panic(raerrors.WrapError(err, "direct-control SetCurrentTerm"))
	}
}

func (p *Peer[C, CR, Q, QR, M]) SetVotedFor(id PeerId, ok bool) {
	if err := p.storage.SetVotedFor(id, ok); err != nil {
		panic(raerrors.WrapError(err, "direct-control SetVotedFor"))
	}
}

func (p *Peer[C, CR, Q, QR, M]) SetLog(entries []LogEntry[C]) {
	p.storage.Log().SetEntries(entries)
}

func (p *Peer[C, CR, Q, QR, M]) SetSnapshot(snap Snapshot[M]) {
	if err := p.storage.InstallSnapshot(snap); err != nil {
		panic(raerrors.WrapError(err, "direct-control SetSnapshot"))
	}
}

func (p *Peer[C, CR, Q, QR, M]) SetCommitIndex(index LogIndex) { p.commitIndex = index }

func (p *Peer[C, CR, Q, QR, M]) SetLastApplied(index LogIndex) { p.lastApplied = index }

func (p *Peer[C, CR, Q, QR, M]) SetRole(role Role[C]) { p.role = role }

func (p *Peer[C, CR, Q, QR, M]) SetMachine(machine M) { p.machine = machine }

func (p *Peer[C, CR, Q, QR, M]) SetBufferedPeerTransmits(ts []PeerTransmit[C]) {
	p.bufferedPeerTransmits = append([]PeerTransmit[C]{}, ts...)
}

func (p *Peer[C, CR, Q, QR, M]) ClearBufferedPeerTransmits() {
	p.bufferedPeerTransmits = nil
}

func (p *Peer[C, CR, Q, QR, M]) SetBufferedClientTransmits(ts []ClientTransmit) {
	p.bufferedClientTransmits = append([]ClientTransmit{}, ts...)
}

func (p *Peer[C, CR, Q, QR, M]) ClearBufferedClientTransmits() {
	p.bufferedClientTransmits = nil
}
