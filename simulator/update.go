package simulator

import "github.com/sdesai/raft"

// updateTarget is the subset of Peer's direct-control setters an Update can
// drive. None of these methods' signatures depend on Peer's CR/QR type
// parameters, so a Peer[C, CR, Q, QR, M] satisfies this interface for any
// CR, QR — exactly the shape Update needs to stay generic over only C and M.
type updateTarget[C any, M any] interface {
	SetCurrentTerm(raft.Term)
	SetVotedFor(raft.PeerId, bool)
	SetLog([]raft.LogEntry[C])
	SetSnapshot(raft.Snapshot[M])
	SetCommitIndex(raft.LogIndex)
	SetLastApplied(raft.LogIndex)
	SetRole(raft.Role[C])
	SetMachine(M)
	SetBufferedPeerTransmits([]raft.PeerTransmit[C])
	ClearBufferedPeerTransmits()
	SetBufferedClientTransmits([]raft.ClientTransmit)
	ClearBufferedClientTransmits()
}

// Update is an additive builder of named mutations targeting one replay
// peer (§4.9). Chained calls append to a change list applied in listed
// order: a ClearBufferedPeerTransmits() followed by
// SetBufferedPeerTransmits(xs) results in xs, because clearing runs first.
type Update[C any, M any] struct {
	peer    raft.PeerId
	changes []func(updateTarget[C, M])
}

// NewUpdate begins a change list targeting peer.
func NewUpdate[C any, M any](peer raft.PeerId) Update[C, M] {
	return Update[C, M]{peer: peer}
}

// Peer returns the peer id this Update targets.
func (u Update[C, M]) Peer() raft.PeerId { return u.peer }

func (u Update[C, M]) append(change func(updateTarget[C, M])) Update[C, M] {
	u.changes = append(append([]func(updateTarget[C, M]){}, u.changes...), change)
	return u
}

func (u Update[C, M]) SetTerm(term raft.Term) Update[C, M] {
	return u.append(func(t updateTarget[C, M]) { t.SetCurrentTerm(term) })
}

func (u Update[C, M]) SetVotedFor(id raft.PeerId, ok bool) Update[C, M] {
	return u.append(func(t updateTarget[C, M]) { t.SetVotedFor(id, ok) })
}

func (u Update[C, M]) SetLog(entries []raft.LogEntry[C]) Update[C, M] {
	return u.append(func(t updateTarget[C, M]) { t.SetLog(entries) })
}

func (u Update[C, M]) SetSnapshot(snap raft.Snapshot[M]) Update[C, M] {
	return u.append(func(t updateTarget[C, M]) { t.SetSnapshot(snap) })
}

func (u Update[C, M]) SetCommitIndex(index raft.LogIndex) Update[C, M] {
	return u.append(func(t updateTarget[C, M]) { t.SetCommitIndex(index) })
}

func (u Update[C, M]) SetLastApplied(index raft.LogIndex) Update[C, M] {
	return u.append(func(t updateTarget[C, M]) { t.SetLastApplied(index) })
}

func (u Update[C, M]) SetRole(role raft.Role[C]) Update[C, M] {
	return u.append(func(t updateTarget[C, M]) { t.SetRole(role) })
}

func (u Update[C, M]) SetMachine(machine M) Update[C, M] {
	return u.append(func(t updateTarget[C, M]) { t.SetMachine(machine) })
}

func (u Update[C, M]) SetBufferedPeerTransmits(ts []raft.PeerTransmit[C]) Update[C, M] {
	return u.append(func(t updateTarget[C, M]) { t.SetBufferedPeerTransmits(ts) })
}

func (u Update[C, M]) ClearBufferedPeerTransmits() Update[C, M] {
	return u.append(func(t updateTarget[C, M]) { t.ClearBufferedPeerTransmits() })
}

func (u Update[C, M]) SetBufferedClientTransmits(ts []raft.ClientTransmit) Update[C, M] {
	return u.append(func(t updateTarget[C, M]) { t.SetBufferedClientTransmits(ts) })
}

func (u Update[C, M]) ClearBufferedClientTransmits() Update[C, M] {
	return u.append(func(t updateTarget[C, M]) { t.ClearBufferedClientTransmits() })
}

// Apply runs every accumulated change against target, in listed order.
func (u Update[C, M]) Apply(target updateTarget[C, M]) {
	for _, change := range u.changes {
		change(target)
	}
}
