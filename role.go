package raft

// RoleKind tags which of the three Raft roles a Peer currently occupies.
type RoleKind int

const (
	RoleFollower RoleKind = iota
	RoleCandidate
	RoleLeader
)

func (k RoleKind) String() string {
	switch k {
	case RoleFollower:
		return "Follower"
	case RoleCandidate:
		return "Candidate"
	case RoleLeader:
		return "Leader"
	default:
		return "Unknown"
	}
}

// FollowerState is the per-role data carried while a Peer is a Follower.
type FollowerState struct {
	// LeaderId is the peer this follower currently believes is leader, if
	// any has contacted it since the last term change.
	LeaderId *PeerId
}

// CandidateState is the per-role data carried while a Peer is a Candidate.
type CandidateState struct {
	VotesGranted int
	// VoteRequestIds holds the request-ids of RequestVote RPCs still
	// outstanding; it shrinks as replies arrive or the candidacy ends.
	VoteRequestIds map[RequestId]struct{}
}

// LeaderState is the per-role data carried while a Peer is a Leader.
type LeaderState[C any] struct {
	NextIndex  map[PeerId]LogIndex
	MatchIndex map[PeerId]LogIndex
	// AppendEntriesRequests records the outstanding AppendEntries this
	// leader has sent, keyed by the request-id it was sent with, so that a
	// reply can be matched back to what was asked (§9 Request correlation).
	AppendEntriesRequests map[RequestId]AppendEntriesRequest[C]
}

// Role is a tagged union over the three Raft roles. Exactly one of the
// embedded states is meaningful at a time, selected by Kind; the others hold
// their zero value. This mirrors the source's enum in a language without
// sum types: Go code must switch on Kind before touching the payload.
type Role[C any] struct {
	Kind      RoleKind
	Follower  FollowerState
	Candidate CandidateState
	Leader    LeaderState[C]
}

// NewFollowerRole builds a Role in the Follower state with the given known
// leader (nil if unknown).
func NewFollowerRole[C any](leaderId *PeerId) Role[C] {
	return Role[C]{Kind: RoleFollower, Follower: FollowerState{LeaderId: leaderId}}
}

// NewCandidateRole builds a Role in the Candidate state, having already
// voted for itself.
func NewCandidateRole[C any](voteRequestIds map[RequestId]struct{}) Role[C] {
	return Role[C]{
		Kind: RoleCandidate,
		Candidate: CandidateState{
			VotesGranted:   1,
			VoteRequestIds: voteRequestIds,
		},
	}
}

// NewLeaderRole builds a Role in the Leader state.
func NewLeaderRole[C any](nextIndex, matchIndex map[PeerId]LogIndex, requests map[RequestId]AppendEntriesRequest[C]) Role[C] {
	return Role[C]{
		Kind: RoleLeader,
		Leader: LeaderState[C]{
			NextIndex:             nextIndex,
			MatchIndex:            matchIndex,
			AppendEntriesRequests: requests,
		},
	}
}
