package raft

// PeerMessage is the marker interface implemented by every peer-to-peer
// message variant (§4.3), distinguishing requests from replies for the
// purposes of transmit-bus delivery matching (§4.8.2).
type PeerMessage interface {
	IsRequest() bool
	IsReply() bool
}

// ClientMessage is the marker interface implemented by every client-to-peer
// message variant (§4.3).
type ClientMessage interface {
	IsRequest() bool
	IsReply() bool
}

// VoteResult enumerates the outcome of a RequestVote RPC.
type VoteResult int

const (
	VoteGranted VoteResult = iota
	VoteNotGrantedDueToBeingInHigherTerm
	VoteNotGrantedDueToBeingLessUpToDate
	VoteNotGrantedDueToBeingGrantedToAnotherPeer
	VoteNotGrantedDueToStorageError
)

func (v VoteResult) String() string {
	switch v {
	case VoteGranted:
		return "Granted"
	case VoteNotGrantedDueToBeingInHigherTerm:
		return "NotGrantedDueToBeingInHigherTerm"
	case VoteNotGrantedDueToBeingLessUpToDate:
		return "NotGrantedDueToBeingLessUpToDate"
	case VoteNotGrantedDueToBeingGrantedToAnotherPeer:
		return "NotGrantedDueToBeingGrantedToAnotherPeer"
	case VoteNotGrantedDueToStorageError:
		return "NotGrantedDueToStorageError"
	default:
		return "Unknown"
	}
}

// RequestVoteRequest is sent by a Candidate to every other peer (§4.4.1).
type RequestVoteRequest struct {
	Term         Term
	CandidateId  PeerId
	LastLogIndex LogIndex
	LastLogTerm  Term
}

func (RequestVoteRequest) IsRequest() bool { return true }
func (RequestVoteRequest) IsReply() bool   { return false }

// RequestVoteReply answers a RequestVoteRequest (§4.4.2).
type RequestVoteReply struct {
	Term Term
	Vote VoteResult
}

func (RequestVoteReply) IsRequest() bool { return false }
func (RequestVoteReply) IsReply() bool   { return true }

// AppendEntriesRequest is sent by a Leader to replicate log entries or, with
// Entries empty, as a heartbeat (§4.4.4, §4.4.7).
type AppendEntriesRequest[C any] struct {
	Term         Term
	LeaderId     PeerId
	PrevLogIndex LogIndex
	PrevLogTerm  Term
	Entries      []LogEntry[C]
	LeaderCommit LogIndex
}

func (AppendEntriesRequest[C]) IsRequest() bool { return true }
func (AppendEntriesRequest[C]) IsReply() bool   { return false }

// AppendEntriesReply answers an AppendEntriesRequest (§4.4.5).
type AppendEntriesReply struct {
	Term    Term
	Success bool
}

func (AppendEntriesReply) IsRequest() bool { return false }
func (AppendEntriesReply) IsReply() bool   { return true }

// CommandRequest is sent by a Client to submit a command for replication
// (§4.4.9).
type CommandRequest[C any] struct {
	Command C
}

func (CommandRequest[C]) IsRequest() bool { return true }
func (CommandRequest[C]) IsReply() bool   { return false }

// CommandReply answers a CommandRequest. Exactly one of Result/Err is
// meaningful, selected by Err == nil, mirroring the source's
// Result<CommandResult, ClientError>.
type CommandReply[CR any] struct {
	Result CR
	Err    error
}

func (CommandReply[CR]) IsRequest() bool { return false }
func (CommandReply[CR]) IsReply() bool   { return true }

// QueryRequest is sent by a Client to submit a read-only query (§4.4.10).
type QueryRequest[Q any] struct {
	Query Q
}

func (QueryRequest[Q]) IsRequest() bool { return true }
func (QueryRequest[Q]) IsReply() bool   { return false }

// QueryReply answers a QueryRequest. Exactly one of Result/Err is
// meaningful, selected by Err == nil.
type QueryReply[QR any] struct {
	Result QR
	Err    error
}

func (QueryReply[QR]) IsRequest() bool { return false }
func (QueryReply[QR]) IsReply() bool   { return true }
