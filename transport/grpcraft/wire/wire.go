// Package wire defines the envelope carried over the grpcraft bidirectional
// stream and the JSON codec that replaces protobuf wire-encoding for it.
//
// The core's peer/client messages are generic over the host's Command,
// CommandResult, Query, and QueryResult types, so there is no fixed
// protobuf schema a .pb.go could be generated from (protoc has no notion of
// a Go type parameter). Rather than fabricate a schema, this package
// carries a small envelope — sender, request id, a message-kind tag, and a
// JSON payload — and supplies Codec, a grpc encoding.Codec, so gRPC's own
// framing, flow control, and stream multiplexing still do real work; only
// the per-message encoding is JSON instead of protobuf.
package wire

import "encoding/json"

// Kind tags which concrete message type Payload holds.
type Kind string

const (
	KindRequestVoteRequest   Kind = "request_vote_request"
	KindRequestVoteReply     Kind = "request_vote_reply"
	KindAppendEntriesRequest Kind = "append_entries_request"
	KindAppendEntriesReply   Kind = "append_entries_reply"
	KindCommandRequest       Kind = "command_request"
	KindCommandReply         Kind = "command_reply"
	KindQueryRequest         Kind = "query_request"
	KindQueryReply           Kind = "query_reply"
)

// Envelope is the single message type that crosses the wire in both
// directions of the Stream RPC.
type Envelope struct {
	SessionID string          `json:"session_id"`
	Sender    uint64          `json:"sender"`
	RequestID uint64          `json:"request_id"`
	Kind      Kind            `json:"kind"`
	Payload   json.RawMessage `json:"payload"`
}

// Name is registered with grpc's encoding package and used as the stream's
// content-subtype.
const Name = "raftjson"

// Codec implements google.golang.org/grpc/encoding.Codec by delegating to
// encoding/json; it is what lets grpc.Server/grpc.ClientConn move Envelope
// values without a protobuf-generated marshaler.
type Codec struct{}

func (Codec) Marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func (Codec) Unmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

func (Codec) Name() string { return Name }
