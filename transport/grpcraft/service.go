package grpcraft

import (
	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"

	"github.com/sdesai/raft/transport/grpcraft/wire"
)

func init() {
	encoding.RegisterCodec(wire.Codec{})
}

// RaftStreamServer is the handler type ServiceDesc dispatches to; Server
// below implements it.
type RaftStreamServer interface {
	Stream(grpc.ServerStream) error
}

func streamHandler(srv interface{}, stream grpc.ServerStream) error {
	return srv.(RaftStreamServer).Stream(stream)
}

// ServiceDesc is the hand-written descriptor for the single bidirectional
// Envelope stream this package exposes. There is no .proto file behind it:
// wire.Codec stands in for protobuf generation, which has no way to
// describe the core's generically-typed messages (see wire package doc).
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: "raftgrpc.Raft",
	HandlerType: (*RaftStreamServer)(nil),
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Stream",
			Handler:       streamHandler,
			ServerStreams: true,
			ClientStreams: true,
		},
	},
	Metadata: "raftgrpc.proto",
}
