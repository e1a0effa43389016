package wire_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sdesai/raft/transport/grpcraft/wire"
)

func TestCodecRoundTripsEnvelope(t *testing.T) {
	codec := wire.Codec{}
	original := wire.Envelope{
		SessionID: "session-1",
		Sender:    7,
		RequestID: 42,
		Kind:      wire.KindAppendEntriesRequest,
		Payload:   json.RawMessage(`{"term":3}`),
	}

	encoded, err := codec.Marshal(original)
	require.NoError(t, err)

	var decoded wire.Envelope
	require.NoError(t, codec.Unmarshal(encoded, &decoded))
	require.Equal(t, original, decoded)
}

func TestCodecNameMatchesRegisteredSubtype(t *testing.T) {
	require.Equal(t, "raftjson", wire.Name)
	require.Equal(t, wire.Name, wire.Codec{}.Name())
}
