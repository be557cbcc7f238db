package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONCodec_DecodeClientWireFormat(t *testing.T) {
	codec := NewJSONCodec()

	tests := []struct {
		name     string
		frame    string
		expected ClientMessage
	}{
		{
			name:     "connect",
			frame:    `{"type":"Connect","data":{"name":"alice"}}`,
			expected: Connect{Name: "alice"},
		},
		{
			name:     "get players without data",
			frame:    `{"type":"GetPlayers"}`,
			expected: GetPlayers{},
		},
		{
			name:     "get players with empty data",
			frame:    `{"type":"GetPlayers","data":{}}`,
			expected: GetPlayers{},
		},
		{
			name:     "change name",
			frame:    `{"type":"ChangeName","data":{"name":"bob"}}`,
			expected: ChangeName{Name: "bob"},
		},
		{
			name:     "challenge",
			frame:    `{"type":"ChallengePlayer","data":{"name":"bob"}}`,
			expected: ChallengePlayer{Name: "bob"},
		},
		{
			name:     "accept",
			frame:    `{"type":"AcceptChallenge","data":{"request_id":"r-1"}}`,
			expected: AcceptChallenge{RequestID: "r-1"},
		},
		{
			name:     "deny",
			frame:    `{"type":"DenyChallenge","data":{"request_id":"r-1"}}`,
			expected: DenyChallenge{RequestID: "r-1"},
		},
		{
			name:     "report state",
			frame:    `{"type":"ReportState","data":{"kills":3}}`,
			expected: ReportState{Kills: 3},
		},
		{
			name:     "disconnect with null data",
			frame:    `{"type":"Disconnect","data":null}`,
			expected: Disconnect{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := codec.DecodeClient([]byte(tt.frame))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, msg)
		})
	}
}

func TestJSONCodec_DecodeClientRejectsInvalidFrames(t *testing.T) {
	codec := NewJSONCodec()

	tests := []struct {
		name  string
		frame string
	}{
		{"empty frame", ``},
		{"not json", `hello`},
		{"json array", `[1,2,3]`},
		{"missing type", `{"data":{"name":"alice"}}`},
		{"unknown type", `{"type":"Teleport","data":{}}`},
		{"server type sent by client", `{"type":"Welcome","data":{"id":"x"}}`},
		{"missing payload", `{"type":"Connect"}`},
		{"null payload", `{"type":"ChangeName","data":null}`},
		{"wrong field type", `{"type":"Connect","data":{"name":42}}`},
		{"unknown field", `{"type":"Connect","data":{"name":"a","admin":true}}`},
		{"unknown envelope field", `{"type":"GetPlayers","extra":1}`},
		{"missing request id", `{"type":"AcceptChallenge","data":{}}`},
		{"negative kills", `{"type":"ReportState","data":{"kills":-1}}`},
		{"trailing garbage", `{"type":"GetPlayers"} {"type":"GetPlayers"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := codec.DecodeClient([]byte(tt.frame))
			require.Error(t, err)
			assert.Nil(t, msg, "no partial message may be returned")
			assert.True(t, IsDecodeError(err), "expected DecodeError, got %T", err)
		})
	}
}

func TestJSONCodec_EncodeServerWireFormat(t *testing.T) {
	codec := NewJSONCodec()

	tests := []struct {
		name     string
		msg      ServerMessage
		expected string
	}{
		{
			name:     "welcome",
			msg:      Welcome{ID: "p-1"},
			expected: `{"type":"Welcome","data":{"id":"p-1"}}`,
		},
		{
			name:     "invalid message has no data",
			msg:      InvalidMessage{},
			expected: `{"type":"InvalidMessage"}`,
		},
		{
			name:     "player changed name",
			msg:      PlayerChangedName{ID: "p-1", NewName: "bob"},
			expected: `{"type":"PlayerChangedName","data":{"id":"p-1","new_name":"bob"}}`,
		},
		{
			name:     "challenge received",
			msg:      ChallengeReceived{RequestID: "r-1", Name: "alice"},
			expected: `{"type":"ChallengeReceived","data":{"request_id":"r-1","name":"alice"}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := codec.EncodeServer(tt.msg)
			require.NoError(t, err)
			assert.JSONEq(t, tt.expected, string(data))
		})
	}
}

// Every variant of both sets must survive an encode/decode cycle
func TestJSONCodec_AllVariantsRoundTrip(t *testing.T) {
	codec := NewJSONCodec()

	clientMessages := []ClientMessage{
		Connect{Name: "alice"},
		GetPlayers{},
		ChangeName{Name: "Ålice"},
		ChallengePlayer{Name: "bob"},
		AcceptChallenge{RequestID: "r-1"},
		DenyChallenge{RequestID: "r-2"},
		ReportState{Kills: 7},
		Disconnect{},
	}
	for _, msg := range clientMessages {
		data, err := codec.EncodeClient(msg)
		require.NoError(t, err, msg.Type())
		decoded, err := codec.DecodeClient(data)
		require.NoError(t, err, msg.Type())
		assert.Equal(t, msg, decoded)
	}

	serverMessages := []ServerMessage{
		Welcome{ID: "p-1"},
		InvalidMessage{},
		PlayerJoined{ID: "p-1", Name: "alice"},
		GoodBye{ID: "p-1"},
		PlayerChangedName{ID: "p-1", NewName: "bob"},
		NameNotAvailable{},
		ChallengeReceived{RequestID: "r-1", Name: "alice"},
		ChallengeDenied{RequestID: "r-1"},
		ChallengeAccepted{RequestID: "r-1"},
		RequestReceived{RequestID: "r-1"},
	}
	for _, msg := range serverMessages {
		data, err := codec.EncodeServer(msg)
		require.NoError(t, err, msg.Type())
		decoded, err := codec.DecodeServer(data)
		require.NoError(t, err, msg.Type())
		assert.Equal(t, msg, decoded)
	}
}

func TestJSONCodec_EncodeNil(t *testing.T) {
	codec := NewJSONCodec()

	_, err := codec.EncodeServer(nil)
	assert.ErrorIs(t, err, ErrNilMessage)

	_, err = codec.EncodeClient(nil)
	assert.ErrorIs(t, err, ErrNilMessage)
}

func TestDecodeError_Message(t *testing.T) {
	codec := NewJSONCodec()

	_, err := codec.DecodeClient([]byte(`{"type":"AcceptChallenge","data":{}}`))
	require.Error(t, err)
	assert.Equal(t, "invalid message AcceptChallenge: invalid data: request_id is required", err.Error())
}
