package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/netsim/internal/command"
	"github.com/annel0/netsim/internal/simulation"
)

func TestClientMessageRoundTrip(t *testing.T) {
	cases := []ClientMessage{
		ClientHello{Name: "alice"},
		ClientInput{Clock: 42, Input: command.Input{Pressed: 3, PitchDeg: 1.5}},
	}
	for _, msg := range cases {
		frame, err := EncodeClientMessage(msg)
		require.NoError(t, err)
		decoded, err := DecodeClientMessage(frame)
		require.NoError(t, err)
		assert.Equal(t, msg, decoded)
	}
}

func TestServerMessageRoundTrip(t *testing.T) {
	health := int64(-2)
	cases := []ServerMessage{
		ServerHello{ClientID: 7},
		ServerPing{RTT: 33.5},
		ServerSnapshot{
			Snapshot: WireSnapshot{Clock: 5, Players: map[uint64]uint64{1: 1}, Entities: map[uint64]WireEntity{}},
			Commands: nil,
			Health:   &health,
		},
	}
	for _, msg := range cases {
		frame, err := EncodeServerMessage(msg)
		require.NoError(t, err)
		decoded, err := DecodeServerMessage(frame)
		require.NoError(t, err)

		switch want := msg.(type) {
		case ServerSnapshot:
			got, ok := decoded.(ServerSnapshot)
			require.True(t, ok, "expected ServerSnapshot, got %T", decoded)
			assert.Equal(t, want.Snapshot.Clock, got.Snapshot.Clock)
			assert.Equal(t, *want.Health, *got.Health)
		default:
			assert.Equal(t, msg, decoded)
		}
	}
}

func TestDecodeClientMessage_UnknownTag(t *testing.T) {
	_, err := DecodeClientMessage([]byte(`{"type":"bogus","payload":{}}`))
	assert.ErrorIs(t, err, ErrUnknownTag)
}

func TestDecodeClientMessage_MissingField(t *testing.T) {
	_, err := DecodeClientMessage([]byte(`{"type":"hello","payload":{"name":""}}`))
	assert.ErrorIs(t, err, ErrMissingField)
}

func TestDecodeClientMessage_InputMissingField(t *testing.T) {
	_, err := DecodeClientMessage([]byte(`{"type":"input","payload":{"clock":1}}`))
	assert.ErrorIs(t, err, ErrMissingField)
}

func TestDecodeServerMessage_MissingField(t *testing.T) {
	cases := []string{
		`{"type":"hello","payload":{}}`,
		`{"type":"ping","payload":{}}`,
		`{"type":"snapshot","payload":{}}`,
	}
	for _, data := range cases {
		_, err := DecodeServerMessage([]byte(data))
		assert.ErrorIs(t, err, ErrMissingField, "expected missing-field error for %s", data)
	}
}

func TestDecodeServerMessage_ZeroValueFieldsAccepted(t *testing.T) {
	// client_id/rtt of exactly 0 are legitimate once present, unlike an
	// absent key.
	_, err := DecodeServerMessage([]byte(`{"type":"hello","payload":{"client_id":0}}`))
	assert.NoError(t, err)

	_, err = DecodeServerMessage([]byte(`{"type":"ping","payload":{"rtt":0}}`))
	assert.NoError(t, err)
}

func TestSnapshotRoundTrip(t *testing.T) {
	s := simulation.NewSnapshot()
	s.Clock = 9
	s.Players[1] = 0
	s.Entities[0] = &simulation.Entity{
		ID:       0,
		Config:   &simulation.DefaultPlayerConfig,
		Position: [3]float64{1, 2, 3},
		Velocity: [3]float64{0, 0, 0},
		PitchDeg: 10,
		YawDeg:   20,
		Grounded: true,
	}

	wire := ToWireSnapshot(s)
	back := FromWireSnapshot(wire)

	assert.True(t, s.Equal(back), "expected deserialize(serialize(s)) == s")
}

func TestCommandRoundTrip(t *testing.T) {
	cmds := []command.Command{
		command.NewInputCommand(1, 5, command.Input{Pressed: 2}),
		command.NewPlayerAddCommand(2),
		command.NewPlayerRemoveCommand(3),
	}
	wire := ToWireCommands(cmds)
	back := FromWireCommands(wire)

	require.Len(t, back, len(cmds))
	for i, cmd := range cmds {
		assert.Equal(t, cmd, back[i])
	}
}
