// Package protocol implements the wire codec between client and server:
// a self-describing, textual (JSON) encoding with one byte-exact
// contract per direction, chosen so that demos captured today stay
// replayable once later versions add optional fields.
package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/annel0/netsim/internal/command"
)

// ClientMessage is implemented by every client -> server message
// variant. ClientHello is protocol-only and never reaches the tick
// function; ClientInput becomes an input command once demultiplexed.
type ClientMessage interface {
	clientTag() string
}

// ClientHello is sent once, right after the transport opens.
type ClientHello struct {
	Name string `json:"name"`
}

func (ClientHello) clientTag() string { return "hello" }

// ClientInput carries one tick's frozen input sample.
type ClientInput struct {
	Clock uint64        `json:"clock"`
	Input command.Input `json:"input"`
}

func (ClientInput) clientTag() string { return "input" }

// ServerMessage is implemented by every server -> client message variant.
type ServerMessage interface {
	serverTag() string
}

// ServerHello replies to ClientHello with the assigned client identifier.
type ServerHello struct {
	ClientID uint64 `json:"client_id"`
}

func (ServerHello) serverTag() string { return "hello" }

// ServerPing reports the most recently measured round-trip time, in
// milliseconds.
type ServerPing struct {
	RTT float64 `json:"rtt"`
}

func (ServerPing) serverTag() string { return "ping" }

// ServerSnapshot is the per-tick broadcast: the authoritative snapshot,
// the command list that produced it, and the health reading for the
// receiving client. Health is optional on the wire and decodes to nil
// when absent; Server.broadcast always fills it, sending 0 for a client
// whose health has not been computed yet.
type ServerSnapshot struct {
	Snapshot WireSnapshot  `json:"snapshot"`
	Commands []WireCommand `json:"commands"`
	Health   *int64        `json:"health,omitempty"`
}

func (ServerSnapshot) serverTag() string { return "snapshot" }

type typeEnvelope struct {
	Type string `json:"type"`
}

// EncodeClientMessage serializes a client message into its byte-exact
// wire form.
func EncodeClientMessage(msg ClientMessage) ([]byte, error) {
	return marshalTagged(msg.clientTag(), msg)
}

// DecodeClientMessage parses a client message, dispatching on its "type"
// tag. An unrecognized tag or a missing required field is a parse error;
// the caller is expected to disconnect the offending peer, not abort the
// tick loop.
func DecodeClientMessage(data []byte) (ClientMessage, error) {
	var env typeEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	switch env.Type {
	case "hello":
		var payload struct {
			Payload ClientHello `json:"payload"`
		}
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		if payload.Payload.Name == "" {
			return nil, fmt.Errorf("%w: hello.name", ErrMissingField)
		}
		return payload.Payload, nil

	case "input":
		raw, err := payloadOf(data)
		if err != nil {
			return nil, err
		}
		if err := requireFields(raw, "clock", "input"); err != nil {
			return nil, err
		}
		var msg ClientInput
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return msg, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTag, env.Type)
	}
}

// EncodeServerMessage serializes a server message into its byte-exact
// wire form.
func EncodeServerMessage(msg ServerMessage) ([]byte, error) {
	return marshalTagged(msg.serverTag(), msg)
}

// DecodeServerMessage parses a server message, dispatching on its "type"
// tag.
func DecodeServerMessage(data []byte) (ServerMessage, error) {
	var env typeEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	switch env.Type {
	case "hello":
		raw, err := payloadOf(data)
		if err != nil {
			return nil, err
		}
		if err := requireFields(raw, "client_id"); err != nil {
			return nil, err
		}
		var msg ServerHello
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return msg, nil

	case "ping":
		raw, err := payloadOf(data)
		if err != nil {
			return nil, err
		}
		if err := requireFields(raw, "rtt"); err != nil {
			return nil, err
		}
		var msg ServerPing
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return msg, nil

	case "snapshot":
		raw, err := payloadOf(data)
		if err != nil {
			return nil, err
		}
		if err := requireFields(raw, "snapshot"); err != nil {
			return nil, err
		}
		var msg ServerSnapshot
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return msg, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTag, env.Type)
	}
}

// payloadOf extracts the raw "payload" object from an encoded envelope
// without committing to its shape, so callers can check required fields
// before decoding into the typed message.
func payloadOf(data []byte) (json.RawMessage, error) {
	var env struct {
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return env.Payload, nil
}

// requireFields rejects a payload missing any of the named keys outright,
// rather than letting them silently decode to the zero value. Presence,
// not zero-value, is the test: a legitimately-zero client_id or rtt must
// still decode.
func requireFields(payload json.RawMessage, fields ...string) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(payload, &raw); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	for _, field := range fields {
		if _, ok := raw[field]; !ok {
			return fmt.Errorf("%w: %s", ErrMissingField, field)
		}
	}
	return nil
}

func marshalTagged(tag string, payload interface{}) ([]byte, error) {
	env := struct {
		Type    string      `json:"type"`
		Payload interface{} `json:"payload"`
	}{Type: tag, Payload: payload}
	return json.Marshal(env)
}
