package protocol

import "errors"

// ErrUnknownTag is returned when a message's "type" field does not match
// any known variant.
var ErrUnknownTag = errors.New("protocol: unknown message tag")

// ErrMissingField is returned when a required field is absent from an
// otherwise well-formed message.
var ErrMissingField = errors.New("protocol: missing required field")

// ErrMalformed wraps a lower-level JSON decode failure.
var ErrMalformed = errors.New("protocol: malformed message")
