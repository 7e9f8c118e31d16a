// Package demo implements capture and playback of a client session: the
// same tick function that ran live replays identically from a textual
// record of every inbound message and every local input.
package demo

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"

	"github.com/annel0/netsim/internal/command"
)

// Frame is one recorded tick: the messages the client received that tick
// (still wire-encoded, so replay exercises the same codec path as the
// live session) and the frozen local input submitted that tick.
type Frame struct {
	Clock        uint64          `json:"clock"`
	ReadCapture  [][]byte        `json:"read_capture"`
	InputCapture command.Input   `json:"input_capture"`
}

// Document is the on-disk shape of a demo: `{ticks: [...]}` plus a
// session identifier.
type Document struct {
	SessionID string  `json:"session_id"`
	Ticks     []Frame `json:"ticks"`
}

// Recorder accumulates Frames as a live client ticks.
type Recorder struct {
	sessionID string
	frames    []Frame
}

// NewRecorder starts a fresh capture, tagged with a random session
// identifier so multiple demo files from the same run never collide.
func NewRecorder() *Recorder {
	return &Recorder{sessionID: uuid.NewString()}
}

// Append records one tick's inbound frames and frozen input.
func (r *Recorder) Append(clock uint64, readCapture [][]byte, input command.Input) {
	r.frames = append(r.frames, Frame{Clock: clock, ReadCapture: readCapture, InputCapture: input})
}

// Save writes the capture to path as zstd-compressed JSON. The wire
// frames inside are kept byte-for-byte (encoding/json writes each one as
// a base64 string); only the file as a whole is compressed, so replay
// still exercises the exact bytes the live codec produced.
func (r *Recorder) Save(path string) error {
	doc := Document{SessionID: r.sessionID, Ticks: r.frames}
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("demo: marshal: %w", err)
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return fmt.Errorf("demo: new encoder: %w", err)
	}
	defer enc.Close()
	compressed := enc.EncodeAll(raw, nil)

	if err := os.WriteFile(path, compressed, 0o644); err != nil {
		return fmt.Errorf("demo: write %q: %w", path, err)
	}
	return nil
}

// Load reads a demo file written by Save.
func Load(path string) (*Document, error) {
	compressed, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("demo: read %q: %w", path, err)
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("demo: new decoder: %w", err)
	}
	defer dec.Close()
	raw, err := dec.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("demo: decompress %q: %w", path, err)
	}

	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("demo: unmarshal %q: %w", path, err)
	}
	return &doc, nil
}
