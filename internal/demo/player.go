package demo

import (
	"time"

	"github.com/annel0/netsim/internal/command"
	"github.com/annel0/netsim/internal/transport"
)

// PlaybackClient is the slice of network.Client's API playback drives.
// Declaring it here instead of importing internal/network keeps the
// capture/replay package free of a dependency back onto the network
// core, which itself depends on demo.Recorder.
type PlaybackClient interface {
	Connect(tr transport.Transport)
	SubmitLocalInput(in command.Input)
	Tick()
	Reset()
}

// playbackTransport feeds a Player's recorded frames to a Client on
// demand and discards everything the Client sends: playback has no peer
// to talk back to.
type playbackTransport struct {
	onMessage func(frame []byte)
}

func (p *playbackTransport) Send(frame []byte) error                { return nil }
func (p *playbackTransport) OnMessage(handler func(frame []byte))   { p.onMessage = handler }
func (p *playbackTransport) OnClose(handler func(err error))        {}
func (p *playbackTransport) OnPong(handler func(rtt time.Duration)) {}
func (p *playbackTransport) Ping() error                            { return nil }
func (p *playbackTransport) RTT() time.Duration                     { return 0 }
func (p *playbackTransport) RemoteAddr() string                     { return "demo" }
func (p *playbackTransport) Close() error                           { return nil }
func (p *playbackTransport) deliver(frame []byte) {
	if p.onMessage != nil {
		p.onMessage(frame)
	}
}

// Player replays a captured Document against a fresh Client, one frame
// at a time. Because it calls the same Client.Tick used live, the
// resulting predicted-snapshot stream is bit-identical to the original
// session's.
type Player struct {
	doc       *Document
	client    PlaybackClient
	transport *playbackTransport
	cursor    int

	playing bool
	stop    chan struct{}
}

// NewPlayer builds a Player bound to client, which must not yet be
// connected to any transport.
func NewPlayer(doc *Document, client PlaybackClient) *Player {
	pt := &playbackTransport{}
	client.Connect(pt)
	return &Player{doc: doc, client: client, transport: pt}
}

// First resets playback to before the first recorded tick. The client's
// session state is wiped along with the cursor: replaying a frame into a
// client that has already advanced past it would be silently ignored by
// the snapshot dispatch, so every rewind starts the simulation over.
func (p *Player) First() {
	p.client.Reset()
	p.cursor = 0
}

// Next advances one recorded tick: injects its captured inbound frames,
// then runs exactly one client tick.
func (p *Player) Next() bool {
	if p.cursor >= len(p.doc.Ticks) {
		return false
	}
	frame := p.doc.Ticks[p.cursor]
	for _, msg := range frame.ReadCapture {
		p.transport.deliver(msg)
	}
	p.client.SubmitLocalInput(frame.InputCapture)
	p.client.Tick()
	p.cursor++
	return true
}

// Previous rewinds one tick by replaying from the start up to just
// before the current index; the simulation has no inverse step.
func (p *Player) Previous() {
	if p.cursor == 0 {
		return
	}
	target := p.cursor - 1
	p.First()
	for p.cursor < target {
		if !p.Next() {
			break
		}
	}
}

// End fast-forwards to the last recorded tick.
func (p *Player) End() {
	for p.Next() {
	}
}

// Play steps through every remaining tick, one every periodMs
// milliseconds, stopping early if Pause is called.
func (p *Player) Play(periodMs float64) {
	p.playing = true
	p.stop = make(chan struct{})
	interval := time.Duration(periodMs * float64(time.Millisecond))

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-p.stop:
				return
			case <-ticker.C:
				if !p.Next() {
					return
				}
			}
		}
	}()
}

// Pause halts an in-progress Play.
func (p *Player) Pause() {
	if p.playing {
		close(p.stop)
		p.playing = false
	}
}
