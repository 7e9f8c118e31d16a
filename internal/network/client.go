package network

import (
	"math"
	"sync"

	"github.com/annel0/netsim/internal/command"
	"github.com/annel0/netsim/internal/demo"
	"github.com/annel0/netsim/internal/logging"
	"github.com/annel0/netsim/internal/pid"
	"github.com/annel0/netsim/internal/protocol"
	"github.com/annel0/netsim/internal/simulation"
	"github.com/annel0/netsim/internal/timer"
	"github.com/annel0/netsim/internal/transport"
)

// Client is the predictive simulation core (component H).
type Client struct {
	name     string
	level    *simulation.Level
	periodMs float64
	logger   *logging.Logger
	clock    timer.Clock
	pid      *pid.Controller

	mu sync.Mutex

	tr transport.Transport

	clientID   uint64
	haveID     bool
	rtt        float64
	haveRTT    bool
	health     *int64
	authSnap   *simulation.Snapshot
	authCmds   []command.Command
	haveAuth   bool

	liveInput    command.Input
	localBuffer  map[uint64]command.Input // predicted clock -> input submitted at that tick
	predicted    *simulation.Snapshot
	predictedSet bool

	timer    *timer.Timer
	recorder *demo.Recorder
	inbox    [][]byte
}

// ClientConfig bundles Client construction parameters.
type ClientConfig struct {
	Name     string
	Level    *simulation.Level
	PeriodMs float64
	Logger   *logging.Logger
	Clock    timer.Clock
	PID      *pid.Controller
}

// NewClient builds a Client with an empty local state.
func NewClient(cfg ClientConfig) *Client {
	return &Client{
		name:        cfg.Name,
		level:       cfg.Level,
		periodMs:    cfg.PeriodMs,
		logger:      cfg.Logger,
		clock:       cfg.Clock,
		pid:         cfg.PID,
		localBuffer: make(map[uint64]command.Input),
	}
}

// SetRecorder attaches a demo recorder; every subsequent tick appends a
// frame to it.
func (c *Client) SetRecorder(r *demo.Recorder) {
	c.mu.Lock()
	c.recorder = r
	c.mu.Unlock()
}

// Connect binds the transport and sends Hello.
func (c *Client) Connect(tr transport.Transport) {
	c.mu.Lock()
	c.tr = tr
	c.mu.Unlock()

	tr.OnMessage(func(frame []byte) {
		c.mu.Lock()
		c.inbox = append(c.inbox, frame)
		c.mu.Unlock()
	})

	frame, err := protocol.EncodeClientMessage(protocol.ClientHello{Name: c.name})
	if err == nil {
		_ = tr.Send(frame)
	}
}

// SubmitLocalInput accumulates a fresh input sample into the live
// accumulator. Button presses/releases are edge-triggered; pitch/yaw
// deltas accumulate until a tick consumes them.
func (c *Client) SubmitLocalInput(in command.Input) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.liveInput.Pressed |= in.Pressed
	c.liveInput.Released |= in.Released
	c.liveInput.SetAxis(in.PitchDeg, in.YawDeg)
}

// Reset wipes all session state accumulated since Connect: identifier,
// RTT, authoritative and predicted snapshots, buffered inputs, and the
// PID's accumulated error terms. The transport binding and construction
// parameters survive. Demo playback rewinds by resetting and replaying
// from the first recorded tick.
func (c *Client) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.clientID = 0
	c.haveID = false
	c.rtt = 0
	c.haveRTT = false
	c.health = nil
	c.authSnap = nil
	c.authCmds = nil
	c.haveAuth = false
	c.liveInput.Clear()
	c.localBuffer = make(map[uint64]command.Input)
	c.predicted = nil
	c.predictedSet = false
	c.inbox = nil
	c.pid.Reset()
}

// Snapshot returns the most recent predicted snapshot for the renderer.
func (c *Client) Snapshot() *simulation.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.predicted
}

// Run starts the Timer that drives Tick.
func (c *Client) Run() {
	c.timer = timer.New(c.periodMs, c.Tick, c.clock)
	c.timer.Start()
}

// Halt stops the Timer.
func (c *Client) Halt() {
	if c.timer != nil {
		c.timer.Stop()
	}
}

// Tick executes one client step: freeze the live input, drain and
// dispatch inbound messages, re-simulate forward from the authoritative
// snapshot, re-pace the timer, and send this tick's input.
func (c *Client) Tick() {
	c.mu.Lock()
	tr := c.tr
	if tr == nil {
		c.mu.Unlock()
		return
	}

	frozen := c.liveInput.Clone()
	c.liveInput.Clear()

	inbox := c.inbox
	c.inbox = nil
	c.mu.Unlock()

	var capturedFrames [][]byte
	for _, frame := range inbox {
		capturedFrames = append(capturedFrames, frame)
		msg, err := protocol.DecodeServerMessage(frame)
		if err != nil {
			c.logger.Warn("malformed server message: %v", err)
			continue
		}
		c.dispatch(msg)
	}

	c.mu.Lock()
	haveID := c.haveID
	haveRTT := c.haveRTT
	haveAuth := c.haveAuth
	if !haveID || !haveRTT || !haveAuth {
		c.mu.Unlock()
		// Handshake still incomplete. The drained messages were consumed
		// above, so they must still land in the capture or a replay would
		// never see them and never complete its own handshake.
		c.record(0, capturedFrames, frozen)
		return
	}

	predictedClock := c.predictedClockLocked()
	c.localBuffer[predictedClock] = frozen

	authSnap := c.authSnap
	authCmds := c.authCmds
	clientID := c.clientID
	rtt := c.rtt
	health := c.health
	level := c.level
	periodMs := c.periodMs
	c.mu.Unlock()

	current := authSnap
	for current.Clock < predictedClock+1 {
		cmds := c.commandsForTick(clientID, authCmds, current.Clock)
		target := simulation.NewSnapshot()
		simulation.Tick(target, current, cmds, level, periodMs)
		current = target
	}

	c.mu.Lock()
	c.predicted = current
	c.predictedSet = true
	c.gcLocalInputs(authSnap.Clock)
	c.mu.Unlock()

	actualFramesAhead := float64(current.Clock) - float64(authSnap.Clock)
	targetFramesAhead := math.Ceil((rtt/2)/periodMs) + 1
	healthValue := actualFramesAhead - targetFramesAhead
	if health != nil {
		healthValue = float64(*health)
	}

	calc := c.pid.Update(healthValue - 1)
	scale := pid.ScaleFromCalc(calc)
	if c.timer != nil {
		c.timer.SetScale(scale)
	}

	// predictedClock is the clock the frozen input was buffered under
	// above, and the clock the server must apply it at. The re-simulated
	// predicted clock is one higher.
	inFrame, err := protocol.EncodeClientMessage(protocol.ClientInput{Clock: predictedClock, Input: frozen})
	if err == nil {
		_ = tr.Send(inFrame)
	}

	c.record(predictedClock, capturedFrames, frozen)
}

func (c *Client) record(clock uint64, capturedFrames [][]byte, frozen command.Input) {
	c.mu.Lock()
	recorder := c.recorder
	c.mu.Unlock()
	if recorder != nil {
		recorder.Append(clock, capturedFrames, frozen)
	}
}

func (c *Client) predictedClockLocked() uint64 {
	if !c.predictedSet {
		return c.authSnap.Clock
	}
	return c.predicted.Clock
}

func (c *Client) dispatch(msg protocol.ServerMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch m := msg.(type) {
	case protocol.ServerHello:
		c.clientID = m.ClientID
		c.haveID = true
	case protocol.ServerPing:
		c.rtt = m.RTT
		c.haveRTT = true
	case protocol.ServerSnapshot:
		snap := protocol.FromWireSnapshot(m.Snapshot)
		if c.haveAuth && snap.Clock <= c.authSnap.Clock {
			return
		}
		c.authSnap = snap
		c.authCmds = protocol.FromWireCommands(m.Commands)
		c.haveAuth = true
		c.health = m.Health
	}
}

// commandsForTick substitutes this client's own Input entry in the
// authoritative command list with the locally buffered input for clock.
// When none is buffered (the timer fired before any input was submitted
// for that tick), the most recent earlier input is repeated rather than
// failing: a transient scheduling gap must not stop prediction.
func (c *Client) commandsForTick(clientID uint64, authCmds []command.Command, clock uint64) []command.Command {
	c.mu.Lock()
	local, ok := c.localBuffer[clock]
	if !ok {
		local = c.lastKnownInputLocked(clock)
	}
	c.mu.Unlock()

	out := make([]command.Command, 0, len(authCmds))
	replaced := false
	for _, cmd := range authCmds {
		if cmd.Kind == command.KindInput && cmd.ClientID == clientID {
			out = append(out, command.NewInputCommand(clientID, clock, local))
			replaced = true
			continue
		}
		out = append(out, cmd)
	}
	if !replaced {
		out = append(out, command.NewInputCommand(clientID, clock, local))
	}
	return out
}

func (c *Client) lastKnownInputLocked(beforeClock uint64) command.Input {
	var best command.Input
	var bestClock uint64
	found := false
	for clock, in := range c.localBuffer {
		if clock < beforeClock && (!found || clock > bestClock) {
			best = in
			bestClock = clock
			found = true
		}
	}
	return best
}

func (c *Client) gcLocalInputs(authoritativeClock uint64) {
	for clock := range c.localBuffer {
		if clock < authoritativeClock {
			delete(c.localBuffer, clock)
		}
	}
}
