// Package network implements the server and client cores:
// connection/ingress management, the per-tick scheduling procedure, and
// the broadcast/reconciliation loop built on top of internal/simulation,
// internal/protocol and internal/transport.
package network

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/annel0/netsim/internal/command"
	"github.com/annel0/netsim/internal/logging"
	"github.com/annel0/netsim/internal/protocol"
	"github.com/annel0/netsim/internal/simulation"
	"github.com/annel0/netsim/internal/timer"
	"github.com/annel0/netsim/internal/transport"
)

// Server is the authoritative simulation core (component G).
type Server struct {
	level       *simulation.Level
	periodMs    float64
	snapshotMax uint64
	logger      *logging.Logger
	metrics     *ServerMetrics
	clock       timer.Clock

	mu          sync.Mutex
	nextID      uint64
	connections map[uint64]*connection
	pending     []command.Command // Player add/remove registered between ticks

	snapshots map[uint64]*simulation.Snapshot
	commands  map[uint64][]command.Command
	current   *simulation.Snapshot

	timer *timer.Timer
}

// ServerConfig bundles Server construction parameters.
type ServerConfig struct {
	Level       *simulation.Level
	PeriodMs    float64
	SnapshotMax uint64
	Logger      *logging.Logger
	Metrics     *ServerMetrics
	Clock       timer.Clock
}

// NewServer builds a Server at tick zero with one entity-free snapshot.
func NewServer(cfg ServerConfig) *Server {
	if cfg.SnapshotMax == 0 {
		cfg.SnapshotMax = 32
	}
	s := &Server{
		level:       cfg.Level,
		periodMs:    cfg.PeriodMs,
		snapshotMax: cfg.SnapshotMax,
		logger:      cfg.Logger,
		metrics:     cfg.Metrics,
		clock:       cfg.Clock,
		connections: make(map[uint64]*connection),
		snapshots:   make(map[uint64]*simulation.Snapshot),
		commands:    make(map[uint64][]command.Command),
		current:     simulation.NewSnapshot(),
	}
	s.snapshots[0] = s.current
	return s
}

// Accept registers a new transport, assigns a client ID, and schedules a
// Player(add) command for the next tick.
func (s *Server) Accept(tr transport.Transport) uint64 {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	conn := newConnection(id, tr, s.current.Clock)
	s.connections[id] = conn
	s.pending = append(s.pending, command.NewPlayerAddCommand(id))
	s.mu.Unlock()

	// The callback goroutine only buffers; decoding and dispatch happen
	// at the start of the next tick, which is the sole consumer.
	tr.OnMessage(conn.enqueue)
	tr.OnClose(func(error) {
		s.Disconnect(id)
	})
	tr.OnPong(func(rtt time.Duration) {
		conn.mu.Lock()
		conn.pingPending = false
		conn.mu.Unlock()

		frame, err := protocol.EncodeServerMessage(protocol.ServerPing{RTT: float64(rtt.Milliseconds())})
		if err != nil {
			return
		}
		_ = tr.Send(frame)
	})

	s.logger.Info("client %d accepted from %s", id, tr.RemoteAddr())
	return id
}

// Disconnect schedules a Player(remove) for the next tick and drops the
// connection from the registry.
func (s *Server) Disconnect(clientID uint64) {
	s.mu.Lock()
	if _, ok := s.connections[clientID]; !ok {
		s.mu.Unlock()
		return
	}
	delete(s.connections, clientID)
	s.pending = append(s.pending, command.NewPlayerRemoveCommand(clientID))
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.clientHealth.DeleteLabelValues(fmt.Sprint(clientID))
	}
	s.logger.Info("client %d disconnected", clientID)
}

// Submit demultiplexes one decoded client message: Hello records the
// display name and answers with the assigned identifier, Input lands in
// the sender's input ring. The tick body calls this for every frame it
// drains.
func (s *Server) Submit(clientID uint64, msg protocol.ClientMessage) {
	s.mu.Lock()
	conn, ok := s.connections[clientID]
	s.mu.Unlock()
	if !ok {
		return
	}

	switch m := msg.(type) {
	case protocol.ClientHello:
		conn.mu.Lock()
		conn.name = m.Name
		conn.mu.Unlock()
		reply, err := protocol.EncodeServerMessage(protocol.ServerHello{ClientID: clientID})
		if err == nil {
			_ = conn.tr.Send(reply)
		}
	case protocol.ClientInput:
		conn.recordInput(command.NewInputCommand(clientID, m.Clock, m.Input))
	}
}

// Run installs Tick on a Timer at the server's configured period and
// starts it.
func (s *Server) Run() {
	s.timer = timer.New(s.periodMs, s.Tick, s.clock)
	s.timer.Start()
}

// Halt stops the tick loop.
func (s *Server) Halt() {
	if s.timer != nil {
		s.timer.Stop()
	}
}

// Tick executes one full server step: select each client's input, score
// its health, advance the simulation, store the result in the ring, and
// broadcast.
func (s *Server) Tick() {
	start := time.Now()

	s.mu.Lock()
	players := s.pending
	s.pending = nil
	conns := make([]*connection, 0, len(s.connections))
	for _, c := range s.connections {
		conns = append(conns, c)
	}
	// Map iteration order is randomized; the command list and broadcast
	// order must not be.
	sort.Slice(conns, func(i, j int) bool { return conns[i].clientID < conns[j].clientID })
	serverClock := s.current.Clock
	level := s.level
	periodMs := s.periodMs
	snapshotMax := s.snapshotMax
	s.mu.Unlock()

	// Step 1: drain every connection's ingress buffer and dispatch. A
	// malformed frame disconnects its sender without aborting the tick.
	live := make([]*connection, 0, len(conns))
	for _, conn := range conns {
		bad := false
		for _, frame := range conn.drain() {
			msg, err := protocol.DecodeClientMessage(frame)
			if err != nil {
				s.logger.Warn("client %d sent malformed message: %v", conn.clientID, err)
				s.Disconnect(conn.clientID)
				bad = true
				break
			}
			s.Submit(conn.clientID, msg)
		}
		if !bad {
			live = append(live, conn)
		}
	}
	conns = live

	var toDisconnect []uint64
	inputs := make([]command.Command, 0, len(conns))

	for _, conn := range conns {
		best, ahead, found := selectBestInput(conn, serverClock)
		if !found {
			if ahead > 0 {
				// Every buffered input is still in our future: the client
				// is running too fast, not silent. No input to apply this
				// tick, but nothing to disconnect either.
				conn.setHealth(int64(ahead))
				continue
			}
			// Silent client. A fresh connection has not had a chance to
			// complete the hello/ping handshake yet, so removal waits out
			// a SNAPSHOT_MAX window from the join tick. A client that did
			// send inputs keeps its newest one selectable until pruning
			// empties the ring, which takes the same window past its last
			// submission.
			if serverClock >= conn.joinedClock+snapshotMax {
				toDisconnect = append(toDisconnect, conn.clientID)
			}
			continue
		}
		health := int64(0)
		switch {
		case ahead > 0:
			health = int64(ahead)
		case best.Clock < serverClock:
			health = int64(best.Clock) - int64(serverClock)
		}
		conn.setHealth(health)
		if s.metrics != nil {
			s.metrics.clientHealth.WithLabelValues(fmt.Sprint(conn.clientID)).Set(float64(health))
		}

		if snapshotMax <= serverClock {
			conn.pruneOlderThan(serverClock - snapshotMax)
		}
		inputs = append(inputs, best)
	}

	for _, id := range toDisconnect {
		s.Disconnect(id)
	}

	commandList := append(append([]command.Command{}, players...), inputs...)

	s.mu.Lock()
	prev := s.current
	next := simulation.NewSnapshot()
	simulation.Tick(next, prev, commandList, level, periodMs)
	s.current = next
	s.snapshots[next.Clock%snapshotMax] = next
	s.commands[next.Clock%snapshotMax] = commandList
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.tickDuration.Observe(time.Since(start).Seconds())
		s.metrics.connectedClients.Set(float64(len(conns)))
		s.metrics.commandsPerTick.Observe(float64(len(commandList)))
	}

	s.broadcast(next, commandList, conns)
}

// selectBestInput picks the newest input command whose clock is at most
// serverClock, and reports how far ahead the client's newest input is
// beyond serverClock.
func selectBestInput(conn *connection, serverClock uint64) (command.Command, uint64, bool) {
	conn.mu.Lock()
	defer conn.mu.Unlock()

	var best command.Command
	haveBest := false
	var ahead uint64

	for clock, cmd := range conn.inputRing {
		if clock > serverClock {
			if lead := clock - serverClock; lead > ahead {
				ahead = lead
			}
			continue
		}
		if !haveBest || clock > best.Clock {
			best = cmd
			haveBest = true
		}
	}
	return best, ahead, haveBest
}

func (s *Server) broadcast(snap *simulation.Snapshot, commands []command.Command, conns []*connection) {
	wireSnap := protocol.ToWireSnapshot(snap)
	wireCmds := protocol.ToWireCommands(commands)

	for _, conn := range conns {
		health := conn.getHealth()
		msg := protocol.ServerSnapshot{Snapshot: wireSnap, Commands: wireCmds, Health: &health}
		frame, err := protocol.EncodeServerMessage(msg)
		if err != nil {
			s.logger.Error("encode snapshot for client %d: %v", conn.clientID, err)
			continue
		}
		if err := conn.tr.Send(frame); err != nil {
			s.logger.Warn("send snapshot to client %d: %v", conn.clientID, err)
			continue
		}
		s.measureRTT(conn)
	}
}

// measureRTT maintains the ping/pong heartbeat: at most one probe is ever
// outstanding per connection. The probe itself is
// transport-level and answered asynchronously; the OnPong handler
// registered in Accept clears pingPending and sends the application-level
// ServerPing once the round trip resolves. A probe stuck for longer than
// a handful of ticks is retried rather than left latched forever.
func (s *Server) measureRTT(conn *connection) {
	conn.mu.Lock()
	if conn.pingPending && time.Since(conn.pingAt) < pingTimeout(s.periodMs) {
		conn.mu.Unlock()
		return
	}
	conn.pingPending = true
	conn.pingAt = time.Now()
	conn.mu.Unlock()

	if err := conn.tr.Ping(); err != nil {
		conn.mu.Lock()
		conn.pingPending = false
		conn.mu.Unlock()
		s.logger.Warn("ping client %d: %v", conn.clientID, err)
	}
}

// pingTimeout bounds how long a probe may stay outstanding before another
// is allowed, in case a pong is lost.
func pingTimeout(periodMs float64) time.Duration {
	return 10 * time.Duration(periodMs) * time.Millisecond
}

// acceptLoop drives a Listener, Accepting connections until it errors.
func (s *Server) acceptLoop(l transport.Listener) {
	for {
		tr, err := l.Accept()
		if err != nil {
			s.logger.Warn("listener stopped: %v", err)
			return
		}
		s.Accept(tr)
	}
}

// Serve starts accepting connections on l and runs the tick loop. It
// blocks until the listener errors.
func (s *Server) Serve(l transport.Listener) error {
	s.Run()
	s.acceptLoop(l)
	return fmt.Errorf("network: listener closed")
}
