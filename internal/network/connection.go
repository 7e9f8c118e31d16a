package network

import (
	"sync"
	"time"

	"github.com/annel0/netsim/internal/command"
	"github.com/annel0/netsim/internal/transport"
)

// connection is the server's per-client bookkeeping: the transport, the
// input ring, and the health/heartbeat state behind it.
type connection struct {
	clientID    uint64
	tr          transport.Transport
	joinedClock uint64 // server clock when the connection was accepted

	mu          sync.Mutex
	name        string
	inbox       [][]byte                   // raw frames, appended by OnMessage, drained by the tick
	inputRing   map[uint64]command.Command // clock -> most recent input at that clock
	health      int64
	lastMessage time.Time
	pingAt      time.Time
	pingPending bool
}

func newConnection(clientID uint64, tr transport.Transport, joinedClock uint64) *connection {
	return &connection{
		clientID:    clientID,
		tr:          tr,
		joinedClock: joinedClock,
		inputRing:   make(map[uint64]command.Command),
	}
}

// enqueue is the transport-callback side of the ingress buffer: it only
// appends the raw frame, so the callback goroutine never touches
// simulation state. The tick body drains and decodes.
func (c *connection) enqueue(frame []byte) {
	c.mu.Lock()
	c.inbox = append(c.inbox, frame)
	c.lastMessage = time.Now()
	c.mu.Unlock()
}

// drain takes every buffered frame, leaving the inbox empty. Called only
// from the tick body.
func (c *connection) drain() [][]byte {
	c.mu.Lock()
	frames := c.inbox
	c.inbox = nil
	c.mu.Unlock()
	return frames
}

// recordInput stores one input keyed by its clock, newest wins. Called
// from the tick body while demultiplexing drained frames.
func (c *connection) recordInput(cmd command.Command) {
	c.mu.Lock()
	c.inputRing[cmd.Clock] = cmd
	c.mu.Unlock()
}

func (c *connection) pruneOlderThan(horizon uint64) {
	c.mu.Lock()
	for clock := range c.inputRing {
		if clock < horizon {
			delete(c.inputRing, clock)
		}
	}
	c.mu.Unlock()
}

func (c *connection) setHealth(health int64) {
	c.mu.Lock()
	c.health = health
	c.mu.Unlock()
}

func (c *connection) getHealth() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.health
}
