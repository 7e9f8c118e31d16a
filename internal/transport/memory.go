package transport

import (
	"sync"
	"time"
)

// MemTransport is an in-process Transport paired with a peer: Send calls
// the peer's message handler synchronously. It exists so tests can drive
// a network core without a real socket.
type MemTransport struct {
	mu         sync.Mutex
	peer       *MemTransport
	onMessage  func(frame []byte)
	onClose    func(err error)
	onPong     func(rtt time.Duration)
	rtt        time.Duration
	latency    time.Duration
	pingSentAt time.Time
	closed     bool
	remote     string
}

// NewMemPipe returns two connected MemTransports, each the other's peer.
func NewMemPipe(clientAddr, serverAddr string) (client *MemTransport, server *MemTransport) {
	client = &MemTransport{remote: serverAddr}
	server = &MemTransport{remote: clientAddr}
	client.peer = server
	server.peer = client
	return client, server
}

func (m *MemTransport) Send(frame []byte) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	peer := m.peer
	m.mu.Unlock()

	peer.deliver(frame)
	return nil
}

func (m *MemTransport) deliver(frame []byte) {
	m.mu.Lock()
	handler := m.onMessage
	closed := m.closed
	m.mu.Unlock()
	if closed || handler == nil {
		return
	}
	handler(frame)
}

func (m *MemTransport) OnMessage(handler func(frame []byte)) {
	m.mu.Lock()
	m.onMessage = handler
	m.mu.Unlock()
}

func (m *MemTransport) OnClose(handler func(err error)) {
	m.mu.Lock()
	m.onClose = handler
	m.mu.Unlock()
}

func (m *MemTransport) RTT() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rtt
}

// SetRTT configures an artificial link latency added to every subsequent
// Ping round trip, so tests can exercise RTT-dependent behavior (the PID
// pacing loop, health scoring) without a real network or a real sleep.
func (m *MemTransport) SetRTT(latency time.Duration) {
	m.mu.Lock()
	m.latency = latency
	m.mu.Unlock()
}

// Ping delivers an opaque probe to the peer, which echoes it back
// immediately; the round trip is the real elapsed time plus whatever
// latency SetRTT configured.
func (m *MemTransport) Ping() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.pingSentAt = time.Now()
	peer := m.peer
	m.mu.Unlock()

	peer.deliverPing(m)
	return nil
}

func (m *MemTransport) deliverPing(from *MemTransport) {
	m.mu.Lock()
	closed := m.closed
	m.mu.Unlock()
	if closed {
		return
	}
	from.deliverPong()
}

func (m *MemTransport) deliverPong() {
	m.mu.Lock()
	sentAt := m.pingSentAt
	latency := m.latency
	handler := m.onPong
	m.mu.Unlock()

	rtt := time.Since(sentAt) + latency
	m.mu.Lock()
	m.rtt = rtt
	m.mu.Unlock()
	if handler != nil {
		handler(rtt)
	}
}

func (m *MemTransport) OnPong(handler func(rtt time.Duration)) {
	m.mu.Lock()
	m.onPong = handler
	m.mu.Unlock()
}

func (m *MemTransport) RemoteAddr() string { return m.remote }

func (m *MemTransport) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	peer := m.peer
	handler := m.onClose
	m.mu.Unlock()

	if handler != nil {
		handler(nil)
	}
	if peer != nil {
		peer.closeFromPeer()
	}
	return nil
}

func (m *MemTransport) closeFromPeer() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	handler := m.onClose
	m.mu.Unlock()

	if handler != nil {
		handler(nil)
	}
}
