package transport

import (
	"context"
	"encoding/binary"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/xtaci/kcp-go/v5"

	"github.com/annel0/netsim/internal/logging"
)

// tuneSession applies an aggressive low-latency profile for real-time
// traffic. The transport is reliable UDP, not raw UDP, so drops become
// retransmits instead of silently missing ticks.
func tuneSession(sess *kcp.UDPSession) {
	sess.SetStreamMode(true)
	sess.SetWriteDelay(false)
	sess.SetNoDelay(1, 20, 2, 1)
	sess.SetWindowSize(512, 512)
	sess.SetMtu(1400)
}

// KCPTransport wraps a single kcp-go session. Frames are length-prefixed
// (4-byte little-endian header) since KCP in stream mode carries a byte
// stream, not discrete messages. A 1-byte frame-kind tag ahead of the
// length header distinguishes opaque data frames from the transport's own
// ping/pong control frames, so the probe never reaches internal/protocol.
type KCPTransport struct {
	conn   *kcp.UDPSession
	logger *logging.Logger

	mu         sync.Mutex
	closed     bool
	onMessage  func(frame []byte)
	onClose    func(err error)
	onPong     func(rtt time.Duration)
	rtt        time.Duration
	nextPingID uint64
	pingSentAt map[uint64]time.Time

	wg sync.WaitGroup
}

const (
	frameKindData byte = 0
	frameKindPing byte = 1
	frameKindPong byte = 2
)

func newKCPTransport(conn *kcp.UDPSession, logger *logging.Logger) *KCPTransport {
	tuneSession(conn)
	t := &KCPTransport{conn: conn, logger: logger, pingSentAt: make(map[uint64]time.Time)}
	t.wg.Add(1)
	go t.readLoop()
	return t
}

// KCPDialer dials outbound KCP sessions.
type KCPDialer struct {
	Logger *logging.Logger
}

func (d KCPDialer) Dial(ctx context.Context, addr string) (Transport, error) {
	conn, err := kcp.DialWithOptions(addr, nil, 10, 3)
	if err != nil {
		return nil, fmt.Errorf("transport: dial %s: %w", addr, err)
	}
	return newKCPTransport(conn, d.Logger), nil
}

// KCPListener accepts inbound KCP sessions.
type KCPListener struct {
	listener *kcp.Listener
	logger   *logging.Logger
}

// ListenKCP binds addr and returns a Listener.
func ListenKCP(addr string, logger *logging.Logger) (*KCPListener, error) {
	l, err := kcp.ListenWithOptions(addr, nil, 10, 3)
	if err != nil {
		return nil, fmt.Errorf("transport: listen %s: %w", addr, err)
	}
	return &KCPListener{listener: l, logger: logger}, nil
}

func (l *KCPListener) Accept() (Transport, error) {
	conn, err := l.listener.AcceptKCP()
	if err != nil {
		return nil, fmt.Errorf("transport: accept: %w", err)
	}
	return newKCPTransport(conn, l.logger), nil
}

func (l *KCPListener) Close() error { return l.listener.Close() }
func (l *KCPListener) Addr() string { return l.listener.Addr().String() }

func (t *KCPTransport) Send(frame []byte) error {
	return t.writeFrame(frameKindData, frame)
}

func (t *KCPTransport) writeFrame(kind byte, payload []byte) error {
	header := make([]byte, 5)
	header[0] = kind
	binary.LittleEndian.PutUint32(header[1:], uint32(len(payload)))
	_, err := t.conn.Write(append(header, payload...))
	if err != nil {
		return fmt.Errorf("transport: write: %w", err)
	}
	return nil
}

// Ping sends a probe frame carrying a locally unique ID and records the
// send time; the matching pong (handled in readLoop) resolves the round
// trip and invokes onPong.
func (t *KCPTransport) Ping() error {
	t.mu.Lock()
	id := t.nextPingID
	t.nextPingID++
	t.pingSentAt[id] = time.Now()
	t.mu.Unlock()

	payload := make([]byte, 8)
	binary.LittleEndian.PutUint64(payload, id)
	if err := t.writeFrame(frameKindPing, payload); err != nil {
		t.mu.Lock()
		delete(t.pingSentAt, id)
		t.mu.Unlock()
		return err
	}
	return nil
}

func (t *KCPTransport) OnPong(handler func(rtt time.Duration)) {
	t.mu.Lock()
	t.onPong = handler
	t.mu.Unlock()
}

func (t *KCPTransport) OnMessage(handler func(frame []byte)) {
	t.mu.Lock()
	t.onMessage = handler
	t.mu.Unlock()
}

func (t *KCPTransport) OnClose(handler func(err error)) {
	t.mu.Lock()
	t.onClose = handler
	t.mu.Unlock()
}

func (t *KCPTransport) RTT() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rtt
}

func (t *KCPTransport) RemoteAddr() string {
	return t.conn.RemoteAddr().String()
}

func (t *KCPTransport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.mu.Unlock()

	err := t.conn.Close()
	t.wg.Wait()
	return err
}

func (t *KCPTransport) readLoop() {
	defer t.wg.Done()

	header := make([]byte, 5)
	for {
		if _, err := readFull(t.conn, header); err != nil {
			t.handleClose(err)
			return
		}
		kind := header[0]
		length := binary.LittleEndian.Uint32(header[1:])
		payload := make([]byte, length)
		if length > 0 {
			if _, err := readFull(t.conn, payload); err != nil {
				t.handleClose(err)
				return
			}
		}

		switch kind {
		case frameKindData:
			t.mu.Lock()
			handler := t.onMessage
			t.mu.Unlock()
			if handler != nil {
				handler(payload)
			}
		case frameKindPing:
			if err := t.writeFrame(frameKindPong, payload); err != nil {
				t.logger.Warn("transport: pong reply: %v", err)
			}
		case frameKindPong:
			t.handlePong(payload)
		}
	}
}

func (t *KCPTransport) handlePong(payload []byte) {
	if len(payload) != 8 {
		return
	}
	id := binary.LittleEndian.Uint64(payload)

	t.mu.Lock()
	sentAt, ok := t.pingSentAt[id]
	if ok {
		delete(t.pingSentAt, id)
	}
	t.mu.Unlock()
	if !ok {
		return
	}

	rtt := time.Since(sentAt)
	t.mu.Lock()
	t.rtt = rtt
	handler := t.onPong
	t.mu.Unlock()
	if handler != nil {
		handler(rtt)
	}
}

func (t *KCPTransport) handleClose(err error) {
	t.mu.Lock()
	closed := t.closed
	t.closed = true
	handler := t.onClose
	t.mu.Unlock()

	if closed {
		return
	}
	if handler != nil {
		handler(err)
	}
}

func readFull(conn net.Conn, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := conn.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
