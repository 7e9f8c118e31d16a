package network

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/netsim/internal/command"
	"github.com/annel0/netsim/internal/logging"
	"github.com/annel0/netsim/internal/pid"
	"github.com/annel0/netsim/internal/protocol"
	"github.com/annel0/netsim/internal/timer"
	"github.com/annel0/netsim/internal/transport"
)

func newClientForTest(t *testing.T) *Client {
	t.Helper()
	logger, _ := logging.NewLogger("client_test")
	return NewClient(ClientConfig{
		Name:     "test",
		Level:    testLevel(),
		PeriodMs: 32,
		Logger:   logger,
		Clock:    timer.RealClock{},
		PID:      pid.New(0.1, 0, 0),
	})
}

// Driving client and server in lockstep, the predicted clock tracks the
// authoritative clock with a small fixed lead instead of drifting.
func TestClient_StaysBoundedAheadOfServer(t *testing.T) {
	srv := NewServer(ServerConfig{
		Level:       testLevel(),
		PeriodMs:    32,
		SnapshotMax: 32,
		Logger:      testLogger(t),
	})

	clientSide, serverSide := transport.NewMemPipe("client", "server")
	serverSide.SetRTT(16 * time.Millisecond)
	srv.Accept(serverSide)

	cli := newClientForTest(t)
	cli.Connect(clientSide)

	for i := 0; i < 50; i++ {
		srv.Tick()
		cli.SubmitLocalInput(command.Input{Pressed: uint32(command.WalkForward)})
		cli.Tick()
	}

	snap := cli.Snapshot()
	require.NotNil(t, snap)
	assert.InDelta(t, float64(srv.current.Clock), float64(snap.Clock), 2,
		"predicted clock drifted away from the authoritative clock")
}

func TestClient_IgnoresStaleSnapshot(t *testing.T) {
	cli := newClientForTest(t)

	fresh := protocol.WireSnapshot{Clock: 5, Players: map[uint64]uint64{}, Entities: map[uint64]protocol.WireEntity{}}
	cli.dispatch(protocol.ServerSnapshot{Snapshot: fresh})
	require.Equal(t, uint64(5), cli.authSnap.Clock)

	stale := protocol.WireSnapshot{Clock: 3, Players: map[uint64]uint64{}, Entities: map[uint64]protocol.WireEntity{}}
	cli.dispatch(protocol.ServerSnapshot{Snapshot: stale})
	assert.Equal(t, uint64(5), cli.authSnap.Clock, "authoritative snapshot must never move backwards")
}

func TestConnection_PruneInputHorizon(t *testing.T) {
	conn := newConnection(1, nil, 0)
	conn.recordInput(command.NewInputCommand(1, 2, command.Input{}))
	conn.recordInput(command.NewInputCommand(1, 40, command.Input{}))

	conn.pruneOlderThan(8)

	best, _, found := selectBestInput(conn, 50)
	require.True(t, found)
	assert.Equal(t, uint64(40), best.Clock)

	conn.mu.Lock()
	_, stillThere := conn.inputRing[2]
	conn.mu.Unlock()
	assert.False(t, stillThere, "input behind the horizon should be gone")
}
