package network

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/netsim/internal/logging"
	"github.com/annel0/netsim/internal/physics"
	"github.com/annel0/netsim/internal/protocol"
	"github.com/annel0/netsim/internal/simulation"
	"github.com/annel0/netsim/internal/transport"
)

func testLevel() *simulation.Level {
	return &simulation.Level{
		Geometry: &physics.Level{
			Polygons: []physics.Polygon{
				{
					Vertices:      []mgl64.Vec2{{-50, -50}, {50, -50}, {50, 50}, {-50, 50}},
					BackPolygons:  []int{-1, -1, -1, -1},
					FloorHeight:   0,
					CeilingHeight: 10,
				},
			},
		},
		SpawnPosition: mgl64.Vec3{0, 0, 0},
		SpawnPolygon:  0,
	}
}

func testLogger(t *testing.T) *logging.Logger {
	t.Helper()
	logger, _ := logging.NewLogger("network_test")
	return logger
}

func TestServer_JoinAssignsIDAndSpawns(t *testing.T) {
	srv := NewServer(ServerConfig{
		Level:       testLevel(),
		PeriodMs:    32,
		SnapshotMax: 32,
		Logger:      testLogger(t),
	})

	client, serverSide := transport.NewMemPipe("client", "server")
	id := srv.Accept(serverSide)
	require.Equal(t, uint64(1), id)

	var gotHello bool
	client.OnMessage(func(frame []byte) {
		msg, err := protocol.DecodeServerMessage(frame)
		require.NoError(t, err)
		if hello, ok := msg.(protocol.ServerHello); ok && hello.ClientID == 1 {
			gotHello = true
		}
	})

	frame, err := protocol.EncodeClientMessage(protocol.ClientHello{Name: "A"})
	require.NoError(t, err)
	require.NoError(t, client.Send(frame))

	// The hello sits in the ingress buffer until the next tick drains it.
	srv.Tick()

	require.True(t, gotHello, "expected ServerHello{clientID:1} in response to Hello")

	snap := srv.current
	entityID, ok := snap.Players[1]
	require.True(t, ok, "expected client 1 bound to an entity after first tick")
	_, ok = snap.Entities[entityID]
	assert.True(t, ok, "expected spawned entity present in snapshot")
}

func TestServer_DropInputDisconnectsClient(t *testing.T) {
	const snapshotMax = 4
	srv := NewServer(ServerConfig{
		Level:       testLevel(),
		PeriodMs:    32,
		SnapshotMax: snapshotMax,
		Logger:      testLogger(t),
	})

	_, serverSide := transport.NewMemPipe("client", "server")
	id := srv.Accept(serverSide)

	srv.Tick() // binds the player

	_, ok := srv.current.Players[id]
	require.True(t, ok, "expected player bound after first tick")

	// A silent client survives the SNAPSHOT_MAX window after joining,
	// then gets a synthetic Player(remove).
	for i := 0; i < snapshotMax; i++ {
		srv.Tick()
		_, ok = srv.current.Players[id]
		require.True(t, ok, "expected player alive inside the input-horizon window (tick %d)", i)
	}

	srv.Tick() // Player(remove), scheduled on the window's last tick, lands
	srv.Tick() // the removal stays applied

	_, ok = srv.current.Players[id]
	assert.False(t, ok, "expected client removed after failing to supply input for SNAPSHOT_MAX ticks")
}

func TestServer_InputKeepsClientAlivePastJoinWindow(t *testing.T) {
	const snapshotMax = 4
	srv := NewServer(ServerConfig{
		Level:       testLevel(),
		PeriodMs:    32,
		SnapshotMax: snapshotMax,
		Logger:      testLogger(t),
	})

	_, serverSide := transport.NewMemPipe("client", "server")
	id := srv.Accept(serverSide)

	for i := 0; i < 3*snapshotMax; i++ {
		srv.Submit(id, protocol.ClientInput{Clock: srv.current.Clock})
		srv.Tick()
	}

	_, ok := srv.current.Players[id]
	assert.True(t, ok, "expected client supplying inputs to stay connected indefinitely")
}
