package demo_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/netsim/internal/command"
	"github.com/annel0/netsim/internal/demo"
	"github.com/annel0/netsim/internal/logging"
	"github.com/annel0/netsim/internal/network"
	"github.com/annel0/netsim/internal/physics"
	"github.com/annel0/netsim/internal/pid"
	"github.com/annel0/netsim/internal/simulation"
	"github.com/annel0/netsim/internal/timer"
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

func newTestClient(t *testing.T, name string) *network.Client {
	t.Helper()
	logger, _ := logging.NewLogger("demo_test_" + name)
	return network.NewClient(network.ClientConfig{
		Name:     name,
		Level:    testLevel(),
		PeriodMs: 32,
		Logger:   logger,
		Clock:    timer.RealClock{},
		PID:      pid.New(1, 0, 0),
	})
}

// TestRecordAndReplayAreDeterministic drives a live client against a
// server for a handful of ticks while recording, then replays the saved
// demo against a fresh client and checks the final predicted snapshot
// matches exactly.
func TestRecordAndReplayAreDeterministic(t *testing.T) {
	logger, _ := logging.NewLogger("demo_test_server")
	srv := network.NewServer(network.ServerConfig{
		Level:       testLevel(),
		PeriodMs:    32,
		SnapshotMax: 32,
		Logger:      logger,
	})

	clientSide, serverSide := transport.NewMemPipe("client", "server")
	serverSide.SetRTT(16 * time.Millisecond)
	srv.Accept(serverSide)

	cli := newTestClient(t, "live")
	recorder := demo.NewRecorder()
	cli.SetRecorder(recorder)
	cli.Connect(clientSide)

	for i := 0; i < 20; i++ {
		srv.Tick()
		cli.SubmitLocalInput(command.Input{Pressed: uint32(command.WalkForward), YawDeg: 1})
		cli.Tick()
	}

	path := filepath.Join(t.TempDir(), "session.demo")
	require.NoError(t, recorder.Save(path))

	doc, err := demo.Load(path)
	require.NoError(t, err)
	require.Len(t, doc.Ticks, 20)

	replay := newTestClient(t, "replay")
	player := demo.NewPlayer(doc, replay)
	player.End()

	live := cli.Snapshot()
	replayed := replay.Snapshot()
	require.NotNil(t, live)
	require.NotNil(t, replayed)
	assert.True(t, live.Equal(replayed), "replay diverged from live session: live=%#v replayed=%#v", live, replayed)
}

// TestPlayerPreviousMatchesReplayToThatPoint checks that Previous lands
// on the same predicted state First+Next would reach by re-running from
// the start.
func TestPlayerPreviousMatchesReplayToThatPoint(t *testing.T) {
	logger, _ := logging.NewLogger("demo_test_server2")
	srv := network.NewServer(network.ServerConfig{
		Level:       testLevel(),
		PeriodMs:    32,
		SnapshotMax: 32,
		Logger:      logger,
	})

	clientSide, serverSide := transport.NewMemPipe("client", "server")
	serverSide.SetRTT(16 * time.Millisecond)
	srv.Accept(serverSide)

	cli := newTestClient(t, "recorder")
	recorder := demo.NewRecorder()
	cli.SetRecorder(recorder)
	cli.Connect(clientSide)

	for i := 0; i < 10; i++ {
		srv.Tick()
		cli.SubmitLocalInput(command.Input{Pressed: uint32(command.WalkForward)})
		cli.Tick()
	}

	path := filepath.Join(t.TempDir(), "session.demo")
	require.NoError(t, recorder.Save(path))
	doc, err := demo.Load(path)
	require.NoError(t, err)

	// After 8 Next() calls, playerB's cursor is 8; Previous() rewinds it
	// to cursor=7, the same state direct replay of 7 ticks reaches.
	a := newTestClient(t, "a")
	playerA := demo.NewPlayer(doc, a)
	for i := 0; i < 7; i++ {
		require.True(t, playerA.Next(), "expected at least 7 ticks of recorded playback")
	}
	wantSnap := a.Snapshot()

	b := newTestClient(t, "b")
	playerB := demo.NewPlayer(doc, b)
	for i := 0; i < 8; i++ {
		require.True(t, playerB.Next(), "expected at least 8 ticks of recorded playback")
	}
	playerB.Previous() // rewinds to cursor=7 by re-running from First

	gotSnap := b.Snapshot()
	assert.True(t, wantSnap.Equal(gotSnap), "Previous() diverged from direct replay to the same tick")
}
