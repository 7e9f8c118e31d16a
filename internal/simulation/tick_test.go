package simulation

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/netsim/internal/command"
	"github.com/annel0/netsim/internal/physics"
)

func testLevel() *Level {
	return &Level{
		Geometry: &physics.Level{
			Polygons: []physics.Polygon{
				{
					Vertices: []mgl64.Vec2{
						{-50, -50}, {50, -50}, {50, 50}, {-50, 50},
					},
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

func TestTick_PlayerAddBindsSmallestUnusedID(t *testing.T) {
	level := testLevel()
	prev := NewSnapshot()
	next := NewSnapshot()

	Tick(next, prev, []command.Command{command.NewPlayerAddCommand(7)}, level, 32)

	id, ok := next.Players[7]
	require.True(t, ok)
	assert.Equal(t, uint64(1), id)
	assert.Equal(t, uint64(1), next.Clock)
}

func TestTick_PlayerRemoveDestroysEntity(t *testing.T) {
	level := testLevel()
	prev := NewSnapshot()
	mid := NewSnapshot()
	Tick(mid, prev, []command.Command{command.NewPlayerAddCommand(1)}, level, 32)

	final := NewSnapshot()
	Tick(final, mid, []command.Command{command.NewPlayerRemoveCommand(1)}, level, 32)

	_, ok := final.Players[1]
	assert.False(t, ok, "expected player binding removed")
	assert.Empty(t, final.Entities)
}

func TestTick_RemoveWinsOverInputSameTick(t *testing.T) {
	level := testLevel()
	prev := NewSnapshot()
	mid := NewSnapshot()
	Tick(mid, prev, []command.Command{command.NewPlayerAddCommand(1)}, level, 32)

	final := NewSnapshot()
	cmds := []command.Command{
		command.NewPlayerRemoveCommand(1),
		command.NewInputCommand(1, mid.Clock, command.Input{Pressed: uint32(command.WalkForward)}),
	}
	Tick(final, mid, cmds, level, 32)

	assert.Empty(t, final.Entities, "expected entity destroyed despite same-tick input")
}

func TestTick_StaleInputForUnknownClientDropped(t *testing.T) {
	level := testLevel()
	prev := NewSnapshot()
	next := NewSnapshot()

	// Must not panic and must leave state unaffected.
	assert.NotPanics(t, func() {
		Tick(next, prev, []command.Command{command.NewInputCommand(99, 0, command.Input{})}, level, 32)
	})
	assert.Empty(t, next.Entities)
}

func TestTick_DeterministicAcrossRuns(t *testing.T) {
	level := testLevel()
	run := func() *Snapshot {
		prev := NewSnapshot()
		cur := NewSnapshot()
		Tick(cur, prev, []command.Command{command.NewPlayerAddCommand(1)}, level, 32)
		for i := 0; i < 10; i++ {
			next := NewSnapshot()
			in := command.Input{Pressed: uint32(command.WalkForward), YawDeg: 3}
			Tick(next, cur, []command.Command{command.NewInputCommand(1, cur.Clock, in)}, level, 32)
			cur = next
		}
		return cur
	}

	a := run()
	b := run()
	assert.True(t, a.Equal(b), "expected two identical runs to produce equal snapshots")
}

func TestTick_MonotoneClock(t *testing.T) {
	level := testLevel()
	prev := NewSnapshot()
	for i := 0; i < 5; i++ {
		next := NewSnapshot()
		Tick(next, prev, nil, level, 32)
		assert.Greater(t, next.Clock, prev.Clock)
		prev = next
	}
}

func TestTick_NoDanglingPlayers(t *testing.T) {
	level := testLevel()
	prev := NewSnapshot()
	next := NewSnapshot()
	Tick(next, prev, []command.Command{
		command.NewPlayerAddCommand(1),
		command.NewPlayerAddCommand(2),
	}, level, 32)

	for client, entityID := range next.Players {
		_, ok := next.Entities[entityID]
		assert.True(t, ok, "client %d points at missing entity %d", client, entityID)
	}
}

func TestTick_PitchClampAcrossTicks(t *testing.T) {
	level := testLevel()
	prev := NewSnapshot()
	cur := NewSnapshot()
	Tick(cur, prev, []command.Command{command.NewPlayerAddCommand(1)}, level, 32)

	for i := 0; i < 5; i++ {
		next := NewSnapshot()
		in := command.Input{PitchDeg: 1000, YawDeg: 360}
		Tick(next, cur, []command.Command{command.NewInputCommand(1, cur.Clock, in)}, level, 32)
		cur = next
	}

	entity := cur.Entities[cur.Players[1]]
	assert.Equal(t, command.MaxPitchDegrees, entity.PitchDeg)

	wantYaw := 360.0 * 5
	for wantYaw >= 360 {
		wantYaw -= 360
	}
	gotYaw := entity.YawDeg
	for gotYaw >= 360 {
		gotYaw -= 360
	}
	assert.Equal(t, wantYaw, gotYaw)
}

func TestSmallestUnusedEntityID(t *testing.T) {
	level := testLevel()
	prev := NewSnapshot()
	afterAdds := NewSnapshot()
	Tick(afterAdds, prev, []command.Command{
		command.NewPlayerAddCommand(1),
		command.NewPlayerAddCommand(2),
	}, level, 32)

	afterRemove := NewSnapshot()
	Tick(afterRemove, afterAdds, []command.Command{command.NewPlayerRemoveCommand(1)}, level, 32)

	afterReAdd := NewSnapshot()
	Tick(afterReAdd, afterRemove, []command.Command{command.NewPlayerAddCommand(3)}, level, 32)

	assert.Equal(t, uint64(1), afterReAdd.Players[3], "expected freed entity ID 1 reused")
}
