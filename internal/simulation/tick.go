package simulation

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/annel0/netsim/internal/command"
	"github.com/annel0/netsim/internal/physics"
)

// WalkSpeed is the entity's horizontal speed in meters/second while a
// movement button is held.
const WalkSpeed = 4.0

// JumpSpeed is the vertical speed imparted by a Jump press while grounded.
const JumpSpeed = 5.0

// Gravity is applied every tick to ungrounded entities.
const Gravity = -14.0

// Tick advances next to one tick beyond prev: player joins, then leaves,
// then input edges, then kinematics, then collision. It is a pure
// function: given the same prev, commands, level and period, it always
// produces a byte-identical next, on any machine. next is overwritten in
// place and may alias a fresh Snapshot but must never alias prev.
func Tick(next, prev *Snapshot, commands []command.Command, level *Level, periodMs float64) {
	*next = *prev.Clone()
	next.Clock++

	// Step 2: Player(add) commands allocate the smallest unused entity ID.
	for _, cmd := range commands {
		if cmd.Kind != command.KindPlayer || cmd.Action != command.PlayerAdd {
			continue
		}
		if _, already := next.Players[cmd.ClientID]; already {
			continue
		}
		id := smallestUnusedEntityID(next.Entities)
		next.Entities[id] = &Entity{
			ID:           id,
			Config:       &DefaultPlayerConfig,
			Position:     level.SpawnPosition,
			PolygonIndex: level.SpawnPolygon,
			Grounded:     DefaultPlayerConfig.Grounded,
		}
		next.Players[cmd.ClientID] = id
	}

	// Step 3: Player(remove) commands drop the binding and destroy the
	// entity. A remove for a client that also has an Input command this
	// tick wins: the input step below looks the client up in next.Players
	// and silently finds nothing.
	for _, cmd := range commands {
		if cmd.Kind != command.KindPlayer || cmd.Action != command.PlayerRemove {
			continue
		}
		if entityID, ok := next.Players[cmd.ClientID]; ok {
			delete(next.Entities, entityID)
			delete(next.Players, cmd.ClientID)
		}
	}

	// Step 4: translate inputs into intended motion. Stale Input commands
	// for unknown clients are silently dropped, not an error.
	for _, cmd := range commands {
		if cmd.Kind != command.KindInput {
			continue
		}
		entityID, ok := next.Players[cmd.ClientID]
		if !ok {
			continue
		}
		entity, ok := next.Entities[entityID]
		if !ok {
			continue
		}
		applyInput(entity, cmd.Input)
	}

	// Step 5: integrate kinematics (semi-implicit Euler).
	periodSeconds := periodMs / 1000.0
	for _, entity := range next.Entities {
		integrate(entity, periodSeconds)
	}

	// Step 6: resolve collisions against the level geometry.
	for _, entity := range next.Entities {
		resolveEntity(level.Geometry, entity)
	}
}

func applyInput(e *Entity, in command.Input) {
	e.HeldButtons = command.ApplyButtons(e.HeldButtons, in)
	e.YawDeg += in.YawDeg
	e.PitchDeg = command.ClampPitch(e.PitchDeg + in.PitchDeg)
}

func integrate(e *Entity, dt float64) {
	yaw := mgl64.DegToRad(e.YawDeg)
	sinYaw, cosYaw := math.Sincos(yaw)
	forward := mgl64.Vec3{sinYaw, 0, cosYaw}
	right := mgl64.Vec3{cosYaw, 0, -sinYaw}

	move := mgl64.Vec3{}
	if e.HeldButtons&uint32(command.WalkForward) != 0 {
		move = move.Add(forward)
	}
	if e.HeldButtons&uint32(command.WalkBackward) != 0 {
		move = move.Sub(forward)
	}
	if e.HeldButtons&uint32(command.StrafeRight) != 0 {
		move = move.Add(right)
	}
	if e.HeldButtons&uint32(command.StrafeLeft) != 0 {
		move = move.Sub(right)
	}
	if move.Len() > 0 {
		move = move.Normalize().Mul(WalkSpeed)
	}

	e.Velocity[0] = move[0]
	e.Velocity[2] = move[2]

	if e.HeldButtons&uint32(command.Jump) != 0 && e.Grounded {
		e.Velocity[1] = JumpSpeed
		e.Grounded = false
	}
	if !e.Grounded {
		e.Velocity[1] += Gravity * dt
	}

	// Semi-implicit Euler: velocity is updated above, then applied to
	// position using the updated velocity.
	e.Position = e.Position.Add(e.Velocity.Mul(dt))
}

func resolveEntity(level *physics.Level, e *Entity) {
	polygonIndex, clamped := physics.Resolve(level, e.PolygonIndex, e.Position)
	e.PolygonIndex = polygonIndex

	poly := level.Polygons[polygonIndex]
	e.Grounded = clamped[1] <= poly.FloorHeight
	if e.Grounded && e.Velocity[1] < 0 {
		e.Velocity[1] = 0
	}
	e.Position = clamped
}
