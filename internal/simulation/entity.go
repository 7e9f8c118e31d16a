// Package simulation holds the world model (Level, Entity, Snapshot) and
// the deterministic tick function.
package simulation

import "github.com/go-gl/mathgl/mgl64"

// EntityConfig is the indirect configuration reference an Entity points
// at: physical dimensions, camera-eye offset, whether the entity is
// grounded by default, and the sprite/model prefix the renderer uses.
// Configs are immutable for a session and shared by reference.
type EntityConfig struct {
	Name         string
	Width        float64
	Depth        float64
	Height       float64
	EyeHeight    float64
	Grounded     bool
	SpritePrefix string
}

// DefaultPlayerConfig is the configuration bound to every entity created by
// a Player(add) command; this core has no per-player customization.
var DefaultPlayerConfig = EntityConfig{
	Name:         "player",
	Width:        0.6,
	Depth:        0.6,
	Height:       1.8,
	EyeHeight:    1.62,
	Grounded:     true,
	SpritePrefix: "player_",
}

// Entity is a single participant in the world.
type Entity struct {
	ID           uint64
	Config       *EntityConfig
	Position     mgl64.Vec3
	Velocity     mgl64.Vec3
	PitchDeg     float64
	YawDeg       float64
	PolygonIndex int
	HeldButtons  uint32
	Grounded     bool
}

// Orientation derives the entity's unit quaternion from its stored
// pitch/yaw. Pitch and yaw are kept as separate scalars rather than only
// a quaternion because clamping pitch to ±89.999° tick over tick
// requires a stable decomposition.
func (e *Entity) Orientation() mgl64.Quat {
	yaw := mgl64.DegToRad(e.YawDeg)
	pitch := mgl64.DegToRad(e.PitchDeg)
	return mgl64.AnglesToQuat(yaw, pitch, 0, mgl64.YXZ)
}

// Clone returns a deep value copy of the entity (Config is shared by
// reference, never mutated per-entity).
func (e *Entity) Clone() *Entity {
	clone := *e
	return &clone
}
