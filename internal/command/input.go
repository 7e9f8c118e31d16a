// Package command holds the packed input model and the tagged command
// variants the deterministic tick consumes.
package command

// Button is a single bit in the pressed/released bitmasks. Buttons are
// drawn from a fixed enumeration; the wire format and the tick function
// both depend on these exact bit positions.
type Button uint32

const (
	WalkForward Button = 1 << iota
	WalkBackward
	StrafeLeft
	StrafeRight
	Attack
	Jump
	Use
)

// MaxPitchDegrees bounds the accumulated pitch in either direction.
const MaxPitchDegrees = 89.999

// Input is one tick's worth of button edges and orientation deltas. It is
// a value type: the client freezes and clones the live accumulator before
// every tick and clears the live copy immediately after, so the tick
// never observes a different input than the one sent on the wire for the
// same clock.
type Input struct {
	Pressed  uint32  `json:"pressed"`
	Released uint32  `json:"released"`
	PitchDeg float64 `json:"pitch"`
	YawDeg   float64 `json:"yaw"`
}

// SetPressed marks a button as pressed this tick.
func (in *Input) SetPressed(b Button) {
	in.Pressed |= uint32(b)
}

// SetReleased marks a button as released this tick.
func (in *Input) SetReleased(b Button) {
	in.Released |= uint32(b)
}

// SetAxis accumulates a pitch/yaw delta. Deltas accumulate across frames
// until a tick consumes and clears them.
func (in *Input) SetAxis(pitchDelta, yawDelta float64) {
	in.PitchDeg += pitchDelta
	in.YawDeg += yawDelta
}

// Clone returns a value copy, safe to hand to the tick function while the
// live accumulator keeps mutating.
func (in *Input) Clone() Input {
	return *in
}

// Clear resets the accumulator to its zero value in place.
func (in *Input) Clear() {
	*in = Input{}
}

// ApplyButtons folds pressed/released edges into a persistent held-button
// bitfield, with releases received in the same tick overriding presses.
func ApplyButtons(held uint32, in Input) uint32 {
	held |= in.Pressed
	held &^= in.Released
	return held
}

// ClampPitch clamps an accumulated pitch to ±MaxPitchDegrees.
func ClampPitch(pitchDeg float64) float64 {
	if pitchDeg > MaxPitchDegrees {
		return MaxPitchDegrees
	}
	if pitchDeg < -MaxPitchDegrees {
		return -MaxPitchDegrees
	}
	return pitchDeg
}
