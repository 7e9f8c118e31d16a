package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplyButtons_ReleaseOverridesPressSameTick(t *testing.T) {
	in := Input{}
	in.SetPressed(WalkForward)
	in.SetReleased(WalkForward)

	held := ApplyButtons(0, in)
	assert.Zero(t, held&uint32(WalkForward), "WalkForward should be unset, held=%b", held)
}

func TestApplyButtons_PressWithoutReleaseStaysSet(t *testing.T) {
	in := Input{}
	in.SetPressed(Jump)

	held := ApplyButtons(0, in)
	assert.NotZero(t, held&uint32(Jump), "Jump should be set, held=%b", held)
}

func TestClampPitch(t *testing.T) {
	cases := []struct {
		in, want float64
	}{
		{1000, MaxPitchDegrees},
		{-1000, -MaxPitchDegrees},
		{10, 10},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, ClampPitch(c.in))
	}
}

func TestInputCloneAndClear(t *testing.T) {
	live := Input{Pressed: 1, PitchDeg: 5}
	frozen := live.Clone()
	live.Clear()

	assert.Equal(t, uint32(1), frozen.Pressed)
	assert.Equal(t, 5.0, frozen.PitchDeg)
	assert.Equal(t, Input{}, live, "live accumulator should be zeroed after Clear")
}
