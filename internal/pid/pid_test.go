package pid

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUpdateComputesTerms(t *testing.T) {
	c := New(1, 1, 1)

	calc := c.Update(2) // pError=2, iError=2, dError=0 (no prior sample)
	assert.Equal(t, 4.0, calc)

	calc = c.Update(3) // pError=3, iError=5, dError=1
	assert.Equal(t, 9.0, calc)
}

func TestResetClearsState(t *testing.T) {
	c := New(1, 1, 1)
	c.Update(5)
	c.Reset()

	calc := c.Update(2)
	assert.Equal(t, 4.0, calc, "after Reset, Update(2) should behave as if fresh")
}

func TestScaleFromCalcSaturation(t *testing.T) {
	cases := []struct {
		calc, want float64
	}{
		{-5, 0.5},
		{-1, 0.5},
		{-0.5, 0.75},
		{0, 1},
		{0.5, 1.5},
		{1, 2},
		{5, 2},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, ScaleFromCalc(c.calc))
	}
}
