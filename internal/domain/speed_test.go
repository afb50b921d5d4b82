package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClampSpeed_Range(t *testing.T) {
	inputs := []float64{-3, 0, 0.04, 0.1, 0.15, 1.0, 1.25, 2.719, 4.99, 5.0, 5.1, 100}
	for _, in := range inputs {
		out := ClampSpeed(in)
		assert.GreaterOrEqual(t, out, MinSpeed, "input %v", in)
		assert.LessOrEqual(t, out, MaxSpeed, "input %v", in)

		// Multiple of 0.1 within floating-point tolerance.
		scaled := out * 10
		assert.InDelta(t, math.Round(scaled), scaled, 1e-9, "input %v", in)
	}
}

func TestBoundSpeed_KeepsPrecision(t *testing.T) {
	// Stored values are bounded, never re-rounded.
	assert.Equal(t, 0.75, BoundSpeed(0.75))
	assert.Equal(t, 1.75, BoundSpeed(1.75))
	assert.Equal(t, 1.333, BoundSpeed(1.333))
	assert.Equal(t, MinSpeed, BoundSpeed(0.04))
	assert.Equal(t, MaxSpeed, BoundSpeed(7.33))
}

func TestClampSpeed_Rounding(t *testing.T) {
	assert.Equal(t, 1.3, ClampSpeed(1.25))
	assert.Equal(t, 1.2, ClampSpeed(1.24))
	assert.Equal(t, 0.1, ClampSpeed(0.0))
	assert.Equal(t, 0.1, ClampSpeed(-2))
	assert.Equal(t, 5.0, ClampSpeed(7.5))
	assert.Equal(t, 2.0, ClampSpeed(2.0000001))
}
