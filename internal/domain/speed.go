package domain

import "math"

// Playback rate bounds and step size. Every speed that is stored or applied
// goes through ClampSpeed first.
const (
	MinSpeed  = 0.1
	MaxSpeed  = 5.0
	SpeedStep = 0.1
)

// ClampSpeed rounds a rate to one decimal place and clamps it to the
// supported range. Use it where raw user or page input enters the system.
func ClampSpeed(v float64) float64 {
	return BoundSpeed(math.Round(v*10) / 10)
}

// BoundSpeed clamps a rate to the supported range without re-rounding.
// Stored values keep their exact precision on the way in and out; a
// remembered 0.75 must resolve to 0.75, not 0.8.
func BoundSpeed(v float64) float64 {
	if v < MinSpeed {
		return MinSpeed
	}
	if v > MaxSpeed {
		return MaxSpeed
	}
	return v
}
