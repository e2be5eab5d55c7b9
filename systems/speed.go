package systems

import "github.com/pthm-cable/ecotile/components"

// SpeedTable holds the movement distances per tick.
type SpeedTable struct {
	Base        float64
	Tired       float64
	Fed         float64
	FedDuration int32 // predators move at Fed while ticksSinceFed < FedDuration
	TiredAge    int32 // predators move at Tired once ticksSinceFed >= TiredAge
}

// BaseSpeed returns the speed of an animal before the post-meal halving.
// Prey always use the base speed.
func BaseSpeed(kind components.Kind, ticksSinceFed int32, t SpeedTable) float64 {
	if kind != components.KindPredator {
		return t.Base
	}
	switch {
	case ticksSinceFed < t.FedDuration:
		return t.Fed
	case ticksSinceFed < t.TiredAge:
		return t.Base
	default:
		return t.Tired
	}
}

// MoveSpeed returns the speed for this tick's move and clears the
// post-plant flag, which halves exactly one move.
func MoveSpeed(kind components.Kind, v *components.Vitals, t SpeedTable) float64 {
	speed := BaseSpeed(kind, v.TicksSinceFed, t)
	if v.AtePlant {
		speed /= 2
		v.AtePlant = false
	}
	v.Speed = speed
	return speed
}
