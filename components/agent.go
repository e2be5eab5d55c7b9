package components

import (
	"math"
	"math/rand"

	"github.com/mlange-42/ark/ecs"
)

// Rules are the fixed interaction constants agents are tested against.
type Rules struct {
	Arena             float64
	PredationRange    float64
	ReproductionRange float64
	ReproductionAge   int32
}

// Rates are the per-tick reproduction probabilities, recomputed every tick
// from the population.
type Rates struct {
	Pred float64
	Prey float64
}

// For returns the probability that applies when mating with an agent of kind k.
func (r Rates) For(k Kind) float64 {
	if k == KindPrey {
		return r.Prey
	}
	return r.Pred
}

// Agent is a view over one live entity's components.
// Vitals is nil for plants.
type Agent struct {
	Entity ecs.Entity
	Kind   Kind
	Trail  *Trail
	Vitals *Vitals
}

// Position returns the agent's current position.
func (a Agent) Position() Position {
	return a.Trail.Current()
}

// Advance moves the agent; see Trail.Advance.
func (a Agent) Advance(distance, heading, arena float64) bool {
	return a.Trail.Advance(distance, heading, arena)
}

// CanEat reports whether target is within predation range.
// Diet compatibility is checked by the caller with Kind.Eats.
func (a Agent) CanEat(target Agent, rules Rules) bool {
	return WithinSquareRange(a.Position(), rules.PredationRange, target.Position(), rules.Arena)
}

// CanReproduceWith reports whether a and other mate this tick. The
// Bernoulli draw is only taken once the deterministic conditions hold.
// Both agents must be animals; same-kind pairing is checked by the caller.
func (a Agent) CanReproduceWith(other Agent, rules Rules, rates Rates, rng *rand.Rand) bool {
	if !WithinSquareRange(a.Position(), rules.ReproductionRange, other.Position(), rules.Arena) {
		return false
	}
	if a.Vitals.HasReproduced || other.Vitals.HasReproduced {
		return false
	}
	if a.Vitals.Age <= rules.ReproductionAge || other.Vitals.Age <= rules.ReproductionAge {
		return false
	}
	return rng.Float64() < rates.For(other.Kind)
}

// RandomHeading samples a heading uniformly in [0, 2π).
func RandomHeading(rng *rand.Rand) float64 {
	return 2 * math.Pi * rng.Float64()
}
