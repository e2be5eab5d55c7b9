package game

import (
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/ecotile/components"
)

// spawnInitialPopulation creates the starting agents: predators in the
// upper quadrant, prey in the lower quadrant and plants anywhere.
func (g *Game) spawnInitialPopulation() {
	d := g.cfg.Derived
	half := g.rules.Arena / 2

	for i := 0; i < d.InitialPred; i++ {
		g.spawnAnimal(components.KindPredator, g.randomPosition(half, g.rules.Arena))
	}
	for i := 0; i < d.InitialPrey; i++ {
		g.spawnAnimal(components.KindPrey, g.randomPosition(0, half))
	}
	for i := 0; i < d.InitialPlant; i++ {
		g.pop.InsertPlant(g.randomPosition(0, g.rules.Arena))
	}
}

// spawnAnimal creates a newborn: age 0, just fed, base speed.
func (g *Game) spawnAnimal(kind components.Kind, pos components.Position) ecs.Entity {
	return g.pop.InsertAnimal(kind, pos, components.Vitals{Speed: g.speeds.Base})
}

// randomPosition returns a uniform point with both coordinates in [lo, hi).
func (g *Game) randomPosition(lo, hi float64) components.Position {
	return components.Position{
		X: lo + g.rng.Float64()*(hi-lo),
		Y: lo + g.rng.Float64()*(hi-lo),
	}
}
