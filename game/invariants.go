package game

import (
	"fmt"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/ecotile/components"
)

// InvariantError describes population state that the phase ordering
// should make impossible. It is raised with panic when invariant checks
// are enabled.
type InvariantError struct {
	Tick   int32
	Check  string
	Entity ecs.Entity
	Detail string
}

func (e InvariantError) Error() string {
	return fmt.Sprintf("invariant %q violated at tick %d (entity %v): %s", e.Check, e.Tick, e.Entity, e.Detail)
}

// checkAnimals verifies per-animal fields. minSatiety is the lowest
// ticksSinceFed allowed at this point of the tick: -1 right after feeding,
// 0 once satiety has aged.
func (g *Game) checkAnimals(stage string, minSatiety int32, reproducedAllowed bool) {
	if !g.checkInvariants {
		return
	}
	g.scratch = g.pop.Animals(g.scratch[:0])
	for _, e := range g.scratch {
		a := g.pop.Agent(e)
		switch {
		case a.Vitals.Age < 0:
			g.violate(stage, e, fmt.Sprintf("%s age %d", a.Kind, a.Vitals.Age))
		case a.Vitals.TicksSinceFed < minSatiety:
			g.violate(stage, e, fmt.Sprintf("%s ticksSinceFed %d below %d", a.Kind, a.Vitals.TicksSinceFed, minSatiety))
		case !reproducedAllowed && a.Vitals.HasReproduced:
			g.violate(stage, e, fmt.Sprintf("%s still marked as reproduced", a.Kind))
		case a.Trail.Count == 0:
			g.violate(stage, e, "empty trail")
		}
	}
}

// checkPopulation verifies the store bookkeeping against the ECS world.
func (g *Game) checkPopulation(stage string) {
	if !g.checkInvariants {
		return
	}
	var seen [components.NumKinds]int
	g.pop.Each(func(e ecs.Entity, kind components.Kind, _ components.Position) {
		seen[kind]++
	})
	g.scratch = g.pop.Snapshot(g.scratch[:0])
	for _, e := range g.scratch {
		a := g.pop.Agent(e)
		if a.Kind == components.KindPlant && a.Trail.Count != 1 {
			g.violate(stage, e, fmt.Sprintf("plant has %d trail points", a.Trail.Count))
		}
	}
	for k := components.Kind(0); k < components.NumKinds; k++ {
		if seen[k] != g.pop.Count(k) {
			g.violate(stage, ecs.Entity{}, fmt.Sprintf("%s count %d, world holds %d", k, g.pop.Count(k), seen[k]))
		}
		if n := g.pop.nearest[k].Len(); n != seen[k] {
			g.violate(stage, ecs.Entity{}, fmt.Sprintf("%s nearest index holds %d of %d", k, n, seen[k]))
		}
	}
}

func (g *Game) violate(stage string, e ecs.Entity, detail string) {
	panic(InvariantError{Tick: g.tick, Check: stage, Entity: e, Detail: detail})
}
