package game

import (
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/ecotile/components"
	"github.com/pthm-cable/ecotile/ui"
)

// AgentAt returns the live agent of any kind closest to p, if it lies
// within radius.
func (g *Game) AgentAt(p components.Position, radius float64) (ecs.Entity, bool) {
	var (
		best     ecs.Entity
		bestDist = radius
		found    bool
	)
	for k := components.Kind(0); k < components.NumKinds; k++ {
		e, ok := g.pop.nearest[k].Nearest(p, ecs.Entity{})
		if !ok {
			continue
		}
		if d := p.Distance(g.pop.Position(e)); d <= bestDist {
			best, bestDist, found = e, d, true
		}
	}
	return best, found
}

// describe builds the inspector view of a live agent.
func (g *Game) describe(e ecs.Entity) ui.AgentData {
	a := g.pop.Agent(e)
	pos := a.Position()
	d := ui.AgentData{Kind: a.Kind.String(), X: pos.X, Y: pos.Y}
	if a.Vitals == nil {
		return d
	}

	life := g.cfg.Lifespan
	d.IsAnimal = true
	d.Age = a.Vitals.Age
	d.TicksSinceFed = a.Vitals.TicksSinceFed
	d.Speed = a.Vitals.Speed
	d.HasReproduced = a.Vitals.HasReproduced
	d.MaxAge, d.LastMeal = life.PreyAge, life.PreyLastMeal
	if a.Kind == components.KindPredator {
		d.MaxAge, d.LastMeal = life.PredatorAge, life.PredatorLastMeal
	}
	return d
}
