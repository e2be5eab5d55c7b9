package game

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/pthm-cable/ecotile/components"
	"github.com/pthm-cable/ecotile/peer"
	"github.com/pthm-cable/ecotile/systems"
	"github.com/pthm-cable/ecotile/telemetry"
)

// Step advances the simulation by one tick. Phases run in a fixed order
// and each completes over the whole population before the next starts.
// A failed peer exchange aborts the tick and must end the run: skipping it
// would leave the two arenas disagreeing about their populations.
func (g *Game) Step(ctx context.Context) error {
	n := g.tick + 1
	g.perfCollector.StartTick()

	g.perfCollector.StartPhase(telemetry.PhaseDeath)
	g.updateDeath()

	g.perfCollector.StartPhase(telemetry.PhaseRegrowth)
	g.updateRegrowth(n)

	g.perfCollector.StartPhase(telemetry.PhaseMovement)
	g.updateMovement()

	g.perfCollector.StartPhase(telemetry.PhaseExchange)
	if err := g.exchange(ctx); err != nil {
		return fmt.Errorf("tick %d: %w", n, err)
	}

	g.perfCollector.StartPhase(telemetry.PhaseFeeding)
	g.updateFeeding()
	g.checkAnimals("feeding", -1, true)

	g.perfCollector.StartPhase(telemetry.PhaseSatiety)
	g.updateSatiety()

	g.perfCollector.StartPhase(telemetry.PhaseRates)
	g.updateRates()

	g.perfCollector.StartPhase(telemetry.PhaseReproduction)
	g.updateReproduction()

	g.perfCollector.StartPhase(telemetry.PhaseReset)
	g.updateReset()
	g.tick = n

	g.perfCollector.StartPhase(telemetry.PhaseTelemetry)
	g.buildFrame()
	g.flushTelemetry()

	g.perfCollector.EndTick()

	g.checkAnimals("end of tick", 0, false)
	g.checkPopulation("end of tick")
	return nil
}

// updateDeath removes animals that are too old or starved.
func (g *Game) updateDeath() {
	g.scratch = g.pop.Animals(g.scratch[:0])
	for _, e := range g.scratch {
		a := g.pop.Agent(e)
		if cause, dies := g.deathCause(a); dies {
			g.collector.RecordDeath(a.Kind, cause)
			g.pop.Remove(e)
		}
	}
}

func (g *Game) deathCause(a components.Agent) (telemetry.DeathCause, bool) {
	life := g.cfg.Lifespan
	maxAge, lastMeal := life.PreyAge, life.PreyLastMeal
	if a.Kind == components.KindPredator {
		maxAge, lastMeal = life.PredatorAge, life.PredatorLastMeal
	}
	switch {
	case a.Vitals.TicksSinceFed > lastMeal:
		return telemetry.CauseStarvation, true
	case a.Vitals.Age > maxAge:
		return telemetry.CauseAge, true
	}
	return 0, false
}

// updateRegrowth spawns population/divisor plants every period ticks,
// measured after the death phase.
func (g *Game) updateRegrowth(n int32) {
	plants := g.cfg.Plants
	if int(n)%plants.Period != 0 {
		return
	}
	count := g.pop.Len() / plants.Divisor
	for i := 0; i < count; i++ {
		g.pop.InsertPlant(g.randomPosition(0, g.rules.Arena))
	}
	g.collector.RecordRegrowth(count)
}

// updateMovement moves every animal once. Animals that land outside the
// arena are removed and queued for the exchange in detection order.
func (g *Game) updateMovement() {
	g.exitPrey = g.exitPrey[:0]
	g.exitPred = g.exitPred[:0]

	g.scratch = g.pop.Animals(g.scratch[:0])
	for _, e := range g.scratch {
		a := g.pop.Agent(e)
		speed := systems.MoveSpeed(a.Kind, a.Vitals, g.speeds)

		var exited bool
		if a.Kind == components.KindPredator {
			exited = g.movePredator(a, speed)
		} else {
			exited = g.movePrey(a, speed)
		}

		if !exited {
			g.pop.Relocate(e)
			continue
		}

		pos := a.Position()
		m := peer.Migrant{X: pos.X, Y: pos.Y, Age: a.Vitals.Age, Satiety: a.Vitals.TicksSinceFed}
		if a.Kind == components.KindPredator {
			g.exitPred = append(g.exitPred, m)
		} else {
			g.exitPrey = append(g.exitPrey, m)
		}
		g.collector.RecordExit(a.Kind)
		g.pop.Remove(e)
	}
}

// movePredator chases the nearest prey when it is within twice the
// current speed, otherwise keeps its previous heading.
func (g *Game) movePredator(a components.Agent, speed float64) bool {
	cur := a.Position()
	if prey, ok := g.pop.Nearest(a.Entity, components.KindPrey); ok {
		target := g.pop.Position(prey)
		if components.WithinSquareRange(cur, 2*speed, target, g.rules.Arena) {
			return a.Advance(2*speed, cur.Bearing(target), g.rules.Arena)
		}
	}
	if prev, ok := a.Trail.Previous(); ok {
		return a.Advance(speed, math.Pi+cur.Bearing(prev), g.rules.Arena)
	}
	return a.Advance(speed, components.RandomHeading(g.rng), g.rules.Arena)
}

// movePrey flees the nearest predator within twice the current speed,
// giving up mating for this tick, otherwise wanders.
func (g *Game) movePrey(a components.Agent, speed float64) bool {
	cur := a.Position()
	if pred, ok := g.pop.Nearest(a.Entity, components.KindPredator); ok {
		threat := g.pop.Position(pred)
		if components.WithinSquareRange(cur, 2*speed, threat, g.rules.Arena) {
			a.Vitals.HasReproduced = true
			return a.Advance(2*speed, math.Pi+cur.Bearing(threat), g.rules.Arena)
		}
	}
	return a.Advance(speed, components.RandomHeading(g.rng), g.rules.Arena)
}

// exchange hands this tick's exits to the peer and inserts what it
// returns at the supplied positions, ages and satiety counters.
func (g *Game) exchange(ctx context.Context) error {
	out := peer.Outbound{
		RemainingPrey: g.pop.Count(components.KindPrey),
		RemainingPred: g.pop.Count(components.KindPredator),
		Prey:          g.exitPrey,
		Pred:          g.exitPred,
	}
	in, err := g.exchanger.Exchange(ctx, out)
	if err != nil {
		return err
	}
	slog.Debug("peer exchange",
		"exit_prey", len(out.Prey), "exit_pred", len(out.Pred),
		"enter_prey", len(in.Prey), "enter_pred", len(in.Pred),
	)

	g.admit(components.KindPrey, in.Prey)
	g.admit(components.KindPredator, in.Pred)
	return nil
}

func (g *Game) admit(kind components.Kind, entries []peer.Migrant) {
	for _, m := range entries {
		g.pop.InsertAnimal(kind, components.Position{X: m.X, Y: m.Y}, components.Vitals{
			Age:           m.Age,
			TicksSinceFed: m.Satiety,
			Speed:         g.speeds.Base,
		})
		g.collector.RecordEntry(kind)
	}
}

// updateFeeding lets predators eat prey and plants, and prey eat plants,
// within predation range. Eaten agents disappear at once, so later eaters
// in the same phase no longer see them.
func (g *Game) updateFeeding() {
	g.rebuildGrid()

	g.scratch = g.pop.Animals(g.scratch[:0])
	for _, e := range g.scratch {
		if !g.pop.Alive(e) {
			continue
		}
		eater := g.pop.Agent(e)

		g.candidates = g.grid.QuerySquareInto(g.candidates[:0], eater.Position(), g.rules.PredationRange)
		g.victims = g.victims[:0]
		atePlant := false
		for _, c := range g.candidates {
			if c == e || !g.pop.Alive(c) {
				continue
			}
			target := g.pop.Agent(c)
			if !eater.Kind.Eats(target.Kind) || !eater.CanEat(target, g.rules) {
				continue
			}
			g.victims = append(g.victims, c)
			if target.Kind == components.KindPlant {
				atePlant = true
			}
		}
		if len(g.victims) == 0 {
			continue
		}

		eaterKind := eater.Kind
		for _, v := range g.victims {
			kind := g.pop.Kind(v)
			g.collector.RecordEaten(eaterKind, kind)
			if kind.IsAnimal() {
				g.collector.RecordDeath(kind, telemetry.CauseEaten)
			}
			g.pop.Remove(v)
		}

		// Removals may have moved the eater's components.
		vitals := g.pop.Agent(e).Vitals
		vitals.TicksSinceFed = -1
		if atePlant {
			vitals.AtePlant = true
		}
	}
}

// rebuildGrid indexes every live agent by position.
func (g *Game) rebuildGrid() {
	g.grid.Clear()
	g.scratch = g.pop.Snapshot(g.scratch[:0])
	for _, e := range g.scratch {
		g.grid.Insert(e, g.pop.Position(e))
	}
}

// updateSatiety ages every animal's ticksSinceFed, so an animal that just
// ate sits at 0.
func (g *Game) updateSatiety() {
	g.scratch = g.pop.Animals(g.scratch[:0])
	for _, e := range g.scratch {
		g.pop.Agent(e).Vitals.TicksSinceFed++
	}
}

// updateRates recomputes the reproduction probabilities from the
// post-feeding counts.
func (g *Game) updateRates() {
	g.rates = systems.ReproductionRates(
		g.pop.Count(components.KindPredator),
		g.pop.Count(components.KindPrey),
		g.decay,
	)
}

// updateReproduction pairs animals of the same kind. Each successful pair
// produces one offspring at the initiating parent's position and both
// parents are locked out for the rest of the tick. Offspring are inserted
// after the pass; at age 0 they could not have mated anyway.
func (g *Game) updateReproduction() {
	// Positions have not changed since feeding; only removals happened,
	// and the Alive check filters those.
	g.births = g.births[:0]

	g.scratch = g.pop.Animals(g.scratch[:0])
	for _, e := range g.scratch {
		a := g.pop.Agent(e)
		if a.Vitals.HasReproduced || a.Vitals.Age <= g.rules.ReproductionAge {
			continue
		}

		g.candidates = g.grid.QuerySquareInto(g.candidates[:0], a.Position(), g.rules.ReproductionRange)
		for _, c := range g.candidates {
			if c == e || !g.pop.Alive(c) || g.pop.Kind(c) != a.Kind {
				continue
			}
			other := g.pop.Agent(c)
			if !a.CanReproduceWith(other, g.rules, g.rates, g.rng) {
				continue
			}
			a.Vitals.HasReproduced = true
			other.Vitals.HasReproduced = true
			g.births = append(g.births, birth{kind: a.Kind, pos: a.Position()})
			break
		}
	}

	for _, b := range g.births {
		g.spawnAnimal(b.kind, b.pos)
		g.collector.RecordBirth(b.kind)
	}
}

// updateReset clears the mating lock and ages every animal.
func (g *Game) updateReset() {
	g.scratch = g.pop.Animals(g.scratch[:0])
	for _, e := range g.scratch {
		v := g.pop.Agent(e).Vitals
		v.HasReproduced = false
		v.Age++
	}
}
