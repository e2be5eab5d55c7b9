package game

import (
	"context"
	"math"
	"testing"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/ecotile/components"
	"github.com/pthm-cable/ecotile/config"
	"github.com/pthm-cable/ecotile/peer"
	"github.com/pthm-cable/ecotile/systems"
)

func TestPredatorKeepsHeadingAcrossEdge(t *testing.T) {
	g := newTestGame(t, nil, nil)
	e := g.addAnimal(components.KindPredator, 389, 399, 3, 4)
	g.pop.Agent(e).Trail.Push(pos(399, 399))
	g.pop.Relocate(e)

	g.updateMovement()

	if g.pop.Alive(e) {
		t.Fatal("predator still in the arena after crossing the edge")
	}
	if len(g.exitPred) != 1 || len(g.exitPrey) != 0 {
		t.Fatalf("exits = %d pred, %d prey; want 1, 0", len(g.exitPred), len(g.exitPrey))
	}
	m := g.exitPred[0]
	if math.Abs(m.X-409) > 1e-9 || math.Abs(m.Y-399) > 1e-9 {
		t.Errorf("exit at (%v, %v), want (409, 399)", m.X, m.Y)
	}
	if m.Age != 3 || m.Satiety != 4 {
		t.Errorf("exit carries age %d satiety %d, want 3, 4", m.Age, m.Satiety)
	}
	if g.pop.Count(components.KindPredator) != 0 {
		t.Errorf("predator count = %d, want 0", g.pop.Count(components.KindPredator))
	}
}

func TestDeathThresholds(t *testing.T) {
	tests := []struct {
		name     string
		kind     components.Kind
		age, tsf int32
		dies     bool
	}{
		{"predator at meal limit", components.KindPredator, 1, 8, false},
		{"predator starved", components.KindPredator, 1, 9, true},
		{"predator at age limit", components.KindPredator, 15, 0, false},
		{"predator too old", components.KindPredator, 16, 0, true},
		{"prey at meal limit", components.KindPrey, 1, 13, false},
		{"prey starved", components.KindPrey, 1, 14, true},
		{"prey at age limit", components.KindPrey, 20, 0, false},
		{"prey too old", components.KindPrey, 21, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newTestGame(t, nil, nil)
			e := g.addAnimal(tt.kind, 200, 200, tt.age, tt.tsf)
			g.updateDeath()
			if alive := g.pop.Alive(e); alive == tt.dies {
				t.Errorf("alive = %v, want %v", alive, !tt.dies)
			}
		})
	}
}

func TestStarvationTakesPrecedence(t *testing.T) {
	g := newTestGame(t, nil, nil)
	a := g.pop.Agent(g.addAnimal(components.KindPrey, 0, 0, 30, 30))
	if cause, dies := g.deathCause(a); !dies || cause.String() != "starvation" {
		t.Errorf("deathCause() = %v, %v; want starvation", cause, dies)
	}
}

func TestRegrowth(t *testing.T) {
	g := newTestGame(t, nil, nil)
	for i := 0; i < 100; i++ {
		g.pop.InsertPlant(pos(float64(i), float64(i)))
	}

	g.updateRegrowth(4)
	if n := g.pop.Count(components.KindPlant); n != 100 {
		t.Fatalf("regrowth off-period: %d plants, want 100", n)
	}

	g.updateRegrowth(5)
	if n := g.pop.Count(components.KindPlant); n != 102 {
		t.Errorf("regrowth on tick 5: %d plants, want 102", n)
	}
}

func TestRegrowthCountsEveryKind(t *testing.T) {
	g := newTestGame(t, nil, func(c *config.Config) { c.Plants.Divisor = 10 })
	for i := 0; i < 5; i++ {
		g.addAnimal(components.KindPrey, 10, 10, 0, 0)
		g.addAnimal(components.KindPredator, 20, 20, 0, 0)
	}

	g.updateRegrowth(10)
	if n := g.pop.Count(components.KindPlant); n != 1 {
		t.Errorf("plants = %d, want 1", n)
	}
}

func TestPreyFleesAndGivesUpMating(t *testing.T) {
	g := newTestGame(t, nil, nil)
	prey := g.addAnimal(components.KindPrey, 100, 100, 5, 0)
	g.addAnimal(components.KindPredator, 115, 100, 5, 4)

	a := g.pop.Agent(prey)
	if exited := g.movePrey(a, 10); exited {
		t.Fatal("prey left the arena")
	}
	if !a.Vitals.HasReproduced {
		t.Error("fleeing prey may still mate")
	}
	if got := a.Position(); math.Abs(got.X-80) > 1e-9 || math.Abs(got.Y-100) > 1e-9 {
		t.Errorf("prey fled to %+v, want (80, 100)", got)
	}
}

func TestPreyWandersWhenSafe(t *testing.T) {
	g := newTestGame(t, nil, nil)
	prey := g.addAnimal(components.KindPrey, 100, 100, 5, 0)
	g.addAnimal(components.KindPredator, 150, 100, 5, 4)

	a := g.pop.Agent(prey)
	g.movePrey(a, 10)
	if a.Vitals.HasReproduced {
		t.Error("prey out of range marked as reproduced")
	}
	if d := a.Position().Distance(pos(100, 100)); math.Abs(d-10) > 1e-9 {
		t.Errorf("prey moved %v, want 10", d)
	}
}

func TestPredatorChasesAcrossFold(t *testing.T) {
	g := newTestGame(t, nil, nil)
	pred := g.addAnimal(components.KindPredator, 395, 200, 5, 4)
	g.addAnimal(components.KindPrey, 5, 200, 5, 0)

	a := g.pop.Agent(pred)
	g.movePredator(a, 10)

	// The prey is in range through the fold, but the heading still points
	// at its raw coordinates.
	if got := a.Position(); math.Abs(got.X-375) > 1e-9 || math.Abs(got.Y-200) > 1e-9 {
		t.Errorf("predator moved to %+v, want (375, 200)", got)
	}
}

func TestPredatorChasesAtDoubleSpeed(t *testing.T) {
	g := newTestGame(t, nil, nil)
	pred := g.addAnimal(components.KindPredator, 200, 200, 5, 4)
	g.addAnimal(components.KindPrey, 200, 215, 5, 0)

	a := g.pop.Agent(pred)
	g.movePredator(a, 10)
	if got := a.Position(); math.Abs(got.X-200) > 1e-9 || math.Abs(got.Y-220) > 1e-9 {
		t.Errorf("predator moved to %+v, want (200, 220)", got)
	}
}

func TestFeedingRemovesVictimOnce(t *testing.T) {
	g := newTestGame(t, nil, nil)
	first := g.addAnimal(components.KindPredator, 105, 100, 5, 4)
	second := g.addAnimal(components.KindPredator, 95, 100, 5, 4)
	prey := g.addAnimal(components.KindPrey, 100, 100, 5, 4)

	g.updateFeeding()

	if g.pop.Alive(prey) {
		t.Fatal("prey survived two predators in range")
	}
	fed := 0
	for _, tsf := range []int32{
		g.pop.Agent(first).Vitals.TicksSinceFed,
		g.pop.Agent(second).Vitals.TicksSinceFed,
	} {
		if tsf == -1 {
			fed++
		}
	}
	if fed != 1 {
		t.Errorf("%d predators fed on one prey, want 1", fed)
	}
}

func TestFeedingEatsEverythingInRange(t *testing.T) {
	g := newTestGame(t, nil, nil)
	pred := g.addAnimal(components.KindPredator, 100, 100, 5, 4)
	g.addAnimal(components.KindPrey, 108, 100, 5, 4)
	g.pop.InsertPlant(pos(92, 100))
	far := g.pop.InsertPlant(pos(120, 100))

	g.updateFeeding()

	prey, _, plants := g.Counts()
	if prey != 0 || plants != 1 || !g.pop.Alive(far) {
		t.Errorf("after feeding: prey %d plants %d far alive %v", prey, plants, g.pop.Alive(far))
	}
	v := g.pop.Agent(pred).Vitals
	if v.TicksSinceFed != -1 || !v.AtePlant {
		t.Errorf("predator vitals = %+v, want fed and slowed", *v)
	}
}

func TestPlantMealHalvesOneMove(t *testing.T) {
	g := newTestGame(t, nil, nil)
	prey := g.addAnimal(components.KindPrey, 100, 100, 5, 4)
	g.pop.InsertPlant(pos(103, 100))

	g.updateFeeding()
	g.updateSatiety()

	v := g.pop.Agent(prey).Vitals
	if v.TicksSinceFed != 0 {
		t.Errorf("TicksSinceFed = %d after the satiety phase, want 0", v.TicksSinceFed)
	}
	if s := systems.MoveSpeed(components.KindPrey, v, g.speeds); s != 5 {
		t.Errorf("first move after a plant = %v, want 5", s)
	}
	if s := systems.MoveSpeed(components.KindPrey, v, g.speeds); s != 10 {
		t.Errorf("second move = %v, want 10", s)
	}
}

func TestFeedingIgnoresSameKind(t *testing.T) {
	g := newTestGame(t, nil, nil)
	g.addAnimal(components.KindPrey, 100, 100, 5, 4)
	g.addAnimal(components.KindPrey, 101, 100, 5, 4)

	g.updateFeeding()

	if n := g.pop.Count(components.KindPrey); n != 2 {
		t.Errorf("prey = %d, want 2", n)
	}
}

func TestSatietyAgesEveryAnimal(t *testing.T) {
	g := newTestGame(t, nil, nil)
	a := g.addAnimal(components.KindPrey, 100, 100, 5, 3)
	b := g.addAnimal(components.KindPredator, 200, 200, 5, 3)

	g.updateSatiety()

	if got := g.pop.Agent(a).Vitals.TicksSinceFed; got != 4 {
		t.Errorf("prey TicksSinceFed = %d, want 4", got)
	}
	if got := g.pop.Agent(b).Vitals.TicksSinceFed; got != 4 {
		t.Errorf("predator TicksSinceFed = %d, want 4", got)
	}
}

func TestRatesFollowPostFeedingCounts(t *testing.T) {
	g := newTestGame(t, nil, nil)
	g.addAnimal(components.KindPredator, 100, 100, 5, 4)
	g.addAnimal(components.KindPrey, 105, 100, 5, 4)
	g.addAnimal(components.KindPrey, 300, 300, 5, 4)
	g.addAnimal(components.KindPrey, 310, 300, 5, 4)

	g.updateFeeding()
	g.updateRates()

	want := systems.ReproductionRates(1, 2, g.decay)
	if g.Rates() != want {
		t.Errorf("Rates() = %+v, want %+v", g.Rates(), want)
	}
}

func TestReproductionPairsAreExclusive(t *testing.T) {
	tests := []struct {
		adults int
		births int
	}{
		{1, 0},
		{2, 1},
		{3, 1},
		{4, 2},
	}

	for _, tt := range tests {
		g := newTestGame(t, nil, nil)
		for i := 0; i < tt.adults; i++ {
			g.addAnimal(components.KindPrey, 100+float64(i), 100, 5, 0)
		}
		g.rates = components.Rates{Pred: 1, Prey: 1}
		g.rebuildGrid()

		g.updateReproduction()

		if got := g.pop.Count(components.KindPrey) - tt.adults; got != tt.births {
			t.Errorf("%d adults: %d births, want %d", tt.adults, got, tt.births)
		}
		reproduced := 0
		g.scratch = g.pop.Animals(g.scratch[:0])
		for _, e := range g.scratch {
			v := g.pop.Agent(e).Vitals
			if v.HasReproduced {
				reproduced++
			}
			if v.Age == 0 && (v.HasReproduced || v.TicksSinceFed != 0) {
				t.Errorf("newborn vitals = %+v", *v)
			}
		}
		if reproduced != 2*tt.births {
			t.Errorf("%d adults: %d parents marked, want %d", tt.adults, reproduced, 2*tt.births)
		}
	}
}

func TestReproductionRequiresMaturityAndKind(t *testing.T) {
	g := newTestGame(t, nil, nil)
	g.addAnimal(components.KindPrey, 100, 100, 2, 0)
	g.addAnimal(components.KindPrey, 101, 100, 2, 0)
	g.addAnimal(components.KindPredator, 300, 300, 5, 0)
	g.addAnimal(components.KindPrey, 301, 300, 5, 0)
	g.rates = components.Rates{Pred: 1, Prey: 1}
	g.rebuildGrid()

	g.updateReproduction()

	if g.pop.Len() != 4 {
		t.Errorf("population = %d after reproduction, want 4", g.pop.Len())
	}
}

func TestReproductionNeverWithZeroRate(t *testing.T) {
	g := newTestGame(t, nil, nil)
	for i := 0; i < 10; i++ {
		g.addAnimal(components.KindPredator, 100, 100, 5, 0)
	}
	g.rates = components.Rates{Pred: 0, Prey: 1}
	g.rebuildGrid()

	g.updateReproduction()

	if n := g.pop.Count(components.KindPredator); n != 10 {
		t.Errorf("predators = %d, want 10", n)
	}
}

func TestResetPhase(t *testing.T) {
	g := newTestGame(t, nil, nil)
	e := g.addAnimal(components.KindPrey, 100, 100, 5, 0)
	g.pop.Agent(e).Vitals.HasReproduced = true

	g.updateReset()

	v := g.pop.Agent(e).Vitals
	if v.HasReproduced || v.Age != 6 {
		t.Errorf("vitals after reset = %+v", *v)
	}
}

func TestExchangeConservesPopulation(t *testing.T) {
	entering := []peer.Migrant{
		{X: 0, Y: 10, Age: 7, Satiety: 3},
		{X: 20, Y: 0, Age: 1, Satiety: -1},
		{X: 400, Y: 400, Age: 2, Satiety: 0},
	}
	sp := &scriptedPeer{reply: peer.Inbound{Prey: entering}}
	g := newTestGame(t, sp, nil)

	for i := 0; i < 4; i++ {
		g.addAnimal(components.KindPrey, 200, 200, 1, 0)
	}
	g.exitPrey = append(g.exitPrey[:0], peer.Migrant{X: 401, Y: 5}, peer.Migrant{X: -1, Y: 5})

	if err := g.exchange(context.Background()); err != nil {
		t.Fatalf("exchange: %v", err)
	}

	if n := g.pop.Count(components.KindPrey); n != 4+len(entering) {
		t.Errorf("prey after exchange = %d, want %d", n, 4+len(entering))
	}
	if len(sp.sent) != 1 {
		t.Fatalf("peer called %d times, want 1", len(sp.sent))
	}
	out := sp.sent[0]
	if out.RemainingPrey != 4 || out.RemainingPred != 0 || len(out.Prey) != 2 || out.Prey[0].X != 401 {
		t.Errorf("outbound = %+v", out)
	}

	found := false
	g.scratch = g.pop.Animals(g.scratch[:0])
	for _, e := range g.scratch {
		a := g.pop.Agent(e)
		if a.Position() == pos(0, 10) {
			found = true
			if a.Vitals.Age != 7 || a.Vitals.TicksSinceFed != 3 {
				t.Errorf("entered prey vitals = %+v, want age 7 satiety 3", *a.Vitals)
			}
		}
	}
	if !found {
		t.Error("entering prey not placed at (0, 10)")
	}
}

func TestMirrorStepKeepsAnimals(t *testing.T) {
	g := newTestGame(t, nil, nil)
	for i := 0; i < 20; i++ {
		g.addAnimal(components.KindPrey, 1, float64(20*i)+1, 1, 0)
	}

	if err := g.Step(context.Background()); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if n := g.pop.Count(components.KindPrey); n != 20 {
		t.Errorf("prey = %d after a mirrored tick, want 20", n)
	}
	g.pop.Each(func(_ ecs.Entity, _ components.Kind, p components.Position) {
		if p.Outside(g.rules.Arena) {
			t.Errorf("agent left outside the arena at %+v", p)
		}
	})
}
