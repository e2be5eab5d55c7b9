package game

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/pthm-cable/ecotile/components"
	"github.com/pthm-cable/ecotile/telemetry"
)

// flushTelemetry checks if the stats window should be flushed and handles bookmarks.
func (g *Game) flushTelemetry() {
	if !g.collector.ShouldFlush(g.tick) {
		return
	}

	stats := g.collector.Flush(g.tick, g.census())
	perfStats := g.perfCollector.Stats()

	if g.statsCallback != nil {
		g.statsCallback(stats)
	}

	if g.logStats {
		stats.LogStats()
		perfStats.LogStats()
	}

	if g.outputManager != nil {
		if err := g.outputManager.WriteTelemetry(stats); err != nil {
			slog.Error("failed to write telemetry", "error", err)
		}
		if err := g.outputManager.WritePerf(perfStats, stats.WindowEndTick); err != nil {
			slog.Error("failed to write perf", "error", err)
		}
	}

	for _, bm := range g.bookmarkDetector.Check(stats) {
		if g.logStats {
			bm.LogBookmark()
		}
		if g.outputManager != nil {
			if err := g.outputManager.WriteBookmark(bm); err != nil {
				slog.Error("failed to write bookmark", "error", err)
			}
		}
		if g.snapshotDir != "" {
			g.saveSnapshot(&bm)
		}
	}
}

// census samples counts and the age and hunger distributions.
func (g *Game) census() telemetry.Census {
	c := telemetry.Census{
		Prey:     g.pop.Count(components.KindPrey),
		Pred:     g.pop.Count(components.KindPredator),
		Plants:   g.pop.Count(components.KindPlant),
		RatePred: g.rates.Pred,
		RatePrey: g.rates.Prey,
	}
	g.scratch = g.pop.Animals(g.scratch[:0])
	for _, e := range g.scratch {
		a := g.pop.Agent(e)
		age, hunger := float64(a.Vitals.Age), float64(a.Vitals.TicksSinceFed)
		if a.Kind == components.KindPredator {
			c.PredAges = append(c.PredAges, age)
			c.PredHunger = append(c.PredHunger, hunger)
		} else {
			c.PreyAges = append(c.PreyAges, age)
			c.PreyHunger = append(c.PreyHunger, hunger)
		}
	}
	return c
}

// saveSnapshot creates and saves a snapshot to disk.
func (g *Game) saveSnapshot(bookmark *telemetry.Bookmark) {
	path, err := telemetry.SaveSnapshot(g.Snapshot(bookmark), g.snapshotDir)
	if err != nil {
		slog.Error("failed to save snapshot", "error", err)
		return
	}
	slog.Info("snapshot saved", "path", path, "tick", g.tick)
}

// Snapshot captures the current population. bookmark may be nil.
func (g *Game) Snapshot(bookmark *telemetry.Bookmark) *telemetry.Snapshot {
	s := &telemetry.Snapshot{
		Version:  telemetry.SnapshotVersion,
		RunID:    g.runID,
		RNGSeed:  g.rngSeed,
		Arena:    g.rules.Arena,
		Tick:     g.tick,
		Bookmark: bookmark,
	}

	g.scratch = g.pop.Snapshot(g.scratch[:0])
	for _, e := range g.scratch {
		a := g.pop.Agent(e)
		pos := a.Position()
		state := telemetry.AgentState{Kind: a.Kind, X: pos.X, Y: pos.Y}
		if a.Vitals != nil {
			state.Age = a.Vitals.Age
			state.TicksSinceFed = a.Vitals.TicksSinceFed
		}
		s.Agents = append(s.Agents, state)
	}
	return s
}

// ErrArenaMismatch is returned when a snapshot was taken on an arena of a
// different size.
var ErrArenaMismatch = errors.New("snapshot arena size differs")

// Restore replaces the population with the agents of s. Trails restart
// at the saved positions and rates are recomputed from the restored counts.
// The current population is left untouched if s does not fit this arena.
func (g *Game) Restore(s *telemetry.Snapshot) error {
	if s.Arena != g.rules.Arena {
		return fmt.Errorf("%w: snapshot %v, arena %v", ErrArenaMismatch, s.Arena, g.rules.Arena)
	}
	for i, a := range s.Agents {
		if (components.Position{X: a.X, Y: a.Y}).Outside(g.rules.Arena) {
			return fmt.Errorf("snapshot agent %d at (%v, %v) lies outside the arena", i, a.X, a.Y)
		}
	}

	g.scratch = g.pop.Snapshot(g.scratch[:0])
	for _, e := range g.scratch {
		g.pop.Remove(e)
	}
	g.scratch = g.scratch[:0]

	for _, a := range s.Agents {
		pos := components.Position{X: a.X, Y: a.Y}
		if a.Kind == components.KindPlant {
			g.pop.InsertPlant(pos)
			continue
		}
		g.pop.InsertAnimal(a.Kind, pos, components.Vitals{
			Age:           a.Age,
			TicksSinceFed: a.TicksSinceFed,
			Speed:         g.speeds.Base,
		})
	}
	g.tick = s.Tick
	g.updateRates()
	g.buildFrame()
	return nil
}
