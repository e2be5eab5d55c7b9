// Package game runs the predator/prey/plant simulation: the population
// store, the ordered tick phases and the hooks that feed telemetry.
package game

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/ecotile/components"
	"github.com/pthm-cable/ecotile/config"
	"github.com/pthm-cable/ecotile/peer"
	"github.com/pthm-cable/ecotile/systems"
	"github.com/pthm-cable/ecotile/telemetry"
)

// Exchanger swaps agents that left the arena for agents entering it.
// It is called exactly once per tick.
type Exchanger interface {
	Exchange(ctx context.Context, out peer.Outbound) (peer.Inbound, error)
}

// Sprite is one agent in a rendered frame.
type Sprite struct {
	Kind components.Kind `json:"kind"`
	X    float64         `json:"x"`
	Y    float64         `json:"y"`
}

// Options configures a new game.
type Options struct {
	Config        *config.Config // nil uses config.Cfg()
	Seed          int64
	RunID         string
	Exchanger     Exchanger // nil wraps the arena onto itself
	LogStats      bool
	OutputDir     string
	SnapshotDir   string
	StatsCallback func(telemetry.WindowStats)
}

// birth is an offspring queued during the reproduction phase.
type birth struct {
	kind components.Kind
	pos  components.Position
}

// Game holds the complete simulation state.
type Game struct {
	cfg     *config.Config
	rng     *rand.Rand
	rngSeed int64
	runID   string

	pop       *Population
	grid      *systems.SpatialGrid
	exchanger Exchanger

	rules  components.Rules
	speeds systems.SpeedTable
	decay  systems.RateDecay
	rates  components.Rates

	tick int32

	// Per-phase scratch buffers
	scratch    []ecs.Entity
	candidates []ecs.Entity
	victims    []ecs.Entity
	births     []birth
	exitPrey   []peer.Migrant
	exitPred   []peer.Migrant
	frame      []Sprite

	// Telemetry
	collector        *telemetry.Collector
	perfCollector    *telemetry.PerfCollector
	outputManager    *telemetry.OutputManager
	bookmarkDetector *telemetry.BookmarkDetector
	logStats         bool
	snapshotDir      string
	statsCallback    func(telemetry.WindowStats)

	checkInvariants bool

	// Graphical front end; nil when headless
	view *viewState
}

// NewGameWithOptions creates a game and spawns the initial population.
func NewGameWithOptions(opts Options) (*Game, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Cfg()
	}

	g := &Game{
		cfg:     cfg,
		rng:     rand.New(rand.NewSource(opts.Seed)),
		rngSeed: opts.Seed,
		runID:   opts.RunID,
		pop:     NewPopulation(),
		grid:    systems.NewSpatialGrid(cfg.Arena.Size, cfg.Arena.CellSize),
		rules: components.Rules{
			Arena:             cfg.Arena.Size,
			PredationRange:    cfg.Ranges.Predation,
			ReproductionRange: cfg.Ranges.Reproduction,
			ReproductionAge:   cfg.Reproduction.Age,
		},
		speeds: systems.SpeedTable{
			Base:        cfg.Speed.Base,
			Tired:       cfg.Speed.Tired,
			Fed:         cfg.Speed.Fed,
			FedDuration: cfg.Speed.FedDuration,
			TiredAge:    cfg.Speed.TiredAge,
		},
		decay: systems.RateDecay{
			Pred: cfg.Reproduction.PredDecay,
			Prey: cfg.Reproduction.PreyDecay,
		},
		exchanger:        opts.Exchanger,
		collector:        telemetry.NewCollector(int32(cfg.Telemetry.WindowTicks), cfg.Clock.TickRateHz),
		perfCollector:    telemetry.NewPerfCollector(cfg.Telemetry.WindowTicks),
		bookmarkDetector: telemetry.NewBookmarkDetector(cfg.Telemetry.WindowTicks),
		logStats:         opts.LogStats,
		snapshotDir:      opts.SnapshotDir,
		statsCallback:    opts.StatsCallback,
		checkInvariants:  cfg.Debug.CheckInvariants,
	}
	if g.exchanger == nil {
		g.exchanger = &peer.Mirror{Arena: cfg.Arena.Size}
	}

	if opts.OutputDir != "" {
		om, err := telemetry.NewOutputManager(opts.OutputDir, cfg.Telemetry.Compress)
		if err != nil {
			return nil, fmt.Errorf("creating output manager: %w", err)
		}
		if err := om.WriteConfig(cfg); err != nil {
			om.Close()
			return nil, fmt.Errorf("writing config snapshot: %w", err)
		}
		g.outputManager = om
	}

	g.spawnInitialPopulation()
	g.updateRates()
	g.buildFrame()

	slog.Info("game created",
		"run_id", g.runID,
		"seed", g.rngSeed,
		"prey", g.pop.Count(components.KindPrey),
		"pred", g.pop.Count(components.KindPredator),
		"plants", g.pop.Count(components.KindPlant),
		"total_ticks", cfg.Derived.TotalTicks,
	)
	return g, nil
}

// Tick returns the number of completed ticks.
func (g *Game) Tick() int32 {
	return g.tick
}

// Terminated reports whether the configured run length has elapsed.
// An empty arena is not terminal.
func (g *Game) Terminated() bool {
	return int(g.tick) >= g.cfg.Derived.TotalTicks
}

// Rates returns the reproduction probabilities of the last tick. Before the
// first tick they reflect the initial population.
func (g *Game) Rates() components.Rates {
	return g.rates
}

// Seed returns the RNG seed.
func (g *Game) Seed() int64 {
	return g.rngSeed
}

// Counts returns the live prey, predator and plant counts.
func (g *Game) Counts() (prey, pred, plants int) {
	return g.pop.Count(components.KindPrey), g.pop.Count(components.KindPredator), g.pop.Count(components.KindPlant)
}

// Frame returns kind and position of every live agent after the last
// tick. The slice is reused by the next tick.
func (g *Game) Frame() []Sprite {
	return g.frame
}

func (g *Game) buildFrame() {
	g.frame = g.frame[:0]
	g.pop.Each(func(_ ecs.Entity, kind components.Kind, pos components.Position) {
		g.frame = append(g.frame, Sprite{Kind: kind, X: pos.X, Y: pos.Y})
	})
}

// PerfStats returns phase timings over the recent window.
func (g *Game) PerfStats() telemetry.PerfStats {
	return g.perfCollector.Stats()
}

// Close flushes and closes telemetry output.
func (g *Game) Close() error {
	if g.outputManager == nil {
		return nil
	}
	return g.outputManager.Close()
}
