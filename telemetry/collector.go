package telemetry

import "github.com/pthm-cable/ecotile/components"

// Collector accumulates events within time windows and produces WindowStats.
type Collector struct {
	windowDurationTicks int32
	tickRateHz          float64

	// Current window tracking
	windowStartTick int32

	// Event counters for current window, indexed by kind
	births  [components.NumKinds]int
	deaths  [components.NumKinds][numCauses]int
	exits   [components.NumKinds]int
	entries [components.NumKinds]int

	preyEaten   int
	plantsEaten [components.NumKinds]int // by eater kind
	regrown     int
}

// NewCollector creates a new stats collector flushing every windowTicks ticks.
// tickRateHz converts ticks to simulated seconds.
func NewCollector(windowTicks int32, tickRateHz float64) *Collector {
	if windowTicks < 1 {
		windowTicks = 1
	}
	return &Collector{
		windowDurationTicks: windowTicks,
		tickRateHz:          tickRateHz,
	}
}

// RecordBirth records an offspring of kind.
func (c *Collector) RecordBirth(kind components.Kind) {
	c.births[kind]++
}

// RecordDeath records an animal of kind dying of cause.
func (c *Collector) RecordDeath(kind components.Kind, cause DeathCause) {
	c.deaths[kind][cause]++
}

// RecordEaten records eater consuming an agent of kind victim.
func (c *Collector) RecordEaten(eater, victim components.Kind) {
	if victim == components.KindPlant {
		c.plantsEaten[eater]++
		return
	}
	c.preyEaten++
}

// RecordExit records an animal leaving across the arena edge.
func (c *Collector) RecordExit(kind components.Kind) {
	c.exits[kind]++
}

// RecordEntry records an animal arriving from the peer.
func (c *Collector) RecordEntry(kind components.Kind) {
	c.entries[kind]++
}

// RecordRegrowth records n plants spawned by regrowth.
func (c *Collector) RecordRegrowth(n int) {
	c.regrown += n
}

// ShouldFlush returns true if enough ticks have passed to flush the window.
func (c *Collector) ShouldFlush(currentTick int32) bool {
	return currentTick-c.windowStartTick >= c.windowDurationTicks
}

// Census is the population sampled at the end of a window.
type Census struct {
	Prey, Pred, Plants int

	PreyAges, PredAges     []float64
	PreyHunger, PredHunger []float64 // ticksSinceFed

	RatePred, RatePrey float64
}

// Flush produces a WindowStats and resets counters for the next window.
func (c *Collector) Flush(currentTick int32, census Census) WindowStats {
	prey, pred := components.KindPrey, components.KindPredator

	stats := WindowStats{
		WindowStartTick: c.windowStartTick,
		WindowEndTick:   currentTick,

		PreyCount:  census.Prey,
		PredCount:  census.Pred,
		PlantCount: census.Plants,

		PreyBirths: c.births[prey],
		PredBirths: c.births[pred],

		PreyDeathsAge:        c.deaths[prey][CauseAge],
		PreyDeathsStarvation: c.deaths[prey][CauseStarvation],
		PreyDeathsEaten:      c.deaths[prey][CauseEaten],
		PredDeathsAge:        c.deaths[pred][CauseAge],
		PredDeathsStarvation: c.deaths[pred][CauseStarvation],

		PreyEaten:       c.preyEaten,
		PlantsEatenPrey: c.plantsEaten[prey],
		PlantsEatenPred: c.plantsEaten[pred],
		PlantsRegrown:   c.regrown,

		PreyExits:   c.exits[prey],
		PredExits:   c.exits[pred],
		PreyEntries: c.entries[prey],
		PredEntries: c.entries[pred],

		RatePred: census.RatePred,
		RatePrey: census.RatePrey,
	}
	if c.tickRateHz > 0 {
		stats.SimTimeSec = float64(currentTick) / c.tickRateHz
	}

	stats.PreyAgeMean, stats.PreyAgeP50, stats.PreyAgeP90 = ComputeStats(census.PreyAges)
	stats.PredAgeMean, stats.PredAgeP50, stats.PredAgeP90 = ComputeStats(census.PredAges)
	stats.PreyHungerMean, stats.PreyHungerP50, stats.PreyHungerP90 = ComputeStats(census.PreyHunger)
	stats.PredHungerMean, stats.PredHungerP50, stats.PredHungerP90 = ComputeStats(census.PredHunger)

	// Reset for next window
	c.windowStartTick = currentTick
	c.births = [components.NumKinds]int{}
	c.deaths = [components.NumKinds][numCauses]int{}
	c.exits = [components.NumKinds]int{}
	c.entries = [components.NumKinds]int{}
	c.preyEaten = 0
	c.plantsEaten = [components.NumKinds]int{}
	c.regrown = 0

	return stats
}
