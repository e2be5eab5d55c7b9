package telemetry

import (
	"math"
	"testing"

	"github.com/pthm-cable/ecotile/components"
)

func TestComputeStats(t *testing.T) {
	tests := []struct {
		name           string
		values         []float64
		mean, p50, p90 float64
	}{
		{"empty", nil, 0, 0, 0},
		{"single", []float64{5}, 5, 5, 5},
		{"odd", []float64{5, 1, 4, 2, 3}, 3, 3, 5},
		{"ten", []float64{10, 9, 8, 7, 6, 5, 4, 3, 2, 1}, 5.5, 5, 9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mean, p50, p90 := ComputeStats(tt.values)
			if math.Abs(mean-tt.mean) > 1e-9 || p50 != tt.p50 || p90 != tt.p90 {
				t.Errorf("ComputeStats(%v) = %v, %v, %v; want %v, %v, %v",
					tt.values, mean, p50, p90, tt.mean, tt.p50, tt.p90)
			}
		})
	}
}

func TestComputeStatsLeavesInputUnsorted(t *testing.T) {
	values := []float64{3, 1, 2}
	ComputeStats(values)
	if values[0] != 3 || values[1] != 1 || values[2] != 2 {
		t.Errorf("input reordered to %v", values)
	}
}

func TestCollectorFlush(t *testing.T) {
	c := NewCollector(15, 15)

	if c.ShouldFlush(14) {
		t.Error("ShouldFlush(14) = true before the window elapsed")
	}
	if !c.ShouldFlush(15) {
		t.Error("ShouldFlush(15) = false")
	}

	c.RecordBirth(components.KindPrey)
	c.RecordBirth(components.KindPrey)
	c.RecordBirth(components.KindPredator)
	c.RecordDeath(components.KindPrey, CauseEaten)
	c.RecordDeath(components.KindPredator, CauseStarvation)
	c.RecordDeath(components.KindPredator, CauseAge)
	c.RecordEaten(components.KindPredator, components.KindPrey)
	c.RecordEaten(components.KindPredator, components.KindPlant)
	c.RecordEaten(components.KindPrey, components.KindPlant)
	c.RecordExit(components.KindPrey)
	c.RecordEntry(components.KindPredator)
	c.RecordRegrowth(7)

	stats := c.Flush(15, Census{
		Prey: 3, Pred: 2, Plants: 9,
		PreyAges: []float64{1, 2, 3},
		RatePred: 0.4, RatePrey: 0.3,
	})

	checks := []struct {
		name      string
		got, want int
	}{
		{"prey births", stats.PreyBirths, 2},
		{"pred births", stats.PredBirths, 1},
		{"prey eaten deaths", stats.PreyDeathsEaten, 1},
		{"pred starvation", stats.PredDeathsStarvation, 1},
		{"pred age", stats.PredDeathsAge, 1},
		{"prey eaten", stats.PreyEaten, 1},
		{"plants eaten by pred", stats.PlantsEatenPred, 1},
		{"plants eaten by prey", stats.PlantsEatenPrey, 1},
		{"prey exits", stats.PreyExits, 1},
		{"pred entries", stats.PredEntries, 1},
		{"regrown", stats.PlantsRegrown, 7},
		{"plants", stats.PlantCount, 9},
		{"animals", stats.Animals(), 5},
	}
	for _, ch := range checks {
		if ch.got != ch.want {
			t.Errorf("%s = %d, want %d", ch.name, ch.got, ch.want)
		}
	}
	if stats.SimTimeSec != 1 {
		t.Errorf("SimTimeSec = %v, want 1", stats.SimTimeSec)
	}
	if stats.PreyAgeMean != 2 {
		t.Errorf("PreyAgeMean = %v, want 2", stats.PreyAgeMean)
	}

	next := c.Flush(30, Census{})
	if next.WindowStartTick != 15 || next.PreyBirths != 0 || next.PlantsRegrown != 0 {
		t.Errorf("counters not reset: %+v", next)
	}
}
