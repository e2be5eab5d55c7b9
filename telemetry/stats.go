package telemetry

import (
	"log/slog"
	"slices"

	"gonum.org/v1/gonum/stat"
)

// WindowStats holds aggregated statistics for a time window.
type WindowStats struct {
	WindowStartTick int32   `csv:"-"`
	WindowEndTick   int32   `csv:"window_end"`
	SimTimeSec      float64 `csv:"sim_time"`

	// Population counts at window end
	PreyCount  int `csv:"prey"`
	PredCount  int `csv:"pred"`
	PlantCount int `csv:"plants"`

	// Events during window
	PreyBirths           int `csv:"prey_births"`
	PredBirths           int `csv:"pred_births"`
	PreyDeathsAge        int `csv:"prey_deaths_age"`
	PreyDeathsStarvation int `csv:"prey_deaths_starvation"`
	PreyDeathsEaten      int `csv:"prey_deaths_eaten"`
	PredDeathsAge        int `csv:"pred_deaths_age"`
	PredDeathsStarvation int `csv:"pred_deaths_starvation"`

	// Feeding
	PreyEaten       int `csv:"prey_eaten"`
	PlantsEatenPrey int `csv:"plants_eaten_prey"`
	PlantsEatenPred int `csv:"plants_eaten_pred"`
	PlantsRegrown   int `csv:"plants_regrown"`

	// Migration across the arena edge
	PreyExits   int `csv:"prey_exits"`
	PredExits   int `csv:"pred_exits"`
	PreyEntries int `csv:"prey_entries"`
	PredEntries int `csv:"pred_entries"`

	// Age and hunger distribution (sampled at window end)
	PreyAgeMean    float64 `csv:"prey_age_mean"`
	PreyAgeP50     float64 `csv:"prey_age_p50"`
	PreyAgeP90     float64 `csv:"prey_age_p90"`
	PredAgeMean    float64 `csv:"pred_age_mean"`
	PredAgeP50     float64 `csv:"pred_age_p50"`
	PredAgeP90     float64 `csv:"pred_age_p90"`
	PreyHungerMean float64 `csv:"prey_hunger_mean"`
	PreyHungerP50  float64 `csv:"prey_hunger_p50"`
	PreyHungerP90  float64 `csv:"prey_hunger_p90"`
	PredHungerMean float64 `csv:"pred_hunger_mean"`
	PredHungerP50  float64 `csv:"pred_hunger_p50"`
	PredHungerP90  float64 `csv:"pred_hunger_p90"`

	// Reproduction probabilities at window end
	RatePred float64 `csv:"rate_pred"`
	RatePrey float64 `csv:"rate_prey"`
}

// Animals returns prey plus predators.
func (s WindowStats) Animals() int {
	return s.PreyCount + s.PredCount
}

// ComputeStats returns the mean and the empirical median and 90th
// percentile of values. An empty slice yields zeros. values is not
// modified.
func ComputeStats(values []float64) (mean, p50, p90 float64) {
	if len(values) == 0 {
		return 0, 0, 0
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)

	mean = stat.Mean(sorted, nil)
	p50 = stat.Quantile(0.5, stat.Empirical, sorted, nil)
	p90 = stat.Quantile(0.9, stat.Empirical, sorted, nil)
	return mean, p50, p90
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("window_start", int(s.WindowStartTick)),
		slog.Int("window_end", int(s.WindowEndTick)),
		slog.Float64("sim_time", s.SimTimeSec),
		slog.Int("prey", s.PreyCount),
		slog.Int("pred", s.PredCount),
		slog.Int("plants", s.PlantCount),
		slog.Int("prey_births", s.PreyBirths),
		slog.Int("pred_births", s.PredBirths),
		slog.Int("prey_eaten", s.PreyEaten),
		slog.Int("prey_exits", s.PreyExits),
		slog.Int("pred_exits", s.PredExits),
		slog.Int("prey_entries", s.PreyEntries),
		slog.Int("pred_entries", s.PredEntries),
		slog.Float64("rate_pred", s.RatePred),
		slog.Float64("rate_prey", s.RatePrey),
	)
}

// LogStats logs the window stats using slog.
func (s WindowStats) LogStats() {
	slog.Info("stats",
		"window_end", s.WindowEndTick,
		"sim_time", s.SimTimeSec,
		"prey", s.PreyCount,
		"pred", s.PredCount,
		"plants", s.PlantCount,
		"prey_births", s.PreyBirths,
		"pred_births", s.PredBirths,
		"prey_deaths_age", s.PreyDeathsAge,
		"prey_deaths_starvation", s.PreyDeathsStarvation,
		"prey_deaths_eaten", s.PreyDeathsEaten,
		"pred_deaths_age", s.PredDeathsAge,
		"pred_deaths_starvation", s.PredDeathsStarvation,
		"plants_eaten_prey", s.PlantsEatenPrey,
		"plants_eaten_pred", s.PlantsEatenPred,
		"plants_regrown", s.PlantsRegrown,
		"prey_exits", s.PreyExits,
		"pred_exits", s.PredExits,
		"prey_entries", s.PreyEntries,
		"pred_entries", s.PredEntries,
		"prey_age_mean", s.PreyAgeMean,
		"pred_age_mean", s.PredAgeMean,
		"prey_hunger_mean", s.PreyHungerMean,
		"pred_hunger_mean", s.PredHungerMean,
		"rate_pred", s.RatePred,
		"rate_prey", s.RatePrey,
	)
}
