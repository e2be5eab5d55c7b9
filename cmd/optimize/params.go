// Package main provides CMA-ES optimization for ecotile simulation parameters.
package main

import (
	"math"

	"github.com/pthm-cable/ecotile/config"
)

// ParamSpec defines a single optimizable parameter.
type ParamSpec struct {
	Name    string  // Human-readable name
	Path    string  // Config path for logging
	Min     float64 // Lower bound
	Max     float64 // Upper bound
	Default float64 // Default value
	Integer bool    // rounded before use
}

// ParamVector holds the set of all optimizable parameters.
type ParamVector struct {
	Specs []ParamSpec
}

// NewParamVector creates the standard set of optimizable parameters.
func NewParamVector() *ParamVector {
	return &ParamVector{
		Specs: []ParamSpec{
			// Reproduction
			{Name: "pred_decay", Path: "reproduction.pred_decay", Min: 0.001, Max: 0.05, Default: 0.008},
			{Name: "prey_decay", Path: "reproduction.prey_decay", Min: 0.001, Max: 0.05, Default: 0.016},
			{Name: "reproduction_age", Path: "reproduction.age", Min: 0, Max: 8, Default: 2, Integer: true},
			// Plant regrowth
			{Name: "plants_period", Path: "plants.period", Min: 1, Max: 20, Default: 5, Integer: true},
			{Name: "plants_divisor", Path: "plants.divisor", Min: 10, Max: 200, Default: 50, Integer: true},
			// Starvation limits
			{Name: "pred_last_meal", Path: "lifespan.predator_last_meal", Min: 4, Max: 16, Default: 8, Integer: true},
			{Name: "prey_last_meal", Path: "lifespan.prey_last_meal", Min: 6, Max: 24, Default: 13, Integer: true},
			// Lifespans
			{Name: "predator_age", Path: "lifespan.predator_age", Min: 8, Max: 30, Default: 15, Integer: true},
			{Name: "prey_age", Path: "lifespan.prey_age", Min: 10, Max: 40, Default: 20, Integer: true},
		},
	}
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// DefaultVector returns the default parameter values as a slice.
func (pv *ParamVector) DefaultVector() []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = spec.Default
	}
	return v
}

// Normalize converts raw parameter values to [0,1] range.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	normalized := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		normalized[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
	}
	return normalized
}

// Denormalize converts [0,1] values back to raw parameter values.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	raw := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		raw[i] = spec.Min + normalized[i]*(spec.Max-spec.Min)
	}
	return raw
}

// Clamp ensures all values are within bounds and integer parameters are
// whole.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	clamped := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		val := min(max(v[i], spec.Min), spec.Max)
		if spec.Integer {
			val = math.Round(val)
		}
		clamped[i] = val
	}
	return clamped
}

// ApplyToConfig applies parameter values to a Config struct.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) {
	clamped := pv.Clamp(values)

	// Order must match Specs order
	cfg.Reproduction.PredDecay = clamped[0]
	cfg.Reproduction.PreyDecay = clamped[1]
	cfg.Reproduction.Age = int32(clamped[2])
	cfg.Plants.Period = int(clamped[3])
	cfg.Plants.Divisor = int(clamped[4])
	cfg.Lifespan.PredatorLastMeal = int32(clamped[5])
	cfg.Lifespan.PreyLastMeal = int32(clamped[6])
	cfg.Lifespan.PredatorAge = int32(clamped[7])
	cfg.Lifespan.PreyAge = int32(clamped[8])
}

// ExtractFromConfig extracts current parameter values from a Config struct.
func (pv *ParamVector) ExtractFromConfig(cfg *config.Config) []float64 {
	return []float64{
		cfg.Reproduction.PredDecay,
		cfg.Reproduction.PreyDecay,
		float64(cfg.Reproduction.Age),
		float64(cfg.Plants.Period),
		float64(cfg.Plants.Divisor),
		float64(cfg.Lifespan.PredatorLastMeal),
		float64(cfg.Lifespan.PreyLastMeal),
		float64(cfg.Lifespan.PredatorAge),
		float64(cfg.Lifespan.PreyAge),
	}
}
