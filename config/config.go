// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation configuration parameters.
type Config struct {
	Arena        ArenaConfig        `yaml:"arena"`
	Clock        ClockConfig        `yaml:"clock"`
	Speed        SpeedConfig        `yaml:"speed"`
	Ranges       RangesConfig       `yaml:"ranges"`
	Reproduction ReproductionConfig `yaml:"reproduction"`
	Lifespan     LifespanConfig     `yaml:"lifespan"`
	Plants       PlantsConfig       `yaml:"plants"`
	Population   PopulationConfig   `yaml:"population"`
	Peer         PeerConfig         `yaml:"peer"`
	Render       RenderConfig       `yaml:"render"`
	Telemetry    TelemetryConfig    `yaml:"telemetry"`
	Observer     ObserverConfig     `yaml:"observer"`
	Debug        DebugConfig        `yaml:"debug"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// ArenaConfig holds the arena geometry.
type ArenaConfig struct {
	Size     float64 `yaml:"size"`      // side of the square arena
	CellSize float64 `yaml:"cell_size"` // spatial grid cell for range candidates
}

// ClockConfig holds run pacing.
type ClockConfig struct {
	TickRateHz float64 `yaml:"tick_rate_hz"`
	DurationS  float64 `yaml:"duration_s"`
}

// SpeedConfig holds movement distances per tick.
type SpeedConfig struct {
	Base        float64 `yaml:"base"`
	Tired       float64 `yaml:"tired"`
	Fed         float64 `yaml:"fed"`
	FedDuration int32   `yaml:"fed_duration"` // ticks after a meal at fed speed
	TiredAge    int32   `yaml:"tired_age"`    // ticks without food before slowing down
}

// RangesConfig holds the folding square half-widths.
type RangesConfig struct {
	Predation    float64 `yaml:"predation"`
	Reproduction float64 `yaml:"reproduction"`
}

// ReproductionConfig holds mating parameters.
type ReproductionConfig struct {
	Age       int32   `yaml:"age"` // both parents must be strictly older
	PredDecay float64 `yaml:"pred_decay"`
	PreyDecay float64 `yaml:"prey_decay"`
}

// LifespanConfig holds age and starvation limits.
type LifespanConfig struct {
	PredatorAge      int32 `yaml:"predator_age"`
	PreyAge          int32 `yaml:"prey_age"`
	PredatorLastMeal int32 `yaml:"predator_last_meal"`
	PreyLastMeal     int32 `yaml:"prey_last_meal"`
}

// PlantsConfig holds regrowth parameters.
type PlantsConfig struct {
	Period  int `yaml:"period"`  // ticks between regrowth rounds
	Divisor int `yaml:"divisor"` // plants spawned = population / divisor
}

// PopulationConfig holds the initial population.
type PopulationConfig struct {
	Initial int `yaml:"initial"`
	Margin  int `yaml:"margin"` // each animal kind gets initial/2 - margin
}

// PeerConfig holds peer exchange settings.
type PeerConfig struct {
	Address     string `yaml:"address"`
	MaxEntering int    `yaml:"max_entering"` // largest entering count accepted per kind
}

// RenderConfig holds viewer settings.
type RenderConfig struct {
	Scale         float64 `yaml:"scale"` // pixels per arena unit
	ElementRadius float64 `yaml:"element_radius"`
	TargetFPS     int     `yaml:"target_fps"`
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	WindowTicks int  `yaml:"window_ticks"`
	Compress    bool `yaml:"compress"` // zstd-compress the window CSV
}

// ObserverConfig holds the frame streaming server settings.
type ObserverConfig struct {
	Address string `yaml:"address"`
	Buffer  int    `yaml:"buffer"` // frames queued per websocket client
}

// DebugConfig holds development switches.
type DebugConfig struct {
	CheckInvariants bool `yaml:"check_invariants"`
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	TotalTicks   int           // Clock.DurationS * Clock.TickRateHz
	TickInterval time.Duration // 1 / Clock.TickRateHz
	InitialPred  int           // initial predators
	InitialPrey  int           // initial prey
	InitialPlant int           // initial plants
	ScreenSize   int32         // window side in pixels
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Defaults returns a fresh copy of the embedded defaults.
func Defaults() *Config {
	cfg, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("config: embedded defaults: %v", err))
	}
	return cfg
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.computeDerived()

	return cfg, nil
}

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid config")

// Validate checks values that would make the simulation meaningless.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...)))
		}
	}

	check(c.Arena.Size > 0, "arena.size must be positive, got %v", c.Arena.Size)
	check(c.Arena.CellSize >= 0, "arena.cell_size must not be negative, got %v", c.Arena.CellSize)
	check(c.Clock.TickRateHz > 0, "clock.tick_rate_hz must be positive, got %v", c.Clock.TickRateHz)
	check(c.Clock.DurationS >= 0, "clock.duration_s must not be negative, got %v", c.Clock.DurationS)
	check(c.Speed.Base >= 0 && c.Speed.Tired >= 0 && c.Speed.Fed >= 0, "speeds must not be negative")
	check(c.Speed.FedDuration <= c.Speed.TiredAge, "speed.fed_duration (%d) exceeds speed.tired_age (%d)",
		c.Speed.FedDuration, c.Speed.TiredAge)
	check(c.Ranges.Predation >= 0, "ranges.predation must not be negative, got %v", c.Ranges.Predation)
	check(c.Ranges.Reproduction >= 0, "ranges.reproduction must not be negative, got %v", c.Ranges.Reproduction)
	check(c.Reproduction.Age >= 0, "reproduction.age must not be negative, got %d", c.Reproduction.Age)
	check(c.Reproduction.PredDecay >= 0 && c.Reproduction.PreyDecay >= 0,
		"reproduction decays must not be negative, got %v/%v", c.Reproduction.PredDecay, c.Reproduction.PreyDecay)
	check(c.Plants.Period > 0, "plants.period must be positive, got %d", c.Plants.Period)
	check(c.Plants.Divisor > 0, "plants.divisor must be positive, got %d", c.Plants.Divisor)
	check(c.Population.Initial >= 0, "population.initial must not be negative, got %d", c.Population.Initial)
	check(c.Population.Margin >= 0, "population.margin must not be negative, got %d", c.Population.Margin)
	check(c.Peer.MaxEntering > 0, "peer.max_entering must be positive, got %d", c.Peer.MaxEntering)
	check(c.Telemetry.WindowTicks > 0, "telemetry.window_ticks must be positive, got %d", c.Telemetry.WindowTicks)

	return errors.Join(errs...)
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived.TotalTicks = int(c.Clock.DurationS * c.Clock.TickRateHz)
	c.Derived.TickInterval = time.Duration(float64(time.Second) / c.Clock.TickRateHz)

	// Each animal kind gets half the population minus the margin; plants take the rest.
	perKind := c.Population.Initial/2 - c.Population.Margin
	if perKind < 0 {
		perKind = 0
	}
	c.Derived.InitialPred = perKind
	c.Derived.InitialPrey = perKind
	c.Derived.InitialPlant = c.Population.Initial - 2*perKind

	scale := c.Render.Scale
	if scale <= 0 {
		scale = 1
	}
	c.Derived.ScreenSize = int32(c.Arena.Size * scale)
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
