package telemetry

import (
	"log/slog"
	"time"
)

// Phase identifies one timed section of a tick.
type Phase uint8

// Tick phases in execution order. PhaseTelemetry covers the frame rebuild
// and window flush that follow the simulation phases.
const (
	PhaseDeath Phase = iota
	PhaseRegrowth
	PhaseMovement
	PhaseExchange
	PhaseFeeding
	PhaseSatiety
	PhaseRates
	PhaseReproduction
	PhaseReset
	PhaseTelemetry
	NumPhases
)

var phaseNames = [NumPhases]string{
	"death", "regrowth", "movement", "exchange", "feeding",
	"satiety", "rates", "reproduction", "reset", "telemetry",
}

func (p Phase) String() string {
	if p >= NumPhases {
		return "unknown"
	}
	return phaseNames[p]
}

// tickTiming is the cost of one completed tick.
type tickTiming struct {
	total  time.Duration
	phases [NumPhases]time.Duration
}

func (t *tickTiming) add(o tickTiming, sign time.Duration) {
	t.total += sign * o.total
	for i := range t.phases {
		t.phases[i] += sign * o.phases[i]
	}
}

// frameSmoothing is the weight of the newest frame in the frame-time average.
const frameSmoothing = 8

// PerfCollector keeps the timings of the last n completed ticks. Sums are
// updated as ticks enter and leave the ring, so Stats only scans for the
// maximum.
type PerfCollector struct {
	ring  []tickTiming
	next  int
	count int
	sum   tickTiming

	cur        tickTiming
	tickStart  time.Time
	phaseStart time.Time
	phase      Phase
	open       bool

	lastFrame time.Time
	frame     time.Duration

	now func() time.Time
}

// NewPerfCollector creates a collector averaging over window ticks.
func NewPerfCollector(window int) *PerfCollector {
	if window < 1 {
		window = 1
	}
	return &PerfCollector{ring: make([]tickTiming, window), now: time.Now}
}

// StartTick begins a tick. A tick that was started but never ended, such
// as one aborted by a failed exchange, is discarded.
func (p *PerfCollector) StartTick() {
	p.tickStart = p.now()
	p.cur = tickTiming{}
	p.open = false
}

// StartPhase closes the running phase, if any, and starts timing phase.
func (p *PerfCollector) StartPhase(phase Phase) {
	now := p.now()
	p.closePhase(now)
	p.phase, p.phaseStart, p.open = phase, now, true
}

func (p *PerfCollector) closePhase(now time.Time) {
	if p.open {
		p.cur.phases[p.phase] += now.Sub(p.phaseStart)
		p.open = false
	}
}

// EndTick closes the running phase and stores the tick.
func (p *PerfCollector) EndTick() {
	now := p.now()
	p.closePhase(now)
	p.cur.total = now.Sub(p.tickStart)

	if p.count == len(p.ring) {
		p.sum.add(p.ring[p.next], -1)
	} else {
		p.count++
	}
	p.ring[p.next] = p.cur
	p.sum.add(p.cur, 1)
	p.next = (p.next + 1) % len(p.ring)
}

// RecordFrame marks a rendered frame. The frame time is a moving average so
// the HUD does not flicker.
func (p *PerfCollector) RecordFrame() {
	now := p.now()
	if !p.lastFrame.IsZero() {
		d := now.Sub(p.lastFrame)
		if p.frame == 0 {
			p.frame = d
		} else {
			p.frame += (d - p.frame) / frameSmoothing
		}
	}
	p.lastFrame = now
}

// PerfStats summarises the collector's window.
type PerfStats struct {
	Ticks    int
	AvgTick  time.Duration
	MaxTick  time.Duration
	PhaseAvg [NumPhases]time.Duration
	Frame    time.Duration
}

// Stats returns the averages over the stored ticks.
func (p *PerfCollector) Stats() PerfStats {
	s := PerfStats{Ticks: p.count, Frame: p.frame}
	if p.count == 0 {
		return s
	}
	n := time.Duration(p.count)
	s.AvgTick = p.sum.total / n
	for i, d := range p.sum.phases {
		s.PhaseAvg[i] = d / n
	}
	for _, t := range p.ring[:p.count] {
		s.MaxTick = max(s.MaxTick, t.total)
	}
	return s
}

// Share returns the percentage of the average tick spent in phase.
func (s PerfStats) Share(phase Phase) float64 {
	if s.AvgTick <= 0 || phase >= NumPhases {
		return 0
	}
	return 100 * float64(s.PhaseAvg[phase]) / float64(s.AvgTick)
}

// Slowest returns the phase with the largest average and its share.
func (s PerfStats) Slowest() (Phase, float64) {
	var slow Phase
	for ph := Phase(1); ph < NumPhases; ph++ {
		if s.PhaseAvg[ph] > s.PhaseAvg[slow] {
			slow = ph
		}
	}
	return slow, s.Share(slow)
}

// TicksPerSecond is the throughput the average tick would allow.
func (s PerfStats) TicksPerSecond() float64 {
	if s.AvgTick <= 0 {
		return 0
	}
	return float64(time.Second) / float64(s.AvgTick)
}

// FPS derives the frame rate from the smoothed frame time.
func (s PerfStats) FPS() float64 {
	if s.Frame <= 0 {
		return 0
	}
	return float64(time.Second) / float64(s.Frame)
}

// LogStats logs the window at info level.
func (s PerfStats) LogStats() {
	slog.Info("perf", "perf", s)
}

// LogValue implements slog.LogValuer.
func (s PerfStats) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int("ticks", s.Ticks),
		slog.Int64("avg_tick_us", s.AvgTick.Microseconds()),
		slog.Int64("max_tick_us", s.MaxTick.Microseconds()),
		slog.Float64("ticks_per_sec", s.TicksPerSecond()),
	}
	if fps := s.FPS(); fps > 0 {
		attrs = append(attrs, slog.Float64("fps", fps))
	}
	for ph := Phase(0); ph < NumPhases; ph++ {
		if pct := s.Share(ph); pct >= 0.1 {
			attrs = append(attrs, slog.Float64(ph.String()+"_pct", pct))
		}
	}
	return slog.GroupValue(attrs...)
}

// PerfStatsCSV is one perf.csv row.
type PerfStatsCSV struct {
	WindowEnd       int32   `csv:"window_end"`
	AvgTickUS       int64   `csv:"avg_tick_us"`
	MaxTickUS       int64   `csv:"max_tick_us"`
	TicksPerSec     float64 `csv:"ticks_per_sec"`
	FPS             float64 `csv:"fps"`
	DeathPct        float64 `csv:"death_pct"`
	RegrowthPct     float64 `csv:"regrowth_pct"`
	MovementPct     float64 `csv:"movement_pct"`
	ExchangePct     float64 `csv:"exchange_pct"`
	FeedingPct      float64 `csv:"feeding_pct"`
	SatietyPct      float64 `csv:"satiety_pct"`
	RatesPct        float64 `csv:"rates_pct"`
	ReproductionPct float64 `csv:"reproduction_pct"`
	ResetPct        float64 `csv:"reset_pct"`
	TelemetryPct    float64 `csv:"telemetry_pct"`
}

// ToCSV flattens s for the window ending at windowEnd.
func (s PerfStats) ToCSV(windowEnd int32) PerfStatsCSV {
	return PerfStatsCSV{
		WindowEnd:       windowEnd,
		AvgTickUS:       s.AvgTick.Microseconds(),
		MaxTickUS:       s.MaxTick.Microseconds(),
		TicksPerSec:     s.TicksPerSecond(),
		FPS:             s.FPS(),
		DeathPct:        s.Share(PhaseDeath),
		RegrowthPct:     s.Share(PhaseRegrowth),
		MovementPct:     s.Share(PhaseMovement),
		ExchangePct:     s.Share(PhaseExchange),
		FeedingPct:      s.Share(PhaseFeeding),
		SatietyPct:      s.Share(PhaseSatiety),
		RatesPct:        s.Share(PhaseRates),
		ReproductionPct: s.Share(PhaseReproduction),
		ResetPct:        s.Share(PhaseReset),
		TelemetryPct:    s.Share(PhaseTelemetry),
	}
}
