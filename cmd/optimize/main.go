// Package main searches regrowth, breeding and lifespan parameters with
// CMA-ES for configurations where predators and prey coexist longest.
package main

import (
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gocarina/gocsv"
	"gonum.org/v1/gonum/optimize"

	"github.com/pthm-cable/ecotile/config"
)

type options struct {
	configPath string
	outputDir  string
	maxTicks   int
	seeds      int
	baseSeed   int64
	maxEvals   int
	population int
}

func main() {
	var o options
	flag.StringVar(&o.configPath, "config", "", "Base config YAML file (empty = use defaults)")
	flag.StringVar(&o.outputDir, "output", "", "Output directory for results")
	flag.IntVar(&o.maxTicks, "max-ticks", 3000, "Tick cap per run")
	flag.IntVar(&o.seeds, "seeds", 3, "Runs per evaluation")
	flag.Int64Var(&o.baseSeed, "seed", 42, "Seed of the first run; later runs step by 1000")
	flag.IntVar(&o.maxEvals, "max-evals", 200, "Maximum number of evaluations")
	flag.IntVar(&o.population, "population", 0, "CMA-ES population size (0 = 4 + 3 ln(dim))")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	if err := run(o); err != nil {
		slog.Error("optimization failed", "error", err)
		os.Exit(1)
	}
}

func run(o options) error {
	if o.outputDir == "" {
		return errors.New("-output is required")
	}
	if err := os.MkdirAll(o.outputDir, 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	baseCfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}

	params := NewParamVector()
	seeds := make([]int64, o.seeds)
	for i := range seeds {
		seeds[i] = o.baseSeed + int64(i)*1000
	}
	evaluator := NewFitnessEvaluator(params, int32(o.maxTicks), seeds, baseCfg)

	evals, err := newEvalLog(filepath.Join(o.outputDir, "optimize_log.csv"), params)
	if err != nil {
		return err
	}
	defer evals.Close()

	popSize := o.population
	if popSize == 0 {
		popSize = 4 + int(3*math.Log(float64(params.Dim())))
	}
	prog := newProgress(o.maxEvals)

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			values := params.Clamp(params.Denormalize(x))
			fitness := evaluator.Evaluate(values)
			quality := evaluator.LastQuality()

			prog.observe(fitness, values)
			if err := evals.record(prog.evals, fitness, quality, values); err != nil {
				slog.Error("failed to log evaluation", "error", err)
			}
			slog.Info("evaluation",
				"eval", prog.evals,
				"of", o.maxEvals,
				"survived_s", survivalSeconds(fitness, quality, baseCfg.Clock.TickRateHz),
				"quality", quality,
				"best", prog.best,
				"elapsed", prog.elapsed().String(),
				"eta", prog.eta().String(),
			)
			return fitness
		},
	}

	slog.Info("starting CMA-ES",
		"params", params.Dim(),
		"population", popSize,
		"max_evals", o.maxEvals,
		"seeds", seeds,
		"max_ticks", o.maxTicks,
	)
	_, err = optimize.Minimize(problem,
		params.Normalize(params.DefaultVector()),
		&optimize.Settings{FuncEvaluations: o.maxEvals},
		&optimize.CmaEsChol{InitStepSize: 0.3, Population: popSize},
	)
	if err != nil {
		// Hitting the evaluation budget is reported as an error too.
		slog.Info("optimizer stopped", "reason", err)
	}
	if prog.bestX == nil {
		return errors.New("no evaluation completed")
	}

	slog.Info("optimization complete", "evals", prog.evals, "elapsed", prog.elapsed().String(), "best", prog.best)
	for i, spec := range params.Specs {
		slog.Info("best parameter", "name", spec.Name, "path", spec.Path, "value", prog.bestX[i])
	}
	return writeResults(o.outputDir, baseCfg, params, prog.bestX, evaluator)
}

// survivalSeconds undoes the quality bonus in the fitness score.
func survivalSeconds(fitness, quality, tickRateHz float64) float64 {
	return -fitness / (1 + 0.2*quality) / tickRateHz
}

func writeResults(dir string, base *config.Config, params *ParamVector, best []float64, fe *FitnessEvaluator) error {
	cfg := *base
	params.ApplyToConfig(&cfg, best)
	path := filepath.Join(dir, "best_config.yaml")
	if err := cfg.WriteYAML(path); err != nil {
		return err
	}
	slog.Info("wrote best config", "path", path)

	windows := fe.BestWindows()
	if len(windows) == 0 {
		return nil
	}
	path = filepath.Join(dir, "best_windows.csv")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating window stats file: %w", err)
	}
	defer f.Close()
	if err := gocsv.MarshalFile(&windows, f); err != nil {
		return fmt.Errorf("writing window stats: %w", err)
	}
	slog.Info("wrote best run windows", "path", path, "windows", len(windows))
	return nil
}

// progress tracks the best evaluation and the time budget.
type progress struct {
	start time.Time
	max   int
	evals int
	best  float64
	bestX []float64
}

func newProgress(maxEvals int) *progress {
	return &progress{start: time.Now(), max: maxEvals, best: math.Inf(1)}
}

func (p *progress) observe(fitness float64, x []float64) {
	p.evals++
	if fitness < p.best {
		p.best = fitness
		p.bestX = append(p.bestX[:0], x...)
	}
}

func (p *progress) elapsed() time.Duration {
	return time.Since(p.start).Round(time.Second)
}

func (p *progress) eta() time.Duration {
	if p.evals == 0 {
		return 0
	}
	per := time.Since(p.start) / time.Duration(p.evals)
	return (per * time.Duration(max(p.max-p.evals, 0))).Round(time.Second)
}

// evalLog writes one CSV row per evaluation. Columns follow the parameter
// set, so rows are written with encoding/csv rather than a fixed struct.
type evalLog struct {
	f *os.File
	w *csv.Writer
}

func newEvalLog(path string, params *ParamVector) (*evalLog, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating evaluation log: %w", err)
	}
	l := &evalLog{f: f, w: csv.NewWriter(f)}
	header := []string{"eval", "fitness", "quality"}
	for _, spec := range params.Specs {
		header = append(header, spec.Name)
	}
	if err := l.w.Write(header); err != nil {
		f.Close()
		return nil, fmt.Errorf("writing evaluation log header: %w", err)
	}
	return l, nil
}

func (l *evalLog) record(eval int, fitness, quality float64, values []float64) error {
	row := make([]string, 0, 3+len(values))
	row = append(row,
		strconv.Itoa(eval),
		strconv.FormatFloat(fitness, 'f', 3, 64),
		strconv.FormatFloat(quality, 'f', 4, 64),
	)
	for _, v := range values {
		row = append(row, strconv.FormatFloat(v, 'g', 6, 64))
	}
	if err := l.w.Write(row); err != nil {
		return err
	}
	l.w.Flush()
	return l.w.Error()
}

func (l *evalLog) Close() error {
	l.w.Flush()
	return errors.Join(l.w.Error(), l.f.Close())
}
