package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/google/uuid"

	"github.com/pthm-cable/ecotile/config"
	"github.com/pthm-cable/ecotile/game"
	"github.com/pthm-cable/ecotile/observer"
	"github.com/pthm-cable/ecotile/peer"
	"github.com/pthm-cable/ecotile/telemetry"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	headless := flag.Bool("headless", false, "Run without graphics")
	logStats := flag.Bool("log-stats", false, "Output stats via slog")
	snapshotDir := flag.String("snapshot-dir", "", "Directory for bookmark snapshots")
	restore := flag.String("restore", "", "Start from a saved snapshot")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	seed := flag.Int64("seed", 0, "RNG seed (0 = time-based)")
	maxTicks := flag.Int("max-ticks", 0, "Stop after N ticks (0 = configured duration)")
	peerAddr := flag.String("peer", "", "Peer address (empty = wrap the arena onto itself)")
	observe := flag.Bool("observe", false, "Serve frames to local observers")
	fast := flag.Bool("fast", false, "Run ticks back to back instead of at the tick rate")
	debug := flag.Bool("debug", false, "Enable invariant checks")

	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	runID := uuid.NewString()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil)).With("run_id", runID)
	slog.SetDefault(logger)

	// Initialize config before anything else
	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()
	if *debug {
		cfg.Debug.CheckInvariants = true
	}
	if *maxTicks > 0 {
		cfg.Derived.TotalTicks = *maxTicks
	}

	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, runOptions{
		opts: game.Options{
			Config:      cfg,
			Seed:        rngSeed,
			RunID:       runID,
			LogStats:    *logStats,
			OutputDir:   *outputDir,
			SnapshotDir: *snapshotDir,
		},
		headless: *headless,
		restore:  *restore,
		peer:     *peerAddr,
		observe:  *observe,
		fast:     *fast,
	}); err != nil {
		slog.Error("simulation failed", "error", err)
		os.Exit(1)
	}
}

type runOptions struct {
	opts     game.Options
	headless bool
	restore  string
	peer     string
	observe  bool
	fast     bool
}

func run(ctx context.Context, cfg *config.Config, ro runOptions) error {
	if ro.peer != "" {
		client, err := peer.Dial(ctx, ro.peer, cfg.Arena.Size)
		if err != nil {
			return err
		}
		client.SetMaxEntering(cfg.Peer.MaxEntering)
		defer client.Close()
		ro.opts.Exchanger = client
		slog.Info("connected to peer", "addr", ro.peer)
	}

	g, err := game.NewGameWithOptions(ro.opts)
	if err != nil {
		return err
	}
	defer func() {
		if err := g.Close(); err != nil {
			slog.Error("failed to close output", "error", err)
		}
	}()

	if ro.restore != "" {
		snap, err := telemetry.LoadSnapshot(ro.restore)
		if err != nil {
			return err
		}
		if err := g.Restore(snap); err != nil {
			return err
		}
		slog.Info("restored snapshot", "path", ro.restore, "tick", snap.Tick)
	}

	publish := func() {}
	if ro.observe {
		obs := observer.NewServer(ro.opts.RunID, cfg.Arena.Size, cfg.Observer.Buffer)
		go func() {
			if err := obs.ListenAndServe(ctx, cfg.Observer.Address); err != nil {
				slog.Error("observer stopped", "error", err)
			}
		}()
		publish = func() {
			if err := obs.Publish(observer.FromGame(g)); err != nil {
				slog.Error("failed to publish frame", "error", err)
			}
		}
		publish()
	}

	if ro.headless {
		return runHeadless(ctx, g, cfg, ro.fast, publish)
	}
	return runWindow(ctx, g, cfg, ro.fast, publish)
}

func runHeadless(ctx context.Context, g *game.Game, cfg *config.Config, fast bool, publish func()) error {
	slog.Info("starting headless simulation",
		"seed", g.Seed(),
		"total_ticks", cfg.Derived.TotalTicks,
		"tick_interval", cfg.Derived.TickInterval,
		"fast", fast,
	)

	var tick <-chan time.Time
	if !fast {
		ticker := time.NewTicker(cfg.Derived.TickInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for !g.Terminated() {
		if tick != nil {
			select {
			case <-ctx.Done():
			case <-tick:
			}
		}
		if err := g.Step(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				slog.Info("interrupted", "tick", g.Tick())
				return nil
			}
			return err
		}
		publish()
	}

	prey, pred, plants := g.Counts()
	slog.Info("simulation finished", "tick", g.Tick(), "prey", prey, "pred", pred, "plants", plants)
	return nil
}

func runWindow(ctx context.Context, g *game.Game, cfg *config.Config, fast bool, publish func()) error {
	size := cfg.Derived.ScreenSize
	rl.SetConfigFlags(rl.FlagWindowResizable)
	rl.InitWindow(size, size, "ecotile")
	defer rl.CloseWindow()
	rl.SetExitKey(rl.KeyNull)
	rl.SetTargetFPS(int32(cfg.Render.TargetFPS))

	g.InitView()

	last := time.Now()
	for !rl.WindowShouldClose() && ctx.Err() == nil {
		due := fast || time.Since(last) >= cfg.Derived.TickInterval
		if due {
			last = time.Now()
		}
		before := g.Tick()
		if err := g.Update(ctx, due); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		if g.Tick() != before {
			publish()
		}
		g.Draw()
	}
	return nil
}
