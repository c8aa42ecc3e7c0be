package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/l1jgo/tickserver/internal/config"
	"github.com/l1jgo/tickserver/internal/core/conveyor"
	"github.com/l1jgo/tickserver/internal/data"
	"github.com/l1jgo/tickserver/internal/persist"
	"github.com/l1jgo/tickserver/internal/report"
	"github.com/l1jgo/tickserver/internal/scripting"
	"github.com/l1jgo/tickserver/internal/system"
	"github.com/l1jgo/tickserver/internal/world"
	"github.com/pkg/profile"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

var stdout = message.NewPrinter(language.English)

func printBanner(serverName string, threads int) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m             tickserver  v0.1.0            \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  │\033[0m       staged tick scheduler · Go          \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1mserver:\033[0m %s \033[90m(threads: %d)\033[0m\n\n", serverName, threads)
}

func printSection(title string) {
	lineLen := 46 - len(title) - 1
	if lineLen < 3 {
		lineLen = 3
	}
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := stdout.Sprintf("%d", count)
	dotsLen := 42 - len(label) - len(numStr)
	if dotsLen < 3 {
		dotsLen = 3
	}
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Main server logic ─────────────────────────────────────────────

func run() error {
	started := time.Now()

	// 1. Load config
	cfgPath := "config/server.toml"
	if p := os.Getenv("TICKSERVER_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	threads := cfg.Conveyor.Workers()
	printBanner(cfg.Server.Name, threads)

	if p := startProfile(cfg.Profiling); p != nil {
		defer p.Stop()
		printOK(fmt.Sprintf("profiling %s into %s", cfg.Profiling.Mode, cfg.Profiling.Dir))
	}

	// 3. Optional PostgreSQL sink
	var sink system.StatsSink
	if cfg.Database.Enabled {
		printSection("database")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		db, err := persist.NewDB(ctx, cfg.Database, log)
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		defer db.Close()
		printOK("PostgreSQL connected")

		version, err := persist.RunMigrations(ctx, db.Pool)
		if err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		printOK(fmt.Sprintf("migrations applied (version %d)", version))
		fmt.Println()

		sink = persist.NewTickStatsRepo(db)
	}

	// 4. World
	printSection("world")

	ws := world.NewState(log)
	if cfg.Scenario.Path != "" {
		sc, err := data.LoadScenario(cfg.Scenario.Path)
		if err != nil {
			return fmt.Errorf("load scenario: %w", err)
		}
		n := ws.Populate(sc)
		log.Info("scenario loaded", zap.String("name", sc.Name), zap.Int("entities", n))
	}
	printStat("ships", ws.ShipCount())
	printStat("engines", ws.EngineCount())
	printStat("asteroids", ws.AsteroidCount())
	printStat("burning at start", ws.Burning.Len())

	// 5. Scripting
	scripts, err := scripting.NewEngine(cfg.Scripting.Dir, system.ScriptAPI{World: ws}, log)
	if err != nil {
		return fmt.Errorf("scripting: %w", err)
	}
	if scripts.HasTickHook() {
		defer scripts.Close()
		printOK("lua on_tick hook loaded")
	} else {
		scripts.Close()
		scripts = nil
	}
	fmt.Println()

	// 6. Conveyor and logic chain
	statsCh := make(chan system.StatsSnapshot, 16)
	digestCh := make(chan system.Digest, 16)

	conv := conveyor.New(threads, log)
	chain := system.BuildChain(conv, ws, system.ChainOptions{
		Script:           scripts,
		ScriptCooldownUs: cfg.Scripting.Cooldown.Microseconds(),
		DigestCooldownUs: cfg.Units.DigestCooldown.Microseconds(),
		DigestSink: func(d system.Digest) {
			select {
			case digestCh <- d:
			default:
				log.Warn("digest writer behind, digest dropped", zap.Uint64("tick", d.Tick))
			}
		},
		StatsOut:        statsCh,
		StatsCooldownUs: cfg.Units.StatsCooldown.Microseconds(),
		WorldRadius:     cfg.Scenario.WorldRadius,
		MotionBatch:     cfg.Units.MotionBatch,
	}, log)

	printSection("conveyor")
	for _, us := range conv.Stats() {
		printStat(us.Name, us.Stages)
	}
	fmt.Println()

	// 7. Run until signalled or the tick limit is reached
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	printSection("ready")
	printReady(fmt.Sprintf("tick loop started (tick: %s)", cfg.Conveyor.TickRate))
	if cfg.Conveyor.MaxTicks > 0 {
		printReady(stdout.Sprintf("stopping after %d ticks", cfg.Conveyor.MaxTicks))
	}
	fmt.Println()

	writer := system.NewStatsWriter(statsCh, digestCh, sink, log)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		// drains until the master closes both channels
		return writer.Run(context.Background())
	})
	g.Go(func() error {
		defer close(digestCh)
		defer close(statsCh)
		return drive(gctx, conv, cfg.Conveyor, log)
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("tick loop: %w", err)
	}

	// 8. Report
	var digest string
	if d := chain.Digest.Last(); d.Tick > 0 {
		digest = d.String()
	}
	log.Info("server stopped",
		zap.Uint64("ticks", conv.Ticks()),
		zap.Int64("sim_time_us", conv.NowUs()),
		zap.String("digest", digest))

	if cfg.Report.Path != "" {
		r := report.Build(cfg.Server.Name, started, conv, report.Counts{
			Ships:     ws.ShipCount(),
			Engines:   ws.EngineCount(),
			Asteroids: ws.AsteroidCount(),
			Burning:   ws.Burning.Len(),
		}, digest)
		if err := report.Write(cfg.Report.Path, r); err != nil {
			return fmt.Errorf("report: %w", err)
		}
		log.Info("run report written", zap.String("path", cfg.Report.Path))
	}
	return nil
}

// drive is the master thread. It owns the conveyor for its whole life:
// Start, every Proceed and Stop all happen on this locked OS thread.
func drive(ctx context.Context, conv *conveyor.Conveyor, cfg config.ConveyorConfig, log *zap.Logger) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	conv.Start()

	ticker := time.NewTicker(cfg.TickRate)
	defer ticker.Stop()
	intervalUs := cfg.TickRate.Microseconds()

	var overruns uint64
	for {
		select {
		case <-ticker.C:
			begin := time.Now()
			conv.Proceed(intervalUs)
			if took := time.Since(begin); took > cfg.TickRate {
				overruns++
				log.Debug("tick overran",
					zap.Uint64("tick", conv.Ticks()),
					zap.Duration("took", took))
			}
			if cfg.MaxTicks > 0 && conv.Ticks() >= cfg.MaxTicks {
				log.Info("tick limit reached", zap.Uint64("ticks", conv.Ticks()), zap.Uint64("overruns", overruns))
				return conv.Stop()
			}
		case <-ctx.Done():
			log.Info("shutdown signal received", zap.Uint64("overruns", overruns))
			return conv.Stop()
		}
	}
}

func startProfile(cfg config.ProfilingConfig) interface{ Stop() } {
	var mode func(*profile.Profile)
	switch cfg.Mode {
	case "cpu":
		mode = profile.CPUProfile
	case "mem":
		mode = profile.MemProfile
	case "mutex":
		mode = profile.MutexProfile
	case "block":
		mode = profile.BlockProfile
	case "goroutine":
		mode = profile.GoroutineProfile
	default:
		return nil
	}
	return profile.Start(mode, profile.ProfilePath(cfg.Dir), profile.NoShutdownHook, profile.Quiet)
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
