// Cadenced serves the adaptive planning engine over HTTP.
//
// Configuration is read from ~/.config/cadence/config.yaml (or the file
// given with -config) and CADENCE_* environment variables. A .env file in
// the working directory is loaded first when present.
//
// Usage:
//
//	# Start with defaults (in-memory store, heuristic sources)
//	cadenced
//
//	# Persist to SQLite and publish events to NATS
//	CADENCE_STORE_DRIVER=sqlite CADENCE_STORE_PATH=/var/lib/cadence/cadence.db \
//	CADENCE_EVENTS_NATS_URL=nats://localhost:4222 cadenced
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/cadence/internal/cache"
	"github.com/fyrsmithlabs/cadence/internal/config"
	"github.com/fyrsmithlabs/cadence/internal/docstore"
	"github.com/fyrsmithlabs/cadence/internal/events"
	httpserver "github.com/fyrsmithlabs/cadence/internal/http"
	"github.com/fyrsmithlabs/cadence/internal/logging"
	"github.com/fyrsmithlabs/cadence/internal/orchestrator"
	"github.com/fyrsmithlabs/cadence/internal/profile"
	"github.com/fyrsmithlabs/cadence/internal/schedule"
	"github.com/fyrsmithlabs/cadence/internal/telemetry"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	if args := flag.Args(); len(args) > 0 {
		switch args[0] {
		case "version":
			printVersion()
			os.Exit(0)
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
			fmt.Fprintf(os.Stderr, "\nUsage:\n")
			fmt.Fprintf(os.Stderr, "  cadenced [-config path]   Start the planning server\n")
			fmt.Fprintf(os.Stderr, "  cadenced version          Show version information\n")
			os.Exit(1)
		}
	}

	// A missing .env is normal outside development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Ignoring .env: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configPath); err != nil {
		log.Fatalf("Server error: %v", err)
	}
	log.Println("Server shutdown complete")
}

func printVersion() {
	fmt.Printf("cadenced\n")
	fmt.Printf("Version:    %s\n", version)
	fmt.Printf("Commit:     %s\n", gitCommit)
	fmt.Printf("Build Date: %s\n", buildDate)
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadWithFile(path)
	}
	return config.Load()
}

// run wires every component and serves until ctx is cancelled.
func run(ctx context.Context, configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	tel, err := telemetry.New(ctx, telemetry.FromSettings(cfg.Telemetry))
	if err != nil {
		return fmt.Errorf("initialize telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration())
		defer cancel()
		_ = tel.Shutdown(shutdownCtx)
	}()

	logCfg, err := logging.FromSettings(cfg.Logging)
	if err != nil {
		return fmt.Errorf("logging config: %w", err)
	}
	logger, err := logging.NewLogger(logCfg, tel.LoggerProvider())
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	logger.Info(ctx, "starting cadenced",
		zap.String("version", version),
		zap.String("addr", cfg.Server.Addr()),
		zap.String("store", cfg.Store.Driver),
		zap.String("source_mode", cfg.Sources.Mode),
		zap.Bool("telemetry", cfg.Telemetry.Enabled),
	)

	deps, err := initDependencies(cfg, logger)
	if err != nil {
		return err
	}
	defer deps.Close()

	engine, err := initEngine(cfg, deps, tel, logger)
	if err != nil {
		return err
	}

	srv, err := httpserver.NewServer(engine, logger, &httpserver.Config{
		Host:        cfg.Server.Host,
		Port:        cfg.Server.Port,
		CORSOrigins: cfg.Server.CORSOrigins,
		Components: map[string]func() string{
			"store":     func() string { return cfg.Store.Driver },
			"events":    deps.eventsStatus,
			"telemetry": tel.Status,
		},
	})
	if err != nil {
		return fmt.Errorf("create http server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}

// dependencies holds the infrastructure the engine runs on.
type dependencies struct {
	store     docstore.Store
	publisher events.Publisher
	nats      *events.NATSPublisher
	logger    *logging.Logger
}

// Close releases infrastructure in reverse order of creation.
func (d *dependencies) Close() {
	ctx := context.Background()
	if d.nats != nil {
		if err := d.nats.Close(); err != nil {
			d.logger.Warn(ctx, "close nats", zap.Error(err))
		}
	}
	if d.store != nil {
		if err := d.store.Close(); err != nil {
			d.logger.Warn(ctx, "close store", zap.Error(err))
		}
	}
}

// eventsStatus reports the NATS connection state, or "disabled".
func (d *dependencies) eventsStatus() string {
	if d.nats == nil {
		return "disabled"
	}
	return d.nats.Status()
}

func initDependencies(cfg *config.Config, logger *logging.Logger) (*dependencies, error) {
	deps := &dependencies{publisher: events.Noop{}, logger: logger}

	switch cfg.Store.Driver {
	case config.StoreSQLite:
		store, err := docstore.NewSQLiteStore(cfg.Store.Path)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		deps.store = store
	default:
		deps.store = docstore.NewMemoryStore()
	}

	if cfg.Events.NATSURL != "" {
		pub, err := events.Connect(cfg.Events.NATSURL,
			events.WithSubjectPrefix(cfg.Events.SubjectPrefix),
			events.WithLogger(logger),
		)
		if err != nil {
			deps.Close()
			return nil, fmt.Errorf("connect nats: %w", err)
		}
		deps.nats = pub
		deps.publisher = pub
		logger.Info(context.Background(), "publishing events", zap.String("url", cfg.Events.NATSURL))
	}
	return deps, nil
}

func initEngine(cfg *config.Config, deps *dependencies, tel *telemetry.Telemetry, logger *logging.Logger) (*orchestrator.Orchestrator, error) {
	providers, err := buildProviders(cfg.Sources, logger)
	if err != nil {
		return nil, err
	}

	c, err := cache.New(cache.Config{
		DefaultTTL:  cfg.Cache.DefaultTTL.Duration(),
		DegradedTTL: cfg.Cache.DegradedTTL.Duration(),
		MaxEntries:  cfg.Cache.MaxEntries,
	}, cache.WithMetrics(cache.NewMetrics()))
	if err != nil {
		return nil, fmt.Errorf("create cache: %w", err)
	}

	profiles := profile.NewRepository(deps.store)

	schedMetrics, err := schedule.NewMetrics(tel.Meter(schedule.InstrumentationName))
	if err != nil {
		return nil, fmt.Errorf("schedule metrics: %w", err)
	}
	sched := schedule.NewService(deps.store, profiles,
		schedule.WithGenerator(schedule.NewGenerator(cfg.Planning.DefaultCycleLength)),
		schedule.WithPlanDays(cfg.Planning.PlanDays),
		schedule.WithPublisher(deps.publisher),
		schedule.WithLogger(logger.Named("schedule")),
		schedule.WithMetrics(schedMetrics),
		schedule.WithTracer(tel.Tracer(schedule.InstrumentationName)),
	)

	orchMetrics, err := orchestrator.NewMetrics(tel.Meter(orchestrator.InstrumentationName))
	if err != nil {
		return nil, fmt.Errorf("orchestrator metrics: %w", err)
	}
	return orchestrator.New(orchestrator.Config{
		Timeout:            cfg.Planning.OrchestrationTimeout.Duration(),
		RecentLogLimit:     cfg.Planning.RecentLogLimit,
		PlanDays:           cfg.Planning.PlanDays,
		DefaultCycleLength: cfg.Planning.DefaultCycleLength,
	}, providers, c, sched, profiles,
		orchestrator.WithLogger(logger.Named("orchestrator")),
		orchestrator.WithMetrics(orchMetrics),
		orchestrator.WithTracer(tel.Tracer(orchestrator.InstrumentationName)),
	), nil
}
