package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/peterbourgon/ff"
	"github.com/yegors/routesim/internal/api"
	"github.com/yegors/routesim/internal/config"
	"github.com/yegors/routesim/internal/display"
	"github.com/yegors/routesim/internal/fleet"
	"github.com/yegors/routesim/internal/metrics"
	"github.com/yegors/routesim/internal/playback"
	"github.com/yegors/routesim/internal/simulation"
	"github.com/yegors/routesim/internal/storage/sqlite"
	"github.com/yegors/routesim/internal/telemetry"
	"github.com/yegors/routesim/internal/websocket"
	"github.com/yegors/routesim/pkg/logger"
)

var (
	// Version is injected at build time
	Version = "dev"
)

func main() {
	// Flags can also be set through ROUTESIM_CONFIG, ROUTESIM_LOG_LEVEL, ...
	fs := flag.NewFlagSet("routesim", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to configuration file (optional - will search in configs/ and root directory)")
	logLevel := fs.String("log-level", "", "Override the configured log level")
	port := fs.Int("port", 0, "Override the configured HTTP port")
	autoplay := fs.Bool("autoplay", false, "Start playback as soon as the server is up")
	if err := ff.Parse(fs, os.Args[1:], ff.WithEnvVarPrefix("ROUTESIM")); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		os.Exit(1)
	}

	// Load configuration with fallback logic
	cfg, err := config.LoadWithFallback(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// Create logger
	log, err := logger.New(logger.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting routesim server",
		logger.String("version", Version),
		logger.String("config_path", *configPath),
	)

	// Create history storage
	db, err := sqlite.Open(cfg.Storage.HistoryDBPath, log)
	if err != nil {
		log.Error("Failed to open history database", logger.Error(err))
		os.Exit(1)
	}
	defer db.Close()

	historyStorage, err := sqlite.NewHistoryStorage(db, cfg.Storage.MaxHistoryRows, log)
	if err != nil {
		log.Error("Failed to create history storage", logger.Error(err))
		os.Exit(1)
	}

	// Build the fleet; invalid aircraft are logged and left out
	aircraftFleet := fleet.New(cfg.Aircraft, cfg.Simulation, log)
	if aircraftFleet.Len() == 0 {
		log.Error("No valid aircraft in configuration")
		os.Exit(1)
	}

	simStart, err := cfg.Simulation.SimulatedStart(time.Now())
	if err != nil {
		log.Error("Invalid simulated start time", logger.Error(err))
		os.Exit(1)
	}
	simClock := playback.SimClock{Start: simStart, Duration: cfg.Simulation.SimulatedDuration()}
	builder := telemetry.NewBuilder(simClock)

	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		collector, err = metrics.NewCollector(nil)
		if err != nil {
			log.Error("Failed to register metrics", logger.Error(err))
			os.Exit(1)
		}
	}

	scheduler := playback.NewTickerScheduler(cfg.Simulation.FrameRate, nil, log)

	simulationService, err := simulation.NewService(aircraftFleet, builder, historyStorage, collector, simulation.Options{
		AnimationDuration: cfg.Simulation.AnimationDuration(),
		Scheduler:         scheduler,
		MaxHistoryRows:    cfg.Storage.MaxHistoryRows,
		PreviewCacheSize:  cfg.Simulation.PreviewCacheSize,
		PreviewCacheTTL:   time.Duration(cfg.Simulation.PreviewCacheTTLSecs) * time.Second,
	}, log)
	if err != nil {
		log.Error("Failed to create simulation service", logger.Error(err))
		os.Exit(1)
	}

	// Create WebSocket server; it is the presentation sink for every frame
	wsServer := websocket.NewServer(display.FromConfig(cfg.Display), collector, log)
	wsServer.SetMessageHandler(websocket.NewControlHandler(simulationService, log))
	simulationService.Subscribe(wsServer)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go wsServer.Run(ctx)
	go scheduler.Run(ctx)

	log.Info("Simulation ready",
		logger.Int("aircraft", aircraftFleet.Len()),
		logger.Int("rejected", len(aircraftFleet.Rejected())),
		logger.Time("sim_start", simStart),
		logger.Duration("animation", cfg.Simulation.AnimationDuration()))

	// Create API router
	router := api.NewRouter(simulationService, cfg, log, wsServer, collector)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router.Routes(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSecs) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSecs) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeoutSecs) * time.Second,
	}

	go func() {
		log.Info("Starting HTTP server", logger.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error", logger.String("addr", addr), logger.Error(err))
			cancel()
		}
	}()

	if *autoplay {
		simulationService.Play()
	}

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
	case <-ctx.Done():
	}

	log.Info("Shutting down server...")

	simulationService.Pause()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", logger.Error(err))
	}

	// Stops the scheduler and disconnects websocket clients
	cancel()

	log.Info("Server fully stopped")
}
