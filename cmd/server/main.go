package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/me/durq/internal/config"
	"github.com/me/durq/internal/logging"
	"github.com/me/durq/internal/queue"
	"github.com/me/durq/internal/region"
	"github.com/me/durq/internal/runtime"
	"github.com/me/durq/internal/scheduler"
	"github.com/me/durq/internal/server"
	"github.com/me/durq/internal/units"
	"github.com/me/durq/pkg/task"
)

func main() {
	configFile := flag.String("config", "", "Path to YAML config file")
	addr := flag.String("addr", "", "Listen address (overrides config)")
	dbPath := flag.String("db", "", "Database path (overrides config, default ~/.durq/durq.db)")
	capacity := flag.String("capacity", "", "Queue region capacity, e.g. 64MB (overrides config)")
	logLevel := flag.String("log-level", "", "Log level: debug, info, warn, error (overrides config)")
	logFormat := flag.String("log-format", "", "Log format: text, json (overrides config)")
	pollInterval := flag.Duration("poll-interval", 0, "Background drain interval (overrides config)")
	debug := flag.Bool("debug", false, "Shorthand for --log-level=debug")

	flag.Parse()

	cfg := config.DefaultServerConfig()
	if *configFile != "" {
		var err error
		cfg, err = config.Load(*configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "load config: %v\n", err)
			os.Exit(1)
		}
	}

	// Flags win over config file values.
	if *addr != "" {
		cfg.Addr = *addr
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}
	if *capacity != "" {
		cfg.QueueCapacity = *capacity
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if *logFormat != "" {
		cfg.LogFormat = *logFormat
	}
	if *pollInterval > 0 {
		cfg.PollInterval = config.Duration(*pollInterval)
	}
	if *debug {
		cfg.LogLevel = "debug"
	}

	logger := logging.NewLogger(logging.ParseLevel(cfg.LogLevel), cfg.LogFormat)

	// Resolve database path.
	path := cfg.DBPath
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "cannot determine home directory: %v\n", err)
			os.Exit(1)
		}
		dir := filepath.Join(home, ".durq")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "cannot create %s: %v\n", dir, err)
			os.Exit(1)
		}
		path = filepath.Join(dir, "durq.db")
	}

	capBytes, err := cfg.CapacityBytes()
	if err != nil {
		fmt.Fprintf(os.Stderr, "parse capacity: %v\n", err)
		os.Exit(1)
	}

	mgr, err := region.NewManager(path, capBytes, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open database: %v\n", err)
		os.Exit(1)
	}
	defer mgr.Close()

	if err := mgr.Migrate(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "migrate database: %v\n", err)
		os.Exit(1)
	}
	logger.Info("database ready", "path", path)

	reg, err := mgr.Open(context.Background(), cfg.QueueRegion)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open queue region: %v\n", err)
		os.Exit(1)
	}

	codec := task.NewCodec()
	units.Register(units.Deps{Codec: codec, Logger: logger})

	q := queue.NewDurable(reg, codec, logger)
	rt := runtime.New(cfg.RuntimeDepth, logger)

	schedCfg := scheduler.DefaultConfig()
	schedCfg.PollInterval = time.Duration(cfg.PollInterval)
	engine := scheduler.New(q, rt, schedCfg, logger)

	srv := server.New(cfg, q, engine, codec, logger)

	httpServer := &http.Server{
		Addr:    cfg.Addr,
		Handler: srv.Handler(),
	}

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start runtime and scheduler in background.
	go func() {
		if err := rt.Start(ctx); err != nil && ctx.Err() == nil {
			logger.Error("runtime stopped", "error", err)
		}
	}()
	srv.StartScheduler(ctx)

	go func() {
		logger.Info("server starting", "addr", cfg.Addr, "region", cfg.QueueRegion)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	// Stop the scheduler before the runtime so no new async work is
	// dispatched into a stopped runtime.
	if err := engine.Stop(); err != nil {
		logger.Error("scheduler stop error", "error", err)
	}
	rt.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		fmt.Fprintf(os.Stderr, "shutdown error: %v\n", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}
