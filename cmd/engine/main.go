package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/ingestkit/engine/engine"
	"github.com/ingestkit/engine/metrics"
	"github.com/ingestkit/engine/observability"
	"github.com/ingestkit/engine/queue"
)

func main() {
	var (
		configFile   = flag.String("config", "", "Path to engine config JSON file (required)")
		workflowPath = flag.String("workflow", "", "Path to workflow description YAML (overrides config)")
		dataDir      = flag.String("data-dir", "", "Badger database directory (overrides config)")
		submitName   = flag.String("submit-name", "", "If set, submit one package with this name on startup")
		submitURL    = flag.String("submit-url", "", "Source URL for -submit-name")
		verbose      = flag.Bool("verbose", false, "Enable verbose logging to stderr")
	)
	flag.Parse()

	if *configFile == "" {
		fmt.Fprintln(os.Stderr, "Usage: ingestkit-engine -config <file> [-submit-name <name> -submit-url <url>]")
		flag.PrintDefaults()
		os.Exit(1)
	}

	cfg, err := engine.LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *workflowPath != "" {
		cfg.WorkflowPath = *workflowPath
	}
	if *dataDir != "" {
		cfg.Badger.Path = *dataDir
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	registry := newRegistry()
	promSink := metrics.NewPrometheusSink(nil)

	eng, err := engine.New(*cfg,
		engine.WithRegistry(registry),
		engine.WithMetrics(promSink),
		engine.WithObserver(observability.NewSlogObserver(logger)),
	)
	if err != nil {
		log.Fatalf("Failed to create engine: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	done := make(chan struct{})
	go func() {
		eng.Run(ctx)
		close(done)
	}()

	if *submitName != "" {
		if *submitURL == "" {
			log.Fatalf("-submit-url is required with -submit-name")
		}
		pkg, err := eng.Submit(ctx, *submitName, *submitURL, cfg.DefaultProcessing, queue.ClassTransfer)
		if err != nil {
			log.Fatalf("Submit failed: %v", err)
		}
		logger.Info("package submitted", "package_id", pkg.ID, "name", pkg.Name)
	}

	<-ctx.Done()
	logger.Info("shutdown signal received, draining in-flight jobs")

	select {
	case <-done:
	case <-time.After(cfg.Queue.ShutdownDeadline + 5*time.Second):
		logger.Warn("engine shutdown exceeded grace period, exiting anyway")
	}
}
