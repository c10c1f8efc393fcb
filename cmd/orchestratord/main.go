// Command orchestratord runs the download orchestrator as a long-lived
// daemon: it loads configuration, wires the scheduler/rules/persistence
// components together, restores any queue state from the previous run,
// and serves the demonstration control surface until signaled to stop.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"grabby-orchestrator/internal/bandwidth"
	"grabby-orchestrator/internal/config"
	"grabby-orchestrator/internal/controlsrv"
	"grabby-orchestrator/internal/dedup"
	"grabby-orchestrator/internal/engineadapter"
	"grabby-orchestrator/internal/engineregistry"
	"grabby-orchestrator/internal/eventbus"
	"grabby-orchestrator/internal/obslog"
	"grabby-orchestrator/internal/persist"
	"grabby-orchestrator/internal/queue"
	"grabby-orchestrator/internal/retrypolicy"
	"grabby-orchestrator/internal/rules"
)

// busEventAdapter lets obslog publish onto an *eventbus.Bus without the
// logging package depending on the event type concretely.
type busEventAdapter struct{ bus *eventbus.Bus }

func (a busEventAdapter) Publish(eventType, source string, data map[string]any) string {
	return a.bus.Publish(eventbus.EventType(eventType), source, data)
}

func main() {
	configPath := flag.String("config", "", "path to orchestrator config YAML file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	bus := eventbus.New(eventbus.WithMaxHistory(cfg.EventHistoryCapacity))
	level := parseLevel(cfg.LogLevel)
	logger := obslog.New(busEventAdapter{bus: bus}, level)
	slog.SetDefault(logger)

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		logger.Error("failed to create data directory", "path", cfg.DataDir, "error", err)
		os.Exit(1)
	}

	store, err := persist.Open(queueStorePath(cfg))
	if err != nil {
		logger.Error("failed to open persistence store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	detector := dedup.New()
	ledger := bandwidth.NewLedger(cfg.TotalBandwidthBps)
	retry := retrypolicy.Policy{
		BaseDelay:  time.Duration(cfg.RetryBaseSeconds) * time.Second,
		MaxDelay:   time.Duration(cfg.RetryMaxSeconds) * time.Second,
		MaxRetries: cfg.RetryMaxAttempts,
	}
	scheduler := queue.New(bus, detector, ledger, retry, cfg.MaxConcurrent)

	if saved, err := store.LoadItems(); err != nil {
		logger.Warn("failed to load persisted queue items", "error", err)
	} else if len(saved) > 0 {
		scheduler.Restore(saved)
		logger.Info("restored queue items from previous run", "count", len(saved))
	}

	registry := engineregistry.New(
		engineadapter.NewYtDlpAria2Engine(),
		engineadapter.NewStreamlinkEngine(),
		engineadapter.NewGalleryDlEngine(),
		engineadapter.NewRipmeEngine(cfg.RipmeJarPath),
	)

	rulesEngine := rules.New(bus)
	savedRules, err := store.LoadRules()
	if err != nil {
		logger.Warn("failed to load persisted rules", "error", err)
	}
	if len(savedRules) == 0 {
		savedRules = rules.DefaultRules()
		for _, r := range savedRules {
			if err := store.SaveRule(r); err != nil {
				logger.Warn("failed to persist default rule", "rule_id", r.ID, "error", err)
			}
		}
	}
	for _, r := range savedRules {
		if err := rulesEngine.AddRule(r); err != nil {
			logger.Warn("failed to register rule", "rule_id", r.ID, "error", err)
		}
	}

	server := controlsrv.New(scheduler, registry, rulesEngine, bus, logger)
	httpServer := &http.Server{Addr: cfg.ControlAddr, Handler: server}

	bus.Publish(eventbus.SystemStartup, "orchestratord", map[string]any{"control_addr": cfg.ControlAddr})

	go func() {
		logger.Info("control surface listening", "addr", cfg.ControlAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("control surface failed", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool := &workerPool{
		scheduler:               scheduler,
		registry:                registry,
		bus:                     bus,
		logger:                  logger,
		dataDir:                 cfg.DataDir,
		defaultItemBandwidthBps: cfg.DefaultItemBandwidthBps,
		graceOnCancel:           time.Duration(cfg.GraceSecondsOnCancel) * time.Second,
		hardTimeout:             time.Duration(cfg.HardItemTimeoutSeconds) * time.Second,
	}
	var workersDone sync.WaitGroup
	workersDone.Add(1)
	go func() {
		defer workersDone.Done()
		logger.Info("worker pool starting", "concurrency", cfg.MaxConcurrent)
		pool.run(ctx, cfg.MaxConcurrent)
	}()

	<-ctx.Done()

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(shutdownCtx)

	workersDone.Wait()
	persistQueueState(scheduler, store, logger)
	bus.Shutdown()
}

// queueStorePath resolves cfg.QueueStoreURL to the filesystem path the
// sqlite persistence layer opens. Only the sqlite scheme is currently
// supported; other schemes fall back to the raw value so a future
// persistence backend can recognize its own prefix.
func queueStorePath(cfg config.Config) string {
	if path, ok := strings.CutPrefix(cfg.QueueStoreURL, "sqlite://"); ok {
		return path
	}
	if cfg.QueueStoreURL != "" {
		return cfg.QueueStoreURL
	}
	return cfg.DatabasePath
}

func persistQueueState(scheduler *queue.Scheduler, store *persist.Store, logger *slog.Logger) {
	items := scheduler.Items()
	for _, it := range items {
		if err := store.SaveItem(it); err != nil {
			logger.Warn("failed to persist queue item", "item_id", it.ID, "error", err)
		}
	}
	logger.Info("persisted queue snapshot", "count", len(items))
}

func parseLevel(name string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return slog.LevelInfo
	}
	return level
}
