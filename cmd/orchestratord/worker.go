package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"grabby-orchestrator/internal/engineregistry"
	"grabby-orchestrator/internal/errkind"
	"grabby-orchestrator/internal/eventbus"
	"grabby-orchestrator/internal/queue"
)

// idlePollInterval is how long a worker sleeps after Next reports nothing
// schedulable, to avoid busy-spinning the scheduler's lock.
const idlePollInterval = 500 * time.Millisecond

// workerPool drives admitted queue items through engine selection and
// fetch execution: Next -> Select -> Fetch -> Complete. Workers poll the
// scheduler independently; concurrency is capped by the scheduler's own
// admission gate, not by the number of workers racing to call Next.
type workerPool struct {
	scheduler *queue.Scheduler
	registry  *engineregistry.Registry
	bus       *eventbus.Bus
	logger    *slog.Logger

	dataDir                 string
	defaultItemBandwidthBps int64
	graceOnCancel           time.Duration
	hardTimeout             time.Duration
}

// run starts n workers and blocks until ctx is cancelled, then waits for
// any in-flight fetch to observe the cancellation before returning.
func (p *workerPool) run(ctx context.Context, n int) {
	done := make(chan struct{})
	for i := 0; i < n; i++ {
		go func(workerID int) {
			p.loop(ctx, workerID)
			done <- struct{}{}
		}(i)
	}
	for i := 0; i < n; i++ {
		<-done
	}
}

func (p *workerPool) loop(ctx context.Context, workerID int) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		item, err := p.scheduler.Next(p.defaultItemBandwidthBps)
		if err != nil {
			p.logger.Error("scheduler.Next failed", "worker", workerID, "error", err)
			sleepOrDone(ctx, idlePollInterval)
			continue
		}
		if item == nil {
			sleepOrDone(ctx, idlePollInterval)
			continue
		}

		p.dispatch(ctx, item)
	}
}

// dispatch runs one item end to end: engine selection, fetch under a
// grace-then-hard-timeout context, and completion bookkeeping.
func (p *workerPool) dispatch(ctx context.Context, item *queue.Item) {
	engine, ok := p.registry.Select(item.URL, engineregistry.EngineName(item.EngineHint))
	if !ok {
		p.logger.Warn("no engine available for item", "item_id", item.ID, "url", item.URL)
		if err := p.scheduler.Complete(item.ID, false, map[string]any{"error": "no engine available"}); err != nil {
			p.logger.Error("failed to record completion", "item_id", item.ID, "error", err)
		}
		return
	}

	outputDir := filepath.Join(p.dataDir, "downloads", item.ID)
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		p.logger.Error("failed to create output directory", "item_id", item.ID, "path", outputDir, "error", err)
		if cerr := p.scheduler.Complete(item.ID, false, map[string]any{"error": err.Error()}); cerr != nil {
			p.logger.Error("failed to record completion", "item_id", item.ID, "error", cerr)
		}
		return
	}

	var fetchCtx context.Context
	var cancel context.CancelFunc
	if p.hardTimeout > 0 {
		fetchCtx, cancel = context.WithTimeout(ctx, p.hardTimeout)
	} else {
		fetchCtx, cancel = context.WithCancel(ctx)
	}
	graceCancel := p.graceWrap(cancel)
	p.scheduler.RegisterCancelFunc(item.ID, graceCancel)
	defer func() {
		p.scheduler.UnregisterCancelFunc(item.ID)
		cancel()
	}()

	req := engineregistry.Request{
		URL:       item.URL,
		OutputDir: outputDir,
		Metadata:  item.Metadata,
	}

	onProgress := func(percent float64, speed, eta string) {
		p.bus.Publish(eventbus.DownloadProgress, "worker", map[string]any{
			"id": item.ID, "percent": percent, "speed": speed, "eta": eta,
		})
	}

	result, err := engine.Fetch(fetchCtx, req, onProgress)
	if err != nil {
		p.completeFailure(item, engine.Name(), err)
		return
	}

	if err := p.scheduler.Complete(item.ID, true, map[string]any{
		"engine":      string(result.Engine),
		"output_path": result.OutputPath,
		"title":       result.Title,
	}); err != nil {
		p.logger.Error("failed to record successful completion", "item_id", item.ID, "error", err)
	}
}

func (p *workerPool) completeFailure(item *queue.Item, engine engineregistry.EngineName, fetchErr error) {
	var kerr *errkind.Error
	if errors.As(fetchErr, &kerr) && kerr.Kind == errkind.CancellationRequested {
		// Cancellation comes from Scheduler.Cancel, which already moved
		// the item to StatusCancelled and out of the active set, or from
		// daemon shutdown, where the item stays active until Restore
		// re-queues it on the next start; nothing is recorded here.
		p.logger.Info("fetch cancelled", "item_id", item.ID, "engine", engine)
		return
	}

	p.logger.Warn("fetch failed", "item_id", item.ID, "engine", engine, "error", fetchErr)
	if err := p.scheduler.Complete(item.ID, false, map[string]any{"error": fetchErr.Error()}); err != nil {
		p.logger.Error("failed to record failed completion", "item_id", item.ID, "error", err)
	}
}

// graceWrap returns a CancelFunc that waits graceOnCancel before invoking
// the real cancel, giving the in-flight subprocess a window to exit on
// its own before its context is torn down. A zero grace cancels
// immediately.
func (p *workerPool) graceWrap(cancel context.CancelFunc) context.CancelFunc {
	if p.graceOnCancel <= 0 {
		return cancel
	}
	return func() {
		timer := time.NewTimer(p.graceOnCancel)
		go func() {
			<-timer.C
			cancel()
		}()
	}
}

func sleepOrDone(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
