package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dgallion1/layertree/internal/doctree"
	"github.com/dgallion1/layertree/internal/metrics"
	"github.com/dgallion1/layertree/internal/optstore"
	"github.com/dgallion1/layertree/internal/present"
	"github.com/dgallion1/layertree/internal/walker"
)

// Config tunes the orchestrator.
type Config struct {
	Defaults  walker.Options
	BatchSize int
	Yielder   walker.Yielder
	RunTTL    time.Duration
}

type request struct {
	run   *Run
	nodes []doctree.Node
}

// Orchestrator turns selection changes and refresh requests into walks.
//
// A single worker goroutine performs the walks, one at a time. Requests that
// arrive while a walk is in flight wait in a one-slot mailbox; a newer
// request replaces a waiting one, so the panel only ever sees the latest
// selection rendered after the current walk finishes.
type Orchestrator struct {
	runs   *RunStore
	worker *Worker
	store  optstore.Store
	log    *slog.Logger

	mu      sync.Mutex
	opts    walker.Options
	current []doctree.Node
	pending *request
	closed  bool
	wake    chan struct{}

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewOrchestrator creates the orchestrator. Call Start to begin processing.
func NewOrchestrator(cfg Config, store optstore.Store, pub present.Publisher, log *slog.Logger) *Orchestrator {
	if cfg.RunTTL <= 0 {
		cfg.RunTTL = time.Hour
	}
	if store == nil {
		store = optstore.NewMemory()
	}
	return &Orchestrator{
		runs:   NewRunStore(cfg.RunTTL),
		worker: NewWorker(pub, log, cfg.BatchSize, cfg.Yielder),
		store:  store,
		log:    log,
		opts:   cfg.Defaults,
		wake:   make(chan struct{}, 1),
	}
}

// Start restores the saved option cache and launches the worker.
func (o *Orchestrator) Start(ctx context.Context) {
	if opts, ok, err := o.store.Load(ctx); err != nil {
		o.log.Warn("option cache unavailable, using defaults", "error", err)
	} else if ok {
		o.mu.Lock()
		o.opts = opts
		o.mu.Unlock()
		o.log.Info("restored option cache",
			"simple_names_only", opts.SimpleNamesOnly,
			"include_text", opts.IncludeText,
			"hide_hidden", opts.HideHidden)
	}

	workerCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		defer o.drain()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-o.wake:
				if workerCtx.Err() != nil {
					return
				}
				if req := o.take(); req != nil {
					o.worker.Process(workerCtx, req.run, req.nodes)
				}
			}
		}
	}()

	// Start run store cleanup.
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				o.runs.Cleanup()
			}
		}
	}()
}

// Stop cancels the worker and waits for it to exit. A run still waiting
// in the mailbox fails, as does every run queued afterwards.
func (o *Orchestrator) Stop() {
	if o.cancel != nil {
		o.cancel()
	}
	o.wg.Wait()
	o.drain()
}

// errStopped is the failure recorded for runs that never reach the worker.
const errStopped = "orchestrator stopped"

func (o *Orchestrator) drain() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closed = true
	if o.pending != nil {
		o.pending.run.Finish(StatusFailed, walker.Stats{}, present.Failure(errStopped), errStopped)
		o.pending = nil
	}
}

// SelectionChanged records the new selection and queues a walk of it.
func (o *Orchestrator) SelectionChanged(nodes []doctree.Node) *Run {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.current = append([]doctree.Node(nil), nodes...)
	return o.enqueueLocked(o.current)
}

// Refresh merges patch into the option cache and re-walks the current
// selection. It satisfies present.Refresher.
func (o *Orchestrator) Refresh(ctx context.Context, patch walker.Patch) {
	o.RefreshRun(ctx, patch)
}

// RefreshRun is Refresh returning the queued run.
func (o *Orchestrator) RefreshRun(ctx context.Context, patch walker.Patch) *Run {
	o.mu.Lock()
	o.opts = o.opts.Apply(patch)
	opts := o.opts
	run := o.enqueueLocked(o.current)
	o.mu.Unlock()

	if !patch.Empty() {
		if err := o.store.Save(ctx, opts); err != nil {
			o.log.Warn("failed to persist option cache", "error", err)
		}
	}
	return run
}

// Options returns the current option cache.
func (o *Orchestrator) Options() walker.Options {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.opts
}

// GetRun returns a run by ID.
func (o *Orchestrator) GetRun(id string) *Run {
	return o.runs.Get(id)
}

func (o *Orchestrator) enqueueLocked(nodes []doctree.Node) *Run {
	run := NewRun(o.opts, nodes)
	o.runs.Put(run)
	if o.closed {
		run.Finish(StatusFailed, walker.Stats{}, present.Failure(errStopped), errStopped)
		return run
	}
	if o.pending != nil {
		o.pending.run.Finish(StatusSuperseded, walker.Stats{}, present.SelectionData{}, "")
		metrics.RecordCoalesced()
		o.log.Debug("pending run superseded", "run_id", o.pending.run.ID, "by", run.ID)
	}
	o.pending = &request{run: run, nodes: nodes}
	select {
	case o.wake <- struct{}{}:
	default:
	}
	return run
}

func (o *Orchestrator) take() *request {
	o.mu.Lock()
	defer o.mu.Unlock()
	req := o.pending
	o.pending = nil
	return req
}
