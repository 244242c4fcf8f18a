package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgallion1/layertree/internal/doctree"
	"github.com/dgallion1/layertree/internal/metrics"
	"github.com/dgallion1/layertree/internal/present"
	"github.com/dgallion1/layertree/internal/walker"
)

// Worker performs one bracketed walk attempt per run.
type Worker struct {
	pub       present.Publisher
	log       *slog.Logger
	batchSize int
	yielder   walker.Yielder
}

func NewWorker(pub present.Publisher, log *slog.Logger, batchSize int, yielder walker.Yielder) *Worker {
	if yielder == nil {
		yielder = walker.Gosched
	}
	return &Worker{
		pub:       pub,
		log:       log,
		batchSize: batchSize,
		yielder:   yielder,
	}
}

// Process publishes processing-started, exactly one selection-data and
// processing-complete for the run, whatever happens in between.
func (w *Worker) Process(ctx context.Context, run *Run, nodes []doctree.Node) {
	log := w.log.With("run_id", run.ID, "roots", len(nodes))
	start := time.Now()

	w.pub.Publish(present.ProcessingStarted(run.ID))
	defer w.pub.Publish(present.ProcessingComplete(run.ID))

	run.SetStatus(StatusWalking)
	data, stats, err := w.attempt(ctx, run.Options, nodes)

	status := StatusCompleted
	errMsg := ""
	switch {
	case err != nil:
		status = StatusFailed
		errMsg = err.Error()
		data = present.Failure(errMsg)
		log.Error("walk failed", "error", err)
	case len(nodes) == 0:
		status = StatusEmpty
		log.Debug("empty selection")
	default:
		log.Info("walk complete",
			"visited", stats.Visited,
			"cycles", stats.Cycles,
			"hidden", stats.Hidden,
			"yields", stats.Yields,
			"duration", time.Since(start))
	}

	run.Finish(status, stats, data, errMsg)
	metrics.RecordRun(string(status), time.Since(start), stats.Visited, stats.Cycles, stats.Hidden, stats.Yields)
	w.pub.Publish(present.SelectionDataMessage(run.ID, data))
}

// attempt is the failure boundary: panics raised by node implementations
// come back as errors.
func (w *Worker) attempt(ctx context.Context, opts walker.Options, nodes []doctree.Node) (data present.SelectionData, stats walker.Stats, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()

	if len(nodes) == 0 {
		return present.NoSelection(), walker.Stats{}, nil
	}

	wk := walker.New(opts, walker.WithBatchSize(w.batchSize), walker.WithYielder(w.yielder))
	res, err := wk.Walk(ctx, nodes)
	if err != nil {
		return present.SelectionData{}, res.Stats, fmt.Errorf("walk interrupted: %w", err)
	}
	data, err = present.FromResult(res)
	if err != nil {
		return present.SelectionData{}, res.Stats, fmt.Errorf("encode tree: %w", err)
	}
	return data, res.Stats, nil
}
