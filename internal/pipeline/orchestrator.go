// Package pipeline runs one extraction pass over a directory tree: discover,
// dispatch to the worker pool, commit results through a single writer, report.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/pdf-text-extractor/internal/common"
	"github.com/joseph-ayodele/pdf-text-extractor/internal/core"
	"github.com/joseph-ayodele/pdf-text-extractor/internal/core/async"
	"github.com/joseph-ayodele/pdf-text-extractor/internal/entity"
	"github.com/joseph-ayodele/pdf-text-extractor/internal/ingest"
)

// State is where a run currently is.
type State int

const (
	StateIdle State = iota
	StateDiscovering
	StateDispatching
	StateDraining
	StateReporting
	StateDone
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDiscovering:
		return "discovering"
	case StateDispatching:
		return "dispatching"
	case StateDraining:
		return "draining"
	case StateReporting:
		return "reporting"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// Writer is the store write path. Only the orchestrator goroutine calls it.
type Writer interface {
	Insert(ctx context.Context, r entity.ExtractionResult) error
	InsertBatch(ctx context.Context, rs []entity.ExtractionResult) error
}

// Options configure a run.
type Options struct {
	InputDir      string
	SkipHidden    bool
	Workers       int
	QueueSize     int
	BatchSize     int
	FlushInterval time.Duration
	RunID         string // "" = fresh uuid
}

// Orchestrator owns the run statistics and is the only writer to the store.
type Orchestrator struct {
	worker async.Worker
	store  Writer
	sink   Sink
	opts   Options
	logger *slog.Logger

	state State
}

func NewOrchestrator(worker async.Worker, store Writer, sink Sink, opts Options, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if sink == nil {
		sink = discardSink{}
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 32
	}
	if opts.FlushInterval <= 0 {
		opts.FlushInterval = 2 * time.Second
	}
	return &Orchestrator{
		worker: worker,
		store:  store,
		sink:   sink,
		opts:   opts,
		logger: logger,
	}
}

// State reports the current run state. Only meaningful from the goroutine running Run.
func (o *Orchestrator) State() State { return o.state }

func (o *Orchestrator) setState(logger *slog.Logger, s State) {
	logger.Debug("run state", "from", o.state, "to", s)
	o.state = s
}

// run is the per-Run mutable state, touched only by the goroutine in Run.
type run struct {
	logger *slog.Logger
	stats  entity.RunStats
	done   int
	total  int
	batch  []entity.ExtractionResult
}

// Run executes one pass. The returned error is non-nil only for fatal
// problems (missing input directory); per-document failures are in the stats.
// Cancelling ctx stops dispatch; documents already handed to a worker finish
// and every collected result is committed before Run returns.
func (o *Orchestrator) Run(ctx context.Context) (entity.RunStats, error) {
	start := time.Now()
	ctx, runID := common.WithRunID(ctx, o.opts.RunID)
	r := &run{
		logger: o.logger.With("run_id", runID),
		stats:  entity.RunStats{RunID: runID},
		batch:  make([]entity.ExtractionResult, 0, o.opts.BatchSize),
	}
	defer func() { o.setState(r.logger, StateDone) }()

	o.setState(r.logger, StateDiscovering)
	paths, dirStats, err := ingest.Discover(ctx, o.opts.InputDir, ingest.Options{SkipHidden: o.opts.SkipHidden}, r.logger)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			r.stats.Cancelled = true
			r.stats.Duration = time.Since(start)
			return r.stats, nil
		}
		return r.stats, err
	}
	r.stats.Discovered = len(paths)
	r.total = len(paths)
	r.logger.Info("discovery complete",
		"input_dir", o.opts.InputDir,
		"pdfs", len(paths),
		"scanned", dirStats.Scanned,
		"unreadable", dirStats.Failed,
	)
	o.sink.Emit(Event{Kind: EventDiscovered, Total: r.total})

	// Workers and writes run on a context that ignores the interrupt so a
	// document in flight is finished and committed, never half-written.
	// Queued documents that have not started are dropped on interrupt.
	workCtx := context.WithoutCancel(ctx)

	pool := async.NewPool(o.worker, r.logger,
		async.WithWorkers(o.opts.Workers),
		async.WithQueueSize(o.opts.QueueSize),
		async.WithStop(ctx),
	)
	pool.Start(workCtx)
	r.logger.Info("dispatching", "workers", pool.Workers(), "documents", len(paths))

	o.setState(r.logger, StateDispatching)
	dispatched := make(chan int, 1)
	go o.dispatch(ctx, r.logger, pool, paths, dispatched)

	ticker := time.NewTicker(o.opts.FlushInterval)
	defer ticker.Stop()

	enqueued := -1
	outcomes := pool.Outcomes()
	for outcomes != nil {
		select {
		case out, ok := <-outcomes:
			if !ok {
				outcomes = nil
				continue
			}
			o.consume(workCtx, r, out)
		case n := <-dispatched:
			enqueued = n
			dispatched = nil
			o.setState(r.logger, StateDraining)
		case <-ticker.C:
			o.flush(workCtx, r)
		}
	}
	o.flush(workCtx, r)
	if enqueued < 0 {
		enqueued = <-dispatched
	}

	started := enqueued - pool.Dropped()

	o.setState(r.logger, StateReporting)
	r.stats.Cancelled = ctx.Err() != nil && started < len(paths)
	r.stats.Duration = time.Since(start)
	stats := r.stats
	o.sink.Emit(Event{Kind: EventFinished, Done: r.done, Total: r.total, Stats: &stats})
	r.logger.Info("run complete",
		"discovered", stats.Discovered,
		"processed", stats.Processed,
		"skipped", stats.Skipped,
		"succeeded_direct", stats.SucceededDirect,
		"succeeded_ocr", stats.SucceededOCR,
		"failed", stats.Failed,
		"cancelled", stats.Cancelled,
		"duration_ms", stats.Duration.Milliseconds(),
	)
	return stats, nil
}

// dispatch feeds the pool until paths run out or ctx is cancelled, then closes it.
func (o *Orchestrator) dispatch(ctx context.Context, logger *slog.Logger, pool *async.Pool, paths []string, done chan<- int) {
	n := 0
	defer func() {
		pool.Close()
		done <- n
	}()
	for _, p := range paths {
		if ctx.Err() != nil {
			break
		}
		if err := pool.Enqueue(ctx, async.Job{Path: p}); err != nil {
			break
		}
		n++
	}
	if n < len(paths) {
		logger.Warn("dispatch stopped early", "enqueued", n, "remaining", len(paths)-n)
	}
}

func (o *Orchestrator) consume(ctx context.Context, r *run, out core.Outcome) {
	if out.Skipped {
		r.stats.Skipped++
		r.done++
		o.sink.Emit(Event{Kind: EventSkipped, Path: out.Path, Done: r.done, Total: r.total})
		return
	}
	r.batch = append(r.batch, out.Result)
	if len(r.batch) >= o.opts.BatchSize {
		o.flush(ctx, r)
	}
}

// flush commits the pending batch in one transaction. If that fails the
// records are written one at a time so one bad record cannot sink the rest;
// a record that still fails is counted as a failure.
func (o *Orchestrator) flush(ctx context.Context, r *run) {
	if len(r.batch) == 0 {
		return
	}
	batch := r.batch
	r.batch = make([]entity.ExtractionResult, 0, o.opts.BatchSize)

	err := o.store.InsertBatch(ctx, batch)
	if err == nil {
		for _, res := range batch {
			o.commit(r, res)
		}
		return
	}
	r.logger.Warn("batch write failed, retrying record by record", "size", len(batch), "error", err)
	for _, res := range batch {
		if err := o.store.Insert(ctx, res); err != nil {
			r.logger.Error("failed to store result", "path", res.FilePath, "error", err)
			res = res.Demote(common.NewStoreError("store write failed", err).Error())
		}
		o.commit(r, res)
	}
}

func (o *Orchestrator) commit(r *run, res entity.ExtractionResult) {
	r.stats.Record(res)
	r.done++
	o.sink.Emit(Event{Kind: EventCommitted, Path: res.FilePath, Result: &res, Done: r.done, Total: r.total})
}
