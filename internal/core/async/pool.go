// Package async runs documents through a bounded set of workers.
package async

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/pdf-text-extractor/internal/core"
)

// Job is one document handed to the pool.
type Job struct {
	Path        string
	SubmittedAt time.Time
}

// Worker processes one document. core.Processor is the production Worker.
type Worker interface {
	Process(ctx context.Context, path string) core.Outcome
}

// ErrClosed is returned by Enqueue after Close.
var ErrClosed = errors.New("pool is closed")

// Pool fans jobs out to a fixed number of workers and fans their outcomes
// back in on a single channel. Enqueue and Close belong to one producer
// goroutine; Outcomes belongs to one consumer, which must keep reading until
// the channel closes.
type Pool struct {
	worker    Worker
	logger    *slog.Logger
	workers   int
	queueSize int

	stop     context.Context
	dropped  atomic.Int64
	jobs     chan Job
	outcomes chan core.Outcome
	g        *errgroup.Group
	started  bool
	closed   bool
}

type Option func(*Pool)

func WithWorkers(n int) Option {
	return func(p *Pool) {
		if n > 0 {
			p.workers = n
		}
	}
}

func WithQueueSize(n int) Option {
	return func(p *Pool) {
		if n > 0 {
			p.queueSize = n
		}
	}
}

// WithStop makes workers drop queued jobs that have not started once ctx is
// done. A job already being processed always runs to completion.
func WithStop(ctx context.Context) Option {
	return func(p *Pool) {
		p.stop = ctx
	}
}

// NewPool builds a pool of 4 workers over a queue of 256 unless options say otherwise.
func NewPool(worker Worker, logger *slog.Logger, opts ...Option) *Pool {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Pool{
		worker:    worker,
		logger:    logger,
		workers:   4,
		queueSize: 256,
	}
	for _, o := range opts {
		o(p)
	}
	p.jobs = make(chan Job, p.queueSize)
	p.outcomes = make(chan core.Outcome, p.workers)
	return p
}

// Workers is the configured worker count.
func (p *Pool) Workers() int { return p.workers }

// Start launches the workers. Every job runs under ctx; the caller decides
// whether that context follows an interrupt.
func (p *Pool) Start(ctx context.Context) {
	if p.started {
		return
	}
	p.started = true
	g, gctx := errgroup.WithContext(ctx)
	p.g = g
	for i := 0; i < p.workers; i++ {
		workerID := i + 1
		g.Go(func() error {
			p.logger.Debug("worker started", "worker_id", workerID)
			for job := range p.jobs {
				if p.stop != nil && p.stop.Err() != nil {
					p.dropped.Add(1)
					continue
				}
				start := time.Now()
				out := p.worker.Process(gctx, job.Path)
				p.logger.Debug("worker finished document",
					"worker_id", workerID,
					"path", job.Path,
					"queued_ms", start.Sub(job.SubmittedAt).Milliseconds(),
					"duration_ms", time.Since(start).Milliseconds(),
				)
				p.outcomes <- out
			}
			p.logger.Debug("worker stopped", "worker_id", workerID)
			return nil
		})
	}
	go func() {
		_ = g.Wait()
		close(p.outcomes)
	}()
}

// Enqueue blocks until a worker slot frees up in the queue or ctx is done.
func (p *Pool) Enqueue(ctx context.Context, job Job) error {
	if p.closed {
		return ErrClosed
	}
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now()
	}
	select {
	case p.jobs <- job:
		return nil
	default:
	}
	p.logger.Debug("queue full, applying backpressure", "path", job.Path)
	select {
	case p.jobs <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting jobs. Workers finish what is queued, then Outcomes closes.
func (p *Pool) Close() {
	if p.closed {
		return
	}
	p.closed = true
	close(p.jobs)
}

// Dropped is how many queued jobs were discarded after the stop context ended.
// Final once Outcomes has closed.
func (p *Pool) Dropped() int { return int(p.dropped.Load()) }

// Outcomes delivers one Outcome per enqueued job that was not dropped and closes once every worker has exited.
func (p *Pool) Outcomes() <-chan core.Outcome {
	return p.outcomes
}
