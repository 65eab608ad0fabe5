// Package jobrunner provides the fixed-size worker pool that executes conversions off the request path.
package jobrunner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/webcloud7/wcs.pdfserver/internal/core"
	apperrors "github.com/webcloud7/wcs.pdfserver/internal/errors"
	"github.com/webcloud7/wcs.pdfserver/internal/observability/metrics"
	"github.com/webcloud7/wcs.pdfserver/internal/observability/statsd"
)

// DefaultPoolSize is the number of worker slots used when PoolOptions.Size is not positive.
const DefaultPoolSize = 10

var (
	// ErrPoolClosed is returned by Submit once the pool has shut down.
	ErrPoolClosed = apperrors.Unavailable("worker pool is shut down")
	// ErrPoolRunning is returned when Run is called on a pool that is already running.
	ErrPoolRunning = errors.New("worker pool is already running")
	// ErrTaskPanicked wraps the recovered value of a task that panicked.
	ErrTaskPanicked = errors.New("task panicked")
	// ErrTaskRequired is returned when Submit is called with a nil task.
	ErrTaskRequired = errors.New("task is required")
)

// PoolOptions configures the worker pool.
type PoolOptions struct {
	Size    int          // number of worker goroutines; defaults to DefaultPoolSize
	Logger  *slog.Logger // Optional: structured logger
	Metrics statsd.Sink  // Optional: metrics sink (StatsD-compatible)
}

// PoolStats is a point-in-time view of the pool.
type PoolStats struct {
	Size   int `json:"size"`
	Active int `json:"active"`
	Queued int `json:"queued"`
}

// Pool runs submitted tasks on a fixed number of workers. Submissions beyond
// capacity wait in an unbounded FIFO queue.
type Pool struct {
	size    int
	logger  *slog.Logger
	metrics statsd.Sink

	mu      sync.Mutex
	queue   []queuedTask
	active  int
	running bool
	closed  bool

	notify chan struct{}
}

type queuedTask struct {
	task     core.Task
	done     core.TaskCallback
	enqueued time.Time
}

var _ core.TaskRunner = (*Pool)(nil)

// NewPool constructs a pool. Workers start when Run is called; tasks submitted
// before that are queued.
func NewPool(opts PoolOptions) *Pool {
	size := opts.Size
	if size <= 0 {
		size = DefaultPoolSize
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Pool{
		size:    size,
		logger:  logger.With("component", "worker_pool"),
		metrics: opts.Metrics,
		notify:  make(chan struct{}, 1),
	}
}

// Submit queues task for execution. done receives the result on the worker goroutine;
// it is never called for tasks still queued when the pool shuts down.
func (p *Pool) Submit(task core.Task, done core.TaskCallback) error {
	if task == nil {
		return ErrTaskRequired
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrPoolClosed
	}
	p.queue = append(p.queue, queuedTask{task: task, done: done, enqueued: time.Now()})
	depth := len(p.queue)
	p.mu.Unlock()

	p.gauge("pool.queue_depth", depth)
	p.signal()
	return nil
}

// Stats returns the current pool occupancy.
func (p *Pool) Stats() PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return PoolStats{Size: p.size, Active: p.active, Queued: len(p.queue)}
}

// Run starts the workers and blocks until ctx is cancelled and every in-flight task
// has returned. In-flight tasks run under a context that is not cancelled by shutdown.
// Returns nil on graceful shutdown (context.Canceled).
func (p *Pool) Run(ctx context.Context) error {
	p.mu.Lock()
	switch {
	case p.closed:
		p.mu.Unlock()
		return ErrPoolClosed
	case p.running:
		p.mu.Unlock()
		return ErrPoolRunning
	}
	p.running = true
	p.mu.Unlock()

	p.logger.InfoContext(ctx, "starting worker pool", "workers", p.size)

	taskCtx := context.WithoutCancel(ctx)
	group, gctx := errgroup.WithContext(ctx)
	for worker := range p.size {
		group.Go(func() error {
			p.workerLoop(gctx, taskCtx, worker)
			return nil
		})
	}
	err := group.Wait()

	abandoned := p.close()
	p.logger.InfoContext(ctx, "worker pool stopped", "reason", ctx.Err(), "abandoned", abandoned)

	if err != nil {
		return err
	}
	if errors.Is(ctx.Err(), context.Canceled) {
		return nil
	}
	return ctx.Err()
}

func (p *Pool) close() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.running = false
	abandoned := len(p.queue)
	p.queue = nil
	return abandoned
}

func (p *Pool) workerLoop(ctx, taskCtx context.Context, worker int) {
	for ctx.Err() == nil {
		item, ok := p.next()
		if !ok {
			if !p.waitForNotify(ctx) {
				return
			}
			continue
		}
		p.execute(taskCtx, worker, item)
	}
}

func (p *Pool) waitForNotify(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-p.notify:
		return true
	}
}

// next pops the oldest queued task and marks a slot active.
func (p *Pool) next() (queuedTask, bool) {
	p.mu.Lock()
	if len(p.queue) == 0 {
		p.mu.Unlock()
		return queuedTask{}, false
	}
	item := p.queue[0]
	p.queue[0] = queuedTask{}
	p.queue = p.queue[1:]
	p.active++
	remaining := len(p.queue)
	p.mu.Unlock()

	// Hand the wakeup on so an idle worker picks up the rest of the backlog.
	if remaining > 0 {
		p.signal()
	}
	p.gauge("pool.queue_depth", remaining)
	return item, true
}

func (p *Pool) signal() {
	select {
	case p.notify <- struct{}{}:
	default:
	}
}

func (p *Pool) execute(ctx context.Context, worker int, item queuedTask) {
	start := time.Now()
	defer func() {
		p.mu.Lock()
		p.active--
		p.mu.Unlock()
	}()

	artifact, err := p.runTask(ctx, worker, item.task)
	res := core.TaskResult{
		Artifact: artifact,
		Err:      err,
		Waited:   start.Sub(item.enqueued),
		Duration: time.Since(start),
	}

	result := metrics.ResultSuccess
	if err != nil {
		result = metrics.ResultError
	}
	if p.metrics != nil {
		tags := map[string]string{"result": result}
		p.metrics.Timing("pool.task", res.Duration, tags)
		p.metrics.Timing("pool.wait", res.Waited, metrics.CloneTags(tags))
	}

	if item.done != nil {
		p.deliver(worker, item.done, res)
	}
}

// runTask converts a panic inside the task into an error result.
func (p *Pool) runTask(ctx context.Context, worker int, task core.Task) (artifact []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.ErrorContext(ctx, "task panicked",
				"worker", worker,
				"panic", r,
				"stack", string(debug.Stack()))
			artifact = nil
			err = fmt.Errorf("%w: %v", ErrTaskPanicked, r)
		}
	}()
	return task(ctx)
}

func (p *Pool) deliver(worker int, done core.TaskCallback, res core.TaskResult) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("task callback panicked",
				"worker", worker,
				"panic", r,
				"stack", string(debug.Stack()))
		}
	}()
	done(res)
}

func (p *Pool) gauge(name string, value int) {
	if p.metrics == nil {
		return
	}
	p.metrics.Gauge(name, float64(value), nil)
}
