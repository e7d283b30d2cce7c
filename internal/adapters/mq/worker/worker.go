package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/okian/evalharvest/pkg/logger"
	"github.com/okian/evalharvest/pkg/metrics"
)

const poolShutdownTimeout = 30 * time.Second

// Queue defines how workers receive items.
type Queue[T any] interface {
	Dequeue(ctx context.Context) <-chan T
}

// ProcessFunc handles one item. Errors are reported in the Result, never
// stop the worker.
type ProcessFunc[T, R any] func(ctx context.Context, item T) (R, error)

// Factory builds the processor owned by one worker, so per-worker caches
// need no coordination.
type Factory[T, R any] func(worker int) ProcessFunc[T, R]

// Shared returns a Factory handing every worker the same fn.
func Shared[T, R any](fn ProcessFunc[T, R]) Factory[T, R] {
	return func(int) ProcessFunc[T, R] { return fn }
}

// Result is one message on the result channel: either an item outcome or,
// in sentinel mode, a Done marker from a finished worker.
type Result[T, R any] struct {
	Item    T
	Value   R
	Err     error
	Worker  int
	Elapsed time.Duration
	Done    bool
}

// Pool manages multiple workers reading one queue.
type Pool[T, R any] struct {
	size       int
	queue      Queue[T]
	factory    Factory[T, R]
	completion Completion
	name       string

	mu      sync.Mutex
	started bool
	results chan Result[T, R]
	wg      sync.WaitGroup
	done    chan struct{}

	logger logger.Logger
}

// NewPool creates a pool of workerCount workers; a count below one uses
// runtime.NumCPU().
func NewPool[T, R any](workerCount int, queue Queue[T], factory Factory[T, R], opts ...Option) *Pool[T, R] {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}
	s := settings{name: "worker", completion: Sentinel, logger: logger.Nop()}
	for _, opt := range opts {
		opt(&s)
	}
	return &Pool[T, R]{
		size:       workerCount,
		queue:      queue,
		factory:    factory,
		completion: s.completion,
		name:       s.name,
		results:    make(chan Result[T, R], workerCount),
		done:       make(chan struct{}),
		logger:     s.logger,
	}
}

// Size returns the number of workers.
func (p *Pool[T, R]) Size() int { return p.size }

// Completion returns the accounting style of the result stream.
func (p *Pool[T, R]) Completion() Completion { return p.completion }

// Start launches the workers and returns the result channel. The channel is
// closed once every worker has exited.
func (p *Pool[T, R]) Start(ctx context.Context) (<-chan Result[T, R], error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return nil, ErrStarted
	}
	p.started = true

	for i := range p.size {
		w := &worker[T, R]{
			id:       i,
			queue:    p.queue,
			process:  p.factory(i),
			sentinel: p.completion == Sentinel,
			logger:   p.logger.Named(p.name + "-" + strconv.Itoa(i)),
		}
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			w.run(ctx, p.results)
		}()
	}
	go func() {
		p.wg.Wait()
		close(p.results)
		close(p.done)
	}()
	return p.results, nil
}

// Shutdown closes the queue if it can be closed and waits for the workers
// to drain it.
func (p *Pool[T, R]) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()
	select {
	case <-p.done:
		return nil
	case <-shutdownCtx.Done():
		p.logger.Warn(ctx, "worker shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", shutdownCtx.Err())
	}
}

type worker[T, R any] struct {
	id       int
	queue    Queue[T]
	process  ProcessFunc[T, R]
	sentinel bool
	logger   logger.Logger
}

func (w *worker[T, R]) run(ctx context.Context, out chan<- Result[T, R]) {
	metrics.AddActiveWorkers(1)
	defer metrics.AddActiveWorkers(-1)

	items := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case item, ok := <-items:
			if !ok {
				if w.sentinel {
					w.send(ctx, out, Result[T, R]{Worker: w.id, Done: true})
				}
				w.logger.Debug(ctx, "queue drained")
				return
			}
			metrics.UpdateQueueSize(len(items))

			start := time.Now()
			value, err := w.process(ctx, item)
			res := Result[T, R]{Item: item, Value: value, Err: err, Worker: w.id, Elapsed: time.Since(start)}
			if !w.send(ctx, out, res) {
				return
			}
		}
	}
}

func (w *worker[T, R]) send(ctx context.Context, out chan<- Result[T, R], res Result[T, R]) bool {
	select {
	case out <- res:
		return true
	case <-ctx.Done():
		return false
	}
}
