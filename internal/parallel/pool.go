package parallel

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime/debug"
	"time"

	"golang.org/x/sync/errgroup"
)

// ErrPanic marks a task whose workload panicked.
var ErrPanic = errors.New("workload panicked")

// ThreadPool runs tasks on a fixed set of goroutines sharing one address
// space. It suits workloads that spend their time waiting on I/O; CPU-bound
// workloads also scale, but share the process with everything else.
type ThreadPool[T, R any] struct {
	opts options
}

// NewThreadPool creates a goroutine-backed strategy.
func NewThreadPool[T, R any](opts ...Option) *ThreadPool[T, R] {
	return &ThreadPool[T, R]{opts: newOptions(opts)}
}

// Name implements Strategy.
func (p *ThreadPool[T, R]) Name() string { return "thread-pool" }

// Kind implements Strategy.
func (p *ThreadPool[T, R]) Kind() Kind { return KindThread }

// Execute runs every task and returns the results in input order.
//
// The first failing task cancels the run: tasks not yet taken by a worker are
// skipped, tasks already running finish. Execute joins every worker before it
// returns. Goroutines cannot be preempted, so a deadline or cancellation only
// takes effect once the workload notices ctx is done.
func (p *ThreadPool[T, R]) Execute(ctx context.Context, tasks []T, w Workload[T, R], poolSize int) ([]R, error) {
	if err := validateExecute(w, poolSize); err != nil {
		return nil, err
	}
	results := make([]R, len(tasks))
	if len(tasks) == 0 {
		return results, nil
	}

	// runCtx is cancelled by the first failure; ctx carries the caller's
	// deadline and is what the workload sees, so a failure elsewhere never
	// interrupts a task that is already running.
	g, runCtx := errgroup.WithContext(ctx)
	jobs := make(chan int)

	g.Go(func() error {
		defer close(jobs)
		for i := range tasks {
			select {
			case jobs <- i:
			case <-runCtx.Done():
				return nil
			}
		}
		return nil
	})

	workers := min(poolSize, len(tasks))
	p.opts.logger.Debug("starting workers", "strategy", p.Name(), "workers", workers, "tasks", len(tasks))
	for ordinal := 0; ordinal < workers; ordinal++ {
		g.Go(func() error {
			return p.work(ctx, runCtx, ordinal, jobs, tasks, results, w)
		})
	}

	err := g.Wait()
	if ctxErr := contextError(ctx); ctxErr != nil && (err == nil || errors.Is(err, ctx.Err())) {
		return nil, ctxErr
	}
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (p *ThreadPool[T, R]) work(ctx, runCtx context.Context, ordinal int, jobs <-chan int, tasks []T, results []R, w Workload[T, R]) (err error) {
	p.opts.hooks.workerStarted(WorkerEvent{Strategy: p.Name(), Ordinal: ordinal, PID: os.Getpid(), State: WorkerIdle})
	defer func() {
		state := WorkerStopped
		if err != nil {
			state = WorkerFailed
		}
		p.opts.hooks.workerStopped(WorkerEvent{Strategy: p.Name(), Ordinal: ordinal, PID: os.Getpid(), State: state, Err: err})
	}()

	for i := range jobs {
		// Handed over after the run was aborted: never started.
		if runCtx.Err() != nil {
			continue
		}

		start := time.Now()
		r, taskErr := invoke(ctx, w.Fn, tasks[i])
		p.opts.hooks.taskDone(TaskEvent{Strategy: p.Name(), Index: i, Worker: ordinal, Duration: time.Since(start), Err: taskErr})
		if taskErr != nil {
			p.opts.logger.Debug("task failed", "worker", ordinal, "index", i, "err", taskErr)
			return &TaskError{Index: i, Err: taskErr}
		}
		results[i] = r
	}
	return nil
}

// invoke calls fn, converting a panic into an error.
func invoke[T, R any](ctx context.Context, fn Func[T, R], task T) (r R, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w: %v\n%s", ErrPanic, rec, debug.Stack())
		}
	}()
	return fn(ctx, task)
}
