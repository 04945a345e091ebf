package parallel

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Dispatcher binds a workload to a strategy and runs task batches through it.
type Dispatcher[T, R any] struct {
	strategy Strategy[T, R]
	workload Workload[T, R]
	opts     options
}

// NewDispatcher creates a dispatcher. Pool size defaults to DefaultPoolSize.
func NewDispatcher[T, R any](strategy Strategy[T, R], w Workload[T, R], opts ...Option) *Dispatcher[T, R] {
	return &Dispatcher[T, R]{
		strategy: strategy,
		workload: w,
		opts:     newOptions(opts),
	}
}

// Run executes tasks and returns their results in input order together with
// a report. If any task fails, Run returns a *TaskError naming its index and
// no results; if the deadline passes it returns an error matching ErrTimeout.
func (d *Dispatcher[T, R]) Run(ctx context.Context, tasks []T) ([]R, *Report, error) {
	if d.strategy == nil {
		return nil, nil, invalidConfig("no strategy")
	}
	poolSize, err := d.opts.resolvePoolSize()
	if err != nil {
		return nil, nil, err
	}

	if d.opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.opts.timeout)
		defer cancel()
	}

	logger := d.opts.logger.With("strategy", d.strategy.Name(), "workload", d.workload.Name)
	logger.Debug("dispatching", "tasks", len(tasks), "pool_size", poolSize)

	start := time.Now()
	results, err := d.strategy.Execute(ctx, tasks, d.workload, poolSize)
	end := time.Now()

	if err == nil && len(results) != len(tasks) {
		err = fmt.Errorf("%s returned %d results for %d tasks", d.strategy.Name(), len(results), len(tasks))
	}
	d.opts.hooks.runDone(RunEvent{
		Strategy:  d.strategy.Name(),
		Workload:  d.workload.Name,
		TaskCount: len(tasks),
		Elapsed:   end.Sub(start),
		Err:       err,
	})
	if err != nil {
		logger.Debug("run failed", "err", err)
		return nil, nil, err
	}

	report := NewReport(d.strategy.Name(), start, end, len(tasks))
	report.RunID = uuid.NewString()
	report.Workload = d.workload.Name
	report.PoolSize = poolSize
	logger.Debug("run finished", "elapsed", report.Elapsed, "run_id", report.RunID)
	return results, &report, nil
}

// RunSource drains src and runs the resulting batch.
func (d *Dispatcher[T, R]) RunSource(ctx context.Context, src Source[T]) ([]R, *Report, error) {
	return d.Run(ctx, Collect(src))
}

// Run executes tasks with workload w under the strategy selected by kind.
// Options configure both the strategy and the run (pool size, deadline,
// hooks, logger, launcher, registry).
func Run[T, R any](ctx context.Context, tasks []T, w Workload[T, R], kind Kind, opts ...Option) ([]R, *Report, error) {
	strategy, err := NewStrategy[T, R](kind, opts...)
	if err != nil {
		return nil, nil, err
	}
	return NewDispatcher(strategy, w, opts...).Run(ctx, tasks)
}
