package parallel

import (
	"context"
	"strings"
)

// Func is the per-task computation of a workload.
type Func[T, R any] func(ctx context.Context, task T) (R, error)

// Workload is a named function executed once per task. The name identifies
// the workload inside worker processes, which cannot receive closures.
type Workload[T, R any] struct {
	Name string
	Fn   Func[T, R]
}

// Kind selects an execution back-end.
type Kind int

const (
	// KindThread runs tasks on goroutines sharing one address space.
	KindThread Kind = iota + 1
	// KindProcess runs tasks in isolated child processes.
	KindProcess
)

func (k Kind) String() string {
	switch k {
	case KindThread:
		return "thread"
	case KindProcess:
		return "process"
	default:
		return "unknown"
	}
}

// ParseKind maps a strategy selector onto a Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "thread", "threads", "threading", "goroutine", "goroutines", "1":
		return KindThread, nil
	case "process", "processes", "multiprocessing", "2":
		return KindProcess, nil
	default:
		return 0, invalidConfig("unknown strategy %q (use thread or process)", s)
	}
}

// Strategy executes a task batch on a pool of worker units and returns the
// results in input order. Implementations start and release their workers
// within a single Execute call.
type Strategy[T, R any] interface {
	Name() string
	Kind() Kind
	Execute(ctx context.Context, tasks []T, w Workload[T, R], poolSize int) ([]R, error)
}

// NewStrategy returns the strategy for kind.
func NewStrategy[T, R any](kind Kind, opts ...Option) (Strategy[T, R], error) {
	switch kind {
	case KindThread:
		return NewThreadPool[T, R](opts...), nil
	case KindProcess:
		return NewProcessPool[T, R](opts...), nil
	default:
		return nil, invalidConfig("unknown strategy kind %d", int(kind))
	}
}

// validateExecute checks the arguments shared by every strategy.
func validateExecute[T, R any](w Workload[T, R], poolSize int) error {
	if poolSize < 1 {
		return invalidConfig("pool size must be at least 1, got %d", poolSize)
	}
	if w.Fn == nil {
		return invalidConfig("workload %q has no function", w.Name)
	}
	return nil
}

// WorkerState is the lifecycle state of one worker unit.
type WorkerState int

const (
	WorkerIdle WorkerState = iota
	WorkerRunning
	WorkerFailed
	WorkerStopped
)

func (s WorkerState) String() string {
	switch s {
	case WorkerIdle:
		return "idle"
	case WorkerRunning:
		return "running"
	case WorkerFailed:
		return "failed"
	case WorkerStopped:
		return "stopped"
	default:
		return "unknown"
	}
}
