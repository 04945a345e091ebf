package parallel

import "time"

// WorkerEvent describes a worker unit changing state.
type WorkerEvent struct {
	Strategy string
	Ordinal  int
	PID      int
	State    WorkerState
	Err      error
}

// TaskEvent describes one finished task.
type TaskEvent struct {
	Strategy string
	Index    int
	Worker   int
	Duration time.Duration
	Err      error
}

// RunEvent describes one finished dispatcher run.
type RunEvent struct {
	Strategy  string
	Workload  string
	TaskCount int
	Elapsed   time.Duration
	Err       error
}

// Hooks let callers observe worker, task and run lifecycle events.
// Nil fields are skipped. Hooks are called from worker goroutines and must be
// safe for concurrent use.
type Hooks struct {
	OnWorkerStart func(WorkerEvent)
	OnWorkerStop  func(WorkerEvent)
	OnTaskDone    func(TaskEvent)
	OnRunDone     func(RunEvent)
}

func (h Hooks) workerStarted(e WorkerEvent) {
	if h.OnWorkerStart != nil {
		h.OnWorkerStart(e)
	}
}

func (h Hooks) workerStopped(e WorkerEvent) {
	if h.OnWorkerStop != nil {
		h.OnWorkerStop(e)
	}
}

func (h Hooks) taskDone(e TaskEvent) {
	if h.OnTaskDone != nil {
		h.OnTaskDone(e)
	}
}

func (h Hooks) runDone(e RunEvent) {
	if h.OnRunDone != nil {
		h.OnRunDone(e)
	}
}

// ChainHooks calls each set of hooks in order.
func ChainHooks(hs ...Hooks) Hooks {
	return Hooks{
		OnWorkerStart: func(e WorkerEvent) {
			for _, h := range hs {
				h.workerStarted(e)
			}
		},
		OnWorkerStop: func(e WorkerEvent) {
			for _, h := range hs {
				h.workerStopped(e)
			}
		},
		OnTaskDone: func(e TaskEvent) {
			for _, h := range hs {
				h.taskDone(e)
			}
		},
		OnRunDone: func(e RunEvent) {
			for _, h := range hs {
				h.runDone(e)
			}
		},
	}
}
