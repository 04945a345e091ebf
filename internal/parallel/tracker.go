package parallel

import "sync/atomic"

// Tracker counts worker units and tasks through Hooks. It is used to check
// that runs release every worker they start.
type Tracker struct {
	started atomic.Int64
	stopped atomic.Int64
	peak    atomic.Int64
	tasks   atomic.Int64
	failed  atomic.Int64
}

// Hooks returns hooks that feed the tracker.
func (t *Tracker) Hooks() Hooks {
	return Hooks{
		OnWorkerStart: func(WorkerEvent) {
			t.started.Add(1)
			live := t.started.Load() - t.stopped.Load()
			for {
				peak := t.peak.Load()
				if live <= peak || t.peak.CompareAndSwap(peak, live) {
					break
				}
			}
		},
		OnWorkerStop: func(WorkerEvent) {
			t.stopped.Add(1)
		},
		OnTaskDone: func(e TaskEvent) {
			t.tasks.Add(1)
			if e.Err != nil {
				t.failed.Add(1)
			}
		},
	}
}

// Started returns how many worker units were started.
func (t *Tracker) Started() int { return int(t.started.Load()) }

// Live returns how many worker units are currently running.
func (t *Tracker) Live() int { return int(t.started.Load() - t.stopped.Load()) }

// Peak returns the highest number of simultaneously live workers seen.
func (t *Tracker) Peak() int { return int(t.peak.Load()) }

// TasksDone returns how many tasks finished, successfully or not.
func (t *Tracker) TasksDone() int { return int(t.tasks.Load()) }

// TasksFailed returns how many tasks finished with an error.
func (t *Tracker) TasksFailed() int { return int(t.failed.Load()) }
