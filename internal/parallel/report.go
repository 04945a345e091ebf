package parallel

import (
	"fmt"
	"strings"
	"time"
)

// Report describes one completed run. It is only produced when every task
// succeeded.
type Report struct {
	RunID     string        `json:"run_id"`
	Strategy  string        `json:"strategy"`
	Workload  string        `json:"workload,omitempty"`
	PoolSize  int           `json:"pool_size"`
	TaskCount int           `json:"task_count"`
	Started   time.Time     `json:"started"`
	Finished  time.Time     `json:"finished"`
	Elapsed   time.Duration `json:"elapsed_ns"`
}

// NewReport builds a report from the run's timestamps. It has no side effects.
func NewReport(strategy string, start, end time.Time, taskCount int) Report {
	elapsed := end.Sub(start)
	if elapsed < 0 {
		elapsed = 0
	}
	return Report{
		Strategy:  strategy,
		TaskCount: taskCount,
		Started:   start,
		Finished:  end,
		Elapsed:   elapsed,
	}
}

// Throughput returns completed tasks per second.
func (r Report) Throughput() float64 {
	if r.Elapsed <= 0 {
		return 0
	}
	return float64(r.TaskCount) / r.Elapsed.Seconds()
}

// String formats the report the way the benchmark prints it, for example
// "Thread-pool took 1.37 seconds".
func (r Report) String() string {
	name := r.Strategy
	if name != "" {
		name = strings.ToUpper(name[:1]) + name[1:]
	}
	return fmt.Sprintf("%s took %.2f seconds", name, r.Elapsed.Seconds())
}
