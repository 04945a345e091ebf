// Package metrics exports run, task and worker metrics through Prometheus.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nibzard/fanout/internal/parallel"
)

const namespace = "fanout"

// Collector holds the Prometheus collectors fed by parallel.Hooks.
type Collector struct {
	registry *prometheus.Registry

	WorkersStarted *prometheus.CounterVec
	ActiveWorkers  *prometheus.GaugeVec
	TasksCompleted *prometheus.CounterVec
	TasksFailed    *prometheus.CounterVec
	TaskLatency    *prometheus.HistogramVec
	Runs           *prometheus.CounterVec
	LastRunSeconds *prometheus.GaugeVec
}

// NewCollector creates the collectors and registers them on a private
// registry.
func NewCollector() *Collector {
	strategy := []string{"strategy"}
	c := &Collector{
		registry: prometheus.NewRegistry(),
		WorkersStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workers_started_total",
			Help:      "Total number of worker units started",
		}, strategy),
		ActiveWorkers: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_workers",
			Help:      "Current number of live worker units",
		}, strategy),
		TasksCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_completed_total",
			Help:      "Total number of tasks completed successfully",
		}, strategy),
		TasksFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_failed_total",
			Help:      "Total number of tasks that failed",
		}, strategy),
		TaskLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "task_latency_seconds",
			Help:      "Histogram of task execution latency",
			Buckets:   prometheus.DefBuckets,
		}, strategy),
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Total number of runs by outcome",
		}, []string{"strategy", "workload", "outcome"}),
		LastRunSeconds: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_seconds",
			Help:      "Wall-clock duration of the most recent run",
		}, []string{"strategy", "workload"}),
	}
	c.registry.MustRegister(
		c.WorkersStarted,
		c.ActiveWorkers,
		c.TasksCompleted,
		c.TasksFailed,
		c.TaskLatency,
		c.Runs,
		c.LastRunSeconds,
	)
	return c
}

// Registry returns the registry the collectors are registered on.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Hooks returns hooks that update the collectors.
func (c *Collector) Hooks() parallel.Hooks {
	return parallel.Hooks{
		OnWorkerStart: func(e parallel.WorkerEvent) {
			c.WorkersStarted.WithLabelValues(e.Strategy).Inc()
			c.ActiveWorkers.WithLabelValues(e.Strategy).Inc()
		},
		OnWorkerStop: func(e parallel.WorkerEvent) {
			c.ActiveWorkers.WithLabelValues(e.Strategy).Dec()
		},
		OnTaskDone: func(e parallel.TaskEvent) {
			if e.Err != nil {
				c.TasksFailed.WithLabelValues(e.Strategy).Inc()
			} else {
				c.TasksCompleted.WithLabelValues(e.Strategy).Inc()
			}
			c.TaskLatency.WithLabelValues(e.Strategy).Observe(e.Duration.Seconds())
		},
		OnRunDone: func(e parallel.RunEvent) {
			c.Runs.WithLabelValues(e.Strategy, e.Workload, Outcome(e.Err)).Inc()
			c.LastRunSeconds.WithLabelValues(e.Strategy, e.Workload).Set(e.Elapsed.Seconds())
		},
	}
}

// Outcome classifies a run error for the runs_total label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case isTimeout(err):
		return "timeout"
	case isTaskFailure(err):
		return "task_failed"
	default:
		return "error"
	}
}

// WriteTextfile writes every metric to path in the text exposition format,
// for the node_exporter textfile collector. The file is replaced atomically.
func (c *Collector) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
