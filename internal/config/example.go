package config

// ExampleConfig returns an example configuration showing all available options.
func ExampleConfig() string {
	return `# fanout configuration file
# Values can be overridden by FANOUT_* environment variables or CLI flags

# Execution strategy: thread (goroutine pool) or process (worker processes)
strategy = "thread"

# Workload: fibonacci, fetch or matrix
workload = "fibonacci"

# Number of workers (0 = one per CPU)
pool_size = 0

# Deadline for a whole run, e.g. "30s" (0s = none)
timeout = "0s"

# JSON task file; the built-in task set is used when empty
# tasks_file = "tasks.json"

# Default task count for CPU-bound workloads (0 = one per CPU)
copies = 0

# JSONL report log directory (supports ~ expansion)
report_dir = "~/.fanout/reports"

# Prometheus textfile for node_exporter
# metrics_file = "/var/lib/node_exporter/fanout.prom"

# Logging
log_level = "info"
log_format = "text"
log_timestamps = false
log_caller = false

[fibonacci]
n = 35

[matrix]
size = 200
rounds = 10

[fetch]
timeout = "10s"
# urls = ["http://example.com", "http://example.org"]
`
}
