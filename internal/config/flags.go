package config

import (
	"flag"
	"io"
	"strings"
)

// flagKeys maps flag names to the config key they set.
var flagKeys = map[string]string{
	"strategy":       "strategy",
	"workload":       "workload",
	"pool-size":      "pool_size",
	"timeout":        "timeout",
	"tasks":          "tasks_file",
	"copies":         "copies",
	"report-dir":     "report_dir",
	"metrics-file":   "metrics_file",
	"log-level":      "log_level",
	"log-format":     "log_format",
	"log-timestamps": "log_timestamps",
	"log-caller":     "log_caller",
	"fib-n":          "fibonacci.n",
	"matrix-size":    "matrix.size",
	"matrix-rounds":  "matrix.rounds",
	"urls":           "fetch.urls",
	"fetch-timeout":  "fetch.timeout",
}

// parseFlags defines and parses CLI flags on fs, which may already hold
// command-specific flags.
func parseFlags(cfg *Config, fs *flag.FlagSet, args []string, sources map[string]Source) error {
	if fs == nil {
		fs = flag.NewFlagSet("fanout", flag.ContinueOnError)
	}

	// Run
	fs.StringVar(&cfg.Strategy, "strategy", cfg.Strategy, "Execution strategy: thread or process")
	fs.StringVar(&cfg.Workload, "workload", cfg.Workload, "Workload: fibonacci, fetch or matrix")
	fs.IntVar(&cfg.PoolSize, "pool-size", cfg.PoolSize, "Number of workers (0 = one per CPU)")
	fs.TextVar(&cfg.Timeout, "timeout", cfg.Timeout, "Deadline for the whole run (0 = none)")
	fs.StringVar(&cfg.TasksFile, "tasks", cfg.TasksFile, "JSON task file (default: built-in task set)")
	fs.IntVar(&cfg.Copies, "copies", cfg.Copies, "Default task count for CPU-bound workloads (0 = one per CPU)")
	fs.BoolVar(&cfg.Watch, "watch", cfg.Watch, "Re-run whenever the task file changes")

	// Sinks
	fs.StringVar(&cfg.ReportDir, "report-dir", cfg.ReportDir, "Directory for the JSONL report log")
	fs.StringVar(&cfg.MetricsFile, "metrics-file", cfg.MetricsFile, "Write Prometheus metrics to this textfile")

	// Logging
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn, error")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format: text, json, logfmt")
	fs.BoolVar(&cfg.LogTimestamps, "log-timestamps", cfg.LogTimestamps, "Show timestamps in logs")
	fs.BoolVar(&cfg.LogCaller, "log-caller", cfg.LogCaller, "Show caller location in logs")

	// Workload tuning
	fs.IntVar(&cfg.Fibonacci.N, "fib-n", cfg.Fibonacci.N, "Input of each default Fibonacci task")
	fs.IntVar(&cfg.Matrix.Size, "matrix-size", cfg.Matrix.Size, "Matrix dimension of each default matrix task")
	fs.IntVar(&cfg.Matrix.Rounds, "matrix-rounds", cfg.Matrix.Rounds, "Multiplications per default matrix task")
	urls := strings.Join(cfg.Fetch.URLs, ",")
	fs.StringVar(&urls, "urls", urls, "Comma-separated URLs for the fetch workload")
	fs.TextVar(&cfg.Fetch.Timeout, "fetch-timeout", cfg.Fetch.Timeout, "Per-request timeout of the fetch workload")

	if err := fs.Parse(args); err != nil {
		return err
	}

	fs.Visit(func(f *flag.Flag) {
		if f.Name == "urls" {
			cfg.Fetch.URLs = splitList(urls)
		}
		if key, ok := flagKeys[f.Name]; ok {
			sources[key] = SourceFlag
		}
	})
	return nil
}

// PrintDefaults writes the configuration flags with their built-in defaults.
func PrintDefaults(w io.Writer) {
	cfg := &Config{}
	setDefaults(cfg)
	fs := flag.NewFlagSet("fanout", flag.ContinueOnError)
	fs.SetOutput(w)
	_ = parseFlags(cfg, fs, nil, make(map[string]Source))
	fs.PrintDefaults()
}
