package config

import (
	"fmt"
	"time"

	"github.com/nibzard/fanout/internal/parallel"
	"github.com/nibzard/fanout/internal/workloads"
)

// Source represents where a configuration value came from.
type Source string

const (
	SourceDefault  Source = "default"
	SourceUserFile Source = "user file"
	SourceProjFile Source = "project file"
	SourceEnv      Source = "environment"
	SourceFlag     Source = "flag"
)

// Default values.
const (
	DefaultStrategy     = "thread"
	DefaultWorkload     = "fibonacci"
	DefaultReportDir    = "~/.fanout/reports"
	DefaultLogLevel     = "info"
	DefaultLogFormat    = "text"
	DefaultFibonacciN   = workloads.DefaultFibonacciN
	DefaultMatrixSize   = workloads.DefaultMatrixSize
	DefaultMatrixRounds = workloads.DefaultMatrixRounds
	DefaultFetchTimeout = workloads.DefaultFetchTimeout
)

// Duration is a time.Duration written as "1m30s" in TOML and env values.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Config holds the full configuration for fanout.
type Config struct {
	// Run
	Strategy string `toml:"strategy"`
	Workload string `toml:"workload"`
	// PoolSize 0 means one worker per available CPU.
	PoolSize  int      `toml:"pool_size"`
	Timeout   Duration `toml:"timeout"`
	TasksFile string   `toml:"tasks_file"`
	// Copies is the number of default tasks for CPU-bound workloads; 0 means
	// one per CPU.
	Copies int `toml:"copies"`

	// Sinks
	ReportDir   string `toml:"report_dir"`
	MetricsFile string `toml:"metrics_file"`

	// Logging configuration
	LogLevel      string `toml:"log_level"`
	LogFormat     string `toml:"log_format"`
	LogTimestamps bool   `toml:"log_timestamps"`
	LogCaller     bool   `toml:"log_caller"`

	// Workload tuning
	Fibonacci FibonacciConfig `toml:"fibonacci"`
	Matrix    MatrixConfig    `toml:"matrix"`
	Fetch     FetchConfig     `toml:"fetch"`

	// Watch re-runs whenever the task file changes. Flag only.
	Watch bool `toml:"-"`

	// ProjectRoot anchors relative paths. Defaults to the working directory.
	ProjectRoot string `toml:"-"`
}

// FibonacciConfig tunes the default Fibonacci tasks.
type FibonacciConfig struct {
	N int `toml:"n"`
}

// MatrixConfig tunes the default matrix tasks.
type MatrixConfig struct {
	Size   int `toml:"size"`
	Rounds int `toml:"rounds"`
}

// FetchConfig tunes the default fetch tasks.
type FetchConfig struct {
	URLs    []string `toml:"urls"`
	Timeout Duration `toml:"timeout"`
}

// Kind returns the execution strategy the config selects.
func (c *Config) Kind() (parallel.Kind, error) {
	return parallel.ParseKind(c.Strategy)
}

// Validate checks values that would otherwise fail later, mid-run.
func (c *Config) Validate() error {
	if _, err := c.Kind(); err != nil {
		return err
	}
	if c.Workload == "" {
		return invalid("workload is empty")
	}
	if c.PoolSize < 0 {
		return invalid("pool_size must be at least 1 (or 0 for one per CPU), got %d", c.PoolSize)
	}
	if c.Timeout.Duration < 0 {
		return invalid("timeout must not be negative, got %s", c.Timeout.Duration)
	}
	if c.Copies < 0 {
		return invalid("copies must not be negative, got %d", c.Copies)
	}
	if c.Fibonacci.N < 0 {
		return invalid("fibonacci.n must not be negative, got %d", c.Fibonacci.N)
	}
	if c.Matrix.Size < 1 || c.Matrix.Rounds < 1 {
		return invalid("matrix.size and matrix.rounds must be positive, got %d and %d", c.Matrix.Size, c.Matrix.Rounds)
	}
	if c.Watch && c.TasksFile == "" {
		return invalid("--watch needs a task file")
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", parallel.ErrInvalidConfig, fmt.Sprintf(format, args...))
}
