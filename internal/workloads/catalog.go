// Package workloads provides the built-in benchmark workloads, their task
// schemas and default task sets, and a type-erased runner the CLI drives.
package workloads

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/nibzard/fanout/internal/parallel"
)

// Settings shape the default task sets.
type Settings struct {
	// Copies is how many tasks the CPU-bound workloads get. Zero means one
	// per CPU.
	Copies       int
	FibonacciN   int
	MatrixSize   int
	MatrixRounds int
	URLs         []string
	FetchTimeout time.Duration
}

// DefaultSettings mirrors the benchmark defaults.
func DefaultSettings() Settings {
	return Settings{
		FibonacciN:   DefaultFibonacciN,
		MatrixSize:   DefaultMatrixSize,
		MatrixRounds: DefaultMatrixRounds,
		URLs:         append([]string(nil), DefaultURLs...),
		FetchTimeout: DefaultFetchTimeout,
	}
}

func (s Settings) copies() int {
	if s.Copies > 0 {
		return s.Copies
	}
	return runtime.NumCPU()
}

// Request describes one CLI run.
type Request struct {
	Kind parallel.Kind
	// Tasks is a JSON array of tasks. When nil the default set is used.
	Tasks    []byte
	Settings Settings
}

// Outcome is a successful run: the report plus one printable line per result.
type Outcome struct {
	Report *parallel.Report
	Lines  []string
}

// Runner runs one workload without the caller knowing its task and result
// types.
type Runner interface {
	Name() string
	Description() string
	// Schema is the JSON schema a task file must satisfy.
	Schema() string
	// Validate checks a task file and returns how many tasks it holds.
	Validate(data []byte) (int, error)
	Run(ctx context.Context, req Request, opts ...parallel.Option) (*Outcome, error)
}

type entry[T, R any] struct {
	workload    parallel.Workload[T, R]
	description string
	schema      string
	defaults    func(Settings) []T
	line        func(T, R) string
}

func (e *entry[T, R]) Name() string        { return e.workload.Name }
func (e *entry[T, R]) Description() string { return e.description }
func (e *entry[T, R]) Schema() string      { return e.schema }

func (e *entry[T, R]) Validate(data []byte) (int, error) {
	tasks, err := e.decode(data)
	if err != nil {
		return 0, err
	}
	return len(tasks), nil
}

func (e *entry[T, R]) decode(data []byte) ([]T, error) {
	if err := validateTasks(e.workload.Name, e.schema, data); err != nil {
		return nil, err
	}
	var tasks []T
	if err := json.Unmarshal(data, &tasks); err != nil {
		return nil, fmt.Errorf("decode %s tasks: %w", e.workload.Name, err)
	}
	return tasks, nil
}

func (e *entry[T, R]) Run(ctx context.Context, req Request, opts ...parallel.Option) (*Outcome, error) {
	var tasks []T
	if req.Tasks != nil {
		var err error
		if tasks, err = e.decode(req.Tasks); err != nil {
			return nil, err
		}
	} else {
		tasks = e.defaults(req.Settings)
	}

	opts = append([]parallel.Option{parallel.WithRegistry(NewRegistry())}, opts...)
	results, report, err := parallel.Run(ctx, tasks, e.workload, req.Kind, opts...)
	if err != nil {
		return nil, err
	}

	lines := make([]string, len(results))
	for i, r := range results {
		lines[i] = e.line(tasks[i], r)
	}
	return &Outcome{Report: report, Lines: lines}, nil
}

var catalog = []Runner{
	&entry[int, int]{
		workload:    Fibonacci,
		description: "naive recursive Fibonacci, CPU bound",
		schema:      fibonacciSchema,
		defaults: func(s Settings) []int {
			return parallel.Collect(parallel.Repeat(s.FibonacciN, s.copies()))
		},
		line: func(n, r int) string { return fmt.Sprintf("fib(%d) = %d", n, r) },
	},
	&entry[FetchTask, FetchResult]{
		workload:    Fetch,
		description: "HTTP GET per URL, I/O bound",
		schema:      fetchSchema,
		defaults: func(s Settings) []FetchTask {
			return FetchTasks(s.URLs, s.FetchTimeout)
		},
		line: func(_ FetchTask, r FetchResult) string {
			return fmt.Sprintf("Fetched %s with status %d", r.URL, r.Status)
		},
	},
	&entry[MatrixTask, MatrixResult]{
		workload:    Matrix,
		description: "dense matrix multiplication, CPU and memory bound",
		schema:      matrixSchema,
		defaults: func(s Settings) []MatrixTask {
			return MatrixTasks(s.copies(), s.MatrixSize, s.MatrixRounds)
		},
		line: func(_ MatrixTask, r MatrixResult) string {
			return fmt.Sprintf("matrix %dx%d x%d checksum %.4f", r.Size, r.Size, r.Rounds, r.Checksum)
		},
	},
}

// All returns the built-in workloads in menu order.
func All() []Runner {
	return append([]Runner(nil), catalog...)
}

// Names returns the built-in workload names in menu order.
func Names() []string {
	names := make([]string, len(catalog))
	for i, r := range catalog {
		names[i] = r.Name()
	}
	return names
}

// Lookup finds a workload by name. The numeric menu choices 1, 2 and 3 and
// the alias "urls" are accepted too.
func Lookup(name string) (Runner, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	switch key {
	case "1":
		key = "fibonacci"
	case "2", "urls", "url":
		key = "fetch"
	case "3":
		key = "matrix"
	}
	for _, r := range catalog {
		if r.Name() == key {
			return r, nil
		}
	}
	return nil, fmt.Errorf("%w: unknown workload %q (use %s)", parallel.ErrInvalidConfig, name, strings.Join(Names(), ", "))
}

// NewRegistry registers every built-in workload for worker processes. The
// binary must hand the same registry to parallel.ServeChild.
func NewRegistry() *parallel.Registry {
	reg := parallel.NewRegistry()
	parallel.MustRegister(reg, Fibonacci)
	parallel.MustRegister(reg, Fetch)
	parallel.MustRegister(reg, Matrix)
	return reg
}
