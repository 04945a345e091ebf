package parallel

import (
	"io"
	"os"
	"runtime"
	"time"

	"github.com/charmbracelet/log"
)

// DefaultStartupTimeout bounds how long a worker process may take to say hello.
const DefaultStartupTimeout = 10 * time.Second

// DefaultPoolSize returns the host parallelism used when no pool size is given.
func DefaultPoolSize() int {
	n := runtime.GOMAXPROCS(0)
	if n < 1 {
		return 1
	}
	return n
}

// Option configures strategies, dispatchers and spawners.
type Option func(*options)

type options struct {
	poolSize       int
	poolSizeSet    bool
	timeout        time.Duration
	startupTimeout time.Duration
	hooks          Hooks
	logger         *log.Logger
	launcher       Launcher
	registry       *Registry
	output         io.Writer
}

func newOptions(opts []Option) options {
	o := options{
		startupTimeout: DefaultStartupTimeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.logger == nil {
		o.logger = log.New(io.Discard)
	}
	if o.launcher == nil {
		o.launcher = SelfLauncher()
	}
	if o.output == nil {
		o.output = os.Stdout
	}
	return o
}

// resolvePoolSize applies the host default when no size was given.
// An explicit size below one is rejected.
func (o options) resolvePoolSize() (int, error) {
	if !o.poolSizeSet {
		return DefaultPoolSize(), nil
	}
	if o.poolSize < 1 {
		return 0, invalidConfig("pool size must be at least 1, got %d", o.poolSize)
	}
	return o.poolSize, nil
}

// WithPoolSize fixes the number of worker units for a run.
func WithPoolSize(n int) Option {
	return func(o *options) {
		o.poolSize = n
		o.poolSizeSet = true
	}
}

// WithTimeout sets a per-run deadline. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// WithStartupTimeout bounds worker process startup.
func WithStartupTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.startupTimeout = d
		}
	}
}

// WithHooks installs lifecycle hooks.
func WithHooks(h Hooks) Option {
	return func(o *options) {
		o.hooks = h
	}
}

// WithLogger sets the logger. A nil logger discards output.
func WithLogger(l *log.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithLauncher sets how worker processes are created.
func WithLauncher(l Launcher) Option {
	return func(o *options) {
		o.launcher = l
	}
}

// WithRegistry sets the workload registry used by worker processes.
func WithRegistry(r *Registry) Option {
	return func(o *options) {
		o.registry = r
	}
}

// WithOutput sets where spawned processes write their stdout.
func WithOutput(w io.Writer) Option {
	return func(o *options) {
		o.output = w
	}
}
