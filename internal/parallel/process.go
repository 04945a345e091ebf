package parallel

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
)

const (
	// releaseGrace is how long a worker may take to exit after its stdin closes.
	releaseGrace = 5 * time.Second
	// killGrace is how long a worker may take to exit after SIGTERM.
	killGrace = 2 * time.Second
)

// Launcher creates the command for one worker process. The pool adds its own
// environment variables and pipes before starting it.
type Launcher func() (*exec.Cmd, error)

// SelfLauncher re-executes the running binary with args.
func SelfLauncher(args ...string) Launcher {
	return func() (*exec.Cmd, error) {
		exe, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("locate executable: %w", err)
		}
		return exec.Command(exe, args...), nil
	}
}

// ProcessPool runs tasks in a fixed set of child processes, each with its own
// memory. Tasks and results cross the process boundary as encoding/gob, so T
// and R must be gob-encodable (exported fields, no funcs or channels) and the
// workload must be registered by name in the Registry the child builds.
type ProcessPool[T, R any] struct {
	opts options
}

// NewProcessPool creates a process-backed strategy.
func NewProcessPool[T, R any](opts ...Option) *ProcessPool[T, R] {
	return &ProcessPool[T, R]{opts: newOptions(opts)}
}

// Name implements Strategy.
func (p *ProcessPool[T, R]) Name() string { return "process-pool" }

// Kind implements Strategy.
func (p *ProcessPool[T, R]) Kind() Kind { return KindProcess }

// Execute runs every task and returns the results in input order.
//
// Failure handling matches ThreadPool. When ctx is done (deadline or
// cancellation) every worker process is terminated instead of drained.
func (p *ProcessPool[T, R]) Execute(ctx context.Context, tasks []T, w Workload[T, R], poolSize int) ([]R, error) {
	if err := validateExecute(w, poolSize); err != nil {
		return nil, err
	}
	if p.opts.registry == nil {
		return nil, invalidConfig("process pool needs a workload registry")
	}
	if _, ok := p.opts.registry.Lookup(w.Name); !ok {
		return nil, invalidConfig("workload %q is not registered for worker processes", w.Name)
	}
	results := make([]R, len(tasks))
	if len(tasks) == 0 {
		return results, nil
	}

	workers := min(poolSize, len(tasks))
	procs := make([]*workerProcess, 0, workers)
	for ordinal := range workers {
		wp, err := p.start(ctx, ordinal, w.Name)
		if err != nil {
			p.releaseAll(procs, true)
			if ctxErr := contextError(ctx); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, fmt.Errorf("%w: worker %d: %v", ErrWorkerStartup, ordinal, err)
		}
		procs = append(procs, wp)
	}

	stop := context.AfterFunc(ctx, func() {
		for _, wp := range procs {
			wp.terminate()
		}
	})
	defer stop()

	g, runCtx := errgroup.WithContext(ctx)
	jobs := make(chan int)
	g.Go(func() error {
		defer close(jobs)
		for i := range tasks {
			select {
			case jobs <- i:
			case <-runCtx.Done():
				return nil
			}
		}
		return nil
	})
	for _, wp := range procs {
		g.Go(func() error {
			return p.drive(ctx, runCtx, wp, jobs, tasks, results)
		})
	}

	err := g.Wait()
	p.releaseAll(procs, ctx.Err() != nil)
	if ctxErr := contextError(ctx); ctxErr != nil && (err == nil || errors.Is(err, ctx.Err())) {
		return nil, ctxErr
	}
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (p *ProcessPool[T, R]) drive(ctx, runCtx context.Context, wp *workerProcess, jobs <-chan int, tasks []T, results []R) error {
	for i := range jobs {
		if runCtx.Err() != nil {
			continue
		}

		start := time.Now()
		r, err := p.runRemote(ctx, wp, i, tasks[i])
		p.opts.hooks.taskDone(TaskEvent{Strategy: p.Name(), Index: i, Worker: wp.ordinal, Duration: time.Since(start), Err: err})
		if err != nil {
			if ctx.Err() != nil {
				return contextError(ctx)
			}
			return &TaskError{Index: i, Err: err}
		}
		results[i] = r
	}
	return nil
}

func (p *ProcessPool[T, R]) runRemote(ctx context.Context, wp *workerProcess, index int, task T) (R, error) {
	var r R
	payload, err := encodeValue(task)
	if err != nil {
		return r, fmt.Errorf("encode task: %w", err)
	}
	raw, err := wp.call(ctx, index, payload)
	if err != nil {
		return r, err
	}
	if err := decodeValue(raw, &r); err != nil {
		return r, fmt.Errorf("decode result: %w", err)
	}
	return r, nil
}

// start launches one worker and waits for its hello line.
func (p *ProcessPool[T, R]) start(ctx context.Context, ordinal int, workload string) (*workerProcess, error) {
	cmd, err := p.opts.launcher()
	if err != nil {
		return nil, err
	}
	if cmd.Env == nil {
		cmd.Env = os.Environ()
	}
	cmd.Env = append(cmd.Env,
		EnvWorkerMode+"="+modePool,
		EnvWorkload+"="+workload,
		EnvOrdinal+"="+strconv.Itoa(ordinal),
	)
	setProcessGroup(cmd)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("create stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("create stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("create stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start: %w", err)
	}

	wp := &workerProcess{
		ordinal:   ordinal,
		pid:       cmd.Process.Pid,
		cmd:       cmd,
		stdin:     stdin,
		enc:       json.NewEncoder(stdin),
		hello:     make(chan helloMessage, 1),
		responses: make(chan resultMessage),
		abandoned: make(chan struct{}),
		done:      make(chan struct{}),
	}

	var readers sync.WaitGroup
	readers.Add(2)
	go func() {
		defer readers.Done()
		wp.readStdout(stdout)
	}()
	go func() {
		defer readers.Done()
		forwardStderr(stderr, p.opts.logger, ordinal)
	}()
	go func() {
		// Wait must not run before the pipes are fully read.
		readers.Wait()
		wp.waitErr = cmd.Wait()
		close(wp.done)
	}()

	timer := time.NewTimer(p.opts.startupTimeout)
	defer timer.Stop()

	var startErr error
	select {
	case h, ok := <-wp.hello:
		switch {
		case !ok:
			startErr = errors.New("exited before hello")
		case h.Error != "":
			startErr = fmt.Errorf("worker refused workload %q: %s", workload, h.Error)
		}
	case <-timer.C:
		startErr = fmt.Errorf("no hello within %s", p.opts.startupTimeout)
	case <-ctx.Done():
		startErr = contextError(ctx)
	}
	if startErr != nil {
		wp.abandon()
		wp.terminate()
		<-wp.done
		return nil, startErr
	}

	p.opts.logger.Debug("worker started", "strategy", p.Name(), "worker", ordinal, "pid", wp.pid)
	p.opts.hooks.workerStarted(WorkerEvent{Strategy: p.Name(), Ordinal: ordinal, PID: wp.pid, State: WorkerIdle})
	return wp, nil
}

// releaseAll stops every worker and waits for it to be reaped. Without force,
// workers get their stdin closed and a grace period to exit on their own.
func (p *ProcessPool[T, R]) releaseAll(procs []*workerProcess, force bool) {
	for _, wp := range procs {
		wp.abandon()
		if force {
			wp.terminate()
		} else {
			wp.closeInput()
		}
	}
	for _, wp := range procs {
		select {
		case <-wp.done:
		case <-time.After(releaseGrace):
			p.opts.logger.Warn("worker did not exit, terminating", "worker", wp.ordinal, "pid", wp.pid)
			wp.terminate()
			<-wp.done
		}

		state := WorkerStopped
		var err error
		if wp.waitErr != nil && !force {
			state = WorkerFailed
			err = wp.waitErr
		}
		p.opts.logger.Debug("worker stopped", "strategy", p.Name(), "worker", wp.ordinal, "pid", wp.pid, "state", state)
		p.opts.hooks.workerStopped(WorkerEvent{Strategy: p.Name(), Ordinal: wp.ordinal, PID: wp.pid, State: state, Err: err})
	}
}

// workerProcess is the parent's handle on one child.
type workerProcess struct {
	ordinal int
	pid     int
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	enc     *json.Encoder

	hello     chan helloMessage
	responses chan resultMessage
	readErr   error

	abandoned   chan struct{}
	abandonOnce sync.Once
	inputOnce   sync.Once
	termOnce    sync.Once

	done    chan struct{}
	waitErr error
}

func (wp *workerProcess) readStdout(r io.Reader) {
	defer close(wp.responses)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxMessageSize)
	greeted := false
	for scanner.Scan() {
		if !greeted {
			greeted = true
			var h helloMessage
			if err := json.Unmarshal(scanner.Bytes(), &h); err != nil {
				h.Error = fmt.Sprintf("bad hello: %v", err)
			}
			wp.hello <- h
			close(wp.hello)
			continue
		}

		var msg resultMessage
		if err := json.Unmarshal(scanner.Bytes(), &msg); err != nil {
			wp.readErr = fmt.Errorf("decode result: %w", err)
			_, _ = io.Copy(io.Discard, r)
			return
		}
		select {
		case wp.responses <- msg:
		case <-wp.abandoned:
		}
	}
	if !greeted {
		close(wp.hello)
	}
	if err := scanner.Err(); err != nil {
		wp.readErr = err
		_, _ = io.Copy(io.Discard, r)
	}
}

// call sends one task and waits for its answer.
func (wp *workerProcess) call(ctx context.Context, index int, payload []byte) ([]byte, error) {
	if err := wp.enc.Encode(taskMessage{Index: index, Payload: payload}); err != nil {
		return nil, fmt.Errorf("send task to worker %d: %w", wp.ordinal, err)
	}
	select {
	case msg, ok := <-wp.responses:
		if !ok {
			err := wp.readErr
			if err == nil {
				err = io.ErrUnexpectedEOF
			}
			return nil, fmt.Errorf("worker %d exited before answering: %w", wp.ordinal, err)
		}
		if msg.Index != index {
			return nil, fmt.Errorf("worker %d answered task %d, want %d", wp.ordinal, msg.Index, index)
		}
		if msg.Error != "" {
			return nil, &RemoteError{Worker: wp.ordinal, Message: msg.Error}
		}
		return msg.Result, nil
	case <-ctx.Done():
		return nil, contextError(ctx)
	}
}

// abandon stops delivering answers; later ones are read and dropped.
func (wp *workerProcess) abandon() {
	wp.abandonOnce.Do(func() { close(wp.abandoned) })
}

// closeInput asks the worker to exit once it finishes its current task.
func (wp *workerProcess) closeInput() {
	wp.inputOnce.Do(func() { _ = wp.stdin.Close() })
}

// terminate sends SIGTERM to the worker's process group and escalates to
// SIGKILL if it is still alive after killGrace. It does not block.
func (wp *workerProcess) terminate() {
	wp.termOnce.Do(func() {
		_ = signalGroup(wp.pid, false)
		go func() {
			select {
			case <-wp.done:
			case <-time.After(killGrace):
				_ = signalGroup(wp.pid, true)
			}
		}()
	})
}

func forwardStderr(r io.Reader, logger *log.Logger, ordinal int) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxMessageSize)
	for scanner.Scan() {
		logger.Debug(scanner.Text(), "worker", ordinal)
	}
	// Keep draining after an oversized line so the worker never blocks on stderr.
	_, _ = io.Copy(io.Discard, r)
}
