package parallel

import (
	"fmt"
	"os"
	"runtime/debug"
	"strconv"
)

// Spawn starts count goroutines running fn(ordinal) and returns at once.
// Nothing is joined or collected; a panic in fn is logged and swallowed.
// Use a Dispatcher when results or errors matter.
func Spawn(count int, fn func(ordinal int), opts ...Option) error {
	if count < 0 {
		return invalidConfig("spawn count must not be negative, got %d", count)
	}
	if fn == nil {
		return invalidConfig("spawn function is nil")
	}
	o := newOptions(opts)
	for ordinal := range count {
		go func() {
			defer func() {
				if rec := recover(); rec != nil {
					o.logger.Error("spawned worker panicked", "worker", ordinal, "panic", rec, "stack", string(debug.Stack()))
				}
			}()
			fn(ordinal)
		}()
		o.hooks.workerStarted(WorkerEvent{Strategy: "spawn", Ordinal: ordinal, PID: os.Getpid(), State: WorkerRunning})
	}
	return nil
}

// SpawnProcesses launches count worker processes that each print their
// ordinal and PID to the configured output, then exit. It returns the PIDs as
// launch confirmation. The processes are reaped in the background and never
// observed; a launch failure leaves already started ones running.
func SpawnProcesses(count int, opts ...Option) ([]int, error) {
	if count < 0 {
		return nil, invalidConfig("spawn count must not be negative, got %d", count)
	}
	o := newOptions(opts)

	pids := make([]int, 0, count)
	for ordinal := range count {
		cmd, err := o.launcher()
		if err != nil {
			return pids, fmt.Errorf("%w: worker %d: %v", ErrWorkerStartup, ordinal, err)
		}
		if cmd.Env == nil {
			cmd.Env = os.Environ()
		}
		cmd.Env = append(cmd.Env,
			EnvWorkerMode+"="+modeSpawn,
			EnvOrdinal+"="+strconv.Itoa(ordinal),
		)
		cmd.Stdout = o.output
		cmd.Stderr = os.Stderr
		if err := cmd.Start(); err != nil {
			return pids, fmt.Errorf("%w: worker %d: %v", ErrWorkerStartup, ordinal, err)
		}

		pid := cmd.Process.Pid
		pids = append(pids, pid)
		o.logger.Debug("spawned", "worker", ordinal, "pid", pid)
		o.hooks.workerStarted(WorkerEvent{Strategy: "spawn-process", Ordinal: ordinal, PID: pid, State: WorkerRunning})
		go func() {
			_ = cmd.Wait()
		}()
	}
	return pids, nil
}
