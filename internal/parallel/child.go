package parallel

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/charmbracelet/log"
)

// Environment variables that turn a process into a worker.
const (
	EnvWorkerMode = "FANOUT_WORKER_MODE"
	EnvWorkload   = "FANOUT_WORKER_WORKLOAD"
	EnvOrdinal    = "FANOUT_WORKER_ORDINAL"
)

const (
	modePool  = "pool"
	modeSpawn = "spawn"
)

// IsChild reports whether this process was launched as a worker.
func IsChild() bool {
	return os.Getenv(EnvWorkerMode) != ""
}

// ServeChild runs the worker side of ProcessPool and SpawnProcesses when this
// process was launched as one, and reports whether it did. Binaries that use
// either must call it before doing anything else in main (and in TestMain).
func ServeChild(ctx context.Context, reg *Registry, stdin io.Reader, stdout, stderr io.Writer) (bool, error) {
	mode := os.Getenv(EnvWorkerMode)
	if mode == "" {
		return false, nil
	}
	ordinal, _ := strconv.Atoi(os.Getenv(EnvOrdinal))

	switch mode {
	case modePool:
		logger := log.NewWithOptions(stderr, log.Options{
			Level:     log.DebugLevel,
			Formatter: log.LogfmtFormatter,
			Prefix:    fmt.Sprintf("worker-%d", ordinal),
		})
		return true, servePool(ctx, reg, os.Getenv(EnvWorkload), stdin, stdout, logger)
	case modeSpawn:
		_, err := fmt.Fprintf(stdout, "Worker: %d, PID: %d\n", ordinal, os.Getpid())
		return true, err
	default:
		return true, fmt.Errorf("unknown worker mode %q", mode)
	}
}

func servePool(ctx context.Context, reg *Registry, name string, stdin io.Reader, stdout io.Writer, logger *log.Logger) error {
	enc := json.NewEncoder(stdout)

	handler, ok := reg.Lookup(name)
	if !ok {
		_ = enc.Encode(helloMessage{PID: os.Getpid(), Workload: name, Error: "unknown workload"})
		return fmt.Errorf("unknown workload %q", name)
	}
	if err := enc.Encode(helloMessage{PID: os.Getpid(), Workload: name}); err != nil {
		return fmt.Errorf("write hello: %w", err)
	}
	logger.Debug("ready", "workload", name, "pid", os.Getpid())

	scanner := bufio.NewScanner(stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), maxMessageSize)
	for scanner.Scan() {
		var msg taskMessage
		if err := json.Unmarshal(scanner.Bytes(), &msg); err != nil {
			return fmt.Errorf("decode task: %w", err)
		}

		resp := resultMessage{Index: msg.Index}
		result, err := handler(ctx, msg.Payload)
		if err != nil {
			resp.Error = err.Error()
			logger.Debug("task failed", "index", msg.Index, "err", err)
		} else {
			resp.Result = result
		}
		if err := enc.Encode(resp); err != nil {
			return fmt.Errorf("write result: %w", err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read tasks: %w", err)
	}
	logger.Debug("stdin closed, exiting")
	return nil
}
