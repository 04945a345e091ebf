// Package cmd provides tests for CLI command handlers.
package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nibzard/fanout/internal/parallel"
	"github.com/nibzard/fanout/internal/ui"
	"github.com/nibzard/fanout/internal/workloads"
)

// syncBuffer is a bytes.Buffer safe for concurrent writers and readers.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// testApp isolates the command from the user's config and environment and
// captures its output.
func testApp(t *testing.T) (*app, *syncBuffer, *syncBuffer) {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	for _, env := range []string{
		"FANOUT_STRATEGY", "FANOUT_WORKLOAD", "FANOUT_POOL_SIZE", "FANOUT_TIMEOUT",
		"FANOUT_TASKS", "FANOUT_COPIES", "FANOUT_REPORT_DIR", "FANOUT_METRICS_FILE",
		"FANOUT_LOG_LEVEL", "FANOUT_LOG_FORMAT", "FANOUT_URLS",
	} {
		t.Setenv(env, "")
	}
	t.Chdir(t.TempDir())

	stdout, stderr := &syncBuffer{}, &syncBuffer{}
	return &app{stdout: stdout, stderr: stderr}, stdout, stderr
}

func writeTasks(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "tasks.json")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before timeout")
		}
		time.Sleep(20 * time.Millisecond)
	}
}

// TestRun tests the top-level dispatch.
func TestRun(t *testing.T) {
	t.Run("shows help with --help flag", func(t *testing.T) {
		a, stdout, _ := testApp(t)
		if err := a.run(context.Background(), []string{"--help"}); err != nil {
			t.Errorf("expected no error with --help, got %v", err)
		}
		if !strings.Contains(stdout.String(), "Commands:") {
			t.Errorf("help output missing command list:\n%s", stdout.String())
		}
		if !strings.Contains(stdout.String(), "-pool-size") {
			t.Errorf("help output missing config flags:\n%s", stdout.String())
		}
	})

	t.Run("shows help with help command", func(t *testing.T) {
		a, stdout, _ := testApp(t)
		if err := a.run(context.Background(), []string{"help"}); err != nil {
			t.Errorf("expected no error with help command, got %v", err)
		}
		if stdout.String() == "" {
			t.Error("expected usage on stdout")
		}
	})

	t.Run("shows version with -v flag", func(t *testing.T) {
		a, stdout, _ := testApp(t)
		if err := a.run(context.Background(), []string{"-v"}); err != nil {
			t.Errorf("expected no error with -v, got %v", err)
		}
		if !strings.HasPrefix(stdout.String(), "fanout version "+Version) {
			t.Errorf("version output = %q", stdout.String())
		}
	})

	t.Run("subcommand -h is not an error", func(t *testing.T) {
		a, _, _ := testApp(t)
		if err := a.run(context.Background(), []string{"run", "-h"}); err != nil {
			t.Errorf("expected no error with run -h, got %v", err)
		}
	})

	t.Run("unknown command returns error", func(t *testing.T) {
		a, _, stderr := testApp(t)
		err := a.run(context.Background(), []string{"unknown-command"})
		if err == nil || !strings.Contains(err.Error(), "unknown command") {
			t.Errorf("expected 'unknown command' error, got %v", err)
		}
		if !strings.Contains(stderr.String(), "Usage:") {
			t.Error("expected usage on stderr")
		}
	})

	t.Run("stray arguments are rejected", func(t *testing.T) {
		a, _, _ := testApp(t)
		err := a.run(context.Background(), []string{"run", "extra"})
		if err == nil || !strings.Contains(err.Error(), "unexpected arguments") {
			t.Errorf("expected unexpected arguments error, got %v", err)
		}
	})
}

func TestRunCommand(t *testing.T) {
	t.Run("thread pool prints results in order and the report", func(t *testing.T) {
		a, stdout, _ := testApp(t)
		dir := t.TempDir()
		tasks := writeTasks(t, dir, `[10, 1, 20]`)
		reportDir := filepath.Join(dir, "reports")
		metricsFile := filepath.Join(dir, "fanout.prom")

		err := a.run(context.Background(), []string{
			"run", "--strategy", "thread", "--workload", "fibonacci", "--pool-size", "2",
			"--tasks", tasks, "--report-dir", reportDir, "--metrics-file", metricsFile,
		})
		if err != nil {
			t.Fatalf("run error = %v", err)
		}

		lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
		want := []string{"fib(10) = 55", "fib(1) = 1", "fib(20) = 6765"}
		if len(lines) != len(want)+1 {
			t.Fatalf("stdout lines = %q, want %d", lines, len(want)+1)
		}
		for i, w := range want {
			if lines[i] != w {
				t.Errorf("line %d = %q, want %q", i, lines[i], w)
			}
		}
		if !strings.Contains(lines[3], " took ") || !strings.HasSuffix(lines[3], " seconds") {
			t.Errorf("report line = %q", lines[3])
		}

		metrics, err := os.ReadFile(metricsFile)
		if err != nil {
			t.Fatalf("metrics file not written: %v", err)
		}
		if !strings.Contains(string(metrics), `fanout_runs_total{outcome="success"`) {
			t.Errorf("metrics missing successful run:\n%s", metrics)
		}

		stdout2 := &syncBuffer{}
		b := &app{stdout: stdout2, stderr: &syncBuffer{}}
		if err := b.run(context.Background(), []string{"reports", "--report-dir", reportDir}); err != nil {
			t.Fatalf("reports error = %v", err)
		}
		out := stdout2.String()
		if !strings.Contains(out, "STRATEGY") || !strings.Contains(out, "fibonacci") {
			t.Errorf("reports output = %q", out)
		}
	})

	t.Run("process pool runs the same tasks", func(t *testing.T) {
		if testing.Short() {
			t.Skip("starts worker processes")
		}
		a, stdout, _ := testApp(t)
		tasks := writeTasks(t, t.TempDir(), `[{"size": 8, "rounds": 2, "seed": 1}, {"size": 4, "rounds": 1, "seed": 2}]`)

		err := a.run(context.Background(), []string{
			"run", "--strategy", "process", "--workload", "matrix", "--pool-size", "2",
			"--tasks", tasks, "--report-dir", "",
		})
		if err != nil {
			t.Fatalf("run error = %v", err)
		}
		out := stdout.String()
		if !strings.Contains(out, "matrix 8x8 x2") || !strings.Contains(out, "matrix 4x4 x1") {
			t.Errorf("stdout = %q", out)
		}
		if strings.Index(out, "matrix 8x8") > strings.Index(out, "matrix 4x4") {
			t.Errorf("results out of order:\n%s", out)
		}
	})

	t.Run("invalid task file fails before running", func(t *testing.T) {
		a, stdout, _ := testApp(t)
		tasks := writeTasks(t, t.TempDir(), `[10, "x"]`)

		err := a.run(context.Background(), []string{"run", "--tasks", tasks, "--report-dir", ""})
		var tfe *workloads.TaskFileError
		if !errors.As(err, &tfe) {
			t.Fatalf("expected TaskFileError, got %v", err)
		}
		if stdout.String() != "" {
			t.Errorf("expected no output, got %q", stdout.String())
		}
	})

	t.Run("invalid strategy is a config error", func(t *testing.T) {
		a, _, _ := testApp(t)
		err := a.run(context.Background(), []string{"run", "--strategy", "fiber"})
		if !errors.Is(err, parallel.ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("unknown workload is a config error", func(t *testing.T) {
		a, _, _ := testApp(t)
		err := a.run(context.Background(), []string{"run", "--workload", "sorting", "--report-dir", ""})
		if !errors.Is(err, parallel.ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("watch without a task file is rejected", func(t *testing.T) {
		a, _, _ := testApp(t)
		err := a.run(context.Background(), []string{"run", "--watch"})
		if !errors.Is(err, parallel.ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})
}

func TestRunWatch(t *testing.T) {
	a, stdout, _ := testApp(t)
	tasks := writeTasks(t, t.TempDir(), `[10]`)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- a.run(ctx, []string{"run", "--tasks", tasks, "--watch", "--report-dir", ""})
	}()

	waitFor(t, 5*time.Second, func() bool { return strings.Contains(stdout.String(), "fib(10) = 55") })

	if err := os.WriteFile(tasks, []byte(`[12]`), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	waitFor(t, 5*time.Second, func() bool { return strings.Contains(stdout.String(), "fib(12) = 144") })

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("watch returned %v after cancel", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop after cancel")
	}
}

func TestSpawnCommand(t *testing.T) {
	t.Run("goroutines", func(t *testing.T) {
		a, stdout, _ := testApp(t)
		if err := a.run(context.Background(), []string{"spawn", "-n", "3"}); err != nil {
			t.Fatalf("spawn error = %v", err)
		}
		out := stdout.String()
		for _, want := range []string{"Worker: 0, PID: ", "Worker: 1, PID: ", "Worker: 2, PID: "} {
			if !strings.Contains(out, want) {
				t.Errorf("output missing %q:\n%s", want, out)
			}
		}
	})

	t.Run("processes", func(t *testing.T) {
		if testing.Short() {
			t.Skip("starts worker processes")
		}
		a, stdout, _ := testApp(t)
		if err := a.run(context.Background(), []string{"spawn", "-n", "2", "--processes"}); err != nil {
			t.Fatalf("spawn error = %v", err)
		}
		waitFor(t, 10*time.Second, func() bool {
			return strings.Count(stdout.String(), "Worker: ") == 2
		})
		if strings.Contains(stdout.String(), "PID: "+strconv.Itoa(os.Getpid())+"\n") {
			t.Error("process workers reported the parent PID")
		}
	})

	t.Run("negative count", func(t *testing.T) {
		a, _, _ := testApp(t)
		err := a.run(context.Background(), []string{"spawn", "-n", "-1"})
		if !errors.Is(err, parallel.ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})
}

func TestReportsCommandEmpty(t *testing.T) {
	a, stdout, _ := testApp(t)
	dir := filepath.Join(t.TempDir(), "none")
	if err := a.run(context.Background(), []string{"reports", "--report-dir", dir}); err != nil {
		t.Fatalf("reports error = %v", err)
	}
	if !strings.Contains(stdout.String(), "No reports") {
		t.Errorf("stdout = %q", stdout.String())
	}
	if err := a.run(context.Background(), []string{"reports", "--raw", "--report-dir", dir}); err == nil {
		t.Error("expected error tailing a missing log")
	}
}

func TestWorkloadsCommand(t *testing.T) {
	a, stdout, _ := testApp(t)
	if err := a.run(context.Background(), []string{"workloads"}); err != nil {
		t.Fatalf("workloads error = %v", err)
	}
	for _, name := range workloads.Names() {
		if !strings.Contains(stdout.String(), name) {
			t.Errorf("listing missing %s:\n%s", name, stdout.String())
		}
	}

	a, stdout, _ = testApp(t)
	if err := a.run(context.Background(), []string{"workloads", "--schema"}); err != nil {
		t.Fatalf("workloads --schema error = %v", err)
	}
	if got := strings.Count(stdout.String(), `"$schema"`); got != len(workloads.Names()) {
		t.Errorf("schema count = %d, want %d", got, len(workloads.Names()))
	}
}

func TestConfigCommand(t *testing.T) {
	a, stdout, _ := testApp(t)
	if err := a.run(context.Background(), []string{"config", "--pool-size", "3"}); err != nil {
		t.Fatalf("config error = %v", err)
	}
	var poolLine string
	for _, line := range strings.Split(stdout.String(), "\n") {
		if strings.HasPrefix(line, "pool_size") {
			poolLine = line
		}
	}
	if !strings.Contains(poolLine, "3") || !strings.HasSuffix(strings.TrimSpace(poolLine), "flag") {
		t.Errorf("pool_size line = %q", poolLine)
	}

	a, stdout, _ = testApp(t)
	if err := a.run(context.Background(), []string{"config", "--example"}); err != nil {
		t.Fatalf("config --example error = %v", err)
	}
	if !strings.Contains(stdout.String(), `strategy = "thread"`) {
		t.Errorf("example config = %q", stdout.String())
	}
}

func TestPickCommandNeedsTTY(t *testing.T) {
	if ui.IsTTY(os.Stdout) {
		t.Skip("stdout is a terminal")
	}
	a, _, _ := testApp(t)
	err := a.run(context.Background(), []string{"pick"})
	if err == nil || !strings.Contains(err.Error(), "TTY") {
		t.Errorf("expected TTY error, got %v", err)
	}
}
