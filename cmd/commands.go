package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/nibzard/fanout/internal/config"
	"github.com/nibzard/fanout/internal/logging"
	"github.com/nibzard/fanout/internal/parallel"
	"github.com/nibzard/fanout/internal/workloads"
)

// spawnCommand starts workers without collecting anything from them.
func (a *app) spawnCommand(ctx context.Context, args []string) error {
	fs := a.newFlagSet("spawn")
	count := fs.Int("n", 5, "Number of workers to start")
	processes := fs.Bool("processes", false, "Start worker processes instead of goroutines")
	ws, err := loadConfig(fs, args)
	if err != nil {
		return err
	}
	logger, err := a.logger(ws.Config)
	if err != nil {
		return err
	}

	if *processes {
		pids, err := parallel.SpawnProcesses(*count, parallel.WithOutput(a.stdout), parallel.WithLogger(logger))
		logger.Debug("spawned worker processes", "count", len(pids), "pids", pids)
		return err
	}

	if *count < 0 {
		return fmt.Errorf("%w: -n must not be negative, got %d", parallel.ErrInvalidConfig, *count)
	}
	// Spawn never joins; the command waits on its own so the process does not
	// exit before the goroutines print.
	var mu sync.Mutex
	var wg sync.WaitGroup
	wg.Add(*count)
	pid := os.Getpid()
	err = parallel.Spawn(*count, func(ordinal int) {
		defer wg.Done()
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintf(a.stdout, "Worker: %d, PID: %d\n", ordinal, pid)
	}, parallel.WithLogger(logger))
	if err != nil {
		return err
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// reportsCommand shows the latest reports, or tails the raw report log.
func (a *app) reportsCommand(ctx context.Context, args []string) error {
	fs := a.newFlagSet("reports")
	n := fs.Int("n", 10, "Number of reports to show")
	raw := fs.Bool("raw", false, "Print raw JSONL lines")
	follow := fs.Bool("f", false, "Follow the report log (implies -raw)")
	ws, err := loadConfig(fs, args)
	if err != nil {
		return err
	}
	dir := ws.Config.ReportDir

	if *raw || *follow {
		path, err := logging.FindLatestLog(dir)
		if err != nil {
			return err
		}
		if path == "" {
			return fmt.Errorf("no report logs in %s", dir)
		}
		return logging.TailLog(ctx, a.stdout, path, *n, *follow)
	}

	reports, err := logging.LatestReports(dir, *n)
	if err != nil {
		return err
	}
	if len(reports) == 0 {
		fmt.Fprintf(a.stdout, "No reports in %s\n", dir)
		return nil
	}

	tw := tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tSTRATEGY\tWORKLOAD\tPOOL\tTASKS\tSECONDS\tTASKS/S")
	for _, r := range reports {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%.2f\t%.2f\n",
			r.Started.Local().Format(time.DateTime),
			r.Strategy,
			r.Workload,
			r.PoolSize,
			r.TaskCount,
			r.Elapsed.Seconds(),
			r.Throughput(),
		)
	}
	return tw.Flush()
}

// workloadsCommand lists the built-in workloads.
func (a *app) workloadsCommand(args []string) error {
	fs := a.newFlagSet("workloads")
	schema := fs.Bool("schema", false, "Print the JSON schema of each workload's task file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	runners := workloads.All()
	if *schema {
		for _, r := range runners {
			fmt.Fprintf(a.stdout, "# %s\n%s\n", r.Name(), strings.TrimSpace(r.Schema()))
		}
		return nil
	}

	tw := tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tDESCRIPTION")
	for _, r := range runners {
		fmt.Fprintf(tw, "%s\t%s\n", r.Name(), r.Description())
	}
	return tw.Flush()
}

// configCommand prints the effective configuration and where each value came
// from.
func (a *app) configCommand(args []string) error {
	fs := a.newFlagSet("config")
	example := fs.Bool("example", false, "Print an example configuration file")
	ws, err := loadConfig(fs, args)
	if err != nil {
		return err
	}
	if *example {
		fmt.Fprint(a.stdout, config.ExampleConfig())
		return nil
	}

	for _, f := range ws.Files {
		fmt.Fprintf(a.stdout, "# read %s\n", f)
	}
	tw := tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tVALUE\tSOURCE")
	for _, key := range config.Keys() {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", key, configValue(ws.Config, key), ws.Sources[key])
	}
	return tw.Flush()
}

func configValue(cfg *config.Config, key string) string {
	switch key {
	case "strategy":
		return cfg.Strategy
	case "workload":
		return cfg.Workload
	case "pool_size":
		if cfg.PoolSize == 0 {
			return fmt.Sprintf("0 (auto: %d)", parallel.DefaultPoolSize())
		}
		return fmt.Sprint(cfg.PoolSize)
	case "timeout":
		return cfg.Timeout.Duration.String()
	case "tasks_file":
		return cfg.TasksFile
	case "copies":
		return fmt.Sprint(cfg.Copies)
	case "report_dir":
		return cfg.ReportDir
	case "metrics_file":
		return cfg.MetricsFile
	case "log_level":
		return cfg.LogLevel
	case "log_format":
		return cfg.LogFormat
	case "log_timestamps":
		return fmt.Sprint(cfg.LogTimestamps)
	case "log_caller":
		return fmt.Sprint(cfg.LogCaller)
	case "fibonacci.n":
		return fmt.Sprint(cfg.Fibonacci.N)
	case "matrix.size":
		return fmt.Sprint(cfg.Matrix.Size)
	case "matrix.rounds":
		return fmt.Sprint(cfg.Matrix.Rounds)
	case "fetch.urls":
		return strings.Join(cfg.Fetch.URLs, ",")
	case "fetch.timeout":
		return cfg.Fetch.Timeout.Duration.String()
	default:
		return ""
	}
}
