package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/nibzard/fanout/internal/config"
	"github.com/nibzard/fanout/internal/logging"
	"github.com/nibzard/fanout/internal/metrics"
	"github.com/nibzard/fanout/internal/parallel"
	"github.com/nibzard/fanout/internal/ui"
	"github.com/nibzard/fanout/internal/workloads"
)

// runCommand runs the configured workload once, or on every task file change
// with --watch.
func (a *app) runCommand(ctx context.Context, args []string) error {
	ws, err := loadConfig(a.newFlagSet("run"), args)
	if err != nil {
		return err
	}
	return a.execute(ctx, ws.Config)
}

// pickCommand asks for strategy and workload, then runs them once.
func (a *app) pickCommand(ctx context.Context, args []string) error {
	ws, err := loadConfig(a.newFlagSet("pick"), args)
	if err != nil {
		return err
	}
	cfg := ws.Config

	runners := workloads.All()
	choices := make([]ui.Choice, len(runners))
	for i, r := range runners {
		choices[i] = ui.Choice{Name: r.Name(), Description: r.Description()}
	}
	sel, err := ui.RunPicker(ctx, choices)
	if errors.Is(err, ui.ErrCancelled) {
		return nil
	}
	if err != nil {
		return err
	}

	cfg.Strategy = sel.Kind.String()
	cfg.Workload = sel.Workload
	cfg.Watch = false
	return a.execute(ctx, cfg)
}

// execute wires the sinks around a workload run.
func (a *app) execute(ctx context.Context, cfg *config.Config) error {
	logger, err := a.logger(cfg)
	if err != nil {
		return err
	}
	kind, err := cfg.Kind()
	if err != nil {
		return err
	}
	runner, err := workloads.Lookup(cfg.Workload)
	if err != nil {
		return err
	}

	var reports *logging.ReportLog
	if cfg.ReportDir != "" {
		reports, err = logging.NewReportLog(cfg.ReportDir)
		if err != nil {
			logger.Warn("report log disabled", "dir", cfg.ReportDir, "err", err)
		} else {
			defer reports.Close()
		}
	}

	r := &runOnce{
		app:       a,
		cfg:       cfg,
		kind:      kind,
		runner:    runner,
		logger:    logger,
		collector: metrics.NewCollector(),
		reports:   reports,
	}

	if !cfg.Watch {
		return r.run(ctx)
	}

	logger.Info("watching task file", "path", cfg.TasksFile)
	return watchFile(ctx, cfg.TasksFile, watchDebounce, func() {
		if err := r.run(ctx); err != nil && ctx.Err() == nil {
			logger.Error("run failed", "err", err)
		}
	})
}

// runOnce holds everything that survives between watch iterations. The
// collector accumulates across runs so the textfile reflects the session.
type runOnce struct {
	app       *app
	cfg       *config.Config
	kind      parallel.Kind
	runner    workloads.Runner
	logger    *log.Logger
	collector *metrics.Collector
	reports   *logging.ReportLog
}

func (r *runOnce) run(ctx context.Context) error {
	req := workloads.Request{Kind: r.kind, Settings: settingsFrom(r.cfg)}
	if r.cfg.TasksFile != "" {
		data, err := workloads.LoadTaskFile(r.cfg.TasksFile)
		if err != nil {
			return err
		}
		req.Tasks = data
	}

	opts := []parallel.Option{
		parallel.WithLogger(r.logger),
		parallel.WithHooks(r.collector.Hooks()),
	}
	if r.cfg.PoolSize > 0 {
		opts = append(opts, parallel.WithPoolSize(r.cfg.PoolSize))
	}
	if r.cfg.Timeout.Duration > 0 {
		opts = append(opts, parallel.WithTimeout(r.cfg.Timeout.Duration))
	}

	out, err := r.runner.Run(ctx, req, opts...)
	r.writeMetrics()
	if err != nil {
		if idx, ok := parallel.TaskIndex(err); ok {
			r.logger.Error("task failed", "workload", r.runner.Name(), "index", idx)
		}
		return fmt.Errorf("%s run: %w", r.runner.Name(), err)
	}

	stdout := r.app.stdout
	for _, line := range out.Lines {
		fmt.Fprintln(stdout, line)
	}
	fmt.Fprintln(stdout, out.Report.String())

	report := out.Report
	r.logger.Info("run finished",
		"run_id", report.RunID,
		"strategy", report.Strategy,
		"workload", report.Workload,
		"pool_size", report.PoolSize,
		"tasks", report.TaskCount,
		"elapsed", report.Elapsed,
		"throughput", fmt.Sprintf("%.2f/s", report.Throughput()),
	)
	if r.reports != nil {
		if err := r.reports.Append(*report); err != nil {
			r.logger.Warn("failed to append report", "path", r.reports.LogPath, "err", err)
		}
	}
	return nil
}

func (r *runOnce) writeMetrics() {
	if r.cfg.MetricsFile == "" {
		return
	}
	if err := r.collector.WriteTextfile(r.cfg.MetricsFile); err != nil {
		r.logger.Warn("failed to write metrics", "err", err)
	}
}

func settingsFrom(cfg *config.Config) workloads.Settings {
	s := workloads.DefaultSettings()
	s.Copies = cfg.Copies
	s.FibonacciN = cfg.Fibonacci.N
	s.MatrixSize = cfg.Matrix.Size
	s.MatrixRounds = cfg.Matrix.Rounds
	if len(cfg.Fetch.URLs) > 0 {
		s.URLs = cfg.Fetch.URLs
	}
	if cfg.Fetch.Timeout.Duration > 0 {
		s.FetchTimeout = cfg.Fetch.Timeout.Duration
	}
	return s
}
