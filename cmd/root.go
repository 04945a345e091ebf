// Package cmd implements the CLI command structure for fanout.
package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/nibzard/fanout/internal/config"
	"github.com/nibzard/fanout/internal/logging"
)

// Version is set via ldflags at build time.
var Version = "dev"

// app carries the output streams so commands can be driven from tests.
type app struct {
	stdout io.Writer
	stderr io.Writer
}

// Run executes the fanout CLI.
func Run(ctx context.Context, args []string) error {
	a := &app{stdout: os.Stdout, stderr: os.Stderr}
	return a.run(ctx, args)
}

func (a *app) run(ctx context.Context, args []string) error {
	// If no args or first arg is a flag, use "run" as default
	subcommand := "run"
	remainingArgs := args
	if len(args) > 0 {
		switch args[0] {
		case "-h", "-help", "--help":
			subcommand = "help"
			remainingArgs = args[1:]
		case "-v", "-version", "--version":
			subcommand = "version"
			remainingArgs = args[1:]
		default:
			if !strings.HasPrefix(args[0], "-") {
				subcommand = args[0]
				remainingArgs = args[1:]
			}
		}
	}

	var err error
	switch subcommand {
	case "run":
		err = a.runCommand(ctx, remainingArgs)
	case "pick":
		err = a.pickCommand(ctx, remainingArgs)
	case "spawn":
		err = a.spawnCommand(ctx, remainingArgs)
	case "reports":
		err = a.reportsCommand(ctx, remainingArgs)
	case "workloads":
		err = a.workloadsCommand(remainingArgs)
	case "config":
		err = a.configCommand(remainingArgs)
	case "version":
		return a.versionCommand()
	case "help":
		printUsage(a.stdout)
		return nil
	default:
		fmt.Fprintf(a.stderr, "Unknown command: %s\n", subcommand)
		printUsage(a.stderr)
		return fmt.Errorf("unknown command: %s", subcommand)
	}
	if errors.Is(err, flag.ErrHelp) {
		return nil
	}
	return err
}

// newFlagSet returns a flag set that reports parse errors instead of exiting.
func (a *app) newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet("fanout "+name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	return fs
}

// loadConfig parses args on fs together with the configuration flags and
// rejects stray positional arguments.
func loadConfig(fs *flag.FlagSet, args []string) (*config.WithSources, error) {
	ws, err := config.LoadWithSources(fs, args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, flag.ErrHelp
		}
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	return ws, nil
}

// logger builds the console logger the config asks for. Logs go to stderr so
// stdout stays reserved for results.
func (a *app) logger(cfg *config.Config) (*log.Logger, error) {
	opts, err := logging.ParseConsoleOptions(cfg.LogLevel, cfg.LogFormat, cfg.LogTimestamps, cfg.LogCaller)
	if err != nil {
		return nil, err
	}
	return logging.NewConsoleLogger(a.stderr, opts), nil
}

func (a *app) versionCommand() error {
	fmt.Fprintf(a.stdout, "fanout version %s (%s, %s/%s)\n", Version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
	return nil
}

// printUsage prints the usage message.
func printUsage(w io.Writer) {
	fmt.Fprintln(w, "fanout - run a batch of tasks on a goroutine pool or a process pool")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  fanout [command] [options]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  run        Run a workload and report timing (default command)")
	fmt.Fprintln(w, "  pick       Choose strategy and workload interactively, then run")
	fmt.Fprintln(w, "  spawn      Start workers without waiting for them")
	fmt.Fprintln(w, "  reports    Show recent run reports")
	fmt.Fprintln(w, "  workloads  List built-in workloads and their task schemas")
	fmt.Fprintln(w, "  config     Show the effective configuration")
	fmt.Fprintln(w, "  version    Show version information")
	fmt.Fprintln(w, "  help       Show this help message")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Options (run, pick, spawn, reports, config):")
	config.PrintDefaults(w)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Spawn Options:")
	fmt.Fprintln(w, "  -n int")
	fmt.Fprintln(w, "        Number of workers to start (default 5)")
	fmt.Fprintln(w, "  -processes")
	fmt.Fprintln(w, "        Start worker processes instead of goroutines")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Reports Options:")
	fmt.Fprintln(w, "  -n int")
	fmt.Fprintln(w, "        Number of reports to show (default 10)")
	fmt.Fprintln(w, "  -raw")
	fmt.Fprintln(w, "        Print raw JSONL lines")
	fmt.Fprintln(w, "  -f")
	fmt.Fprintln(w, "        Follow the report log (implies -raw)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Examples:")
	fmt.Fprintln(w, "  fanout run --strategy process --workload matrix")
	fmt.Fprintln(w, "  fanout run --workload fetch --tasks urls.json --timeout 30s")
	fmt.Fprintln(w, "  fanout run --tasks fib.json --watch")
	fmt.Fprintln(w, "  fanout spawn -n 5 --processes")
	fmt.Fprintln(w, "  fanout reports -n 5")
}
