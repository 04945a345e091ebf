// Command fanout is the CLI entrypoint.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/automaxprocs/maxprocs"

	"github.com/nibzard/fanout/cmd"
	"github.com/nibzard/fanout/internal/parallel"
	"github.com/nibzard/fanout/internal/workloads"
)

func main() {
	// Worker processes re-exec this binary; serve them before anything else
	// touches stdout.
	if handled, err := parallel.ServeChild(context.Background(), workloads.NewRegistry(), os.Stdin, os.Stdout, os.Stderr); handled {
		if err != nil {
			fmt.Fprintf(os.Stderr, "worker: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	// Match GOMAXPROCS to the container CPU quota.
	undo, _ := maxprocs.Set()
	defer undo()

	// Create context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	// Run the CLI
	if err := cmd.Run(ctx, os.Args[1:]); err != nil {
		if ctx.Err() != nil {
			fmt.Fprintf(os.Stderr, "\nInterrupted\n")
			os.Exit(130)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
