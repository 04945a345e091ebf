package parallel

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"
)

// Workloads shared by the tests. They are registered so the test binary can
// also serve as a ProcessPool worker.
var (
	identityWorkload = Workload[int, int]{
		Name: "identity",
		Fn: func(ctx context.Context, n int) (int, error) {
			return n, nil
		},
	}

	failOnB = Workload[string, string]{
		Name: "fail-on-b",
		Fn: func(ctx context.Context, s string) (string, error) {
			if s == "b" {
				return "", errors.New("refusing b")
			}
			return strings.ToUpper(s), nil
		},
	}

	// jitter sleeps longer for earlier indexes so completions arrive out of order.
	jitterWorkload = Workload[int, int]{
		Name: "jitter",
		Fn: func(ctx context.Context, n int) (int, error) {
			delay := time.Duration(20-n%20) * time.Millisecond
			select {
			case <-time.After(delay):
				return n * n, nil
			case <-ctx.Done():
				return 0, ctx.Err()
			}
		},
	}

	sleepWorkload = Workload[int, int]{
		Name: "sleep",
		Fn: func(ctx context.Context, ms int) (int, error) {
			select {
			case <-time.After(time.Duration(ms) * time.Millisecond):
				return ms, nil
			case <-ctx.Done():
				return 0, ctx.Err()
			}
		},
	}

	// stubbornSleep ignores cancellation; only killing the worker stops it.
	stubbornSleep = Workload[int, int]{
		Name: "stubborn-sleep",
		Fn: func(ctx context.Context, ms int) (int, error) {
			time.Sleep(time.Duration(ms) * time.Millisecond)
			return ms, nil
		},
	}

	panicWorkload = Workload[int, int]{
		Name: "panic",
		Fn: func(ctx context.Context, n int) (int, error) {
			if n == 2 {
				panic(fmt.Sprintf("bad input %d", n))
			}
			return n, nil
		},
	}

	echoWorkload = Workload[string, string]{
		Name: "echo",
		Fn: func(ctx context.Context, s string) (string, error) {
			return s, nil
		},
	}

	crashWorkload = Workload[int, int]{
		Name: "crash",
		Fn: func(ctx context.Context, n int) (int, error) {
			if n == 3 {
				os.Exit(3)
			}
			return n, nil
		},
	}
)

var testRegistry = NewRegistry()

func init() {
	MustRegister(testRegistry, identityWorkload)
	MustRegister(testRegistry, failOnB)
	MustRegister(testRegistry, jitterWorkload)
	MustRegister(testRegistry, sleepWorkload)
	MustRegister(testRegistry, stubbornSleep)
	MustRegister(testRegistry, panicWorkload)
	MustRegister(testRegistry, crashWorkload)
	MustRegister(testRegistry, echoWorkload)
}

func TestMain(m *testing.M) {
	handled, err := ServeChild(context.Background(), testRegistry, os.Stdin, os.Stdout, os.Stderr)
	if handled {
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		os.Exit(0)
	}
	os.Exit(m.Run())
}

func seq(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}
