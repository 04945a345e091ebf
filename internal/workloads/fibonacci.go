package workloads

import (
	"context"
	"fmt"

	"github.com/nibzard/fanout/internal/parallel"
)

// DefaultFibonacciN is the input of every default Fibonacci task.
const DefaultFibonacciN = 35

// fibCheckEvery is how many recursive calls run between context checks.
const fibCheckEvery = 1 << 20

// Fibonacci computes fib(n) with the naive exponential recursion. It exists
// to keep a CPU busy, so it is intentionally not memoized.
var Fibonacci = parallel.Workload[int, int]{
	Name: "fibonacci",
	Fn: func(ctx context.Context, n int) (int, error) {
		if n < 0 {
			return 0, fmt.Errorf("fibonacci of negative number %d", n)
		}
		f := fibber{ctx: ctx}
		v := f.fib(n)
		if f.err != nil {
			return 0, f.err
		}
		return v, nil
	},
}

type fibber struct {
	ctx   context.Context
	calls int
	err   error
}

func (f *fibber) fib(n int) int {
	if f.err != nil {
		return 0
	}
	f.calls++
	if f.calls%fibCheckEvery == 0 {
		if err := f.ctx.Err(); err != nil {
			f.err = err
			return 0
		}
	}
	if n <= 1 {
		return n
	}
	return f.fib(n-1) + f.fib(n-2)
}
