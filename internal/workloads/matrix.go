package workloads

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/nibzard/fanout/internal/parallel"
)

// Default matrix task shape.
const (
	DefaultMatrixSize   = 200
	DefaultMatrixRounds = 10
)

// MatrixTask multiplies two Size x Size matrices filled from Seed, Rounds
// times. Everything a worker needs is in the task, so process workers hold no
// shared state.
type MatrixTask struct {
	Size   int    `json:"size"`
	Rounds int    `json:"rounds,omitempty"`
	Seed   uint64 `json:"seed,omitempty"`
}

// MatrixResult summarizes the last product.
type MatrixResult struct {
	Size     int     `json:"size"`
	Rounds   int     `json:"rounds"`
	Checksum float64 `json:"checksum"`
}

// Matrix is the dense matrix multiplication workload.
var Matrix = parallel.Workload[MatrixTask, MatrixResult]{
	Name: "matrix",
	Fn:   multiply,
}

func multiply(ctx context.Context, task MatrixTask) (MatrixResult, error) {
	n := task.Size
	if n < 1 {
		return MatrixResult{}, fmt.Errorf("matrix size must be positive, got %d", n)
	}
	rounds := task.Rounds
	if rounds < 1 {
		rounds = 1
	}

	rng := rand.New(rand.NewPCG(task.Seed, uint64(n)))
	a := randomMatrix(rng, n)
	b := randomMatrix(rng, n)
	c := make([]float64, n*n)

	for range rounds {
		if err := ctx.Err(); err != nil {
			return MatrixResult{}, err
		}
		clear(c)
		// i-k-j order walks b and c row-wise.
		for i := 0; i < n; i++ {
			ci := c[i*n : (i+1)*n]
			for k := 0; k < n; k++ {
				aik := a[i*n+k]
				bk := b[k*n : (k+1)*n]
				for j, bkj := range bk {
					ci[j] += aik * bkj
				}
			}
		}
	}

	var sum float64
	for _, v := range c {
		sum += v
	}
	return MatrixResult{Size: n, Rounds: rounds, Checksum: sum}, nil
}

func randomMatrix(rng *rand.Rand, n int) []float64 {
	m := make([]float64, n*n)
	for i := range m {
		m[i] = rng.Float64()
	}
	return m
}

// MatrixTasks builds count identical tasks with distinct seeds.
func MatrixTasks(count, size, rounds int) []MatrixTask {
	tasks := make([]MatrixTask, count)
	for i := range tasks {
		tasks[i] = MatrixTask{Size: size, Rounds: rounds, Seed: uint64(i)}
	}
	return tasks
}
