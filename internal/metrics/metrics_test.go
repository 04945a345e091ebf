package metrics

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nibzard/fanout/internal/parallel"
)

var failOdd = parallel.Workload[int, int]{
	Name: "fail-odd",
	Fn: func(ctx context.Context, n int) (int, error) {
		if n%2 == 1 {
			return 0, fmt.Errorf("odd %d", n)
		}
		return n, nil
	},
}

func TestCollector_Hooks(t *testing.T) {
	c := NewCollector()
	ctx := context.Background()

	_, _, err := parallel.Run(ctx, []int{0, 2, 4, 6}, failOdd, parallel.KindThread,
		parallel.WithPoolSize(2), parallel.WithHooks(c.Hooks()))
	require.NoError(t, err)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.WorkersStarted.WithLabelValues("thread-pool")))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.ActiveWorkers.WithLabelValues("thread-pool")))
	assert.Equal(t, 4.0, testutil.ToFloat64(c.TasksCompleted.WithLabelValues("thread-pool")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Runs.WithLabelValues("thread-pool", "fail-odd", "success")))

	_, _, err = parallel.Run(ctx, []int{1}, failOdd, parallel.KindThread, parallel.WithHooks(c.Hooks()))
	require.Error(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(c.TasksFailed.WithLabelValues("thread-pool")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Runs.WithLabelValues("thread-pool", "fail-odd", "task_failed")))
	assert.Equal(t, 1, testutil.CollectAndCount(c.TaskLatency))
}

func TestOutcome(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()
	<-ctx.Done()
	sleep := parallel.Workload[int, int]{Name: "sleep", Fn: func(ctx context.Context, n int) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	}}
	_, _, timeoutErr := parallel.Run(ctx, []int{1}, sleep, parallel.KindThread)

	tests := []struct {
		err  error
		want string
	}{
		{nil, "success"},
		{&parallel.TaskError{Index: 2, Err: errors.New("boom")}, "task_failed"},
		{timeoutErr, "timeout"},
		{parallel.ErrWorkerStartup, "error"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Outcome(tt.err), "%v", tt.err)
	}
}

func TestCollector_WriteTextfile(t *testing.T) {
	c := NewCollector()
	c.Hooks().OnRunDone(parallel.RunEvent{Strategy: "process-pool", Workload: "matrix", Elapsed: 2 * time.Second})

	path := filepath.Join(t.TempDir(), "fanout.prom")
	require.NoError(t, c.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.True(t, strings.Contains(text, `fanout_runs_total{outcome="success",strategy="process-pool",workload="matrix"} 1`), text)
	assert.Contains(t, text, `fanout_last_run_seconds{strategy="process-pool",workload="matrix"} 2`)

	require.Error(t, c.WriteTextfile(filepath.Join(t.TempDir(), "missing", "dir", "x.prom")))
}
