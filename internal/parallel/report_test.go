package parallel

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewReport(t *testing.T) {
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	r := NewReport("thread-pool", start, start.Add(1370*time.Millisecond), 8)
	assert.Equal(t, "thread-pool", r.Strategy)
	assert.Equal(t, 8, r.TaskCount)
	assert.Equal(t, 1370*time.Millisecond, r.Elapsed)
	assert.Equal(t, "Thread-pool took 1.37 seconds", r.String())
	assert.InDelta(t, 8/1.37, r.Throughput(), 1e-9)

	t.Run("clock going backwards", func(t *testing.T) {
		r := NewReport("process-pool", start, start.Add(-time.Second), 3)
		assert.Zero(t, r.Elapsed)
		assert.Zero(t, r.Throughput())
		assert.Equal(t, "Process-pool took 0.00 seconds", r.String())
	})

	t.Run("empty strategy name", func(t *testing.T) {
		r := NewReport("", start, start, 0)
		assert.Equal(t, " took 0.00 seconds", r.String())
	})
}

func TestSources(t *testing.T) {
	assert.Equal(t, []int{3, 1, 2}, Collect(FromSlice([]int{3, 1, 2})))
	assert.Equal(t, []string{"x", "x"}, Collect(Repeat("x", 2)))
	assert.Equal(t, []int{}, Collect[int](nil))

	n := 0
	counter := SourceFunc[int](func() (int, bool) {
		n++
		return n, n <= 3
	})
	assert.Equal(t, []int{1, 2, 3}, Collect[int](counter))
}
