package workloads

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nibzard/fanout/internal/parallel"
)

func TestLookup(t *testing.T) {
	tests := map[string]string{
		"fibonacci": "fibonacci",
		"1":         "fibonacci",
		"urls":      "fetch",
		"2":         "fetch",
		" Matrix ":  "matrix",
		"3":         "matrix",
	}
	for in, want := range tests {
		r, err := Lookup(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, r.Name(), in)
	}

	_, err := Lookup("sorting")
	require.ErrorIs(t, err, parallel.ErrInvalidConfig)
}

func TestNames(t *testing.T) {
	assert.Equal(t, []string{"fibonacci", "fetch", "matrix"}, Names())
	assert.Equal(t, []string{"fetch", "fibonacci", "matrix"}, NewRegistry().Names())
	for _, r := range All() {
		assert.NotEmpty(t, r.Description(), r.Name())
		assert.NotEmpty(t, r.Schema(), r.Name())
	}
}

func TestRunner_Validate(t *testing.T) {
	tests := []struct {
		workload string
		data     string
		count    int
		path     string
	}{
		{workload: "fibonacci", data: `[10, 20, 30]`, count: 3},
		{workload: "fibonacci", data: `[]`, count: 0},
		{workload: "fibonacci", data: `[10, -1]`, path: "[1]"},
		{workload: "fibonacci", data: `{"n": 3}`},
		{workload: "fetch", data: `["http://a", {"url": "http://b"}]`, count: 2},
		{workload: "fetch", data: `[{"timeout_ms": 3}]`, path: "[0]"},
		{workload: "matrix", data: `[{"size": 10, "rounds": 2}]`, count: 1},
		{workload: "matrix", data: `[{"size": 10}, {"size": 0}]`, path: "[1].size"},
		{workload: "matrix", data: `not json`},
	}
	for _, tt := range tests {
		t.Run(tt.workload+" "+tt.data, func(t *testing.T) {
			r, err := Lookup(tt.workload)
			require.NoError(t, err)

			n, err := r.Validate([]byte(tt.data))
			if tt.count > 0 || tt.data == `[]` {
				require.NoError(t, err)
				assert.Equal(t, tt.count, n)
				return
			}
			var fileErr *TaskFileError
			require.ErrorAs(t, err, &fileErr)
			assert.Equal(t, tt.workload, fileErr.Workload)
			if tt.path != "" {
				assert.Equal(t, tt.path, fileErr.Path)
			}
		})
	}
}

func TestRunner_Run(t *testing.T) {
	ctx := context.Background()

	t.Run("fibonacci from a task file", func(t *testing.T) {
		r, err := Lookup("fibonacci")
		require.NoError(t, err)

		out, err := r.Run(ctx, Request{Kind: parallel.KindThread, Tasks: []byte(`[10, 20, 1]`)}, parallel.WithPoolSize(2))
		require.NoError(t, err)
		assert.Equal(t, []string{"fib(10) = 55", "fib(20) = 6765", "fib(1) = 1"}, out.Lines)
		assert.Equal(t, 3, out.Report.TaskCount)
		assert.Equal(t, "fibonacci", out.Report.Workload)
	})

	t.Run("default tasks follow settings", func(t *testing.T) {
		r, err := Lookup("fibonacci")
		require.NoError(t, err)

		settings := DefaultSettings()
		settings.Copies = 3
		settings.FibonacciN = 15
		out, err := r.Run(ctx, Request{Kind: parallel.KindThread, Settings: settings})
		require.NoError(t, err)
		assert.Equal(t, []string{"fib(15) = 610", "fib(15) = 610", "fib(15) = 610"}, out.Lines)
	})

	t.Run("fetch against a local server", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		}))
		defer srv.Close()

		r, err := Lookup("fetch")
		require.NoError(t, err)
		settings := DefaultSettings()
		settings.URLs = []string{srv.URL + "/a", srv.URL + "/b"}

		out, err := r.Run(ctx, Request{Kind: parallel.KindThread, Settings: settings})
		require.NoError(t, err)
		assert.Equal(t, []string{
			fmt.Sprintf("Fetched %s/a with status 418", srv.URL),
			fmt.Sprintf("Fetched %s/b with status 418", srv.URL),
		}, out.Lines)
	})

	t.Run("invalid task file starts nothing", func(t *testing.T) {
		var tracker parallel.Tracker
		r, err := Lookup("matrix")
		require.NoError(t, err)

		_, err = r.Run(ctx, Request{Kind: parallel.KindThread, Tasks: []byte(`[{"size": -2}]`)}, parallel.WithHooks(tracker.Hooks()))
		var fileErr *TaskFileError
		require.ErrorAs(t, err, &fileErr)
		assert.Zero(t, tracker.Started())
	})

	t.Run("matrix in worker processes", func(t *testing.T) {
		if testing.Short() {
			t.Skip("spawns worker processes")
		}
		r, err := Lookup("matrix")
		require.NoError(t, err)

		tasks := []byte(`[{"size": 8, "rounds": 1, "seed": 1}, {"size": 8, "rounds": 1, "seed": 1}]`)
		out, err := r.Run(ctx, Request{Kind: parallel.KindProcess, Tasks: tasks}, parallel.WithPoolSize(2))
		require.NoError(t, err)
		require.Len(t, out.Lines, 2)
		assert.Equal(t, out.Lines[0], out.Lines[1])
		assert.Equal(t, "process-pool", out.Report.Strategy)
	})
}

func TestInstancePath(t *testing.T) {
	tests := map[string]string{
		"":              "",
		"#":             "",
		"/1":            "[1]",
		"/0/size":       "[0].size",
		"#/2/url":       "[2].url",
		"/a~1b/c~0d":    "a/b.c~d",
		"/0/nested/3/x": "[0].nested[3].x",
	}
	for ptr, want := range tests {
		assert.Equal(t, want, instancePath(ptr), ptr)
	}
}
