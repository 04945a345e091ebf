package workloads

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/nibzard/fanout/internal/parallel"
)

// DefaultFetchTimeout bounds each request of the default fetch tasks.
const DefaultFetchTimeout = 10 * time.Second

// DefaultURLs are fetched when no task file is given.
var DefaultURLs = []string{
	"http://example.com",
	"http://example.org",
	"http://example.net",
	"http://example.edu",
	"http://google.com",
	"http://bing.com",
	"http://yahoo.com",
	"http://ir.baidu.com",
}

// FetchTask is one GET request. In task files it may be written as a bare
// URL string or as an object.
type FetchTask struct {
	URL       string `json:"url"`
	TimeoutMS int    `json:"timeout_ms,omitempty"`
}

// UnmarshalJSON accepts either "http://..." or {"url": "http://...", ...}.
func (t *FetchTask) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		*t = FetchTask{}
		return json.Unmarshal(data, &t.URL)
	}
	type plain FetchTask
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*t = FetchTask(p)
	return nil
}

// FetchResult is the outcome of one request. Any HTTP status counts as
// success; only transport failures fail the task.
type FetchResult struct {
	URL    string `json:"url"`
	Status int    `json:"status"`
}

var httpClient = &http.Client{}

// Fetch performs one GET per task and returns the status code.
var Fetch = parallel.Workload[FetchTask, FetchResult]{
	Name: "fetch",
	Fn:   fetch,
}

func fetch(ctx context.Context, task FetchTask) (FetchResult, error) {
	if task.URL == "" {
		return FetchResult{}, errors.New("fetch task has no url")
	}
	if task.TimeoutMS > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(task.TimeoutMS)*time.Millisecond)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, task.URL, nil)
	if err != nil {
		return FetchResult{}, fmt.Errorf("build request: %w", err)
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return FetchResult{}, fmt.Errorf("get %s: %w", task.URL, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	return FetchResult{URL: task.URL, Status: resp.StatusCode}, nil
}

// FetchTasks builds one task per URL.
func FetchTasks(urls []string, timeout time.Duration) []FetchTask {
	tasks := make([]FetchTask, len(urls))
	for i, u := range urls {
		tasks[i] = FetchTask{URL: u, TimeoutMS: int(timeout / time.Millisecond)}
	}
	return tasks
}
