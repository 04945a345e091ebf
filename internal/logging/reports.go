package logging

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/nibzard/fanout/internal/parallel"
)

// ReportLog appends run reports as JSON lines to one file per invocation.
type ReportLog struct {
	Dir     string
	LogID   string
	LogPath string
	file    *os.File
}

// NewReportLog creates dir if needed and opens a fresh JSONL file in it.
func NewReportLog(dir string) (*ReportLog, error) {
	if dir == "" {
		return nil, errors.New("report dir is empty")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create report dir: %w", err)
	}

	id := logID()
	path := filepath.Join(dir, id+".jsonl")
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("create report log: %w", err)
	}
	return &ReportLog{Dir: dir, LogID: id, LogPath: path, file: file}, nil
}

// Append writes one report line.
func (r *ReportLog) Append(report parallel.Report) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	data = append(data, '\n')
	if _, err := r.file.Write(data); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// Close closes the log file.
func (r *ReportLog) Close() error {
	if r == nil || r.file == nil {
		return nil
	}
	return r.file.Close()
}

func logID() string {
	return fmt.Sprintf("%s-%d", time.Now().UTC().Format("20060102-150405"), os.Getpid())
}

// LogFile is one report log on disk.
type LogFile struct {
	Path    string
	ModTime time.Time
}

// ListLogs returns the report logs in dir, newest first. A missing dir
// yields no logs.
func ListLogs(dir string) ([]LogFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read report dir: %w", err)
	}

	var logs []LogFile
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".jsonl") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		logs = append(logs, LogFile{Path: filepath.Join(dir, entry.Name()), ModTime: info.ModTime()})
	}
	sort.Slice(logs, func(i, j int) bool {
		if logs[i].ModTime.Equal(logs[j].ModTime) {
			return logs[i].Path > logs[j].Path
		}
		return logs[i].ModTime.After(logs[j].ModTime)
	})
	return logs, nil
}

// FindLatestLog returns the newest report log in dir, or "" if there is none.
func FindLatestLog(dir string) (string, error) {
	logs, err := ListLogs(dir)
	if err != nil || len(logs) == 0 {
		return "", err
	}
	return logs[0].Path, nil
}

// ReadReports decodes every report in a log file. Lines that are not
// reports are skipped.
func ReadReports(path string) ([]parallel.Report, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open report log: %w", err)
	}
	defer file.Close()

	var reports []parallel.Report
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var r parallel.Report
		if err := json.Unmarshal([]byte(line), &r); err != nil || r.Strategy == "" {
			continue
		}
		reports = append(reports, r)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read report log: %w", err)
	}
	return reports, nil
}

// LatestReports returns up to n of the most recent reports across all logs
// in dir, oldest first. n <= 0 means all of them.
func LatestReports(dir string, n int) ([]parallel.Report, error) {
	logs, err := ListLogs(dir)
	if err != nil {
		return nil, err
	}

	var collected []parallel.Report
	for _, lf := range logs {
		reports, err := ReadReports(lf.Path)
		if err != nil {
			return nil, err
		}
		collected = append(reports, collected...)
		if n > 0 && len(collected) >= n {
			break
		}
	}
	if n > 0 && len(collected) > n {
		collected = collected[len(collected)-n:]
	}
	return collected, nil
}

// TailLog copies the last n lines of a log file to w and, with follow,
// keeps copying new lines until ctx is done.
func TailLog(ctx context.Context, w io.Writer, path string, n int, follow bool) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	if n > 0 {
		if err := tailSeek(file, n); err != nil {
			return fmt.Errorf("seek to tail position: %w", err)
		}
	}
	if _, err := io.Copy(w, file); err != nil {
		return err
	}
	if !follow {
		return nil
	}

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := io.Copy(w, file); err != nil {
				return err
			}
		}
	}
}

// tailSeek positions file at the start of its last n lines.
func tailSeek(file *os.File, n int) error {
	const chunk = 4096

	stat, err := file.Stat()
	if err != nil {
		return err
	}
	size := stat.Size()

	// Ignore a trailing newline so it does not count as an empty line.
	end := size
	if end > 0 {
		last := make([]byte, 1)
		if _, err := file.ReadAt(last, end-1); err != nil {
			return err
		}
		if last[0] == '\n' {
			end--
		}
	}

	buf := make([]byte, chunk)
	lines := 0
	for pos := end; pos > 0; {
		size := int64(chunk)
		if pos < size {
			size = pos
		}
		pos -= size
		if _, err := file.ReadAt(buf[:size], pos); err != nil {
			return err
		}
		for i := size - 1; i >= 0; i-- {
			if buf[i] != '\n' {
				continue
			}
			lines++
			if lines == n {
				_, err := file.Seek(pos+i+1, io.SeekStart)
				return err
			}
		}
	}
	_, err = file.Seek(0, io.SeekStart)
	return err
}
