// Package logging builds console loggers and keeps the JSONL report log.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
)

// ConsoleOptions holds configuration for console logging.
type ConsoleOptions struct {
	Level           log.Level
	Formatter       log.Formatter
	ReportTimestamp bool
	ReportCaller    bool
	Prefix          string
}

// DefaultConsoleOptions returns default options for console logging.
func DefaultConsoleOptions() ConsoleOptions {
	return ConsoleOptions{
		Level:           log.InfoLevel,
		Formatter:       log.TextFormatter,
		ReportTimestamp: false,
		ReportCaller:    false,
		Prefix:          "fanout",
	}
}

// ParseConsoleOptions builds options from config strings. Empty values keep
// the defaults.
func ParseConsoleOptions(level, format string, timestamps, caller bool) (ConsoleOptions, error) {
	opts := DefaultConsoleOptions()
	opts.ReportTimestamp = timestamps
	opts.ReportCaller = caller

	if level != "" {
		lvl, err := log.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
		if err != nil {
			return opts, fmt.Errorf("log level %q: %w", level, err)
		}
		opts.Level = lvl
	}
	if format != "" {
		f, err := ParseFormatter(format)
		if err != nil {
			return opts, err
		}
		opts.Formatter = f
	}
	return opts, nil
}

// ParseFormatter maps a format name onto a charmbracelet/log formatter.
func ParseFormatter(name string) (log.Formatter, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "text", "":
		return log.TextFormatter, nil
	case "json":
		return log.JSONFormatter, nil
	case "logfmt":
		return log.LogfmtFormatter, nil
	default:
		return log.TextFormatter, fmt.Errorf("unknown log format %q (use text, json or logfmt)", name)
	}
}

// NewConsoleLogger creates a leveled console logger writing to w, or to
// stderr when w is nil.
func NewConsoleLogger(w io.Writer, opts ConsoleOptions) *log.Logger {
	if w == nil {
		w = os.Stderr
	}
	return log.NewWithOptions(w, log.Options{
		Level:           opts.Level,
		Formatter:       opts.Formatter,
		ReportTimestamp: opts.ReportTimestamp,
		ReportCaller:    opts.ReportCaller,
		Prefix:          opts.Prefix,
	})
}
