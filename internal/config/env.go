package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

)

// loadFromEnv overrides config from FANOUT_* environment variables.
func loadFromEnv(cfg *Config, sources map[string]Source) error {
	str := func(env, key string, target *string) {
		if v := os.Getenv(env); v != "" {
			*target = v
			sources[key] = SourceEnv
		}
	}
	num := func(env, key string, target *int) error {
		v := os.Getenv(env)
		if v == "" {
			return nil
		}
		i, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %w", env, err)
		}
		*target = i
		sources[key] = SourceEnv
		return nil
	}
	dur := func(env, key string, target *Duration) error {
		v := os.Getenv(env)
		if v == "" {
			return nil
		}
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %w", env, err)
		}
		target.Duration = d
		sources[key] = SourceEnv
		return nil
	}
	boolean := func(env, key string, target *bool) {
		if v := os.Getenv(env); v != "" {
			*target = boolFromString(v)
			sources[key] = SourceEnv
		}
	}

	str("FANOUT_STRATEGY", "strategy", &cfg.Strategy)
	str("FANOUT_WORKLOAD", "workload", &cfg.Workload)
	str("FANOUT_TASKS", "tasks_file", &cfg.TasksFile)
	str("FANOUT_REPORT_DIR", "report_dir", &cfg.ReportDir)
	str("FANOUT_METRICS_FILE", "metrics_file", &cfg.MetricsFile)
	str("FANOUT_LOG_LEVEL", "log_level", &cfg.LogLevel)
	str("FANOUT_LOG_FORMAT", "log_format", &cfg.LogFormat)
	boolean("FANOUT_LOG_TIMESTAMPS", "log_timestamps", &cfg.LogTimestamps)
	boolean("FANOUT_LOG_CALLER", "log_caller", &cfg.LogCaller)

	for _, err := range []error{
		num("FANOUT_POOL_SIZE", "pool_size", &cfg.PoolSize),
		num("FANOUT_COPIES", "copies", &cfg.Copies),
		num("FANOUT_FIB_N", "fibonacci.n", &cfg.Fibonacci.N),
		num("FANOUT_MATRIX_SIZE", "matrix.size", &cfg.Matrix.Size),
		num("FANOUT_MATRIX_ROUNDS", "matrix.rounds", &cfg.Matrix.Rounds),
		dur("FANOUT_TIMEOUT", "timeout", &cfg.Timeout),
		dur("FANOUT_FETCH_TIMEOUT", "fetch.timeout", &cfg.Fetch.Timeout),
	} {
		if err != nil {
			return err
		}
	}

	if v := os.Getenv("FANOUT_URLS"); v != "" {
		cfg.Fetch.URLs = splitList(v)
		sources["fetch.urls"] = SourceEnv
	}
	return nil
}

func boolFromString(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// splitList splits a comma-separated value, dropping blank entries.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
