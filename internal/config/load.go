package config

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// WithSources holds configuration along with the source of each key.
type WithSources struct {
	Config  *Config
	Sources map[string]Source
	// Files lists the config files that were read, lowest priority first.
	Files []string
}

// Load loads configuration from multiple sources in priority order:
// 1. Defaults
// 2. User config file (~/.fanout/fanout.toml or OS-specific config dir)
// 3. Project config file (fanout.toml or .fanout.toml in current directory)
// 4. Environment variables
// 5. CLI flags
func Load(fs *flag.FlagSet, args []string) (*Config, error) {
	ws, err := LoadWithSources(fs, args)
	if err != nil {
		return nil, err
	}
	return ws.Config, nil
}

// LoadWithSources loads configuration and tracks the source of each key.
func LoadWithSources(fs *flag.FlagSet, args []string) (*WithSources, error) {
	cfg := &Config{}
	ws := &WithSources{Config: cfg, Sources: make(map[string]Source)}

	// 1. Set defaults
	setDefaults(cfg)
	for _, key := range Keys() {
		ws.Sources[key] = SourceDefault
	}

	// 2. Try to load from user config file
	if path := findUserConfigFile(); path != "" {
		if err := loadConfigFile(cfg, path, ws.Sources, SourceUserFile); err != nil {
			return nil, fmt.Errorf("loading user config file %s: %w", path, err)
		}
		ws.Files = append(ws.Files, path)
	}

	// 3. Try to load from project config file (overrides user config)
	if path := findProjectConfigFile(); path != "" {
		if err := loadConfigFile(cfg, path, ws.Sources, SourceProjFile); err != nil {
			return nil, fmt.Errorf("loading project config file %s: %w", path, err)
		}
		ws.Files = append(ws.Files, path)
	}

	// 4. Override from environment
	if err := loadFromEnv(cfg, ws.Sources); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}

	// 5. Parse CLI flags (they override everything)
	if err := parseFlags(cfg, fs, args, ws.Sources); err != nil {
		return nil, fmt.Errorf("parsing flags: %w", err)
	}

	// 6. Compute derived values
	if err := finalizeConfig(cfg); err != nil {
		return nil, fmt.Errorf("finalizing config: %w", err)
	}
	return ws, nil
}

// Keys returns the configurable keys in display order.
func Keys() []string {
	return []string{
		"strategy",
		"workload",
		"pool_size",
		"timeout",
		"tasks_file",
		"copies",
		"report_dir",
		"metrics_file",
		"log_level",
		"log_format",
		"log_timestamps",
		"log_caller",
		"fibonacci.n",
		"matrix.size",
		"matrix.rounds",
		"fetch.urls",
		"fetch.timeout",
	}
}

// setDefaults applies default values to the config.
func setDefaults(cfg *Config) {
	cfg.Strategy = DefaultStrategy
	cfg.Workload = DefaultWorkload
	cfg.ReportDir = DefaultReportDir
	cfg.LogLevel = DefaultLogLevel
	cfg.LogFormat = DefaultLogFormat
	cfg.Fibonacci.N = DefaultFibonacciN
	cfg.Matrix.Size = DefaultMatrixSize
	cfg.Matrix.Rounds = DefaultMatrixRounds
	cfg.Fetch.Timeout = Duration{DefaultFetchTimeout}
}

// loadConfigFile decodes a TOML file over cfg and records which keys it set.
func loadConfigFile(cfg *Config, path string, sources map[string]Source, source Source) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("unknown key %q", undecoded[0].String())
	}
	for _, key := range md.Keys() {
		if _, known := sources[key.String()]; known {
			sources[key.String()] = source
		}
	}
	return nil
}

// finalizeConfig computes derived values and validates paths.
func finalizeConfig(cfg *Config) error {
	// Expand ~ in paths
	cfg.ReportDir = expandPath(cfg.ReportDir)
	cfg.MetricsFile = expandPath(cfg.MetricsFile)
	cfg.TasksFile = expandPath(cfg.TasksFile)

	if cfg.ProjectRoot == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("getting working directory: %w", err)
		}
		cfg.ProjectRoot = wd
	}

	// Make paths absolute if they're relative
	if cfg.TasksFile != "" && !filepath.IsAbs(cfg.TasksFile) {
		cfg.TasksFile = filepath.Join(cfg.ProjectRoot, cfg.TasksFile)
	}
	if cfg.MetricsFile != "" && !filepath.IsAbs(cfg.MetricsFile) {
		cfg.MetricsFile = filepath.Join(cfg.ProjectRoot, cfg.MetricsFile)
	}
	return cfg.Validate()
}
