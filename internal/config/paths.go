package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

var (
	projectConfigNames = []string{"fanout.toml", ".fanout.toml"}
	userConfigName     = filepath.Join("fanout", "fanout.toml")
)

// findProjectConfigFile returns the first project config file in the working
// directory, or "".
func findProjectConfigFile() string {
	return firstExisting(projectConfigNames...)
}

// findUserConfigFile prefers ~/.fanout/fanout.toml and falls back to the
// platform config directory (os.UserConfigDir).
func findUserConfigFile() string {
	var candidates []string
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".fanout", "fanout.toml"))
	}
	if dir, err := os.UserConfigDir(); err == nil {
		candidates = append(candidates, filepath.Join(dir, userConfigName))
	}
	return firstExisting(candidates...)
}

func firstExisting(paths ...string) string {
	for _, p := range paths {
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p
		}
	}
	return ""
}

// expandPath expands $VARS and a leading ~ (also ~\ on Windows).
func expandPath(p string) string {
	if p == "" {
		return p
	}
	p = os.ExpandEnv(p)

	rest, ok := strings.CutPrefix(p, "~")
	if !ok {
		return p
	}
	sepOK := rest == "" || rest[0] == '/' || (runtime.GOOS == "windows" && rest[0] == '\\')
	if !sepOK {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, rest)
}
