package config

import (
	"os"
	"path/filepath"
	"strings"
)

// EnvHome overrides the base directory relative runtime paths resolve against.
const EnvHome = "HELLORUN_HOME"

// baseDir is $HELLORUN_HOME, else the executable's directory. Binaries built by
// `go run` live under the temp dir, so those resolve against the working directory.
func baseDir(getenv func(string) string) string {
	if home := strings.TrimSpace(getenv(EnvHome)); home != "" {
		return filepath.Clean(home)
	}
	if exe, err := os.Executable(); err == nil {
		if resolved, err := filepath.EvalSymlinks(exe); err == nil {
			exe = resolved
		}
		dir := filepath.Dir(exe)
		if !strings.HasPrefix(dir, filepath.Clean(os.TempDir())+string(filepath.Separator)) {
			return dir
		}
	}
	if wd, err := os.Getwd(); err == nil {
		return wd
	}
	return "."
}

func resolveRuntimePath(raw, fallback string, getenv func(string) string) string {
	target := firstNonEmpty(raw, fallback)
	if target == "" {
		return baseDir(getenv)
	}
	if filepath.IsAbs(target) {
		return filepath.Clean(target)
	}
	return filepath.Join(baseDir(getenv), target)
}

// LogDir resolves paths.logs (default "logs") against the base directory.
func (c *AppConfig) LogDir() string {
	return resolveRuntimePath(c.Paths.Logs, defaultLogsDir, os.Getenv)
}
