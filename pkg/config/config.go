package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds every tunable Chronicle reads at startup. It is built once
// by Load and passed down explicitly; nothing in this module reaches for a
// package-level global.
type Config struct {
	DataDir string

	LogLevel  string
	LogJSON   bool

	ProcessPollInterval       time.Duration
	ShellHistoryPollInterval  time.Duration
	BrowserPollInterval       time.Duration
	ActivityWindow            time.Duration

	WatchPaths []string

	ChromeHistoryPath  string
	FirefoxHistoryPath string
}

// fileOverrides is the optional config.yaml layered under env vars.
type fileOverrides struct {
	DataDir                  string   `yaml:"data_dir"`
	LogLevel                 string   `yaml:"log_level"`
	LogJSON                  *bool    `yaml:"log_json"`
	ProcessPollIntervalSec   int      `yaml:"process_poll_interval_seconds"`
	ShellHistoryPollInterval int      `yaml:"shell_history_poll_interval_seconds"`
	BrowserPollInterval      int      `yaml:"browser_poll_interval_seconds"`
	ActivityWindowMinutes    int      `yaml:"activity_window_minutes"`
	WatchPaths               []string `yaml:"watch_paths"`
	ChromeHistoryPath        string   `yaml:"chrome_history_path"`
	FirefoxHistoryPath       string   `yaml:"firefox_history_path"`
}

// Load builds a Config from platform defaults, an optional config.yaml in
// the data directory, and CHRONICLE_-prefixed environment variables, in
// that order of increasing precedence.
func Load() (*Config, error) {
	cfg := defaults()

	if yamlPath := filepath.Join(cfg.DataDir, "config.yaml"); fileExists(yamlPath) {
		if err := applyFile(cfg, yamlPath); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	applyEnv(cfg)

	return cfg, nil
}

func defaults() *Config {
	home, _ := os.UserHomeDir()

	return &Config{
		DataDir:                  defaultDataDir(home),
		LogLevel:                 "info",
		LogJSON:                  true,
		ProcessPollInterval:      30 * time.Second,
		ShellHistoryPollInterval: 60 * time.Second,
		BrowserPollInterval:      300 * time.Second,
		ActivityWindow:           15 * time.Minute,
		WatchPaths:               defaultWatchPaths(home),
		ChromeHistoryPath:        defaultChromeHistoryPath(home),
		FirefoxHistoryPath:       defaultFirefoxHistoryPath(home),
	}
}

func defaultDataDir(home string) string {
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "chronicle")
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "chronicle")
		}
		return filepath.Join(home, "chronicle")
	default:
		return filepath.Join(home, ".chronicle")
	}
}

func defaultWatchPaths(home string) []string {
	paths := []string{home}
	for _, sub := range []string{"Documents", "Projects", "Code", "Development", "src"} {
		p := filepath.Join(home, sub)
		if fileExists(p) {
			paths = append(paths, p)
		}
	}
	return paths
}

func defaultChromeHistoryPath(home string) string {
	var p string
	switch runtime.GOOS {
	case "darwin":
		p = filepath.Join(home, "Library", "Application Support", "Google", "Chrome", "Default", "History")
	case "windows":
		local := os.Getenv("LOCALAPPDATA")
		if local == "" {
			local = filepath.Join(home, "AppData", "Local")
		}
		p = filepath.Join(local, "Google", "Chrome", "User Data", "Default", "History")
	default:
		p = filepath.Join(home, ".config", "google-chrome", "Default", "History")
	}
	if fileExists(p) {
		return p
	}
	return ""
}

func defaultFirefoxHistoryPath(home string) string {
	var profilesDir string
	switch runtime.GOOS {
	case "darwin":
		profilesDir = filepath.Join(home, "Library", "Application Support", "Firefox", "Profiles")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			appData = filepath.Join(home, "AppData", "Roaming")
		}
		profilesDir = filepath.Join(appData, "Mozilla", "Firefox", "Profiles")
	default:
		profilesDir = filepath.Join(home, ".mozilla", "firefox")
	}

	entries, err := os.ReadDir(profilesDir)
	if err != nil {
		return ""
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		places := filepath.Join(profilesDir, e.Name(), "places.sqlite")
		if fileExists(places) {
			return places
		}
	}
	return ""
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

func applyFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var f fileOverrides
	if err := yaml.Unmarshal(data, &f); err != nil {
		return err
	}

	if f.DataDir != "" {
		cfg.DataDir = expand(f.DataDir)
	}
	if f.LogLevel != "" {
		cfg.LogLevel = f.LogLevel
	}
	if f.LogJSON != nil {
		cfg.LogJSON = *f.LogJSON
	}
	if f.ProcessPollIntervalSec > 0 {
		cfg.ProcessPollInterval = time.Duration(f.ProcessPollIntervalSec) * time.Second
	}
	if f.ShellHistoryPollInterval > 0 {
		cfg.ShellHistoryPollInterval = time.Duration(f.ShellHistoryPollInterval) * time.Second
	}
	if f.BrowserPollInterval > 0 {
		cfg.BrowserPollInterval = time.Duration(f.BrowserPollInterval) * time.Second
	}
	if f.ActivityWindowMinutes > 0 {
		cfg.ActivityWindow = time.Duration(f.ActivityWindowMinutes) * time.Minute
	}
	if len(f.WatchPaths) > 0 {
		cfg.WatchPaths = f.WatchPaths
	}
	if f.ChromeHistoryPath != "" {
		cfg.ChromeHistoryPath = expand(f.ChromeHistoryPath)
	}
	if f.FirefoxHistoryPath != "" {
		cfg.FirefoxHistoryPath = expand(f.FirefoxHistoryPath)
	}
	return nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("CHRONICLE_DATA_DIR"); v != "" {
		cfg.DataDir = expand(v)
	}
	if v := os.Getenv("CHRONICLE_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("CHRONICLE_PROCESS_POLL_INTERVAL"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.ProcessPollInterval = time.Duration(n) * time.Second
		}
	}
	if v := os.Getenv("CHRONICLE_SHELL_HISTORY_POLL_INTERVAL"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.ShellHistoryPollInterval = time.Duration(n) * time.Second
		}
	}
	if v := os.Getenv("CHRONICLE_BROWSER_POLL_INTERVAL"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.BrowserPollInterval = time.Duration(n) * time.Second
		}
	}
	if v := os.Getenv("CHRONICLE_ACTIVITY_WINDOW_MINUTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.ActivityWindow = time.Duration(n) * time.Minute
		}
	}
	if v := os.Getenv("CHRONICLE_WATCH_PATHS"); v != "" {
		parts := strings.Split(v, ",")
		paths := make([]string, 0, len(parts))
		for _, p := range parts {
			paths = append(paths, expand(strings.TrimSpace(p)))
		}
		cfg.WatchPaths = paths
	}
	if v := os.Getenv("CHRONICLE_CHROME_HISTORY_PATH"); v != "" {
		cfg.ChromeHistoryPath = expand(v)
	}
	if v := os.Getenv("CHRONICLE_FIREFOX_HISTORY_PATH"); v != "" {
		cfg.FirefoxHistoryPath = expand(v)
	}
}

func expand(path string) string {
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}

// EnsureDataDir creates the data directory if it doesn't exist.
func (c *Config) EnsureDataDir() error {
	return os.MkdirAll(c.DataDir, 0o755)
}

// DatabasePath is the path to the event store's SQLite file.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "events.db")
}

// GraphPath is the path to the activity graph's bbolt file.
func (c *Config) GraphPath() string {
	return filepath.Join(c.DataDir, "activity_graph.bolt")
}

// LogPath is the path to the daemon's log file.
func (c *Config) LogPath() string {
	return filepath.Join(c.DataDir, "chronicle.log")
}

// PIDFilePath is the path to the daemon's PID file.
func (c *Config) PIDFilePath() string {
	return filepath.Join(c.DataDir, "chronicle.pid")
}

// ShellHistoryPaths returns the shell history files that exist on this
// machine, keyed by shell name.
func (c *Config) ShellHistoryPaths() map[string]string {
	home, _ := os.UserHomeDir()
	paths := map[string]string{}

	bash := filepath.Join(home, ".bash_history")
	if fileExists(bash) {
		paths["bash"] = bash
	}
	zsh := filepath.Join(home, ".zsh_history")
	if fileExists(zsh) {
		paths["zsh"] = zsh
	}
	return paths
}
