package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	CacheDir string `toml:"cache_dir"`
	LogDir   string `toml:"log_dir"`
}

// Cache contains retention and eviction configuration.
type Cache struct {
	RetentionDays        int `toml:"retention_days"`
	HighWaterMiB         int `toml:"high_water_mib"`
	LowWaterMiB          int `toml:"low_water_mib"`
	SweepIntervalSeconds int `toml:"sweep_interval_seconds"`
}

// Download contains transfer timing configuration.
type Download struct {
	StallTimeoutSeconds int    `toml:"stall_timeout_seconds"`
	ProgressIntervalMS  int    `toml:"progress_interval_ms"`
	UserAgent           string `toml:"user_agent"`
}

// Logging contains log output configuration.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for audiocache.
type Config struct {
	Paths    Paths    `toml:"paths"`
	Cache    Cache    `toml:"cache"`
	Download Download `toml:"download"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration
// file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/audiocache/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized. The second return is
// the resolved path and the third reports whether the file existed.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	return defaultPath, false, nil
}

// EnsureDirectories creates the cache and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.CacheDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// HighWaterBytes returns the eviction trigger threshold in bytes.
func (c *Config) HighWaterBytes() int64 {
	return int64(c.Cache.HighWaterMiB) * 1024 * 1024
}

// LowWaterBytes returns the eviction target threshold in bytes.
func (c *Config) LowWaterBytes() int64 {
	return int64(c.Cache.LowWaterMiB) * 1024 * 1024
}

// RetentionAge returns the TTL window as a duration.
func (c *Config) RetentionAge() time.Duration {
	return time.Duration(c.Cache.RetentionDays) * 24 * time.Hour
}

// SweepInterval returns the cadence of background eviction sweeps.
func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.Cache.SweepIntervalSeconds) * time.Second
}

// StallTimeout returns how long a transfer may make no forward progress
// before it is auto-cancelled.
func (c *Config) StallTimeout() time.Duration {
	return time.Duration(c.Download.StallTimeoutSeconds) * time.Second
}

// ProgressInterval returns the minimum spacing between progress callbacks.
func (c *Config) ProgressInterval() time.Duration {
	return time.Duration(c.Download.ProgressIntervalMS) * time.Millisecond
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
