package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks the configuration for values the cache cannot run with.
func (c *Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.Paths.CacheDir) == "" {
		problems = append(problems, "paths.cache_dir must be set")
	}
	if c.Cache.RetentionDays <= 0 {
		problems = append(problems, "cache.retention_days must be positive")
	}
	if c.Cache.HighWaterMiB <= 0 {
		problems = append(problems, "cache.high_water_mib must be positive")
	}
	if c.Cache.LowWaterMiB <= 0 {
		problems = append(problems, "cache.low_water_mib must be positive")
	}
	if c.Cache.LowWaterMiB > c.Cache.HighWaterMiB {
		problems = append(problems, "cache.low_water_mib must not exceed cache.high_water_mib")
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		problems = append(problems, fmt.Sprintf("logging.format %q is not one of console, json", c.Logging.Format))
	}

	if len(problems) > 0 {
		return errors.New("invalid configuration: " + strings.Join(problems, "; "))
	}
	return nil
}
