package config

import "strings"

// normalize expands paths and canonicalizes string fields in place.
func (c *Config) normalize() error {
	var err error
	if c.Paths.CacheDir, err = expandPath(strings.TrimSpace(c.Paths.CacheDir)); err != nil {
		return err
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return err
	}

	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}

	c.Download.UserAgent = strings.TrimSpace(c.Download.UserAgent)
	if c.Download.UserAgent == "" {
		c.Download.UserAgent = defaultUserAgent
	}

	if c.Cache.SweepIntervalSeconds <= 0 {
		c.Cache.SweepIntervalSeconds = defaultSweepIntervalSeconds
	}
	if c.Download.StallTimeoutSeconds <= 0 {
		c.Download.StallTimeoutSeconds = defaultStallTimeoutSeconds
	}
	if c.Download.ProgressIntervalMS <= 0 {
		c.Download.ProgressIntervalMS = defaultProgressIntervalMS
	}

	return nil
}
