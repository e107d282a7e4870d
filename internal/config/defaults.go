package config

const (
	defaultCacheDir             = "~/.cache/audiocache/tracks"
	defaultLogDir               = "~/.local/share/audiocache/logs"
	defaultRetentionDays        = 10
	defaultHighWaterMiB         = 2048
	defaultLowWaterMiB          = 1536
	defaultSweepIntervalSeconds = 300
	defaultStallTimeoutSeconds  = 30
	defaultProgressIntervalMS   = 250
	defaultUserAgent            = "audiocache/dev"
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			CacheDir: defaultCacheDir,
			LogDir:   defaultLogDir,
		},
		Cache: Cache{
			RetentionDays:        defaultRetentionDays,
			HighWaterMiB:         defaultHighWaterMiB,
			LowWaterMiB:          defaultLowWaterMiB,
			SweepIntervalSeconds: defaultSweepIntervalSeconds,
		},
		Download: Download{
			StallTimeoutSeconds: defaultStallTimeoutSeconds,
			ProgressIntervalMS:  defaultProgressIntervalMS,
			UserAgent:           defaultUserAgent,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
