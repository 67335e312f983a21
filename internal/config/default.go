package config

import "time"

// Default configuration values.
const (
	DefaultBackend        = BackendBadger
	DefaultDataDir        = "data"
	DefaultGCInterval     = 10 * time.Minute
	DefaultConnectTimeout = 10 * time.Second

	DefaultResolution = time.Millisecond
	DefaultDropBurst  = 1
	DefaultInterval   = time.Hour

	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
)

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Storage: StorageSection{
			Backend:        DefaultBackend,
			DataDir:        DefaultDataDir,
			GCInterval:     DefaultGCInterval,
			ConnectTimeout: DefaultConnectTimeout,
		},
		Snapshot: SnapshotSection{
			Resolution: DefaultResolution,
			DropBurst:  DefaultDropBurst,
			Interval:   DefaultInterval,
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}
