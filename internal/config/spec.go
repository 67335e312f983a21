package config

import "time"

// Backend names.
const (
	BackendMemory = "memory"
	BackendBadger = "badger"
	BackendSQLite = "sqlite"
	BackendMongo  = "mongo"
)

// Config is the root configuration.
type Config struct {
	Storage  StorageSection            `koanf:"storage" yaml:"storage" json:"storage"`
	Routes   map[string]StorageSection `koanf:"routes" yaml:"routes,omitempty" json:"routes,omitempty"`
	Snapshot SnapshotSection           `koanf:"snapshot" yaml:"snapshot" json:"snapshot"`
	Log      LogSection                `koanf:"log" yaml:"log" json:"log"`
	Metrics  MetricsSection            `koanf:"metrics" yaml:"metrics" json:"metrics"`
}

// StorageSection selects and configures a document store.
type StorageSection struct {
	// Backend is one of memory, badger, sqlite, mongo.
	Backend string `koanf:"backend" yaml:"backend" json:"backend"`

	// DataDir holds badger files, and the sqlite file when DSN is empty.
	DataDir string `koanf:"data_dir" yaml:"data_dir,omitempty" json:"data_dir,omitempty"`

	// DSN is the sqlite file path or the MongoDB connection URI.
	DSN string `koanf:"dsn" yaml:"dsn,omitempty" json:"dsn,omitempty"`

	// Database is the MongoDB database name.
	Database string `koanf:"database" yaml:"database,omitempty" json:"database,omitempty"`

	SyncWrites     bool          `koanf:"sync_writes" yaml:"sync_writes,omitempty" json:"sync_writes,omitempty"`
	GCInterval     time.Duration `koanf:"gc_interval" yaml:"gc_interval,omitempty" json:"gc_interval,omitempty"`
	ConnectTimeout time.Duration `koanf:"connect_timeout" yaml:"connect_timeout,omitempty" json:"connect_timeout,omitempty"`
}

// SnapshotSection configures lifecycle behavior shared by all kinds.
type SnapshotSection struct {
	// RetentionLimit overrides the per-kind limit when positive.
	RetentionLimit int `koanf:"retention_limit" yaml:"retention_limit" json:"retention_limit"`

	// Resolution truncates record creation timestamps.
	Resolution time.Duration `koanf:"resolution" yaml:"resolution" json:"resolution"`

	// DropRate limits collection drops per second; zero means unlimited.
	DropRate  float64 `koanf:"drop_rate" yaml:"drop_rate" json:"drop_rate"`
	DropBurst int     `koanf:"drop_burst" yaml:"drop_burst" json:"drop_burst"`

	// Interval is the default period of `collsnap schedule`.
	Interval time.Duration `koanf:"interval" yaml:"interval" json:"interval"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level" yaml:"level" json:"level"`
	Format string `koanf:"format" yaml:"format" json:"format"`
}

// MetricsSection configures the Prometheus endpoint.
type MetricsSection struct {
	// Addr serves /metrics while `collsnap schedule` runs. Empty disables.
	Addr string `koanf:"addr" yaml:"addr" json:"addr"`
}
