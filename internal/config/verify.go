package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yndnr/collsnap/internal/telemetry/logger"
	"github.com/yndnr/collsnap/pkg/naming"
)

// Verify validates the configuration and reports every problem found.
func Verify(cfg *Config) error {
	var errs []error
	errs = append(errs, verifyStorage("storage", &cfg.Storage)...)
	for base, route := range cfg.Routes {
		if !naming.ValidSegment(base) {
			errs = append(errs, fmt.Errorf("routes: base name %q must be non-empty and contain no %q", base, naming.Separator))
		}
		errs = append(errs, verifyStorage("routes."+base, &route)...)
	}
	errs = append(errs, verifySnapshot(&cfg.Snapshot)...)
	errs = append(errs, verifyLog(&cfg.Log)...)
	return errors.Join(errs...)
}

func verifyStorage(path string, s *StorageSection) []error {
	var errs []error
	switch strings.ToLower(s.Backend) {
	case BackendMemory:
	case BackendBadger:
		if s.DataDir == "" {
			errs = append(errs, fmt.Errorf("%s.data_dir is required for badger", path))
		}
	case BackendSQLite:
		if s.DSN == "" && s.DataDir == "" {
			errs = append(errs, fmt.Errorf("%s: sqlite needs dsn or data_dir", path))
		}
	case BackendMongo:
		if s.DSN == "" {
			errs = append(errs, fmt.Errorf("%s.dsn is required for mongo", path))
		}
		if s.Database == "" {
			errs = append(errs, fmt.Errorf("%s.database is required for mongo", path))
		}
	default:
		errs = append(errs, fmt.Errorf("%s.backend %q is not one of memory, badger, sqlite, mongo", path, s.Backend))
	}
	if s.GCInterval < 0 || s.ConnectTimeout < 0 {
		errs = append(errs, fmt.Errorf("%s: durations must not be negative", path))
	}
	return errs
}

func verifySnapshot(s *SnapshotSection) []error {
	var errs []error
	if s.RetentionLimit < 0 {
		errs = append(errs, errors.New("snapshot.retention_limit must not be negative"))
	}
	if s.Resolution < time.Millisecond {
		errs = append(errs, errors.New("snapshot.resolution must be at least 1ms"))
	}
	if s.DropRate < 0 {
		errs = append(errs, errors.New("snapshot.drop_rate must not be negative"))
	}
	if s.DropRate > 0 && s.DropBurst < 1 {
		errs = append(errs, errors.New("snapshot.drop_burst must be at least 1 when drop_rate is set"))
	}
	if s.Interval < 0 {
		errs = append(errs, errors.New("snapshot.interval must not be negative"))
	}
	return errs
}

func verifyLog(l *LogSection) []error {
	var errs []error
	if _, err := logger.ParseLevel(l.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	switch strings.ToLower(l.Format) {
	case "", "text", "console", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format %q is not text or json", l.Format))
	}
	return errs
}
