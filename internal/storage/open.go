package storage

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/yndnr/collsnap/internal/config"
	"github.com/yndnr/collsnap/pkg/docstore"
	"github.com/yndnr/collsnap/pkg/docstore/badgerstore"
	"github.com/yndnr/collsnap/pkg/docstore/memory"
	"github.com/yndnr/collsnap/pkg/docstore/mongostore"
	"github.com/yndnr/collsnap/pkg/docstore/sqlitestore"
	"github.com/yndnr/collsnap/pkg/snapshot"
)

// SQLiteFile is the database file name used under data_dir when no DSN is
// given.
const SQLiteFile = "collsnap.db"

// Open opens the store described by s.
func Open(ctx context.Context, s config.StorageSection, logger *slog.Logger) (docstore.Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch strings.ToLower(s.Backend) {
	case config.BackendMemory:
		return memory.New(), nil

	case config.BackendBadger:
		cfg := badgerstore.DefaultConfig(s.DataDir)
		cfg.SyncWrites = s.SyncWrites
		if s.GCInterval > 0 {
			cfg.GCInterval = s.GCInterval
		}
		st, err := badgerstore.Open(cfg, logger)
		if err != nil {
			return nil, err
		}
		return st, nil

	case config.BackendSQLite:
		path := s.DSN
		if path == "" {
			path = filepath.Join(s.DataDir, SQLiteFile)
		}
		st, err := sqlitestore.Open(path)
		if err != nil {
			return nil, err
		}
		return st, nil

	case config.BackendMongo:
		st, err := mongostore.Open(ctx, mongostore.Config{
			URI:            s.DSN,
			Database:       s.Database,
			ConnectTimeout: s.ConnectTimeout,
		}, logger)
		if err != nil {
			return nil, err
		}
		return st, nil
	}
	return nil, fmt.Errorf("storage: unknown backend %q", s.Backend)
}

// Routes returns a router sending each base name in routes to its own
// store and everything else to def. The caller closes the router.
func Routes(def docstore.Store, routes map[string]config.StorageSection, logger *slog.Logger) *snapshot.MapRouter {
	if logger == nil {
		logger = slog.Default()
	}
	r := snapshot.NewMapRouter(snapshot.Static(def))
	for base, section := range routes {
		section := section
		r.Override(base, func(ctx context.Context) (docstore.Store, error) {
			return Open(ctx, section, logger.With("route", base))
		})
	}
	return r
}
