// Package badgerstore is an embedded docstore backend on Badger v3.
//
// Key layout:
//
//	c/<collection>            catalog entry, present while the collection exists
//	d/<collection>\x00<id>    JSON-encoded document
//
// Generated ids are ULIDs, so a prefix scan returns documents in insertion
// order.
package badgerstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/yndnr/collsnap/pkg/docstore"
	"github.com/yndnr/collsnap/pkg/errcode"
)

const (
	catalogPrefix = "c/"
	docPrefix     = "d/"
	keySep        = "\x00"

	conflictRetries = 5
)

// Config configures the Badger backend.
type Config struct {
	Dir         string
	InMemory    bool
	SyncWrites  bool
	CacheSize   int64
	GCInterval  time.Duration
	GCThreshold float64
}

// DefaultConfig returns the defaults for dir.
func DefaultConfig(dir string) Config {
	return Config{
		Dir:         dir,
		CacheSize:   64 << 20,
		GCInterval:  10 * time.Minute,
		GCThreshold: 0.5,
	}
}

// Store is a Badger-backed docstore.Store.
type Store struct {
	db     *badger.DB
	cfg    Config
	logger *slog.Logger

	lastGC      atomic.Int64 // unix ms
	gcRuns      atomic.Uint64
	metricsSize *prometheus.GaugeVec

	stopCh    chan struct{}
	doneCh    chan struct{}
	closeOnce sync.Once
	closeErr  error
}

// Open opens (or creates) the database described by cfg.
func Open(cfg Config, logger *slog.Logger) (*Store, error) {
	if cfg.Dir == "" && !cfg.InMemory {
		return nil, fmt.Errorf("badgerstore: dir is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.GCInterval <= 0 {
		cfg.GCInterval = 10 * time.Minute
	}
	if cfg.GCThreshold <= 0 || cfg.GCThreshold >= 1 {
		cfg.GCThreshold = 0.5
	}

	opts := badger.DefaultOptions(cfg.Dir)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.Logger = &badgerLogger{logger: logger}
	opts.SyncWrites = cfg.SyncWrites
	if cfg.CacheSize > 0 {
		opts.BlockCacheSize = cfg.CacheSize
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badgerstore: open db: %w", err)
	}

	s := &Store{
		db:     db,
		cfg:    cfg,
		logger: logger,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
	go s.gcLoop()

	logger.Info("badger store opened", "dir", cfg.Dir, "in_memory", cfg.InMemory, "gc_interval", cfg.GCInterval)
	return s, nil
}

// Backend implements docstore.Store.
func (s *Store) Backend() string { return "badger" }

// Collection implements docstore.Store.
func (s *Store) Collection(name string) docstore.Collection {
	return &collection{store: s, name: name}
}

// ListCollections implements docstore.Store. Badger iterates keys in byte
// order, so the result is already sorted.
func (s *Store) ListCollections(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var names []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(catalogPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			names = append(names, strings.TrimPrefix(string(it.Item().Key()), catalogPrefix))
		}
		return nil
	})
	if err != nil {
		return nil, docstore.StorageError("list collections", "", err)
	}
	return names, nil
}

// GC runs value-log garbage collection until Badger reports nothing left
// to rewrite.
func (s *Store) GC() error {
	if s.cfg.InMemory {
		return nil
	}
	for {
		err := s.db.RunValueLogGC(s.cfg.GCThreshold)
		if errors.Is(err, badger.ErrNoRewrite) {
			break
		}
		if err != nil {
			return fmt.Errorf("badgerstore: gc: %w", err)
		}
		s.gcRuns.Add(1)
	}
	s.lastGC.Store(time.Now().UnixMilli())
	return nil
}

// Close stops background work and closes the database. Later calls return
// the first call's result.
func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopCh)
		<-s.doneCh
		if err := s.db.Close(); err != nil {
			s.closeErr = fmt.Errorf("badgerstore: close db: %w", err)
			return
		}
		s.logger.Info("badger store closed", "dir", s.cfg.Dir)
	})
	return s.closeErr
}

// RegisterMetrics exposes LSM and value-log sizes on reg. The gauges are
// refreshed on each GC tick.
func (s *Store) RegisterMetrics(reg prometheus.Registerer) error {
	s.metricsSize = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "collsnap",
		Subsystem: "badger",
		Name:      "size_bytes",
		Help:      "Badger on-disk size in bytes by component.",
	}, []string{"component"})
	if err := reg.Register(s.metricsSize); err != nil {
		return err
	}
	s.refreshMetrics()
	return nil
}

func (s *Store) refreshMetrics() {
	if s.metricsSize == nil {
		return
	}
	lsm, vlog := s.db.Size()
	s.metricsSize.WithLabelValues("lsm").Set(float64(lsm))
	s.metricsSize.WithLabelValues("value_log").Set(float64(vlog))
}

func (s *Store) gcLoop() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.cfg.GCInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.GC(); err != nil {
				s.logger.Error("badger gc failed", "error", err)
			}
			s.refreshMetrics()
		case <-s.stopCh:
			return
		}
	}
}

// update runs fn in a read-write transaction, retrying on conflicts.
func (s *Store) update(fn func(txn *badger.Txn) error) error {
	var err error
	for i := 0; i < conflictRetries; i++ {
		err = s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return err
}

type collection struct {
	store *Store
	name  string
}

func (c *collection) Name() string { return c.name }

func (c *collection) catalogKey() []byte {
	return []byte(catalogPrefix + c.name)
}

func (c *collection) prefix() []byte {
	return []byte(docPrefix + c.name + keySep)
}

func (c *collection) docKey(id string) []byte {
	return []byte(docPrefix + c.name + keySep + id)
}

func (c *collection) Insert(ctx context.Context, doc docstore.Document) (string, error) {
	ids, err := c.InsertMany(ctx, []docstore.Document{doc})
	if err != nil {
		return "", err
	}
	return ids[0], nil
}

func (c *collection) InsertMany(ctx context.Context, docs []docstore.Document) ([]string, error) {
	var ids []string
	for _, d := range docs {
		if err := ctx.Err(); err != nil {
			return ids, err
		}
		cp := docstore.Clone(d)
		id, err := docstore.EnsureID(cp)
		if err != nil {
			return ids, err
		}
		data, err := docstore.Marshal(cp)
		if err != nil {
			return ids, fmt.Errorf("badgerstore: encode document: %w", err)
		}

		err = c.store.update(func(txn *badger.Txn) error {
			key := c.docKey(id)
			if _, err := txn.Get(key); err == nil {
				return errcode.ErrDuplicateKey.WithDetailf("collection=%s id=%s", c.name, id)
			} else if !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
			if err := txn.Set(key, data); err != nil {
				return err
			}
			return txn.Set(c.catalogKey(), nil)
		})
		if err != nil {
			if errcode.IsCode(err, errcode.ErrDuplicateKey.Code) {
				return ids, err
			}
			return ids, docstore.StorageError("insert", c.name, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// scan decodes every document of the collection in key order.
func (c *collection) scan(ctx context.Context) ([]docstore.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var docs []docstore.Document
	err := c.store.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = c.prefix()
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				d, err := docstore.Unmarshal(val)
				if err != nil {
					return err
				}
				docs = append(docs, d)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, docstore.StorageError("scan", c.name, err)
	}
	return docs, nil
}

func (c *collection) Find(ctx context.Context, q *docstore.Query) ([]docstore.Document, error) {
	docs, err := c.scan(ctx)
	if err != nil {
		return nil, err
	}
	return docstore.Apply(docs, q), nil
}

func (c *collection) FindOne(ctx context.Context, q *docstore.Query) (docstore.Document, error) {
	docs, err := c.Find(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, errcode.ErrNotFound.WithDetailf("collection=%s", c.name)
	}
	return docs[0], nil
}

func (c *collection) Count(ctx context.Context, q *docstore.Query) (int64, error) {
	docs, err := c.Find(ctx, q)
	if err != nil {
		return 0, err
	}
	return int64(len(docs)), nil
}

func (c *collection) DeleteMany(ctx context.Context, q *docstore.Query) (int64, error) {
	docs, err := c.scan(ctx)
	if err != nil {
		return 0, err
	}
	var filters []docstore.Filter
	if q != nil {
		filters = q.Filters
	}

	wb := c.store.db.NewWriteBatch()
	defer wb.Cancel()

	var n int64
	for _, d := range docs {
		if !docstore.Matches(d, filters) {
			continue
		}
		if err := wb.Delete(c.docKey(d.ID())); err != nil {
			return 0, docstore.StorageError("delete", c.name, err)
		}
		n++
	}
	if err := wb.Flush(); err != nil {
		return 0, docstore.StorageError("delete", c.name, err)
	}
	return n, nil
}

func (c *collection) Drop(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var keys [][]byte
	err := c.store.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = c.prefix()
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil {
		return docstore.StorageError("drop", c.name, err)
	}

	wb := c.store.db.NewWriteBatch()
	defer wb.Cancel()
	for _, k := range keys {
		if err := wb.Delete(k); err != nil {
			return docstore.StorageError("drop", c.name, err)
		}
	}
	if err := wb.Delete(c.catalogKey()); err != nil {
		return docstore.StorageError("drop", c.name, err)
	}
	if err := wb.Flush(); err != nil {
		return docstore.StorageError("drop", c.name, err)
	}
	return nil
}

// badgerLogger adapts slog to Badger's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}
