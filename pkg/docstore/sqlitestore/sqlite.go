// Package sqlitestore is a single-file docstore backend on SQLite.
//
// Tables:
//
//	collections(name)                           PRIMARY KEY (name)
//	documents(seq, collection, id, data)        UNIQUE (collection, id)
//
// seq preserves insertion order. Filters and sorting run in Go over the
// decoded documents of one collection.
package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/mattn/go-sqlite3"

	"github.com/yndnr/collsnap/pkg/docstore"
	"github.com/yndnr/collsnap/pkg/errcode"
)

const schema = `
CREATE TABLE IF NOT EXISTS collections (
	name TEXT PRIMARY KEY
);
CREATE TABLE IF NOT EXISTS documents (
	seq        INTEGER PRIMARY KEY AUTOINCREMENT,
	collection TEXT NOT NULL,
	id         TEXT NOT NULL,
	data       TEXT NOT NULL,
	UNIQUE (collection, id)
);`

// Store is a SQLite-backed docstore.Store.
type Store struct {
	mu   sync.RWMutex
	db   *sql.DB
	path string
}

// Open opens (or creates) the database file at path. ":memory:" opens a
// private in-memory database.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("sqlitestore: create dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: open: %w", err)
	}
	// One connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlitestore: enable wal: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlitestore: create schema: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Backend implements docstore.Store.
func (s *Store) Backend() string { return "sqlite" }

// Collection implements docstore.Store.
func (s *Store) Collection(name string) docstore.Collection {
	return &collection{store: s, name: name}
}

// ListCollections implements docstore.Store.
func (s *Store) ListCollections(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT name FROM collections ORDER BY name")
	if err != nil {
		return nil, docstore.StorageError("list collections", "", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, docstore.StorageError("list collections", "", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

type collection struct {
	store *Store
	name  string
}

func (c *collection) Name() string { return c.name }

func (c *collection) Insert(ctx context.Context, doc docstore.Document) (string, error) {
	ids, err := c.InsertMany(ctx, []docstore.Document{doc})
	if err != nil {
		return "", err
	}
	return ids[0], nil
}

func (c *collection) InsertMany(ctx context.Context, docs []docstore.Document) ([]string, error) {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	tx, err := c.store.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, docstore.StorageError("insert", c.name, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "INSERT OR IGNORE INTO collections (name) VALUES (?)", c.name); err != nil {
		return nil, docstore.StorageError("insert", c.name, err)
	}

	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		cp := docstore.Clone(d)
		id, err := docstore.EnsureID(cp)
		if err != nil {
			return nil, err
		}
		data, err := docstore.Marshal(cp)
		if err != nil {
			return nil, fmt.Errorf("sqlitestore: encode document: %w", err)
		}
		_, err = tx.ExecContext(ctx, "INSERT INTO documents (collection, id, data) VALUES (?, ?, ?)", c.name, id, string(data))
		if err != nil {
			var se sqlite3.Error
			if errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintUnique {
				return nil, errcode.ErrDuplicateKey.WithDetailf("collection=%s id=%s", c.name, id)
			}
			return nil, docstore.StorageError("insert", c.name, err)
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(); err != nil {
		return nil, docstore.StorageError("insert", c.name, err)
	}
	return ids, nil
}

func (c *collection) load(ctx context.Context) ([]docstore.Document, error) {
	c.store.mu.RLock()
	defer c.store.mu.RUnlock()

	rows, err := c.store.db.QueryContext(ctx, "SELECT data FROM documents WHERE collection = ? ORDER BY seq", c.name)
	if err != nil {
		return nil, docstore.StorageError("find", c.name, err)
	}
	defer rows.Close()

	var docs []docstore.Document
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, docstore.StorageError("find", c.name, err)
		}
		d, err := docstore.Unmarshal([]byte(raw))
		if err != nil {
			return nil, docstore.StorageError("decode", c.name, err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func (c *collection) Find(ctx context.Context, q *docstore.Query) ([]docstore.Document, error) {
	docs, err := c.load(ctx)
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
	if q == nil || len(q.Filters) == 0 && q.Limit == 0 && q.Skip == 0 {
		c.store.mu.RLock()
		defer c.store.mu.RUnlock()
		var n int64
		err := c.store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM documents WHERE collection = ?", c.name).Scan(&n)
		if err != nil {
			return 0, docstore.StorageError("count", c.name, err)
		}
		return n, nil
	}
	docs, err := c.Find(ctx, q)
	if err != nil {
		return 0, err
	}
	return int64(len(docs)), nil
}

func (c *collection) DeleteMany(ctx context.Context, q *docstore.Query) (int64, error) {
	docs, err := c.load(ctx)
	if err != nil {
		return 0, err
	}
	var filters []docstore.Filter
	if q != nil {
		filters = q.Filters
	}

	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	tx, err := c.store.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, docstore.StorageError("delete", c.name, err)
	}
	defer tx.Rollback()

	var n int64
	for _, d := range docs {
		if !docstore.Matches(d, filters) {
			continue
		}
		res, err := tx.ExecContext(ctx, "DELETE FROM documents WHERE collection = ? AND id = ?", c.name, d.ID())
		if err != nil {
			return 0, docstore.StorageError("delete", c.name, err)
		}
		affected, _ := res.RowsAffected()
		n += affected
	}
	if err := tx.Commit(); err != nil {
		return 0, docstore.StorageError("delete", c.name, err)
	}
	return n, nil
}

func (c *collection) Drop(ctx context.Context) error {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	tx, err := c.store.db.BeginTx(ctx, nil)
	if err != nil {
		return docstore.StorageError("drop", c.name, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM documents WHERE collection = ?", c.name); err != nil {
		return docstore.StorageError("drop", c.name, err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM collections WHERE name = ?", c.name); err != nil {
		return docstore.StorageError("drop", c.name, err)
	}
	if err := tx.Commit(); err != nil {
		return docstore.StorageError("drop", c.name, err)
	}
	return nil
}
