// Package memory is an in-process docstore backend.
//
// Documents are deep-copied on the way in and out, so callers never share
// state with the store. Nothing survives Close.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/yndnr/collsnap/pkg/cmap"
	"github.com/yndnr/collsnap/pkg/docstore"
	"github.com/yndnr/collsnap/pkg/errcode"
)

// Store is an in-memory docstore.Store.
type Store struct {
	colls *cmap.Map[string, *state]
}

type state struct {
	mu    sync.RWMutex
	order []string
	docs  map[string]docstore.Document
}

// New creates an empty store.
func New() *Store {
	return &Store{colls: cmap.New[string, *state]()}
}

// Backend implements docstore.Store.
func (s *Store) Backend() string { return "memory" }

// Collection implements docstore.Store.
func (s *Store) Collection(name string) docstore.Collection {
	return &collection{store: s, name: name}
}

// ListCollections implements docstore.Store.
func (s *Store) ListCollections(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	names := s.colls.Keys()
	sort.Strings(names)
	return names, nil
}

// Close drops every collection.
func (s *Store) Close() error {
	s.colls.Clear()
	return nil
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
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(docs))
	var insertErr error
	// Compute holds the shard lock, so a concurrent Drop cannot detach the
	// state between lookup and write.
	_, err := c.store.colls.Compute(c.name, func(st *state, ok bool) (*state, error) {
		if !ok {
			st = &state{docs: make(map[string]docstore.Document)}
		}
		st.mu.Lock()
		defer st.mu.Unlock()

		for _, d := range docs {
			cp := docstore.Clone(d)
			id, err := docstore.EnsureID(cp)
			if err != nil {
				insertErr = err
				break
			}
			if _, dup := st.docs[id]; dup {
				insertErr = errcode.ErrDuplicateKey.WithDetailf("collection=%s id=%s", c.name, id)
				break
			}
			st.docs[id] = cp
			st.order = append(st.order, id)
			ids = append(ids, id)
		}
		if insertErr != nil && !ok && len(ids) == 0 {
			return st, insertErr
		}
		return st, nil
	})
	if err != nil {
		return nil, err
	}
	return ids, insertErr
}

func (c *collection) snapshot() []docstore.Document {
	st, ok := c.store.colls.Get(c.name)
	if !ok {
		return nil
	}
	st.mu.RLock()
	defer st.mu.RUnlock()

	out := make([]docstore.Document, 0, len(st.order))
	for _, id := range st.order {
		out = append(out, st.docs[id])
	}
	return out
}

func (c *collection) Find(ctx context.Context, q *docstore.Query) ([]docstore.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	matched := docstore.Apply(c.snapshot(), q)
	out := make([]docstore.Document, len(matched))
	for i, d := range matched {
		out[i] = docstore.Clone(d)
	}
	return out, nil
}

func (c *collection) FindOne(ctx context.Context, q *docstore.Query) (docstore.Document, error) {
	one := docstore.NewQuery()
	if q != nil {
		cp := *q
		one = &cp
	}
	one.Limit = 1
	docs, err := c.Find(ctx, one)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, errcode.ErrNotFound.WithDetailf("collection=%s", c.name)
	}
	return docs[0], nil
}

func (c *collection) Count(ctx context.Context, q *docstore.Query) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return int64(len(docstore.Apply(c.snapshot(), q))), nil
}

func (c *collection) DeleteMany(ctx context.Context, q *docstore.Query) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	st, ok := c.store.colls.Get(c.name)
	if !ok {
		return 0, nil
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	all := make([]docstore.Document, 0, len(st.order))
	for _, id := range st.order {
		all = append(all, st.docs[id])
	}
	var filters []docstore.Filter
	if q != nil {
		filters = q.Filters
	}
	var n int64
	kept := st.order[:0]
	for i, id := range st.order {
		if docstore.Matches(all[i], filters) {
			delete(st.docs, id)
			n++
			continue
		}
		kept = append(kept, id)
	}
	st.order = kept
	return n, nil
}

func (c *collection) Drop(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.store.colls.Delete(c.name)
	return nil
}
