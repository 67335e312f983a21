package snapshot

import (
	"context"
	"errors"
	"fmt"

	"github.com/yndnr/collsnap/pkg/cmap"
	"github.com/yndnr/collsnap/pkg/docstore"
)

// Router picks the store that holds a kind's snapshot collections.
type Router interface {
	Resolve(ctx context.Context, baseName string) (docstore.Store, error)
}

type staticRouter struct {
	store docstore.Store
}

// Static routes every base name to store.
func Static(store docstore.Store) Router {
	return staticRouter{store: store}
}

func (r staticRouter) Resolve(context.Context, string) (docstore.Store, error) {
	return r.store, nil
}

// Opener opens a store for an overridden base name.
type Opener func(ctx context.Context) (docstore.Store, error)

// MapRouter routes overridden base names to their own stores and all
// others to a fallback router. Override stores are opened on first use
// and memoized; a failed open is retried on the next Resolve.
type MapRouter struct {
	next    Router
	openers *cmap.Map[string, Opener]
	opened  *cmap.Map[string, docstore.Store]
}

// NewMapRouter returns a router that defers to next for base names without
// an override.
func NewMapRouter(next Router) *MapRouter {
	return &MapRouter{
		next:    next,
		openers: cmap.New[string, Opener](),
		opened:  cmap.New[string, docstore.Store](),
	}
}

// Override routes baseName to the store returned by open. Overriding a base
// name whose store is already open has no effect on that store.
func (r *MapRouter) Override(baseName string, open Opener) {
	r.openers.Set(baseName, open)
}

// Resolve implements Router.
func (r *MapRouter) Resolve(ctx context.Context, baseName string) (docstore.Store, error) {
	open, ok := r.openers.Get(baseName)
	if !ok {
		return r.next.Resolve(ctx, baseName)
	}
	store, err := r.opened.Compute(baseName, func(cur docstore.Store, exists bool) (docstore.Store, error) {
		if exists {
			return cur, nil
		}
		return open(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("snapshot: open store for %s: %w", baseName, err)
	}
	return store, nil
}

// Close closes every override store opened so far. The fallback router's
// stores belong to the caller.
func (r *MapRouter) Close() error {
	var errs []error
	for _, base := range r.opened.Keys() {
		if s, ok := r.opened.Pop(base); ok {
			if err := s.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close %s store: %w", base, err))
			}
		}
	}
	return errors.Join(errs...)
}
