package snapshot

import (
	"context"
	"sort"
	"sync"

	"github.com/yndnr/collsnap/pkg/binding"
	"github.com/yndnr/collsnap/pkg/docstore"
	"github.com/yndnr/collsnap/pkg/errcode"
	"github.com/yndnr/collsnap/pkg/naming"
	"github.com/yndnr/collsnap/pkg/records"
)

// State is a position in the snapshot lifecycle.
type State int

// Lifecycle states.
const (
	StateBuilding State = iota
	StateCommitted
	StateEvicted
	StateDestroyed
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateBuilding:
		return "building"
	case StateCommitted:
		return "committed"
	case StateEvicted:
		return "evicted"
	case StateDestroyed:
		return "destroyed"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Handle locates one collection of a snapshot.
type Handle struct {
	BaseName string
	SubKey   string
	Slug     string
	Name     string
	Store    docstore.Store
}

// Collection returns the collection the handle points at.
func (h Handle) Collection() docstore.Collection {
	return h.Store.Collection(h.Name)
}

// Snapshot is a record together with the means to reach its collections.
type Snapshot struct {
	*records.Record

	ctl *Controller

	mu      sync.Mutex
	touched map[string]struct{}
}

func newSnapshot(ctl *Controller, rec *records.Record) *Snapshot {
	return &Snapshot{Record: rec, ctl: ctl, touched: make(map[string]struct{})}
}

// CollectionName returns the physical name of the sub-collection subKey.
func (s *Snapshot) CollectionName(subKey string) string {
	return naming.CollectionName(s.BaseName, s.Slug, subKey)
}

// Handle resolves the sub-collection subKey; the empty sub-key selects the
// default collection.
func (s *Snapshot) Handle(ctx context.Context, subKey string) (Handle, error) {
	if subKey != binding.DefaultSubKey && !naming.ValidSegment(subKey) {
		return Handle{}, errcode.ErrInvalidArgument.WithDetailf("sub-key %q must be non-empty and contain no %q", subKey, naming.Separator)
	}
	store, err := s.ctl.router.Resolve(ctx, s.BaseName)
	if err != nil {
		return Handle{}, err
	}
	name := s.CollectionName(subKey)

	s.mu.Lock()
	s.touched[name] = struct{}{}
	s.mu.Unlock()

	return Handle{BaseName: s.BaseName, SubKey: subKey, Slug: s.Slug, Name: name, Store: store}, nil
}

// Collection is shorthand for Handle(ctx, subKey).Collection().
func (s *Snapshot) Collection(ctx context.Context, subKey string) (docstore.Collection, error) {
	h, err := s.Handle(ctx, subKey)
	if err != nil {
		return nil, err
	}
	return h.Collection(), nil
}

// Document returns the typed binding for subKey, creating it on first use
// with the schema the kind registered for that sub-key.
func (s *Snapshot) Document(ctx context.Context, subKey string) (*binding.Binding, error) {
	key := binding.Key{RecordID: s.ID, SubKey: subKey}
	if b, ok := s.ctl.bindings.Get(key); ok {
		return b, nil
	}
	coll, err := s.Collection(ctx, subKey)
	if err != nil {
		return nil, err
	}
	return s.ctl.bindings.Bind(key, coll, s.ctl.defs, s.Document)
}

// Touched returns the collection names resolved through this snapshot,
// sorted.
func (s *Snapshot) Touched() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.touched))
	for n := range s.touched {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
