package snapshot

import (
	"context"

	"github.com/yndnr/collsnap/pkg/binding"
	"github.com/yndnr/collsnap/pkg/docstore"
)

// DefaultBaseName is used when a kind reports an empty base name.
const DefaultBaseName = "snapshot"

// BuildFunc populates the collections of a snapshot that is being built.
type BuildFunc func(ctx context.Context, snap *Snapshot) error

// Kind is implemented by every snapshot-producing type.
type Kind interface {
	// BaseName is the logical dataset name shared by all snapshots of the
	// kind. It must not contain dots.
	BaseName() string

	// Build populates a new snapshot. A returned error aborts the create.
	Build(ctx context.Context, snap *Snapshot) error
}

// RetentionLimiter overrides the default retention limit.
type RetentionLimiter interface {
	RetentionLimit() int
}

// CreatedObserver is notified after a snapshot is committed and the
// retention sweep has run.
type CreatedObserver interface {
	OnCreated(ctx context.Context, snap *Snapshot) error
}

// DestroyObserver is notified before a snapshot's collections are dropped.
// An error aborts the destroy.
type DestroyObserver interface {
	OnBeforeDestroy(ctx context.Context, snap *Snapshot) error
}

// Documenter registers typed schemas for the kind's sub-collections.
type Documenter interface {
	Documents(defs *binding.Definitions) error
}

// StoreProvider places the kind's snapshot collections in a store other
// than the default one. The store is opened on first use and reused.
type StoreProvider interface {
	SnapshotStore(ctx context.Context) (docstore.Store, error)
}

// SlugGenerator overrides slug generation for the kind.
type SlugGenerator interface {
	Slug(ctx context.Context, base string) (string, error)
}

type funcKind struct {
	base  string
	limit int
	build BuildFunc
}

// KindFunc returns a Kind built from a base name, a retention limit and a
// build function. A limit of zero or less selects the default.
func KindFunc(base string, limit int, build BuildFunc) Kind {
	return &funcKind{base: base, limit: limit, build: build}
}

func (k *funcKind) BaseName() string { return k.base }

func (k *funcKind) RetentionLimit() int { return k.limit }

func (k *funcKind) Build(ctx context.Context, snap *Snapshot) error {
	if k.build == nil {
		return nil
	}
	return k.build(ctx, snap)
}
