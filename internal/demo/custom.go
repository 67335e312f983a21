package demo

import (
	"context"
	"errors"

	"github.com/yndnr/collsnap/pkg/docstore"
	"github.com/yndnr/collsnap/pkg/snapshot"
)

// CustomConnection keeps its snapshot collections in the store returned by
// Open while its records stay in the default store.
type CustomConnection struct {
	Open snapshot.Opener
}

func (CustomConnection) BaseName() string { return "custom_connection_snapshots" }

// SnapshotStore implements snapshot.StoreProvider.
func (k CustomConnection) SnapshotStore(ctx context.Context) (docstore.Store, error) {
	if k.Open == nil {
		return nil, errors.New("demo: custom connection has no store")
	}
	return k.Open(ctx)
}

// Build implements snapshot.Kind.
func (CustomConnection) Build(ctx context.Context, snap *snapshot.Snapshot) error {
	def, err := snap.Collection(ctx, "")
	if err != nil {
		return err
	}
	if _, err := def.Insert(ctx, docstore.Document{"name": "foo"}); err != nil {
		return err
	}
	foo, err := snap.Collection(ctx, "foo")
	if err != nil {
		return err
	}
	_, err = foo.Insert(ctx, docstore.Document{"name": "bar"})
	return err
}
