package docstore

import (
	"context"
	"fmt"

	"github.com/oklog/ulid/v2"

	"github.com/yndnr/collsnap/pkg/errcode"
)

// IDField is the primary key field of every document.
const IDField = "_id"

// Document is a single stored document.
type Document map[string]any

// ID returns the document's string id, or "" when unset.
func (d Document) ID() string {
	id, _ := d[IDField].(string)
	return id
}

// Get returns the value at a dotted path such as "value.sum".
func (d Document) Get(path string) (any, bool) {
	return Lookup(d, path)
}

// Store is a set of named collections on one backend.
type Store interface {
	// Backend names the implementation ("memory", "badger", ...).
	Backend() string

	// Collection returns a handle for name. The collection need not exist.
	Collection(name string) Collection

	// ListCollections returns the names of existing collections, sorted.
	ListCollections(ctx context.Context) ([]string, error)

	// Close releases the backend's resources.
	Close() error
}

// Collection is a handle on one named collection.
type Collection interface {
	Name() string

	// Insert stores doc, assigning an id when doc has none, and returns the
	// id. Inserting an existing id fails with errcode.ErrDuplicateKey.
	Insert(ctx context.Context, doc Document) (string, error)

	// InsertMany inserts docs in order and stops at the first failure.
	InsertMany(ctx context.Context, docs []Document) ([]string, error)

	// Find returns the documents matching q. A nil q matches everything in
	// insertion order.
	Find(ctx context.Context, q *Query) ([]Document, error)

	// FindOne returns the first match or errcode.ErrNotFound.
	FindOne(ctx context.Context, q *Query) (Document, error)

	Count(ctx context.Context, q *Query) (int64, error)

	// DeleteMany removes the matches and returns how many were removed.
	DeleteMany(ctx context.Context, q *Query) (int64, error)

	// Drop removes the collection. Dropping a missing collection succeeds.
	Drop(ctx context.Context) error
}

// NewID returns a new lexicographically sortable document id.
func NewID() string {
	return ulid.Make().String()
}

// EnsureID assigns a fresh id to doc when it has none and returns the id.
func EnsureID(doc Document) (string, error) {
	raw, ok := doc[IDField]
	if !ok || raw == nil {
		id := NewID()
		doc[IDField] = id
		return id, nil
	}
	id, ok := raw.(string)
	if !ok || id == "" {
		return "", errcode.ErrInvalidArgument.WithDetailf("%s must be a non-empty string, got %T", IDField, raw)
	}
	return id, nil
}

// StorageError wraps a backend failure for operation op on collection.
func StorageError(op, collection string, err error) error {
	return errcode.ErrStorage.WithDetails(fmt.Sprintf("%s %s", op, collection)).WithCause(err)
}

// UniqueIndexer is implemented by backends that can enforce uniqueness of
// a field natively. Callers that need a unique field use it when present
// and fall back to check-then-insert otherwise.
type UniqueIndexer interface {
	EnsureUnique(ctx context.Context, collection, field string) error
}
