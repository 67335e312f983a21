// Package binding attaches typed, queryable views to snapshot collections.
//
// A Registry caches one Binding per (record id, sub-key). Schemas are
// declared per sub-key in Definitions and applied when a binding is first
// created; later lookups return the cached instance.
package binding

import (
	"context"
	"fmt"
	"time"

	"github.com/go-viper/mapstructure/v2"

	"github.com/yndnr/collsnap/pkg/docstore"
	"github.com/yndnr/collsnap/pkg/errcode"
)

// DefaultSubKey names the default collection of a snapshot.
const DefaultSubKey = ""

// Key identifies a binding.
type Key struct {
	RecordID string
	SubKey   string
}

func (k Key) String() string {
	if k.SubKey == DefaultSubKey {
		return k.RecordID + "/(default)"
	}
	return k.RecordID + "/" + k.SubKey
}

// Lookup resolves a sibling binding of the same record by sub-key. It is
// used to follow relations.
type Lookup func(ctx context.Context, subKey string) (*Binding, error)

// Binding is a typed view of one physical collection.
type Binding struct {
	key    Key
	coll   docstore.Collection
	schema *Schema
	lookup Lookup
}

// Key returns the binding's cache key.
func (b *Binding) Key() Key { return b.key }

// Name returns the physical collection name.
func (b *Binding) Name() string { return b.coll.Name() }

// Schema returns the schema applied to the binding.
func (b *Binding) Schema() *Schema { return b.schema }

// Collection returns the untyped collection handle.
func (b *Binding) Collection() docstore.Collection { return b.coll }

// Insert validates doc against the schema and stores it.
func (b *Binding) Insert(ctx context.Context, doc docstore.Document) (string, error) {
	prepared, err := b.schema.prepare(doc)
	if err != nil {
		return "", err
	}
	return b.coll.Insert(ctx, prepared)
}

// InsertMany validates every document before storing any of them.
func (b *Binding) InsertMany(ctx context.Context, docs []docstore.Document) ([]string, error) {
	prepared := make([]docstore.Document, len(docs))
	for i, d := range docs {
		p, err := b.schema.prepare(d)
		if err != nil {
			return nil, err
		}
		prepared[i] = p
	}
	return b.coll.InsertMany(ctx, prepared)
}

// Find returns the matching documents with declared fields converted to
// their schema types.
func (b *Binding) Find(ctx context.Context, q *docstore.Query) ([]docstore.Document, error) {
	docs, err := b.coll.Find(ctx, q)
	if err != nil {
		return nil, err
	}
	for _, d := range docs {
		b.schema.present(d)
	}
	return docs, nil
}

// FindOne returns the first match or errcode.ErrNotFound.
func (b *Binding) FindOne(ctx context.Context, q *docstore.Query) (docstore.Document, error) {
	d, err := b.coll.FindOne(ctx, q)
	if err != nil {
		return nil, err
	}
	return b.schema.present(d), nil
}

// Count counts the matching documents.
func (b *Binding) Count(ctx context.Context, q *docstore.Query) (int64, error) {
	return b.coll.Count(ctx, q)
}

// Related follows the named relation from doc. BelongsTo yields at most one
// document.
func (b *Binding) Related(ctx context.Context, doc docstore.Document, name string) ([]docstore.Document, error) {
	rel, ok := b.schema.Relation(name)
	if !ok {
		return nil, errcode.ErrInvalidArgument.WithDetailf("collection %s has no relation %q", b.Name(), name)
	}
	if b.lookup == nil {
		return nil, errcode.ErrInvalidArgument.WithDetailf("collection %s cannot resolve relations", b.Name())
	}
	target, err := b.lookup(ctx, rel.Target)
	if err != nil {
		return nil, fmt.Errorf("binding: resolve %s: %w", rel.Target, err)
	}

	switch rel.Kind {
	case BelongsTo:
		fk, ok := doc[rel.ForeignKey]
		if !ok || fk == nil {
			return nil, nil
		}
		d, err := target.FindOne(ctx, docstore.NewQuery().Eq(docstore.IDField, fk))
		if err != nil {
			if errcode.IsCode(err, errcode.ErrNotFound.Code) {
				return nil, nil
			}
			return nil, err
		}
		return []docstore.Document{d}, nil
	case HasMany:
		return target.Find(ctx, docstore.NewQuery().Eq(rel.ForeignKey, doc.ID()))
	}
	return nil, fmt.Errorf("binding: unknown relation kind %d", rel.Kind)
}

// Decode maps doc onto a value of type T. Fields are matched by the "doc"
// struct tag, falling back to case-insensitive field names. RFC 3339
// strings decode into time.Time.
func Decode[T any](doc docstore.Document) (T, error) {
	var out T
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &out,
		TagName:          "doc",
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeHookFunc(time.RFC3339Nano),
	})
	if err != nil {
		return out, err
	}
	if err := dec.Decode(map[string]any(doc)); err != nil {
		return out, fmt.Errorf("binding: decode: %w", err)
	}
	return out, nil
}

// DecodeAll decodes every document with Decode.
func DecodeAll[T any](docs []docstore.Document) ([]T, error) {
	out := make([]T, 0, len(docs))
	for _, d := range docs {
		v, err := Decode[T](d)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// FindAs runs q on b and decodes the results into T.
func FindAs[T any](ctx context.Context, b *Binding, q *docstore.Query) ([]T, error) {
	docs, err := b.Find(ctx, q)
	if err != nil {
		return nil, err
	}
	return DecodeAll[T](docs)
}
