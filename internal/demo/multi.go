package demo

import (
	"context"
	"strings"

	"github.com/yndnr/collsnap/pkg/binding"
	"github.com/yndnr/collsnap/pkg/docstore"
	"github.com/yndnr/collsnap/pkg/snapshot"
)

// MultiSubKeys are the sub-collections written by MultiCollection, in
// the order Names reads them.
var MultiSubKeys = []string{"foo", "bar", "baz"}

// MultiCollection writes one typed document into each of its foo, bar and
// baz sub-collections.
type MultiCollection struct{}

func (MultiCollection) BaseName() string { return "multi_collection_snapshots" }

// Documents implements snapshot.Documenter.
func (MultiCollection) Documents(defs *binding.Definitions) error {
	counters := map[string]string{"foo": "count", "bar": "number", "baz": "digit"}
	for _, sub := range MultiSubKeys {
		counter := counters[sub]
		err := defs.Register(sub, func(s *binding.Schema) {
			s.Field("name", binding.String).Field(counter, binding.Int)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// Build implements snapshot.Kind.
func (MultiCollection) Build(ctx context.Context, snap *snapshot.Snapshot) error {
	docs := []docstore.Document{
		{"name": "foo!", "count": 1},
		{"name": "bar!", "number": 2},
		{"name": "baz!", "digit": 3},
	}
	for i, sub := range MultiSubKeys {
		b, err := snap.Document(ctx, sub)
		if err != nil {
			return err
		}
		if _, err := b.Insert(ctx, docs[i]); err != nil {
			return err
		}
	}
	return nil
}

// Names concatenates the name of the first document of each sub-collection.
func (MultiCollection) Names(ctx context.Context, snap *snapshot.Snapshot) (string, error) {
	var sb strings.Builder
	for _, sub := range MultiSubKeys {
		b, err := snap.Document(ctx, sub)
		if err != nil {
			return "", err
		}
		doc, err := b.FindOne(ctx, nil)
		if err != nil {
			return "", err
		}
		name, _ := doc["name"].(string)
		sb.WriteString(name)
	}
	return sb.String(), nil
}
