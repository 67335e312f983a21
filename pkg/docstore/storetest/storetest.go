// Package storetest is the conformance suite for docstore backends.
//
// Each backend's tests call Run with a factory returning a fresh, empty
// store; the factory is invoked once per sub-test.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"

	"github.com/yndnr/collsnap/pkg/docstore"
	"github.com/yndnr/collsnap/pkg/errcode"
)

// Factory returns an empty store. Cleanup is the factory's responsibility
// (t.Cleanup).
type Factory func(t *testing.T) docstore.Store

// Run executes the suite against the stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Helper()
	ctx := context.Background()

	t.Run("EmptyStore", func(t *testing.T) {
		s := newStore(t)
		names, err := s.ListCollections(ctx)
		if err != nil {
			t.Fatalf("ListCollections: %v", err)
		}
		if len(names) != 0 {
			t.Fatalf("ListCollections() = %v, want empty", names)
		}
		if _, err := s.Collection("missing").FindOne(ctx, nil); !errors.Is(err, errcode.ErrNotFound) {
			t.Fatalf("FindOne on missing collection error = %v, want ErrNotFound", err)
		}
		if n, err := s.Collection("missing").Count(ctx, nil); err != nil || n != 0 {
			t.Fatalf("Count on missing collection = (%d, %v), want (0, nil)", n, err)
		}
	})

	t.Run("InsertCreatesCollection", func(t *testing.T) {
		s := newStore(t)
		c := s.Collection("artworks.snap-1")
		id, err := c.Insert(ctx, docstore.Document{"name": "Mona", "price": 1000})
		if err != nil {
			t.Fatalf("Insert: %v", err)
		}
		if id == "" {
			t.Fatal("Insert returned an empty id")
		}

		names, _ := s.ListCollections(ctx)
		if !reflect.DeepEqual(names, []string{"artworks.snap-1"}) {
			t.Fatalf("ListCollections() = %v, want [artworks.snap-1]", names)
		}

		got, err := c.FindOne(ctx, docstore.ByID(id))
		if err != nil {
			t.Fatalf("FindOne: %v", err)
		}
		if got["name"] != "Mona" {
			t.Errorf("name = %v, want Mona", got["name"])
		}
		if f, _ := docstore.ToFloat(got["price"]); f != 1000 {
			t.Errorf("price = %v, want 1000", got["price"])
		}
	})

	t.Run("DuplicateID", func(t *testing.T) {
		s := newStore(t)
		c := s.Collection("dup")
		if _, err := c.Insert(ctx, docstore.Document{"_id": "a"}); err != nil {
			t.Fatalf("Insert: %v", err)
		}
		if _, err := c.Insert(ctx, docstore.Document{"_id": "a"}); !errors.Is(err, errcode.ErrDuplicateKey) {
			t.Fatalf("second Insert error = %v, want ErrDuplicateKey", err)
		}
		if _, err := s.Collection("other").Insert(ctx, docstore.Document{"_id": "a"}); err != nil {
			t.Fatalf("same id in another collection: %v", err)
		}
	})

	t.Run("QueryFilterSortLimit", func(t *testing.T) {
		s := newStore(t)
		c := s.Collection("works")
		docs := []docstore.Document{
			{"_id": "w1", "artist": "ArtistA", "price": 1_000_000, "value": map[string]any{"n": 1}},
			{"_id": "w2", "artist": "ArtistA", "price": 3_000_000, "value": map[string]any{"n": 2}},
			{"_id": "w3", "artist": "ArtistB", "price": 500, "value": map[string]any{"n": 3}},
		}
		if _, err := c.InsertMany(ctx, docs); err != nil {
			t.Fatalf("InsertMany: %v", err)
		}

		cases := []struct {
			name string
			q    *docstore.Query
			want []string
		}{
			{"all", nil, []string{"w1", "w2", "w3"}},
			{"eq", docstore.NewQuery().Eq("artist", "ArtistA"), []string{"w1", "w2"}},
			{"gte", docstore.NewQuery().Where("price", docstore.OpGte, 1_000_000), []string{"w1", "w2"}},
			{"in", docstore.NewQuery().Where("_id", docstore.OpIn, []string{"w3", "w1"}), []string{"w1", "w3"}},
			{"nested", docstore.NewQuery().Eq("value.n", 2), []string{"w2"}},
			{"sort desc limit", docstore.NewQuery().Sort("price", docstore.Desc).WithLimit(2), []string{"w2", "w1"}},
			{"sort skip", docstore.NewQuery().Sort("price", docstore.Asc).WithSkip(1), []string{"w1", "w2"}},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				got, err := c.Find(ctx, tc.q)
				if err != nil {
					t.Fatalf("Find: %v", err)
				}
				var ids []string
				for _, d := range got {
					ids = append(ids, d.ID())
				}
				if !reflect.DeepEqual(ids, tc.want) {
					t.Fatalf("Find ids = %v, want %v", ids, tc.want)
				}
			})
		}

		n, err := c.Count(ctx, docstore.NewQuery().Eq("artist", "ArtistA"))
		if err != nil || n != 2 {
			t.Fatalf("Count = (%d, %v), want (2, nil)", n, err)
		}
	})

	t.Run("DeleteMany", func(t *testing.T) {
		s := newStore(t)
		c := s.Collection("del")
		for i := 0; i < 4; i++ {
			if _, err := c.Insert(ctx, docstore.Document{"i": i, "even": i%2 == 0}); err != nil {
				t.Fatalf("Insert: %v", err)
			}
		}
		n, err := c.DeleteMany(ctx, docstore.NewQuery().Eq("even", true))
		if err != nil || n != 2 {
			t.Fatalf("DeleteMany = (%d, %v), want (2, nil)", n, err)
		}
		if left, _ := c.Count(ctx, nil); left != 2 {
			t.Fatalf("Count after DeleteMany = %d, want 2", left)
		}
	})

	t.Run("Drop", func(t *testing.T) {
		s := newStore(t)
		keep := s.Collection("artworks.keep")
		gone := s.Collection("artworks.gone")
		for _, c := range []docstore.Collection{keep, gone} {
			if _, err := c.Insert(ctx, docstore.Document{"name": c.Name()}); err != nil {
				t.Fatalf("Insert: %v", err)
			}
		}

		if err := gone.Drop(ctx); err != nil {
			t.Fatalf("Drop: %v", err)
		}
		names, _ := s.ListCollections(ctx)
		if !reflect.DeepEqual(names, []string{"artworks.keep"}) {
			t.Fatalf("ListCollections() = %v, want [artworks.keep]", names)
		}
		if n, _ := gone.Count(ctx, nil); n != 0 {
			t.Fatalf("dropped collection still has %d docs", n)
		}
		if err := gone.Drop(ctx); err != nil {
			t.Fatalf("second Drop: %v", err)
		}

		if _, err := gone.Insert(ctx, docstore.Document{"name": "again"}); err != nil {
			t.Fatalf("Insert after Drop: %v", err)
		}
		if n, _ := gone.Count(ctx, nil); n != 1 {
			t.Fatalf("Count after re-create = %d, want 1", n)
		}
	})

	t.Run("SimilarNamesStayApart", func(t *testing.T) {
		s := newStore(t)
		for _, name := range []string{"a.b", "a.bc", "a.b.c"} {
			if _, err := s.Collection(name).Insert(ctx, docstore.Document{"name": name}); err != nil {
				t.Fatalf("Insert(%s): %v", name, err)
			}
		}
		if err := s.Collection("a.b").Drop(ctx); err != nil {
			t.Fatalf("Drop: %v", err)
		}
		names, _ := s.ListCollections(ctx)
		if !reflect.DeepEqual(names, []string{"a.b.c", "a.bc"}) {
			t.Fatalf("ListCollections() = %v, want [a.b.c a.bc]", names)
		}
	})

	t.Run("ConcurrentInserts", func(t *testing.T) {
		s := newStore(t)
		c := s.Collection("busy")
		var wg sync.WaitGroup
		errs := make(chan error, 40)
		for g := 0; g < 4; g++ {
			wg.Add(1)
			go func(g int) {
				defer wg.Done()
				for i := 0; i < 10; i++ {
					if _, err := c.Insert(ctx, docstore.Document{"k": fmt.Sprintf("%d-%d", g, i)}); err != nil {
						errs <- err
					}
				}
			}(g)
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			t.Fatalf("concurrent Insert: %v", err)
		}
		if n, _ := c.Count(ctx, nil); n != 40 {
			t.Fatalf("Count = %d, want 40", n)
		}
	})
}
