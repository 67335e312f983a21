package demo

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"testing"

	"github.com/yndnr/collsnap/pkg/docstore"
	"github.com/yndnr/collsnap/pkg/docstore/badgerstore"
	"github.com/yndnr/collsnap/pkg/docstore/memory"
	"github.com/yndnr/collsnap/pkg/docstore/sqlitestore"
	"github.com/yndnr/collsnap/pkg/errcode"
	"github.com/yndnr/collsnap/pkg/snapshot"
)

func backends(t *testing.T) map[string]func(t *testing.T) docstore.Store {
	return map[string]func(t *testing.T) docstore.Store{
		"memory": func(t *testing.T) docstore.Store { return memory.New() },
		"badger": func(t *testing.T) docstore.Store {
			cfg := badgerstore.DefaultConfig("")
			cfg.InMemory = true
			s, err := badgerstore.Open(cfg, nil)
			if err != nil {
				t.Fatalf("badgerstore.Open: %v", err)
			}
			t.Cleanup(func() { s.Close() })
			return s
		},
		"sqlite": func(t *testing.T) docstore.Store {
			s, err := sqlitestore.Open(filepath.Join(t.TempDir(), "collsnap.db"))
			if err != nil {
				t.Fatalf("sqlitestore.Open: %v", err)
			}
			t.Cleanup(func() { s.Close() })
			return s
		},
	}
}

func collectionsUnder(t *testing.T, store docstore.Store, base string) []string {
	t.Helper()
	names, err := store.ListCollections(context.Background())
	if err != nil {
		t.Fatalf("ListCollections: %v", err)
	}
	var out []string
	for _, n := range names {
		if strings.HasPrefix(n, base+".") {
			out = append(out, n)
		}
	}
	return out
}

func TestAverageArtistPriceEndToEnd(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := open(t)
			if err := SeedArtworks(ctx, store, SampleArtworks); err != nil {
				t.Fatalf("SeedArtworks: %v", err)
			}
			kind := AverageArtistPrice{Source: store}
			c, err := snapshot.NewController(kind, store)
			if err != nil {
				t.Fatalf("NewController: %v", err)
			}

			latest, err := c.Latest(ctx)
			if err != nil || latest != nil {
				t.Fatalf("Latest() before create = (%v, %v), want (nil, nil)", latest, err)
			}

			snap, err := c.Create(ctx)
			if err != nil {
				t.Fatalf("Create: %v", err)
			}
			for artist, want := range map[string]float64{"ArtistA": 2_000_000, "ArtistB": 1_500_000} {
				got, err := kind.AveragePrice(ctx, snap, artist)
				if err != nil {
					t.Fatalf("AveragePrice(%s): %v", artist, err)
				}
				if got != want {
					t.Errorf("AveragePrice(%s) = %v, want %v", artist, got, want)
				}
			}
			if _, err := kind.AveragePrice(ctx, snap, "Nobody"); !errors.Is(err, errcode.ErrNotFound) {
				t.Errorf("AveragePrice(Nobody) error = %v, want %v", err, errcode.ErrNotFound)
			}

			for i := 0; i < 10; i++ {
				if _, err := c.Create(ctx); err != nil {
					t.Fatalf("Create #%d: %v", i+2, err)
				}
				if n, _ := c.Count(ctx); n != 2 {
					t.Fatalf("Count() = %d, want 2", n)
				}
			}

			list, err := c.List(ctx)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			var want []string
			for _, s := range list {
				want = append(want, s.CollectionName(""))
			}
			sort.Strings(want)
			if got := collectionsUnder(t, store, kind.BaseName()); !reflect.DeepEqual(got, want) {
				t.Errorf("collections = %v, want %v", got, want)
			}

			latest, err = c.Latest(ctx)
			if err != nil {
				t.Fatalf("Latest: %v", err)
			}
			stats, err := kind.Stats(ctx, latest)
			if err != nil {
				t.Fatalf("Stats: %v", err)
			}
			if len(stats) != 2 || stats[0].Artist != "ArtistA" || stats[0].Value.Count != 2 || stats[0].Value.Sum != 4_000_000 {
				t.Errorf("Stats() = %+v", stats)
			}
		})
	}
}

func TestMultiCollection(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	c, err := snapshot.NewController(MultiCollection{}, store)
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}
	for i := 0; i < 10; i++ {
		if _, err := c.Create(ctx); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	latest, err := c.Latest(ctx)
	if err != nil || latest == nil {
		t.Fatalf("Latest() = (%v, %v)", latest, err)
	}
	names, err := MultiCollection{}.Names(ctx, latest)
	if err != nil {
		t.Fatalf("Names: %v", err)
	}
	if names != "foo!bar!baz!" {
		t.Errorf("Names() = %q, want %q", names, "foo!bar!baz!")
	}

	b, err := latest.Document(ctx, "foo")
	if err != nil {
		t.Fatalf("Document(foo): %v", err)
	}
	doc, err := b.FindOne(ctx, nil)
	if err != nil {
		t.Fatalf("FindOne: %v", err)
	}
	if doc["count"] != int64(1) {
		t.Errorf("count = %#v, want int64(1)", doc["count"])
	}
}

func TestMultiCollectionCleanup(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	base := MultiCollection{}.BaseName()
	for _, suffix := range []string{".do.not_delete", ".snapshorty", ".hello.1"} {
		if _, err := store.Collection(base+suffix).Insert(ctx, docstore.Document{"a": 1}); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	c, err := snapshot.NewController(MultiCollection{}, store)
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}
	if _, err := c.Create(ctx); err != nil {
		t.Fatalf("Create: %v", err)
	}
	before := collectionsUnder(t, store, base)

	snap, err := c.Create(ctx)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	afterCreate := collectionsUnder(t, store, base)
	created := difference(afterCreate, before)
	if len(created) != 3 {
		t.Fatalf("created collections = %v, want 3", created)
	}

	if err := c.Destroy(ctx, snap.Record); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	destroyed := difference(afterCreate, collectionsUnder(t, store, base))
	if !reflect.DeepEqual(destroyed, created) {
		t.Errorf("destroyed = %v, want %v", destroyed, created)
	}
}

func difference(a, b []string) []string {
	in := make(map[string]bool, len(b))
	for _, s := range b {
		in[s] = true
	}
	var out []string
	for _, s := range a {
		if !in[s] {
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}

func TestCustomConnection(t *testing.T) {
	ctx := context.Background()
	def, custom := memory.New(), memory.New()
	kind := CustomConnection{Open: func(context.Context) (docstore.Store, error) { return custom, nil }}
	c, err := snapshot.NewController(kind, def)
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}
	snap, err := c.Create(ctx)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	for _, name := range []string{snap.CollectionName("foo"), snap.CollectionName("")} {
		if n, _ := def.Collection(name).Count(ctx, nil); n != 0 {
			t.Errorf("default store %s count = %d, want 0", name, n)
		}
		if n, _ := custom.Collection(name).Count(ctx, nil); n != 1 {
			t.Errorf("custom store %s count = %d, want 1", name, n)
		}
	}
	if n, _ := c.Count(ctx); n != 1 {
		t.Errorf("records in default store = %d, want 1", n)
	}
}

func TestKinds(t *testing.T) {
	want := []string{"average_artist_prices", "custom_connection_snapshots", "multi_collection_snapshots"}
	if got := KindNames(); !reflect.DeepEqual(got, want) {
		t.Errorf("KindNames() = %v, want %v", got, want)
	}
}
