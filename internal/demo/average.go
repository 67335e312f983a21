package demo

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/yndnr/collsnap/pkg/binding"
	"github.com/yndnr/collsnap/pkg/docstore"
	"github.com/yndnr/collsnap/pkg/errcode"
	"github.com/yndnr/collsnap/pkg/snapshot"
)

// AverageArtistPrice snapshots the price sum and artwork count of every
// artist. Each document is {_id: artist, value: {count, sum}}.
type AverageArtistPrice struct {
	// Source holds the artworks collection.
	Source docstore.Store
}

// PriceStat is one aggregated artist.
type PriceStat struct {
	Artist string `doc:"_id"`
	Value  struct {
		Count int64   `doc:"count"`
		Sum   float64 `doc:"sum"`
	} `doc:"value"`
}

// Average returns Sum / Count.
func (p PriceStat) Average() float64 {
	if p.Value.Count == 0 {
		return 0
	}
	return p.Value.Sum / float64(p.Value.Count)
}

func (AverageArtistPrice) BaseName() string { return "average_artist_prices" }

func (AverageArtistPrice) RetentionLimit() int { return 2 }

// Documents implements snapshot.Documenter.
func (AverageArtistPrice) Documents(defs *binding.Definitions) error {
	return defs.Register(binding.DefaultSubKey, func(s *binding.Schema) {
		s.Required("value", binding.Any)
	})
}

// Build implements snapshot.Kind.
func (k AverageArtistPrice) Build(ctx context.Context, snap *snapshot.Snapshot) error {
	if k.Source == nil {
		return errors.New("demo: average artist price has no source store")
	}
	artworks, err := LoadArtworks(ctx, k.Source)
	if err != nil {
		return err
	}

	type acc struct {
		count int64
		sum   int64
	}
	byArtist := make(map[string]*acc)
	for _, a := range artworks {
		s, ok := byArtist[a.Artist]
		if !ok {
			s = &acc{}
			byArtist[a.Artist] = s
		}
		s.count++
		s.sum += a.Price
	}
	artists := make([]string, 0, len(byArtist))
	for name := range byArtist {
		artists = append(artists, name)
	}
	sort.Strings(artists)

	docs := make([]docstore.Document, 0, len(artists))
	for _, name := range artists {
		s := byArtist[name]
		docs = append(docs, docstore.Document{
			docstore.IDField: name,
			"value":          map[string]any{"count": s.count, "sum": s.sum},
		})
	}

	b, err := snap.Document(ctx, binding.DefaultSubKey)
	if err != nil || len(docs) == 0 {
		return err
	}
	_, err = b.InsertMany(ctx, docs)
	return err
}

// Stats returns every aggregated artist of snap, ordered by name.
func (AverageArtistPrice) Stats(ctx context.Context, snap *snapshot.Snapshot) ([]PriceStat, error) {
	b, err := snap.Document(ctx, binding.DefaultSubKey)
	if err != nil {
		return nil, err
	}
	return binding.FindAs[PriceStat](ctx, b, docstore.NewQuery().Sort(docstore.IDField, docstore.Asc))
}

// AveragePrice returns the average price of artist's works in snap.
func (AverageArtistPrice) AveragePrice(ctx context.Context, snap *snapshot.Snapshot, artist string) (float64, error) {
	b, err := snap.Document(ctx, binding.DefaultSubKey)
	if err != nil {
		return 0, err
	}
	doc, err := b.FindOne(ctx, docstore.ByID(artist))
	if err != nil {
		if errors.Is(err, errcode.ErrNotFound) {
			return 0, errcode.ErrNotFound.WithDetailf("artist %q in snapshot %s", artist, snap.Slug)
		}
		return 0, err
	}
	stat, err := binding.Decode[PriceStat](doc)
	if err != nil {
		return 0, fmt.Errorf("demo: decode %s: %w", artist, err)
	}
	return stat.Average(), nil
}
