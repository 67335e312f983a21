package demo

import (
	"context"
	"fmt"

	"github.com/yndnr/collsnap/pkg/binding"
	"github.com/yndnr/collsnap/pkg/docstore"
)

// ArtworksCollection holds the source data for AverageArtistPrice.
const ArtworksCollection = "artworks"

// Artwork is one priced work of an artist.
type Artwork struct {
	ID     string `doc:"_id"`
	Name   string `doc:"name"`
	Artist string `doc:"artist"`
	Price  int64  `doc:"price"`
}

func (a Artwork) document() docstore.Document {
	d := docstore.Document{"name": a.Name, "artist": a.Artist, "price": a.Price}
	if a.ID != "" {
		d[docstore.IDField] = a.ID
	}
	return d
}

// SampleArtworks is the seed data of `collsnap demo seed`.
var SampleArtworks = []Artwork{
	{Name: "Flowers", Artist: "ArtistA", Price: 3_000_000},
	{Name: "Guns", Artist: "ArtistA", Price: 1_000_000},
	{Name: "Vinblastine", Artist: "ArtistB", Price: 1_500_000},
}

// SeedArtworks inserts artworks into the artworks collection of store.
func SeedArtworks(ctx context.Context, store docstore.Store, artworks []Artwork) error {
	docs := make([]docstore.Document, len(artworks))
	for i, a := range artworks {
		docs[i] = a.document()
	}
	if _, err := store.Collection(ArtworksCollection).InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("demo: seed artworks: %w", err)
	}
	return nil
}

// LoadArtworks returns every artwork in store.
func LoadArtworks(ctx context.Context, store docstore.Store) ([]Artwork, error) {
	docs, err := store.Collection(ArtworksCollection).Find(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("demo: load artworks: %w", err)
	}
	return binding.DecodeAll[Artwork](docs)
}
