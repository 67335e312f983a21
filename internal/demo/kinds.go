package demo

import (
	"sort"

	"github.com/yndnr/collsnap/pkg/docstore"
	"github.com/yndnr/collsnap/pkg/snapshot"
)

// Kinds returns the demo kinds keyed by base name. source holds the
// artworks; custom opens the store for CustomConnection.
func Kinds(source docstore.Store, custom snapshot.Opener) map[string]snapshot.Kind {
	kinds := []snapshot.Kind{
		AverageArtistPrice{Source: source},
		MultiCollection{},
		CustomConnection{Open: custom},
	}
	out := make(map[string]snapshot.Kind, len(kinds))
	for _, k := range kinds {
		out[k.BaseName()] = k
	}
	return out
}

// KindNames returns the base names of the demo kinds, sorted.
func KindNames() []string {
	names := make([]string, 0, 3)
	for name := range Kinds(nil, nil) {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
