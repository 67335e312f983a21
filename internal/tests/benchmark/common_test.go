package benchmark

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/yndnr/collsnap/internal/demo"
	"github.com/yndnr/collsnap/internal/telemetry/logger"
	"github.com/yndnr/collsnap/pkg/docstore"
	"github.com/yndnr/collsnap/pkg/docstore/badgerstore"
	"github.com/yndnr/collsnap/pkg/docstore/memory"
	"github.com/yndnr/collsnap/pkg/docstore/sqlitestore"
)

// ArtworkCounts are the source sizes benchmarked.
var ArtworkCounts = []int{100, 1000, 10000}

// backends opens each store kind in a fresh location.
var backends = map[string]func(b *testing.B) docstore.Store{
	"memory": func(b *testing.B) docstore.Store {
		return memory.New()
	},
	"badger": func(b *testing.B) docstore.Store {
		cfg := badgerstore.DefaultConfig("")
		cfg.InMemory = true
		s, err := badgerstore.Open(cfg, logger.Discard())
		if err != nil {
			b.Fatalf("open badger: %v", err)
		}
		return s
	},
	"sqlite": func(b *testing.B) docstore.Store {
		s, err := sqlitestore.Open(filepath.Join(b.TempDir(), "bench.db"))
		if err != nil {
			b.Fatalf("open sqlite: %v", err)
		}
		return s
	},
}

// prefillArtworks seeds count artworks spread over 50 artists.
func prefillArtworks(b *testing.B, store docstore.Store, count int) {
	b.Helper()
	artworks := make([]demo.Artwork, count)
	for i := range artworks {
		artworks[i] = demo.Artwork{
			Name:   fmt.Sprintf("work-%d", i),
			Artist: fmt.Sprintf("artist-%d", i%50),
			Price:  int64(1000 + i),
		}
	}
	if err := demo.SeedArtworks(context.Background(), store, artworks); err != nil {
		b.Fatalf("seed: %v", err)
	}
}

// reportMemory reports memory usage.
func reportMemory(b *testing.B, prefix string) {
	var m runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&m)
	b.ReportMetric(float64(m.Alloc)/(1024*1024), prefix+"_MB")
	b.ReportMetric(float64(m.NumGC), prefix+"_GC")
}

// runWithBackends runs benchFn for every backend and artwork count.
func runWithBackends(b *testing.B, counts []int, benchFn func(b *testing.B, store docstore.Store, count int)) {
	for name, open := range backends {
		for _, count := range counts {
			b.Run(fmt.Sprintf("%s/artworks_%d", name, count), func(b *testing.B) {
				store := open(b)
				defer store.Close()
				benchFn(b, store, count)
			})
		}
	}
}
