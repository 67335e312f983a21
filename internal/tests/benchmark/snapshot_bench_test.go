package benchmark

import (
	"context"
	"testing"

	"github.com/yndnr/collsnap/internal/demo"
	"github.com/yndnr/collsnap/internal/telemetry/logger"
	"github.com/yndnr/collsnap/pkg/docstore"
	"github.com/yndnr/collsnap/pkg/snapshot"
)

func newController(b *testing.B, kind snapshot.Kind, store docstore.Store) *snapshot.Controller {
	b.Helper()
	ctl, err := snapshot.NewController(kind, store, snapshot.WithLogger(logger.Discard()))
	if err != nil {
		b.Fatalf("NewController: %v", err)
	}
	return ctl
}

// BenchmarkSnapshotCreate measures a full create: aggregate, commit and
// sweep the snapshot beyond the limit.
func BenchmarkSnapshotCreate(b *testing.B) {
	runWithBackends(b, ArtworkCounts, func(b *testing.B, store docstore.Store, count int) {
		ctx := context.Background()
		prefillArtworks(b, store, count)
		ctl := newController(b, demo.AverageArtistPrice{Source: store}, store)

		b.ResetTimer()
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			if _, err := ctl.Create(ctx); err != nil {
				b.Fatalf("Create: %v", err)
			}
		}
		b.StopTimer()
		reportMemory(b, "mem")
	})
}

// BenchmarkSnapshotLatest measures finding the newest snapshot and reading
// one aggregate from it.
func BenchmarkSnapshotLatest(b *testing.B) {
	runWithBackends(b, []int{1000}, func(b *testing.B, store docstore.Store, count int) {
		ctx := context.Background()
		prefillArtworks(b, store, count)
		kind := demo.AverageArtistPrice{Source: store}
		ctl := newController(b, kind, store)
		for i := 0; i < 2; i++ {
			if _, err := ctl.Create(ctx); err != nil {
				b.Fatalf("Create: %v", err)
			}
		}

		b.ResetTimer()
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			snap, err := ctl.Latest(ctx)
			if err != nil {
				b.Fatalf("Latest: %v", err)
			}
			if _, err := kind.AveragePrice(ctx, snap, "artist-7"); err != nil {
				b.Fatalf("AveragePrice: %v", err)
			}
		}
	})
}

// BenchmarkSnapshotDestroy measures destroying a snapshot with three
// sub-collections.
func BenchmarkSnapshotDestroy(b *testing.B) {
	runWithBackends(b, []int{0}, func(b *testing.B, store docstore.Store, _ int) {
		ctx := context.Background()
		ctl := newController(b, demo.MultiCollection{}, store)

		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			b.StopTimer()
			snap, err := ctl.Create(ctx)
			if err != nil {
				b.Fatalf("Create: %v", err)
			}
			b.StartTimer()
			if err := ctl.Destroy(ctx, snap.Record); err != nil {
				b.Fatalf("Destroy: %v", err)
			}
		}
	})
}
