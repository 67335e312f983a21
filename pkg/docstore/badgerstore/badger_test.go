package badgerstore

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/yndnr/collsnap/pkg/docstore"
	"github.com/yndnr/collsnap/pkg/docstore/storetest"
)

func openTestStore(t *testing.T, dir string) *Store {
	t.Helper()
	s, err := Open(DefaultConfig(dir), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return s
}

func TestConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) docstore.Store {
		s := openTestStore(t, t.TempDir())
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestInMemory(t *testing.T) {
	s, err := Open(Config{InMemory: true}, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	if _, err := s.Collection("c").Insert(context.Background(), docstore.Document{"n": 1}); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := s.GC(); err != nil {
		t.Fatalf("GC on in-memory store: %v", err)
	}
}

func TestCloseTwice(t *testing.T) {
	s, err := Open(Config{InMemory: true}, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close = %v, want nil", err)
	}
}

func TestOpenRequiresDir(t *testing.T) {
	if _, err := Open(Config{}, nil); err == nil {
		t.Fatal("Open without dir succeeded")
	}
}

func TestReopenKeepsCollections(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s := openTestStore(t, dir)
	if _, err := s.Collection("artworks.snap-1").Insert(ctx, docstore.Document{"_id": "a", "price": 1_000_000}); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s = openTestStore(t, dir)
	defer s.Close()

	names, err := s.ListCollections(ctx)
	if err != nil || len(names) != 1 || names[0] != "artworks.snap-1" {
		t.Fatalf("ListCollections() = (%v, %v), want [artworks.snap-1]", names, err)
	}
	doc, err := s.Collection("artworks.snap-1").FindOne(ctx, docstore.ByID("a"))
	if err != nil {
		t.Fatalf("FindOne: %v", err)
	}
	if doc["price"] != int64(1_000_000) {
		t.Errorf("price = %#v, want int64(1000000)", doc["price"])
	}
}

func TestRegisterMetrics(t *testing.T) {
	s := openTestStore(t, t.TempDir())
	defer s.Close()

	reg := prometheus.NewRegistry()
	if err := s.RegisterMetrics(reg); err != nil {
		t.Fatalf("RegisterMetrics: %v", err)
	}
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	if len(families) != 1 || len(families[0].GetMetric()) != 2 {
		t.Fatalf("gathered %d families, want 1 with 2 series", len(families))
	}
}
