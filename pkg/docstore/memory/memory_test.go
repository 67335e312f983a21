package memory

import (
	"context"
	"testing"

	"github.com/yndnr/collsnap/pkg/docstore"
	"github.com/yndnr/collsnap/pkg/docstore/storetest"
)

func TestConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) docstore.Store {
		s := New()
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestDocumentsAreCopied(t *testing.T) {
	ctx := context.Background()
	s := New()
	c := s.Collection("c")

	in := docstore.Document{"_id": "x", "nested": map[string]any{"n": 1}}
	if _, err := c.Insert(ctx, in); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	in["nested"].(map[string]any)["n"] = 2

	got, _ := c.FindOne(ctx, docstore.ByID("x"))
	if v, _ := got.Get("nested.n"); v != 1 {
		t.Fatalf("stored value changed through caller map: %v", v)
	}

	got["extra"] = true
	again, _ := c.FindOne(ctx, docstore.ByID("x"))
	if _, ok := again["extra"]; ok {
		t.Fatal("stored document changed through returned map")
	}
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New().Collection("c").Insert(ctx, docstore.Document{}); err == nil {
		t.Fatal("Insert with cancelled context succeeded")
	}
}
