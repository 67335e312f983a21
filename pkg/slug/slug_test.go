package slug

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/yndnr/collsnap/pkg/naming"
)

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"snapshot":              "snapshot",
		"Average Artist Prices": "average-artist-prices",
		"multi.collection":      "multi-collection",
		"  --x__y--  ":          "x-y",
		"Über":                  "ber",
		"":                      "",
	}
	for in, want := range tests {
		if got := Slugify(in); got != want {
			t.Errorf("Slugify(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNew(t *testing.T) {
	gen := New()
	ctx := context.Background()

	seen := make(map[string]bool)
	prev := ""
	for i := 0; i < 200; i++ {
		s, err := gen(ctx, "snapshot")
		if err != nil {
			t.Fatalf("gen: %v", err)
		}
		if !strings.HasPrefix(s, "snapshot-") {
			t.Fatalf("slug %q lacks base prefix", s)
		}
		if !naming.ValidSegment(s) {
			t.Fatalf("slug %q is not a valid collection name segment", s)
		}
		if s != strings.ToLower(s) {
			t.Fatalf("slug %q is not lowercase", s)
		}
		if seen[s] {
			t.Fatalf("duplicate slug %q", s)
		}
		if s <= prev {
			t.Fatalf("slug %q sorts before %q", s, prev)
		}
		seen[s] = true
		prev = s
	}

	bare, _ := gen(ctx, "...")
	if strings.HasPrefix(bare, "-") || bare == "" {
		t.Errorf("slug for symbol-only base = %q", bare)
	}
}

func TestSequence(t *testing.T) {
	used := map[string]bool{"report": true, "report-1": true}
	gen := Sequence(func(_ context.Context, s string) (bool, error) {
		return used[s], nil
	})

	got, err := gen(context.Background(), "Report")
	if err != nil || got != "report-2" {
		t.Fatalf("Sequence() = (%q, %v), want report-2", got, err)
	}

	boom := errors.New("store down")
	failing := Sequence(func(context.Context, string) (bool, error) { return false, boom })
	if _, err := failing(context.Background(), "x"); !errors.Is(err, boom) {
		t.Errorf("Sequence error = %v, want %v", err, boom)
	}
}
