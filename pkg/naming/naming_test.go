package naming

import (
	"reflect"
	"testing"
)

func TestCollectionName(t *testing.T) {
	tests := []struct {
		base, slug, subKey string
		want               string
	}{
		{"artworks", "abc123", "", "artworks.abc123"},
		{"artworks", "abc123", "foo", "artworks.foo.abc123"},
		{"average_artist_prices", "snapshot-01j", "", "average_artist_prices.snapshot-01j"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := CollectionName(tt.base, tt.slug, tt.subKey); got != tt.want {
				t.Errorf("CollectionName(%q, %q, %q) = %q, want %q", tt.base, tt.slug, tt.subKey, got, tt.want)
			}
		})
	}
}

func TestRoundTrip(t *testing.T) {
	p := MatchPattern("artworks", "abc123")
	for _, subKey := range []string{"", "foo", "bar_baz", "x-1"} {
		name := CollectionName("artworks", "abc123", subKey)
		if !p.Match(name) {
			t.Errorf("pattern %s does not match %q", p, name)
		}
		gotSub, gotSlug, ok := Parse("artworks", name)
		if !ok || gotSub != subKey || gotSlug != "abc123" {
			t.Errorf("Parse(%q) = (%q, %q, %v), want (%q, abc123, true)", name, gotSub, gotSlug, ok, subKey)
		}
	}
}

func TestMatchPattern_CascadingCleanup(t *testing.T) {
	names := []string{
		"artworks.do.not_delete",
		"artworks.snapshorty",
		"artworks.hello.1",
		"artworks.abc123",
		"artworks.foo.abc123",
	}

	got := MatchPattern("artworks", "abc123").Filter(names)
	want := []string{"artworks.abc123", "artworks.foo.abc123"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Filter() = %v, want %v", got, want)
	}
}

func TestMatchPattern_Rejects(t *testing.T) {
	p := MatchPattern("artworks", "abc123")
	for _, name := range []string{
		"artworks",
		"artworks.abc1234",
		"artworks.xabc123",
		"artworks.a.b.abc123",
		"artworks..abc123",
		"other.abc123",
		"xartworks.abc123",
		"artworks.abc123.foo",
	} {
		if p.Match(name) {
			t.Errorf("pattern %s matched %q", p, name)
		}
	}
}

func TestMatchPattern_QuotesMetacharacters(t *testing.T) {
	p := MatchPattern("a.b", "s+1")
	if !p.Match("a.b.s+1") {
		t.Error("literal name not matched")
	}
	if p.Match("axb.s+1") {
		t.Error("dot in base matched an arbitrary character")
	}
	if p.Match("a.b.ss1") {
		t.Error("plus in slug treated as a quantifier")
	}
}

func TestParse_Rejects(t *testing.T) {
	for _, name := range []string{"artworks", "artworks.", "artworks.a.b.c", "artworks..x", "other.x"} {
		if _, _, ok := Parse("artworks", name); ok {
			t.Errorf("Parse(%q) ok = true, want false", name)
		}
	}
}

func TestValidSegment(t *testing.T) {
	tests := map[string]bool{"foo": true, "": false, "a.b": false, "snap-01": true}
	for in, want := range tests {
		if got := ValidSegment(in); got != want {
			t.Errorf("ValidSegment(%q) = %v, want %v", in, got, want)
		}
	}
}
