// Package naming maps snapshot identities to physical collection names and
// back.
//
// A snapshot owns collections named "{base}.{slug}" (the default
// collection) and "{base}.{subKey}.{slug}" (named sub-collections). Both
// base and slug are matched as literal text, so dots or regex
// metacharacters in a base name never widen a match.
package naming

import (
	"regexp"
	"strings"
)

// Separator joins the parts of a collection name.
const Separator = "."

// CollectionName returns the physical collection name for a snapshot.
// An empty subKey selects the default collection.
func CollectionName(base, slug, subKey string) string {
	if subKey == "" {
		return base + Separator + slug
	}
	return base + Separator + subKey + Separator + slug
}

// Pattern matches the collections owned by exactly one snapshot.
type Pattern struct {
	re *regexp.Regexp
}

// MatchPattern returns the pattern for collections owned by the snapshot
// (base, slug): "{base}.{slug}" and "{base}.{x}.{slug}" where x is a single
// segment without dots.
func MatchPattern(base, slug string) *Pattern {
	expr := "^" + regexp.QuoteMeta(base) + `\.([^.]+\.)?` + regexp.QuoteMeta(slug) + "$"
	return &Pattern{re: regexp.MustCompile(expr)}
}

// Match reports whether name belongs to the snapshot.
func (p *Pattern) Match(name string) bool {
	return p.re.MatchString(name)
}

// Filter returns the names that match, preserving order.
func (p *Pattern) Filter(names []string) []string {
	var out []string
	for _, n := range names {
		if p.Match(n) {
			out = append(out, n)
		}
	}
	return out
}

// String returns the underlying regular expression.
func (p *Pattern) String() string {
	return p.re.String()
}

// Parse splits a collection name under base into its sub-key and slug.
// It accepts exactly the shapes produced by CollectionName and reports
// false for anything else, including the bare base name.
func Parse(base, name string) (subKey, slug string, ok bool) {
	rest, found := strings.CutPrefix(name, base+Separator)
	if !found || rest == "" {
		return "", "", false
	}
	parts := strings.Split(rest, Separator)
	switch len(parts) {
	case 1:
		return "", parts[0], true
	case 2:
		if parts[0] == "" || parts[1] == "" {
			return "", "", false
		}
		return parts[0], parts[1], true
	default:
		return "", "", false
	}
}

// ValidSegment reports whether s can be used as a sub-key or slug: it must
// be non-empty and contain no separator.
func ValidSegment(s string) bool {
	return s != "" && !strings.Contains(s, Separator)
}
