// Package slug generates the unique, URL-safe identifiers that name
// snapshot collections.
//
// Slugs never contain the collection name separator, so they always form
// exactly one segment of a collection name.
package slug

import (
	"context"
	"strconv"
	"strings"
	"unicode"

	"github.com/oklog/ulid/v2"
)

// Func generates a slug for a record of the given base name.
type Func func(ctx context.Context, base string) (string, error)

// New returns the default generator: the slugified base name followed by a
// lowercase ULID, e.g. "snapshot-01hx3k...". Successive slugs from one
// process sort in creation order.
func New() Func {
	return func(_ context.Context, base string) (string, error) {
		id := strings.ToLower(ulid.Make().String())
		prefix := Slugify(base)
		if prefix == "" {
			return id, nil
		}
		return prefix + "-" + id, nil
	}
}

// Slugify lowercases s and collapses every run of characters outside
// [a-z0-9] into a single hyphen, trimming hyphens at both ends.
func Slugify(s string) string {
	var b strings.Builder
	pendingHyphen := false
	for _, r := range strings.ToLower(s) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
			continue
		}
		pendingHyphen = true
	}
	return b.String()
}

// Sequence returns a generator yielding base, base-1, base-2, ... for
// hosts that prefer readable slugs. taken reports whether a candidate is
// already used; it is consulted until a free candidate is found.
func Sequence(taken func(ctx context.Context, slug string) (bool, error)) Func {
	return func(ctx context.Context, base string) (string, error) {
		root := Slugify(base)
		if root == "" {
			root = "snapshot"
		}
		candidate := root
		for n := 1; ; n++ {
			used, err := taken(ctx, candidate)
			if err != nil {
				return "", err
			}
			if !used {
				return candidate, nil
			}
			candidate = root + "-" + strconv.Itoa(n)
		}
	}
}
