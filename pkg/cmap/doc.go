// Package cmap provides a sharded concurrent map.
//
// Keys are spread over a power-of-two number of shards by a murmur3 hash,
// each shard guarded by its own RWMutex. Compute runs a constructor under the
// shard lock, which makes it suitable for memoizing expensive handles (open
// store connections, collection state) that must be created at most once.
//
// Usage:
//
//	m := cmap.New[string, *collection]()
//	c, err := m.Compute("artworks", func(old *collection, ok bool) (*collection, error) {
//		if ok {
//			return old, nil
//		}
//		return newCollection("artworks"), nil
//	})
package cmap
