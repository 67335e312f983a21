// Package demo contains example snapshot kinds used by the collsnap CLI and
// by end-to-end tests.
//
//   - AverageArtistPrice aggregates the artworks collection into per-artist
//     price sums and counts.
//   - MultiCollection writes three typed sub-collections.
//   - CustomConnection keeps its collections in a separate store.
package demo
