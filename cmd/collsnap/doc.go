// Command collsnap manages snapshot collections: versioned copies of
// derived data that are built in full, committed atomically and retired
// once a newer set of snapshots exists.
//
// Usage:
//
//	collsnap [global flags] command [flags] [arguments]
//	collsnap demo seed
//	collsnap snapshots create average_artist_prices
//	collsnap -o json snapshots list average_artist_prices
//	collsnap schedule --interval 1h average_artist_prices
package main
