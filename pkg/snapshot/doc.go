// Package snapshot manages versioned derived-data collections.
//
// A Controller serves one snapshot kind (one base name). Each Create call
// runs the kind's build against freshly named collections, commits a
// record for the run, and then evicts the runs that fall outside the
// retention limit. Destroying a run drops every collection whose name
// matches the run's slug:
//
//	{base}.{slug}            default collection
//	{base}.{subKey}.{slug}   named sub-collection
//
// Retention is eventual: concurrent creates may leave more than the limit
// for a moment, and the next successful create converges it again. A
// reader holding an older snapshot keeps working until that snapshot is
// evicted.
//
// Usage:
//
//	ctl, err := snapshot.NewController(kind, store,
//		snapshot.WithBindings(registry),
//		snapshot.WithLogger(logger))
//	snap, err := ctl.Create(ctx)
//	latest, err := ctl.Latest(ctx)
package snapshot
