// Package storage opens the configured document stores.
//
// Open builds one docstore.Store from a config.StorageSection. Routes
// builds the snapshot router: base names listed under `routes` get their
// own store, opened lazily on first use; all others share the default
// store.
package storage
