// Package docstore is the thin document-store client collsnap builds on.
//
// A Store is a namespace of named collections. Collections come into
// existence with their first insert and disappear when dropped, the way a
// MongoDB database behaves; ListCollections reports only the collections
// that currently exist. Documents are plain maps keyed by field name, with
// the string "_id" field as the primary key.
//
// Backends live in sub-packages:
//
//   - memory: in-process, for tests and ephemeral use
//   - badgerstore: embedded, persistent (Badger v3)
//   - sqlitestore: embedded, single file (SQLite)
//   - mongostore: MongoDB
//
// The storetest sub-package holds the conformance suite every backend runs.
package docstore
