// Package records persists snapshot records in a document store.
//
// A Repository owns one collection (named after the record type's base
// name) and runs lifecycle hooks around creation and destruction: before
// create, after create and before destroy. A failing before-hook aborts
// the operation; a failing after-create hook is reported but the record
// stays committed.
package records

import (
	"fmt"
	"time"

	"github.com/yndnr/collsnap/pkg/docstore"
)

// Document field names.
const (
	FieldBaseName       = "base_name"
	FieldSlug           = "slug"
	FieldRetentionLimit = "retention_limit"
	FieldCreatedAt      = "created_at"
	FieldCommitID       = "commit_id"
)

// Record is one committed snapshot.
type Record struct {
	ID             string
	BaseName       string
	Slug           string
	RetentionLimit int
	CreatedAt      time.Time

	// CommitID is assigned at commit and orders records whose CreatedAt
	// values are equal.
	CommitID string
}

// String returns "base/slug".
func (r *Record) String() string {
	return r.BaseName + "/" + r.Slug
}

// Newer reports whether r sorts before o in newest-first order.
func (r *Record) Newer(o *Record) bool {
	if !r.CreatedAt.Equal(o.CreatedAt) {
		return r.CreatedAt.After(o.CreatedAt)
	}
	if r.CommitID != o.CommitID {
		return r.CommitID > o.CommitID
	}
	return r.ID > o.ID
}

func (r *Record) toDocument() docstore.Document {
	return docstore.Document{
		docstore.IDField:    r.ID,
		FieldBaseName:       r.BaseName,
		FieldSlug:           r.Slug,
		FieldRetentionLimit: r.RetentionLimit,
		FieldCreatedAt:      r.CreatedAt.UnixMilli(),
		FieldCommitID:       r.CommitID,
	}
}

func fromDocument(d docstore.Document) (*Record, error) {
	r := &Record{ID: d.ID()}
	r.BaseName, _ = d[FieldBaseName].(string)
	r.Slug, _ = d[FieldSlug].(string)
	r.CommitID, _ = d[FieldCommitID].(string)

	limit, ok := docstore.ToInt64(d[FieldRetentionLimit])
	if !ok {
		return nil, fmt.Errorf("records: %s has invalid %s %v", r.ID, FieldRetentionLimit, d[FieldRetentionLimit])
	}
	r.RetentionLimit = int(limit)

	ms, ok := docstore.ToInt64(d[FieldCreatedAt])
	if !ok {
		return nil, fmt.Errorf("records: %s has invalid %s %v", r.ID, FieldCreatedAt, d[FieldCreatedAt])
	}
	r.CreatedAt = time.UnixMilli(ms).UTC()

	if r.ID == "" || r.Slug == "" {
		return nil, fmt.Errorf("records: malformed record document %v", d)
	}
	return r, nil
}
