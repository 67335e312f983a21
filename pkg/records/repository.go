package records

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/yndnr/collsnap/pkg/docstore"
	"github.com/yndnr/collsnap/pkg/errcode"
	"github.com/yndnr/collsnap/pkg/slug"
)

// DefaultResolution is the precision of stored creation timestamps.
const DefaultResolution = time.Millisecond

// Hook runs at a lifecycle point of a record.
type Hook func(ctx context.Context, rec *Record) error

// Option configures a Repository.
type Option func(*Repository)

// WithSlugFunc replaces the slug generator.
func WithSlugFunc(fn slug.Func) Option {
	return func(r *Repository) { r.slugs = fn }
}

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(r *Repository) { r.now = now }
}

// WithResolution truncates creation timestamps to d. Values below a
// millisecond are raised to a millisecond, the storage precision.
func WithResolution(d time.Duration) Option {
	return func(r *Repository) {
		if d < time.Millisecond {
			d = time.Millisecond
		}
		r.resolution = d
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Repository) { r.logger = l }
}

// Repository stores the records of one base name.
type Repository struct {
	store      docstore.Store
	coll       docstore.Collection
	baseName   string
	slugs      slug.Func
	now        func() time.Time
	resolution time.Duration
	logger     *slog.Logger

	// createMu serializes the slug check and insert within this process.
	createMu sync.Mutex

	indexMu    sync.Mutex
	indexReady bool

	hooksMu       sync.RWMutex
	beforeCreate  []Hook
	afterCreate   []Hook
	beforeDestroy []Hook
}

// New returns a repository for baseName whose records live in the
// collection of the same name on store.
func New(store docstore.Store, baseName string, opts ...Option) *Repository {
	r := &Repository{
		store:      store,
		coll:       store.Collection(baseName),
		baseName:   baseName,
		slugs:      slug.New(),
		now:        time.Now,
		resolution: DefaultResolution,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// BaseName returns the base name the repository serves.
func (r *Repository) BaseName() string { return r.baseName }

// Store returns the store holding the records.
func (r *Repository) Store() docstore.Store { return r.store }

// BeforeCreate registers h to run after the slug is assigned and before the
// record is inserted. An error aborts creation.
func (r *Repository) BeforeCreate(h Hook) {
	r.hooksMu.Lock()
	defer r.hooksMu.Unlock()
	r.beforeCreate = append(r.beforeCreate, h)
}

// AfterCreate registers h to run once the record is committed.
func (r *Repository) AfterCreate(h Hook) {
	r.hooksMu.Lock()
	defer r.hooksMu.Unlock()
	r.afterCreate = append(r.afterCreate, h)
}

// BeforeDestroy registers h to run before a record is removed. An error
// aborts destruction and leaves the record in place.
func (r *Repository) BeforeDestroy(h Hook) {
	r.hooksMu.Lock()
	defer r.hooksMu.Unlock()
	r.beforeDestroy = append(r.beforeDestroy, h)
}

func (r *Repository) hooks(list *[]Hook) []Hook {
	r.hooksMu.RLock()
	defer r.hooksMu.RUnlock()
	return append([]Hook(nil), (*list)...)
}

// Create assigns a slug, runs the before-create hooks, commits the record
// and runs the after-create hooks.
//
// A slug that is already taken fails with errcode.ErrSlugCollision before
// any hook runs. Errors from before-create hooks are returned unchanged
// and nothing is stored. Errors from after-create hooks are returned
// together with the committed record.
func (r *Repository) Create(ctx context.Context, retentionLimit int) (*Record, error) {
	if err := r.ensureIndex(ctx); err != nil {
		return nil, err
	}

	s, err := r.slugs(ctx, r.baseName)
	if err != nil {
		return nil, fmt.Errorf("records: generate slug: %w", err)
	}
	rec := &Record{
		ID:             docstore.NewID(),
		BaseName:       r.baseName,
		Slug:           s,
		RetentionLimit: retentionLimit,
	}

	if err := r.checkSlug(ctx, s); err != nil {
		return nil, err
	}

	for _, h := range r.hooks(&r.beforeCreate) {
		if err := h(ctx, rec); err != nil {
			return nil, err
		}
	}

	if err := r.insert(ctx, rec); err != nil {
		return nil, err
	}
	r.logger.Debug("record committed", "base_name", r.baseName, "slug", rec.Slug, "id", rec.ID)

	var errs []error
	for _, h := range r.hooks(&r.afterCreate) {
		if err := h(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return rec, errors.Join(errs...)
}

func (r *Repository) insert(ctx context.Context, rec *Record) error {
	r.createMu.Lock()
	defer r.createMu.Unlock()

	// The build may have run for a while; re-check under the lock.
	if err := r.checkSlug(ctx, rec.Slug); err != nil {
		return err
	}
	rec.CreatedAt = r.now().UTC().Truncate(r.resolution)
	rec.CommitID = docstore.NewID()

	_, err := r.coll.Insert(ctx, rec.toDocument())
	if errors.Is(err, errcode.ErrDuplicateKey) {
		return r.collision(rec.Slug).WithCause(err)
	}
	if err != nil {
		return fmt.Errorf("records: insert %s: %w", rec, err)
	}
	return nil
}

func (r *Repository) checkSlug(ctx context.Context, s string) error {
	n, err := r.coll.Count(ctx, r.query().Eq(FieldSlug, s))
	if err != nil {
		return fmt.Errorf("records: check slug: %w", err)
	}
	if n > 0 {
		return r.collision(s)
	}
	return nil
}

func (r *Repository) collision(s string) *errcode.Error {
	return errcode.ErrSlugCollision.WithDetailf("base_name=%s slug=%s", r.baseName, s)
}

func (r *Repository) ensureIndex(ctx context.Context) error {
	ix, ok := r.store.(docstore.UniqueIndexer)
	if !ok {
		return nil
	}
	r.indexMu.Lock()
	defer r.indexMu.Unlock()
	if r.indexReady {
		return nil
	}
	if err := ix.EnsureUnique(ctx, r.baseName, FieldSlug); err != nil {
		return fmt.Errorf("records: ensure slug index: %w", err)
	}
	r.indexReady = true
	return nil
}

func (r *Repository) query() *docstore.Query {
	return docstore.NewQuery().Eq(FieldBaseName, r.baseName)
}

func (r *Repository) ordered() *docstore.Query {
	return r.query().
		Sort(FieldCreatedAt, docstore.Desc).
		Sort(FieldCommitID, docstore.Desc).
		Sort(docstore.IDField, docstore.Desc)
}

// Ordered returns all records newest first: creation time descending, then
// commit order descending.
func (r *Repository) Ordered(ctx context.Context) ([]*Record, error) {
	return r.find(ctx, r.ordered())
}

// Latest returns the newest record, or nil when there is none.
func (r *Repository) Latest(ctx context.Context) (*Record, error) {
	recs, err := r.find(ctx, r.ordered().WithLimit(1))
	if err != nil || len(recs) == 0 {
		return nil, err
	}
	return recs[0], nil
}

// Count returns the number of records.
func (r *Repository) Count(ctx context.Context) (int64, error) {
	n, err := r.coll.Count(ctx, r.query())
	if err != nil {
		return 0, fmt.Errorf("records: count: %w", err)
	}
	return n, nil
}

// Get returns the record with id or errcode.ErrNotFound.
func (r *Repository) Get(ctx context.Context, id string) (*Record, error) {
	return r.findOne(ctx, r.query().Eq(docstore.IDField, id))
}

// BySlug returns the record with slug s or errcode.ErrNotFound.
func (r *Repository) BySlug(ctx context.Context, s string) (*Record, error) {
	return r.findOne(ctx, r.query().Eq(FieldSlug, s))
}

// Destroy runs the before-destroy hooks and removes rec. It reports
// whether a stored record was removed; destroying a record that no longer
// exists is a no-op.
func (r *Repository) Destroy(ctx context.Context, rec *Record) (bool, error) {
	if _, err := r.Get(ctx, rec.ID); err != nil {
		if errors.Is(err, errcode.ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	for _, h := range r.hooks(&r.beforeDestroy) {
		if err := h(ctx, rec); err != nil {
			return false, err
		}
	}

	n, err := r.coll.DeleteMany(ctx, docstore.ByID(rec.ID))
	if err != nil {
		return false, fmt.Errorf("records: delete %s: %w", rec, err)
	}
	r.logger.Debug("record removed", "base_name", r.baseName, "slug", rec.Slug, "id", rec.ID)
	return n > 0, nil
}

func (r *Repository) find(ctx context.Context, q *docstore.Query) ([]*Record, error) {
	docs, err := r.coll.Find(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("records: list %s: %w", r.baseName, err)
	}
	out := make([]*Record, 0, len(docs))
	for _, d := range docs {
		rec, err := fromDocument(d)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (r *Repository) findOne(ctx context.Context, q *docstore.Query) (*Record, error) {
	d, err := r.coll.FindOne(ctx, q)
	if err != nil {
		if errors.Is(err, errcode.ErrNotFound) {
			return nil, errcode.ErrNotFound.WithDetailf("base_name=%s", r.baseName)
		}
		return nil, fmt.Errorf("records: get: %w", err)
	}
	return fromDocument(d)
}
