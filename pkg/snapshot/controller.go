package snapshot

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/yndnr/collsnap/pkg/binding"
	"github.com/yndnr/collsnap/pkg/docstore"
	"github.com/yndnr/collsnap/pkg/errcode"
	"github.com/yndnr/collsnap/pkg/naming"
	"github.com/yndnr/collsnap/pkg/records"
	"github.com/yndnr/collsnap/pkg/retention"
)

// Option configures a Controller.
type Option func(*Controller)

// WithRouter sets the router for snapshot collections. By default they
// live in the same store as the records.
func WithRouter(r Router) Option {
	return func(c *Controller) { c.router = r }
}

// WithBindings shares a binding registry between controllers.
func WithBindings(reg *binding.Registry) Option {
	return func(c *Controller) { c.bindings = reg }
}

// WithMetrics records lifecycle metrics on m.
func WithMetrics(m *Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithRetentionLimit overrides the kind's retention limit.
func WithRetentionLimit(n int) Option {
	return func(c *Controller) { c.limit = n }
}

// WithDropLimiter paces collection drops during destroy and sweep.
func WithDropLimiter(l *rate.Limiter) Option {
	return func(c *Controller) { c.limiter = l }
}

// WithRecordOptions passes options to the record repository.
func WithRecordOptions(opts ...records.Option) Option {
	return func(c *Controller) { c.recordOpts = append(c.recordOpts, opts...) }
}

// Controller runs the lifecycle of one snapshot kind.
type Controller struct {
	kind       Kind
	baseName   string
	limit      int
	records    *records.Repository
	recordOpts []records.Option
	router     Router
	defs       *binding.Definitions
	bindings   *binding.Registry
	metrics    *Metrics
	logger     *slog.Logger
	limiter    *rate.Limiter
}

type buildKey struct{}

type buildState struct {
	fn   BuildFunc
	snap *Snapshot
}

// NewController returns a controller for kind whose records live in store.
func NewController(kind Kind, store docstore.Store, opts ...Option) (*Controller, error) {
	base := kind.BaseName()
	if base == "" {
		base = DefaultBaseName
	}
	if !naming.ValidSegment(base) {
		return nil, errcode.ErrInvalidArgument.WithDetailf("base name %q must not contain %q", base, naming.Separator)
	}

	c := &Controller{
		kind:     kind,
		baseName: base,
		limit:    retention.DefaultLimit,
		defs:     binding.NewDefinitions(),
		logger:   slog.Default(),
	}
	if rl, ok := kind.(RetentionLimiter); ok && rl.RetentionLimit() > 0 {
		c.limit = rl.RetentionLimit()
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.limit < 1 {
		return nil, errcode.ErrInvalidArgument.WithDetailf("retention limit %d must be positive", c.limit)
	}
	if c.router == nil {
		c.router = Static(store)
	}
	if c.bindings == nil {
		c.bindings = binding.NewRegistry()
	}
	c.logger = c.logger.With("base_name", base)

	if sp, ok := kind.(StoreProvider); ok {
		mr, isMap := c.router.(*MapRouter)
		if !isMap {
			mr = NewMapRouter(c.router)
			c.router = mr
		}
		mr.Override(base, sp.SnapshotStore)
	}
	if d, ok := kind.(Documenter); ok {
		if err := d.Documents(c.defs); err != nil {
			return nil, err
		}
	}

	recOpts := append([]records.Option{records.WithLogger(c.logger)}, c.recordOpts...)
	if sg, ok := kind.(SlugGenerator); ok {
		recOpts = append(recOpts, records.WithSlugFunc(sg.Slug))
	}
	c.records = records.New(store, base, recOpts...)
	c.records.BeforeCreate(c.build)
	c.records.AfterCreate(c.afterCreate)
	c.records.BeforeDestroy(c.dropCollections)

	return c, nil
}

// BaseName returns the kind's base name.
func (c *Controller) BaseName() string { return c.baseName }

// RetentionLimit returns the number of snapshots kept.
func (c *Controller) RetentionLimit() int { return c.limit }

// Definitions returns the kind's sub-key schemas.
func (c *Controller) Definitions() *binding.Definitions { return c.defs }

// Create builds and commits a new snapshot with the kind's Build.
func (c *Controller) Create(ctx context.Context) (*Snapshot, error) {
	return c.CreateWith(ctx, c.kind.Build)
}

// CreateWith builds and commits a new snapshot with build.
//
// Failures before commit (slug collision, build failure) return a nil
// snapshot; collections the build already wrote are left in place. A
// failing retention sweep after commit returns the committed snapshot
// together with an errcode.ErrRetentionSweep error.
func (c *Controller) CreateWith(ctx context.Context, build BuildFunc) (*Snapshot, error) {
	st := &buildState{fn: build}
	rec, err := c.records.Create(context.WithValue(ctx, buildKey{}, st), c.limit)
	if rec == nil {
		return nil, err
	}
	snap := st.snap
	if snap == nil {
		snap = newSnapshot(c, rec)
	}
	return snap, err
}

func (c *Controller) build(ctx context.Context, rec *records.Record) error {
	st, _ := ctx.Value(buildKey{}).(*buildState)
	if st == nil {
		st = &buildState{fn: c.kind.Build}
	}
	snap := newSnapshot(c, rec)
	st.snap = snap

	c.metrics.transition(c.baseName, StateBuilding)
	c.logger.Info("building snapshot", "slug", rec.Slug)

	started := time.Now()
	if err := st.fn(ctx, snap); err != nil {
		c.metrics.transition(c.baseName, StateFailed)
		touched := snap.Touched()
		c.logger.Error("snapshot build failed", "slug", rec.Slug, "collections", touched, "error", err)
		return errcode.ErrBuildFailure.
			WithDetailf("base_name=%s slug=%s collections=[%s]", c.baseName, rec.Slug, strings.Join(touched, ",")).
			WithCause(err)
	}
	c.metrics.buildObserved(c.baseName, time.Since(started))
	return nil
}

func (c *Controller) afterCreate(ctx context.Context, rec *records.Record) error {
	c.metrics.transition(c.baseName, StateCommitted)
	c.logger.Info("snapshot committed", "slug", rec.Slug, "created_at", rec.CreatedAt)

	var errs []error
	if err := c.sweep(ctx, rec.RetentionLimit, rec.ID); err != nil {
		errs = append(errs, err)
	}
	if obs, ok := c.kind.(CreatedObserver); ok {
		snap := newSnapshot(c, rec)
		if st, _ := ctx.Value(buildKey{}).(*buildState); st != nil && st.snap != nil {
			snap = st.snap
		}
		if err := obs.OnCreated(ctx, snap); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Sweep destroys every snapshot beyond the controller's retention limit.
func (c *Controller) Sweep(ctx context.Context) error {
	return c.sweep(ctx, c.limit, "")
}

// SweepPlan returns the snapshots Sweep would keep and evict.
func (c *Controller) SweepPlan(ctx context.Context) (retention.Plan[*records.Record], error) {
	ordered, err := c.records.Ordered(ctx)
	if err != nil {
		return retention.Plan[*records.Record]{}, err
	}
	return retention.PlanFor(ordered, c.limit), nil
}

// sweep destroys the records beyond limit. The record with id keep is
// never evicted, so a create cannot destroy the snapshot it returns; the
// next sweep picks it up if it is still beyond the limit.
func (c *Controller) sweep(ctx context.Context, limit int, keep string) error {
	ordered, err := c.records.Ordered(ctx)
	if err != nil {
		return errcode.ErrRetentionSweep.WithDetailf("base_name=%s", c.baseName).WithCause(err)
	}

	var failed []string
	var errs []error
	for _, rec := range retention.SelectForEviction(ordered, limit) {
		if rec.ID == keep {
			c.logger.Warn("newly committed snapshot ranks beyond the limit, keeping it", "slug", rec.Slug, "limit", limit)
			continue
		}
		removed, err := c.records.Destroy(ctx, rec)
		if err != nil {
			failed = append(failed, rec.Slug)
			errs = append(errs, err)
			continue
		}
		if !removed {
			continue
		}
		c.metrics.transition(c.baseName, StateEvicted)
		c.logger.Info("snapshot evicted", "slug", rec.Slug, "limit", limit)
	}
	if len(errs) > 0 {
		return errcode.ErrRetentionSweep.
			WithDetailf("base_name=%s slugs=[%s]", c.baseName, strings.Join(failed, ",")).
			WithCause(errors.Join(errs...))
	}
	return nil
}

// Destroy drops the snapshot's collections and removes its record.
// Destroying a snapshot that is already gone is a no-op. After a
// errcode.ErrDestroyFailure the record is kept, so calling Destroy again
// retries the remaining drops.
func (c *Controller) Destroy(ctx context.Context, rec *records.Record) error {
	removed, err := c.records.Destroy(ctx, rec)
	if err != nil || !removed {
		return err
	}
	c.metrics.transition(c.baseName, StateDestroyed)
	return nil
}

func (c *Controller) dropCollections(ctx context.Context, rec *records.Record) error {
	if obs, ok := c.kind.(DestroyObserver); ok {
		if err := obs.OnBeforeDestroy(ctx, newSnapshot(c, rec)); err != nil {
			return err
		}
	}

	store, err := c.router.Resolve(ctx, c.baseName)
	if err != nil {
		return errcode.ErrDestroyFailure.WithDetailf("base_name=%s slug=%s", c.baseName, rec.Slug).WithCause(err)
	}
	names, err := store.ListCollections(ctx)
	if err != nil {
		return errcode.ErrDestroyFailure.WithDetailf("base_name=%s slug=%s", c.baseName, rec.Slug).WithCause(err)
	}

	var failed []string
	var errs []error
	dropped := 0
	for _, name := range naming.MatchPattern(c.baseName, rec.Slug).Filter(names) {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				failed = append(failed, name)
				errs = append(errs, err)
				continue
			}
		}
		if err := store.Collection(name).Drop(ctx); err != nil {
			c.logger.Warn("drop collection failed", "slug", rec.Slug, "collection", name, "error", err)
			failed = append(failed, name)
			errs = append(errs, err)
			continue
		}
		dropped++
		c.logger.Debug("collection dropped", "slug", rec.Slug, "collection", name)
	}
	c.metrics.collectionsDropped(c.baseName, dropped)

	if len(errs) > 0 {
		c.metrics.destroyFailed(c.baseName)
		return errcode.ErrDestroyFailure.
			WithDetailf("base_name=%s slug=%s collections=[%s]", c.baseName, rec.Slug, strings.Join(failed, ",")).
			WithCause(errors.Join(errs...))
	}
	return nil
}

// Latest returns the newest committed snapshot, or nil when there is none.
func (c *Controller) Latest(ctx context.Context) (*Snapshot, error) {
	rec, err := c.records.Latest(ctx)
	if err != nil || rec == nil {
		return nil, err
	}
	return newSnapshot(c, rec), nil
}

// List returns all committed snapshots, newest first.
func (c *Controller) List(ctx context.Context) ([]*Snapshot, error) {
	recs, err := c.records.Ordered(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*Snapshot, len(recs))
	for i, r := range recs {
		out[i] = newSnapshot(c, r)
	}
	return out, nil
}

// Get returns the snapshot with slug or errcode.ErrNotFound.
func (c *Controller) Get(ctx context.Context, slug string) (*Snapshot, error) {
	rec, err := c.records.BySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	return newSnapshot(c, rec), nil
}

// Count returns the number of committed snapshots.
func (c *Controller) Count(ctx context.Context) (int64, error) {
	return c.records.Count(ctx)
}

// Orphans lists collections named like snapshots of this kind whose slug
// belongs to no committed snapshot, typically left behind by failed
// builds. Collections of a build still in progress are reported too.
func (c *Controller) Orphans(ctx context.Context) ([]string, error) {
	recs, err := c.records.Ordered(ctx)
	if err != nil {
		return nil, err
	}
	owned := make(map[string]bool, len(recs))
	for _, r := range recs {
		owned[r.Slug] = true
	}

	store, err := c.router.Resolve(ctx, c.baseName)
	if err != nil {
		return nil, err
	}
	names, err := store.ListCollections(ctx)
	if err != nil {
		return nil, err
	}

	var orphans []string
	for _, name := range names {
		if _, slug, ok := naming.Parse(c.baseName, name); ok && !owned[slug] {
			orphans = append(orphans, name)
		}
	}
	return orphans, nil
}
