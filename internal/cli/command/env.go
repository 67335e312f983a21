package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/time/rate"

	"github.com/yndnr/collsnap/internal/config"
	"github.com/yndnr/collsnap/internal/demo"
	"github.com/yndnr/collsnap/internal/infra/confloader"
	"github.com/yndnr/collsnap/internal/storage"
	"github.com/yndnr/collsnap/pkg/binding"
	"github.com/yndnr/collsnap/pkg/docstore"
	"github.com/yndnr/collsnap/pkg/records"
	"github.com/yndnr/collsnap/pkg/snapshot"
)

// Env holds the resources shared by the commands of one invocation. Stores
// are opened on first use.
type Env struct {
	Config *config.Config
	Loader *confloader.Loader
	Logger *slog.Logger

	// Metrics, when set before the first Controller call, is passed to
	// every controller.
	Metrics *snapshot.Metrics

	mu          sync.Mutex
	store       docstore.Store
	router      *snapshot.MapRouter
	bindings    *binding.Registry
	controllers map[string]*snapshot.Controller
}

// NewEnv creates an environment for cfg.
func NewEnv(cfg *config.Config, loader *confloader.Loader, logger *slog.Logger) *Env {
	if logger == nil {
		logger = slog.Default()
	}
	return &Env{
		Config:      cfg,
		Loader:      loader,
		Logger:      logger,
		bindings:    binding.NewRegistry(),
		controllers: make(map[string]*snapshot.Controller),
	}
}

// Store returns the default store, opening it on first use.
func (e *Env) Store(ctx context.Context) (docstore.Store, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.openLocked(ctx)
}

func (e *Env) openLocked(ctx context.Context) (docstore.Store, error) {
	if e.store != nil {
		return e.store, nil
	}
	store, err := storage.Open(ctx, e.Config.Storage, e.Logger)
	if err != nil {
		return nil, err
	}
	e.store = store
	e.router = storage.Routes(store, e.Config.Routes, e.Logger)
	e.Logger.Debug("store opened", "backend", store.Backend())
	return store, nil
}

// Kinds returns the known kinds keyed by base name.
func (e *Env) Kinds(ctx context.Context) (map[string]snapshot.Kind, error) {
	store, err := e.Store(ctx)
	if err != nil {
		return nil, err
	}
	return demo.Kinds(store, e.openCustom), nil
}

// openCustom serves the custom connection kind: its configured route when
// there is one, otherwise the default store.
func (e *Env) openCustom(ctx context.Context) (docstore.Store, error) {
	base := demo.CustomConnection{}.BaseName()
	if section, ok := e.Config.Routes[base]; ok {
		return storage.Open(ctx, section, e.Logger.With("route", base))
	}
	store, err := e.Store(ctx)
	if err != nil {
		return nil, err
	}
	return borrowed{store}, nil
}

// borrowed shares a store with a router that must not close it.
type borrowed struct {
	docstore.Store
}

func (borrowed) Close() error { return nil }

// Controller returns the controller for baseName. Base names without a
// known kind get a controller that can list, sweep and destroy but not
// create.
func (e *Env) Controller(ctx context.Context, baseName string) (*snapshot.Controller, error) {
	kinds, err := e.Kinds(ctx)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if ctl, ok := e.controllers[baseName]; ok {
		return ctl, nil
	}

	kind, ok := kinds[baseName]
	if !ok {
		kind = snapshot.KindFunc(baseName, 0, func(context.Context, *snapshot.Snapshot) error {
			return fmt.Errorf("no builder registered for %q", baseName)
		})
	}

	opts := []snapshot.Option{
		snapshot.WithRouter(e.router),
		snapshot.WithBindings(e.bindings),
		snapshot.WithLogger(e.Logger),
		snapshot.WithMetrics(e.Metrics),
		snapshot.WithRecordOptions(records.WithResolution(e.Config.Snapshot.Resolution)),
	}
	if n := e.Config.Snapshot.RetentionLimit; n > 0 {
		opts = append(opts, snapshot.WithRetentionLimit(n))
	}
	if r := e.Config.Snapshot.DropRate; r > 0 {
		opts = append(opts, snapshot.WithDropLimiter(rate.NewLimiter(rate.Limit(r), e.Config.Snapshot.DropBurst)))
	}

	ctl, err := snapshot.NewController(kind, e.store, opts...)
	if err != nil {
		return nil, err
	}
	e.controllers[baseName] = ctl
	return ctl, nil
}

// Close releases every store opened through the environment.
func (e *Env) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var errs []error
	if e.router != nil {
		errs = append(errs, e.router.Close())
		e.router = nil
	}
	if e.store != nil {
		errs = append(errs, e.store.Close())
		e.store = nil
	}
	e.controllers = make(map[string]*snapshot.Controller)
	return errors.Join(errs...)
}

// Resolve returns the store holding the snapshot collections of baseName.
func (e *Env) Resolve(ctx context.Context, baseName string) (docstore.Store, error) {
	if _, err := e.Controller(ctx, baseName); err != nil {
		return nil, err
	}
	e.mu.Lock()
	router := e.router
	e.mu.Unlock()
	return router.Resolve(ctx, baseName)
}
