package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"

	"github.com/yndnr/collsnap/internal/config"
	"github.com/yndnr/collsnap/internal/infra/confloader"
	"github.com/yndnr/collsnap/internal/infra/shutdown"
	"github.com/yndnr/collsnap/internal/telemetry/logger"
	"github.com/yndnr/collsnap/internal/telemetry/metric"
	"github.com/yndnr/collsnap/pkg/snapshot"
)

// ScheduleCommand returns the schedule command, which creates snapshots
// periodically until interrupted.
func ScheduleCommand() *cli.Command {
	return &cli.Command{
		Name:      "schedule",
		Usage:     "Create snapshots of each base name on an interval",
		ArgsUsage: "BASE_NAME...",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:    "interval",
				Aliases: []string{"i"},
				Usage:   "Time between rounds (default snapshot.interval)",
			},
			&cli.StringFlag{
				Name:  "metrics-addr",
				Usage: "Serve Prometheus metrics on this address (default metrics.addr)",
			},
			&cli.BoolFlag{
				Name:  "once",
				Usage: "Run a single round and exit",
			},
			&cli.DurationFlag{
				Name:  "shutdown-timeout",
				Value: 30 * time.Second,
				Usage: "Time allowed for a running round to finish",
			},
		},
		Action: scheduleRun,
	}
}

// scheduler creates one snapshot per controller each round.
type scheduler struct {
	controllers []*snapshot.Controller
	logger      *slog.Logger
}

// round creates a snapshot for every controller. A failing kind does not
// stop the others.
func (s *scheduler) round(ctx context.Context) error {
	var errs []error
	for _, ctl := range s.controllers {
		start := time.Now()
		snap, err := ctl.Create(ctx)
		if err != nil {
			s.logger.Error("snapshot failed", "base_name", ctl.BaseName(), "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", ctl.BaseName(), err))
			continue
		}
		s.logger.Info("snapshot created",
			"base_name", ctl.BaseName(),
			"slug", snap.Slug,
			"duration", time.Since(start))
	}
	return errors.Join(errs...)
}

// run executes a round immediately and then on every tick until ctx ends.
func (s *scheduler) run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		_ = s.round(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func scheduleRun(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("schedule: at least one BASE_NAME is required")
	}
	env, err := envFrom(c)
	if err != nil {
		return err
	}
	log := env.Logger.With("component", "scheduler")

	reg := metric.NewRegistry()
	env.Metrics = snapshot.NewMetrics(reg.Registerer())

	store, err := env.Store(c.Context)
	if err != nil {
		return err
	}
	if m, ok := store.(interface {
		RegisterMetrics(prometheus.Registerer) error
	}); ok {
		if err := m.RegisterMetrics(reg.Registerer()); err != nil {
			return err
		}
	}

	s := &scheduler{logger: log}
	counters := make([]metric.RecordCounter, 0, c.NArg())
	for _, base := range c.Args().Slice() {
		ctl, err := env.Controller(c.Context, base)
		if err != nil {
			return err
		}
		s.controllers = append(s.controllers, ctl)
		counters = append(counters, ctl)
	}
	if err := reg.Registerer().Register(metric.NewCollector(log, counters...)); err != nil {
		return err
	}

	if c.Bool("once") {
		return s.round(c.Context)
	}

	interval := c.Duration("interval")
	if interval <= 0 {
		interval = env.Config.Snapshot.Interval
	}
	if interval <= 0 {
		return fmt.Errorf("schedule: interval must be positive")
	}

	h := shutdown.NewHandler(c.Duration("shutdown-timeout"), log)

	addr := c.String("metrics-addr")
	if addr == "" {
		addr = env.Config.Metrics.Addr
	}
	if addr != "" {
		srv, err := reg.Listen(addr, log)
		if err != nil {
			return err
		}
		go func() {
			if err := srv.Serve(); err != nil {
				log.Error("metrics server stopped", "error", err)
				h.Trigger()
			}
		}()
		h.OnShutdown("metrics server", srv.Shutdown)
	}

	if path := env.Loader.FilePath(); path != "" {
		w, err := confloader.NewWatcher(path, confloader.WithWatcherLogger(log))
		if err != nil {
			return err
		}
		w.OnChange(func(string) { reloadLogLevel(env, log) })
		w.StartAsync()
		h.OnShutdown("config watcher", func(context.Context) error { return w.Stop() })
	}

	ctx, cancel := context.WithCancel(c.Context)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.run(ctx, interval)
	}()
	h.OnShutdown("scheduler", func(hctx context.Context) error {
		cancel()
		done := make(chan struct{})
		go func() {
			wg.Wait()
			close(done)
		}()
		select {
		case <-done:
			return nil
		case <-hctx.Done():
			return fmt.Errorf("scheduler: %w", hctx.Err())
		}
	})

	log.Info("scheduler started", "interval", interval, "base_names", c.Args().Slice())
	return h.Wait(c.Context)
}

// reloadLogLevel applies log.level from a changed configuration file.
// Other settings take effect on restart.
func reloadLogLevel(env *Env, log *slog.Logger) {
	cfg := config.Default()
	if err := env.Loader.Load(cfg); err != nil {
		log.Warn("configuration reload failed", "error", err)
		return
	}
	if cfg.Log.Level == logger.Level() {
		return
	}
	if err := logger.SetLevel(cfg.Log.Level); err != nil {
		log.Warn("invalid log level in configuration", "level", cfg.Log.Level, "error", err)
		return
	}
	log.Info("log level changed", "level", cfg.Log.Level)
}
