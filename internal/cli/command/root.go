package command

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/yndnr/collsnap/internal/cli/output"
	"github.com/yndnr/collsnap/internal/config"
	"github.com/yndnr/collsnap/internal/infra/buildinfo"
	"github.com/yndnr/collsnap/internal/infra/confloader"
	"github.com/yndnr/collsnap/internal/telemetry/logger"
)

const envKey = "env"

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:    "collsnap",
		Usage:   "Manage snapshot collections of derived data",
		Version: buildinfo.String(),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			SnapshotsCommand(),
			CollectionsCommand(),
			DemoCommand(),
			ScheduleCommand(),
			ConfigCommand(),
		},
		Metadata: map[string]any{},
		Before:   setup,
		After:    teardown,
	}
}

// globalFlags returns the global CLI flags.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "YAML configuration file",
			EnvVars: []string{"COLLSNAP_CONFIG"},
		},
		&cli.StringSliceFlag{
			Name:  "env-file",
			Usage: "dotenv files to load when present",
			Value: cli.NewStringSlice(".env", ".env.local"),
		},
		&cli.StringFlag{
			Name:  "backend",
			Usage: "Storage backend: memory, badger, sqlite, mongo",
		},
		&cli.StringFlag{
			Name:  "data-dir",
			Usage: "Data directory for badger and sqlite",
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "Log level: debug, info, warn, error",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: table, json, yaml",
			Value:   "table",
		},
		&cli.BoolFlag{
			Name:    "wide",
			Aliases: []string{"w"},
			Usage:   "Show wide output (more columns)",
		},
	}
}

func setup(c *cli.Context) error {
	if _, err := output.ParseFormat(c.String("output")); err != nil {
		return err
	}

	var envFiles []string
	for _, f := range c.StringSlice("env-file") {
		if confloader.FileExists(f) {
			envFiles = append(envFiles, f)
		}
	}
	if len(envFiles) > 0 {
		if err := godotenv.Load(envFiles...); err != nil {
			return fmt.Errorf("load env files: %w", err)
		}
	}

	cfg, loader, err := loadConfig(c)
	if err != nil {
		return err
	}
	if err := config.Verify(cfg); err != nil {
		return fmt.Errorf("invalid configuration:\n%w", err)
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: errWriter(c),
	})
	if err != nil {
		return err
	}

	c.App.Metadata[envKey] = NewEnv(cfg, loader, log)
	return nil
}

func teardown(c *cli.Context) error {
	env, ok := c.App.Metadata[envKey].(*Env)
	if !ok {
		return nil
	}
	delete(c.App.Metadata, envKey)
	return env.Close()
}

// loadConfig layers defaults, file, environment and flag overrides.
func loadConfig(c *cli.Context) (*config.Config, *confloader.Loader, error) {
	overrides := map[string]any{}
	for flag, key := range map[string]string{
		"backend":   "storage.backend",
		"data-dir":  "storage.data_dir",
		"log-level": "log.level",
	} {
		if c.IsSet(flag) {
			overrides[key] = c.String(flag)
		}
	}

	opts := []confloader.Option{confloader.WithOverrides(overrides)}
	if path := c.String("config"); path != "" {
		opts = append(opts, confloader.WithConfigFile(path))
	}
	loader := confloader.NewLoader(opts...)

	cfg := config.Default()
	if err := loader.Load(cfg); err != nil {
		return nil, nil, err
	}
	return cfg, loader, nil
}

// envFrom returns the environment prepared by setup.
func envFrom(c *cli.Context) (*Env, error) {
	for _, ctx := range c.Lineage() {
		if ctx.App == nil {
			continue
		}
		if env, ok := ctx.App.Metadata[envKey].(*Env); ok {
			return env, nil
		}
	}
	return nil, errors.New("command environment not initialized")
}

func writer(c *cli.Context) io.Writer {
	if c.App != nil && c.App.Writer != nil {
		return c.App.Writer
	}
	return os.Stdout
}

func errWriter(c *cli.Context) io.Writer {
	if c.App != nil && c.App.ErrWriter != nil {
		return c.App.ErrWriter
	}
	return os.Stderr
}

// render writes data in the format chosen by --output.
func render(c *cli.Context, data any) error {
	format, err := output.ParseFormat(c.String("output"))
	if err != nil {
		return err
	}
	return output.NewFormatter(format, c.Bool("wide")).Format(writer(c), data)
}

// requireArgs fails unless exactly n positional arguments were given.
func requireArgs(c *cli.Context, n int) error {
	if c.NArg() != n {
		return fmt.Errorf("%s: expected %d argument(s) %s, got %d", c.Command.FullName(), n, c.Command.ArgsUsage, c.NArg())
	}
	return nil
}
