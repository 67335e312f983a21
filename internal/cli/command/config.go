package command

import (
	"fmt"
	"sort"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/collsnap/internal/cli/output"
	"github.com/yndnr/collsnap/internal/config"
	"github.com/yndnr/collsnap/internal/telemetry/logger"
)

type sourceRow struct {
	Key   string `json:"key" yaml:"key"`
	Value string `json:"value" yaml:"value"`
	Env   string `json:"env" yaml:"env"`
}

// ConfigCommand returns the config subcommand group.
func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Inspect the effective configuration",
		Subcommands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Print the effective configuration with credentials masked",
				Action: configShow,
			},
			{
				Name:   "verify",
				Usage:  "Check the configuration and exit",
				Action: configVerify,
			},
			{
				Name:   "sources",
				Usage:  "List keys set by the file, environment or flags",
				Action: configSources,
			},
		},
	}
}

func configShow(c *cli.Context) error {
	env, err := envFrom(c)
	if err != nil {
		return err
	}
	cfg := config.Sanitize(env.Config)
	format, err := output.ParseFormat(c.String("output"))
	if err != nil {
		return err
	}
	if format == output.FormatTable {
		format = output.FormatYAML
	}
	return output.NewFormatter(format, false).Format(writer(c), cfg)
}

func configVerify(c *cli.Context) error {
	env, err := envFrom(c)
	if err != nil {
		return err
	}
	// setup already rejected an invalid configuration.
	if err := config.Verify(env.Config); err != nil {
		return err
	}
	source := "defaults and environment"
	if path := env.Loader.FilePath(); path != "" {
		source = path
	}
	fmt.Fprintf(writer(c), "configuration OK (%s)\n", source)
	return nil
}

func configSources(c *cli.Context) error {
	env, err := envFrom(c)
	if err != nil {
		return err
	}
	keys := env.Loader.Keys()
	sort.Strings(keys)
	rows := make([]sourceRow, 0, len(keys))
	for _, key := range keys {
		value := fmt.Sprint(env.Loader.Get(key))
		if logger.IsSensitiveKey(key) {
			value = "***REDACTED***"
		} else {
			value = logger.RedactString(value)
		}
		rows = append(rows, sourceRow{Key: key, Value: value, Env: env.Loader.EnvName(key)})
	}
	return render(c, rows)
}
