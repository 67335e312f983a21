package command

import (
	"github.com/urfave/cli/v2"

	"github.com/yndnr/collsnap/pkg/naming"
)

// collectionRow is one physical collection.
type collectionRow struct {
	Name    string `json:"name" yaml:"name"`
	Slug    string `json:"slug,omitempty" yaml:"slug,omitempty"`
	SubKey  string `json:"sub_key,omitempty" yaml:"sub_key,omitempty"`
	Backend string `json:"backend" yaml:"backend" table:"wide"`
}

// CollectionsCommand returns the collections subcommand group.
func CollectionsCommand() *cli.Command {
	return &cli.Command{
		Name:    "collections",
		Aliases: []string{"coll"},
		Usage:   "Inspect physical collections",
		Subcommands: []*cli.Command{
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List collections of the default store, or of one base name",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "base",
						Aliases: []string{"b"},
						Usage:   "Only collections named after this base name",
					},
				},
				Action: collectionsList,
			},
		},
	}
}

func collectionsList(c *cli.Context) error {
	env, err := envFrom(c)
	if err != nil {
		return err
	}

	base := c.String("base")
	store, err := env.Store(c.Context)
	if err != nil {
		return err
	}
	if base != "" {
		if store, err = env.Resolve(c.Context, base); err != nil {
			return err
		}
	}
	names, err := store.ListCollections(c.Context)
	if err != nil {
		return err
	}

	rows := make([]collectionRow, 0, len(names))
	for _, name := range names {
		row := collectionRow{Name: name, Backend: store.Backend()}
		if base != "" {
			subKey, slug, ok := naming.Parse(base, name)
			if !ok {
				continue
			}
			row.Slug, row.SubKey = slug, subKey
		}
		rows = append(rows, row)
	}
	return render(c, rows)
}

// collectionsOf lists the collections belonging to one snapshot.
func collectionsOf(c *cli.Context, env *Env, base, slug string) ([]string, error) {
	store, err := env.Resolve(c.Context, base)
	if err != nil {
		return nil, err
	}
	names, err := store.ListCollections(c.Context)
	if err != nil {
		return nil, err
	}
	return naming.MatchPattern(base, slug).Filter(names), nil
}

