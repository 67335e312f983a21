package command

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/collsnap/internal/demo"
)

type artworkRow struct {
	Name   string `json:"name" yaml:"name"`
	Artist string `json:"artist" yaml:"artist"`
	Price  int64  `json:"price" yaml:"price"`
	ID     string `json:"id" yaml:"id" table:"wide"`
}

type priceRow struct {
	Artist  string  `json:"artist" yaml:"artist"`
	Count   int64   `json:"count" yaml:"count"`
	Average float64 `json:"average" yaml:"average"`
}

type kindRow struct {
	BaseName       string `json:"base_name" yaml:"base_name"`
	RetentionLimit int    `json:"retention_limit" yaml:"retention_limit"`
	Snapshots      int64  `json:"snapshots" yaml:"snapshots"`
}

// DemoCommand returns the demo subcommand group, which drives the bundled
// snapshot kinds.
func DemoCommand() *cli.Command {
	return &cli.Command{
		Name:  "demo",
		Usage: "Seed and query the bundled snapshot kinds",
		Subcommands: []*cli.Command{
			{
				Name:  "seed",
				Usage: "Insert the sample artworks",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "reset",
						Usage: "Drop existing artworks first",
					},
				},
				Action: demoSeed,
			},
			{
				Name:   "artworks",
				Usage:  "List artworks",
				Action: demoArtworks,
			},
			{
				Name:   "kinds",
				Usage:  "List the bundled kinds",
				Action: demoKinds,
			},
			{
				Name:      "prices",
				Usage:     "Show average prices from the latest average_artist_prices snapshot",
				ArgsUsage: "[ARTIST]",
				Action:    demoPrices,
			},
			{
				Name:   "names",
				Usage:  "Show the names stored by the latest multi_collection_snapshots snapshot",
				Action: demoNames,
			},
		},
	}
}

func demoSeed(c *cli.Context) error {
	env, err := envFrom(c)
	if err != nil {
		return err
	}
	store, err := env.Store(c.Context)
	if err != nil {
		return err
	}
	if c.Bool("reset") {
		if err := store.Collection(demo.ArtworksCollection).Drop(c.Context); err != nil {
			return err
		}
	}
	if err := demo.SeedArtworks(c.Context, store, demo.SampleArtworks); err != nil {
		return err
	}
	fmt.Fprintf(writer(c), "seeded %d artworks\n", len(demo.SampleArtworks))
	return nil
}

func demoArtworks(c *cli.Context) error {
	env, err := envFrom(c)
	if err != nil {
		return err
	}
	store, err := env.Store(c.Context)
	if err != nil {
		return err
	}
	artworks, err := demo.LoadArtworks(c.Context, store)
	if err != nil {
		return err
	}
	rows := make([]artworkRow, len(artworks))
	for i, a := range artworks {
		rows[i] = artworkRow{Name: a.Name, Artist: a.Artist, Price: a.Price, ID: a.ID}
	}
	return render(c, rows)
}

func demoKinds(c *cli.Context) error {
	env, err := envFrom(c)
	if err != nil {
		return err
	}
	rows := make([]kindRow, 0, len(demo.KindNames()))
	for _, name := range demo.KindNames() {
		ctl, err := env.Controller(c.Context, name)
		if err != nil {
			return err
		}
		n, err := ctl.Count(c.Context)
		if err != nil {
			return err
		}
		rows = append(rows, kindRow{BaseName: name, RetentionLimit: ctl.RetentionLimit(), Snapshots: n})
	}
	return render(c, rows)
}

func demoPrices(c *cli.Context) error {
	env, err := envFrom(c)
	if err != nil {
		return err
	}
	var kind demo.AverageArtistPrice
	ctl, err := env.Controller(c.Context, kind.BaseName())
	if err != nil {
		return err
	}
	snap, err := latestOf(c, ctl)
	if err != nil {
		return err
	}

	if c.NArg() > 0 {
		artist := c.Args().First()
		avg, err := kind.AveragePrice(c.Context, snap, artist)
		if err != nil {
			return err
		}
		return render(c, priceRow{Artist: artist, Average: avg})
	}

	stats, err := kind.Stats(c.Context, snap)
	if err != nil {
		return err
	}
	rows := make([]priceRow, len(stats))
	for i, s := range stats {
		rows[i] = priceRow{Artist: s.Artist, Count: s.Value.Count, Average: s.Average()}
	}
	return render(c, rows)
}

func demoNames(c *cli.Context) error {
	env, err := envFrom(c)
	if err != nil {
		return err
	}
	var kind demo.MultiCollection
	ctl, err := env.Controller(c.Context, kind.BaseName())
	if err != nil {
		return err
	}
	snap, err := latestOf(c, ctl)
	if err != nil {
		return err
	}
	names, err := kind.Names(c.Context, snap)
	if err != nil {
		return err
	}
	fmt.Fprintln(writer(c), names)
	return nil
}
