package command

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/collsnap/internal/cli/output"
	"github.com/yndnr/collsnap/pkg/errcode"
	"github.com/yndnr/collsnap/pkg/records"
	"github.com/yndnr/collsnap/pkg/snapshot"
)

// snapshotRow is the displayed form of a snapshot record.
type snapshotRow struct {
	Slug           string    `json:"slug" yaml:"slug"`
	BaseName       string    `json:"base_name" yaml:"base_name"`
	CreatedAt      time.Time `json:"created_at" yaml:"created_at"`
	RetentionLimit int       `json:"retention_limit" yaml:"retention_limit"`
	ID             string    `json:"id" yaml:"id" table:"wide"`
}

func rowOf(r *records.Record) snapshotRow {
	return snapshotRow{
		Slug:           r.Slug,
		BaseName:       r.BaseName,
		CreatedAt:      r.CreatedAt,
		RetentionLimit: r.RetentionLimit,
		ID:             r.ID,
	}
}

func rowsOf(snaps []*snapshot.Snapshot) []snapshotRow {
	rows := make([]snapshotRow, len(snaps))
	for i, s := range snaps {
		rows[i] = rowOf(s.Record)
	}
	return rows
}

// SnapshotsCommand returns the snapshots subcommand group.
func SnapshotsCommand() *cli.Command {
	return &cli.Command{
		Name:    "snapshots",
		Aliases: []string{"snap"},
		Usage:   "Create, inspect and retire snapshots",
		Subcommands: []*cli.Command{
			{
				Name:      "create",
				Usage:     "Build and commit a new snapshot",
				ArgsUsage: "BASE_NAME",
				Action:    snapshotsCreate,
			},
			{
				Name:      "list",
				Aliases:   []string{"ls"},
				Usage:     "List committed snapshots, newest first",
				ArgsUsage: "BASE_NAME",
				Action:    snapshotsList,
			},
			{
				Name:      "latest",
				Usage:     "Show the newest snapshot",
				ArgsUsage: "BASE_NAME",
				Action:    snapshotsLatest,
			},
			{
				Name:      "get",
				Usage:     "Show one snapshot and its collections",
				ArgsUsage: "BASE_NAME SLUG",
				Action:    snapshotsGet,
			},
			{
				Name:      "destroy",
				Aliases:   []string{"rm"},
				Usage:     "Destroy a snapshot and drop its collections",
				ArgsUsage: "BASE_NAME SLUG",
				Action:    snapshotsDestroy,
			},
			{
				Name:      "sweep",
				Usage:     "Destroy snapshots beyond the retention limit",
				ArgsUsage: "BASE_NAME",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "dry-run",
						Usage: "List what would be destroyed",
					},
				},
				Action: snapshotsSweep,
			},
			{
				Name:      "orphans",
				Usage:     "List collections no committed snapshot owns",
				ArgsUsage: "BASE_NAME",
				Action:    snapshotsOrphans,
			},
		},
	}
}

func controllerArg(c *cli.Context, nargs int) (*snapshot.Controller, error) {
	if err := requireArgs(c, nargs); err != nil {
		return nil, err
	}
	env, err := envFrom(c)
	if err != nil {
		return nil, err
	}
	return env.Controller(c.Context, c.Args().First())
}

func snapshotsCreate(c *cli.Context) error {
	ctl, err := controllerArg(c, 1)
	if err != nil {
		return err
	}
	snap, err := ctl.Create(c.Context)
	if err != nil {
		return err
	}
	return render(c, rowOf(snap.Record))
}

func snapshotsList(c *cli.Context) error {
	ctl, err := controllerArg(c, 1)
	if err != nil {
		return err
	}
	snaps, err := ctl.List(c.Context)
	if err != nil {
		return err
	}
	return render(c, rowsOf(snaps))
}

func snapshotsLatest(c *cli.Context) error {
	ctl, err := controllerArg(c, 1)
	if err != nil {
		return err
	}
	snap, err := latestOf(c, ctl)
	if err != nil {
		return err
	}
	return render(c, rowOf(snap.Record))
}

// latestOf is ctl.Latest with an empty base reported as not found.
func latestOf(c *cli.Context, ctl *snapshot.Controller) (*snapshot.Snapshot, error) {
	snap, err := ctl.Latest(c.Context)
	if err != nil {
		return nil, err
	}
	if snap == nil {
		return nil, errcode.ErrNotFound.WithDetailf("base_name=%s has no snapshots", ctl.BaseName())
	}
	return snap, nil
}

// snapshotDetail adds the physical collections to a snapshot row.
type snapshotDetail struct {
	snapshotRow `yaml:",inline"`
	Collections []string `json:"collections" yaml:"collections"`
}

func snapshotsGet(c *cli.Context) error {
	ctl, err := controllerArg(c, 2)
	if err != nil {
		return err
	}
	snap, err := ctl.Get(c.Context, c.Args().Get(1))
	if err != nil {
		return err
	}
	env, err := envFrom(c)
	if err != nil {
		return err
	}
	colls, err := collectionsOf(c, env, snap.BaseName, snap.Slug)
	if err != nil {
		return err
	}
	row := rowOf(snap.Record)
	if format, _ := output.ParseFormat(c.String("output")); format != output.FormatTable {
		return render(c, snapshotDetail{snapshotRow: row, Collections: colls})
	}
	if err := render(c, row); err != nil {
		return err
	}
	for _, name := range colls {
		fmt.Fprintf(writer(c), "  %s\n", name)
	}
	return nil
}

func snapshotsDestroy(c *cli.Context) error {
	ctl, err := controllerArg(c, 2)
	if err != nil {
		return err
	}
	snap, err := ctl.Get(c.Context, c.Args().Get(1))
	if err != nil {
		return err
	}
	if err := ctl.Destroy(c.Context, snap.Record); err != nil {
		return err
	}
	fmt.Fprintf(writer(c), "destroyed %s\n", snap.Record)
	return nil
}

func snapshotsSweep(c *cli.Context) error {
	ctl, err := controllerArg(c, 1)
	if err != nil {
		return err
	}
	plan, err := ctl.SweepPlan(c.Context)
	if err != nil {
		return err
	}
	evict := make([]snapshotRow, len(plan.Evict))
	for i, r := range plan.Evict {
		evict[i] = rowOf(r)
	}
	if c.Bool("dry-run") {
		return render(c, evict)
	}
	if err := ctl.Sweep(c.Context); err != nil {
		return err
	}
	fmt.Fprintf(writer(c), "swept %d snapshot(s), %d kept\n", len(plan.Evict), len(plan.Keep))
	return nil
}

func snapshotsOrphans(c *cli.Context) error {
	ctl, err := controllerArg(c, 1)
	if err != nil {
		return err
	}
	names, err := ctl.Orphans(c.Context)
	if err != nil {
		return err
	}
	return render(c, names)
}
