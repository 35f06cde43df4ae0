// Command floppydump reads a floppy disk of unknown format using the PC
// controller and writes an ImageDisk (.IMD) image.
//
// The techniques used here are based on the "How to identify an unknown
// disk" document from the fdutils project.
package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/floppydump/floppydump"
	"github.com/floppydump/floppydump/acquire"
	"github.com/floppydump/floppydump/disk"
	"github.com/floppydump/floppydump/disks"
	"github.com/floppydump/floppydump/fdc"
	"github.com/floppydump/floppydump/imd"
	"github.com/floppydump/floppydump/show"
)

func main() {
	app := cli.App{
		Name:      floppydump.ProgramName,
		Usage:     "Read an unknown floppy disk into an ImageDisk (.IMD) image",
		ArgsUsage: "[IMAGE-FILE]",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "always-probe",
				Aliases: []string{"a"},
				Usage:   "probe each track before reading",
			},
			&cli.IntFlag{
				Name:    "drive",
				Aliases: []string{"d"},
				Usage:   "drive number to read from",
				Value:   0,
			},
			&cli.IntFlag{
				Name:    "tracks",
				Aliases: []string{"t"},
				Usage:   "drive has `TRACKS` tracks (default autodetect)",
			},
			&cli.StringFlag{
				Name:    "geometry",
				Aliases: []string{"g"},
				Usage:   "assume a predefined drive geometry `SLUG` (see the geometries command)",
			},
		},
		Action: dumpDisk,
		Commands: []*cli.Command{
			{
				Name:      "show",
				Usage:     "Print a summary of an existing image",
				ArgsUsage: "IMAGE-FILE",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "data",
						Usage: "also hexdump every sector",
					},
				},
				Action: showImage,
			},
			{
				Name:   "geometries",
				Usage:  "List the predefined drive geometries",
				Action: listGeometries,
			},
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		log.Fatalf("fatal error: %s", err.Error())
	}
}

func dumpDisk(ctx *cli.Context) error {
	if ctx.NArg() > 1 {
		return fmt.Errorf("at most one IMAGE-FILE argument expected")
	}

	dev, err := fdc.Open(ctx.Int("drive"))
	if err != nil {
		return err
	}
	defer dev.Close()

	// Return to cylinder 0. The controller gives up after 80 steps, so do
	// it twice in case the head was parked past cylinder 80.
	for i := 0; i < 2; i++ {
		if err := dev.Recalibrate(); err != nil {
			return err
		}
	}

	d := disk.New()
	d.PhysHeads = 2
	d.PhysCylinders = dev.Tracks()
	if slug := ctx.String("geometry"); slug != "" {
		geometry, err := disks.Get(slug)
		if err != nil {
			return err
		}
		d.PhysCylinders = geometry.Cylinders
		d.PhysHeads = geometry.Heads
	}
	if ctx.IsSet("tracks") {
		d.PhysCylinders = ctx.Int("tracks")
	}
	d.Comment = imd.HeaderComment(floppydump.ProgramName, floppydump.Version, time.Now())

	var enc acquire.TrackEncoder
	if ctx.NArg() == 1 {
		image, err := os.Create(ctx.Args().First())
		if err != nil {
			return fmt.Errorf("cannot open %s: %w", ctx.Args().First(), err)
		}
		defer image.Close()
		enc = imd.NewWriter(image)
	}

	controller := acquire.NewController(dev, acquire.Options{
		AlwaysProbe: ctx.Bool("always-probe"),
	})
	return controller.Run(d, enc)
}

func showImage(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return fmt.Errorf("exactly one IMAGE-FILE argument expected")
	}

	image, err := os.Open(ctx.Args().First())
	if err != nil {
		return err
	}
	defer image.Close()

	d, err := imd.Read(image)
	if err != nil {
		return err
	}
	return show.FprintDisk(os.Stdout, d, ctx.Bool("data"))
}

func listGeometries(ctx *cli.Context) error {
	for _, geometry := range disks.List() {
		fmt.Printf("%-8s %-28s %d cylinders, %d heads\n",
			geometry.Slug, geometry.Name, geometry.Cylinders, geometry.Heads)
	}
	return nil
}
