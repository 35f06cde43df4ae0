// Package acquire is the acquisition engine: it discovers per-track
// geometry empirically from a live read stream, fills in sector payloads
// with a whole-track fast path and per-sector fallback, and sequences
// cylinders and heads under a bounded retry policy.
package acquire

import (
	"fmt"
	"io"
	"os"

	"github.com/floppydump/floppydump"
	"github.com/floppydump/floppydump/disk"
	"github.com/floppydump/floppydump/fdc"
)

// maxTries bounds the per-track retry loop. Exhausting it is fatal for the
// whole run; there is no partial-disk continuation.
const maxTries = 10

// TrackEncoder receives each completed track, in acquisition order, after
// the image-level comment has been written.
type TrackEncoder interface {
	WriteHeader(comment string) error
	WriteTrack(track *disk.Track) error
}

// Options configures a run. The zero value probes every track's layout
// from its predecessor and writes progress to stdout.
type Options struct {
	// AlwaysProbe disables layout inheritance between neighbouring
	// cylinders, probing every track from scratch.
	AlwaysProbe bool
	// Progress receives the per-track progress lines. Nil means os.Stdout.
	Progress io.Writer
}

// Controller owns the device channel for the duration of a run and drives
// probing and reading strictly sequentially: exactly one device command is
// outstanding at any time.
type Controller struct {
	dev      fdc.Commander
	opts     Options
	progress io.Writer
}

func NewController(dev fdc.Commander, opts Options) *Controller {
	progress := opts.Progress
	if progress == nil {
		progress = os.Stdout
	}
	return &Controller{dev: dev, opts: opts, progress: progress}
}

// Run acquires the whole disk into d, handing each completed track to enc
// (which may be nil for a probe-only dry run). d.PhysCylinders and
// d.PhysHeads must be set before the call; Run lowers PhysHeads and raises
// CylStep as the reference-cylinder probe dictates.
//
// Any FatalError aborts immediately; nothing further is encoded.
func (c *Controller) Run(d *disk.Disk, enc TrackEncoder) error {
	if err := c.probeDisk(d); err != nil {
		return err
	}

	if enc != nil {
		if err := enc.WriteHeader(d.Comment); err != nil {
			return err
		}
	}

	for cyl := 0; cyl < d.PhysCylinders; cyl += d.CylStep {
		for head := 0; head < d.PhysHeads; head++ {
			track, err := d.Track(cyl, head)
			if err != nil {
				return err
			}

			if c.opts.AlwaysProbe {
				// Don't assume a layout.
			} else if cyl > 0 {
				// Try the layout of the previous cylinder on the same head
				// as an initial guess.
				prev, err := d.Track(cyl-1, head)
				if err != nil {
					return err
				}
				disk.CopyLayout(prev, track)
			}

			for try := 0; ; try++ {
				if try == maxTries {
					return floppydump.ErrRetriesExhausted.WithMessage(
						fmt.Sprintf("track %02d.%d", cyl, head))
				}

				done, err := c.readTrack(track)
				if err != nil && floppydump.IsFatal(err) {
					return err
				}
				if done {
					break
				}

				// Failed; reprobe from scratch and try again. An inherited
				// guess that didn't pan out should not be retried blindly.
				track.Status = disk.TrackUnknown
			}
			track.DataRead = true

			if enc != nil {
				if err := enc.WriteTrack(track); err != nil {
					return err
				}
			}
		}
	}

	return nil
}
