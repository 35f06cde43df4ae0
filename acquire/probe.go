package acquire

import (
	"errors"
	"fmt"

	"github.com/floppydump/floppydump"
	"github.com/floppydump/floppydump/disk"
)

// Recoverable probe failures. The per-track retry loop catches these;
// everything else that comes out of probing is a FatalError.
var ErrNoDataMode = errors.New("no data mode yields a readable sector ID")
var ErrSampleFailed = errors.New("sector ID read failed while sampling")
var ErrLowestSeenOnce = errors.New("lowest sector only seen once in sample")

// sampleReads is the number of sector IDs gathered once a data mode is
// fixed, enough to cover several rotations of the disk.
const sampleReads = 30

// trackReadID reads one sector ID and appends it to the track's sector
// sequence. It returns false for a failed controller status; the error is
// non-nil only for fatal conditions.
func (c *Controller) trackReadID(track *disk.Track) (bool, error) {
	reply, err := c.dev.ReadSectorID(track.PhysCyl, track.PhysHead, *track.Mode)
	if err != nil {
		return false, err
	}
	if !reply.OK() {
		return false, nil
	}

	if track.SizeCode != -1 && track.SizeCode != int(reply.SizeCode) {
		return false, floppydump.ErrMixedFormats.WithMessage(fmt.Sprintf(
			"track %02d.%d saw size codes %d and %d",
			track.PhysCyl, track.PhysHead, track.SizeCode, reply.SizeCode))
	}
	track.SizeCode = int(reply.SizeCode)

	err = track.AppendSector(disk.Sector{
		Status:    disk.SectorMissing,
		LogCyl:    reply.LogCyl,
		LogHead:   reply.LogHead,
		LogSector: reply.LogSector,
	})
	if err != nil {
		return false, floppydump.ErrProtocolFault.Wrap(err)
	}
	return true, nil
}

// probeTrack discovers a track's data mode and logical sector sequence
// from a live read stream. On success the track is left TrackProbed with
// its data-acquired marker cleared.
func (c *Controller) probeTrack(track *disk.Track) error {
	track.Reset()

	fmt.Fprintf(c.progress, "Probing %02d.%d:", track.PhysCyl, track.PhysHead)

	// Identify the data mode, assuming there's only one; disks with
	// multiple modes per track are not handled. Try each catalog entry
	// until a sector ID can be read.
	for i := 0; ; i++ {
		if i == len(disk.DataModes) {
			fmt.Fprintf(c.progress, " unknown data mode\n")
			return ErrNoDataMode
		}

		track.Mode = &disk.DataModes[i]
		ok, err := c.trackReadID(track)
		if err != nil {
			fmt.Fprintln(c.progress)
			return err
		}
		if ok {
			fmt.Fprintf(c.progress, " %s", track.Mode.Name)
			break
		}
	}

	// Identify the sector numbering scheme: read enough IDs for a few
	// revolutions of the disk.
	for i := 0; i < sampleReads; i++ {
		ok, err := c.trackReadID(track)
		if err != nil {
			fmt.Fprintln(c.progress)
			return err
		}
		if !ok {
			fmt.Fprintf(c.progress, " readid failed\n")
			return ErrSampleFailed
		}
	}

	// We've now got a sample of the sequence of sectors, e.g.
	//   7 8 9 1 2 3 4 5 6 7 8 9 1 2 3 4 5 6 7 8 9 1 2 3
	//
	// Find the last instance of the lowest sector:
	//                                            |
	// then take the sequence back to the previous instance of it, which
	// should cover one complete rotation:
	//                          [----------------]

	endID := disk.MaxSectors
	endPos := -1
	for i := range track.Sectors {
		id := int(track.Sectors[i].LogSector)
		if id <= endID {
			endID = id
			endPos = i
		}
	}

	startPos := endPos - 1
	for ; startPos >= 0; startPos-- {
		if int(track.Sectors[startPos].LogSector) == endID {
			break
		}
	}
	if startPos < 0 {
		fmt.Fprintf(c.progress, " lowest sector only seen once\n")
		return ErrLowestSeenOnce
	}

	// Reduce the sector list to just the chosen window and renumber the
	// physical slots.
	n := copy(track.Sectors, track.Sectors[startPos:endPos])
	track.Sectors = track.Sectors[:n]
	for i := range track.Sectors {
		track.Sectors[i].PhysSector = byte(i)
	}

	fmt.Fprintf(c.progress, " %dx%d", len(track.Sectors), track.SectorSize())

	lowest, highest, contiguous := track.ScanSectors()
	if contiguous {
		fmt.Fprintf(c.progress, " %d-%d", lowest.LogSector, highest.LogSector)
	} else {
		for i := range track.Sectors {
			fmt.Fprintf(c.progress, " %d", track.Sectors[i].LogSector)
		}
	}
	fmt.Fprintln(c.progress)

	track.Status = disk.TrackProbed
	track.DataRead = false
	return nil
}

// probeDisk probes both sides of a reference cylinder to pin down the
// disk-level geometry: sidedness and the cylinder step. Cylinder 2 is used
// because a physical cylinder greater than 0 is needed to see the
// logical-to-physical mapping, and cylinder 0 may reasonably be
// unformatted on disks where it's a bootblock.
func (c *Controller) probeDisk(d *disk.Disk) error {
	const cyl = 2

	for head := 0; head < d.PhysHeads; head++ {
		track, err := d.Track(cyl, head)
		if err != nil {
			return err
		}
		if err := c.probeTrack(track); err != nil && floppydump.IsFatal(err) {
			return err
		}
	}

	side0, err := d.Track(cyl, 0)
	if err != nil {
		return err
	}
	side1, err := d.Track(cyl, 1)
	if err != nil {
		return err
	}
	side0Probed := side0.Status == disk.TrackProbed
	side1Probed := side1.Status == disk.TrackProbed

	switch {
	case !side0Probed && !side1Probed:
		return floppydump.ErrDiskUnreadable
	case side0Probed && !side1Probed:
		fmt.Fprintf(c.progress, "Single-sided disk\n")
		d.PhysHeads = 1
	case !side0Probed:
		// Only head 1 was readable; the cylinder-step checks below need
		// head 0, so leave the step at its default.
		fmt.Fprintf(c.progress, "Double-sided disk\n")
		return nil
	case side0.Sectors[0].LogHead == 0 && side1.Sectors[0].LogHead == 0:
		fmt.Fprintf(c.progress, "Double-sided disk with separate sides\n")
	default:
		fmt.Fprintf(c.progress, "Double-sided disk\n")
	}

	sec0 := &side0.Sectors[0]
	if int(sec0.LogCyl)*2 == side0.PhysCyl {
		fmt.Fprintf(c.progress, "Doublestepping required (40T disk in 80T drive)\n")
		d.CylStep = 2
	} else if int(sec0.LogCyl) == side0.PhysCyl*2 {
		return floppydump.ErrUnsupportedMedium.WithMessage(
			"can't read this disk (80T disk in 40T drive)")
	} else if int(sec0.LogCyl) != side0.PhysCyl {
		fmt.Fprintf(c.progress, "Mismatch between physical and logical cylinders\n")
	}

	return nil
}
