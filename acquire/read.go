package acquire

import (
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/floppydump/floppydump/disk"
)

// readTrack tries to read any sectors in a track that haven't already been
// read, probing the layout first if it is unknown. It reports whether every
// sector ended with a payload. A non-nil error is either fatal or a
// multierror describing the sectors that failed this attempt; either way
// the bool result is authoritative for the retry loop.
func (c *Controller) readTrack(track *disk.Track) (bool, error) {
	if track.Status == disk.TrackUnknown {
		if err := c.probeTrack(track); err != nil {
			return false, err
		}
	}

	fmt.Fprintf(c.progress, "Reading %02d.%d:", track.PhysCyl, track.PhysHead)

	lowest, highest, contiguous := track.ScanSectors()
	sectorSize := track.SectorSize()
	trackData := make([]byte, sectorSize*len(track.Sectors))
	readWholeTrack := false

	if contiguous && len(track.Sectors) > 0 {
		// Try reading the whole track to start with. If this works, it's a
		// lot faster than reading sector-by-sector. The resulting data is
		// ordered by *logical* ID.
		reply, err := c.dev.ReadSectorData(
			track.PhysCyl, track.PhysHead, *track.Mode,
			lowest.LogCyl, lowest.LogHead, lowest.LogSector,
			track.SizeCode, trackData)
		if err != nil {
			fmt.Fprintln(c.progress)
			return false, err
		}
		if reply.OK() {
			readWholeTrack = true
			fmt.Fprintf(c.progress, " %d-%d+", lowest.LogSector, highest.LogSector)
		}
	}

	// Get sectors in physical order. Re-reading never resets a sector that
	// already has its payload.
	var failed *multierror.Error
	for i := range track.Sectors {
		sector := &track.Sectors[i]

		if sector.Data != nil {
			fmt.Fprintf(c.progress, " (%d)", sector.LogSector)
			continue
		}

		fmt.Fprintf(c.progress, " %d", sector.LogSector)

		if readWholeTrack {
			// This sector came in as part of the whole track.
			rel := int(sector.LogSector) - int(lowest.LogSector)
			sector.Data = make([]byte, sectorSize)
			copy(sector.Data, trackData[sectorSize*rel:sectorSize*(rel+1)])
			sector.Status = disk.SectorGood
			fmt.Fprintf(c.progress, "=")
			continue
		}

		buf := make([]byte, sectorSize)
		reply, err := c.dev.ReadSectorData(
			track.PhysCyl, track.PhysHead, *track.Mode,
			sector.LogCyl, sector.LogHead, sector.LogSector,
			track.SizeCode, buf)
		if err != nil {
			fmt.Fprintln(c.progress)
			return false, err
		}
		if !reply.OK() {
			// Failed -- throw the buffer away.
			failed = multierror.Append(failed, fmt.Errorf(
				"sector %d (logical %d.%d.%d) unreadable",
				sector.PhysSector, sector.LogCyl, sector.LogHead, sector.LogSector))
			fmt.Fprintf(c.progress, "-")
			continue
		}

		sector.Data = buf
		sector.Status = disk.SectorGood
		sector.Deleted = reply.Deleted()
		fmt.Fprintf(c.progress, "+")
	}

	if failed != nil {
		fmt.Fprintln(c.progress)
		return false, failed.ErrorOrNil()
	}
	fmt.Fprintf(c.progress, " OK\n")
	return true, nil
}
