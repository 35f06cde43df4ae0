// Package show prints human-readable summaries and hex listings of a
// finished disk model.
package show

import (
	"fmt"
	"io"
	"sort"

	"github.com/floppydump/floppydump/disk"
)

// ModeName renders a track's data mode, or "-" when none was established.
func ModeName(mode *disk.DataMode) string {
	if mode == nil {
		return "-"
	}
	return mode.Name
}

func sectorCell(sector *disk.Sector) string {
	label := byte(' ')
	switch sector.Status {
	case disk.SectorMissing:
		return "  . "
	case disk.SectorBad:
		label = '?'
	case disk.SectorGood:
		if sector.Deleted {
			label = 'x'
		} else {
			label = '+'
		}
	}
	return fmt.Sprintf("%3d%c", sector.LogSector, label)
}

// FprintTrack writes a one-line track summary: mode, count-by-size, and a
// cell per sector in physical order.
func FprintTrack(w io.Writer, track *disk.Track) {
	fmt.Fprintf(w, "%s %dx%d", ModeName(track.Mode), len(track.Sectors), track.SectorSize())
	for i := range track.Sectors {
		fmt.Fprint(w, sectorCell(&track.Sectors[i]))
	}
}

// FprintTrackData writes a hexdump of every available sector, in logical
// sector order (ties broken by physical slot).
func FprintTrackData(w io.Writer, track *disk.Track) {
	sectors := make([]*disk.Sector, len(track.Sectors))
	for i := range track.Sectors {
		sectors[i] = &track.Sectors[i]
	}
	sort.SliceStable(sectors, func(i, j int) bool {
		if sectors[i].LogSector != sectors[j].LogSector {
			return sectors[i].LogSector < sectors[j].LogSector
		}
		return sectors[i].PhysSector < sectors[j].PhysSector
	})

	for _, sector := range sectors {
		if sector.Status == disk.SectorMissing {
			continue
		}

		fmt.Fprintf(w, "Physical C %d H %d S %d, logical C %d H %d S %d",
			track.PhysCyl, track.PhysHead, sector.PhysSector,
			sector.LogCyl, sector.LogHead, sector.LogSector)
		if sector.Status == disk.SectorBad {
			fmt.Fprint(w, " (bad data)")
		}
		fmt.Fprint(w, ":\n")

		hexdump(w, sector.Data)
		fmt.Fprint(w, "\n")
	}
}

// hexdump follows the "hexdump -C" layout, although it doesn't fold
// repeated lines.
func hexdump(w io.Writer, data []byte) {
	const lineLen = 16
	for i := 0; i < len(data); i += lineLen {
		fmt.Fprintf(w, "%04x ", i)

		for j := 0; j < lineLen; j++ {
			if i+j < len(data) {
				fmt.Fprintf(w, " %02x", data[i+j])
			} else {
				fmt.Fprint(w, "   ")
			}
		}

		fmt.Fprint(w, "  |")
		for j := 0; j < lineLen; j++ {
			if i+j < len(data) {
				c := data[i+j]
				if c >= 32 && c < 127 {
					fmt.Fprintf(w, "%c", c)
				} else {
					fmt.Fprint(w, ".")
				}
			} else {
				fmt.Fprint(w, " ")
			}
		}
		fmt.Fprint(w, "|\n")
	}
}

// FprintDisk writes the comment and a summary line for every track in the
// model, optionally followed by each track's sector data.
func FprintDisk(w io.Writer, d *disk.Disk, withData bool) error {
	fmt.Fprint(w, d.Comment)
	fmt.Fprint(w, "\n")
	for cyl := 0; cyl < d.PhysCylinders; cyl++ {
		for head := 0; head < d.PhysHeads; head++ {
			track, err := d.Track(cyl, head)
			if err != nil {
				return err
			}

			fmt.Fprintf(w, "%2d.%d:", cyl, head)
			FprintTrack(w, track)
			fmt.Fprint(w, "\n")

			if withData {
				fmt.Fprint(w, "\n")
				FprintTrackData(w, track)
			}
		}
	}
	return nil
}
