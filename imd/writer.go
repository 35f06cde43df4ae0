// Package imd reads and writes ImageDisk (.IMD) files: a free-text comment
// terminated by 0x1A, followed by one record per track.
package imd

import (
	"fmt"
	"io"
	"time"

	"github.com/floppydump/floppydump/disk"
)

// FormatVersion is the .IMD format revision this package implements.
const FormatVersion = "1.18"

const endOfComment = 0x1A

const (
	headMask     = 0x03
	needCylMap   = 0x80
	needHeadMap  = 0x40
	allTrackMask = headMask | needCylMap | needHeadMap
)

// Sector Data Record flags. These combine by +, not |.
const (
	sdrData         = 0x01
	sdrIsCompressed = 0x01
	sdrIsDeleted    = 0x02
	sdrIsError      = 0x04
)

// HeaderComment builds the standard first line of an image: format tag,
// producing program, and timestamp.
func HeaderComment(program, version string, now time.Time) string {
	return fmt.Sprintf(
		"IMD %s-%s-%s: %02d/%02d/%04d %02d:%02d:%02d\n",
		FormatVersion, program, version,
		now.Day(), int(now.Month()), now.Year(),
		now.Hour(), now.Minute(), now.Second())
}

// Writer serializes a disk model track by track. Tracks must be written in
// increasing cylinder-then-head order; skipped cylinders simply produce no
// record.
type Writer struct {
	w io.Writer
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteHeader writes the leading free-text comment and its terminator.
// Call it once, before any track.
func (w *Writer) WriteHeader(comment string) error {
	if _, err := io.WriteString(w.w, comment); err != nil {
		return err
	}
	_, err := w.w.Write([]byte{endOfComment})
	return err
}

// WriteTrack appends one track record. Cylinder and head maps are included
// only when some sector's logical id differs from the track's physical
// position. Sector data records are either unavailable (no payload) or
// plain data; the compressed form is deliberately never emitted.
func (w *Writer) WriteTrack(track *disk.Track) error {
	numSectors := len(track.Sectors)
	flags := byte(0)

	secMap := make([]byte, numSectors)
	cylMap := make([]byte, numSectors)
	headMap := make([]byte, numSectors)
	for i := range track.Sectors {
		sector := &track.Sectors[i]

		secMap[i] = sector.LogSector
		cylMap[i] = sector.LogCyl
		headMap[i] = sector.LogHead

		if cylMap[i] != byte(track.PhysCyl) {
			flags |= needCylMap
		}
		if headMap[i] != byte(track.PhysHead) {
			flags |= needHeadMap
		}
	}

	header := []byte{
		track.Mode.IMDMode,
		byte(track.PhysCyl),
		flags | byte(track.PhysHead),
		byte(numSectors),
		byte(track.SizeCode),
	}
	if _, err := w.w.Write(header); err != nil {
		return err
	}

	if _, err := w.w.Write(secMap); err != nil {
		return err
	}
	if flags&needCylMap != 0 {
		if _, err := w.w.Write(cylMap); err != nil {
			return err
		}
	}
	if flags&needHeadMap != 0 {
		if _, err := w.w.Write(headMap); err != nil {
			return err
		}
	}

	for i := range track.Sectors {
		sector := &track.Sectors[i]
		if sector.Data == nil {
			if _, err := w.w.Write([]byte{0}); err != nil {
				return err
			}
			continue
		}
		if _, err := w.w.Write([]byte{sdrData}); err != nil {
			return err
		}
		if _, err := w.w.Write(sector.Data); err != nil {
			return err
		}
	}

	return nil
}
