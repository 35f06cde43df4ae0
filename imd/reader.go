package imd

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/floppydump/floppydump/disk"
)

// Read parses a whole image into a disk model. Unlike the writer, the
// reader accepts the full sector data record family: compressed fill
// bytes, deleted-data marks, and bad-data marks.
func Read(r io.Reader) (*disk.Disk, error) {
	src := bufio.NewReader(r)

	comment, err := src.ReadString(endOfComment)
	if err != nil {
		return nil, fmt.Errorf("couldn't find comment delimiter: %w", err)
	}

	d := disk.New()
	d.Comment = comment[:len(comment)-1]
	d.PhysCylinders = 0
	d.PhysHeads = 0

	for {
		more, err := readTrack(src, d)
		if err != nil {
			return nil, err
		}
		if !more {
			return d, nil
		}
	}
}

// readTrack reads one track record and adds it to the disk. It returns
// false on a clean EOF.
func readTrack(src *bufio.Reader, d *disk.Disk) (bool, error) {
	header := make([]byte, 5)
	if _, err := io.ReadFull(src, header); err != nil {
		if errors.Is(err, io.EOF) {
			return false, nil
		}
		return false, fmt.Errorf("couldn't read track header: %w", err)
	}

	mode, err := disk.ModeByIMD(header[0])
	if err != nil {
		return false, err
	}

	physCyl := int(header[1])
	if header[2]&^byte(allTrackMask) != 0 {
		return false, fmt.Errorf("track has unsupported flags: %02x", header[2])
	}
	physHead := int(header[2] & headMask)

	track, err := d.Track(physCyl, physHead)
	if err != nil {
		return false, err
	}
	if physCyl >= d.PhysCylinders {
		d.PhysCylinders = physCyl + 1
	}
	if physHead >= d.PhysHeads {
		d.PhysHeads = physHead + 1
	}

	numSectors := int(header[3])
	if header[4] == 0xFF {
		return false, fmt.Errorf("variable sector size extension not supported")
	}

	track.Reset()
	track.Status = disk.TrackProbed
	track.Mode = mode
	track.SizeCode = int(header[4])
	sectorSize := track.SectorSize()

	secMap := make([]byte, numSectors)
	if _, err := io.ReadFull(src, secMap); err != nil {
		return false, fmt.Errorf("couldn't read sector map: %w", err)
	}
	cylMap := bytes.Repeat([]byte{byte(physCyl)}, numSectors)
	if header[2]&needCylMap != 0 {
		if _, err := io.ReadFull(src, cylMap); err != nil {
			return false, fmt.Errorf("couldn't read cylinder map: %w", err)
		}
	}
	headMap := bytes.Repeat([]byte{byte(physHead)}, numSectors)
	if header[2]&needHeadMap != 0 {
		if _, err := io.ReadFull(src, headMap); err != nil {
			return false, fmt.Errorf("couldn't read head map: %w", err)
		}
	}

	for physSec := 0; physSec < numSectors; physSec++ {
		sector := disk.Sector{
			Status:    disk.SectorMissing,
			LogCyl:    cylMap[physSec],
			LogHead:   headMap[physSec],
			LogSector: secMap[physSec],
		}

		sdr, err := src.ReadByte()
		if err != nil {
			return false, fmt.Errorf("couldn't read sector data record: %w", err)
		}

		if sdr > 0 {
			remaining := sdr - sdrData

			sector.Data = make([]byte, sectorSize)
			sector.Status = disk.SectorGood

			if remaining >= sdrIsError {
				remaining -= sdrIsError
				sector.Status = disk.SectorBad
			}
			if remaining >= sdrIsDeleted {
				remaining -= sdrIsDeleted
				sector.Deleted = true
			}
			if remaining >= sdrIsCompressed {
				remaining -= sdrIsCompressed

				fill, err := src.ReadByte()
				if err != nil {
					return false, fmt.Errorf("couldn't read compressed sector data: %w", err)
				}
				for i := range sector.Data {
					sector.Data[i] = fill
				}
			} else {
				if _, err := io.ReadFull(src, sector.Data); err != nil {
					return false, fmt.Errorf("couldn't read sector data: %w", err)
				}
			}

			if remaining != 0 {
				return false, fmt.Errorf("sector has unsupported flags: %02x", sdr)
			}
		}

		if err := track.AppendSector(sector); err != nil {
			return false, err
		}
	}

	return true, nil
}
