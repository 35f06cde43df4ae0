// Package disk holds the in-memory model of an FM/MFM floppy disk built up
// during acquisition: a fixed-capacity grid of tracks addressed by physical
// cylinder and head, each holding the sectors in the order they were
// physically observed.
//
// The model is based on the track/sector description in the ImageDisk (.IMD)
// file format documentation.
package disk

import (
	"fmt"

	"github.com/boljen/go-bitmap"
)

// Hardware-derived capacity bounds. These never grow at runtime.
const (
	MaxCylinders = 256
	MaxHeads     = 2
	MaxSectors   = 256
)

// UnknownID is the sentinel for a logical cylinder/head/sector identifier
// that has not been observed yet.
const UnknownID = 0xFF

// SectorBytes converts an FDC sector-size code to a size in bytes.
func SectorBytes(code int) int {
	return 128 << code
}

// SizeCode is the inverse of SectorBytes. It returns -1 if bytes is not an
// exact size for any supported code (0 through 6).
func SizeCode(bytes int) int {
	for code := 0; code <= 6; code++ {
		if SectorBytes(code) == bytes {
			return code
		}
	}
	return -1
}

// DataMode is one encoding scheme plus transfer-rate selector used to talk
// to a track.
type DataMode struct {
	// IMDMode is the mode number recorded in .IMD track headers.
	IMDMode byte
	Name    string
	// Rate is the FDC rate selector, 0 to 3.
	Rate byte
	IsFM bool
}

// DataModes is the closed catalog of supported modes, in the order in which
// they are tried when probing.
//
// Following what the .IMD spec says, the rates here are the data transfer
// rate to the drive -- FM-500k transfers half as much data as MFM-500k owing
// to the less efficient encoding.
var DataModes = []DataMode{
	// 5.25" DD/QD and 3.5" DD drives
	{5, "MFM-250k", 2, false},
	{2, "FM-250k", 2, true},

	// DD media in 5.25" HD drives
	{4, "MFM-300k", 1, false},
	{1, "FM-300k", 1, true},

	// 3.5" HD, 5.25" HD and 8" drives
	{3, "MFM-500k", 0, false},
	{0, "FM-500k", 0, true},

	// 3.5" ED drives. Rate 3 for FM isn't allowed.
	{6, "MFM-1000k", 3, false},
}

// ModeByIMD looks a mode up by its .IMD mode number.
func ModeByIMD(imdMode byte) (*DataMode, error) {
	for i := range DataModes {
		if DataModes[i].IMDMode == imdMode {
			return &DataModes[i], nil
		}
	}
	return nil, fmt.Errorf("unknown data mode number %d", imdMode)
}

type SectorStatus int

const (
	SectorMissing SectorStatus = iota
	SectorBad
	SectorGood
)

// Sector is one sector slot within a track. Data is nil until a read has
// been attempted; when present its length equals the track's sector size.
type Sector struct {
	Status    SectorStatus
	LogCyl    byte
	LogHead   byte
	LogSector byte
	// PhysSector is the slot index at which the sector was observed.
	PhysSector byte
	// Deleted records a deleted-data address mark. It is kept for format
	// fidelity only and gates no read/retry/encoding decision.
	Deleted bool
	Data    []byte
}

// Reset returns the sector to its pristine unobserved state, releasing any
// payload buffer.
func (s *Sector) Reset() {
	*s = Sector{
		Status:     SectorMissing,
		LogCyl:     UnknownID,
		LogHead:    UnknownID,
		LogSector:  UnknownID,
		PhysSector: UnknownID,
	}
}

// SameAddr reports whether two sectors have the same logical address.
func (s *Sector) SameAddr(other *Sector) bool {
	return s.LogCyl == other.LogCyl &&
		s.LogHead == other.LogHead &&
		s.LogSector == other.LogSector
}

type TrackStatus int

const (
	// TrackUnknown means no layout information is available.
	TrackUnknown TrackStatus = iota
	// TrackInherited means the layout was copied from a neighbouring
	// cylinder and has not been verified by direct observation.
	TrackInherited
	// TrackProbed means the layout was confirmed by geometry probing.
	TrackProbed
)

// Track is one physical track: its layout status, selected data mode, and
// the sectors in physically observed order (not necessarily increasing
// logical id).
type Track struct {
	Status TrackStatus
	// DataRead marks that every sector payload was acquired. It is distinct
	// from the layout status.
	DataRead bool
	PhysCyl  int
	PhysHead int
	// Mode is nil until probing or inheritance establishes it.
	Mode *DataMode
	// SizeCode is the FDC sector-size code c, size = 128 << c. -1 until known.
	SizeCode int
	Sectors  []Sector
}

// Reset discards the track's layout and all sector payloads, returning it
// to TrackUnknown.
func (t *Track) Reset() {
	t.Status = TrackUnknown
	t.DataRead = false
	t.Mode = nil
	t.SizeCode = -1
	t.Sectors = t.Sectors[:0]
}

// AppendSector adds a freshly observed sector slot, enforcing the per-track
// capacity bound.
func (t *Track) AppendSector(sec Sector) error {
	if len(t.Sectors) >= MaxSectors {
		return fmt.Errorf(
			"track %02d.%d already holds %d sectors", t.PhysCyl, t.PhysHead, MaxSectors)
	}
	sec.PhysSector = byte(len(t.Sectors))
	t.Sectors = append(t.Sectors, sec)
	return nil
}

// SectorSize gives the track's sector size in bytes, or 0 if the size code
// is not known yet.
func (t *Track) SectorSize() int {
	if t.SizeCode < 0 {
		return 0
	}
	return SectorBytes(t.SizeCode)
}

// ScanSectors finds the sectors with the lowest and highest logical IDs in
// the track, and whether the logical IDs are contiguous (every integer in
// [lowest, highest] occurs at least once). Ties keep the first sector seen:
// the comparison is strict in both directions.
func (t *Track) ScanSectors() (lowest, highest *Sector, contiguous bool) {
	seen := bitmap.NewSlice(MaxSectors)

	lowestID := MaxSectors
	highestID := -1
	for i := range t.Sectors {
		sector := &t.Sectors[i]
		id := int(sector.LogSector)

		bitmap.Set(seen, id, true)

		if id < lowestID {
			lowestID = id
			lowest = sector
		}
		if id > highestID {
			highestID = id
			highest = sector
		}
	}

	contiguous = true
	for id := lowestID; id < highestID; id++ {
		if !bitmap.Get(seen, id) {
			contiguous = false
		}
	}
	return lowest, highest, contiguous
}

// Disk is the whole-disk model: an arena of tracks indexed by physical
// cylinder and head, plus the disk-level facts discovered once per run.
type Disk struct {
	// Comment is free text recorded at the head of the image. Its length is
	// explicit; there are no terminator semantics.
	Comment string
	// PhysCylinders is the number of physical cylinders to acquire.
	PhysCylinders int
	// PhysHeads is the number of physical heads in use (1 or 2).
	PhysHeads int
	// CylStep is 1 normally, 2 when the medium must be double-stepped in a
	// higher-density drive.
	CylStep int

	tracks [][]Track
}

// New constructs a disk model with every track initialized to TrackUnknown.
func New() *Disk {
	disk := &Disk{CylStep: 1}
	disk.tracks = make([][]Track, MaxCylinders)
	for cyl := 0; cyl < MaxCylinders; cyl++ {
		disk.tracks[cyl] = make([]Track, MaxHeads)
		for head := 0; head < MaxHeads; head++ {
			track := &disk.tracks[cyl][head]
			track.PhysCyl = cyl
			track.PhysHead = head
			track.Reset()
		}
	}
	return disk
}

// Track returns the track at the given physical address, bounds-checked
// against the arena capacity.
func (d *Disk) Track(cyl, head int) (*Track, error) {
	if cyl < 0 || cyl >= MaxCylinders {
		return nil, fmt.Errorf("cylinder %d not in range [0, %d)", cyl, MaxCylinders)
	}
	if head < 0 || head >= MaxHeads {
		return nil, fmt.Errorf("head %d not in range [0, %d)", head, MaxHeads)
	}
	return &d.tracks[cyl][head], nil
}

// CopyLayout copies the layout of src into dest as an unverified guess,
// translating logical cylinder numbers by the physical cylinder distance.
// A src track with no layout information is ignored.
func CopyLayout(src, dest *Track) {
	if src.Status == TrackUnknown {
		return
	}

	dest.Reset()
	dest.Status = TrackInherited
	dest.Mode = src.Mode
	dest.SizeCode = src.SizeCode

	cylDiff := dest.PhysCyl - src.PhysCyl
	dest.Sectors = dest.Sectors[:0]
	for i := range src.Sectors {
		srcSec := &src.Sectors[i]
		dest.Sectors = append(dest.Sectors, Sector{
			Status:     SectorMissing,
			LogCyl:     byte(int(srcSec.LogCyl) + cylDiff),
			LogHead:    srcSec.LogHead,
			LogSector:  srcSec.LogSector,
			PhysSector: srcSec.PhysSector,
		})
	}
}
