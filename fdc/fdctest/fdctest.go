// Package fdctest provides a scripted stand-in for the real floppy
// controller so the acquisition engine can be tested against disks that
// don't exist.
package fdctest

import (
	"github.com/floppydump/floppydump/disk"
	"github.com/floppydump/floppydump/fdc"
)

// OKReply builds a successful result phase for the given logical address.
func OKReply(logCyl, logHead, logSector byte, sizeCode byte) fdc.Reply {
	return fdc.Reply{
		LogCyl:    logCyl,
		LogHead:   logHead,
		LogSector: logSector,
		SizeCode:  sizeCode,
	}
}

// FailedReply builds a result phase with the ST0 interrupt code set to
// "abnormal termination".
func FailedReply() fdc.Reply {
	return fdc.Reply{ST0: 0x40}
}

// Commander is a scriptable fdc.Commander. Any hook left nil behaves as a
// command that completes with a failed status. Call counters let tests
// assert on retry behavior.
type Commander struct {
	RecalibrateFunc func() error
	ReadIDFunc      func(physCyl, physHead int, mode disk.DataMode) (fdc.Reply, error)
	ReadDataFunc    func(
		physCyl, physHead int,
		mode disk.DataMode,
		logCyl, logHead, logSector byte,
		sizeCode int,
		buf []byte,
	) (fdc.Reply, error)

	Recalibrations int
	IDReads        int
	DataReads      int
}

func (c *Commander) Recalibrate() error {
	c.Recalibrations++
	if c.RecalibrateFunc == nil {
		return nil
	}
	return c.RecalibrateFunc()
}

func (c *Commander) ReadSectorID(physCyl, physHead int, mode disk.DataMode) (fdc.Reply, error) {
	c.IDReads++
	if c.ReadIDFunc == nil {
		return FailedReply(), nil
	}
	return c.ReadIDFunc(physCyl, physHead, mode)
}

func (c *Commander) ReadSectorData(
	physCyl, physHead int,
	mode disk.DataMode,
	logCyl, logHead, logSector byte,
	sizeCode int,
	buf []byte,
) (fdc.Reply, error) {
	c.DataReads++
	if c.ReadDataFunc == nil {
		return FailedReply(), nil
	}
	return c.ReadDataFunc(physCyl, physHead, mode, logCyl, logHead, logSector, sizeCode, buf)
}

// Disk emulates a formatted disk: on every track the same sector IDs pass
// under the head in a fixed rotation, and sector payloads are generated by
// the Payload hook. The zero Payload fills each sector with its logical
// sector number.
type Disk struct {
	Mode disk.DataMode
	// IDs is the rotation of logical sector numbers, in the order they pass
	// the head.
	IDs      []byte
	SizeCode byte
	// Heads is the number of formatted sides; ReadSectorID fails on any
	// other head.
	Heads int
	// LogCylFor maps a physical cylinder to the logical cylinder recorded
	// in every ID field. Nil means identity.
	LogCylFor func(physCyl int) byte
	// Payload generates a sector's contents. Nil means a fill of the
	// logical sector number.
	Payload func(logCyl, logHead, logSector byte) []byte

	rotation int
}

// Commander wires the emulated disk into a scripted Commander.
func (d *Disk) Commander() *Commander {
	return &Commander{
		ReadIDFunc:   d.readID,
		ReadDataFunc: d.readData,
	}
}

func (d *Disk) logCyl(physCyl int) byte {
	if d.LogCylFor == nil {
		return byte(physCyl)
	}
	return d.LogCylFor(physCyl)
}

func (d *Disk) payload(logCyl, logHead, logSector byte, size int) []byte {
	if d.Payload != nil {
		return d.Payload(logCyl, logHead, logSector)
	}
	data := make([]byte, size)
	for i := range data {
		data[i] = logSector
	}
	return data
}

func (d *Disk) readID(physCyl, physHead int, mode disk.DataMode) (fdc.Reply, error) {
	if mode != d.Mode || physHead >= d.Heads {
		return FailedReply(), nil
	}
	id := d.IDs[d.rotation%len(d.IDs)]
	d.rotation++
	return OKReply(d.logCyl(physCyl), byte(physHead), id, d.SizeCode), nil
}

func (d *Disk) readData(
	physCyl, physHead int,
	mode disk.DataMode,
	logCyl, logHead, logSector byte,
	sizeCode int,
	buf []byte,
) (fdc.Reply, error) {
	if mode != d.Mode || physHead >= d.Heads ||
		sizeCode != int(d.SizeCode) || logCyl != d.logCyl(physCyl) {
		return FailedReply(), nil
	}

	sectorSize := disk.SectorBytes(sizeCode)
	for off := 0; off < len(buf); off += sectorSize {
		copy(buf[off:off+sectorSize], d.payload(logCyl, logHead, logSector, sectorSize))
		logSector++
	}
	return OKReply(logCyl, logHead, logSector, d.SizeCode), nil
}
