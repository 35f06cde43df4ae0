// Package fdc is the low-level command channel to the PC floppy disk
// controller. The acquisition engine only depends on the Commander
// interface; the real implementation drives /dev/fdN through raw
// controller commands.
//
// Every call blocks until the controller completes the command or the
// transport fails. A failed controller status is a normal Reply with
// OK() == false and is recoverable by the caller's retry policy; an error
// return is a protocol-level fault and always fatal.
package fdc

import (
	"github.com/floppydump/floppydump/disk"
)

// Reply carries the controller's result phase for an ID or data read.
type Reply struct {
	ST0 byte
	ST1 byte
	ST2 byte
	// Logical address recorded on the medium for the sector that passed
	// under the head, independent of its physical position.
	LogCyl    byte
	LogHead   byte
	LogSector byte
	// SizeCode is the FDC sector-size code c, size = 128 << c.
	SizeCode byte
}

// OK reports command success: the ST0 interrupt code (top two bits) is 00.
func (r Reply) OK() bool {
	return (r.ST0>>6)&3 == 0
}

// Deleted reports whether the sector carried a deleted-data address mark
// (ST2 control mark bit).
func (r Reply) Deleted() bool {
	return r.ST2&0x40 != 0
}

// Commander issues one blocking controller command at a time. The medium
// and controller are an exclusive, stateful resource; callers never have
// more than one command outstanding.
type Commander interface {
	// Recalibrate seeks the head back toward cylinder 0. The controller
	// gives up after stepping 80 cylinders, so callers issue it twice to
	// guarantee convergence from cylinder 80+.
	Recalibrate() error

	// ReadSectorID reads the ID field of whichever sector reaches the head
	// next on the given physical track, in the given data mode. The
	// controller gives up after two index holes if nothing could be read.
	ReadSectorID(physCyl, physHead int, mode disk.DataMode) (Reply, error)

	// ReadSectorData reads one or more logically-consecutive sectors,
	// starting from the given logical address, into buf. len(buf) must be
	// a multiple of the sector size implied by sizeCode; the number of
	// sectors read is len(buf) / (128 << sizeCode).
	ReadSectorData(
		physCyl, physHead int,
		mode disk.DataMode,
		logCyl, logHead, logSector byte,
		sizeCode int,
		buf []byte,
	) (Reply, error)
}
