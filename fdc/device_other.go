//go:build !linux

package fdc

import (
	"fmt"

	"github.com/floppydump/floppydump/disk"
)

// Device exists on non-Linux platforms only so the package compiles; raw
// floppy controller commands need the Linux fd driver.
type Device struct{}

func Open(drive int) (*Device, error) {
	return nil, fmt.Errorf("raw floppy controller access requires Linux")
}

func (d *Device) Path() string { return "" }

func (d *Device) Tracks() int { return 0 }

func (d *Device) Close() error { return nil }

func (d *Device) Recalibrate() error {
	return fmt.Errorf("raw floppy controller access requires Linux")
}

func (d *Device) ReadSectorID(physCyl, physHead int, mode disk.DataMode) (Reply, error) {
	return Reply{}, fmt.Errorf("raw floppy controller access requires Linux")
}

func (d *Device) ReadSectorData(
	physCyl, physHead int,
	mode disk.DataMode,
	logCyl, logHead, logSector byte,
	sizeCode int,
	buf []byte,
) (Reply, error) {
	return Reply{}, fmt.Errorf("raw floppy controller access requires Linux")
}
