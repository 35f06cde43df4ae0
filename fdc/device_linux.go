//go:build linux

package fdc

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/floppydump/floppydump"
	"github.com/floppydump/floppydump/disk"
)

// Controller opcodes, as accepted by the raw command ioctl. The 0x40 bit
// selects MFM; it is cleared for FM modes.
const (
	opRecalibrate = 0x07
	opReadID      = 0x4A
	// FD_READ with the MT (multiple tracks) bit cleared.
	opRead = 0x66

	mfmBit = 0x40
)

// Raw command flags from <linux/fd.h>.
const (
	rawRead         = 0x01
	rawInterrupt    = 0x08
	rawNeedSeek     = 0x80
	fdResetAlways   = 2
	ioctlDirRead    = 2
	ioctlFloppyType = 2
)

// rawCommand mirrors struct floppy_raw_cmd from <linux/fd.h> on 64-bit
// kernels.
type rawCommand struct {
	Flags        uint32
	_            [4]byte
	Data         unsafe.Pointer
	KernelData   uintptr
	Next         uintptr
	Length       int64
	PhysLength   int64
	BufferLength int32
	Rate         uint8
	CmdCount     uint8
	Cmd          [16]uint8
	ReplyCount   uint8
	Reply        [16]uint8
	Track        int32
	ResultCode   int32
	Reserved1    int32
	Reserved2    int32
}

// driveParams mirrors struct floppy_drive_params from <linux/fd.h> on
// 64-bit kernels. Only Tracks is consumed; the rest keeps the layout right
// for the ioctl.
type driveParams struct {
	CMOS           int8
	_              [7]byte
	MaxDTR         uint64
	HLT            uint64
	HUT            uint64
	SRT            uint64
	Spinup         uint64
	Spindown       uint64
	SpindownOffset uint8
	SelectDelay    uint8
	RPS            uint8
	Tracks         uint8
	_              [4]byte
	Timeout        uint64
	InterleaveSect uint8
	_              [3]byte
	MaxErrors      [5]uint32
	Flags          int8
	ReadTrack      int8
	Autodetect     [8]int16
	_              [2]byte
	CheckFreq      int32
	NativeFormat   int32
}

func ioc(dir, typ, nr, size uintptr) uintptr {
	return dir<<30 | size<<16 | typ<<8 | nr
}

var (
	ioctlFDReset     = ioc(0, ioctlFloppyType, 0x54, 0)
	ioctlFDRawCmd    = ioc(0, ioctlFloppyType, 0x58, 0)
	ioctlFDGetDrvPrm = ioc(ioctlDirRead, ioctlFloppyType, 0x04, unsafe.Sizeof(driveParams{}))
)

// Device is the real command channel to one floppy drive. It owns the open
// device node for the duration of a run; there is no ambient global handle.
type Device struct {
	fd     int
	drive  int
	path   string
	tracks int
}

// Open opens /dev/fdN for raw command access, reads the BIOS drive
// parameters, and resets the controller.
//
// The BIOS parameters aren't necessarily accurate (e.g. there's no BIOS
// type for an 80-track 5.25" DD drive), so Tracks() is only a default.
func Open(drive int) (*Device, error) {
	path := fmt.Sprintf("/dev/fd%d", drive)

	// O_ACCMODE grants raw command access without data-plane read/write.
	fd, err := unix.Open(path, unix.O_ACCMODE|unix.O_NONBLOCK, 0)
	if err != nil {
		return nil, fmt.Errorf("cannot open %s: %w", path, err)
	}

	dev := &Device{fd: fd, drive: drive, path: path}

	var params driveParams
	if _, _, errno := unix.Syscall(
		unix.SYS_IOCTL, uintptr(fd), ioctlFDGetDrvPrm,
		uintptr(unsafe.Pointer(&params)),
	); errno != 0 {
		dev.Close()
		return nil, fmt.Errorf("cannot get drive parameters for %s: %w", path, errno)
	}
	dev.tracks = int(params.Tracks)

	if _, _, errno := unix.Syscall(
		unix.SYS_IOCTL, uintptr(fd), ioctlFDReset, fdResetAlways,
	); errno != 0 {
		dev.Close()
		return nil, fmt.Errorf("cannot reset controller on %s: %w", path, errno)
	}

	return dev, nil
}

// Path returns the device node this handle was opened on.
func (d *Device) Path() string {
	return d.path
}

// Tracks returns the BIOS-reported track count for the drive.
func (d *Device) Tracks() int {
	return d.tracks
}

func (d *Device) Close() error {
	if d.fd < 0 {
		return nil
	}
	err := unix.Close(d.fd)
	d.fd = -1
	return err
}

// selector builds the FDC drive select byte for a physical head.
func (d *Device) selector(head int) byte {
	return byte((head << 2) | d.drive)
}

// raw submits one command and blocks until the controller completes it.
// An ioctl failure is a transport fault and therefore fatal.
func (d *Device) raw(name string, cmd *rawCommand) error {
	_, _, errno := unix.Syscall(
		unix.SYS_IOCTL, uintptr(d.fd), ioctlFDRawCmd,
		uintptr(unsafe.Pointer(cmd)))
	if errno != 0 {
		return floppydump.ErrProtocolFault.Wrap(
			fmt.Errorf("%s on %s: %w", name, d.path, errno))
	}
	return nil
}

// reply validates the result phase. Seven reply bytes are expected for ID
// and data reads; anything shorter is a protocol fault.
func (d *Device) reply(name string, cmd *rawCommand) (Reply, error) {
	if cmd.ReplyCount < 7 {
		return Reply{}, floppydump.ErrProtocolFault.WithMessage(
			fmt.Sprintf("%s on %s returned short reply (%d bytes)",
				name, d.path, cmd.ReplyCount))
	}
	return Reply{
		ST0:       cmd.Reply[0],
		ST1:       cmd.Reply[1],
		ST2:       cmd.Reply[2],
		LogCyl:    cmd.Reply[3],
		LogHead:   cmd.Reply[4],
		LogSector: cmd.Reply[5],
		SizeCode:  cmd.Reply[6],
	}, nil
}

func applyDataMode(mode disk.DataMode, cmd *rawCommand) {
	cmd.Rate = mode.Rate
	if mode.IsFM {
		cmd.Cmd[0] &^= mfmBit
	}
}

func (d *Device) Recalibrate() error {
	cmd := rawCommand{Flags: rawInterrupt, CmdCount: 2}
	cmd.Cmd[0] = opRecalibrate
	cmd.Cmd[1] = d.selector(0)
	return d.raw("recalibrate", &cmd)
}

func (d *Device) ReadSectorID(physCyl, physHead int, mode disk.DataMode) (Reply, error) {
	cmd := rawCommand{
		Flags:    rawInterrupt | rawNeedSeek,
		CmdCount: 2,
		Track:    int32(physCyl),
	}
	cmd.Cmd[0] = opReadID
	cmd.Cmd[1] = d.selector(physHead)
	applyDataMode(mode, &cmd)

	if err := d.raw("read sector ID", &cmd); err != nil {
		return Reply{}, err
	}
	return d.reply("read sector ID", &cmd)
}

func (d *Device) ReadSectorData(
	physCyl, physHead int,
	mode disk.DataMode,
	logCyl, logHead, logSector byte,
	sizeCode int,
	buf []byte,
) (Reply, error) {
	cmd := rawCommand{
		Flags:    rawRead | rawInterrupt | rawNeedSeek,
		CmdCount: 9,
		Track:    int32(physCyl),
		Data:     unsafe.Pointer(&buf[0]),
		Length:   int64(len(buf)),
	}
	cmd.Cmd[0] = opRead
	cmd.Cmd[1] = d.selector(physHead)
	cmd.Cmd[2] = logCyl
	cmd.Cmd[3] = logHead
	cmd.Cmd[4] = logSector
	cmd.Cmd[5] = byte(sizeCode)
	// End of track sector number.
	cmd.Cmd[6] = 0xFF
	// Intersector gap; the fdutils manual says the value makes no
	// difference for reads.
	cmd.Cmd[7] = 0x1B
	// Bytes per sector -- only meaningful when the size code is 0,
	// otherwise it must be 0xFF.
	if sizeCode == 0 {
		cmd.Cmd[8] = byte(disk.SectorBytes(0))
	} else {
		cmd.Cmd[8] = 0xFF
	}
	applyDataMode(mode, &cmd)

	if err := d.raw("read sector data", &cmd); err != nil {
		return Reply{}, err
	}
	return d.reply("read sector data", &cmd)
}
