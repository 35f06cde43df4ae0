package acquire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/floppydump/floppydump/disk"
	"github.com/floppydump/floppydump/fdc"
	"github.com/floppydump/floppydump/fdc/fdctest"
)

func payloadFor(logCyl, logHead, logSector byte) []byte {
	data := make([]byte, 512)
	for i := range data {
		data[i] = logCyl ^ logHead ^ logSector ^ byte(i)
	}
	return data
}

func acquiredTrack(t *testing.T, emulated *fdctest.Disk) *disk.Track {
	t.Helper()
	controller, _ := newTestController(emulated.Commander())
	track := testTrack(t, disk.New(), 2, 0)
	done, err := controller.readTrack(track)
	require.NoError(t, err)
	require.True(t, done)
	return track
}

// The whole-track fast path and sector-by-sector reads must produce the
// same bytes for every sector.
func TestReadTrack__FastPathEquivalence(t *testing.T) {
	fast := &fdctest.Disk{
		Mode:     disk.DataModes[0],
		IDs:      []byte{7, 8, 9, 1, 2, 3, 4, 5, 6},
		SizeCode: 2,
		Heads:    2,
		Payload:  payloadFor,
	}
	slow := &fdctest.Disk{
		Mode:     disk.DataModes[0],
		IDs:      []byte{7, 8, 9, 1, 2, 3, 4, 5, 6},
		SizeCode: 2,
		Heads:    2,
		Payload:  payloadFor,
	}
	// Cripple multi-sector reads so the second acquisition has to fall
	// back to one request per sector.
	slowInner := slow.Commander()
	slowCommander := &fdctest.Commander{
		ReadIDFunc: slowInner.ReadIDFunc,
		ReadDataFunc: func(
			physCyl, physHead int,
			mode disk.DataMode,
			logCyl, logHead, logSector byte,
			sizeCode int,
			buf []byte,
		) (fdc.Reply, error) {
			if len(buf) > disk.SectorBytes(sizeCode) {
				return fdctest.FailedReply(), nil
			}
			return slowInner.ReadDataFunc(
				physCyl, physHead, mode, logCyl, logHead, logSector, sizeCode, buf)
		},
	}

	fastTrack := acquiredTrack(t, fast)

	slowController, _ := newTestController(slowCommander)
	slowTrack := testTrack(t, disk.New(), 2, 0)
	done, err := slowController.readTrack(slowTrack)
	require.NoError(t, err)
	require.True(t, done)

	require.Equal(t, len(fastTrack.Sectors), len(slowTrack.Sectors))
	for i := range fastTrack.Sectors {
		fastSec := &fastTrack.Sectors[i]
		slowSec := &slowTrack.Sectors[i]
		assert.Equal(t, fastSec.LogSector, slowSec.LogSector)
		assert.Equal(t, fastSec.Data, slowSec.Data, "sector %d payload", fastSec.LogSector)
		assert.Equal(t, disk.SectorGood, fastSec.Status)
		assert.Equal(t, disk.SectorGood, slowSec.Status)
	}
}

func TestReadTrack__FastPathUsesOneRequest(t *testing.T) {
	emulated := &fdctest.Disk{
		Mode:     disk.DataModes[0],
		IDs:      []byte{1, 2, 3, 4, 5},
		SizeCode: 2,
		Heads:    2,
	}
	commander := emulated.Commander()
	controller, progress := newTestController(commander)
	track := testTrack(t, disk.New(), 2, 0)

	done, err := controller.readTrack(track)
	require.NoError(t, err)
	require.True(t, done)
	assert.Equal(t, 1, commander.DataReads,
		"a contiguous track takes a single multi-sector request")
	assert.Contains(t, progress.String(), " 1-5+")
}

func TestReadTrack__SkipsPopulatedSectors(t *testing.T) {
	emulated := &fdctest.Disk{
		Mode:     disk.DataModes[0],
		IDs:      []byte{1, 2, 3},
		SizeCode: 0,
		Heads:    2,
	}
	commander := emulated.Commander()
	controller, progress := newTestController(commander)
	track := testTrack(t, disk.New(), 2, 0)

	require.NoError(t, controller.probeTrack(track))

	// Pretend sector 2 already came in on an earlier attempt.
	existing := []byte{0xAA}
	for i := range track.Sectors {
		if track.Sectors[i].LogSector == 2 {
			track.Sectors[i].Data = existing
			track.Sectors[i].Status = disk.SectorGood
		}
	}

	done, err := controller.readTrack(track)
	require.NoError(t, err)
	assert.True(t, done)
	assert.Contains(t, progress.String(), "(2)")
	for i := range track.Sectors {
		if track.Sectors[i].LogSector == 2 {
			assert.Equal(t, existing, track.Sectors[i].Data,
				"a populated sector is never reset by re-reading")
		}
	}
}

func TestReadTrack__FailedSectorLeftMissing(t *testing.T) {
	emulated := &fdctest.Disk{
		Mode:     disk.DataModes[0],
		IDs:      []byte{1, 3, 5}, // not contiguous: no fast path
		SizeCode: 1,
		Heads:    2,
	}
	inner := emulated.Commander()
	commander := &fdctest.Commander{
		ReadIDFunc: inner.ReadIDFunc,
		ReadDataFunc: func(
			physCyl, physHead int,
			mode disk.DataMode,
			logCyl, logHead, logSector byte,
			sizeCode int,
			buf []byte,
		) (fdc.Reply, error) {
			if logSector == 3 {
				return fdctest.FailedReply(), nil
			}
			return inner.ReadDataFunc(
				physCyl, physHead, mode, logCyl, logHead, logSector, sizeCode, buf)
		},
	}
	controller, progress := newTestController(commander)
	track := testTrack(t, disk.New(), 2, 0)

	done, err := controller.readTrack(track)
	assert.False(t, done)
	require.Error(t, err, "the incomplete report names the failed sectors")
	assert.Contains(t, err.Error(), "unreadable")

	for i := range track.Sectors {
		sector := &track.Sectors[i]
		if sector.LogSector == 3 {
			assert.Nil(t, sector.Data)
			assert.Equal(t, disk.SectorMissing, sector.Status)
		} else {
			assert.NotNil(t, sector.Data)
			assert.Equal(t, disk.SectorGood, sector.Status)
		}
	}
	assert.Contains(t, progress.String(), "-")
}
