package disk

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSectorBytes__SupportedCodes(t *testing.T) {
	expected := []int{128, 256, 512, 1024, 2048, 4096, 8192}
	for code, size := range expected {
		assert.Equal(t, size, SectorBytes(code), "size for code %d", code)
		assert.Equal(t, code, SizeCode(size), "code for size %d", size)
	}
	assert.Equal(t, -1, SizeCode(100))
	assert.Equal(t, -1, SizeCode(16384))
}

func TestDataModes__CatalogOrder(t *testing.T) {
	// The probing order is part of the contract: MFM before FM at each
	// rate, slowest rates first.
	names := make([]string, len(DataModes))
	for i, mode := range DataModes {
		names[i] = mode.Name
	}
	assert.Equal(
		t,
		[]string{
			"MFM-250k", "FM-250k", "MFM-300k", "FM-300k",
			"MFM-500k", "FM-500k", "MFM-1000k",
		},
		names,
	)
}

func TestModeByIMD__Unknown(t *testing.T) {
	_, err := ModeByIMD(99)
	assert.Error(t, err)
}

func TestDisk__TrackBounds(t *testing.T) {
	d := New()

	track, err := d.Track(MaxCylinders-1, MaxHeads-1)
	require.NoError(t, err)
	assert.Equal(t, MaxCylinders-1, track.PhysCyl)
	assert.Equal(t, MaxHeads-1, track.PhysHead)
	assert.Equal(t, TrackUnknown, track.Status)

	_, err = d.Track(MaxCylinders, 0)
	assert.Error(t, err)
	_, err = d.Track(-1, 0)
	assert.Error(t, err)
	_, err = d.Track(0, MaxHeads)
	assert.Error(t, err)
}

func TestTrack__AppendSectorAssignsSlots(t *testing.T) {
	track := Track{SizeCode: -1}
	for i := 0; i < 3; i++ {
		require.NoError(t, track.AppendSector(Sector{LogSector: byte(9 - i)}))
	}
	for i := range track.Sectors {
		assert.EqualValues(t, i, track.Sectors[i].PhysSector)
	}
}

func TestTrack__AppendSectorCapacity(t *testing.T) {
	track := Track{SizeCode: -1}
	for i := 0; i < MaxSectors; i++ {
		require.NoError(t, track.AppendSector(Sector{}))
	}
	assert.Error(t, track.AppendSector(Sector{}))
}

func TestTrack__ResetReleasesPayloads(t *testing.T) {
	track := Track{SizeCode: 2, Status: TrackProbed, DataRead: true}
	require.NoError(t, track.AppendSector(Sector{Data: make([]byte, 512)}))

	track.Reset()
	assert.Equal(t, TrackUnknown, track.Status)
	assert.False(t, track.DataRead)
	assert.Nil(t, track.Mode)
	assert.Equal(t, -1, track.SizeCode)
	assert.Empty(t, track.Sectors)
}

func scanIDs(t *testing.T, ids []byte) (lowest, highest *Sector, contiguous bool) {
	t.Helper()
	track := Track{SizeCode: -1}
	for _, id := range ids {
		require.NoError(t, track.AppendSector(Sector{LogSector: id}))
	}
	return track.ScanSectors()
}

func TestScanSectors__Contiguous(t *testing.T) {
	lowest, highest, contiguous := scanIDs(t, []byte{7, 8, 9, 1, 2, 3, 4, 5, 6})
	require.NotNil(t, lowest)
	require.NotNil(t, highest)
	assert.EqualValues(t, 1, lowest.LogSector)
	assert.EqualValues(t, 9, highest.LogSector)
	assert.True(t, contiguous)
}

func TestScanSectors__Sparse(t *testing.T) {
	_, _, contiguous := scanIDs(t, []byte{1, 2, 4, 5})
	assert.False(t, contiguous)
}

func TestScanSectors__DuplicatesDontBreakContiguity(t *testing.T) {
	_, _, contiguous := scanIDs(t, []byte{3, 3, 4, 5, 4})
	assert.True(t, contiguous)
}

// Ties keep the first sector seen at both extremes.
func TestScanSectors__TiesKeepFirstSeen(t *testing.T) {
	lowest, highest, _ := scanIDs(t, []byte{5, 2, 9, 2, 9})
	assert.EqualValues(t, 1, lowest.PhysSector)
	assert.EqualValues(t, 2, highest.PhysSector)
}

// Randomized check of the contiguity predicate against a naive model.
func TestScanSectors__RandomizedAgainstModel(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for trial := 0; trial < 200; trial++ {
		count := 1 + rng.Intn(24)
		ids := make([]byte, count)
		seen := make(map[byte]bool)
		for i := range ids {
			ids[i] = byte(rng.Intn(32))
			seen[ids[i]] = true
		}

		minID, maxID := ids[0], ids[0]
		for _, id := range ids {
			if id < minID {
				minID = id
			}
			if id > maxID {
				maxID = id
			}
		}
		expected := true
		for id := minID; id <= maxID; id++ {
			if !seen[id] {
				expected = false
			}
		}

		lowest, highest, contiguous := scanIDs(t, ids)
		assert.Equal(t, expected, contiguous, "ids %v", ids)
		assert.Equal(t, minID, lowest.LogSector, "ids %v", ids)
		assert.Equal(t, maxID, highest.LogSector, "ids %v", ids)
	}
}

func TestCopyLayout__TranslatesLogicalCylinders(t *testing.T) {
	d := New()
	src, err := d.Track(4, 1)
	require.NoError(t, err)
	dest, err := d.Track(5, 1)
	require.NoError(t, err)

	src.Status = TrackProbed
	src.Mode = &DataModes[0]
	src.SizeCode = 2
	for i, id := range []byte{1, 4, 2, 5, 3} {
		require.NoError(t, src.AppendSector(Sector{
			LogCyl:    4,
			LogHead:   1,
			LogSector: id,
			Data:      []byte{byte(i)},
		}))
	}

	CopyLayout(src, dest)

	assert.Equal(t, TrackInherited, dest.Status)
	assert.Equal(t, src.Mode, dest.Mode)
	assert.Equal(t, src.SizeCode, dest.SizeCode)
	require.Len(t, dest.Sectors, len(src.Sectors))
	for i := range dest.Sectors {
		srcSec := &src.Sectors[i]
		destSec := &dest.Sectors[i]
		assert.Equal(t, srcSec.LogCyl+1, destSec.LogCyl, "sector %d", i)
		assert.Equal(t, srcSec.LogHead, destSec.LogHead, "sector %d", i)
		assert.Equal(t, srcSec.LogSector, destSec.LogSector, "sector %d", i)
		assert.Equal(t, srcSec.PhysSector, destSec.PhysSector, "sector %d", i)
		assert.Nil(t, destSec.Data, "payloads are never inherited")
	}
}

func TestCopyLayout__UnknownSourceIsIgnored(t *testing.T) {
	d := New()
	src, _ := d.Track(0, 0)
	dest, _ := d.Track(1, 0)
	dest.Status = TrackProbed

	CopyLayout(src, dest)
	assert.Equal(t, TrackProbed, dest.Status, "dest must be left alone")
}

func TestSector__SameAddr(t *testing.T) {
	a := Sector{LogCyl: 1, LogHead: 0, LogSector: 5}
	b := a
	assert.True(t, a.SameAddr(&b))
	b.LogSector = 6
	assert.False(t, a.SameAddr(&b))
}
