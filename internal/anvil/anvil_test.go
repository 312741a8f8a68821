package anvil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NaughtyChas/GitMC/internal/gnbt"
)

func newChunkValue(n int32) gnbt.Value {
	return gnbt.NewCompound(
		gnbt.Entry{Name: "xPos", Value: gnbt.NewInt(n)},
		gnbt.Entry{Name: "zPos", Value: gnbt.NewInt(n)},
		gnbt.Entry{Name: "filler", Value: gnbt.NewByteArray(make([]byte, 16))},
	)
}

func TestLocalIndexAndRegionForChunk(t *testing.T) {
	assert.Equal(t, 0, LocalIndex(0, 0))
	assert.Equal(t, 31*32+31, LocalIndex(31, 31))
	assert.Equal(t, 31, LocalIndex(-1, 0))

	rx, rz := RegionForChunk(-1, -1)
	assert.Equal(t, -1, rx)
	assert.Equal(t, -1, rz)

	rx, rz = RegionForChunk(31, 31)
	assert.Equal(t, 0, rx)
	assert.Equal(t, 0, rz)

	rx, rz = RegionForChunk(32, 32)
	assert.Equal(t, 1, rx)
	assert.Equal(t, 1, rz)
}

func TestParseRegionFilename(t *testing.T) {
	rx, rz, err := ParseRegionFilename("r.-2.3.mca")
	require.NoError(t, err)
	assert.Equal(t, -2, rx)
	assert.Equal(t, 3, rz)

	_, _, err = ParseRegionFilename("not-a-region.mca")
	assert.Error(t, err)
}

func TestCreateWriteReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, RegionFilename(0, 0))

	r, err := Create(path, 0, 0)
	require.NoError(t, err)

	v := newChunkValue(5)
	require.NoError(t, r.WriteChunk(5, 5, v, gnbt.CompressionZlib))
	require.NoError(t, r.Close())

	r2, err := Open(path)
	require.NoError(t, err)
	defer r2.Close()

	assert.True(t, r2.Present(5, 5))
	assert.False(t, r2.Present(6, 6))

	got, present, err := r2.ReadChunk(5, 5)
	require.NoError(t, err)
	require.True(t, present)
	xpos, ok := got.Compound.Get("xPos")
	require.True(t, ok)
	assert.EqualValues(t, 5, xpos.Int)
}

func TestListChunksAndValidate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, RegionFilename(0, 0))

	r, err := Create(path, 0, 0)
	require.NoError(t, err)
	require.NoError(t, r.WriteChunk(0, 0, newChunkValue(0), gnbt.CompressionZlib))
	require.NoError(t, r.WriteChunk(31, 31, newChunkValue(31), gnbt.CompressionUncompressed))
	require.NoError(t, r.Close())

	r2, err := Open(path)
	require.NoError(t, err)
	defer r2.Close()

	chunks := r2.ListChunks()
	assert.Len(t, chunks, 2)

	res := r2.Validate()
	assert.Empty(t, res.Errors)
}

func TestWriteChunkSpillsExternalWhenOversize(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, RegionFilename(0, 0))

	r, err := Create(path, 0, 0)
	require.NoError(t, err)

	big := gnbt.NewCompound(
		gnbt.Entry{Name: "xPos", Value: gnbt.NewInt(0)},
		gnbt.Entry{Name: "payload", Value: gnbt.NewByteArray(make([]byte, 2_000_000))},
	)
	require.NoError(t, r.WriteChunk(0, 0, big, gnbt.CompressionUncompressed))
	require.NoError(t, r.Close())

	mccPath := filepath.Join(dir, "c.0.0.mcc")
	_, statErr := os.Stat(mccPath)
	require.NoError(t, statErr)

	r2, err := Open(path)
	require.NoError(t, err)
	defer r2.Close()
	got, present, err := r2.ReadChunk(0, 0)
	require.NoError(t, err)
	require.True(t, present)
	payload, ok := got.Compound.Get("payload")
	require.True(t, ok)
	assert.Len(t, payload.ByteArray, 2_000_000)
}

func TestCompactReclaimsOrphanedSectors(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, RegionFilename(0, 0))

	r, err := Create(path, 0, 0)
	require.NoError(t, err)

	// Incompressible payload so the rewrite below genuinely needs more
	// sectors and must relocate past its neighbor.
	noise := make([]byte, 12000)
	seed := uint32(1)
	for i := range noise {
		seed = seed*1664525 + 1013904223
		noise[i] = byte(seed >> 24)
	}
	big := gnbt.NewCompound(
		gnbt.Entry{Name: "xPos", Value: gnbt.NewInt(0)},
		gnbt.Entry{Name: "zPos", Value: gnbt.NewInt(0)},
		gnbt.Entry{Name: "blob", Value: gnbt.NewByteArray(noise)},
	)

	require.NoError(t, r.WriteChunk(0, 0, newChunkValue(0), gnbt.CompressionZlib))
	require.NoError(t, r.WriteChunk(1, 0, newChunkValue(1), gnbt.CompressionZlib))
	// Growing (0,0) forces it past (1,0), orphaning its old sectors.
	require.NoError(t, r.WriteChunk(0, 0, big, gnbt.CompressionZlib))

	removed, err := r.Compact()
	require.NoError(t, err)
	assert.Greater(t, removed, int64(0))
	assert.Zero(t, removed%sectorSize, "compaction trims whole sectors")

	v, present, err := r.ReadChunk(0, 0)
	require.NoError(t, err)
	require.True(t, present)
	blob, ok := v.Compound.Get("blob")
	require.True(t, ok)
	assert.Equal(t, noise, blob.ByteArray)

	_, present, err = r.ReadChunk(1, 0)
	require.NoError(t, err)
	assert.True(t, present)

	res := r.Validate()
	assert.Empty(t, res.Errors)

	removed, err = r.Compact()
	require.NoError(t, err)
	assert.Zero(t, removed, "a compacted region stays put")

	require.NoError(t, r.Close())
}
