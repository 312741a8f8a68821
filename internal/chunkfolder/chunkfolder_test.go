package chunkfolder

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NaughtyChas/GitMC/internal/anvil"
	"github.com/NaughtyChas/GitMC/internal/gnbt"
)

func writeTestRegion(t *testing.T, path string, rx, rz int, coords [][2]int) {
	t.Helper()
	r, err := anvil.Create(path, rx, rz)
	require.NoError(t, err)
	for _, c := range coords {
		v := gnbt.NewCompound(
			gnbt.Entry{Name: "xPos", Value: gnbt.NewInt(int32(c[0]))},
			gnbt.Entry{Name: "zPos", Value: gnbt.NewInt(int32(c[1]))},
		)
		require.NoError(t, r.WriteChunk(c[0], c[1], v, 0))
	}
	require.NoError(t, r.Close())
}

func TestExplodeThenCombineRoundTrip(t *testing.T) {
	dir := t.TempDir()
	regionPath := filepath.Join(dir, "r.0.0.mca")
	writeTestRegion(t, regionPath, 0, 0, [][2]int{{0, 0}, {31, 31}, {5, -5}})

	destDir := t.TempDir()
	folderPath, err := Explode(regionPath, destDir)
	require.NoError(t, err)

	entries, err := os.ReadDir(folderPath)
	require.NoError(t, err)
	assert.Len(t, entries, 3)

	_, err = os.Stat(filepath.Join(destDir, MarkerName(0, 0)))
	require.NoError(t, err)

	outPath := filepath.Join(t.TempDir(), anvil.RegionFilename(0, 0))
	warnings, err := Combine(folderPath, outPath)
	require.NoError(t, err)
	assert.Empty(t, warnings)

	region, err := anvil.Open(outPath)
	require.NoError(t, err)
	defer region.Close()
	assert.True(t, region.Present(0, 0))
	assert.True(t, region.Present(31, 31))
	assert.True(t, region.Present(5, -5))
}

func TestExplodeEmptyRegionWritesRegionInfo(t *testing.T) {
	dir := t.TempDir()
	regionPath := filepath.Join(dir, "r.2.-3.mca")
	writeTestRegion(t, regionPath, 2, -3, nil)

	destDir := t.TempDir()
	folderPath, err := Explode(regionPath, destDir)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(folderPath, RegionInfoFileName))
	require.NoError(t, err)
	assert.Contains(t, string(data), "IsEmpty")
}

func TestCombineWarnsOnXPosMismatch(t *testing.T) {
	dir := t.TempDir()
	folderPath := filepath.Join(dir, "r.0.0.mca")
	require.NoError(t, os.MkdirAll(folderPath, 0o755))

	require.NoError(t, os.WriteFile(filepath.Join(folderPath, "chunk_0_0.snbt"), []byte(`{xPos: 99}`), 0o644))

	outPath := filepath.Join(dir, "out.mca")
	warnings, err := Combine(folderPath, outPath)
	require.NoError(t, err)
	require.Len(t, warnings, 1)
}
