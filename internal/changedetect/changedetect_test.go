package changedetect

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NaughtyChas/GitMC/internal/anvil"
	"github.com/NaughtyChas/GitMC/internal/gnbt"
	"github.com/NaughtyChas/GitMC/internal/manifest"
	"github.com/NaughtyChas/GitMC/internal/snbt"
	"github.com/NaughtyChas/GitMC/internal/vcs"
)

const headHash = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"

// fakeVCS is a minimal vcs.Adapter stub: only Status/CurrentHash/ShowAt are
// exercised by the change detector, so every other
// method panics if ever reached.
type fakeVCS struct {
	status vcs.Status
	head   string
	showAt map[string][]byte // "path@hash" -> content, nil entry means tracked-but-identical lookup only
}

func (f *fakeVCS) Status(dir string) (vcs.Status, error)  { return f.status, nil }
func (f *fakeVCS) CurrentHash(dir string) (string, error) { return f.head, nil }
func (f *fakeVCS) ShowAt(dir, path, hash string) ([]byte, error) {
	data, ok := f.showAt[path+"@"+hash]
	if !ok {
		return nil, nil
	}
	return data, nil
}
func (f *fakeVCS) Init(dir string) error                             { panic("not used") }
func (f *fakeVCS) Identity(dir string) (string, string, bool, error) { panic("not used") }
func (f *fakeVCS) Stage(dir, path string) error                      { panic("not used") }
func (f *fakeVCS) StageAll(dir string) ([]string, error)             { panic("not used") }
func (f *fakeVCS) Unstage(dir, path string) error                    { panic("not used") }
func (f *fakeVCS) Commit(dir, message string) (string, error)        { panic("not used") }
func (f *fakeVCS) Amend(dir, message string) (string, error)         { panic("not used") }
func (f *fakeVCS) IsAncestor(dir, ancestor, descendant string) (bool, error) {
	panic("not used")
}

var _ vcs.Adapter = (*fakeVCS)(nil)

func chunkValue(xPos int32, extra ...gnbt.Entry) gnbt.Value {
	entries := append([]gnbt.Entry{
		{Name: "xPos", Value: gnbt.NewInt(xPos)},
		{Name: "zPos", Value: gnbt.NewInt(0)},
	}, extra...)
	return gnbt.NewCompound(entries...)
}

func writeRegionWithChunk(t *testing.T, path string, rx, rz int, v gnbt.Value) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	r, err := anvil.Create(path, rx, rz)
	require.NoError(t, err)
	require.NoError(t, r.WriteChunk(0, 0, v, gnbt.CompressionZlib))
	require.NoError(t, r.Close())
}

func TestDetectFindsChangedChunk(t *testing.T) {
	saveDir := t.TempDir()
	coreDir := t.TempDir()
	regionRel := "region/r.0.0.mca"
	regionAbs := filepath.Join(saveDir, "region", "r.0.0.mca")

	writeRegionWithChunk(t, regionAbs, 0, 0, chunkValue(7))

	m := manifest.New()
	oldText := snbt.Serialize(chunkValue(1), snbt.Compact)
	manifestPath := "region/r.0.0.mca/chunk_0_0.snbt"
	require.NoError(t, m.Put(manifestPath, headHash, false))

	f := &fakeVCS{
		status: vcs.Status{Modified: []string{regionRel}},
		head:   headHash,
		showAt: map[string][]byte{
			regionRel + "@" + headHash:    []byte("stale region bytes"),
			manifestPath + "@" + headHash: []byte(oldText),
		},
	}

	result, warnings, err := Detect(Config{
		SaveDir:  saveDir,
		CoreDir:  coreDir,
		SaveVCS:  f,
		CoreVCS:  f,
		Manifest: m,
	})
	require.NoError(t, err)
	assert.Empty(t, warnings)
	require.Len(t, result.RegionChunks, 1)
	assert.Equal(t, regionRel, result.RegionChunks[0].RelPath)
	assert.Equal(t, []ChunkCoord{{CX: 0, CZ: 0}}, result.RegionChunks[0].Chunks)
}

func TestDetectSkipsUnchangedChunk(t *testing.T) {
	saveDir := t.TempDir()
	coreDir := t.TempDir()
	regionRel := "region/r.0.0.mca"
	regionAbs := filepath.Join(saveDir, "region", "r.0.0.mca")

	v := chunkValue(7)
	writeRegionWithChunk(t, regionAbs, 0, 0, v)

	m := manifest.New()
	manifestPath := "region/r.0.0.mca/chunk_0_0.snbt"
	sameText := snbt.Serialize(v, snbt.Compact)
	require.NoError(t, m.Put(manifestPath, headHash, false))

	f := &fakeVCS{
		status: vcs.Status{Modified: []string{regionRel}},
		head:   headHash,
		showAt: map[string][]byte{
			regionRel + "@" + headHash:    []byte("stale region bytes"),
			manifestPath + "@" + headHash: []byte(sameText),
		},
	}

	result, warnings, err := Detect(Config{
		SaveDir:  saveDir,
		CoreDir:  coreDir,
		SaveVCS:  f,
		CoreVCS:  f,
		Manifest: m,
	})
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.True(t, result.Empty())
}

func TestDetectVolatileFieldOnlyChangeIsIgnored(t *testing.T) {
	saveDir := t.TempDir()
	coreDir := t.TempDir()
	regionRel := "region/r.0.0.mca"
	regionAbs := filepath.Join(saveDir, "region", "r.0.0.mca")

	newChunk := chunkValue(7, gnbt.Entry{Name: "LastUpdate", Value: gnbt.NewLong(999)})
	writeRegionWithChunk(t, regionAbs, 0, 0, newChunk)

	oldChunk := chunkValue(7, gnbt.Entry{Name: "LastUpdate", Value: gnbt.NewLong(1)})
	manifestPath := "region/r.0.0.mca/chunk_0_0.snbt"
	oldText := snbt.Serialize(oldChunk, snbt.Compact)

	m := manifest.New()
	require.NoError(t, m.Put(manifestPath, headHash, false))

	f := &fakeVCS{
		status: vcs.Status{Modified: []string{regionRel}},
		head:   headHash,
		showAt: map[string][]byte{
			regionRel + "@" + headHash:    []byte("stale region bytes"),
			manifestPath + "@" + headHash: []byte(oldText),
		},
	}

	result, _, err := Detect(Config{
		SaveDir:  saveDir,
		CoreDir:  coreDir,
		SaveVCS:  f,
		CoreVCS:  f,
		Manifest: m,
	})
	require.NoError(t, err)
	assert.True(t, result.Empty(), "a LastUpdate-only diff must not be reported as a change")
}

func TestDetectByteIdenticalRegionIsSound(t *testing.T) {
	saveDir := t.TempDir()
	coreDir := t.TempDir()
	regionRel := "region/r.0.0.mca"
	regionAbs := filepath.Join(saveDir, "region", "r.0.0.mca")
	writeRegionWithChunk(t, regionAbs, 0, 0, chunkValue(7))

	data, err := os.ReadFile(regionAbs)
	require.NoError(t, err)

	m := manifest.New()
	f := &fakeVCS{
		status: vcs.Status{Modified: []string{regionRel}},
		head:   headHash,
		showAt: map[string][]byte{
			regionRel + "@" + headHash: data,
		},
	}

	result, warnings, err := Detect(Config{
		SaveDir:  saveDir,
		CoreDir:  coreDir,
		SaveVCS:  f,
		CoreVCS:  f,
		Manifest: m,
	})
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.True(t, result.Empty(), "a byte-identical region must be discarded as a mere re-stamp")
}

func TestDetectClassifiesNonRegionFiles(t *testing.T) {
	saveDir := t.TempDir()
	coreDir := t.TempDir()

	m := manifest.New()
	f := &fakeVCS{
		status: vcs.Status{
			Modified:  []string{"level.dat"},
			Untracked: []string{"icon.txt", "stats.json"},
		},
		head: "",
	}

	result, _, err := Detect(Config{
		SaveDir:  saveDir,
		CoreDir:  coreDir,
		SaveVCS:  f,
		CoreVCS:  f,
		Manifest: m,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"level.dat"}, result.NonRegionTranslate)
	assert.ElementsMatch(t, []string{"icon.txt", "stats.json"}, result.NonRegionCopy)
}
