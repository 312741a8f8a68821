package orchestrator

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NaughtyChas/GitMC/internal/anvil"
	"github.com/NaughtyChas/GitMC/internal/gnbt"
	"github.com/NaughtyChas/GitMC/internal/manifest"
	"github.com/NaughtyChas/GitMC/internal/opmanager"
	"github.com/NaughtyChas/GitMC/internal/snbt"
	"github.com/NaughtyChas/GitMC/internal/vcs/gitvcs"
)

// setGlobalIdentity points HOME (and XDG_CONFIG_HOME) at a throwaway
// directory carrying a user.name/user.email, so the identity check the
// workflows run before any repository exists resolves deterministically.
func setGlobalIdentity(t *testing.T) {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	gitconfig := "[user]\n\tname = Alex\n\temail = alex@example.com\n"
	require.NoError(t, os.WriteFile(filepath.Join(home, ".gitconfig"), []byte(gitconfig), 0o644))
}

func chunkValue(cx, cz int, lastUpdate int64, extra ...gnbt.Entry) gnbt.Value {
	entries := []gnbt.Entry{
		{Name: "xPos", Value: gnbt.NewInt(int32(cx))},
		{Name: "zPos", Value: gnbt.NewInt(int32(cz))},
		{Name: "LastUpdate", Value: gnbt.NewLong(lastUpdate)},
	}
	entries = append(entries, extra...)
	return gnbt.NewCompound(entries...)
}

// newTestSave builds a minimal save: a gzip level.dat and one region with
// chunks at (0,0) and (31,31).
func newTestSave(t *testing.T) string {
	t.Helper()
	save := t.TempDir()

	level := gnbt.Root{Value: gnbt.NewCompound(
		gnbt.Entry{Name: "Data", Value: gnbt.NewCompound(
			gnbt.Entry{Name: "LevelName", Value: gnbt.NewString("test world")},
		)},
	)}
	data, err := gnbt.Encode(level, gnbt.CompressionGZip)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(save, "level.dat"), data, 0o644))

	require.NoError(t, os.MkdirAll(filepath.Join(save, "region"), 0o755))
	r, err := anvil.Create(filepath.Join(save, "region", "r.0.0.mca"), 0, 0)
	require.NoError(t, err)
	require.NoError(t, r.WriteChunk(0, 0, chunkValue(0, 0, 100), 0))
	require.NoError(t, r.WriteChunk(31, 31, chunkValue(31, 31, 200), 0))
	require.NoError(t, r.Close())

	return save
}

func newTestOrchestrator() *Orchestrator {
	return New(gitvcs.New(), opmanager.New())
}

func rewriteChunk(t *testing.T, save string, cx, cz int, v gnbt.Value) {
	t.Helper()
	r, err := anvil.Open(filepath.Join(save, "region", "r.0.0.mca"))
	require.NoError(t, err)
	require.NoError(t, r.WriteChunk(cx, cz, v, 0))
	require.NoError(t, r.Close())
}

func TestInitializeAndReconstruct(t *testing.T) {
	setGlobalIdentity(t)
	save := newTestSave(t)
	o := newTestOrchestrator()

	op, err := o.Initialize(save)
	require.NoError(t, err)
	assert.Equal(t, opmanager.Succeeded, op.Status())

	core := filepath.Join(save, "GitMC")
	m, err := manifest.Load(core)
	require.NoError(t, err)

	wantPaths := []string{
		"data/level.dat.snbt",
		"region/r.0.0.mca/chunk_0_0.snbt",
		"region/r.0.0.mca/chunk_31_31.snbt",
	}
	entries := m.Entries()
	require.Len(t, entries, len(wantPaths))
	hash := entries[0].Commit
	assert.Regexp(t, "^[0-9a-f]{40}$", hash)
	var gotPaths []string
	for _, e := range entries {
		gotPaths = append(gotPaths, e.Path)
		assert.Equal(t, hash, e.Commit, "every initial entry shares one commit")
		assert.False(t, e.Deleted)
	}
	assert.ElementsMatch(t, wantPaths, gotPaths)

	// The working tree was cleaned: the SNBT lives only in history now.
	for _, p := range wantPaths {
		_, statErr := os.Stat(filepath.Join(core, filepath.FromSlash(p)))
		assert.True(t, os.IsNotExist(statErr), "expected %s to be cleaned up", p)
	}

	head, err := o.VCS.CurrentHash(core)
	require.NoError(t, err)

	out := t.TempDir()
	_, warnings, err := o.Reconstruct(save, head, out)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	for _, p := range wantPaths {
		data, rerr := os.ReadFile(filepath.Join(out, filepath.FromSlash(p)))
		require.NoError(t, rerr, "expected %s to be reconstructed", p)
		_, perr := snbt.Parse(string(data))
		assert.NoError(t, perr, "reconstructed %s must be valid SNBT", p)
	}
}

func TestTranslateNoOpOnTouchedRegion(t *testing.T) {
	setGlobalIdentity(t)
	save := newTestSave(t)
	o := newTestOrchestrator()
	_, err := o.Initialize(save)
	require.NoError(t, err)

	// A bare mtime re-stamp is what the game does on every world open.
	regionPath := filepath.Join(save, "region", "r.0.0.mca")
	info, err := os.Stat(regionPath)
	require.NoError(t, err)
	require.NoError(t, os.Chtimes(regionPath, info.ModTime(), info.ModTime().Add(1)))

	op, warnings, err := o.Translate(save, nil)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, "no changes", op.Message)
}

func TestTranslateIgnoresLastUpdateOnlyChange(t *testing.T) {
	setGlobalIdentity(t)
	save := newTestSave(t)
	o := newTestOrchestrator()
	_, err := o.Initialize(save)
	require.NoError(t, err)

	rewriteChunk(t, save, 0, 0, chunkValue(0, 0, 999))

	op, warnings, err := o.Translate(save, nil)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, "no changes", op.Message)
}

func TestCommitSingleChunkEdit(t *testing.T) {
	setGlobalIdentity(t)
	save := newTestSave(t)
	o := newTestOrchestrator()
	_, err := o.Initialize(save)
	require.NoError(t, err)

	core := filepath.Join(save, "GitMC")
	before, err := manifest.Load(core)
	require.NoError(t, err)
	initialEntry, ok := before.Get("region/r.0.0.mca/chunk_31_31.snbt")
	require.True(t, ok)

	rewriteChunk(t, save, 0, 0, chunkValue(0, 0, 100,
		gnbt.Entry{Name: "Status", Value: gnbt.NewString("full")},
	))

	op, warnings, err := o.Commit(save, "place a block")
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, opmanager.Succeeded, op.Status())

	after, err := manifest.Load(core)
	require.NoError(t, err)
	edited, ok := after.Get("region/r.0.0.mca/chunk_0_0.snbt")
	require.True(t, ok)
	assert.Regexp(t, "^[0-9a-f]{40}$", edited.Commit)
	assert.NotEqual(t, initialEntry.Commit, edited.Commit)

	untouched, ok := after.Get("region/r.0.0.mca/chunk_31_31.snbt")
	require.True(t, ok)
	assert.Equal(t, initialEntry.Commit, untouched.Commit, "the other chunk's entry is unchanged")

	// Post-commit cleanup removed the freshly exported SNBT again.
	_, statErr := os.Stat(filepath.Join(core, "region", "r.0.0.mca", "chunk_0_0.snbt"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestCommitNothingToCommit(t *testing.T) {
	setGlobalIdentity(t)
	save := newTestSave(t)
	o := newTestOrchestrator()
	_, err := o.Initialize(save)
	require.NoError(t, err)

	_, _, err = o.Commit(save, "nothing happened")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nothing to commit")
}

func TestCommitHandEditedChunkRebuildsRegion(t *testing.T) {
	setGlobalIdentity(t)
	save := newTestSave(t)
	o := newTestOrchestrator()
	_, err := o.Initialize(save)
	require.NoError(t, err)

	// Hand-materialize an edit directly in the core working tree.
	core := filepath.Join(save, "GitMC")
	folder := filepath.Join(core, "region", "r.0.0.mca")
	require.NoError(t, os.MkdirAll(folder, 0o755))
	editedValue := chunkValue(0, 0, 100,
		gnbt.Entry{Name: "Biome", Value: gnbt.NewString("plains")},
	)
	text := snbt.Serialize(editedValue, snbt.Expanded)
	require.NoError(t, os.WriteFile(filepath.Join(folder, "chunk_0_0.snbt"), []byte(text), 0o644))

	_, warnings, err := o.Commit(save, "hand edit")
	require.NoError(t, err)
	assert.Empty(t, warnings)

	// The save-side region now carries the textual edit, and the chunk the
	// user never touched survived the rebuild.
	r, err := anvil.Open(filepath.Join(save, "region", "r.0.0.mca"))
	require.NoError(t, err)
	defer r.Close()

	v, present, err := r.ReadChunk(0, 0)
	require.NoError(t, err)
	require.True(t, present)
	biome, ok := v.Compound.Get("Biome")
	require.True(t, ok)
	assert.Equal(t, "plains", biome.Str)

	_, present, err = r.ReadChunk(31, 31)
	require.NoError(t, err)
	assert.True(t, present)
}

func TestReconstructPastCommits(t *testing.T) {
	setGlobalIdentity(t)
	save := newTestSave(t)
	o := newTestOrchestrator()
	_, err := o.Initialize(save)
	require.NoError(t, err)

	core := filepath.Join(save, "GitMC")
	firstHead, err := o.VCS.CurrentHash(core)
	require.NoError(t, err)

	rewriteChunk(t, save, 0, 0, chunkValue(0, 0, 100,
		gnbt.Entry{Name: "Status", Value: gnbt.NewString("full")},
	))
	_, _, err = o.Commit(save, "second")
	require.NoError(t, err)
	secondHead, err := o.VCS.CurrentHash(core)
	require.NoError(t, err)
	require.NotEqual(t, firstHead, secondHead)

	chunkRel := filepath.Join("region", "r.0.0.mca", "chunk_0_0.snbt")

	outOld := t.TempDir()
	_, warnings, err := o.Reconstruct(save, firstHead, outOld)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	oldText, err := os.ReadFile(filepath.Join(outOld, chunkRel))
	require.NoError(t, err)
	assert.NotContains(t, string(oldText), "Status")

	outNew := t.TempDir()
	_, warnings, err = o.Reconstruct(save, secondHead, outNew)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	newText, err := os.ReadFile(filepath.Join(outNew, chunkRel))
	require.NoError(t, err)
	assert.Contains(t, string(newText), "Status")
	assert.True(t, strings.Contains(string(newText), `"full"`) || strings.Contains(string(newText), "full"))
}

func TestStatusCountsPendingAfterTranslate(t *testing.T) {
	setGlobalIdentity(t)
	save := newTestSave(t)
	o := newTestOrchestrator()
	_, err := o.Initialize(save)
	require.NoError(t, err)

	rewriteChunk(t, save, 0, 0, chunkValue(0, 0, 100,
		gnbt.Entry{Name: "Status", Value: gnbt.NewString("full")},
	))
	_, _, err = o.Translate(save, nil)
	require.NoError(t, err)

	summary, err := o.Status(save)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.PendingEntries)
}
