package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const hash1 = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
const hash2 = "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"

func TestPutGetUpdatesInPlace(t *testing.T) {
	m := New()
	require.NoError(t, m.Put("a.snbt", PendingCommit, false))
	require.NoError(t, m.Put("b.snbt", PendingCommit, false))
	require.NoError(t, m.Put("a.snbt", hash1, false))

	entries := m.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "a.snbt", entries[0].Path)
	assert.Equal(t, hash1, entries[0].Commit)
	assert.Equal(t, "b.snbt", entries[1].Path)
}

func TestPutRejectsInvalidCommit(t *testing.T) {
	m := New()
	assert.Error(t, m.Put("a.snbt", "not-a-hash", false))
}

func TestResolvePending(t *testing.T) {
	m := New()
	require.NoError(t, m.Put("a.snbt", PendingCommit, false))
	require.NoError(t, m.Put("b.snbt", PendingCommit, false))
	require.NoError(t, m.Put("c.snbt", hash1, false))

	n, err := m.ResolvePending(hash2)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	a, _ := m.Get("a.snbt")
	assert.Equal(t, hash2, a.Commit)
	c, _ := m.Get("c.snbt")
	assert.Equal(t, hash1, c.Commit)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	m := New()
	require.NoError(t, m.Put("region/r.0.0.mca/chunk_0_0.snbt", hash1, false))
	require.NoError(t, m.Put("data/level.dat.snbt", hash1, false))
	require.NoError(t, m.Save(dir))

	loaded, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, m.Entries(), loaded.Entries())

	_, statErr := os.Stat(filepath.Join(dir, FileName))
	require.NoError(t, statErr)
}

func TestLoadMissingFileYieldsEmptyManifest(t *testing.T) {
	dir := t.TempDir()
	m, err := Load(dir)
	require.NoError(t, err)
	assert.Empty(t, m.Entries())
}

func TestActivePathsSkipsTombstonesAndPending(t *testing.T) {
	m := New()
	require.NoError(t, m.Put("kept.snbt", hash1, false))
	require.NoError(t, m.Put("tombstoned.snbt", hash1, true))
	require.NoError(t, m.Put("pending.snbt", PendingCommit, false))

	active := m.ActivePaths()
	assert.True(t, active["kept.snbt"])
	assert.False(t, active["tombstoned.snbt"])
	assert.False(t, active["pending.snbt"])
}

type fakeChecker struct {
	ancestors map[string]bool // "candidate->of" => true
	current   string
}

func (f fakeChecker) IsAncestor(candidate, of string) (bool, error) {
	return f.ancestors[candidate+"->"+of], nil
}

func (f fakeChecker) CurrentHash() (string, error) {
	return f.current, nil
}

func TestActivePathsAtSkipsTombstonesAndFutureCommits(t *testing.T) {
	m := New()
	require.NoError(t, m.Put("kept.snbt", hash1, false))
	require.NoError(t, m.Put("tombstoned.snbt", hash1, true))
	require.NoError(t, m.Put("future.snbt", hash2, false))

	checker := fakeChecker{ancestors: map[string]bool{
		hash1 + "->" + hash1: true,
		hash2 + "->" + hash1: false,
	}}

	active, err := m.ActivePathsAt(hash1, checker)
	require.NoError(t, err)
	assert.True(t, active["kept.snbt"])
	assert.False(t, active["tombstoned.snbt"])
	assert.False(t, active["future.snbt"])
}
