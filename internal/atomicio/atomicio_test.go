package atomicio

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFileCreatesTargetAndNoTempLeftover(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "out.txt")

	require.NoError(t, WriteFile(target, []byte("hello"), 0o644))

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	_, err = os.Stat(TempPath(target))
	assert.True(t, os.IsNotExist(err))
}

func TestWriteFileReplacesExistingTarget(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "out.txt")
	require.NoError(t, os.WriteFile(target, []byte("old"), 0o644))

	require.NoError(t, WriteFile(target, []byte("new"), 0o644))

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))
}

func TestCopyStreamsContent(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "out.txt")
	require.NoError(t, Copy(target, strings.NewReader("streamed"), 0o644))

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "streamed", string(data))
}

func TestCleanStaleTempRemovesLeftover(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "out.txt")
	require.NoError(t, os.WriteFile(TempPath(target), []byte("stale"), 0o644))

	require.NoError(t, CleanStaleTemp(target))
	_, err := os.Stat(TempPath(target))
	assert.True(t, os.IsNotExist(err))
}

func TestCleanStaleTempNoLeftoverIsNoop(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "out.txt")
	require.NoError(t, CleanStaleTemp(target))
}
