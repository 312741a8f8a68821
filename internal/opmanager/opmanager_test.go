package opmanager

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NaughtyChas/GitMC/internal/coreerr"
)

func TestStartRejectsOverlap(t *testing.T) {
	m := New()
	op, err := m.Start("/saves/world1", Translate, 3)
	require.NoError(t, err)
	require.NotNil(t, op)

	_, err = m.Start("/saves/world1", Commit, 2)
	require.Error(t, err)
	var ce *coreerr.Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, coreerr.Collision, ce.Kind)
}

func TestStartAllowsDifferentSavesConcurrently(t *testing.T) {
	m := New()
	_, err := m.Start("/saves/world1", Translate, 1)
	require.NoError(t, err)
	_, err = m.Start("/saves/world2", Translate, 1)
	require.NoError(t, err)
}

func TestUpdateAndCompleteLifecycle(t *testing.T) {
	m := New()
	op, err := m.Start("/saves/world1", Commit, 2)
	require.NoError(t, err)
	assert.Equal(t, Running, op.Status())

	m.Update(op, 1, "staging", "")
	assert.Equal(t, 1, op.CurrentStep)

	m.Complete(op, true, "committed abc123")
	assert.Equal(t, Succeeded, op.Status())
	assert.Equal(t, "committed abc123", op.Message)
	assert.NotNil(t, op.EndedAt)

	_, ok := m.GetActive("/saves/world1", "")
	assert.False(t, ok, "completed operation must be removed from the active set")

	// The step-1 update is still buffered ahead of the close.
	<-op.Events()
	_, stillOpen := <-op.Events()
	assert.False(t, stillOpen, "Events channel must be closed once the operation completes")
}

func TestCompleteFailureSetsFailedStatus(t *testing.T) {
	m := New()
	op, err := m.Start("/saves/world1", Translate, 1)
	require.NoError(t, err)
	m.Complete(op, false, "cancelled")
	assert.Equal(t, Failed, op.Status())
	assert.Equal(t, "cancelled", op.Message)
}

func TestStartAllowedAgainAfterCompletion(t *testing.T) {
	m := New()
	op, err := m.Start("/saves/world1", Translate, 1)
	require.NoError(t, err)
	m.Complete(op, true, "")

	_, err = m.Start("/saves/world1", Commit, 1)
	assert.NoError(t, err)
}

func TestGetActiveFiltersByKind(t *testing.T) {
	m := New()
	_, err := m.Start("/saves/world1", Translate, 1)
	require.NoError(t, err)

	_, ok := m.GetActive("/saves/world1", Commit)
	assert.False(t, ok)

	op, ok := m.GetActive("/saves/world1", Translate)
	assert.True(t, ok)
	assert.Equal(t, Translate, op.Kind)
}

func TestHistoryBoundedToMaxHistory(t *testing.T) {
	m := New()
	for i := 0; i < MaxHistory+10; i++ {
		op, err := m.Start("/saves/world1", Translate, 1)
		require.NoError(t, err)
		m.Complete(op, true, "")
	}
	assert.Len(t, m.History("/saves/world1"), MaxHistory)
}
