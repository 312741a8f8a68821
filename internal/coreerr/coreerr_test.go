package coreerr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindStringAndFatal(t *testing.T) {
	cases := []struct {
		kind  Kind
		label string
		fatal bool
	}{
		{Format, "format", false},
		{Integrity, "integrity", false},
		{Contract, "contract", true},
		{Collision, "collision", true},
		{External, "external", true},
		{Cancelled, "cancelled", true},
	}
	for _, c := range cases {
		assert.Equal(t, c.label, c.kind.String())
		assert.Equal(t, c.fatal, c.kind.Fatal())
	}
}

func TestNewErrorMessage(t *testing.T) {
	wrapped := errors.New("disk full")
	err := New(External, "region/r.0.0.mca", "cannot write region", wrapped)
	assert.Contains(t, err.Error(), "region/r.0.0.mca")
	assert.Contains(t, err.Error(), "cannot write region")
	assert.Contains(t, err.Error(), "disk full")
	assert.ErrorIs(t, err, wrapped)
}

func TestWrapfFormatsMessageAndHasNoPath(t *testing.T) {
	wrapped := errors.New("truncated")
	err := Wrapf(Format, wrapped, "cannot decode %s", "chunk_0_0.snbt")
	assert.Equal(t, "", err.Path)
	assert.Equal(t, "cannot decode chunk_0_0.snbt", err.Message)
	assert.ErrorIs(t, err, wrapped)
}

func TestErrorsAsRecoversKind(t *testing.T) {
	var err error = Wrapf(Contract, nil, "identity missing")
	var ce *Error
	require := assert.New(t)
	require.True(errors.As(err, &ce))
	require.Equal(Contract, ce.Kind)
}
