package gnbt

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeEmptyListUnknownKind(t *testing.T) {
	v := Value{Kind: KindList, List: List{ElemKind: KindUnknown}}
	got := Normalize(v)
	assert.Equal(t, KindCompound, got.List.ElemKind)
}

func TestNormalizeIsIdempotent(t *testing.T) {
	v := NewCompound(
		Entry{Name: "a", Value: Value{Kind: KindList, List: List{ElemKind: KindUnknown}}},
		Entry{Name: "b", Value: NewList(KindInt, NewInt(1), NewInt(2))},
	)
	once := Normalize(v)
	twice := Normalize(once)
	assert.Equal(t, once, twice)
}

func TestNormalizeRecursesIntoNestedCompounds(t *testing.T) {
	inner := Value{Kind: KindList, List: List{ElemKind: KindUnknown}}
	v := NewCompound(Entry{Name: "outer", Value: NewCompound(Entry{Name: "inner", Value: inner})})
	got := Normalize(v)
	nested, ok := got.Compound.Get("outer")
	require.True(t, ok)
	list, ok := nested.Compound.Get("inner")
	require.True(t, ok)
	assert.Equal(t, KindCompound, list.List.ElemKind)
}

func TestEncodeDecodeRawCompoundRoundTrip(t *testing.T) {
	v := NewCompound(
		Entry{Name: "name", Value: NewString("Steve")},
		Entry{Name: "health", Value: NewFloat(20)},
		Entry{Name: "pos", Value: NewList(KindDouble, NewDouble(1), NewDouble(64), NewDouble(-3))},
	)
	data, err := EncodeRawCompound(v)
	require.NoError(t, err)

	got, err := DecodeRawCompound(data)
	require.NoError(t, err)

	name, ok := got.Compound.Get("name")
	require.True(t, ok)
	assert.Equal(t, "Steve", name.Str)

	health, ok := got.Compound.Get("health")
	require.True(t, ok)
	assert.EqualValues(t, 20, health.Float)

	pos, ok := got.Compound.Get("pos")
	require.True(t, ok)
	require.Len(t, pos.List.Elems, 3)
}

func TestEncodeRejectsNonCompoundRoot(t *testing.T) {
	_, err := Encode(Root{Value: NewInt(5)}, CompressionUncompressed)
	assert.Error(t, err)
}

func TestCompressWriterDecompressReaderRoundTrip(t *testing.T) {
	for _, mode := range []CompressionMode{CompressionGZip, CompressionZlib, CompressionUncompressed} {
		var buf trackingBuffer
		w, err := CompressWriter(&buf, mode)
		require.NoError(t, err)
		_, err = w.Write([]byte("hello, anvil"))
		require.NoError(t, err)
		require.NoError(t, w.Close())

		r, err := DecompressReader(&buf, mode)
		require.NoError(t, err)
		out, err := io.ReadAll(r)
		require.NoError(t, err)
		assert.Equal(t, "hello, anvil", string(out))
	}
}

// trackingBuffer is a minimal in-memory io.ReadWriter good enough for the
// round-trip test above without pulling in bytes.Buffer semantics we don't
// need (it never needs to support concurrent read/write).
type trackingBuffer struct {
	data []byte
	pos  int
}

func (b *trackingBuffer) Write(p []byte) (int, error) {
	b.data = append(b.data, p...)
	return len(p), nil
}

func (b *trackingBuffer) Read(p []byte) (int, error) {
	n := copy(p, b.data[b.pos:])
	b.pos += n
	if n == 0 {
		return 0, io.EOF
	}
	return n, nil
}
