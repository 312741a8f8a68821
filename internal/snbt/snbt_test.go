package snbt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NaughtyChas/GitMC/internal/gnbt"
)

func TestSerializeScalars(t *testing.T) {
	cases := []struct {
		name string
		v    gnbt.Value
		want string
	}{
		{"byte", gnbt.NewByte(5), "5b"},
		{"short", gnbt.NewShort(-12), "-12s"},
		{"int", gnbt.NewInt(42), "42"},
		{"long", gnbt.NewLong(123456789), "123456789L"},
		{"float", gnbt.NewFloat(1.5), "1.5f"},
		{"double", gnbt.NewDouble(2), "2.0d"},
		{"string", gnbt.NewString("hello"), `"hello"`},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, Serialize(c.v, Compact))
		})
	}
}

func TestSerializeTypedArrays(t *testing.T) {
	b := gnbt.NewByteArray([]byte{1, 2, 255})
	assert.Equal(t, "[B;1b,2b,-1b]", Serialize(b, Compact))

	i := gnbt.NewIntArray([]int32{1, -2, 3})
	assert.Equal(t, "[I;1,-2,3]", Serialize(i, Compact))

	l := gnbt.NewLongArray([]int64{1, 2})
	assert.Equal(t, "[L;1L,2L]", Serialize(l, Compact))
}

func TestSerializeCompoundSortedVsUnsorted(t *testing.T) {
	v := gnbt.NewCompound(
		gnbt.Entry{Name: "z", Value: gnbt.NewInt(1)},
		gnbt.Entry{Name: "a", Value: gnbt.NewInt(2)},
	)
	assert.Equal(t, `{a:2,z:1}`, Serialize(v, Compact))
	assert.Equal(t, "{\n  z: 1,\n  a: 2\n}", Serialize(v, Expanded))
}

func TestSerializeEmptyListNormalizes(t *testing.T) {
	v := gnbt.Value{Kind: gnbt.KindList, List: gnbt.List{ElemKind: gnbt.KindUnknown}}
	assert.Equal(t, "[]", Serialize(v, Compact))
}

func TestParseRoundTripScalars(t *testing.T) {
	cases := []string{"5b", "-12s", "42", "123456789L", "1.5f", "2.0d", `"hello world"`}
	for _, s := range cases {
		v, err := Parse(s)
		require.NoError(t, err)
		assert.Equal(t, s, Serialize(v, Compact))
	}
}

func TestParseBareIntDefault(t *testing.T) {
	v, err := Parse("42")
	require.NoError(t, err)
	assert.Equal(t, gnbt.KindInt, v.Kind)
	assert.EqualValues(t, 42, v.Int)
}

func TestParseBareDecimalDefaultsToDouble(t *testing.T) {
	v, err := Parse("1.5")
	require.NoError(t, err)
	assert.Equal(t, gnbt.KindDouble, v.Kind)
	assert.InDelta(t, 1.5, v.Double, 1e-9)
}

func TestParseCompoundAndList(t *testing.T) {
	v, err := Parse(`{a: 1, b: [1, 2, 3], c: {nested: "x"}}`)
	require.NoError(t, err)
	require.Equal(t, gnbt.KindCompound, v.Kind)

	a, ok := v.Compound.Get("a")
	require.True(t, ok)
	assert.Equal(t, gnbt.KindInt, a.Kind)

	b, ok := v.Compound.Get("b")
	require.True(t, ok)
	require.Equal(t, gnbt.KindList, b.Kind)
	assert.Len(t, b.List.Elems, 3)

	c, ok := v.Compound.Get("c")
	require.True(t, ok)
	nested, ok := c.Compound.Get("nested")
	require.True(t, ok)
	assert.Equal(t, "x", nested.Str)
}

func TestParseTypedArrays(t *testing.T) {
	v, err := Parse("[B;1b,2b,-1b]")
	require.NoError(t, err)
	require.Equal(t, gnbt.KindByteArray, v.Kind)
	assert.Equal(t, []byte{1, 2, 255}, v.ByteArray)

	v, err = Parse("[I;1,2,3]")
	require.NoError(t, err)
	require.Equal(t, gnbt.KindIntArray, v.Kind)
	assert.Equal(t, []int32{1, 2, 3}, v.IntArray)
}

func TestParseTypedArrayTypeMismatch(t *testing.T) {
	_, err := Parse("[I;1,abc,3]")
	require.Error(t, err)
}

func TestParseListTypeMismatch(t *testing.T) {
	_, err := Parse(`[1, "two", 3]`)
	require.Error(t, err)
}

func TestParseEmptyCompoundAndList(t *testing.T) {
	v, err := Parse("{}")
	require.NoError(t, err)
	assert.Equal(t, gnbt.KindCompound, v.Kind)
	assert.Empty(t, v.Compound.Entries)

	v, err = Parse("[]")
	require.NoError(t, err)
	assert.Equal(t, gnbt.KindList, v.Kind)
}

func TestParseQuotedKeyWithSpecialChars(t *testing.T) {
	v, err := Parse(`{"weird key!": 1}`)
	require.NoError(t, err)
	got, ok := v.Compound.Get("weird key!")
	require.True(t, ok)
	assert.Equal(t, gnbt.KindInt, got.Kind)
}

func TestSerializeQuotesNonBareKeys(t *testing.T) {
	v := gnbt.NewCompound(gnbt.Entry{Name: "weird key!", Value: gnbt.NewInt(1)})
	out := Serialize(v, Compact)
	assert.Contains(t, out, `"weird key!"`)
}
