package gnbt

import (
	"bytes"
	"io"
	"sort"

	"github.com/sandertv/gophertunnel/minecraft/nbt"

	"github.com/NaughtyChas/GitMC/internal/coreerr"
)

// DecodeReader reads a standalone NBT blob (e.g. level.dat), sniffing its
// compression from the first byte and decoding the tag stream
// via gophertunnel's big-endian Java-edition encoding.
func DecodeReader(r io.Reader) (Root, error) {
	peeker := newPeeker(r)
	body, err := decompressingReader(peeker)
	if err != nil {
		return Root{}, err
	}
	if closer, ok := body.(io.Closer); ok {
		defer closer.Close()
	}

	var generic map[string]interface{}
	dec := nbt.NewDecoderWithEncoding(body, nbt.BigEndian)
	if err := dec.Decode(&generic); err != nil {
		return Root{}, coreerr.Wrapf(coreerr.Format, err, "cannot decode NBT tag stream")
	}
	return Root{Name: "", Value: fromGenericCompound(generic)}, nil
}

// Decode is the []byte convenience form of DecodeReader.
func Decode(data []byte) (Root, error) {
	return DecodeReader(bytes.NewReader(data))
}

// EncodeWriter writes root using the caller-supplied wire compression.
// The tree is normalized before encoding so an unresolved empty-list
// element kind never reaches the wire.
func EncodeWriter(w io.Writer, root Root, mode CompressionMode) error {
	root = NormalizeRoot(root)
	if root.Value.Kind != KindCompound {
		return coreerr.New(coreerr.Format, "", "root value must be a Compound", nil)
	}
	cw, err := CompressWriter(w, mode)
	if err != nil {
		return err
	}
	enc := nbt.NewEncoderWithEncoding(cw, nbt.BigEndian)
	if err := enc.Encode(toGeneric(root.Value)); err != nil {
		cw.Close()
		return coreerr.Wrapf(coreerr.Format, err, "cannot encode NBT tag stream")
	}
	return cw.Close()
}

// Encode is the []byte convenience form of EncodeWriter.
func Encode(root Root, mode CompressionMode) ([]byte, error) {
	var buf bytes.Buffer
	if err := EncodeWriter(&buf, root, mode); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeRawCompound decodes a compound tag tree from already-decompressed
// big-endian NBT bytes (used by the Anvil codec, which manages its own
// per-chunk compression envelope).
func DecodeRawCompound(data []byte) (Value, error) {
	var generic map[string]interface{}
	dec := nbt.NewDecoderWithEncoding(bytes.NewReader(data), nbt.BigEndian)
	if err := dec.Decode(&generic); err != nil {
		return Value{}, coreerr.Wrapf(coreerr.Format, err, "cannot decode chunk NBT")
	}
	return fromGenericCompound(generic), nil
}

// EncodeRawCompound is the inverse of DecodeRawCompound: it serializes a
// Compound value to uncompressed big-endian NBT bytes, leaving
// compression to the caller.
func EncodeRawCompound(v Value) ([]byte, error) {
	v = Normalize(v)
	if v.Kind != KindCompound {
		return nil, coreerr.New(coreerr.Format, "", "value must be a Compound", nil)
	}
	var buf bytes.Buffer
	enc := nbt.NewEncoderWithEncoding(&buf, nbt.BigEndian)
	if err := enc.Encode(toGeneric(v)); err != nil {
		return nil, coreerr.Wrapf(coreerr.Format, err, "cannot encode chunk NBT")
	}
	return buf.Bytes(), nil
}

// fromGenericCompound converts the map[string]interface{} gophertunnel
// decodes a Compound tag into, to our ordered Value tree. Go maps carry no
// iteration order, so members are emitted in sorted-key order; this is a
// deliberate canonicalization (documented in DESIGN.md) rather than a
// faithful reproduction of the original on-wire member order, which the
// underlying library does not preserve.
func fromGenericCompound(m map[string]interface{}) Value {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	entries := make([]Entry, 0, len(keys))
	for _, k := range keys {
		entries = append(entries, Entry{Name: k, Value: fromGeneric(m[k])})
	}
	return Value{Kind: KindCompound, Compound: Compound{Entries: entries}}
}

func fromGeneric(x interface{}) Value {
	switch v := x.(type) {
	case nil:
		return Value{Kind: KindUnknown}
	case byte: // gophertunnel's TAG_Byte representation
		return Value{Kind: KindByte, Byte: int8(v)}
	case int8:
		return Value{Kind: KindByte, Byte: v}
	case int16:
		return Value{Kind: KindShort, Short: v}
	case int32:
		return Value{Kind: KindInt, Int: v}
	case int64:
		return Value{Kind: KindLong, Long: v}
	case float32:
		return Value{Kind: KindFloat, Float: v}
	case float64:
		return Value{Kind: KindDouble, Double: v}
	case []byte:
		return Value{Kind: KindByteArray, ByteArray: append([]byte(nil), v...)}
	case string:
		return Value{Kind: KindString, Str: v}
	case []int32:
		return Value{Kind: KindIntArray, IntArray: append([]int32(nil), v...)}
	case []int64:
		return Value{Kind: KindLongArray, LongArray: append([]int64(nil), v...)}
	case map[string]interface{}:
		return fromGenericCompound(v)
	case []interface{}:
		elems := make([]Value, len(v))
		elemKind := KindUnknown
		for i, e := range v {
			elems[i] = fromGeneric(e)
			if i == 0 {
				elemKind = elems[i].Kind
			}
		}
		return Value{Kind: KindList, List: List{ElemKind: elemKind, Elems: elems}}
	default:
		// Unrecognized concrete type from the decode library: surface as an
		// empty compound rather than panicking: a per-file integrity issue,
		// not a crash.
		return Value{Kind: KindCompound}
	}
}

func toGeneric(v Value) interface{} {
	switch v.Kind {
	case KindByte:
		return byte(v.Byte)
	case KindShort:
		return v.Short
	case KindInt:
		return v.Int
	case KindLong:
		return v.Long
	case KindFloat:
		return v.Float
	case KindDouble:
		return v.Double
	case KindByteArray:
		return v.ByteArray
	case KindString:
		return v.Str
	case KindIntArray:
		return v.IntArray
	case KindLongArray:
		return v.LongArray
	case KindCompound:
		m := make(map[string]interface{}, len(v.Compound.Entries))
		for _, e := range v.Compound.Entries {
			m[e.Name] = toGeneric(e.Value)
		}
		return m
	case KindList:
		elems := make([]interface{}, len(v.List.Elems))
		for i, e := range v.List.Elems {
			elems[i] = toGeneric(e)
		}
		return elems
	default:
		return nil
	}
}
