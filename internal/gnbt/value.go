// Package gnbt implements the binary Named-Binary-Tag tree model and codec.
// The wire encode/decode is delegated to
// github.com/sandertv/gophertunnel/minecraft/nbt; this package wraps its
// generic interface{} tree into an
// explicit typed Value/Kind tree that can carry an empty list's element
// kind and a compound's member order, neither of which the raw
// map[string]interface{} form gophertunnel decodes into can represent.
// The binary codec itself still passes through that generic form: decoded
// compounds come back with members sorted by name, a decoded empty list
// has KindUnknown as its element kind, and encoding hands compounds to the
// library as Go maps, so member order is not carried onto the wire.
package gnbt

// Kind identifies an NBT tag type. KindUnknown is not a real wire tag; it
// marks an empty List whose element kind could not be determined from the
// wire form.
type Kind int

const (
	KindUnknown Kind = iota
	KindByte
	KindShort
	KindInt
	KindLong
	KindFloat
	KindDouble
	KindByteArray
	KindString
	KindList
	KindCompound
	KindIntArray
	KindLongArray
)

func (k Kind) String() string {
	switch k {
	case KindByte:
		return "Byte"
	case KindShort:
		return "Short"
	case KindInt:
		return "Int"
	case KindLong:
		return "Long"
	case KindFloat:
		return "Float"
	case KindDouble:
		return "Double"
	case KindByteArray:
		return "ByteArray"
	case KindString:
		return "String"
	case KindList:
		return "List"
	case KindCompound:
		return "Compound"
	case KindIntArray:
		return "IntArray"
	case KindLongArray:
		return "LongArray"
	default:
		return "Unknown"
	}
}

// Value is a single node in an NBT tree. Exactly one of the typed fields is
// meaningful, selected by Kind.
type Value struct {
	Kind Kind

	Byte      int8
	Short     int16
	Int       int32
	Long      int64
	Float     float32
	Double    float64
	ByteArray []byte
	Str       string
	List      List
	Compound  Compound
	IntArray  []int32
	LongArray []int64
}

// List is a homogeneous NBT list. ElemKind is KindUnknown only when Elems
// is empty and the original element type could not be recovered.
type List struct {
	ElemKind Kind
	Elems    []Value
}

// Entry is a single named member of a Compound, kept in the order it was
// encountered so textual projections are reproducible.
type Entry struct {
	Name  string
	Value Value
}

// Compound is an ordered set of named members. NBT compounds carry no
// on-wire ordering guarantee from Minecraft itself. Set, Delete and
// Normalize keep the tree's member order; the binary encoder does not carry
// it onto the wire (see the package doc).
type Compound struct {
	Entries []Entry
}

// Get returns the named member and whether it was present.
func (c Compound) Get(name string) (Value, bool) {
	for _, e := range c.Entries {
		if e.Name == name {
			return e.Value, true
		}
	}
	return Value{}, false
}

// Set inserts or replaces the named member, preserving its original
// position on replace and appending on insert.
func (c *Compound) Set(name string, v Value) {
	for i, e := range c.Entries {
		if e.Name == name {
			c.Entries[i].Value = v
			return
		}
	}
	c.Entries = append(c.Entries, Entry{Name: name, Value: v})
}

// Delete removes the named member, if present, and reports whether it was
// removed.
func (c *Compound) Delete(name string) bool {
	for i, e := range c.Entries {
		if e.Name == name {
			c.Entries = append(c.Entries[:i], c.Entries[i+1:]...)
			return true
		}
	}
	return false
}

// Root is a top-level named Compound; an empty name is legal and is in
// fact the norm. Name is always "" in practice for
// Java Edition saves and for the gophertunnel generic decode path used
// here, which does not surface the root tag's name separately from its
// contents.
type Root struct {
	Name  string
	Value Value
}

// Byte/Short/... are convenience constructors used by callers building
// trees programmatically (tests, the SNBT parser).

func Bool(b bool) Value {
	if b {
		return Value{Kind: KindByte, Byte: 1}
	}
	return Value{Kind: KindByte, Byte: 0}
}

func NewByte(v int8) Value         { return Value{Kind: KindByte, Byte: v} }
func NewShort(v int16) Value       { return Value{Kind: KindShort, Short: v} }
func NewInt(v int32) Value         { return Value{Kind: KindInt, Int: v} }
func NewLong(v int64) Value        { return Value{Kind: KindLong, Long: v} }
func NewFloat(v float32) Value     { return Value{Kind: KindFloat, Float: v} }
func NewDouble(v float64) Value    { return Value{Kind: KindDouble, Double: v} }
func NewString(v string) Value     { return Value{Kind: KindString, Str: v} }
func NewByteArray(v []byte) Value  { return Value{Kind: KindByteArray, ByteArray: v} }
func NewIntArray(v []int32) Value  { return Value{Kind: KindIntArray, IntArray: v} }
func NewLongArray(v []int64) Value { return Value{Kind: KindLongArray, LongArray: v} }

func NewCompound(entries ...Entry) Value {
	return Value{Kind: KindCompound, Compound: Compound{Entries: entries}}
}

func NewList(elemKind Kind, elems ...Value) Value {
	return Value{Kind: KindList, List: List{ElemKind: elemKind, Elems: elems}}
}
