package gnbt

// Normalize walks a tree and replaces every zero-length List whose element
// kind is unknown with a zero-length List<Compound>. This must
// run before any write of a tree that may have passed through the SNBT
// parser, since "[]" carries no element-type information on its own.
// Normalize is idempotent: normalizing an already-normalized tree is a
// no-op.
func Normalize(v Value) Value {
	switch v.Kind {
	case KindList:
		if len(v.List.Elems) == 0 {
			if v.List.ElemKind == KindUnknown {
				v.List.ElemKind = KindCompound
			}
			return v
		}
		elems := make([]Value, len(v.List.Elems))
		for i, e := range v.List.Elems {
			elems[i] = Normalize(e)
		}
		v.List.Elems = elems
		return v
	case KindCompound:
		entries := make([]Entry, len(v.Compound.Entries))
		for i, e := range v.Compound.Entries {
			entries[i] = Entry{Name: e.Name, Value: Normalize(e.Value)}
		}
		v.Compound.Entries = entries
		return v
	default:
		return v
	}
}

// NormalizeRoot applies Normalize to a Root's value.
func NormalizeRoot(r Root) Root {
	r.Value = Normalize(r.Value)
	return r
}
