// Package snbt implements the stringified-NBT serializer and parser: a
// round-trippable textual projection of a gnbt.Value tree.
package snbt

// Options configures serialization. Two named bundles are defined below;
// Expanded is the only form GitMC ever writes to disk; Compact is used
// only to derive the canonical hash input for change detection.
type Options struct {
	// Indent is the per-level indentation string. Empty means no
	// indentation or inter-token whitespace at all (Compact).
	Indent string
	// SortKeys forces Compound members into sorted-key order regardless of
	// their encountered order. Used for Compact so two structurally equal
	// trees built in a different member order hash identically.
	SortKeys bool
	// PrintTypedSuffixes controls whether Byte/Short/Long/Float suffixes
	// are emitted on numeric literals. Both named bundles print them,
	// since a suffixless integral literal round-trips as an Int.
	PrintTypedSuffixes bool
}

// Expanded is the pretty, newline-indented, human-diffable form written
// for every chunk and data-file SNBT projection.
var Expanded = Options{
	Indent:             "  ",
	SortKeys:           false,
	PrintTypedSuffixes: true,
}

// Compact has no whitespace and is the basis for content hashing.
var Compact = Options{
	Indent:             "",
	SortKeys:           true,
	PrintTypedSuffixes: true,
}
