package snbt

import (
	"sort"
	"strconv"
	"strings"

	"github.com/NaughtyChas/GitMC/internal/gnbt"
)

// Serialize renders v as SNBT text using the given option bundle. The
// value is normalized first so an ambiguous empty list with
// unknown element kind never reaches the printer.
func Serialize(v gnbt.Value, opts Options) string {
	v = gnbt.Normalize(v)
	var b strings.Builder
	w := &writer{b: &b, opts: opts}
	w.writeValue(v, 0)
	return b.String()
}

type writer struct {
	b    *strings.Builder
	opts Options
}

func (w *writer) newline(depth int) {
	if w.opts.Indent == "" {
		return
	}
	w.b.WriteByte('\n')
	for i := 0; i < depth; i++ {
		w.b.WriteString(w.opts.Indent)
	}
}

func (w *writer) writeValue(v gnbt.Value, depth int) {
	switch v.Kind {
	case gnbt.KindByte:
		w.b.WriteString(strconv.FormatInt(int64(v.Byte), 10))
		if w.opts.PrintTypedSuffixes {
			w.b.WriteByte('b')
		}
	case gnbt.KindShort:
		w.b.WriteString(strconv.FormatInt(int64(v.Short), 10))
		if w.opts.PrintTypedSuffixes {
			w.b.WriteByte('s')
		}
	case gnbt.KindInt:
		w.b.WriteString(strconv.FormatInt(int64(v.Int), 10))
	case gnbt.KindLong:
		w.b.WriteString(strconv.FormatInt(v.Long, 10))
		if w.opts.PrintTypedSuffixes {
			w.b.WriteByte('L')
		}
	case gnbt.KindFloat:
		w.b.WriteString(formatFloat(float64(v.Float), 32))
		if w.opts.PrintTypedSuffixes {
			w.b.WriteByte('f')
		}
	case gnbt.KindDouble:
		w.b.WriteString(formatFloat(v.Double, 64))
		if w.opts.PrintTypedSuffixes {
			w.b.WriteByte('d')
		}
	case gnbt.KindString:
		w.writeQuotedString(v.Str)
	case gnbt.KindByteArray:
		w.b.WriteString("[B;")
		for i, e := range v.ByteArray {
			if i > 0 {
				w.b.WriteByte(',')
			}
			w.b.WriteString(strconv.FormatInt(int64(int8(e)), 10))
			w.b.WriteByte('b')
		}
		w.b.WriteByte(']')
	case gnbt.KindIntArray:
		w.b.WriteString("[I;")
		for i, e := range v.IntArray {
			if i > 0 {
				w.b.WriteByte(',')
			}
			w.b.WriteString(strconv.FormatInt(int64(e), 10))
		}
		w.b.WriteByte(']')
	case gnbt.KindLongArray:
		w.b.WriteString("[L;")
		for i, e := range v.LongArray {
			if i > 0 {
				w.b.WriteByte(',')
			}
			w.b.WriteString(strconv.FormatInt(e, 10))
			w.b.WriteByte('L')
		}
		w.b.WriteByte(']')
	case gnbt.KindList:
		w.writeList(v.List, depth)
	case gnbt.KindCompound:
		w.writeCompound(v.Compound, depth)
	default:
		w.b.WriteString("{}")
	}
}

func (w *writer) writeList(l gnbt.List, depth int) {
	if len(l.Elems) == 0 {
		w.b.WriteString("[]")
		return
	}
	w.b.WriteByte('[')
	for i, e := range l.Elems {
		if i > 0 {
			w.b.WriteByte(',')
		}
		w.newline(depth + 1)
		w.writeValue(e, depth+1)
	}
	w.newline(depth)
	w.b.WriteByte(']')
}

func (w *writer) writeCompound(c gnbt.Compound, depth int) {
	if len(c.Entries) == 0 {
		w.b.WriteString("{}")
		return
	}
	entries := c.Entries
	if w.opts.SortKeys {
		entries = append([]gnbt.Entry(nil), entries...)
		sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	}
	w.b.WriteByte('{')
	for i, e := range entries {
		if i > 0 {
			w.b.WriteByte(',')
		}
		w.newline(depth + 1)
		w.writeKey(e.Name)
		w.b.WriteByte(':')
		if w.opts.Indent != "" {
			w.b.WriteByte(' ')
		}
		w.writeValue(e.Value, depth+1)
	}
	w.newline(depth)
	w.b.WriteByte('}')
}

// bareKeyRE-equivalent check, inlined to avoid a regexp per key.
func isBareKey(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_', c == '-', c == '.', c == '+':
		default:
			return false
		}
	}
	return true
}

func (w *writer) writeKey(name string) {
	if isBareKey(name) {
		w.b.WriteString(name)
		return
	}
	w.writeQuotedString(name)
}

func (w *writer) writeQuotedString(s string) {
	w.b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			w.b.WriteString(`\"`)
		case '\\':
			w.b.WriteString(`\\`)
		case '\n':
			w.b.WriteString(`\n`)
		case '\t':
			w.b.WriteString(`\t`)
		case '\r':
			w.b.WriteString(`\r`)
		default:
			w.b.WriteRune(r)
		}
	}
	w.b.WriteByte('"')
}

// formatFloat renders a float the way Minecraft's SNBT does: the shortest
// decimal representation that round-trips, always with at least one
// fractional digit so "1f" isn't confused with an Int.
func formatFloat(f float64, bitSize int) string {
	s := strconv.FormatFloat(f, 'g', -1, bitSize)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}
