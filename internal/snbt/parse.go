package snbt

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/NaughtyChas/GitMC/internal/coreerr"
	"github.com/NaughtyChas/GitMC/internal/gnbt"
)

// Parse reads a single SNBT value from s and returns the equivalent
// gnbt.Value tree. Trailing whitespace after the value is
// tolerated; any other trailing input is an error.
func Parse(s string) (gnbt.Value, error) {
	p := &parser{s: s}
	p.skipSpace()
	v, err := p.parseValue()
	if err != nil {
		return gnbt.Value{}, err
	}
	p.skipSpace()
	if p.pos != len(p.s) {
		return gnbt.Value{}, p.errorf("unexpected trailing input")
	}
	return v, nil
}

type parser struct {
	s   string
	pos int
}

func (p *parser) errorf(format string, args ...interface{}) error {
	return coreerr.New(coreerr.Format, "", fmt.Sprintf("snbt: %s (at offset %d)", fmt.Sprintf(format, args...), p.pos), nil)
}

func (p *parser) eof() bool { return p.pos >= len(p.s) }

func (p *parser) peek() byte {
	if p.eof() {
		return 0
	}
	return p.s[p.pos]
}

func (p *parser) skipSpace() {
	for !p.eof() {
		switch p.s[p.pos] {
		case ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}

func (p *parser) expect(c byte) error {
	if p.eof() || p.s[p.pos] != c {
		return p.errorf("expected %q", c)
	}
	p.pos++
	return nil
}

func (p *parser) parseValue() (gnbt.Value, error) {
	p.skipSpace()
	if p.eof() {
		return gnbt.Value{}, p.errorf("unexpected end of input")
	}
	switch p.peek() {
	case '{':
		return p.parseCompound()
	case '[':
		return p.parseListOrArray()
	case '"', '\'':
		str, err := p.parseQuotedString()
		if err != nil {
			return gnbt.Value{}, err
		}
		return gnbt.NewString(str), nil
	default:
		return p.parseBareToken()
	}
}

func (p *parser) parseCompound() (gnbt.Value, error) {
	if err := p.expect('{'); err != nil {
		return gnbt.Value{}, err
	}
	var entries []gnbt.Entry
	p.skipSpace()
	if p.peek() == '}' {
		p.pos++
		return gnbt.Value{Kind: gnbt.KindCompound, Compound: gnbt.Compound{}}, nil
	}
	for {
		p.skipSpace()
		key, err := p.parseKey()
		if err != nil {
			return gnbt.Value{}, err
		}
		p.skipSpace()
		if err := p.expect(':'); err != nil {
			return gnbt.Value{}, err
		}
		val, err := p.parseValue()
		if err != nil {
			return gnbt.Value{}, err
		}
		entries = append(entries, gnbt.Entry{Name: key, Value: val})
		p.skipSpace()
		if p.eof() {
			return gnbt.Value{}, p.errorf("unterminated compound")
		}
		if p.peek() == ',' {
			p.pos++
			continue
		}
		if err := p.expect('}'); err != nil {
			return gnbt.Value{}, err
		}
		break
	}
	return gnbt.Value{Kind: gnbt.KindCompound, Compound: gnbt.Compound{Entries: entries}}, nil
}

func (p *parser) parseKey() (string, error) {
	if p.peek() == '"' || p.peek() == '\'' {
		return p.parseQuotedString()
	}
	start := p.pos
	for !p.eof() && isBareKeyByte(p.s[p.pos]) {
		p.pos++
	}
	if p.pos == start {
		return "", p.errorf("expected compound key")
	}
	return p.s[start:p.pos], nil
}

func isBareKeyByte(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' ||
		c == '_' || c == '-' || c == '.' || c == '+'
}

// parseListOrArray handles both a generic list "[v, v, ...]" and a typed
// array "[B;...]"/"[I;...]"/"[L;...]".
func (p *parser) parseListOrArray() (gnbt.Value, error) {
	if err := p.expect('['); err != nil {
		return gnbt.Value{}, err
	}
	if p.pos+1 < len(p.s) && p.s[p.pos+1] == ';' {
		switch p.s[p.pos] {
		case 'B', 'I', 'L':
			tag := p.s[p.pos]
			p.pos += 2
			return p.parseTypedArray(tag)
		}
	}
	p.skipSpace()
	if p.peek() == ']' {
		p.pos++
		return gnbt.Value{Kind: gnbt.KindList, List: gnbt.List{ElemKind: gnbt.KindUnknown}}, nil
	}
	var elems []gnbt.Value
	for {
		v, err := p.parseValue()
		if err != nil {
			return gnbt.Value{}, err
		}
		if len(elems) > 0 && v.Kind != elems[0].Kind {
			return gnbt.Value{}, p.errorf("type mismatch in list: element kind %s does not match list kind %s",
				v.Kind, elems[0].Kind)
		}
		elems = append(elems, v)
		p.skipSpace()
		if p.eof() {
			return gnbt.Value{}, p.errorf("unterminated list")
		}
		if p.peek() == ',' {
			p.pos++
			p.skipSpace()
			continue
		}
		if err := p.expect(']'); err != nil {
			return gnbt.Value{}, err
		}
		break
	}
	return gnbt.Value{Kind: gnbt.KindList, List: gnbt.List{ElemKind: elems[0].Kind, Elems: elems}}, nil
}

func (p *parser) parseTypedArray(tag byte) (gnbt.Value, error) {
	p.skipSpace()
	var bytesOut []byte
	var ints []int32
	var longs []int64
	if p.peek() != ']' {
		for {
			p.skipSpace()
			start := p.pos
			for !p.eof() && p.s[p.pos] != ',' && p.s[p.pos] != ']' {
				p.pos++
			}
			tok := strings.TrimSpace(p.s[start:p.pos])
			switch tag {
			case 'B':
				tok = strings.TrimSuffix(strings.TrimSuffix(tok, "b"), "B")
				n, err := strconv.ParseInt(tok, 10, 8)
				if err != nil {
					return gnbt.Value{}, p.errorf("type mismatch: %q is not a valid byte in a [B;...] array", tok)
				}
				bytesOut = append(bytesOut, byte(int8(n)))
			case 'I':
				n, err := strconv.ParseInt(tok, 10, 32)
				if err != nil {
					return gnbt.Value{}, p.errorf("type mismatch: %q is not a valid int in an [I;...] array", tok)
				}
				ints = append(ints, int32(n))
			case 'L':
				tok = strings.TrimSuffix(strings.TrimSuffix(tok, "l"), "L")
				n, err := strconv.ParseInt(tok, 10, 64)
				if err != nil {
					return gnbt.Value{}, p.errorf("type mismatch: %q is not a valid long in an [L;...] array", tok)
				}
				longs = append(longs, n)
			}
			if p.eof() {
				return gnbt.Value{}, p.errorf("unterminated typed array")
			}
			if p.peek() == ',' {
				p.pos++
				continue
			}
			break
		}
	}
	if err := p.expect(']'); err != nil {
		return gnbt.Value{}, err
	}
	switch tag {
	case 'B':
		return gnbt.NewByteArray(bytesOut), nil
	case 'I':
		return gnbt.NewIntArray(ints), nil
	default:
		return gnbt.NewLongArray(longs), nil
	}
}

func (p *parser) parseQuotedString() (string, error) {
	quote := p.s[p.pos]
	p.pos++
	var b strings.Builder
	for {
		if p.eof() {
			return "", p.errorf("unterminated string")
		}
		c := p.s[p.pos]
		if c == quote {
			p.pos++
			return b.String(), nil
		}
		if c == '\\' {
			p.pos++
			if p.eof() {
				return "", p.errorf("unterminated escape")
			}
			switch p.s[p.pos] {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			case '"':
				b.WriteByte('"')
			case '\'':
				b.WriteByte('\'')
			case '\\':
				b.WriteByte('\\')
			default:
				b.WriteByte(p.s[p.pos])
			}
			p.pos++
			continue
		}
		b.WriteByte(c)
		p.pos++
	}
}

// parseBareToken parses an unquoted scalar: a number with an optional
// typed suffix, or a bare string (e.g. true/false or an unquoted token
// that isn't valid as a number).
func (p *parser) parseBareToken() (gnbt.Value, error) {
	start := p.pos
	for !p.eof() {
		c := p.s[p.pos]
		if c == ',' || c == ']' || c == '}' || c == ':' || c == ' ' || c == '\t' || c == '\n' || c == '\r' {
			break
		}
		p.pos++
	}
	tok := p.s[start:p.pos]
	if tok == "" {
		return gnbt.Value{}, p.errorf("expected a value")
	}
	if v, ok := parseNumber(tok); ok {
		return v, nil
	}
	return gnbt.NewString(tok), nil
}

// parseNumber implements the numeric-literal grammar: a typed
// suffix (b/s/L for Byte/Short/Long, f/d for Float/Double) forces that
// NBT kind; no suffix defaults to Int for integral literals. A literal
// with a decimal point or exponent but no suffix defaults to Double,
// since "1.5" has no integral NBT representation to fall back to.
func parseNumber(tok string) (gnbt.Value, bool) {
	if tok == "" {
		return gnbt.Value{}, false
	}
	last := tok[len(tok)-1]
	body := tok
	switch last {
	case 'b', 'B':
		body = tok[:len(tok)-1]
		n, err := strconv.ParseInt(body, 10, 8)
		if err != nil {
			return gnbt.Value{}, false
		}
		return gnbt.NewByte(int8(n)), true
	case 's', 'S':
		body = tok[:len(tok)-1]
		n, err := strconv.ParseInt(body, 10, 16)
		if err != nil {
			return gnbt.Value{}, false
		}
		return gnbt.NewShort(int16(n)), true
	case 'l', 'L':
		body = tok[:len(tok)-1]
		n, err := strconv.ParseInt(body, 10, 64)
		if err != nil {
			return gnbt.Value{}, false
		}
		return gnbt.NewLong(n), true
	case 'f', 'F':
		body = tok[:len(tok)-1]
		n, err := strconv.ParseFloat(body, 32)
		if err != nil {
			return gnbt.Value{}, false
		}
		return gnbt.NewFloat(float32(n)), true
	case 'd', 'D':
		body = tok[:len(tok)-1]
		n, err := strconv.ParseFloat(body, 64)
		if err != nil {
			return gnbt.Value{}, false
		}
		return gnbt.NewDouble(n), true
	}
	if strings.ContainsAny(tok, ".eE") {
		n, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return gnbt.Value{}, false
		}
		return gnbt.NewDouble(n), true
	}
	n, err := strconv.ParseInt(tok, 10, 32)
	if err != nil {
		return gnbt.Value{}, false
	}
	return gnbt.NewInt(int32(n)), true
}
