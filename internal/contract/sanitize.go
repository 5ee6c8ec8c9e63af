package contract

import (
	"fmt"
	"strconv"
	"strings"
)

// Token codes. Every '_' in a token starts exactly one of these codes, so a
// token never contains "__" or "_line_".
const (
	codeUnderscore = "_u"
	codeDot        = "_p"
	codeDollar     = "_d"
	codeRune16     = "_x"
	codeRune32     = "_y"
	codeOpen       = "_L"
	codeComma      = "_C"
	codeClose      = "_R"
	codeUnion      = "_O"
	codeArray      = "_A"
	codePointer    = "_P"
	codeHeritage   = "_H"
	codeAny        = "_any"
)

// Sanitize parses text and returns its wildcard key.
func Sanitize(text string) (string, error) {
	s, err := Parse(text)
	if err != nil {
		return "", err
	}

	return Key(s), nil
}

// ExactToken parses text and returns its argument-preserving key.
func ExactToken(text string) (string, error) {
	s, err := Parse(text)
	if err != nil {
		return "", err
	}

	return ExactKey(s), nil
}

// Key returns the canonical, identifier-safe wildcard key of s. Every generic
// instantiation collapses to its family: `Cache<T>`, `Cache<User>` and
// `Cache<string>` all map to `Cache_any`.
func Key(s Shape) string {
	var sb strings.Builder
	encode(&sb, s, true)
	return sb.String()
}

// ExactKey returns the argument-preserving key of s. Distinct shapes always
// have distinct exact keys.
func ExactKey(s Shape) string {
	var sb strings.Builder
	encode(&sb, s, false)
	return sb.String()
}

// HeritageKey returns the exact key of s tagged as an inheritance base, so
// that it never collides with the key of a declared contract or a unit name.
func HeritageKey(s Shape) string {
	return ExactKey(s) + codeHeritage
}

// IdentKey encodes a bare identifier such as an implementation name.
func IdentKey(name string) string {
	var sb strings.Builder
	encodeIdent(&sb, name)
	return sb.String()
}

func encode(sb *strings.Builder, s Shape, wildcard bool) {
	switch s := s.(type) {
	case Named:
		encodeIdent(sb, s.Name)
	case Wildcard:
		encodeIdent(sb, s.Name)
		sb.WriteString(codeAny)
	case Generic:
		encodeIdent(sb, s.Name)
		if wildcard {
			sb.WriteString(codeAny)
			return
		}

		sb.WriteString(codeOpen)
		for i, arg := range s.Args {
			if i > 0 {
				sb.WriteString(codeComma)
			}
			encode(sb, arg, wildcard)
		}
		sb.WriteString(codeClose)
	case Union:
		for i, m := range s.Members {
			if i > 0 {
				sb.WriteString(codeUnion)
			}
			encode(sb, m, wildcard)
		}
	case Array:
		encodeGrouped(sb, s.Elem, wildcard, isUnion(s.Elem))
		sb.WriteString(codeArray)
	case Pointer:
		sb.WriteString(codePointer)
		_, isArray := s.Elem.(Array)
		encodeGrouped(sb, s.Elem, wildcard, isUnion(s.Elem) || isArray)
	}
}

func encodeGrouped(sb *strings.Builder, s Shape, wildcard, group bool) {
	if !group {
		encode(sb, s, wildcard)
		return
	}

	sb.WriteString(codeOpen)
	encode(sb, s, wildcard)
	sb.WriteString(codeClose)
}

func isUnion(s Shape) bool {
	_, ok := s.(Union)
	return ok
}

func encodeIdent(sb *strings.Builder, name string) {
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			sb.WriteRune(r)
		case r == '_':
			sb.WriteString(codeUnderscore)
		case r == '.':
			sb.WriteString(codeDot)
		case r == '$':
			sb.WriteString(codeDollar)
		case r <= 0xFFFF:
			fmt.Fprintf(sb, "%s%04X", codeRune16, r)
		default:
			fmt.Fprintf(sb, "%s%06X", codeRune32, r)
		}
	}
}

// Decoded is the result of decoding a key produced by Key, ExactKey or
// HeritageKey.
type Decoded struct {
	Shape    Shape
	Heritage bool
}

// Decode parses a token back into its shape. Tokens produced by Key decode
// to Wildcard shapes wherever a generic was collapsed.
func Decode(tok string) (Decoded, error) {
	d := &decoder{input: tok}

	var heritage bool
	if strings.HasSuffix(tok, codeHeritage) {
		heritage = true
		d.input = strings.TrimSuffix(tok, codeHeritage)
	}

	s, err := d.decodeUnion()
	if err != nil {
		return Decoded{}, err
	}

	if d.pos != len(d.input) {
		return Decoded{}, d.errorf("unexpected %q", d.input[d.pos:])
	}

	return Decoded{Shape: s, Heritage: heritage}, nil
}

// DecodeToken decodes tok and returns the canonical text of its contract.
func DecodeToken(tok string) (string, error) {
	d, err := Decode(tok)
	if err != nil {
		return "", err
	}

	return d.Shape.String(), nil
}

type decoder struct {
	input string
	pos   int
}

func (d *decoder) has(code string) bool {
	return strings.HasPrefix(d.input[d.pos:], code)
}

func (d *decoder) consume(code string) bool {
	if !d.has(code) {
		return false
	}

	d.pos += len(code)
	return true
}

func (d *decoder) errorf(format string, args ...any) error {
	return &ParseError{Input: d.input, Pos: d.pos, Msg: fmt.Sprintf(format, args...)}
}

func (d *decoder) decodeUnion() (Shape, error) {
	first, err := d.decodeTerm()
	if err != nil {
		return nil, err
	}

	if !d.has(codeUnion) {
		return first, nil
	}

	members := []Shape{first}
	for d.consume(codeUnion) {
		m, err := d.decodeTerm()
		if err != nil {
			return nil, err
		}
		members = append(members, m)
	}

	return Union{Members: members}, nil
}

func (d *decoder) decodeTerm() (Shape, error) {
	s, err := d.decodePrefix()
	if err != nil {
		return nil, err
	}

	for d.consume(codeArray) {
		s = Array{Elem: s}
	}

	return s, nil
}

func (d *decoder) decodePrefix() (Shape, error) {
	if d.consume(codePointer) {
		elem, err := d.decodePrefix()
		if err != nil {
			return nil, err
		}

		return Pointer{Elem: elem}, nil
	}

	return d.decodePrimary()
}

func (d *decoder) decodePrimary() (Shape, error) {
	if d.consume(codeOpen) {
		s, err := d.decodeUnion()
		if err != nil {
			return nil, err
		}

		if !d.consume(codeClose) {
			return nil, d.errorf("unterminated group")
		}

		return s, nil
	}

	name, err := d.decodeIdent()
	if err != nil {
		return nil, err
	}

	switch {
	case d.consume(codeAny):
		return Wildcard{Name: name}, nil
	case d.consume(codeOpen):
		var args []Shape
		for {
			arg, err := d.decodeUnion()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)

			if !d.consume(codeComma) {
				break
			}
		}

		if !d.consume(codeClose) {
			return nil, d.errorf("unterminated type arguments")
		}

		return Generic{Name: name, Args: args}, nil
	default:
		return Named{Name: name}, nil
	}
}

func (d *decoder) decodeIdent() (string, error) {
	var sb strings.Builder

	for d.pos < len(d.input) {
		c := d.input[d.pos]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
			sb.WriteByte(c)
			d.pos++
		case d.consume(codeUnderscore):
			sb.WriteByte('_')
		case d.consume(codeDot):
			sb.WriteByte('.')
		case d.consume(codeDollar):
			sb.WriteByte('$')
		case d.has(codeRune16):
			r, err := d.decodeRune(len(codeRune16), 4)
			if err != nil {
				return "", err
			}
			sb.WriteRune(r)
		case d.has(codeRune32):
			r, err := d.decodeRune(len(codeRune32), 6)
			if err != nil {
				return "", err
			}
			sb.WriteRune(r)
		default:
			return d.finishIdent(sb.String())
		}
	}

	return d.finishIdent(sb.String())
}

func (d *decoder) finishIdent(name string) (string, error) {
	if name == "" {
		return "", d.errorf("expected identifier")
	}

	return name, nil
}

func (d *decoder) decodeRune(codeLen, digits int) (rune, error) {
	start := d.pos + codeLen
	if start+digits > len(d.input) {
		return 0, d.errorf("truncated rune escape")
	}

	v, err := strconv.ParseUint(d.input[start:start+digits], 16, 32)
	if err != nil {
		return 0, d.errorf("invalid rune escape: %v", err)
	}

	d.pos = start + digits
	return rune(v), nil
}
