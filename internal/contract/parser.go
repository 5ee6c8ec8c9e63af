package contract

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// ErrMalformed is wrapped by every error returned from Parse and Decode.
var ErrMalformed = errors.New("malformed contract")

// ParseError describes where a contract expression could not be parsed.
type ParseError struct {
	Input string
	Msg   string
	Pos   int
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse contract %q at offset %d: %s", e.Input, e.Pos, e.Msg)
}

func (e *ParseError) Unwrap() error {
	return ErrMalformed
}

type tokenKind int

const (
	tokenEOF tokenKind = iota
	tokenIdent
	tokenPunct
)

type token struct {
	text string
	kind tokenKind
	pos  int
}

// Parse parses a contract type expression.
//
// Accepted forms: `Name`, `pkg.Name`, `Name<A, B>`, `Name[A, B]`,
// `A | B`, `T[]`, `[]T`, `*T`, `(T)` and `Name<*>` for a wildcard family.
func Parse(text string) (Shape, error) {
	tokens, err := lex(text)
	if err != nil {
		return nil, err
	}

	p := &parser{input: text, tokens: tokens}
	s, err := p.parseUnion()
	if err != nil {
		return nil, err
	}

	if tok := p.peek(); tok.kind != tokenEOF {
		return nil, p.errorf(tok, "unexpected %q", tok.text)
	}

	return s, nil
}

func lex(text string) ([]token, error) {
	var tokens []token

	runes := []rune(text)
	offset := 0
	for i := 0; i < len(runes); {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++
			offset += len(string(r))
		case isIdentStart(r):
			start := offset
			var sb strings.Builder
			for i < len(runes) && (isIdentPart(runes[i]) || runes[i] == '.') {
				sb.WriteRune(runes[i])
				offset += len(string(runes[i]))
				i++
			}
			ident := sb.String()
			if strings.HasSuffix(ident, ".") || strings.Contains(ident, "..") {
				return nil, &ParseError{Input: text, Pos: start, Msg: fmt.Sprintf("invalid qualified name %q", ident)}
			}
			tokens = append(tokens, token{kind: tokenIdent, text: ident, pos: start})
		case strings.ContainsRune("<>[](),|*", r):
			tokens = append(tokens, token{kind: tokenPunct, text: string(r), pos: offset})
			i++
			offset += len(string(r))
		default:
			return nil, &ParseError{Input: text, Pos: offset, Msg: fmt.Sprintf("unexpected character %q", r)}
		}
	}

	tokens = append(tokens, token{kind: tokenEOF, pos: offset})

	return tokens, nil
}

func isIdentStart(r rune) bool {
	return r == '_' || r == '$' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) || unicode.IsDigit(r)
}

type parser struct {
	input  string
	tokens []token
	pos    int
}

func (p *parser) peek() token {
	return p.tokens[p.pos]
}

func (p *parser) peekAt(n int) token {
	if p.pos+n >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}

	return p.tokens[p.pos+n]
}

func (p *parser) next() token {
	tok := p.tokens[p.pos]
	if tok.kind != tokenEOF {
		p.pos++
	}

	return tok
}

func (p *parser) isPunct(text string) bool {
	tok := p.peek()
	return tok.kind == tokenPunct && tok.text == text
}

func (p *parser) expect(text string) error {
	tok := p.next()
	if tok.kind != tokenPunct || tok.text != text {
		return p.errorf(tok, "expected %q, got %q", text, tok.text)
	}

	return nil
}

func (p *parser) errorf(tok token, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if tok.kind == tokenEOF {
		msg += " at end of input"
	}

	return &ParseError{Input: p.input, Pos: tok.pos, Msg: msg}
}

func (p *parser) parseUnion() (Shape, error) {
	first, err := p.parsePostfix()
	if err != nil {
		return nil, err
	}

	if !p.isPunct("|") {
		return first, nil
	}

	members := appendMember(nil, first)
	for p.isPunct("|") {
		p.next()

		member, err := p.parsePostfix()
		if err != nil {
			return nil, err
		}
		members = appendMember(members, member)
	}

	return Union{Members: members}, nil
}

// appendMember flattens nested unions, which only arise from parentheses.
func appendMember(members []Shape, s Shape) []Shape {
	if u, ok := s.(Union); ok {
		return append(members, u.Members...)
	}

	return append(members, s)
}

func (p *parser) parsePostfix() (Shape, error) {
	s, err := p.parsePrefix()
	if err != nil {
		return nil, err
	}

	for p.isPunct("[") && p.peekAt(1).kind == tokenPunct && p.peekAt(1).text == "]" {
		p.next()
		p.next()
		s = Array{Elem: s}
	}

	return s, nil
}

func (p *parser) parsePrefix() (Shape, error) {
	switch {
	case p.isPunct("*"):
		p.next()

		elem, err := p.parsePrefix()
		if err != nil {
			return nil, err
		}

		return Pointer{Elem: elem}, nil
	case p.isPunct("[") && p.peekAt(1).kind == tokenPunct && p.peekAt(1).text == "]":
		p.next()
		p.next()

		elem, err := p.parsePrefix()
		if err != nil {
			return nil, err
		}

		return Array{Elem: elem}, nil
	default:
		return p.parsePrimary()
	}
}

func (p *parser) parsePrimary() (Shape, error) {
	tok := p.next()
	switch {
	case tok.kind == tokenPunct && tok.text == "(":
		s, err := p.parseUnion()
		if err != nil {
			return nil, err
		}

		if err := p.expect(")"); err != nil {
			return nil, err
		}

		return s, nil
	case tok.kind == tokenIdent:
		switch {
		case p.isPunct("<"):
			return p.parseArgs(tok.text, ">")
		case p.isPunct("[") && !(p.peekAt(1).kind == tokenPunct && p.peekAt(1).text == "]"):
			return p.parseArgs(tok.text, "]")
		default:
			return Named{Name: tok.text}, nil
		}
	default:
		return nil, p.errorf(tok, "expected type name, got %q", tok.text)
	}
}

func (p *parser) parseArgs(name, closer string) (Shape, error) {
	p.next()

	if p.isPunct("*") && p.peekAt(1).kind == tokenPunct && p.peekAt(1).text == closer {
		p.next()
		p.next()
		return Wildcard{Name: name}, nil
	}

	var args []Shape
	for {
		arg, err := p.parseUnion()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)

		if !p.isPunct(",") {
			break
		}
		p.next()
	}

	if err := p.expect(closer); err != nil {
		return nil, err
	}

	return Generic{Name: name, Args: args}, nil
}
