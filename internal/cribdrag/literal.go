package cribdrag

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pietroferretti/ctftools/internal/cipher"
)

// LiteralError reports where a string or list literal stopped parsing.
type LiteralError struct {
	Input  string
	Offset int
	Msg    string
}

func (e *LiteralError) Error() string {
	return fmt.Sprintf("%s at offset %d in %q", e.Msg, e.Offset, e.Input)
}

func (e *LiteralError) Unwrap() error { return ErrParse }

// literalParser reads the restricted literal grammar accepted by the crib
// and key commands. Nothing is ever evaluated.
type literalParser struct {
	src string
	pos int
}

func (p *literalParser) fail(format string, args ...any) error {
	return &LiteralError{Input: p.src, Offset: p.pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *literalParser) skipSpace() {
	for p.pos < len(p.src) && strings.IndexByte(" \t\r\n", p.src[p.pos]) >= 0 {
		p.pos++
	}
}

func (p *literalParser) done() bool { return p.pos >= len(p.src) }

func (p *literalParser) peek() byte {
	if p.done() {
		return 0
	}
	return p.src[p.pos]
}

func (p *literalParser) expectEnd() error {
	p.skipSpace()
	if !p.done() {
		return p.fail("unexpected trailing input")
	}
	return nil
}

func (p *literalParser) parseString() ([]byte, error) {
	if c := p.peek(); c == 'b' || c == 'B' {
		p.pos++
	}
	quote := p.peek()
	if quote != '\'' && quote != '"' {
		return nil, p.fail("expected a quoted string")
	}
	p.pos++

	var out []byte
	for {
		if p.done() {
			return nil, p.fail("unterminated string")
		}
		c := p.src[p.pos]
		switch {
		case c == quote:
			p.pos++
			return out, nil
		case c == '\\':
			b, err := p.parseEscape()
			if err != nil {
				return nil, err
			}
			out = append(out, b)
		case c == '\n':
			return nil, p.fail("newline in string")
		default:
			out = append(out, c)
			p.pos++
		}
	}
}

func (p *literalParser) parseEscape() (byte, error) {
	p.pos++ // backslash
	if p.done() {
		return 0, p.fail("unterminated escape")
	}
	c := p.src[p.pos]
	p.pos++
	switch c {
	case '\\', '\'', '"':
		return c, nil
	case 'n':
		return '\n', nil
	case 'r':
		return '\r', nil
	case 't':
		return '\t', nil
	case 'a':
		return '\a', nil
	case 'b':
		return '\b', nil
	case 'f':
		return '\f', nil
	case 'v':
		return '\v', nil
	case '0':
		return 0, nil
	case 'x':
		if p.pos+2 > len(p.src) {
			p.pos--
			return 0, p.fail(`truncated \x escape`)
		}
		v, err := strconv.ParseUint(p.src[p.pos:p.pos+2], 16, 8)
		if err != nil {
			p.pos--
			return 0, p.fail(`invalid \x escape`)
		}
		p.pos += 2
		return byte(v), nil
	default:
		p.pos--
		return 0, p.fail("unknown escape \\%c", c)
	}
}

func (p *literalParser) parseKeyItem() (cipher.KeyByte, error) {
	start := p.pos
	switch c := p.peek(); {
	case c == '\'' || c == '"' || c == 'b' || c == 'B':
		s, err := p.parseString()
		if err != nil {
			return cipher.KeyByte{}, err
		}
		if len(s) != 1 {
			p.pos = start
			return cipher.KeyByte{}, p.fail("key entries must be single bytes, got %d", len(s))
		}
		return cipher.Known(s[0]), nil
	case c >= '0' && c <= '9':
		for !p.done() && isWordByte(p.peek()) {
			p.pos++
		}
		v, err := strconv.ParseUint(p.src[start:p.pos], 0, 8)
		if err != nil {
			p.pos = start
			return cipher.KeyByte{}, p.fail("key entries must be integers in 0-255")
		}
		return cipher.Known(byte(v)), nil
	default:
		for !p.done() && isWordByte(p.peek()) {
			p.pos++
		}
		switch p.src[start:p.pos] {
		case "None", "null":
			return cipher.KeyByte{}, nil
		}
		p.pos = start
		return cipher.KeyByte{}, p.fail("expected a one-byte string, an integer or None")
	}
}

func isWordByte(c byte) bool {
	return c == '_' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

// ParseString parses a single quoted string literal such as "as\"df\x10\n"
// or b'\x00k'. An empty input parses as the empty string.
func ParseString(s string) ([]byte, error) {
	p := &literalParser{src: s}
	p.skipSpace()
	if p.done() {
		return []byte{}, nil
	}
	out, err := p.parseString()
	if err != nil {
		return nil, err
	}
	if err := p.expectEnd(); err != nil {
		return nil, err
	}
	if out == nil {
		out = []byte{}
	}
	return out, nil
}

// ParseKeyList parses a list literal such as ['a', '\x01', None, 0x41].
// None (or null) marks an unknown position.
func ParseKeyList(s string) (cipher.Key, error) {
	p := &literalParser{src: s}
	p.skipSpace()
	if p.peek() != '[' {
		return nil, p.fail("expected a list")
	}
	p.pos++

	key := cipher.Key{}
	for {
		p.skipSpace()
		if p.peek() == ']' {
			p.pos++
			break
		}
		if p.done() {
			return nil, p.fail("unterminated list")
		}
		item, err := p.parseKeyItem()
		if err != nil {
			return nil, err
		}
		key = append(key, item)

		p.skipSpace()
		switch p.peek() {
		case ',':
			p.pos++
		case ']':
		default:
			if p.done() {
				return nil, p.fail("unterminated list")
			}
			return nil, p.fail("expected ',' or ']'")
		}
	}
	if err := p.expectEnd(); err != nil {
		return nil, err
	}
	return key, nil
}
