package analysis

import (
	"fmt"
	"sort"
	"strings"
)

// Character classes used by the scorer and the named charsets.
const (
	Letters     = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
	Digits      = "0123456789"
	Punctuation = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"
	Whitespace  = " \t\n\r\x0b\x0c"
)

// Charset is an immutable set of plaintext bytes.
type Charset struct {
	name  string
	set   [256]bool
	count int
}

// NewCharset builds a charset from the bytes of chars. Duplicates are
// ignored.
func NewCharset(name string, chars []byte) *Charset {
	c := &Charset{name: name}
	for _, b := range chars {
		if !c.set[b] {
			c.set[b] = true
			c.count++
		}
	}
	return c
}

// Name returns the charset name, or "custom" for unnamed sets.
func (c *Charset) Name() string {
	if c.name == "" {
		return "custom"
	}
	return c.name
}

// Contains reports whether b belongs to the charset.
func (c *Charset) Contains(b byte) bool { return c.set[b] }

// Len returns the number of distinct bytes in the charset.
func (c *Charset) Len() int { return c.count }

// Bytes returns the members in ascending order.
func (c *Charset) Bytes() []byte {
	out := make([]byte, 0, c.count)
	for i := 0; i < 256; i++ {
		if c.set[i] {
			out = append(out, byte(i))
		}
	}
	return out
}

// Union returns a new unnamed charset holding the members of both sets.
func (c *Charset) Union(other *Charset) *Charset {
	u := &Charset{}
	for i := 0; i < 256; i++ {
		if c.set[i] || other.set[i] {
			u.set[i] = true
			u.count++
		}
	}
	return u
}

func allBytes() []byte {
	out := make([]byte, 256)
	for i := range out {
		out[i] = byte(i)
	}
	return out
}

var (
	// Printable is the default plaintext alphabet.
	Printable = NewCharset("printable", []byte(Letters+Digits+Punctuation+Whitespace))

	namedCharsets = map[string]*Charset{
		"printable":    Printable,
		"letters":      NewCharset("letters", []byte(Letters)),
		"alphanumeric": NewCharset("alphanumeric", []byte(Letters+Digits)),
		"text":         NewCharset("text", []byte(Letters+Digits+Punctuation+" ")),
		"hex":          NewCharset("hex", []byte("0123456789abcdefABCDEF")),
		"base64":       NewCharset("base64", []byte(Letters+Digits+"+/=")),
		"flag":         NewCharset("flag", []byte(Letters+Digits+"_{}-!?")),
		"bytes":        NewCharset("bytes", allBytes()),
	}
)

// LookupCharset returns the named charset. Names are case-insensitive and an
// empty name selects Printable.
func LookupCharset(name string) (*Charset, error) {
	if strings.TrimSpace(name) == "" {
		return Printable, nil
	}
	c, ok := namedCharsets[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: unknown charset %q", ErrInvalidArgument, name)
	}
	return c, nil
}

// CharsetNames lists the named charsets in sorted order.
func CharsetNames() []string {
	names := make([]string, 0, len(namedCharsets))
	for name := range namedCharsets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
