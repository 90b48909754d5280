package cipher

import (
	"fmt"
	"strings"
)

// KeyByte is one key position. Known is false while the byte has not been
// recovered yet; Value is meaningless in that case.
type KeyByte struct {
	Value byte `json:"value"`
	Known bool `json:"known"`
}

// Known returns a recovered key byte.
func Known(b byte) KeyByte {
	return KeyByte{Value: b, Known: true}
}

// Key is a repeating key whose positions may be unknown.
type Key []KeyByte

// NewKey returns a key of length n with every position unknown.
func NewKey(n int) Key {
	if n < 0 {
		n = 0
	}
	return make(Key, n)
}

// KeyFromBytes returns a fully known key.
func KeyFromBytes(b []byte) Key {
	k := make(Key, len(b))
	for i, v := range b {
		k[i] = Known(v)
	}
	return k
}

// Clone returns a copy of k.
func (k Key) Clone() Key {
	if k == nil {
		return nil
	}
	out := make(Key, len(k))
	copy(out, k)
	return out
}

// KnownCount returns how many positions are known.
func (k Key) KnownCount() int {
	n := 0
	for _, b := range k {
		if b.Known {
			n++
		}
	}
	return n
}

// Complete reports whether every position is known.
func (k Key) Complete() bool {
	return k.KnownCount() == len(k)
}

// Bytes returns the key bytes and whether the key is complete. Unknown
// positions are zero in the returned slice.
func (k Key) Bytes() ([]byte, bool) {
	out := make([]byte, len(k))
	complete := true
	for i, b := range k {
		if !b.Known {
			complete = false
			continue
		}
		out[i] = b.Value
	}
	return out, complete
}

// Merge returns a new key where known positions of overlay replace those of k.
// Positions unknown in overlay keep the value from k. Both keys must have the
// same length; extra overlay positions are ignored.
func (k Key) Merge(overlay Key) Key {
	out := k.Clone()
	for i := range out {
		if i < len(overlay) && overlay[i].Known {
			out[i] = overlay[i]
		}
	}
	return out
}

// String renders the key as a list literal, e.g. ['K', None, '\x01']. The
// output can be fed back to the crib-drag "key" command.
func (k Key) String() string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, b := range k {
		if i > 0 {
			sb.WriteString(", ")
		}
		if !b.Known {
			sb.WriteString("None")
			continue
		}
		sb.WriteString(QuoteBytes([]byte{b.Value}))
	}
	sb.WriteByte(']')
	return sb.String()
}

// QuoteBytes renders b as a single-quoted string literal using only
// printable ASCII, escaping everything else.
func QuoteBytes(b []byte) string {
	var sb strings.Builder
	sb.WriteByte('\'')
	for _, c := range b {
		switch c {
		case '\'':
			sb.WriteString(`\'`)
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		default:
			if c >= 0x20 && c < 0x7f {
				sb.WriteByte(c)
			} else {
				fmt.Fprintf(&sb, `\x%02x`, c)
			}
		}
	}
	sb.WriteByte('\'')
	return sb.String()
}
