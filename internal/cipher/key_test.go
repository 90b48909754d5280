package cipher

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyMerge(t *testing.T) {
	base := Key{Known('a'), {}, Known('c')}
	overlay := Key{{}, Known('B'), Known('C')}

	merged := base.Merge(overlay)
	assert.Equal(t, Key{Known('a'), Known('B'), Known('C')}, merged)
	// base untouched
	assert.Equal(t, Key{Known('a'), {}, Known('c')}, base)
}

func TestKeyBytes(t *testing.T) {
	b, complete := KeyFromBytes([]byte("KEY")).Bytes()
	assert.True(t, complete)
	assert.Equal(t, []byte("KEY"), b)

	partial := NewKey(3)
	partial[1] = Known('E')
	b, complete = partial.Bytes()
	assert.False(t, complete)
	assert.Equal(t, []byte{0, 'E', 0}, b)
	assert.Equal(t, 1, partial.KnownCount())
	assert.False(t, partial.Complete())
}

func TestKeyString(t *testing.T) {
	k := Key{Known('K'), {}, Known(0x01), Known('\''), Known('\n')}
	assert.Equal(t, `['K', None, '\x01', '\'', '\n']`, k.String())
	assert.Equal(t, "[]", NewKey(0).String())
}

func TestQuoteBytes(t *testing.T) {
	assert.Equal(t, `'as\\df\x10\n jkl'`, QuoteBytes([]byte("as\\df\x10\n jkl")))
}
