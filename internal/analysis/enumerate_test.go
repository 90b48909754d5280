package analysis

import (
	"context"
	"math/big"
	"testing"

	"github.com/pietroferretti/ctftools/internal/cipher"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(candidates [][]byte) [][]byte {
	var keys [][]byte
	for key := range EnumerateKeys(candidates) {
		keys = append(keys, key)
	}
	return keys
}

func TestEnumerateKeysOrder(t *testing.T) {
	candidates := [][]byte{{'a', 'b'}, {'x'}, {'1', '2', '3'}}
	want := [][]byte{
		[]byte("ax1"), []byte("ax2"), []byte("ax3"),
		[]byte("bx1"), []byte("bx2"), []byte("bx3"),
	}
	assert.Equal(t, want, collect(candidates))
	assert.Equal(t, want, collect(candidates), "sequence can be iterated again")
	assert.Equal(t, big.NewInt(6), KeySpaceSize(candidates))
}

func TestEnumerateKeysEmpty(t *testing.T) {
	assert.Empty(t, collect(nil))
	assert.Empty(t, collect([][]byte{{'a'}, {}}))
	assert.Equal(t, 0, KeySpaceSize([][]byte{{'a'}, {}}).Sign())
	assert.Equal(t, 0, KeySpaceSize(nil).Sign())
}

func TestEnumerateKeysIsLazy(t *testing.T) {
	full := make([]byte, 256)
	for i := range full {
		full[i] = byte(i)
	}
	candidates := make([][]byte, 16)
	for i := range candidates {
		candidates[i] = full
	}

	pulls := 0
	for range EnumerateKeys(candidates) {
		pulls++
		if pulls == 3 {
			break
		}
	}
	assert.Equal(t, 3, pulls)
	assert.Equal(t, "340282366920938463463374607431768211456", KeySpaceSize(candidates).String())
}

func TestEnumerateKeysFreshSlices(t *testing.T) {
	var keys [][]byte
	for key := range EnumerateKeys([][]byte{{'a', 'b'}}) {
		key[0] = 'z'
		keys = append(keys, key)
	}
	assert.Equal(t, [][]byte{[]byte("z"), []byte("z")}, keys)
	assert.Equal(t, [][]byte{[]byte("a"), []byte("b")}, collect([][]byte{{'a', 'b'}}))
}

func TestFindFirstKey(t *testing.T) {
	key, err := FindFirstKey([][]byte{{'K', 'x'}, {'e'}, {'y', 'z'}})
	require.NoError(t, err)
	assert.Equal(t, []byte("Key"), key)

	_, err = FindFirstKey([][]byte{{'K'}, {}})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFindKey(t *testing.T) {
	for _, key := range sampleKeys {
		t.Run(key, func(t *testing.T) {
			ct := cipher.Encrypt(sampleText, []byte(key), nil)

			got, err := FindKey(context.Background(), ct, Options{})
			require.NoError(t, err)
			assert.Equal(t, []byte(key), got)
			assert.Equal(t, sampleText, cipher.Decrypt(ct, got, nil))

			got, err = FindKey(context.Background(), ct, Options{KeyLength: len(key), Workers: 4})
			require.NoError(t, err)
			assert.Equal(t, []byte(key), got)
		})
	}
}

func TestFindKeyNotFound(t *testing.T) {
	ct := cipher.Encrypt([]byte("hello world"), []byte("ab"), nil)
	digits := NewCharset("digits", []byte(Digits))
	_, err := FindKey(context.Background(), ct, Options{KeyLength: 2, Charset: digits})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFindKeys(t *testing.T) {
	ct := cipher.Encrypt(sampleText, []byte("ICE"), nil)

	keyLength, keys, err := FindKeys(context.Background(), ct, 2, Options{})
	require.NoError(t, err)
	assert.Equal(t, 3, keyLength)
	require.Len(t, keys, 2)
	assert.Equal(t, []byte("ICE"), keys[0])
	assert.NotEqual(t, keys[0], keys[1])

	candidates, err := FindKeyCandidates(context.Background(), ct, 3, nil, nil, Options{})
	require.NoError(t, err)
	assert.Equal(t, collect(candidates)[:2], keys)

	first, err := FindKey(context.Background(), ct, Options{})
	require.NoError(t, err)
	assert.Equal(t, keys[0], first)
}

func TestFindKeysErrors(t *testing.T) {
	ct := cipher.Encrypt([]byte("hello world"), []byte("ab"), nil)

	_, _, err := FindKeys(context.Background(), ct, 0, Options{})
	assert.ErrorIs(t, err, ErrInvalidArgument)

	digits := NewCharset("digits", []byte(Digits))
	keyLength, keys, err := FindKeys(context.Background(), ct, 2, Options{KeyLength: 2, Charset: digits})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 2, keyLength)
	assert.Empty(t, keys)
}
