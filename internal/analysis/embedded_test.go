package analysis

import (
	"testing"

	"github.com/pietroferretti/ctftools/internal/cipher"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecoverEmbeddedKey(t *testing.T) {
	key := []byte("XORKEY")
	plain := append([]byte("hello"), key...)
	plain = append(plain, " and some more text after the key"...)

	for _, name := range []string{"xor", "add", "sub"} {
		t.Run(name, func(t *testing.T) {
			c, err := cipher.LookupCombiner(name)
			require.NoError(t, err)
			ct := cipher.Encrypt(plain, key, c)

			got, err := RecoverEmbeddedKey(ct, len(key), 5, 'h', 0, c)
			require.NoError(t, err)
			b, ok := got.Bytes()
			require.True(t, ok)
			assert.Equal(t, key, b)
		})
	}
}

func TestRecoverEmbeddedKeySeedAnywhere(t *testing.T) {
	key := []byte("flag{x}")
	plain := []byte("The key is flag{x} and nothing else matters")
	ct := cipher.Encrypt(plain, key, nil)

	got, err := RecoverEmbeddedKey(ct, len(key), 11, 'n', 23, nil)
	require.NoError(t, err)
	assert.Equal(t, cipher.KeyFromBytes(key), got)
}

func TestRecoverEmbeddedKeyIncomplete(t *testing.T) {
	key := []byte("XORKEY")
	plain := []byte("hi" + string(key) + " trailing plaintext")
	ct := cipher.Encrypt(plain, key, nil)

	got, err := RecoverEmbeddedKey(ct, len(key), 2, 'h', 0, nil)
	require.ErrorIs(t, err, ErrIncompleteKeyRecovery)
	require.Len(t, got, len(key))
	assert.Equal(t, 3, got.KnownCount())
	for i, kb := range got {
		if i%2 == 0 {
			require.True(t, kb.Known, "slot %d", i)
			assert.Equal(t, key[i], kb.Value)
		} else {
			assert.False(t, kb.Known, "slot %d", i)
		}
	}
}

func TestRecoverEmbeddedKeyInvalid(t *testing.T) {
	ct := make([]byte, 32)
	tests := []struct {
		name      string
		keyLength int
		keyIndex  int
		seedIndex int
		want      error
	}{
		{name: "aligned with key period", keyLength: 4, keyIndex: 8, want: ErrInvalidConfiguration},
		{name: "key index zero", keyLength: 4, keyIndex: 0, want: ErrInvalidConfiguration},
		{name: "zero key length", keyLength: 0, keyIndex: 3, want: ErrInvalidArgument},
		{name: "negative index", keyLength: 4, keyIndex: -1, want: ErrInvalidArgument},
		{name: "seed beyond ciphertext", keyLength: 4, keyIndex: 3, seedIndex: 32, want: ErrInvalidArgument},
		{name: "key overruns ciphertext", keyLength: 4, keyIndex: 30, want: ErrInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := RecoverEmbeddedKey(ct, tt.keyLength, tt.keyIndex, 'a', tt.seedIndex, nil)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
