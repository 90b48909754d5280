package analysis

import (
	"fmt"

	"github.com/pietroferretti/ctftools/internal/cipher"
)

// RecoverEmbeddedKey recovers a repeating key that also appears in the
// plaintext, starting at keyIndex, given a single known plaintext byte seed
// at seedIndex.
//
// Since the plaintext byte at keyIndex+i is key byte i, every known key slot
// i reveals slot (i+keyIndex) mod keyLength. Propagation runs keyLength
// rounds; the whole key is reached only when gcd(keyIndex, keyLength) == 1.
// Each step uses combiner.DeriveKey, which differs from a literal Decrypt
// for combiners that are not self-inverse, such as sub.
// On ErrIncompleteKeyRecovery the partial key is returned as well.
func RecoverEmbeddedKey(ciphertext []byte, keyLength, keyIndex int, seed byte, seedIndex int, combiner cipher.Combiner) (cipher.Key, error) {
	switch {
	case keyLength < 1:
		return nil, fmt.Errorf("%w: key length %d", ErrInvalidArgument, keyLength)
	case keyIndex < 0 || seedIndex < 0:
		return nil, fmt.Errorf("%w: negative index", ErrInvalidArgument)
	case seedIndex >= len(ciphertext):
		return nil, fmt.Errorf("%w: seed index %d beyond ciphertext of %d bytes", ErrInvalidArgument, seedIndex, len(ciphertext))
	case keyIndex%keyLength == 0:
		return nil, fmt.Errorf("%w: key index %d is a multiple of key length %d", ErrInvalidConfiguration, keyIndex, keyLength)
	case keyIndex+keyLength > len(ciphertext):
		return nil, fmt.Errorf("%w: embedded key at %d overruns ciphertext of %d bytes", ErrInvalidArgument, keyIndex, len(ciphertext))
	}
	if combiner == nil {
		combiner = cipher.Default()
	}

	key := cipher.NewKey(keyLength)
	key[seedIndex%keyLength] = cipher.Known(combiner.DeriveKey(ciphertext[seedIndex], seed))

	for range keyLength {
		next := key.Clone()
		for i, kb := range key {
			if !kb.Known {
				continue
			}
			next[(i+keyIndex)%keyLength] = cipher.Known(combiner.DeriveKey(ciphertext[keyIndex+i], kb.Value))
		}
		key = next
	}

	if !key.Complete() {
		return key, fmt.Errorf("%w: %d of %d key bytes known", ErrIncompleteKeyRecovery, key.KnownCount(), keyLength)
	}
	return key, nil
}
