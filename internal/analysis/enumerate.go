package analysis

import (
	"context"
	"fmt"
	"iter"
	"math/big"
)

// EnumerateKeys lazily yields the Cartesian product of the per-column
// candidates, in the given column order with the last column varying
// fastest. Each yielded key is a fresh slice. Nothing is yielded when there
// are no columns or any column is empty.
func EnumerateKeys(candidates [][]byte) iter.Seq[[]byte] {
	return func(yield func([]byte) bool) {
		if len(candidates) == 0 {
			return
		}
		for _, col := range candidates {
			if len(col) == 0 {
				return
			}
		}

		idx := make([]int, len(candidates))
		for {
			key := make([]byte, len(candidates))
			for i, col := range candidates {
				key[i] = col[idx[i]]
			}
			if !yield(key) {
				return
			}

			pos := len(idx) - 1
			for ; pos >= 0; pos-- {
				idx[pos]++
				if idx[pos] < len(candidates[pos]) {
					break
				}
				idx[pos] = 0
			}
			if pos < 0 {
				return
			}
		}
	}
}

// KeySpaceSize returns the number of keys EnumerateKeys would yield.
func KeySpaceSize(candidates [][]byte) *big.Int {
	if len(candidates) == 0 {
		return new(big.Int)
	}
	size := big.NewInt(1)
	for _, col := range candidates {
		size.Mul(size, big.NewInt(int64(len(col))))
	}
	return size
}

// FindFirstKey returns the most likely key of the enumeration.
func FindFirstKey(candidates [][]byte) ([]byte, error) {
	for key := range EnumerateKeys(candidates) {
		return key, nil
	}
	return nil, ErrNotFound
}

// FindKey recovers the most likely key of ciphertext. The key length is
// estimated first unless opts.KeyLength is set.
func FindKey(ctx context.Context, ciphertext []byte, opts Options) ([]byte, error) {
	_, keys, err := FindKeys(ctx, ciphertext, 1, opts)
	if err != nil {
		return nil, err
	}
	return keys[0], nil
}

// FindKeys returns the key length it settled on and the first n keys of the
// enumeration, most likely first. Fewer keys are returned when the key space
// is smaller than n. A key length is returned along with ErrNotFound when
// some column has no candidate.
func FindKeys(ctx context.Context, ciphertext []byte, n int, opts Options) (int, [][]byte, error) {
	if n < 1 {
		return 0, nil, fmt.Errorf("%w: key count %d", ErrInvalidArgument, n)
	}
	opts = opts.withDefaults()
	keyLength := opts.KeyLength
	if keyLength <= 0 {
		var err error
		keyLength, err = FindKeyLength(ctx, ciphertext, opts)
		if err != nil {
			return 0, nil, err
		}
	}

	candidates, err := FindKeyCandidates(ctx, ciphertext, keyLength, opts.Charset, opts.Combiner, opts)
	if err != nil {
		return keyLength, nil, err
	}
	keys := make([][]byte, 0, n)
	for key := range EnumerateKeys(candidates) {
		keys = append(keys, key)
		if len(keys) == n {
			break
		}
	}
	if len(keys) == 0 {
		return keyLength, nil, fmt.Errorf("key length %d: %w", keyLength, ErrNotFound)
	}
	return keyLength, keys, nil
}
