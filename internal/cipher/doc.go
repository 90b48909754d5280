// Package cipher models repeating-key substitution ciphers.
//
// # Combiners
//
// A Combiner mixes a plaintext byte with a key byte. Three are built in and
// registered at init time:
//   - xor - bitwise exclusive or (self-inverse, the default)
//   - add - c = p + k mod 256
//   - sub - c = p - k mod 256
//
// Custom combiners can be built from plain functions:
//
//	rot := &cipher.CombinerFuncs{
//	    BaseCombiner: cipher.BaseCombiner{NameValue: "rot"},
//	    EncryptFunc:   func(p, k byte) byte { return p + k },
//	    DecryptFunc:   func(c, k byte) byte { return c - k },
//	    DeriveKeyFunc: func(c, p byte) byte { return c - p },
//	}
//	cipher.RegisterCombiner(rot)
//
// When DeriveKeyFunc is omitted the decrypt function is reused, which is only
// correct for self-inverse operations.
//
// # Keys
//
// Key is a slice of KeyByte values, each either known or unknown. Analyses
// that recover a key progressively (crib dragging, embedded-key recovery)
// work on a Key and merge partial results with Key.Merge.
//
// # Thread Safety
//
// The combiner registry is thread-safe. Built-in combiners are stateless.
package cipher
