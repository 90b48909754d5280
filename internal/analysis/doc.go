// Package analysis recovers repeating keys from ciphertext produced by a
// positional substitution cipher such as repeating-key XOR.
//
// The pipeline runs in three stages:
//
//   - Key length: ScoreAllLengths ranks every candidate length by normalized
//     Hamming distance and ResolveKeyLength takes the most common GCD of the
//     best candidates, since multiples of the real length score well too.
//   - Candidates: FindKeyCandidates keeps, for each key position, only the key
//     bytes that decrypt the whole column into a Charset, ranked by
//     EnglishScore.
//   - Enumeration: EnumerateKeys walks the product of the columns lazily,
//     most likely key first.
//
// RecoverEmbeddedKey handles the special case of a key copied into its own
// plaintext.
//
// All functions are safe for concurrent use. Options.Workers enables
// parallel evaluation of key lengths and columns.
package analysis
