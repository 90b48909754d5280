package cipher

// Combiner mixes one plaintext byte with one key byte. Decrypt and DeriveKey
// are the two inverses of Encrypt: Decrypt recovers the plaintext from the
// ciphertext and key, DeriveKey recovers the key from the ciphertext and
// plaintext. For involutive operations such as XOR all three coincide.
type Combiner interface {
	// Name returns the unique identifier for this combiner
	Name() string

	// Description returns a human-readable description
	Description() string

	// Encrypt combines a plaintext byte with a key byte
	Encrypt(plain, key byte) byte

	// Decrypt recovers the plaintext byte
	Decrypt(cipher, key byte) byte

	// DeriveKey recovers the key byte that maps plain to cipher
	DeriveKey(cipher, plain byte) byte
}

// BaseCombiner provides the naming half of a Combiner.
type BaseCombiner struct {
	NameValue        string
	DescriptionValue string
}

func (b *BaseCombiner) Name() string {
	return b.NameValue
}

func (b *BaseCombiner) Description() string {
	return b.DescriptionValue
}

// CombinerFuncs adapts plain functions to the Combiner interface. A nil
// DeriveKeyFunc or EncryptFunc falls back to DecryptFunc, which is only
// correct when the operation is its own inverse.
type CombinerFuncs struct {
	BaseCombiner
	EncryptFunc   func(plain, key byte) byte
	DecryptFunc   func(cipher, key byte) byte
	DeriveKeyFunc func(cipher, plain byte) byte
}

func (f *CombinerFuncs) Encrypt(plain, key byte) byte {
	if f.EncryptFunc != nil {
		return f.EncryptFunc(plain, key)
	}
	return f.DecryptFunc(plain, key)
}

func (f *CombinerFuncs) Decrypt(cipher, key byte) byte {
	return f.DecryptFunc(cipher, key)
}

func (f *CombinerFuncs) DeriveKey(cipher, plain byte) byte {
	if f.DeriveKeyFunc != nil {
		return f.DeriveKeyFunc(cipher, plain)
	}
	return f.DecryptFunc(cipher, plain)
}
